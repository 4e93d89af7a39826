package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      MeetingStatus
		wantErr error
	}{
		{"scheduled to completed", "SCHEDULED", MeetingCompleted, nil},
		{"scheduled to canceled", "SCHEDULED", MeetingCanceled, nil},
		{"scheduled to rescheduled", "SCHEDULED", MeetingRescheduled, nil},
		{"empty outcome counts as scheduled", "", MeetingCanceled, nil},
		{"lowercase outcome", "scheduled", MeetingCompleted, nil},
		{"rescheduled to completed", "RESCHEDULED", MeetingCompleted, nil},
		{"rescheduled again", "RESCHEDULED", MeetingRescheduled, nil},
		{"completed is terminal", "COMPLETED", MeetingCanceled, ErrInvalidTransition},
		{"canceled is terminal", "CANCELED", MeetingCompleted, ErrInvalidTransition},
		{"canceled cannot be rescheduled", "CANCELED", MeetingRescheduled, ErrInvalidTransition},
		{"scheduled to scheduled", "SCHEDULED", MeetingScheduled, ErrInvalidTransition},
		{"no show is open", "NO_SHOW", MeetingCompleted, nil},
		{"no show can be rescheduled", "no_show", MeetingRescheduled, nil},
		{"cannot move back to scheduled", "NO_SHOW", MeetingScheduled, ErrInvalidTransition},
		{"malformed outcome", "NO SHOW", MeetingCompleted, ErrUnknownState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateMeetingTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDealTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      DealStage
		wantErr error
	}{
		{"scheduled to negotiation", "appointmentscheduled", DealInNegotiation, nil},
		{"scheduled closes lost", "appointmentscheduled", DealClosedLost, nil},
		{"negotiation to won", "qualifiedtobuy", DealClosedWon, nil},
		{"negotiation to lost", "qualifiedtobuy", DealClosedLost, nil},
		{"negotiation back to scheduled", "qualifiedtobuy", DealAppointmentScheduled, ErrInvalidTransition},
		{"won is terminal", "closedwon", DealClosedLost, ErrInvalidTransition},
		{"lost is terminal", "closedlost", DealInNegotiation, ErrInvalidTransition},
		{"negotiation to negotiation", "qualifiedtobuy", DealInNegotiation, ErrInvalidTransition},
		{"contract sent to won", "contractsent", DealClosedWon, nil},
		{"contract sent to lost", "contractsent", DealClosedLost, nil},
		{"presentation to negotiation", "presentationscheduled", DealInNegotiation, nil},
		{"decision maker bought in to won", "decisionmakerboughtin", DealClosedWon, nil},
		{"custom numeric stage", "123456789", DealClosedLost, nil},
		{"empty stage is open", "", DealClosedWon, nil},
		{"uppercase closed stage", "CLOSEDWON", DealClosedLost, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDealTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseDealStage(t *testing.T) {
	st, err := ParseDealStage(" ContractSent ")
	require.NoError(t, err)
	assert.Equal(t, DealStage("contractsent"), st)

	_, err = ParseDealStage("")
	assert.ErrorIs(t, err, ErrUnknownState)
	_, err = ParseDealStage("contract sent")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestParseMeetingStatus(t *testing.T) {
	st, err := ParseMeetingStatus("")
	require.NoError(t, err)
	assert.Equal(t, MeetingScheduled, st)

	st, err = ParseMeetingStatus("no_show")
	require.NoError(t, err)
	assert.Equal(t, MeetingStatus("NO_SHOW"), st)
	assert.False(t, st.Closed())
	assert.True(t, MeetingCanceled.Closed())
}

func TestTaskKindFromSubject(t *testing.T) {
	assert.Equal(t, TaskFollowup, TaskKindFromSubject("Followup Task - ACME"))
	assert.Equal(t, TaskCancellation, TaskKindFromSubject("Cancellation Task - ACME"))
	assert.Equal(t, TaskOther, TaskKindFromSubject("Call back"))
}

func TestTaskSubject(t *testing.T) {
	assert.Equal(t, "Followup Task - ACME GmbH", TaskSubject(TaskFollowup, " ACME GmbH "))
	assert.Equal(t, "Cancellation Task", TaskSubject(ParseTaskKind("cancellation"), ""))
	assert.Equal(t, TaskFollowup, ParseTaskKind("whatever"))
}

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "first", AppendNote("", "first"))
	assert.Equal(t, "first\n---\nsecond", AppendNote("first", "second"))
	assert.Equal(t, "a\n---\nb\n---\nc", AppendNote(AppendNote("a", "b"), "c"))
}
