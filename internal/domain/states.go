package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current state. Handlers answer 409.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownState is returned for status or stage values outside the
	// known set.
	ErrUnknownState = errors.New("unknown state")
)

// MeetingStatus mirrors the hs_meeting_outcome property.
type MeetingStatus string

const (
	MeetingScheduled   MeetingStatus = "SCHEDULED"
	MeetingCompleted   MeetingStatus = "COMPLETED"
	MeetingCanceled    MeetingStatus = "CANCELED"
	MeetingRescheduled MeetingStatus = "RESCHEDULED"
)

// Closed outcomes accept no further change. Every other outcome, including
// ones this service never writes such as NO_SHOW, is open.
var meetingClosed = map[MeetingStatus]bool{
	MeetingCompleted: true,
	MeetingCanceled:  true,
}

var meetingTargets = map[MeetingStatus]bool{
	MeetingCompleted:   true,
	MeetingCanceled:    true,
	MeetingRescheduled: true,
}

// ParseMeetingStatus accepts HubSpot's outcome value. An empty outcome is a
// meeting nobody has touched yet and counts as scheduled. Values that are not
// a single token are rejected.
func ParseMeetingStatus(s string) (MeetingStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return MeetingScheduled, nil
	}
	if !isToken(s) {
		return "", fmt.Errorf("%w: meeting status %q", ErrUnknownState, s)
	}
	return MeetingStatus(s), nil
}

func (s MeetingStatus) Closed() bool { return meetingClosed[s] }

// CanTransition reports whether a meeting may move from s to next. A
// meeting can be rescheduled repeatedly but not set back to scheduled.
func (s MeetingStatus) CanTransition(next MeetingStatus) bool {
	if s.Closed() || !meetingTargets[next] {
		return false
	}
	return next != s || next == MeetingRescheduled
}

// ValidateMeetingTransition parses the raw current outcome and checks the move.
func ValidateMeetingTransition(current string, next MeetingStatus) (MeetingStatus, error) {
	from, err := ParseMeetingStatus(current)
	if err != nil {
		return "", err
	}
	if !from.CanTransition(next) {
		return from, fmt.Errorf("%w: meeting %s -> %s", ErrInvalidTransition, from, next)
	}
	return from, nil
}

// DealStage is a dealstage id. The constants are the default pipeline stages
// this service moves deals to; custom pipelines use their own ids.
type DealStage string

const (
	DealAppointmentScheduled DealStage = "appointmentscheduled"
	DealInNegotiation        DealStage = "qualifiedtobuy"
	DealClosedWon            DealStage = "closedwon"
	DealClosedLost           DealStage = "closedlost"
)

var dealTargets = map[DealStage]bool{
	DealInNegotiation: true,
	DealClosedWon:     true,
	DealClosedLost:    true,
}

// ParseDealStage normalizes a stage id for writing. Any single-token id is
// accepted since pipelines define their own stages.
func ParseDealStage(s string) (DealStage, error) {
	st := strings.ToLower(strings.TrimSpace(s))
	if st == "" || !isToken(st) {
		return "", fmt.Errorf("%w: deal stage %q", ErrUnknownState, s)
	}
	return DealStage(st), nil
}

func (s DealStage) Closed() bool { return s == DealClosedWon || s == DealClosedLost }

// CanTransition reports whether a deal may move from s to next. Open deals,
// whatever stage they sit in, may go to negotiation or close. Deals may skip
// negotiation and close straight from the first meeting.
func (s DealStage) CanTransition(next DealStage) bool {
	if s.Closed() || !dealTargets[next] {
		return false
	}
	return next != s
}

// ValidateDealTransition checks the move from the raw current stage. An empty
// stage is an open deal.
func ValidateDealTransition(current string, next DealStage) (DealStage, error) {
	from := DealStage(strings.ToLower(strings.TrimSpace(current)))
	if !from.CanTransition(next) {
		return from, fmt.Errorf("%w: deal %q -> %s", ErrInvalidTransition, string(from), next)
	}
	return from, nil
}

func isToken(s string) bool { return !strings.ContainsAny(s, " \t\r\n") }
