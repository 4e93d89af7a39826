package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "wednesday",
			now:       time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC),
			wantStart: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 30, 23, 59, 59, 999_000_000, time.UTC),
		},
		{
			name:      "sunday belongs to the week before",
			now:       time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 30, 23, 59, 59, 999_000_000, time.UTC),
		},
		{
			name:      "monday",
			now:       time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 4, 6, 23, 59, 59, 999_000_000, time.UTC),
		},
		{
			name:      "saturday across a year boundary",
			now:       time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 19, 23, 59, 59, 999_000_000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := RollingWindow(tt.now, time.UTC)
			assert.True(t, tt.wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end %s", w.End)
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.Equal(t, time.Sunday, w.End.Weekday())
		})
	}
}

func TestRollingWindowUsesLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:30 UTC on Sunday is already Monday in Berlin.
	now := time.Date(2025, 3, 16, 23, 30, 0, 0, time.UTC)
	w := RollingWindow(now, berlin)

	assert.True(t, time.Date(2025, 3, 10, 0, 0, 0, 0, berlin).Equal(w.Start))
	assert.True(t, time.Date(2025, 4, 6, 23, 59, 59, 999_000_000, berlin).Equal(w.End))
}

func TestDayWindow(t *testing.T) {
	w, err := DayWindow("2025-06-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1748822400000), w.StartMillis())
	assert.Equal(t, int64(1748908799999), w.EndMillis())

	_, err = DayWindow("02.06.2025", time.UTC)
	assert.Error(t, err)
}

func TestLightWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	w := LightWindow(now)
	assert.Equal(t, time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC), w.End)
}

func TestUTCMidnight(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	local := time.Date(2025, 9, 1, 0, 30, 0, 0, berlin)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), UTCMidnight(local))
}

func TestFormatGermanDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	assert.Equal(t, "5.3.2025", FormatGermanDate(time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC), berlin))
	// 23:30 UTC is the next day in Berlin.
	assert.Equal(t, "1.1.2026", FormatGermanDate(time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC), berlin))
}

func TestParseHubSpotTime(t *testing.T) {
	got, ok := ParseHubSpotTime("1741773600000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), got)

	got, ok = ParseHubSpotTime("2025-03-12T10:00:00.000Z")
	require.True(t, ok)
	assert.Equal(t, int64(1741773600000), got.UnixMilli())

	_, ok = ParseHubSpotTime("")
	assert.False(t, ok)
	_, ok = ParseHubSpotTime("soon")
	assert.False(t, ok)
}

func TestParseClientTime(t *testing.T) {
	got, err := ParseClientTime(float64(1741773600000))
	require.NoError(t, err)
	assert.Equal(t, int64(1741773600000), got.UnixMilli())

	got, err = ParseClientTime("2025-03-12T11:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1741773600000), got.UnixMilli())

	_, err = ParseClientTime(nil)
	assert.Error(t, err)
}
