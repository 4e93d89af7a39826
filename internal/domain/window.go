package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a closed [Start, End] range. HubSpot filters take epoch millis.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) StartMillis() int64 { return w.Start.UnixMilli() }
func (w Window) EndMillis() int64   { return w.End.UnixMilli() }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// RollingWindow spans Monday of the previous week 00:00:00.000 to Sunday of
// the week after next 23:59:59.999, evaluated in loc. Sunday belongs to the
// week that started six days earlier.
func RollingWindow(now time.Time, loc *time.Location) Window {
	today := startOfDay(now.In(loc))
	diff := 1 - int(today.Weekday())
	if today.Weekday() == time.Sunday {
		diff = -6
	}
	monday := today.AddDate(0, 0, diff)
	return Window{
		Start: monday.AddDate(0, 0, -7),
		End:   endOfDay(monday.AddDate(0, 0, 20)),
	}
}

// LightWindow is the ±6 month range used by the light calendar view.
func LightWindow(now time.Time) Window {
	return Window{Start: now.AddDate(0, -6, 0), End: now.AddDate(0, 6, 0)}
}

// DayWindow parses a YYYY-MM-DD day and covers it from 00:00 to 23:59:59.999.
func DayWindow(day string, loc *time.Location) (Window, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(day), loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", day, err)
	}
	return Window{Start: startOfDay(d), End: endOfDay(d)}, nil
}

// UTCMidnight keeps t's calendar date and pins it to 00:00 UTC, which is what
// HubSpot date (not datetime) properties accept.
func UTCMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatGermanDate renders t the way de-DE toLocaleDateString does: 5.3.2025.
func FormatGermanDate(t time.Time, loc *time.Location) string {
	y, m, d := t.In(loc).Date()
	return fmt.Sprintf("%d.%d.%d", d, int(m), y)
}

// ParseHubSpotTime accepts epoch millis or an ISO-8601 timestamp.
func ParseHubSpotTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClientTime accepts what the dashboard sends for a time field: epoch
// millis as a number or string, or RFC3339.
func ParseClientTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case float64:
		return time.UnixMilli(int64(x)).UTC(), nil
	case int64:
		return time.UnixMilli(x).UTC(), nil
	case string:
		if t, ok := ParseHubSpotTime(x); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("invalid time %q", x)
	case nil:
		return time.Time{}, fmt.Errorf("time required")
	}
	return time.Time{}, fmt.Errorf("invalid time value %v", v)
}

// Millis formats t as the epoch-millisecond string HubSpot writes expect.
func Millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }
