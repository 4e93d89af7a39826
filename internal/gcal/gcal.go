// Package gcal mirrors meeting reschedules onto the rep's Google Calendar.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"salesdesk-service/internal/config"
)

// Sync outcomes reported back to the caller of a reschedule.
const (
	StatusSynced   = "synced"
	StatusNotFound = "not_found"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// MatchTolerance is how far an event start may drift from the meeting's old start.
const MatchTolerance = time.Minute

// ErrNotConnected means the rep never granted calendar access.
var ErrNotConnected = errors.New("google calendar not connected")

type SyncResult struct {
	Status  string `json:"status"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Config returns the Google OAuth config, or nil when Google is not configured.
func Config(cfg config.Config) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// AuthURL asks for offline access so the session gets a refresh token.
func AuthURL(oc *oauth2.Config, state string) string {
	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

type Mirror struct {
	OAuth      *oauth2.Config
	CalendarID string
	// Options are appended to every calendar service; tests point the endpoint at a fake.
	Options []option.ClientOption
}

func NewMirror(oc *oauth2.Config) *Mirror {
	return &Mirror{OAuth: oc, CalendarID: "primary"}
}

func (m *Mirror) service(ctx context.Context, tok *oauth2.Token) (*calendar.Service, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(m.OAuth.Client(ctx, tok))}, m.Options...)
	return calendar.NewService(ctx, opts...)
}

// Reschedule finds the event that starts within MatchTolerance of oldStart
// and moves it to [newStart, newEnd]. It never returns an error; the result
// says what happened.
func (m *Mirror) Reschedule(ctx context.Context, tok *oauth2.Token, oldStart, newStart, newEnd time.Time) SyncResult {
	if m == nil || m.OAuth == nil || tok == nil {
		return SyncResult{Status: StatusSkipped}
	}
	srv, err := m.service(ctx, tok)
	if err != nil {
		return failed("create calendar service", err)
	}

	events, err := srv.Events.List(m.CalendarID).
		TimeMin(oldStart.Add(-MatchTolerance).Format(time.RFC3339)).
		TimeMax(oldStart.Add(MatchTolerance).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return failed("list calendar events", err)
	}

	var match *calendar.Event
	for _, item := range events.Items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		if d := start.Sub(oldStart); d >= -MatchTolerance && d <= MatchTolerance {
			match = item
			break
		}
	}
	if match == nil {
		log.Printf("⚠️ [gcal] no event near %s to reschedule", oldStart.Format(time.RFC3339))
		return SyncResult{Status: StatusNotFound}
	}

	patch := &calendar.Event{
		Start: &calendar.EventDateTime{DateTime: newStart.Format(time.RFC3339)},
		End:   &calendar.EventDateTime{DateTime: newEnd.Format(time.RFC3339)},
	}
	if _, err := srv.Events.Patch(m.CalendarID, match.Id, patch).Context(ctx).Do(); err != nil {
		res := failed("patch calendar event", err)
		res.EventID = match.Id
		return res
	}
	log.Printf("✅ [gcal] moved event %s to %s", match.Id, newStart.Format(time.RFC3339))
	return SyncResult{Status: StatusSynced, EventID: match.Id}
}

func failed(step string, err error) SyncResult {
	log.Printf("❌ [gcal] %s: %v", step, err)
	return SyncResult{Status: StatusFailed, Error: fmt.Sprintf("%s: %v", step, err)}
}

// Event is a calendar entry as the dashboard overlays it on HubSpot meetings.
type Event struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	AllDay    bool      `json:"allDay"`
}

// Events lists single events overlapping [from, to], ordered by start.
func (m *Mirror) Events(ctx context.Context, tok *oauth2.Token, from, to time.Time) ([]Event, error) {
	if m == nil || m.OAuth == nil || tok == nil {
		return nil, ErrNotConnected
	}
	srv, err := m.service(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	var out []Event
	err = srv.Events.List(m.CalendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				out = append(out, toEvent(item))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return out, nil
}

func toEvent(item *calendar.Event) Event {
	e := Event{ID: item.Id, Summary: item.Summary, Location: item.Location, Status: item.Status}
	e.StartTime, e.AllDay = eventTime(item.Start)
	e.EndTime, _ = eventTime(item.End)
	return e
}

// eventTime reads a timed or all-day boundary; the bool reports all-day.
func eventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t, false
	}
	t, _ := time.Parse("2006-01-02", dt.Date)
	return t, dt.Date != ""
}
