package app

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/events"
	"salesdesk-service/internal/gcal"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
)

// bindJSON decodes an optional JSON body; an empty body is not an error.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// ownerOr falls back to the logged-in rep's owner id.
func ownerOr(c *gin.Context, owner string) string {
	if strings.TrimSpace(owner) != "" {
		return strings.TrimSpace(owner)
	}
	return sessionOf(c).OwnerID
}

// POST /api/meetings
func (a *App) ListMeetingsHandler(c *gin.Context) {
	var req listMeetingsReq
	if !bindJSON(c, &req) {
		return
	}
	q := views.MeetingQuery{OwnerID: ownerOr(c, req.OwnerID), Light: req.LightMode, ForceRefresh: req.ForceRefresh}
	if q.OwnerID == "" {
		badRequest(c, "ownerId is required")
		return
	}
	if req.StartTime != nil && req.EndTime != nil {
		start, err := domain.ParseClientTime(req.StartTime)
		if err != nil {
			badRequest(c, "invalid startTime")
			return
		}
		end, err := domain.ParseClientTime(req.EndTime)
		if err != nil {
			badRequest(c, "invalid endTime")
			return
		}
		q.Start, q.End = start, end
	}

	l, err := a.Meetings.List(c.Request.Context(), a.crm(c), q)
	if err != nil {
		upstreamError(c, "meetings", "Failed to fetch meetings", err)
		return
	}
	log.Printf("📅 [meetings] owner %s: %d meetings (cached=%v light=%v)", q.OwnerID, len(l.Meetings)+len(l.Light), l.FromCache, q.Light)
	c.JSON(http.StatusOK, withDegraded(gin.H{"results": l.Results()}, l.Degraded))
}

// GET /api/meeting/:id
func (a *App) GetMeetingHandler(c *gin.Context) {
	v, degraded, err := a.Meetings.Get(c.Request.Context(), a.crm(c), c.Param("id"))
	if err != nil {
		log.Printf("❌ [meetings] get %s: %v", c.Param("id"), err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found", "details": errorDetails(err)})
		return
	}
	c.JSON(http.StatusOK, struct {
		*views.MeetingView
		Degraded bool `json:"degraded,omitempty"`
	}{v, degraded})
}

// POST /api/meetings/by-date
func (a *App) MeetingsByDateHandler(c *gin.Context) {
	var req meetingsByDateReq
	if !bindJSON(c, &req) {
		return
	}
	owner := ownerOr(c, req.OwnerID)
	if owner == "" || req.Date == "" {
		badRequest(c, "ownerId and date are required")
		return
	}
	win, err := domain.DayWindow(req.Date, a.Meetings.Loc)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	list, degraded, err := a.Meetings.ByDate(c.Request.Context(), a.crm(c), owner, win)
	if err != nil {
		upstreamError(c, "meetings", "Failed to fetch meetings", err)
		return
	}
	c.JSON(http.StatusOK, withDegraded(gin.H{"results": list}, degraded))
}

// POST /api/meetings/create
func (a *App) CreateMeetingHandler(c *gin.Context) {
	var req createMeetingReq
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.StartTime == nil {
		badRequest(c, "title and startTime are required")
		return
	}
	start, err := domain.ParseClientTime(req.StartTime)
	if err != nil {
		badRequest(c, "invalid startTime")
		return
	}
	end := start.Add(time.Hour)
	if req.EndTime != nil {
		if end, err = domain.ParseClientTime(req.EndTime); err != nil {
			badRequest(c, "invalid endTime")
			return
		}
	}
	if !start.Before(end) {
		badRequest(c, "startTime must be before endTime")
		return
	}

	props := map[string]string{
		views.PropMeetingTitle:   req.Title,
		views.PropMeetingStart:   domain.Millis(start),
		views.PropMeetingEnd:     domain.Millis(end),
		views.PropTimestamp:      domain.Millis(start),
		views.PropMeetingOutcome: string(domain.MeetingScheduled),
	}
	if req.Location != "" {
		props[views.PropMeetingLocation] = req.Location
	}
	if req.Notes != "" {
		props[views.PropMeetingNotes] = req.Notes
	}
	if owner := ownerOr(c, req.OwnerID); owner != "" {
		props[views.PropOwnerID] = owner
	}

	ctx := c.Request.Context()
	m, err := a.crm(c).CreateObject(ctx, hubspot.ObjectMeetings, props,
		hubspot.Assoc(req.CompanyID, hubspot.AssocMeetingToCompany),
		hubspot.Assoc(req.ContactID, hubspot.AssocMeetingToContact),
		hubspot.Assoc(req.DealID, hubspot.AssocMeetingToDeal),
	)
	if err != nil {
		upstreamError(c, "meetings", "Failed to create meeting", err)
		return
	}
	a.Meetings.Invalidate(ctx)
	log.Printf("✅ [meetings] created %s %q", m.ID, req.Title)
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": m.ID, "meeting": m})
}

var meetingStateProps = []string{
	views.PropMeetingStart, views.PropMeetingEnd, views.PropMeetingOutcome, views.PropMeetingNotes,
}

// moveMeeting checks the status change against the current outcome, applies
// props(current) plus the new outcome, and publishes the transition. On
// failure it has already answered the request.
func (a *App) moveMeeting(c *gin.Context, next domain.MeetingStatus, reason string, props func(cur *hubspot.Object) map[string]string) (*hubspot.Object, bool) {
	ctx := c.Request.Context()
	id := c.Param("id")
	cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectMeetings, id, meetingStateProps, nil)
	if err != nil {
		log.Printf("❌ [meetings] load %s: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found", "details": errorDetails(err)})
		return nil, false
	}
	prev, err := domain.ValidateMeetingTransition(cur.Prop(views.PropMeetingOutcome), next)
	if err != nil {
		transitionError(c, "meetings", err)
		return nil, false
	}

	update := map[string]string{}
	if props != nil {
		update = props(cur)
	}
	update[views.PropMeetingOutcome] = string(next)
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectMeetings, id, update); err != nil {
		upstreamError(c, "meetings", "Failed to update meeting", err)
		return nil, false
	}
	a.Meetings.Invalidate(ctx)
	events.Emit(ctx, a.Events, events.Event{
		Kind: events.KindMeetingStatus, ObjectID: id,
		From: string(prev), To: string(next), Reason: reason, At: a.Now().UTC(),
	})
	log.Printf("🔁 [meetings] %s %s → %s", id, prev, next)
	return cur, true
}

// PATCH /api/meetings/:id/reschedule
func (a *App) RescheduleMeetingHandler(c *gin.Context) {
	var req rescheduleReq
	if !bindJSON(c, &req) {
		return
	}
	if req.StartTime == nil {
		badRequest(c, "startTime is required")
		return
	}
	newStart, err := domain.ParseClientTime(req.StartTime)
	if err != nil {
		badRequest(c, "invalid startTime")
		return
	}
	var newEnd time.Time
	if req.EndTime != nil {
		if newEnd, err = domain.ParseClientTime(req.EndTime); err != nil {
			badRequest(c, "invalid endTime")
			return
		}
		if !newStart.Before(newEnd) {
			badRequest(c, "startTime must be before endTime")
			return
		}
	}

	var oldStart time.Time
	cur, ok := a.moveMeeting(c, domain.MeetingRescheduled, req.Reason, func(cur *hubspot.Object) map[string]string {
		oldStart, _ = domain.ParseHubSpotTime(cur.Prop(views.PropMeetingStart))
		if newEnd.IsZero() {
			newEnd = newStart.Add(time.Hour)
			if oldEnd, ok := domain.ParseHubSpotTime(cur.Prop(views.PropMeetingEnd)); ok && !oldStart.IsZero() && oldEnd.After(oldStart) {
				newEnd = newStart.Add(oldEnd.Sub(oldStart))
			}
		}
		return map[string]string{
			views.PropMeetingStart: domain.Millis(newStart),
			views.PropMeetingEnd:   domain.Millis(newEnd),
			views.PropTimestamp:    domain.Millis(newStart),
		}
	})
	if !ok {
		return
	}

	sync := gcal.SyncResult{Status: gcal.StatusSkipped}
	if !oldStart.IsZero() {
		sync = a.Calendar.Reschedule(c.Request.Context(), sessionOf(c).GoogleToken(), oldStart, newStart, newEnd)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"meeting": gin.H{
			"id":        cur.ID,
			"startTime": domain.Millis(newStart),
			"endTime":   domain.Millis(newEnd),
			"status":    domain.MeetingRescheduled,
		},
		"calendarSync": sync,
	})
}

// POST /api/meeting/:id/cancel
func (a *App) CancelMeetingHandler(c *gin.Context) {
	var req cancelMeetingReq
	if !bindJSON(c, &req) {
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		badRequest(c, "Cancellation reason is required")
		return
	}
	_, ok := a.moveMeeting(c, domain.MeetingCanceled, reason, func(cur *hubspot.Object) map[string]string {
		props := map[string]string{views.PropCancelReason: reason}
		if req.Notes != "" {
			props[views.PropMeetingNotes] = domain.AppendNote(cur.Prop(views.PropMeetingNotes), req.Notes)
		}
		return props
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id"), "status": domain.MeetingCanceled})
}

// POST /api/meeting/:id/mark-completed
func (a *App) MarkCompletedHandler(c *gin.Context) {
	var req completeMeetingReq
	if !bindJSON(c, &req) {
		return
	}
	_, ok := a.moveMeeting(c, domain.MeetingCompleted, "", func(cur *hubspot.Object) map[string]string {
		props := map[string]string{}
		if req.Notes != "" {
			props[views.PropMeetingNotes] = domain.AppendNote(cur.Prop(views.PropMeetingNotes), req.Notes)
		}
		return props
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id"), "status": domain.MeetingCompleted})
}
