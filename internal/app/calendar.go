package app

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/gcal"
)

// GET /api/calendar/events?start=&end= returns the rep's Google Calendar
// entries so the dashboard can show them next to HubSpot meetings. Without
// bounds it uses the same rolling window as the meeting list.
func (a *App) CalendarEventsHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	win := domain.RollingWindow(a.Now(), a.Meetings.Loc)
	if s := c.Query("start"); s != "" {
		t, err := domain.ParseClientTime(s)
		if err != nil {
			badRequest(c, "invalid start")
			return
		}
		win.Start = t
	}
	if e := c.Query("end"); e != "" {
		t, err := domain.ParseClientTime(e)
		if err != nil {
			badRequest(c, "invalid end")
			return
		}
		win.End = t
	}
	if !win.Start.Before(win.End) {
		badRequest(c, "start must be before end")
		return
	}

	list, err := a.Calendar.Events(c.Request.Context(), sessionOf(c).GoogleToken(), win.Start, win.End)
	if errors.Is(err, gcal.ErrNotConnected) {
		c.JSON(http.StatusConflict, gin.H{"error": "Google Calendar not connected"})
		return
	}
	if err != nil {
		log.Printf("❌ [gcal] events: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch calendar events", "details": err.Error()})
		return
	}
	if list == nil {
		list = []gcal.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": list, "count": len(list)})
}
