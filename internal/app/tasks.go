package app

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
)

// POST /api/tasks
func (a *App) ListTasksHandler(c *gin.Context) {
	var req listTasksReq
	if !bindJSON(c, &req) {
		return
	}
	q := views.TaskQuery{OwnerID: ownerOr(c, req.OwnerID), Status: req.Status}
	if q.OwnerID == "" {
		badRequest(c, "ownerId is required")
		return
	}
	tasks, degraded, err := a.Tasks.List(c.Request.Context(), a.crm(c), q)
	if err != nil {
		upstreamError(c, "tasks", "Failed to fetch tasks", err)
		return
	}
	log.Printf("📋 [tasks] owner %s: %d tasks", q.OwnerID, len(tasks))
	c.JSON(http.StatusOK, withDegraded(gin.H{"results": tasks}, degraded))
}

// POST /api/hubspot/tasks/create
func (a *App) CreateTaskHandler(c *gin.Context) {
	var req createTaskReq
	if !bindJSON(c, &req) {
		return
	}
	due := a.Now()
	if req.DueDate != nil && req.DueDate != "" {
		t, err := domain.ParseClientTime(req.DueDate)
		if err != nil {
			badRequest(c, "invalid dueDate")
			return
		}
		due = t
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = domain.TaskSubject(domain.ParseTaskKind(req.Type), req.Label)
	}
	props := map[string]string{
		views.PropTaskSubject: subject,
		views.PropTaskStatus:  domain.TaskNotStarted,
		views.PropTaskType:    "TODO",
		views.PropTimestamp:   domain.Millis(due),
	}
	if req.Body != "" {
		props[views.PropTaskBody] = req.Body
	}
	if owner := ownerOr(c, req.OwnerID); owner != "" {
		props[views.PropOwnerID] = owner
	}
	task, err := a.crm(c).CreateObject(c.Request.Context(), hubspot.ObjectTasks, props,
		hubspot.Assoc(req.CompanyID, hubspot.AssocTaskToCompany),
		hubspot.Assoc(req.ContactID, hubspot.AssocTaskToContact),
		hubspot.Assoc(req.DealID, hubspot.AssocTaskToDeal),
	)
	if err != nil {
		upstreamError(c, "tasks", "Failed to create task", err)
		return
	}
	log.Printf("✅ [tasks] created %s %q", task.ID, subject)
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": task.ID, "subject": subject, "task": task})
}

// POST /api/hubspot/tasks/complete
func (a *App) CompleteTaskHandler(c *gin.Context) {
	var req completeTaskReq
	if !bindJSON(c, &req) {
		return
	}
	if req.TaskID == "" {
		badRequest(c, "taskId is required")
		return
	}
	ctx := c.Request.Context()
	props := map[string]string{views.PropTaskStatus: domain.TaskCompleted}
	if note := strings.TrimSpace(req.Note); note != "" {
		cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectTasks, req.TaskID, []string{views.PropTaskBody}, nil)
		if err != nil {
			taskLoadError(c, err)
			return
		}
		props[views.PropTaskBody] = domain.AppendNote(cur.Prop(views.PropTaskBody), note)
	}
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectTasks, req.TaskID, props); err != nil {
		upstreamError(c, "tasks", "Failed to complete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": req.TaskID, "status": domain.TaskCompleted})
}

// PATCH /api/tasks/:id/postpone moves the due date to dueDate, or by days
// from the current due date.
func (a *App) PostponeTaskHandler(c *gin.Context) {
	var req postponeTaskReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	var due time.Time
	switch {
	case req.DueDate != nil && req.DueDate != "":
		t, err := domain.ParseClientTime(req.DueDate)
		if err != nil {
			badRequest(c, "invalid dueDate")
			return
		}
		due = t
	case req.Days > 0:
		cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectTasks, id, []string{views.PropTimestamp}, nil)
		if err != nil {
			taskLoadError(c, err)
			return
		}
		from, ok := domain.ParseHubSpotTime(cur.Prop(views.PropTimestamp))
		if !ok || from.Before(a.Now()) {
			from = a.Now()
		}
		due = from.AddDate(0, 0, req.Days)
	default:
		badRequest(c, "dueDate or days is required")
		return
	}
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectTasks, id, map[string]string{views.PropTimestamp: domain.Millis(due)}); err != nil {
		upstreamError(c, "tasks", "Failed to postpone task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
		"dueDate": domain.Millis(due),
		"date":    domain.FormatGermanDate(due, a.Meetings.Loc),
	})
}

func taskLoadError(c *gin.Context, err error) {
	if errors.Is(err, hubspot.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found", "details": errorDetails(err)})
		return
	}
	upstreamError(c, "tasks", "Failed to load task", err)
}
