package app

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/events"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
)

// POST /api/hubspot/deals/create
func (a *App) CreateDealHandler(c *gin.Context) {
	var req createDealReq
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.DealName) == "" {
		badRequest(c, "dealname is required")
		return
	}
	stage := domain.DealAppointmentScheduled
	if req.DealStage != "" {
		st, err := domain.ParseDealStage(req.DealStage)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		stage = st
	}
	props := map[string]string{
		views.PropDealName:  strings.TrimSpace(req.DealName),
		views.PropDealStage: string(stage),
	}
	pipeline := req.Pipeline
	if pipeline == "" {
		pipeline = "default"
	}
	props[views.PropDealPipeline] = pipeline
	if req.Amount != "" {
		props[views.PropDealAmount] = req.Amount
	}
	if owner := ownerOr(c, req.OwnerID); owner != "" {
		props[views.PropOwnerID] = owner
	}

	ctx := c.Request.Context()
	deal, err := a.crm(c).CreateObject(ctx, hubspot.ObjectDeals, props,
		hubspot.Assoc(req.CompanyID, hubspot.AssocDealToCompany),
		hubspot.Assoc(req.ContactID, hubspot.AssocDealToContact),
	)
	if err != nil {
		upstreamError(c, "deals", "Failed to create deal", err)
		return
	}
	if req.MeetingID != "" {
		if err := a.crm(c).AssociateDefault(ctx, hubspot.ObjectMeetings, req.MeetingID, hubspot.ObjectDeals, deal.ID); err != nil {
			log.Printf("⚠️ [deals] link deal %s to meeting %s: %v", deal.ID, req.MeetingID, err)
		} else {
			a.Meetings.Invalidate(ctx)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "deal": toDeal(*deal)})
}

// moveDeal checks and applies a stage change and publishes it. On failure it
// has already answered the request.
func (a *App) moveDeal(c *gin.Context, next domain.DealStage, reason string, extra map[string]string) bool {
	ctx := c.Request.Context()
	id := c.Param("id")
	cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectDeals, id, []string{views.PropDealStage}, nil)
	if err != nil {
		if errors.Is(err, hubspot.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found", "details": errorDetails(err)})
			return false
		}
		upstreamError(c, "deals", "Failed to load deal", err)
		return false
	}
	prev, err := domain.ValidateDealTransition(cur.Prop(views.PropDealStage), next)
	if err != nil {
		transitionError(c, "deals", err)
		return false
	}
	props := map[string]string{views.PropDealStage: string(next)}
	for k, v := range extra {
		props[k] = v
	}
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectDeals, id, props); err != nil {
		upstreamError(c, "deals", "Failed to update deal", err)
		return false
	}
	a.Meetings.Invalidate(ctx)
	events.Emit(ctx, a.Events, events.Event{
		Kind: events.KindDealStage, ObjectID: id,
		From: string(prev), To: string(next), Reason: reason, At: a.Now().UTC(),
	})
	log.Printf("💼 [deals] %s %s → %s", id, prev, next)
	return true
}

// PATCH /api/deal/:id/close-lost
func (a *App) CloseLostHandler(c *gin.Context) {
	var req closeLostReq
	if !bindJSON(c, &req) {
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		badRequest(c, "Closed lost reason is required")
		return
	}
	now := a.Now()
	props := map[string]string{
		views.PropDealLostReason: reason,
		views.PropDealCloseDate:  domain.Millis(now),
	}
	switch {
	case req.ReattemptDate != nil && req.ReattemptDate != "":
		t, err := domain.ParseClientTime(req.ReattemptDate)
		if err != nil {
			badRequest(c, "invalid reattemptDate")
			return
		}
		props[views.PropDealReattemptDate] = domain.Millis(domain.UTCMidnight(t))
	case req.ReattemptMonths > 0:
		props[views.PropDealReattemptDate] = domain.Millis(domain.UTCMidnight(now.AddDate(0, req.ReattemptMonths, 0)))
	}
	if !a.moveDeal(c, domain.DealClosedLost, reason, props) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id"), "dealstage": domain.DealClosedLost, "reattemptDate": props[views.PropDealReattemptDate]})
}

// PATCH /api/deal/:id/close-won
func (a *App) CloseWonHandler(c *gin.Context) {
	var req closeWonReq
	if !bindJSON(c, &req) {
		return
	}
	props := map[string]string{views.PropDealCloseDate: domain.Millis(a.Now())}
	if req.Amount != "" {
		if _, err := strconv.ParseFloat(req.Amount, 64); err != nil {
			badRequest(c, "invalid amount")
			return
		}
		props[views.PropDealAmount] = req.Amount
	}
	if !a.moveDeal(c, domain.DealClosedWon, "", props) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id"), "dealstage": domain.DealClosedWon})
}

// PATCH /api/deal/:id/in-negotiation
func (a *App) InNegotiationHandler(c *gin.Context) {
	if !a.moveDeal(c, domain.DealInNegotiation, "", nil) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id"), "dealstage": domain.DealInNegotiation})
}

// PATCH /api/deals/:id/hot-deal sets hot_deal, or flips it when the body
// carries no value.
func (a *App) HotDealHandler(c *gin.Context) {
	var req hotDealReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	var hot bool
	if req.HotDeal != nil {
		hot = *req.HotDeal
	} else {
		cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectDeals, id, []string{views.PropDealHot}, nil)
		if err != nil {
			upstreamError(c, "deals", "Failed to load deal", err)
			return
		}
		hot = cur.Prop(views.PropDealHot) != "true"
	}
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectDeals, id, map[string]string{views.PropDealHot: strconv.FormatBool(hot)}); err != nil {
		upstreamError(c, "deals", "Failed to update deal", err)
		return
	}
	a.Meetings.Invalidate(ctx)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "hotDeal": hot})
}
