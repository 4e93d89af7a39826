package app

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
)

// POST /api/notes/:id/append
func (a *App) AppendNoteHandler(c *gin.Context) {
	var req appendNoteReq
	if !bindJSON(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		badRequest(c, "text is required")
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	cur, err := a.crm(c).GetObject(ctx, hubspot.ObjectNotes, id, []string{views.PropNoteBody}, nil)
	if err != nil {
		if errors.Is(err, hubspot.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found", "details": errorDetails(err)})
			return
		}
		upstreamError(c, "notes", "Failed to load note", err)
		return
	}
	body := domain.AppendNote(cur.Prop(views.PropNoteBody), text)
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectNotes, id, map[string]string{views.PropNoteBody: body}); err != nil {
		upstreamError(c, "notes", "Failed to update note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "body": body})
}

// POST /api/company/note
func (a *App) CompanyNoteHandler(c *gin.Context) {
	var req companyNoteReq
	if !bindJSON(c, &req) {
		return
	}
	if req.CompanyID == "" || strings.TrimSpace(req.Note) == "" {
		badRequest(c, "companyId and note are required")
		return
	}
	s := sessionOf(c)
	body, err := a.Zapier.ForwardJSON(c.Request.Context(), a.Cfg.ZapierCompanyNoteWebhook, gin.H{
		"companyId": req.CompanyID,
		"meetingId": req.MeetingID,
		"note":      strings.TrimSpace(req.Note),
		"ownerId":   s.OwnerID,
		"userEmail": s.UserEmail,
		"timestamp": domain.Millis(a.Now()),
	})
	if err != nil {
		zapierError(c, "company-note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "zapierResponse": hookBody(body)})
}

// GET /api/identify-caller?caller_number= looks a phone number up for the
// telephony integration. It runs without a user session on the service token.
func (a *App) IdentifyCallerHandler(c *gin.Context) {
	number := strings.TrimSpace(c.Query("caller_number"))
	if number == "" {
		badRequest(c, "caller_number is required")
		return
	}
	variants := domain.PhoneVariants(number)
	if len(variants) == 0 {
		c.JSON(http.StatusOK, gin.H{"found": false, "variants": []string{}})
		return
	}
	ctx := c.Request.Context()
	crm := a.crm(c)
	page, err := crm.Search(ctx, hubspot.ObjectContacts, hubspot.SearchRequest{
		FilterGroups: phoneGroups(variants), Properties: views.ContactProps, Limit: 1,
	})
	if err != nil {
		upstreamError(c, "caller", "Failed to search contacts", err)
		return
	}
	if len(page.Results) == 0 {
		log.Printf("📞 [caller] %s: no match (%d variants)", number, len(variants))
		c.JSON(http.StatusOK, gin.H{"found": false, "variants": variants})
		return
	}

	contact := page.Results[0]
	var company *companyJSON
	links, err := crm.BatchReadAssociations(ctx, hubspot.ObjectContacts, hubspot.ObjectCompanies, []string{contact.ID})
	if err != nil {
		log.Printf("⚠️ [caller] company lookup for contact %s: %v", contact.ID, err)
	}
	for _, l := range links {
		if len(l.ToIDs) == 0 {
			continue
		}
		objs, err := crm.BatchRead(ctx, hubspot.ObjectCompanies, l.ToIDs[:1], views.CompanyProps)
		if err != nil {
			log.Printf("⚠️ [caller] read company %s: %v", l.ToIDs[0], err)
			break
		}
		if len(objs) > 0 {
			cj := toCompany(objs[0])
			company = &cj
		}
		break
	}
	log.Printf("📞 [caller] %s → contact %s", number, contact.ID)
	c.JSON(http.StatusOK, gin.H{
		"found":    true,
		"contact":  toContact(contact),
		"company":  company,
		"variants": variants,
	})
}
