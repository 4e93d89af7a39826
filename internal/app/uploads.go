package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
	"salesdesk-service/internal/zapier"
)

// maxUploadMemory bounds the multipart form kept in memory; the rest spills
// to temp files.
const maxUploadMemory = 32 << 20

// POST /api/meeting/send-voice forwards the recorded memo and any other form
// fields to the voice webhook.
func (a *App) SendVoiceHandler(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, "No audio file uploaded.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		upstreamError(c, "voice", "Failed to read audio file", err)
		return
	}
	defer f.Close()

	fields := formFields(c)
	fields["userEmail"] = sessionOf(c).UserEmail
	fields["ownerId"] = ownerOr(c, fields["ownerId"])

	body, err := a.Zapier.ForwardMultipart(c.Request.Context(), a.Cfg.ZapierVoiceWebhook, fields, zapier.File{
		Field:       "audio",
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		zapierError(c, "voice", err)
		return
	}
	log.Printf("🎙️ [voice] forwarded %s (%d bytes) for meeting %s", fh.Filename, fh.Size, fields["meetingId"])
	c.JSON(http.StatusOK, gin.H{"success": true, "zapierResponse": hookBody(body)})
}

// POST /api/meeting/:id/upload-contract stores the file in HubSpot,
// attaches it to the meeting's deal through a note and flags the deal.
func (a *App) UploadContractHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded.")
		return
	}
	ctx := c.Request.Context()
	meetingID := c.Param("id")
	dealID := strings.TrimSpace(c.PostForm("dealId"))
	companyID := strings.TrimSpace(c.PostForm("companyId"))

	var contactID string
	m, err := a.crm(c).GetObject(ctx, hubspot.ObjectMeetings, meetingID, nil,
		[]string{hubspot.ObjectDeals, hubspot.ObjectCompanies, hubspot.ObjectContacts})
	if err != nil {
		// Without the meeting the form's dealId is all there is to go on.
		log.Printf("⚠️ [contracts] load meeting %s: %v", meetingID, err)
	} else {
		if dealID == "" {
			dealID = firstID(m.AssociatedIDs(hubspot.ObjectDeals))
		}
		if companyID == "" {
			companyID = firstID(m.AssociatedIDs(hubspot.ObjectCompanies))
		}
		contactID = firstID(m.AssociatedIDs(hubspot.ObjectContacts))
	}
	if dealID == "" {
		badRequest(c, "No associated deal found for this meeting.")
		return
	}

	file, err := fh.Open()
	if err != nil {
		upstreamError(c, "contracts", "Failed to read uploaded file", err)
		return
	}
	defer file.Close()
	stored, err := a.crm(c).UploadFile(ctx, fh.Filename, file, a.Cfg.ContractFolder)
	if err != nil {
		upstreamError(c, "contracts", "Failed to upload file to HubSpot", err)
		return
	}

	note, err := a.crm(c).CreateObject(ctx, hubspot.ObjectNotes, map[string]string{
		views.PropNoteBody:        domain.ContractNotePrefix + " " + fh.Filename,
		views.PropTimestamp:       domain.Millis(a.Now()),
		views.PropNoteAttachments: stored.ID,
	},
		hubspot.Assoc(dealID, hubspot.AssocNoteToDeal),
		hubspot.Assoc(companyID, hubspot.AssocNoteToCompany),
		hubspot.Assoc(contactID, hubspot.AssocNoteToContact),
	)
	if err != nil {
		upstreamError(c, "contracts", "Failed to create contract note", err)
		return
	}
	if _, err := a.crm(c).UpdateObject(ctx, hubspot.ObjectDeals, dealID, map[string]string{
		views.PropDealContractUploaded: "true",
	}); err != nil {
		upstreamError(c, "contracts", "Failed to flag deal", err)
		return
	}
	a.Meetings.Invalidate(ctx)
	log.Printf("📎 [contracts] %s attached to deal %s (file %s, note %s)", fh.Filename, dealID, stored.ID, note.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "noteId": note.ID, "fileId": stored.ID, "dealId": dealID})
}

func firstID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// formFields flattens the non-file form values, first value wins.
func formFields(c *gin.Context) map[string]string {
	out := map[string]string{}
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return out
	}
	for k, vs := range form.Value {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

// hookBody returns the hook answer as JSON when it is JSON.
func hookBody(b []byte) any {
	var v any
	if len(b) > 0 && json.Unmarshal(b, &v) == nil {
		return v
	}
	return string(b)
}

func zapierError(c *gin.Context, tag string, err error) {
	if errors.Is(err, zapier.ErrNotConfigured) {
		log.Printf("❌ [%s] %v", tag, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook not configured"})
		return
	}
	log.Printf("❌ [%s] forward: %v", tag, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to forward to Zapier", "details": err.Error()})
}
