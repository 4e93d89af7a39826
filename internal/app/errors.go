package app

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
)

// upstreamError answers 500 and echoes HubSpot's error body as details.
func upstreamError(c *gin.Context, tag, msg string, err error) {
	log.Printf("❌ [%s] %s: %v", tag, msg, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": errorDetails(err)})
}

func errorDetails(err error) any {
	var apiErr *hubspot.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Details()
	}
	return err.Error()
}

// transitionError answers 409 for a move the state machine forbids.
func transitionError(c *gin.Context, tag string, err error) {
	log.Printf("⚠️ [%s] %v", tag, err)
	status := http.StatusConflict
	if !errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, domain.ErrUnknownState) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// withDegraded adds the degraded flag when some associations could not be read.
func withDegraded(body gin.H, degraded bool) gin.H {
	if degraded {
		body["degraded"] = true
	}
	return body
}
