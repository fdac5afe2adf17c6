package handler

import (
	"net/http"
	"strconv"

	"cartag/backend/internal/models"
	"cartag/backend/internal/relay"

	"github.com/gin-gonic/gin"
)

// ProviderWebhook handles POST /webhooks/:provider, mapping each provider's
// payload shape onto the normalized call event before the state machine
// sees it.
func (h *Handler) ProviderWebhook(c *gin.Context) {
	var event models.ProviderCallEvent
	var ok bool

	switch c.Param("provider") {
	case "simulated":
		event, ok = parseSimulatedPayload(c)
	case "twilio":
		event, ok = parseTwilioPayload(c)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if !ok {
		writeError(c, relay.ErrInvalidInput)
		return
	}

	if err := h.Relay.HandleProviderEvent(event); err != nil {
		h.Logger.Errorf("Provider event for call %s rejected: %v", event.CallID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseSimulatedPayload(c *gin.Context) (models.ProviderCallEvent, bool) {
	var body struct {
		CallSID     string `json:"call_sid" binding:"required"`
		Status      string `json:"status" binding:"required"`
		DurationSec *int   `json:"duration"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return models.ProviderCallEvent{}, false
	}
	return models.ProviderCallEvent{CallID: body.CallSID, Status: body.Status, DurationSec: body.DurationSec}, true
}

// parseTwilioPayload maps Twilio's form-encoded status callback. Twilio
// statuses not in our vocabulary collapse onto "failed".
func parseTwilioPayload(c *gin.Context) (models.ProviderCallEvent, bool) {
	callSID := c.PostForm("CallSid")
	callStatus := c.PostForm("CallStatus")
	if callSID == "" || callStatus == "" {
		return models.ProviderCallEvent{}, false
	}

	var status string
	switch callStatus {
	case "completed":
		status = models.CallStatusCompleted
	case "no-answer":
		status = models.CallStatusNoAnswer
	case "busy":
		status = models.CallStatusBusy
	case "failed", "canceled":
		status = models.CallStatusFailed
	default:
		return models.ProviderCallEvent{}, false
	}

	event := models.ProviderCallEvent{CallID: callSID, Status: status}
	if raw := c.PostForm("CallDuration"); raw != "" {
		if dur, err := strconv.Atoi(raw); err == nil {
			event.DurationSec = &dur
		}
	}
	return event, true
}
