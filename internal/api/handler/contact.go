package handler

import (
	"net/http"

	"cartag/backend/internal/relay"

	"github.com/gin-gonic/gin"
)

type sendMessageBody struct {
	Sig         string `json:"sig" binding:"required"`
	SenderPhone string `json:"sender_phone"`
	TemplateID  string `json:"template_id"`
	CustomText  string `json:"custom_text"`
}

// SendMessage handles POST /v/:vehicleId/message
func (h *Handler) SendMessage(c *gin.Context) {
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, relay.ErrInvalidInput)
		return
	}

	logID, err := h.Relay.SendMessage(relay.SendMessageRequest{
		VehicleID:   c.Param("vehicleId"),
		Signature:   body.Sig,
		SenderPhone: body.SenderPhone,
		TemplateID:  body.TemplateID,
		CustomText:  body.CustomText,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"interaction_id": logID})
}

type placeCallBody struct {
	Sig         string `json:"sig" binding:"required"`
	CallerPhone string `json:"caller_phone" binding:"required"`
}

// PlaceCall handles POST /v/:vehicleId/call
func (h *Handler) PlaceCall(c *gin.Context) {
	var body placeCallBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, relay.ErrInvalidInput)
		return
	}

	result, err := h.Relay.PlaceCall(c.Request.Context(), relay.PlaceCallRequest{
		VehicleID:   c.Param("vehicleId"),
		Signature:   body.Sig,
		CallerPhone: body.CallerPhone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CallStatus handles GET /v/:vehicleId/call-status/:interactionId
func (h *Handler) CallStatus(c *gin.Context) {
	result, err := h.Relay.CallStatus(c.Param("vehicleId"), c.Param("interactionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type fallbackMessageBody struct {
	FallbackToken string `json:"fallback_token" binding:"required"`
	Message       string `json:"message" binding:"required"`
	Urgency       string `json:"urgency"`
}

// SubmitFallbackMessage handles POST /v/:vehicleId/fallback-message
func (h *Handler) SubmitFallbackMessage(c *gin.Context) {
	var body fallbackMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, relay.ErrInvalidInput)
		return
	}

	err := h.Relay.SubmitFallbackMessage(c.Param("vehicleId"), body.FallbackToken, body.Message, body.Urgency)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}
