package handler

import (
	"net/http"

	"cartag/backend/internal/models"
	"cartag/backend/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type emergencyBody struct {
	Sig         string `json:"sig" binding:"required"`
	CallerPhone string `json:"caller_phone" binding:"required"`
	Description string `json:"description"`
}

// TriggerEmergency handles POST /v/:vehicleId/emergency. It returns as soon
// as the session exists; the chain walk continues in the background.
func (h *Handler) TriggerEmergency(c *gin.Context) {
	var body emergencyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, relay.ErrInvalidInput)
		return
	}

	sessionID, err := h.Emergency.Trigger(c.Param("vehicleId"), body.Sig, body.CallerPhone, body.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

// EmergencyStatus handles GET /v/:vehicleId/emergency-status/:sessionId
func (h *Handler) EmergencyStatus(c *gin.Context) {
	session, err := h.Emergency.Status(c.Param("vehicleId"), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"stage": session.Stage}
	if session.ConnectedTo != nil {
		resp["connected_to"] = *session.ConnectedTo
	}
	c.JSON(http.StatusOK, resp)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The endpoint is already signature-gated upstream of the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEmergencyStages handles GET /v/:vehicleId/emergency-stream/:sessionId.
// It pushes stage transitions as they happen; polling stays authoritative.
func (h *Handler) StreamEmergencyStages(c *gin.Context) {
	session, err := h.Emergency.Status(c.Param("vehicleId"), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Errorf("Failed to upgrade stage stream: %v", err)
		return
	}
	defer conn.Close()

	// Subscribe before reading the snapshot, so a transition landing between
	// the two shows up on the channel instead of falling into a gap.
	events, stop := h.Streams.SubscribeStageEvents(session.ID)
	defer stop()

	if fresh, err := h.Emergency.Status(c.Param("vehicleId"), c.Param("sessionId")); err == nil {
		session = fresh
	}

	// Current state first, so a late subscriber is never behind.
	first := models.StageEvent{SessionID: session.ID, Stage: session.Stage}
	if session.ConnectedTo != nil {
		first.ConnectedTo = *session.ConnectedTo
	}
	if err := conn.WriteJSON(first); err != nil {
		return
	}
	if models.StageTerminal(session.Stage) {
		return
	}

	for event := range events {
		// Events the snapshot already covers would rewind the stream.
		if models.StageRank(event.Stage) < models.StageRank(session.Stage) || event.Stage == session.Stage {
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			return
		}
		if models.StageTerminal(event.Stage) {
			return
		}
	}
}
