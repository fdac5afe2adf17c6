package handler

import (
	"errors"
	"net/http"

	"cartag/backend/internal/emergency"
	"cartag/backend/internal/models"
	"cartag/backend/internal/relay"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StageSubscriber is the slice of storage the websocket stream needs. The
// stop function releases the subscription and closes the event channel.
type StageSubscriber interface {
	SubscribeStageEvents(sessionID string) (<-chan models.StageEvent, func())
}

// Handler exposes the public, signature-gated HTTP surface.
type Handler struct {
	Relay     *relay.Service
	Emergency *emergency.Orchestrator
	Streams   StageSubscriber
	Logger    *zap.SugaredLogger
}

func NewHandler(r *relay.Service, o *emergency.Orchestrator, streams StageSubscriber, logger *zap.SugaredLogger) *Handler {
	return &Handler{Relay: r, Emergency: o, Streams: streams, Logger: logger}
}

// writeError maps the gateway error taxonomy to HTTP responses. Anonymous
// callers get plain-language reasons, never provider internals.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, relay.ErrInvalidSignature):
		status = http.StatusForbidden
	case errors.Is(err, relay.ErrVehicleUnreachable):
		status = http.StatusNotFound
	case errors.Is(err, relay.ErrCommModeDisallowed):
		status = http.StatusForbidden
	case errors.Is(err, relay.ErrCallerBlocked):
		status = http.StatusForbidden
	case errors.Is(err, relay.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, relay.ErrCallerRateLimited), errors.Is(err, relay.ErrVehicleRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, relay.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, relay.ErrTokenInvalidOrUsed):
		status = http.StatusNotFound
	case errors.Is(err, relay.ErrTokenExpired):
		status = http.StatusGone
	case errors.Is(err, relay.ErrNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
