package telephony

import (
	"context"
	"time"

	"cartag/backend/internal/clock"
	"cartag/backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventSink receives the terminal status event a call eventually produces.
// In production this is fed by the provider webhook; the simulated gateway
// calls it directly after a scheduled delay.
type EventSink func(event models.ProviderCallEvent)

// SimulatedGateway stands in for the real provider in development and
// tests. Every call "rings" for a configured duration and then reports a
// configured terminal status through the same event path a webhook would.
type SimulatedGateway struct {
	Clock   clock.Clock
	Sink    EventSink
	Outcome string
	Logger  *zap.SugaredLogger

	// RingFor is how long a simulated call rings before its outcome fires.
	RingFor time.Duration
}

func NewSimulatedGateway(c clock.Clock, sink EventSink, outcome string, ringFor time.Duration, logger *zap.SugaredLogger) *SimulatedGateway {
	if outcome == "" {
		outcome = models.CallStatusNoAnswer
	}
	return &SimulatedGateway{
		Clock:   c,
		Sink:    sink,
		Outcome: outcome,
		RingFor: ringFor,
		Logger:  logger,
	}
}

func (g *SimulatedGateway) InitiateCall(ctx context.Context, callerPhone, targetPhone string) (string, error) {
	callID := "SIM-" + uuid.New().String()
	g.Logger.Infof("Simulated call %s placed (outcome %s in %s)", callID, g.Outcome, g.RingFor)

	go func() {
		<-g.Clock.After(g.RingFor)
		ev := models.ProviderCallEvent{CallID: callID, Status: g.Outcome}
		if g.Outcome == models.CallStatusCompleted {
			dur := int(g.RingFor.Seconds())
			ev.DurationSec = &dur
		}
		g.Sink(ev)
	}()

	return callID, nil
}
