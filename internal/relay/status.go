package relay

import (
	"errors"
	"fmt"

	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/storage"
	"cartag/backend/internal/telephony"

	"github.com/google/uuid"
)

// HandleProviderEvent advances a call's state machine on a provider status
// callback. Transitions are single-shot: once a call is terminal, repeated
// events for the same call ID are no-ops and re-fire nothing.
func (s *Service) HandleProviderEvent(ev models.ProviderCallEvent) error {
	if ev.CallID == "" || !models.IsTerminalCallStatus(ev.Status) {
		return fmt.Errorf("%w: unusable provider event %q/%q", ErrInvalidInput, ev.CallID, ev.Status)
	}

	log, transitioned, err := s.Store.FinalizeCallStatus(ev.CallID, ev.Status, ev.DurationSec)
	if errors.Is(err, storage.ErrNotFound) {
		// Either a bogus call ID, or an event that raced the call log's
		// creation. The 404 this maps to makes the provider re-deliver the
		// event, which closes the race; emergency attempts additionally
		// cap the damage with their ring timeout.
		return fmt.Errorf("%w: no call %q", ErrNotFound, ev.CallID)
	}
	if err != nil {
		return err
	}
	if !transitioned {
		s.Logger.Debugf("Duplicate provider event for call %s ignored", ev.CallID)
		return nil
	}

	// Wake anyone waiting on this call (the emergency chain walk).
	s.Hub.Resolve(ev.CallID, telephony.Outcome{Status: ev.Status, DurationSec: ev.DurationSec})

	// Completed calls need nothing further; the duration is already stored.
	if !models.IsMissedCallStatus(ev.Status) {
		return nil
	}

	// Emergency attempts are judged by the orchestrator; only public masked
	// calls earn a fallback token and a missed-call alert.
	if log.Kind != models.KindCall {
		return nil
	}

	token := uuid.New().String()
	expiresAt := s.Clock.Now().Add(config.FallbackTokenTTL)
	if err := s.Store.MintFallbackToken(log.ID, token, expiresAt); err != nil {
		return err
	}

	vehicle, err := s.Store.GetVehicle(log.VehicleID)
	if err != nil {
		s.Logger.Errorf("Missed-call alert skipped, vehicle %s lookup failed: %v", log.VehicleID, err)
		return nil
	}
	s.Notifier.Notify(vehicle.AccountID, models.Notification{
		Type:      config.NotifyMissedCall,
		Title:     "Missed call about your car",
		Body:      "Someone tried to reach you about your car and could not get through.",
		VehicleID: vehicle.ID,
	})

	return nil
}
