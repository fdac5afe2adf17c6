package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/storage"
)

// SubmitFallbackMessage redeems a missed-call token for one structured
// message. The token lookup and the single-use flip happen in one atomic
// storage operation, so concurrent redemptions of the same token cannot
// both succeed.
func (s *Service) SubmitFallbackMessage(vehicleID, token, text, urgency string) error {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > config.MaxFallbackMessageLen {
		return fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidInput, config.MaxFallbackMessageLen)
	}

	switch urgency {
	case models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyEmergency:
	default:
		urgency = models.UrgencyUrgent
	}

	log, result, err := s.Store.RedeemFallbackToken(vehicleID, token, text, urgency, s.Clock.Now())
	if err != nil {
		return err
	}
	switch result {
	case storage.RedeemNotFound:
		return ErrTokenInvalidOrUsed
	case storage.RedeemExpired:
		return ErrTokenExpired
	}

	vehicle, err := s.Store.GetVehicle(log.VehicleID)
	if err != nil {
		s.Logger.Errorf("Fallback alert skipped, vehicle %s lookup failed: %v", log.VehicleID, err)
		return nil
	}
	s.Notifier.Notify(vehicle.AccountID, models.Notification{
		Type:      config.NotifyFallbackMessage,
		Title:     fmt.Sprintf("Message from a missed caller (%s)", urgency),
		Body:      text,
		VehicleID: vehicle.ID,
	})

	return nil
}
