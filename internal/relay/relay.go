// Package relay is the scan-facing core of the gateway: it validates
// signed requests, enforces per-vehicle communication modes, places masked
// calls, and logs every interaction.
package relay

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/notify"
	"cartag/backend/internal/phones"
	"cartag/backend/internal/qrsign"
	"cartag/backend/internal/ratelimit"
	"cartag/backend/internal/storage"
	"cartag/backend/internal/telephony"
	"cartag/backend/internal/templates"

	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ValidPhone reports whether a caller-supplied phone number is plausibly
// dialable.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Service wires the relay's collaborators together.
type Service struct {
	Store    storage.Storage
	Signer   *qrsign.Signer
	Limiter  ratelimit.Limiter
	Gateway  telephony.Gateway
	Hub      *telephony.StatusHub
	Notifier notify.Notifier
	Phones   phones.Resolver
	Catalog  *templates.Catalog
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
}

// ScanResult is what a scanning client sees after resolving a QR link.
type ScanResult struct {
	VehicleID   string `json:"vehicle_id"`
	PlateNumber string `json:"plate_number,omitempty"`
	CommMode    string `json:"comm_mode,omitempty"`
	Expired     bool   `json:"expired"`
}

// SendMessageRequest carries one relayed message.
type SendMessageRequest struct {
	VehicleID   string
	Signature   string
	SenderPhone string
	TemplateID  string
	CustomText  string
}

// PlaceCallRequest carries one masked-call attempt.
type PlaceCallRequest struct {
	VehicleID   string
	Signature   string
	CallerPhone string
}

// PlaceCallResult identifies the created interaction.
type PlaceCallResult struct {
	InteractionID  string `json:"interaction_id"`
	ProviderCallID string `json:"provider_call_id"`
}

// CallStatusResult is the poll answer for one call.
type CallStatusResult struct {
	Status        string  `json:"status"`
	DurationSec   *int    `json:"duration_sec,omitempty"`
	FallbackToken *string `json:"fallback_token,omitempty"`
}

// gate verifies the signature and loads a reachable vehicle. It is the
// entry check for every signature-gated operation except ResolveScan,
// which reports expiry instead of failing.
func (s *Service) gate(vehicleID, signature string) (*models.Vehicle, error) {
	if !s.Signer.Verify(vehicleID, signature) {
		return nil, ErrInvalidSignature
	}

	vehicle, err := s.Store.GetVehicle(vehicleID)
	if err != nil {
		return nil, ErrVehicleUnreachable
	}
	if !vehicle.Reachable(s.Clock.Now()) {
		return nil, ErrVehicleUnreachable
	}
	return vehicle, nil
}

// ResolveScan answers the first request after a QR scan. A verified but
// lapsed vehicle yields an expired flag rather than an error so the client
// can show a meaningful page.
func (s *Service) ResolveScan(vehicleID, signature string) (*ScanResult, error) {
	if !s.Signer.Verify(vehicleID, signature) {
		return nil, ErrInvalidSignature
	}

	vehicle, err := s.Store.GetVehicle(vehicleID)
	if err != nil || vehicle.Status != models.VehicleStatusVerified {
		return nil, ErrVehicleUnreachable
	}

	if vehicle.Expired(s.Clock.Now()) {
		return &ScanResult{VehicleID: vehicle.ID, Expired: true}, nil
	}

	return &ScanResult{
		VehicleID:   vehicle.ID,
		PlateNumber: vehicle.PlateNumber,
		CommMode:    vehicle.CommMode,
	}, nil
}

// Templates lists the message catalog for a valid scan.
func (s *Service) Templates(vehicleID, signature string) ([]models.MessageTemplate, error) {
	if _, err := s.gate(vehicleID, signature); err != nil {
		return nil, err
	}
	return s.Catalog.List(), nil
}

// SendMessage relays one canned or custom message to the owner.
func (s *Service) SendMessage(req SendMessageRequest) (string, error) {
	vehicle, err := s.gate(req.VehicleID, req.Signature)
	if err != nil {
		return "", err
	}
	if vehicle.CommMode == models.CommModeSilent {
		return "", ErrCommModeDisallowed
	}

	text := strings.TrimSpace(req.CustomText)
	var template *models.MessageTemplate
	if text == "" {
		t, ok := s.Catalog.Get(req.TemplateID)
		if !ok {
			return "", ErrInvalidInput
		}
		template = &t
	}
	if utf8.RuneCountInString(text) > config.MaxCustomMessageLen {
		return "", ErrInvalidInput
	}

	var callerHash string
	if req.SenderPhone != "" {
		callerHash = phones.Hash(req.SenderPhone)
		if err := s.rejectBlocked(callerHash); err != nil {
			return "", err
		}
	}

	log := &models.CallLog{
		VehicleID:  vehicle.ID,
		Kind:       models.KindMessage,
		CallerHash: callerHash,
		Text:       text,
	}
	if template != nil {
		log.TemplateID = template.ID
	}
	if err := s.Store.CreateCallLog(log); err != nil {
		return "", err
	}

	preview := text
	if preview == "" && template != nil {
		preview = template.Text
	}
	if preview == "" {
		preview = "Someone left a message about your car."
	}
	s.Notifier.Notify(vehicle.AccountID, models.Notification{
		Type:      config.NotifyMessageReceived,
		Title:     "New message about your car",
		Body:      preview,
		VehicleID: vehicle.ID,
	})

	return log.ID, nil
}

// PlaceCall runs the full call path: gating, rate limiting, provider
// invocation, interaction logging. A rejected request leaves no record.
func (s *Service) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error) {
	vehicle, err := s.gate(req.VehicleID, req.Signature)
	if err != nil {
		return nil, err
	}
	if vehicle.CommMode != models.CommModeAll {
		return nil, ErrCommModeDisallowed
	}

	if !ValidPhone(req.CallerPhone) {
		return nil, fmt.Errorf("%w: caller phone format", ErrInvalidInput)
	}

	callerHash := phones.Hash(req.CallerPhone)
	if err := s.rejectBlocked(callerHash); err != nil {
		return nil, err
	}

	if !s.Limiter.CheckCallerLimit(callerHash, vehicle.ID) {
		return nil, ErrCallerRateLimited
	}
	if !s.Limiter.CheckVehicleLimit(vehicle.ID) {
		return nil, ErrVehicleRateLimited
	}

	account, err := s.Store.GetAccount(vehicle.AccountID)
	if err != nil {
		return nil, ErrVehicleUnreachable
	}
	ownerPhone, err := s.Phones.ResolveOwnerPhone(account)
	if err != nil {
		s.Logger.Errorf("Failed to resolve owner phone for vehicle %s: %v", vehicle.ID, err)
		return nil, ErrProviderUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, config.ProviderTimeout)
	defer cancel()

	callID, err := s.Gateway.InitiateCall(callCtx, req.CallerPhone, ownerPhone)
	if err != nil {
		// Provider detail stays in the logs, never in the response.
		s.Logger.Errorf("Provider call failed for vehicle %s: %v", vehicle.ID, err)
		return nil, ErrProviderUnavailable
	}

	status := models.CallStatusInitiated
	log := &models.CallLog{
		VehicleID:      vehicle.ID,
		Kind:           models.KindCall,
		CallerHash:     callerHash,
		ProviderCallID: &callID,
		Status:         &status,
	}
	if err := s.Store.CreateCallLog(log); err != nil {
		return nil, err
	}

	return &PlaceCallResult{InteractionID: log.ID, ProviderCallID: callID}, nil
}

// CallStatus answers the scanning client's poll. While the provider has not
// reported back, the status reads "ringing"; once a fallback token exists
// and is still redeemable it is exposed so the caller can leave a message.
func (s *Service) CallStatus(vehicleID, interactionID string) (*CallStatusResult, error) {
	log, err := s.Store.GetCallLogForVehicle(vehicleID, interactionID)
	if err != nil {
		return nil, ErrNotFound
	}

	result := &CallStatusResult{Status: "ringing"}
	if log.Status != nil && *log.Status != models.CallStatusInitiated {
		result.Status = *log.Status
		result.DurationSec = log.DurationSec
	}
	if log.FallbackOpen(s.Clock.Now()) {
		result.FallbackToken = log.FallbackToken
	}
	return result, nil
}

func (s *Service) rejectBlocked(callerHash string) error {
	blocked, err := s.Store.IsCallerBlocked(callerHash)
	if err != nil {
		// The block list is advisory; a Redis outage must not take the
		// relay down with it.
		s.Logger.Errorf("Block list check failed: %v", err)
		return nil
	}
	if blocked {
		return ErrCallerBlocked
	}
	return nil
}
