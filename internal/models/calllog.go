package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interaction kinds.
const (
	KindMessage   = "message"
	KindCall      = "call"
	KindEmergency = "emergency"
)

// Call statuses reported by the telephony provider. A log's status stays
// nil until a call is actually placed.
const (
	CallStatusInitiated = "initiated"
	CallStatusCompleted = "completed"
	CallStatusNoAnswer  = "no-answer"
	CallStatusBusy      = "busy"
	CallStatusFailed    = "failed"
)

// Fallback message urgencies.
const (
	UrgencyNormal    = "normal"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"
)

// IsTerminalCallStatus reports whether a provider status ends the call's
// state machine. Everything except "initiated" is terminal.
func IsTerminalCallStatus(status string) bool {
	switch status {
	case CallStatusCompleted, CallStatusNoAnswer, CallStatusBusy, CallStatusFailed:
		return true
	}
	return false
}

// IsMissedCallStatus reports whether a terminal status means the owner
// never picked up.
func IsMissedCallStatus(status string) bool {
	switch status {
	case CallStatusNoAnswer, CallStatusBusy, CallStatusFailed:
		return true
	}
	return false
}

// CallLog is one interaction against a vehicle: a relayed message, a masked
// call, or an emergency escalation attempt. Logs are never deleted; caller
// identifiers are stripped when the owning account is removed.
type CallLog struct {
	ID        string `gorm:"primaryKey" json:"id"`
	VehicleID string `gorm:"type:text;not null;index" json:"vehicle_id"`
	Kind      string `gorm:"type:text;not null" json:"kind"`
	// CallerHash is an opaque digest of the caller's phone, empty for
	// anonymized or phone-less interactions.
	CallerHash string `gorm:"type:text;index" json:"-"`

	// Message fields.
	TemplateID string `gorm:"type:text" json:"template_id,omitempty"`
	Text       string `gorm:"type:text" json:"text,omitempty"`

	// Call fields. ProviderCallID keys asynchronous provider callbacks.
	ProviderCallID *string `gorm:"uniqueIndex" json:"provider_call_id,omitempty"`
	Status         *string `gorm:"type:text;index" json:"status,omitempty"`
	DurationSec    *int    `json:"duration_sec,omitempty"`

	// Fallback escrow fields, populated only after a missed call.
	FallbackToken     *string    `gorm:"uniqueIndex" json:"-"`
	FallbackExpiresAt *time.Time `json:"-"`
	FallbackUsed      bool       `gorm:"not null;default:false" json:"-"`
	FallbackMessage   string     `gorm:"type:text" json:"fallback_message,omitempty"`
	FallbackUrgency   string     `gorm:"type:text" json:"fallback_urgency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook generating the log UUID if unset.
func (l *CallLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}

// FallbackOpen reports whether the log carries a fallback token that can
// still be redeemed at the given instant.
func (l *CallLog) FallbackOpen(now time.Time) bool {
	return l.FallbackToken != nil && !l.FallbackUsed &&
		l.FallbackExpiresAt != nil && l.FallbackExpiresAt.After(now)
}
