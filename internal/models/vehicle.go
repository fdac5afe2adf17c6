package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Communication modes an owner can set per vehicle.
const (
	CommModeAll         = "all"
	CommModeMessageOnly = "message_only"
	CommModeSilent      = "silent"
)

// Vehicle statuses assigned by the external verification flow.
const (
	VehicleStatusPending  = "pending"
	VehicleStatusVerified = "verified"
	VehicleStatusRejected = "rejected"
)

// Vehicle is a registered vehicle with a QR sticker. Registration and
// document verification mutate it elsewhere; the gateway treats it as
// read-only.
type Vehicle struct {
	ID          string `gorm:"primaryKey" json:"id"`
	AccountID   string `gorm:"type:text;not null;index" json:"account_id"`
	PlateNumber string `gorm:"type:text;not null" json:"plate_number"`
	Status      string `gorm:"type:text;not null;default:'pending'" json:"status"`
	CommMode    string `gorm:"type:text;not null;default:'all'" json:"comm_mode"`
	// QRValidUntil bounds reachability; it tracks the owner's plan and is
	// extended when the QR is reissued.
	QRValidUntil time.Time `json:"qr_valid_until"`

	// EmergencyContacts are walked in ascending priority during escalation.
	// Priority ties are broken by insertion order.
	EmergencyContacts []EmergencyContact `gorm:"foreignKey:VehicleID" json:"emergency_contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook generating the vehicle UUID if unset.
func (v *Vehicle) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return
}

// Reachable reports whether the vehicle may be contacted through the
// gateway: it must be verified and its QR unexpired.
func (v *Vehicle) Reachable(now time.Time) bool {
	return v.Status == VehicleStatusVerified && v.QRValidUntil.After(now)
}

// Expired reports whether an otherwise verified vehicle has lapsed.
func (v *Vehicle) Expired(now time.Time) bool {
	return v.Status == VehicleStatusVerified && !v.QRValidUntil.After(now)
}

// EmergencyContact is one entry in a vehicle's escalation chain.
type EmergencyContact struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	VehicleID string `gorm:"type:text;not null;index" json:"vehicle_id"`
	Label     string `gorm:"type:text;not null" json:"label"`
	// EncryptedPhone is opaque at rest, resolved only when a call is placed.
	EncryptedPhone string `gorm:"type:text;not null" json:"-"`
	Priority       int    `gorm:"not null;default:0" json:"priority"`
}
