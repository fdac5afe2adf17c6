package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Emergency session stages, in escalation order.
const (
	StageCallingOwner    = "calling_owner"
	StageCallingContact1 = "calling_contact_1"
	StageCallingContact2 = "calling_contact_2"
	StageCallingContact3 = "calling_contact_3"
	StageConnected       = "connected"
	StageAllFailed       = "all_failed"
)

// Parties an emergency caller can end up connected to.
const (
	ConnectedToOwner = "owner"
)

// ConnectedToContact names the escalation target for the n-th contact
// (1-based).
func ConnectedToContact(n int) string {
	return fmt.Sprintf("contact_%d", n)
}

// StageCallingContact names the in-progress stage for the n-th contact
// (1-based).
func StageCallingContact(n int) string {
	return fmt.Sprintf("calling_contact_%d", n)
}

var stageRank = map[string]int{
	StageCallingOwner:    0,
	StageCallingContact1: 1,
	StageCallingContact2: 2,
	StageCallingContact3: 3,
	StageConnected:       4,
	StageAllFailed:       4,
}

// StageRank orders stages so transitions can be checked for monotonicity.
// Terminal stages share the highest rank. Unknown stages rank lowest.
func StageRank(stage string) int {
	if r, ok := stageRank[stage]; ok {
		return r
	}
	return -1
}

// StageTerminal reports whether a session stage is final.
func StageTerminal(stage string) bool {
	return stage == StageConnected || stage == StageAllFailed
}

// EmergencySession tracks one owner-then-contacts escalation. It is created
// by the trigger handler and mutated only by the orchestrator; the scanning
// client polls it until a terminal stage.
type EmergencySession struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	VehicleID   string  `gorm:"type:text;not null;index" json:"vehicle_id"`
	CallerPhone string  `gorm:"type:text;not null" json:"-"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Stage       string  `gorm:"type:text;not null" json:"stage"`
	ConnectedTo *string `gorm:"type:text" json:"connected_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook generating the session UUID if unset.
func (s *EmergencySession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}

// StageEvent is the payload published to Redis whenever a session advances,
// consumed by the websocket stage stream.
type StageEvent struct {
	SessionID   string `json:"session_id"`
	Stage       string `json:"stage"`
	ConnectedTo string `json:"connected_to,omitempty"`
}
