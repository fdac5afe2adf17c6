package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // required for pq.StringArray
	"gorm.io/gorm"
)

// Account represents a vehicle owner. Identity verification, login and
// payments are handled by external services; the gateway only reads the
// fields it needs to reach the owner and filter notifications.
type Account struct {
	ID string `gorm:"primaryKey" json:"id"`
	// EncryptedPhone is the owner's real number, opaque at rest.
	// Resolved only when a masked call is placed.
	EncryptedPhone string `gorm:"type:text;not null"`
	// TelegramChatID is where owner notifications are delivered. Zero means
	// the owner never linked a chat.
	TelegramChatID int64 `gorm:"index"`
	// MutedCategories lists notification categories the owner opted out of.
	// Safety-critical categories are never consulted against this list.
	MutedCategories pq.StringArray `gorm:"type:text[]"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate is a GORM hook generating the account UUID if unset.
func (a *Account) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// HasMuted reports whether the owner muted the given category.
func (a *Account) HasMuted(category string) bool {
	for _, c := range a.MutedCategories {
		if c == category {
			return true
		}
	}
	return false
}
