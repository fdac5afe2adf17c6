// Package phones turns stored (encrypted) phone numbers back into dialable
// ones and produces the opaque/masked forms everything else logs. The
// at-rest scheme is deliberately contained here; the rest of the gateway
// only sees the Resolver interface.
package phones

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"cartag/backend/internal/models"
)

// Resolver resolves real phone numbers from their stored form.
type Resolver interface {
	ResolveOwnerPhone(acct *models.Account) (string, error)
	ResolveContactPhone(contact *models.EmergencyContact) (string, error)
}

// Hash returns the opaque digest of a caller phone stored on call logs and
// abuse reports. It is one-way; the gateway never needs the raw number back.
func Hash(phone string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(phone)))
	return hex.EncodeToString(sum[:])
}

// Mask renders a phone for display, keeping only the last two digits.
func Mask(phone string) string {
	if len(phone) <= 2 {
		return "***"
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}
