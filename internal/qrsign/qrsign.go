// Package qrsign mints and checks the HMAC proof embedded in QR-derived
// links. A valid signature proves the request targets a real, issued QR
// sticker; reachability itself is gated separately by vehicle status and
// qr_valid_until.
package qrsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer computes hex-encoded HMAC-SHA-256 signatures over vehicle
// identifiers with a server-held secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the signature for a vehicle identifier.
func (s *Signer) Sign(vehicleID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(vehicleID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL builds the scan URL printed into a QR sticker.
func (s *Signer) SignedURL(baseURL, vehicleID string) string {
	return fmt.Sprintf("%s/v/%s?sig=%s", baseURL, vehicleID, s.Sign(vehicleID))
}

// Verify recomputes the signature and compares in constant time. Malformed
// or non-hex input fails closed.
func (s *Signer) Verify(vehicleID, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(vehicleID))
	return hmac.Equal(mac.Sum(nil), got)
}
