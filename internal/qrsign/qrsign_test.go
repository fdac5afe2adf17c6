package qrsign_test

import (
	"strings"
	"testing"

	"cartag/backend/internal/qrsign"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	signer := qrsign.NewSigner([]byte("test-secret"))

	for i := 0; i < 10; i++ {
		vehicleID := uuid.New().String()
		sig := signer.Sign(vehicleID)
		assert.True(t, signer.Verify(vehicleID, sig), "signature must verify for %s", vehicleID)
	}
}

func TestVerify_RejectsFlippedHexCharacter(t *testing.T) {
	signer := qrsign.NewSigner([]byte("test-secret"))
	vehicleID := uuid.New().String()
	sig := signer.Sign(vehicleID)

	// Flip every position in turn; no single-character change may verify.
	for i := 0; i < len(sig); i++ {
		flipped := []byte(sig)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		if string(flipped) == sig {
			continue
		}
		assert.False(t, signer.Verify(vehicleID, string(flipped)),
			"flipped signature at position %d must not verify", i)
	}
}

func TestVerify_MalformedSignatureFailsClosed(t *testing.T) {
	signer := qrsign.NewSigner([]byte("test-secret"))

	assert.False(t, signer.Verify("vehicle-1", ""))
	assert.False(t, signer.Verify("vehicle-1", "not-hex-at-all!"))
	assert.False(t, signer.Verify("vehicle-1", "zz"+strings.Repeat("00", 31)))
}

func TestVerify_WrongVehicleFails(t *testing.T) {
	signer := qrsign.NewSigner([]byte("test-secret"))
	sig := signer.Sign("vehicle-1")
	assert.False(t, signer.Verify("vehicle-2", sig))
}

func TestVerify_DifferentSecretFails(t *testing.T) {
	a := qrsign.NewSigner([]byte("secret-a"))
	b := qrsign.NewSigner([]byte("secret-b"))
	sig := a.Sign("vehicle-1")
	assert.False(t, b.Verify("vehicle-1", sig))
}

func TestSignedURL_ContainsSignature(t *testing.T) {
	signer := qrsign.NewSigner([]byte("test-secret"))
	url := signer.SignedURL("https://cartag.example", "vehicle-1")
	assert.Equal(t, "https://cartag.example/v/vehicle-1?sig="+signer.Sign("vehicle-1"), url)
}
