package phones_test

import (
	"strings"
	"testing"

	"cartag/backend/internal/models"
	"cartag/backend/internal/phones"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte(strings.Repeat("k", 32))
}

func TestVault_RejectsBadKeyLength(t *testing.T) {
	_, err := phones.NewVault([]byte("too short"))
	assert.Error(t, err)
}

func TestVault_EncryptResolveRoundTrip(t *testing.T) {
	vault, err := phones.NewVault(testKey())
	require.NoError(t, err)

	stored, err := vault.Encrypt("+380501234567")
	require.NoError(t, err)
	assert.NotContains(t, stored, "380501234567", "stored form must not leak digits")

	acct := models.Account{EncryptedPhone: stored}
	phone, err := vault.ResolveOwnerPhone(&acct)
	require.NoError(t, err)
	assert.Equal(t, "+380501234567", phone)

	contact := models.EmergencyContact{EncryptedPhone: stored}
	phone, err = vault.ResolveContactPhone(&contact)
	require.NoError(t, err)
	assert.Equal(t, "+380501234567", phone)
}

func TestVault_TamperedCiphertextFails(t *testing.T) {
	vault, err := phones.NewVault(testKey())
	require.NoError(t, err)

	stored, err := vault.Encrypt("+380501234567")
	require.NoError(t, err)

	tampered := []byte(stored)
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}

	_, err = vault.ResolveOwnerPhone(&models.Account{EncryptedPhone: string(tampered)})
	assert.Error(t, err)
}

func TestVault_WrongKeyFails(t *testing.T) {
	vault, err := phones.NewVault(testKey())
	require.NoError(t, err)
	other, err := phones.NewVault([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	stored, err := vault.Encrypt("+380501234567")
	require.NoError(t, err)

	_, err = other.ResolveOwnerPhone(&models.Account{EncryptedPhone: stored})
	assert.Error(t, err)
}

func TestHash_StableAndOpaque(t *testing.T) {
	h := phones.Hash("+380501234567")
	assert.Equal(t, h, phones.Hash("+380501234567"))
	assert.Equal(t, h, phones.Hash("  +380501234567 "), "surrounding whitespace is ignored")
	assert.NotEqual(t, h, phones.Hash("+380501234568"))
	assert.Len(t, h, 64)
	assert.NotContains(t, h, "+")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***********67", phones.Mask("+380501234567"))
	assert.Equal(t, "***", phones.Mask("12"))
	assert.Equal(t, "***", phones.Mask(""))
}
