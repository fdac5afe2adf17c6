package phones

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"cartag/backend/internal/models"
)

// Vault is a Resolver over AES-GCM encrypted numbers with a 32-byte key.
type Vault struct {
	key []byte
}

func NewVault(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, errors.New("phone vault key must be 32 bytes")
	}
	return &Vault{key: key}, nil
}

func (v *Vault) ResolveOwnerPhone(acct *models.Account) (string, error) {
	return v.decrypt(acct.EncryptedPhone)
}

func (v *Vault) ResolveContactPhone(contact *models.EmergencyContact) (string, error) {
	return v.decrypt(contact.EncryptedPhone)
}

// Encrypt produces the stored form of a phone number: hex(nonce || sealed).
func (v *Vault) Encrypt(phone string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(phone), nil)
	return hex.EncodeToString(sealed), nil
}

func (v *Vault) decrypt(stored string) (string, error) {
	raw, err := hex.DecodeString(stored)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", errors.New("stored phone too short")
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.New("phone decryption failed (wrong key or tampered data)")
	}
	return string(plain), nil
}
