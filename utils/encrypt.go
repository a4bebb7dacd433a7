package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"Mazraaty/config"
)

var errInvalidCipherText = errors.New("invalid ciphertext payload")

// EncryptEndpoint seals a contact endpoint (phone number, push token) with
// AES-256-GCM for storage at rest. Output is base64(nonce || ciphertext).
func EncryptEndpoint(plain string) (string, error) {
	key := []byte(config.Cfg.EncryptionKey)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plain), nil)

	raw := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptEndpoint reverses EncryptEndpoint.
func DecryptEndpoint(encoded string) (string, error) {
	key := []byte(config.Cfg.EncryptionKey)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", errInvalidCipherText
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errInvalidCipherText
	}

	return string(plain), nil
}
