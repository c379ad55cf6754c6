package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const keyBytes = 16

// PrivateKeyEncrypter protects the private keys of leaked accounts at rest.
type PrivateKeyEncrypter interface {
	Encrypt(ctx context.Context, message, passphrase string) (string, error)
	Decrypt(ctx context.Context, encryptedMessage, passphrase string) (string, error)
}

// DefaultPrivateKeyEncrypter seals messages with AES-GCM under a key derived from the passphrase.
// The output is the base64 of nonce || ciphertext.
type DefaultPrivateKeyEncrypter struct{}

var _ PrivateKeyEncrypter = (*DefaultPrivateKeyEncrypter)(nil)

func (e *DefaultPrivateKeyEncrypter) Encrypt(ctx context.Context, message, passphrase string) (string, error) {
	gcmCipher, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcmCipher.NonceSize())
	lenRead, err := rand.Read(nonce)
	if err != nil {
		return "", fmt.Errorf("error while generating random nonce: %w", err)
	}
	if lenRead != gcmCipher.NonceSize() {
		return "", fmt.Errorf("length of generated nonce %d different from expected length %d", lenRead, gcmCipher.NonceSize())
	}

	cipheredText := gcmCipher.Seal(nonce, nonce, []byte(message), nil)
	return base64.StdEncoding.EncodeToString(cipheredText), nil
}

func (e *DefaultPrivateKeyEncrypter) Decrypt(ctx context.Context, encryptedMessage, passphrase string) (string, error) {
	gcmCipher, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}

	decodedMsg, err := base64.StdEncoding.DecodeString(encryptedMessage)
	if err != nil {
		return "", fmt.Errorf("decoding encrypted message: %w", err)
	}

	nonceSize := gcmCipher.NonceSize()
	if len(decodedMsg) < nonceSize {
		return "", fmt.Errorf("encrypted message is shorter than the nonce")
	}
	nonce, cipheredText := decodedMsg[:nonceSize], decodedMsg[nonceSize:]

	plainText, err := gcmCipher.Open(nil, nonce, cipheredText, nil)
	if err != nil {
		return "", fmt.Errorf("opening encrypted message: %w", err)
	}

	return string(plainText), nil
}

func newGCM(passphrase string) (cipher.AEAD, error) {
	passHash := sha256.Sum256([]byte(passphrase))

	block, err := aes.NewCipher(passHash[:keyBytes])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcmCipher, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcmCipher, nil
}
