package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidAESKeySize  = errors.New("invalid AES key size")
	ErrInvalidValueFormat = errors.New("invalid value format, expecting base64 encoded nonce+ciphertext")
	ErrCiphertextTooShort = errors.New("ciphertext too short, cannot extract nonce")
	ErrDecryptionFailed   = errors.New("value decryption failed")
)

const (
	// AES-256 requires a 32-byte key.
	aes256KeyBytes = 32
	// GCM standard nonce size.
	gcmNonceSizeBytes = 12
)

func newGCM(aesKeyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(aesKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AES key from hex: %w", err)
	}
	if len(key) != aes256KeyBytes {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAESKeySize, aes256KeyBytes, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return aesgcm, nil
}

// EncryptAESGCM encrypts plaintext with AES-GCM and returns a base64 URL
// encoded string containing: nonce (12 bytes) + ciphertext. The aesKeyHex is
// the 32-byte AES key, hex-encoded.
func EncryptAESGCM(aesKeyHex string, plaintext []byte) (string, error) {
	aesgcm, err := newGCM(aesKeyHex)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcmNonceSizeBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptAESGCM decrypts a base64 URL encoded value produced by
// EncryptAESGCM.
func DecryptAESGCM(aesKeyHex string, valueB64 string) ([]byte, error) {
	aesgcm, err := newGCM(aesKeyHex)
	if err != nil {
		return nil, err
	}

	encrypted, err := base64.URLEncoding.DecodeString(valueB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValueFormat, err)
	}
	if len(encrypted) < gcmNonceSizeBytes {
		return nil, fmt.Errorf("%w: length %d, minimum %d", ErrCiphertextTooShort, len(encrypted), gcmNonceSizeBytes)
	}

	nonce := encrypted[:gcmNonceSizeBytes]
	ciphertext := encrypted[gcmNonceSizeBytes:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Do not wrap further; "message authentication failed" already says
		// the key or value is bad.
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
