package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeyHex = strings.Repeat("ab", 32)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("super-secret-token")

	encrypted, err := EncryptAESGCM(testKeyHex, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, string(plaintext))

	decrypted, err := DecryptAESGCM(testKeyHex, encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	a, err := EncryptAESGCM(testKeyHex, []byte("same input"))
	require.NoError(t, err)
	b, err := EncryptAESGCM(testKeyHex, []byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per encryption")
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	encrypted, err := EncryptAESGCM(testKeyHex, []byte("payload"))
	require.NoError(t, err)

	otherKey := strings.Repeat("cd", 32)
	_, err = DecryptAESGCM(otherKey, encrypted)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestInvalidKeySize(t *testing.T) {
	shortKey := hex.EncodeToString([]byte("too short"))
	_, err := EncryptAESGCM(shortKey, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)

	_, err = DecryptAESGCM(shortKey, "anything")
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)
}

func TestDecryptMalformedValue(t *testing.T) {
	_, err := DecryptAESGCM(testKeyHex, "%%% not base64 %%%")
	assert.ErrorIs(t, err, ErrInvalidValueFormat)
}

func TestDecryptTruncatedValue(t *testing.T) {
	_, err := DecryptAESGCM(testKeyHex, "YWJj") // 3 bytes, shorter than a nonce
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
