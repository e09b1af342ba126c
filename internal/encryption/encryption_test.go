package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	plaintext := []byte("Type 1 diabetes, insulin dependent")

	ciphertext, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, string(plaintext), ciphertext)

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	first, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	second, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)

	// Random nonces make repeated encryptions distinct.
	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	_, err = svc.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = svc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestRotateKeyInvalidatesOldCiphertext(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt([]byte("before rotation"))
	require.NoError(t, err)

	require.NoError(t, svc.RotateKey())

	_, err = svc.Decrypt(ciphertext)
	assert.Error(t, err)
}
