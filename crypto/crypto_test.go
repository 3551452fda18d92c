package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s := NewServiceWithKey("a shared passphrase")

	sealed, err := s.Encrypt("mt5-password-123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "ENC:v1:"))

	plain, err := s.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "mt5-password-123", plain)
}

func TestEncryptIsIdempotentOnSealedValues(t *testing.T) {
	s := NewServiceWithKey("key")
	sealed, err := s.Encrypt("secret")
	require.NoError(t, err)

	again, err := s.Encrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed, again)
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	s := NewServiceWithKey("key")
	_, err := s.Decrypt("not-encrypted")
	assert.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	sealed, err := NewServiceWithKey("key-a").Encrypt("secret")
	require.NoError(t, err)

	_, err = NewServiceWithKey("key-b").Decrypt(sealed)
	assert.Error(t, err)
}

func TestDeriveKeyAcceptsEncodedAndPassphraseKeys(t *testing.T) {
	generated, err := GenerateDataKey()
	require.NoError(t, err)

	// a generated base64 key and a plain passphrase both yield working
	// 32-byte AES keys
	for _, key := range []string{generated, "plain passphrase"} {
		s := NewServiceWithKey(key)
		sealed, err := s.Encrypt("x")
		require.NoError(t, err)
		plain, err := s.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "x", plain)
	}
}
