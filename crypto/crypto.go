// Package crypto protects the MT5 account credentials delivered by the
// control plane. Values at rest carry the ENC:v1: prefix and are sealed
// with AES-GCM under a data key loaded from the environment.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	storagePrefix    = "ENC:v1:"
	storageDelimiter = ":"

	// EnvDataEncryptionKey AES data key (base64, hex, or passphrase)
	EnvDataEncryptionKey = "DATA_ENCRYPTION_KEY"

	// passphrase-derived keys use a fixed application salt; the key in
	// the env is a shared secret, not a per-record password
	kdfSalt       = "gridbot-credentials-v1"
	kdfIterations = 100_000
)

// Service seals and opens credential strings with a single data key
type Service struct {
	dataKey []byte
}

// NewService loads the data key from the environment
func NewService() (*Service, error) {
	keyStr := strings.TrimSpace(os.Getenv(EnvDataEncryptionKey))
	if keyStr == "" {
		return nil, fmt.Errorf("%s is not set", EnvDataEncryptionKey)
	}
	return &Service{dataKey: deriveKey(keyStr)}, nil
}

// NewServiceWithKey builds a service from an explicit key material
// string (tests, tooling)
func NewServiceWithKey(keyStr string) *Service {
	return &Service{dataKey: deriveKey(keyStr)}
}

// deriveKey accepts base64/hex-encoded raw keys of AES lengths, and
// stretches anything else as a passphrase via PBKDF2
func deriveKey(value string) []byte {
	decoders := []func(string) ([]byte, error){
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		hex.DecodeString,
	}
	for _, decode := range decoders {
		if raw, err := decode(value); err == nil {
			switch len(raw) {
			case 16, 24, 32:
				return raw
			}
		}
	}
	return pbkdf2.Key([]byte(value), []byte(kdfSalt), kdfIterations, 32, sha256.New)
}

// IsEncrypted reports whether a stored value carries the storage prefix
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, storagePrefix)
}

// Encrypt seals a plaintext for storage. Already-sealed values pass
// through unchanged so re-encrypting a store is idempotent.
func (s *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return storagePrefix +
		base64.StdEncoding.EncodeToString(nonce) + storageDelimiter +
		base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a sealed storage value
func (s *Service) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !IsEncrypted(value) {
		return "", errors.New("value is not encrypted")
	}
	payload := strings.TrimPrefix(value, storagePrefix)
	parts := strings.SplitN(payload, storageDelimiter, 2)
	if len(parts) != 2 {
		return "", errors.New("malformed encrypted value")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("bad nonce length: want %d, got %d", gcm.NonceSize(), len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

func (s *Service) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.dataKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateDataKey returns a fresh base64-encoded 32-byte key, for
// provisioning new deployments
func GenerateDataKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
