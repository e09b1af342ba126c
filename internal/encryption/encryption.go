// Package encryption provides AES-256-GCM encryption for the free-text
// medical fields stored in the profile table.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Service interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
	RotateKey() error
}

type service struct {
	mu  sync.RWMutex
	gcm cipher.AEAD
}

// NewService builds the cipher from the hex-encoded ENCRYPTION_KEY
// environment variable, or a random key when unset (data is then
// unreadable after restart; acceptable only for development).
func NewService() (Service, error) {
	key, err := loadKey()
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return &service{gcm: gcm}, nil
}

func (s *service) Encrypt(plaintext []byte) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *service) Decrypt(encodedCiphertext string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encodedCiphertext)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ciphertext) < s.gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:s.gcm.NonceSize()]
	ciphertext = ciphertext[s.gcm.NonceSize():]
	return s.gcm.Open(nil, nonce, ciphertext, nil)
}

// RotateKey swaps in a freshly generated key. Previously written ciphertexts
// become unreadable, so rotation must be paired with a re-encryption pass.
func (s *service) RotateKey() error {
	newKey := make([]byte, 32) // AES-256
	if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
		return err
	}

	gcm, err := newGCM(newKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gcm = gcm
	s.mu.Unlock()
	return nil
}

// StartKeyRotation rotates the service key on the configured period
// (security.encryption.key_rotation_period, default 90 days).
func StartKeyRotation(s Service) {
	rotationPeriod := viper.GetDuration("security.encryption.key_rotation_period")
	if rotationPeriod == 0 {
		rotationPeriod = 90 * 24 * time.Hour
	}

	go func() {
		ticker := time.NewTicker(rotationPeriod)
		for range ticker.C {
			_ = s.RotateKey()
		}
	}()
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func loadKey() ([]byte, error) {
	envKey := os.Getenv("ENCRYPTION_KEY")
	if envKey == "" {
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, err
		}
		return key, nil
	}

	key, err := hex.DecodeString(envKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be a valid hex string: %v", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes (64 hex characters) long for AES-256")
	}
	return key, nil
}
