package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

const (
	// geminiKeyPrefix is the prefix Google AI Studio keys carry.
	geminiKeyPrefix = "AIza"

	// geminiKeyMinLength is the shortest plausible Gemini key.
	geminiKeyMinLength = 39

	nonceSize = 24
	keySize   = 32
)

// ErrNoStoredKey is returned when a BYOK operation needs a stored key and
// the user has none.
var ErrNoStoredKey = errors.New("user has no stored API key")

// KeyStatus describes a user's stored key without revealing it.
type KeyStatus struct {
	HasKey      bool       `json:"has_key"`
	BYOKEnabled bool       `json:"byok_enabled"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// APIKeyService manages bring-your-own-key credentials. Keys are encrypted
// at rest with a server-held secret and only ever decrypted for an
// immediate generation run; callers get existence and status, never the
// key itself.
type APIKeyService struct {
	users  store.UserStore
	secret [keySize]byte
	logger *slog.Logger
	now    func() time.Time
}

// NewAPIKeyService creates an APIKeyService. encryptionKeyHex must decode
// to exactly 32 bytes.
func NewAPIKeyService(users store.UserStore, encryptionKeyHex string, logger *slog.Logger) (*APIKeyService, error) {
	raw, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(raw))
	}

	s := &APIKeyService{
		users:  users,
		logger: logger.With(slog.String("component", "apikey_service")),
		now:    time.Now,
	}
	copy(s.secret[:], raw)
	return s, nil
}

// ValidateKeyFormat checks that the key looks like a Gemini API key.
// Returns domain.ErrInvalidAPIKey if it does not.
func ValidateKeyFormat(apiKey string) error {
	if !strings.HasPrefix(apiKey, geminiKeyPrefix) || len(apiKey) < geminiKeyMinLength {
		return domain.ErrInvalidAPIKey
	}
	return nil
}

// SetKey validates, encrypts, and stores the user's API key, enabling
// BYOK for subsequent storyboards. The user record is created on first
// contact.
func (s *APIKeyService) SetKey(ctx context.Context, userID, apiKey string) error {
	if err := ValidateKeyFormat(apiKey); err != nil {
		return err
	}

	if _, err := s.users.GetOrCreate(ctx, userID); err != nil {
		return fmt.Errorf("loading user: %w", err)
	}

	encrypted, err := s.encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("encrypting API key: %w", err)
	}

	hash := hashKey(apiKey)
	hasKey := true
	enabled := true
	updatedAt := s.now().UTC()

	if err := s.users.Update(ctx, userID, store.UserUpdate{
		HasAPIKey:       &hasKey,
		APIKeyHash:      &hash,
		EncryptedAPIKey: &encrypted,
		BYOKEnabled:     &enabled,
		APIKeyUpdatedAt: &updatedAt,
	}); err != nil {
		return fmt.Errorf("storing API key: %w", err)
	}

	s.logger.InfoContext(ctx, "API key stored", slog.String("user_id", userID))
	return nil
}

// RemoveKey deletes the user's stored key and disables BYOK.
func (s *APIKeyService) RemoveKey(ctx context.Context, userID string) error {
	hasKey := false
	enabled := false
	hash := ""
	encrypted := []byte(nil)
	updatedAt := s.now().UTC()

	if err := s.users.Update(ctx, userID, store.UserUpdate{
		HasAPIKey:       &hasKey,
		APIKeyHash:      &hash,
		EncryptedAPIKey: &encrypted,
		BYOKEnabled:     &enabled,
		APIKeyUpdatedAt: &updatedAt,
	}); err != nil {
		return fmt.Errorf("removing API key: %w", err)
	}

	s.logger.InfoContext(ctx, "API key removed", slog.String("user_id", userID))
	return nil
}

// SetBYOKEnabled toggles BYOK without touching the stored key. Enabling
// requires a stored key.
func (s *APIKeyService) SetBYOKEnabled(ctx context.Context, userID string, enabled bool) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}

	if enabled && !user.HasAPIKey {
		return ErrNoStoredKey
	}

	if err := s.users.Update(ctx, userID, store.UserUpdate{
		BYOKEnabled: &enabled,
	}); err != nil {
		return fmt.Errorf("updating BYOK flag: %w", err)
	}
	return nil
}

// KeyStatus reports whether the user has a key and whether BYOK is on.
// Unknown users simply have no key.
func (s *APIKeyService) KeyStatus(ctx context.Context, userID string) (KeyStatus, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return KeyStatus{}, nil
	}
	if err != nil {
		return KeyStatus{}, err
	}

	return KeyStatus{
		HasKey:      user.HasAPIKey,
		BYOKEnabled: user.BYOKEnabled,
		UpdatedAt:   user.APIKeyUpdatedAt,
	}, nil
}

// DecryptedKey returns the user's plaintext key for an immediate
// generation run. Returns ErrNoStoredKey if none is stored.
func (s *APIKeyService) DecryptedKey(ctx context.Context, userID string) (string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if !user.HasAPIKey || len(user.EncryptedAPIKey) == 0 {
		return "", ErrNoStoredKey
	}

	apiKey, err := s.decrypt(user.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("decrypting API key: %w", err)
	}

	// A hash mismatch means the ciphertext or secret changed underneath
	// the stored record.
	if hashKey(apiKey) != user.APIKeyHash {
		return "", errors.New("stored API key failed integrity check")
	}

	return apiKey, nil
}

func (s *APIKeyService) encrypt(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.secret), nil
}

func (s *APIKeyService) decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) <= nonceSize {
		return "", errors.New("ciphertext too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &s.secret)
	if !ok {
		return "", errors.New("ciphertext authentication failed")
	}
	return string(plaintext), nil
}

func hashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
