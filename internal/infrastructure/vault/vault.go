// Package vault encrypts platform credentials at rest and opens them as
// opaque handles. The rest of the system only ever sees
// integration.CredentialHandle values; plaintext exists in memory for the
// duration of one call chain and never in logs or storage.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// Record is one encrypted credential set as stored.
type Record struct {
	IntegrationID uuid.UUID
	Platform      integration.PlatformCode
	Ciphertext    []byte
	Sandbox       bool
	UpdatedAt     time.Time
}

// RecordStore persists encrypted credential records. Implementations never
// see plaintext.
type RecordStore interface {
	// Put upserts the record for an integration
	Put(ctx context.Context, record *Record) error

	// Get returns the record for an integration, ErrCredentialsNotFound when absent
	Get(ctx context.Context, integrationID uuid.UUID) (*Record, error)

	// Delete removes the record for an integration
	Delete(ctx context.Context, integrationID uuid.UUID) error
}

// AESVault implements integration.CredentialVault with AES-256-GCM. Each
// Store call seals the JSON-encoded field map under a fresh nonce; the nonce
// is prepended to the ciphertext.
type AESVault struct {
	key    []byte
	store  RecordStore
	logger *zap.Logger
}

// NewAESVault creates a vault from the configured master key. The key may be
// hex or base64 encoded; anything else is hashed down to 32 bytes so
// development setups can use a passphrase.
func NewAESVault(masterKey string, store RecordStore, logger *zap.Logger) (*AESVault, error) {
	if masterKey == "" {
		return nil, errors.New("vault: master key is empty")
	}
	key := deriveKey(masterKey)
	return &AESVault{key: key, store: store, logger: logger}, nil
}

// deriveKey turns the configured master key into a 32-byte AES key.
func deriveKey(masterKey string) []byte {
	if raw, err := hex.DecodeString(masterKey); err == nil && len(raw) == 32 {
		return raw
	}
	if raw, err := base64.StdEncoding.DecodeString(masterKey); err == nil && len(raw) == 32 {
		return raw
	}
	sum := sha256.Sum256([]byte(masterKey))
	return sum[:]
}

// Store validates and encrypts the credential fields for an integration,
// replacing any previous set.
func (v *AESVault) Store(ctx context.Context, integrationID uuid.UUID, platform integration.PlatformCode, fields map[string]string, sandbox bool) error {
	if err := integration.ValidateCredentialFields(platform, fields); err != nil {
		return err
	}

	plaintext, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("vault: encode fields: %w", err)
	}

	ciphertext, err := v.seal(plaintext)
	if err != nil {
		return err
	}

	record := &Record{
		IntegrationID: integrationID,
		Platform:      platform,
		Ciphertext:    ciphertext,
		Sandbox:       sandbox,
		UpdatedAt:     time.Now(),
	}
	if err := v.store.Put(ctx, record); err != nil {
		return err
	}

	v.logger.Info("credentials stored",
		zap.String("integration_id", integrationID.String()),
		zap.String("platform", platform.String()),
		zap.Bool("sandbox", sandbox),
	)
	return nil
}

// Open decrypts the credentials for an integration into a handle.
func (v *AESVault) Open(ctx context.Context, integrationID uuid.UUID) (integration.CredentialHandle, error) {
	record, err := v.store.Get(ctx, integrationID)
	if err != nil {
		return integration.CredentialHandle{}, err
	}

	plaintext, err := v.unseal(record.Ciphertext)
	if err != nil {
		v.logger.Error("credential decryption failed",
			zap.String("integration_id", integrationID.String()),
		)
		return integration.CredentialHandle{}, integration.ErrCredentialDecryptFailed
	}

	var fields map[string]string
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return integration.CredentialHandle{}, integration.ErrCredentialDecryptFailed
	}

	return integration.NewCredentialHandle(integrationID, record.Platform, fields, record.Sandbox), nil
}

// Delete removes the stored credentials for an integration.
func (v *AESVault) Delete(ctx context.Context, integrationID uuid.UUID) error {
	return v.store.Delete(ctx, integrationID)
}

// seal encrypts plaintext under a fresh nonce.
func (v *AESVault) seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm init: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal decrypts a nonce-prefixed ciphertext.
func (v *AESVault) unseal(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, integration.ErrCredentialDecryptFailed
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

var _ integration.CredentialVault = (*AESVault)(nil)
