package vault

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// memStore is an in-memory RecordStore for tests.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*Record)}
}

func (s *memStore) Put(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.IntegrationID] = record
	return nil
}

func (s *memStore) Get(_ context.Context, integrationID uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[integrationID]
	if !ok {
		return nil, integration.ErrCredentialsNotFound
	}
	return record, nil
}

func (s *memStore) Delete(_ context.Context, integrationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, integrationID)
	return nil
}

func newTestVault(t *testing.T) (*AESVault, *memStore) {
	store := newMemStore()
	v, err := NewAESVault("local-dev-master-key", store, zaptest.NewLogger(t))
	require.NoError(t, err)
	return v, store
}

func validTrendyolFields() map[string]string {
	return map[string]string{
		"api_key":     "k-1a2b3c4d",
		"api_secret":  "s-9z8y7x6w",
		"supplier_id": "200123",
	}
}

func TestAESVault_StoreAndOpen(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	err := v.Store(ctx, id, integration.PlatformCodeTrendyol, validTrendyolFields(), false)
	require.NoError(t, err)

	handle, err := v.Open(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, handle.IntegrationID())
	assert.Equal(t, integration.PlatformCodeTrendyol, handle.Platform())
	assert.False(t, handle.Sandbox())

	key, err := handle.Get("api_key")
	require.NoError(t, err)
	assert.Equal(t, "k-1a2b3c4d", key)
}

func TestAESVault_CiphertextHidesPlaintext(t *testing.T) {
	v, store := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, v.Store(ctx, id, integration.PlatformCodeTrendyol, validTrendyolFields(), false))

	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, string(record.Ciphertext), "k-1a2b3c4d")
	assert.NotContains(t, string(record.Ciphertext), "api_key")
}

func TestAESVault_StoreRejectsPlaceholders(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	fields := validTrendyolFields()
	fields["api_secret"] = "changeme"

	err := v.Store(ctx, uuid.New(), integration.PlatformCodeTrendyol, fields, false)
	assert.ErrorIs(t, err, integration.ErrCredentialPlaceholder)
}

func TestAESVault_StoreRejectsMissingFields(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	fields := validTrendyolFields()
	delete(fields, "supplier_id")

	err := v.Store(ctx, uuid.New(), integration.PlatformCodeTrendyol, fields, false)
	assert.ErrorIs(t, err, integration.ErrCredentialFieldMissing)
}

func TestAESVault_OpenNotFound(t *testing.T) {
	v, _ := newTestVault(t)

	_, err := v.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrCredentialsNotFound)
}

func TestAESVault_WrongKeyFailsDecryption(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	id := uuid.New()

	v1, err := NewAESVault("first-master-key", store, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, v1.Store(ctx, id, integration.PlatformCodeTrendyol, validTrendyolFields(), false))

	v2, err := NewAESVault("second-master-key", store, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = v2.Open(ctx, id)
	assert.ErrorIs(t, err, integration.ErrCredentialDecryptFailed)
}

func TestAESVault_StoreReplacesPrevious(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, v.Store(ctx, id, integration.PlatformCodeTrendyol, validTrendyolFields(), false))

	updated := validTrendyolFields()
	updated["api_key"] = "k-rotated"
	require.NoError(t, v.Store(ctx, id, integration.PlatformCodeTrendyol, updated, true))

	handle, err := v.Open(ctx, id)
	require.NoError(t, err)
	key, err := handle.Get("api_key")
	require.NoError(t, err)
	assert.Equal(t, "k-rotated", key)
	assert.True(t, handle.Sandbox())
}

func TestAESVault_Delete(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, v.Store(ctx, id, integration.PlatformCodeTrendyol, validTrendyolFields(), false))
	require.NoError(t, v.Delete(ctx, id))

	_, err := v.Open(ctx, id)
	assert.ErrorIs(t, err, integration.ErrCredentialsNotFound)
}

func TestNewAESVault_EmptyKey(t *testing.T) {
	_, err := NewAESVault("", newMemStore(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestDeriveKey_FormatsAccepted(t *testing.T) {
	// 32 raw bytes as hex
	hexKey := deriveKey("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	assert.Len(t, hexKey, 32)

	// Arbitrary passphrase hashes down to 32 bytes
	passKey := deriveKey("correct horse battery staple")
	assert.Len(t, passKey, 32)

	assert.NotEqual(t, hexKey, passKey)
}
