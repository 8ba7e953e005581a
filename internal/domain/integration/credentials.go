package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Credential fields
// ---------------------------------------------------------------------------

// Credential field names shared across platforms.
const (
	CredentialFieldAPIKey       = "api_key"
	CredentialFieldAPISecret    = "api_secret"
	CredentialFieldSupplierID   = "supplier_id"
	CredentialFieldUsername     = "username"
	CredentialFieldPassword     = "password"
	CredentialFieldMerchantID   = "merchant_id"
	CredentialFieldClientID     = "client_id"
	CredentialFieldClientSecret = "client_secret"
	CredentialFieldRefreshToken = "refresh_token"
	CredentialFieldSellerID     = "seller_id"
	CredentialFieldSecretKey    = "secret_key"
)

// credentialSchemas lists the required credential fields per platform.
var credentialSchemas = map[PlatformCode][]string{
	PlatformCodeTrendyol:    {CredentialFieldAPIKey, CredentialFieldAPISecret, CredentialFieldSupplierID},
	PlatformCodeHepsiburada: {CredentialFieldUsername, CredentialFieldPassword, CredentialFieldMerchantID},
	PlatformCodeN11:         {CredentialFieldAPIKey, CredentialFieldAPISecret},
	PlatformCodeAmazonSP:    {CredentialFieldClientID, CredentialFieldClientSecret, CredentialFieldRefreshToken, CredentialFieldSellerID},
	PlatformCodeIyzico:      {CredentialFieldAPIKey, CredentialFieldSecretKey},
}

// RequiredCredentialFields returns the credential fields a platform needs.
func RequiredCredentialFields(platform PlatformCode) []string {
	fields := credentialSchemas[platform]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// placeholderValues are well-known filler strings that must never be accepted
// as real secrets.
var placeholderValues = []string{
	"changeme",
	"change-me",
	"placeholder",
	"xxx",
	"todo",
	"secret",
	"example",
}

// isPlaceholder reports whether a credential value is an obvious filler.
func isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, p := range placeholderValues {
		if v == p {
			return true
		}
	}
	return strings.HasPrefix(v, "your-") || strings.HasPrefix(v, "your_") ||
		strings.HasPrefix(v, "<") || strings.HasSuffix(v, ">")
}

// ValidateCredentialFields checks that every required field for the platform
// is present and none carries a placeholder value. Extra fields are allowed.
func ValidateCredentialFields(platform PlatformCode, fields map[string]string) error {
	schema, ok := credentialSchemas[platform]
	if !ok {
		return ErrInvalidPlatformCode
	}
	for _, name := range schema {
		value, present := fields[name]
		if !present {
			return fmt.Errorf("%w: %s", ErrCredentialFieldMissing, name)
		}
		if isPlaceholder(value) {
			return fmt.Errorf("%w: %s", ErrCredentialPlaceholder, name)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// CredentialHandle
// ---------------------------------------------------------------------------

// CredentialHandle gives connectors read access to decrypted credential
// fields without ever exposing them through logging or serialization. The
// handle is built by the vault and lives only for the duration of one call
// chain.
type CredentialHandle struct {
	integrationID uuid.UUID
	platform      PlatformCode
	fields        map[string]string
	sandbox       bool
}

// NewCredentialHandle is used by the vault to hand decrypted fields to a
// connector. The fields map is copied.
func NewCredentialHandle(integrationID uuid.UUID, platform PlatformCode, fields map[string]string, sandbox bool) CredentialHandle {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return CredentialHandle{
		integrationID: integrationID,
		platform:      platform,
		fields:        copied,
		sandbox:       sandbox,
	}
}

// IntegrationID returns the owning integration.
func (h CredentialHandle) IntegrationID() uuid.UUID {
	return h.integrationID
}

// Platform returns the platform the credentials belong to.
func (h CredentialHandle) Platform() PlatformCode {
	return h.platform
}

// Sandbox reports whether the credentials target the platform sandbox.
func (h CredentialHandle) Sandbox() bool {
	return h.sandbox
}

// Get returns one decrypted field value.
func (h CredentialHandle) Get(field string) (string, error) {
	value, ok := h.fields[field]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrCredentialFieldMissing, field)
	}
	return value, nil
}

// Has reports whether the field is present and non-empty.
func (h CredentialHandle) Has(field string) bool {
	return h.fields[field] != ""
}

// String redacts all field values. Handles end up in log fields and error
// messages; the secrets must not.
func (h CredentialHandle) String() string {
	return fmt.Sprintf("credentials(%s/%s)", h.platform, h.integrationID)
}

// MarshalJSON redacts all field values.
func (h CredentialHandle) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", h.String())), nil
}

// ---------------------------------------------------------------------------
// CredentialVault port
// ---------------------------------------------------------------------------

// CredentialVault stores platform credentials encrypted at rest and opens
// them as opaque handles. No operation returns plaintext outside a handle.
type CredentialVault interface {
	// Store validates and encrypts the credential fields for an integration,
	// replacing any previous set.
	Store(ctx context.Context, integrationID uuid.UUID, platform PlatformCode, fields map[string]string, sandbox bool) error

	// Open decrypts the credentials for an integration into a handle.
	// Returns ErrCredentialsNotFound when none are stored.
	Open(ctx context.Context, integrationID uuid.UUID) (CredentialHandle, error)

	// Delete removes the stored credentials for an integration.
	Delete(ctx context.Context, integrationID uuid.UUID) error
}
