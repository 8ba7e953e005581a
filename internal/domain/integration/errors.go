package integration

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Failure taxonomy
// ---------------------------------------------------------------------------

// FailureKind classifies every error a connector is allowed to surface.
// The resilience layer decides retry and circuit behavior purely from this
// classification, never from platform-specific payloads.
type FailureKind string

const (
	// FailureAuth indicates rejected or expired credentials. Terminal unless
	// the connector supports transparent token refresh.
	FailureAuth FailureKind = "AUTH"
	// FailureRateLimited indicates the platform throttled the call. Retryable,
	// honoring the platform retry-after hint when present.
	FailureRateLimited FailureKind = "RATE_LIMITED"
	// FailureRemoteValidation indicates the platform is healthy but rejected
	// the request on business grounds (e.g. price below platform minimum).
	// Terminal and never counted toward the circuit breaker.
	FailureRemoteValidation FailureKind = "REMOTE_VALIDATION"
	// FailureTransientNetwork indicates timeouts, connection resets and 5xx
	// responses. Retryable; counts toward the circuit breaker.
	FailureTransientNetwork FailureKind = "TRANSIENT_NETWORK"
	// FailureCircuitOpen indicates the call was short-circuited locally with
	// no network attempt.
	FailureCircuitOpen FailureKind = "CIRCUIT_OPEN"
	// FailureUnsupportedOperation indicates the platform does not declare the
	// requested capability. Terminal configuration-level bug.
	FailureUnsupportedOperation FailureKind = "UNSUPPORTED_OPERATION"
	// FailureNotConfigured indicates missing or incomplete credentials.
	FailureNotConfigured FailureKind = "NOT_CONFIGURED"
)

// IsValid returns true if the failure kind is part of the closed taxonomy.
func (k FailureKind) IsValid() bool {
	switch k {
	case FailureAuth, FailureRateLimited, FailureRemoteValidation,
		FailureTransientNetwork, FailureCircuitOpen,
		FailureUnsupportedOperation, FailureNotConfigured:
		return true
	default:
		return false
	}
}

// String returns the string representation of FailureKind.
func (k FailureKind) String() string {
	return string(k)
}

// Retryable returns true for kinds the resilience layer may retry.
func (k FailureKind) Retryable() bool {
	return k == FailureTransientNetwork || k == FailureRateLimited
}

// CountsTowardCircuit returns true for kinds that increment the breaker's
// consecutive failure counter.
func (k FailureKind) CountsTowardCircuit() bool {
	return k == FailureTransientNetwork || k == FailureRateLimited
}

// Failure is the only error type connectors raise. Raw transport errors are
// wrapped and classified at the connector boundary.
type Failure struct {
	Kind     FailureKind
	Platform PlatformCode
	Message  string
	// RetryAfter carries the platform-provided throttle hint for
	// RATE_LIMITED failures; zero means no hint.
	RetryAfter time.Duration
	cause      error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("integration: %s [%s]: %s", f.Platform, f.Kind, f.Message)
	}
	return fmt.Sprintf("integration: %s [%s]", f.Platform, f.Kind)
}

// Unwrap returns the underlying transport error, if any.
func (f *Failure) Unwrap() error {
	return f.cause
}

// NewFailure creates a classified failure.
func NewFailure(kind FailureKind, platform PlatformCode, message string) *Failure {
	return &Failure{Kind: kind, Platform: platform, Message: message}
}

// WrapFailure creates a classified failure preserving the transport cause.
func WrapFailure(kind FailureKind, platform PlatformCode, cause error) *Failure {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Failure{Kind: kind, Platform: platform, Message: msg, cause: cause}
}

// NewRateLimitedFailure creates a RATE_LIMITED failure with an optional
// platform retry-after hint.
func NewRateLimitedFailure(platform PlatformCode, message string, retryAfter time.Duration) *Failure {
	return &Failure{Kind: FailureRateLimited, Platform: platform, Message: message, RetryAfter: retryAfter}
}

// NewUnsupportedOperationFailure creates an UNSUPPORTED_OPERATION failure for
// a capability the platform does not declare.
func NewUnsupportedOperationFailure(platform PlatformCode, capability Capability) *Failure {
	return &Failure{
		Kind:     FailureUnsupportedOperation,
		Platform: platform,
		Message:  fmt.Sprintf("capability %s not supported", capability),
	}
}

// KindOf classifies an error. Errors outside the taxonomy are treated as
// TRANSIENT_NETWORK: an unclassified error is by definition not a remote
// business rejection, and treating it as transient keeps it retryable and
// visible to the circuit breaker.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureTransientNetwork
}

// AsFailure extracts the typed failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err classifies to the given kind.
func IsKind(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}

// RetryAfterHint returns the platform-provided throttle hint, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	if f, ok := AsFailure(err); ok && f.RetryAfter > 0 {
		return f.RetryAfter, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Domain errors (non-connector)
// ---------------------------------------------------------------------------

var (
	// Integration configuration errors
	ErrIntegrationNotFound      = errors.New("integration: integration not found")
	ErrIntegrationDisabled      = errors.New("integration: integration disabled")
	ErrIntegrationAlreadyExists = errors.New("integration: integration already exists for platform")
	ErrInvalidPlatformCode      = errors.New("integration: invalid platform code")
	ErrInvalidCategory          = errors.New("integration: invalid integration category")
	ErrConnectorNotRegistered   = errors.New("integration: no connector registered for platform")

	// Credential errors
	ErrCredentialsNotFound     = errors.New("integration: credentials not configured")
	ErrCredentialFieldMissing  = errors.New("integration: required credential field missing")
	ErrCredentialPlaceholder   = errors.New("integration: credential field holds a placeholder value")
	ErrCredentialDecryptFailed = errors.New("integration: credential decryption failed")

	// Mapping errors
	ErrMappingNotFound       = errors.New("integration: mapping record not found")
	ErrMappingAlreadyExists  = errors.New("integration: mapping record already exists")
	ErrExternalIDImmutable   = errors.New("integration: external ID is immutable once set")
	ErrInvalidInternalEntity = errors.New("integration: invalid internal entity ID")

	// Sync errors
	ErrSyncJobNotFound   = errors.New("integration: sync job not found")
	ErrInvalidEntityType = errors.New("integration: invalid sync entity type")
	ErrEmptyScope        = errors.New("integration: sync scope is empty")

	// Webhook errors
	ErrWebhookBadSignature  = errors.New("integration: webhook signature verification failed")
	ErrWebhookEventExists   = errors.New("integration: webhook event already recorded")
	ErrWebhookEventNotFound = errors.New("integration: webhook event not found")
	ErrWebhookNoHandler     = errors.New("integration: no handler registered for event type")
)
