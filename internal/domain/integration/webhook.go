package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// WebhookEvent Entity
// ---------------------------------------------------------------------------

// WebhookEventType is the normalized type of an inbound platform event.
type WebhookEventType string

const (
	WebhookEventOrderCreated       WebhookEventType = "ORDER_CREATED"
	WebhookEventOrderStatusChanged WebhookEventType = "ORDER_STATUS_CHANGED"
	WebhookEventOrderCancelled     WebhookEventType = "ORDER_CANCELLED"
	WebhookEventPaymentCompleted   WebhookEventType = "PAYMENT_COMPLETED"
	WebhookEventPaymentRefunded    WebhookEventType = "PAYMENT_REFUNDED"
	WebhookEventStockChanged       WebhookEventType = "STOCK_CHANGED"
)

// IsValid returns true if the event type is known.
func (t WebhookEventType) IsValid() bool {
	switch t {
	case WebhookEventOrderCreated, WebhookEventOrderStatusChanged,
		WebhookEventOrderCancelled, WebhookEventPaymentCompleted,
		WebhookEventPaymentRefunded, WebhookEventStockChanged:
		return true
	default:
		return false
	}
}

// String returns the string representation of WebhookEventType.
func (t WebhookEventType) String() string {
	return string(t)
}

// WebhookEvent is one verified inbound event. Events are persisted before
// dispatch so delivery survives a crash; ProcessedAt stays nil until a
// handler has run to completion.
type WebhookEvent struct {
	// ID is the unique identifier of this event row
	ID uuid.UUID
	// IntegrationID is the integration the event arrived for
	IntegrationID uuid.UUID
	// Platform is the sending platform
	Platform PlatformCode
	// EventID is the platform-assigned identifier, unique per integration
	EventID string
	// EventType is the normalized event type
	EventType WebhookEventType
	// Payload is the raw verified request body
	Payload []byte
	// ReceivedAt is when the event was accepted
	ReceivedAt time.Time
	// ProcessedAt is when a handler finished, nil while pending
	ProcessedAt *time.Time
	// Attempts counts processing attempts
	Attempts int
	// LastError holds the most recent processing failure
	LastError string
}

// NewWebhookEvent creates an unprocessed event from a verified payload.
func NewWebhookEvent(integrationID uuid.UUID, platform PlatformCode, eventID string, eventType WebhookEventType, payload []byte) (*WebhookEvent, error) {
	if eventID == "" {
		return nil, ErrWebhookBadSignature
	}
	if !eventType.IsValid() {
		return nil, ErrWebhookNoHandler
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return &WebhookEvent{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		Platform:      platform,
		EventID:       eventID,
		EventType:     eventType,
		Payload:       body,
		ReceivedAt:    time.Now(),
	}, nil
}

// Processed reports whether a handler has completed for this event.
func (e *WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}

// MarkProcessed records handler completion.
func (e *WebhookEvent) MarkProcessed(at time.Time) {
	e.ProcessedAt = &at
	e.LastError = ""
}

// MarkFailed records a failed processing attempt.
func (e *WebhookEvent) MarkFailed(err error) {
	e.Attempts++
	if err != nil {
		e.LastError = err.Error()
	}
}

// ---------------------------------------------------------------------------
// WebhookEventRepository
// ---------------------------------------------------------------------------

// WebhookEventRepository defines the persistence interface for webhook
// events. Save enforces uniqueness of (integration, event ID) and returns
// ErrWebhookEventExists for a duplicate.
type WebhookEventRepository interface {
	// Save inserts a new event
	Save(ctx context.Context, event *WebhookEvent) error

	// Update persists processing state changes
	Update(ctx context.Context, event *WebhookEvent) error

	// FindByID finds an event by row ID
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)

	// FindByEventID finds an event by platform event ID
	FindByEventID(ctx context.Context, integrationID uuid.UUID, eventID string) (*WebhookEvent, error)

	// FindUnprocessed lists events with no ProcessedAt older than the cutoff
	FindUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]WebhookEvent, error)
}

// ---------------------------------------------------------------------------
// WebhookHandler
// ---------------------------------------------------------------------------

// WebhookHandler consumes one normalized event type. Handlers must be
// idempotent: the sweep may redeliver an event whose previous attempt
// crashed after partial work.
type WebhookHandler interface {
	// EventTypes returns the event types this handler consumes
	EventTypes() []WebhookEventType

	// Handle processes one event
	Handle(ctx context.Context, event *WebhookEvent) error
}
