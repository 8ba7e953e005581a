package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// OrderEventHandler reacts to order and payment webhooks by upserting the
// order mapping for the referenced external order, the same record an order
// pull maintains. Pulled orders and webhook deliveries therefore converge on
// one row per external order.
type OrderEventHandler struct {
	mappings integration.MappingRepository
	logger   *zap.Logger
}

// NewOrderEventHandler creates the handler.
func NewOrderEventHandler(mappings integration.MappingRepository, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{mappings: mappings, logger: logger}
}

// EventTypes implements integration.WebhookHandler.
func (h *OrderEventHandler) EventTypes() []integration.WebhookEventType {
	return []integration.WebhookEventType{
		integration.WebhookEventOrderCreated,
		integration.WebhookEventOrderStatusChanged,
		integration.WebhookEventOrderCancelled,
		integration.WebhookEventPaymentCompleted,
		integration.WebhookEventPaymentRefunded,
	}
}

// orderRef is the minimal envelope shared by the platforms' order webhooks.
// Field presence varies per platform; the first non-empty reference wins.
type orderRef struct {
	OrderNumber string `json:"orderNumber"`
	OrderID     string `json:"orderId"`
	PaymentID   string `json:"paymentId"`
}

func (r *orderRef) id() string {
	switch {
	case r.OrderNumber != "":
		return r.OrderNumber
	case r.OrderID != "":
		return r.OrderID
	default:
		return r.PaymentID
	}
}

// Handle implements integration.WebhookHandler. Re-deliveries of the same
// event touch the same mapping row, so the handler is idempotent.
func (h *OrderEventHandler) Handle(ctx context.Context, event *integration.WebhookEvent) error {
	var ref orderRef
	if err := json.Unmarshal(event.Payload, &ref); err != nil {
		return fmt.Errorf("decode order reference: %w", err)
	}
	externalID := ref.id()
	if externalID == "" {
		return errors.New("webhook payload carries no order reference")
	}

	mapping, err := h.mappings.FindByExternal(ctx, event.IntegrationID, externalID)
	if err != nil {
		if !errors.Is(err, integration.ErrMappingNotFound) {
			return fmt.Errorf("load order mapping: %w", err)
		}
		mapping, err = integration.NewMappingRecord(uuid.New(), event.IntegrationID, integration.EntityTypeOrder)
		if err != nil {
			return err
		}
		if err := mapping.BindExternal(externalID); err != nil {
			return err
		}
	}

	mapping.MarkSynced(eventHash(event), time.Now())
	if err := h.mappings.Save(ctx, mapping); err != nil {
		return fmt.Errorf("save order mapping: %w", err)
	}

	h.logger.Info("order webhook applied",
		zap.String("platform", event.Platform.String()),
		zap.String("event_type", event.EventType.String()),
		zap.String("external_order_id", externalID))
	return nil
}

// eventHash ties the mapping's sync marker to the specific event applied.
func eventHash(event *integration.WebhookEvent) string {
	return event.EventType.String() + ":" + event.EventID
}

var _ integration.WebhookHandler = (*OrderEventHandler)(nil)
