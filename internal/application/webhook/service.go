// Package webhook ingests signed platform callbacks. Events are verified,
// deduplicated, and persisted before any processing so the HTTP layer can
// acknowledge fast; a background sweep re-dispatches events whose handler
// failed.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config tunes deduplication and the unprocessed-event sweep.
type Config struct {
	// DedupTTL is how long a processed event ID is remembered in the fast path
	DedupTTL time.Duration
	// SweepInterval is how often the sweep looks for stuck events
	SweepInterval time.Duration
	// SweepAge is the grace period before an unprocessed event is retried
	SweepAge time.Duration
	// SweepBatch caps events re-dispatched per sweep tick
	SweepBatch int
}

func (c *Config) applyDefaults() {
	if c.DedupTTL <= 0 {
		c.DedupTTL = 72 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepAge <= 0 {
		c.SweepAge = 2 * time.Minute
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 100
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service receives, verifies, and dispatches platform webhooks.
type Service struct {
	cfg    Config
	logger *zap.Logger

	integrations integration.IntegrationRepository
	connectors   integration.ConnectorRegistry
	vault        integration.CredentialVault
	events       integration.WebhookEventRepository
	dedup        shared.IdempotencyStore

	handlerMu sync.RWMutex
	handlers  map[integration.WebhookEventType][]integration.WebhookHandler

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService wires the webhook ingestion service.
func NewService(
	cfg Config,
	integrations integration.IntegrationRepository,
	connectors integration.ConnectorRegistry,
	vault integration.CredentialVault,
	events integration.WebhookEventRepository,
	dedup shared.IdempotencyStore,
	logger *zap.Logger,
) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:          cfg,
		logger:       logger,
		integrations: integrations,
		connectors:   connectors,
		vault:        vault,
		events:       events,
		dedup:        dedup,
		handlers:     make(map[integration.WebhookEventType][]integration.WebhookHandler),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// RegisterHandler subscribes a handler to every event type it declares.
// Handlers must be idempotent: a sweep retry or a platform redelivery may
// invoke them more than once for the same event.
func (s *Service) RegisterHandler(h integration.WebhookHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	for _, et := range h.EventTypes() {
		s.handlers[et] = append(s.handlers[et], h)
	}
}

// Receive processes one inbound webhook delivery. A nil return means the
// delivery is acknowledged; the event may still be processed later by the
// sweep if its handler failed. Signature failures and unresolvable
// integrations return an error so the HTTP layer can answer 401.
func (s *Service) Receive(ctx context.Context, platform integration.PlatformCode, payload []byte, signature string) error {
	intg, err := s.integrations.FindByPlatform(ctx, platform)
	if err != nil {
		return err
	}
	if !intg.Usable() {
		return integration.ErrIntegrationDisabled
	}

	conn, err := s.connectors.Get(platform)
	if err != nil {
		return err
	}
	verifier, ok := conn.(integration.WebhookVerifier)
	if !ok {
		return integration.ErrWebhookNoHandler
	}

	creds, err := s.vault.Open(ctx, intg.ID)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}

	if err := verifier.VerifyWebhook(creds, payload, signature); err != nil {
		s.logger.Warn("webhook signature rejected",
			zap.String("platform", platform.String()),
			zap.String("integration_id", intg.ID.String()))
		return err
	}

	eventID, eventType, err := verifier.WebhookEventID(payload)
	if err != nil {
		return err
	}

	// Fast-path dedup. A store outage only disables the shortcut; the
	// durable check below still prevents double processing.
	dedupKey := dedupKey(platform, eventID)
	if processed, err := s.dedup.IsProcessed(ctx, dedupKey); err != nil {
		s.logger.Warn("dedup store check failed", zap.String("event_id", eventID), zap.Error(err))
	} else if processed {
		return nil
	}

	event, err := s.loadOrStore(ctx, intg, platform, eventID, eventType, payload)
	if err != nil {
		return err
	}
	if event == nil {
		// Already fully processed.
		return nil
	}

	s.process(ctx, event)
	return nil
}

// loadOrStore returns the durable event row for this delivery, persisting it
// on first sight. A nil event with nil error means the event is already
// processed and the delivery only needs an ack.
func (s *Service) loadOrStore(ctx context.Context, intg *integration.Integration, platform integration.PlatformCode, eventID string, eventType integration.WebhookEventType, payload []byte) (*integration.WebhookEvent, error) {
	existing, err := s.events.FindByEventID(ctx, intg.ID, eventID)
	if err == nil {
		if existing.Processed() {
			return nil, nil
		}
		return existing, nil
	}
	if !errors.Is(err, integration.ErrWebhookEventNotFound) {
		return nil, err
	}

	event, err := integration.NewWebhookEvent(intg.ID, platform, eventID, eventType, payload)
	if err != nil {
		return nil, err
	}
	if err := s.events.Save(ctx, event); err != nil {
		if errors.Is(err, integration.ErrWebhookEventExists) {
			// Concurrent delivery won the insert race.
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// process dispatches one persisted event to its handlers and records the
// outcome. Handler failure leaves ProcessedAt nil for the sweep.
func (s *Service) process(ctx context.Context, event *integration.WebhookEvent) {
	s.handlerMu.RLock()
	handlers := append([]integration.WebhookHandler(nil), s.handlers[event.EventType]...)
	s.handlerMu.RUnlock()

	if len(handlers) == 0 {
		// Nothing consumes this event type; ack it so the sweep does not
		// retry forever.
		event.MarkProcessed(time.Now())
		if err := s.events.Update(ctx, event); err != nil {
			s.logger.Warn("webhook event update failed", zap.String("event_id", event.EventID), zap.Error(err))
		}
		s.logger.Debug("webhook event has no handler",
			zap.String("platform", event.Platform.String()),
			zap.String("event_type", event.EventType.String()))
		return
	}

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			event.MarkFailed(err)
			if updateErr := s.events.Update(ctx, event); updateErr != nil {
				s.logger.Warn("webhook event update failed", zap.String("event_id", event.EventID), zap.Error(updateErr))
			}
			s.logger.Warn("webhook handler failed",
				zap.String("platform", event.Platform.String()),
				zap.String("event_type", event.EventType.String()),
				zap.String("event_id", event.EventID),
				zap.Int("attempts", event.Attempts),
				zap.Error(err))
			return
		}
	}

	event.MarkProcessed(time.Now())
	if err := s.events.Update(ctx, event); err != nil {
		s.logger.Warn("webhook event update failed", zap.String("event_id", event.EventID), zap.Error(err))
	}
	if _, err := s.dedup.MarkProcessed(ctx, dedupKey(event.Platform, event.EventID), s.cfg.DedupTTL); err != nil {
		s.logger.Warn("dedup store mark failed", zap.String("event_id", event.EventID), zap.Error(err))
	}
}

func dedupKey(platform integration.PlatformCode, eventID string) string {
	return platform.String() + ":" + eventID
}

// ---------------------------------------------------------------------------
// Sweep
// ---------------------------------------------------------------------------

// Start launches the background sweep. It runs until Stop is called.
func (s *Service) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Sweep(context.Background())
			}
		}
	}()
}

// Stop terminates the sweep and waits for the current tick to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Sweep re-dispatches unprocessed events older than the grace period. It is
// exported so operators can trigger a pass out of cycle.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.SweepAge)
	events, err := s.events.FindUnprocessed(ctx, cutoff, s.cfg.SweepBatch)
	if err != nil {
		s.logger.Warn("webhook sweep query failed", zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}

	s.logger.Info("re-dispatching stuck webhook events", zap.Int("count", len(events)))
	for i := range events {
		s.process(ctx, &events[i])
	}
}
