// Package integration manages the lifecycle of platform connections:
// creation, credential configuration, enable/disable, health roll-up, and
// connection probes.
package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// BreakerStateSource exposes the live circuit state per integration.
type BreakerStateSource interface {
	BreakerState(integrationID uuid.UUID) integration.BreakerState
}

// CallInvoker executes one platform operation under the resilience policy.
type CallInvoker interface {
	Do(ctx context.Context, intg *integration.Integration, conn integration.Connector, creds integration.CredentialHandle, op func(context.Context) error) (int, error)
}

// healthLogWindow is how many recent pair outcomes the roll-up inspects.
const healthLogWindow = 20

// Service implements integration management.
type Service struct {
	integrations integration.IntegrationRepository
	vault        integration.CredentialVault
	connectors   integration.ConnectorRegistry
	invoker      CallInvoker
	breakers     BreakerStateSource
	logs         integration.SyncLogRepository
	logger       *zap.Logger
}

// NewService wires the integration management service.
func NewService(
	integrations integration.IntegrationRepository,
	vault integration.CredentialVault,
	connectors integration.ConnectorRegistry,
	invoker CallInvoker,
	breakers BreakerStateSource,
	logs integration.SyncLogRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		integrations: integrations,
		vault:        vault,
		connectors:   connectors,
		invoker:      invoker,
		breakers:     breakers,
		logs:         logs,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

// Create registers a new disabled integration for a platform. Each platform
// holds at most one live integration.
func (s *Service) Create(ctx context.Context, platform integration.PlatformCode, category integration.Category, name string) (*integration.Integration, error) {
	if _, err := s.connectors.Get(platform); err != nil {
		return nil, err
	}
	if _, err := s.integrations.FindByPlatform(ctx, platform); err == nil {
		return nil, integration.ErrIntegrationAlreadyExists
	} else if !errors.Is(err, integration.ErrIntegrationNotFound) {
		return nil, err
	}

	intg, err := integration.NewIntegration(platform, category, name)
	if err != nil {
		return nil, err
	}
	if err := s.integrations.Save(ctx, intg); err != nil {
		return nil, err
	}

	s.logger.Info("integration created",
		zap.String("integration_id", intg.ID.String()),
		zap.String("platform", platform.String()))
	return intg, nil
}

// Get returns one integration.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	return s.integrations.FindByID(ctx, id)
}

// List returns integrations matching the filter.
func (s *Service) List(ctx context.Context, filter integration.IntegrationFilter) ([]integration.Integration, error) {
	return s.integrations.FindAll(ctx, filter)
}

// Delete soft-deletes an integration and purges its credentials from the
// vault. Mapping records and sync history are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return err
	}

	intg.SoftDelete()
	if err := s.integrations.Save(ctx, intg); err != nil {
		return err
	}
	if err := s.vault.Delete(ctx, id); err != nil && !errors.Is(err, integration.ErrCredentialsNotFound) {
		s.logger.Warn("deleting credentials failed", zap.String("integration_id", id.String()), zap.Error(err))
	}

	s.logger.Info("integration deleted",
		zap.String("integration_id", id.String()),
		zap.String("platform", intg.Platform.String()))
	return nil
}

// Enable turns sync and webhook traffic on for an integration.
func (s *Service) Enable(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := intg.Enable(); err != nil {
		return nil, err
	}
	if err := s.integrations.Save(ctx, intg); err != nil {
		return nil, err
	}
	return intg, nil
}

// Disable turns sync and webhook traffic off for an integration.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	intg.Disable()
	if err := s.integrations.Save(ctx, intg); err != nil {
		return nil, err
	}
	return intg, nil
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// ConfigureCredentials validates and stores a credential set. Validation
// failures surface as-is so the HTTP layer can answer 400; nothing is stored
// on failure.
func (s *Service) ConfigureCredentials(ctx context.Context, id uuid.UUID, fields map[string]string, sandbox bool) (*integration.Integration, error) {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := integration.ValidateCredentialFields(intg.Platform, fields); err != nil {
		return nil, err
	}
	if err := s.vault.Store(ctx, intg.ID, intg.Platform, fields, sandbox); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	intg.MarkCredentialsStored(sandbox)
	if err := s.integrations.Save(ctx, intg); err != nil {
		return nil, err
	}

	s.logger.Info("credentials configured",
		zap.String("integration_id", intg.ID.String()),
		zap.String("platform", intg.Platform.String()),
		zap.Bool("sandbox", sandbox))
	return intg, nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Health rolls the live circuit state and recent pair outcomes into one
// health state and persists it on the integration.
func (s *Service) Health(ctx context.Context, id uuid.UUID) (*HealthReport, error) {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	breaker := s.breakers.BreakerState(intg.ID)
	entries, err := s.logs.FindByIntegration(ctx, intg.ID, healthLogWindow)
	if err != nil {
		return nil, err
	}

	failures := 0
	for _, e := range entries {
		if e.Outcome == integration.SyncOutcomeFailed {
			failures++
		}
	}

	state := rollUp(breaker, len(entries), failures)
	if state != intg.Health {
		intg.SetHealth(state)
		if err := s.integrations.Save(ctx, intg); err != nil {
			s.logger.Warn("persisting health state failed", zap.String("integration_id", id.String()), zap.Error(err))
		}
	}

	return &HealthReport{
		IntegrationID:  intg.ID,
		Platform:       intg.Platform,
		Health:         state,
		BreakerState:   breaker,
		RecentOutcomes: len(entries),
		RecentFailures: failures,
		LastSyncAt:     intg.LastSyncAt,
	}, nil
}

// rollUp derives the health state. An open circuit dominates; otherwise the
// recent failure ratio decides.
func rollUp(breaker integration.BreakerState, outcomes, failures int) integration.HealthState {
	if breaker == integration.BreakerOpen {
		return integration.HealthStateDown
	}
	if outcomes == 0 {
		return integration.HealthStateUnknown
	}
	switch {
	case failures == 0:
		return integration.HealthStateHealthy
	case failures < outcomes:
		return integration.HealthStateDegraded
	default:
		return integration.HealthStateDown
	}
}

// ---------------------------------------------------------------------------
// Connection test
// ---------------------------------------------------------------------------

// TestConnection performs the cheapest authenticated call the platform
// offers, through the full resilience policy. Platforms exposing no listing
// operation are checked offline against their credential schema.
func (s *Service) TestConnection(ctx context.Context, id uuid.UUID) (*ConnectionTestResult, error) {
	intg, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	conn, err := s.connectors.Get(intg.Platform)
	if err != nil {
		return nil, err
	}
	creds, err := s.vault.Open(ctx, intg.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &ConnectionTestResult{IntegrationID: intg.ID, Platform: intg.Platform}

	var op func(context.Context) error
	caps := conn.Capabilities()
	switch {
	case caps.Has(integration.CapabilityListProducts):
		op = func(ctx context.Context) error {
			_, err := conn.ListProducts(ctx, creds, integration.PageRequest{Page: 1, Size: 1})
			return err
		}
	case caps.Has(integration.CapabilityListOrders):
		now := time.Now()
		op = func(ctx context.Context) error {
			_, err := conn.ListOrders(ctx, creds,
				integration.OrderWindow{Start: now.Add(-time.Hour), End: now},
				integration.PageRequest{Page: 1, Size: 1})
			return err
		}
	default:
		// No cheap remote probe; presence of every schema field is the best
		// signal available.
		for _, field := range integration.RequiredCredentialFields(intg.Platform) {
			if _, err := creds.Get(field); err != nil {
				result.OK = false
				result.Message = err.Error()
				return result, nil
			}
		}
		result.OK = true
		result.Message = "credentials present; platform offers no probe operation"
		return result, nil
	}

	_, err = s.invoker.Do(ctx, intg, conn, creds, op)
	result.Latency = time.Since(start)
	if err != nil {
		result.OK = false
		result.Message = err.Error()
		if f, ok := integration.AsFailure(err); ok {
			result.FailureKind = f.Kind
		}
		return result, nil
	}

	result.OK = true
	return result, nil
}
