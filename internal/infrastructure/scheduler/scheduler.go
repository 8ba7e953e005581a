// Package scheduler drives unattended sync runs. Catalog deltas are pushed
// on one interval and recent orders pulled on another, so platforms stay
// current without an operator submitting jobs by hand.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// SyncTrigger submits a sync run. The orchestrator satisfies it.
type SyncTrigger interface {
	Submit(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error)
}

// Config holds the scheduler intervals. A zero interval disables that loop.
type Config struct {
	// DeltaInterval is how often changed catalog data is pushed out
	DeltaInterval time.Duration
	// OrderPullInterval is how often recent orders are pulled in
	OrderPullInterval time.Duration
}

// deltaEntities are the push runs a delta tick submits, in order.
var deltaEntities = []integration.EntityType{
	integration.EntityTypeProduct,
	integration.EntityTypeStock,
	integration.EntityTypePrice,
}

// SyncScheduler submits periodic sync jobs to the orchestrator. Each tick is
// fire-and-forget: the orchestrator bounds concurrency and records the run,
// so an overlapping tick only queues behind the previous one.
type SyncScheduler struct {
	cfg     Config
	trigger SyncTrigger
	logger  *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewSyncScheduler creates the scheduler. It does nothing until Start.
func NewSyncScheduler(cfg Config, trigger SyncTrigger, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		cfg:     cfg,
		trigger: trigger,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start launches the enabled loops.
func (s *SyncScheduler) Start() {
	if s.cfg.DeltaInterval > 0 {
		s.wg.Add(1)
		go s.loop(s.cfg.DeltaInterval, s.runDelta)
		s.logger.Info("Delta sync loop started", zap.Duration("interval", s.cfg.DeltaInterval))
	}
	if s.cfg.OrderPullInterval > 0 {
		s.wg.Add(1)
		go s.loop(s.cfg.OrderPullInterval, s.runOrderPull)
		s.logger.Info("Order pull loop started", zap.Duration("interval", s.cfg.OrderPullInterval))
	}
}

// Stop terminates the loops and waits for in-flight submissions. Jobs already
// accepted by the orchestrator keep running.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *SyncScheduler) loop(interval time.Duration, tick func(context.Context)) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			tick(context.Background())
		}
	}
}

func (s *SyncScheduler) runDelta(ctx context.Context) {
	for _, entityType := range deltaEntities {
		job, err := s.trigger.Submit(ctx, entityType, integration.SyncScope{Delta: true})
		if err != nil {
			s.logger.Warn("Scheduled delta sync rejected",
				zap.String("entity_type", entityType.String()),
				zap.Error(err))
			continue
		}
		s.logger.Debug("Scheduled delta sync submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("entity_type", entityType.String()))
	}
}

func (s *SyncScheduler) runOrderPull(ctx context.Context) {
	job, err := s.trigger.Submit(ctx, integration.EntityTypeOrder, integration.SyncScope{})
	if err != nil {
		s.logger.Warn("Scheduled order pull rejected", zap.Error(err))
		return
	}
	s.logger.Debug("Scheduled order pull submitted", zap.String("job_id", job.ID.String()))
}
