// Package sync orchestrates push runs of catalog data to platforms and pull
// runs of orders from them. A run fans (entity, integration) pairs out over a
// bounded worker pool; every pair ends in exactly one terminal log entry and
// partial failures never abort the rest of the run.
package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config bounds the orchestrator's concurrency and paging.
type Config struct {
	// GlobalConcurrency caps in-flight pairs across all integrations
	GlobalConcurrency int
	// PerIntegrationConcurrency caps in-flight pairs per integration
	PerIntegrationConcurrency int
	// PageSize is the page size used for remote listings
	PageSize int
	// OrderWindow is how far back an order pull reaches by default
	OrderWindow time.Duration
	// HistorySize bounds the in-memory job registry
	HistorySize int
}

func (c *Config) applyDefaults() {
	if c.GlobalConcurrency <= 0 {
		c.GlobalConcurrency = 16
	}
	if c.PerIntegrationConcurrency <= 0 {
		c.PerIntegrationConcurrency = 4
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.OrderWindow <= 0 {
		c.OrderWindow = 24 * time.Hour
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 256
	}
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Orchestrator runs sync jobs. Push runs (product, stock, price) fan internal
// entities out to every capable integration; order runs pull recent orders in
// and hand them to the order sink.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger

	integrations integration.IntegrationRepository
	mappings     integration.MappingRepository
	jobRepo      integration.SyncJobRepository
	logRepo      integration.SyncLogRepository

	connectors integration.ConnectorRegistry
	vault      integration.CredentialVault
	invoker    CallInvoker
	products   ProductSource
	orders     OrderSink

	registry *JobRegistry
	locks    *pairLocks

	globalSlots chan struct{}

	slotMu   sync.Mutex
	intSlots map[uuid.UUID]chan struct{}
}

// NewOrchestrator wires the orchestrator. The order sink may be nil when no
// downstream consumes pulled orders; mappings are still maintained.
func NewOrchestrator(
	cfg Config,
	integrations integration.IntegrationRepository,
	mappings integration.MappingRepository,
	jobRepo integration.SyncJobRepository,
	logRepo integration.SyncLogRepository,
	connectors integration.ConnectorRegistry,
	vault integration.CredentialVault,
	invoker CallInvoker,
	products ProductSource,
	orders OrderSink,
	logger *zap.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		cfg:          cfg,
		logger:       logger,
		integrations: integrations,
		mappings:     mappings,
		jobRepo:      jobRepo,
		logRepo:      logRepo,
		connectors:   connectors,
		vault:        vault,
		invoker:      invoker,
		products:     products,
		orders:       orders,
		registry:     NewJobRegistry(cfg.HistorySize),
		locks:        newPairLocks(),
		globalSlots:  make(chan struct{}, cfg.GlobalConcurrency),
		intSlots:     make(map[uuid.UUID]chan struct{}),
	}
}

// Submit accepts a job and runs it in the background. The returned snapshot
// carries the job ID the caller polls with.
func (o *Orchestrator) Submit(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
	job, err := integration.NewSyncJob(entityType, scope)
	if err != nil {
		return nil, err
	}
	if err := o.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.registry.Add(job, cancel)
	snapshot := *job

	go func() {
		defer cancel()
		o.execute(runCtx, job.ID)
	}()

	return &snapshot, nil
}

// RunSync executes a job synchronously and returns its terminal state.
func (o *Orchestrator) RunSync(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
	job, err := integration.NewSyncJob(entityType, scope)
	if err != nil {
		return nil, err
	}
	if err := o.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.registry.Add(job, cancel)

	o.execute(runCtx, job.ID)

	done, _ := o.registry.Snapshot(job.ID)
	return &done, nil
}

// RunDeltaSync runs a sync restricted to entities whose payload changed since
// their last successful push, plus previously failed pairs.
func (o *Orchestrator) RunDeltaSync(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
	scope.Delta = true
	return o.RunSync(ctx, entityType, scope)
}

// Job returns the current state of a job, falling back to the durable store
// for jobs evicted from the registry.
func (o *Orchestrator) Job(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	if snap, ok := o.registry.Snapshot(id); ok {
		return &snap, nil
	}
	return o.jobRepo.FindByID(ctx, id)
}

// JobLogs returns the per-pair breakdown of a job.
func (o *Orchestrator) JobLogs(ctx context.Context, id uuid.UUID) ([]integration.SyncLogEntry, error) {
	return o.logRepo.FindByJob(ctx, id)
}

// RecentJobs lists recently submitted jobs, newest first.
func (o *Orchestrator) RecentJobs(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	jobs := o.registry.Recent(limit)
	if len(jobs) > 0 {
		return jobs, nil
	}
	return o.jobRepo.FindRecent(ctx, limit)
}

// CancelJob requests cancellation of a running job. In-flight pairs finish;
// pairs not yet dispatched are abandoned.
func (o *Orchestrator) CancelJob(id uuid.UUID) bool {
	return o.registry.Cancel(id)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// target is one resolved integration a run dispatches against.
type target struct {
	intg  *integration.Integration
	conn  integration.Connector
	creds integration.CredentialHandle
}

func (o *Orchestrator) execute(ctx context.Context, jobID uuid.UUID) {
	persistCtx := context.WithoutCancel(ctx)

	var job integration.SyncJob
	o.registry.Update(jobID, func(j *integration.SyncJob) {
		j.Start()
		job = *j
	})
	if err := o.jobRepo.Save(persistCtx, &job); err != nil {
		o.logger.Warn("persisting job state failed", zap.String("job_id", jobID.String()), zap.Error(err))
	}

	targets, prelim, err := o.resolveTargets(ctx, &job)
	for i := range prelim {
		o.recordEntry(persistCtx, jobID, prelim[i])
	}
	if err != nil {
		o.finishWithError(persistCtx, jobID, err)
		return
	}

	switch job.EntityType {
	case integration.EntityTypeOrder:
		o.runPull(ctx, &job, targets)
	default:
		if err := o.runPush(ctx, &job, targets); err != nil {
			o.finishWithError(persistCtx, jobID, err)
			return
		}
	}

	cancelled := ctx.Err() != nil
	o.registry.Update(jobID, func(j *integration.SyncJob) {
		if cancelled {
			j.Cancel()
		} else {
			j.Finish()
		}
		job = *j
	})
	if err := o.jobRepo.Save(persistCtx, &job); err != nil {
		o.logger.Warn("persisting job state failed", zap.String("job_id", jobID.String()), zap.Error(err))
	}

	o.logger.Info("sync job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("entity_type", job.EntityType.String()),
		zap.String("status", job.Status.String()),
		zap.Int("total", job.Total),
		zap.Int("succeeded", job.Succeeded),
		zap.Int("failed", job.Failed),
		zap.Int("skipped", job.Skipped),
	)
}

func (o *Orchestrator) finishWithError(persistCtx context.Context, jobID uuid.UUID, cause error) {
	var job integration.SyncJob
	o.registry.Update(jobID, func(j *integration.SyncJob) {
		now := time.Now()
		j.Status = integration.SyncJobStatusFailed
		j.Error = cause.Error()
		j.FinishedAt = &now
		job = *j
	})
	if err := o.jobRepo.Save(persistCtx, &job); err != nil {
		o.logger.Warn("persisting job state failed", zap.String("job_id", jobID.String()), zap.Error(err))
	}
}

// resolveTargets turns the job scope into dispatchable targets. Explicitly
// named integrations that cannot serve the run each contribute one skipped or
// failed entry; auto-discovered ones are silently filtered.
func (o *Orchestrator) resolveTargets(ctx context.Context, job *integration.SyncJob) ([]target, []*integration.SyncLogEntry, error) {
	capability := job.EntityType.RequiredCapability()

	var candidates []*integration.Integration
	explicit := len(job.Scope.IntegrationIDs) > 0
	if explicit {
		for _, id := range job.Scope.IntegrationIDs {
			intg, err := o.integrations.FindByID(ctx, id)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve integration %s: %w", id, err)
			}
			candidates = append(candidates, intg)
		}
	} else {
		usable, err := o.integrations.FindUsable(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list usable integrations: %w", err)
		}
		for i := range usable {
			candidates = append(candidates, &usable[i])
		}
	}

	var targets []target
	var entries []*integration.SyncLogEntry
	for _, intg := range candidates {
		if !intg.Usable() {
			if explicit {
				e := integration.NewSyncLogEntry(job.ID, intg.ID, uuid.Nil, job.EntityType, integration.SyncOutcomeSkipped)
				e.Message = "integration not usable"
				entries = append(entries, e)
			}
			continue
		}

		conn, err := o.connectors.Get(intg.Platform)
		if err != nil {
			if explicit {
				e := integration.NewSyncLogEntry(job.ID, intg.ID, uuid.Nil, job.EntityType, integration.SyncOutcomeSkipped)
				e.Message = "no connector registered for " + intg.Platform.String()
				entries = append(entries, e)
			}
			continue
		}
		if !conn.Capabilities().Has(capability) {
			if explicit {
				e := integration.NewSyncLogEntry(job.ID, intg.ID, uuid.Nil, job.EntityType, integration.SyncOutcomeSkipped)
				e.Message = fmt.Sprintf("%s does not support %s", intg.Platform, capability)
				entries = append(entries, e)
			}
			continue
		}

		creds, err := o.vault.Open(ctx, intg.ID)
		if err != nil {
			e := integration.NewSyncLogEntry(job.ID, intg.ID, uuid.Nil, job.EntityType, integration.SyncOutcomeFailed)
			e.FailureKind = integration.FailureNotConfigured
			e.Message = "credentials unavailable: " + err.Error()
			entries = append(entries, e)
			continue
		}

		targets = append(targets, target{intg: intg, conn: conn, creds: creds})
	}

	// Preliminary entries count toward Total here; their outcomes are folded
	// in once, when execute replays them through recordEntry.
	if len(entries) > 0 {
		o.registry.Update(job.ID, func(j *integration.SyncJob) {
			j.Total += len(entries)
		})
	}

	return targets, entries, nil
}

// ---------------------------------------------------------------------------
// Push runs
// ---------------------------------------------------------------------------

func (o *Orchestrator) runPush(ctx context.Context, job *integration.SyncJob, targets []target) error {
	products, err := o.selectProducts(ctx, job, targets)
	if err != nil {
		return err
	}

	persistCtx := context.WithoutCancel(ctx)

	total := len(products) * len(targets)
	o.registry.Update(job.ID, func(j *integration.SyncJob) { j.Total += total })

	successByIntegration := make(map[uuid.UUID]int)
	var successMu sync.Mutex

	// One dispatcher per target, each gated on its own integration semaphore
	// before touching the global pool. A slow or rate-limited integration can
	// hold at most its per-integration share of global slots, so the other
	// targets keep dispatching around it.
	var targetWG sync.WaitGroup
	for ti := range targets {
		tgt := targets[ti]
		targetWG.Add(1)
		go func() {
			defer targetWG.Done()

			slots := o.integrationSlots(tgt.intg.ID)
			var pairWG sync.WaitGroup
			defer pairWG.Wait()

			for pi := range products {
				// Cancellation is observed between dispatches; started pairs
				// run to completion.
				if ctx.Err() != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case slots <- struct{}{}:
				}
				select {
				case <-ctx.Done():
					<-slots
					return
				case o.globalSlots <- struct{}{}:
				}

				product := products[pi]
				pairWG.Add(1)
				go func() {
					defer pairWG.Done()
					defer func() { <-o.globalSlots }()
					defer func() { <-slots }()

					entry := o.syncPair(ctx, job, tgt, &product)
					o.recordEntry(persistCtx, job.ID, entry)
					if entry.Outcome == integration.SyncOutcomeSuccess {
						successMu.Lock()
						successByIntegration[tgt.intg.ID]++
						successMu.Unlock()
					}
				}()
			}
		}()
	}
	targetWG.Wait()

	for id, n := range successByIntegration {
		if n == 0 {
			continue
		}
		for i := range targets {
			if targets[i].intg.ID == id {
				targets[i].intg.MarkSynced(time.Now())
				if err := o.integrations.Save(persistCtx, targets[i].intg); err != nil {
					o.logger.Warn("updating integration sync marker failed",
						zap.String("integration_id", id.String()), zap.Error(err))
				}
				break
			}
		}
	}

	return nil
}

// selectProducts resolves the internal entities a push run covers.
func (o *Orchestrator) selectProducts(ctx context.Context, job *integration.SyncJob, targets []target) ([]integration.Product, error) {
	if len(job.Scope.InternalEntityIDs) > 0 || !job.Scope.Delta {
		products, err := o.products.FindByIDs(ctx, job.Scope.InternalEntityIDs)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		return products, nil
	}

	// Delta runs narrow the candidate set to rows changed since the oldest
	// target's last sync. An integration that never synced forces a full
	// scan; the per-pair hash check still prevents no-op pushes.
	var since *time.Time
	for i := range targets {
		last := targets[i].intg.LastSyncAt
		if last == nil {
			since = nil
			break
		}
		if since == nil || last.Before(*since) {
			since = last
		}
	}
	if since == nil {
		products, err := o.products.FindByIDs(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		return products, nil
	}
	products, err := o.products.FindChangedSince(ctx, *since)
	if err != nil {
		return nil, fmt.Errorf("load changed products: %w", err)
	}

	// Pairs whose last push failed are retried even when the internal row did
	// not change, otherwise a transient remote failure would strand them
	// until the next full run.
	retryIDs, err := o.failedPairIDs(ctx, targets, products)
	if err != nil {
		return nil, err
	}
	if len(retryIDs) > 0 {
		retry, err := o.products.FindByIDs(ctx, retryIDs)
		if err != nil {
			return nil, fmt.Errorf("load failed-pair products: %w", err)
		}
		products = append(products, retry...)
	}
	return products, nil
}

// failedPairIDs collects internal entity IDs of error-state mappings across
// the targets, excluding entities already in the changed set.
func (o *Orchestrator) failedPairIDs(ctx context.Context, targets []target, changed []integration.Product) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(changed))
	for i := range changed {
		if id, err := uuid.Parse(changed[i].InternalID); err == nil {
			seen[id] = true
		}
	}

	var ids []uuid.UUID
	for i := range targets {
		failed, err := o.mappings.FindFailed(ctx, targets[i].intg.ID)
		if err != nil {
			return nil, fmt.Errorf("list failed pairs: %w", err)
		}
		for j := range failed {
			if failed[j].EntityType == integration.EntityTypeOrder {
				continue
			}
			id := failed[j].InternalEntityID
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// syncPair pushes one entity to one integration and returns the pair's
// terminal entry. The pair lock covers the remote call and the mapping
// update so a concurrent run of the same pair cannot interleave.
func (o *Orchestrator) syncPair(ctx context.Context, job *integration.SyncJob, tgt target, product *integration.Product) *integration.SyncLogEntry {
	start := time.Now()

	internalID, err := uuid.Parse(product.InternalID)
	if err != nil {
		entry := integration.NewSyncLogEntry(job.ID, tgt.intg.ID, uuid.Nil, job.EntityType, integration.SyncOutcomeFailed)
		entry.Message = fmt.Sprintf("invalid internal entity ID %q", product.InternalID)
		entry.Duration = time.Since(start)
		return entry
	}

	unlock := o.locks.lock(internalID.String() + "|" + tgt.intg.ID.String())
	defer unlock()

	entry := integration.NewSyncLogEntry(job.ID, tgt.intg.ID, internalID, job.EntityType, integration.SyncOutcomeSuccess)

	mapping, err := o.mappings.FindByPair(ctx, internalID, tgt.intg.ID)
	if err != nil {
		if !errors.Is(err, integration.ErrMappingNotFound) {
			entry.Outcome = integration.SyncOutcomeFailed
			entry.Message = "load mapping: " + err.Error()
			entry.Duration = time.Since(start)
			return entry
		}
		mapping, err = integration.NewMappingRecord(internalID, tgt.intg.ID, job.EntityType)
		if err != nil {
			entry.Outcome = integration.SyncOutcomeFailed
			entry.Message = err.Error()
			entry.Duration = time.Since(start)
			return entry
		}
	}

	hash := pairHash(job.EntityType, product)
	if mapping.UpToDate(hash) {
		entry.Outcome = integration.SyncOutcomeSkipped
		entry.Message = "payload unchanged"
		entry.Duration = time.Since(start)
		return entry
	}

	var externalID string
	var op func(context.Context) error
	switch job.EntityType {
	case integration.EntityTypeProduct:
		op = func(ctx context.Context) error {
			id, err := tgt.conn.UpsertProduct(ctx, tgt.creds, product)
			if err == nil {
				externalID = id
			}
			return err
		}
	case integration.EntityTypeStock:
		update := &integration.StockUpdate{
			InternalID: product.InternalID,
			ExternalID: mapping.ExternalID,
			SKU:        product.SKU,
			Quantity:   product.Stock,
		}
		op = func(ctx context.Context) error {
			return tgt.conn.UpdateStock(ctx, tgt.creds, update)
		}
	case integration.EntityTypePrice:
		update := &integration.PriceUpdate{
			InternalID: product.InternalID,
			ExternalID: mapping.ExternalID,
			SKU:        product.SKU,
			Price:      product.Price,
			ListPrice:  product.ListPrice,
			Currency:   product.Currency,
		}
		op = func(ctx context.Context) error {
			return tgt.conn.UpdatePrice(ctx, tgt.creds, update)
		}
	default:
		entry.Outcome = integration.SyncOutcomeFailed
		entry.Message = "unsupported entity type " + job.EntityType.String()
		entry.Duration = time.Since(start)
		return entry
	}

	attempts, err := o.invoker.Do(ctx, tgt.intg, tgt.conn, tgt.creds, op)
	entry.Attempts = attempts
	if err != nil {
		if integration.IsKind(err, integration.FailureCircuitOpen) {
			entry.Outcome = integration.SyncOutcomeSkipped
			entry.Message = "circuit open"
		} else {
			entry.Outcome = integration.SyncOutcomeFailed
			entry.Message = err.Error()
			if f, ok := integration.AsFailure(err); ok {
				entry.FailureKind = f.Kind
			}
		}
		// The push did not land either way; the error state keeps the pair
		// in the candidate set of the next delta run.
		o.flagPair(context.WithoutCancel(ctx), mapping)
		entry.Duration = time.Since(start)
		return entry
	}

	if externalID != "" {
		if err := mapping.BindExternal(externalID); err != nil {
			entry.Outcome = integration.SyncOutcomeFailed
			entry.Message = fmt.Sprintf("bind external ID %q: %v", externalID, err)
			o.flagPair(context.WithoutCancel(ctx), mapping)
			entry.Duration = time.Since(start)
			return entry
		}
	}
	mapping.MarkSynced(hash, time.Now())
	if err := o.mappings.Save(context.WithoutCancel(ctx), mapping); err != nil {
		entry.Outcome = integration.SyncOutcomeFailed
		entry.Message = "save mapping: " + err.Error()
		entry.Duration = time.Since(start)
		return entry
	}

	entry.Duration = time.Since(start)
	return entry
}

// flagPair persists the error state of a mapping after a failed push.
func (o *Orchestrator) flagPair(ctx context.Context, mapping *integration.MappingRecord) {
	mapping.MarkError()
	if err := o.mappings.Save(ctx, mapping); err != nil {
		o.logger.Warn("flagging failed pair for retry failed",
			zap.String("mapping_id", mapping.ID.String()),
			zap.String("integration_id", mapping.IntegrationID.String()),
			zap.Error(err))
	}
}

// pairHash returns the content hash a mapping stores for delta detection.
// Product pushes hash the full payload; stock and price pushes hash only the
// slice of the row the platform call carries.
func pairHash(entityType integration.EntityType, product *integration.Product) string {
	switch entityType {
	case integration.EntityTypeStock:
		return slimHash(struct {
			SKU      string `json:"sku"`
			Quantity int    `json:"quantity"`
		}{product.SKU, product.Stock})
	case integration.EntityTypePrice:
		return slimHash(struct {
			SKU       string `json:"sku"`
			Price     string `json:"price"`
			ListPrice string `json:"list_price"`
			Currency  string `json:"currency"`
		}{product.SKU, product.Price.String(), product.ListPrice.String(), product.Currency})
	default:
		return product.PayloadHash()
	}
}

func slimHash(v any) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------------------------------------
// Order pulls
// ---------------------------------------------------------------------------

func (o *Orchestrator) runPull(ctx context.Context, job *integration.SyncJob, targets []target) {
	persistCtx := context.WithoutCancel(ctx)

	o.registry.Update(job.ID, func(j *integration.SyncJob) { j.Total += len(targets) })

	var wg sync.WaitGroup
dispatch:
	for i := range targets {
		if ctx.Err() != nil {
			break dispatch
		}
		select {
		case <-ctx.Done():
			break dispatch
		case o.globalSlots <- struct{}{}:
		}

		tgt := targets[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-o.globalSlots }()

			entry := o.pullOrders(ctx, job, tgt)
			o.recordEntry(persistCtx, job.ID, entry)
			if entry.Outcome == integration.SyncOutcomeSuccess {
				tgt.intg.MarkSynced(time.Now())
				if err := o.integrations.Save(persistCtx, tgt.intg); err != nil {
					o.logger.Warn("updating integration sync marker failed",
						zap.String("integration_id", tgt.intg.ID.String()), zap.Error(err))
				}
			}
		}()
	}
	wg.Wait()
}

// pullOrders pages through the recent order window of one integration,
// upserts an order mapping per order, and hands each order to the sink.
func (o *Orchestrator) pullOrders(ctx context.Context, job *integration.SyncJob, tgt target) *integration.SyncLogEntry {
	start := time.Now()
	entry := integration.NewSyncLogEntry(job.ID, tgt.intg.ID, uuid.Nil, integration.EntityTypeOrder, integration.SyncOutcomeSuccess)

	now := time.Now()
	window := integration.OrderWindow{Start: now.Add(-o.cfg.OrderWindow), End: now}
	if job.Scope.Delta && tgt.intg.LastSyncAt != nil && tgt.intg.LastSyncAt.After(window.Start) {
		window.Start = *tgt.intg.LastSyncAt
	}

	imported := 0
	page := integration.PageRequest{Page: 1, Size: o.cfg.PageSize}
	for {
		var result *integration.OrderPage
		attempts, err := o.invoker.Do(ctx, tgt.intg, tgt.conn, tgt.creds, func(ctx context.Context) error {
			p, err := tgt.conn.ListOrders(ctx, tgt.creds, window, page)
			if err == nil {
				result = p
			}
			return err
		})
		entry.Attempts += attempts
		if err != nil {
			if integration.IsKind(err, integration.FailureCircuitOpen) {
				entry.Outcome = integration.SyncOutcomeSkipped
				entry.Message = "circuit open"
			} else {
				entry.Outcome = integration.SyncOutcomeFailed
				entry.Message = err.Error()
				if f, ok := integration.AsFailure(err); ok {
					entry.FailureKind = f.Kind
				}
			}
			entry.Duration = time.Since(start)
			return entry
		}

		for i := range result.Items {
			if err := o.importOrder(ctx, tgt, &result.Items[i]); err != nil {
				o.logger.Warn("order import failed",
					zap.String("integration_id", tgt.intg.ID.String()),
					zap.String("external_order_id", result.Items[i].ExternalID),
					zap.Error(err))
				continue
			}
			imported++
		}

		if !result.HasNext() {
			break
		}
		page.Page++
	}

	entry.Message = fmt.Sprintf("imported %d orders", imported)
	entry.Duration = time.Since(start)
	return entry
}

// importOrder upserts the order mapping and forwards the order to the sink.
func (o *Orchestrator) importOrder(ctx context.Context, tgt target, order *integration.Order) error {
	unlock := o.locks.lock(order.ExternalID + "|" + tgt.intg.ID.String())
	defer unlock()

	mapping, err := o.mappings.FindByExternal(ctx, tgt.intg.ID, order.ExternalID)
	if err != nil {
		if !errors.Is(err, integration.ErrMappingNotFound) {
			return fmt.Errorf("load order mapping: %w", err)
		}
		mapping, err = integration.NewMappingRecord(uuid.New(), tgt.intg.ID, integration.EntityTypeOrder)
		if err != nil {
			return err
		}
		if err := mapping.BindExternal(order.ExternalID); err != nil {
			return err
		}
	}
	mapping.MarkSynced(slimHash(struct {
		Status string `json:"status"`
		Total  string `json:"total"`
	}{order.Status.String(), order.Total.String()}), time.Now())
	if err := o.mappings.Save(ctx, mapping); err != nil {
		return fmt.Errorf("save order mapping: %w", err)
	}

	if o.orders != nil {
		if err := o.orders.ImportOrder(ctx, tgt.intg, order); err != nil {
			return fmt.Errorf("order sink: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// integrationSlots returns the per-integration semaphore, creating it on
// first use.
func (o *Orchestrator) integrationSlots(id uuid.UUID) chan struct{} {
	o.slotMu.Lock()
	defer o.slotMu.Unlock()

	slots, ok := o.intSlots[id]
	if !ok {
		slots = make(chan struct{}, o.cfg.PerIntegrationConcurrency)
		o.intSlots[id] = slots
	}
	return slots
}

// recordEntry persists one terminal pair entry and folds it into the job
// tallies.
func (o *Orchestrator) recordEntry(persistCtx context.Context, jobID uuid.UUID, entry *integration.SyncLogEntry) {
	if err := o.logRepo.Save(persistCtx, entry); err != nil {
		o.logger.Warn("persisting sync log entry failed",
			zap.String("job_id", jobID.String()),
			zap.String("integration_id", entry.IntegrationID.String()),
			zap.Error(err))
	}
	o.registry.Update(jobID, func(j *integration.SyncJob) {
		switch entry.Outcome {
		case integration.SyncOutcomeSuccess:
			j.Succeeded++
		case integration.SyncOutcomeFailed:
			j.Failed++
		case integration.SyncOutcomeSkipped:
			j.Skipped++
		}
	})
}
