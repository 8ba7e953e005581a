package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memIntegrationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]integration.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{rows: make(map[uuid.UUID]integration.Integration)}
}

func (r *memIntegrationRepo) Save(_ context.Context, intg *integration.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[intg.ID] = *intg
	return nil
}

func (r *memIntegrationRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.DeletedAt != nil {
		return nil, integration.ErrIntegrationNotFound
	}
	out := row
	return &out, nil
}

func (r *memIntegrationRepo) FindByPlatform(_ context.Context, platform integration.PlatformCode) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Platform == platform && row.DeletedAt == nil {
			out := row
			return &out, nil
		}
	}
	return nil, integration.ErrIntegrationNotFound
}

func (r *memIntegrationRepo) FindAll(_ context.Context, _ integration.IntegrationFilter) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, row := range r.rows {
		if row.DeletedAt == nil {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memIntegrationRepo) FindUsable(_ context.Context) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, row := range r.rows {
		if row.Usable() {
			out = append(out, row)
		}
	}
	return out, nil
}

var _ integration.IntegrationRepository = (*memIntegrationRepo)(nil)

type memMappingRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]integration.MappingRecord
}

func newMemMappingRepo() *memMappingRepo {
	return &memMappingRepo{rows: make(map[uuid.UUID]integration.MappingRecord)}
}

func (r *memMappingRepo) Save(_ context.Context, record *integration.MappingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != record.ID &&
			row.InternalEntityID == record.InternalEntityID &&
			row.IntegrationID == record.IntegrationID {
			return integration.ErrMappingAlreadyExists
		}
	}
	r.rows[record.ID] = *record
	return nil
}

func (r *memMappingRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.MappingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, integration.ErrMappingNotFound
	}
	out := row
	return &out, nil
}

func (r *memMappingRepo) FindByPair(_ context.Context, internalEntityID, integrationID uuid.UUID) (*integration.MappingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.InternalEntityID == internalEntityID && row.IntegrationID == integrationID {
			out := row
			return &out, nil
		}
	}
	return nil, integration.ErrMappingNotFound
}

func (r *memMappingRepo) FindByExternal(_ context.Context, integrationID uuid.UUID, externalID string) (*integration.MappingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.IntegrationID == integrationID && row.ExternalID == externalID {
			out := row
			return &out, nil
		}
	}
	return nil, integration.ErrMappingNotFound
}

func (r *memMappingRepo) FindByIntegration(_ context.Context, integrationID uuid.UUID, entityType integration.EntityType) ([]integration.MappingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.MappingRecord
	for _, row := range r.rows {
		if row.IntegrationID == integrationID && row.EntityType == entityType {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memMappingRepo) FindFailed(_ context.Context, integrationID uuid.UUID) ([]integration.MappingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.MappingRecord
	for _, row := range r.rows {
		if row.IntegrationID == integrationID && row.SyncState == integration.SyncStateError {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return integration.ErrMappingNotFound
	}
	delete(r.rows, id)
	return nil
}

var _ integration.MappingRepository = (*memMappingRepo)(nil)

type memJobRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]integration.SyncJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{rows: make(map[uuid.UUID]integration.SyncJob)}
}

func (r *memJobRepo) Save(_ context.Context, job *integration.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[job.ID] = *job
	return nil
}

func (r *memJobRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, integration.ErrSyncJobNotFound
	}
	out := row
	return &out, nil
}

func (r *memJobRepo) FindRecent(_ context.Context, limit int) ([]integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncJob
	for _, row := range r.rows {
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ integration.SyncJobRepository = (*memJobRepo)(nil)

type memLogRepo struct {
	mu   sync.Mutex
	rows []integration.SyncLogEntry
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{}
}

func (r *memLogRepo) Save(_ context.Context, entry *integration.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *memLogRepo) FindByJob(_ context.Context, jobID uuid.UUID) ([]integration.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncLogEntry
	for _, row := range r.rows {
		if row.JobID == jobID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memLogRepo) FindByIntegration(_ context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncLogEntry
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].IntegrationID == integrationID {
			out = append(out, r.rows[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var _ integration.SyncLogRepository = (*memLogRepo)(nil)

// ---------------------------------------------------------------------------
// Connector and registry stubs
// ---------------------------------------------------------------------------

type stubConnector struct {
	platform integration.PlatformCode
	caps     integration.CapabilitySet

	upsertFn func(*integration.Product) (string, error)
	stockFn  func(*integration.StockUpdate) error
	priceFn  func(*integration.PriceUpdate) error
	ordersFn func(integration.OrderWindow, integration.PageRequest) (*integration.OrderPage, error)

	upsertCalls atomic.Int64
	stockCalls  atomic.Int64
	priceCalls  atomic.Int64
	orderCalls  atomic.Int64
}

func newStubConnector(platform integration.PlatformCode, caps ...integration.Capability) *stubConnector {
	return &stubConnector{platform: platform, caps: integration.NewCapabilitySet(caps...)}
}

func (c *stubConnector) Platform() integration.PlatformCode      { return c.platform }
func (c *stubConnector) Capabilities() integration.CapabilitySet { return c.caps }

func (c *stubConnector) unsupported(capability integration.Capability) error {
	return integration.NewUnsupportedOperationFailure(c.platform, capability)
}

func (c *stubConnector) ListProducts(context.Context, integration.CredentialHandle, integration.PageRequest) (*integration.ProductPage, error) {
	return nil, c.unsupported(integration.CapabilityListProducts)
}

func (c *stubConnector) UpsertProduct(_ context.Context, _ integration.CredentialHandle, product *integration.Product) (string, error) {
	c.upsertCalls.Add(1)
	if c.upsertFn == nil {
		return "", c.unsupported(integration.CapabilityUpsertProduct)
	}
	return c.upsertFn(product)
}

func (c *stubConnector) UpdateStock(_ context.Context, _ integration.CredentialHandle, update *integration.StockUpdate) error {
	c.stockCalls.Add(1)
	if c.stockFn == nil {
		return c.unsupported(integration.CapabilityUpdateStock)
	}
	return c.stockFn(update)
}

func (c *stubConnector) UpdatePrice(_ context.Context, _ integration.CredentialHandle, update *integration.PriceUpdate) error {
	c.priceCalls.Add(1)
	if c.priceFn == nil {
		return c.unsupported(integration.CapabilityUpdatePrice)
	}
	return c.priceFn(update)
}

func (c *stubConnector) ListOrders(_ context.Context, _ integration.CredentialHandle, window integration.OrderWindow, page integration.PageRequest) (*integration.OrderPage, error) {
	c.orderCalls.Add(1)
	if c.ordersFn == nil {
		return nil, c.unsupported(integration.CapabilityListOrders)
	}
	return c.ordersFn(window, page)
}

func (c *stubConnector) UpdateOrderStatus(context.Context, integration.CredentialHandle, *integration.OrderStatusUpdate) error {
	return c.unsupported(integration.CapabilityUpdateOrderStatus)
}

func (c *stubConnector) CancelOrder(context.Context, integration.CredentialHandle, string, string) error {
	return c.unsupported(integration.CapabilityCancelOrder)
}

func (c *stubConnector) Refund(context.Context, integration.CredentialHandle, *integration.RefundRequest) error {
	return c.unsupported(integration.CapabilityRefund)
}

func (c *stubConnector) ListCategories(context.Context, integration.CredentialHandle) ([]integration.CategoryNode, error) {
	return nil, c.unsupported(integration.CapabilityListCategories)
}

var _ integration.Connector = (*stubConnector)(nil)

type stubRegistry struct {
	connectors map[integration.PlatformCode]integration.Connector
}

func newStubRegistry(connectors ...integration.Connector) *stubRegistry {
	m := make(map[integration.PlatformCode]integration.Connector)
	for _, c := range connectors {
		m[c.Platform()] = c
	}
	return &stubRegistry{connectors: m}
}

func (r *stubRegistry) Get(code integration.PlatformCode) (integration.Connector, error) {
	c, ok := r.connectors[code]
	if !ok {
		return nil, integration.ErrConnectorNotRegistered
	}
	return c, nil
}

func (r *stubRegistry) List() []integration.Connector {
	out := make([]integration.Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

var _ integration.ConnectorRegistry = (*stubRegistry)(nil)

// ---------------------------------------------------------------------------
// Vault, invoker, source, sink stubs
// ---------------------------------------------------------------------------

type stubVault struct {
	mu      sync.Mutex
	handles map[uuid.UUID]integration.CredentialHandle
	missing map[uuid.UUID]bool
}

func newStubVault() *stubVault {
	return &stubVault{
		handles: make(map[uuid.UUID]integration.CredentialHandle),
		missing: make(map[uuid.UUID]bool),
	}
}

func (v *stubVault) Store(_ context.Context, integrationID uuid.UUID, platform integration.PlatformCode, fields map[string]string, sandbox bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handles[integrationID] = integration.NewCredentialHandle(integrationID, platform, fields, sandbox)
	return nil
}

func (v *stubVault) Open(_ context.Context, integrationID uuid.UUID) (integration.CredentialHandle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.missing[integrationID] {
		return integration.CredentialHandle{}, integration.ErrCredentialsNotFound
	}
	h, ok := v.handles[integrationID]
	if !ok {
		return integration.CredentialHandle{}, integration.ErrCredentialsNotFound
	}
	return h, nil
}

func (v *stubVault) Delete(_ context.Context, integrationID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.handles, integrationID)
	return nil
}

var _ integration.CredentialVault = (*stubVault)(nil)

// directInvoker calls the operation once without any resilience policy.
type directInvoker struct{}

func (directInvoker) Do(ctx context.Context, _ *integration.Integration, _ integration.Connector, _ integration.CredentialHandle, op func(context.Context) error) (int, error) {
	return 1, op(ctx)
}

var _ CallInvoker = directInvoker{}

type stubProductSource struct {
	mu      sync.Mutex
	all     []integration.Product
	changed []integration.Product

	changedSinceCalls int
	lastSince         time.Time
}

func (s *stubProductSource) FindByIDs(_ context.Context, ids []uuid.UUID) ([]integration.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return append([]integration.Product(nil), s.all...), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id.String()] = true
	}
	var out []integration.Product
	for _, p := range s.all {
		if want[p.InternalID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductSource) FindChangedSince(_ context.Context, t time.Time) ([]integration.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changedSinceCalls++
	s.lastSince = t
	return append([]integration.Product(nil), s.changed...), nil
}

var _ ProductSource = (*stubProductSource)(nil)

type recordingOrderSink struct {
	mu     sync.Mutex
	orders []integration.Order
}

func (s *recordingOrderSink) ImportOrder(_ context.Context, _ *integration.Integration, order *integration.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, *order)
	return nil
}

var _ OrderSink = (*recordingOrderSink)(nil)
