package connectors

import (
	"context"
	"fmt"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// Registry holds the connectors constructed at startup, keyed by platform.
type Registry struct {
	connectors map[integration.PlatformCode]integration.Connector
}

// NewRegistry creates a registry from the given connectors.
func NewRegistry(conns ...integration.Connector) *Registry {
	r := &Registry{connectors: make(map[integration.PlatformCode]integration.Connector, len(conns))}
	for _, c := range conns {
		r.connectors[c.Platform()] = c
	}
	return r
}

// Get returns the connector for the platform code.
func (r *Registry) Get(code integration.PlatformCode) (integration.Connector, error) {
	c, ok := r.connectors[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrConnectorNotRegistered, code)
	}
	return c, nil
}

// List returns all registered connectors.
func (r *Registry) List() []integration.Connector {
	out := make([]integration.Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

// ---------------------------------------------------------------------------
// Unsupported operation defaults
// ---------------------------------------------------------------------------

// unsupportedOps supplies UNSUPPORTED_OPERATION stubs for every connector
// operation. Adapters embed it and override the operations their platform
// declares; the orchestrator checks Capabilities() first, so these stubs are
// only reachable through a misconfigured direct call.
type unsupportedOps struct {
	platform integration.PlatformCode
}

func (u unsupportedOps) ListProducts(context.Context, integration.CredentialHandle, integration.PageRequest) (*integration.ProductPage, error) {
	return nil, integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityListProducts)
}

func (u unsupportedOps) UpsertProduct(context.Context, integration.CredentialHandle, *integration.Product) (string, error) {
	return "", integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityUpsertProduct)
}

func (u unsupportedOps) UpdateStock(context.Context, integration.CredentialHandle, *integration.StockUpdate) error {
	return integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityUpdateStock)
}

func (u unsupportedOps) UpdatePrice(context.Context, integration.CredentialHandle, *integration.PriceUpdate) error {
	return integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityUpdatePrice)
}

func (u unsupportedOps) ListOrders(context.Context, integration.CredentialHandle, integration.OrderWindow, integration.PageRequest) (*integration.OrderPage, error) {
	return nil, integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityListOrders)
}

func (u unsupportedOps) UpdateOrderStatus(context.Context, integration.CredentialHandle, *integration.OrderStatusUpdate) error {
	return integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityUpdateOrderStatus)
}

func (u unsupportedOps) CancelOrder(context.Context, integration.CredentialHandle, string, string) error {
	return integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityCancelOrder)
}

func (u unsupportedOps) Refund(context.Context, integration.CredentialHandle, *integration.RefundRequest) error {
	return integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityRefund)
}

func (u unsupportedOps) ListCategories(context.Context, integration.CredentialHandle) ([]integration.CategoryNode, error) {
	return nil, integration.NewUnsupportedOperationFailure(u.platform, integration.CapabilityListCategories)
}

// Ensure Registry implements ConnectorRegistry interface
var _ integration.ConnectorRegistry = (*Registry)(nil)
