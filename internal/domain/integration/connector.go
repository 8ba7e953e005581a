package integration

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies an external platform.
type PlatformCode string

const (
	// PlatformCodeTrendyol represents the Trendyol marketplace
	PlatformCodeTrendyol PlatformCode = "TRENDYOL"
	// PlatformCodeHepsiburada represents the Hepsiburada marketplace
	PlatformCodeHepsiburada PlatformCode = "HEPSIBURADA"
	// PlatformCodeN11 represents the N11 marketplace (XML API)
	PlatformCodeN11 PlatformCode = "N11"
	// PlatformCodeAmazonSP represents the Amazon Selling Partner API
	PlatformCodeAmazonSP PlatformCode = "AMAZON_SP"
	// PlatformCodeIyzico represents the Iyzico payment provider
	PlatformCodeIyzico PlatformCode = "IYZICO"
)

// IsValid returns true if the platform code is known.
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeTrendyol, PlatformCodeHepsiburada, PlatformCodeN11,
		PlatformCodeAmazonSP, PlatformCodeIyzico:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode.
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform.
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeTrendyol:
		return "Trendyol"
	case PlatformCodeHepsiburada:
		return "Hepsiburada"
	case PlatformCodeN11:
		return "N11"
	case PlatformCodeAmazonSP:
		return "Amazon"
	case PlatformCodeIyzico:
		return "iyzico"
	default:
		return string(c)
	}
}

// Category groups platforms by the business function they serve.
type Category string

const (
	CategoryMarketplace Category = "marketplace"
	CategoryPayment     Category = "payment"
	CategoryShipping    Category = "shipping"
	CategoryEInvoice    Category = "einvoice"
)

// IsValid returns true if the category is known.
func (c Category) IsValid() bool {
	switch c {
	case CategoryMarketplace, CategoryPayment, CategoryShipping, CategoryEInvoice:
		return true
	default:
		return false
	}
}

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

// Capability names one operation a platform may support. The orchestrator
// checks capability before dispatch and fails fast, never at the network
// layer.
type Capability string

const (
	CapabilityListProducts      Capability = "LIST_PRODUCTS"
	CapabilityUpsertProduct     Capability = "UPSERT_PRODUCT"
	CapabilityUpdateStock       Capability = "UPDATE_STOCK"
	CapabilityUpdatePrice       Capability = "UPDATE_PRICE"
	CapabilityListOrders        Capability = "LIST_ORDERS"
	CapabilityUpdateOrderStatus Capability = "UPDATE_ORDER_STATUS"
	CapabilityCancelOrder       Capability = "CANCEL_ORDER"
	CapabilityRefund            Capability = "REFUND"
	CapabilityListCategories    Capability = "LIST_CATEGORIES"
)

// String returns the string representation of Capability.
func (c Capability) String() string {
	return string(c)
}

// CapabilitySet is the set of operations a platform declares.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the set declares the capability.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the declared capabilities in unspecified order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}

// ---------------------------------------------------------------------------
// Connector port
// ---------------------------------------------------------------------------

// Connector is the uniform port every platform adapter implements. Operations
// take and return normalized representations only; wire formats stay inside
// the adapter. Every returned error is a *Failure from the closed taxonomy.
//
// An adapter only needs real implementations for the capabilities it
// declares; undeclared operations return an UNSUPPORTED_OPERATION failure,
// though the orchestrator checks Capabilities() first and never reaches them.
type Connector interface {
	// Platform returns the platform code this connector handles.
	Platform() PlatformCode

	// Capabilities returns the operations this platform supports.
	Capabilities() CapabilitySet

	// ListProducts pages through the products currently listed on the platform.
	ListProducts(ctx context.Context, creds CredentialHandle, page PageRequest) (*ProductPage, error)

	// UpsertProduct creates or updates one product listing and returns the
	// external product identifier.
	UpsertProduct(ctx context.Context, creds CredentialHandle, product *Product) (externalID string, err error)

	// UpdateStock pushes one stock level.
	UpdateStock(ctx context.Context, creds CredentialHandle, update *StockUpdate) error

	// UpdatePrice pushes one price.
	UpdatePrice(ctx context.Context, creds CredentialHandle, update *PriceUpdate) error

	// ListOrders pulls orders created within the given window.
	ListOrders(ctx context.Context, creds CredentialHandle, window OrderWindow, page PageRequest) (*OrderPage, error)

	// UpdateOrderStatus pushes a status transition for one order.
	UpdateOrderStatus(ctx context.Context, creds CredentialHandle, update *OrderStatusUpdate) error

	// CancelOrder cancels one order on the platform.
	CancelOrder(ctx context.Context, creds CredentialHandle, externalOrderID string, reason string) error

	// Refund issues a (partial) refund for one payment/order.
	Refund(ctx context.Context, creds CredentialHandle, req *RefundRequest) error

	// ListCategories returns the platform category tree (flattened).
	ListCategories(ctx context.Context, creds CredentialHandle) ([]CategoryNode, error)
}

// ---------------------------------------------------------------------------
// Auth sub-capabilities
// ---------------------------------------------------------------------------

// StaticKeyAuth marks connectors authenticating with fixed API keys.
type StaticKeyAuth interface {
	// AuthHeader builds the authorization header value from the credentials.
	AuthHeader(creds CredentialHandle) (string, error)
}

// OAuth2RefreshAuth marks connectors holding expiring access tokens. The
// resilience layer calls RefreshIfExpired transparently before retrying an
// AUTH failure once.
type OAuth2RefreshAuth interface {
	// RefreshIfExpired refreshes the access token when it is expired or
	// about to expire. It must be safe for concurrent use.
	RefreshIfExpired(ctx context.Context, creds CredentialHandle) error
}

// SignedRequestAuth marks connectors signing each request body (XML/HMAC
// style platforms).
type SignedRequestAuth interface {
	// Sign computes the request signature for the given payload.
	Sign(creds CredentialHandle, payload []byte) (string, error)
}

// WebhookVerifier is implemented by connectors whose platform delivers
// inbound webhooks. Unsigned or badly signed payloads are rejected before
// any processing.
type WebhookVerifier interface {
	// VerifyWebhook checks the signature over the raw payload.
	VerifyWebhook(creds CredentialHandle, payload []byte, signature string) error

	// WebhookEventID extracts the platform event identifier used as the
	// idempotency key, together with the normalized event type.
	WebhookEventID(payload []byte) (eventID string, eventType WebhookEventType, err error)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// ConnectorRegistry provides access to the connectors constructed at startup.
// It is an explicit value passed to the orchestrator and webhook ingestion;
// there is no ambient global registry.
type ConnectorRegistry interface {
	// Get returns the connector for the platform code.
	Get(code PlatformCode) (Connector, error)

	// List returns all registered connectors.
	List() []Connector
}

// ---------------------------------------------------------------------------
// Paging / windows
// ---------------------------------------------------------------------------

// PageRequest is a normalized pagination cursor (1-indexed pages).
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to sane bounds.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 || p.Size > 200 {
		p.Size = 50
	}
}

// OrderWindow bounds an order pull by creation time.
type OrderWindow struct {
	Start time.Time
	End   time.Time
}
