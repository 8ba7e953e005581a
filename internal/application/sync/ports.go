package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// ProductSource supplies the internal catalog rows a push run fans out. Stock
// and price runs read the same rows; the orchestrator extracts the slice a
// platform call needs.
type ProductSource interface {
	// FindByIDs returns the products for the given internal IDs. An empty
	// slice selects every syncable product.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]integration.Product, error)

	// FindChangedSince returns products whose content changed after t.
	FindChangedSince(ctx context.Context, t time.Time) ([]integration.Product, error)
}

// OrderSink receives normalized orders pulled from platforms. Pulled orders
// and webhook-delivered order events converge on the same implementation so
// both paths apply identical import semantics.
type OrderSink interface {
	ImportOrder(ctx context.Context, intg *integration.Integration, order *integration.Order) error
}

// CallInvoker executes one platform operation under the resilience policy
// and reports the attempt count consumed.
type CallInvoker interface {
	Do(ctx context.Context, intg *integration.Integration, conn integration.Connector, creds integration.CredentialHandle, op func(context.Context) error) (int, error)
}
