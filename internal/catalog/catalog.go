package catalog

import (
	"context"
	"errors"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrUpstreamUnavailable covers catalog timeouts and an open circuit
	// breaker. Callers treat the affected keys as unknown rather than
	// failing the cart operation.
	ErrUpstreamUnavailable = errors.New("catalog unavailable")
)

// ProductSource is the catalog's read port: current price and stock for one
// product variant.
type ProductSource interface {
	GetStockAndPrice(ctx context.Context, productID int64, variantID string) (domain.ProductSnapshot, error)
}

// SnapshotReader is what cart-side consumers depend on. BatchSnapshots
// returns entries only for keys it could resolve; missing keys mean the
// catalog has no data (or was unreachable) and must not be read as sold out.
type SnapshotReader interface {
	BatchSnapshots(ctx context.Context, keys []domain.ItemKey) map[domain.ItemKey]domain.ProductSnapshot
}
