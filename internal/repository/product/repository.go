package product

import (
	"context"

	"soapstore/internal/domain"
)

// Repository is the product oracle: the authoritative read side for price and
// stock, plus the one sanctioned stock mutation, which only the payment
// reconciler may trigger.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// Upsert inserts or updates a catalog record, keyed by name. Used by the
	// seed and importer tooling, not by the request path.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)

	// ReduceStockForOrder decrements stock for every line of the order,
	// clamped at zero, inside one transaction. It is idempotent per order:
	// the first call stamps the order's stock_reduced_at marker and later
	// calls are no-ops.
	ReduceStockForOrder(ctx context.Context, orderID string) error
}
