package order

import (
	"context"
	"time"

	"soapstore/internal/domain"
)

// CreateOrderInput carries everything the ledger needs to durably record an
// order. Line prices are snapshots taken from the product oracle by the
// caller at creation time.
type CreateOrderInput struct {
	UserID            string
	ShippingAddressID string
	ShippingCents     int64
	TotalCents        int64
	ExpiresAt         time.Time
	Lines             []domain.OrderLine
}

type Repository interface {
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// MarkPaid flips pending -> paid with a conditional update. It returns
	// domain.ErrAlreadyPaid when the order was paid before (idempotent skip),
	// domain.ErrOrderNotPending when the order is canceled or expired, and
	// domain.ErrNotFound when there is no such order.
	MarkPaid(ctx context.Context, orderID string) error

	// Expire flips pending -> expired. Losing the race to a concurrent
	// transition is not an error.
	Expire(ctx context.Context, orderID string) error

	// CancelPendingByUser cancels the user's pending order and returns its ID,
	// or domain.ErrNoPendingOrder.
	CancelPendingByUser(ctx context.Context, userID string) (string, error)

	RecordRetry(ctx context.Context, orderID string) error
}
