package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrPendingOrderExists rejects creating a second pending order for a user.
	ErrPendingOrderExists = errors.New("payment already pending")

	// ErrNoPendingOrder rejects retake/cancel when the user has nothing pending.
	ErrNoPendingOrder = errors.New("no pending order")

	// ErrOrderNotPending rejects a transition on an order in a terminal state.
	ErrOrderNotPending = errors.New("order is not pending")

	// ErrAlreadyPaid marks an idempotent-skip: the order was paid before.
	ErrAlreadyPaid = errors.New("order already paid")

	// ErrOutOfStock rejects an order line whose product has no stock left.
	ErrOutOfStock = errors.New("product out of stock")

	// ErrEmptyOrder rejects order creation from an empty selection.
	ErrEmptyOrder = errors.New("order has no lines")
)
