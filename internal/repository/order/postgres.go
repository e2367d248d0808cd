package order

import (
	"context"
	"errors"
	"io"
	"log"

	"soapstore/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id::text, user_id, status, total_cents, shipping_cents, shipping_address_id::text, created_at, expires_at, last_retry_at, stock_reduced_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var o domain.Order
	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, status, total_cents, shipping_cents, shipping_address_id, expires_at)
VALUES ($1, 'pending', $2, $3, $4, $5)
RETURNING `+orderColumns+`
`, in.UserID, in.TotalCents, in.ShippingCents, in.ShippingAddressID, in.ExpiresAt).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.ShippingCents,
		&o.ShippingAddressID, &o.CreatedAt, &o.ExpiresAt, &o.LastRetryAt, &o.StockReducedAt,
	)
	if err != nil {
		// The partial unique index closes the check-then-act race on the
		// single-pending-order invariant.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrPendingOrderExists
		}
		return nil, err
	}

	for _, line := range in.Lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_lines (order_id, product_id, quantity, price_cents_at_time)
VALUES ($1, $2, $3, $4)
`, o.ID, line.ProductID, line.Quantity, line.PriceCentsAtTime); err != nil {
			return nil, err
		}
		line.OrderID = o.ID
		o.Lines = append(o.Lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created order=%s user=%s total_cents=%d lines=%d", o.ID, o.UserID, o.TotalCents, len(o.Lines))
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id = $1
`, id)
}

func (r *postgresRepo) FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1 AND status = 'pending'
ORDER BY created_at DESC
LIMIT 1
`, userID)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.ShippingCents,
			&o.ShippingAddressID, &o.CreatedAt, &o.ExpiresAt, &o.LastRetryAt, &o.StockReducedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *postgresRepo) MarkPaid(ctx context.Context, orderID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = 'paid'
WHERE id = $1 AND status = 'pending'
`, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		r.logger.Printf("order repo: order=%s marked paid", orderID)
		return nil
	}

	// Zero rows: either duplicate delivery, a terminal order, or no order at
	// all. Distinguish so the reconciler can ack or warn appropriately.
	var status domain.OrderStatus
	err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if status == domain.OrderPaid {
		return domain.ErrAlreadyPaid
	}
	return domain.ErrOrderNotPending
}

func (r *postgresRepo) Expire(ctx context.Context, orderID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = 'expired'
WHERE id = $1 AND status = 'pending'
`, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		r.logger.Printf("order repo: order=%s expired", orderID)
	}
	return nil
}

func (r *postgresRepo) CancelPendingByUser(ctx context.Context, userID string) (string, error) {
	var orderID string
	err := r.pool.QueryRow(ctx, `
UPDATE orders
SET status = 'canceled'
WHERE user_id = $1 AND status = 'pending'
RETURNING id::text
`, userID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNoPendingOrder
		}
		return "", err
	}
	r.logger.Printf("order repo: order=%s canceled by user=%s", orderID, userID)
	return orderID, nil
}

func (r *postgresRepo) RecordRetry(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE orders
SET last_retry_at = now()
WHERE id = $1
`, orderID)
	return err
}

func (r *postgresRepo) fetchOrder(ctx context.Context, query string, args ...interface{}) (*domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.ShippingCents,
		&o.ShippingAddressID, &o.CreatedAt, &o.ExpiresAt, &o.LastRetryAt, &o.StockReducedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT order_id::text, product_id::text, quantity, price_cents_at_time
FROM order_lines
WHERE order_id = $1
`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Quantity, &line.PriceCentsAtTime); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}
