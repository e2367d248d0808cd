package product

import (
	"context"
	"errors"
	"io"
	"log"

	"soapstore/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

const productColumns = `id::text, name, price_cents, stock, image_path, created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products
ORDER BY created_at DESC
`)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.ImagePath, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products
WHERE id = $1
`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.ImagePath, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products
WHERE id = ANY($1::uuid[])
`, ids)
	if err != nil {
		r.logger.Printf("product repo: get many error=%v", err)
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.ImagePath, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	var out domain.Product
	err := r.pool.QueryRow(ctx, `
INSERT INTO products (name, price_cents, stock, image_path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    image_path = EXCLUDED.image_path
RETURNING `+productColumns+`
`, p.Name, p.PriceCents, p.Stock, p.ImagePath).Scan(&out.ID, &out.Name, &out.PriceCents, &out.Stock, &out.ImagePath, &out.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert name=%q error=%v", p.Name, err)
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) ReduceStockForOrder(ctx context.Context, orderID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Claim the marker first; zero rows means a previous delivery already
	// reduced stock for this order.
	cmd, err := tx.Exec(ctx, `
UPDATE orders
SET stock_reduced_at = now()
WHERE id = $1 AND stock_reduced_at IS NULL
`, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		r.logger.Printf("product repo: stock already reduced order=%s", orderID)
		return nil
	}

	rows, err := tx.Query(ctx, `
SELECT product_id::text, quantity
FROM order_lines
WHERE order_id = $1
`, orderID)
	if err != nil {
		return err
	}
	type line struct {
		productID string
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
UPDATE products
SET stock = GREATEST(stock - $2, 0)
WHERE id = $1
`, l.productID, l.quantity); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
