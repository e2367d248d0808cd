package seed

import (
	"context"
	"fmt"

	"soapstore/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []domain.Product{
		{Name: "Lavender Oat Soap", PriceCents: 850, Stock: 24, ImagePath: "/images/lavender-oat.jpg"},
		{Name: "Charcoal Detox Bar", PriceCents: 950, Stock: 18, ImagePath: "/images/charcoal-detox.jpg"},
		{Name: "Honey Almond Soap", PriceCents: 790, Stock: 30, ImagePath: "/images/honey-almond.jpg"},
		{Name: "Rosemary Mint Bar", PriceCents: 820, Stock: 0, ImagePath: "/images/rosemary-mint.jpg"},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
	}
	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p domain.Product) error {
	const q = `
INSERT INTO products (name, price_cents, stock, image_path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    image_path = EXCLUDED.image_path
`
	_, err := pool.Exec(ctx, q, p.Name, p.PriceCents, p.Stock, p.ImagePath)
	return err
}
