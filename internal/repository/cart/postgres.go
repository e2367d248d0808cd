package cart

import (
	"context"
	"encoding/json"
	"errors"

	"soapstore/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Load(ctx context.Context, userID string) (domain.Cart, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT items
FROM carts
WHERE user_id = $1
`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, domain.ErrNotFound
		}
		return domain.Cart{}, err
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{Lines: lines}, nil
}

func (r *postgresRepo) Save(ctx context.Context, userID string, cart domain.Cart) error {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO carts (user_id, items, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
SET items = EXCLUDED.items, updated_at = now()
`, userID, raw)
	return err
}
