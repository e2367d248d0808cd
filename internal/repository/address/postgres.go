package address

import (
	"context"
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

func (r *postgresRepo) GetActive(ctx context.Context, userID, addressID string) (*ShippingAddress, error) {
	var a ShippingAddress
	err := r.pool.QueryRow(ctx, `
SELECT id::text, user_id, first_name, last_name, street_name, postal_code, city, country, active
FROM shipping_addresses
WHERE id = $1 AND user_id = $2 AND active
`, addressID, userID).Scan(
		&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.StreetName,
		&a.PostalCode, &a.City, &a.Country, &a.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
