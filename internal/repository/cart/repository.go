package cart

import (
	"context"

	"soapstore/internal/domain"
)

// Repository is the durable (account) side of the cart state store: one row
// per user, replaced wholesale on every save. The cart is re-derivable from
// device state, so a lost write is an accepted data-loss window.
type Repository interface {
	Load(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, userID string, cart domain.Cart) error
}
