package address

import "context"

// ShippingAddress is the slice of the externally-managed address book this
// engine consumes: just enough to validate that an order ships somewhere.
type ShippingAddress struct {
	ID         string `json:"id"`
	UserID     string `json:"-"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	StreetName string `json:"streetName,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Active     bool   `json:"active"`
}

// Repository reads the address book. CRUD belongs to an external collaborator.
type Repository interface {
	// GetActive returns the address only when it exists, belongs to userID
	// and is active; domain.ErrNotFound otherwise.
	GetActive(ctx context.Context, userID, addressID string) (*ShippingAddress, error)
}
