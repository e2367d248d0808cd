package domain

import "time"

// OrderStatus is the order lifecycle state.
// pending -> paid (webhook), pending -> canceled (user), pending -> expired
// (deadline). paid, canceled and expired are terminal.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderCanceled OrderStatus = "canceled"
	OrderExpired  OrderStatus = "expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCanceled || s == OrderExpired
}

func (s OrderStatus) String() string { return string(s) }

// Order is a ledger entry. Orders are never deleted; at most one order per
// user may be pending at any time.
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	Status            OrderStatus `json:"status"`
	TotalCents        int64       `json:"totalCents"`
	ShippingCents     int64       `json:"shippingCents"`
	ShippingAddressID string      `json:"shippingAddressId"`
	CreatedAt         time.Time   `json:"createdAt"`
	ExpiresAt         time.Time   `json:"expiresAt"`
	LastRetryAt       *time.Time  `json:"lastRetryAt,omitempty"`
	StockReducedAt    *time.Time  `json:"-"`
	Lines             []OrderLine `json:"lines,omitempty"`
}

// OrderLine snapshots a product at order-creation time. PriceCentsAtTime is
// never recomputed, so historical orders stay immutable when catalog prices
// change.
type OrderLine struct {
	OrderID          string `json:"orderId"`
	ProductID        string `json:"productId"`
	Quantity         int    `json:"quantity"`
	PriceCentsAtTime int64  `json:"priceCentsAtTime"`
}

// Expired reports whether the binding deadline has passed at now.
func (o Order) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
