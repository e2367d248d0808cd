package domain

import "time"

// Product is the catalog record. Price and stock are authoritative here and
// are read at checkout time, never taken from client input.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Stock      int       `json:"stock"`
	ImagePath  string    `json:"imagePath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
