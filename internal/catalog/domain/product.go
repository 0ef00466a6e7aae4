package domain

import "time"

// Product is a vendor-owned catalog entry. Stock is the only field mutated
// by parties other than the owner, and only through the conditional
// decrement path.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	Category    string
	VendorEmail string
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update holds the mutable fields of a product; nil means keep current.
type Update struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	Category    *string
	Images      []string
}
