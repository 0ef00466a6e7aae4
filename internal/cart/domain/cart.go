package domain

import "time"

// CartItem is a product/quantity intent. A cart holds at most one item per
// product; adding an existing product replaces the quantity.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Cart is owned by exactly one user, keyed by email, created lazily and
// deleted on successful order placement.
type Cart struct {
	UserEmail string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Cart) Empty() bool { return len(c.Items) == 0 }

// ResolvedItem pairs a cart item with the current catalog state of its
// product.
type ResolvedItem struct {
	ProductID   string
	Quantity    int
	Name        string
	PriceCents  int64
	Stock       int
	VendorEmail string
	Images      []string
}

// View is a read snapshot of a cart. Dropped counts items whose product no
// longer exists in the catalog; they are omitted from Items, not errored.
type View struct {
	UserEmail string
	Items     []ResolvedItem
	Dropped   int
	UpdatedAt time.Time
}
