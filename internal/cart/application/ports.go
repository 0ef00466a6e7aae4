package application

import (
	"context"

	cartdomain "github.com/mve-platform/commerce-backend/internal/cart/domain"
	catalogdomain "github.com/mve-platform/commerce-backend/internal/catalog/domain"
)

// CartStore is the persistence port for carts. Item writes are last-write-wins
// at the row level; carts are single-owner so no cross-user coordination is
// needed.
type CartStore interface {
	Get(ctx context.Context, userEmail string) (cartdomain.Cart, error)
	GetOrCreate(ctx context.Context, userEmail string) (cartdomain.Cart, error)
	// UpsertItem sets the quantity for the product, inserting the item if
	// absent (replace semantics, not increment).
	UpsertItem(ctx context.Context, userEmail, productID string, quantity int) error
	// UpdateItem sets the quantity only if the item exists; reports
	// errs.ErrNotFound otherwise.
	UpdateItem(ctx context.Context, userEmail, productID string, quantity int) error
	// RemoveItem deletes the item; reports errs.ErrNotFound if absent.
	RemoveItem(ctx context.Context, userEmail, productID string) error
	Clear(ctx context.Context, userEmail string) error
}

// ProductReader is the slice of the catalog the cart engine needs.
type ProductReader interface {
	Get(ctx context.Context, id string) (catalogdomain.Product, error)
}
