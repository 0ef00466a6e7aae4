package application

import (
	"context"

	cartdomain "github.com/mve-platform/commerce-backend/internal/cart/domain"
	catalogdomain "github.com/mve-platform/commerce-backend/internal/catalog/domain"
	"github.com/mve-platform/commerce-backend/internal/order/domain"
)

// OrderStore persists orders. SaveWithOutbox and UpdateStatusWithOutbox write
// the aggregate and its event row in one store transaction.
type OrderStore interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userEmail string) ([]domain.Order, error)
	// ListContainingProducts returns orders holding at least one item whose
	// product id is in the set.
	ListContainingProducts(ctx context.Context, productIDs []string) ([]domain.Order, error)
	UpdateStatusWithOutbox(ctx context.Context, id string, status domain.Status, eventType string, payload []byte, traceparent string) error
}

// CartStore is the slice of the cart engine's persistence the order engine
// uses: read the committed items and clear the cart after placement.
type CartStore interface {
	Get(ctx context.Context, userEmail string) (cartdomain.Cart, error)
	Clear(ctx context.Context, userEmail string) error
}

// StockStore resolves products and performs the conditional stock adjustment.
// A negative delta must fail with errs.ErrInsufficientStock rather than drive
// stock below zero; positive deltas are the compensating increments.
type StockStore interface {
	Get(ctx context.Context, id string) (catalogdomain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
	ListIDsByVendor(ctx context.Context, vendorEmail string) ([]string, error)
}
