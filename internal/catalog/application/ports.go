package application

import (
	"context"

	"github.com/mve-platform/commerce-backend/internal/catalog/domain"
)

// ProductStore is the persistence port for the catalog. AdjustStock is the
// conditional compare-and-decrement primitive: it must only apply a negative
// delta when the remaining stock stays non-negative, and report
// errs.ErrInsufficientStock otherwise.
type ProductStore interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, category string) ([]domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
	ListIDsByVendor(ctx context.Context, vendorEmail string) ([]string, error)
}
