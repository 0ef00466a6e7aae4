package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mve-platform/commerce-backend/internal/cart/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
)

const maxResolveConcurrency = 10

type Service struct {
	log     *slog.Logger
	store   CartStore
	catalog ProductReader
}

func NewService(log *slog.Logger, store CartStore, catalog ProductReader) *Service {
	return &Service{log: log, store: store, catalog: catalog}
}

// GetOrCreateCart returns the user's cart, creating an empty one on first
// access.
func (s *Service) GetOrCreateCart(ctx context.Context, userEmail string) (domain.Cart, error) {
	return s.store.GetOrCreate(ctx, userEmail)
}

// AddOrSetItem puts the product in the cart with the given quantity. If the
// product is already present its quantity is replaced, not incremented. The
// stock check here is advisory only; order placement re-validates.
func (s *Service) AddOrSetItem(ctx context.Context, userEmail, productID string, quantity int) error {
	if quantity < 1 {
		return errs.ErrInvalidInput
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return &errs.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: quantity}
	}

	if _, err := s.store.GetOrCreate(ctx, userEmail); err != nil {
		return err
	}
	if err := s.store.UpsertItem(ctx, userEmail, productID, quantity); err != nil {
		s.log.Error("cart upsert failed", "user", userEmail, "product", productID, "err", err)
		return err
	}
	return nil
}

// SetItemQuantity changes the quantity of an item already in the cart.
// Reports NotFound when the cart has no such item, which is distinct from
// the product not existing.
func (s *Service) SetItemQuantity(ctx context.Context, userEmail, productID string, quantity int) error {
	if quantity < 1 {
		return errs.ErrInvalidInput
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return &errs.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: quantity}
	}
	if err := s.store.UpdateItem(ctx, userEmail, productID, quantity); err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			s.log.Error("cart update failed", "user", userEmail, "product", productID, "err", err)
		}
		return err
	}
	return nil
}

// RemoveItem deletes the item from the cart. A missing item is NotFound
// (kept from the reference behavior, applied consistently).
func (s *Service) RemoveItem(ctx context.Context, userEmail, productID string) error {
	return s.store.RemoveItem(ctx, userEmail, productID)
}

// ReadCart resolves every cart item against the live catalog. Items whose
// product has vanished are dropped from the snapshot and counted, never
// errored.
func (s *Service) ReadCart(ctx context.Context, userEmail string) (domain.View, error) {
	cart, err := s.store.GetOrCreate(ctx, userEmail)
	if err != nil {
		return domain.View{}, err
	}

	resolved := make([]*domain.ResolvedItem, len(cart.Items))
	var mu sync.Mutex
	dropped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveConcurrency)
	for i := range cart.Items {
		g.Go(func() error {
			item := cart.Items[i]
			p, err := s.catalog.Get(gctx, item.ProductID)
			if errors.Is(err, errs.ErrNotFound) {
				mu.Lock()
				dropped++
				mu.Unlock()
				s.log.Warn("cart item dropped, product gone", "user", userEmail, "product", item.ProductID)
				return nil
			}
			if err != nil {
				return err
			}
			resolved[i] = &domain.ResolvedItem{
				ProductID:   p.ID,
				Quantity:    item.Quantity,
				Name:        p.Name,
				PriceCents:  p.PriceCents,
				Stock:       p.Stock,
				VendorEmail: p.VendorEmail,
				Images:      p.Images,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.View{}, err
	}

	items := make([]domain.ResolvedItem, 0, len(resolved))
	for _, it := range resolved {
		if it != nil {
			items = append(items, *it)
		}
	}
	return domain.View{
		UserEmail: cart.UserEmail,
		Items:     items,
		Dropped:   dropped,
		UpdatedAt: cart.UpdatedAt,
	}, nil
}
