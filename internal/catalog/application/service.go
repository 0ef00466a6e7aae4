package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mve-platform/commerce-backend/internal/catalog/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/identity"
)

type Service struct {
	log   *slog.Logger
	store ProductStore
}

func NewService(log *slog.Logger, store ProductStore) *Service {
	return &Service{log: log, store: store}
}

// CreateProduct registers a new product owned by the calling vendor.
func (s *Service) CreateProduct(ctx context.Context, id identity.Identity, name, description, category string, priceCents int64, stock int, images []string) (domain.Product, error) {
	if id.Role != identity.RoleVendor {
		return domain.Product{}, errs.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || priceCents <= 0 || stock < 0 {
		return domain.Product{}, errs.ErrInvalidInput
	}
	if images == nil {
		images = []string{}
	}

	now := time.Now().UTC()
	p := domain.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		PriceCents:  priceCents,
		Stock:       stock,
		Category:    category,
		VendorEmail: id.Email,
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		s.log.Error("product create failed", "vendor", id.Email, "name", name, "err", err)
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, errs.ErrInvalidInput
	}
	return s.store.Get(ctx, productID)
}

func (s *Service) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	return s.store.List(ctx, category)
}

// UpdateProduct applies the given field updates. Only the owning vendor may
// mutate a product.
func (s *Service) UpdateProduct(ctx context.Context, id identity.Identity, productID string, upd domain.Update) (domain.Product, error) {
	p, err := s.store.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if p.VendorEmail != id.Email {
		return domain.Product{}, errs.ErrForbidden
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return domain.Product{}, errs.ErrInvalidInput
		}
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PriceCents != nil {
		if *upd.PriceCents <= 0 {
			return domain.Product{}, errs.ErrInvalidInput
		}
		p.PriceCents = *upd.PriceCents
	}
	if upd.Stock != nil {
		if *upd.Stock < 0 {
			return domain.Product{}, errs.ErrInvalidInput
		}
		p.Stock = *upd.Stock
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Images != nil {
		p.Images = upd.Images
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, p); err != nil {
		s.log.Error("product update failed", "vendor", id.Email, "product", productID, "err", err)
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id identity.Identity, productID string) error {
	p, err := s.store.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.VendorEmail != id.Email {
		return errs.ErrForbidden
	}
	if err := s.store.Delete(ctx, productID); err != nil {
		s.log.Error("product delete failed", "vendor", id.Email, "product", productID, "err", err)
		return err
	}
	return nil
}
