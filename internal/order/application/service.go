package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/identity"
	"github.com/mve-platform/commerce-backend/internal/order/domain"
	"github.com/mve-platform/commerce-backend/internal/pricing"
	"github.com/mve-platform/commerce-backend/pkg/tracing"
)

type Service struct {
	log      *slog.Logger
	orders   OrderStore
	carts    CartStore
	stock    StockStore
	discount pricing.DiscountFunc
	now      func() time.Time
}

func NewService(log *slog.Logger, orders OrderStore, carts CartStore, stock StockStore, discount pricing.DiscountFunc) *Service {
	return &Service{
		log:      log,
		orders:   orders,
		carts:    carts,
		stock:    stock,
		discount: discount,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder converts the caller's cart into an order. Stock is taken with
// per-product conditional decrements; on the first failure every decrement
// already applied is compensated and no order exists. The order row is only
// written once all decrements succeeded.
func (s *Service) PlaceOrder(ctx context.Context, id identity.Identity, shippingAddress, couponCode string) (domain.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return domain.Order{}, errs.ErrInvalidInput
	}

	cart, err := s.carts.Get(ctx, id.Email)
	if errors.Is(err, errs.ErrNotFound) {
		return domain.Order{}, errs.ErrEmptyCart
	}
	if err != nil {
		return domain.Order{}, err
	}
	if cart.Empty() {
		return domain.Order{}, errs.ErrEmptyCart
	}

	// Price from the live catalog, never from whatever the cart row holds.
	items := make([]domain.OrderItem, 0, len(cart.Items))
	var total int64
	for _, ci := range cart.Items {
		p, err := s.stock.Get(ctx, ci.ProductID)
		if errors.Is(err, errs.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("%w: product %s", errs.ErrNotFound, ci.ProductID)
		}
		if err != nil {
			return domain.Order{}, err
		}
		if p.Stock < ci.Quantity {
			return domain.Order{}, &errs.InsufficientStockError{ProductID: ci.ProductID, Available: p.Stock, Requested: ci.Quantity}
		}
		items = append(items, domain.OrderItem{
			ProductID:  ci.ProductID,
			Quantity:   ci.Quantity,
			PriceCents: p.PriceCents,
		})
		total += p.PriceCents * int64(ci.Quantity)
	}

	if couponCode != "" {
		fraction, ok, err := s.discount(ctx, couponCode, s.now())
		if err != nil {
			return domain.Order{}, err
		}
		if ok {
			total = int64(math.Round(float64(total) * (1 - fraction)))
		}
	}

	// Phase one: take stock. The conditional update is the only thing that
	// serializes two orders racing for the same units.
	taken := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if err := s.stock.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			s.compensate(ctx, taken)
			s.log.Info("order aborted, stock gone",
				"user", id.Email, "product", it.ProductID, "err", err)
			return domain.Order{}, err
		}
		taken = append(taken, it)
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		UserEmail:       id.Email,
		Items:           items,
		TotalCents:      total,
		Status:          domain.StatusPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       s.now(),
	}

	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:    order.ID,
		UserEmail:  order.UserEmail,
		TotalCents: order.TotalCents,
		Items:      order.Items,
	})
	if err != nil {
		s.compensate(ctx, taken)
		return domain.Order{}, errs.Store(err)
	}

	// Phase two: persist. On failure return the units.
	if err := s.orders.SaveWithOutbox(ctx, order, domain.EventOrderPlaced, payload, tracing.Traceparent(ctx)); err != nil {
		s.compensate(ctx, taken)
		s.log.Error("order persist failed", "user", id.Email, "order", order.ID, "err", err)
		return domain.Order{}, err
	}

	// The order is the system of record from here on; a failed cart clear is
	// recoverable (next placement sees the cleared-or-not cart) but must be
	// loud.
	if err := s.carts.Clear(ctx, id.Email); err != nil {
		s.log.Error("cart clear failed after order", "user", id.Email, "order", order.ID, "err", err)
	}

	return order, nil
}

// compensate returns already-taken units. It runs on a detached context:
// the request context may already be cancelled (client gone mid-placement)
// and the rollback must still reach the store.
func (s *Service) compensate(ctx context.Context, taken []domain.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range taken {
		if err := s.stock.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Error("stock compensation failed", "product", it.ProductID, "quantity", it.Quantity, "err", err)
		}
	}
}

// ListOrders returns the caller's own orders, or, for a vendor, the orders
// touching the vendor's catalog with foreign vendors' lines stripped.
func (s *Service) ListOrders(ctx context.Context, id identity.Identity) ([]domain.Order, error) {
	if id.Role != identity.RoleVendor {
		return s.orders.ListByUser(ctx, id.Email)
	}

	ids, err := s.stock.ListIDsByVendor(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	orders, err := s.orders.ListContainingProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]struct{}, len(ids))
	for _, pid := range ids {
		owned[pid] = struct{}{}
	}
	for i := range orders {
		kept := orders[i].Items[:0]
		for _, it := range orders[i].Items {
			if _, ok := owned[it.ProductID]; ok {
				kept = append(kept, it)
			}
		}
		orders[i].Items = kept
	}
	return orders, nil
}

// GetOrder fetches one order with the same visibility rules as ListOrders:
// customers see their own orders, vendors see orders touching their catalog
// with foreign vendors' lines stripped.
func (s *Service) GetOrder(ctx context.Context, id identity.Identity, orderID string) (domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserEmail == id.Email {
		return o, nil
	}
	if id.Role != identity.RoleVendor {
		return domain.Order{}, errs.ErrNotFound
	}

	ids, err := s.stock.ListIDsByVendor(ctx, id.Email)
	if err != nil {
		return domain.Order{}, err
	}
	owned := make(map[string]struct{}, len(ids))
	for _, pid := range ids {
		owned[pid] = struct{}{}
	}
	kept := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := owned[it.ProductID]; ok {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return domain.Order{}, errs.ErrNotFound
	}
	o.Items = kept
	return o, nil
}

// UpdateStatus lets a vendor move a pending order to fulfilled or cancelled,
// but only when the order contains at least one of the vendor's products.
func (s *Service) UpdateStatus(ctx context.Context, id identity.Identity, orderID string, status domain.Status) error {
	if id.Role != identity.RoleVendor {
		return errs.ErrForbidden
	}
	if !status.VendorSettable() {
		return errs.ErrInvalidInput
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusPending {
		return errs.ErrInvalidInput
	}

	ids, err := s.stock.ListIDsByVendor(ctx, id.Email)
	if err != nil {
		return err
	}
	owned := make(map[string]struct{}, len(ids))
	for _, pid := range ids {
		owned[pid] = struct{}{}
	}
	touches := false
	for _, it := range o.Items {
		if _, ok := owned[it.ProductID]; ok {
			touches = true
			break
		}
	}
	if !touches {
		return errs.ErrForbidden
	}

	payload, err := json.Marshal(domain.OrderStatusChanged{
		OrderID:   orderID,
		Status:    status,
		ChangedBy: id.Email,
	})
	if err != nil {
		return errs.Store(err)
	}
	if err := s.orders.UpdateStatusWithOutbox(ctx, orderID, status, domain.EventOrderStatusChanged, payload, tracing.Traceparent(ctx)); err != nil {
		s.log.Error("status update failed", "vendor", id.Email, "order", orderID, "status", status, "err", err)
		return err
	}
	return nil
}
