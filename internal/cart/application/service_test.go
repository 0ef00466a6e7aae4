package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	cartdomain "github.com/mve-platform/commerce-backend/internal/cart/domain"
	catalogdomain "github.com/mve-platform/commerce-backend/internal/catalog/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storeFake struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func newStoreFake() *storeFake {
	return &storeFake{carts: map[string]map[string]int{}}
}

func (f *storeFake) snapshot(userEmail string) cartdomain.Cart {
	c := cartdomain.Cart{UserEmail: userEmail}
	for pid, qty := range f.carts[userEmail] {
		c.Items = append(c.Items, cartdomain.CartItem{ProductID: pid, Quantity: qty})
	}
	return c
}

func (f *storeFake) Get(_ context.Context, userEmail string) (cartdomain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userEmail]; !ok {
		return cartdomain.Cart{}, errs.ErrNotFound
	}
	return f.snapshot(userEmail), nil
}

func (f *storeFake) GetOrCreate(_ context.Context, userEmail string) (cartdomain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userEmail]; !ok {
		f.carts[userEmail] = map[string]int{}
	}
	return f.snapshot(userEmail), nil
}

func (f *storeFake) UpsertItem(_ context.Context, userEmail, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userEmail]; !ok {
		f.carts[userEmail] = map[string]int{}
	}
	f.carts[userEmail][productID] = quantity
	return nil
}

func (f *storeFake) UpdateItem(_ context.Context, userEmail, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[userEmail]
	if !ok {
		return errs.ErrNotFound
	}
	if _, ok := items[productID]; !ok {
		return errs.ErrNotFound
	}
	items[productID] = quantity
	return nil
}

func (f *storeFake) RemoveItem(_ context.Context, userEmail, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[userEmail]
	if !ok {
		return errs.ErrNotFound
	}
	if _, ok := items[productID]; !ok {
		return errs.ErrNotFound
	}
	delete(items, productID)
	return nil
}

func (f *storeFake) Clear(_ context.Context, userEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userEmail)
	return nil
}

type readerFake struct {
	mu       sync.Mutex
	products map[string]catalogdomain.Product
}

func newReaderFake(products ...catalogdomain.Product) *readerFake {
	f := &readerFake{products: map[string]catalogdomain.Product{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *readerFake) Get(_ context.Context, id string) (catalogdomain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return catalogdomain.Product{}, errs.ErrNotFound
	}
	return p, nil
}

func (f *readerFake) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

const user = "alice@example.com"

func TestAddOrSetItemReplacesQuantity(t *testing.T) {
	store := newStoreFake()
	reader := newReaderFake(catalogdomain.Product{ID: "p1", Name: "widget", PriceCents: 1000, Stock: 10})
	svc := NewService(testLogger(), store, reader)
	ctx := context.Background()

	if err := svc.AddOrSetItem(ctx, user, "p1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddOrSetItem(ctx, user, "p1", 5); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	view, err := svc.ReadCart(ctx, user)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("items: want 1, got %d", len(view.Items))
	}
	if view.Items[0].Quantity != 5 {
		t.Fatalf("quantity must be replaced not summed: want 5, got %d", view.Items[0].Quantity)
	}
}

func TestAddOrSetItemValidation(t *testing.T) {
	store := newStoreFake()
	reader := newReaderFake(catalogdomain.Product{ID: "p1", Stock: 3})
	svc := NewService(testLogger(), store, reader)
	ctx := context.Background()

	if err := svc.AddOrSetItem(ctx, user, "p1", 0); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("zero quantity: want ErrInvalidInput, got %v", err)
	}
	if err := svc.AddOrSetItem(ctx, user, "p1", -1); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("negative quantity: want ErrInvalidInput, got %v", err)
	}
	if err := svc.AddOrSetItem(ctx, user, "missing", 1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown product: want ErrNotFound, got %v", err)
	}

	err := svc.AddOrSetItem(ctx, user, "p1", 4)
	if !errors.Is(err, errs.ErrInsufficientStock) {
		t.Fatalf("over stock: want ErrInsufficientStock, got %v", err)
	}
	var ise *errs.InsufficientStockError
	if !errors.As(err, &ise) || ise.Available != 3 || ise.Requested != 4 {
		t.Fatalf("stock error detail wrong: %+v", ise)
	}
}

func TestSetItemQuantityRequiresExistingItem(t *testing.T) {
	store := newStoreFake()
	reader := newReaderFake(catalogdomain.Product{ID: "p1", Stock: 10})
	svc := NewService(testLogger(), store, reader)
	ctx := context.Background()

	if err := svc.SetItemQuantity(ctx, user, "p1", 2); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("absent item: want ErrNotFound, got %v", err)
	}

	if err := svc.AddOrSetItem(ctx, user, "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.SetItemQuantity(ctx, user, "p1", 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	view, err := svc.ReadCart(ctx, user)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if view.Items[0].Quantity != 3 {
		t.Fatalf("quantity: want 3, got %d", view.Items[0].Quantity)
	}
}

func TestRemoveItemMissing(t *testing.T) {
	store := newStoreFake()
	reader := newReaderFake(catalogdomain.Product{ID: "p1", Stock: 10})
	svc := NewService(testLogger(), store, reader)
	ctx := context.Background()

	if err := svc.RemoveItem(ctx, user, "p1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := svc.AddOrSetItem(ctx, user, "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.RemoveItem(ctx, user, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveItem(ctx, user, "p1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second remove: want ErrNotFound, got %v", err)
	}
}

func TestReadCartDropsVanishedProducts(t *testing.T) {
	store := newStoreFake()
	reader := newReaderFake(
		catalogdomain.Product{ID: "p1", Name: "kept", PriceCents: 1000, Stock: 10},
		catalogdomain.Product{ID: "p2", Name: "doomed", PriceCents: 500, Stock: 10},
	)
	svc := NewService(testLogger(), store, reader)
	ctx := context.Background()

	if err := svc.AddOrSetItem(ctx, user, "p1", 1); err != nil {
		t.Fatalf("add p1: %v", err)
	}
	if err := svc.AddOrSetItem(ctx, user, "p2", 2); err != nil {
		t.Fatalf("add p2: %v", err)
	}

	reader.remove("p2")

	view, err := svc.ReadCart(ctx, user)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].ProductID != "p1" {
		t.Fatalf("want only p1 to survive, got %+v", view.Items)
	}
	if view.Dropped != 1 {
		t.Fatalf("dropped: want 1, got %d", view.Dropped)
	}
}

func TestReadCartCreatesEmptyCart(t *testing.T) {
	svc := NewService(testLogger(), newStoreFake(), newReaderFake())

	view, err := svc.ReadCart(context.Background(), user)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(view.Items) != 0 || view.Dropped != 0 {
		t.Fatalf("want empty view, got %+v", view)
	}
}
