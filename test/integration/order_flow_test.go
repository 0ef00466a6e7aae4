package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	cartpg "github.com/mve-platform/commerce-backend/internal/cart/infrastructure/postgres"
	catalogdomain "github.com/mve-platform/commerce-backend/internal/catalog/domain"
	catalogpg "github.com/mve-platform/commerce-backend/internal/catalog/infrastructure/postgres"
	"github.com/mve-platform/commerce-backend/internal/errs"
	orderdomain "github.com/mve-platform/commerce-backend/internal/order/domain"
	orderpg "github.com/mve-platform/commerce-backend/internal/order/infrastructure/postgres"
	"github.com/mve-platform/commerce-backend/pkg/postgres"
)

func TestOrderPersistenceFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	env, err := Setup(ctx)
	if err != nil {
		t.Skipf("containers unavailable: %v", err)
	}
	defer env.Teardown(ctx)

	pool, err := postgres.Connect(ctx, env.PGURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	products := catalogpg.NewRepository(log, pool)
	carts := cartpg.NewRepository(log, pool)
	orders := orderpg.NewRepository(log, pool)
	outboxStore := orderpg.NewOutboxStore(log, pool)

	now := time.Now().UTC()
	p := catalogdomain.Product{
		ID:          uuid.NewString(),
		Name:        "Widget",
		PriceCents:  1000,
		Stock:       3,
		VendorEmail: "vendor@example.com",
		Images:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	// Conditional decrement takes stock while enough remains, then refuses.
	if err := products.AdjustStock(ctx, p.ID, -3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := products.AdjustStock(ctx, p.ID, -1); !errors.Is(err, errs.ErrInsufficientStock) {
		t.Fatalf("over-decrement: want ErrInsufficientStock, got %v", err)
	}
	got, err := products.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("stock: want 0, got %d", got.Stock)
	}

	// Cart rows survive until cleared; clearing cascades to items.
	const user = "alice@example.com"
	if _, err := carts.GetOrCreate(ctx, user); err != nil {
		t.Fatalf("get or create cart: %v", err)
	}
	if err := carts.UpsertItem(ctx, user, p.ID, 3); err != nil {
		t.Fatalf("upsert item: %v", err)
	}
	if err := carts.Clear(ctx, user); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if _, err := carts.Get(ctx, user); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("cleared cart: want ErrNotFound, got %v", err)
	}

	// Order and its outbox event land in one transaction, and the relay's
	// lock query sees the event exactly once.
	o := orderdomain.Order{
		ID:        uuid.NewString(),
		UserEmail: user,
		Items: []orderdomain.OrderItem{
			{ProductID: p.ID, Quantity: 3, PriceCents: 1000},
		},
		TotalCents:      3000,
		Status:          orderdomain.StatusPending,
		ShippingAddress: "1 Main St",
		CreatedAt:       now,
	}
	payload := []byte(`{"order_id":"` + o.ID + `"}`)
	if err := orders.SaveWithOutbox(ctx, o, orderdomain.EventOrderPlaced, payload, ""); err != nil {
		t.Fatalf("save with outbox: %v", err)
	}

	stored, err := orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.TotalCents != 3000 || len(stored.Items) != 1 {
		t.Fatalf("stored order mismatch: %+v", stored)
	}

	events, err := outboxStore.LockBatch(ctx, "test-relay", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("lock batch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events: want 1, got %d", len(events))
	}
	if events[0].AggregateID != o.ID || events[0].Type != orderdomain.EventOrderPlaced {
		t.Fatalf("event mismatch: %+v", events[0])
	}

	again, err := outboxStore.LockBatch(ctx, "second-relay", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("second lock batch: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("leased event must not be handed out twice, got %d", len(again))
	}

	if err := outboxStore.MarkSent(ctx, []int64{events[0].ID}); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	// A dispatch failure requeues the event so a later tick retries it.
	if err := orders.UpdateStatusWithOutbox(ctx, o.ID, orderdomain.StatusFulfilled, orderdomain.EventOrderStatusChanged, []byte(`{}`), ""); err != nil {
		t.Fatalf("update status with outbox: %v", err)
	}
	events, err = outboxStore.LockBatch(ctx, "test-relay", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("lock status event: %v", err)
	}
	if len(events) != 1 || events[0].Type != orderdomain.EventOrderStatusChanged {
		t.Fatalf("status event: got %+v", events)
	}
	if err := outboxStore.MarkFailed(ctx, events[0].ID, "broker unreachable"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	retried, err := outboxStore.LockBatch(ctx, "test-relay", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("lock after failure: %v", err)
	}
	if len(retried) != 1 || retried[0].ID != events[0].ID {
		t.Fatalf("failed dispatch must be requeued, got %+v", retried)
	}
}
