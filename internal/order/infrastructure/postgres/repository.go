package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/order/domain"
	"github.com/mve-platform/commerce-backend/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox writes the order, its items and the outbox row in one
// transaction, so an order row never exists without its event.
func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Store(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_email, total_cents, status, shipping_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserEmail, o.TotalCents, o.Status, o.ShippingAddress, o.CreatedAt)
	if err != nil {
		return errs.Store(err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, quantity, price_cents)
			VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.PriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errs.Store(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ('order',$1,$2,$3,$4,'pending')`,
		o.ID, eventType, payload, traceparent)
	if err != nil {
		return errs.Store(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Store(err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_email, total_cents, status, shipping_address, created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserEmail, &o.TotalCents, &o.Status, &o.ShippingAddress, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, errs.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, errs.Store(err)
	}

	o.Items, err = r.itemsFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userEmail string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_email, total_cents, status, shipping_address, created_at
		FROM orders WHERE user_email=$1
		ORDER BY created_at DESC`, userEmail)
}

func (r *Repository) ListContainingProducts(ctx context.Context, productIDs []string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_email, total_cents, status, shipping_address, created_at
		FROM orders
		WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE product_id = ANY($1))
		ORDER BY created_at DESC`, productIDs)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errs.Store(err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserEmail, &o.TotalCents, &o.Status, &o.ShippingAddress, &o.CreatedAt); err != nil {
			return nil, errs.Store(err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, quantity, price_cents FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, errs.Store(err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.PriceCents); err != nil {
			return nil, errs.Store(err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) UpdateStatusWithOutbox(ctx context.Context, id string, status domain.Status, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Store(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1 AND status='pending'`, id, status)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ('order',$1,$2,$3,$4,'pending')`,
		id, eventType, payload, traceparent)
	if err != nil {
		return errs.Store(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Store(err)
	}
	return nil
}

// OutboxStore backs the relay. Leasing uses FOR UPDATE SKIP LOCKED so
// multiple relay instances never pick up the same batch.
type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at
		FROM outbox
		WHERE status = 'pending'
		   OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var event outbox.Event
		var headers map[string]string
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &headers, &event.Traceparent, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Headers = headers
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2)
		WHERE id = ANY($3)`, relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent' WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no outbox rows updated")
	}
	return nil
}

// A transient broker error requeues the event for the next relay tick;
// 'failed' is terminal and only reached after maxDispatchAttempts.
const maxDispatchAttempts = 5

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1,
		    last_error  = $2,
		    status      = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    relay_id    = NULL,
		    lease_until = NULL
		WHERE id = $1`, id, errMsg, maxDispatchAttempts)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET lease_until=now() + make_interval(secs => $1)
		WHERE id = ANY($2) AND relay_id=$3`, lease.Seconds(), ids, relayID)
	return err
}
