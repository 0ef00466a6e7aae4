package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mve-platform/commerce-backend/internal/cart/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, userEmail string) (domain.Cart, error) {
	var c domain.Cart
	err := r.pool.QueryRow(ctx, `SELECT user_email, created_at, updated_at FROM carts WHERE user_email=$1`, userEmail).
		Scan(&c.UserEmail, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, errs.ErrNotFound
	}
	if err != nil {
		return domain.Cart{}, errs.Store(err)
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE user_email=$1`, userEmail)
	if err != nil {
		return domain.Cart{}, errs.Store(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return domain.Cart{}, errs.Store(err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, errs.Store(err)
	}
	return c, nil
}

// GetOrCreate races are settled by the primary key: a concurrent insert
// loses with a unique violation and re-reads.
func (r *Repository) GetOrCreate(ctx context.Context, userEmail string) (domain.Cart, error) {
	cart, err := r.Get(ctx, userEmail)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return domain.Cart{}, err
	}

	now := time.Now().UTC()
	_, insErr := r.pool.Exec(ctx, `INSERT INTO carts (user_email, created_at, updated_at) VALUES ($1,$2,$2)`, userEmail, now)
	if insErr != nil {
		var pgErr *pgconn.PgError
		if errors.As(insErr, &pgErr) && pgErr.Code == uniqueViolation {
			return r.Get(ctx, userEmail)
		}
		return domain.Cart{}, errs.Store(insErr)
	}
	return r.Get(ctx, userEmail)
}

func (r *Repository) UpsertItem(ctx context.Context, userEmail, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (user_email, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_email, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		userEmail, productID, quantity)
	if err != nil {
		return errs.Store(err)
	}
	return r.touch(ctx, userEmail)
}

func (r *Repository) UpdateItem(ctx context.Context, userEmail, productID string, quantity int) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE cart_items SET quantity=$3 WHERE user_email=$1 AND product_id=$2`,
		userEmail, productID, quantity)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return r.touch(ctx, userEmail)
}

func (r *Repository) RemoveItem(ctx context.Context, userEmail, productID string) error {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items WHERE user_email=$1 AND product_id=$2`, userEmail, productID)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return r.touch(ctx, userEmail)
}

func (r *Repository) Clear(ctx context.Context, userEmail string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_email=$1`, userEmail)
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (r *Repository) touch(ctx context.Context, userEmail string) error {
	_, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at=$2 WHERE user_email=$1`, userEmail, time.Now().UTC())
	if err != nil {
		return errs.Store(err)
	}
	return nil
}
