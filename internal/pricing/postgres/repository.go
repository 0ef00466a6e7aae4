package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/pricing"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, code string) (pricing.Coupon, bool, error) {
	var c pricing.Coupon
	err := r.pool.QueryRow(ctx,
		`SELECT code, discount_percent, valid_until FROM coupons WHERE code=$1`, code).
		Scan(&c.Code, &c.DiscountPercent, &c.ValidUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Coupon{}, false, nil
	}
	if err != nil {
		return pricing.Coupon{}, false, errs.Store(err)
	}
	return c, true, nil
}
