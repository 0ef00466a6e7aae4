package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mve-platform/commerce-backend/internal/catalog/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price_cents, stock, category, vendor_email, images, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.VendorEmail, p.Images, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, price_cents, stock, category, vendor_email, images, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.VendorEmail, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, errs.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, errs.Store(err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, category string) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price_cents, stock, category, vendor_email, images, created_at, updated_at
		FROM products`
	args := []any{}
	if category != "" {
		query += ` WHERE category=$1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Store(err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.VendorEmail, &p.Images, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errs.Store(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price_cents=$4, stock=$5, category=$6, images=$7, updated_at=$8
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.Images, p.UpdatedAt)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AdjustStock applies a stock delta. Negative deltas are conditional: the
// row is only touched when enough stock remains, which is what keeps two
// concurrent orders from both taking the last unit.
func (r *Repository) AdjustStock(ctx context.Context, id string, delta int) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0`, id, delta)
	if err != nil {
		return errs.Store(err)
	}
	if ct.RowsAffected() == 0 {
		p, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return &errs.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: -delta}
	}
	return nil
}

func (r *Repository) ListIDsByVendor(ctx context.Context, vendorEmail string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE vendor_email=$1`, vendorEmail)
	if err != nil {
		return nil, errs.Store(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Store(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err)
	}
	return ids, nil
}
