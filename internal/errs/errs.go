// Package errs defines the error kinds the engines report. The HTTP layer
// maps these to status codes; raw store errors are wrapped as
// ErrStoreUnavailable and never reach callers.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInsufficientStock is the sentinel for errors.Is; the concrete value
	// is usually an InsufficientStockError naming the product.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError identifies the product that blocked an operation.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: have %d, want %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Store wraps an underlying persistence failure so callers see only the kind.
func Store(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
