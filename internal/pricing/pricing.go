// Package pricing supplies the discount function the order engine consumes.
// The engine treats it as a pure lookup: (code, now) -> fraction or none.
package pricing

import (
	"context"
	"time"
)

// Coupon grants a percentage discount until it expires.
type Coupon struct {
	Code            string
	DiscountPercent float64
	ValidUntil      time.Time
}

func (c Coupon) Fraction() float64 { return c.DiscountPercent / 100 }

func (c Coupon) ValidAt(now time.Time) bool { return c.ValidUntil.After(now) }

// DiscountFunc returns the discount fraction for a code at the reference
// time, or ok=false when the code is unknown or expired.
type DiscountFunc func(ctx context.Context, code string, now time.Time) (fraction float64, ok bool, err error)

// CouponStore looks up coupons by code.
type CouponStore interface {
	Get(ctx context.Context, code string) (Coupon, bool, error)
}

// Discount adapts a CouponStore into a DiscountFunc.
func Discount(store CouponStore) DiscountFunc {
	return func(ctx context.Context, code string, now time.Time) (float64, bool, error) {
		c, ok, err := store.Get(ctx, code)
		if err != nil || !ok {
			return 0, false, err
		}
		if !c.ValidAt(now) {
			return 0, false, nil
		}
		return c.Fraction(), true, nil
	}
}
