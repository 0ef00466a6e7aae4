package pricing

import (
	"context"
	"testing"
	"time"
)

type storeFake struct {
	coupons map[string]Coupon
}

func (f *storeFake) Get(_ context.Context, code string) (Coupon, bool, error) {
	c, ok := f.coupons[code]
	return c, ok, nil
}

func TestDiscount(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fn := Discount(&storeFake{coupons: map[string]Coupon{
		"SAVE10":  {Code: "SAVE10", DiscountPercent: 10, ValidUntil: now.Add(24 * time.Hour)},
		"EXPIRED": {Code: "EXPIRED", DiscountPercent: 50, ValidUntil: now.Add(-time.Hour)},
	}})
	ctx := context.Background()

	frac, ok, err := fn(ctx, "SAVE10", now)
	if err != nil || !ok {
		t.Fatalf("valid coupon: ok=%v err=%v", ok, err)
	}
	if frac != 0.10 {
		t.Fatalf("fraction: want 0.10, got %v", frac)
	}

	if _, ok, err := fn(ctx, "EXPIRED", now); err != nil || ok {
		t.Fatalf("expired coupon must not apply: ok=%v err=%v", ok, err)
	}
	if _, ok, err := fn(ctx, "UNKNOWN", now); err != nil || ok {
		t.Fatalf("unknown coupon must not apply: ok=%v err=%v", ok, err)
	}
}
