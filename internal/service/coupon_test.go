package service

import (
	"context"
	"errors"
	"testing"
)

func TestCreateCoupon(t *testing.T) {
	db := newMemDB()
	svc := newTestCouponService(db)

	c, err := svc.CreateCoupon(context.Background(), "WELCOME", dec("15"), int32p(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.TotalUsageLimit.Valid || c.TotalUsageLimit.Int32 != 100 {
		t.Errorf("limit: %+v", c.TotalUsageLimit)
	}

	unlimited, err := svc.CreateCoupon(context.Background(), "FOREVER", dec("5"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unlimited.TotalUsageLimit.Valid {
		t.Error("expected nil limit to mean unlimited")
	}

	if _, err := svc.CreateCoupon(context.Background(), "WELCOME", dec("15"), nil); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestCreateCoupon_Validation(t *testing.T) {
	db := newMemDB()
	svc := newTestCouponService(db)

	tests := []struct {
		name  string
		code  string
		pct   string
		limit *int32
	}{
		{name: "empty code", code: "", pct: "10"},
		{name: "negative pct", code: "X", pct: "-1"},
		{name: "pct over 100", code: "X", pct: "100.01"},
		{name: "negative limit", code: "X", pct: "10", limit: int32p(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCoupon(context.Background(), tt.code, dec(tt.pct), tt.limit)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTryConsume(t *testing.T) {
	db := newMemDB()
	db.seedCoupon("TWICE", "10", int32p(2))
	db.seedCoupon("OPEN", "5", nil)
	svc := newTestCouponService(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := svc.TryConsume(ctx, "TWICE")
		if err != nil {
			t.Fatalf("use %d: %v", i+1, err)
		}
		if !c.Applied || !c.DiscountPercentage.Equal(dec("10")) {
			t.Errorf("use %d: %+v", i+1, c)
		}
	}

	c, err := svc.TryConsume(ctx, "TWICE")
	if err != nil {
		t.Fatalf("exhausted: %v", err)
	}
	if c.Applied {
		t.Error("exhausted coupon was applied")
	}

	c, err = svc.TryConsume(ctx, "MISSING")
	if err != nil || c.Applied {
		t.Errorf("missing coupon: applied=%v err=%v", c != nil && c.Applied, err)
	}

	for i := 0; i < 3; i++ {
		if c, _ := svc.TryConsume(ctx, "OPEN"); c == nil || !c.Applied {
			t.Fatalf("unlimited coupon not applied on use %d", i+1)
		}
	}
	if db.snapshot().coupons["OPEN"].TotalUsageLimit.Valid {
		t.Error("unlimited coupon gained a limit")
	}
}
