package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
)

// CouponStore defines the DB methods needed to issue and consume coupons.
// Satisfied by *database.Queries.
type CouponStore interface {
	CreateCoupon(ctx context.Context, arg database.CreateCouponParams) (database.Coupon, error)
	ConsumeCoupon(ctx context.Context, couponCode string) (database.Coupon, error)
}

type NewCouponStore func(db database.DBTX) CouponStore

// Consumption is the outcome of trying to use a coupon once.
type Consumption struct {
	Code               string          `json:"couponcode"`
	Applied            bool            `json:"applied"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// CouponService tracks coupon usage limits.
type CouponService struct {
	pool     TxBeginner
	newStore NewCouponStore
}

func NewCouponService(pool TxBeginner, newStore NewCouponStore) *CouponService {
	return &CouponService{pool: pool, newStore: newStore}
}

// CreateCoupon issues a coupon. A nil limit means unlimited use.
func (s *CouponService) CreateCoupon(ctx context.Context, code string, pct decimal.Decimal, limit *int32) (*database.Coupon, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: couponcode is required", ErrValidation)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: discount_percentage must be between 0 and 100", ErrValidation)
	}
	lim := pgtype.Int4{}
	if limit != nil {
		if *limit < 0 {
			return nil, fmt.Errorf("%w: total_usage_limit must be >= 0", ErrValidation)
		}
		lim = pgtype.Int4{Int32: *limit, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	c, err := s.newStore(tx).CreateCoupon(ctx, database.CreateCouponParams{
		CouponCode:         code,
		DiscountPercentage: pct,
		TotalUsageLimit:    lim,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("couponcode %q: %w", code, ErrDuplicateID)
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &c, nil
}

// TryConsume uses the coupon once if it exists and has uses left.
func (s *CouponService) TryConsume(ctx context.Context, code string) (*Consumption, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	c, err := tryConsume(ctx, s.newStore(tx), code)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return c, nil
}

// tryConsume relies on the single guarded UPDATE in ConsumeCoupon, so two
// callers racing on the last use cannot both succeed. Missing and exhausted
// coupons are reported as not applied, not as errors.
func tryConsume(ctx context.Context, store CouponStore, code string) (*Consumption, error) {
	c, err := store.ConsumeCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Consumption{Code: code, DiscountPercentage: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("consume coupon %q: %w", code, err)
	}
	return &Consumption{Code: code, Applied: true, DiscountPercentage: c.DiscountPercentage}, nil
}
