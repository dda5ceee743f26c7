package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const couponColumns = `couponcode, discount_percentage, total_usage_limit, created_at`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.CouponCode, &c.DiscountPercentage, &c.TotalUsageLimit, &c.CreatedAt)
	return c, err
}

const createCoupon = `INSERT INTO coupons (couponcode, discount_percentage, total_usage_limit)
VALUES ($1, $2, $3)
RETURNING ` + couponColumns

type CreateCouponParams struct {
	CouponCode         string          `json:"couponcode"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalUsageLimit    pgtype.Int4     `json:"total_usage_limit"`
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, createCoupon, arg.CouponCode, arg.DiscountPercentage, arg.TotalUsageLimit)
	return scanCoupon(row)
}

const getCoupon = `SELECT ` + couponColumns + ` FROM coupons WHERE couponcode = $1`

func (q *Queries) GetCoupon(ctx context.Context, couponCode string) (Coupon, error) {
	row := q.db.QueryRow(ctx, getCoupon, couponCode)
	return scanCoupon(row)
}

const listCoupons = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

func (q *Queries) ListCoupons(ctx context.Context) ([]Coupon, error) {
	rows, err := q.db.Query(ctx, listCoupons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const consumeCoupon = `UPDATE coupons
SET total_usage_limit = CASE
        WHEN total_usage_limit IS NULL THEN NULL
        ELSE total_usage_limit - 1
    END
WHERE couponcode = $1
  AND (total_usage_limit IS NULL OR total_usage_limit > 0)
RETURNING ` + couponColumns

// ConsumeCoupon decrements a limited coupon in a single guarded statement.
// pgx.ErrNoRows means the coupon is missing or exhausted.
func (q *Queries) ConsumeCoupon(ctx context.Context, couponCode string) (Coupon, error) {
	row := q.db.QueryRow(ctx, consumeCoupon, couponCode)
	return scanCoupon(row)
}

const deleteCoupon = `DELETE FROM coupons WHERE couponcode = $1 RETURNING couponcode`

func (q *Queries) DeleteCoupon(ctx context.Context, couponCode string) (string, error) {
	row := q.db.QueryRow(ctx, deleteCoupon, couponCode)
	var code string
	err := row.Scan(&code)
	return code, err
}
