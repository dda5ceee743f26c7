package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const getDailySales = `SELECT
    date_trunc('day', created_at)::date AS day,
    COUNT(*)::bigint AS order_count,
    COALESCE(SUM(subtotal), 0)::numeric AS gross_sales,
    COALESCE(SUM(total_amount), 0)::numeric AS net_sales
FROM orders
WHERE status = 'done'
  AND created_at >= $1
  AND created_at < $2
GROUP BY day
ORDER BY day`

type GetDailySalesParams struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type GetDailySalesRow struct {
	Day        time.Time       `json:"day"`
	OrderCount int64           `json:"order_count"`
	GrossSales decimal.Decimal `json:"gross_sales"`
	NetSales   decimal.Decimal `json:"net_sales"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.Day, &i.OrderCount, &i.GrossSales, &i.NetSales); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPaymentSummary = `SELECT
    COALESCE(payment_method, 'unknown') AS payment_method,
    COUNT(*)::bigint AS order_count,
    COALESCE(SUM(total_amount), 0)::numeric AS total_amount
FROM orders
WHERE status = 'done'
  AND created_at >= $1
  AND created_at < $2
GROUP BY payment_method
ORDER BY total_amount DESC`

type GetPaymentSummaryParams struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type GetPaymentSummaryRow struct {
	PaymentMethod string          `json:"payment_method"`
	OrderCount    int64           `json:"order_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.PaymentMethod, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getInventoryValuation = `SELECT
    category,
    COUNT(*)::bigint AS item_count,
    COALESCE(SUM(total_value), 0)::numeric AS total_value,
    COUNT(*) FILTER (WHERE current_stock <= minimum_stock)::bigint AS low_stock_count
FROM inventory_items
WHERE is_active = true
GROUP BY category
ORDER BY category`

type GetInventoryValuationRow struct {
	Category      InventoryCategory `json:"category"`
	ItemCount     int64             `json:"item_count"`
	TotalValue    decimal.Decimal   `json:"total_value"`
	LowStockCount int64             `json:"low_stock_count"`
}

func (q *Queries) GetInventoryValuation(ctx context.Context) ([]GetInventoryValuationRow, error) {
	rows, err := q.db.Query(ctx, getInventoryValuation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetInventoryValuationRow{}
	for rows.Next() {
		var i GetInventoryValuationRow
		if err := rows.Scan(&i.Category, &i.ItemCount, &i.TotalValue, &i.LowStockCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
