package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const stockTransactionColumns = `transactionid, itemid, type, quantity, unit_cost, total_cost, previous_stock,
	new_stock, performed_by, reference, related_transaction, status, notes, created_at`

func scanStockTransaction(row pgx.Row) (StockTransaction, error) {
	var t StockTransaction
	err := row.Scan(
		&t.TransactionID,
		&t.ItemID,
		&t.Type,
		&t.Quantity,
		&t.UnitCost,
		&t.TotalCost,
		&t.PreviousStock,
		&t.NewStock,
		&t.PerformedBy,
		&t.Reference,
		&t.RelatedTransaction,
		&t.Status,
		&t.Notes,
		&t.CreatedAt,
	)
	return t, err
}

const createStockTransaction = `INSERT INTO stock_transactions (
	transactionid, itemid, type, quantity, unit_cost, total_cost, previous_stock,
	new_stock, performed_by, reference, related_transaction, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + stockTransactionColumns

type CreateStockTransactionParams struct {
	TransactionID      string          `json:"transactionid"`
	ItemID             string          `json:"itemid"`
	Type               TransactionType `json:"type"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	PreviousStock      decimal.Decimal `json:"previous_stock"`
	NewStock           decimal.Decimal `json:"new_stock"`
	PerformedBy        string          `json:"performed_by"`
	Reference          pgtype.Text     `json:"reference"`
	RelatedTransaction pgtype.Text     `json:"related_transaction"`
	Notes              pgtype.Text     `json:"notes"`
}

func (q *Queries) CreateStockTransaction(ctx context.Context, arg CreateStockTransactionParams) (StockTransaction, error) {
	row := q.db.QueryRow(ctx, createStockTransaction,
		arg.TransactionID,
		arg.ItemID,
		arg.Type,
		arg.Quantity,
		arg.UnitCost,
		arg.TotalCost,
		arg.PreviousStock,
		arg.NewStock,
		arg.PerformedBy,
		arg.Reference,
		arg.RelatedTransaction,
		arg.Notes,
	)
	return scanStockTransaction(row)
}

const getStockTransaction = `SELECT ` + stockTransactionColumns + `
FROM stock_transactions
WHERE transactionid = $1`

func (q *Queries) GetStockTransaction(ctx context.Context, transactionID string) (StockTransaction, error) {
	row := q.db.QueryRow(ctx, getStockTransaction, transactionID)
	return scanStockTransaction(row)
}

const listStockTransactionsByItem = `SELECT ` + stockTransactionColumns + `
FROM stock_transactions
WHERE itemid = $1
  AND ($2::text IS NULL OR type = $2::text)
ORDER BY created_at DESC, transactionid
LIMIT $3 OFFSET $4`

type ListStockTransactionsByItemParams struct {
	ItemID string      `json:"itemid"`
	Type   pgtype.Text `json:"type"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListStockTransactionsByItem(ctx context.Context, arg ListStockTransactionsByItemParams) ([]StockTransaction, error) {
	rows, err := q.db.Query(ctx, listStockTransactionsByItem,
		arg.ItemID,
		arg.Type,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockTransaction{}
	for rows.Next() {
		t, err := scanStockTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const annotateStockTransaction = `UPDATE stock_transactions
SET status = $2, notes = $3
WHERE transactionid = $1
RETURNING ` + stockTransactionColumns

type AnnotateStockTransactionParams struct {
	TransactionID string            `json:"transactionid"`
	Status        TransactionStatus `json:"status"`
	Notes         pgtype.Text       `json:"notes"`
}

// AnnotateStockTransaction is the only permitted mutation of a recorded
// transaction. It never touches quantities or stock snapshots.
func (q *Queries) AnnotateStockTransaction(ctx context.Context, arg AnnotateStockTransactionParams) (StockTransaction, error) {
	row := q.db.QueryRow(ctx, annotateStockTransaction, arg.TransactionID, arg.Status, arg.Notes)
	return scanStockTransaction(row)
}
