package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const inventoryItemColumns = `itemid, name, category, unit, current_stock, minimum_stock, maximum_stock,
	average_cost_per_unit, total_value, status, is_perishable, is_active, created_at, updated_at`

func scanInventoryItem(row pgx.Row) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ItemID,
		&i.Name,
		&i.Category,
		&i.Unit,
		&i.CurrentStock,
		&i.MinimumStock,
		&i.MaximumStock,
		&i.AverageCostPerUnit,
		&i.TotalValue,
		&i.Status,
		&i.IsPerishable,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createInventoryItem = `INSERT INTO inventory_items (
	itemid, name, category, unit, minimum_stock, maximum_stock, status, is_perishable
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + inventoryItemColumns

type CreateInventoryItemParams struct {
	ItemID       string              `json:"itemid"`
	Name         string              `json:"name"`
	Category     InventoryCategory   `json:"category"`
	Unit         InventoryUnit       `json:"unit"`
	MinimumStock decimal.Decimal     `json:"minimum_stock"`
	MaximumStock decimal.NullDecimal `json:"maximum_stock"`
	Status       ItemStatus          `json:"status"`
	IsPerishable bool                `json:"is_perishable"`
}

// CreateInventoryItem inserts an item with zero stock and zero cost; stock only
// ever arrives through stock transactions.
func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.ItemID,
		arg.Name,
		arg.Category,
		arg.Unit,
		arg.MinimumStock,
		arg.MaximumStock,
		arg.Status,
		arg.IsPerishable,
	)
	return scanInventoryItem(row)
}

const getInventoryItem = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE itemid = $1 AND is_active = true`

func (q *Queries) GetInventoryItem(ctx context.Context, itemID string) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, getInventoryItem, itemID)
	return scanInventoryItem(row)
}

const getInventoryItemForUpdate = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE itemid = $1 AND is_active = true
FOR UPDATE`

func (q *Queries) GetInventoryItemForUpdate(ctx context.Context, itemID string) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, getInventoryItemForUpdate, itemID)
	return scanInventoryItem(row)
}

const listInventoryItems = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE is_active = true
  AND ($1::text IS NULL OR category = $1::text)
  AND ($2::text IS NULL OR status = $2::text)
  AND ($3::boolean = false OR current_stock <= minimum_stock)
ORDER BY name
LIMIT $4 OFFSET $5`

type ListInventoryItemsParams struct {
	Category     pgtype.Text `json:"category"`
	Status       pgtype.Text `json:"status"`
	LowStockOnly bool        `json:"low_stock_only"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

func (q *Queries) ListInventoryItems(ctx context.Context, arg ListInventoryItemsParams) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems,
		arg.Category,
		arg.Status,
		arg.LowStockOnly,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateInventoryItemDetails = `UPDATE inventory_items
SET name = $2, category = $3, unit = $4, minimum_stock = $5, maximum_stock = $6,
    status = $7, is_perishable = $8, updated_at = now()
WHERE itemid = $1 AND is_active = true
RETURNING ` + inventoryItemColumns

type UpdateInventoryItemDetailsParams struct {
	ItemID       string              `json:"itemid"`
	Name         string              `json:"name"`
	Category     InventoryCategory   `json:"category"`
	Unit         InventoryUnit       `json:"unit"`
	MinimumStock decimal.Decimal     `json:"minimum_stock"`
	MaximumStock decimal.NullDecimal `json:"maximum_stock"`
	Status       ItemStatus          `json:"status"`
	IsPerishable bool                `json:"is_perishable"`
}

// UpdateInventoryItemDetails edits descriptive fields only. Stock, cost and
// value columns are deliberately absent.
func (q *Queries) UpdateInventoryItemDetails(ctx context.Context, arg UpdateInventoryItemDetailsParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, updateInventoryItemDetails,
		arg.ItemID,
		arg.Name,
		arg.Category,
		arg.Unit,
		arg.MinimumStock,
		arg.MaximumStock,
		arg.Status,
		arg.IsPerishable,
	)
	return scanInventoryItem(row)
}

const applyInventoryItemStock = `UPDATE inventory_items
SET current_stock = $2, average_cost_per_unit = $3, total_value = $4, updated_at = now()
WHERE itemid = $1 AND is_active = true AND current_stock = $5
RETURNING ` + inventoryItemColumns

type ApplyInventoryItemStockParams struct {
	ItemID             string          `json:"itemid"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	AverageCostPerUnit decimal.Decimal `json:"average_cost_per_unit"`
	TotalValue         decimal.Decimal `json:"total_value"`
	PreviousStock      decimal.Decimal `json:"previous_stock"`
}

// ApplyInventoryItemStock is a compare-and-swap on current_stock. It returns
// pgx.ErrNoRows when the stock moved since PreviousStock was read.
func (q *Queries) ApplyInventoryItemStock(ctx context.Context, arg ApplyInventoryItemStockParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, applyInventoryItemStock,
		arg.ItemID,
		arg.CurrentStock,
		arg.AverageCostPerUnit,
		arg.TotalValue,
		arg.PreviousStock,
	)
	return scanInventoryItem(row)
}

const softDeleteInventoryItem = `UPDATE inventory_items
SET is_active = false, updated_at = now()
WHERE itemid = $1 AND is_active = true
RETURNING itemid`

func (q *Queries) SoftDeleteInventoryItem(ctx context.Context, itemID string) (string, error) {
	row := q.db.QueryRow(ctx, softDeleteInventoryItem, itemID)
	var id string
	err := row.Scan(&id)
	return id, err
}
