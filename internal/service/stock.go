package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/inventory"
	"github.com/tavola-pos/backoffice/internal/logging"
)

// StockStore defines the DB methods the stock recorder needs.
// Satisfied by *database.Queries.
type StockStore interface {
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	GetInventoryItemForUpdate(ctx context.Context, itemID string) (database.InventoryItem, error)
	ApplyInventoryItemStock(ctx context.Context, arg database.ApplyInventoryItemStockParams) (database.InventoryItem, error)
	CreateStockTransaction(ctx context.Context, arg database.CreateStockTransactionParams) (database.StockTransaction, error)
}

// NewStockStore creates a StockStore from a DBTX (pool or tx).
type NewStockStore func(db database.DBTX) StockStore

// RecordRequest is one stock movement. Quantity is a magnitude for every type
// except adjustment, whose sign is preserved.
type RecordRequest struct {
	TransactionID      string
	ItemID             string
	Type               database.TransactionType
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	PerformedBy        string
	Reference          string
	RelatedTransaction string
	Notes              string
}

// RecordResult is the immutable transaction row plus the item after it.
type RecordResult struct {
	Transaction database.StockTransaction
	Item        database.InventoryItem
}

// CreateItemRequest registers a new inventory item. A positive OpeningStock is
// booked as a purchase so the item never holds stock without a ledger row.
type CreateItemRequest struct {
	ItemID          string
	Name            string
	Category        database.InventoryCategory
	Unit            database.InventoryUnit
	MinimumStock    decimal.Decimal
	MaximumStock    decimal.NullDecimal
	Status          database.ItemStatus
	IsPerishable    bool
	OpeningStock    decimal.Decimal
	OpeningUnitCost decimal.Decimal
	PerformedBy     string
}

// StockService is the only path that changes an item's stock.
type StockService struct {
	pool     TxBeginner
	newStore NewStockStore
}

func NewStockService(pool TxBeginner, newStore NewStockStore) *StockService {
	return &StockService{pool: pool, newStore: newStore}
}

// Record applies one stock movement and appends its transaction row in a
// single database transaction.
func (s *StockService) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	res, err := recordTx(ctx, s.newStore(tx), req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Alert(logging.FromContext(ctx), "service", "Record", "commit stock transaction", res.Transaction.TransactionID, err)
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}

// CreateItem inserts the item and, when requested, its opening purchase.
func (s *StockService) CreateItem(ctx context.Context, req CreateItemRequest) (*RecordResult, error) {
	if req.OpeningStock.IsNegative() {
		return nil, fmt.Errorf("%w: opening_stock must be >= 0", ErrValidation)
	}
	if req.OpeningUnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, inventory.ErrNegativeCost)
	}
	status := req.Status
	if status == "" {
		status = database.ItemStatusActive
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.CreateInventoryItem(ctx, database.CreateInventoryItemParams{
		ItemID:       req.ItemID,
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		MinimumStock: req.MinimumStock,
		MaximumStock: req.MaximumStock,
		Status:       status,
		IsPerishable: req.IsPerishable,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("itemid %q: %w", req.ItemID, ErrDuplicateID)
		}
		return nil, fmt.Errorf("create inventory item: %w", err)
	}

	res := &RecordResult{Item: item}
	if req.OpeningStock.IsPositive() {
		res, err = recordTx(ctx, store, RecordRequest{
			ItemID:      item.ItemID,
			Type:        database.TransactionTypePurchase,
			Quantity:    req.OpeningStock,
			UnitCost:    req.OpeningUnitCost,
			PerformedBy: req.PerformedBy,
			Reference:   enum.ReferenceOpening,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}

// recordTx does the work of Record against a store bound to an open tx.
// The item row is locked first, so the compare-and-swap below only fails if
// the caller skipped the lock.
func recordTx(ctx context.Context, store StockStore, req RecordRequest) (*RecordResult, error) {
	signed, err := inventory.NormalizeQuantity(req.Type, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, inventory.ErrNegativeCost)
	}
	if !inventory.FitsScale(req.UnitCost) {
		return nil, fmt.Errorf("%w: unit cost: %w", ErrValidation, inventory.ErrTooPrecise)
	}
	if req.PerformedBy == "" {
		return nil, fmt.Errorf("%w: performed_by is required", ErrValidation)
	}

	item, err := store.GetInventoryItemForUpdate(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", req.ItemID, ErrItemNotFound)
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}

	// Outbound movements are valued at the running average unless the caller
	// priced them.
	unitCost := req.UnitCost
	if req.Type != database.TransactionTypePurchase && unitCost.IsZero() {
		unitCost = item.AverageCostPerUnit
	}

	applied, err := inventory.ApplyDelta(inventory.StateOf(item), req.Type, signed, unitCost)
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return nil, &ShortageError{Shortages: []inventory.Shortage{{
				ItemID:    item.ItemID,
				Name:      item.Name,
				Required:  signed.Abs(),
				Available: item.CurrentStock,
				Unit:      string(item.Unit),
			}}}
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	updated, err := store.ApplyInventoryItemStock(ctx, database.ApplyInventoryItemStockParams{
		ItemID:             item.ItemID,
		CurrentStock:       applied.NewStock,
		AverageCostPerUnit: applied.AverageCostPerUnit,
		TotalValue:         applied.TotalValue,
		PreviousStock:      applied.PreviousStock,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %q: %w", item.ItemID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("apply stock: %w", err)
	}

	txnID := req.TransactionID
	if txnID == "" {
		txnID = "TXN-" + uuid.NewString()
	}

	txn, err := store.CreateStockTransaction(ctx, database.CreateStockTransactionParams{
		TransactionID:      txnID,
		ItemID:             item.ItemID,
		Type:               req.Type,
		Quantity:           signed,
		UnitCost:           unitCost,
		TotalCost:          inventory.TotalCost(signed, unitCost),
		PreviousStock:      applied.PreviousStock,
		NewStock:           applied.NewStock,
		PerformedBy:        req.PerformedBy,
		Reference:          optionalText(req.Reference),
		RelatedTransaction: optionalText(req.RelatedTransaction),
		Notes:              optionalText(req.Notes),
	})
	if err != nil {
		if isUniqueViolation(err, "stock_transactions_pkey") {
			return nil, fmt.Errorf("transactionid %q: %w", txnID, ErrDuplicateID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("related transaction %q: %w", req.RelatedTransaction, ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("create stock transaction: %w", err)
	}

	return &RecordResult{Transaction: txn, Item: updated}, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
