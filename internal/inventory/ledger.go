// Package inventory holds the pure stock ledger arithmetic: sign
// normalisation, delta application, weighted-average costing and the
// recipe availability math. Nothing here touches the database.
package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
)

// Scale is the number of decimal places kept for stock quantities and costs,
// matching the NUMERIC(14,4) columns.
const Scale = 4

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be non-zero")
	ErrNegativeQuantity  = errors.New("quantity must be > 0")
	ErrNegativeCost      = errors.New("unit cost must be >= 0")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrTooPrecise        = errors.New("value has more than 4 decimal places")
)

// State is the part of an inventory item the ledger reads and writes.
type State struct {
	CurrentStock       decimal.Decimal
	AverageCostPerUnit decimal.Decimal
}

// Applied is the result of applying a delta to a State.
type Applied struct {
	PreviousStock      decimal.Decimal
	NewStock           decimal.Decimal
	AverageCostPerUnit decimal.Decimal
	TotalValue         decimal.Decimal
}

// StateOf extracts the ledger state from a stored item.
func StateOf(item database.InventoryItem) State {
	return State{
		CurrentStock:       item.CurrentStock,
		AverageCostPerUnit: item.AverageCostPerUnit,
	}
}

// IsOutbound reports whether a transaction type always removes stock.
func IsOutbound(t database.TransactionType) bool {
	switch t {
	case database.TransactionTypeUsage, database.TransactionTypeWaste, database.TransactionTypeTransfer:
		return true
	}
	return false
}

// ValidType reports whether t is one of the known transaction types.
func ValidType(t database.TransactionType) bool {
	switch t {
	case database.TransactionTypePurchase, database.TransactionTypeUsage,
		database.TransactionTypeWaste, database.TransactionTypeAdjustment,
		database.TransactionTypeReturn, database.TransactionTypeTransfer:
		return true
	}
	return false
}

// FitsScale reports whether v is stored unchanged by a Scale-place column.
func FitsScale(v decimal.Decimal) bool {
	return v.Round(Scale).Equal(v)
}

// NormalizeQuantity returns the signed quantity stored for a transaction.
// Adjustments keep the caller's sign and must be non-zero. Every other type
// takes a positive magnitude; usage, waste and transfer are stored negative.
// Quantities finer than Scale are rejected so the stored snapshots satisfy
// previousStock + quantity == newStock.
func NormalizeQuantity(t database.TransactionType, qty decimal.Decimal) (decimal.Decimal, error) {
	if !ValidType(t) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	if !FitsScale(qty) {
		return decimal.Zero, fmt.Errorf("quantity %s: %w", qty.String(), ErrTooPrecise)
	}
	if t == database.TransactionTypeAdjustment {
		if qty.IsZero() {
			return decimal.Zero, ErrInvalidQuantity
		}
		return qty, nil
	}
	if !qty.IsPositive() {
		return decimal.Zero, ErrNegativeQuantity
	}
	if IsOutbound(t) {
		return qty.Neg(), nil
	}
	return qty, nil
}

// TotalValue is currentStock × averageCostPerUnit at ledger scale.
func TotalValue(stock, avgCost decimal.Decimal) decimal.Decimal {
	return stock.Mul(avgCost).Round(Scale)
}

// WeightedAverage blends a purchase into the running average cost. If the
// resulting stock is not positive the prior average is kept.
func WeightedAverage(oldStock, oldAvg, purchasedQty, purchaseCost decimal.Decimal) decimal.Decimal {
	newStock := oldStock.Add(purchasedQty)
	if !newStock.IsPositive() {
		return oldAvg
	}
	return oldStock.Mul(oldAvg).
		Add(purchasedQty.Mul(purchaseCost)).
		Div(newStock).
		Round(Scale)
}

// ApplyDelta computes the item's next state for a signed quantity. It fails
// with ErrInsufficientStock before anything is written if the stock would go
// below zero. Only purchases move the average cost.
func ApplyDelta(s State, t database.TransactionType, signedQty, unitCost decimal.Decimal) (Applied, error) {
	if unitCost.IsNegative() {
		return Applied{}, ErrNegativeCost
	}
	if !FitsScale(signedQty) {
		return Applied{}, fmt.Errorf("quantity %s: %w", signedQty.String(), ErrTooPrecise)
	}
	if !FitsScale(unitCost) {
		return Applied{}, fmt.Errorf("unit cost %s: %w", unitCost.String(), ErrTooPrecise)
	}
	newStock := s.CurrentStock.Add(signedQty)
	if newStock.IsNegative() {
		return Applied{}, fmt.Errorf("%w: have %s, need %s",
			ErrInsufficientStock, s.CurrentStock.String(), signedQty.Abs().String())
	}

	avg := s.AverageCostPerUnit
	if t == database.TransactionTypePurchase {
		avg = WeightedAverage(s.CurrentStock, s.AverageCostPerUnit, signedQty, unitCost)
	}

	return Applied{
		PreviousStock:      s.CurrentStock,
		NewStock:           newStock,
		AverageCostPerUnit: avg,
		TotalValue:         TotalValue(newStock, avg),
	}, nil
}

// TotalCost is |quantity| × unitCost.
func TotalCost(signedQty, unitCost decimal.Decimal) decimal.Decimal {
	return signedQty.Abs().Mul(unitCost).Round(Scale)
}

// IsLowStock reports whether an item sits at or below its minimum.
func IsLowStock(item database.InventoryItem) bool {
	return item.CurrentStock.LessThanOrEqual(item.MinimumStock)
}
