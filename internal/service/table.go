package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/logging"
)

// TableStore defines the DB methods needed to move a table between states.
// Satisfied by *database.Queries.
type TableStore interface {
	GetTable(ctx context.Context, tableID string) (database.RestaurantTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error)
}

// ValidTableStatus reports whether s is a known table status.
func ValidTableStatus(s database.TableStatus) bool {
	switch s {
	case database.TableStatusAvailable, database.TableStatusOccupied, database.TableStatusReserved:
		return true
	}
	return false
}

// ChangeTableStatus moves a table to status. Any failure is reported as
// ErrTableUnavailable so order creation can refuse to proceed.
func ChangeTableStatus(ctx context.Context, store TableStore, tableID string, status database.TableStatus) (database.RestaurantTable, error) {
	if !ValidTableStatus(status) {
		return database.RestaurantTable{}, fmt.Errorf("table status %q: %w", status, ErrInvalidStatus)
	}
	t, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		TableID: tableID,
		Status:  status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RestaurantTable{}, fmt.Errorf("table %q not found: %w", tableID, ErrTableUnavailable)
		}
		return database.RestaurantTable{}, fmt.Errorf("table %q: %w: %w", tableID, ErrTableUnavailable, err)
	}
	return t, nil
}

// freeTable marks the table available in its own transaction after an order
// reached a terminal state. Failure is logged, never returned.
func freeTable(ctx context.Context, pool TxBeginner, newStore func(database.DBTX) TableStore, tableID string) {
	entry := logging.FromContext(ctx).WithField("tableid", tableID)

	tx, err := pool.Begin(ctx)
	if err != nil {
		entry.Warn("free table: begin tx: " + err.Error())
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := ChangeTableStatus(ctx, newStore(tx), tableID, database.TableStatusAvailable); err != nil {
		entry.Warn("free table: " + err.Error())
		return
	}
	if err := tx.Commit(ctx); err != nil {
		entry.Warn("free table: commit tx: " + err.Error())
	}
}
