package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/logging"
)

const maxOrderNumberRetries = 3

// OrderStore defines the DB methods needed to create and maintain orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	TableStore
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetMenuItem(ctx context.Context, menuID string) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, orderID string) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (database.Order, error)
	UpdateOrderSubtotal(ctx context.Context, arg database.UpdateOrderSubtotalParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, orderID string) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItems(ctx context.Context, orderID string) error
	ListOrderItemsByOrder(ctx context.Context, orderID string) ([]database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItemRequest is one line of an order.
type OrderItemRequest struct {
	MenuID   string
	Quantity int32
	Notes    string
}

// OrderResult is an order with its lines.
type OrderResult struct {
	Order database.Order       `json:"order"`
	Items []database.OrderItem `json:"items"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool        TxBeginner
	newStore    NewOrderStore
	defaultSGST decimal.Decimal
	defaultCGST decimal.Decimal
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, sgst, cgst decimal.Decimal) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, defaultSGST: sgst, defaultCGST: cgst}
}

// allowedTransitions maps current status -> set of valid next statuses.
var allowedTransitions = map[database.OrderStatus]map[database.OrderStatus]bool{
	database.OrderStatusPending: {
		database.OrderStatusPreparing: true,
		database.OrderStatusCancelled: true,
	},
	database.OrderStatusPreparing: {
		database.OrderStatusReady:     true,
		database.OrderStatusCancelled: true,
	},
	database.OrderStatusReady: {
		database.OrderStatusServed:    true,
		database.OrderStatusCancelled: true,
	},
	database.OrderStatusServed: {
		database.OrderStatusDone: true,
	},
}

// CanTransition reports whether an order may move from -> to.
func CanTransition(from, to database.OrderStatus) bool {
	return allowedTransitions[from][to]
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s database.OrderStatus) bool {
	return s == database.OrderStatusDone || s == database.OrderStatusCancelled
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending, database.OrderStatusPreparing, database.OrderStatusReady,
		database.OrderStatusServed, database.OrderStatusDone, database.OrderStatusCancelled:
		return true
	}
	return false
}

// CreateOrder occupies the table, prices the lines and inserts the order in
// one transaction. Retries up to maxOrderNumberRetries times on order number
// unique violations (concurrent transactions reading the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, tableID string, items []OrderItemRequest) (*OrderResult, error) {
	if err := validateOrderItems(items); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, tableID, items)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrConcurrencyConflict, lastErr)
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number or the id derived from it.
func isOrderNumberConflict(err error) bool {
	return isUniqueViolation(err, "orders_order_number_key") || isUniqueViolation(err, "orders_pkey")
}

func (s *OrderService) createOrderTx(ctx context.Context, tableID string, items []OrderItemRequest) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// The table changes first; if it cannot be occupied no order is written.
	table, err := ChangeTableStatus(ctx, store, tableID, database.TableStatusOccupied)
	if err != nil {
		return nil, err
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	subtotal, err := s.subtotal(ctx, store, items)
	if err != nil {
		return nil, err
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderID:     fmt.Sprintf("ORD-%05d", nextNum),
		OrderNumber: nextNum,
		TableID:     table.TableID,
		TableNumber: table.TableNumber,
		Subtotal:    subtotal,
		Sgst:        s.defaultSGST,
		Cgst:        s.defaultCGST,
		TotalAmount: subtotal,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	lines, err := insertOrderItems(ctx, store, order.OrderID, items)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: lines}, nil
}

// UpdateOrder replaces the order's lines and recomputes its subtotal. Billed
// and terminal orders are frozen.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID string, items []OrderItemRequest) (*OrderResult, error) {
	if err := validateOrderItems(items); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if current.IsGeneratedBill {
		return nil, ErrAlreadyBilled
	}
	if IsTerminal(current.Status) {
		return nil, fmt.Errorf("order is %s: %w", current.Status, ErrInvalidStateTransition)
	}

	subtotal, err := s.subtotal(ctx, store, items)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteOrderItems(ctx, orderID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}
	lines, err := insertOrderItems(ctx, store, orderID, items)
	if err != nil {
		return nil, err
	}

	order, err := store.UpdateOrderSubtotal(ctx, database.UpdateOrderSubtotalParams{
		OrderID:  orderID,
		Subtotal: subtotal,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %q: %w", orderID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("update order subtotal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Items: lines}, nil
}

// GetOrder loads an order and its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	lines, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Items: lines}, nil
}

// ChangeStatus moves an order along the kitchen workflow. The update is
// conditional on the status read, so a concurrent change surfaces as
// ErrConcurrencyConflict instead of being overwritten.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID string, next database.OrderStatus) (*database.Order, error) {
	if !ValidOrderStatus(next) {
		return nil, fmt.Errorf("order status %q: %w", next, ErrInvalidStatus)
	}
	if next == database.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !CanTransition(current.Status, next) {
		return nil, fmt.Errorf("cannot transition from %s to %s: %w", current.Status, next, ErrInvalidStateTransition)
	}

	order, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		OrderID:  orderID,
		Status:   next,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %q status changed concurrently: %w", orderID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if next == database.OrderStatusDone {
		freeTable(ctx, s.pool, s.tableStore, order.TableID)
	}
	return &order, nil
}

// CancelOrder cancels a pending, preparing or ready order and frees its table.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !CanTransition(current.Status, database.OrderStatusCancelled) {
		return nil, fmt.Errorf("cannot cancel %s order: %w", current.Status, ErrInvalidStateTransition)
	}

	order, err := store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %q: %w", orderID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	freeTable(ctx, s.pool, s.tableStore, order.TableID)
	return &order, nil
}

func (s *OrderService) tableStore(db database.DBTX) TableStore {
	return s.newStore(db)
}

// subtotal sums price × quantity over the lines. Menu ids that no longer
// resolve contribute nothing so orders survive menu deletions.
func (s *OrderService) subtotal(ctx context.Context, store OrderStore, items []OrderItemRequest) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, item := range items {
		menu, err := store.GetMenuItem(ctx, item.MenuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logging.FromContext(ctx).WithField("menuid", item.MenuID).
					Warn("order line references unknown menu item; priced at 0")
				continue
			}
			return decimal.Zero, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		total = total.Add(menu.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total.Round(2), nil
}

func validateOrderItems(items []OrderItemRequest) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.MenuID == "" {
			return fmt.Errorf("item[%d]: %w: menuid is required", i, ErrValidation)
		}
	}
	return nil
}

func insertOrderItems(ctx context.Context, store OrderStore, orderID string, items []OrderItemRequest) ([]database.OrderItem, error) {
	out := make([]database.OrderItem, 0, len(items))
	for i, item := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:  orderID,
			MenuID:   item.MenuID,
			Quantity: item.Quantity,
			Notes:    optionalText(item.Notes),
		})
		if err != nil {
			return nil, fmt.Errorf("item[%d]: create order item: %w", i, err)
		}
		out = append(out, row)
	}
	return out, nil
}
