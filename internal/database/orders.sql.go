package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `orderid, order_number, tableid, table_number, subtotal, sgst, cgst, discount,
	total_amount, status, payment_status, is_generated_bill, payment_method, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.OrderID,
		&o.OrderNumber,
		&o.TableID,
		&o.TableNumber,
		&o.Subtotal,
		&o.Sgst,
		&o.Cgst,
		&o.Discount,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentStatus,
		&o.IsGeneratedBill,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const getNextOrderNumber = `SELECT COALESCE(MAX(order_number), 0)::int + 1 FROM orders`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const createOrder = `INSERT INTO orders (
	orderid, order_number, tableid, table_number, subtotal, sgst, cgst, total_amount
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderID     string          `json:"orderid"`
	OrderNumber int32           `json:"order_number"`
	TableID     string          `json:"tableid"`
	TableNumber int32           `json:"table_number"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Sgst        decimal.Decimal `json:"sgst"`
	Cgst        decimal.Decimal `json:"cgst"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderID,
		arg.OrderNumber,
		arg.TableID,
		arg.TableNumber,
		arg.Subtotal,
		arg.Sgst,
		arg.Cgst,
		arg.TotalAmount,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders
WHERE orderid = $1`

func (q *Queries) GetOrder(ctx context.Context, orderID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, orderID)
	return scanOrder(row)
}

const getOrderForUpdate = `SELECT ` + orderColumns + `
FROM orders
WHERE orderid = $1
FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, orderID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, orderID)
	return scanOrder(row)
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1::text)
  AND ($2::timestamptz IS NULL OR created_at >= $2::timestamptz)
  AND ($3::timestamptz IS NULL OR created_at < $3::timestamptz + interval '1 day')
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

type ListOrdersParams struct {
	Status    pgtype.Text        `json:"status"`
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderSubtotal = `UPDATE orders
SET subtotal = $2, total_amount = $2, updated_at = now()
WHERE orderid = $1
  AND is_generated_bill = false
  AND status NOT IN ('done', 'cancelled')
RETURNING ` + orderColumns

type UpdateOrderSubtotalParams struct {
	OrderID  string          `json:"orderid"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// UpdateOrderSubtotal returns pgx.ErrNoRows once the order is billed or terminal.
func (q *Queries) UpdateOrderSubtotal(ctx context.Context, arg UpdateOrderSubtotalParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderSubtotal, arg.OrderID, arg.Subtotal)
	return scanOrder(row)
}

const updateOrderStatus = `UPDATE orders
SET status = $2, updated_at = now()
WHERE orderid = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	OrderID  string      `json:"orderid"`
	Status   OrderStatus `json:"status"`
	Status_2 OrderStatus `json:"status_2"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.OrderID, arg.Status, arg.Status_2)
	return scanOrder(row)
}

const markOrderBilled = `UPDATE orders
SET total_amount = $2, discount = $3, sgst = $4, cgst = $5,
    is_generated_bill = true, updated_at = now()
WHERE orderid = $1 AND is_generated_bill = false
RETURNING ` + orderColumns

type MarkOrderBilledParams struct {
	OrderID     string          `json:"orderid"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Discount    decimal.Decimal `json:"discount"`
	Sgst        decimal.Decimal `json:"sgst"`
	Cgst        decimal.Decimal `json:"cgst"`
}

// MarkOrderBilled flips the one-shot bill latch. pgx.ErrNoRows means another
// caller already billed the order.
func (q *Queries) MarkOrderBilled(ctx context.Context, arg MarkOrderBilledParams) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderBilled,
		arg.OrderID,
		arg.TotalAmount,
		arg.Discount,
		arg.Sgst,
		arg.Cgst,
	)
	return scanOrder(row)
}

const completeOrder = `UPDATE orders
SET status = 'done', payment_status = 'paid', payment_method = $2, updated_at = now()
WHERE orderid = $1 AND status NOT IN ('done', 'cancelled')
RETURNING ` + orderColumns

type CompleteOrderParams struct {
	OrderID       string `json:"orderid"`
	PaymentMethod string `json:"payment_method"`
}

func (q *Queries) CompleteOrder(ctx context.Context, arg CompleteOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, completeOrder, arg.OrderID, arg.PaymentMethod)
	return scanOrder(row)
}

const cancelOrder = `UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE orderid = $1 AND status IN ('pending', 'preparing', 'ready')
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, orderID string) (Order, error) {
	row := q.db.QueryRow(ctx, cancelOrder, orderID)
	return scanOrder(row)
}

const createOrderItem = `INSERT INTO order_items (orderid, menuid, quantity, notes)
VALUES ($1, $2, $3, $4)
RETURNING id, orderid, menuid, quantity, notes`

type CreateOrderItemParams struct {
	OrderID  string      `json:"orderid"`
	MenuID   string      `json:"menuid"`
	Quantity int32       `json:"quantity"`
	Notes    pgtype.Text `json:"notes"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.MenuID, arg.Quantity, arg.Notes)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuID, &i.Quantity, &i.Notes)
	return i, err
}

const deleteOrderItems = `DELETE FROM order_items WHERE orderid = $1`

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID string) error {
	_, err := q.db.Exec(ctx, deleteOrderItems, orderID)
	return err
}

const listOrderItemsByOrder = `SELECT id, orderid, menuid, quantity, notes
FROM order_items
WHERE orderid = $1
ORDER BY id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuID, &i.Quantity, &i.Notes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
