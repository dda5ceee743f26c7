package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/lock"
	"github.com/tavola-pos/backoffice/internal/logging"
)

var hundred = decimal.NewFromInt(100)

// BillingStore defines the DB methods needed to bill and settle orders.
// Satisfied by *database.Queries.
type BillingStore interface {
	CouponStore
	TableStore
	GetOrderForUpdate(ctx context.Context, orderID string) (database.Order, error)
	MarkOrderBilled(ctx context.Context, arg database.MarkOrderBilledParams) (database.Order, error)
	CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error)
}

type NewBillingStore func(db database.DBTX) BillingStore

// BillRequest asks for an order to be billed. Nil tax rates fall back to the
// rates stored on the order.
type BillRequest struct {
	OrderID     string
	CouponCodes []string
	SGST        *decimal.Decimal
	CGST        *decimal.Decimal
}

// Breakdown is the bill arithmetic, step by step.
type Breakdown struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	TotalDiscountPct decimal.Decimal `json:"total_discount_pct"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	AfterDiscount    decimal.Decimal `json:"after_discount"`
	TotalTaxPct      decimal.Decimal `json:"total_tax_pct"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// BillResult is the billed order and how its total was reached.
type BillResult struct {
	Order     database.Order `json:"order"`
	Breakdown Breakdown      `json:"breakdown"`
	Coupons   []Consumption  `json:"coupons"`
}

// CalculateBill applies discount first, then tax on the discounted amount,
// then rounds up to a whole currency unit. Negative totals become zero.
func CalculateBill(subtotal, discountPct, sgst, cgst decimal.Decimal) Breakdown {
	discountAmount := subtotal.Mul(discountPct).Div(hundred)
	afterDiscount := subtotal.Sub(discountAmount)
	taxPct := sgst.Add(cgst)
	taxAmount := afterDiscount.Mul(taxPct).Div(hundred)

	total := afterDiscount.Add(taxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:         subtotal,
		TotalDiscountPct: discountPct,
		DiscountAmount:   discountAmount,
		AfterDiscount:    afterDiscount,
		TotalTaxPct:      taxPct,
		TaxAmount:        taxAmount,
		TotalAmount:      total.Ceil(),
	}
}

// BillingService computes bills and settles orders.
type BillingService struct {
	pool     TxBeginner
	newStore NewBillingStore
	locker   lock.Locker
}

func NewBillingService(pool TxBeginner, newStore NewBillingStore, locker lock.Locker) *BillingService {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &BillingService{pool: pool, newStore: newStore, locker: locker}
}

// GenerateBill consumes the coupons, computes the total and flips the
// one-shot bill flag, all in one transaction. The order row is locked first;
// the conditional update on the flag is a second guard that rolls back the
// coupon decrements if another caller billed in between.
func (s *BillingService) GenerateBill(ctx context.Context, req BillRequest) (*BillResult, error) {
	if (req.SGST != nil && req.SGST.IsNegative()) || (req.CGST != nil && req.CGST.IsNegative()) {
		return nil, ErrInvalidTaxRate
	}

	release := s.locker.Acquire(ctx, "order:"+req.OrderID)
	defer release()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", req.OrderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.IsGeneratedBill {
		return nil, ErrAlreadyBilled
	}

	sgst, cgst := order.Sgst, order.Cgst
	if req.SGST != nil {
		sgst = *req.SGST
	}
	if req.CGST != nil {
		cgst = *req.CGST
	}

	discountPct := decimal.Zero
	coupons := make([]Consumption, 0, len(req.CouponCodes))
	seen := make(map[string]bool, len(req.CouponCodes))
	for _, code := range req.CouponCodes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		c, err := tryConsume(ctx, store, code)
		if err != nil {
			return nil, err
		}
		if c.Applied {
			discountPct = discountPct.Add(c.DiscountPercentage)
		}
		coupons = append(coupons, *c)
	}

	bd := CalculateBill(order.Subtotal, discountPct, sgst, cgst)

	billed, err := store.MarkOrderBilled(ctx, database.MarkOrderBilledParams{
		OrderID:     order.OrderID,
		TotalAmount: bd.TotalAmount,
		Discount:    discountPct,
		Sgst:        sgst,
		Cgst:        cgst,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyBilled
		}
		return nil, fmt.Errorf("mark order billed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"orderid":      billed.OrderID,
		"total_amount": bd.TotalAmount.String(),
		"discount_pct": discountPct.String(),
	}).Info("bill generated")

	return &BillResult{Order: billed, Breakdown: bd, Coupons: coupons}, nil
}

// CompleteOrder records payment and closes the order. A prior bill is not
// required. Done and cancelled orders cannot be completed.
func (s *BillingService) CompleteOrder(ctx context.Context, orderID, paymentMethod string) (*database.Order, error) {
	if paymentMethod == "" {
		return nil, ErrMissingPayment
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
	if IsTerminal(current.Status) {
		return nil, fmt.Errorf("order is %s: %w", current.Status, ErrInvalidStateTransition)
	}

	order, err := store.CompleteOrder(ctx, database.CompleteOrderParams{
		OrderID:       orderID,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %q: %w", orderID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("complete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	freeTable(ctx, s.pool, s.tableStore, order.TableID)
	return &order, nil
}

func (s *BillingService) tableStore(db database.DBTX) TableStore {
	return s.newStore(db)
}
