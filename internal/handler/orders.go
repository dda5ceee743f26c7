package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, tableID string, items []service.OrderItemRequest) (*service.OrderResult, error)
	UpdateOrder(ctx context.Context, orderID string, items []service.OrderItemRequest) (*service.OrderResult, error)
	GetOrder(ctx context.Context, orderID string) (*service.OrderResult, error)
	ChangeStatus(ctx context.Context, orderID string, next database.OrderStatus) (*database.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*database.Order, error)
}

// BillingServicer defines the billing methods needed by order handlers.
// Satisfied by *service.BillingService.
type BillingServicer interface {
	GenerateBill(ctx context.Context, req service.BillRequest) (*service.BillResult, error)
	CompleteOrder(ctx context.Context, orderID, paymentMethod string) (*database.Order, error)
}

// OrderStore defines the database methods needed by the order list handler.
// Satisfied by *database.Queries.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// OrderHandler handles order and billing endpoints.
type OrderHandler struct {
	svc     OrderServicer
	billing BillingServicer
	store   OrderStore
	loc     *time.Location
}

// NewOrderHandler creates a new OrderHandler. Date filters are read in loc.
func NewOrderHandler(svc OrderServicer, billing BillingServicer, store OrderStore, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, billing: billing, store: store, loc: loc}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermOrderRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermOrderWrite))
		r.Post("/", h.Create)
		r.Put("/{id}/items", h.UpdateItems)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermOrderBill))
		r.Post("/{id}/bill", h.Bill)
		r.Post("/{id}/complete", h.Complete)
	})
}

// --- Request types ---

type orderItemRequest struct {
	MenuID   string `json:"menuid" validate:"required"`
	Quantity int32  `json:"quantity" validate:"gt=0"`
	Notes    string `json:"notes" validate:"max=500"`
}

type createOrderRequest struct {
	TableID string             `json:"tableid" validate:"required"`
	Items   []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderItemsRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending preparing ready served done cancelled"`
}

type billRequest struct {
	CouponCodes []string         `json:"coupon_codes" validate:"max=10,dive,required"`
	SGST        *decimal.Decimal `json:"sgst"`
	CGST        *decimal.Decimal `json:"cgst"`
}

type completeRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card upi other"`
}

func toOrderItems(in []orderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(in))
	for i, it := range in {
		out[i] = service.OrderItemRequest{MenuID: it.MenuID, Quantity: it.Quantity, Notes: it.Notes}
	}
	return out
}

// --- Handlers ---

// List returns orders newest first, filtered by ?status= and an optional
// start_date/end_date range.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := q.Get("status"); s != "" {
		if !service.ValidOrderStatus(database.OrderStatus(s)) {
			badRequest(w, r, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if q.Get("start_date") != "" || q.Get("end_date") != "" {
		start, end, err := parseDateRange(r, h.loc)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: start, Valid: true}
		params.EndDate = pgtype.Timestamptz{Time: end, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeStoreError(w, r, "ListOrders", "orders", err)
		return
	}
	if orders == nil {
		orders = []database.Order{}
	}

	writeJSON(w, r, http.StatusOK, listResponse[database.Order]{Data: orders, Limit: limit, Offset: offset})
}

// Get returns an order with its lines.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "GetOrder", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Create opens an order on a table and occupies it.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.CreateOrder(r.Context(), req.TableID, toOrderItems(req.Items))
	if err != nil {
		writeServiceError(w, r, "CreateOrder", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, res)
}

// UpdateItems replaces an unbilled order's lines and recomputes its subtotal.
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	var req updateOrderItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateOrder(r.Context(), chi.URLParam(r, "id"), toOrderItems(req.Items))
	if err != nil {
		writeServiceError(w, r, "UpdateOrderItems", err)
		return
	}

	writeJSON(w, r, http.StatusOK, res)
}

// UpdateStatus moves an order along the kitchen workflow.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), database.OrderStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, "UpdateOrderStatus", err)
		return
	}

	writeJSON(w, r, http.StatusOK, order)
}

// Cancel cancels an order that has not been served.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "CancelOrder", err)
		return
	}
	writeJSON(w, r, http.StatusOK, order)
}

// Bill generates the order's bill once. Coupons that cannot be consumed are
// reported with applied=false rather than failing the bill.
func (h *OrderHandler) Bill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.billing.GenerateBill(r.Context(), service.BillRequest{
		OrderID:     chi.URLParam(r, "id"),
		CouponCodes: req.CouponCodes,
		SGST:        req.SGST,
		CGST:        req.CGST,
	})
	if err != nil {
		writeServiceError(w, r, "GenerateBill", err)
		return
	}
	if res.Coupons == nil {
		res.Coupons = []service.Consumption{}
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Complete records the payment method and closes the order.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.billing.CompleteOrder(r.Context(), chi.URLParam(r, "id"), req.PaymentMethod)
	if err != nil {
		writeServiceError(w, r, "CompleteOrder", err)
		return
	}

	writeJSON(w, r, http.StatusOK, order)
}
