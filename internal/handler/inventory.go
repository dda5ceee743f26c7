package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// InventoryStore defines the database methods needed by inventory read and
// metadata handlers. Stock itself only changes through StockServicer.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	GetInventoryItem(ctx context.Context, itemID string) (database.InventoryItem, error)
	ListInventoryItems(ctx context.Context, arg database.ListInventoryItemsParams) ([]database.InventoryItem, error)
	UpdateInventoryItemDetails(ctx context.Context, arg database.UpdateInventoryItemDetailsParams) (database.InventoryItem, error)
	SoftDeleteInventoryItem(ctx context.Context, itemID string) (string, error)
	GetStockTransaction(ctx context.Context, transactionID string) (database.StockTransaction, error)
	ListStockTransactionsByItem(ctx context.Context, arg database.ListStockTransactionsByItemParams) ([]database.StockTransaction, error)
	AnnotateStockTransaction(ctx context.Context, arg database.AnnotateStockTransactionParams) (database.StockTransaction, error)
}

// StockServicer defines the service methods that move stock.
// Satisfied by *service.StockService.
type StockServicer interface {
	Record(ctx context.Context, req service.RecordRequest) (*service.RecordResult, error)
	CreateItem(ctx context.Context, req service.CreateItemRequest) (*service.RecordResult, error)
}

// InventoryHandler handles inventory item and stock transaction endpoints.
type InventoryHandler struct {
	svc   StockServicer
	store InventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc StockServicer, store InventoryStore) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted at /inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermInventoryRead))
		r.Get("/items", h.ListItems)
		r.Get("/items/{id}", h.GetItem)
		r.Get("/items/{id}/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermInventoryWrite))
		r.Post("/items", h.CreateItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.DeleteItem)
		r.Post("/transactions", h.RecordTransaction)
		r.Patch("/transactions/{id}", h.AnnotateTransaction)
	})
}

// --- Request / Response types ---

type createItemRequest struct {
	ItemID          string              `json:"itemid" validate:"required,max=64"`
	Name            string              `json:"name" validate:"required,max=200"`
	Category        string              `json:"category" validate:"required,oneof=vegetables fruits meat seafood dairy grains spices beverages oils packaging cleaning other"`
	Unit            string              `json:"unit" validate:"required,oneof=kg g l ml pcs dozen packet box"`
	MinimumStock    decimal.Decimal     `json:"minimum_stock"`
	MaximumStock    decimal.NullDecimal `json:"maximum_stock"`
	Status          string              `json:"status" validate:"omitempty,oneof=active inactive discontinued"`
	IsPerishable    bool                `json:"is_perishable"`
	OpeningStock    decimal.Decimal     `json:"opening_stock"`
	OpeningUnitCost decimal.Decimal     `json:"opening_unit_cost"`
}

type updateItemRequest struct {
	Name         string              `json:"name" validate:"required,max=200"`
	Category     string              `json:"category" validate:"required,oneof=vegetables fruits meat seafood dairy grains spices beverages oils packaging cleaning other"`
	Unit         string              `json:"unit" validate:"required,oneof=kg g l ml pcs dozen packet box"`
	MinimumStock decimal.Decimal     `json:"minimum_stock"`
	MaximumStock decimal.NullDecimal `json:"maximum_stock"`
	Status       string              `json:"status" validate:"required,oneof=active inactive discontinued"`
	IsPerishable bool                `json:"is_perishable"`
}

type recordTransactionRequest struct {
	TransactionID      string          `json:"transactionid" validate:"omitempty,max=64"`
	ItemID             string          `json:"itemid" validate:"required"`
	Type               string          `json:"type" validate:"required,oneof=purchase usage waste adjustment return transfer"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	Reference          string          `json:"reference" validate:"max=200"`
	RelatedTransaction string          `json:"related_transaction"`
	Notes              string          `json:"notes" validate:"max=1000"`
}

type annotateTransactionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed cancelled"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// transactionResponse is what a successful stock movement returns: the row
// written plus the item as it now stands.
type transactionResponse struct {
	Transaction database.StockTransaction `json:"transaction"`
	Item        database.InventoryItem    `json:"item"`
}

// --- Item handlers ---

// ListItems returns active items, optionally filtered by category, status
// and low_stock=true.
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	params := database.ListInventoryItemsParams{
		LowStockOnly: q.Get("low_stock") == "true",
		Limit:        int32(limit),
		Offset:       int32(offset),
	}
	if c := q.Get("category"); c != "" {
		params.Category = pgtype.Text{String: c, Valid: true}
	}
	if s := q.Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	items, err := h.store.ListInventoryItems(r.Context(), params)
	if err != nil {
		writeStoreError(w, r, "ListItems", "items", err)
		return
	}
	if items == nil {
		items = []database.InventoryItem{}
	}

	writeJSON(w, r, http.StatusOK, listResponse[database.InventoryItem]{Data: items, Limit: limit, Offset: offset})
}

// GetItem returns a single item.
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "GetItem", "inventory item", err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

// CreateItem registers an item. A positive opening_stock is booked as a
// purchase transaction in the same database transaction.
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.CreateItem(r.Context(), service.CreateItemRequest{
		ItemID:          req.ItemID,
		Name:            req.Name,
		Category:        database.InventoryCategory(req.Category),
		Unit:            database.InventoryUnit(req.Unit),
		MinimumStock:    req.MinimumStock,
		MaximumStock:    req.MaximumStock,
		Status:          database.ItemStatus(req.Status),
		IsPerishable:    req.IsPerishable,
		OpeningStock:    req.OpeningStock,
		OpeningUnitCost: req.OpeningUnitCost,
		PerformedBy:     actor(r),
	})
	if err != nil {
		writeServiceError(w, r, "CreateItem", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, res.Item)
}

// UpdateItem replaces item metadata. current_stock, average cost and total
// value are never touched here.
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MinimumStock.IsNegative() {
		badRequest(w, r, "minimum_stock must be >= 0")
		return
	}

	item, err := h.store.UpdateInventoryItemDetails(r.Context(), database.UpdateInventoryItemDetailsParams{
		ItemID:       chi.URLParam(r, "id"),
		Name:         req.Name,
		Category:     database.InventoryCategory(req.Category),
		Unit:         database.InventoryUnit(req.Unit),
		MinimumStock: req.MinimumStock,
		MaximumStock: req.MaximumStock,
		Status:       database.ItemStatus(req.Status),
		IsPerishable: req.IsPerishable,
	})
	if err != nil {
		writeStoreError(w, r, "UpdateItem", "inventory item", err)
		return
	}

	writeJSON(w, r, http.StatusOK, item)
}

// DeleteItem soft-deletes an item by setting is_active=false.
func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.SoftDeleteInventoryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, "DeleteItem", "inventory item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Transaction handlers ---

// ListTransactions returns an item's transactions newest first, optionally
// filtered by type.
func (h *InventoryHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	params := database.ListStockTransactionsByItemParams{
		ItemID: chi.URLParam(r, "id"),
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		params.Type = pgtype.Text{String: t, Valid: true}
	}

	txns, err := h.store.ListStockTransactionsByItem(r.Context(), params)
	if err != nil {
		writeStoreError(w, r, "ListTransactions", "transactions", err)
		return
	}
	if txns == nil {
		txns = []database.StockTransaction{}
	}

	writeJSON(w, r, http.StatusOK, listResponse[database.StockTransaction]{Data: txns, Limit: limit, Offset: offset})
}

// GetTransaction returns a single stock transaction.
func (h *InventoryHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.store.GetStockTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "GetTransaction", "stock transaction", err)
		return
	}
	writeJSON(w, r, http.StatusOK, txn)
}

// RecordTransaction applies one stock movement. The caller's email is
// recorded as performed_by.
func (h *InventoryHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Record(r.Context(), service.RecordRequest{
		TransactionID:      req.TransactionID,
		ItemID:             req.ItemID,
		Type:               database.TransactionType(req.Type),
		Quantity:           req.Quantity,
		UnitCost:           req.UnitCost,
		PerformedBy:        actor(r),
		Reference:          req.Reference,
		RelatedTransaction: req.RelatedTransaction,
		Notes:              req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, "RecordTransaction", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, transactionResponse{Transaction: res.Transaction, Item: res.Item})
}

// AnnotateTransaction corrects a transaction's status or notes. Quantities
// and costs are immutable.
func (h *InventoryHandler) AnnotateTransaction(w http.ResponseWriter, r *http.Request) {
	var req annotateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	txn, err := h.store.AnnotateStockTransaction(r.Context(), database.AnnotateStockTransactionParams{
		TransactionID: chi.URLParam(r, "id"),
		Status:        database.TransactionStatus(req.Status),
		Notes:         optionalText(req.Notes),
	})
	if err != nil {
		writeStoreError(w, r, "AnnotateTransaction", "stock transaction", err)
		return
	}

	writeJSON(w, r, http.StatusOK, txn)
}
