package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	service.TableStore
	ListTables(ctx context.Context) ([]database.RestaurantTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.RestaurantTable, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints. Expected to be mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(enum.PermTableRead)).Get("/", h.List)
	r.With(middleware.RequirePermission(enum.PermTableRead)).Get("/{id}", h.Get)
	r.With(middleware.RequirePermission(enum.PermTableWrite)).Post("/", h.Create)
	r.With(middleware.RequirePermission(enum.PermTableWrite)).Patch("/{id}/status", h.UpdateStatus)
}

type createTableRequest struct {
	TableID     string `json:"tableid" validate:"required,max=64"`
	TableNumber int32  `json:"table_number" validate:"gt=0"`
	Capacity    int32  `json:"capacity" validate:"gt=0"`
}

type tableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available occupied reserved"`
}

// List returns all tables ordered by number.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeStoreError(w, r, "ListTables", "tables", err)
		return
	}
	if tables == nil {
		tables = []database.RestaurantTable{}
	}
	writeJSON(w, r, http.StatusOK, tables)
}

// Get returns a single table.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, err := h.store.GetTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "GetTable", "table", err)
		return
	}
	writeJSON(w, r, http.StatusOK, table)
}

// Create adds a table. New tables start available.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !decodeBody(w, r, &req) {
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		TableID:     req.TableID,
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
	})
	if err != nil {
		writeStoreError(w, r, "CreateTable", "table", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, table)
}

// UpdateStatus sets a table's status directly, e.g. to take a reservation.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req tableStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.store.GetTable(r.Context(), id); err != nil {
		writeStoreError(w, r, "UpdateTableStatus", "table", err)
		return
	}

	table, err := service.ChangeTableStatus(r.Context(), h.store, id, database.TableStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, "UpdateTableStatus", err)
		return
	}

	writeJSON(w, r, http.StatusOK, table)
}
