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
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	SoftDeleteCategory(ctx context.Context, categoryID string) (string, error)
	GetMenuItem(ctx context.Context, menuID string) (database.MenuItem, error)
	ListMenuItems(ctx context.Context, categoryID pgtype.Text) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, menuID string) (string, error)
}

// MenuHandler handles category and menu item CRUD endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterCategoryRoutes registers category endpoints. Expected at /categories.
func (h *MenuHandler) RegisterCategoryRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(enum.PermMenuRead)).Get("/", h.ListCategories)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermMenuWrite))
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
}

// RegisterMenuRoutes registers menu item endpoints. Expected at /menu.
func (h *MenuHandler) RegisterMenuRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermMenuRead))
		r.Get("/", h.ListMenuItems)
		r.Get("/{id}", h.GetMenuItem)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermMenuWrite))
		r.Post("/", h.CreateMenuItem)
		r.Put("/{id}", h.UpdateMenuItem)
		r.Delete("/{id}", h.DeleteMenuItem)
	})
}

// --- Request types ---

type categoryRequest struct {
	CategoryID  string `json:"categoryid" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sort_order" validate:"gte=0"`
}

type menuItemRequest struct {
	MenuID      string          `json:"menuid" validate:"omitempty,max=64"`
	CategoryID  string          `json:"categoryid" validate:"required"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable *bool           `json:"is_available"`
}

// --- Category handlers ---

// ListCategories returns all active categories in display order.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, "ListCategories", "categories", err)
		return
	}
	if categories == nil {
		categories = []database.Category{}
	}
	writeJSON(w, r, http.StatusOK, categories)
}

// CreateCategory adds a category.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CategoryID == "" {
		badRequest(w, r, "categoryid is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		writeStoreError(w, r, "CreateCategory", "category", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, category)
}

// UpdateCategory modifies an existing category.
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		CategoryID:  chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: optionalText(req.Description),
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		writeStoreError(w, r, "UpdateCategory", "category", err)
		return
	}

	writeJSON(w, r, http.StatusOK, category)
}

// DeleteCategory soft-deletes a category by setting is_active=false.
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.SoftDeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, "DeleteCategory", "category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Menu item handlers ---

// ListMenuItems returns active menu items, optionally for one ?category=.
func (h *MenuHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	var category pgtype.Text
	if c := r.URL.Query().Get("category"); c != "" {
		category = pgtype.Text{String: c, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), category)
	if err != nil {
		writeStoreError(w, r, "ListMenuItems", "menu items", err)
		return
	}
	if items == nil {
		items = []database.MenuItem{}
	}
	writeJSON(w, r, http.StatusOK, items)
}

// GetMenuItem returns a single menu item.
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "GetMenuItem", "menu item", err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

// CreateMenuItem adds a menu item. is_available defaults to true.
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MenuID == "" {
		badRequest(w, r, "menuid is required")
		return
	}
	if req.Price.IsNegative() {
		badRequest(w, r, "price must be >= 0")
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		MenuID:      req.MenuID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		Price:       req.Price,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		writeStoreError(w, r, "CreateMenuItem", "menu item", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, item)
}

// UpdateMenuItem replaces a menu item's fields. Subtotals already stored on
// orders are not repriced.
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Price.IsNegative() {
		badRequest(w, r, "price must be >= 0")
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		MenuID:      chi.URLParam(r, "id"),
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		Price:       req.Price,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		writeStoreError(w, r, "UpdateMenuItem", "menu item", err)
		return
	}

	writeJSON(w, r, http.StatusOK, item)
}

// DeleteMenuItem soft-deletes a menu item.
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.SoftDeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, "DeleteMenuItem", "menu item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
