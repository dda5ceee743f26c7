package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/logging"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore defines the database methods needed by admin account handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AdminStore interface {
	ListAdmins(ctx context.Context) ([]database.Admin, error)
	CreateAdmin(ctx context.Context, arg database.CreateAdminParams) (database.Admin, error)
	UpdateAdmin(ctx context.Context, arg database.UpdateAdminParams) (database.Admin, error)
	SoftDeleteAdmin(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// AdminHandler manages back-office accounts. Only ADMIN may use it.
type AdminHandler struct {
	store AdminStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers admin account endpoints. Expected at /admins.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.RoleAdmin))
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required,oneof=ADMIN MANAGER CASHIER KITCHEN"`
}

type updateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required,oneof=ADMIN MANAGER CASHIER KITCHEN"`
}

type adminDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toAdminDetailResponse(a database.Admin) adminDetailResponse {
	return adminDetailResponse{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		Role:      a.Role,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// --- Handlers ---

// List returns all active accounts.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeStoreError(w, r, "ListAdmins", "admins", err)
		return
	}

	resp := make([]adminDetailResponse, len(admins))
	for i, a := range admins {
		resp[i] = toAdminDetailResponse(a)
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// Create adds an account with a bcrypt-hashed password.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "handler", "CreateAdmin", "hash password", nil, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	admin, err := h.store.CreateAdmin(r.Context(), database.CreateAdminParams{
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           req.Role,
	})
	if err != nil {
		writeStoreError(w, r, "CreateAdmin", "email", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toAdminDetailResponse(admin))
}

// Update changes an account's email, name and role. Passwords are not
// changed here.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid admin ID")
		return
	}

	var req updateAdminRequest
	if !decodeBody(w, r, &req) {
		return
	}

	admin, err := h.store.UpdateAdmin(r.Context(), database.UpdateAdminParams{
		ID:       id,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		writeStoreError(w, r, "UpdateAdmin", "admin", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toAdminDetailResponse(admin))
}

// Delete deactivates an account. Callers cannot deactivate themselves.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid admin ID")
		return
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.AdminID == id {
		badRequest(w, r, "cannot deactivate your own account")
		return
	}

	if _, err := h.store.SoftDeleteAdmin(r.Context(), id); err != nil {
		writeStoreError(w, r, "DeleteAdmin", "admin", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
