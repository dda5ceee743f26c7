package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavola-pos/backoffice/internal/auth"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetAdminByEmail(ctx context.Context, email string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Admin        adminResponse `json:"admin"`
}

type adminResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	admin, err := h.store.GetAdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		logging.LogError(logging.FromContext(r.Context()), "handler", "Login", "get admin by email", req.Email, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	if !admin.IsActive {
		writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	h.respondWithTokens(w, r, admin)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	adminID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid refresh token"})
		return
	}

	admin, err := h.store.GetAdminByID(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "admin not found"})
			return
		}
		logging.LogError(logging.FromContext(r.Context()), "handler", "Refresh", "get admin by id", adminID, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	if !admin.IsActive {
		writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "admin not found"})
		return
	}

	h.respondWithTokens(w, r, admin)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, admin database.Admin) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, admin.ID, admin.Email, admin.Role)
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "handler", "respondWithTokens", "sign access token", admin.ID, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, admin.ID)
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "handler", "respondWithTokens", "sign refresh token", admin.ID, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin: adminResponse{
			ID:       admin.ID,
			FullName: admin.FullName,
			Email:    admin.Email,
			Role:     admin.Role,
		},
	})
}
