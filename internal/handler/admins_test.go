package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tavola-pos/backoffice/internal/auth"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockAdminStore struct {
	admins map[uuid.UUID]database.Admin
}

func newMockAdminStore() *mockAdminStore {
	return &mockAdminStore{admins: make(map[uuid.UUID]database.Admin)}
}

func (m *mockAdminStore) emailTaken(email string, except uuid.UUID) bool {
	for id, a := range m.admins {
		if id != except && a.Email == email {
			return true
		}
	}
	return false
}

func (m *mockAdminStore) ListAdmins(_ context.Context) ([]database.Admin, error) {
	var out []database.Admin
	for _, a := range m.admins {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAdminStore) CreateAdmin(_ context.Context, arg database.CreateAdminParams) (database.Admin, error) {
	if m.emailTaken(arg.Email, uuid.Nil) {
		return database.Admin{}, &pgconn.PgError{Code: "23505", ConstraintName: "admins_email_key"}
	}
	a := database.Admin{
		ID:             uuid.New(),
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	m.admins[a.ID] = a
	return a, nil
}

func (m *mockAdminStore) UpdateAdmin(_ context.Context, arg database.UpdateAdminParams) (database.Admin, error) {
	a, ok := m.admins[arg.ID]
	if !ok || !a.IsActive {
		return database.Admin{}, pgx.ErrNoRows
	}
	if m.emailTaken(arg.Email, arg.ID) {
		return database.Admin{}, &pgconn.PgError{Code: "23505", ConstraintName: "admins_email_key"}
	}
	a.Email, a.FullName, a.Role = arg.Email, arg.FullName, arg.Role
	m.admins[a.ID] = a
	return a, nil
}

func (m *mockAdminStore) SoftDeleteAdmin(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	a, ok := m.admins[id]
	if !ok || !a.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	a.IsActive = false
	m.admins[id] = a
	return id, nil
}

func setupAdminRouter(store *mockAdminStore, claims *auth.Claims) *chi.Mux {
	h := handler.NewAdminHandler(store)
	r := chi.NewRouter()
	r.Use(withClaims(claims))
	r.Route("/admins", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestAdminCreate(t *testing.T) {
	store := newMockAdminStore()
	router := setupAdminRouter(store, claimsFor(enum.RoleAdmin))

	rr := doRequest(t, router, "POST", "/admins", map[string]interface{}{
		"email":     "cashier@test.com",
		"password":  "s3cret-pass",
		"full_name": "Front Desk",
		"role":      enum.RoleCashier,
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if _, ok := resp["hashed_password"]; ok {
		t.Error("response must not contain hashed_password")
	}
	if resp["role"] != enum.RoleCashier || resp["is_active"] != true {
		t.Errorf("create: %v", resp)
	}

	id := uuid.MustParse(resp["id"].(string))
	if err := bcrypt.CompareHashAndPassword([]byte(store.admins[id].HashedPassword), []byte("s3cret-pass")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	rr = doRequest(t, router, "POST", "/admins", map[string]interface{}{
		"email": "cashier@test.com", "password": "another-pass", "full_name": "Dup", "role": enum.RoleKitchen,
	})
	expectStatus(t, rr, http.StatusConflict)
}

func TestAdminCreate_Validation(t *testing.T) {
	router := setupAdminRouter(newMockAdminStore(), claimsFor(enum.RoleAdmin))

	tests := []struct {
		name    string
		body    map[string]interface{}
		wantKey string
	}{
		{"bad email", map[string]interface{}{"email": "nope", "password": "longenough", "full_name": "X", "role": "CASHIER"}, "Email"},
		{"short password", map[string]interface{}{"email": "a@b.com", "password": "short", "full_name": "X", "role": "CASHIER"}, "Password"},
		{"unknown role", map[string]interface{}{"email": "a@b.com", "password": "longenough", "full_name": "X", "role": "OWNER"}, "Role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/admins", tt.body)
			expectStatus(t, rr, http.StatusBadRequest)
			details, _ := decodeResponse(t, rr)["details"].(map[string]interface{})
			if _, ok := details[tt.wantKey]; !ok {
				t.Errorf("expected detail for %s, got %v", tt.wantKey, details)
			}
		})
	}
}

func TestAdminUpdateAndDelete(t *testing.T) {
	store := newMockAdminStore()
	cook, _ := store.CreateAdmin(context.Background(), database.CreateAdminParams{
		Email: "cook@test.com", FullName: "Cook", Role: enum.RoleKitchen,
	})
	router := setupAdminRouter(store, claimsFor(enum.RoleAdmin))

	rr := doRequest(t, router, "PUT", "/admins/"+cook.ID.String(), map[string]interface{}{
		"email": "chef@test.com", "full_name": "Head Chef", "role": enum.RoleManager,
	})
	expectStatus(t, rr, http.StatusOK)
	if got := store.admins[cook.ID]; got.Role != enum.RoleManager || got.Email != "chef@test.com" {
		t.Errorf("update not applied: %+v", got)
	}

	expectStatus(t, doRequest(t, router, "PUT", "/admins/not-a-uuid", map[string]interface{}{
		"email": "x@test.com", "full_name": "X", "role": enum.RoleKitchen,
	}), http.StatusBadRequest)

	expectStatus(t, doRequest(t, router, "DELETE", "/admins/"+cook.ID.String(), nil), http.StatusNoContent)
	expectStatus(t, doRequest(t, router, "DELETE", "/admins/"+cook.ID.String(), nil), http.StatusNotFound)

	rr = doRequest(t, router, "GET", "/admins", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeListResponse(t, rr); len(list) != 0 {
		t.Errorf("deactivated admin still listed: %v", list)
	}
}

func TestAdminDelete_Self(t *testing.T) {
	store := newMockAdminStore()
	me, _ := store.CreateAdmin(context.Background(), database.CreateAdminParams{
		Email: "me@test.com", FullName: "Me", Role: enum.RoleAdmin,
	})
	claims := claimsFor(enum.RoleAdmin)
	claims.AdminID = me.ID
	router := setupAdminRouter(store, claims)

	expectStatus(t, doRequest(t, router, "DELETE", "/admins/"+me.ID.String(), nil), http.StatusBadRequest)
	if !store.admins[me.ID].IsActive {
		t.Error("self-deactivation must not apply")
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	for _, role := range []string{enum.RoleManager, enum.RoleCashier, enum.RoleKitchen} {
		t.Run(role, func(t *testing.T) {
			router := setupAdminRouter(newMockAdminStore(), claimsFor(role))
			expectStatus(t, doRequest(t, router, "GET", "/admins", nil), http.StatusForbidden)
		})
	}
}
