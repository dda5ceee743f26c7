package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tavola-pos/backoffice/internal/auth"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/handler"
)

type mockTableStore struct {
	tables    map[string]database.RestaurantTable
	updateErr error
}

func newMockTableStore() *mockTableStore {
	return &mockTableStore{tables: make(map[string]database.RestaurantTable)}
}

func (m *mockTableStore) ListTables(_ context.Context) ([]database.RestaurantTable, error) {
	var out []database.RestaurantTable
	for _, t := range m.tables {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTableStore) GetTable(_ context.Context, id string) (database.RestaurantTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockTableStore) CreateTable(_ context.Context, arg database.CreateTableParams) (database.RestaurantTable, error) {
	if _, ok := m.tables[arg.TableID]; ok {
		return database.RestaurantTable{}, &pgconn.PgError{Code: "23505", ConstraintName: "restaurant_tables_pkey"}
	}
	t := database.RestaurantTable{
		TableID:     arg.TableID,
		TableNumber: arg.TableNumber,
		Capacity:    arg.Capacity,
		Status:      database.TableStatusAvailable,
	}
	m.tables[t.TableID] = t
	return t, nil
}

func (m *mockTableStore) UpdateTableStatus(_ context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error) {
	if m.updateErr != nil {
		return database.RestaurantTable{}, m.updateErr
	}
	t, ok := m.tables[arg.TableID]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	m.tables[t.TableID] = t
	return t, nil
}

func setupTableRouter(store *mockTableStore, claims *auth.Claims) *chi.Mux {
	h := handler.NewTableHandler(store)
	r := chi.NewRouter()
	r.Use(withClaims(claims))
	r.Route("/tables", h.RegisterRoutes)
	return r
}

func TestTableCreateAndList(t *testing.T) {
	store := newMockTableStore()
	router := setupTableRouter(store, claimsFor(enum.RoleManager))

	rr := doRequest(t, router, "POST", "/tables", map[string]interface{}{"tableid": "T1", "table_number": 1, "capacity": 4})
	expectStatus(t, rr, http.StatusCreated)
	if resp := decodeResponse(t, rr); resp["status"] != "available" {
		t.Errorf("new table status: %v", resp["status"])
	}

	expectStatus(t, doRequest(t, router, "POST", "/tables", map[string]interface{}{"tableid": "T1", "table_number": 1, "capacity": 4}), http.StatusConflict)
	expectStatus(t, doRequest(t, router, "POST", "/tables", map[string]interface{}{"tableid": "T2", "table_number": 2}), http.StatusBadRequest)

	rr = doRequest(t, router, "GET", "/tables", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeListResponse(t, rr); len(list) != 1 {
		t.Errorf("expected 1 table, got %d", len(list))
	}

	expectStatus(t, doRequest(t, router, "GET", "/tables/T1", nil), http.StatusOK)
	expectStatus(t, doRequest(t, router, "GET", "/tables/T9", nil), http.StatusNotFound)
}

func TestTableUpdateStatus(t *testing.T) {
	store := newMockTableStore()
	store.tables["T1"] = database.RestaurantTable{TableID: "T1", TableNumber: 1, Status: database.TableStatusAvailable}
	router := setupTableRouter(store, claimsFor(enum.RoleCashier))

	rr := doRequest(t, router, "PATCH", "/tables/T1/status", map[string]string{"status": "reserved"})
	expectStatus(t, rr, http.StatusOK)
	if store.tables["T1"].Status != database.TableStatusReserved {
		t.Errorf("status: %s", store.tables["T1"].Status)
	}

	expectStatus(t, doRequest(t, router, "PATCH", "/tables/T1/status", map[string]string{"status": "dirty"}), http.StatusBadRequest)
	expectStatus(t, doRequest(t, router, "PATCH", "/tables/T9/status", map[string]string{"status": "reserved"}), http.StatusNotFound)
}

func TestTableUpdateStatus_StoreFailure(t *testing.T) {
	store := newMockTableStore()
	store.tables["T1"] = database.RestaurantTable{TableID: "T1", Status: database.TableStatusAvailable}
	store.updateErr = errors.New("connection reset")
	router := setupTableRouter(store, claimsFor(enum.RoleManager))

	rr := doRequest(t, router, "PATCH", "/tables/T1/status", map[string]string{"status": "occupied"})
	expectStatus(t, rr, http.StatusConflict)
	if resp := decodeResponse(t, rr); resp["kind"] != "table_unavailable" {
		t.Errorf("kind: %v", resp["kind"])
	}
}

func TestTablePermissions(t *testing.T) {
	router := setupTableRouter(newMockTableStore(), claimsFor(enum.RoleKitchen))
	expectStatus(t, doRequest(t, router, "GET", "/tables", nil), http.StatusForbidden)
}
