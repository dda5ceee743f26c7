package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// CouponServicer defines the service methods needed by coupon handlers.
// Satisfied by *service.CouponService.
type CouponServicer interface {
	CreateCoupon(ctx context.Context, code string, pct decimal.Decimal, limit *int32) (*database.Coupon, error)
	TryConsume(ctx context.Context, code string) (*service.Consumption, error)
}

// CouponStore defines the database methods needed by coupon read handlers.
// Satisfied by *database.Queries.
type CouponStore interface {
	GetCoupon(ctx context.Context, couponCode string) (database.Coupon, error)
	ListCoupons(ctx context.Context) ([]database.Coupon, error)
	DeleteCoupon(ctx context.Context, couponCode string) (string, error)
}

// CouponHandler handles coupon endpoints.
type CouponHandler struct {
	svc   CouponServicer
	store CouponStore
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(svc CouponServicer, store CouponStore) *CouponHandler {
	return &CouponHandler{svc: svc, store: store}
}

// RegisterRoutes registers coupon endpoints. Expected to be mounted at /coupons.
func (h *CouponHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermCouponRead))
		r.Get("/", h.List)
		r.Get("/{code}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(enum.PermCouponWrite))
		r.Post("/", h.Create)
		r.Post("/{code}/consume", h.Consume)
		r.Delete("/{code}", h.Delete)
	})
}

type createCouponRequest struct {
	CouponCode         string          `json:"couponcode" validate:"required,max=50"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalUsageLimit    *int32          `json:"total_usage_limit" validate:"omitempty,gte=0"`
}

// List returns every coupon, newest first.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.store.ListCoupons(r.Context())
	if err != nil {
		writeStoreError(w, r, "ListCoupons", "coupons", err)
		return
	}
	if coupons == nil {
		coupons = []database.Coupon{}
	}
	writeJSON(w, r, http.StatusOK, coupons)
}

func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.store.GetCoupon(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeStoreError(w, r, "GetCoupon", "coupon", err)
		return
	}
	writeJSON(w, r, http.StatusOK, coupon)
}

// Create issues a coupon. An omitted total_usage_limit means unlimited use.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	coupon, err := h.svc.CreateCoupon(r.Context(), req.CouponCode, req.DiscountPercentage, req.TotalUsageLimit)
	if err != nil {
		writeServiceError(w, r, "CreateCoupon", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, coupon)
}

// Consume uses a coupon once outside billing, e.g. for a manual redemption.
// An exhausted or unknown coupon comes back with applied=false.
func (h *CouponHandler) Consume(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.TryConsume(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, "ConsumeCoupon", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.DeleteCoupon(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeStoreError(w, r, "DeleteCoupon", "coupon", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
