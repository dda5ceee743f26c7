package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/logging"
	"github.com/tavola-pos/backoffice/internal/report"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	GetInventoryValuation(ctx context.Context) ([]database.GetInventoryValuationRow, error)
	ListTopRecipesByUsage(ctx context.Context, limit int32) ([]database.Recipe, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	loc   *time.Location
}

// NewReportsHandler creates a new ReportsHandler. Report days are cut at
// midnight in loc.
func NewReportsHandler(store ReportsStore, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{store: store, loc: loc}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at
// /reports behind the report:read permission.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/payment-summary", h.PaymentSummary)
	r.Get("/inventory-valuation", h.InventoryValuation)
	r.Get("/top-recipes", h.TopRecipes)
	r.Get("/export.xlsx", h.Export)
}

// --- Response types ---

type dailySalesResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	GrossSales string `json:"gross_sales"`
	NetSales   string `json:"net_sales"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

type inventoryValuationResponse struct {
	Categories    []valuationCategoryResponse `json:"categories"`
	TotalValue    string                      `json:"total_value"`
	LowStockCount int64                       `json:"low_stock_count"`
}

type valuationCategoryResponse struct {
	Category      string `json:"category"`
	ItemCount     int64  `json:"item_count"`
	TotalValue    string `json:"total_value"`
	LowStockCount int64  `json:"low_stock_count"`
}

type topRecipeResponse struct {
	RecipeID       string     `json:"recipeid"`
	Name           string     `json:"name"`
	UsageCount     int32      `json:"usage_count"`
	CostPerServing string     `json:"cost_per_serving"`
	LastUsed       *time.Time `json:"last_used"`
}

// --- Handlers ---

// DailySales returns per-day billed totals of completed orders.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		writeStoreError(w, r, "DailySales", "daily sales", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:       row.Day.Format("2006-01-02"),
			OrderCount: row.OrderCount,
			GrossSales: row.GrossSales.String(),
			NetSales:   row.NetSales.String(),
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// PaymentSummary returns completed order totals per payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		writeStoreError(w, r, "PaymentSummary", "payment summary", err)
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			TotalAmount:   row.TotalAmount.String(),
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// InventoryValuation returns stock value per category and overall.
func (h *ReportsHandler) InventoryValuation(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetInventoryValuation(r.Context())
	if err != nil {
		writeStoreError(w, r, "InventoryValuation", "inventory valuation", err)
		return
	}

	resp := inventoryValuationResponse{Categories: make([]valuationCategoryResponse, len(rows))}
	total := report.ValuationTotal(rows)
	for i, row := range rows {
		resp.Categories[i] = valuationCategoryResponse{
			Category:      string(row.Category),
			ItemCount:     row.ItemCount,
			TotalValue:    row.TotalValue.String(),
			LowStockCount: row.LowStockCount,
		}
		resp.LowStockCount += row.LowStockCount
	}
	resp.TotalValue = total.String()

	writeJSON(w, r, http.StatusOK, resp)
}

// TopRecipes returns the most used recipes. ?limit= defaults to 10.
func (h *ReportsHandler) TopRecipes(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	recipes, err := h.store.ListTopRecipesByUsage(r.Context(), int32(limit))
	if err != nil {
		writeStoreError(w, r, "TopRecipes", "recipes", err)
		return
	}

	resp := make([]topRecipeResponse, len(recipes))
	for i, rec := range recipes {
		resp[i] = topRecipeResponse{
			RecipeID:       rec.RecipeID,
			Name:           rec.Name,
			UsageCount:     rec.UsageCount,
			CostPerServing: rec.CostPerServing.String(),
		}
		if rec.LastUsed.Valid {
			t := rec.LastUsed.Time
			resp[i].LastUsed = &t
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// Export streams an xlsx workbook with inventory valuation, daily sales and
// payment summary sheets for the requested date range.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	ctx := r.Context()

	valuation, err := h.store.GetInventoryValuation(ctx)
	if err != nil {
		writeStoreError(w, r, "Export", "inventory valuation", err)
		return
	}
	sales, err := h.store.GetDailySales(ctx, database.GetDailySalesParams{StartDate: startDate, EndDate: endDate})
	if err != nil {
		writeStoreError(w, r, "Export", "daily sales", err)
		return
	}
	payments, err := h.store.GetPaymentSummary(ctx, database.GetPaymentSummaryParams{StartDate: startDate, EndDate: endDate})
	if err != nil {
		writeStoreError(w, r, "Export", "payment summary", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf,
		report.InventoryValuationSheet(valuation),
		report.DailySalesSheet(sales),
		report.PaymentSummarySheet(payments),
	); err != nil {
		logging.LogError(logging.FromContext(ctx), "handler", "Export", "write workbook", nil, err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	filename := fmt.Sprintf("report_%s_%s.xlsx", startDate.Format("20060102"), endDate.AddDate(0, 0, -1).Format("20060102"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(ctx).Warnf("write xlsx response: %v", err)
	}
}

// --- Helpers ---

const dateLayout = "2006-01-02"

// parseDateRange parses start_date and end_date (YYYY-MM-DD) in loc.
// Defaults to the last 30 days. The returned end is exclusive (midnight after
// end_date).
func parseDateRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}
