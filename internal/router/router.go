package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/tavola-pos/backoffice/internal/config"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/handler"
	"github.com/tavola-pos/backoffice/internal/lock"
	mw "github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// Deps are the long-lived resources the handlers are built on.
type Deps struct {
	Pool   service.TxBeginner
	DB     database.DBTX
	Locker lock.Locker
	Logger *logrus.Logger
}

// New creates a Chi router with all application routes wired up.
// Everything except /health and /auth requires a valid access token; each
// route group then checks its own permission.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	queries := database.New(deps.DB)
	loc := cfg.Location()

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Services build their stores from whatever transaction they opened.
	stockSvc := service.NewStockService(deps.Pool, func(db database.DBTX) service.StockStore {
		return database.New(db)
	})
	recipeSvc := service.NewRecipeService(deps.Pool, func(db database.DBTX) service.RecipeStore {
		return database.New(db)
	}, deps.Locker)
	orderSvc := service.NewOrderService(deps.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, cfg.DefaultSGST, cfg.DefaultCGST)
	billingSvc := service.NewBillingService(deps.Pool, func(db database.DBTX) service.BillingStore {
		return database.New(db)
	}, deps.Locker)
	couponSvc := service.NewCouponService(deps.Pool, func(db database.DBTX) service.CouponStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		adminHandler := handler.NewAdminHandler(queries)
		r.Route("/admins", adminHandler.RegisterRoutes)

		inventoryHandler := handler.NewInventoryHandler(stockSvc, queries)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		recipeHandler := handler.NewRecipeHandler(recipeSvc, queries)
		r.Route("/recipes", recipeHandler.RegisterRoutes)

		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/categories", menuHandler.RegisterCategoryRoutes)
		r.Route("/menu", menuHandler.RegisterMenuRoutes)

		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", tableHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(orderSvc, billingSvc, queries, loc)
		r.Route("/orders", orderHandler.RegisterRoutes)

		couponHandler := handler.NewCouponHandler(couponSvc, queries)
		r.Route("/coupons", couponHandler.RegisterRoutes)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequirePermission(enum.PermReportRead))
			reportsHandler := handler.NewReportsHandler(queries, loc)
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})
	})

	deps.Logger.Info("router initialized")
	return r
}
