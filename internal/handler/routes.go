package handler

import (
	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Auth      service.AuthService
	Ledger    service.LedgerService
	Catalog   service.CatalogService
	Dashboard service.DashboardService
}

// RegisterRoutes mounts the /api/v1 tree. Static segments are registered
// before parameterized ones so /transactions/today does not match /:id.
func RegisterRoutes(app *fiber.App, s Services) {
	authHandler := NewAuthHandler(s.Auth)
	txHandler := NewTransactionHandler(s.Ledger)
	productHandler := NewProductHandler(s.Catalog)
	dashHandler := NewDashboardHandler(s.Dashboard)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(s.Auth))

	protected.Get("/auth/me", authHandler.Me)

	// Transactions
	protected.Get("/transactions", txHandler.GetTransactions)
	protected.Get("/transactions/today", txHandler.GetTodayStats)
	protected.Get("/transactions/:id", txHandler.GetTransaction)
	protected.Post("/transactions", middleware.RequireRole(model.RoleAdmin, model.RoleKasir), txHandler.CreateTransaction)
	protected.Delete("/transactions/:id", middleware.RequireRole(model.RoleAdmin), txHandler.VoidTransaction)

	// Catalog
	catalogWriters := middleware.RequireRole(model.RoleAdmin, model.RoleOwner)
	protected.Get("/products/low-stock", productHandler.GetLowStock)
	protected.Get("/products/:kind", productHandler.GetProducts)
	protected.Get("/products/:kind/:id", productHandler.GetProduct)
	protected.Post("/products/:kind", catalogWriters, productHandler.CreateProduct)
	protected.Put("/products/:kind/:id", catalogWriters, productHandler.UpdateProduct)
	protected.Post("/products/:kind/:id/stock", catalogWriters, productHandler.AdjustStock)
	protected.Get("/stock-logs", productHandler.GetStockLogs)

	// Dashboard
	protected.Get("/dashboard/stock-movement", dashHandler.GetStockMovement)
}
