package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/events"
	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/cache"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/jwt"
	"go-pos-ledger/pkg/logger"
	"go-pos-ledger/pkg/metrics"
	"go-pos-ledger/pkg/telemetry"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

func main() {
	// 1. Load config and logging
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.IsLocal())
	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// 3. Cache, audit events and WebSocket hub
	productCache := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 4. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	stockRepo := repository.NewStockRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)

	authService := service.NewAuthService(userRepo, jwt.NewManager(cfg.JWTSecret, 0))
	catalogService := service.NewCatalogService(db, productRepo, stockRepo, productCache, wsHub, publisher, cfg.LowStockThreshold)
	ledgerService := service.NewLedgerService(db, txRepo, productRepo, stockRepo, catalogService, wsHub, publisher)
	dashService := service.NewDashboardService(stockRepo)
	reconcileService := service.NewReconcileService(txRepo, productRepo, stockRepo, cfg.OrphanGrace)

	// 5. Seed default admin user
	if created, err := authService.EnsureAdmin(ctx, defaultAdminEmail, defaultAdminPassword); err != nil {
		log.Warn().Err(err).Msg("Failed to create admin user")
	} else if created {
		log.Info().Str("email", defaultAdminEmail).Msg("Admin user created with the default password")
	}

	// 6. Background reconciler
	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.ReconcileSchedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := reconcileService.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("Reconcile run failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("Invalid reconcile schedule")
	}
	scheduler.Start()

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "POS Ledger v1.0",
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(requestid.New())
	app.Use(fiberlogger.New()) // Logging request
	app.Use(cors.New())        // CORS
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.Count()})
	})
	app.Get("/metrics", metrics.Handler())

	// 8. Routes
	handler.RegisterRoutes(app, handler.Services{
		Auth:      authService,
		Ledger:    ledgerService,
		Catalog:   catalogService,
		Dashboard: dashService,
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Handler))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic().Err(err).Msg("Server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-scheduler.Stop().Done()
	wsHub.Stop()
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to flush audit events")
	}
	if err := productCache.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close cache")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info().Msg("Server exited")
}
