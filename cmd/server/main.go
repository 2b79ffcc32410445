package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/lpg-trip-dispatch/internal/config"     // Internal config loader
	"github.com/iliyamo/lpg-trip-dispatch/internal/database"   // MySQL connection pool
	"github.com/iliyamo/lpg-trip-dispatch/internal/handler"    // HTTP handlers
	"github.com/iliyamo/lpg-trip-dispatch/internal/middleware" // Rate limiting and caching middleware
	"github.com/iliyamo/lpg-trip-dispatch/internal/queue"      // Dispatch event consumer
	"github.com/iliyamo/lpg-trip-dispatch/internal/repository" // Data access layer
	"github.com/iliyamo/lpg-trip-dispatch/internal/router"     // Route registration
)

func main() {
	// Load .env when present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and response caching; a nil client turns
	// both middlewares into no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting and caching disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Repositories.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	tripRepo := repository.NewTripRepo(db)
	truckRepo := repository.NewTruckRepo(db)
	driverRepo := repository.NewDriverRepo(db)
	warehouseRepo := repository.NewWarehouseRepo(db)
	warehouseInvRepo := repository.NewWarehouseInventoryRepo(db)
	truckInvRepo := repository.NewTruckInventoryRepo(db)
	productRepo := repository.NewProductRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	allocRepo := repository.NewAllocationRepo(db)
	loadingRepo := repository.NewLoadingRepo(db)
	varianceRepo := repository.NewVarianceRepo(db)
	emptyReturnRepo := repository.NewEmptyReturnRepo(db)

	// Handlers.
	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	tripHandler := handler.NewTripHandler(tripRepo, truckRepo, driverRepo, warehouseRepo,
		allocRepo, orderRepo, productRepo, truckInvRepo, warehouseInvRepo, loadingRepo)
	allocHandler := handler.NewAllocationHandler(tripRepo, allocRepo, orderRepo,
		productRepo, truckInvRepo, emptyReturnRepo)
	loadingHandler := handler.NewLoadingHandler(tripRepo, truckRepo, orderRepo, productRepo,
		loadingRepo, allocRepo, truckInvRepo, warehouseInvRepo)
	varianceHandler := handler.NewVarianceHandler(tripRepo, productRepo, loadingRepo, varianceRepo)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterDispatch(e, tripHandler, allocHandler, loadingHandler, varianceHandler,
		cfg.JWTSecret, rateLimit, cache)

	// Background consumer appending dispatch events to logs/dispatch.log.
	// It reconnects forever and never takes the server down.
	go func() {
		if err := queue.StartDispatchConsumer(); err != nil {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
