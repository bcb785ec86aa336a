package main

import (
	"log"
	"time"

	"catalog-harmonization-service/internal/config"
	"catalog-harmonization-service/internal/database"
	"catalog-harmonization-service/internal/encryption"
	"catalog-harmonization-service/internal/events"
	"catalog-harmonization-service/internal/handlers"
	"catalog-harmonization-service/internal/middleware"
	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"catalog-harmonization-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Product{},
		&models.NormalizationRule{},
		&models.ChangeLogEntry{},
		&models.ChangeRecord{},
		&models.StepState{},
		&models.StoreConnection{},
		&models.ProductMapping{},
		&models.SyncQueueItem{},
		&models.SyncLog{},
	); err != nil {
		log.Fatalf("Auto-migration failed: %v", err)
	}
	logger.Info("Database models migrated")

	// Stats cache (optional, degrades to direct queries)
	cache, err := services.NewStatsCache(cfg.RedisURL, 5*time.Minute, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without stats cache")
		cache = nil
	}

	// Event publisher (optional)
	publisher, err := events.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("NATS unavailable, continuing without events")
		publisher = nil
	}

	cipher := encryption.NewCredentialCipher(cfg.EncryptionKey)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	changelogRepo := repository.NewChangeLogRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	syncRepo := repository.NewSyncRepository(db)

	// Initialize services
	productService := services.NewProductService(productRepo, cache, logger)
	groupingService := services.NewGroupingService(productRepo, ruleRepo, logger)
	ruleService := services.NewRuleService(productRepo, ruleRepo, changelogRepo, logger)
	harmonizationService := services.NewHarmonizationService(productRepo, changelogRepo, publisher, cache, cfg.PreviewSampleSize, logger)
	changelogService := services.NewChangeLogService(changelogRepo, publisher, cache, logger)
	syncService := services.NewSyncService(
		storeRepo, syncRepo, productRepo,
		cipher, publisher, cache,
		cfg.SyncPageSize, cfg.DefaultRateLimit, cfg.SyncHTTPTimeout,
		logger,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authorityHandler := handlers.NewAuthorityHandler(groupingService, ruleService)
	harmonizationHandler := handlers.NewHarmonizationHandler(harmonizationService, changelogService)
	productHandler := handlers.NewProductHandler(productService)
	storeHandler := handlers.NewStoreHandler(syncService)

	router := setupRouter(cfg, healthHandler, authorityHandler, harmonizationHandler, productHandler, storeHandler)

	logger.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
	}).Info("Catalog Harmonization Service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	authorityHandler *handlers.AuthorityHandler,
	harmonizationHandler *handlers.HarmonizationHandler,
	productHandler *handlers.ProductHandler,
	storeHandler *handlers.StoreHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORS())

	// Health checks
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Authority control
	router.GET("/authority/:field", authorityHandler.Analyze)

	// Normalization rules
	rules := router.Group("/rules")
	{
		rules.GET("", authorityHandler.ListRules)
		rules.POST("/bulk", authorityHandler.SaveRules)
		rules.POST("/apply", authorityHandler.ApplyRules)
		rules.DELETE("/:id", authorityHandler.DeleteRule)
	}

	// Harmonization pipeline
	harmonization := router.Group("/harmonization")
	{
		harmonization.GET("/steps", harmonizationHandler.ListSteps)
		harmonization.POST("/preview/:step_id", harmonizationHandler.Preview)
		harmonization.POST("/apply/:step_id", harmonizationHandler.Apply)
		harmonization.POST("/apply-all", harmonizationHandler.ApplyAll)
		harmonization.GET("/logs", harmonizationHandler.ListLogs)
		harmonization.POST("/undo/:log_id", harmonizationHandler.Undo)
		harmonization.POST("/redo/:log_id", harmonizationHandler.Redo)
	}

	// Catalog
	router.GET("/products", productHandler.List)
	router.GET("/products/:id", productHandler.Get)
	router.PUT("/products/:id", productHandler.Update)
	router.DELETE("/products/:id", productHandler.Delete)
	router.GET("/stats", productHandler.Stats)

	// Stores and sync
	stores := router.Group("/stores")
	{
		stores.GET("", storeHandler.List)
		stores.POST("", storeHandler.Create)

		// Fixed segments must come before the :id routes
		stores.POST("/queue/:id/approve", storeHandler.Approve)
		stores.POST("/queue/:id/reject", storeHandler.Reject)
		stores.POST("/queue/bulk-approve", storeHandler.BulkApprove)
		stores.POST("/queue/bulk-reject", storeHandler.BulkReject)

		stores.GET("/:id", storeHandler.Get)
		stores.PUT("/:id", storeHandler.Update)
		stores.DELETE("/:id", storeHandler.Delete)
		stores.POST("/:id/toggle", storeHandler.Toggle)
		stores.POST("/:id/test", storeHandler.Test)
		stores.POST("/:id/pull", storeHandler.Pull)
		stores.GET("/:id/queue", storeHandler.Queue)
		stores.GET("/:id/mappings", storeHandler.Mappings)
		stores.GET("/:id/logs", storeHandler.Logs)
	}

	return router
}
