package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"phuket-estate/internal/auth"
	"phuket-estate/internal/cleanup"
	"phuket-estate/internal/config"
	"phuket-estate/internal/database"
	"phuket-estate/internal/handlers"
	"phuket-estate/internal/history"
	"phuket-estate/internal/models"
	"phuket-estate/internal/ratelimit"
	"phuket-estate/internal/scheduler"
	"phuket-estate/internal/search"
	"phuket-estate/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "./config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Database
	dbCfg := appConfig.Database
	if dbCfg.Type == "" {
		dbCfg.Type = getEnv("DB_TYPE", "postgres")
	}
	applyDatabaseEnv(&dbCfg)

	store, err := database.NewStore(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Printf("Connected to %s database", dbCfg.Type)

	if err := ensureAdminUser(store, appConfig.Auth.BcryptCost); err != nil {
		log.Fatalf("Failed to ensure admin account: %v", err)
	}

	// Image storage
	storageClient, err := storage.New(appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Storage provider: %s", appConfig.Storage.Provider)

	// Search engine (optional)
	var searchClient *search.SearchClient
	if appConfig.Search.Meilisearch.Enabled {
		host := getEnvOrConfig(appConfig.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://meilisearch:7700")
		apiKey := getEnvOrConfig(appConfig.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")

		searchClient = search.NewSearchClient(host, apiKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v. Search disabled.", err)
			searchClient = nil
		} else {
			log.Printf("Search engine connected at %s", host)
		}
	}

	// Session tokens
	jwtSecret := getEnvOrConfig(appConfig.Auth.JWTSecret, "JWT_SECRET", "")
	tokens, err := auth.NewTokenService(jwtSecret, appConfig.Auth.GetTokenTTL(), appConfig.Auth.Issuer)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// Services
	limiter := ratelimit.NewLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
	)
	historySvc := history.NewService(store.DB())
	cleanupSvc := cleanup.NewService(store.DB(), storageClient)

	appScheduler := scheduler.NewScheduler(store, searchClient, cleanupSvc, appConfig)
	if err := appScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Purge idle rate limit clients once an hour
	go func() {
		for range time.Tick(time.Hour) {
			limiter.Purge()
		}
	}()

	// Handlers
	authHandler := handlers.NewAuthHandler(store, tokens, limiter)
	propertyHandler := handlers.NewPropertyHandler(store, storageClient, searchClient, historySvc)
	userHandler := handlers.NewUserHandler(store, appConfig.Auth.BcryptCost)
	adminHandler := handlers.NewAdminHandler(store, appScheduler, historySvc, cleanupSvc, limiter, appConfig.Auth.BcryptCost)

	// Setup Gin router
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Serve stored images directly when running on local storage
	if local, ok := storageClient.Backend().(*storage.LocalProvider); ok {
		r.Static("/media", local.RootDir())
	}

	// Public routes
	r.GET("/health", healthCheck)
	r.GET("/api/properties", propertyHandler.GetProperties)
	r.GET("/api/properties/featured", propertyHandler.GetFeaturedProperties)
	r.GET("/api/properties/:id", propertyHandler.GetProperty)
	r.GET("/api/locations", propertyHandler.GetLocations)
	r.GET("/api/property-types", propertyHandler.GetPropertyTypes)
	r.GET("/api/search", propertyHandler.Search)
	r.GET("/api/search/facets", propertyHandler.SearchFacets)
	r.POST("/api/auth/login", authHandler.Login)

	// Admin API routes
	admin := r.Group("/api/admin", authHandler.RequireAuth(), authHandler.RateLimitWrites())
	{
		admin.GET("/me", authHandler.Me)
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/changes/recent", adminHandler.GetRecentChanges)
		admin.GET("/properties/:id/changes", adminHandler.GetPropertyChanges)

		// Listing management
		admin.POST("/properties", propertyHandler.CreateProperty)
		admin.PUT("/properties/:id", propertyHandler.UpdateProperty)
		admin.DELETE("/properties/:id", propertyHandler.DeleteProperty)

		// Gallery management
		admin.POST("/properties/:id/images", propertyHandler.UploadImages)
		admin.PUT("/properties/:id/images/order", propertyHandler.ReorderImages)
		admin.PUT("/properties/:id/images/:imageId/primary", propertyHandler.SetPrimaryImage)
		admin.DELETE("/properties/:id/images/:imageId", propertyHandler.DeleteImage)

		// Account management
		admin.GET("/users", userHandler.ListUsers)
		admin.GET("/users/:id", userHandler.GetUser)
		admin.POST("/users", userHandler.CreateUser)
		admin.PUT("/users/:id", userHandler.UpdateUser)
		admin.DELETE("/users/:id", userHandler.DeleteUser)
		admin.PUT("/users/:id/status", userHandler.ToggleUserStatus)
		admin.PUT("/users/:id/password", userHandler.ResetPassword)

		// Maintenance
		admin.POST("/maintenance/run", adminHandler.TriggerMaintenance)
		admin.POST("/maintenance/reindex", adminHandler.Reindex)
		admin.POST("/maintenance/passwords", adminHandler.MigratePasswords)
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
		admin.GET("/cleanup/logs", adminHandler.GetDeleteLogs)
	}
	log.Println("Admin API routes registered at /api/admin/*")

	port := getEnvOrConfig(appConfig.Server.Port, "PORT", "8084")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ensureAdminUser seeds the first admin account on an empty users table.
// The password comes from ADMIN_PASSWORD; without it, an empty table is
// a fatal misconfiguration rather than a silent default credential.
func ensureAdminUser(store *database.Store, bcryptCost int) error {
	stats, err := store.GetUserStats()
	if err != nil {
		return err
	}
	if stats.Total > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return errors.New("users table is empty and ADMIN_PASSWORD is not set")
	}

	admin := &models.User{
		Username: getEnv("ADMIN_USERNAME", "admin"),
		Password: password,
		Name:     "Administrator",
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
	if err := store.CreateUser(admin, bcryptCost); err != nil {
		return err
	}

	log.Printf("Seeded initial admin account %q", admin.Username)
	return nil
}

// applyDatabaseEnv lets environment variables override the YAML values,
// matching how the containers are deployed
func applyDatabaseEnv(cfg *config.DatabaseConfig) {
	if cfg.Type == "mysql" {
		cfg.MySQL.Host = getEnvOrConfig(cfg.MySQL.Host, "DB_HOST", "mysql")
		cfg.MySQL.User = getEnvOrConfig(cfg.MySQL.User, "DB_USER", "estate_user")
		cfg.MySQL.Password = getEnvOrConfig(cfg.MySQL.Password, "DB_PASSWORD", "estate_pass")
		cfg.MySQL.Database = getEnvOrConfig(cfg.MySQL.Database, "DB_NAME", "estate_db")
		if cfg.MySQL.Port == 0 {
			cfg.MySQL.Port = 3306
		}
		return
	}

	cfg.Postgres.Host = getEnvOrConfig(cfg.Postgres.Host, "DB_HOST", "db")
	cfg.Postgres.User = getEnvOrConfig(cfg.Postgres.User, "DB_USER", "estate_user")
	cfg.Postgres.Password = getEnvOrConfig(cfg.Postgres.Password, "DB_PASSWORD", "estate_pass")
	cfg.Postgres.Database = getEnvOrConfig(cfg.Postgres.Database, "DB_NAME", "estate_db")
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
