package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/propdesk/leadadmin/config"
	"github.com/propdesk/leadadmin/pkg/api/handlers"
	custommw "github.com/propdesk/leadadmin/pkg/api/middleware"
	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/cache"
	"github.com/propdesk/leadadmin/pkg/geo"
	"github.com/propdesk/leadadmin/pkg/importer"
	"github.com/propdesk/leadadmin/pkg/jobs"
	"github.com/propdesk/leadadmin/pkg/leads"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/metrics"
	custommiddleware "github.com/propdesk/leadadmin/pkg/middleware"
	"github.com/propdesk/leadadmin/pkg/store"
	"github.com/propdesk/leadadmin/pkg/users"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize DynamoDB
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		log.Fatalf("❌ Failed to load AWS configuration: %v", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})
	leadStore := store.NewDynamo(dynamoClient, store.DynamoConfig{
		LeadsTable:  cfg.LeadsTable,
		UsersTable:  cfg.UsersTable,
		ByDateIndex: cfg.LeadsByDateIndex,
	})
	log.Printf("✅ DynamoDB store initialized (tables: %s, %s)", cfg.LeadsTable, cfg.UsersTable)

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Printf("✅ Redis connected")

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Core services
	cityResolver := geo.NewResolver(redisClient, cfg.PincodeAPIBaseURL, appLogger)
	cityResolver.SetLookupCounter(prometheusMetrics.CityLookups)
	leadService := leads.NewService(leadStore, cityResolver, appLogger, cfg.PageSize)
	userService := users.NewService(leadStore, redisClient, appLogger)
	csvImporter := importer.New(leadStore, appLogger)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	tokenBlacklist := auth.NewBlacklist(redisClient)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, jwtManager, tokenBlacklist, prometheusMetrics)
	leadHandler := handlers.NewLeadHandler(leadService, prometheusMetrics)
	adminHandler := handlers.NewAdminHandler(leadService, userService, csvImporter, prometheusMetrics)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2) // 5 req/min for login

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())

	// CORS with restricted origins
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Global rate limiting
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "Lead Admin API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})
	e.GET("/health", func(c echo.Context) error {
		if err := redisClient.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"redis":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "healthy"})
	})

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(prometheusMetrics.Handler()))

	// API routes
	api := e.Group("/api/v1")

	// Auth routes (login is rate limited separately)
	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
	authRoutes.GET("/me", authHandler.Me, custommw.JWTMiddlewareWithBlacklist(jwtManager, tokenBlacklist))
	authRoutes.POST("/logout", authHandler.Logout, custommw.JWTMiddlewareWithBlacklist(jwtManager, tokenBlacklist))

	// Protected routes (require JWT with blacklist validation)
	protected := api.Group("")
	protected.Use(custommw.JWTMiddlewareWithBlacklist(jwtManager, tokenBlacklist))
	protected.GET("/leads", leadHandler.List)
	protected.GET("/leads/:id", leadHandler.Get)
	protected.POST("/leads", leadHandler.Create)
	protected.PATCH("/leads/:id", leadHandler.Update)
	protected.DELETE("/leads/:id", leadHandler.Delete)
	protected.POST("/leads/selection", leadHandler.ToggleSelect)
	protected.GET("/leads/selection", leadHandler.Selection)

	// Admin routes
	admin := protected.Group("/admin", custommiddleware.RequireAdmin())
	admin.POST("/leads/bulk-assign", adminHandler.BulkAssign)
	admin.POST("/import/csv", adminHandler.ImportCSV)
	admin.GET("/users/sales", adminHandler.SalesUsers)

	// Scheduled jobs
	cronManager := jobs.NewCronManager(leadStore, cityResolver, prometheusMetrics, appLogger)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to set up cron jobs: %v", err)
	}
	cronManager.Start()
	defer cronManager.Stop()

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
		log.Printf("🚀 Lead Admin API listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Forced shutdown: %v", err)
	}
	log.Printf("👋 Server stopped")
}
