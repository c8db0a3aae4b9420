package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourusername/policy-api/internal/config"
	"github.com/yourusername/policy-api/internal/domain/repository"
	"github.com/yourusername/policy-api/internal/handler"
	"github.com/yourusername/policy-api/internal/metrics"
	"github.com/yourusername/policy-api/internal/middleware"
	pgRepo "github.com/yourusername/policy-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/policy-api/internal/repository/redis"
	"github.com/yourusername/policy-api/internal/service"
	"github.com/yourusername/policy-api/pkg/auth"
	"github.com/yourusername/policy-api/pkg/database"
	"github.com/yourusername/policy-api/pkg/logger"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer zlog.Sync()

	isProduction := gin.Mode() == gin.ReleaseMode

	// PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.MigrateDB(db, cfg.Database.MigrationsDir, zlog); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis необязателен: без него сервис работает без кеша и rate limiting
	var redisClient goredis.UniversalClient
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			zlog.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			zlog.Fatal("failed to initialize cache repository", zap.Error(err))
		}
		cacheRepo = repo
		zlog.Info("connected to Redis", zap.String("mode", cfg.Redis.Mode))
	} else {
		zlog.Warn("Redis is not configured: effective policy cache and consent rate limiting are disabled")
	}

	m := metrics.New()

	// Репозитории
	docRepo := pgRepo.NewPolicyDocumentRepo(db)
	acceptanceRepo := pgRepo.NewPolicyAcceptanceRepo(db)

	// Сервисы
	policyService := service.NewPolicyService(docRepo, acceptanceRepo, cacheRepo, cfg.Cache.EffectivePolicyTTL, m, zlog)
	adminService := service.NewPolicyAdminService(docRepo, acceptanceRepo, policyService, zlog)

	// Токены администраторов
	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.AdminJWTSecret != "" {
		tokens, err := auth.NewAdminTokenService(cfg.Auth.AdminJWTSecret, cfg.Auth.AdminJWTIssuer)
		if err != nil {
			zlog.Fatal("failed to initialize admin token service", zap.Error(err))
		}
		authMiddleware = middleware.NewAuthMiddleware(tokens, zlog)
	} else {
		zlog.Warn("ADMIN_JWT_SECRET is not set: admin policy endpoints are disabled")
	}

	// Обработчики
	handler.UseJSONFieldNames()
	policyHandler := handler.NewPolicyHandler(policyService, m, zlog)
	adminHandler := handler.NewPolicyAdminHandler(adminService, zlog)
	sqlDB, err := database.GetSQLDB(db)
	if err != nil {
		zlog.Fatal("failed to get sql.DB", zap.Error(err))
	}
	healthHandler := handler.NewHealthHandler(sqlDB)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zlog), m.GinMiddleware())

	// Доверенные прокси для корректного c.ClientIP(); пустой список - не доверять заголовкам
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		zlog.Warn("failed to set trusted proxies", zap.Error(err))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/v1")
	{
		policies := v1.Group("/policies")
		{
			policies.GET("/public", policyHandler.GetPublicPolicies)
			policies.GET("/check-status", policyHandler.CheckStatus)

			consentChain := []gin.HandlerFunc{}
			if redisClient != nil {
				limiter := middleware.NewRateLimiter(redisClient, zlog)
				consentChain = append(consentChain, limiter.Limit(middleware.RateLimitConfig{
					MaxRequests: cfg.RateLimit.ConsentMaxRequests,
					Window:      cfg.RateLimit.ConsentWindow,
					KeyPrefix:   middleware.DefaultConsentRateLimitConfig().KeyPrefix,
				}))
			}
			consentChain = append(consentChain, policyHandler.SubmitConsent)
			policies.POST("/consent", consentChain...)
		}

		if authMiddleware != nil {
			admin := v1.Group("/admin/policies")
			admin.Use(authMiddleware.RequireAdmin())
			{
				admin.GET("/documents", adminHandler.ListDocuments)
				admin.POST("/documents", adminHandler.CreateDocument)

				docWithID := admin.Group("/documents/:id")
				docWithID.Use(middleware.ExtractUUIDParam("id", middleware.DocumentIDKey))
				{
					docWithID.GET("", adminHandler.GetDocument)
					docWithID.PATCH("", adminHandler.UpdateDocument)
					docWithID.POST("/versions", adminHandler.AddVersion)
				}

				admin.GET("/acceptances", adminHandler.ListAcceptances)
				admin.GET("/acceptances/export", adminHandler.ExportAcceptances)
			}
		}
	}

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped with error", zap.Error(err))
			cancel()
		}
	}()

	// Ожидаем SIGINT/SIGTERM или аварийную остановку сервера
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	zlog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		zlog.Warn("failed to close database", zap.Error(err))
	}
	zlog.Info("server exited properly")
}
