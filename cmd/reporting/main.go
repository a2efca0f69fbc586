package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/farmhub/farmhub-api/internal/handler"
	"github.com/farmhub/farmhub-api/internal/middleware"
	"github.com/farmhub/farmhub-api/internal/repository"
	"github.com/farmhub/farmhub-api/internal/service"
	"github.com/farmhub/farmhub-api/pkg/cache"
	"github.com/farmhub/farmhub-api/pkg/config"
	"github.com/farmhub/farmhub-api/pkg/database"
	"github.com/farmhub/farmhub-api/pkg/logger"
	corsmiddleware "github.com/farmhub/farmhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/farmhub/farmhub-api/pkg/middleware/requestid"
)

// The reporting service is a separate read-only process against the same
// database. It validates the same access tokens the core API issues but
// applies no row-level scoping: reports aggregate platform-wide.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Reporting.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, reports uncached", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close()
			cacheRepo = repo
		}
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Reporting.CacheTTL, logr, cfg.Reporting.CacheEnabled && cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "farmhub-api",
		AllowAgentSignup:   cfg.Auth.AllowAgentSignup,
	})
	reportService := service.NewReportService(reportRepo, cacheService, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	reporting := handler.Reporting{
		Reports:     handler.NewReportHandler(reportService),
		AuthService: authService,
	}
	reporting.Register(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	addr := fmt.Sprintf(":%d", cfg.Reporting.Port)
	logr.Sugar().Infow("reporting service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("reporting service failed", "error", err)
	}
}
