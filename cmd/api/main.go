package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/farmhub/farmhub-api/api/swagger"
	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/handler"
	"github.com/farmhub/farmhub-api/internal/middleware"
	"github.com/farmhub/farmhub-api/internal/repository"
	"github.com/farmhub/farmhub-api/internal/service"
	"github.com/farmhub/farmhub-api/pkg/config"
	"github.com/farmhub/farmhub-api/pkg/database"
	"github.com/farmhub/farmhub-api/pkg/logger"
	corsmiddleware "github.com/farmhub/farmhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/farmhub/farmhub-api/pkg/middleware/requestid"
)

// @title FarmHub API
// @version 1.0.0
// @description Farm management platform with role-scoped access
// @BasePath /api/v1
// @schemes http

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

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	farmRepo := repository.NewFarmRepository(db)
	cowRepo := repository.NewCowRepository(db)
	milkRepo := repository.NewMilkRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	resolver := access.NewResolver(farmRepo, enrollmentRepo)
	policy := access.NewPolicy(resolver)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "farmhub-api",
		AllowAgentSignup:   cfg.Auth.AllowAgentSignup,
	})
	userService := service.NewUserService(userRepo, farmRepo, policy, validate, logr)
	farmService := service.NewFarmService(farmRepo, userRepo, policy, validate, logr)
	cowService := service.NewCowService(cowRepo, farmRepo, userRepo, policy, validate, logr)
	milkService := service.NewMilkService(milkRepo, cowRepo, farmRepo, policy, validate, logr)
	activityService := service.NewActivityService(activityRepo, cowRepo, farmRepo, policy, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, farmRepo, userRepo, policy, validate, logr)
	metricsService := service.NewMetricsService()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	api := handler.API{
		Auth:        handler.NewAuthHandler(authService),
		Users:       handler.NewUserHandler(userService),
		Farms:       handler.NewFarmHandler(farmService),
		Cows:        handler.NewCowHandler(cowService),
		Milk:        handler.NewMilkHandler(milkService),
		Activities:  handler.NewActivityHandler(activityService),
		Enrollments: handler.NewEnrollmentHandler(enrollmentService),
		AuthService: authService,
	}
	api.Register(r, cfg.APIPrefix)

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

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
