package main

import (
	"net/http"

	_ "proxyline/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"proxyline/internal/auth"
	"proxyline/internal/cache"
	"proxyline/internal/config"
	"proxyline/internal/db"
	"proxyline/internal/handler"
	"proxyline/internal/logger"
	"proxyline/internal/model"
	"proxyline/internal/provider"
	"proxyline/internal/repository"
	"proxyline/internal/router"
	"proxyline/internal/service"
)

// @title Proxyline API
// @version 1.0
// @description Phone onboarding, subscription, and call-forwarding proxy API.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Environment)
	defer logger.Sync()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.Environment)
	if err != nil {
		log.Fatal("database init", zap.Error(err))
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Provider clients: built once here and injected, never constructed lazily.
	verifyClient := provider.NewVerificationClient(cfg.VerifyBaseURL, cfg.VerifyAPIKey, cfg.VerifyDryRun)
	billingClient := provider.NewBillingClient(cfg.BillingBaseURL, cfg.BillingAPIKey, cfg.BillingDryRun)
	telephonyClient := provider.NewTelephonyClient(cfg.TelephonyBaseURL, cfg.TelephonyAPIKey, cfg.TelephonyDryRun)
	webhookVerifier := provider.NewWebhookVerifier(cfg.BillingSigningSecret)

	// Initialize repository and auth components
	userRepo := repository.NewUserRepository(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	userService := service.NewUserService(userRepo, verifyClient, cacheClient, jwtService, tokenStore)
	billingService := service.NewBillingService(userRepo, billingClient, telephonyClient, webhookVerifier, service.BillingConfig{
		PriceRef:        cfg.BillingPriceRef,
		PlanPrice:       cfg.PlanPrice,
		PlanTermDays:    cfg.PlanTermDays,
		Region:          cfg.TelephonyRegion,
		VoiceWebhookURL: cfg.VoiceWebhookURL,
	})
	forwardService := service.NewForwardService(userRepo)

	// Initialize handlers
	verifyHandler := handler.NewVerifyHandler(userService)
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	billingHandler := handler.NewBillingHandler(billingService)
	voiceHandler := handler.NewVoiceHandler(forwardService)

	// Register routes
	router.Register(
		e,
		cfg,
		verifyHandler,
		authHandler,
		userHandler,
		billingHandler,
		voiceHandler,
	)

	addr := ":" + cfg.ServerPort
	log.Info("server starting", zap.String("addr", addr))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal("server start", zap.Error(err))
	}
}
