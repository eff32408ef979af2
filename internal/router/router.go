package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"proxyline/internal/config"
	"proxyline/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	verifyHandler *handler.VerifyHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	billingHandler *handler.BillingHandler,
	voiceHandler *handler.VoiceHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/verify/start", verifyHandler.StartVerification)
	api.POST("/verify/check", verifyHandler.CheckVerification)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/lookup", userHandler.Lookup)

	// Provider callbacks: authenticated by signature (billing) or known only
	// to the telephony provider (voice), not by caller identity.
	api.POST("/billing/webhook", billingHandler.CheckoutWebhook)
	api.POST("/voice/inbound", voiceHandler.InboundCall)

	// Secured routes (require a verified-phone JWT)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))

	secured.GET("/me/status", userHandler.CheckStatus)
	secured.PUT("/me/forwarding", userHandler.SetForwarding)
	secured.POST("/billing/checkout", billingHandler.CreateCheckoutSession)
	secured.POST("/billing/provision/retry", billingHandler.RetryProvisioning)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
