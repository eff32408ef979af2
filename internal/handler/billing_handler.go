package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxyline/internal/errors"
	"proxyline/internal/service"
)

// SignatureHeader carries the billing provider's webhook signature.
const SignatureHeader = "X-Billing-Signature"

// BillingHandler handles checkout and provisioning endpoints.
type BillingHandler struct {
	billingService service.BillingService
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billingService service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// CreateCheckoutSession godoc
// @Summary Create a subscription checkout session
// @Description Opens a hosted checkout for the verified phone and texts the link to the user.
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /billing/checkout [post]
func (h *BillingHandler) CreateCheckoutSession(c echo.Context) error {
	phone, err := phoneFromToken(c)
	if err != nil {
		return err
	}

	if _, err := h.billingService.CreateCheckoutSession(c.Request().Context(), phone); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "checkout link sent",
	})
}

// CheckoutWebhook godoc
// @Summary Payment provider completion callback
// @Description Verifies the signature over the raw body, then provisions the subscriber. Always acknowledges once the signature passes.
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} errors.ErrorResponse
// @Router /billing/webhook [post]
func (h *BillingHandler) CheckoutWebhook(c echo.Context) error {
	// The raw bytes are the signature input; they must not be parsed first.
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "unreadable body",
			Code:  "INVALID_REQUEST",
		})
	}

	sig := c.Request().Header.Get(SignatureHeader)
	if err := h.billingService.HandleCheckoutCompleted(c.Request().Context(), payload, sig); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// RetryProvisioning godoc
// @Summary Retry proxy-number provisioning
// @Description Re-attempts the number purchase for a paid subscription parked in provisioning_pending.
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /billing/provision/retry [post]
func (h *BillingHandler) RetryProvisioning(c echo.Context) error {
	phone, err := phoneFromToken(c)
	if err != nil {
		return err
	}

	user, err := h.billingService.RetryProvisioning(c.Request().Context(), phone)
	if err != nil {
		if err == service.ErrNotAwaitingProvisioning {
			return echo.NewHTTPError(http.StatusConflict, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "NOT_AWAITING_PROVISIONING",
			})
		}
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, user)
}
