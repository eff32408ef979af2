package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxyline/internal/errors"
	"proxyline/internal/service"
)

// VerifyHandler handles phone verification endpoints.
type VerifyHandler struct {
	userService service.UserService
}

// NewVerifyHandler creates a new verification handler.
func NewVerifyHandler(userService service.UserService) *VerifyHandler {
	return &VerifyHandler{userService: userService}
}

// StartVerificationRequest represents a start-verification request.
type StartVerificationRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone" validate:"required"`
}

// CheckVerificationRequest represents a code check request.
type CheckVerificationRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,min=4,max=10"`
}

// VerifiedResponse represents a successful code check.
type VerifiedResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         interface{} `json:"user"`
}

// StartVerification godoc
// @Summary Start phone verification
// @Description Creates or resets the user record and sends a one-time code. Never returns the code.
// @Tags verify
// @Accept json
// @Produce json
// @Param request body StartVerificationRequest true "Verification target"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /verify/start [post]
func (h *VerifyHandler) StartVerification(c echo.Context) error {
	var req StartVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	canonical, err := h.userService.StartVerification(c.Request().Context(), req.Name, req.Phone)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "verification code sent",
		"phone":   canonical,
	})
}

// CheckVerification godoc
// @Summary Check a verification code
// @Description Validates the code with the provider; on approval the phone becomes verified and a session is issued.
// @Tags verify
// @Accept json
// @Produce json
// @Param request body CheckVerificationRequest true "Phone and code"
// @Success 200 {object} VerifiedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /verify/check [post]
func (h *VerifyHandler) CheckVerification(c echo.Context) error {
	var req CheckVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	accessToken, refreshToken, user, err := h.userService.CheckVerification(c.Request().Context(), req.Phone, req.Code)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, VerifiedResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}
