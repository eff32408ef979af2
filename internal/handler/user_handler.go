package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxyline/internal/errors"
	"proxyline/internal/service"
)

// UserHandler handles lookup, status, and self-service endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SetForwardingRequest represents a forwarding toggle request.
type SetForwardingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Lookup godoc
// @Summary Caller-id fast lookup
// @Description Returns whether a caller is known and verified. Absence is not an error.
// @Tags users
// @Produce json
// @Param caller_id query string true "Raw caller id"
// @Success 200 {object} service.LookupResult
// @Failure 400 {object} errors.ErrorResponse
// @Router /lookup [get]
func (h *UserHandler) Lookup(c echo.Context) error {
	callerID := c.QueryParam("caller_id")
	if callerID == "" {
		httpErr := errors.MapErrorToHTTP(errors.ErrMissingRequiredField)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	result, err := h.userService.Lookup(c.Request().Context(), callerID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, result)
}

// CheckStatus godoc
// @Summary Current user status
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me/status [get]
func (h *UserHandler) CheckStatus(c echo.Context) error {
	phone, err := phoneFromToken(c)
	if err != nil {
		return err
	}

	user, err := h.userService.CheckStatus(c.Request().Context(), phone)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, user)
}

// SetForwarding godoc
// @Summary Toggle call forwarding
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SetForwardingRequest true "Forwarding flag"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me/forwarding [put]
func (h *UserHandler) SetForwarding(c echo.Context) error {
	phone, err := phoneFromToken(c)
	if err != nil {
		return err
	}

	var req SetForwardingRequest
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

	user, err := h.userService.SetForwarding(c.Request().Context(), phone, *req.Enabled)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, user)
}
