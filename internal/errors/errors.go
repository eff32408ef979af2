package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidPhoneFormat is returned when a phone number cannot be normalized.
	ErrInvalidPhoneFormat = errors.New("invalid phone format")
	// ErrMissingRequiredField is returned when a required input field is absent.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrUserNotFound is returned when no record exists for a phone.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotVerified is returned when an operation requires a verified phone.
	ErrNotVerified = errors.New("phone not verified")
	// ErrCodeRejected is returned when the verification code is invalid or expired.
	ErrCodeRejected = errors.New("verification code invalid or expired")
	// ErrSignatureInvalid is returned when a webhook signature check fails.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	// ErrProviderUnavailable is returned when an external provider call fails.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNoNumbersAvailable is returned when no forwarding numbers can be purchased.
	ErrNoNumbersAvailable = errors.New("no forwarding numbers available")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch err {
	case ErrInvalidPhoneFormat:
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_PHONE_FORMAT")
	case ErrMissingRequiredField:
		return NewHTTPError(http.StatusBadRequest, err.Error(), "MISSING_REQUIRED_FIELD")
	case ErrUserNotFound:
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case ErrNotVerified:
		return NewHTTPError(http.StatusForbidden, err.Error(), "NOT_VERIFIED")
	case ErrCodeRejected:
		return NewHTTPError(http.StatusBadRequest, err.Error(), "CODE_REJECTED")
	case ErrSignatureInvalid:
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SIGNATURE_INVALID")
	case ErrProviderUnavailable:
		return NewHTTPError(http.StatusBadGateway, err.Error(), "PROVIDER_UNAVAILABLE")
	case ErrNoNumbersAvailable:
		return NewHTTPError(http.StatusConflict, err.Error(), "NO_NUMBERS_AVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
