package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation errors
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrCodeInvalidOTP       ErrorCode = "INVALID_OTP"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"

	// Limits
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"

	// Server errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeStorageError  ErrorCode = "STORAGE_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeMissingParameter, ErrCodeInvalidOTP:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInternal, ErrCodeDatabaseError, ErrCodeStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError sends a standardized error response
func RespondError(c echo.Context, err *APIError) error {
	return c.JSON(err.HTTPStatus(), map[string]interface{}{
		"status":  false,
		"error":   err.Message,
		"code":    err.Code,
		"details": err.Details,
	})
}

// Common error constructors for convenience

// ErrUnauthorized returns an unauthorized error
func ErrUnauthorized(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAPIError(ErrCodeUnauthorized, message)
}

// ErrForbidden returns a forbidden error
func ErrForbidden(message string) *APIError {
	if message == "" {
		message = "Access denied"
	}
	return NewAPIError(ErrCodeForbidden, message)
}

// ErrNotFound returns a not found error
func ErrNotFound(resource string) *APIError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAPIError(ErrCodeNotFound, message)
}

// ErrBadRequest returns a bad request error
func ErrBadRequest(message string) *APIError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAPIError(ErrCodeBadRequest, message)
}

// ErrAlreadyExists returns an already exists error
func ErrAlreadyExists(resource string) *APIError {
	message := "Resource already exists"
	if resource != "" {
		message = fmt.Sprintf("%s already exists", resource)
	}
	return NewAPIError(ErrCodeAlreadyExists, message)
}

// ErrConflict returns a conflict error with a literal message
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrCodeConflict, message)
}

// ErrInvalidOTP returns the generic OTP rejection. Invalid and expired
// codes are indistinguishable on purpose.
func ErrInvalidOTP() *APIError {
	return NewAPIError(ErrCodeInvalidOTP, "Invalid or expired OTP.")
}

// ErrRateLimited returns a 429 with the retry-after duration in seconds
func ErrRateLimited(retryAfterSeconds int) *APIError {
	return NewAPIError(ErrCodeRateLimited,
		fmt.Sprintf("Too many attempts. Try again in %d seconds.", retryAfterSeconds)).
		WithDetails(map[string]int{"retryAfter": retryAfterSeconds})
}

// ErrInternal returns an internal server error. The underlying failure
// message is exposed to the caller in details.
func ErrInternal(message string, err error) *APIError {
	if message == "" {
		message = "Internal server error"
	}
	apiErr := NewAPIError(ErrCodeInternal, message)
	if err != nil {
		apiErr.Details = map[string]string{"error": err.Error()}
	}
	return apiErr
}

// ErrMissingParameter returns a missing parameter error
func ErrMissingParameter(param string) *APIError {
	return NewAPIError(ErrCodeMissingParameter, fmt.Sprintf("Missing required parameter: %s", param))
}

// GetClaims extracts JWT claims from the context
// Returns nil if no claims are present
func GetClaims(c echo.Context) *JWTClaims {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return nil
	}
	return claims
}

// RequireClaims extracts JWT claims and returns an error if not authenticated
func RequireClaims(c echo.Context) (*JWTClaims, error) {
	claims := GetClaims(c)
	if claims == nil {
		return nil, RespondError(c, ErrUnauthorized(""))
	}
	return claims, nil
}

// RequireAdmin checks if the user is an admin and returns claims
func RequireAdmin(c echo.Context) (*JWTClaims, error) {
	claims := GetClaims(c)
	if claims == nil {
		return nil, RespondError(c, ErrUnauthorized(""))
	}
	if claims.Role != RoleAdmin {
		return nil, RespondError(c, ErrForbidden("Admin access required"))
	}
	return claims, nil
}
