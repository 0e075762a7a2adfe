package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by every layer and surfaced to clients.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Fields carries per-field messages for validation failures.
	Fields map[string]string
	// RetryAfter is set on RATE_LIMITED errors.
	RetryAfter time.Duration
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError builds a VALIDATION_ERROR carrying field-level detail.
func NewFieldValidationError(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Invalid input",
		Fields:  fields,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewRateLimitedError(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "You have exceeded the rate limit",
		RetryAfter: retryAfter,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewInternalErrorWithMessage is an INTERNAL_ERROR whose message is safe to
// show to clients, e.g. "author not found".
func NewInternalErrorWithMessage(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or INTERNAL_ERROR for
// anything else.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// StatusCode maps an error code onto its HTTP status.
func StatusCode(code string) int {
	switch code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response. The status is
// derived from the error code; errors that are not AppErrors are rendered as
// INTERNAL_ERROR without their message.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}

	response := ErrorResponse{
		Error:  appErr.Message,
		Code:   appErr.Code,
		Fields: appErr.Fields,
	}

	if appErr.Code == CodeRateLimited && appErr.RetryAfter > 0 {
		secs := int(math.Ceil(appErr.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
	}

	return c.Status(StatusCode(appErr.Code)).JSON(response)
}
