// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error for logging, metrics and rendering.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"

	// Backend call failures. All of them collapse into a single user-visible
	// line per panel, the type only reaches logs and metrics.
	ErrorTypeTransport ErrorType = "transport_error"
	ErrorTypeStatus    ErrorType = "status_error"
	ErrorTypeEmpty     ErrorType = "empty_result"
	ErrorTypeDecode    ErrorType = "decode_error"
)

// AppError is the error shape shared by every package.
type AppError struct {
	Type       ErrorType
	Message    string
	Err        error
	Code       string
	StatusCode int // HTTP status for ErrorTypeStatus, 0 otherwise
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError with the code derived from its type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// NewTransportError reports a request that never completed.
func NewTransportError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTransport, message, originalError)
}

// NewStatusError reports a non-2xx response. The body is never inspected.
func NewStatusError(message string, statusCode int) *AppError {
	e := NewAppError(ErrorTypeStatus, message, nil)
	e.StatusCode = statusCode
	return e
}

// NewEmptyError reports a successful response without the expected result.
func NewEmptyError(message string) *AppError {
	return NewAppError(ErrorTypeEmpty, message, nil)
}

func NewDecodeError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeDecode, message, originalError)
}

// TypeOf returns the ErrorType of err, or ErrorTypeError when err carries none.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ErrorTypeError
}

func isType(err error, t ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == t
	}
	return false
}

func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool   { return isType(err, ErrorTypeNotFound) }
func IsConflictError(err error) bool   { return isType(err, ErrorTypeConflict) }
func IsTransportError(err error) bool  { return isType(err, ErrorTypeTransport) }
func IsStatusError(err error) bool     { return isType(err, ErrorTypeStatus) }
func IsEmptyError(err error) bool      { return isType(err, ErrorTypeEmpty) }

// generateErrorCode maps an error type to its code.
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeTransport:
		return "BACKEND_UNREACHABLE"
	case ErrorTypeStatus:
		return "BACKEND_STATUS"
	case ErrorTypeEmpty:
		return "EMPTY_RESULT"
	case ErrorTypeDecode:
		return "BACKEND_DECODE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps err, keeping the type of an existing AppError.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// already typed: keep type, code and status
		return &AppError{
			Type:       appError.Type,
			Message:    fmt.Sprintf("%s: %s", message, appError.Message),
			Err:        appError,
			Code:       appError.Code,
			StatusCode: appError.StatusCode,
		}
	}

	return NewAppError(errType, message, err)
}
