package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies application errors for logs and API clients.
type ErrorCode string

const (
	ErrCodeBadPayload        ErrorCode = "BAD_PAYLOAD"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInference         ErrorCode = "INFERENCE_ERROR"
	ErrCodeDeviceUnreachable ErrorCode = "DEVICE_UNREACHABLE"
	ErrCodeTooManyClients    ErrorCode = "TOO_MANY_CLIENTS"
	ErrCodePersistence       ErrorCode = "PERSISTENCE_ERROR"
)

// AppError carries a stable code and the HTTP status a handler should map
// the failure to.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WrapError attaches a code and HTTP status to an underlying cause.
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
	}
}

func NewPersistenceError(message string, err error) *AppError {
	return WrapError(err, ErrCodePersistence, message, http.StatusInternalServerError)
}

// GetAppError extracts the first AppError in the chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
