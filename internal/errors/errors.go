// Package errors provides error code definitions shared across the service tool.
package errors

import "fmt"

// ErrorCode identifies a failure class so callers can branch on it
// without string-matching messages.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Local persistence errors
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrWriteFailed        ErrorCode = "WRITE_FAILED"
	ErrReadFailed         ErrorCode = "READ_FAILED"
	ErrDeleteFailed       ErrorCode = "DELETE_FAILED"
	ErrMigrationFailed    ErrorCode = "MIGRATION_FAILED"

	// Outbox errors
	ErrEnqueueFailed    ErrorCode = "ENQUEUE_FAILED"
	ErrRemoteSendFailed ErrorCode = "REMOTE_SEND_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error carries a specific code. The chain is traversed
// so a code survives additional fmt.Errorf %w layers.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrInternal if there is none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return ErrInternal
}
