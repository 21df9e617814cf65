package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("validation error")

	// ErrAllocatorUnavailable marks configuration or permission faults in the
	// consecutive allocator (missing primitive, insufficient privileges).
	// Never retried.
	ErrAllocatorUnavailable = errors.New("consecutive allocator unavailable")

	// ErrDuplicateLotCode marks a lot code collision detected before attach.
	// Indicates counter-state corruption; the operation must halt.
	ErrDuplicateLotCode = errors.New("duplicate lot code")

	// ErrCodePending marks a transaction whose business data was saved but
	// whose lot code could not be attached. The record stays valid and a
	// retry re-drives code assignment.
	ErrCodePending = errors.New("saved without lot code, retry required")

	// ErrMissingLotKeys marks a completion attempt lacking one of the
	// origin/product/warehouse keys needed to build a lot code.
	ErrMissingLotKeys = errors.New("missing lot code keys")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// AllocatorUnavailable reports a fatal allocator configuration fault. The
// message carries the diagnostic detail (error code, primitive name) an
// operator needs; the suggested action is to contact an administrator,
// since retrying cannot fix infrastructure.
func AllocatorUnavailable(detail string, cause error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrAllocatorUnavailable, cause),
		Code:       "ALLOCATOR_UNAVAILABLE",
		Message:    fmt.Sprintf("lot consecutive allocator unavailable (%s); contact administrator", detail),
		StatusCode: http.StatusInternalServerError,
	}
}

// DuplicateLotCode reports a lot code collision. Fatal: the operation halts
// with the record left uncoded so the counter state can be investigated.
func DuplicateLotCode(code string) *AppError {
	return &AppError{
		Err:        ErrDuplicateLotCode,
		Code:       "DUPLICATE_LOT_CODE",
		Message:    fmt.Sprintf("lot code %s is already assigned to another record; contact administrator", code),
		StatusCode: http.StatusConflict,
	}
}

// CodePending reports that business data was saved but the lot code could
// not be attached. The caller should retry code assignment.
func CodePending(table string, id int64, cause error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrCodePending, cause),
		Code:       "LOT_CODE_PENDING",
		Message:    fmt.Sprintf("%s record %d was saved without a lot code; retry code assignment", table, id),
		StatusCode: http.StatusConflict,
	}
}

// MissingLotKeys reports a code assignment attempt on a record that lacks
// one of the catalog keys a lot code is built from.
func MissingLotKeys(table string, id int64) *AppError {
	return &AppError{
		Err:        ErrMissingLotKeys,
		Code:       "MISSING_LOT_KEYS",
		Message:    fmt.Sprintf("%s record %d is missing the warehouse or product needed to build a lot code", table, id),
		StatusCode: http.StatusBadRequest,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
