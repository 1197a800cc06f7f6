package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Extraction error taxonomy. Only ErrInput and ErrCanceled ever leave the
// pipeline; the rest are recorded as diagnostics.
var (
	ErrInput              = errors.New("input error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrShapeValidation    = errors.New("shape validation failed")
	ErrConsistency        = errors.New("financial consistency mismatch")
	ErrCanceled           = errors.New("extraction canceled")

	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InputError reports an unreadable or undecodable source image.
func InputError(message string, cause error) error {
	return NewAppError("INPUT_ERROR", message, errors.Join(ErrInput, cause))
}

// BackendUnavailable reports an OCR engine or LLM that could not contribute.
func BackendUnavailable(backend string, cause error) error {
	return NewAppError("BACKEND_UNAVAILABLE", backend, errors.Join(ErrBackendUnavailable, cause))
}

// Canceled reports a run abandoned at stage because its context ended.
func Canceled(stage string, cause error) error {
	return NewAppError("CANCELED", stage, errors.Join(ErrCanceled, cause))
}

// IsInputError reports whether err is (or wraps) an input error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInput)
}

// IsCanceled reports whether err came from cancellation rather than a deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func CanceledError(message string) error {
	return status.Error(codes.Canceled, message)
}

// ToStatus maps a pipeline error onto a gRPC status error.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case IsInputError(err):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case IsCanceled(err):
		return CanceledError(err.Error())
	default:
		return InternalError(err.Error())
	}
}
