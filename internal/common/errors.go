package common

import (
	"errors"
	"fmt"
	"net/http"
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

// Error codes surfaced to callers.
const (
	CodeConfig         = "CONFIG_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeIngestion      = "INGESTION_ERROR"
	CodeDocumentDecode = "DOCUMENT_DECODE_ERROR"
	CodeRasterization  = "RASTERIZATION_ERROR"
	CodeRecognition    = "RECOGNITION_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error taxonomy. Ingestion and document decode errors fail the request;
// rasterization and recognition errors are scoped to one page.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrIngestion      = errors.New("ingestion failed")
	ErrDocumentDecode = errors.New("document cannot be decoded")
	ErrRasterization  = errors.New("rasterization failed")
	ErrRecognition    = errors.New("recognition failed")
	ErrInternal       = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IngestionErrorf wraps ErrIngestion with a formatted message.
func IngestionErrorf(format string, args ...any) error {
	return NewAppError(CodeIngestion, fmt.Sprintf(format, args...), ErrIngestion)
}

// DecodeErrorf wraps ErrDocumentDecode with a formatted message.
func DecodeErrorf(format string, args ...any) error {
	return NewAppError(CodeDocumentDecode, fmt.Sprintf(format, args...), ErrDocumentDecode)
}

// InvalidArgumentError wraps ErrInvalidInput.
func InvalidArgumentError(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

// ErrorCode returns the caller-facing code for err.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrIngestion):
		return CodeIngestion
	case errors.Is(err, ErrDocumentDecode):
		return CodeDocumentDecode
	case errors.Is(err, ErrRasterization):
		return CodeRasterization
	case errors.Is(err, ErrRecognition):
		return CodeRecognition
	}
	return CodeInternal
}

// HTTPStatus maps a request-level error to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrIngestion):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentDecode):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
