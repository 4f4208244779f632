// Package errors defines the sentinel errors shared across the indexer,
// persistence and search layers, plus typed errors that carry extra context
// (HTTP status, offending dataset record).
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSnapshotNotFound = errors.New("index snapshot not found")
	ErrStorage          = errors.New("storage failure")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// MissingFieldError reports a dataset record that lacks a required field.
// Index is the record's position in the dataset; DocID is set when the record
// carried a usable id.
type MissingFieldError struct {
	Index int
	DocID *int
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.DocID != nil {
		return fmt.Sprintf("document %d (record %d): missing required field %q", *e.DocID, e.Index, e.Field)
	}
	return fmt.Sprintf("record %d: missing required field %q", e.Index, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrInvalidInput
}

// Storage wraps an I/O failure so callers can match it with errors.Is
// against ErrStorage while keeping the underlying cause.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorage, err))
}

// NotFound wraps a reason for a missing or unusable snapshot.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSnapshotNotFound, fmt.Sprintf(format, args...))
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrSnapshotNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
