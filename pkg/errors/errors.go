// Package errors defines the sentinel errors of the diagnosis service and
// the AppError wrapper that pairs one with a client-facing message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidUser        = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrModelUnavailable   = errors.New("classifier unavailable")
	ErrPersistence        = errors.New("persistence failure")
	ErrTimeout            = errors.New("operation timed out")
)

// statusOf maps each sentinel to its HTTP status. Degradations (model,
// persistence, timeouts) never fail a prediction; they surface as 503 on
// the history and delete paths only.
var statusOf = []struct {
	err    error
	status int
}{
	{ErrUserNotFound, http.StatusNotFound},
	{ErrPredictionNotFound, http.StatusNotFound},
	{ErrInvalidUser, http.StatusBadRequest},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrModelUnavailable, http.StatusServiceUnavailable},
	{ErrPersistence, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError carries a sentinel, the message shown to the client and the
// status to answer with.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string { return e.Err.Error() + ": " + e.Message }

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode picks the status for err: an AppError's own code first,
// then the first sentinel in its chain, then 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, s := range statusOf {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
