// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Routing error taxonomy. Callers match with errors.Is.
var (
	// ErrInvalidInput marks caller bugs: malformed arguments, unknown tokens.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPath marks a path whose tokens and pools do not line up.
	ErrInvalidPath = errors.New("invalid path")
	// ErrTokenMismatch is returned when aggregated paths disagree on endpoints.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrUnsupportedPoolType is returned by the pool registry for unknown types.
	ErrUnsupportedPoolType = errors.New("unsupported pool type")
	// ErrLiquidityExceeded means the amount cannot be swapped through a pool.
	// Routing treats it as an infeasible candidate, not a fault.
	ErrLiquidityExceeded = errors.New("swap amount exceeds pool liquidity")
	// ErrNotConverged is returned by iterative invariant solvers.
	ErrNotConverged = errors.New("invariant did not converge")
	// ErrNotReady is returned by services queried before their first load.
	ErrNotReady = errors.New("not ready")
)

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorUnprocessable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "UNPROCESSABLE",
		Message:    messageOrDefault(msg, "Unprocessable request"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorServiceUnavailable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    messageOrDefault(msg, "Service unavailable"),
	}
}

// ToHTTPError maps routing errors onto HTTP errors.
func ToHTTPError(err error) *HttpError {
	var httpErr *HttpError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidPath),
		errors.Is(err, ErrTokenMismatch),
		errors.Is(err, ErrUnsupportedPoolType):
		return HTTPErrorBadRequest(err.Error())
	case errors.Is(err, ErrNotReady):
		return HTTPErrorServiceUnavailable(err.Error())
	case errors.Is(err, ErrLiquidityExceeded),
		errors.Is(err, ErrNotConverged):
		return HTTPErrorUnprocessable(err.Error())
	default:
		return HTTPErrorInternalError(err.Error())
	}
}
