package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport-level failure (dial, read, decode).
type NetworkError struct {
	Op        string // Operation that failed (e.g., "markets", "market_chart")
	Err       error  // Underlying error
	Retriable bool   // Whether the next poll may succeed
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// StatusError is returned when the API answers with a non-success status code.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// IsRetriable treats 429 and 5xx as transient.
func (e *StatusError) IsRetriable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// StatusCode extracts the HTTP status of a failed fetch, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnsupportedCurrency is returned for a currency outside SupportedCurrencies.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrUnknownAsset is returned when an id is not part of the current snapshot.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrStaleResult marks a fetch whose result was superseded by a newer request.
	ErrStaleResult = errors.New("stale result discarded")

	// ErrEmptyResponse is returned when the API answers 200 with no usable payload.
	ErrEmptyResponse = errors.New("empty response")
)
