package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrPriceChanged = errors.New("fare changed since quote")
	ErrTokenExpired = errors.New("provider token expired")

	// ErrMalformedResponse means the provider answered 2xx without the
	// envelope or field the operation depends on.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is an error reported by the GDS in its own envelope
// (Response.Error, <Op>Result.Error or the top-level Error on auth).
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Unwrap maps session errors onto ErrTokenExpired so callers can force a
// fresh token without parsing provider text.
func (e *ProviderError) Unwrap() error {
	if e.Code == 6 {
		return ErrTokenExpired
	}
	low := strings.ToLower(e.Message)
	if strings.Contains(low, "token") || strings.Contains(low, "session") {
		return ErrTokenExpired
	}
	return nil
}

// InvalidInput wraps ErrInvalidInput with a caller-facing reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
