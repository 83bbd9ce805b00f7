// Package apierr provides shared error sentinels and retry infrastructure
// for HTTP-based API clients. All provider-specific error types are
// classified into these sentinels at the adapter boundary.
//
// Providers map HTTP status codes to these errors using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a server-side failure (5xx, retryable).
	ErrServerError = errors.New("server error")
)

// FromStatusCode classifies an HTTP status code into a sentinel.
// Returns nil for 2xx codes.
func FromStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return ErrRateLimit
	case code == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthFailed
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrServerError
	default:
		return ErrBadRequest
	}
}

// IsRetryable reports whether err is a transient failure worth retrying:
// rate limits, timeouts, server errors and network-level interruptions.
// Context cancellation and client-side errors are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerError) {
		return true
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrBadRequest) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Wrapped transport errors sometimes lose their type on the way up.
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"connection reset", "connection refused", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
