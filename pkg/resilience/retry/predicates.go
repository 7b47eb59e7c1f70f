package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Predicate decides whether a failed attempt should be retried.
type Predicate func(err error) bool

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// RateLimiter is implemented by errors that signal upstream rate limiting.
type RateLimiter interface {
	RateLimited() bool
}

// DefaultShouldRetry retries timeouts, network failures, 5xx and 429
// responses. Other 4xx responses and caller cancellation are never retried.
// Errors that carry no classification are treated as transient.
func DefaultShouldRetry(err error) bool {
	return IsTransient(err)
}

// SkipRateLimited wraps next so upstream rate limiting is never retried.
// Used when failing over to another provider beats waiting out a 429.
func SkipRateLimited(next Predicate) Predicate {
	if next == nil {
		next = DefaultShouldRetry
	}
	return func(err error) bool {
		if IsRateLimited(err) {
			return false
		}
		return next(err)
	}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsRateLimited(err) || IsTimeout(err) || IsNetwork(err) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return RetryableStatus(sc.HTTPStatus())
	}

	return true
}

// IsRateLimited reports whether err is an upstream rate limit.
func IsRateLimited(err error) bool {
	var rl RateLimiter
	if errors.As(err, &rl) && rl.RateLimited() {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}
	return false
}

// IsTimeout reports whether err is a deadline or timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrAttemptTimeout) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// IsNetwork reports whether err is a connection-level failure.
func IsNetwork(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return code != http.StatusNotImplemented
	default:
		return false
	}
}
