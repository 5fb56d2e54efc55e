package pricing

import (
	"context"
	"errors"
	"net"
)

// Error is a recoverable price API failure. A failed request only affects
// the batch it was made for.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUpstreamUnavailable is returned for non-success statuses, transport
	// failures and an open circuit breaker.
	ErrUpstreamUnavailable Error = "price api unavailable"
	// ErrMalformedResponse is returned when the body cannot be decoded.
	ErrMalformedResponse Error = "malformed price api response"
	// ErrTimeout is returned when the request exceeds its time budget.
	ErrTimeout Error = "price api timeout"
	// ErrInvalidQuery is returned for queries without items or region.
	ErrInvalidQuery Error = "invalid price query"
)

// Reason maps an error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "error"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
