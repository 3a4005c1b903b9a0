package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Error classes shared by all providers.
var (
	// ErrTimeout marks a request that timed out and may be retried as is.
	ErrTimeout = errors.New("geocoding request timed out")
	// ErrServiceUnavailable marks a refused, throttled or failing service.
	ErrServiceUnavailable = errors.New("geocoding service unavailable")
)

// classifyTransportError wraps an error returned by an HTTP round trip with the
// matching error class. The parent context is checked so that a cancelled run
// is not mistaken for a provider timeout.
func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("geocoding request aborted: %w", err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	return fmt.Errorf("failed to execute geocoding request: %w", err)
}

// classifyStatus maps a non-200 HTTP status to an error class.
func classifyStatus(provider string, status int, body string) error {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s API returned status %d", ErrTimeout, provider, status)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s API returned status %d: %s", ErrServiceUnavailable, provider, status, body)
	default:
		return fmt.Errorf("%s API returned status %d: %s", provider, status, body)
	}
}
