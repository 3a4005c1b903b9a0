package geocoding

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/UnknownOlympus/coordinfo/internal/metrics"
	"github.com/UnknownOlympus/coordinfo/internal/models"
)

// Error kinds used as metric labels.
const (
	errKindService = "service"
	errKindOther   = "other"
)

// SleepFunc blocks for the given duration or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithSleepFunc replaces the function used to wait between timed out attempts.
func WithSleepFunc(fn SleepFunc) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

// Client wraps a Provider with the retry policy of the enrichment run:
// timeouts are retried forever after a random pause, every other failure
// means "no data" for the point.
type Client struct {
	provider     Provider         // Provider performing the actual lookups
	providerName string           // Name of the provider for metrics labeling
	log          *slog.Logger     // Logger for retry and failure events
	metrics      *metrics.Metrics // Metrics for tracking provider behaviour
	sleep        SleepFunc        // Pause between timed out attempts
}

// NewClient creates a Client on top of the given provider.
func NewClient(
	provider Provider,
	providerName string,
	log *slog.Logger,
	metrics *metrics.Metrics,
	opts ...ClientOption,
) *Client {
	client := &Client{
		provider:     provider,
		providerName: providerName,
		log:          log,
		metrics:      metrics,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ReverseGeocode looks up the place at coords. The boolean is false when no
// place is available, whatever the reason.
//
// A timed out request is repeated after sleeping a random duration between
// one second and maxSleepSeconds, with no limit on the number of attempts.
// Only cancellation of ctx ends the loop early.
func (c *Client) ReverseGeocode(
	ctx context.Context,
	coords models.Coordinates,
	maxSleepSeconds int,
) (*models.Place, bool) {
	for attempt := 1; ; attempt++ {
		startTime := time.Now()
		place, err := c.provider.Reverse(ctx, coords)
		c.metrics.RequestSeconds.WithLabelValues(c.providerName).Observe(time.Since(startTime).Seconds())

		switch {
		case err == nil:
			if place == nil {
				return nil, false
			}
			return place, true
		case errors.Is(err, ErrTimeout):
			c.metrics.Timeouts.Inc()
			pause := BackoffDuration(maxSleepSeconds)
			c.log.InfoContext(ctx, "Geocoder timed out, retrying",
				"coords", coords.String(), "attempt", attempt, "sleep", pause)
			if err = c.sleep(ctx, pause); err != nil {
				c.log.WarnContext(ctx, "Retry abandoned", "coords", coords.String(), "error", err)
				return nil, false
			}
		case errors.Is(err, ErrNominatimEmptyResponse), errors.Is(err, ErrEmptyResponse),
			errors.Is(err, ErrVisicomEmptyResponse):
			c.log.DebugContext(ctx, "No place found", "coords", coords.String())
			return nil, false
		case errors.Is(err, ErrServiceUnavailable):
			c.metrics.APIErrors.WithLabelValues(errKindService).Inc()
			c.log.InfoContext(ctx, "Geocoding service refused the request", "coords", coords.String())
			c.log.ErrorContext(ctx, "Geocoding service error", "error", err)
			return nil, false
		default:
			c.metrics.APIErrors.WithLabelValues(errKindOther).Inc()
			c.log.ErrorContext(ctx, "Failed to reverse geocode", "coords", coords.String(), "error", err)
			return nil, false
		}
	}
}

// BackoffDuration returns a uniformly random pause in [1s, maxSleepSeconds s]
// with a 10ms resolution. Values of maxSleepSeconds below one are treated as one.
func BackoffDuration(maxSleepSeconds int) time.Duration {
	const (
		stepsPerSecond = 100
		step           = 10 * time.Millisecond
	)

	maxSleepSeconds = max(maxSleepSeconds, 1)
	lo, hi := stepsPerSecond, maxSleepSeconds*stepsPerSecond
	steps := lo + rand.IntN(hi-lo+1) //nolint:gosec // jitter only

	return time.Duration(steps) * step
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
