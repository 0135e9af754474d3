package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/app/backoff"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/cache"
	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

const pollerComponent = "poller"

// Forwarder receives readings the throttle cache accepted.
type Forwarder interface {
	Dispatch(r *domain.Reading) []*domain.SyncAttempt
}

// RunPollLoop polls the source on its interval, routes every reading through
// the throttle cache, and hands propagated readings to the forwarder. Rate
// limiting from upstream stretches the next poll with capped exponential
// backoff; other poll errors keep the normal cadence and only degrade
// health. Dispatch owns its own queues, so a slow sink never delays the
// next poll cycle. The loop exits when ctx is cancelled.
func RunPollLoop(ctx context.Context, src ports.Source, c *cache.Cache, fwd Forwarder, pol ports.Policy, obs ports.Observability, health ports.HealthRecorder) {
	var rateLimited int

	for {
		wait := pol.PollInterval()

		pollCtx, cancel := context.WithTimeout(ctx, pol.PollTimeout())
		readings, err := src.Poll(pollCtx)
		cancel()

		switch {
		case err == nil:
			rateLimited = 0
			health.RecordSuccess(pollerComponent)
			obs.IncCounter("grillstats_readings_polled_total", float64(len(readings)))
			route(readings, c, fwd, obs)

		case errors.Is(err, ports.ErrRateLimited):
			rateLimited++
			wait = backoff.Delay(pol.RetryBaseDelay(), pol.RetryMaxDelay(), rateLimited)
			obs.IncCounter("grillstats_poll_errors_total", 1)
			health.RecordFailure(pollerComponent, err)
			obs.LogError("poll_rate_limited", err,
				ports.Field{Key: "backoff", Value: wait.String()})

		case errors.Is(err, context.Canceled):
			return

		default:
			// timeout, unavailable, malformed body: normal interval, count it
			obs.IncCounter("grillstats_poll_errors_total", 1)
			health.RecordFailure(pollerComponent, err)
			obs.LogError("poll_failed", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func route(readings []*domain.Reading, c *cache.Cache, fwd Forwarder, obs ports.Observability) {
	for _, r := range readings {
		if c.Accept(r) == domain.Propagate {
			obs.IncCounter("grillstats_readings_propagated_total", 1)
			fwd.Dispatch(r)
			continue
		}
		obs.IncCounter("grillstats_readings_suppressed_total", 1)
	}
}
