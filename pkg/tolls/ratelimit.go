package tolls

import (
	"context"
	"time"
)

// RateLimiter enforces a minimum spacing between outbound calls of one adapter
// instance. It is a spacing limiter, not a token bucket: it avoids bursts but
// does not absorb them.
type RateLimiter struct {
	minInterval  time.Duration
	slot         chan struct{} // Serializes the read-then-write of lastDispatch
	lastDispatch time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing requestsPerPeriod calls per period.
// A non-positive value for either argument disables spacing.
func NewRateLimiter(requestsPerPeriod int, period time.Duration) *RateLimiter {
	var interval time.Duration
	if requestsPerPeriod > 0 && period > 0 {
		interval = period / time.Duration(requestsPerPeriod)
	}

	return &RateLimiter{
		minInterval: interval,
		slot:        make(chan struct{}, 1),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// MinInterval returns the spacing enforced between calls
func (r *RateLimiter) MinInterval() time.Duration {
	return r.minInterval
}

// Wait blocks until the caller may dispatch a request, then records the dispatch time
func (r *RateLimiter) Wait(ctx context.Context) error {
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.slot }()

	if r.minInterval > 0 && !r.lastDispatch.IsZero() {
		if elapsed := r.now().Sub(r.lastDispatch); elapsed < r.minInterval {
			if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
				return err
			}
		}
	}

	r.lastDispatch = r.now()
	return nil
}

// sleepContext sleeps for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
