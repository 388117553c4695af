// Package rategovernor implements C3: a process-wide leaky-bucket pacing
// coordinator so ingestion never exceeds a configured external API quota,
// regardless of how many crawl goroutines are in flight.
package rategovernor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the RateGovernor's tunables (§4.2).
type Config struct {
	// RequestsPerHour bounds the steady-state rate. Default 3600, a ~28%
	// safety margin below a typical 5000/h external ceiling.
	RequestsPerHour int
	// MinInterval is the minimum spacing between any two permits, applied
	// as the limiter's burst=1 floor.
	MinInterval time.Duration
	// PerHost, when true, gives each host its own bucket via Host() instead
	// of sharing one global bucket.
	PerHost bool
}

// DefaultConfig returns the §4.2 defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerHour: 3600,
		MinInterval:     time.Second,
		PerHost:         false,
	}
}

// Governor is a single process-wide pacing coordinator. Its sole operation,
// AwaitSlot, returns no earlier than the wall-clock instant the caller may
// issue its next external request. Concurrent callers are linearized FIFO
// by the underlying token bucket; the governor holds no resource other than
// its own internal state while waiting.
type Governor struct {
	cfg Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New constructs a Governor from cfg. A zero RequestsPerHour falls back to
// the §4.2 default of 3600; MinInterval of zero is honored as-is (no
// interval floor), since callers that want one already got it from
// pkg/config's own defaulting.
func New(cfg Config) *Governor {
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = 3600
	}
	return &Governor{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the shared bucket for host, or the single global
// bucket when per-host pacing is disabled.
func (g *Governor) limiterFor(host string) *rate.Limiter {
	key := "*"
	if g.cfg.PerHost {
		key = host
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.limiters[key]
	if !ok {
		// One token every 1/rate second, per §4.2's leaky-bucket algorithm.
		perSecond := rate.Limit(float64(g.cfg.RequestsPerHour) / 3600.0)
		lim = rate.NewLimiter(perSecond, 1)
		// Respect MinInterval by never allowing a burst larger than 1 and
		// ensuring the fill rate never implies a shorter average interval.
		if g.cfg.MinInterval > 0 {
			maxRate := rate.Limit(1.0 / g.cfg.MinInterval.Seconds())
			if perSecond > maxRate {
				lim.SetLimit(maxRate)
			}
		}
		g.limiters[key] = lim
	}
	return lim
}

// AwaitSlot blocks until the caller is permitted to issue its next request
// to host, or until ctx is canceled. RateGovernor waits do not count toward
// a caller's per-attempt timeout (§5) — callers should derive their
// per-attempt timeout context only after AwaitSlot returns.
func (g *Governor) AwaitSlot(ctx context.Context, host string) error {
	lim := g.limiterFor(host)
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate governor: %w", err)
	}
	return nil
}
