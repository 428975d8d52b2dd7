package ratelimit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
)

// ErrInvalidLimit is returned for a window or max the gate cannot count against.
var ErrInvalidLimit = errors.New("rate limit needs max >= 1 and a positive window")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait, relative to now.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Store keeps one fixed window per key. Take must perform the
// check-and-increment atomically with respect to other Take calls on the same key.
// Gate only calls it with max >= 1 and window > 0.
type Store interface {
	Take(ctx context.Context, key string, window time.Duration, max int, now time.Time) (Decision, error)
}

// Gate throttles requests per identifier using a fixed-window counter.
type Gate struct {
	store  Store
	now    func() time.Time
	logger observability.Logger
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(l observability.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{store: store, now: time.Now, logger: observability.NewNopLogger()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Allow counts one request for identifier. The first request of a window, or the first
// after resetAt has passed, opens a new window; once max requests have been counted the
// rest of the window is denied with Remaining 0 and the unchanged ResetAt.
func (g *Gate) Allow(ctx context.Context, identifier string, window time.Duration, max int) (Decision, error) {
	if max < 1 || window <= 0 {
		return Decision{}, errors.Wrapf(ErrInvalidLimit, "max=%d window=%s", max, window)
	}
	d, err := g.store.Take(ctx, identifier, window, max, g.now())
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		observability.RateLimitExceeded.WithLabelValues(scopeOf(identifier)).Inc()
		g.logger.WithField("identifier", identifier).WithField("reset_at", d.ResetAt).Warn("rate limit exceeded")
	}
	return d, nil
}

// Check is Allow reporting a denial as apperr.RateLimitError.
func (g *Gate) Check(ctx context.Context, identifier string, window time.Duration, max int) (Decision, error) {
	d, err := g.Allow(ctx, identifier, window, max)
	if errors.Is(err, ErrInvalidLimit) {
		return d, err
	}
	if err != nil {
		return d, apperr.Dependency("rate limit store", err)
	}
	if !d.Allowed {
		return d, apperr.RateLimitError{RetryAfter: d.RetryAfter(g.now()), ResetAt: d.ResetAt}
	}
	return d, nil
}

// scopeOf returns the "scope" prefix of keys like "confirm-email:<user>".
func scopeOf(identifier string) string {
	for i := 0; i < len(identifier); i++ {
		if identifier[i] == ':' {
			return identifier[:i]
		}
	}
	return "default"
}
