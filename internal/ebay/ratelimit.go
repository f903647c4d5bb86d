package ebay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyLimitReached is returned when the call quota for the current
// window has been exhausted.
var ErrDailyLimitReached = errors.New("daily API limit reached")

const defaultQuotaWindow = 24 * time.Hour

// RateLimiter throttles marketplace calls with a token bucket and caps the
// number of calls per rolling quota window (24h unless overridden).
type RateLimiter struct {
	limiter  *rate.Limiter
	maxCalls int64
	window   time.Duration
	nowFunc  func() time.Time

	mu      sync.Mutex
	calls   int64
	resetAt time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// WithQuotaWindow overrides the 24h quota window.
func WithQuotaWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		r.window = d
	}
}

// NewRateLimiter creates a rate limiter with the given per-second rate,
// burst size and per-window call limit. A maxCalls of zero disables the quota.
func NewRateLimiter(
	perSecond float64,
	burst int,
	maxCalls int64,
	opts ...RateLimiterOption,
) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxCalls: maxCalls,
		window:   defaultQuotaWindow,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(r.window)
	return r
}

// Wait reserves one call, blocking until the token bucket allows it or ctx
// is canceled. Returns ErrDailyLimitReached when the quota is exhausted.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.reserve(); err != nil {
		return err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.release()
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

func (r *RateLimiter) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now := r.nowFunc(); now.After(r.resetAt) {
		r.calls = 0
		r.resetAt = now.Add(r.window)
	}

	if r.maxCalls > 0 && r.calls >= r.maxCalls {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.calls, r.maxCalls)
	}
	r.calls++
	return nil
}

func (r *RateLimiter) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls > 0 {
		r.calls--
	}
}

// DailyCount returns the number of calls made in the current window.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Remaining returns the calls left in the current window, or -1 when the
// quota is disabled.
func (r *RateLimiter) Remaining() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxCalls <= 0 {
		return -1
	}
	return max(r.maxCalls-r.calls, 0)
}

// ResetAt returns when the current quota window expires.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

// MaxDaily returns the configured per-window call limit (0 when disabled).
func (r *RateLimiter) MaxDaily() int64 {
	return r.maxCalls
}
