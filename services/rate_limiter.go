package services

import (
	"context"
	"fmt"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"strconv"
	"time"
)

const rateLimitPrefix = "ratelimit:"

var _ contract.IRateLimiter = (*RateLimiter)(nil)

// RateLimiter allows one accepted submission per origin and window.
// The marker stores the acceptance time and expires with the window,
// so nothing has to be cleaned up.
type RateLimiter struct {
	cache  contract.ITTLCache
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(cache contract.ITTLCache, window time.Duration) *RateLimiter {
	return &RateLimiter{cache: cache, window: window, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Check only reads the marker, Mark is called once the submission is durably accepted.
func (r *RateLimiter) Check(ctx context.Context, originID string) (domain.RateDecision, error) {
	bytes, err := r.cache.Get(ctx, rateLimitPrefix+originID)
	switch {
	case errors.Is(err, errors.ErrCacheMiss):
		return domain.RateDecision{Allowed: true}, nil
	case err != nil:
		return domain.RateDecision{}, fmt.Errorf("rate limit check: %w", err)
	}

	millis, err := strconv.ParseInt(string(bytes), 10, 64)
	if err != nil {
		return domain.RateDecision{Allowed: true}, nil
	}
	elapsed := r.now().Sub(time.UnixMilli(millis))
	if elapsed >= r.window {
		return domain.RateDecision{Allowed: true}, nil
	}
	return domain.RateDecision{Allowed: false, RetryAfter: min(r.window-elapsed, r.window)}, nil
}

func (r *RateLimiter) Mark(ctx context.Context, originID string) error {
	value := strconv.FormatInt(r.now().UnixMilli(), 10)
	if err := r.cache.Set(ctx, rateLimitPrefix+originID, []byte(value), r.window); err != nil {
		return fmt.Errorf("rate limit mark: %w", err)
	}
	return nil
}
