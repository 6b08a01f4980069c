package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const rateLimitKeyPrefix = "ratelimit:"

// LimitClass is one configured fixed-window policy (e.g. session starts per
// identity, session starts per IP).
type LimitClass struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// RateLimitResult reports a single check. RetryAfter is the hint carried to
// the caller when the request was rejected.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter counts requests in fixed windows per (limit-class, key).
// The window start is baked into the bucket key, so expired windows reset
// lazily: a new window simply increments a fresh key.
type RateLimiter struct {
	store store.Store
	now   func() time.Time
}

func NewRateLimiter(s store.Store) *RateLimiter {
	return &RateLimiter{store: s, now: time.Now}
}

// Check atomically counts the request against its window and rejects once
// the class maximum is reached. Exactly MaxRequests calls succeed per
// window.
func (rl *RateLimiter) Check(ctx context.Context, key string, class LimitClass) (RateLimitResult, error) {
	now := rl.now()
	windowStart := now.Truncate(class.Window)
	resetAt := windowStart.Add(class.Window)

	bucketKey := fmt.Sprintf("%s%s:%s:%d", rateLimitKeyPrefix, class.Name, key, windowStart.Unix())
	count, err := rl.store.Incr(ctx, bucketKey, class.Window)
	if err != nil {
		// Fail open: a broken counter backend must not take rewards down.
		return RateLimitResult{Allowed: true, Remaining: class.MaxRequests, ResetAt: resetAt}, err
	}

	remaining := class.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if int(count) > class.MaxRequests {
		return RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	return RateLimitResult{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

// CheckWithIP evaluates the IP bucket first as a cheap DoS backstop, then
// the identity bucket.
func (rl *RateLimiter) CheckWithIP(ctx context.Context, ip, identity string, ipClass, identityClass LimitClass) (RateLimitResult, error) {
	res, err := rl.Check(ctx, ip, ipClass)
	if err != nil || !res.Allowed {
		return res, err
	}
	return rl.Check(ctx, identity, identityClass)
}
