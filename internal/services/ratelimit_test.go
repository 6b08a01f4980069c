package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func newTestRateLimiter() (*RateLimiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(store.NewMemoryStore())
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_ExactlyMaxRequestsSucceed(t *testing.T) {
	rl, _ := newTestRateLimiter()
	ctx := context.Background()
	class := LimitClass{Name: "signature", MaxRequests: 5, Window: time.Minute}

	for i := 1; i <= 5; i++ {
		res, err := rl.Check(ctx, "id-1", class)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 5-i, res.Remaining)
	}

	res, err := rl.Check(ctx, "id-1", class)
	require.NoError(t, err)
	assert.False(t, res.Allowed, "request 6 must be rejected")
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0), "rejection carries a retry-after hint")
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl, now := newTestRateLimiter()
	ctx := context.Background()
	class := LimitClass{Name: "signature", MaxRequests: 2, Window: time.Minute}

	for i := 0; i < 2; i++ {
		res, _ := rl.Check(ctx, "id-1", class)
		require.True(t, res.Allowed)
	}
	res, _ := rl.Check(ctx, "id-1", class)
	require.False(t, res.Allowed)

	// Next fixed window: counter starts over.
	*now = now.Truncate(time.Minute).Add(time.Minute)
	res, err := rl.Check(ctx, "id-1", class)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestRateLimiter()
	ctx := context.Background()
	class := LimitClass{Name: "signature", MaxRequests: 1, Window: time.Minute}

	res, _ := rl.Check(ctx, "id-1", class)
	require.True(t, res.Allowed)
	res, _ = rl.Check(ctx, "id-1", class)
	require.False(t, res.Allowed)

	res, _ = rl.Check(ctx, "id-2", class)
	assert.True(t, res.Allowed, "another identity has its own bucket")
}

func TestRateLimiter_CheckWithIPEvaluatesIPFirst(t *testing.T) {
	rl, _ := newTestRateLimiter()
	ctx := context.Background()
	ipClass := LimitClass{Name: "start_ip", MaxRequests: 1, Window: time.Minute}
	idClass := LimitClass{Name: "start_id", MaxRequests: 10, Window: time.Minute}

	res, err := rl.CheckWithIP(ctx, "10.0.0.1", "id-1", ipClass, idClass)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = rl.CheckWithIP(ctx, "10.0.0.1", "id-2", ipClass, idClass)
	require.NoError(t, err)
	assert.False(t, res.Allowed, "IP bucket rejects before the identity bucket is touched")

	// Identity bucket only saw one hit.
	idRes, _ := rl.Check(ctx, "id-1", idClass)
	assert.Equal(t, 8, idRes.Remaining)
}
