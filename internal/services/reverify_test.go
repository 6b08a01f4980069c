package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func newTestReverify() (*ReVerificationCoordinator, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewReVerificationCoordinator(store.NewMemoryStore(), 24*time.Hour)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestReVerification_RequestAndComplete(t *testing.T) {
	c, _ := newTestReverify()
	ctx := context.Background()

	req, err := c.Request(ctx, "id-1", "suspicious_behavior")
	require.NoError(t, err)
	assert.Equal(t, "reverify_suspicious_behavior", req.RequiredAction)
	assert.Equal(t, 24*time.Hour, req.ExpiresAt.Sub(req.CreatedAt))

	pending, err := c.GetPending(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "suspicious_behavior", pending.Reason)

	require.NoError(t, c.Complete(ctx, "id-1"))
	pending, err = c.GetPending(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestReVerification_SecondRequestOverwrites(t *testing.T) {
	c, _ := newTestReverify()
	ctx := context.Background()

	_, err := c.Request(ctx, "id-1", "suspicious_behavior")
	require.NoError(t, err)
	_, err = c.Request(ctx, "id-1", "account_restricted")
	require.NoError(t, err)

	pending, err := c.GetPending(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "account_restricted", pending.Reason)
	assert.Equal(t, "reverify_account_restricted", pending.RequiredAction)
}

func TestReVerification_ExpiredRequestDiscarded(t *testing.T) {
	c, now := newTestReverify()
	ctx := context.Background()

	_, err := c.Request(ctx, "id-1", "suspicious_behavior")
	require.NoError(t, err)

	*now = now.Add(24 * time.Hour)
	pending, err := c.GetPending(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, pending, "expiry boundary is inclusive")
}

func TestReVerification_IdentitiesIndependent(t *testing.T) {
	c, _ := newTestReverify()
	ctx := context.Background()

	_, err := c.Request(ctx, "id-1", "suspicious_behavior")
	require.NoError(t, err)

	pending, err := c.GetPending(ctx, "id-2")
	require.NoError(t, err)
	assert.Nil(t, pending)
}
