package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func TestAdminSessions_Lifecycle(t *testing.T) {
	a := NewAdminSessions(store.NewMemoryStore())
	ctx := context.Background()

	tok, err := a.Create(ctx, "operator")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	username, ok, err := a.Validate(ctx, tok)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "operator", username)

	removed, err := a.Invalidate(ctx, tok)
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err = a.Validate(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok, "signed-out token no longer validates")

	removed, err = a.Invalidate(ctx, tok)
	require.NoError(t, err)
	assert.False(t, removed, "second signout finds nothing")
}

func TestAdminSessions_EmptyTokenRejected(t *testing.T) {
	a := NewAdminSessions(store.NewMemoryStore())

	_, ok, err := a.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}
