package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func newTestQuota() (*DailyQuotaTracker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	q := NewDailyQuotaTracker(store.NewMemoryStore(), time.UTC, 500, 50, 20)
	q.now = func() time.Time { return now }
	return q, &now
}

func TestQuota_CheckDoesNotCommit(t *testing.T) {
	q, _ := newTestQuota()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := q.CheckDailyLimit(ctx, "id-1", 100, ActionAdView)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.CurrentXP, "check must never commit")
	}
}

func TestQuota_XPCeiling(t *testing.T) {
	q, _ := newTestQuota()
	ctx := context.Background()

	require.NoError(t, q.RecordEarned(ctx, "id-1", 480, ActionAdView))

	res, err := q.CheckDailyLimit(ctx, "id-1", 30, ActionAdView)
	require.NoError(t, err)
	assert.False(t, res.Allowed, "480 earned + 30 proposed exceeds 500")
	assert.Equal(t, ErrDailyXPLimit, res.Reason)
	assert.Equal(t, 480, res.CurrentXP)
	assert.Equal(t, 20, res.RemainingXP)

	res, err = q.CheckDailyLimit(ctx, "id-1", 20, ActionAdView)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "exactly reaching the ceiling is allowed")
}

func TestQuota_RecordEarnedNeverExceedsCeiling(t *testing.T) {
	q, _ := newTestQuota()
	ctx := context.Background()

	require.NoError(t, q.RecordEarned(ctx, "id-1", 490, ActionAdView))
	require.NoError(t, q.RecordEarned(ctx, "id-1", 100, ActionAdView))

	res, _ := q.CheckDailyLimit(ctx, "id-1", 0, ActionAdView)
	assert.Equal(t, 500, res.CurrentXP, "stored XP is clamped at MAX_XP_PER_DAY")
}

func TestQuota_ActionCeilings(t *testing.T) {
	q, _ := newTestQuota()
	ctx := context.Background()

	t.Run("ad views", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			require.NoError(t, q.RecordEarned(ctx, "id-ads", 0, ActionAdView))
		}
		res, _ := q.CheckDailyLimit(ctx, "id-ads", 10, ActionAdView)
		assert.False(t, res.Allowed)
		assert.Equal(t, ErrDailyAdViewLimit, res.Reason)
	})

	t.Run("quiz answers", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			require.NoError(t, q.RecordEarned(ctx, "id-quiz", 0, ActionQuizAnswer))
		}
		res, _ := q.CheckDailyLimit(ctx, "id-quiz", 10, ActionQuizAnswer)
		assert.False(t, res.Allowed)
		assert.Equal(t, ErrDailyQuizLimit, res.Reason)
	})
}

func TestQuota_DayRollover(t *testing.T) {
	q, now := newTestQuota()
	ctx := context.Background()

	require.NoError(t, q.RecordEarned(ctx, "id-1", 500, ActionAdView))
	res, _ := q.CheckDailyLimit(ctx, "id-1", 1, ActionAdView)
	require.False(t, res.Allowed)

	// Cross the day boundary: counters reset wholesale, nothing carries over.
	*now = now.Add(24 * time.Hour)
	res, err := q.CheckDailyLimit(ctx, "id-1", 1, ActionAdView)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.CurrentXP)
	assert.Equal(t, 0, res.AdViews)
}

func TestQuota_QuizAnsweredOncePerDay(t *testing.T) {
	q, now := newTestQuota()
	ctx := context.Background()

	fresh, err := q.MarkQuizAnswered(ctx, "id-1", "quiz-42")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = q.MarkQuizAnswered(ctx, "id-1", "quiz-42")
	require.NoError(t, err)
	assert.False(t, fresh, "same question same day is rejected")

	fresh, err = q.MarkQuizAnswered(ctx, "id-1", "quiz-43")
	require.NoError(t, err)
	assert.True(t, fresh, "a different question is fine")

	*now = now.Add(24 * time.Hour)
	fresh, err = q.MarkQuizAnswered(ctx, "id-1", "quiz-42")
	require.NoError(t, err)
	assert.True(t, fresh, "next day the question is answerable again")
}

func TestQuota_UnmarkQuizAnswered(t *testing.T) {
	q, _ := newTestQuota()
	ctx := context.Background()

	fresh, err := q.MarkQuizAnswered(ctx, "id-1", "quiz-42")
	require.NoError(t, err)
	require.True(t, fresh)

	// The credit failed downstream: reverting the mark lets the same-day
	// retry go through instead of reporting already answered.
	require.NoError(t, q.UnmarkQuizAnswered(ctx, "id-1", "quiz-42"))

	fresh, err = q.MarkQuizAnswered(ctx, "id-1", "quiz-42")
	require.NoError(t, err)
	assert.True(t, fresh, "unmarked question is answerable again")
}
