package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func newTestGuard() (*Guard, *ChallengeEngine, *ReVerificationCoordinator) {
	s := store.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	behavior := NewBehaviorAnalyzer(s, testBehaviorConfig())
	challenges := NewChallengeEngine(s, ChallengeConfig{
		ViewsPerChallenge: 5,
		Timeout:           2 * time.Minute,
		MaxFailedAttempts: 3,
		LockoutDuration:   5 * time.Minute,
	})
	challenges.now = func() time.Time { return now }
	reverify := NewReVerificationCoordinator(s, 24*time.Hour)
	reverify.now = func() time.Time { return now }

	return NewGuard(s, behavior, challenges, reverify), challenges, reverify
}

func TestGuard_CleanIdentityAllowed(t *testing.T) {
	g, _, _ := newTestGuard()
	ctx := context.Background()

	d, err := g.Evaluate(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d)

	blocked, err := g.IsBlocked(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestGuard_BlockSetsRestrictionAndReverify(t *testing.T) {
	g, _, reverify := newTestGuard()
	ctx := context.Background()

	d, err := g.ApplyAnalysis(ctx, "id-1", models.BehaviorAnalysis{
		SuspicionScore: 95,
		Flags:          []string{models.FlagPerfectTiming},
		Recommendation: models.RecommendBlock,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d)

	blocked, err := g.IsBlocked(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The block comes with its exit path already pending.
	pending, err := reverify.GetPending(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "account_restricted", pending.Reason)

	d, err = g.Evaluate(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d)
}

func TestGuard_ClearRestrictionRestoresAllow(t *testing.T) {
	g, _, reverify := newTestGuard()
	ctx := context.Background()

	_, err := g.ApplyAnalysis(ctx, "id-1", models.BehaviorAnalysis{
		SuspicionScore: 95,
		Recommendation: models.RecommendBlock,
	})
	require.NoError(t, err)

	require.NoError(t, g.ClearRestriction(ctx, "id-1"))

	blocked, err := g.IsBlocked(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, blocked)

	pending, err := reverify.GetPending(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	d, err := g.Evaluate(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d)
}

func TestGuard_ReverifyEscalation(t *testing.T) {
	g, _, reverify := newTestGuard()
	ctx := context.Background()

	d, err := g.ApplyAnalysis(ctx, "id-1", models.BehaviorAnalysis{
		SuspicionScore: 75,
		Recommendation: models.RecommendReverify,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionReverify, d)

	// Not blocked, but evaluation denies until re-verification completes.
	blocked, err := g.IsBlocked(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, blocked)

	d, err = g.Evaluate(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionReverify, d)

	pending, err := reverify.GetPending(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "suspicious_behavior", pending.Reason)
}

func TestGuard_ChallengeEscalationIssues(t *testing.T) {
	g, challenges, _ := newTestGuard()
	ctx := context.Background()

	d, err := g.ApplyAnalysis(ctx, "id-1", models.BehaviorAnalysis{
		SuspicionScore: 55,
		Recommendation: models.RecommendChallenge,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionChallenge, d)

	st, err := challenges.Status(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, st.NeedsChallenge)
	require.NotNil(t, st.Challenge)
}

func TestGuard_ConsecutiveViewsForceChallenge(t *testing.T) {
	g, challenges, _ := newTestGuard()
	ctx := context.Background()

	clean := models.BehaviorAnalysis{SuspicionScore: 0, Recommendation: models.RecommendAllow}

	for i := 0; i < 4; i++ {
		_, err := challenges.RecordView(ctx, "id-1")
		require.NoError(t, err)
		d, err := g.ApplyAnalysis(ctx, "id-1", clean)
		require.NoError(t, err)
		assert.Equal(t, DecisionAllow, d)
	}

	_, err := challenges.RecordView(ctx, "id-1")
	require.NoError(t, err)
	d, err := g.ApplyAnalysis(ctx, "id-1", clean)
	require.NoError(t, err)
	assert.Equal(t, DecisionChallenge, d, "fifth consecutive view issues a challenge regardless of score")

	st, err := challenges.Status(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, st.NeedsChallenge)
}

func TestGuard_LockedIdentityEvaluatesToChallenge(t *testing.T) {
	g, challenges, _ := newTestGuard()
	ctx := context.Background()

	ch, _, err := challenges.Issue(ctx, "bot-1", 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := challenges.Verify(ctx, "bot-1", ch.ID, "not it", false)
		require.NoError(t, err)
		require.False(t, res.Success)
	}

	d, err := g.Evaluate(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionChallenge, d, "lockout denies rewards on every path")
}

func TestGuard_BlockOutranksReverify(t *testing.T) {
	g, _, reverify := newTestGuard()
	ctx := context.Background()

	_, err := reverify.Request(ctx, "id-1", "suspicious_behavior")
	require.NoError(t, err)
	_, err = g.ApplyAnalysis(ctx, "id-1", models.BehaviorAnalysis{
		SuspicionScore: 95,
		Recommendation: models.RecommendBlock,
	})
	require.NoError(t, err)

	d, err := g.Evaluate(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d)
}
