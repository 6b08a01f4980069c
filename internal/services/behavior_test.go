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

func testBehaviorConfig() BehaviorConfig {
	return BehaviorConfig{
		MaxEvents:            100,
		MinEventsForAnalysis: 3,
		VeryLowCoV:           0.05,
		LowCoV:               0.1,
		ModerateCoV:          0.5,
		MinViewSeconds:       3,
		FastViewShare:        0.3,
		MaxViewsPerMinute:    4,
		ChallengeScore:       50,
		ReverifyScore:        70,
		BlockScore:           90,
	}
}

// makeEvents builds a window where event i+1 follows event i by gaps[i].
func makeEvents(durationsMs []int64, gaps []time.Duration) []models.ViewEvent {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := make([]models.ViewEvent, len(durationsMs))
	for i, d := range durationsMs {
		events[i] = models.ViewEvent{Timestamp: at, DurationMs: d, ContentID: "ad-1"}
		if i < len(gaps) {
			at = at.Add(gaps[i])
		}
	}
	return events
}

func TestBehaviorAnalyzer_TooFewEvents(t *testing.T) {
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), testBehaviorConfig())

	a := b.Analyze(makeEvents([]int64{5000, 5000}, []time.Duration{10 * time.Second}))
	assert.Zero(t, a.SuspicionScore)
	assert.Equal(t, models.RecommendAllow, a.Recommendation)
	assert.Empty(t, a.Flags)
}

func TestBehaviorAnalyzer_BotPattern(t *testing.T) {
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), testBehaviorConfig())

	// Ten identical views fired every ten seconds: zero variance in both
	// dimensions and well above the views-per-minute ceiling.
	durations := make([]int64, 10)
	gaps := make([]time.Duration, 9)
	for i := range durations {
		durations[i] = 5000
	}
	for i := range gaps {
		gaps[i] = 10 * time.Second
	}

	a := b.Analyze(makeEvents(durations, gaps))
	assert.Equal(t, 100, a.SuspicionScore, "score is capped at 100")
	assert.Equal(t, models.RecommendBlock, a.Recommendation)
	assert.Contains(t, a.Flags, models.FlagConsistentDurations)
	assert.Contains(t, a.Flags, models.FlagConsistentIntervals)
	assert.Contains(t, a.Flags, models.FlagSessionBombing)
	assert.Contains(t, a.Flags, models.FlagPerfectTiming)
}

func TestBehaviorAnalyzer_SimultaneousEvents(t *testing.T) {
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), testBehaviorConfig())

	// Five identical views sharing one timestamp: zero-gap spacing is the
	// most machine-regular pattern there is, not an unmeasurable one.
	a := b.Analyze(makeEvents(
		[]int64{5000, 5000, 5000, 5000, 5000},
		[]time.Duration{0, 0, 0, 0},
	))
	assert.Equal(t, 100, a.SuspicionScore)
	assert.Equal(t, models.RecommendBlock, a.Recommendation)
	assert.Contains(t, a.Flags, models.FlagConsistentIntervals)
	assert.Contains(t, a.Flags, models.FlagPerfectTiming)
}

func TestBehaviorAnalyzer_HumanJitterAllowed(t *testing.T) {
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), testBehaviorConfig())

	// Natural-looking jitter in both durations and spacing.
	a := b.Analyze(makeEvents(
		[]int64{4200, 5800, 4900, 5300, 4600},
		[]time.Duration{16 * time.Second, 22 * time.Second, 19 * time.Second, 25 * time.Second},
	))
	assert.Less(t, a.SuspicionScore, 50)
	assert.Equal(t, models.RecommendAllow, a.Recommendation)
}

func TestBehaviorAnalyzer_FastViewingFlag(t *testing.T) {
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), testBehaviorConfig())

	// Two of five views under the three-second floor.
	a := b.Analyze(makeEvents(
		[]int64{1000, 2000, 6000, 7000, 8000},
		[]time.Duration{30 * time.Second, 50 * time.Second, 40 * time.Second, 70 * time.Second},
	))
	assert.Contains(t, a.Flags, models.FlagFastViewing)
}

func TestBehaviorAnalyzer_RecordViewRollingBuffer(t *testing.T) {
	cfg := testBehaviorConfig()
	cfg.MaxEvents = 5
	b := NewBehaviorAnalyzer(store.NewMemoryStore(), cfg)
	ctx := context.Background()

	// Seed with bot-like events, then confirm the stored buffer reproduces
	// the same verdict on re-analysis.
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var last models.BehaviorAnalysis
	for i := 0; i < 8; i++ {
		var err error
		last, err = b.RecordView(ctx, "bot-1", models.ViewEvent{
			Timestamp:  at.Add(time.Duration(i) * 10 * time.Second),
			DurationMs: 5000,
			ContentID:  "ad-1",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, models.RecommendBlock, last.Recommendation)

	stored, err := b.Analysis(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, last, stored)

	// An unseen identity starts clean.
	clean, err := b.Analysis(ctx, "someone-else")
	require.NoError(t, err)
	assert.Zero(t, clean.SuspicionScore)
	assert.Equal(t, models.RecommendAllow, clean.Recommendation)
}
