package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const (
	behaviorKeyPrefix = "behavior:"

	// Event buffers go stale after a quiet day; no need to keep them.
	behaviorBufferTTL = 24 * time.Hour
)

// Score weights. Tunable alongside the CoV thresholds in BehaviorConfig;
// the cap at 100 is structural.
const (
	weightVeryConsistent       = 30
	weightModeratelyConsistent = 15
	weightFastViewing          = 20
	weightSessionBombing       = 25
	weightPerfectTiming        = 20
)

// BehaviorConfig carries the analyzer's thresholds and band boundaries.
type BehaviorConfig struct {
	MaxEvents            int
	MinEventsForAnalysis int

	VeryLowCoV  float64 // both dimensions under this ⇒ perfect-timing bonus
	LowCoV      float64 // under this ⇒ "too consistent"
	ModerateCoV float64 // under this ⇒ "suspiciously consistent"

	MinViewSeconds    float64 // views shorter than this count as fast
	FastViewShare     float64 // share of fast views that triggers the flag
	MaxViewsPerMinute float64

	ChallengeScore int
	ReverifyScore  int
	BlockScore     int
}

// BehaviorAnalyzer keeps a capped rolling window of view events per
// identity and scores how automated the pattern looks. Heuristic defense in
// depth: false positives must be survivable via the challenge path.
type BehaviorAnalyzer struct {
	store store.Store
	locks keyedMutex
	cfg   BehaviorConfig
}

func NewBehaviorAnalyzer(s store.Store, cfg BehaviorConfig) *BehaviorAnalyzer {
	return &BehaviorAnalyzer{store: s, cfg: cfg}
}

// RecordView appends the event to the identity's rolling buffer (FIFO
// eviction at MaxEvents) and returns the recomputed analysis.
func (b *BehaviorAnalyzer) RecordView(ctx context.Context, identity string, ev models.ViewEvent) (models.BehaviorAnalysis, error) {
	mu := b.locks.lock(identity)
	defer mu.Unlock()

	events, err := b.events(ctx, identity)
	if err != nil {
		return models.BehaviorAnalysis{Recommendation: models.RecommendAllow}, err
	}

	events = append(events, ev)
	if len(events) > b.cfg.MaxEvents {
		events = events[len(events)-b.cfg.MaxEvents:]
	}

	if raw, err := json.Marshal(events); err == nil {
		b.store.Set(ctx, behaviorKeyPrefix+identity, string(raw), behaviorBufferTTL)
	}

	return b.Analyze(events), nil
}

// Analysis recomputes the verdict from the stored buffer without mutating it.
func (b *BehaviorAnalyzer) Analysis(ctx context.Context, identity string) (models.BehaviorAnalysis, error) {
	events, err := b.events(ctx, identity)
	if err != nil {
		return models.BehaviorAnalysis{Recommendation: models.RecommendAllow}, err
	}
	return b.Analyze(events), nil
}

func (b *BehaviorAnalyzer) events(ctx context.Context, identity string) ([]models.ViewEvent, error) {
	raw, ok, err := b.store.Get(ctx, behaviorKeyPrefix+identity)
	if err != nil || !ok {
		return nil, err
	}
	var events []models.ViewEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, nil // corrupt buffer: start over
	}
	return events, nil
}

// Analyze scores a window of view events. Too few events means no verdict:
// score 0, allow.
func (b *BehaviorAnalyzer) Analyze(events []models.ViewEvent) models.BehaviorAnalysis {
	if len(events) < b.cfg.MinEventsForAnalysis {
		return models.BehaviorAnalysis{SuspicionScore: 0, Recommendation: models.RecommendAllow}
	}

	score := 0
	var flags []string

	durations := make([]float64, len(events))
	for i, ev := range events {
		durations[i] = float64(ev.DurationMs)
	}
	intervals := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		intervals = append(intervals, events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds())
	}

	durationCoV := coefficientOfVariation(durations)
	intervalCoV := coefficientOfVariation(intervals)

	switch {
	case durationCoV < b.cfg.LowCoV:
		score += weightVeryConsistent
		flags = append(flags, models.FlagConsistentDurations)
	case durationCoV < b.cfg.ModerateCoV:
		score += weightModeratelyConsistent
	}
	switch {
	case intervalCoV < b.cfg.LowCoV:
		score += weightVeryConsistent
		flags = append(flags, models.FlagConsistentIntervals)
	case intervalCoV < b.cfg.ModerateCoV:
		score += weightModeratelyConsistent
	}

	// Short views: a bot fires completions as fast as the server allows.
	fast := 0
	for _, d := range durations {
		if d < b.cfg.MinViewSeconds*1000 {
			fast++
		}
	}
	if float64(fast)/float64(len(durations)) > b.cfg.FastViewShare {
		score += weightFastViewing
		flags = append(flags, models.FlagFastViewing)
	}

	if viewsPerMinute(events) > b.cfg.MaxViewsPerMinute {
		score += weightSessionBombing
		flags = append(flags, models.FlagSessionBombing)
	}

	if durationCoV < b.cfg.VeryLowCoV && intervalCoV < b.cfg.VeryLowCoV {
		score += weightPerfectTiming
		flags = append(flags, models.FlagPerfectTiming, models.FlagLinearProgression)
	}

	if score > 100 {
		score = 100
	}

	return models.BehaviorAnalysis{
		SuspicionScore: score,
		Flags:          flags,
		Recommendation: b.recommend(score),
	}
}

func (b *BehaviorAnalyzer) recommend(score int) models.Recommendation {
	switch {
	case score >= b.cfg.BlockScore:
		return models.RecommendBlock
	case score >= b.cfg.ReverifyScore:
		return models.RecommendReverify
	case score >= b.cfg.ChallengeScore:
		return models.RecommendChallenge
	default:
		return models.RecommendAllow
	}
}

func viewsPerMinute(events []models.ViewEvent) float64 {
	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	if span < time.Second {
		// Whole window inside a second: as bursty as it gets.
		return float64(len(events)) * 60
	}
	return float64(len(events)) / span.Minutes()
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return math.MaxFloat64 // too few samples to call anything consistent
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sqSum float64
	for _, v := range values {
		sqSum += (v - mean) * (v - mean)
	}
	stdev := math.Sqrt(sqSum / float64(len(values)))
	if mean == 0 {
		// All-zero samples (e.g. events sharing one timestamp) are as
		// regular as it gets; only a zero mean with spread is unmeasurable.
		if stdev == 0 {
			return 0
		}
		return math.MaxFloat64
	}
	return stdev / mean
}
