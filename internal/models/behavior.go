package models

import "time"

// ViewEvent is one completed content view as seen by the behavior analyzer.
type ViewEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	ContentID  string    `json:"content_id"`
}

// Recommendation is the analyzer's verdict band for an identity.
type Recommendation string

const (
	RecommendAllow     Recommendation = "allow"
	RecommendChallenge Recommendation = "challenge"
	RecommendReverify  Recommendation = "reverify"
	RecommendBlock     Recommendation = "block"
)

// BehaviorAnalysis is derived-only output; it is never stored, only
// recomputed from the rolling event buffer.
type BehaviorAnalysis struct {
	SuspicionScore int            `json:"suspicion_score"` // 0-100
	Flags          []string       `json:"flags"`
	Recommendation Recommendation `json:"recommendation"`
}

// Behavior flags attached to an analysis.
const (
	FlagConsistentDurations = "consistent_durations"
	FlagConsistentIntervals = "consistent_intervals"
	FlagFastViewing         = "fast_viewing"
	FlagSessionBombing      = "session_bombing"
	FlagPerfectTiming       = "perfect_timing"
	FlagLinearProgression   = "linear_progression"
)
