package models

import "time"

// ViewSession is a single-use record binding an identity to a claimed
// content view. Created on start, marked completed exactly once, and swept
// after the session TTL regardless of completion state.
type ViewSession struct {
	Token                   string    `json:"token"`
	Identity                string    `json:"identity"`
	ContentID               string    `json:"content_id"`
	ExpectedDurationSeconds int       `json:"expected_duration_seconds"`
	StartedAt               time.Time `json:"started_at"`
	Completed               bool      `json:"completed"`
}

// CooldownEntry blocks rapid re-reward of the same content by the same
// identity. Stored with a TTL equal to the cooldown, so existence means the
// cooldown is still active.
type CooldownEntry struct {
	Identity        string    `json:"identity"`
	ContentID       string    `json:"content_id"`
	LastCompletedAt time.Time `json:"last_completed_at"`
}
