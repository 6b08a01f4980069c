package models

import "time"

// ChallengeType discriminates the tagged union below. Each type carries its
// own typed parameters instead of encoding them into the prompt string.
type ChallengeType string

const (
	ChallengeTapCount       ChallengeType = "tap_count"
	ChallengeArithmetic     ChallengeType = "arithmetic"
	ChallengeSwipeDirection ChallengeType = "swipe_direction"
	ChallengeColorSequence  ChallengeType = "color_sequence"
)

// SwipeDirection enumerates the valid answers for swipe challenges.
type SwipeDirection string

const (
	SwipeUp    SwipeDirection = "up"
	SwipeDown  SwipeDirection = "down"
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// Challenge is one interactive human-verification puzzle. At most one is
// active per identity at a time.
type Challenge struct {
	ID     string        `json:"id"`
	Type   ChallengeType `json:"type"`
	Prompt string        `json:"prompt"`

	// tap_count
	TapTarget int `json:"tap_target,omitempty"`

	// arithmetic
	Operand1 int    `json:"operand1,omitempty"`
	Operand2 int    `json:"operand2,omitempty"`
	Operator string `json:"operator,omitempty"`

	// swipe_direction
	Direction SwipeDirection `json:"direction,omitempty"`

	// color_sequence
	ColorSequence []string `json:"color_sequence,omitempty"`
	Options       []string `json:"options,omitempty"`

	ExpectedAnswer string    `json:"expected_answer"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Client returns the challenge as sent to the device: everything except the
// expected answer (and, for swipe, the direction the prompt already names).
func (c Challenge) Client() map[string]interface{} {
	out := map[string]interface{}{
		"id":         c.ID,
		"type":       c.Type,
		"prompt":     c.Prompt,
		"expires_at": c.ExpiresAt,
	}
	switch c.Type {
	case ChallengeTapCount:
		out["tap_target"] = c.TapTarget
	case ChallengeArithmetic:
		out["operand1"] = c.Operand1
		out["operand2"] = c.Operand2
		out["operator"] = c.Operator
	case ChallengeColorSequence:
		out["color_sequence"] = c.ColorSequence
		out["options"] = c.Options
	}
	return out
}

// ChallengeState tracks an identity's standing with the challenge engine.
type ChallengeState struct {
	ConsecutiveViews  int       `json:"consecutive_views"`
	FailedAttempts    int       `json:"failed_attempts"`
	LockedUntil       time.Time `json:"locked_until"`
	ActiveChallengeID string    `json:"active_challenge_id"`
}
