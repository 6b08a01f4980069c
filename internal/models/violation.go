package models

import "time"

type ViolationType string

const (
	ViolationChallengeIssued   ViolationType = "challenge_issued"
	ViolationChallengeLockout  ViolationType = "challenge_lockout"
	ViolationReverifyRequested ViolationType = "reverify_requested"
	ViolationAccountRestricted ViolationType = "account_restricted"
)

// IntegrityViolation is one audit-trail record of an escalation decision.
// Best effort only: losing these never changes an integrity decision.
type IntegrityViolation struct {
	ID        string        `bson:"_id" json:"id"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	Identity  string        `bson:"identity" json:"identity"`
	Type      ViolationType `bson:"type" json:"type"`

	SuspicionScore int      `bson:"suspicion_score" json:"suspicion_score"`
	Flags          []string `bson:"flags,omitempty" json:"flags,omitempty"`

	// ActionTaken mirrors the decision band: "challenge", "reverify", "block".
	ActionTaken string `bson:"action_taken" json:"action_taken"`
}
