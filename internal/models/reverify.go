package models

import "time"

// ReVerificationRequest asks an identity for a fresh proof-of-personhood.
// RequiredAction is a reason-specific oracle action namespace, so the new
// pseudonym is unlinkable to the flagged one outside this engine's records.
// At most one request is pending per identity; re-requesting overwrites.
type ReVerificationRequest struct {
	Identity       string    `json:"identity"`
	RequiredAction string    `json:"required_action"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}
