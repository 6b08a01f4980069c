package services

import (
	"context"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const blockedKeyPrefix = "blocked:"

// Decision is the engine's verdict for an identity's next reward-earning
// operation. Bands are monotonic: allow < challenge < reverify < block.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionChallenge Decision = "challenge"
	DecisionReverify  Decision = "reverify"
	DecisionBlock     Decision = "block"
)

// Guard is the single escalation state machine. Every call site that used
// to re-derive thresholds goes through Evaluate/ApplyAnalysis instead.
//
// Per identity:
//
//	NORMAL -(suspicion ≥ challenge)-> CHALLENGED -(pass)-> NORMAL
//	                                             -(fail ×N)-> LOCKED -(timeout)-> NORMAL
//	NORMAL -(suspicion ≥ reverify)-> REVERIFY_PENDING -(oracle ok)-> NORMAL
//	any    -(suspicion ≥ block)->    BLOCKED (soft; exits only via re-verification)
type Guard struct {
	store      store.Store
	behavior   *BehaviorAnalyzer
	challenges *ChallengeEngine
	reverify   *ReVerificationCoordinator
}

func NewGuard(s store.Store, behavior *BehaviorAnalyzer, challenges *ChallengeEngine, reverify *ReVerificationCoordinator) *Guard {
	return &Guard{store: s, behavior: behavior, challenges: challenges, reverify: reverify}
}

// IsBlocked reports whether the identity is soft-blocked.
func (g *Guard) IsBlocked(ctx context.Context, identity string) (bool, error) {
	_, ok, err := g.store.Get(ctx, blockedKeyPrefix+identity)
	return ok, err
}

// Evaluate derives the identity's current decision without mutating any
// state. Precedence: block, pending re-verification, challenge
// (locked, active, or due), then the live behavior verdict.
func (g *Guard) Evaluate(ctx context.Context, identity string) (Decision, error) {
	if blocked, err := g.IsBlocked(ctx, identity); err != nil {
		return DecisionAllow, err
	} else if blocked {
		return DecisionBlock, nil
	}

	if pending, err := g.reverify.GetPending(ctx, identity); err != nil {
		return DecisionAllow, err
	} else if pending != nil {
		return DecisionReverify, nil
	}

	if locked, _, err := g.challenges.IsLocked(ctx, identity); err != nil {
		return DecisionAllow, err
	} else if locked {
		return DecisionChallenge, nil
	}

	analysis, err := g.behavior.Analysis(ctx, identity)
	if err != nil {
		return DecisionAllow, err
	}
	if due, err := g.challenges.ShouldIssue(ctx, identity, analysis.Recommendation); err == nil && due {
		return DecisionChallenge, nil
	}

	switch analysis.Recommendation {
	case models.RecommendBlock:
		return DecisionBlock, nil
	case models.RecommendReverify:
		return DecisionReverify, nil
	case models.RecommendChallenge:
		return DecisionChallenge, nil
	default:
		return DecisionAllow, nil
	}
}

// ApplyAnalysis runs escalation after a view was ingested: issues a
// challenge, requests re-verification, or sets the soft block, and writes
// the audit record for whatever it did. Returns the resulting decision.
func (g *Guard) ApplyAnalysis(ctx context.Context, identity string, analysis models.BehaviorAnalysis) (Decision, error) {
	switch analysis.Recommendation {
	case models.RecommendBlock:
		// Soft block: reward endpoints return ACCOUNT_RESTRICTED until a
		// fresh proof-of-personhood clears it.
		if err := g.store.Set(ctx, blockedKeyPrefix+identity, "1", 0); err != nil {
			return DecisionAllow, err
		}
		if _, err := g.reverify.Request(ctx, identity, "account_restricted"); err != nil {
			return DecisionBlock, err
		}
		RecordViolation(identity, models.ViolationAccountRestricted, analysis.SuspicionScore, analysis.Flags, string(DecisionBlock))
		return DecisionBlock, nil

	case models.RecommendReverify:
		if _, err := g.reverify.Request(ctx, identity, "suspicious_behavior"); err != nil {
			return DecisionAllow, err
		}
		RecordViolation(identity, models.ViolationReverifyRequested, analysis.SuspicionScore, analysis.Flags, string(DecisionReverify))
		return DecisionReverify, nil
	}

	due, err := g.challenges.ShouldIssue(ctx, identity, analysis.Recommendation)
	if err != nil {
		return DecisionAllow, err
	}
	if !due {
		return DecisionAllow, nil
	}

	_, lockRes, err := g.challenges.Issue(ctx, identity, analysis.SuspicionScore)
	if err != nil {
		return DecisionAllow, err
	}
	if lockRes != nil && lockRes.Locked {
		RecordViolation(identity, models.ViolationChallengeLockout, analysis.SuspicionScore, analysis.Flags, string(DecisionChallenge))
	} else {
		RecordViolation(identity, models.ViolationChallengeIssued, analysis.SuspicionScore, analysis.Flags, string(DecisionChallenge))
	}
	return DecisionChallenge, nil
}

// ClearRestriction lifts the soft block and the pending re-verification
// after the oracle confirmed a fresh proof (or an admin intervened).
func (g *Guard) ClearRestriction(ctx context.Context, identity string) error {
	if err := g.store.Delete(ctx, blockedKeyPrefix+identity); err != nil {
		return err
	}
	return g.reverify.Complete(ctx, identity)
}

// LockRemaining exposes the challenge lockout for status responses.
func (g *Guard) LockRemaining(ctx context.Context, identity string) (time.Duration, error) {
	locked, remaining, err := g.challenges.IsLocked(ctx, identity)
	if err != nil || !locked {
		return 0, err
	}
	return remaining, nil
}
