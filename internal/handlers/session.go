package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/database"
	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/services"
	"github.com/Hiksang/rewardguard-backend/pkg/clientip"
)

type startSessionRequest struct {
	Identity                string `json:"identity"`
	ContentID               string `json:"content_id"`
	ExpectedDurationSeconds int    `json:"expected_duration_seconds"`
}

type completeSessionRequest struct {
	Identity  string `json:"identity"`
	ContentID string `json:"content_id"`
	Token     string `json:"token"`
	ClaimedXP int    `json:"claimed_xp"`
}

// StartSession issues a single-use view token after the rate limiter and
// blocked/re-verification gates pass.
func StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.ContentID == "" || req.ExpectedDurationSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "identity, content_id and expected_duration_seconds are required")
		return
	}

	ctx := r.Context()

	// IP bucket first: cheap DoS backstop before any identity lookups.
	res, err := deps.Limiter.CheckWithIP(ctx, clientip.FromRequest(r), req.Identity, startIPClass(), startIdentityClass())
	if err == nil && !res.Allowed {
		writeRateLimited(w, res)
		return
	}

	// A due challenge does not stop the view itself; completion withholds.
	if _, ok := gate(w, r, req.Identity); !ok {
		return
	}

	token, err := deps.Sessions.Start(ctx, req.Identity, req.ContentID, req.ExpectedDurationSeconds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// CompleteSession runs the full reward pipeline: rate limit → escalation
// gates → session ledger → behavior ingest → escalation → daily quota →
// external ledger credit → quota commit. Any denial past the ledger
// validation withholds the reward (xp 0) without failing the view itself.
func CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.ContentID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "identity, content_id and token are required")
		return
	}
	if req.ClaimedXP < 0 {
		writeError(w, http.StatusBadRequest, "claimed_xp must not be negative")
		return
	}

	ctx := r.Context()

	res, err := deps.Limiter.Check(ctx, req.Identity, completeClass())
	if err == nil && !res.Allowed {
		writeRateLimited(w, res)
		return
	}

	gateDecision, ok := gate(w, r, req.Identity)
	if !ok {
		return
	}

	outcome, err := deps.Sessions.Complete(ctx, req.Identity, req.ContentID, req.Token, req.ClaimedXP)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to validate session")
		return
	}
	if !outcome.Success {
		body := map[string]interface{}{
			"success":    false,
			"xp_awarded": 0,
			"error_kind": outcome.ErrorKind,
		}
		if outcome.ErrorKind == services.ErrWatchTimeTooShort {
			body["watched_seconds"] = outcome.WatchedSeconds
			body["required_seconds"] = outcome.RequiredSeconds
		}
		writeJSON(w, http.StatusOK, body)
		return
	}

	// View is genuine; feed the analyzer and the challenge counter, then
	// let the state machine decide whether the reward is withheld.
	analysis, _ := deps.Behavior.RecordView(ctx, req.Identity, models.ViewEvent{
		Timestamp:  time.Now(),
		DurationMs: int64(outcome.WatchedSeconds) * 1000,
		ContentID:  req.ContentID,
	})
	deps.Challenges.RecordView(ctx, req.Identity)

	decision, _ := deps.Guard.ApplyAnalysis(ctx, req.Identity, analysis)
	if decision == services.DecisionAllow && gateDecision == services.DecisionChallenge {
		// Lockout or an unsolved challenge withholds the reward even when
		// this view's own analysis came back clean.
		decision = services.DecisionChallenge
	}
	if decision != services.DecisionAllow {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":              true,
			"xp_awarded":           0,
			"needs_challenge":      decision == services.DecisionChallenge,
			"needs_reverification": decision == services.DecisionReverify || decision == services.DecisionBlock,
		})
		return
	}

	quotaRes, err := deps.Quota.CheckDailyLimit(ctx, req.Identity, req.ClaimedXP, services.ActionAdView)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check daily limit")
		return
	}
	if !quotaRes.Allowed {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"xp_awarded":   0,
			"error_kind":   quotaRes.Reason,
			"current_xp":   quotaRes.CurrentXP,
			"remaining_xp": quotaRes.RemainingXP,
		})
		return
	}

	// All checks passed: credit the external ledger, then commit the quota.
	if deps.LedgerEnabled {
		if err := database.CreditXP(ctx, req.Identity, outcome.XPAwarded, "ad_view", req.ContentID); err != nil {
			log.Printf("ledger: credit failed for %s: %v", req.Identity, err)
			writeError(w, http.StatusBadGateway, "Failed to credit XP")
			return
		}
	} else {
		log.Printf("ledger: not configured, skipping credit of %d XP for %s", outcome.XPAwarded, req.Identity)
	}
	if err := deps.Quota.RecordEarned(ctx, req.Identity, outcome.XPAwarded, services.ActionAdView); err != nil {
		log.Printf("quota: commit failed for %s: %v", req.Identity, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"xp_awarded": outcome.XPAwarded,
	})
}
