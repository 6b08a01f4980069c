package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Hiksang/rewardguard-backend/internal/config"
	"github.com/Hiksang/rewardguard-backend/internal/services"
)

// Deps wires the engine services into the handler package. Set once from
// main via Init before the router starts serving.
type Deps struct {
	Cfg           *config.Config
	Limiter       *services.RateLimiter
	Quota         *services.DailyQuotaTracker
	Sessions      *services.SessionLedger
	Behavior      *services.BehaviorAnalyzer
	Challenges    *services.ChallengeEngine
	Reverify      *services.ReVerificationCoordinator
	Guard         *services.Guard
	Oracle        *services.IdentityOracle
	AdminSessions *services.AdminSessions

	// LedgerEnabled is false when Postgres is not configured; completions
	// still validate but XP crediting is skipped with a warning.
	LedgerEnabled bool
}

var deps Deps

func Init(d Deps) {
	deps = d
}

// Rate-limit classes are derived from config once per request; cheap enough
// and keeps every tunable live without restart plumbing.
func startIdentityClass() services.LimitClass {
	return services.LimitClass{Name: "session_start_identity", MaxRequests: deps.Cfg.StartLimitPerIdentity, Window: deps.Cfg.RateLimitWindow}
}

func startIPClass() services.LimitClass {
	return services.LimitClass{Name: "session_start_ip", MaxRequests: deps.Cfg.StartLimitPerIP, Window: deps.Cfg.RateLimitWindow}
}

func completeClass() services.LimitClass {
	return services.LimitClass{Name: "session_complete_identity", MaxRequests: deps.Cfg.CompleteLimitPerIdentity, Window: deps.Cfg.RateLimitWindow}
}

// gate applies the escalation decision shared by every reward path: soft
// block and pending re-verification deny outright. The decision is returned
// so reward paths can additionally withhold XP on challenge. Evaluation
// errors fail open, matching the rate limiter.
func gate(w http.ResponseWriter, r *http.Request, identity string) (services.Decision, bool) {
	decision, _ := deps.Guard.Evaluate(r.Context(), identity)
	switch decision {
	case services.DecisionBlock:
		writeDenied(w, http.StatusForbidden, services.ErrAccountRestricted, "Account temporarily restricted. Complete re-verification to continue.")
		return decision, false
	case services.DecisionReverify:
		writeDenied(w, http.StatusOK, services.ErrReVerificationRequired, "Re-verification required before earning rewards.")
		return decision, false
	}
	return decision, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func writeDenied(w http.ResponseWriter, status int, kind services.ErrorKind, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success":    false,
		"error_kind": kind,
		"message":    message,
	})
}

func writeRateLimited(w http.ResponseWriter, res services.RateLimitResult) {
	writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"success":     false,
		"error_kind":  services.ErrRateLimitExceeded,
		"message":     "Rate limit exceeded. Please try again later.",
		"retry_after": int(res.RetryAfter.Seconds()),
		"reset_at":    res.ResetAt.Unix(),
	})
}
