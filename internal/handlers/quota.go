package handlers

import (
	"net/http"

	"github.com/Hiksang/rewardguard-backend/internal/database"
	"github.com/Hiksang/rewardguard-backend/internal/services"
)

// GetQuotaStatus reports the identity's remaining daily headroom without
// committing anything.
func GetQuotaStatus(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	res, err := deps.Quota.CheckDailyLimit(r.Context(), identity, 0, services.ActionAdView)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load quota")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"current_xp":         res.CurrentXP,
		"remaining_xp":       res.RemainingXP,
		"ad_views":           res.AdViews,
		"remaining_ad_views": res.RemainingAdViews,
		"quiz_answers":       res.QuizAnswers,
		"remaining_quiz":     res.RemainingQuiz,
	})
}

// GetLedgerBalance proxies the external ledger's balance for the identity.
func GetLedgerBalance(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	if !deps.LedgerEnabled {
		writeError(w, http.StatusServiceUnavailable, "Ledger not configured")
		return
	}

	balance, err := database.GetBalance(r.Context(), identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": balance,
	})
}
