package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Hiksang/rewardguard-backend/internal/database"
	"github.com/Hiksang/rewardguard-backend/internal/services"
)

type answerQuizRequest struct {
	Identity  string `json:"identity"`
	QuizID    string `json:"quiz_id"`
	Correct   bool   `json:"correct"`
	ClaimedXP int    `json:"claimed_xp"`
}

// AnswerQuiz is the quiz reward path. Quizzes have no dwell time to prove,
// so they skip the session ledger: escalation gates, then daily quota, then
// the once-per-question-per-day mark, then credit.
func AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req answerQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "identity and quiz_id are required")
		return
	}
	if req.ClaimedXP < 0 {
		writeError(w, http.StatusBadRequest, "claimed_xp must not be negative")
		return
	}

	ctx := r.Context()

	decision, ok := gate(w, r, req.Identity)
	if !ok {
		return
	}
	if decision == services.DecisionChallenge {
		// Locked or unsolved-challenge identities earn nothing on any
		// reward path; answering quizzes is no exit from the lockout.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"xp_awarded":      0,
			"needs_challenge": true,
		})
		return
	}

	quotaRes, err := deps.Quota.CheckDailyLimit(ctx, req.Identity, req.ClaimedXP, services.ActionQuizAnswer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check daily limit")
		return
	}
	if !quotaRes.Allowed {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"xp_awarded": 0,
			"error_kind": quotaRes.Reason,
		})
		return
	}

	fresh, err := deps.Quota.MarkQuizAnswered(ctx, req.Identity, req.QuizID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record quiz answer")
		return
	}
	if !fresh {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"xp_awarded": 0,
			"error_kind": services.ErrQuizAlreadyAnswered,
		})
		return
	}

	// Wrong answers count against the daily quiz quota but earn nothing.
	xp := 0
	if req.Correct {
		xp = req.ClaimedXP
	}

	if xp > 0 && deps.LedgerEnabled {
		if err := database.CreditXP(ctx, req.Identity, xp, "quiz_answer", req.QuizID); err != nil {
			log.Printf("ledger: credit failed for %s: %v", req.Identity, err)
			// Revert the answered mark so an honest retry is not rejected
			// as already answered with nothing ever credited.
			if unmarkErr := deps.Quota.UnmarkQuizAnswered(ctx, req.Identity, req.QuizID); unmarkErr != nil {
				log.Printf("quota: unmark failed for %s: %v", req.Identity, unmarkErr)
			}
			writeError(w, http.StatusBadGateway, "Failed to credit XP")
			return
		}
	}
	if err := deps.Quota.RecordEarned(ctx, req.Identity, xp, services.ActionQuizAnswer); err != nil {
		log.Printf("quota: commit failed for %s: %v", req.Identity, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"xp_awarded": xp,
		"correct":    req.Correct,
	})
}
