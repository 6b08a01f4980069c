package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/services"
)

type behaviorEventRequest struct {
	Identity   string `json:"identity"`
	DurationMs int64  `json:"duration_ms"`
	ContentID  string `json:"content_id"`
}

// RecordBehaviorEvent ingests a view event from surfaces that bypass the
// session pipeline and runs escalation on the updated window.
func RecordBehaviorEvent(w http.ResponseWriter, r *http.Request) {
	var req behaviorEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.DurationMs <= 0 {
		writeError(w, http.StatusBadRequest, "identity and duration_ms are required")
		return
	}

	ctx := r.Context()

	analysis, err := deps.Behavior.RecordView(ctx, req.Identity, models.ViewEvent{
		Timestamp:  time.Now(),
		DurationMs: req.DurationMs,
		ContentID:  req.ContentID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}

	decision, _ := deps.Guard.ApplyAnalysis(ctx, req.Identity, analysis)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"needs_challenge":      decision == services.DecisionChallenge,
		"needs_reverification": decision == services.DecisionReverify || decision == services.DecisionBlock,
	})
}
