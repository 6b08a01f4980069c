package handlers

import (
	"encoding/json"
	"net/http"
)

type verifyChallengeRequest struct {
	Identity    string `json:"identity"`
	ChallengeID string `json:"challenge_id"`
	Answer      string `json:"answer"`
	Skip        bool   `json:"skip"`
}

// GetChallengeStatus reports lock state and the live challenge, issuing one
// on the spot when the identity is due (consecutive-view trigger or
// analyzer recommendation) and none is active yet.
func GetChallengeStatus(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	ctx := r.Context()

	status, err := deps.Challenges.Status(ctx, identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load challenge status")
		return
	}
	if status.IsLocked {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":           true,
			"is_locked":         true,
			"lock_remaining_ms": status.LockRemaining.Milliseconds(),
		})
		return
	}

	if !status.NeedsChallenge {
		analysis, _ := deps.Behavior.Analysis(ctx, identity)
		if due, _ := deps.Challenges.ShouldIssue(ctx, identity, analysis.Recommendation); due {
			ch, lockRes, err := deps.Challenges.Issue(ctx, identity, analysis.SuspicionScore)
			if err == nil && lockRes == nil && ch != nil {
				status.NeedsChallenge = true
				status.Challenge = ch
			}
		}
	}

	body := map[string]interface{}{
		"success":         true,
		"needs_challenge": status.NeedsChallenge,
	}
	if status.Challenge != nil {
		body["challenge"] = status.Challenge.Client()
	}
	writeJSON(w, http.StatusOK, body)
}

// VerifyChallenge checks an answer (or an explicit skip, which counts as a
// failure) against the identity's active challenge.
func VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req verifyChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.ChallengeID == "" {
		writeError(w, http.StatusBadRequest, "identity and challenge_id are required")
		return
	}

	result, err := deps.Challenges.Verify(r.Context(), req.Identity, req.ChallengeID, req.Answer, req.Skip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to verify challenge")
		return
	}

	body := map[string]interface{}{
		"success": result.Success,
	}
	if !result.Success {
		body["error_kind"] = result.ErrorKind
	}
	if result.Locked {
		body["is_locked"] = true
		body["lock_remaining_ms"] = result.LockRemaining.Milliseconds()
	}
	writeJSON(w, http.StatusOK, body)
}
