package handlers

import (
	"encoding/json"
	"net/http"
)

type completeReVerificationRequest struct {
	Identity string `json:"identity"`
	Proof    string `json:"proof"`
}

// GetPendingReVerification returns the identity's pending request, if any.
func GetPendingReVerification(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	pending, err := deps.Reverify.GetPending(r.Context(), identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load re-verification state")
		return
	}
	if pending == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"pending": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pending": true,
		"request": map[string]interface{}{
			"required_action": pending.RequiredAction,
			"reason":          pending.Reason,
			"expires_at":      pending.ExpiresAt,
		},
	})
}

// CompleteReVerification submits the proof to the identity oracle under the
// request's action namespace. On success the pending request and any soft
// block are cleared, and the oracle's fresh pseudonym is returned: the
// flagged identity is never reused after escalation.
func CompleteReVerification(w http.ResponseWriter, r *http.Request) {
	var req completeReVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identity == "" || req.Proof == "" {
		writeError(w, http.StatusBadRequest, "identity and proof are required")
		return
	}

	ctx := r.Context()

	pending, err := deps.Reverify.GetPending(ctx, req.Identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load re-verification state")
		return
	}
	if pending == nil {
		writeError(w, http.StatusBadRequest, "No pending re-verification for this identity")
		return
	}

	pseudonym, err := deps.Oracle.Verify(ctx, pending.RequiredAction, req.Proof)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Identity verification failed")
		return
	}

	if err := deps.Guard.ClearRestriction(ctx, req.Identity); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear restriction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"pseudonym": pseudonym,
	})
}
