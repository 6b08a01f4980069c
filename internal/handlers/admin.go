package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Hiksang/rewardguard-backend/internal/services"
	"github.com/Hiksang/rewardguard-backend/pkg/utils"
)

type adminSigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type unrestrictRequest struct {
	Identity string `json:"identity"`
}

// AdminSignin authenticates the operator account and issues a session token.
func AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req adminSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if deps.Cfg.AdminPasswordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "Admin access not configured")
		return
	}
	if req.Username != deps.Cfg.AdminUsername {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	ok, err := utils.VerifyPassword(req.Password, deps.Cfg.AdminPasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := deps.AdminSessions.Create(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// AdminSignout consumes the caller's session token.
func AdminSignout(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || token == "" {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	removed, err := deps.AdminSessions.Invalidate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	if !removed {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out",
	})
}

// requireAdmin validates the Bearer token; writes the error response itself
// when the request is not authorized.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || token == "" {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return false
	}
	_, ok, err := deps.AdminSessions.Validate(r.Context(), token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return false
	}
	return true
}

// AdminGetViolations lists recent audit records, optionally per identity.
func AdminGetViolations(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	identity := r.URL.Query().Get("identity")
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	violations, err := services.GetViolations(r.Context(), identity, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load violations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"violations": violations,
	})
}

// AdminUnrestrict lifts an identity's soft block and pending
// re-verification by operator decision.
func AdminUnrestrict(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req unrestrictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	if err := deps.Guard.ClearRestriction(r.Context(), req.Identity); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear restriction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Restriction cleared",
	})
}
