package handlers

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"coreledger/internal/auth"
)

type tokenRequest struct {
	OperatorID string `json:"operator_id"`
	APIKey     string `json:"api_key"`
}

// IssueToken exchanges the shared operator API key for a short-lived bearer
// token. The key itself is never stored, only its bcrypt hash.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if req.OperatorID == "" || req.APIKey == "" {
		respondError(w, http.StatusBadRequest, "missing_credentials")
		return
	}
	if h.cfg.OperatorKeyHash == "" {
		respondError(w, http.StatusServiceUnavailable, "token_issuance_disabled")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.OperatorKeyHash), []byte(req.APIKey)); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	token, err := auth.IssueToken(h.cfg.JWTSecret, req.OperatorID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token_issuance_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.cfg.TokenTTL.Seconds()),
	})
}
