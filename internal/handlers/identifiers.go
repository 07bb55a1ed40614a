package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"coreledger/internal/identifier"
	"coreledger/internal/ledger"
)

type validateIdentifierRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

var identifierKinds = map[string]identifier.Kind{
	"customer":    identifier.KindCustomer,
	"account":     identifier.KindAccount,
	"transaction": identifier.KindTransaction,
	"employee":    identifier.KindEmployee,
}

// ValidateIdentifier checks a raw identifier and reports which validation
// stage rejected it, so callers can surface precise form errors.
func (h *Handler) ValidateIdentifier(w http.ResponseWriter, r *http.Request) {
	var req validateIdentifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	kind, ok := identifierKinds[req.Kind]
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown_identifier_kind")
		return
	}
	err := identifier.Validate(kind, req.Value)
	if err == nil {
		respondJSON(w, http.StatusOK, map[string]any{"valid": true, "kind": req.Kind})
		return
	}
	var verr *identifier.ValidationError
	if !errors.As(err, &verr) {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	payload := map[string]any{
		"valid":  false,
		"kind":   req.Kind,
		"check":  string(verr.Check),
		"detail": verr.Detail,
	}
	if verr.Segment != "" {
		payload["segment"] = verr.Segment
	}
	respondJSON(w, http.StatusOK, payload)
}
