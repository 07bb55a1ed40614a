package handlers

import (
	"net/http"

	"coreledger/internal/ledger"
	"coreledger/internal/stream"
)

func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	events, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// WSAudit upgrades to a websocket and streams audit events as they are
// recorded.
func (h *Handler) WSAudit(w http.ResponseWriter, r *http.Request) {
	stream.ServeWS(w, r, h.hub)
}
