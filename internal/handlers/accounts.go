package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"coreledger/internal/identifier"
	"coreledger/internal/ledger"
	"coreledger/internal/middleware"
	"coreledger/internal/money"
	"coreledger/internal/store"
)

type openAccountRequest struct {
	CustomerID     string `json:"customer_id"`
	Type           string `json:"type"`
	SubtypeCode    string `json:"subtype_code"`
	BranchCode     string `json:"branch_code"`
	Currency       string `json:"currency"`
	MinBalance     string `json:"min_balance"`
	OverdraftLimit string `json:"overdraft_limit"`
}

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if req.BranchCode == "" {
		req.BranchCode = h.cfg.HomeBranch
	}
	if req.Currency == "" {
		req.Currency = h.cfg.DefaultCurrency
	}
	var minBalance int64
	if req.MinBalance != "" {
		parsed, err := money.ParseMinor(req.MinBalance)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, ledger.CodeInvalidAmount)
			return
		}
		minBalance = parsed
	}
	var overdraft *int64
	if req.OverdraftLimit != "" {
		parsed, err := money.ParseMinor(req.OverdraftLimit)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, ledger.CodeInvalidAmount)
			return
		}
		overdraft = &parsed
	}
	acct, err := h.engine.OpenAccount(r.Context(), ledger.OpenAccountRequest{
		Actor:          actor,
		CustomerID:     req.CustomerID,
		Type:           req.Type,
		SubtypeCode:    req.SubtypeCode,
		BranchCode:     req.BranchCode,
		Currency:       req.Currency,
		MinBalance:     minBalance,
		OverdraftLimit: overdraft,
	})
	if err != nil {
		code := ledger.ErrorCode(err)
		respondError(w, statusForCode(code), code)
		return
	}
	respondJSON(w, http.StatusCreated, accountResponse(acct))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	acct, err := h.accounts.Get(r.Context(), number)
	if err != nil {
		code := ledger.ErrorCode(err)
		respondError(w, statusForCode(code), code)
		return
	}
	respondJSON(w, http.StatusOK, accountResponse(acct))
}

type statusChangeRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *Handler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	acct, err := h.engine.SetAccountStatus(r.Context(), ledger.StatusChangeRequest{
		Actor:         actor,
		AccountNumber: chi.URLParam(r, "number"),
		Status:        req.Status,
		Reason:        req.Reason,
	})
	if err != nil {
		code := ledger.ErrorCode(err)
		respondError(w, statusForCode(code), code)
		return
	}
	respondJSON(w, http.StatusOK, accountResponse(acct))
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if _, err := h.accounts.Get(r.Context(), number); err != nil {
		code := ledger.ErrorCode(err)
		respondError(w, statusForCode(code), code)
		return
	}
	limit, offset := pagination(r, 20)
	entries, err := h.journal.ListByAccount(r.Context(), number, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, entryResponse(entry))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_number": number,
		"transactions":   payload,
	})
}

func (h *Handler) ListCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if err := identifier.Validate(identifier.KindCustomer, customerID); err != nil {
		respondError(w, http.StatusBadRequest, ledger.CodeInvalidIdentifier)
		return
	}
	accounts, err := h.accounts.ListByCustomer(r.Context(), customerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	payload := make([]map[string]any, 0, len(accounts))
	for _, acct := range accounts {
		payload = append(payload, accountResponse(acct))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"customer_id": customerID,
		"accounts":    payload,
	})
}

func accountResponse(acct store.Account) map[string]any {
	payload := map[string]any{
		"number":      acct.Number,
		"customer_id": acct.CustomerID,
		"type":        acct.Type,
		"branch_code": acct.BranchCode,
		"currency":    acct.Currency,
		"balance":     money.FormatMinor(acct.Balance),
		"status":      acct.Status,
		"min_balance": money.FormatMinor(acct.MinBalance),
		"version":     acct.Version,
		"created_at":  acct.CreatedAt,
	}
	if acct.OverdraftLimit != nil {
		payload["overdraft_limit"] = money.FormatMinor(*acct.OverdraftLimit)
	}
	if acct.LastTxnAt != nil {
		payload["last_txn_at"] = *acct.LastTxnAt
	}
	if acct.ClosedReason != nil {
		payload["closed_reason"] = *acct.ClosedReason
	}
	if acct.ClosedAt != nil {
		payload["closed_at"] = *acct.ClosedAt
	}
	return payload
}

func pagination(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
