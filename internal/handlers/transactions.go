package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"coreledger/internal/ledger"
	"coreledger/internal/middleware"
	"coreledger/internal/money"
	"coreledger/internal/store"
)

type operationRequest struct {
	AccountNumber string  `json:"account_number"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	ExternalRef   *string `json:"external_ref"`
}

type transferRequest struct {
	FromAccount string  `json:"from_account"`
	ToAccount   string  `json:"to_account"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	ExternalRef *string `json:"external_ref"`
}

// operationResponse is the stable envelope for balance-affecting operations.
type operationResponse struct {
	Status           string  `json:"status"`
	TransactionID    string  `json:"transaction_id,omitempty"`
	CorrelationID    string  `json:"correlation_id,omitempty"`
	ResultingBalance *string `json:"resulting_balance,omitempty"`
	ErrorCode        string  `json:"error_code,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.singleLeg(w, r, h.engine.Deposit)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.singleLeg(w, r, h.engine.Withdraw)
}

func (h *Handler) singleLeg(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req ledger.OperationRequest) (ledger.Result, error)) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor <= 0 {
		writeOperation(w, ledger.Result{Status: ledger.ResultRejected, ErrorCode: ledger.CodeInvalidAmount}, ledger.ErrInvalidAmount)
		return
	}
	res, opErr := op(r.Context(), ledger.OperationRequest{
		Actor:         actor,
		AccountNumber: req.AccountNumber,
		AmountMinor:   amountMinor,
		Currency:      req.Currency,
		ExternalRef:   req.ExternalRef,
	})
	writeOperation(w, res, opErr)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor <= 0 {
		writeOperation(w, ledger.Result{Status: ledger.ResultRejected, ErrorCode: ledger.CodeInvalidAmount}, ledger.ErrInvalidAmount)
		return
	}
	res, opErr := h.engine.Transfer(r.Context(), ledger.TransferRequest{
		Actor:       actor,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		AmountMinor: amountMinor,
		Currency:    req.Currency,
		ExternalRef: req.ExternalRef,
	})
	writeOperation(w, res, opErr)
}

func writeOperation(w http.ResponseWriter, res ledger.Result, err error) {
	resp := operationResponse{
		Status:        res.Status,
		TransactionID: res.TransactionID,
		CorrelationID: res.CorrelationID,
	}
	if res.BalanceAfter != nil {
		formatted := money.FormatMinor(*res.BalanceAfter)
		resp.ResultingBalance = &formatted
	}
	if err != nil {
		code := res.ErrorCode
		if code == "" {
			code = ledger.ErrorCode(err)
		}
		resp.ErrorCode = code
		resp.ErrorMessage = publicMessage(code)
		respondJSON(w, statusForCode(code), resp)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.journal.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction_not_found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	legs, err := h.journal.ListByCorrelation(r.Context(), entry.CorrelationID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ledger.CodeInternal)
		return
	}
	payload := entryResponse(entry)
	if len(legs) > 1 {
		related := make([]map[string]any, 0, len(legs))
		for _, leg := range legs {
			related = append(related, entryResponse(leg))
		}
		payload["legs"] = related
	}
	respondJSON(w, http.StatusOK, payload)
}

func entryResponse(entry store.JournalEntry) map[string]any {
	payload := map[string]any{
		"id":             entry.ID,
		"type":           entry.Type,
		"account_number": entry.AccountNumber,
		"correlation_id": entry.CorrelationID,
		"amount":         money.FormatMinor(entry.Amount),
		"currency":       entry.Currency,
		"status":         entry.Status,
		"created_at":     entry.CreatedAt,
	}
	if entry.CounterpartyNumber != nil {
		payload["counterparty_number"] = *entry.CounterpartyNumber
	}
	if entry.BalanceAfter != nil {
		payload["balance_after"] = money.FormatMinor(*entry.BalanceAfter)
	}
	if entry.ExternalRef != nil {
		payload["external_ref"] = *entry.ExternalRef
	}
	if entry.FailureReason != nil {
		payload["failure_reason"] = *entry.FailureReason
	}
	return payload
}
