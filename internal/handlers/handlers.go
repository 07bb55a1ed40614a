package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"coreledger/internal/audit"
	"coreledger/internal/config"
	"coreledger/internal/ledger"
	"coreledger/internal/store"
	"coreledger/internal/stream"
)

type LedgerEngine interface {
	Deposit(ctx context.Context, req ledger.OperationRequest) (ledger.Result, error)
	Withdraw(ctx context.Context, req ledger.OperationRequest) (ledger.Result, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Result, error)
	OpenAccount(ctx context.Context, req ledger.OpenAccountRequest) (store.Account, error)
	SetAccountStatus(ctx context.Context, req ledger.StatusChangeRequest) (store.Account, error)
}

type AccountReader interface {
	Get(ctx context.Context, number string) (store.Account, error)
	ListByCustomer(ctx context.Context, customerID string) ([]store.Account, error)
}

type JournalReader interface {
	GetByID(ctx context.Context, id string) (store.JournalEntry, error)
	ListByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]store.JournalEntry, error)
	ListByCorrelation(ctx context.Context, correlationID string) ([]store.JournalEntry, error)
}

type AuditReader interface {
	List(ctx context.Context, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	cfg      config.Config
	engine   LedgerEngine
	accounts AccountReader
	journal  JournalReader
	audit    AuditReader
	hub      *stream.Hub
}

func New(cfg config.Config, engine LedgerEngine, accounts AccountReader, journal JournalReader, auditReader AuditReader, hub *stream.Hub) *Handler {
	return &Handler{
		cfg:      cfg,
		engine:   engine,
		accounts: accounts,
		journal:  journal,
		audit:    auditReader,
		hub:      hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, map[string]string{
		"error_code":    code,
		"error_message": publicMessage(code),
	})
}

// statusForCode maps stable ledger error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case ledger.CodeInvalidAmount, ledger.CodeInvalidIdentifier, ledger.CodeCurrencyMismatch,
		ledger.CodeSameAccount, ledger.CodeInsufficientFunds, ledger.CodeAccountNotActive,
		ledger.CodeAccountClosed, ledger.CodeUnknownType, ledger.CodeUnknownStatus, ledger.CodeReasonRequired:
		return http.StatusBadRequest
	case ledger.CodeAccountNotFound:
		return http.StatusNotFound
	case ledger.CodeConflict, ledger.CodeRequestInFlight:
		return http.StatusConflict
	case ledger.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the user-visible text for a code; internal diagnostic
// detail never crosses this boundary.
func publicMessage(code string) string {
	switch code {
	case ledger.CodeInsufficientFunds:
		return "insufficient funds"
	case ledger.CodeAccountNotActive:
		return "account is not active"
	case ledger.CodeAccountNotFound:
		return "account not found"
	case ledger.CodeTimeout:
		return "operation timed out; retry with the same external reference"
	case ledger.CodeRequestInFlight:
		return "a request with this reference is still being processed"
	case ledger.CodeInternal:
		return "internal error"
	default:
		return strings.ReplaceAll(code, "_", " ")
	}
}
