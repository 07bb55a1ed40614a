package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coreledger/internal/auth"
	"coreledger/internal/ledger"
	"coreledger/internal/middleware"
	"coreledger/internal/store"
)

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	token, err := auth.IssueToken("secret", "teller-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestDepositCompleted(t *testing.T) {
	balance := int64(150000)
	handler := newTestHandler(stubEngine{
		depositFn: func(_ context.Context, req ledger.OperationRequest) (ledger.Result, error) {
			if req.Actor != "teller-1" {
				t.Fatalf("expected actor teller-1, got %q", req.Actor)
			}
			if req.AmountMinor != 50000 {
				t.Fatalf("expected 50000 minor units, got %d", req.AmountMinor)
			}
			return ledger.Result{
				TransactionID: "TRX-20230512-000001",
				CorrelationID: "corr-1",
				Status:        ledger.ResultCompleted,
				BalanceAfter:  &balance,
			}, nil
		},
	}, stubAccountReader{}, stubJournalReader{}, stubAuditReader{})

	body := []byte(`{"account_number":"10001-0100-000001-26","amount":"500.00"}`)
	req := authedRequest(t, http.MethodPost, "/transactions/deposit", body)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.Deposit)).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp operationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != ledger.ResultCompleted {
		t.Fatalf("expected completed, got %q", resp.Status)
	}
	if resp.ResultingBalance == nil || *resp.ResultingBalance != "1500.00" {
		t.Fatalf("unexpected resulting balance: %v", resp.ResultingBalance)
	}
}

func TestDepositRejectsMalformedAmount(t *testing.T) {
	handler := newTestHandler(stubEngine{
		depositFn: func(context.Context, ledger.OperationRequest) (ledger.Result, error) {
			t.Fatal("engine should not be reached")
			return ledger.Result{}, nil
		},
	}, stubAccountReader{}, stubJournalReader{}, stubAuditReader{})

	body := []byte(`{"account_number":"10001-0100-000001-26","amount":"10.555"}`)
	req := authedRequest(t, http.MethodPost, "/transactions/deposit", body)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.Deposit)).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp operationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ErrorCode != ledger.CodeInvalidAmount {
		t.Fatalf("expected invalid_amount, got %q", resp.ErrorCode)
	}
}

func TestWithdrawInsufficientFundsStatus(t *testing.T) {
	handler := newTestHandler(stubEngine{
		withdrawFn: func(context.Context, ledger.OperationRequest) (ledger.Result, error) {
			return ledger.Result{
				TransactionID: "TRX-20230512-000002",
				Status:        ledger.ResultFailed,
				ErrorCode:     ledger.CodeInsufficientFunds,
			}, store.ErrInsufficientFunds
		},
	}, stubAccountReader{}, stubJournalReader{}, stubAuditReader{})

	body := []byte(`{"account_number":"10001-0100-000001-26","amount":"500.00"}`)
	req := authedRequest(t, http.MethodPost, "/transactions/withdraw", body)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.Withdraw)).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp operationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != ledger.ResultFailed || resp.ErrorCode != ledger.CodeInsufficientFunds {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.TransactionID == "" {
		t.Fatal("failed operation should still expose its transaction id")
	}
}

func TestTransferConflictMapsTo409(t *testing.T) {
	handler := newTestHandler(stubEngine{
		transferFn: func(context.Context, ledger.TransferRequest) (ledger.Result, error) {
			return ledger.Result{Status: ledger.ResultFailed, ErrorCode: ledger.CodeConflict}, store.ErrConflict
		},
	}, stubAccountReader{}, stubJournalReader{}, stubAuditReader{})

	body := []byte(`{"from_account":"10001-0100-000001-26","to_account":"10001-0100-000002-34","amount":"100.00"}`)
	req := authedRequest(t, http.MethodPost, "/transactions/transfer", body)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.Transfer)).ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestTransactionsRequireToken(t *testing.T) {
	handler := newTestHandler(stubEngine{}, stubAccountReader{}, stubJournalReader{}, stubAuditReader{})
	req := httptest.NewRequest(http.MethodPost, "/transactions/deposit", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.Deposit)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	handler := newTestHandler(stubEngine{}, stubAccountReader{}, stubJournalReader{
		getByIDFn: func(context.Context, string) (store.JournalEntry, error) {
			return store.JournalEntry{}, store.ErrNotFound
		},
	}, stubAuditReader{})

	req := authedRequest(t, http.MethodGet, "/transactions/TRX-20230512-000099", nil)
	rr := httptest.NewRecorder()
	router := handler.Routes()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetTransactionIncludesLegs(t *testing.T) {
	counterparty := "10001-0100-000002-34"
	entry := store.JournalEntry{
		ID:                 "TRX-20230512-000003",
		Type:               store.EntryTransferDebit,
		AccountNumber:      "10001-0100-000001-26",
		CounterpartyNumber: &counterparty,
		CorrelationID:      "corr-7",
		Amount:             10000,
		Currency:           "INR",
		Status:             store.EntryCompleted,
	}
	credit := entry
	credit.ID = "TRX-20230512-000004"
	credit.Type = store.EntryTransferCredit
	handler := newTestHandler(stubEngine{}, stubAccountReader{}, stubJournalReader{
		getByIDFn: func(context.Context, string) (store.JournalEntry, error) {
			return entry, nil
		},
		listByCorrelationFn: func(context.Context, string) ([]store.JournalEntry, error) {
			return []store.JournalEntry{entry, credit}, nil
		},
	}, stubAuditReader{})

	req := authedRequest(t, http.MethodGet, "/transactions/TRX-20230512-000003", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	legs, ok := payload["legs"].([]any)
	if !ok || len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %v", payload["legs"])
	}
}
