package handlers

import (
	"context"
	"time"

	"coreledger/internal/audit"
	"coreledger/internal/config"
	"coreledger/internal/ledger"
	"coreledger/internal/store"
	"coreledger/internal/stream"
)

type stubEngine struct {
	depositFn  func(context.Context, ledger.OperationRequest) (ledger.Result, error)
	withdrawFn func(context.Context, ledger.OperationRequest) (ledger.Result, error)
	transferFn func(context.Context, ledger.TransferRequest) (ledger.Result, error)
	openFn     func(context.Context, ledger.OpenAccountRequest) (store.Account, error)
	statusFn   func(context.Context, ledger.StatusChangeRequest) (store.Account, error)
}

func (s stubEngine) Deposit(ctx context.Context, req ledger.OperationRequest) (ledger.Result, error) {
	return s.depositFn(ctx, req)
}

func (s stubEngine) Withdraw(ctx context.Context, req ledger.OperationRequest) (ledger.Result, error) {
	return s.withdrawFn(ctx, req)
}

func (s stubEngine) Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Result, error) {
	return s.transferFn(ctx, req)
}

func (s stubEngine) OpenAccount(ctx context.Context, req ledger.OpenAccountRequest) (store.Account, error) {
	return s.openFn(ctx, req)
}

func (s stubEngine) SetAccountStatus(ctx context.Context, req ledger.StatusChangeRequest) (store.Account, error) {
	return s.statusFn(ctx, req)
}

type stubAccountReader struct {
	getFn            func(context.Context, string) (store.Account, error)
	listByCustomerFn func(context.Context, string) ([]store.Account, error)
}

func (s stubAccountReader) Get(ctx context.Context, number string) (store.Account, error) {
	return s.getFn(ctx, number)
}

func (s stubAccountReader) ListByCustomer(ctx context.Context, customerID string) ([]store.Account, error) {
	return s.listByCustomerFn(ctx, customerID)
}

type stubJournalReader struct {
	getByIDFn           func(context.Context, string) (store.JournalEntry, error)
	listByAccountFn     func(context.Context, string, int, int) ([]store.JournalEntry, error)
	listByCorrelationFn func(context.Context, string) ([]store.JournalEntry, error)
}

func (s stubJournalReader) GetByID(ctx context.Context, id string) (store.JournalEntry, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubJournalReader) ListByAccount(ctx context.Context, number string, limit, offset int) ([]store.JournalEntry, error) {
	return s.listByAccountFn(ctx, number, limit, offset)
}

func (s stubJournalReader) ListByCorrelation(ctx context.Context, correlationID string) ([]store.JournalEntry, error) {
	return s.listByCorrelationFn(ctx, correlationID)
}

type stubAuditReader struct {
	listFn func(context.Context, int, int) ([]audit.Event, error)
}

func (s stubAuditReader) List(ctx context.Context, limit, offset int) ([]audit.Event, error) {
	return s.listFn(ctx, limit, offset)
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "secret",
		TokenTTL:        time.Minute,
		AllowedOrigins:  "*",
		HomeBranch:      "10001",
		DefaultCurrency: "INR",
	}
}

func newTestHandler(engine LedgerEngine, accounts AccountReader, journal JournalReader, auditReader AuditReader) *Handler {
	return New(testConfig(), engine, accounts, journal, auditReader, stream.NewHub())
}
