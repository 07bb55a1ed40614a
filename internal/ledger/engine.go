// Package ledger orchestrates balance-affecting operations. Every operation
// moves through validate, journal, apply, terminal-mark in that order; shared
// state lives in the stores, so the engine is safe for concurrent use.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"coreledger/internal/audit"
	"coreledger/internal/identifier"
	"coreledger/internal/store"
)

// maxConflictRetries bounds version-refresh retries after an optimistic
// concurrency collision. The same journal entry is reused across retries.
const maxConflictRetries = 3

type AccountStore interface {
	Get(ctx context.Context, number string) (store.Account, error)
	Create(ctx context.Context, acct store.Account) error
	ApplyBalanceDelta(ctx context.Context, number string, delta int64, expectedVersion int64) (store.Account, error)
	UpdateStatus(ctx context.Context, number, status string, reason *string) error
}

type Journal interface {
	Append(ctx context.Context, input store.JournalEntryInput) (store.JournalEntry, error)
	MarkCompleted(ctx context.Context, id string, balanceAfter int64) error
	MarkFailed(ctx context.Context, id, reason string) error
	MarkReversed(ctx context.Context, id, reason string) error
	FindByIdempotencyKey(ctx context.Context, externalRef string) (store.JournalEntry, error)
}

type Recorder interface {
	Record(ctx context.Context, event audit.Event)
}

type Engine struct {
	accounts AccountStore
	journal  Journal
	recorder Recorder
	ids      *identifier.Generator
}

func New(accounts AccountStore, journal Journal, recorder Recorder, ids *identifier.Generator) *Engine {
	return &Engine{accounts: accounts, journal: journal, recorder: recorder, ids: ids}
}

// Result statuses.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// Result is the boundary outcome of an operation. BalanceAfter is set only
// for completed deposits, withdrawals and transfers (source balance).
type Result struct {
	TransactionID string
	CorrelationID string
	Status        string
	BalanceAfter  *int64
	ErrorCode     string
}

type OperationRequest struct {
	Actor         string
	AccountNumber string
	AmountMinor   int64
	Currency      string
	ExternalRef   *string
}

type TransferRequest struct {
	Actor       string
	FromAccount string
	ToAccount   string
	AmountMinor int64
	Currency    string
	ExternalRef *string
}

func (e *Engine) Deposit(ctx context.Context, req OperationRequest) (Result, error) {
	return e.singleLeg(ctx, req, store.EntryDeposit)
}

func (e *Engine) Withdraw(ctx context.Context, req OperationRequest) (Result, error) {
	return e.singleLeg(ctx, req, store.EntryWithdrawal)
}

func (e *Engine) singleLeg(ctx context.Context, req OperationRequest, entryType string) (Result, error) {
	if req.AmountMinor <= 0 {
		return rejected(ErrInvalidAmount)
	}
	if err := identifier.Validate(identifier.KindAccount, req.AccountNumber); err != nil {
		return rejected(err)
	}
	if res, done, err := e.replay(ctx, req.ExternalRef); done {
		return res, err
	}
	acct, err := e.accounts.Get(ctx, req.AccountNumber)
	if err != nil {
		return rejected(err)
	}
	if acct.Status != store.AccountActive {
		return rejected(store.ErrAccountNotActive)
	}
	if req.Currency != "" && req.Currency != acct.Currency {
		return rejected(ErrCurrencyMismatch)
	}
	delta := req.AmountMinor
	action := audit.ActionDeposit
	if entryType == store.EntryWithdrawal {
		delta = -req.AmountMinor
		action = audit.ActionWithdrawal
	}
	entry, err := e.journal.Append(ctx, store.JournalEntryInput{
		Type:          entryType,
		AccountNumber: req.AccountNumber,
		CorrelationID: uuid.NewString(),
		Amount:        req.AmountMinor,
		Currency:      acct.Currency,
		ExternalRef:   req.ExternalRef,
	})
	if errors.Is(err, store.ErrDuplicateReference) {
		// Lost the append race against a concurrent request with the same
		// reference; hand back whatever that request recorded.
		if res, done, rerr := e.replay(ctx, req.ExternalRef); done {
			return res, rerr
		}
		return rejected(ErrRequestInFlight)
	}
	if err != nil {
		return rejected(err)
	}

	// Terminal bookkeeping runs detached from the caller's deadline: an
	// entry left pending after a timeout would make every retry with the
	// same reference report it as still in flight.
	bctx := context.WithoutCancel(ctx)
	before, updated, err := e.applyDelta(ctx, req.AccountNumber, delta, acct.Balance)
	if err != nil {
		code := ErrorCode(err)
		if merr := e.journal.MarkFailed(bctx, entry.ID, code); merr != nil {
			log.Printf("journal mark failed %s: %v", entry.ID, merr)
		}
		e.recorder.Record(bctx, balanceEvent(req.Actor, action, entry.ID, before, before, audit.OutcomeFailed))
		return Result{TransactionID: entry.ID, CorrelationID: entry.CorrelationID, Status: ResultFailed, ErrorCode: code}, err
	}
	if merr := e.journal.MarkCompleted(bctx, entry.ID, updated.Balance); merr != nil {
		log.Printf("journal mark completed %s: %v", entry.ID, merr)
	}
	e.recorder.Record(bctx, balanceEvent(req.Actor, action, entry.ID, before, updated.Balance, audit.OutcomeCompleted))
	balance := updated.Balance
	return Result{TransactionID: entry.ID, CorrelationID: entry.CorrelationID, Status: ResultCompleted, BalanceAfter: &balance}, nil
}

// Transfer debits the source, and only on success credits the destination.
// The legs share a correlation ID. A credit failure after a committed debit
// triggers a compensating reversal, so no money is ever left in flight.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	if req.AmountMinor <= 0 {
		return rejected(ErrInvalidAmount)
	}
	if err := identifier.Validate(identifier.KindAccount, req.FromAccount); err != nil {
		return rejected(err)
	}
	if err := identifier.Validate(identifier.KindAccount, req.ToAccount); err != nil {
		return rejected(err)
	}
	if req.FromAccount == req.ToAccount {
		return rejected(ErrSameAccountTransfer)
	}
	if res, done, err := e.replay(ctx, req.ExternalRef); done {
		return res, err
	}
	src, err := e.accounts.Get(ctx, req.FromAccount)
	if err != nil {
		return rejected(err)
	}
	dst, err := e.accounts.Get(ctx, req.ToAccount)
	if err != nil {
		return rejected(err)
	}
	if src.Status != store.AccountActive || dst.Status != store.AccountActive {
		return rejected(store.ErrAccountNotActive)
	}
	if src.Currency != dst.Currency {
		return rejected(ErrCurrencyMismatch)
	}
	if req.Currency != "" && req.Currency != src.Currency {
		return rejected(ErrCurrencyMismatch)
	}

	correlation := uuid.NewString()
	debit, err := e.journal.Append(ctx, store.JournalEntryInput{
		Type:               store.EntryTransferDebit,
		AccountNumber:      req.FromAccount,
		CounterpartyNumber: &req.ToAccount,
		CorrelationID:      correlation,
		Amount:             req.AmountMinor,
		Currency:           src.Currency,
		ExternalRef:        req.ExternalRef,
	})
	if errors.Is(err, store.ErrDuplicateReference) {
		if res, done, rerr := e.replay(ctx, req.ExternalRef); done {
			return res, rerr
		}
		return rejected(ErrRequestInFlight)
	}
	if err != nil {
		return rejected(err)
	}
	credit, err := e.journal.Append(ctx, store.JournalEntryInput{
		Type:               store.EntryTransferCredit,
		AccountNumber:      req.ToAccount,
		CounterpartyNumber: &req.FromAccount,
		CorrelationID:      correlation,
		Amount:             req.AmountMinor,
		Currency:           src.Currency,
	})
	// As in singleLeg, terminal bookkeeping must land even after the
	// caller's deadline has expired.
	bctx := context.WithoutCancel(ctx)
	if err != nil {
		code := ErrorCode(err)
		_ = e.journal.MarkFailed(bctx, debit.ID, code)
		return Result{TransactionID: debit.ID, CorrelationID: correlation, Status: ResultFailed, ErrorCode: code}, err
	}

	beforeSrc, updatedSrc, err := e.applyDelta(ctx, req.FromAccount, -req.AmountMinor, src.Balance)
	if err != nil {
		code := ErrorCode(err)
		_ = e.journal.MarkFailed(bctx, debit.ID, code)
		_ = e.journal.MarkFailed(bctx, credit.ID, code)
		e.recorder.Record(bctx, balanceEvent(req.Actor, audit.ActionTransfer, debit.ID, beforeSrc, beforeSrc, audit.OutcomeFailed))
		return Result{TransactionID: debit.ID, CorrelationID: correlation, Status: ResultFailed, ErrorCode: code}, err
	}
	if merr := e.journal.MarkCompleted(bctx, debit.ID, updatedSrc.Balance); merr != nil {
		log.Printf("journal mark completed %s: %v", debit.ID, merr)
	}

	beforeDst, updatedDst, err := e.applyDelta(ctx, req.ToAccount, req.AmountMinor, dst.Balance)
	if err != nil {
		code := ErrorCode(err)
		_ = e.journal.MarkFailed(bctx, credit.ID, code)
		e.recorder.Record(bctx, balanceEvent(req.Actor, audit.ActionTransfer, credit.ID, beforeDst, beforeDst, audit.OutcomeFailed))
		e.compensate(ctx, req.Actor, debit, code, updatedSrc.Balance)
		return Result{TransactionID: debit.ID, CorrelationID: correlation, Status: ResultFailed, ErrorCode: code}, err
	}
	if merr := e.journal.MarkCompleted(bctx, credit.ID, updatedDst.Balance); merr != nil {
		log.Printf("journal mark completed %s: %v", credit.ID, merr)
	}

	e.recorder.Record(bctx, balanceEvent(req.Actor, audit.ActionTransfer, debit.ID, beforeSrc, updatedSrc.Balance, audit.OutcomeCompleted))
	e.recorder.Record(bctx, balanceEvent(req.Actor, audit.ActionTransfer, credit.ID, beforeDst, updatedDst.Balance, audit.OutcomeCompleted))
	balance := updatedSrc.Balance
	return Result{TransactionID: debit.ID, CorrelationID: correlation, Status: ResultCompleted, BalanceAfter: &balance}, nil
}

// compensate credits the debited amount back to the source after a failed
// credit leg. It runs detached from the caller's deadline: the debit is
// committed, so the reversal must land regardless of how late it is.
func (e *Engine) compensate(ctx context.Context, actor string, debit store.JournalEntry, reason string, srcBalance int64) {
	ctx = context.WithoutCancel(ctx)
	reversal, err := e.journal.Append(ctx, store.JournalEntryInput{
		Type:               store.EntryReversal,
		AccountNumber:      debit.AccountNumber,
		CounterpartyNumber: debit.CounterpartyNumber,
		CorrelationID:      debit.CorrelationID,
		Amount:             debit.Amount,
		Currency:           debit.Currency,
	})
	if err != nil {
		log.Printf("ALERT: reversal append failed for %s, funds in flight: %v", debit.ID, err)
		return
	}
	before, updated, err := e.applyDelta(ctx, debit.AccountNumber, debit.Amount, srcBalance)
	if err != nil {
		_ = e.journal.MarkFailed(ctx, reversal.ID, ErrorCode(err))
		log.Printf("ALERT: reversal apply failed for %s, funds in flight: %v", debit.ID, err)
		return
	}
	if merr := e.journal.MarkCompleted(ctx, reversal.ID, updated.Balance); merr != nil {
		log.Printf("journal mark completed %s: %v", reversal.ID, merr)
	}
	if merr := e.journal.MarkReversed(ctx, debit.ID, reason); merr != nil {
		log.Printf("journal mark reversed %s: %v", debit.ID, merr)
	}
	e.recorder.Record(ctx, balanceEvent(actor, audit.ActionReversal, reversal.ID, before, updated.Balance, audit.OutcomeReversed))
}

// applyDelta performs the optimistic mutation loop: read the version, invoke
// the store's compare-and-swap, and on Conflict refresh and retry a bounded
// number of times. It returns the last balance observed before the mutation;
// seed is the balance from the caller's validation read, reported when no
// fresher read succeeds.
func (e *Engine) applyDelta(ctx context.Context, number string, delta int64, seed int64) (int64, store.Account, error) {
	before := seed
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return before, store.Account{}, ErrTimeout
		}
		acct, err := e.accounts.Get(ctx, number)
		if err != nil {
			return before, store.Account{}, timeoutOr(ctx, err)
		}
		before = acct.Balance
		updated, err := e.accounts.ApplyBalanceDelta(ctx, number, delta, acct.Version)
		if errors.Is(err, store.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return before, store.Account{}, timeoutOr(ctx, err)
		}
		return before, updated, nil
	}
}

// replay returns the recorded terminal result for an external reference, so
// a retried request never executes twice.
func (e *Engine) replay(ctx context.Context, ref *string) (Result, bool, error) {
	if ref == nil || *ref == "" {
		return Result{}, false, nil
	}
	entry, err := e.journal.FindByIdempotencyKey(ctx, *ref)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{Status: ResultRejected, ErrorCode: CodeInternal}, true, err
	}
	res := Result{TransactionID: entry.ID, CorrelationID: entry.CorrelationID}
	switch entry.Status {
	case store.EntryPending:
		res.Status = ResultRejected
		res.ErrorCode = CodeRequestInFlight
		return res, true, ErrRequestInFlight
	case store.EntryCompleted:
		res.Status = ResultCompleted
		res.BalanceAfter = entry.BalanceAfter
		return res, true, nil
	default:
		code := CodeInternal
		if entry.FailureReason != nil {
			code = *entry.FailureReason
		}
		res.Status = ResultFailed
		res.ErrorCode = code
		return res, true, errorForCode(code)
	}
}

func rejected(err error) (Result, error) {
	return Result{Status: ResultRejected, ErrorCode: ErrorCode(err)}, err
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func balanceEvent(actor, action, entryID string, before, after int64, outcome string) audit.Event {
	b, _ := json.Marshal(map[string]int64{"balance": before})
	a, _ := json.Marshal(map[string]int64{"balance": after})
	return audit.Event{
		Actor:      actor,
		Action:     action,
		EntityType: "transaction",
		EntityID:   entryID,
		Before:     string(b),
		After:      string(a),
		Outcome:    outcome,
	}
}
