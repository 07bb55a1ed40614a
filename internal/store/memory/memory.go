// Package memory holds in-process implementations of the ledger stores. They
// back the memory storage driver and the engine tests; semantics mirror the
// Postgres stores, including the version compare-and-swap discipline.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coreledger/internal/audit"
	"coreledger/internal/identifier"
	"coreledger/internal/store"
)

type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]*store.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*store.Account)}
}

func (s *AccountStore) Create(_ context.Context, acct store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.Number]; ok {
		return store.ErrConflict
	}
	acct.Version = 1
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	cp := acct
	s.accounts[acct.Number] = &cp
	return nil
}

func (s *AccountStore) Get(_ context.Context, number string) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[number]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return *acct, nil
}

func (s *AccountStore) ApplyBalanceDelta(_ context.Context, number string, delta int64, expectedVersion int64) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[number]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	if acct.Version != expectedVersion {
		return store.Account{}, store.ErrConflict
	}
	if acct.Status != store.AccountActive {
		return store.Account{}, store.ErrAccountNotActive
	}
	if acct.Balance+delta < acct.Floor() {
		return store.Account{}, store.ErrInsufficientFunds
	}
	acct.Balance += delta
	acct.Version++
	now := time.Now().UTC()
	acct.LastTxnAt = &now
	return *acct, nil
}

func (s *AccountStore) UpdateStatus(_ context.Context, number, status string, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[number]
	if !ok {
		return store.ErrNotFound
	}
	acct.Status = status
	acct.Version++
	if status == store.AccountClosed {
		now := time.Now().UTC()
		acct.ClosedReason = reason
		acct.ClosedAt = &now
	} else {
		acct.ClosedReason = nil
		acct.ClosedAt = nil
	}
	return nil
}

func (s *AccountStore) ListByCustomer(_ context.Context, customerID string) ([]store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Account
	for _, acct := range s.accounts {
		if acct.CustomerID == customerID {
			out = append(out, *acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type Journal struct {
	mu      sync.Mutex
	ids     *identifier.Generator
	entries map[string]*store.JournalEntry
	byRef   map[string]string
	order   []string
}

func NewJournal(ids *identifier.Generator) *Journal {
	return &Journal{
		ids:     ids,
		entries: make(map[string]*store.JournalEntry),
		byRef:   make(map[string]string),
	}
}

func (j *Journal) Append(ctx context.Context, input store.JournalEntryInput) (store.JournalEntry, error) {
	id, err := j.ids.TransactionID(ctx)
	if err != nil {
		return store.JournalEntry{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if input.ExternalRef != nil && *input.ExternalRef != "" {
		if _, ok := j.byRef[*input.ExternalRef]; ok {
			return store.JournalEntry{}, store.ErrDuplicateReference
		}
	}
	now := time.Now().UTC()
	entry := &store.JournalEntry{
		ID:                 id,
		Type:               input.Type,
		AccountNumber:      input.AccountNumber,
		CounterpartyNumber: input.CounterpartyNumber,
		CorrelationID:      input.CorrelationID,
		Amount:             input.Amount,
		Currency:           input.Currency,
		Status:             store.EntryPending,
		ExternalRef:        input.ExternalRef,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	j.entries[id] = entry
	j.order = append(j.order, id)
	if input.ExternalRef != nil && *input.ExternalRef != "" {
		j.byRef[*input.ExternalRef] = id
	}
	return *entry, nil
}

func (j *Journal) MarkCompleted(_ context.Context, id string, balanceAfter int64) error {
	return j.transition(id, store.EntryPending, store.EntryCompleted, func(e *store.JournalEntry) {
		e.BalanceAfter = &balanceAfter
	})
}

func (j *Journal) MarkFailed(_ context.Context, id, reason string) error {
	return j.transition(id, store.EntryPending, store.EntryFailed, func(e *store.JournalEntry) {
		e.FailureReason = &reason
	})
}

func (j *Journal) MarkReversed(_ context.Context, id, reason string) error {
	return j.transition(id, store.EntryCompleted, store.EntryReversed, func(e *store.JournalEntry) {
		e.FailureReason = &reason
	})
}

func (j *Journal) transition(id, from, to string, apply func(*store.JournalEntry)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	entry, ok := j.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if entry.Status != from {
		return store.ErrEntryTerminal
	}
	entry.Status = to
	entry.UpdatedAt = time.Now().UTC()
	apply(entry)
	return nil
}

func (j *Journal) GetByID(_ context.Context, id string) (store.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	entry, ok := j.entries[id]
	if !ok {
		return store.JournalEntry{}, store.ErrNotFound
	}
	return *entry, nil
}

func (j *Journal) FindByIdempotencyKey(_ context.Context, externalRef string) (store.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id, ok := j.byRef[externalRef]
	if !ok {
		return store.JournalEntry{}, store.ErrNotFound
	}
	return *j.entries[id], nil
}

func (j *Journal) ListByCorrelation(_ context.Context, correlationID string) ([]store.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []store.JournalEntry
	for _, id := range j.order {
		if j.entries[id].CorrelationID == correlationID {
			out = append(out, *j.entries[id])
		}
	}
	return out, nil
}

func (j *Journal) ListByAccount(_ context.Context, accountNumber string, limit, offset int) ([]store.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var matched []store.JournalEntry
	for i := len(j.order) - 1; i >= 0; i-- {
		entry := j.entries[j.order[i]]
		if entry.AccountNumber == accountNumber {
			matched = append(matched, *entry)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

type AuditLog struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Insert(_ context.Context, event audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *AuditLog) List(_ context.Context, limit, offset int) ([]audit.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reversed := make([]audit.Event, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		reversed = append(reversed, l.events[i])
	}
	if offset >= len(reversed) {
		return nil, nil
	}
	reversed = reversed[offset:]
	if limit > 0 && limit < len(reversed) {
		reversed = reversed[:limit]
	}
	return reversed, nil
}
