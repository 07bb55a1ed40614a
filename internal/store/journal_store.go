package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"coreledger/internal/identifier"
)

// JournalStore persists the append-only transaction journal. Entries get
// their TRX identifier from the codec at append time; terminal transitions
// are guarded so an entry can never be completed twice.
type JournalStore struct {
	db  DB
	ids *identifier.Generator
}

func NewJournalStore(db DB, ids *identifier.Generator) *JournalStore {
	return &JournalStore{db: db, ids: ids}
}

const journalColumns = `id, type, account_number, counterparty_number, correlation_id, amount,
	       currency, balance_after, status, external_ref, failure_reason, created_at, updated_at`

func (s *JournalStore) Append(ctx context.Context, input JournalEntryInput) (JournalEntry, error) {
	id, err := s.ids.TransactionID(ctx)
	if err != nil {
		return JournalEntry{}, err
	}
	var row JournalEntry
	err = s.db.GetContext(ctx, &row, `
		INSERT INTO journal_entries (id, type, account_number, counterparty_number, correlation_id, amount, currency, status, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+journalColumns+`
	`, id, input.Type, input.AccountNumber, input.CounterpartyNumber, input.CorrelationID, input.Amount, input.Currency, EntryPending, input.ExternalRef)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return JournalEntry{}, ErrDuplicateReference
		}
		return JournalEntry{}, err
	}
	return row, nil
}

func (s *JournalStore) MarkCompleted(ctx context.Context, id string, balanceAfter int64) error {
	return s.transition(ctx, `
		UPDATE journal_entries
		SET status = $1, balance_after = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, EntryCompleted, balanceAfter, id, EntryPending)
}

func (s *JournalStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.transition(ctx, `
		UPDATE journal_entries
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, EntryFailed, reason, id, EntryPending)
}

// MarkReversed flags a completed debit leg whose counterpart credit failed.
// The reason records why the compensation ran.
func (s *JournalStore) MarkReversed(ctx context.Context, id, reason string) error {
	return s.transition(ctx, `
		UPDATE journal_entries
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, EntryReversed, reason, id, EntryCompleted)
}

func (s *JournalStore) transition(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEntryTerminal
	}
	return nil
}

func (s *JournalStore) GetByID(ctx context.Context, id string) (JournalEntry, error) {
	var row JournalEntry
	err := s.db.GetContext(ctx, &row, `
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return JournalEntry{}, ErrNotFound
	}
	if err != nil {
		return JournalEntry{}, err
	}
	return row, nil
}

// FindByIdempotencyKey returns the initiating entry recorded for an external
// reference. The unique index on external_ref guarantees at most one.
func (s *JournalStore) FindByIdempotencyKey(ctx context.Context, externalRef string) (JournalEntry, error) {
	var row JournalEntry
	err := s.db.GetContext(ctx, &row, `
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE external_ref = $1
	`, externalRef)
	if errors.Is(err, sql.ErrNoRows) {
		return JournalEntry{}, ErrNotFound
	}
	if err != nil {
		return JournalEntry{}, err
	}
	return row, nil
}

func (s *JournalStore) ListByCorrelation(ctx context.Context, correlationID string) ([]JournalEntry, error) {
	var rows []JournalEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE correlation_id = $1
		ORDER BY created_at
	`, correlationID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *JournalStore) ListByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]JournalEntry, error) {
	var rows []JournalEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE account_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountNumber, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
