package store

import (
	"context"

	"coreledger/internal/identifier"
)

// SequenceStore allocates identifier sequence numbers from a Postgres
// counter table. The upsert-returning form serializes allocation on the row
// lock, so concurrent callers never observe the same number.
type SequenceStore struct {
	db DB
}

func NewSequenceStore(db DB) *SequenceStore {
	return &SequenceStore{db: db}
}

func (s *SequenceStore) Next(ctx context.Context, kind identifier.Kind, scope string) (int64, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `
		INSERT INTO id_sequences (kind, scope, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, scope) DO UPDATE SET value = id_sequences.value + 1
		RETURNING value
	`, string(kind), scope)
	if err != nil {
		return 0, err
	}
	return value, nil
}
