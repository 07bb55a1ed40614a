package store

import (
	"context"

	"coreledger/internal/audit"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Insert(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, at, actor, action, entity_type, entity_id, before_state, after_state, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, event.At, event.Actor, event.Action, event.EntityType, event.EntityID, event.Before, event.After, event.Outcome)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]audit.Event, error) {
	var rows []audit.Event
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, at, actor, action, entity_type, entity_id, before_state, after_state, outcome
		FROM audit_events
		ORDER BY at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
