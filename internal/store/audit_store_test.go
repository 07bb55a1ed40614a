package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"coreledger/internal/audit"
)

func TestAuditStoreInsert(t *testing.T) {
	ctx := context.Background()
	store := NewAuditStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO audit_events") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 9 {
				t.Fatalf("expected 9 args, got %d", len(args))
			}
			if args[2] != "teller-1" || args[3] != audit.ActionDeposit || args[8] != audit.OutcomeCompleted {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	})
	err := store.Insert(ctx, audit.Event{
		ID:         "evt-1",
		At:         time.Now(),
		Actor:      "teller-1",
		Action:     audit.ActionDeposit,
		EntityType: "transaction",
		EntityID:   "TRX-1",
		Before:     `{"balance":0}`,
		After:      `{"balance":500000}`,
		Outcome:    audit.OutcomeCompleted,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewAuditStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM audit_events") || !strings.Contains(query, "LIMIT $1 OFFSET $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]audit.Event) = []audit.Event{{ID: "evt-1"}}
			return nil
		},
	})
	events, err := store.List(ctx, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
