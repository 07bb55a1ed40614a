// Package audit records the trail of mutating ledger operations. Recording
// happens after the financial mutation commits and never rolls it back; an
// event that cannot be stored is spooled and retried, not dropped.
package audit

import "time"

// Actions emitted by the ledger engine.
const (
	ActionDeposit       = "deposit"
	ActionWithdrawal    = "withdrawal"
	ActionTransfer      = "transfer"
	ActionReversal      = "reversal"
	ActionAccountOpened = "account.opened"
	ActionStatusChanged = "account.status_changed"
)

// Outcomes of the underlying operation.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeReversed  = "reversed"
)

// Event is one audit trail record. Before and After hold JSON snapshots of
// the mutated state (balance or status).
type Event struct {
	ID         string    `db:"id" json:"id"`
	At         time.Time `db:"at" json:"timestamp"`
	Actor      string    `db:"actor" json:"actor"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Before     string    `db:"before_state" json:"before"`
	After      string    `db:"after_state" json:"after"`
	Outcome    string    `db:"outcome" json:"outcome"`
}
