package store

import "time"

// Account statuses. Closed is terminal; balances move only while active.
const (
	AccountActive    = "active"
	AccountDormant   = "dormant"
	AccountFrozen    = "frozen"
	AccountClosed    = "closed"
	AccountSuspended = "suspended"
	AccountOnHold    = "on_hold"
)

// Journal entry types.
const (
	EntryDeposit        = "deposit"
	EntryWithdrawal     = "withdrawal"
	EntryTransferDebit  = "transfer_debit"
	EntryTransferCredit = "transfer_credit"
	EntryReversal       = "reversal"
)

// Journal entry statuses. An entry is created pending and moves exactly once
// to completed or failed; a completed debit leg can later become reversed.
const (
	EntryPending   = "pending"
	EntryCompleted = "completed"
	EntryFailed    = "failed"
	EntryReversed  = "reversed"
)

type Account struct {
	Number         string     `db:"number"`
	CustomerID     string     `db:"customer_id"`
	Type           string     `db:"type"`
	BranchCode     string     `db:"branch_code"`
	Currency       string     `db:"currency"`
	Balance        int64      `db:"balance"`
	Status         string     `db:"status"`
	MinBalance     int64      `db:"min_balance"`
	OverdraftLimit *int64     `db:"overdraft_limit"`
	Version        int64      `db:"version"`
	LastTxnAt      *time.Time `db:"last_txn_at"`
	ClosedReason   *string    `db:"closed_reason"`
	ClosedAt       *time.Time `db:"closed_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Floor is the lowest balance the account may reach. An overdraft facility
// supersedes the minimum-balance requirement and lets the balance run
// negative up to the limit; without one, withdrawals may not take the
// balance below the configured minimum.
func (a Account) Floor() int64 {
	if a.OverdraftLimit != nil {
		return -*a.OverdraftLimit
	}
	return a.MinBalance
}

type JournalEntry struct {
	ID                 string    `db:"id"`
	Type               string    `db:"type"`
	AccountNumber      string    `db:"account_number"`
	CounterpartyNumber *string   `db:"counterparty_number"`
	CorrelationID      string    `db:"correlation_id"`
	Amount             int64     `db:"amount"`
	Currency           string    `db:"currency"`
	BalanceAfter       *int64    `db:"balance_after"`
	Status             string    `db:"status"`
	ExternalRef        *string   `db:"external_ref"`
	FailureReason      *string   `db:"failure_reason"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

type JournalEntryInput struct {
	Type               string
	AccountNumber      string
	CounterpartyNumber *string
	CorrelationID      string
	Amount             int64
	Currency           string
	ExternalRef        *string
}
