package store

import (
	"context"
	"database/sql"
	"errors"
)

// AccountStore is the Postgres-backed account record store. All balance
// mutation funnels through ApplyBalanceDelta, a version-guarded
// compare-and-swap; no other code path writes the balance column.
type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `number, customer_id, type, branch_code, currency, balance, status,
	       min_balance, overdraft_limit, version, last_txn_at, closed_reason, closed_at, created_at`

func (s *AccountStore) Create(ctx context.Context, acct Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (number, customer_id, type, branch_code, currency, balance, status, min_balance, overdraft_limit, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`, acct.Number, acct.CustomerID, acct.Type, acct.BranchCode, acct.Currency, acct.Balance, acct.Status, acct.MinBalance, acct.OverdraftLimit)
	return err
}

func (s *AccountStore) Get(ctx context.Context, number string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE number = $1
	`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// ApplyBalanceDelta applies delta to the account balance if and only if the
// stored version still equals expectedVersion. The version counter and the
// last-transaction timestamp advance atomically with the balance write, so a
// row observed at one version can never absorb two concurrent deltas.
func (s *AccountStore) ApplyBalanceDelta(ctx context.Context, number string, delta int64, expectedVersion int64) (Account, error) {
	current, err := s.Get(ctx, number)
	if err != nil {
		return Account{}, err
	}
	if current.Version != expectedVersion {
		return Account{}, ErrConflict
	}
	if current.Status != AccountActive {
		return Account{}, ErrAccountNotActive
	}
	if current.Balance+delta < current.Floor() {
		return Account{}, ErrInsufficientFunds
	}
	var row Account
	err = s.db.GetContext(ctx, &row, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, last_txn_at = NOW()
		WHERE number = $2 AND version = $3 AND status = $4
		RETURNING `+accountColumns+`
	`, delta, number, expectedVersion, AccountActive)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrConflict
	}
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// UpdateStatus transitions the account status, bumping the version so any
// in-flight balance CAS against the old state fails. Closing records the
// reason and timestamp; rows are never deleted.
func (s *AccountStore) UpdateStatus(ctx context.Context, number, status string, reason *string) error {
	var query string
	if status == AccountClosed {
		query = `
			UPDATE accounts
			SET status = $1, version = version + 1, closed_reason = $3, closed_at = NOW()
			WHERE number = $2
		`
	} else {
		query = `
			UPDATE accounts
			SET status = $1, version = version + 1, closed_reason = NULL, closed_at = NULL
			WHERE number = $2
		`
	}
	var res sql.Result
	var err error
	if status == AccountClosed {
		res, err = s.db.ExecContext(ctx, query, status, number, reason)
	} else {
		res, err = s.db.ExecContext(ctx, query, status, number)
	}
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AccountStore) ListByCustomer(ctx context.Context, customerID string) ([]Account, error) {
	var rows []Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE customer_id = $1
		ORDER BY created_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
