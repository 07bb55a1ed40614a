package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestAccountStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO accounts") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 9 {
				t.Fatalf("expected 9 args, got %d", len(args))
			}
			if args[0] != "10001-0100-000001-26" || args[4] != "INR" || args[6] != AccountActive {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	})
	err := store.Create(ctx, Account{
		Number:     "10001-0100-000001-26",
		CustomerID: "23132-10001-0042",
		Type:       "savings",
		BranchCode: "10001",
		Currency:   "INR",
		Status:     AccountActive,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreGetNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountStoreApplyBalanceDelta(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if strings.Contains(query, "UPDATE accounts") {
				if !strings.Contains(query, "version = version + 1") || !strings.Contains(query, "RETURNING") {
					t.Fatalf("unexpected update query: %s", query)
				}
				if args[0] != int64(1000) || args[1] != "acc-1" || args[2] != int64(3) || args[3] != AccountActive {
					t.Fatalf("unexpected update args: %#v", args)
				}
				*dest.(*Account) = Account{Number: "acc-1", Balance: 6000, Version: 4, Status: AccountActive}
				return nil
			}
			*dest.(*Account) = Account{Number: "acc-1", Balance: 5000, Version: 3, Status: AccountActive}
			return nil
		},
	})
	updated, err := store.ApplyBalanceDelta(ctx, "acc-1", 1000, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Balance != 6000 || updated.Version != 4 {
		t.Fatalf("unexpected account: %+v", updated)
	}
}

func TestAccountStoreApplyBalanceDeltaStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			*dest.(*Account) = Account{Number: "acc-1", Balance: 5000, Version: 7, Status: AccountActive}
			return nil
		},
	})
	if _, err := store.ApplyBalanceDelta(ctx, "acc-1", 1000, 3); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountStoreApplyBalanceDeltaRace(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if strings.Contains(query, "UPDATE accounts") {
				// Another writer got in between the read and the CAS.
				return sql.ErrNoRows
			}
			*dest.(*Account) = Account{Number: "acc-1", Balance: 5000, Version: 3, Status: AccountActive}
			return nil
		},
	})
	if _, err := store.ApplyBalanceDelta(ctx, "acc-1", 1000, 3); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountStoreApplyBalanceDeltaBusinessChecks(t *testing.T) {
	ctx := context.Background()
	limit := int64(2000)
	cases := []struct {
		name    string
		account Account
		delta   int64
		want    error
	}{
		{"frozen account", Account{Balance: 5000, Version: 1, Status: AccountFrozen}, 100, ErrAccountNotActive},
		{"below zero floor", Account{Balance: 5000, Version: 1, Status: AccountActive}, -6000, ErrInsufficientFunds},
		{"within overdraft", Account{Balance: 0, Version: 1, Status: AccountActive, OverdraftLimit: &limit}, -2000, nil},
		{"past overdraft", Account{Balance: 0, Version: 1, Status: AccountActive, OverdraftLimit: &limit}, -2001, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		store := NewAccountStore(stubDB{
			getFn: func(_ context.Context, dest any, query string, args ...any) error {
				if strings.Contains(query, "UPDATE accounts") {
					*dest.(*Account) = Account{Number: "acc-1", Balance: tc.account.Balance + tc.delta, Version: 2, Status: AccountActive}
					return nil
				}
				*dest.(*Account) = tc.account
				return nil
			},
		})
		_, err := store.ApplyBalanceDelta(ctx, "acc-1", tc.delta, 1)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestAccountStoreUpdateStatusClosed(t *testing.T) {
	ctx := context.Background()
	reason := "customer request"
	store := NewAccountStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "closed_reason = $3") || !strings.Contains(query, "closed_at = NOW()") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != AccountClosed || args[1] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	})
	if err := store.UpdateStatus(ctx, "acc-1", AccountClosed, &reason); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreUpdateStatusNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			return stubResult{rows: 0}, nil
		},
	})
	if err := store.UpdateStatus(ctx, "missing", AccountFrozen, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
