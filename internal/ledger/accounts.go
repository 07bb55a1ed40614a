package ledger

import (
	"context"
	"encoding/json"

	"coreledger/internal/audit"
	"coreledger/internal/identifier"
	"coreledger/internal/store"
)

type OpenAccountRequest struct {
	Actor          string
	CustomerID     string
	Type           string
	SubtypeCode    string
	BranchCode     string
	Currency       string
	MinBalance     int64
	OverdraftLimit *int64
}

// OpenAccount assigns a checksummed account number and creates the record in
// active status.
func (e *Engine) OpenAccount(ctx context.Context, req OpenAccountRequest) (store.Account, error) {
	if err := identifier.Validate(identifier.KindCustomer, req.CustomerID); err != nil {
		return store.Account{}, err
	}
	typeCode, ok := identifier.AccountTypeCode(req.Type)
	if !ok {
		return store.Account{}, ErrUnknownAccountType
	}
	subtype := req.SubtypeCode
	if subtype == "" {
		subtype = "00"
	}
	number, err := e.ids.AccountNumber(ctx, req.BranchCode, typeCode, subtype)
	if err != nil {
		return store.Account{}, err
	}
	acct := store.Account{
		Number:         number,
		CustomerID:     req.CustomerID,
		Type:           req.Type,
		BranchCode:     req.BranchCode,
		Currency:       req.Currency,
		Status:         store.AccountActive,
		MinBalance:     req.MinBalance,
		OverdraftLimit: req.OverdraftLimit,
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		return store.Account{}, err
	}
	created, err := e.accounts.Get(ctx, number)
	if err != nil {
		return store.Account{}, err
	}
	e.recorder.Record(ctx, statusEvent(req.Actor, audit.ActionAccountOpened, number, "", store.AccountActive, audit.OutcomeCompleted))
	return created, nil
}

type StatusChangeRequest struct {
	Actor         string
	AccountNumber string
	Status        string
	Reason        string
}

var accountStatuses = map[string]struct{}{
	store.AccountActive:    {},
	store.AccountDormant:   {},
	store.AccountFrozen:    {},
	store.AccountClosed:    {},
	store.AccountSuspended: {},
	store.AccountOnHold:    {},
}

// SetAccountStatus transitions an account's status. Closed is terminal and
// requires a reason; accounts are never deleted.
func (e *Engine) SetAccountStatus(ctx context.Context, req StatusChangeRequest) (store.Account, error) {
	if err := identifier.Validate(identifier.KindAccount, req.AccountNumber); err != nil {
		return store.Account{}, err
	}
	if _, ok := accountStatuses[req.Status]; !ok {
		return store.Account{}, ErrUnknownStatus
	}
	acct, err := e.accounts.Get(ctx, req.AccountNumber)
	if err != nil {
		return store.Account{}, err
	}
	if acct.Status == store.AccountClosed {
		return store.Account{}, ErrAccountClosed
	}
	var reason *string
	if req.Status == store.AccountClosed {
		if req.Reason == "" {
			return store.Account{}, ErrReasonRequired
		}
		reason = &req.Reason
	}
	if err := e.accounts.UpdateStatus(ctx, req.AccountNumber, req.Status, reason); err != nil {
		return store.Account{}, err
	}
	updated, err := e.accounts.Get(ctx, req.AccountNumber)
	if err != nil {
		return store.Account{}, err
	}
	e.recorder.Record(ctx, statusEvent(req.Actor, audit.ActionStatusChanged, req.AccountNumber, acct.Status, req.Status, audit.OutcomeCompleted))
	return updated, nil
}

func statusEvent(actor, action, accountNumber, before, after, outcome string) audit.Event {
	b, _ := json.Marshal(map[string]string{"status": before})
	a, _ := json.Marshal(map[string]string{"status": after})
	return audit.Event{
		Actor:      actor,
		Action:     action,
		EntityType: "account",
		EntityID:   accountNumber,
		Before:     string(b),
		After:      string(a),
		Outcome:    outcome,
	}
}
