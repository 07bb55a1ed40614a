package ledger

import (
	"context"
	"errors"

	"coreledger/internal/identifier"
	"coreledger/internal/store"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrSameAccountTransfer = errors.New("cannot transfer to same account")
	ErrTimeout             = errors.New("operation timed out")
	ErrRequestInFlight     = errors.New("request with this reference is still pending")
	ErrAccountClosed       = errors.New("account is closed")
	ErrUnknownAccountType  = errors.New("unknown account type")
	ErrUnknownStatus       = errors.New("unknown account status")
	ErrReasonRequired      = errors.New("closure reason required")
)

// Stable error codes exposed at the boundary. Internal diagnostic detail
// never crosses this surface.
const (
	CodeInvalidAmount     = "invalid_amount"
	CodeInvalidIdentifier = "invalid_identifier"
	CodeInsufficientFunds = "insufficient_funds"
	CodeAccountNotActive  = "account_not_active"
	CodeAccountNotFound   = "account_not_found"
	CodeAccountClosed     = "account_closed"
	CodeConflict          = "conflict"
	CodeCurrencyMismatch  = "currency_mismatch"
	CodeSameAccount       = "same_account_transfer"
	CodeTimeout           = "timeout"
	CodeSequenceExhausted = "sequence_exhausted"
	CodeRequestInFlight   = "request_in_flight"
	CodeUnknownType       = "unknown_account_type"
	CodeUnknownStatus     = "unknown_status"
	CodeReasonRequired    = "reason_required"
	CodeInternal          = "internal_error"
)

// ErrorCode maps an engine error to its boundary code.
func ErrorCode(err error) string {
	var verr *identifier.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.As(err, &verr):
		return CodeInvalidIdentifier
	case errors.Is(err, store.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, store.ErrAccountNotActive):
		return CodeAccountNotActive
	case errors.Is(err, store.ErrNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrAccountClosed):
		return CodeAccountClosed
	case errors.Is(err, store.ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrCurrencyMismatch):
		return CodeCurrencyMismatch
	case errors.Is(err, ErrSameAccountTransfer):
		return CodeSameAccount
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, identifier.ErrSequenceExhausted):
		return CodeSequenceExhausted
	case errors.Is(err, ErrRequestInFlight):
		return CodeRequestInFlight
	case errors.Is(err, ErrUnknownAccountType):
		return CodeUnknownType
	case errors.Is(err, ErrUnknownStatus):
		return CodeUnknownStatus
	case errors.Is(err, ErrReasonRequired):
		return CodeReasonRequired
	default:
		return CodeInternal
	}
}

// errorForCode rebuilds the sentinel for a recorded failure so an idempotent
// replay surfaces the identical outcome.
func errorForCode(code string) error {
	switch code {
	case CodeInsufficientFunds:
		return store.ErrInsufficientFunds
	case CodeAccountNotActive:
		return store.ErrAccountNotActive
	case CodeAccountNotFound:
		return store.ErrNotFound
	case CodeConflict:
		return store.ErrConflict
	case CodeCurrencyMismatch:
		return ErrCurrencyMismatch
	case CodeTimeout:
		return ErrTimeout
	case CodeSequenceExhausted:
		return identifier.ErrSequenceExhausted
	case CodeInvalidAmount:
		return ErrInvalidAmount
	default:
		return errors.New(code)
	}
}
