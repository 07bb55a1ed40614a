package store

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("version conflict")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotActive   = errors.New("account not active")
	ErrEntryTerminal      = errors.New("journal entry already terminal")
	ErrDuplicateReference = errors.New("duplicate external reference")
)
