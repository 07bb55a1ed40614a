// Package money converts between user-facing decimal amount strings and the
// int64 minor units (paise/cents) used everywhere inside the ledger. Balance
// arithmetic never touches floating point.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by every currency amount.
const Scale = 2

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrAmountOverflow  = errors.New("amount out of range")
)

// ParseMinor parses a decimal string like "5000.00" into minor units (500000).
// Amounts with more than Scale decimal places are rejected rather than
// rounded; rounding here would silently move money.
func ParseMinor(input string) (int64, error) {
	d, err := decimal.NewFromString(input)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	shifted := d.Shift(Scale)
	if !shifted.IsInteger() {
		return 0, ErrTooManyDecimals
	}
	if !shifted.BigInt().IsInt64() {
		return 0, ErrAmountOverflow
	}
	return shifted.IntPart(), nil
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}
