// Package identifier encodes and validates the structured identifiers used
// across the ledger: customer IDs, account numbers, transaction IDs and
// employee IDs. Segments are fixed-width and zero-padded; account numbers
// carry a trailing Luhn check pair.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindCustomer    Kind = "customer"
	KindAccount     Kind = "account"
	KindTransaction Kind = "transaction"
	KindEmployee    Kind = "employee"
)

// Check names the validation stage that rejected an identifier.
type Check string

const (
	CheckFormat       Check = "format"
	CheckSegmentRange Check = "segment_range"
	CheckChecksum     Check = "checksum"
)

// ValidationError reports which check failed and on which segment, so the
// caller can surface a precise reason rather than a bare "invalid".
type ValidationError struct {
	Kind    Kind
	Check   Check
	Segment string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("%s identifier: %s check failed on %s: %s", e.Kind, e.Check, e.Segment, e.Detail)
	}
	return fmt.Sprintf("%s identifier: %s check failed: %s", e.Kind, e.Check, e.Detail)
}

// ErrSequenceExhausted means a sequence segment ran past its fixed width.
// Wrapping around would reuse identifiers, so this is fatal for the scope.
var ErrSequenceExhausted = errors.New("identifier sequence exhausted")

var (
	customerPattern    = regexp.MustCompile(`^(\d{2})(\d{3})-(\d{5})-(\d{4})$`)
	accountPattern     = regexp.MustCompile(`^(\d{5})-(\d{2})(\d{2})-(\d{6})-(\d{2})$`)
	transactionPattern = regexp.MustCompile(`^TRX-(\d{8})-(\d{6})$`)
	employeePattern    = regexp.MustCompile(`^(\d{2})(\d{2})-(\d{2})-(\d{4})$`)
)

// accountTypeCodes maps the two-digit type segment to account types.
var accountTypeCodes = map[string]string{
	"01": "savings",
	"02": "current",
	"03": "fixed_deposit",
	"04": "recurring_deposit",
	"05": "loan",
	"06": "overdraft",
}

// AccountTypeCode returns the two-digit code for an account type name.
func AccountTypeCode(accountType string) (string, bool) {
	for code, name := range accountTypeCodes {
		if name == accountType {
			return code, true
		}
	}
	return "", false
}

// Validate re-parses raw against the fixed format for kind, range-checks each
// semantic segment and, for account numbers, recomputes the check pair. It
// returns nil or a *ValidationError naming the failed check.
func Validate(kind Kind, raw string) error {
	switch kind {
	case KindCustomer:
		return validateCustomer(raw)
	case KindAccount:
		return validateAccount(raw)
	case KindTransaction:
		return validateTransaction(raw)
	case KindEmployee:
		return validateEmployee(raw)
	default:
		return &ValidationError{Kind: kind, Check: CheckFormat, Detail: "unknown identifier kind"}
	}
}

func validateCustomer(raw string) error {
	m := customerPattern.FindStringSubmatch(raw)
	if m == nil {
		return &ValidationError{Kind: KindCustomer, Check: CheckFormat, Detail: "expected YYDDD-BBBBB-SSSS"}
	}
	day, _ := strconv.Atoi(m[2])
	if day < 1 || day > 366 {
		return &ValidationError{
			Kind:    KindCustomer,
			Check:   CheckSegmentRange,
			Segment: "day-of-year",
			Detail:  fmt.Sprintf("day-of-year %d out of range 1-366", day),
		}
	}
	if seq, _ := strconv.Atoi(m[4]); seq == 0 {
		return &ValidationError{Kind: KindCustomer, Check: CheckSegmentRange, Segment: "sequence", Detail: "sequence must be at least 1"}
	}
	return nil
}

func validateAccount(raw string) error {
	m := accountPattern.FindStringSubmatch(raw)
	if m == nil {
		return &ValidationError{Kind: KindAccount, Check: CheckFormat, Detail: "expected BBBBB-AATT-CCCCCC-CC"}
	}
	if _, ok := accountTypeCodes[m[2]]; !ok {
		return &ValidationError{
			Kind:    KindAccount,
			Check:   CheckSegmentRange,
			Segment: "type",
			Detail:  fmt.Sprintf("unknown account type code %s", m[2]),
		}
	}
	base := m[1] + m[2] + m[3] + m[4]
	if pair := checkPair(base); pair != m[5] {
		return &ValidationError{
			Kind:    KindAccount,
			Check:   CheckChecksum,
			Segment: "check pair",
			Detail:  fmt.Sprintf("checksum mismatch: have %s, want %s", m[5], pair),
		}
	}
	return nil
}

func validateTransaction(raw string) error {
	m := transactionPattern.FindStringSubmatch(raw)
	if m == nil {
		return &ValidationError{Kind: KindTransaction, Check: CheckFormat, Detail: "expected TRX-YYYYMMDD-SSSSSS"}
	}
	if _, err := time.Parse("20060102", m[1]); err != nil {
		return &ValidationError{
			Kind:    KindTransaction,
			Check:   CheckSegmentRange,
			Segment: "date",
			Detail:  fmt.Sprintf("%s is not a calendar date", m[1]),
		}
	}
	if seq, _ := strconv.Atoi(m[2]); seq == 0 {
		return &ValidationError{Kind: KindTransaction, Check: CheckSegmentRange, Segment: "sequence", Detail: "sequence must be at least 1"}
	}
	return nil
}

func validateEmployee(raw string) error {
	if employeePattern.FindStringSubmatch(raw) == nil {
		return &ValidationError{Kind: KindEmployee, Check: CheckFormat, Detail: "expected ZZBB-DD-EEEE"}
	}
	return nil
}

// Luhn: walk the base digits right to left, double every second digit,
// fold anything over 9 by subtracting 9, sum, and take (10 - sum%10) % 10.
func luhnDigit(digits string) int {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}
	return (10 - sum%10) % 10
}

// checkPair derives the two-digit account check value: the first digit is the
// Luhn digit over the 13 base digits, the second is the Luhn digit over the
// base extended by the first.
func checkPair(base string) string {
	d1 := luhnDigit(base)
	d2 := luhnDigit(base + strconv.Itoa(d1))
	return fmt.Sprintf("%d%d", d1, d2)
}

// Allocator hands out monotonic sequence numbers scoped by identifier kind
// plus a caller-defined scope such as branch or calendar day. Numbers are
// never reused; implementations must serialize allocation.
type Allocator interface {
	Next(ctx context.Context, kind Kind, scope string) (int64, error)
}

// Generator assembles identifiers from time, seed segments and an injected
// Allocator. A fixed clock can be supplied for deterministic tests.
type Generator struct {
	seq Allocator
	now func() time.Time
}

func NewGenerator(seq Allocator) *Generator {
	return &Generator{seq: seq, now: time.Now}
}

// NewGeneratorAt is NewGenerator with an explicit clock.
func NewGeneratorAt(seq Allocator, now func() time.Time) *Generator {
	return &Generator{seq: seq, now: now}
}

// CustomerID builds YYDDD-BBBBB-SSSS for the current date and given branch.
func (g *Generator) CustomerID(ctx context.Context, branch string) (string, error) {
	if err := requireDigits("branch", branch, 5); err != nil {
		return "", err
	}
	t := g.now()
	period := fmt.Sprintf("%02d%03d", t.Year()%100, t.YearDay())
	seq, err := g.next(ctx, KindCustomer, period+"-"+branch, 4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", period, branch, seq), nil
}

// AccountNumber builds BBBBB-AATT-CCCCCC-CC with a freshly allocated serial
// and the trailing Luhn check pair.
func (g *Generator) AccountNumber(ctx context.Context, branch, typeCode, subtypeCode string) (string, error) {
	if err := requireDigits("branch", branch, 5); err != nil {
		return "", err
	}
	if _, ok := accountTypeCodes[typeCode]; !ok {
		return "", &ValidationError{Kind: KindAccount, Check: CheckSegmentRange, Segment: "type", Detail: fmt.Sprintf("unknown account type code %s", typeCode)}
	}
	if err := requireDigits("subtype", subtypeCode, 2); err != nil {
		return "", err
	}
	serial, err := g.next(ctx, KindAccount, branch+"-"+typeCode, 6)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("%s%s%s%06d", branch, typeCode, subtypeCode, serial)
	return fmt.Sprintf("%s-%s%s-%06d-%s", branch, typeCode, subtypeCode, serial, checkPair(base)), nil
}

// TransactionID builds TRX-YYYYMMDD-SSSSSS with a per-day sequence.
func (g *Generator) TransactionID(ctx context.Context) (string, error) {
	day := g.now().Format("20060102")
	seq, err := g.next(ctx, KindTransaction, day, 6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TRX-%s-%06d", day, seq), nil
}

// EmployeeID builds ZZBB-DD-EEEE.
func (g *Generator) EmployeeID(ctx context.Context, zone, dept, designation string) (string, error) {
	if err := requireDigits("zone", zone, 2); err != nil {
		return "", err
	}
	if err := requireDigits("branch/dept", dept, 2); err != nil {
		return "", err
	}
	if err := requireDigits("designation", designation, 2); err != nil {
		return "", err
	}
	seq, err := g.next(ctx, KindEmployee, zone+dept+"-"+designation, 4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s-%s-%04d", zone, dept, designation, seq), nil
}

func (g *Generator) next(ctx context.Context, kind Kind, scope string, width int) (int64, error) {
	seq, err := g.seq.Next(ctx, kind, scope)
	if err != nil {
		return 0, err
	}
	max := int64(1)
	for i := 0; i < width; i++ {
		max *= 10
	}
	if seq >= max {
		return 0, fmt.Errorf("%w: %s scope %s", ErrSequenceExhausted, kind, scope)
	}
	return seq, nil
}

func requireDigits(segment, value string, width int) error {
	if len(value) != width || strings.IndexFunc(value, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return &ValidationError{
			Check:   CheckFormat,
			Segment: segment,
			Detail:  fmt.Sprintf("%s must be %d digits", segment, width),
		}
	}
	return nil
}
