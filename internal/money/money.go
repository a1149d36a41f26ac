// Package money implements exact decimal-cent amounts.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents is the largest magnitude an amount may have.
const MaxCents int64 = 999_999_999_999_999

var (
	ErrInvalidAmount = errors.New("invalid amount")

	maxDecimal = decimal.NewFromInt(MaxCents)
)

// Money is an amount in minor currency units (cents).
// The zero value is 0.00.
type Money struct {
	cents int64
}

// Zero is 0.00.
var Zero = Money{}

// FromCents wraps a trusted cent count.
func FromCents(cents int64) Money {
	return Money{cents: cents}
}

// Parse reads a decimal string such as "12.34", "-0.5" or "1e3" and rounds it
// half away from zero to whole cents.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return fromDecimal(d)
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromFloat converts a float amount, rejecting NaN and infinities.
// Prefer Parse: floats are accepted only at the boundary.
func FromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return fromDecimal(decimal.NewFromFloat(f))
}

// maxIntDigits is the number of integer digits MaxCents allows.
const maxIntDigits = 13

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Zero, nil
	}
	// magnitude must be bounded before Round, which scales by the exponent
	intDigits := int64(d.NumDigits()) + int64(d.Exponent())
	if intDigits > maxIntDigits+1 {
		return Zero, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if intDigits < -2 {
		// below 0.001, rounds to zero
		return Zero, nil
	}

	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxDecimal) {
		return Zero, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Money{cents: cents.IntPart()}, nil
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.cents }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

func (m Money) Add(o Money) Money { return Money{cents: m.cents + o.cents} }
func (m Money) Sub(o Money) Money { return Money{cents: m.cents - o.cents} }
func (m Money) Neg() Money        { return Money{cents: -m.cents} }

func (m Money) Abs() Money {
	if m.cents < 0 {
		return m.Neg()
	}
	return m
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.cents < o.cents:
		return -1
	case m.cents > o.cents:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool { return m.cents == o.cents }
func (m Money) IsZero() bool       { return m.cents == 0 }
func (m Money) IsNegative() bool   { return m.cents < 0 }
func (m Money) IsPositive() bool   { return m.cents > 0 }

func (m Money) Sign() int {
	return m.Cmp(Zero)
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.cents < b.cents {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total int64
	for _, a := range amounts {
		total += a.cents
	}
	return Money{cents: total}
}

// String formats the amount with exactly two decimals, e.g. "-3.05".
func (m Money) String() string {
	sign := ""
	c := m.cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
// Numbers are parsed from their text, never through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as BIGINT cents.
func (m Money) Value() (driver.Value, error) {
	return m.cents, nil
}

// Scan reads BIGINT cents.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		m.cents = v
	case []byte:
		return m.scanText(string(v))
	case string:
		return m.scanText(v)
	case nil:
		m.cents = 0
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}

func (m *Money) scanText(s string) error {
	var cents int64
	if _, err := fmt.Sscan(s, &cents); err != nil {
		return fmt.Errorf("money: cannot scan %q: %w", s, err)
	}
	m.cents = cents
	return nil
}
