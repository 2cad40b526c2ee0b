// Package core provides the domain types, money and date handling, and the
// pure aggregation functions behind summaries, breakdowns, trends and budget
// status.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). Amounts are stored and summed as
// integers and rendered as two-place decimals.
type Money struct {
	Cents int64
}

// NewMoney returns Money for the given number of cents.
func NewMoney(cents int64) Money {
	return Money{Cents: cents}
}

// ParseDecimalToCents converts a decimal string to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, spaces
// are ignored and the third decimal place is rounded half away from zero.
// Negative values are allowed; callers that require a positive amount check
// the result.
//
//	ParseDecimalToCents("12,34")    -> 1234
//	ParseDecimalToCents("-1 500.5") -> -150050
//	ParseDecimalToCents("12.345")   -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return decimalToCents(d)
}

func decimalToCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if !c.IsInteger() || c.Abs().GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// Decimal returns the amount as a decimal with two places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	cents, err := decimalToCents(d)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// Percent returns part/whole*100 rounded to one decimal, or 0 when whole is 0.
func Percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(whole.Cents), 8).
		Round(1)
	return p.InexactFloat64()
}
