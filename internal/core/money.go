// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. On the wire they travel as plain JSON
// numbers in currency units (e.g. 40.5), converted through decimal arithmetic
// so that no float rounding leaks into the cents.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in euro cents. It may be negative (balances).
type Money struct {
	Cents int64
}

// ParseAmount converts a user-typed decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted, as are
// exponents ("1e3"). Values are rounded half-up to the cent. Negative
// values and non-numeric input are rejected; zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return fromDecimal(d)
}

// MoneyFromFloat converts a float amount in euros, rounding to the cent.
func MoneyFromFloat(euros float64) Money {
	return Money{Cents: decimal.NewFromFloat(euros).Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount in euros as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the euro value as a float64 for display purposes.
// Use Cents for arithmetic.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		m.Cents = 0
		return nil
	}
	// Accept quoted numbers as well; some clients stringify decimals.
	b = bytes.Trim(b, `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return ErrInvalidAmount
	}
	v, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// maxIntDigits bounds the integer part of an amount so cents fit in int64.
const maxIntDigits = 16

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Money{}, nil
	}
	// Rounding rescales the coefficient, so the exponent is checked first.
	intDigits := d.NumDigits() + int(d.Exponent())
	if intDigits > maxIntDigits {
		return Money{}, ErrInvalidAmount
	}
	if intDigits < -2 {
		// Below a tenth of a cent.
		return Money{}, nil
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.New(1<<62, 0)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}
