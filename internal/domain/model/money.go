package model

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxIntegerDigits mirrors a NUMERIC(12,2) column.
const (
	maxIntegerDigits = 10
	maxCents         = 999_999_999_999
	maxExponent      = 20
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is a fixed-point amount with two fractional digits, kept in cents.
type Money struct {
	Cents int64
}

// ParseMoney converts a decimal string such as "12.34", "12,34", "-5" or
// "1.5e3" into Money. A third fractional digit rounds half-up; further digits
// are ignored.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	mantissa, exponent, hasExp := cutExponent(s)
	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	if strings.Contains(fracPart, ".") || (intPart == "" && fracPart == "") {
		return Money{}, ErrInvalidAmount
	}
	if hasExp {
		exp, err := strconv.Atoi(exponent)
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return Money{}, ErrInvalidAmount
		}
		intPart, fracPart = shiftPoint(intPart, fracPart, exp)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return Money{}, ErrInvalidAmount
	}
	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart) > maxIntegerDigits {
		return Money{}, fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, maxIntegerDigits)
	}

	var units int64
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return Money{}, ErrInvalidAmount
		}
		units = v
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		frac += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		frac++
	}

	cents := units*100 + frac
	if cents > maxCents {
		return Money{}, fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, maxIntegerDigits)
	}
	if negative {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// cutExponent splits "1.5e3" into "1.5" and "3".
func cutExponent(s string) (mantissa, exponent string, ok bool) {
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return s[:i], strings.TrimPrefix(s[i+1:], "+"), true
	}
	return s, "", false
}

// shiftPoint moves the decimal point of intPart.fracPart by exp places.
func shiftPoint(intPart, fracPart string, exp int) (string, string) {
	digits := intPart + fracPart
	point := len(intPart) + exp
	switch {
	case point <= 0:
		return "", strings.Repeat("0", -point) + digits
	case point >= len(digits):
		return digits + strings.Repeat("0", point-len(digits)), ""
	}
	return digits[:point], digits[point:]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Positive reports whether the amount is strictly greater than zero.
func (m Money) Positive() bool { return m.Cents > 0 }

// String renders the amount with exactly two decimals, e.g. "-12.05".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidAmount
	}
	raw := string(data)
	if len(data) > 1 && data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return ErrInvalidAmount
		}
		raw = unquoted
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
