// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents. Decimal text coming from the
// records backend is parsed with shopspring/decimal and rounded half away
// from zero to two places.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	Money struct {
		Cents int64
	}

	// Amount is a Money value that may be absent on the wire.
	Amount struct {
		Money
		Present bool
	}
)

// ParseDecimalToCents converts a decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators,
// thousands grouping with the other separator (1,234.56 or 1.234,56) and
// rounds to two places. Negative values are allowed; callers decide
// whether they are meaningful.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("1,234.56") -> 123456, nil
//	ParseDecimalToCents("abc")    -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d).Cents, nil
}

// normalizeDecimal rewrites s with a single dot as decimal separator. When
// both separators appear the last one is the decimal point; a separator
// repeated on its own is grouping. Malformed grouping is left untouched so
// parsing rejects it.
func normalizeDecimal(s string) string {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		group, point := ".", ","
		if dot > comma {
			group, point = ",", "."
		}
		i := strings.LastIndex(s, point)
		if !validGrouping(s[:i], group) {
			return s
		}
		return strings.ReplaceAll(s[:i], group, "") + "." + s[i+1:]
	case strings.Count(s, ",") == 1:
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") > 1 && validGrouping(s, ","):
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1 && validGrouping(s, "."):
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// validGrouping reports whether every group after the first has exactly
// three digits.
func validGrouping(s, sep string) bool {
	parts := strings.Split(s, sep)
	if parts[0] == "" || parts[0] == "-" {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 || strings.Trim(p, "0123456789") != "" {
			return false
		}
	}
	return true
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Cents is a shorthand constructor.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// NonNegative clamps negative values to zero.
func (m Money) NonNegative() Money {
	if m.Cents < 0 {
		return Money{}
	}
	return m
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal returns the value in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the major-unit value for display and charting.
// Use cents for calculations.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String formats the amount with two decimals, e.g. "350.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var a Amount
	if err := a.UnmarshalJSON(data); err != nil {
		return err
	}
	if !a.Present {
		return ErrInvalidAmount
	}
	*m = a.Money
	return nil
}

// Value returns the amount, zero when absent.
func (a Amount) Value() Money {
	if !a.Present {
		return Money{}
	}
	return a.Money
}

// Some builds a present Amount.
func Some(cents int64) Amount {
	return Amount{Money: Money{Cents: cents}, Present: true}
}

// MarshalJSON encodes an absent amount as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Present {
		return []byte("null"), nil
	}
	return a.Money.MarshalJSON()
}

// UnmarshalJSON never fails on malformed input: null, empty or
// unparseable amounts decode as absent so one bad record cannot abort
// decoding of a whole collection.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = s
	}
	cents, err := ParseDecimalToCents(raw)
	if err != nil {
		return nil
	}
	*a = Some(cents)
	return nil
}
