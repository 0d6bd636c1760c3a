// Package core provides money parsing and handling utilities.
//
// Amounts travel through the system as decimal text (Amount) and are parsed
// into integer cents (Money) before any arithmetic takes place.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type (
	// Money is a signed amount in cents.
	Money struct {
		Cents int64
	}

	// Amount is a monetary value as delivered by a store or a client: decimal
	// text that has not been parsed yet.
	Amount string
)

// MaxAmount is the largest amount any backend stores, the NUMERIC(14,2) bound.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Cents builds a Money value from cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseAmount converts a non-negative decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, exponents, thousands
// separators and anything that is not a plain decimal are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents
//	ParseAmount("12.344") -> 1234 cents
func ParseAmount(s string) (Money, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}
	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return fromDecimal(d, raw)
}

// ParseAmountValue accepts the shapes an amount can arrive in from a store:
// decimal strings, Amount, json.Number, decimal.Decimal, integers and floats.
func ParseAmountValue(v any) (Money, error) {
	switch x := v.(type) {
	case nil:
		return Money{}, fmt.Errorf("%w: missing value", ErrInvalidAmount)
	case Money:
		if x.Cents < 0 {
			return Money{}, fmt.Errorf("%w: negative value", ErrInvalidAmount)
		}
		return x, nil
	case Amount:
		return ParseAmount(string(x))
	case string:
		return ParseAmount(x)
	case json.Number:
		return ParseAmount(x.String())
	case decimal.Decimal:
		return fromDecimal(x, x.String())
	case int:
		return fromDecimal(decimal.NewFromInt(int64(x)), fmt.Sprint(x))
	case int64:
		return fromDecimal(decimal.NewFromInt(x), fmt.Sprint(x))
	case int32:
		return fromDecimal(decimal.NewFromInt(int64(x)), fmt.Sprint(x))
	case float32:
		return parseFloat(float64(x))
	case float64:
		return parseFloat(x)
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

func parseFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return fromDecimal(decimal.NewFromFloat(f), fmt.Sprint(f))
}

func fromDecimal(d decimal.Decimal, raw string) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, raw)
	}
	if d.GreaterThan(MaxAmount) {
		return Money{}, fmt.Errorf("%w: value too large %q", ErrInvalidAmount, raw)
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// SafeAdd adds o to m and reports ErrAmountOverflow instead of wrapping.
func (m Money) SafeAdd(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) || (o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, m, o)
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) IsNegative() bool { return m.Cents < 0 }

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders m with a dot and two fraction digits, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Reais returns the value as a float64 for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a number or a decimal string. Negative values are allowed
// because balances can be negative.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
	}
	*m = Money{Cents: d.Round(2).Shift(2).IntPart()}
	return nil
}

// AmountError reports a transaction whose amount could not be parsed. The whole
// batch is rejected when it occurs.
type AmountError struct {
	TransactionID string
	Value         Amount
	Err           error
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("transaction %q: amount %q: %v", e.TransactionID, string(e.Value), e.Err)
}

func (e *AmountError) Unwrap() error { return e.Err }

// AmountOf renders m as an Amount.
func AmountOf(m Money) Amount {
	return Amount(m.String())
}

// Money parses the amount.
func (a Amount) Money() (Money, error) {
	return ParseAmount(string(a))
}

func (a Amount) String() string {
	return string(a)
}

// MarshalJSON writes well-formed amounts as JSON numbers and anything else as a
// string, so malformed stored values survive a round trip unchanged.
func (a Amount) MarshalJSON() ([]byte, error) {
	if m, err := a.Money(); err == nil {
		return []byte(m.String()), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts a JSON number or string. The value is kept as text;
// parsing happens where the amount is used.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*a = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		*a = Amount(strings.TrimSpace(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		*a = Amount(n.String())
	}
	return nil
}
