// Package types provides the numeric types used by the ledger.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Quantity is a signed fixed-point quantity with 4 decimal places (scale = 1e4).
// Kilograms, liters and units all share it; stored as BIGINT (scaled integer).
type Quantity int64

const (
	QuantityScale  int64 = 10_000
	quantityDigits int32 = 4
)

// MaxQuantity is the largest representable quantity, MinQuantity its negation.
const (
	MaxQuantity Quantity = math.MaxInt64
	MinQuantity Quantity = -MaxQuantity
)

// maxWhole bounds the integer part so that whole*scale+frac cannot overflow.
const maxWhole = (math.MaxInt64 - (QuantityScale - 1)) / QuantityScale

// ErrQuantityOutOfRange is returned when a value does not fit in a Quantity.
var ErrQuantityOutOfRange = errors.New("quantity out of range")

// Qty returns a whole-number quantity.
func Qty(n int64) Quantity { return Quantity(n * QuantityScale) }

// NewQuantityFromFloat64 rounds v to 4 fractional digits. Values outside the
// Quantity range saturate; use QuantityFromFloat64 to detect them.
func NewQuantityFromFloat64(v float64) Quantity {
	q, err := QuantityFromFloat64(v)
	if err != nil {
		if v < 0 {
			return MinQuantity
		}
		return MaxQuantity
	}
	return q
}

// QuantityFromFloat64 rounds v to 4 fractional digits. NaN, infinities and
// values beyond the Quantity range are rejected.
func QuantityFromFloat64(v float64) (Quantity, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrQuantityOutOfRange, v)
	}
	scaled := math.Round(v * float64(QuantityScale))
	// float64(MaxInt64) rounds up to 2^63, which itself does not fit.
	if scaled >= math.MaxInt64 || scaled <= -math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v", ErrQuantityOutOfRange, v)
	}
	return Quantity(scaled), nil
}

// NewQuantityFromDecimal rounds d half away from zero to 4 fractional digits.
// Values outside the Quantity range saturate.
func NewQuantityFromDecimal(d decimal.Decimal) Quantity {
	q, err := QuantityFromDecimal(d)
	if err != nil {
		if d.IsNegative() {
			return MinQuantity
		}
		return MaxQuantity
	}
	return q
}

// QuantityFromDecimal rounds d to 4 fractional digits and rejects values
// beyond the Quantity range.
func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	scaled := d.Shift(quantityDigits).Round(0)
	if scaled.Abs().GreaterThan(MaxQuantity.rawDecimal()) {
		return 0, fmt.Errorf("%w: %s", ErrQuantityOutOfRange, d.String())
	}
	return Quantity(scaled.IntPart()), nil
}

func (q Quantity) rawDecimal() decimal.Decimal { return decimal.NewFromInt(int64(q)) }

// ParseQuantity parses a decimal string such as "12.5" or "-3".
func ParseQuantity(s string) (Quantity, error) {
	return parseQuantityString(s)
}

// MustQuantity parses s and panics on error. Use only for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := parseQuantityString(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal returns the exact decimal value of q.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -quantityDigits) }

// Mul multiplies two quantities (liters per unit × units), rounding to 4 digits.
// Products beyond the Quantity range saturate; see CheckedMul.
func (q Quantity) Mul(o Quantity) Quantity {
	return NewQuantityFromDecimal(q.Decimal().Mul(o.Decimal()))
}

// CheckedMul is Mul that reports ErrQuantityOutOfRange instead of saturating.
func (q Quantity) CheckedMul(o Quantity) (Quantity, error) {
	return QuantityFromDecimal(q.Decimal().Mul(o.Decimal()))
}

// IsWhole reports whether q has no fractional part.
func (q Quantity) IsWhole() bool { return int64(q)%QuantityScale == 0 }

// CheckedAdd returns q+o, or ErrQuantityOutOfRange when the sum overflows.
func (q Quantity) CheckedAdd(o Quantity) (Quantity, error) {
	if (o > 0 && q > MaxQuantity-o) || (o < 0 && q < MinQuantity-o) {
		return 0, fmt.Errorf("%w: %s + %s", ErrQuantityOutOfRange, q.Display(), o.Display())
	}
	return q + o, nil
}

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Display renders q without trailing zeros ("12.5", "10"), as shown to operators.
func (q Quantity) Display() string { return q.Decimal().String() }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (4 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := parseQuantityString(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return QuantityFromFloat64(f)
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	intPartStr, fracStr, _ := strings.Cut(s, ".")
	if strings.ContainsAny(intPartStr, "+-") || strings.ContainsAny(fracStr, "+-") {
		return 0, fmt.Errorf("parse quantity: misplaced sign in %q", s)
	}
	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}
	if intPart > maxWhole {
		return 0, fmt.Errorf("%w: %s", ErrQuantityOutOfRange, s)
	}

	// Pad right, truncate extra digits.
	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}
