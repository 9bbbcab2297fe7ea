// Package money implements the fixed-precision decimal arithmetic the
// grid state machine uses for every price, size and balance. Binary
// floating point never appears on these paths: all values are
// github.com/shopspring/decimal.Decimal underneath.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DivisionScale is the internal rounding scale used by Div; division
// rounds half-to-even to this many fractional digits.
const DivisionScale = 12

// DefaultDustThreshold is the default epsilon below which a quantity
// is considered dust, expressed in the base unit.
var DefaultDustThreshold = decimal.New(1, -8) // 1e-8

// Money is a decimal quantity: a price, a size or a balance, or a
// signed percent offset. FromString only accepts non-negative values;
// Neg, Sub and Percent can produce negative ones. The zero value is
// zero.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{d: decimal.Zero}

// FromString parses s as a decimal. Returns apperrors-compatible error
// text on malformed input; callers needing ErrInvalidConfig wrap it.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("money %q must be non-negative", s)
	}
	return Money{d: d}, nil
}

// FromFloat constructs a Money from a float64. Reserved for
// interoperating with exchange ports that only return float64 (e.g.
// legacy REST JSON) — never used for arithmetic that feeds back into
// an order request without a FromString round trip first in tests.
func FromFloat(f float64) Money {
	return Money{d: decimal.NewFromFloat(f)}
}

// Decimal exposes the underlying decimal.Decimal for callers (e.g. the
// exchange adapters) that must format it for a wire request.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) String() string { return m.d.String() }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o. The result is not clamped to zero; callers
// computing rung depths or diffs that must stay non-negative should
// check IsNegative on the result.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Mul returns m * o.
func (m Money) Mul(o Money) Money { return Money{d: m.d.Mul(o.d)} }

// Div returns m / o rounded half-to-even to DivisionScale fractional
// digits. Panics if o is zero — callers must validate divisors
// (e.g. numberOfOrders) before calling.
func (m Money) Div(o Money) Money {
	if o.d.IsZero() {
		panic("money: division by zero")
	}
	return Money{d: m.d.DivRound(o.d, DivisionScale)}
}

// Cmp compares m to o: -1, 0 or 1.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Half returns m / 2, rounded half-to-even to DivisionScale digits.
func (m Money) Half() Money {
	return Money{d: m.d.DivRound(decimal.NewFromInt(2), DivisionScale)}
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsNegative reports whether m is strictly negative.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsDust reports whether m is at or below threshold. A zero threshold
// falls back to DefaultDustThreshold.
func IsDust(m Money, threshold Money) bool {
	if threshold.d.IsZero() {
		threshold = Money{d: DefaultDustThreshold}
	}
	return m.d.Cmp(threshold.d) <= 0
}

// PercentToRatio converts a percent value (1.0 meaning "1 percent") to
// its ratio form (0.01).
func PercentToRatio(percent Money) Money {
	return percent.Div(Money{d: decimal.NewFromInt(100)})
}

// ApplyPercent returns v + v*(percent/100). A negative percent reduces
// v; the buy-grid and sell-grid rung generators share this single
// operation with opposite-signed inputs.
func ApplyPercent(v Money, percent Money) Money {
	ratio := PercentToRatio(percent)
	return Money{d: v.d.Add(v.d.Mul(ratio.d))}
}

// Percent constructs a Money representing a percent value (may be
// negative — e.g. the buy-side major level is applied as a negative
// percent relative to the sell side's positive one).
func Percent(p float64) Money {
	return Money{d: decimal.NewFromFloat(p)}
}

// Neg returns -m. Used to flip a percent offset for the buy side.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// FromInt constructs an exact integer Money, e.g. a rung count used as
// a divisor.
func FromInt(i int) Money { return Money{d: decimal.NewFromInt(int64(i))} }

// MarshalJSON delegates to decimal.Decimal so a Money round-trips
// through the snapshot store as a JSON string, not a lossy float.
func (m Money) MarshalJSON() ([]byte, error) { return m.d.MarshalJSON() }

// UnmarshalJSON delegates to decimal.Decimal.
func (m *Money) UnmarshalJSON(data []byte) error { return m.d.UnmarshalJSON(data) }
