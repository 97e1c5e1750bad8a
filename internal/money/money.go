package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMoneyFormat is returned when a string is not a valid decimal literal
	ErrMoneyFormat = errors.New("invalid money format")

	// ErrDivisionByZero is returned by Div when the divisor is zero
	ErrDivisionByZero = errors.New("money division by zero")
)

// Rounding represents how results are brought back to a context's scale
type Rounding string

const (
	RoundDown Rounding = "down" // toward zero (truncate)
	RoundUp   Rounding = "up"   // away from zero
)

// ParseRounding converts a configuration value into a Rounding
func ParseRounding(s string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(s))) {
	case RoundDown:
		return RoundDown, nil
	case RoundUp:
		return RoundUp, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Context carries the scale and rounding mode every Money value is bound to
type Context struct {
	Scale    int32
	Rounding Rounding
}

// Default is the context used for transaction amounts: 7 fractional digits, truncated
var Default = Context{Scale: 7, Rounding: RoundDown}

// Validate ensures the context can be used to build values
func (c Context) Validate() error {
	if c.Scale < 0 {
		return errors.New("money scale must be non-negative")
	}

	if c.Rounding != RoundDown && c.Rounding != RoundUp {
		return fmt.Errorf("unknown rounding mode %q", c.Rounding)
	}

	return nil
}

func (c Context) round(d decimal.Decimal) decimal.Decimal {
	if c.Rounding == RoundUp {
		return d.RoundUp(c.Scale)
	}

	return d.RoundDown(c.Scale)
}

// Parse builds a Money from a decimal literal such as "1.00" or "-0.0000003"
func (c Context) Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrMoneyFormat, s)
	}

	return c.FromDecimal(d), nil
}

// MustParse is like Parse but panics on malformed input
func (c Context) MustParse(s string) Money {
	m, err := c.Parse(s)
	if err != nil {
		panic(err)
	}

	return m
}

// FromDecimal rescales d into the context
func (c Context) FromDecimal(d decimal.Decimal) Money {
	return Money{value: c.round(d), ctx: c}
}

// FromMoney rescales another Money into the context
func (c Context) FromMoney(m Money) Money {
	return c.FromDecimal(m.value)
}

// Zero returns 0 in the context
func (c Context) Zero() Money {
	return Money{value: decimal.Zero, ctx: c}
}

// Parse builds a Money in the Default context
func Parse(s string) (Money, error) {
	return Default.Parse(s)
}

// MustParse builds a Money in the Default context and panics on malformed input
func MustParse(s string) Money {
	return Default.MustParse(s)
}

// Zero returns 0 in the Default context
func Zero() Money {
	return Default.Zero()
}

// Money is an immutable fixed-point decimal amount.
// Every operation returns a new value rescaled to the receiver's context.
type Money struct {
	value decimal.Decimal
	ctx   Context
}

// Context returns the scale and rounding mode the value is bound to
func (m Money) Context() Context {
	return m.ctx
}

// Decimal exposes the underlying decimal value
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

func (m Money) coerce(o Money) decimal.Decimal {
	if o.ctx == m.ctx {
		return o.value
	}

	return m.ctx.round(o.value)
}

// Add returns m + o
func (m Money) Add(o Money) Money {
	return m.ctx.FromDecimal(m.value.Add(m.coerce(o)))
}

// Sub returns m - o
func (m Money) Sub(o Money) Money {
	return m.ctx.FromDecimal(m.value.Sub(m.coerce(o)))
}

// Mul returns m * o
func (m Money) Mul(o Money) Money {
	return m.ctx.FromDecimal(m.value.Mul(m.coerce(o)))
}

// MulInt returns m * n
func (m Money) MulInt(n int) Money {
	return m.ctx.FromDecimal(m.value.Mul(decimal.NewFromInt(int64(n))))
}

// Div returns m / o computed to the context scale with the context rounding mode
func (m Money) Div(o Money) (Money, error) {
	divisor := m.coerce(o)
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}

	q, r := m.value.QuoRem(divisor, m.ctx.Scale)
	if m.ctx.Rounding == RoundUp && !r.IsZero() {
		ulp := decimal.New(1, -m.ctx.Scale)
		if m.value.Sign()*divisor.Sign() < 0 {
			ulp = ulp.Neg()
		}
		q = q.Add(ulp)
	}

	return Money{value: q, ctx: m.ctx}, nil
}

// DivInt returns m / n
func (m Money) DivInt(n int) (Money, error) {
	return m.Div(m.ctx.FromDecimal(decimal.NewFromInt(int64(n))))
}

// Abs returns |m|
func (m Money) Abs() Money {
	return Money{value: m.value.Abs(), ctx: m.ctx}
}

// Neg returns -m
func (m Money) Neg() Money {
	return Money{value: m.value.Neg(), ctx: m.ctx}
}

// SetNegative forces the sign of m
func (m Money) SetNegative(negative bool) Money {
	if negative {
		return Money{value: m.value.Abs().Neg(), ctx: m.ctx}
	}

	return m.Abs()
}

// Cmp returns -1, 0 or 1 when m is less than, equal to or greater than o
func (m Money) Cmp(o Money) int {
	return m.value.Cmp(m.coerce(o))
}

// Equal reports whether m and o have the same amount
func (m Money) Equal(o Money) bool {
	return m.Cmp(o) == 0
}

// LessThan reports whether m < o
func (m Money) LessThan(o Money) bool {
	return m.Cmp(o) < 0
}

// GreaterThan reports whether m > o
func (m Money) GreaterThan(o Money) bool {
	return m.Cmp(o) > 0
}

// Min returns the smaller of m and o
func (m Money) Min(o Money) Money {
	if o.LessThan(m) {
		return m.ctx.FromMoney(o)
	}

	return m
}

// IsNegative reports whether m < 0
func (m Money) IsNegative() bool {
	return m.value.IsNegative()
}

// IsZero reports whether m == 0
func (m Money) IsZero() bool {
	return m.value.IsZero()
}

// String returns the plain decimal form with exactly Scale fractional digits
func (m Money) String() string {
	return m.value.StringFixed(m.ctx.Scale)
}

// MarshalText implements encoding.TextMarshaler
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Values without a context are bound to Default.
func (m *Money) UnmarshalText(text []byte) error {
	ctx := m.ctx
	if ctx == (Context{}) {
		ctx = Default
	}

	parsed, err := ctx.Parse(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
