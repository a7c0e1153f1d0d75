package solana

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NativeScale is the number of decimals of the native currency (lamports per SOL).
const NativeScale uint8 = 9

// NumberWithScale is an exact fixed-point value: Magnitude / 10^Scale.
// Arithmetic and ordering are only defined between values of the same scale.
type NumberWithScale struct {
	magnitude decimal.Decimal
	scale     uint8
}

func NewNumberWithScale(magnitude int64, scale uint8) NumberWithScale {
	return NumberWithScale{magnitude: decimal.NewFromInt(magnitude), scale: scale}
}

// ParseNumberWithScale parses an integer magnitude given as a decimal string, e.g. a token
// amount "1500" or a json.Number.
func ParseNumberWithScale(magnitude string, scale uint8) (NumberWithScale, error) {
	d, err := decimal.NewFromString(magnitude)
	if err != nil {
		return NumberWithScale{}, fmt.Errorf("%w: invalid amount %q: %v", ErrMalformedPayload, magnitude, err)
	}
	if !d.IsInteger() {
		return NumberWithScale{}, fmt.Errorf("%w: amount %q is not an integer", ErrMalformedPayload, magnitude)
	}
	return NumberWithScale{magnitude: d.Truncate(0), scale: scale}, nil
}

// Lamports returns a native currency amount.
func Lamports(v int64) NumberWithScale {
	return NewNumberWithScale(v, NativeScale)
}

// ZeroAt returns zero at the given scale, used to seed accumulations.
func ZeroAt(scale uint8) NumberWithScale {
	return NumberWithScale{magnitude: decimal.Zero, scale: scale}
}

func (n NumberWithScale) Scale() uint8 { return n.scale }

// Magnitude returns the integer magnitude in base units.
func (n NumberWithScale) Magnitude() decimal.Decimal { return n.magnitude }

// Int64 returns the magnitude truncated to int64. Only meaningful when it fits.
func (n NumberWithScale) Int64() int64 { return n.magnitude.IntPart() }

func (n NumberWithScale) Sign() int { return n.magnitude.Sign() }

func (n NumberWithScale) IsZero() bool { return n.magnitude.IsZero() }

func (n NumberWithScale) Abs() NumberWithScale {
	return NumberWithScale{magnitude: n.magnitude.Abs(), scale: n.scale}
}

func (n NumberWithScale) Neg() NumberWithScale {
	return NumberWithScale{magnitude: n.magnitude.Neg(), scale: n.scale}
}

// Zero returns zero at the same scale as n.
func (n NumberWithScale) Zero() NumberWithScale {
	return ZeroAt(n.scale)
}

func (n NumberWithScale) checkScale(o NumberWithScale) error {
	if n.scale != o.scale {
		return fmt.Errorf("%w: %d and %d", ErrIncompatibleScale, n.scale, o.scale)
	}
	return nil
}

func (n NumberWithScale) Add(o NumberWithScale) (NumberWithScale, error) {
	if err := n.checkScale(o); err != nil {
		return NumberWithScale{}, err
	}
	return NumberWithScale{magnitude: n.magnitude.Add(o.magnitude), scale: n.scale}, nil
}

func (n NumberWithScale) Sub(o NumberWithScale) (NumberWithScale, error) {
	if err := n.checkScale(o); err != nil {
		return NumberWithScale{}, err
	}
	return NumberWithScale{magnitude: n.magnitude.Sub(o.magnitude), scale: n.scale}, nil
}

// Cmp returns -1, 0 or +1 comparing n to o.
func (n NumberWithScale) Cmp(o NumberWithScale) (int, error) {
	if err := n.checkScale(o); err != nil {
		return 0, err
	}
	return n.magnitude.Cmp(o.magnitude), nil
}

func (n NumberWithScale) LessThan(o NumberWithScale) (bool, error) {
	c, err := n.Cmp(o)
	return c < 0, err
}

func (n NumberWithScale) GreaterThan(o NumberWithScale) (bool, error) {
	c, err := n.Cmp(o)
	return c > 0, err
}

// Equal reports whether both the magnitude and the scale match.
func (n NumberWithScale) Equal(o NumberWithScale) bool {
	return n.scale == o.scale && n.magnitude.Equal(o.magnitude)
}

// Decimal returns the display value magnitude / 10^scale.
func (n NumberWithScale) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(n.magnitude.BigInt(), -int32(n.scale))
}

// Float returns an approximate value for display and export only.
func (n NumberWithScale) Float() float64 {
	return n.Decimal().InexactFloat64()
}

func (n NumberWithScale) String() string {
	return n.Decimal().StringFixed(int32(n.scale))
}

// Sum adds all values, starting from zero at the given scale.
func Sum(scale uint8, values ...NumberWithScale) (NumberWithScale, error) {
	total := ZeroAt(scale)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return NumberWithScale{}, err
		}
	}
	return total, nil
}
