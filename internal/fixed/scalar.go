package fixed

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

// Scalar is a deterministic fixed-point number: a signed 64-bit integer
// interpreted as the real value raw/Scale. All simulation arithmetic goes
// through Scalar so two machines running the same frames agree bit for bit.
type Scalar int64

// Scale is the fixed-point denominator. Six decimal digits of precision.
const Scale = 1_000_000

const (
	// Zero is the additive identity.
	Zero Scalar = 0
	// One is the multiplicative identity.
	One Scalar = Scale
	// Half is 0.5.
	Half Scalar = Scale / 2
	// Max is the largest representable value.
	Max Scalar = math.MaxInt64
	// Min is the smallest representable value.
	Min Scalar = math.MinInt64
)

var (
	// ErrDivisionByZero reports a fixed-point division with a zero divisor.
	// The caller must propagate it; substituting a sentinel value here would
	// let platforms diverge silently on the same inputs.
	ErrDivisionByZero = errors.New("fixed: division by zero")
	// ErrNegativeSqrt reports a square root of a negative value.
	ErrNegativeSqrt = errors.New("fixed: square root of negative value")
)

// FromInt converts an integer to a Scalar.
func FromInt(v int64) Scalar {
	return Scalar(v * Scale)
}

// FromRaw wraps an already-scaled raw value.
func FromRaw(raw int64) Scalar {
	return Scalar(raw)
}

// FromFloat converts a float to the nearest Scalar. It exists for the
// simulation boundary only (configuration, presentation); nothing inside a
// tick may call it.
func FromFloat(v float64) Scalar {
	if v >= 0 {
		return Scalar(v*Scale + 0.5)
	}
	return Scalar(v*Scale - 0.5)
}

// Raw returns the underlying scaled integer.
func (s Scalar) Raw() int64 {
	return int64(s)
}

// Int returns the integer part, truncated toward zero.
func (s Scalar) Int() int64 {
	return int64(s) / Scale
}

// Float converts to float64 for presentation. Boundary use only.
func (s Scalar) Float() float64 {
	return float64(s) / Scale
}

// Add returns s + o.
func (s Scalar) Add(o Scalar) Scalar {
	return s + o
}

// Sub returns s - o.
func (s Scalar) Sub(o Scalar) Scalar {
	return s - o
}

// Neg returns -s.
func (s Scalar) Neg() Scalar {
	return -s
}

// Abs returns the magnitude of s.
func (s Scalar) Abs() Scalar {
	if s < 0 {
		return -s
	}
	return s
}

// Sign reports -1, 0 or 1.
func (s Scalar) Sign() int {
	switch {
	case s < 0:
		return -1
	case s > 0:
		return 1
	default:
		return 0
	}
}

// Mul returns s * o, truncated toward zero. The product runs through a
// 128-bit intermediate so it cannot overflow before rescaling; results
// beyond the representable range saturate deterministically.
func (s Scalar) Mul(o Scalar) Scalar {
	negative := (s < 0) != (o < 0)
	hi, lo := bits.Mul64(absU64(int64(s)), absU64(int64(o)))
	if hi >= Scale {
		return saturate(negative)
	}
	quo, _ := bits.Div64(hi, lo, Scale)
	return clampU64(quo, negative)
}

// Div returns s / o, truncated toward zero. A zero divisor fails with
// ErrDivisionByZero rather than clamping: the error is fatal to the tick
// that triggered it.
func (s Scalar) Div(o Scalar) (Scalar, error) {
	if o == 0 {
		return 0, ErrDivisionByZero
	}
	return s.div(o), nil
}

// div is Div for callers that have already excluded a zero divisor.
func (s Scalar) div(o Scalar) Scalar {
	negative := (s < 0) != (o < 0)
	hi, lo := bits.Mul64(absU64(int64(s)), Scale)
	divisor := absU64(int64(o))
	if hi >= divisor {
		return saturate(negative)
	}
	quo, _ := bits.Div64(hi, lo, divisor)
	return clampU64(quo, negative)
}

// Mod returns the remainder of s / o with the sign of s.
func (s Scalar) Mod(o Scalar) (Scalar, error) {
	if o == 0 {
		return 0, ErrDivisionByZero
	}
	return s % o, nil
}

// Sqrt returns the square root of s, rounded to the nearest representable
// value. Negative input fails with ErrNegativeSqrt. The computation is
// Newton's method on the widened integer radicand, seeded by a bit-shift
// estimate; no floating-point is involved.
func (s Scalar) Sqrt() (Scalar, error) {
	if s < 0 {
		return 0, ErrNegativeSqrt
	}
	return sqrtNonNegative(s), nil
}

// sqrtNonNegative assumes s >= 0. Shared with vector lengths, which square
// their operands first and therefore cannot go negative.
func sqrtNonNegative(s Scalar) Scalar {
	if s == 0 {
		return 0
	}
	// The radicand is raw*Scale, a 128-bit quantity. Newton iteration in the
	// raw domain computes floor(sqrt(raw*Scale)) exactly because div already
	// widens: div(x, y) = floor(raw(x)*Scale / raw(y)).
	raw := int64(s)
	shift := (bits.Len64(uint64(raw)) + 21) / 2
	guess := Scalar(int64(1) << shift)
	for {
		next := (guess + s.div(guess)) >> 1
		if next >= guess {
			break
		}
		guess = next
	}
	// Round to nearest by comparing the remainders around the floor root.
	nHi, nLo := bits.Mul64(uint64(raw), Scale)
	root := uint64(guess)
	if sqErr(root+1, nHi, nLo) <= sqErr(root, nHi, nLo) {
		root++
	}
	return Scalar(root)
}

// sqErr returns |c*c - n| as a 128-bit magnitude comparison key.
func sqErr(c uint64, nHi, nLo uint64) uint64 {
	sqHi, sqLo := bits.Mul64(c, c)
	if sqHi > nHi || (sqHi == nHi && sqLo >= nLo) {
		lo, borrow := bits.Sub64(sqLo, nLo, 0)
		hi, _ := bits.Sub64(sqHi, nHi, borrow)
		if hi != 0 {
			return math.MaxUint64
		}
		return lo
	}
	lo, borrow := bits.Sub64(nLo, sqLo, 0)
	hi, _ := bits.Sub64(nHi, sqHi, borrow)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// Clamp limits s to [lo, hi].
func (s Scalar) Clamp(lo, hi Scalar) Scalar {
	if s < lo {
		return lo
	}
	if s > hi {
		return hi
	}
	return s
}

// Lerp interpolates from s toward o by t in [0, 1].
func (s Scalar) Lerp(o, t Scalar) Scalar {
	return s + (o - s).Mul(t)
}

// Floor truncates toward negative infinity to a whole number.
func (s Scalar) Floor() Scalar {
	r := int64(s) % Scale
	if r < 0 {
		return s - Scalar(r) - One
	}
	return s - Scalar(r)
}

// Ceil rounds up to a whole number.
func (s Scalar) Ceil() Scalar {
	r := int64(s) % Scale
	if r > 0 {
		return s - Scalar(r) + One
	}
	return s - Scalar(r)
}

// Round rounds half away from zero to a whole number.
func (s Scalar) Round() Scalar {
	if s >= 0 {
		return (s + Half).Floor()
	}
	return (s - Half).Ceil()
}

// String formats the value with all six fractional digits.
func (s Scalar) String() string {
	sign := ""
	raw := int64(s)
	if raw < 0 {
		sign = "-"
		raw = -raw
	}
	return fmt.Sprintf("%s%d.%06d", sign, raw/Scale, raw%Scale)
}

// ParseScalar reads a decimal string produced by String (or any plain
// decimal with up to six fractional digits).
func ParseScalar(text string) (Scalar, error) {
	negative := false
	switch {
	case len(text) > 0 && text[0] == '-':
		negative = true
		text = text[1:]
	case len(text) > 0 && text[0] == '+':
		text = text[1:]
	}
	whole := text
	frac := ""
	for i := 0; i < len(text); i++ {
		if text[i] == '.' {
			whole = text[:i]
			frac = text[i+1:]
			break
		}
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("fixed: cannot parse %q", text)
	}
	var raw int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("fixed: cannot parse %q: %w", text, err)
		}
		raw = v * Scale
	}
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		v, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("fixed: cannot parse %q: %w", text, err)
		}
		for i := len(frac); i < 6; i++ {
			v *= 10
		}
		raw += v
	}
	if negative {
		raw = -raw
	}
	return Scalar(raw), nil
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func saturate(negative bool) Scalar {
	if negative {
		return Min
	}
	return Max
}

func clampU64(v uint64, negative bool) Scalar {
	if negative {
		if v >= uint64(math.MaxInt64)+1 {
			return Min
		}
		return Scalar(-int64(v))
	}
	if v > uint64(math.MaxInt64) {
		return Max
	}
	return Scalar(v)
}
