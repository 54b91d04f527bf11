package fixed

import (
	"errors"
	"math/bits"
)

// ErrNonPositiveLog reports a logarithm of a non-positive value.
var ErrNonPositiveLog = errors.New("fixed: logarithm of non-positive value")

// E is the fixed-point value of Euler's number.
const E Scalar = 2_718_282

// Exp returns e raised to x. The argument is range-reduced by powers of two
// (x = k·ln2 + r with r in [0, ln2)), the residual evaluated with the
// truncated Maclaurin series, and the result shifted back up. Arguments
// large enough to overflow saturate to Max; strongly negative arguments
// underflow to zero.
func Exp(x Scalar) Scalar {
	if x == 0 {
		return One
	}
	if x < 0 {
		inverse := Exp(-x)
		if inverse == 0 {
			return Max
		}
		return One.div(inverse)
	}
	k := int64(x) / int64(ln2)
	if k >= 43 {
		// 2^43 in the integer part is beyond the representable range.
		return Max
	}
	r := x - Scalar(k*int64(ln2))
	series := expSeries(r)
	return Scalar(int64(series) << uint(k))
}

// expSeries evaluates e^r for r in [0, ln2) via 1 + r + r²/2! + …
func expSeries(r Scalar) Scalar {
	sum := One
	term := One
	for n := int64(1); n <= 13; n++ {
		term = term.Mul(r).div(FromInt(n))
		if term == 0 {
			break
		}
		sum += term
	}
	return sum
}

// Ln returns the natural logarithm of x. Non-positive arguments fail with
// ErrNonPositiveLog. The argument is normalized to a mantissa in [1, 2)
// by a power-of-two shift, and the mantissa's logarithm evaluated with the
// atanh series ln(m) = 2·(z + z³/3 + z⁵/5 + …) where z = (m-1)/(m+1).
func Ln(x Scalar) (Scalar, error) {
	if x <= 0 {
		return 0, ErrNonPositiveLog
	}
	raw := int64(x)
	k := bits.Len64(uint64(raw)) - bits.Len64(uint64(Scale))
	var mantissa Scalar
	if k >= 0 {
		mantissa = Scalar(raw >> uint(k))
	} else {
		mantissa = Scalar(raw << uint(-k))
	}
	if mantissa >= FromInt(2) {
		mantissa = Scalar(int64(mantissa) >> 1)
		k++
	} else if mantissa < One {
		mantissa = Scalar(int64(mantissa) << 1)
		k--
	}
	z := (mantissa - One).div(mantissa + One)
	z2 := z.Mul(z)
	term := z
	sum := z
	for _, divisor := range [...]Scalar{FromInt(3), FromInt(5), FromInt(7), FromInt(9), FromInt(11), FromInt(13)} {
		term = term.Mul(z2)
		if term == 0 {
			break
		}
		sum += term.div(divisor)
	}
	return FromInt(int64(k)).Mul(ln2) + sum*2, nil
}

// Pow returns base raised to exponent for positive bases, via
// exp(exponent·ln(base)). A zero base returns zero for positive exponents
// and One for a zero exponent; negative or otherwise invalid combinations
// fail with ErrNonPositiveLog or ErrDivisionByZero.
func Pow(base, exponent Scalar) (Scalar, error) {
	if base == 0 {
		switch {
		case exponent > 0:
			return 0, nil
		case exponent == 0:
			return One, nil
		default:
			return 0, ErrDivisionByZero
		}
	}
	logBase, err := Ln(base)
	if err != nil {
		return 0, err
	}
	return Exp(exponent.Mul(logBase)), nil
}

// PowInt returns base raised to an integer exponent by repeated squaring.
// It is exact up to fixed-point truncation and never leaves the fixed
// domain, which makes it the right tool for gameplay formulas with small
// integral exponents.
func PowInt(base Scalar, exponent int64) (Scalar, error) {
	if exponent < 0 {
		positive, err := PowInt(base, -exponent)
		if err != nil {
			return 0, err
		}
		return One.Div(positive)
	}
	result := One
	factor := base
	for exponent > 0 {
		if exponent&1 == 1 {
			result = result.Mul(factor)
		}
		exponent >>= 1
		if exponent > 0 {
			factor = factor.Mul(factor)
		}
	}
	return result, nil
}
