package runtime

import (
	"math"

	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// Checked integer arithmetic. Overflow on +, -, *, unary minus, and **
// fails with integerOverflow rather than wrapping. Integer division ~/ by
// zero fails with divisionByZero; % follows truncated division with the
// sign of the dividend.

func overflow(span source.Span, op string) *vmerrors.Error {
	return vmerrors.New(vmerrors.KindIntegerOverflow, span, "integer overflow in %s", op)
}

// AddInt adds two Ints, failing on overflow.
func AddInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return Int{}, overflow(span, "+")
	}
	return Int{sum}, nil
}

// SubInt subtracts two Ints, failing on overflow.
func SubInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return Int{}, overflow(span, "-")
	}
	return Int{diff}, nil
}

// NegInt negates an Int, failing on overflow (the MIN_VALUE boundary case).
func NegInt(span source.Span, a int64) (Int, *vmerrors.Error) {
	if a == math.MinInt64 {
		return Int{}, overflow(span, "unary -")
	}
	return Int{-a}, nil
}

// MulInt multiplies two Ints, failing on overflow.
func MulInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	if a == 0 || b == 0 {
		return Int{0}, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return Int{}, overflow(span, "*")
	}
	product := a * b
	if product/b != a {
		return Int{}, overflow(span, "*")
	}
	return Int{product}, nil
}

// PowInt raises a to the non-negative integer power b, failing on overflow.
func PowInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	if b < 0 {
		return Int{}, vmerrors.New(vmerrors.KindTypeMismatch, span, "** requires a non-negative Int exponent for Int bases")
	}
	result := int64(1)
	for i := int64(0); i < b; i++ {
		next, err := MulInt(span, result, a)
		if err != nil {
			return Int{}, overflow(span, "**")
		}
		result = next.Value
	}
	return Int{result}, nil
}

// DivInt is the truncated-toward-zero integer division `~/`.
func DivInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	if b == 0 {
		return Int{}, vmerrors.New(vmerrors.KindDivisionByZero, span, "division by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return Int{}, overflow(span, "~/")
	}
	return Int{a / b}, nil
}

// RemInt is `%`: truncated division, result takes the sign of the dividend.
func RemInt(span source.Span, a, b int64) (Int, *vmerrors.Error) {
	if b == 0 {
		return Int{}, vmerrors.New(vmerrors.KindDivisionByZero, span, "division by zero")
	}
	return Int{a % b}, nil
}

// CompareFloat orders two floats for `< <= > >=`. NaN compares unordered:
// any comparison against NaN fails rather than silently returning false.
func CompareFloat(span source.Span, a, b float64) (int, *vmerrors.Error) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, vmerrors.New(vmerrors.KindTypeMismatch, span, "comparison with NaN is not ordered")
	}
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	default:
		return 0, nil
	}
}

// FloatEqual implements `==` for floats: NaN != NaN, matching IEEE-754.
func FloatEqual(a, b float64) bool {
	return a == b
}
