package runtime

import (
	"math"
	"testing"

	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

var noSpan = source.Span{}

func TestAddIntOverflow(t *testing.T) {
	if _, err := AddInt(noSpan, math.MaxInt64, 1); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
	if _, err := AddInt(noSpan, math.MinInt64, -1); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
	v, err := AddInt(noSpan, 2, 3)
	if err != nil || v.Value != 5 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestSubIntOverflow(t *testing.T) {
	if _, err := SubInt(noSpan, math.MinInt64, 1); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
}

func TestNegIntMinValue(t *testing.T) {
	if _, err := NegInt(noSpan, math.MinInt64); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow on MIN_VALUE negation, got %v", err)
	}
	v, err := NegInt(noSpan, 7)
	if err != nil || v.Value != -7 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestMulIntOverflow(t *testing.T) {
	if _, err := MulInt(noSpan, math.MaxInt64, 2); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
	v, err := MulInt(noSpan, -4, 5)
	if err != nil || v.Value != -20 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestPowInt(t *testing.T) {
	v, err := PowInt(noSpan, 2, 10)
	if err != nil || v.Value != 1024 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := PowInt(noSpan, 2, 64); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
	if _, err := PowInt(noSpan, 2, -1); err == nil {
		t.Fatalf("expected error for negative exponent")
	}
}

func TestDivIntByZero(t *testing.T) {
	if _, err := DivInt(noSpan, 1, 0); err == nil || err.Kind != vmerrors.KindDivisionByZero {
		t.Fatalf("expected divisionByZero, got %v", err)
	}
	if _, err := DivInt(noSpan, math.MinInt64, -1); err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("expected integerOverflow, got %v", err)
	}
	v, err := DivInt(noSpan, 7, 2)
	if err != nil || v.Value != 3 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestRemIntTakesDividendSign(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{7, 3, 1},
		{-7, 3, -1},
		{7, -3, 1},
		{-7, -3, -1},
	}
	for _, c := range cases {
		v, err := RemInt(noSpan, c.a, c.b)
		if err != nil || v.Value != c.want {
			t.Fatalf("%d %% %d: got %v, %v (want %d)", c.a, c.b, v, err, c.want)
		}
	}
	if _, err := RemInt(noSpan, 1, 0); err == nil || err.Kind != vmerrors.KindDivisionByZero {
		t.Fatalf("expected divisionByZero, got %v", err)
	}
}

func TestCompareFloatRejectsNaN(t *testing.T) {
	if _, err := CompareFloat(noSpan, math.NaN(), 1); err == nil {
		t.Fatalf("expected NaN comparison to fail")
	}
	if _, err := CompareFloat(noSpan, 1, math.NaN()); err == nil {
		t.Fatalf("expected NaN comparison to fail")
	}
	cmp, err := CompareFloat(noSpan, 1, 2)
	if err != nil || cmp != -1 {
		t.Fatalf("got %d, %v", cmp, err)
	}
}

func TestFloatEqualNaN(t *testing.T) {
	if FloatEqual(math.NaN(), math.NaN()) {
		t.Fatalf("NaN must not equal NaN")
	}
	if !FloatEqual(1.5, 1.5) {
		t.Fatalf("1.5 must equal 1.5")
	}
}
