package interp

import (
	"math"
	"testing"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// evalExpr evaluates an expression in an empty frame with no owner, which is
// enough for everything that doesn't resolve names.
func evalExpr(t *testing.T, in *Interpreter, e cst.Expr) (runtime.Value, *vmerrors.Error) {
	t.Helper()
	frame := runtime.NewFrame(nil)
	return in.Eval(e, frame, resolveContext{frame: frame, baseModule: nil})
}

func mustEval(t *testing.T, in *Interpreter, e cst.Expr) runtime.Value {
	t.Helper()
	v, err := evalExpr(t, in, e)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return v
}

func TestArithmetic(t *testing.T) {
	in := newTestInterp()
	cases := []struct {
		expr cst.Expr
		want int64
	}{
		{bin("+", intLit(1), intLit(2)), 3},
		{bin("-", intLit(10), intLit(4)), 6},
		{bin("*", intLit(6), intLit(7)), 42},
		{bin("~/", intLit(7), intLit(2)), 3},
		{bin("%", intLit(-7), intLit(3)), -1},
		{bin("**", intLit(2), intLit(10)), 1024},
	}
	for _, c := range cases {
		if got := intOf(t, mustEval(t, in, c.expr)); got != c.want {
			t.Fatalf("%v = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestIntDivisionProducesFloat(t *testing.T) {
	in := newTestInterp()
	v := mustEval(t, in, bin("/", intLit(7), intLit(2)))
	f, ok := v.(runtime.Float)
	if !ok || f.Value != 3.5 {
		t.Fatalf("got %v", v)
	}
}

func TestIntegerOverflowFails(t *testing.T) {
	in := newTestInterp()
	_, err := evalExpr(t, in, bin("+", intLit(math.MaxInt64), intLit(1)))
	if err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("got %v, want integerOverflow", err)
	}
	_, err = evalExpr(t, in, &cst.UnaryExpr{Op: "-", Operand: intLit(math.MinInt64)})
	if err == nil || err.Kind != vmerrors.KindIntegerOverflow {
		t.Fatalf("got %v, want integerOverflow", err)
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	in := newTestInterp()
	_, err := evalExpr(t, in, bin("~/", intLit(1), intLit(0)))
	if err == nil || err.Kind != vmerrors.KindDivisionByZero {
		t.Fatalf("got %v, want divisionByZero", err)
	}
}

func TestNaNComparisonFails(t *testing.T) {
	in := newTestInterp()
	if _, err := evalExpr(t, in, bin("<", floatLit(math.NaN()), floatLit(1))); err == nil {
		t.Fatalf("NaN comparison must fail")
	}
	// Equality with NaN is fine, and false.
	v := mustEval(t, in, bin("==", floatLit(math.NaN()), floatLit(math.NaN())))
	if v.(runtime.Bool).Value {
		t.Fatalf("NaN == NaN must be false")
	}
}

func TestNumericPromotionInEquality(t *testing.T) {
	in := newTestInterp()
	v := mustEval(t, in, bin("==", intLit(3), floatLit(3.0)))
	if !v.(runtime.Bool).Value {
		t.Fatalf("3 == 3.0 must hold")
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	in := newTestInterp()
	boom := &cst.ThrowExpr{Message: strLit("boom")}
	v := mustEval(t, in, bin("&&", boolLit(false), boom))
	if v.(runtime.Bool).Value {
		t.Fatalf("false && _ must be false")
	}
	v = mustEval(t, in, bin("||", boolLit(true), boom))
	if !v.(runtime.Bool).Value {
		t.Fatalf("true || _ must be true")
	}
}

func TestNullCoalescing(t *testing.T) {
	in := newTestInterp()
	if got := intOf(t, mustEval(t, in, bin("??", nullLit(), intLit(5)))); got != 5 {
		t.Fatalf("null ?? 5 = %d", got)
	}
	if got := intOf(t, mustEval(t, in, bin("??", intLit(1), intLit(5)))); got != 1 {
		t.Fatalf("1 ?? 5 = %d", got)
	}
}

func TestPipeAppliesFunction(t *testing.T) {
	in := newTestInterp()
	double := &cst.FuncLit{Params: []cst.Param{{Name: "n"}}, Body: bin("*", ref("n"), intLit(2))}
	if got := intOf(t, mustEval(t, in, bin("|>", intLit(21), double))); got != 42 {
		t.Fatalf("got %d", got)
	}
}

func TestLetBindsAndUnderscoreDiscards(t *testing.T) {
	in := newTestInterp()
	v := mustEval(t, in, &cst.LetExpr{Name: "x", Bound: intLit(4), Body: bin("*", ref("x"), ref("x"))})
	if intOf(t, v) != 16 {
		t.Fatalf("got %v", v)
	}
	v = mustEval(t, in, &cst.LetExpr{Name: "_", Bound: intLit(4), Body: intLit(9)})
	if intOf(t, v) != 9 {
		t.Fatalf("got %v", v)
	}
}

func TestIfRequiresBoolean(t *testing.T) {
	in := newTestInterp()
	if _, err := evalExpr(t, in, &cst.IfExpr{Cond: intLit(1), Then: intLit(1), Else: intLit(2)}); err == nil {
		t.Fatalf("non-boolean condition must fail")
	}
	v := mustEval(t, in, &cst.IfExpr{Cond: boolLit(false), Then: intLit(1), Else: intLit(2)})
	if intOf(t, v) != 2 {
		t.Fatalf("got %v", v)
	}
}

func TestThrowIsUserError(t *testing.T) {
	in := newTestInterp()
	_, err := evalExpr(t, in, &cst.ThrowExpr{Message: strLit("nope")})
	if err == nil || err.Kind != vmerrors.KindUserThrow {
		t.Fatalf("got %v, want userThrow", err)
	}
}

func TestNonNullAssertion(t *testing.T) {
	in := newTestInterp()
	if got := intOf(t, mustEval(t, in, &cst.UnaryExpr{Op: "!!", Operand: intLit(1)})); got != 1 {
		t.Fatalf("got %d", got)
	}
	_, err := evalExpr(t, in, &cst.UnaryExpr{Op: "!!", Operand: nullLit()})
	if err == nil || err.Kind != vmerrors.KindNonNullAssertionFailed {
		t.Fatalf("got %v", err)
	}
}

func TestStringInterpolation(t *testing.T) {
	in := newTestInterp()
	e := &cst.StringInterp{Parts: []cst.StringPart{
		{Literal: "x is "},
		{Expr: bin("+", intLit(1), intLit(2))},
		{Literal: "!"},
	}}
	if got := strOf(t, mustEval(t, in, e)); got != "x is 3!" {
		t.Fatalf("got %q", got)
	}
}

func TestMultiLineStringStripsCommonIndent(t *testing.T) {
	in := newTestInterp()
	e := &cst.StringInterp{
		CommonIndent: "  ",
		Parts:        []cst.StringPart{{Literal: "line1\n  line2\n  line3"}},
	}
	if got := strOf(t, mustEval(t, in, e)); got != "line1\nline2\nline3" {
		t.Fatalf("got %q", got)
	}
}

func TestStringSubscriptByCodePoint(t *testing.T) {
	in := newTestInterp()
	// The clef sign is outside the BMP; indexing must land on whole code
	// points, never on a UTF-16 surrogate half or a UTF-8 byte.
	s := strLit("a\U0001D11Eb")
	if got := strOf(t, mustEval(t, in, &cst.Subscript{Receiver: s, Index: intLit(1)})); got != "\U0001D11E" {
		t.Fatalf("got %q", got)
	}
	if got := strOf(t, mustEval(t, in, &cst.Subscript{Receiver: s, Index: intLit(2)})); got != "b" {
		t.Fatalf("got %q", got)
	}
	_, err := evalExpr(t, in, &cst.Subscript{Receiver: s, Index: intLit(3)})
	if err == nil || err.Kind != vmerrors.KindCharIndexOutOfRange {
		t.Fatalf("got %v, want charIndexOutOfRange", err)
	}
}

func TestStringConcatRejectsMixedOperands(t *testing.T) {
	in := newTestInterp()
	if _, err := evalExpr(t, in, bin("+", strLit("a"), intLit(1))); err == nil {
		t.Fatalf("String + Int must fail")
	}
}

func TestIsAndAs(t *testing.T) {
	in := newTestInterp()
	v := mustEval(t, in, &cst.IsExpr{Value: strLit("hi"), Type: declaredType("String")})
	if !v.(runtime.Bool).Value {
		t.Fatalf("\"hi\" is String must hold")
	}
	v = mustEval(t, in, &cst.IsExpr{Value: strLit("hi"), Type: declaredType("Int")})
	if v.(runtime.Bool).Value {
		t.Fatalf("\"hi\" is Int must not hold")
	}
	if got := strOf(t, mustEval(t, in, &cst.AsExpr{Value: strLit("hi"), Type: declaredType("String")})); got != "hi" {
		t.Fatalf("as must pass the value through, got %q", got)
	}
	_, err := evalExpr(t, in, &cst.AsExpr{Value: strLit("hi"), Type: declaredType("Int")})
	if err == nil || err.Kind != vmerrors.KindTypeMismatch {
		t.Fatalf("got %v, want typeMismatch", err)
	}
}

func TestNullableAccessRecoversNotFoundOnly(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("o", &cst.DynamicLit{Body: body(prop("a", intLit(1)))}),
		prop("missing", &cst.QualifiedAccess{Receiver: ref("o"), Name: "nope", Nullable: true}),
		prop("onNull", &cst.QualifiedAccess{Receiver: nullLit(), Name: "x", Nullable: true}),
	))
	if !runtime.IsNull(mustForce(t, in, m, "missing")) {
		t.Fatalf("o?.nope must be null")
	}
	if !runtime.IsNull(mustForce(t, in, m, "onNull")) {
		t.Fatalf("null?.x must be null")
	}
}

func TestValueSurfaceProperties(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("xs", call(ref("List"), intLit(1), intLit(2))),
		prop("empty", call(ref("List"))),
		prop("first", get(ref("xs"), "first")),
		prop("none", get(ref("empty"), "firstOrNull")),
		prop("n", get(strLit("héllo"), "length")),
		prop("up", get(strLit("héllo"), "toUpperCase")),
	))
	if got := intOf(t, mustForce(t, in, m, "first")); got != 1 {
		t.Fatalf("first = %d", got)
	}
	if !runtime.IsNull(mustForce(t, in, m, "none")) {
		t.Fatalf("List().firstOrNull must be null")
	}
	if got := intOf(t, mustForce(t, in, m, "n")); got != 5 {
		t.Fatalf("length = %d, want code points not bytes", got)
	}
	if got := strOf(t, mustForce(t, in, m, "up")); got != "HÉLLO" {
		t.Fatalf("toUpperCase = %q", got)
	}
	// List().first fails rather than returning a zero value.
	m2 := evalTestModule(t, in, mod("test2.pkl",
		prop("empty", call(ref("List"))),
		prop("boom", get(ref("empty"), "first")),
	))
	err := forceErr(t, in, m2, "boom")
	if err.Kind != vmerrors.KindElementIndexOutOfRange {
		t.Fatalf("got %s", err.Kind)
	}
}

func TestTraceReturnsValueAndLogs(t *testing.T) {
	in := newTestInterp()
	var lines []string
	in.Tracer = tracerFunc(func(line string) { lines = append(lines, line) })
	v := mustEval(t, in, &cst.TraceExpr{Value: bin("+", intLit(1), intLit(2))})
	if intOf(t, v) != 3 {
		t.Fatalf("trace must return its operand's value")
	}
	if len(lines) != 1 {
		t.Fatalf("expected one trace line, got %d", len(lines))
	}
}

type tracerFunc func(line string)

func (f tracerFunc) Trace(_ source.Span, rendered string) { f(rendered) }

func TestCatchReifiesAnyError(t *testing.T) {
	in := newTestInterp()
	frame := runtime.NewFrame(nil)
	v := in.Catch(bin("~/", intLit(1), intLit(0)), frame)
	if got := strOf(t, v); got != "divisionByZero: division by zero" {
		t.Fatalf("got %q", got)
	}
	v = in.Catch(&cst.ThrowExpr{Message: strLit("boom")}, frame)
	if got := strOf(t, v); got != "userThrow: boom" {
		t.Fatalf("got %q", got)
	}
	v = in.Catch(intLit(42), frame)
	if intOf(t, v) != 42 {
		t.Fatalf("catch must pass successful values through")
	}
}
