package interp

import (
	"math"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// evalBinary applies a binary operator. Parsing has
// already resolved precedence and associativity into the tree shape; this only
// needs to evaluate operands (short-circuiting `&&`/`||` and lazily evaluating
// `??`'s right side) and apply the operator.
func (in *Interpreter) evalBinary(n *cst.BinaryExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	switch n.Op {
	case "&&":
		l, err := in.Eval(n.Left, frame, ctx)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(runtime.Bool)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "&& left operand must be a Boolean")
		}
		if !lb.Value {
			return runtime.Bool{Value: false}, nil
		}
		r, err := in.Eval(n.Right, frame, ctx)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(runtime.Bool)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "&& right operand must be a Boolean")
		}
		return runtime.Bool{Value: rb.Value}, nil
	case "||":
		l, err := in.Eval(n.Left, frame, ctx)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(runtime.Bool)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "|| left operand must be a Boolean")
		}
		if lb.Value {
			return runtime.Bool{Value: true}, nil
		}
		r, err := in.Eval(n.Right, frame, ctx)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(runtime.Bool)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "|| right operand must be a Boolean")
		}
		return runtime.Bool{Value: rb.Value}, nil
	case "??":
		l, err := in.Eval(n.Left, frame, ctx)
		if err != nil {
			return nil, err
		}
		if !runtime.IsNull(l) {
			return l, nil
		}
		return in.Eval(n.Right, frame, ctx)
	case "|>":
		l, err := in.Eval(n.Left, frame, ctx)
		if err != nil {
			return nil, err
		}
		r, err := in.Eval(n.Right, frame, ctx)
		if err != nil {
			return nil, err
		}
		fn, ok := r.(*runtime.Function)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindNotAFunction, n.ExprSpan(), "%s is not a function", runtime.Describe(r))
		}
		return in.callFunction(fn, []runtime.Value{l}, n.ExprSpan())
	}

	left, err := in.Eval(n.Left, frame, ctx)
	if err != nil {
		return nil, err
	}
	right, err := in.Eval(n.Right, frame, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return runtime.Bool{Value: runtime.Equal(left, right)}, nil
	case "!=":
		return runtime.Bool{Value: !runtime.Equal(left, right)}, nil
	}

	if n.Op == "+" {
		if ls, ok := left.(runtime.String); ok {
			rs, ok := right.(runtime.String)
			if !ok {
				return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "cannot add String and %s", runtime.TypeName(right))
			}
			return runtime.String{Value: ls.Value + rs.Value}, nil
		}
		if ll, ok := left.(*runtime.List); ok {
			rl, ok := right.(*runtime.List)
			if !ok {
				return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "cannot add List and %s", runtime.TypeName(right))
			}
			merged := append(append([]runtime.Value{}, ll.Elements...), rl.Elements...)
			return &runtime.List{Elements: merged}, nil
		}
	}

	return in.evalNumericOrCompare(n, left, right)
}

func (in *Interpreter) evalNumericOrCompare(n *cst.BinaryExpr, left, right runtime.Value) (runtime.Value, *vmerrors.Error) {
	span := n.ExprSpan()
	li, lIsInt := left.(runtime.Int)
	ri, rIsInt := right.(runtime.Int)
	if lIsInt && rIsInt {
		switch n.Op {
		case "+":
			v, err := runtime.AddInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "-":
			v, err := runtime.SubInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "*":
			v, err := runtime.MulInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "**":
			v, err := runtime.PowInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "~/":
			v, err := runtime.DivInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "%":
			v, err := runtime.RemInt(span, li.Value, ri.Value)
			return wrapInt(v, err)
		case "/":
			return runtime.Float{Value: float64(li.Value) / float64(ri.Value)}, nil
		case "<":
			return runtime.Bool{Value: li.Value < ri.Value}, nil
		case "<=":
			return runtime.Bool{Value: li.Value <= ri.Value}, nil
		case ">":
			return runtime.Bool{Value: li.Value > ri.Value}, nil
		case ">=":
			return runtime.Bool{Value: li.Value >= ri.Value}, nil
		}
	}

	lf, lIsFloat := asFloat(left)
	rf, rIsFloat := asFloat(right)
	if lIsFloat && rIsFloat {
		switch n.Op {
		case "+":
			return runtime.Float{Value: lf + rf}, nil
		case "-":
			return runtime.Float{Value: lf - rf}, nil
		case "*":
			return runtime.Float{Value: lf * rf}, nil
		case "/":
			return runtime.Float{Value: lf / rf}, nil
		case "**":
			return runtime.Float{Value: powFloat(lf, rf)}, nil
		case "<", "<=", ">", ">=":
			cmp, cerr := runtime.CompareFloat(span, lf, rf)
			if cerr != nil {
				return nil, cerr
			}
			return runtime.Bool{Value: compareOp(n.Op, cmp)}, nil
		}
	}

	return nil, vmerrors.New(vmerrors.KindTypeMismatch, span, "cannot apply %q to %s and %s", n.Op, runtime.TypeName(left), runtime.TypeName(right))
}

func compareOp(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

func wrapInt(v runtime.Int, err *vmerrors.Error) (runtime.Value, *vmerrors.Error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func asFloat(v runtime.Value) (float64, bool) {
	switch n := v.(type) {
	case runtime.Float:
		return n.Value, true
	case runtime.Int:
		return float64(n.Value), true
	default:
		return 0, false
	}
}

func powFloat(base, exp float64) float64 {
	return math.Pow(base, exp)
}

// evalUnary implements `-x`, `!x`, `x!!`.
func (in *Interpreter) evalUnary(n *cst.UnaryExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	v, err := in.Eval(n.Operand, frame, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "-":
		switch x := v.(type) {
		case runtime.Int:
			neg, nerr := runtime.NegInt(n.ExprSpan(), x.Value)
			return wrapInt(neg, nerr)
		case runtime.Float:
			return runtime.Float{Value: -x.Value}, nil
		default:
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "cannot negate %s", runtime.TypeName(v))
		}
	case "!":
		b, ok := v.(runtime.Bool)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "! requires a Boolean")
		}
		return runtime.Bool{Value: !b.Value}, nil
	case "!!":
		if runtime.IsNull(v) {
			return nil, vmerrors.New(vmerrors.KindNonNullAssertionFailed, n.ExprSpan(), "non-null assertion failed")
		}
		return v, nil
	default:
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "unknown unary operator %q", n.Op)
	}
}
