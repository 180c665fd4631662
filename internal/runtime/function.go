package runtime

import (
	"fmt"

	"github.com/pklcore/pklcore/internal/cst"
)

// Function is a closure or bound method: arity, captured `this`, a captured
// enclosing frame snapshot, and a reference to the (unevaluated) body.
// Closures and bound methods share this one representation.
type Function struct {
	Name    string // qualified name for stack traces; may be "<lambda>"
	Params  []cst.Param
	Return  *cst.TypeExpr
	Body    cst.Expr
	This    Value  // captured receiver, nil for a free function
	Closure *Frame // captured enclosing frame, materialized at creation

	// Native, when non-nil, implements a standard-library builtin instead of
	// interpreting Body. Interp's invocation path prefers Native when set.
	Native func(args []Value) (Value, error)
}

func (f *Function) Kind() string { return "Function" }

func (f *Function) String() string {
	name := f.Name
	if name == "" {
		name = "<lambda>"
	}
	return fmt.Sprintf("function %s(%d)", name, len(f.Params))
}

// Arity returns the function's declared parameter count.
func (f *Function) Arity() int {
	return len(f.Params)
}
