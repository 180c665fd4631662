package interp

import (
	"testing"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/pkg/ident"
)

// newTestInterp builds an interpreter with a hand-rolled base module carrying
// just the collection constructors the tests need, standing in for the full
// standard library loader (which lives a package above and cannot be imported
// from here without a cycle).
func newTestInterp() *Interpreter {
	pool := ident.NewPool()
	in := NewInterpreter(pool, nil, nil, nil)

	base := NewObject(VariantDynamic, nil, nil, nil, nil)
	install := func(name string, native func(args []runtime.Value) (runtime.Value, error)) {
		id := pool.Intern(name).Public()
		base.Members.Put(IdentKey(id), &Member{OwnerName: "base", Const: &runtime.Function{Name: name, Native: native}})
	}
	install("List", func(args []runtime.Value) (runtime.Value, error) {
		return &runtime.List{Elements: append([]runtime.Value{}, args...)}, nil
	})
	install("Map", func(args []runtime.Value) (runtime.Value, error) {
		m := runtime.NewMap()
		for i := 0; i+1 < len(args); i += 2 {
			m.Put(args[i], args[i+1])
		}
		return m, nil
	})
	in.SetBaseModule(base)
	return in
}

func evalTestModule(t *testing.T, in *Interpreter, m *cst.Module) *VmObject {
	t.Helper()
	mod, err := in.EvalModule(m, nil)
	if err != nil {
		t.Fatalf("EvalModule: %v", err)
	}
	return mod
}

func mustForce(t *testing.T, in *Interpreter, obj *VmObject, name string) runtime.Value {
	t.Helper()
	v, err := in.forceMember(obj, IdentKey(in.Idents.Intern(name).Public()), source.Span{})
	if err != nil {
		t.Fatalf("force %s: %v", name, err)
	}
	return v
}

func forceErr(t *testing.T, in *Interpreter, obj *VmObject, name string) *vmerrors.Error {
	t.Helper()
	_, err := in.forceMember(obj, IdentKey(in.Idents.Intern(name).Public()), source.Span{})
	if err == nil {
		t.Fatalf("expected forcing %s to fail", name)
	}
	return err
}

func intOf(t *testing.T, v runtime.Value) int64 {
	t.Helper()
	i, ok := v.(runtime.Int)
	if !ok {
		t.Fatalf("expected Int, got %s (%v)", runtime.TypeName(v), v)
	}
	return i.Value
}

func strOf(t *testing.T, v runtime.Value) string {
	t.Helper()
	s, ok := v.(runtime.String)
	if !ok {
		t.Fatalf("expected String, got %s (%v)", runtime.TypeName(v), v)
	}
	return s.Value
}

// Expression shorthands. Spans stay zero: these trees come from no file.

func intLit(v int64) cst.Expr     { return &cst.IntLit{Value: v} }
func floatLit(v float64) cst.Expr { return &cst.FloatLit{Value: v} }
func strLit(v string) cst.Expr    { return &cst.StringLit{Value: v} }
func boolLit(v bool) cst.Expr     { return &cst.BoolLit{Value: v} }
func nullLit() cst.Expr           { return &cst.NullLit{} }
func ref(name string) cst.Expr    { return &cst.Ident{Name: name} }
func thisRef() cst.Expr           { return &cst.ThisLit{} }

func bin(op string, l, r cst.Expr) cst.Expr {
	return &cst.BinaryExpr{Op: op, Left: l, Right: r}
}

func get(recv cst.Expr, name string) cst.Expr {
	return &cst.QualifiedAccess{Receiver: recv, Name: name}
}

func call(callee cst.Expr, args ...cst.Expr) cst.Expr {
	return &cst.Invocation{Callee: callee, Args: args}
}

func prop(name string, value cst.Expr) *cst.PropertyEntry {
	return &cst.PropertyEntry{Name: name, Value: value}
}

func typedProp(name string, typ *cst.TypeExpr, value cst.Expr) *cst.PropertyEntry {
	return &cst.PropertyEntry{Name: name, TypeAnn: typ, Value: value}
}

func body(entries ...cst.Entry) *cst.ObjectBody {
	return &cst.ObjectBody{Entries: entries}
}

func mod(uri string, entries ...cst.Entry) *cst.Module {
	return &cst.Module{URI: uri, Body: body(entries...)}
}

func declaredType(name string) *cst.TypeExpr {
	return &cst.TypeExpr{Kind: cst.TypeDeclared, Name: name}
}

func constrainedType(elem *cst.TypeExpr, preds ...cst.Expr) *cst.TypeExpr {
	return &cst.TypeExpr{Kind: cst.TypeConstrained, Elem: elem, Predicates: preds}
}
