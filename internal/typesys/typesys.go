// Package typesys checks values against the declared/nullable/union/
// constrained/function type sum. It is deliberately
// decoupled from the object model: class-subtype checks and constraint
// predicate evaluation are delegated through the small interfaces below so
// that package interp (which owns VmObject/VmClass and the expression
// evaluator) can depend on typesys without typesys depending back on interp.
package typesys

import (
	"fmt"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// ClassHandle is the minimal view of a class the type checker needs: enough to
// test nominal subtyping without depending on package interp's concrete
// VmClass.
type ClassHandle interface {
	QualifiedName() string
	IsSubtypeOf(name string) bool
}

// Classified is implemented by values that carry a class (VmObject does).
type Classified interface {
	ClassHandle() ClassHandle
}

// ClassResolver resolves a Declared type's name to either a class (for `v`'s
// class subtype check) or a type alias body (substituted and rechecked
// recursively).
type ClassResolver interface {
	ResolveClass(name string) (ClassHandle, bool)
	ResolveAlias(name string) (*cst.TypeAliasDecl, bool)
}

// PredicateEvaluator runs a constrained-type predicate with `this` bound to
// the candidate value (a custom-this scope). constScope is true when the
// predicate's source position is a type-alias body, which may reference only
// const members.
type PredicateEvaluator interface {
	EvalPredicate(pred cst.Expr, candidate runtime.Value, constScope bool) (bool, *vmerrors.Error)
}

// ModuleProvider supplies the enclosing module instance for the Module type's
// "v is the enclosing module instance" check.
type ModuleProvider interface {
	ModuleInstance() runtime.Value
}

// Context bundles the collaborators Check needs to resolve names and run
// predicates. inAliasBody is set while recursing through a type alias's
// aliased type, marking its predicates as const scopes.
type Context struct {
	Classes    ClassResolver
	Predicates PredicateEvaluator
	Module     ModuleProvider

	inAliasBody bool
}

// Check reports whether v: t holds.
func Check(v runtime.Value, t *cst.TypeExpr, span source.Span, ctx Context) (bool, *vmerrors.Error) {
	if t == nil {
		return true, nil
	}
	switch t.Kind {
	case cst.TypeUnknown:
		return true, nil
	case cst.TypeNothing:
		return false, nil
	case cst.TypeModule:
		if ctx.Module == nil {
			return false, nil
		}
		return v == ctx.Module.ModuleInstance(), nil
	case cst.TypeStringConstant:
		s, ok := v.(runtime.String)
		return ok && s.Value == t.Constant, nil
	case cst.TypeNullable:
		if runtime.IsNull(v) {
			return true, nil
		}
		return Check(v, t.Elem, span, ctx)
	case cst.TypeUnion:
		ok, err := Check(v, t.Left, span, ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		return Check(v, t.Right, span, ctx)
	case cst.TypeDefaultUnion:
		return Check(v, t.Elem, span, ctx)
	case cst.TypeParenthesized:
		return Check(v, t.Elem, span, ctx)
	case cst.TypeDeclared:
		return checkDeclared(v, t, span, ctx)
	case cst.TypeConstrained:
		ok, err := Check(v, t.Elem, span, ctx)
		if err != nil || !ok {
			return ok, err
		}
		for _, pred := range t.Predicates {
			if ctx.Predicates == nil {
				return false, vmerrors.New(vmerrors.KindTypeConstraintViolated, span, "no predicate evaluator configured")
			}
			passed, perr := ctx.Predicates.EvalPredicate(pred, v, ctx.inAliasBody)
			if perr != nil {
				return false, perr
			}
			if !passed {
				return false, vmerrors.New(vmerrors.KindTypeConstraintViolated, span,
					"value %s does not satisfy constraint", runtime.Describe(v))
			}
		}
		return true, nil
	case cst.TypeFunction:
		fn, ok := v.(*runtime.Function)
		if !ok {
			return false, nil
		}
		return fn.Arity() == len(t.Params), nil
	default:
		return false, vmerrors.New(vmerrors.KindTypeMismatch, span, "unknown type kind")
	}
}

func checkDeclared(v runtime.Value, t *cst.TypeExpr, span source.Span, ctx Context) (bool, *vmerrors.Error) {
	if ctx.Classes == nil {
		return false, vmerrors.New(vmerrors.KindTypeMismatch, span, "no class resolver configured for type %q", t.Name)
	}
	if builtinOK, handled := checkBuiltinDeclared(v, t.Name); handled {
		return builtinOK, nil
	}
	if alias, ok := ctx.Classes.ResolveAlias(t.Name); ok {
		sub := ctx
		sub.inAliasBody = true
		return Check(v, alias.Type, span, sub)
	}
	handle, ok := ctx.Classes.ResolveClass(t.Name)
	if !ok {
		return false, vmerrors.New(vmerrors.KindCannotFindProperty, span, "unknown type %q", t.Name)
	}
	classified, ok := v.(Classified)
	if !ok {
		return false, nil
	}
	return classified.ClassHandle().IsSubtypeOf(handle.QualifiedName()), nil
}

// checkBuiltinDeclared handles the primitive/collection type names that are
// never user classes (String, Int, Float, Boolean, Duration, DataSize, Bytes,
// List, Set, Map, Pair, Null, Any).
func checkBuiltinDeclared(v runtime.Value, name string) (ok bool, handled bool) {
	switch name {
	case "Any":
		return true, true
	case "String":
		_, ok := v.(runtime.String)
		return ok, true
	case "Int", "Int8", "Int16", "Int32", "UInt", "UInt8", "UInt16", "UInt32":
		_, ok := v.(runtime.Int)
		return ok, true
	case "Float", "Number":
		switch v.(type) {
		case runtime.Float, runtime.Int:
			return true, true
		}
		return false, true
	case "Boolean":
		_, ok := v.(runtime.Bool)
		return ok, true
	case "Null":
		return runtime.IsNull(v), true
	case "Duration":
		_, ok := v.(runtime.Duration)
		return ok, true
	case "DataSize":
		_, ok := v.(runtime.DataSize)
		return ok, true
	case "Bytes":
		_, ok := v.(runtime.Bytes)
		return ok, true
	case "Pair":
		_, ok := v.(runtime.Pair)
		return ok, true
	case "List":
		_, ok := v.(*runtime.List)
		return ok, true
	case "Set":
		_, ok := v.(*runtime.Set)
		return ok, true
	case "Map":
		_, ok := v.(*runtime.Map)
		return ok, true
	case "Function":
		_, ok := v.(*runtime.Function)
		return ok, true
	}
	return false, false
}

// Describe renders a type expression for error messages.
func Describe(t *cst.TypeExpr) string {
	if t == nil {
		return "Unknown"
	}
	switch t.Kind {
	case cst.TypeUnknown:
		return "unknown"
	case cst.TypeNothing:
		return "nothing"
	case cst.TypeModule:
		return "module"
	case cst.TypeStringConstant:
		return fmt.Sprintf("%q", t.Constant)
	case cst.TypeNullable:
		return Describe(t.Elem) + "?"
	case cst.TypeUnion:
		return Describe(t.Left) + "|" + Describe(t.Right)
	case cst.TypeDefaultUnion:
		return "*" + Describe(t.Elem)
	case cst.TypeParenthesized:
		return "(" + Describe(t.Elem) + ")"
	case cst.TypeConstrained:
		return Describe(t.Elem) + "(...)"
	case cst.TypeFunction:
		return fmt.Sprintf("%d-ary function", len(t.Params))
	case cst.TypeDeclared:
		return t.Name
	default:
		return "?"
	}
}
