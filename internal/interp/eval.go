package interp

import (
	"fmt"
	"strings"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/typesys"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/pkg/ident"
)

// Eval is the tree-walking expression evaluator: one case per cst.Expr
// variant.
func (in *Interpreter) Eval(e cst.Expr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	if err := in.checkDeadline(e.ExprSpan()); err != nil {
		return nil, err
	}
	switch n := e.(type) {
	case *cst.NullLit:
		return runtime.NullValue, nil
	case *cst.BoolLit:
		return runtime.Bool{Value: n.Value}, nil
	case *cst.IntLit:
		return runtime.Int{Value: n.Value}, nil
	case *cst.FloatLit:
		return runtime.Float{Value: n.Value}, nil
	case *cst.StringLit:
		return runtime.String{Value: n.Value}, nil
	case *cst.DurationLit:
		return runtime.Duration{Magnitude: n.Magnitude, Unit: n.Unit}, nil
	case *cst.DataSizeLit:
		return runtime.DataSize{Magnitude: n.Magnitude, Unit: n.Unit}, nil
	case *cst.StringInterp:
		return in.evalStringInterp(n, frame, ctx)
	case *cst.ThisLit:
		ctx.frame = frame
		if v := resolveThis(ctx); v != nil {
			return v, nil
		}
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, e.ExprSpan(), "`this` is not in scope here")
	case *cst.Ident:
		return in.evalIdent(n, frame, ctx)
	case *cst.QualifiedAccess:
		return in.evalQualifiedAccess(n, frame, ctx)
	case *cst.Subscript:
		return in.evalSubscript(n, frame, ctx)
	case *cst.IfExpr:
		return in.evalIf(n, frame, ctx)
	case *cst.LetExpr:
		return in.evalLet(n, frame, ctx)
	case *cst.BinaryExpr:
		return in.evalBinary(n, frame, ctx)
	case *cst.UnaryExpr:
		return in.evalUnary(n, frame, ctx)
	case *cst.ThrowExpr:
		return in.evalThrow(n, frame, ctx)
	case *cst.TraceExpr:
		return in.evalTrace(n, frame, ctx)
	case *cst.ImportExpr:
		return in.evalImport(n)
	case *cst.ReadExpr:
		return in.evalRead(n, frame, ctx)
	case *cst.NewExpr:
		return in.evalNew(n, frame, ctx)
	case *cst.AmendsExpr:
		return in.evalAmends(n, frame, ctx)
	case *cst.FuncLit:
		return in.evalFuncLit(n, frame), nil
	case *cst.Invocation:
		return in.evalInvocation(n, frame, ctx)
	case *cst.IsExpr:
		return in.evalIs(n, frame, ctx)
	case *cst.AsExpr:
		return in.evalAs(n, frame, ctx)
	case *cst.ListingLit:
		return in.constructObject(VariantListing, nil, nil, frame, n.Body, ctx)
	case *cst.MappingLit:
		return in.constructObject(VariantMapping, nil, nil, frame, n.Body, ctx)
	case *cst.DynamicLit:
		return in.constructObject(VariantDynamic, nil, nil, frame, n.Body, ctx)
	default:
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, e.ExprSpan(), "unsupported expression node %T", e)
	}
}

func (in *Interpreter) evalStringInterp(n *cst.StringInterp, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	var b strings.Builder
	for _, part := range n.Parts {
		b.WriteString(stripCommonIndent(part.Literal, n.CommonIndent))
		if part.Expr != nil {
			v, err := in.Eval(part.Expr, frame, ctx)
			if err != nil {
				return nil, err
			}
			b.WriteString(runtime.ToDisplayString(v))
		}
	}
	return runtime.String{Value: b.String()}, nil
}

// stripCommonIndent removes a multi-line string literal's common indent (the
// indentation of its closing delimiter line) from the start of every line in
// a literal segment. Single-line strings carry an empty indent and pass
// through untouched.
func stripCommonIndent(literal, indent string) string {
	if indent == "" || literal == "" {
		return literal
	}
	lines := strings.Split(literal, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], indent)
	}
	return strings.Join(lines, "\n")
}

func (in *Interpreter) evalIdent(n *cst.Ident, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	id := in.Idents.Intern(n.Name)
	ctx.frame = frame
	res, err := in.specializeIdent(n, id, ctx)
	if err != nil {
		return nil, err
	}
	return in.readResolution(res, frame, ctx, n.ExprSpan())
}

func (in *Interpreter) readResolution(res *Resolution, frame *runtime.Frame, ctx resolveContext, span source.Span) (runtime.Value, *vmerrors.Error) {
	switch res.Kind {
	case ResFrameSlot:
		target := frame.AtLevel(res.Level)
		if target == nil {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "stale frame-slot resolution")
		}
		v, _ := target.Get(res.Id)
		return v, nil
	case ResAux:
		target := frame.AtLevel(res.Level)
		if target == nil {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "stale aux-slot resolution")
		}
		v, _ := target.Aux(res.Id)
		return v, nil
	case ResLexicalProperty:
		target := frame.AtLevel(res.Level)
		if target == nil {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "stale property resolution")
		}
		owner, ok := target.Owner.(*VmObject)
		if !ok || owner == nil {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "stale property resolution")
		}
		return in.forceMember(owner, IdentKey(res.Id), span)
	case ResBaseModuleProperty:
		return in.forceMember(res.Object, res.Key, span)
	case ResImplicitThis:
		ctx.frame = frame
		thisVal := resolveThis(ctx)
		if obj, ok := thisVal.(*VmObject); ok {
			return in.forceMember(obj, IdentKey(res.Id), span)
		}
		v, ok, verr := in.valueProperty(thisVal, res.Id.Name(), span)
		if verr != nil {
			return nil, verr
		}
		if !ok {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "cannot find property %q on %s", res.Id.Name(), runtime.TypeName(thisVal))
		}
		return v, nil
	case ResConstant:
		return res.Value, nil
	default:
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "unresolved name")
	}
}

func (in *Interpreter) evalQualifiedAccess(n *cst.QualifiedAccess, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	recv, err := in.Eval(n.Receiver, frame, ctx)
	if err != nil {
		return nil, err
	}
	if n.Nullable && runtime.IsNull(recv) {
		return runtime.NullValue, nil
	}
	v, err := in.readMember(recv, in.Idents.Intern(n.Name), n.ExprSpan())
	if err != nil && n.Nullable && (err.Kind == vmerrors.KindCannotFindProperty || err.Kind == vmerrors.KindCannotFindKey) {
		// `?.` recovers from not-found only; type, constraint, and user-throw
		// errors still propagate.
		return runtime.NullValue, nil
	}
	return v, err
}

// readMember reads property x off an arbitrary receiver: dispatches on the
// receiver's runtime kind. Object receivers use the member table and
// parent-chain lookup; every other value kind (and objects whose table has
// no match) falls back to the built-in value-surface properties
// (String.length, List.first, Pair.first, ...).
func (in *Interpreter) readMember(recv runtime.Value, name *ident.Identifier, span source.Span) (runtime.Value, *vmerrors.Error) {
	if obj, ok := recv.(*VmObject); ok {
		if _, _, ok := obj.LookupMember(IdentKey(name.Public())); ok {
			return in.forceMember(obj, IdentKey(name.Public()), span)
		}
	}
	v, ok, verr := in.valueProperty(recv, name.Name(), span)
	if verr != nil {
		return nil, verr
	}
	if !ok {
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "cannot find property %q on %s", name.Name(), runtime.TypeName(recv))
	}
	return v, nil
}

func (in *Interpreter) evalSubscript(n *cst.Subscript, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	recv, err := in.Eval(n.Receiver, frame, ctx)
	if err != nil {
		return nil, err
	}
	idx, err := in.Eval(n.Index, frame, ctx)
	if err != nil {
		return nil, err
	}
	switch r := recv.(type) {
	case runtime.String:
		runes := r.Runes()
		i, ok := idx.(runtime.Int)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "string index must be an Int")
		}
		if i.Value < 0 || i.Value >= int64(len(runes)) {
			return nil, vmerrors.New(vmerrors.KindCharIndexOutOfRange, n.ExprSpan(), "char index %d out of range", i.Value)
		}
		return runtime.String{Value: string(runes[i.Value])}, nil
	case *runtime.List:
		i, ok := idx.(runtime.Int)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "list index must be an Int")
		}
		if i.Value < 0 || i.Value >= int64(len(r.Elements)) {
			return nil, vmerrors.New(vmerrors.KindElementIndexOutOfRange, n.ExprSpan(), "element index %d out of range", i.Value)
		}
		return r.Elements[i.Value], nil
	case *runtime.Map:
		v, ok := r.Get(idx)
		if !ok {
			return nil, vmerrors.New(vmerrors.KindCannotFindKey, n.ExprSpan(), "cannot find key %s", runtime.Describe(idx))
		}
		return v, nil
	case *VmObject:
		if r.Variant == VariantListing {
			i, ok := idx.(runtime.Int)
			if !ok {
				return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "listing index must be an Int")
			}
			if i.Value < 0 || i.Value >= r.EffectiveLength() {
				return nil, vmerrors.New(vmerrors.KindElementIndexOutOfRange, n.ExprSpan(), "element index %d out of range", i.Value)
			}
			return in.readMemberByKey(r, IndexKey(i.Value), n.ExprSpan())
		}
		if _, _, ok := r.LookupMember(ValueKey(idx)); !ok {
			return nil, vmerrors.New(vmerrors.KindCannotFindKey, n.ExprSpan(), "cannot find key %s", runtime.Describe(idx))
		}
		return in.forceMember(r, ValueKey(idx), n.ExprSpan())
	default:
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "cannot subscript a %s", runtime.TypeName(recv))
	}
}

func (in *Interpreter) readMemberByKey(obj *VmObject, key Key, span source.Span) (runtime.Value, *vmerrors.Error) {
	if _, _, ok := obj.LookupMember(key); !ok {
		return nil, vmerrors.New(vmerrors.KindCannotFindKey, span, "cannot find key %s", key.String())
	}
	return in.forceMember(obj, key, span)
}

func (in *Interpreter) evalIf(n *cst.IfExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	cond, err := in.Eval(n.Cond, frame, ctx)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(runtime.Bool)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "if condition must be a Boolean")
	}
	if b.Value {
		return in.Eval(n.Then, frame, ctx)
	}
	return in.Eval(n.Else, frame, ctx)
}

func (in *Interpreter) evalLet(n *cst.LetExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	bound, err := in.Eval(n.Bound, frame, ctx)
	if err != nil {
		return nil, err
	}
	child := runtime.NewEnclosedFrame(frame, frame.Owner)
	if n.Name != "_" {
		child.Define(in.Idents.Intern(n.Name).Public(), bound)
	}
	childCtx := ctx
	childCtx.frame = child
	return in.Eval(n.Body, child, childCtx)
}

func (in *Interpreter) evalThrow(n *cst.ThrowExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	msg, err := in.Eval(n.Message, frame, ctx)
	if err != nil {
		return nil, err
	}
	return nil, vmerrors.New(vmerrors.KindUserThrow, n.ExprSpan(), "%s", runtime.Describe(msg))
}

func (in *Interpreter) evalTrace(n *cst.TraceExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	v, err := in.Eval(n.Value, frame, ctx)
	if err != nil {
		return nil, err
	}
	if in.Tracer != nil {
		in.Tracer.Trace(n.ExprSpan(), fmt.Sprintf("%s = %s", n.ExprSpan().String(), runtime.Describe(v)))
	}
	return v, nil
}

func (in *Interpreter) evalImport(n *cst.ImportExpr) (runtime.Value, *vmerrors.Error) {
	if n.Glob {
		return in.importGlob(n.URI, n.Nullable)
	}
	return in.importOne(n.URI, n.Nullable, n.ExprSpan())
}

func (in *Interpreter) evalRead(n *cst.ReadExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	uriVal, err := in.Eval(n.URI, frame, ctx)
	if err != nil {
		return nil, err
	}
	s, ok := uriVal.(runtime.String)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "read() URI must be a String")
	}
	if n.Glob {
		return in.readGlob(s.Value, n.Nullable)
	}
	return in.readOne(s.Value, n.Nullable, n.ExprSpan())
}

func (in *Interpreter) evalFuncLit(n *cst.FuncLit, frame *runtime.Frame) *runtime.Function {
	return &runtime.Function{
		Params:  n.Params,
		Return:  n.ReturnType,
		Body:    n.Body,
		This:    frame.This(),
		Closure: frame,
	}
}

func (in *Interpreter) evalInvocation(n *cst.Invocation, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	calleeVal, err := in.Eval(n.Callee, frame, ctx)
	if err != nil {
		return nil, err
	}
	fn, ok := calleeVal.(*runtime.Function)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindNotAFunction, n.ExprSpan(), "%s is not a function", runtime.Describe(calleeVal))
	}
	args := make([]runtime.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := in.Eval(a, frame, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return in.callFunction(fn, args, n.ExprSpan())
}

// callFunction applies fn to args, dispatching to a native implementation when
// present, otherwise binding parameters into a fresh frame and evaluating the
// body.
func (in *Interpreter) callFunction(fn *runtime.Function, args []runtime.Value, span source.Span) (runtime.Value, *vmerrors.Error) {
	if fn.Native != nil {
		v, err := fn.Native(args)
		if err != nil {
			if verr, ok := err.(*vmerrors.Error); ok {
				return nil, verr
			}
			return nil, vmerrors.New(vmerrors.KindUserThrow, span, "%s", err.Error())
		}
		return v, nil
	}
	if len(args) != len(fn.Params) {
		return nil, vmerrors.New(vmerrors.KindWrongArgumentCount, span, "expected %d arguments, got %d", len(fn.Params), len(args))
	}
	callFrame := runtime.NewEnclosedFrame(fn.Closure, fn.This)
	for i, p := range fn.Params {
		callFrame.Define(in.Idents.Intern(p.Name).Public(), args[i])
	}
	callCtx := resolveContext{frame: callFrame, baseModule: in.baseModule}
	v, err := in.callBody(fn, callFrame, callCtx, span)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Interpreter) callBody(fn *runtime.Function, callFrame *runtime.Frame, callCtx resolveContext, span source.Span) (runtime.Value, *vmerrors.Error) {
	v, err := in.Eval(fn.Body, callFrame, callCtx)
	if err != nil {
		return nil, err
	}
	if fn.Return != nil {
		ok, terr := typesys.Check(v, fn.Return, span, in.typeContext())
		if terr != nil {
			return nil, terr
		}
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeMismatch, span, "return value %s does not satisfy the declared return type %s", runtime.Describe(v), typesys.Describe(fn.Return))
		}
	}
	return v, nil
}

func (in *Interpreter) evalIs(n *cst.IsExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	v, err := in.Eval(n.Value, frame, ctx)
	if err != nil {
		return nil, err
	}
	ok, terr := typesys.Check(v, n.Type, n.ExprSpan(), in.typeContext())
	if terr != nil {
		return nil, terr
	}
	return runtime.Bool{Value: ok}, nil
}

func (in *Interpreter) evalAs(n *cst.AsExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	v, err := in.Eval(n.Value, frame, ctx)
	if err != nil {
		return nil, err
	}
	ok, terr := typesys.Check(v, n.Type, n.ExprSpan(), in.typeContext())
	if terr != nil {
		return nil, terr
	}
	if !ok {
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "%s is not a %s", runtime.Describe(v), typesys.Describe(n.Type))
	}
	return v, nil
}
