package interp

import (
	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/pkg/ident"
)

// ConstLevel is the const-scope strength in force at a call site: ALL means
// every non-const reference outside the current const depth fails, MODULE
// restricts only references into the module object, None performs no check.
type ConstLevel uint8

const (
	ConstNone ConstLevel = iota
	ConstModule
	ConstAll
)

// ResKind tags which specialization a Resolution node carries.
type ResKind uint8

const (
	ResFrameSlot ResKind = iota
	ResAux
	ResLexicalProperty
	ResBaseModuleProperty
	ResImplicitThis
	ResConstant
)

// Resolution is the specialized read node a resolve site is rewritten to after
// its first successful lookup. It is stored in the cst.Ident node itself via
// SetResolved so later evaluations of the same source location skip the walk
// entirely.
//
// Property reads record the decision shape (which lexical level, which
// identifier) rather than the concrete object that happened to be the owner
// on first execution: the same source location is re-executed against a
// different owner for every object instantiated from its body, and caching
// the object would pin every instance to the first one's values.
type Resolution struct {
	Kind ResKind

	// ResFrameSlot / ResAux / ResLexicalProperty / ResImplicitThis
	Level int
	Id    *ident.Identifier

	// ResBaseModuleProperty (the base-module object the member was found on;
	// it is cached directly, since the prelude loader builds the base module
	// once per interpreter).
	Object *VmObject
	Key    Key

	// ResConstant
	Value runtime.Value
}

// resolveContext carries the per-call-site state the resolver needs beyond the
// frame chain itself: whether this site already lives inside the base module
// (skips step 2), the const discipline in effect, and the declared type of
// the surrounding position (for contextual `new`).
type resolveContext struct {
	frame           *runtime.Frame
	insideBase      bool
	baseModule      *VmObject
	moduleRoot      *VmObject
	constLevel      ConstLevel
	constDepth      int // number of lexical levels, from the innermost, that are "within" the const region
	thisOverride    *VmObject
	hasThisOverride bool
	expectedType    *cst.TypeExpr
}

// resolveIdent decides between lexical frame slot, lexical/owner property,
// base-module property, and implicit-this property read. It is called
// once per source location; callers cache the result on the cst.Ident node and
// should check Resolved() first.
func (in *Interpreter) resolveIdent(name *ident.Identifier, span vmerrSpan, ctx resolveContext) (*Resolution, *vmerrors.Error) {
	// Step 1: walk the lexical chain outward.
	level := 0
	for f := ctx.frame; f != nil; f = f.Outer() {
		if _, ok := f.Get(name.Local()); ok {
			return &Resolution{Kind: ResFrameSlot, Level: level, Id: name.Local()}, nil
		}
		if _, ok := f.Get(name.Public()); ok {
			return &Resolution{Kind: ResFrameSlot, Level: level, Id: name.Public()}, nil
		}
		if _, ok := f.Aux(name.Local()); ok {
			return &Resolution{Kind: ResAux, Level: level, Id: name.Local()}, nil
		}
		if _, ok := f.Aux(name.Public()); ok {
			return &Resolution{Kind: ResAux, Level: level, Id: name.Public()}, nil
		}
		if owner, ok := f.Owner.(*VmObject); ok && owner != nil {
			if m, foundOn, ok := owner.LookupMember(IdentKey(name.Local())); ok {
				if err := in.checkConst(m, foundOn, ctx, level); err != nil {
					return nil, err
				}
				return &Resolution{Kind: ResLexicalProperty, Level: level, Id: name.Local()}, nil
			}
			if m, foundOn, ok := owner.LookupMember(IdentKey(name.Public())); ok {
				if err := in.checkConst(m, foundOn, ctx, level); err != nil {
					return nil, err
				}
				return &Resolution{Kind: ResLexicalProperty, Level: level, Id: name.Public()}, nil
			}
		}
		level++
	}

	// Step 2: the base-module prototype, unless already inside it.
	if !ctx.insideBase && ctx.baseModule != nil {
		if m, foundOn, ok := ctx.baseModule.LookupMember(IdentKey(name.Public())); ok {
			if err := in.checkConst(m, foundOn, ctx, level); err != nil {
				return nil, err
			}
			return &Resolution{Kind: ResBaseModuleProperty, Object: foundOn, Key: m.Key}, nil
		}
	}

	// Step 3: implicit-this property read. The resolution records only the
	// name: the receiver is recomputed from the frame on every read, since
	// `this` is late-bound.
	thisVal := resolveThis(ctx)
	if thisVal == nil {
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span.Span(), "cannot resolve %q", name.Name())
	}
	if obj, ok := thisVal.(*VmObject); ok {
		m, foundOn, ok := obj.LookupMember(IdentKey(name.Public()))
		if !ok {
			return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span.Span(), "cannot find property %q", name.Name())
		}
		if err := in.checkConst(m, foundOn, ctx, -1); err != nil {
			return nil, err
		}
		return &Resolution{Kind: ResImplicitThis, Id: name.Public()}, nil
	}
	if _, ok, verr := in.valueProperty(thisVal, name.Name(), span.Span()); verr == nil && ok {
		return &Resolution{Kind: ResImplicitThis, Id: name.Public()}, nil
	}
	return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span.Span(), "cannot find property %q on %s", name.Name(), runtime.TypeName(thisVal))
}

// resolveThis computes the value a bare `this` (or an implicit-this property
// read) denotes at a call site: an explicit construction-time override wins,
// then the frame chain's custom-this / owner.
func resolveThis(ctx resolveContext) runtime.Value {
	if ctx.hasThisOverride {
		return ctx.thisOverride
	}
	if ctx.frame == nil {
		return nil
	}
	return ctx.frame.This()
}

// checkConst enforces the const discipline. level == -1 marks an
// implicit-this read (always outside the lexical chain, so always subject to
// the ALL-level check if one is active).
func (in *Interpreter) checkConst(m *Member, owner *VmObject, ctx resolveContext, level int) *vmerrors.Error {
	if ctx.constLevel == ConstNone {
		return nil
	}
	if m.IsConst() {
		return nil
	}
	switch ctx.constLevel {
	case ConstAll:
		if level < 0 || level >= ctx.constDepth {
			return vmerrors.New(vmerrors.KindPropertyMustBeConst, m.Span, "%q must be const in this scope", m.Key.String())
		}
	case ConstModule:
		if owner != nil && owner == ctx.moduleRoot {
			return vmerrors.New(vmerrors.KindPropertyMustBeConst, m.Span, "%q must be const in this scope", m.Key.String())
		}
	}
	return nil
}

// specializeIdent resolves id.Resolved() if not already cached, storing the
// Resolution back onto the cst.Ident node.
func (in *Interpreter) specializeIdent(id *cst.Ident, name *ident.Identifier, ctx resolveContext) (*Resolution, *vmerrors.Error) {
	if cached, ok := id.Resolved().(*Resolution); ok {
		return cached, nil
	}
	res, err := in.resolveIdent(name, exprSpan{id}, ctx)
	if err != nil {
		return nil, err
	}
	id.SetResolved(res)
	return res, nil
}

// vmerrSpan is the minimal span accessor the resolver needs, satisfied by
// exprSpan below; kept as an interface so resolver.go does not need to import
// cst for every call site.
type vmerrSpan interface {
	Span() source.Span
}

type exprSpan struct{ e *cst.Ident }

func (s exprSpan) Span() source.Span { return s.e.ExprSpan() }
