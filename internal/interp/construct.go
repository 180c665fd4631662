package interp

import (
	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/typesys"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/pkg/ident"
)

// forceMember resolves the value of receiver's member at key: returns the
// cached memo if present, otherwise finds the member (walking the parent
// chain), evaluates it with `this` bound to receiver, and memoizes the
// result on receiver. Forcing against the receiver rather than the object
// the member was found on is what makes amending late-bound: an inherited
// body re-evaluates against each amending object, never against its
// definition site.
func (in *Interpreter) forceMember(receiver *VmObject, key Key, span source.Span) (runtime.Value, *vmerrors.Error) {
	h := key.hash()
	if v, ok := receiver.getMemo(h); ok {
		return v, nil
	}
	m, _, ok := receiver.LookupMember(key)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, span, "cannot find member %s", key.String())
	}
	return in.forceResolvedMember(receiver, m, span)
}

// forceResolvedMember forces an already-looked-up member against receiver.
func (in *Interpreter) forceResolvedMember(receiver *VmObject, m *Member, span source.Span) (runtime.Value, *vmerrors.Error) {
	h := m.Key.hash()
	if v, ok := receiver.getMemo(h); ok {
		return v, nil
	}
	if m.IsMethod {
		fn := &runtime.Function{
			Name:    m.Key.String(),
			Params:  m.Params,
			Return:  m.ReturnType,
			Body:    m.Expr,
			This:    receiver,
			Closure: m.DefiningFrame,
		}
		receiver.putMemo(h, fn)
		return fn, nil
	}
	if m.Const != nil {
		receiver.putMemo(h, m.Const)
		return m.Const, nil
	}
	if err := in.pushForce(receiver, h, span); err != nil {
		return nil, err
	}
	defer in.popForce()

	if receiver.Root != nil {
		prevModule := in.currentModule
		in.currentModule = receiver.Root
		defer func() { in.currentModule = prevModule }()
	}
	frame := runtime.NewEnclosedFrame(m.DefiningFrame, receiver)
	bodyCtx := resolveContext{frame: frame, baseModule: in.baseModule, moduleRoot: receiver.Root}
	if m.IsConst() {
		bodyCtx.constLevel = ConstAll
	}
	declared := m.TypeAnn
	if declared == nil && m.Key.Kind == KeyIdent && receiver.Class != nil {
		// A body override carries no annotation of its own; the class-declared
		// property type still governs it.
		if cm, _, ok := receiver.Class.LookupMember(m.Key); ok && cm.TypeAnn != nil {
			declared = cm.TypeAnn
		}
	}
	bodyCtx.expectedType = declared
	v, err := in.Eval(m.Expr, frame, bodyCtx)
	if err != nil {
		return nil, err.PushFrame(m.Span, m.OwnerName)
	}
	if declared != nil {
		ok, terr := typesys.Check(v, declared, span, in.typeContext())
		if terr != nil {
			return nil, terr.PushFrame(m.Span, m.OwnerName)
		}
		if !ok {
			return nil, vmerrors.New(vmerrors.KindTypeConstraintViolated, span, "member %s does not satisfy its declared type", m.Key.String())
		}
	}
	receiver.putMemo(h, v)
	return v, nil
}

// evalNew constructs a fresh object via `new T {... }` / `new {... }`.
func (in *Interpreter) evalNew(n *cst.NewExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	name := n.TypeName
	if name == "" {
		name = contextualNewTarget(ctx.expectedType)
	}
	switch name {
	case "", "Dynamic":
		return in.constructObject(VariantDynamic, nil, nil, frame, n.Body, ctx)
	case "Listing":
		return in.constructObject(VariantListing, nil, nil, frame, n.Body, ctx)
	case "Mapping":
		return in.constructObject(VariantMapping, nil, nil, frame, n.Body, ctx)
	}
	class, ok := in.classes[name]
	if !ok {
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, n.ExprSpan(), "unknown class %q", name)
	}
	parent := class.Prototype
	return in.constructObject(VariantTyped, class, parent, frame, n.Body, ctx)
}

// contextualNewTarget picks the type name an untyped `new {}` defaults to
// from the declared type of the position it appears in: the named class or
// builtin variant, the default branch of a union, or "" when the context
// gives nothing to go on.
func contextualNewTarget(t *cst.TypeExpr) string {
	for t != nil {
		switch t.Kind {
		case cst.TypeDeclared:
			return t.Name
		case cst.TypeParenthesized, cst.TypeNullable, cst.TypeConstrained, cst.TypeDefaultUnion:
			t = t.Elem
		case cst.TypeUnion:
			if d := defaultUnionBranch(t); d != nil {
				t = d
				continue
			}
			return ""
		default:
			return ""
		}
	}
	return ""
}

func defaultUnionBranch(t *cst.TypeExpr) *cst.TypeExpr {
	if t.Kind != cst.TypeUnion {
		if t.Kind == cst.TypeDefaultUnion {
			return t.Elem
		}
		return nil
	}
	if d := defaultUnionBranch(t.Left); d != nil {
		return d
	}
	return defaultUnionBranch(t.Right)
}

// evalAmends constructs `(target) { body }`: the target is forced first and
// must be an object; the result reuses its variant and class and chains it as
// Parent.
func (in *Interpreter) evalAmends(n *cst.AmendsExpr, frame *runtime.Frame, ctx resolveContext) (runtime.Value, *vmerrors.Error) {
	targetVal, err := in.Eval(n.Target, frame, ctx)
	if err != nil {
		return nil, err
	}
	target, ok := targetVal.(*VmObject)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, n.ExprSpan(), "amends target must be an object")
	}
	return in.constructObject(target.Variant, target.Class, target, frame, n.Body, ctx)
}

// constructObject builds a new VmObject of variant, optionally bound to class
// and chained onto parent, then populates it from body.
func (in *Interpreter) constructObject(variant Variant, class *VmClass, parent *VmObject, frame *runtime.Frame, body *cst.ObjectBody, ctx resolveContext) (*VmObject, *vmerrors.Error) {
	obj := NewObject(variant, class, ownerOf(frame), parent, frame)
	if parent != nil {
		obj.NextIndex = parent.EffectiveLength()
	}
	childCtx := ctx
	childCtx.thisOverride = obj
	childCtx.hasThisOverride = true
	if err := in.populateBody(obj, body, frame, childCtx); err != nil {
		return nil, err
	}
	return obj, nil
}

func ownerOf(frame *runtime.Frame) *VmObject {
	if frame == nil {
		return nil
	}
	o, _ := frame.Owner.(*VmObject)
	return o
}

// populateBody installs body's entries onto obj in source order, expanding
// generators inline.
func (in *Interpreter) populateBody(obj *VmObject, body *cst.ObjectBody, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	if body == nil {
		return nil
	}
	for _, entry := range body.Entries {
		if err := in.installEntry(obj, entry, frame, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) installEntry(obj *VmObject, entry cst.Entry, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	switch e := entry.(type) {
	case *cst.PropertyEntry:
		return in.installProperty(obj, e, frame)
	case *cst.MethodEntry:
		return in.installMethod(obj, e, frame)
	case *cst.ElementEntry:
		key := IndexKey(obj.NextIndex)
		obj.NextIndex++
		obj.Members.Put(key, &Member{
			DefiningFrame: frame,
			Expr:          e.Value,
			Span:          e.Span,
			OwnerName:     obj.Kind(),
		})
		return nil
	case *cst.KeyedEntry:
		keyVal, err := in.Eval(e.Key, frame, ctx)
		if err != nil {
			return err
		}
		obj.Members.Put(ValueKey(keyVal), &Member{
			DefiningFrame: frame,
			Expr:          e.Value,
			Span:          e.Span,
			OwnerName:     obj.Kind(),
		})
		return nil
	case *cst.SpreadEntry:
		return in.installSpread(obj, e, frame, ctx)
	case *cst.WhenEntry:
		return in.installWhen(obj, e, frame, ctx)
	case *cst.ForEntry:
		return in.installFor(obj, e, frame, ctx)
	case *cst.PredicateEntry:
		return in.installPredicate(obj, e, frame, ctx)
	default:
		return vmerrors.New(vmerrors.KindTypeMismatch, entry.EntrySpan(), "unsupported object entry %T", entry)
	}
}

func (in *Interpreter) installProperty(obj *VmObject, e *cst.PropertyEntry, frame *runtime.Frame) *vmerrors.Error {
	id := in.Idents.Intern(e.Name)
	if e.Modifiers.IsLocal() {
		id = id.Local()
	} else {
		if obj.Variant == VariantTyped && obj.Class != nil && !obj.Class.DeclaresProperty(IdentKey(id)) {
			return vmerrors.New(vmerrors.KindCannotFindProperty, e.Span, "class %s has no property %q", obj.Class.Name, e.Name)
		}
		id = id.Public()
	}
	obj.Members.Put(IdentKey(id), &Member{
		Modifiers:     e.Modifiers,
		Doc:           e.DocComment,
		Span:          e.Span,
		OwnerName:     obj.Kind(),
		DefiningFrame: frame,
		Expr:          e.Value,
		TypeAnn:       e.TypeAnn,
	})
	return nil
}

func (in *Interpreter) installMethod(obj *VmObject, e *cst.MethodEntry, frame *runtime.Frame) *vmerrors.Error {
	id := in.Idents.Intern(e.Name)
	if e.Modifiers.IsLocal() {
		id = id.Local()
	} else {
		id = id.Public()
	}
	obj.Members.Put(IdentKey(id), &Member{
		Modifiers:     e.Modifiers,
		Doc:           e.DocComment,
		Span:          e.Span,
		OwnerName:     obj.Kind(),
		DefiningFrame: frame,
		IsMethod:      true,
		Params:        e.Params,
		ReturnType:    e.ReturnType,
		Expr:          e.Body,
	})
	return nil
}

func (in *Interpreter) installSpread(obj *VmObject, e *cst.SpreadEntry, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	v, err := in.Eval(e.Source, frame, ctx)
	if err != nil {
		return err
	}
	if e.Nullable && runtime.IsNull(v) {
		return nil
	}
	src, ok := v.(*VmObject)
	if !ok {
		return vmerrors.New(vmerrors.KindTypeMismatch, e.Span, "spread source must be an object")
	}
	for _, m := range src.allMembersOrdered() {
		if m.IsLocal() {
			continue
		}
		// Copy before installing: Put stamps the key onto the member, and the
		// source object still owns the original.
		cp := *m
		if cp.Key.Kind == KeyIndex {
			newKey := IndexKey(obj.NextIndex)
			obj.NextIndex++
			obj.Members.Put(newKey, &cp)
			continue
		}
		obj.Members.Put(cp.Key, &cp)
	}
	return nil
}

// allMembersOrdered flattens the parent chain into one ordered member list:
// the parent's order is the base, an own member at an existing key replaces
// the parent's entry in place, and an own member at a new key is appended at
// the end in its own insertion order.
func (o *VmObject) allMembersOrdered() []*Member {
	var base []*Member
	if o.Parent != nil {
		base = o.Parent.allMembersOrdered()
	}
	pos := make(map[string]int, len(base))
	for i, m := range base {
		pos[m.Key.hash()] = i
	}
	for _, k := range o.Members.Keys() {
		m, _ := o.Members.Get(k)
		h := k.hash()
		if i, ok := pos[h]; ok {
			base[i] = m
			continue
		}
		pos[h] = len(base)
		base = append(base, m)
	}
	return base
}

func (in *Interpreter) installWhen(obj *VmObject, e *cst.WhenEntry, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	cond, err := in.Eval(e.Cond, frame, ctx)
	if err != nil {
		return err
	}
	b, ok := cond.(runtime.Bool)
	if !ok {
		return vmerrors.New(vmerrors.KindTypeMismatch, e.Span, "when condition must be a Boolean")
	}
	branch := e.Then
	if !b.Value {
		branch = e.Else
	}
	return in.populateBody(obj, branch, frame, ctx)
}

func (in *Interpreter) installFor(obj *VmObject, e *cst.ForEntry, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	src, err := in.Eval(e.Source, frame, ctx)
	if err != nil {
		return err
	}
	keys, values, ferr := in.iterationPairs(src, e.Span)
	if ferr != nil {
		return ferr
	}
	keyID := in.Idents.Intern(e.KeyVar).Public()
	var valID *ident.Identifier
	if e.ValueVar != "" {
		valID = in.Idents.Intern(e.ValueVar).Public()
	}
	for i := range keys {
		iterFrame := runtime.NewEnclosedFrame(frame, frame.Owner)
		if valID != nil {
			iterFrame.SetAux(keyID, keys[i])
			iterFrame.SetAux(valID, values[i])
		} else {
			iterFrame.SetAux(keyID, values[i])
		}
		iterCtx := ctx
		iterCtx.frame = iterFrame
		if err := in.populateBody(obj, e.Body, iterFrame, iterCtx); err != nil {
			return err
		}
	}
	return nil
}

// installPredicate handles `[[expr]] = v`: the predicate is evaluated, with
// `this` bound to the candidate value, for every element/entry the parent
// chain already holds; matching keys get the entry's value installed as an
// override.
func (in *Interpreter) installPredicate(obj *VmObject, e *cst.PredicateEntry, frame *runtime.Frame, ctx resolveContext) *vmerrors.Error {
	if obj.Parent == nil {
		return nil
	}
	for _, m := range obj.Parent.allMembersOrdered() {
		if m.IsLocal() || m.IsMethod || m.Key.Kind == KeyIdent {
			continue
		}
		candidate, err := in.forceResolvedMember(obj.Parent, m, e.Span)
		if err != nil {
			return err
		}
		predFrame := frame.WithCustomThis(candidate)
		predCtx := ctx
		predCtx.frame = predFrame
		predCtx.hasThisOverride = false
		predCtx.thisOverride = nil
		cond, err := in.Eval(e.Predicate, predFrame, predCtx)
		if err != nil {
			return err
		}
		b, ok := cond.(runtime.Bool)
		if !ok {
			return vmerrors.New(vmerrors.KindTypeMismatch, e.Span, "member predicate must be a Boolean")
		}
		if !b.Value {
			continue
		}
		obj.Members.Put(m.Key, &Member{DefiningFrame: frame, Expr: e.Value, Span: e.Span, OwnerName: obj.Kind()})
	}
	return nil
}

// iterationPairs produces the (key, value) sequence a `for` generator walks
// for each supported collection kind. Listing/Mapping/Dynamic objects are
// iterated by forcing each of their own-and-inherited members in order.
func (in *Interpreter) iterationPairs(src runtime.Value, span source.Span) (keys, values []runtime.Value, err *vmerrors.Error) {
	switch v := src.(type) {
	case *runtime.List:
		keys = make([]runtime.Value, len(v.Elements))
		for i := range v.Elements {
			keys[i] = runtime.Int{Value: int64(i)}
		}
		return keys, v.Elements, nil
	case *runtime.Set:
		return v.Elements, v.Elements, nil
	case *runtime.Map:
		return v.Keys(), v.Values(), nil
	case *VmObject:
		for _, m := range v.allMembersOrdered() {
			if m.IsLocal() || m.IsMethod {
				continue
			}
			val, ferr := in.forceResolvedMember(v, m, span)
			if ferr != nil {
				return nil, nil, ferr
			}
			switch m.Key.Kind {
			case KeyIndex:
				keys = append(keys, runtime.Int{Value: m.Key.Index})
			case KeyValue:
				keys = append(keys, m.Key.Val)
			default:
				keys = append(keys, runtime.String{Value: m.Key.Ident.Name()})
			}
			values = append(values, val)
		}
		return keys, values, nil
	default:
		return nil, nil, vmerrors.New(vmerrors.KindTypeMismatch, span, "cannot iterate a %s", runtime.TypeName(src))
	}
}

// ForcedEntry is one rendered member: its display key and forced value,
// produced by ForceAllMembers for an external renderer to walk.
type ForcedEntry struct {
	Key    string
	Value  runtime.Value
	Hidden bool

	// IsElement marks integer-indexed Listing elements, which renderers lay
	// out positionally rather than by key.
	IsElement bool
}

// ForceAllMembers forces every non-local member of obj, in its effective
// (parent-chain-merged) order, and returns them as display-ready entries
// for the renderer-facing view.
func (in *Interpreter) ForceAllMembers(obj *VmObject) ([]ForcedEntry, *vmerrors.Error) {
	var out []ForcedEntry
	for _, m := range obj.allMembersOrdered() {
		if m.IsLocal() || m.IsMethod {
			continue
		}
		val, err := in.forceResolvedMember(obj, m, m.Span)
		if err != nil {
			return nil, err
		}
		display := m.Key.String()
		if m.Key.Kind == KeyValue {
			display = runtime.ToDisplayString(m.Key.Val)
		}
		out = append(out, ForcedEntry{
			Key:       display,
			Value:     val,
			Hidden:    m.Modifiers.IsHidden(),
			IsElement: m.Key.Kind == KeyIndex,
		})
	}
	return out, nil
}
