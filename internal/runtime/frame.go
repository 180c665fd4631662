package runtime

import (
	"fmt"

	"github.com/pklcore/pklcore/pkg/ident"
)

// SlotKind is the kind a Frame slot locks to on first write.
type SlotKind uint8

const (
	SlotUnset SlotKind = iota
	SlotInt
	SlotFloat
	SlotBool
	SlotObject // catch-all: string, list, object, function, ...
)

func slotKindOf(v Value) SlotKind {
	switch v.(type) {
	case Int:
		return SlotInt
	case Float:
		return SlotFloat
	case Bool:
		return SlotBool
	default:
		return SlotObject
	}
}

// Frame is an activation record: a chain of lexical parameter/let/for-loop
// bindings, the auxiliary untyped slot region for-generators use to pass
// iteration variables into nested object bodies, and the owner object whose
// member is being evaluated.
type Frame struct {
	Owner Value // the VmObject whose member body this frame evaluates
	outer *Frame

	kinds map[*ident.Identifier]SlotKind
	slots map[*ident.Identifier]Value
	aux   map[*ident.Identifier]Value

	// customThis, when non-nil, is the candidate value a constraint or
	// member-predicate expression should resolve bare `this` to instead of Owner.
	customThis Value
	hasCustom  bool
}

// NewFrame creates a root frame with no lexical outer scope.
func NewFrame(owner Value) *Frame {
	return &Frame{
		Owner: owner,
		kinds: make(map[*ident.Identifier]SlotKind),
		slots: make(map[*ident.Identifier]Value),
		aux:   make(map[*ident.Identifier]Value),
	}
}

// NewEnclosedFrame creates a frame nested inside outer, inheriting its owner
// unless a new one is supplied, and copying outer's auxiliary for-generator
// slots so lexical lookup can see them without climbing the owner chain, which
// does not carry loop variables.
func NewEnclosedFrame(outer *Frame, owner Value) *Frame {
	f := &Frame{
		Owner: owner,
		outer: outer,
		kinds: make(map[*ident.Identifier]SlotKind),
		slots: make(map[*ident.Identifier]Value),
		aux:   make(map[*ident.Identifier]Value),
	}
	if outer != nil {
		for k, v := range outer.aux {
			f.aux[k] = v
		}
	}
	return f
}

// Outer returns the enclosing lexical frame, or nil at the root.
func (f *Frame) Outer() *Frame { return f.outer }

// Define creates (or overwrites, within this frame only) a slot, locking its
// kind to v's kind. Redefining with a value of a different primitive kind is a
// programmer error in the evaluator (the type checker must have already
// rejected it) and panics rather than silently corrupting state.
func (f *Frame) Define(id *ident.Identifier, v Value) {
	kind := slotKindOf(v)
	if existing, ok := f.kinds[id]; ok && existing != SlotUnset && existing != kind && existing != SlotObject && kind != SlotObject {
		panic(fmt.Sprintf("frame slot %q cannot change kind after first write", id.Name()))
	}
	f.kinds[id] = kind
	f.slots[id] = v
}

// Get searches this frame only (not outer frames) for id.
func (f *Frame) Get(id *ident.Identifier) (Value, bool) {
	v, ok := f.slots[id]
	return v, ok
}

// Resolve walks outward from f through outer frames looking for id, returning
// the value and how many levels up it was found (0 = this frame). This lets
// the name resolver specialize to a same-level or N-level frame-slot read.
func (f *Frame) Resolve(id *ident.Identifier) (Value, int, bool) {
	level := 0
	for cur := f; cur != nil; cur = cur.outer {
		if v, ok := cur.slots[id]; ok {
			return v, level, true
		}
		level++
	}
	return nil, 0, false
}

// AtLevel reads the frame N levels up from f (0 = f itself), used by the
// resolver's cached "frame-slot read N levels up" specialization.
func (f *Frame) AtLevel(n int) *Frame {
	cur := f
	for i := 0; i < n && cur != nil; i++ {
		cur = cur.outer
	}
	return cur
}

// SetAux installs a for-generator iteration variable into this frame's
// auxiliary slot region.
func (f *Frame) SetAux(id *ident.Identifier, v Value) {
	f.aux[id] = v
}

// Aux looks up a for-generator iteration variable in this frame's auxiliary
// region (already flattened in from every enclosing frame at creation time by
// NewEnclosedFrame).
func (f *Frame) Aux(id *ident.Identifier) (Value, bool) {
	v, ok := f.aux[id]
	return v, ok
}

// WithCustomThis returns a child frame in which `this` resolves to candidate
// instead of the owning object, the "custom-this scope" established by type
// constraints and member predicates.
func (f *Frame) WithCustomThis(candidate Value) *Frame {
	child := NewEnclosedFrame(f, f.Owner)
	child.customThis = candidate
	child.hasCustom = true
	return child
}

// This resolves a bare `this` reference: the custom-this candidate if one is
// in scope, otherwise the owning object, walking outward since a custom-this
// scope may itself nest inside another (e.g. a predicate whose body references
// an outer object's property).
func (f *Frame) This() Value {
	for cur := f; cur != nil; cur = cur.outer {
		if cur.hasCustom {
			return cur.customThis
		}
	}
	return f.Owner
}
