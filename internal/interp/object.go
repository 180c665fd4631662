package interp

import (
	"fmt"

	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/typesys"
)

// Variant distinguishes the four object flavors:
// Listing (integer-indexed), Mapping (keyed by arbitrary values), Dynamic
// (accepts any members), Typed (bound to a class).
type Variant uint8

const (
	VariantTyped Variant = iota
	VariantDynamic
	VariantListing
	VariantMapping
)

func (v Variant) String() string {
	switch v {
	case VariantTyped:
		return "Typed"
	case VariantDynamic:
		return "Dynamic"
	case VariantListing:
		return "Listing"
	case VariantMapping:
		return "Mapping"
	default:
		return "?"
	}
}

// VmObject is the runtime object value: a class, the enclosing owner (lexical
// scope at construction site), the parent (amend-target or class prototype),
// an ordered member table, a memo cache, and a materialized enclosing frame
// snapshot.
type VmObject struct {
	Variant Variant
	Class   *VmClass // nil for Dynamic/Listing/Mapping

	EnclosingOwner *VmObject
	Parent         *VmObject
	Members        *Table

	// NextIndex is the next integer index a plain Listing element will receive;
	// tracked separately from Members.Len() because predicates and keyed entries
	// don't consume it.
	NextIndex int64

	// Root is the module object this object was constructed under; the const
	// discipline's MODULE level checks references against it.
	Root *VmObject

	frame *runtime.Frame

	memo map[string]runtime.Value
}

// NewObject creates a fresh object of the given variant with no members yet
// installed.
func NewObject(variant Variant, class *VmClass, enclosing, parent *VmObject, frame *runtime.Frame) *VmObject {
	o := &VmObject{
		Variant:        variant,
		Class:          class,
		EnclosingOwner: enclosing,
		Parent:         parent,
		Members:        NewTable(),
		frame:          frame,
		memo:           make(map[string]runtime.Value),
	}
	if enclosing != nil {
		o.Root = enclosing.Root
	}
	return o
}

// Kind implements runtime.Value.
func (o *VmObject) Kind() string {
	if o.Variant == VariantTyped && o.Class != nil {
		return o.Class.Name
	}
	return o.Variant.String()
}

func (o *VmObject) String() string {
	return fmt.Sprintf("%s object", o.Kind())
}

// ClassHandle implements typesys.Classified.
func (o *VmObject) ClassHandle() typesys.ClassHandle {
	if o.Class != nil {
		return o.Class
	}
	return builtinVariantHandle(o.Variant)
}

type builtinHandle string

func (h builtinHandle) QualifiedName() string     { return string(h) }
func (h builtinHandle) IsSubtypeOf(n string) bool { return string(h) == n || n == "Any" }

func builtinVariantHandle(v Variant) typesys.ClassHandle {
	switch v {
	case VariantDynamic:
		return builtinHandle("Dynamic")
	case VariantListing:
		return builtinHandle("Listing")
	case VariantMapping:
		return builtinHandle("Mapping")
	default:
		return builtinHandle("Typed")
	}
}

// OwnMember looks up exactly key in this object's own table (no parent walk,
// no local/public fallback; the resolver asks for the local companion
// explicitly when local-first semantics apply).
func (o *VmObject) OwnMember(key Key) (*Member, bool) {
	return o.Members.Get(key)
}

// LookupMember walks this object's own table, then its parent chain to the
// root. No Listing/Mapping default-member synthesis is performed: a key with
// no explicit member anywhere in the chain is not found.
func (o *VmObject) LookupMember(key Key) (*Member, *VmObject, bool) {
	for cur := o; cur != nil; cur = cur.Parent {
		if m, ok := cur.OwnMember(key); ok {
			return m, cur, true
		}
	}
	return nil, nil, false
}

// EffectiveLength is the Listing's current element count: own next index if
// any elements were added here, otherwise inherited from Parent.
func (o *VmObject) EffectiveLength() int64 {
	if o.NextIndex > 0 {
		return o.NextIndex
	}
	if o.Parent != nil {
		return o.Parent.EffectiveLength()
	}
	return 0
}

// getMemo / putMemo implement the write-once-per-key force cache.
func (o *VmObject) getMemo(h string) (runtime.Value, bool) {
	v, ok := o.memo[h]
	return v, ok
}

func (o *VmObject) putMemo(h string, v runtime.Value) {
	o.memo[h] = v
}

// Frame returns the materialized enclosing frame snapshot captured when this
// object was constructed, used as the lexical parent for member thunks that
// reference names outside the object body.
func (o *VmObject) Frame() *runtime.Frame { return o.frame }
