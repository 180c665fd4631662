// Package interp is the evaluator core: the member table, the name
// resolver, the tree-walking expression evaluator, object construction,
// amending and inheritance, and the module driver. The object model and the
// evaluator share one package because object construction and expression
// evaluation are mutually recursive: amending a property evaluates an
// expression, and evaluating `new` constructs an object.
package interp

import (
	"fmt"
	"strconv"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/pkg/ident"
)

// KeyKind tags which field of Key is meaningful.
type KeyKind uint8

const (
	KeyIdent KeyKind = iota
	KeyIndex
	KeyValue
)

// Key is a member's identity: an interned Identifier, a long index (for
// Listing elements), or an arbitrary Value (for Mapping/Dynamic entries).
// Member keys are unique per object.
type Key struct {
	Kind  KeyKind
	Ident *ident.Identifier
	Index int64
	Val   runtime.Value
}

// IdentKey builds an identifier-keyed Key.
func IdentKey(id *ident.Identifier) Key { return Key{Kind: KeyIdent, Ident: id} }

// IndexKey builds a Listing-element Key.
func IndexKey(i int64) Key { return Key{Kind: KeyIndex, Index: i} }

// ValueKey builds an arbitrary-value Key (Mapping/Dynamic entries).
func ValueKey(v runtime.Value) Key { return Key{Kind: KeyValue, Val: v} }

// hash produces a stable string identity for use as a Go map key.
func (k Key) hash() string {
	switch k.Kind {
	case KeyIdent:
		// Pointer identity, not name: `foo` and `local foo` must hash differently
		// even though they share a spelling.
		return fmt.Sprintf("i%p", k.Ident)
	case KeyIndex:
		return "x" + strconv.FormatInt(k.Index, 10)
	default:
		return "v" + runtime.HashKey(k.Val)
	}
}

// String renders the key for diagnostics.
func (k Key) String() string {
	switch k.Kind {
	case KeyIdent:
		return k.Ident.String()
	case KeyIndex:
		return "[" + strconv.FormatInt(k.Index, 10) + "]"
	default:
		return "[" + k.Val.String() + "]"
	}
}

// Member is one named or keyed binding in an object. It carries either a
// precomputed Const value or an unforced Expr bound to the lexical frame
// captured at the member's definition site (the "lazy thunk").
type Member struct {
	Key       Key
	Modifiers cst.Modifiers
	Doc       string
	Span      source.Span
	OwnerName string // qualified name of the declaring class/module, for stack frames

	// Defining scope of the unforced expression.
	DefiningFrame *runtime.Frame
	Expr          cst.Expr

	Const runtime.Value // non-nil overrides Expr: an already-forced value

	IsMethod   bool
	Params     []cst.Param
	ReturnType *cst.TypeExpr
	TypeAnn    *cst.TypeExpr // declared type of a property member
}

// IsLocal reports whether this member is `local` (never visible across
// amend chains, never rendered).
func (m *Member) IsLocal() bool { return m.Modifiers.IsLocal() }

// IsConst reports whether this member was declared `const`.
func (m *Member) IsConst() bool { return m.Modifiers.IsConst() }

// Table is the ordered mapping from Key to Member that backs every VmObject
// and VmClass. Insertion order is preserved and observable; an overwrite
// keeps the original position.
type Table struct {
	order   []Key
	byHash  map[string]int
	members []*Member
}

// NewTable creates an empty member table.
func NewTable() *Table {
	return &Table{byHash: make(map[string]int)}
}

// Put installs or overwrites the member at key, preserving the original
// insertion position on overwrite.
func (t *Table) Put(key Key, m *Member) {
	m.Key = key
	h := key.hash()
	if i, ok := t.byHash[h]; ok {
		t.members[i] = m
		return
	}
	t.byHash[h] = len(t.order)
	t.order = append(t.order, key)
	t.members = append(t.members, m)
}

// Get looks up the member installed at exactly key. There is no local/public
// fallback here: the resolver asks for the local companion explicitly before
// the public form, which is what makes `local x` shadow a public `x` from
// its defining scope.
func (t *Table) Get(key Key) (*Member, bool) {
	i, ok := t.byHash[key.hash()]
	if !ok {
		return nil, false
	}
	return t.members[i], true
}

// Keys returns the table's keys in insertion order.
func (t *Table) Keys() []Key { return t.order }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.order) }
