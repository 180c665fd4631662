package interp

import (
	"fmt"

	"github.com/pklcore/pklcore/internal/cst"
)

// VmClass is the runtime metadata for a declared class: qualified name, type
// parameters, supertype, own members, modifiers, and the declared prototype
// object new instances amend.
//
// Properties, methods, and nested classes all share one namespace and one
// insertion order, so a single ordered member table backs all three.
type VmClass struct {
	Name       string
	ModuleURI  string
	TypeParams []string
	Super      *VmClass
	Own        *Table
	Modifiers  cst.Modifiers

	// Prototype is the class's declared default instance: `new T {}` amends this
	// object. Built lazily by the module driver during publish-then-populate
	// initialization.
	Prototype *VmObject
}

// QualifiedName implements typesys.ClassHandle.
func (c *VmClass) QualifiedName() string { return c.Name }

// IsSubtypeOf implements typesys.ClassHandle: walks the Super chain, including
// c itself.
func (c *VmClass) IsSubtypeOf(name string) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur.Name == name {
			return true
		}
	}
	return false
}

// LookupMember walks the class hierarchy: own members first, then Super.
func (c *VmClass) LookupMember(key Key) (*Member, *VmClass, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Own.Get(key); ok {
			return m, cur, true
		}
	}
	return nil, nil, false
}

// DeclaresProperty reports whether name is a declared (non-local) property
// anywhere in the hierarchy, used to enforce "a Typed object inherits its
// member key set from its class; amending may only override declared
// properties, not introduce new keys".
func (c *VmClass) DeclaresProperty(key Key) bool {
	_, _, ok := c.LookupMember(key)
	return ok
}

func (c *VmClass) String() string {
	if c.Super != nil {
		return fmt.Sprintf("class %s extends %s", c.Name, c.Super.Name)
	}
	return fmt.Sprintf("class %s", c.Name)
}
