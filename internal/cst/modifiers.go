package cst

// Modifiers is the bitset carried by every member declaration: local, hidden,
// fixed, const, external, abstract, open.
type Modifiers uint8

const (
	ModLocal Modifiers = 1 << iota
	ModHidden
	ModFixed
	ModConst
	ModExternal
	ModAbstract
	ModOpen
)

func (m Modifiers) Has(flag Modifiers) bool { return m&flag != 0 }

func (m Modifiers) IsLocal() bool    { return m.Has(ModLocal) }
func (m Modifiers) IsHidden() bool   { return m.Has(ModHidden) }
func (m Modifiers) IsFixed() bool    { return m.Has(ModFixed) }
func (m Modifiers) IsConst() bool    { return m.Has(ModConst) }
func (m Modifiers) IsExternal() bool { return m.Has(ModExternal) }
func (m Modifiers) IsAbstract() bool { return m.Has(ModAbstract) }
func (m Modifiers) IsOpen() bool     { return m.Has(ModOpen) }
