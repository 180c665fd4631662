package cst

// ObjectBody is the member-list portion of a class, module, or object
// literal. Entries are kept in source order: generators (for/when),
// spreads, and predicates expand in that order when the body is turned into
// member slots.
type ObjectBody struct {
	// Parameters names the positional parameters of a function-valued
	// object body (`(a, b) { ... }` amending a function), empty otherwise.
	Parameters []string
	Entries    []Entry
	Span       Span
}

// Entry is one source-order item in an object body.
type Entry interface {
	entryNode()
	EntrySpan() Span
}

// PropertyEntry declares `name = value` or `name { ... }` (the body-amends
// sugar, represented by Value being a NewExpr/AmendsExpr/nested ObjectBody
// wrapped in an expression by the producing front end).
type PropertyEntry struct {
	Name       string
	Modifiers  Modifiers
	DocComment string
	TypeAnn    *TypeExpr
	Value      Expr
	Span       Span
}

func (*PropertyEntry) entryNode()        {}
func (e *PropertyEntry) EntrySpan() Span { return e.Span }

// MethodEntry declares a method member.
type MethodEntry struct {
	Name       string
	Modifiers  Modifiers
	DocComment string
	Params     []Param
	ReturnType *TypeExpr
	Body       Expr
	Span       Span
}

func (*MethodEntry) entryNode()        {}
func (e *MethodEntry) EntrySpan() Span { return e.Span }

// ElementEntry appends a plain Listing element (next integer index).
type ElementEntry struct {
	Value Expr
	Span  Span
}

func (*ElementEntry) entryNode()        {}
func (e *ElementEntry) EntrySpan() Span { return e.Span }

// KeyedEntry is `[k] = v`: k is evaluated eagerly at construction time and
// installs/overwrites the member at that key.
type KeyedEntry struct {
	Key   Expr
	Value Expr
	Span  Span
}

func (*KeyedEntry) entryNode()        {}
func (e *KeyedEntry) EntrySpan() Span { return e.Span }

// SpreadEntry is `...e` / `...?e`: merges e's members in order. A nullable
// spread of null contributes no members.
type SpreadEntry struct {
	Source   Expr
	Nullable bool
	Span     Span
}

func (*SpreadEntry) entryNode()        {}
func (e *SpreadEntry) EntrySpan() Span { return e.Span }

// WhenEntry is `when (cond) { Then } else { Else }`; Else may be nil.
type WhenEntry struct {
	Cond Expr
	Then *ObjectBody
	Else *ObjectBody
	Span Span
}

func (*WhenEntry) entryNode()        {}
func (e *WhenEntry) EntrySpan() Span { return e.Span }

// ForEntry is `for (k[, v] in source) { body }`. ValueVar is empty when the
// loop binds only one variable (then KeyVar actually names the element, not
// a key, matching the one-variable `for (x in xs)` form).
type ForEntry struct {
	KeyVar   string
	ValueVar string // empty if the loop only binds one variable
	Source   Expr
	Body     *ObjectBody
	Span     Span
}

func (*ForEntry) entryNode()        {}
func (e *ForEntry) EntrySpan() Span { return e.Span }

// PredicateEntry is `[[expr]] = v`: a conditional entry. It is expanded when
// the amending object is constructed, against the elements/entries inherited
// from the parent at that point; it is not deferred to force time.
type PredicateEntry struct {
	Predicate Expr
	Value     Expr
	Span      Span
}

func (*PredicateEntry) entryNode()        {}
func (e *PredicateEntry) EntrySpan() Span { return e.Span }
