package cst

// Expr is any expression node. Every evaluator error attaches the span of the
// expression that raised it.
type Expr interface {
	exprNode()
	ExprSpan() Span
}

type exprBase struct{ Span Span }

func (exprBase) exprNode()        {}
func (e exprBase) ExprSpan() Span { return e.Span }

// NullLit, BoolLit, IntLit, FloatLit, StringLit are the primitive literals.
type NullLit struct{ exprBase }

type BoolLit struct {
	exprBase
	Value bool
}

type IntLit struct {
	exprBase
	Value int64
}

type FloatLit struct {
	exprBase
	Value float64
}

type StringLit struct {
	exprBase
	Value string
}

// DurationLit and DataSizeLit are the unit-suffixed numeric literals.
type DurationLit struct {
	exprBase
	Magnitude float64
	Unit      string
}

type DataSizeLit struct {
	exprBase
	Magnitude float64
	Unit      string
}

// StringPart is one segment of a (possibly interpolated, possibly multi-line)
// string template.
type StringPart struct {
	Literal string // set when Expr is nil
	Expr    Expr   // set when this segment is `\(expr)`
}

// StringInterp concatenates its parts. CommonIndent, when non-empty, is the
// indentation computed from the closing delimiter line of a multi-line string
// literal and is stripped from the start of every literal segment's lines
// before concatenation.
type StringInterp struct {
	exprBase
	Parts        []StringPart
	CommonIndent string
}

// Ident is an unresolved reference to a name. resolved caches the one-shot
// name-resolution decision: the first evaluation of this node performs the
// full lexical/base/this walk and stores the result here; every subsequent
// evaluation of the same node reads resolved directly.
type Ident struct {
	exprBase
	Name     string
	resolved any // *interp.Resolution, opaque here to avoid an import cycle
}

// Resolved returns the cached resolution decision, if any.
func (i *Ident) Resolved() any { return i.resolved }

// SetResolved caches the resolution decision for all future evaluations of
// this node.
func (i *Ident) SetResolved(r any) { i.resolved = r }

// ThisLit is a bare `this` reference: the owning object in an ordinary
// member body, the candidate value inside a constraint or member predicate.
type ThisLit struct{ exprBase }

// QualifiedAccess is `e.x` (or `e?.x` when Nullable is set).
type QualifiedAccess struct {
	exprBase
	Receiver Expr
	Name     string
	Nullable bool
}

// Subscript is `e[k]`.
type Subscript struct {
	exprBase
	Receiver Expr
	Index    Expr
}

// IfExpr is `if (cond) then else else`; both arms are evaluated lazily.
type IfExpr struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

// LetExpr is `let (name = bound) body`; name "_" discards the value.
type LetExpr struct {
	exprBase
	Name  string
	Bound Expr
	Body  Expr
}

// BinaryExpr covers every binary operator:
// ** * / ~/ % + - < <= > >= is as == != && || |> ??.
type BinaryExpr struct {
	exprBase
	Op          string
	Left, Right Expr
}

// UnaryExpr covers `-x`, `!x`, and the non-null assertion `x!!`.
type UnaryExpr struct {
	exprBase
	Op      string // "-", "!", "!!"
	Operand Expr
}

// ThrowExpr is `throw(msg)`.
type ThrowExpr struct {
	exprBase
	Message Expr
}

// TraceExpr is `trace(e)`: evaluates e, logs its string form with this node's
// source location, and returns e's value.
type TraceExpr struct {
	exprBase
	Value Expr
}

// ImportExpr is `import/import*/import? "uri"`.
type ImportExpr struct {
	exprBase
	URI      string
	Glob     bool
	Nullable bool
}

// ReadExpr is `read/read*/read? (uriExpr)`.
type ReadExpr struct {
	exprBase
	URI      Expr
	Glob     bool
	Nullable bool
}

// NewExpr is `new [Type] { body }`. TypeName is empty for a contextual `new
// {... }`.
type NewExpr struct {
	exprBase
	TypeName string
	TypeArgs []*TypeExpr
	Body     *ObjectBody
}

// AmendsExpr is `(target) { body }`: target must evaluate to an object.
type AmendsExpr struct {
	exprBase
	Target Expr
	Body   *ObjectBody
}

// FuncLit is a function literal / lambda.
type FuncLit struct {
	exprBase
	Params     []Param
	ReturnType *TypeExpr
	Body       Expr
}

// Invocation is `callee(args...)`.
type Invocation struct {
	exprBase
	Callee Expr
	Args   []Expr
}

// IsExpr is `value is Type`.
type IsExpr struct {
	exprBase
	Value Expr
	Type  *TypeExpr
}

// AsExpr is `value as Type`.
type AsExpr struct {
	exprBase
	Value Expr
	Type  *TypeExpr
}

// ListingLit / MappingLit are `new Listing {... }`-equivalent literal
// shorthands used by the prelude and by tests; `List(...)`/`Map(...)` calls go
// through Invocation + prelude builtins instead.
type ListingLit struct {
	exprBase
	Body *ObjectBody
}

type MappingLit struct {
	exprBase
	Body *ObjectBody
}

// DynamicLit is `new Dynamic {... }` / a bare `{... }` object literal.
type DynamicLit struct {
	exprBase
	Body *ObjectBody
}
