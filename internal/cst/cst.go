// Package cst is the shape of the tree the external parser hands to the module
// driver: a module with an optional declaration, an import list, and a list of
// entries (classes, type aliases, properties, methods), every node carrying a
// source span.
//
// This package is intentionally a pure data shape with no behavior. The real
// parser that produces it, and the real lexer that tokenizes source text for
// it, are out of scope. Tests build these trees by hand instead of
// round-tripping through a lexer/parser.
package cst

import "github.com/pklcore/pklcore/internal/source"

// Span is a source location, reused directly from the source package so every
// cst node and every evaluator error speak the same coordinates.
type Span = source.Span

// Module is the root of a parsed Pkl module.
type Module struct {
	URI          string
	DeclaredName string
	Amends       *ModuleRef
	Extends      *ModuleRef
	Imports      []*ImportDecl
	Classes      []*ClassDecl
	TypeAliases  []*TypeAliasDecl
	Body         *ObjectBody // module-level properties and methods
	Span         Span
}

// ModuleRef names another module, used by `amends "..."`/`extends "..."`.
type ModuleRef struct {
	URI  string
	Span Span
}

// ImportDecl is one `import` clause.
type ImportDecl struct {
	Alias    string // local binding name
	URI      string
	Glob     bool
	Nullable bool
	Span     Span
}

// ClassDecl declares a class: its supertype name (empty for none), its own
// members as an ObjectBody, and its modifiers (open/abstract/external).
type ClassDecl struct {
	Name       string
	TypeParams []string
	SuperName  string
	Modifiers  Modifiers
	DocComment string
	Body       *ObjectBody
	Span       Span
}

// TypeAliasDecl declares `typealias Name = <Type>`. Type-alias bodies
// establish a const scope: only const members may be referenced from within
// Type.
type TypeAliasDecl struct {
	Name       string
	TypeParams []string
	Type       *TypeExpr
	Span       Span
}

// Param is a function or method parameter.
type Param struct {
	Name string
	Type *TypeExpr
	Span Span
}
