// Package ident canonicalizes property and method names into interned
// Identifiers so that name equality is a pointer comparison, never a string
// comparison, and so that every public name has a distinct "local" companion
// (the `local foo` form) that never aliases with the public `foo`.
package ident

import "sync"

// Identifier is an interned symbol. Two Identifiers are equal iff they were
// produced by the same Pool for the same (name, local) pair; compare them with
// ==, never by Name().
type Identifier struct {
	pool  *Pool
	name  string
	local bool
	// companion is the other half of the local/public pair, created lazily.
	companion *Identifier
}

// Name returns the identifier's public spelling, regardless of whether the
// identifier itself is the local or the public half of the pair.
func (id *Identifier) Name() string {
	return id.name
}

// IsLocal reports whether this identifier is the `local x` companion.
func (id *Identifier) IsLocal() bool {
	return id.local
}

// String renders the identifier the way it would appear in source: the local
// companion prints with its `local ` marker so log/error output can
// distinguish the two without extra bookkeeping.
func (id *Identifier) String() string {
	if id.local {
		return "local " + id.name
	}
	return id.name
}

// Pool interns identifiers for the lifetime of an evaluator. A Pool is safe
// for concurrent use, so callers can share one without synchronization of
// their own.
type Pool struct {
	mu   sync.Mutex
	byID map[string]*Identifier
}

// NewPool creates an empty interning pool.
func NewPool() *Pool {
	return &Pool{byID: make(map[string]*Identifier)}
}

// Intern returns the canonical public Identifier for name, creating it on
// first mention. Subsequent calls with the same name return the identical
// *Identifier.
func (p *Pool) Intern(name string) *Identifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intern(name)
}

func (p *Pool) intern(name string) *Identifier {
	if id, ok := p.byID[name]; ok {
		return id
	}
	id := &Identifier{pool: p, name: name}
	p.byID[name] = id
	return id
}

// Local returns the `local` companion of id, creating it on first use. The
// companion is distinct from id and from every other identifier's companion:
// `local x` never aliases with a public `x` from a different intern call.
func (id *Identifier) Local() *Identifier {
	if id.local {
		return id
	}
	id.pool.mu.Lock()
	defer id.pool.mu.Unlock()
	if id.companion == nil {
		id.companion = &Identifier{pool: id.pool, name: id.name, local: true, companion: id}
	}
	return id.companion
}

// Public returns the public companion of id. If id is already public, it
// returns id itself.
func (id *Identifier) Public() *Identifier {
	if !id.local {
		return id
	}
	return id.companion
}

// DefaultPool is a process-wide interning pool. The evaluator and its prelude
// do not use it: an Interpreter interns through the Pool it was constructed
// with (Interpreter.Idents).
var DefaultPool = NewPool()

// Intern interns name in the process-wide DefaultPool.
func Intern(name string) *Identifier {
	return DefaultPool.Intern(name)
}
