package interp

import (
	"context"
	"time"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/typesys"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/pkg/ident"
)

// ModuleLoader and ResourceReader are the evaluator's two external
// collaborators: fetching module and resource text by URI. Scheme
// allow-listing and file-root confinement live on the implementation, not
// here.
type ModuleLoader interface {
	LoadModule(uri string) (text string, err error)
}

type ResourceReader interface {
	ReadResource(uri string) (data []byte, err error)
}

// GlobReader is optionally implemented by a ResourceReader that can expand
// `read*` glob patterns into the matching URIs.
type GlobReader interface {
	GlobResources(pattern string) ([]string, error)
}

// Tracer receives `trace(e)` log lines.
type Tracer interface {
	Trace(span source.Span, rendered string)
}

// forceEntry is one frame of the evaluator-wide force stack used to detect
// circular references: the object whose member is being forced, and that
// member's key hash.
type forceEntry struct {
	object *VmObject
	key    string
}

// Interpreter ties together the identifier pool, class/alias registries, the
// force stack, and the external collaborators, and is the receiver for the
// evaluator's resolver/evaluator/constructor methods.
type Interpreter struct {
	Idents *ident.Pool

	Loader  ModuleLoader
	Reader  ResourceReader
	Tracer  Tracer
	Prelude *PreludeRegistry

	classes    map[string]*VmClass
	aliases    map[string]*cst.TypeAliasDecl
	baseModule *VmObject // the `base` prelude module's root object

	// currentModule is the module object whose members are being evaluated;
	// type-alias and constraint predicates resolve their free names against
	// it.
	currentModule *VmObject

	parsedModules map[string]*cst.Module

	force []forceEntry

	deadline time.Time
	ctx      context.Context
}

// PreludeRegistry is the minimal surface interp needs from the standard
// library loader (package prelude), kept here rather than imported directly to
// avoid interp depending downward on prelude while prelude depends upward on
// interp for VmObject/Function construction.
type PreludeRegistry struct {
	Modules map[string]*VmObject
}

// NewInterpreter creates an interpreter with an empty class/alias registry.
func NewInterpreter(pool *ident.Pool, loader ModuleLoader, reader ResourceReader, tracer Tracer) *Interpreter {
	return &Interpreter{
		Idents:  pool,
		Loader:  loader,
		Reader:  reader,
		Tracer:  tracer,
		classes: make(map[string]*VmClass),
		aliases: make(map[string]*cst.TypeAliasDecl),
		ctx:     context.Background(),
	}
}

// WithDeadline bounds evaluation wall-clock time; the deadline and ctx are
// checked at the start of every Eval step.
func (in *Interpreter) WithDeadline(ctx context.Context, d time.Time) {
	in.ctx = ctx
	in.deadline = d
}

func (in *Interpreter) checkDeadline(span source.Span) *vmerrors.Error {
	if in.ctx != nil {
		select {
		case <-in.ctx.Done():
			return vmerrors.New(vmerrors.KindEvaluationTimedOut, span, "evaluation cancelled")
		default:
		}
	}
	if !in.deadline.IsZero() && timeNow().After(in.deadline) {
		return vmerrors.New(vmerrors.KindEvaluationTimedOut, span, "evaluation exceeded its deadline")
	}
	return nil
}

// timeNow is a var so tests can freeze it; production code never overrides it.
var timeNow = time.Now

// SetBaseModule installs the `base` prelude module as the implicit outer scope
// every user module falls back to in step 2 of name resolution.
func (in *Interpreter) SetBaseModule(base *VmObject) {
	in.baseModule = base
}

// RegisterClass installs a class into the registry, keyed by its qualified
// name.
func (in *Interpreter) RegisterClass(c *VmClass) {
	in.classes[c.Name] = c
}

// ResolveClass implements typesys.ClassResolver.
func (in *Interpreter) ResolveClass(name string) (typesys.ClassHandle, bool) {
	c, ok := in.classes[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// RegisterAlias installs a type alias.
func (in *Interpreter) RegisterAlias(a *cst.TypeAliasDecl) {
	in.aliases[a.Name] = a
}

// ResolveAlias implements typesys.ClassResolver.
func (in *Interpreter) ResolveAlias(name string) (*cst.TypeAliasDecl, bool) {
	a, ok := in.aliases[name]
	return a, ok
}

// ModuleInstance implements typesys.ModuleProvider for the currently forcing
// module; set by the module driver before evaluation begins.
func (in *Interpreter) ModuleInstance() runtime.Value {
	if in.currentModule == nil {
		return runtime.NullValue
	}
	return in.currentModule
}

// EvalPredicate implements typesys.PredicateEvaluator: runs pred in a
// custom-this scope with `this` bound to candidate, resolving free names
// against the current module. constScope is set for type-alias bodies, where
// only const members may be referenced.
func (in *Interpreter) EvalPredicate(pred cst.Expr, candidate runtime.Value, constScope bool) (bool, *vmerrors.Error) {
	var owner runtime.Value
	if in.currentModule != nil {
		owner = in.currentModule
	}
	frame := runtime.NewFrame(owner).WithCustomThis(candidate)
	ctx := resolveContext{frame: frame, baseModule: in.baseModule, moduleRoot: in.currentModule}
	if constScope {
		ctx.constLevel = ConstAll
	}
	v, err := in.Eval(pred, frame, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(runtime.Bool)
	if !ok {
		return false, vmerrors.New(vmerrors.KindTypeMismatch, pred.ExprSpan(), "constraint predicate must produce a Boolean")
	}
	return b.Value, nil
}

// typeContext builds the typesys.Context this interpreter supplies to every
// Check call.
func (in *Interpreter) typeContext() typesys.Context {
	return typesys.Context{Classes: in, Predicates: in, Module: in}
}

// Catch evaluates e and reifies any evaluator error as a "kind: message"
// string. Unlike `?.`/`read?`/`import?`, which recover from not-found
// errors only, Catch captures every error kind; it exists for test
// harnesses asserting on failures.
func (in *Interpreter) Catch(e cst.Expr, frame *runtime.Frame) runtime.Value {
	v, err := in.Eval(e, frame, resolveContext{frame: frame, baseModule: in.baseModule})
	if err != nil {
		return runtime.String{Value: string(err.Kind) + ": " + err.Message}
	}
	return v
}

// pushForce and popForce maintain the circular-reference detection stack;
// force(object, key) on an entry already on the stack fails immediately rather
// than recursing forever.
func (in *Interpreter) pushForce(o *VmObject, keyHash string, span source.Span) *vmerrors.Error {
	for _, e := range in.force {
		if e.object == o && e.key == keyHash {
			return vmerrors.New(vmerrors.KindCircularReference, span, "circular reference forcing %s", keyHash)
		}
	}
	in.force = append(in.force, forceEntry{object: o, key: keyHash})
	return nil
}

func (in *Interpreter) popForce() {
	in.force = in.force[:len(in.force)-1]
}
