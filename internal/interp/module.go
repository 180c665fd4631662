package interp

import (
	"path"
	"sort"
	"strings"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// moduleCache holds already-loaded module objects keyed by URI, so a diamond
// of imports/amends resolves each URI's module exactly once.
type moduleCache struct {
	byURI map[string]*VmObject
}

func newModuleCache() *moduleCache { return &moduleCache{byURI: make(map[string]*VmObject)} }

// EvalModule runs the module driver over a parsed CST: it registers
// classes/aliases, wires the extends/amends parent, installs module-level
// members, and returns the (not yet forced) module object.
func (in *Interpreter) EvalModule(m *cst.Module, cache *moduleCache) (*VmObject, *vmerrors.Error) {
	if cache == nil {
		cache = newModuleCache()
	}
	if existing, ok := cache.byURI[m.URI]; ok {
		return existing, nil
	}

	root := NewObject(VariantTyped, nil, nil, nil, nil)
	root.Root = root
	cache.byURI[m.URI] = root
	moduleFrame := runtime.NewFrame(root)

	prevModule := in.currentModule
	in.currentModule = root
	defer func() { in.currentModule = prevModule }()

	// Step 4 (resolved early so the parent chain exists before members are
	// installed): extends/amends another module.
	var parentRef *cst.ModuleRef
	if m.Extends != nil {
		parentRef = m.Extends
	} else if m.Amends != nil {
		parentRef = m.Amends
	}
	if parentRef != nil {
		parentMod, err := in.loadModuleByURI(parentRef.URI, m.URI, cache)
		if err != nil {
			return nil, err
		}
		root.Parent = parentMod
		root.NextIndex = parentMod.EffectiveLength()
	}

	// Wire imports into the module frame as aux slots keyed by alias.
	for _, imp := range m.Imports {
		if err := in.installImport(root, moduleFrame, imp, m.URI, cache); err != nil {
			return nil, err
		}
	}

	// Step 2: class and type-alias declarations.
	for _, cd := range m.Classes {
		in.declareClass(cd, m.URI)
	}
	for _, cd := range m.Classes {
		in.populateClass(cd, m.URI)
	}
	for _, ta := range m.TypeAliases {
		in.RegisterAlias(ta)
	}

	// Step 3: module-level properties/methods as lazy members.
	rootCtx := resolveContext{frame: moduleFrame, insideBase: strings.HasPrefix(m.URI, "pkl:"), baseModule: in.baseModule, moduleRoot: root}
	if err := in.populateBody(root, m.Body, moduleFrame, rootCtx); err != nil {
		return nil, err
	}

	return root, nil
}

// installImport forces the referenced module (resolving a relative URI against
// the importing module's own URI) and binds it into an aux slot keyed by the
// import's alias or its last path segment, so lexical lookup finds it during
// name resolution.
func (in *Interpreter) installImport(root *VmObject, frame *runtime.Frame, imp *cst.ImportDecl, fromURI string, cache *moduleCache) *vmerrors.Error {
	alias := imp.Alias
	if alias == "" {
		alias = defaultImportAlias(imp.URI)
	}
	id := in.Idents.Intern(alias).Public()

	if imp.Glob {
		v, err := in.importGlobRelative(imp.URI, fromURI, imp.Nullable, cache)
		if err != nil {
			return err
		}
		frame.SetAux(id, v)
		return nil
	}

	mod, err := in.loadModuleByURI(imp.URI, fromURI, cache)
	if err != nil {
		if imp.Nullable {
			frame.SetAux(id, runtime.NullValue)
			return nil
		}
		return err
	}
	frame.SetAux(id, mod)
	return nil
}

func defaultImportAlias(uri string) string {
	base := path.Base(uri)
	return strings.TrimSuffix(base, path.Ext(base))
}

// loadModuleByURI resolves uri (relative to fromURI) and looks it up in the
// module cache, then in the prelude registry (the `pkl:` modules built by
// internal/prelude), then among the modules supplied through
// RegisterParsedModule. It does not call in.Loader: turning module text into a
// CST is the external parser's job, and the evaluator core has no parser
// dependency.
func (in *Interpreter) loadModuleByURI(uri, fromURI string, cache *moduleCache) (*VmObject, *vmerrors.Error) {
	resolved := resolveURI(uri, fromURI)
	if mod, ok := cache.byURI[resolved]; ok {
		return mod, nil
	}
	if in.Prelude != nil {
		if mod, ok := in.Prelude.Modules[resolved]; ok {
			cache.byURI[resolved] = mod
			return mod, nil
		}
	}
	if in.parsedModules != nil {
		if m, ok := in.parsedModules[resolved]; ok {
			return in.EvalModule(m, cache)
		}
	}
	return nil, vmerrors.New(vmerrors.KindCannotFindModuleImport, source.Span{}, "cannot find module %q", resolved)
}

// RegisterParsedModule makes a module available to import/amends/extends
// resolution by URI. The CST itself comes from the external parser (out of
// scope for this evaluator core); this is the seam the module driver uses to
// reach it.
func (in *Interpreter) RegisterParsedModule(uri string, m *cst.Module) {
	if in.parsedModules == nil {
		in.parsedModules = make(map[string]*cst.Module)
	}
	in.parsedModules[uri] = m
}

func resolveURI(uri, fromURI string) string {
	if strings.Contains(uri, ":") {
		return uri
	}
	if fromURI == "" {
		return uri
	}
	return path.Join(path.Dir(fromURI), uri)
}

// declareClass installs the (partially initialized) class so self- and
// mutually-recursive references within class bodies resolve to the
// identity-cached instance.
func (in *Interpreter) declareClass(cd *cst.ClassDecl, moduleURI string) {
	if _, ok := in.classes[cd.Name]; ok {
		return
	}
	in.RegisterClass(&VmClass{
		Name:       cd.Name,
		ModuleURI:  moduleURI,
		TypeParams: cd.TypeParams,
		Own:        NewTable(),
		Modifiers:  cd.Modifiers,
	})
}

// populateClass resolves the class's supertype and fills its own member table
// and prototype, run after every class in the module has been declared so
// SuperName lookups and recursive references succeed.
func (in *Interpreter) populateClass(cd *cst.ClassDecl, moduleURI string) {
	c := in.classes[cd.Name]
	if cd.SuperName != "" {
		if super, ok := in.classes[cd.SuperName]; ok {
			c.Super = super
		}
	}
	frame := runtime.NewFrame(nil)
	if cd.Body != nil {
		for _, entry := range cd.Body.Entries {
			switch e := entry.(type) {
			case *cst.PropertyEntry:
				id := in.Idents.Intern(e.Name)
				if e.Modifiers.IsLocal() {
					id = id.Local()
				} else {
					id = id.Public()
				}
				c.Own.Put(IdentKey(id), &Member{
					Modifiers: e.Modifiers, Doc: e.DocComment, Span: e.Span,
					OwnerName: c.Name, DefiningFrame: frame, Expr: e.Value, TypeAnn: e.TypeAnn,
				})
			case *cst.MethodEntry:
				id := in.Idents.Intern(e.Name)
				if e.Modifiers.IsLocal() {
					id = id.Local()
				} else {
					id = id.Public()
				}
				c.Own.Put(IdentKey(id), &Member{
					Modifiers: e.Modifiers, Doc: e.DocComment, Span: e.Span,
					OwnerName: c.Name, DefiningFrame: frame, IsMethod: true,
					Params: e.Params, ReturnType: e.ReturnType, Expr: e.Body,
				})
			}
		}
	}
	parentProto := c.Prototype
	if c.Super != nil {
		parentProto = c.Super.Prototype
	}
	proto := NewObject(VariantTyped, c, nil, parentProto, frame)
	proto.Members = c.Own
	c.Prototype = proto
}

// importOne / importGlob implement `import("uri")` and `import*("uri")`;
// importGlobRelative is the import-declaration counterpart used by
// installImport, resolving relativity before globbing.
func (in *Interpreter) importOne(uri string, nullable bool, span source.Span) (runtime.Value, *vmerrors.Error) {
	mod, err := in.loadModuleByURI(uri, "", newModuleCache())
	if err != nil {
		if nullable {
			return runtime.NullValue, nil
		}
		return nil, err
	}
	return mod, nil
}

func (in *Interpreter) importGlob(pattern string, nullable bool) (runtime.Value, *vmerrors.Error) {
	return in.importGlobRelative(pattern, "", nullable, newModuleCache())
}

func (in *Interpreter) importGlobRelative(pattern, fromURI string, nullable bool, cache *moduleCache) (runtime.Value, *vmerrors.Error) {
	if in.parsedModules == nil {
		if nullable {
			return runtime.NullValue, nil
		}
		return runtime.NewMap(), nil
	}
	pattern = resolveURI(pattern, fromURI)
	var uris []string
	for uri := range in.parsedModules {
		if globMatch(pattern, uri) {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	out := runtime.NewMap()
	for _, uri := range uris {
		mod, err := in.loadModuleByURI(uri, "", cache)
		if err != nil {
			return nil, err
		}
		out.Put(runtime.String{Value: uri}, mod)
	}
	return out, nil
}

func globMatch(pattern, uri string) bool {
	ok, err := path.Match(pattern, uri)
	return err == nil && ok
}

// readOne / readGlob implement `read("uri")` / `read*("uri")` against the
// external resource reader.
func (in *Interpreter) readOne(uri string, nullable bool, span source.Span) (runtime.Value, *vmerrors.Error) {
	if in.Reader == nil {
		if nullable {
			return runtime.NullValue, nil
		}
		return nil, vmerrors.New(vmerrors.KindIOError, span, "no resource reader configured")
	}
	data, err := in.Reader.ReadResource(uri)
	if err != nil {
		if nullable {
			return runtime.NullValue, nil
		}
		return nil, vmerrors.New(vmerrors.KindIOError, span, "%s", err.Error())
	}
	return runtime.Bytes{Data: data}, nil
}

func (in *Interpreter) readGlob(pattern string, nullable bool) (runtime.Value, *vmerrors.Error) {
	gr, ok := in.Reader.(GlobReader)
	if !ok {
		if nullable {
			return runtime.NullValue, nil
		}
		return runtime.NewMap(), nil
	}
	uris, err := gr.GlobResources(pattern)
	if err != nil {
		if nullable {
			return runtime.NullValue, nil
		}
		return nil, vmerrors.New(vmerrors.KindIOError, source.Span{}, "%s", err.Error())
	}
	sort.Strings(uris)
	out := runtime.NewMap()
	for _, uri := range uris {
		data, rerr := in.Reader.ReadResource(uri)
		if rerr != nil {
			return nil, vmerrors.New(vmerrors.KindIOError, source.Span{}, "%s", rerr.Error())
		}
		out.Put(runtime.String{Value: uri}, runtime.Bytes{Data: data})
	}
	return out, nil
}

// ForceOutput reads `output.value`/`output.text` off a module. A module that
// declares no output property renders as itself: its own forced value tree
// is the configuration.
func (in *Interpreter) ForceOutput(mod *VmObject, text bool) (runtime.Value, *vmerrors.Error) {
	prevModule := in.currentModule
	in.currentModule = mod
	defer func() { in.currentModule = prevModule }()

	outputID := in.Idents.Intern("output").Public()
	m, _, ok := mod.LookupMember(IdentKey(outputID))
	if !ok {
		return mod, nil
	}
	outputVal, err := in.forceMember(mod, m.Key, m.Span)
	if err != nil {
		return nil, err
	}
	outputObj, ok := outputVal.(*VmObject)
	if !ok {
		return nil, vmerrors.New(vmerrors.KindTypeMismatch, m.Span, "output must be an object")
	}
	name := "value"
	if text {
		name = "text"
	}
	fieldID := in.Idents.Intern(name).Public()
	if _, _, ok := outputObj.LookupMember(IdentKey(fieldID)); !ok {
		return nil, vmerrors.New(vmerrors.KindCannotFindProperty, m.Span, "output has no %q property", name)
	}
	return in.forceMember(outputObj, IdentKey(fieldID), m.Span)
}
