// Package vmrender is the external renderer collaborator: it visits a forced
// value tree and produces bytes.
//
// Render targets (JSON/YAML/...) share one forced-value input and differ
// only in their leaf encodings, so each renderer walks the
// runtime.Value/interp.VmObject tree directly.
package vmrender

import (
	"github.com/pklcore/pklcore/internal/interp"
	"github.com/pklcore/pklcore/internal/runtime"
)

// View is the renderer-facing projection of a forced object: its class name
// (empty for Dynamic/Listing/Mapping) plus an ordered iterator over its
// non-local, already-forced properties.
type View struct {
	Variant   string
	ClassName string
	Entries   []Entry
}

// Entry is one rendered property: its display key (identifier name, index, or
// an arbitrary key's rendered form) and forced value.
type Entry struct {
	Key   string
	Value runtime.Value
}

// Renderer converts a forced value (any runtime.Value, including
// *interp.VmObject) into its external representation. Implementations live
// outside the evaluator core; jsonrender and yamlrender below are reference
// implementations that walk the forced tree through
// Interpreter.ForceAllMembers rather than through View.
type Renderer interface {
	Render(v runtime.Value) ([]byte, error)
}

// BuildView forces every non-local member of obj (via in.ForceAllMembers) into an
// ordered View a renderer can walk without touching the evaluator's internals
// directly.
func BuildView(in *interp.Interpreter, obj *interp.VmObject) (*View, error) {
	view := &View{Variant: obj.Variant.String()}
	if obj.Class != nil {
		view.ClassName = obj.Class.Name
	}
	entries, err := in.ForceAllMembers(obj)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Hidden {
			continue
		}
		view.Entries = append(view.Entries, Entry{Key: e.Key, Value: e.Value})
	}
	return view, nil
}
