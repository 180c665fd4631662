// Package jsonrender is a reference Renderer producing JSON from a forced
// value tree.
//
// The renderer builds an intermediate Go tree (orderedObject/slice/scalar)
// from the forced runtime.Value/interp.VmObject tree and hands it to
// encoding/json; orderedObject keeps the members' insertion order.
package jsonrender

import (
	"bytes"
	"encoding/json"

	"github.com/pklcore/pklcore/internal/interp"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// Renderer implements vmrender.Renderer by marshaling to indented JSON.
type Renderer struct {
	Interp *interp.Interpreter
	Indent string
}

func New(in *interp.Interpreter) *Renderer {
	return &Renderer{Interp: in, Indent: "  "}
}

func (r *Renderer) Render(v runtime.Value) ([]byte, error) {
	tree, err := toTree(r.Interp, v)
	if err != nil {
		return nil, err
	}
	if r.Indent == "" {
		return json.Marshal(tree)
	}
	return json.MarshalIndent(tree, "", r.Indent)
}

func toTree(in *interp.Interpreter, v runtime.Value) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case runtime.Null:
		return nil, nil
	case runtime.Bool:
		return val.Value, nil
	case runtime.Int:
		return val.Value, nil
	case runtime.Float:
		return val.Value, nil
	case runtime.String:
		return val.Value, nil
	case runtime.Duration:
		return val.String(), nil
	case runtime.DataSize:
		return val.String(), nil
	case runtime.Bytes:
		return val.Data, nil
	case *runtime.List:
		out := make([]any, len(val.Elements))
		for i, e := range val.Elements {
			t, err := toTree(in, e)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	case *runtime.Set:
		out := make([]any, len(val.Elements))
		for i, e := range val.Elements {
			t, err := toTree(in, e)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	case *runtime.Map:
		out := &orderedObject{}
		for i, k := range val.Keys() {
			t, err := toTree(in, val.Values()[i])
			if err != nil {
				return nil, err
			}
			out.put(runtime.ToDisplayString(k), t)
		}
		return out, nil
	case *interp.VmObject:
		return objectToTree(in, val)
	default:
		return v.String(), nil
	}
}

func objectToTree(in *interp.Interpreter, obj *interp.VmObject) (any, error) {
	entries, err := in.ForceAllMembers(obj)
	if err != nil {
		return nil, err
	}
	if obj.Variant == interp.VariantListing {
		out := make([]any, 0, len(entries))
		for _, e := range entries {
			if e.Hidden {
				continue
			}
			t, terr := toTree(in, e.Value)
			if terr != nil {
				return nil, terr
			}
			out = append(out, t)
		}
		return out, nil
	}
	// JSON has no representation for an object that mixes indexed elements
	// with named properties.
	hasElements, hasProps := false, false
	for _, e := range entries {
		if e.Hidden {
			continue
		}
		if e.IsElement {
			hasElements = true
		} else {
			hasProps = true
		}
	}
	if hasElements && hasProps {
		return nil, vmerrors.New(vmerrors.KindCannotRenderValue, source.Span{}, "cannot render an object mixing elements with properties as JSON")
	}
	if hasElements {
		out := make([]any, 0, len(entries))
		for _, e := range entries {
			if e.Hidden {
				continue
			}
			t, terr := toTree(in, e.Value)
			if terr != nil {
				return nil, terr
			}
			out = append(out, t)
		}
		return out, nil
	}
	out := &orderedObject{}
	for _, e := range entries {
		if e.Hidden {
			continue
		}
		t, terr := toTree(in, e.Value)
		if terr != nil {
			return nil, terr
		}
		out.put(e.Key, t)
	}
	return out, nil
}

// orderedObject marshals its entries in insertion order; a plain Go map
// would re-sort keys alphabetically and lose the member order the evaluator
// guarantees.
type orderedObject struct {
	keys []string
	vals []any
}

func (o *orderedObject) put(key string, v any) {
	for i, k := range o.keys {
		if k == key {
			o.vals[i] = v
			return
		}
	}
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
