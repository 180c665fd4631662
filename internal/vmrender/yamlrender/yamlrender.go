// Package yamlrender is a reference Renderer producing YAML from a forced
// value tree, reusing jsonrender's tree-building (the two differ only in
// the final encoding step) with github.com/goccy/go-yaml as the encoder.
package yamlrender

import (
	"github.com/goccy/go-yaml"

	"github.com/pklcore/pklcore/internal/interp"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/vmrender/jsonrender"
)

// Renderer implements vmrender.Renderer by marshaling to YAML.
type Renderer struct {
	json *jsonrender.Renderer
}

func New(in *interp.Interpreter) *Renderer {
	return &Renderer{json: jsonrender.New(in)}
}

func (r *Renderer) Render(v runtime.Value) ([]byte, error) {
	jsonBytes, err := r.json.Render(v)
	if err != nil {
		return nil, err
	}
	var tree any
	// UseOrderedMap keeps the evaluator's member order; a plain map decode
	// would re-sort keys.
	if err := yaml.UnmarshalWithOptions(jsonBytes, &tree, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}
