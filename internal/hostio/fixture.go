package hostio

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FixtureLoader is an in-memory ModuleLoader/ResourceReader for tests: a
// fixed map of URI to module text or resource bytes, plus an optional JSON
// manifest (manifest.json shape) describing logical resources addressed by
// a `fixture:` scheme and read a path expression deep via gjson, so tests
// never touch a filesystem.
type FixtureLoader struct {
	Modules   map[string]string
	Resources map[string][]byte
	Manifest  string // raw JSON document addressed by the fixture: scheme
}

func NewFixtureLoader() *FixtureLoader {
	return &FixtureLoader{
		Modules:   map[string]string{},
		Resources: map[string][]byte{},
	}
}

func (f *FixtureLoader) WithModule(uri, text string) *FixtureLoader {
	f.Modules[uri] = text
	return f
}

func (f *FixtureLoader) WithResource(uri string, data []byte) *FixtureLoader {
	f.Resources[uri] = data
	return f
}

// WithManifestValue sets a value at the given gjson/sjson path within the
// loader's JSON manifest, creating the document on first use.
func (f *FixtureLoader) WithManifestValue(path string, value any) (*FixtureLoader, error) {
	doc := f.Manifest
	if doc == "" {
		doc = "{}"
	}
	out, err := sjson.Set(doc, path, value)
	if err != nil {
		return f, fmt.Errorf("fixture manifest set %q: %w", path, err)
	}
	f.Manifest = out
	return f, nil
}

func (f *FixtureLoader) LoadModule(uri string) (string, error) {
	if text, ok := f.Modules[uri]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no fixture module registered for %q", uri)
}

func (f *FixtureLoader) ReadResource(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "fixture:") {
		path := strings.TrimPrefix(uri, "fixture:")
		result := gjson.Get(f.Manifest, path)
		if !result.Exists() {
			return nil, fmt.Errorf("no fixture manifest value at %q", path)
		}
		return []byte(result.Raw), nil
	}
	if data, ok := f.Resources[uri]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no fixture resource registered for %q", uri)
}

// GlobResources matches registered resource URIs against pattern.
func (f *FixtureLoader) GlobResources(pattern string) ([]string, error) {
	var uris []string
	for uri := range f.Resources {
		ok, err := path.Match(pattern, uri)
		if err != nil {
			return nil, err
		}
		if ok {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris, nil
}

// ManifestKeys returns the top-level keys of the fixture manifest in
// sorted order, used by tests asserting on what a fixture exposes.
func (f *FixtureLoader) ManifestKeys() []string {
	var keys []string
	gjson.Parse(f.Manifest).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	sort.Strings(keys)
	return keys
}
