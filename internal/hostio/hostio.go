// Package hostio implements the evaluator's two external collaborators:
// interp.ModuleLoader and interp.ResourceReader. Scheme allow-listing and
// file-root confinement live here, never in the evaluator core.
package hostio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSLoader is a filesystem-confined ModuleLoader/ResourceReader: `file:` URIs
// are resolved beneath Root, and any path that escapes Root (via `..` or a
// symlink target, checked through filepath.EvalSymlinks) is rejected.
type FSLoader struct {
	Root string
}

func NewFSLoader(root string) *FSLoader {
	return &FSLoader{Root: root}
}

func (l *FSLoader) resolve(uri string) (string, error) {
	if strings.Contains(uri, ":") && !strings.HasPrefix(uri, "file:") {
		return "", fmt.Errorf("uri %q: scheme not allowed", uri)
	}
	trimmed := strings.TrimPrefix(uri, "file:")
	clean := filepath.Clean(filepath.Join(l.Root, trimmed))
	rel, err := filepath.Rel(l.Root, clean)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("uri %q escapes module root", uri)
	}
	if real, err := filepath.EvalSymlinks(clean); err == nil {
		root := l.Root
		if r, rerr := filepath.EvalSymlinks(root); rerr == nil {
			root = r
		}
		if rel, err := filepath.Rel(root, real); err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("uri %q escapes module root", uri)
		}
	}
	return clean, nil
}

func (l *FSLoader) LoadModule(uri string) (string, error) {
	p, err := l.resolve(uri)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *FSLoader) ReadResource(uri string) ([]byte, error) {
	p, err := l.resolve(uri)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// GlobResources expands a glob pattern beneath Root, returning matches as
// root-relative URIs.
func (l *FSLoader) GlobResources(pattern string) ([]string, error) {
	if _, err := l.resolve(pattern); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(l.Root, strings.TrimPrefix(pattern, "file:")))
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, rerr := filepath.Rel(l.Root, m)
		if rerr != nil {
			continue
		}
		uris = append(uris, filepath.ToSlash(rel))
	}
	return uris, nil
}
