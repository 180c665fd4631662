package hostio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSLoaderLoadModule(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.pkl"), []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	loader := NewFSLoader(dir)
	text, err := loader.LoadModule("file:app.pkl")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if text != "x = 1" {
		t.Fatalf("got %q", text)
	}
}

func TestFSLoaderRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	loader := NewFSLoader(dir)
	if _, err := loader.LoadModule("file:../../etc/passwd"); err == nil {
		t.Fatalf("expected escape to be rejected")
	}
}

func TestFixtureLoaderModulesAndResources(t *testing.T) {
	f := NewFixtureLoader().
		WithModule("modulepath:/app.pkl", "name = \"demo\"").
		WithResource("res:/greeting.txt", []byte("hello"))

	text, err := f.LoadModule("modulepath:/app.pkl")
	if err != nil || text != "name = \"demo\"" {
		t.Fatalf("LoadModule: %q, %v", text, err)
	}
	data, err := f.ReadResource("res:/greeting.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadResource: %q, %v", data, err)
	}
	if _, err := f.LoadModule("modulepath:/missing.pkl"); err == nil {
		t.Fatalf("expected missing module error")
	}
}

func TestFixtureLoaderManifest(t *testing.T) {
	f := NewFixtureLoader()
	f, err := f.WithManifestValue("database.host", "localhost")
	if err != nil {
		t.Fatalf("WithManifestValue: %v", err)
	}
	f, err = f.WithManifestValue("database.port", 5432)
	if err != nil {
		t.Fatalf("WithManifestValue: %v", err)
	}

	data, err := f.ReadResource("fixture:database.host")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if string(data) != `"localhost"` {
		t.Fatalf("got %q", data)
	}

	keys := f.ManifestKeys()
	if len(keys) != 1 || keys[0] != "database" {
		t.Fatalf("got keys %v", keys)
	}

	if _, err := f.ReadResource("fixture:database.missing"); err == nil {
		t.Fatalf("expected missing manifest value error")
	}
}
