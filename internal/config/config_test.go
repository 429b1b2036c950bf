package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadFindsManifestUpwards(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[target]
name = "ConcreteRenderer"

[modules]
dirs = ["build"]
include = ["stackray"]

[seeds]
types = ["Stackray.Renderer.BufferGroup`+"`"+`1"]

[resolve]
jobs = 2
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	m, err := Load(nested)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := m.Config
	if m.Root != root {
		t.Fatalf("root = %s, want %s", m.Root, root)
	}
	if cfg.Target.Output != filepath.Join(root, "ConcreteRenderer.bin") {
		t.Fatalf("default output = %s", cfg.Target.Output)
	}
	if cfg.Report.Dir != filepath.Join(root, "Logs") || !cfg.Cache.Enabled {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !slices.Equal(cfg.Modules.Dirs, []string{filepath.Join(root, "build")}) {
		t.Fatalf("dirs = %v", cfg.Modules.Dirs)
	}
	if cfg.Resolve.Jobs != 2 || len(cfg.Seeds.Types) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReportsMissingManifest(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadFileValidates(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing target", "[seeds]\ntypes = []\n", "missing [target]"},
		{"blank name", "[target]\nname = \"  \"\n", "missing [target].name"},
		{"unknown key", "[target]\nname = \"X\"\ncolour = 1\n", "unknown key"},
		{"negative jobs", "[target]\nname = \"X\"\n[resolve]\njobs = -1\n", "must not be negative"},
		{"bad toml", "[target\n", "failed to parse TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.body)
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}
