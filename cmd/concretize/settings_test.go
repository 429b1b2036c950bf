package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"concretize/internal/config"
)

func ptr[T any](v T) *T { return &v }

func TestMergeSettingsFlagsOverrideManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Target = config.TargetConfig{Name: "Generated", Output: "/out/Generated.bin"}
	cfg.Seeds.Types = []string{"App.Repo`1"}
	cfg.Resolve.Jobs = 2

	s, err := mergeSettings(cfg, resolveOverrides{
		seeds:   []string{"App.Box`1"},
		jobs:    ptr(4),
		noCache: true,
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if s.target != "Generated" || s.output != "/out/Generated.bin" {
		t.Fatalf("target = %q, output = %q", s.target, s.output)
	}
	if !slices.Equal(s.seeds, []string{"App.Box`1"}) {
		t.Fatalf("seeds = %v", s.seeds)
	}
	if s.jobs != 4 || s.useCache {
		t.Fatalf("jobs = %d, useCache = %v", s.jobs, s.useCache)
	}
	if !filepath.IsAbs(s.reportDir) || filepath.Base(s.reportDir) != "Logs" {
		t.Fatalf("reportDir = %q", s.reportDir)
	}
}

func TestMergeSettingsTargetFlagResetsOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Target = config.TargetConfig{Name: "Generated", Output: "/out/Generated.bin"}
	cfg.Seeds.Types = []string{"App.Repo`1"}

	s, err := mergeSettings(cfg, resolveOverrides{target: ptr("Other"), noReport: true})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if s.output != "Other.bin" {
		t.Fatalf("output = %q, want Other.bin", s.output)
	}
	if s.reportDir != "" {
		t.Fatalf("reportDir = %q, want disabled", s.reportDir)
	}
}

func TestMergeSettingsErrors(t *testing.T) {
	withSeeds := config.Default()
	withSeeds.Seeds.Types = []string{"App.Repo`1"}
	named := withSeeds
	named.Target.Name = "Generated"
	noSeeds := config.Default()
	noSeeds.Target.Name = "Generated"

	tests := []struct {
		name string
		cfg  config.Config
		ov   resolveOverrides
		want string
	}{
		{name: "missing target", cfg: withSeeds, want: "missing target"},
		{name: "missing seeds", cfg: noSeeds, want: "no seed types"},
		{name: "negative jobs", cfg: named, ov: resolveOverrides{jobs: ptr(-1)}, want: "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mergeSettings(tt.cfg, tt.ov)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSelectModulesCombinesSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"App.Core.bin", "App.Tests.bin", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	explicit := filepath.Join(dir, "Extra.bin")

	got, err := selectModules([]string{explicit}, config.ModulesConfig{Dirs: []string{dir}}, moduleFlags{exclude: []string{"tests"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{explicit, filepath.Join(dir, "App.Core.bin")}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectModulesFlagsReplaceManifestFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"App.Core.bin", "App.Data.bin"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.ModulesConfig{Dirs: []string{dir}, Include: []string{"core"}}
	got, err := selectModules(nil, cfg, moduleFlags{include: []string{"data"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if want := []string{filepath.Join(dir, "App.Data.bin")}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectModulesRequiresAMatch(t *testing.T) {
	if _, err := selectModules(nil, config.ModulesConfig{}, moduleFlags{}); err == nil {
		t.Fatalf("expected error when nothing is selected")
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	body := "[target]\nname = \"Generated\"\n\n[seeds]\ntypes = [\"App.Repo`1\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, found, err := loadConfig(path)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if cfg.Target.Output != filepath.Join(dir, "Generated.bin") {
		t.Fatalf("output = %q", cfg.Target.Output)
	}
}
