// Package config loads concretize.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest looked up from the working directory upwards.
const FileName = "concretize.toml"

// ErrNotFound is returned by Load when no manifest exists up to the root.
var ErrNotFound = errors.New("no " + FileName + " found")

// Manifest is a loaded configuration with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest sections.
type Config struct {
	Target  TargetConfig  `toml:"target"`
	Modules ModulesConfig `toml:"modules"`
	Seeds   SeedsConfig   `toml:"seeds"`
	Report  ReportConfig  `toml:"report"`
	Cache   CacheConfig   `toml:"cache"`
	Resolve ResolveConfig `toml:"resolve"`
}

type TargetConfig struct {
	Name   string `toml:"name"`
	Output string `toml:"output"`
}

type ModulesConfig struct {
	Paths   []string `toml:"paths"`
	Dirs    []string `toml:"dirs"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type SeedsConfig struct {
	Types []string `toml:"types"`
}

type ReportConfig struct {
	Dir string `toml:"dir"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ResolveConfig struct {
	Jobs     int `toml:"jobs"`
	MaxDepth int `toml:"max_depth"`
}

// Default returns the values used for keys the manifest leaves out.
func Default() Config {
	return Config{
		Report: ReportConfig{Dir: "Logs"},
		Cache:  CacheConfig{Enabled: true},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load finds and parses the manifest governing startDir.
func Load(startDir string) (*Manifest, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return LoadFile(path)
}

// LoadFile parses the manifest at path. Relative paths inside it are made
// relative to the manifest directory.
func LoadFile(path string) (*Manifest, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !md.IsDefined("target") {
		return nil, fmt.Errorf("%s: missing [target]", path)
	}
	if !md.IsDefined("target", "name") || strings.TrimSpace(cfg.Target.Name) == "" {
		return nil, fmt.Errorf("%s: missing [target].name", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if cfg.Resolve.Jobs < 0 || cfg.Resolve.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: [resolve] values must not be negative", path)
	}

	root := filepath.Dir(path)
	cfg.Target.Name = strings.TrimSpace(cfg.Target.Name)
	if cfg.Target.Output == "" {
		cfg.Target.Output = cfg.Target.Name + ".bin"
	}
	cfg.Target.Output = rebase(root, cfg.Target.Output)
	cfg.Report.Dir = rebase(root, cfg.Report.Dir)
	if cfg.Cache.Dir != "" {
		cfg.Cache.Dir = rebase(root, cfg.Cache.Dir)
	}
	for i, p := range cfg.Modules.Paths {
		cfg.Modules.Paths[i] = rebase(root, p)
	}
	for i, d := range cfg.Modules.Dirs {
		cfg.Modules.Dirs[i] = rebase(root, d)
	}
	return &Manifest{Path: path, Root: root, Config: cfg}, nil
}

func rebase(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
