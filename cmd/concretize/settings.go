package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"concretize/internal/config"
	"concretize/internal/modsel"
)

// moduleFlags are the module selection flags shared by every command that
// loads modules.
type moduleFlags struct {
	configPath string
	dirs       []string
	include    []string
	exclude    []string
}

func addModuleFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to "+config.FileName+" (default: searched upwards from the working directory)")
	cmd.Flags().StringSlice("dir", nil, "directory scanned for "+modsel.Ext+" module files (repeatable)")
	cmd.Flags().StringSlice("include", nil, "keep only modules whose name contains one of these keywords")
	cmd.Flags().StringSlice("exclude", nil, "drop modules whose name contains one of these keywords")
}

func readModuleFlags(cmd *cobra.Command) (moduleFlags, error) {
	var (
		f   moduleFlags
		err error
	)
	if f.configPath, err = cmd.Flags().GetString("config"); err != nil {
		return f, err
	}
	if f.dirs, err = cmd.Flags().GetStringSlice("dir"); err != nil {
		return f, err
	}
	if f.include, err = cmd.Flags().GetStringSlice("include"); err != nil {
		return f, err
	}
	if f.exclude, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
		return f, err
	}
	return f, nil
}

// loadConfig reads the manifest named by path, or the one found above the
// working directory. found is false when no manifest exists and path is empty.
func loadConfig(path string) (cfg config.Config, found bool, err error) {
	if path != "" {
		m, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, false, err
		}
		return m.Config, true, nil
	}
	m, err := config.Load(".")
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), false, nil
	}
	if err != nil {
		return config.Config{}, false, err
	}
	return m.Config, true, nil
}

// selectModules combines explicit paths, configured paths and the files
// found in the configured and flagged directories, then filters them by
// name. Flags take precedence over the manifest for include and exclude.
func selectModules(args []string, cfg config.ModulesConfig, f moduleFlags) ([]string, error) {
	candidates := append([]string{}, args...)
	candidates = append(candidates, cfg.Paths...)
	dirs := append(append([]string{}, cfg.Dirs...), f.dirs...)
	found, err := modsel.Discover(dirs)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, found...)

	include, exclude := cfg.Include, cfg.Exclude
	if len(f.include) > 0 {
		include = f.include
	}
	if len(f.exclude) > 0 {
		exclude = f.exclude
	}
	paths := modsel.Select(candidates, include, exclude)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no module files selected")
	}
	return paths, nil
}

// resolveSettings is the merged view of the manifest and the resolve flags.
type resolveSettings struct {
	target    string
	output    string
	seeds     []string
	reportDir string
	useCache  bool
	cacheDir  string
	jobs      int
	maxDepth  int
}

// resolveOverrides holds the resolve flags that were set explicitly.
type resolveOverrides struct {
	target    *string
	output    *string
	seeds     []string
	reportDir *string
	noReport  bool
	noCache   bool
	cacheDir  *string
	jobs      *int
	maxDepth  *int
}

func mergeSettings(cfg config.Config, ov resolveOverrides) (resolveSettings, error) {
	s := resolveSettings{
		target:    cfg.Target.Name,
		output:    cfg.Target.Output,
		seeds:     cfg.Seeds.Types,
		reportDir: cfg.Report.Dir,
		useCache:  cfg.Cache.Enabled,
		cacheDir:  cfg.Cache.Dir,
		jobs:      cfg.Resolve.Jobs,
		maxDepth:  cfg.Resolve.MaxDepth,
	}
	if ov.target != nil {
		s.target = strings.TrimSpace(*ov.target)
		if ov.output == nil {
			s.output = ""
		}
	}
	if ov.output != nil {
		s.output = *ov.output
	}
	if len(ov.seeds) > 0 {
		s.seeds = ov.seeds
	}
	if ov.reportDir != nil {
		s.reportDir = *ov.reportDir
	}
	if ov.noReport {
		s.reportDir = ""
	}
	if ov.noCache {
		s.useCache = false
	}
	if ov.cacheDir != nil {
		s.cacheDir = *ov.cacheDir
	}
	if ov.jobs != nil {
		s.jobs = *ov.jobs
	}
	if ov.maxDepth != nil {
		s.maxDepth = *ov.maxDepth
	}

	if s.target == "" {
		return s, fmt.Errorf("missing target name (set [target].name or --target)")
	}
	if s.output == "" {
		s.output = s.target + modsel.Ext
	}
	if len(s.seeds) == 0 {
		return s, fmt.Errorf("no seed types (set [seeds].types or --seed)")
	}
	if s.jobs < 0 || s.maxDepth < 0 {
		return s, fmt.Errorf("--jobs and --max-depth must not be negative")
	}
	if s.reportDir != "" {
		abs, err := filepath.Abs(s.reportDir)
		if err != nil {
			return s, err
		}
		s.reportDir = abs
	}
	return s, nil
}

func readResolveOverrides(cmd *cobra.Command) (resolveOverrides, error) {
	var ov resolveOverrides
	flags := cmd.Flags()
	stringFlag := func(name string, dst **string) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
	intFlag := func(name string, dst **int) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}

	if err := stringFlag("target", &ov.target); err != nil {
		return ov, err
	}
	if err := stringFlag("out", &ov.output); err != nil {
		return ov, err
	}
	if err := stringFlag("report-dir", &ov.reportDir); err != nil {
		return ov, err
	}
	if err := stringFlag("cache-dir", &ov.cacheDir); err != nil {
		return ov, err
	}
	if err := intFlag("jobs", &ov.jobs); err != nil {
		return ov, err
	}
	if err := intFlag("max-depth", &ov.maxDepth); err != nil {
		return ov, err
	}
	var err error
	if ov.seeds, err = flags.GetStringSlice("seed"); err != nil {
		return ov, err
	}
	if ov.noReport, err = flags.GetBool("no-report"); err != nil {
		return ov, err
	}
	if ov.noCache, err = flags.GetBool("no-cache"); err != nil {
		return ov, err
	}
	return ov, nil
}
