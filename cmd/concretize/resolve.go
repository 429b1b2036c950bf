package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"concretize/internal/cache"
	"concretize/internal/observ"
	"concretize/internal/pipeline"
	"concretize/internal/trace"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] [module files...]",
	Short: "Resolve generic instantiations and emit the synthetic module",
	Long: `Resolve loads the selected modules, finds every instance of the seed
types inside generic code, walks each one up its callers until it is
concrete, and writes a module referencing all resulting types.

Settings come from concretize.toml, found upwards from the working
directory or named by --config; flags override it.`,
	RunE: resolveExecution,
}

func init() {
	addModuleFlags(resolveCmd)
	resolveCmd.Flags().String("target", "", "name of the synthetic module")
	resolveCmd.Flags().String("out", "", "path of the synthetic module (default: <target>.bin)")
	resolveCmd.Flags().StringSlice("seed", nil, "generic definition to resolve, e.g. App.Repo`1 (repeatable)")
	resolveCmd.Flags().String("report-dir", "", "directory receiving the report")
	resolveCmd.Flags().Bool("no-report", false, "do not write the report")
	resolveCmd.Flags().Bool("no-cache", false, "harvest every module, ignoring the pool cache")
	resolveCmd.Flags().String("cache-dir", "", "pool cache directory (default: user cache dir)")
	resolveCmd.Flags().Int("jobs", 0, "max parallel jobs (0=auto)")
	resolveCmd.Flags().Int("max-depth", 0, "max call chain length walked per seed (0=default)")
	resolveCmd.Flags().Bool("dry-run", false, "resolve and print types without writing anything")
	resolveCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func resolveExecution(cmd *cobra.Command, args []string) error {
	mf, err := readModuleFlags(cmd)
	if err != nil {
		return err
	}
	ov, err := readResolveOverrides(cmd)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timingsMode, err := cmd.Root().PersistentFlags().GetString("timings")
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(mf.configPath)
	if err != nil {
		return err
	}
	settings, err := mergeSettings(cfg, ov)
	if err != nil {
		return err
	}
	paths, err := selectModules(args, cfg.Modules, mf)
	if err != nil {
		return err
	}

	req := &pipeline.Request{
		Target:   settings.target,
		Output:   settings.output,
		Paths:    paths,
		Seeds:    settings.seeds,
		Jobs:     settings.jobs,
		MaxDepth: settings.maxDepth,
		DryRun:   dryRun,
		Timer:    observ.NewTimer(),
	}
	if !dryRun {
		req.ReportDir = settings.reportDir
	}
	if settings.useCache && !dryRun {
		disk, err := cache.Open("concretize", settings.cacheDir)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: pool cache disabled: %v\n", err)
		} else {
			req.Cache = disk
		}
	}

	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	defer dumpTraceOnPanic(tracer)

	var res pipeline.Result
	if !quiet && shouldUseTUI(uiModeValue) {
		res, err = runWithUI(ctx, "concretize "+settings.target, req)
	} else {
		res, err = pipeline.Run(ctx, req)
	}
	if err != nil {
		dumpTraceRing(cmd.ErrOrStderr(), tracer)
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		for _, t := range res.Resolved.Types {
			fmt.Fprintln(out, t.FullName())
		}
	}
	if !quiet {
		printResolveSummary(out, req, res)
	}
	return printTimings(out, timingsMode, res.Timings, req.Timer)
}

func printResolveSummary(out io.Writer, req *pipeline.Request, res pipeline.Result) {
	ok := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)
	warn := color.New(color.FgYellow)

	n := len(res.Resolved.Types)
	if req.DryRun {
		ok.Fprintf(out, "resolved %d concrete types", n)
		fmt.Fprintf(out, " in %.3fs (dry run)\n", res.Elapsed.Seconds())
	} else {
		ok.Fprintf(out, "injected %d concrete types", n)
		fmt.Fprintf(out, " into %s in %.3fs\n", req.Output, res.Elapsed.Seconds())
	}
	dim.Fprintf(out, "  %d modules, %d seeds, %s\n", len(res.Loaded.Modules), len(res.Calls), res.Resolved.Stats)
	if req.Cache != nil {
		dim.Fprintf(out, "  pool cache: %d hits, %d misses (%s)\n", res.CacheHits, res.CacheMisses, req.Cache.Dir())
	}
	if res.ReportPath != "" {
		dim.Fprintf(out, "  report: %s\n", res.ReportPath)
	}
	if s := res.Resolved.Stats; s.DroppedGeneric > 0 {
		warn.Fprintf(out, "  %d references stayed generic and were dropped\n", s.DroppedGeneric)
	}
}

