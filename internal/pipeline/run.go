package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"concretize/internal/cache"
	"concretize/internal/callindex"
	"concretize/internal/emit"
	"concretize/internal/harvest"
	"concretize/internal/meta"
	"concretize/internal/observ"
	"concretize/internal/report"
	"concretize/internal/resolve"
	"concretize/internal/trace"
)

// ErrNoSeeds is returned when a request names no seed definition.
var ErrNoSeeds = errors.New("no seed types configured")

// Request describes one resolution run over already selected module files.
type Request struct {
	Target string
	// Output is the path of the synthetic module.
	Output string
	Paths  []string
	// Seeds are the generic definition names whose instances are resolved.
	Seeds []string
	// ReportDir receives the report file; empty disables it.
	ReportDir string
	// Cache, when set, serves harvested pools of unchanged modules.
	Cache    *cache.DiskCache
	Jobs     int
	MaxDepth int
	// DryRun resolves without writing the module or the report.
	DryRun   bool
	Progress ProgressSink
	// Timer, when set, records every stage with a short note.
	Timer *observ.Timer
}

// Result carries every intermediate product of a run.
type Result struct {
	Loaded      *Loaded
	Registry    *meta.Registry
	Index       *callindex.Index
	Pool        *harvest.Pool
	Calls       []resolve.CallReference
	Resolved    *resolve.Result
	Emitted     *meta.Module
	ReportPath  string
	Timings     Timings
	CacheHits   int64
	CacheMisses int64
	Elapsed     time.Duration
}

type runner struct {
	req   *Request
	res   *Result
	start time.Time
	paths map[*meta.Module]string
}

// Run executes load, index, harvest, resolve, emit and report in order.
// Nothing is written when an earlier stage fails.
func Run(ctx context.Context, req *Request) (Result, error) {
	if req == nil {
		return Result{}, fmt.Errorf("missing request")
	}
	if len(req.Seeds) == 0 {
		return Result{}, ErrNoSeeds
	}
	if req.Target == "" {
		return Result{}, fmt.Errorf("missing target name")
	}
	start := time.Now()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeRun, "concretize:"+req.Target, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)

	r := &runner{req: req, res: &Result{}, start: start}
	err := r.run(ctx)
	r.res.Elapsed = time.Since(start)
	if err != nil {
		span.End(err.Error())
		return *r.res, err
	}
	span.WithExtra("types", strconv.Itoa(len(r.res.Resolved.Types))).End("")
	return *r.res, nil
}

func (r *runner) run(ctx context.Context) error {
	req, res := r.req, r.res
	for _, p := range req.Paths {
		notify(req.Progress, Event{File: p, Stage: StageLoad, Status: StatusQueued})
	}

	err := r.stage(StageLoad, func() (string, error) {
		loaded, err := Load(ctx, req.Paths, req.Jobs, req.Progress)
		if err != nil {
			return "", err
		}
		res.Loaded = loaded
		res.Registry = meta.NewRegistry(loaded.Modules...)
		r.paths = make(map[*meta.Module]string, len(loaded.Modules))
		for i, mod := range loaded.Modules {
			r.paths[mod] = loaded.Paths[i]
			notify(req.Progress, Event{File: loaded.Paths[i], Stage: StageIndex, Status: StatusWorking})
		}
		return fmt.Sprintf("%d modules", len(loaded.Modules)), nil
	})
	if err != nil {
		return err
	}
	mods := res.Loaded.Modules

	err = r.stage(StageIndex, func() (string, error) {
		idx, err := callindex.Build(ctx, res.Registry, mods, callindex.GenericOnly, callindex.Options{
			Jobs: req.Jobs,
			OnModule: func(mod *meta.Module) {
				notify(req.Progress, Event{File: r.paths[mod], Stage: StageHarvest, Status: StatusWorking})
			},
		})
		if err != nil {
			return "", err
		}
		res.Index = idx
		return fmt.Sprintf("%d callees", idx.Len()), nil
	})
	if err != nil {
		return err
	}

	err = r.stage(StageHarvest, func() (string, error) {
		opts := harvest.Options{
			Jobs: req.Jobs,
			OnModule: func(mod *meta.Module, _ bool) {
				notify(req.Progress, Event{File: r.paths[mod], Stage: StageHarvest, Status: StatusDone})
			},
		}
		var pools *cache.Pools
		if req.Cache != nil {
			pools = cache.NewPools(req.Cache)
			for i, mod := range mods {
				pools.Track(mod, res.Loaded.Digests[i])
			}
			opts.Cached = pools
		}
		pool, err := harvest.Modules(ctx, mods, opts)
		if err != nil {
			return "", err
		}
		res.Pool = pool
		note := fmt.Sprintf("%d types", pool.Len())
		if pools != nil {
			res.CacheHits, res.CacheMisses = pools.Counts()
			note += fmt.Sprintf(", cache %d/%d", res.CacheHits, res.CacheHits+res.CacheMisses)
		}
		return note, nil
	})
	if err != nil {
		return err
	}

	err = r.stage(StageResolve, func() (string, error) {
		var defs []*meta.TypeDef
		for _, mod := range mods {
			defs = append(defs, mod.Definitions()...)
		}
		res.Calls = resolve.CollectCalls(defs, resolve.SeedNames(req.Seeds...))
		engine := resolve.New(res.Registry, res.Index, res.Pool, resolve.Options{Jobs: req.Jobs, MaxDepth: req.MaxDepth})
		out, err := engine.Resolve(ctx, res.Calls)
		if err != nil {
			return "", err
		}
		res.Resolved = out
		return fmt.Sprintf("%d seeds, %d types", len(res.Calls), len(out.Types)), nil
	})
	if err != nil || req.DryRun {
		return err
	}

	err = r.stage(StageEmit, func() (string, error) {
		mod, err := emit.Write(req.Target, res.Resolved.Types, res.Registry, req.Output)
		if err != nil {
			return "", err
		}
		res.Emitted = mod
		return req.Output, nil
	})
	if err != nil || req.ReportDir == "" {
		return err
	}

	return r.stage(StageReport, func() (string, error) {
		path, err := report.Write(req.ReportDir, req.Target, req.Output, res.Resolved, time.Since(r.start))
		if err != nil {
			return "", err
		}
		res.ReportPath = path
		return path, nil
	})
}

// stage runs fn as stage, recording its duration and reporting progress.
func (r *runner) stage(stage Stage, fn func() (string, error)) error {
	req := r.req
	start := time.Now()
	idx := -1
	if req.Timer != nil {
		idx = req.Timer.Begin(string(stage))
	}
	notify(req.Progress, Event{Stage: stage, Status: StatusWorking})
	note, err := fn()
	elapsed := time.Since(start)
	r.res.Timings.Set(stage, elapsed)
	if req.Timer != nil {
		if err != nil {
			note = "error: " + err.Error()
		}
		req.Timer.End(idx, note)
	}
	if err != nil {
		notify(req.Progress, Event{Stage: stage, Status: StatusError, Err: err, Elapsed: elapsed})
		return fmt.Errorf("%s: %w", stage, err)
	}
	notify(req.Progress, Event{Stage: stage, Status: StatusDone, Elapsed: elapsed})
	return nil
}
