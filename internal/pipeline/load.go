package pipeline

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"concretize/internal/cache"
	"concretize/internal/meta"
	"concretize/internal/trace"
)

// Loaded is a set of decoded modules with the content digest of each file.
type Loaded struct {
	Paths   []string
	Modules []*meta.Module
	Digests []cache.Digest
}

// Load decodes every file of paths concurrently. The first failure cancels
// the rest and is returned wrapped with its path.
func Load(ctx context.Context, paths []string, jobs int, sink ProgressSink) (*Loaded, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "load", trace.CurrentSpan(ctx).SpanID)

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	out := &Loaded{
		Paths:   paths,
		Modules: make([]*meta.Module, len(paths)),
		Digests: make([]cache.Digest, len(paths)),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			notify(sink, Event{File: path, Stage: StageLoad, Status: StatusWorking})
			mod, data, err := meta.ReadFile(path)
			if err != nil {
				notify(sink, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return err
			}
			out.Modules[i] = mod
			out.Digests[i] = cache.Sum(data)
			trace.Point(tracer, trace.ScopeModule, "loaded:"+mod.Name, path, span.ID())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return nil, err
	}
	span.End("")
	return out, nil
}
