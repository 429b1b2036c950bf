// Package resolve computes, for generic instances found inside generic
// code, the concrete instantiations reachable from the program.
//
// Resolution runs in three steps. First each seed is walked up the reverse
// call chain, substituting the arguments every call site supplies, until
// the type is concrete or a method with no callers is reached. Types still
// generic after the walk are then bound against the harvested pool of
// concrete instances of the entry method's declaring type. Finally the
// concrete results are deduplicated by full name, first occurrence first.
package resolve

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"concretize/internal/callindex"
	"concretize/internal/harvest"
	"concretize/internal/meta"
	"concretize/internal/trace"
)

// DefaultMaxDepth bounds the call chain walked for one seed.
const DefaultMaxDepth = 64

// maxBaseDepth bounds base type chains, which a malformed module could close
// into a loop.
const maxBaseDepth = 256

// Options tunes resolution.
type Options struct {
	// Jobs bounds the number of seeds resolved concurrently; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxDepth bounds the call chain length; <= 0 means DefaultMaxDepth.
	MaxDepth int
}

// Stats counts what resolution did and, above all, what it dropped.
type Stats struct {
	Seeds int
	// Finals is the number of call references the chain walk ended on.
	Finals int
	// UnresolvedBranches counts call sites whose arguments could not bind a parameter.
	UnresolvedBranches int
	CycleCuts          int
	DepthCuts          int
	// PoolBound counts types produced by binding against the harvested pool.
	PoolBound int
	// DroppedGeneric counts finals that stayed generic after pool binding.
	DroppedGeneric int
	Duplicates     int
}

func (s *Stats) add(o Stats) {
	s.Seeds += o.Seeds
	s.Finals += o.Finals
	s.UnresolvedBranches += o.UnresolvedBranches
	s.CycleCuts += o.CycleCuts
	s.DepthCuts += o.DepthCuts
	s.PoolBound += o.PoolBound
	s.DroppedGeneric += o.DroppedGeneric
	s.Duplicates += o.Duplicates
}

func (s Stats) String() string {
	return fmt.Sprintf("seeds=%d finals=%d unresolved=%d cycles=%d depth=%d pool=%d dropped=%d dup=%d",
		s.Seeds, s.Finals, s.UnresolvedBranches, s.CycleCuts, s.DepthCuts, s.PoolBound, s.DroppedGeneric, s.Duplicates)
}

// Result is the output of a resolution run.
type Result struct {
	// Types holds concrete instances, unique by full name, in seed order.
	Types []*meta.TypeRef
	Stats Stats
}

// Engine resolves seeds against a fixed program view. It holds no mutable
// state, so one Engine may serve concurrent Resolve calls.
type Engine struct {
	reg  *meta.Registry
	idx  *callindex.Index
	pool *harvest.Pool
	opts Options
}

// New returns an engine over the given registry, generic call index and pool.
func New(reg *meta.Registry, idx *callindex.Index, pool *harvest.Pool, opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if pool == nil {
		pool = harvest.NewPool()
	}
	return &Engine{reg: reg, idx: idx, pool: pool, opts: opts}
}

// Resolve builds the program view from mods and resolves calls against it.
func Resolve(ctx context.Context, calls []CallReference, mods []*meta.Module, opts Options) (*Result, error) {
	reg := meta.NewRegistry(mods...)
	idx, err := callindex.Build(ctx, reg, mods, callindex.GenericOnly, callindex.Options{Jobs: opts.Jobs})
	if err != nil {
		return nil, fmt.Errorf("call index: %w", err)
	}
	pool, err := harvest.Modules(ctx, mods, harvest.Options{Jobs: opts.Jobs})
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}
	return New(reg, idx, pool, opts).Resolve(ctx, calls)
}

// Resolve returns the concrete instances calls resolve to. Seeds are
// resolved concurrently; the output order is the order of calls.
func (e *Engine) Resolve(ctx context.Context, calls []CallReference) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "resolve", trace.CurrentSpan(ctx).SpanID)

	type seedOut struct {
		types []*meta.TypeRef
		stats Stats
	}
	outs := make([]seedOut, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(e.opts.Jobs, len(calls))))
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if call.Type == nil || call.EntryMethod == nil {
				return fmt.Errorf("seed %d: incomplete call reference", i)
			}
			seedSpan := trace.Begin(tracer, trace.ScopeSeed, call.String(), span.ID())
			types, stats := e.resolveSeed(call)
			outs[i] = seedOut{types: types, stats: stats}
			seedSpan.WithExtra("types", strconv.Itoa(len(types))).End("")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return nil, err
	}

	res := &Result{}
	seen := make(map[string]struct{})
	for _, o := range outs {
		res.Stats.add(o.stats)
		for _, t := range o.types {
			name := t.FullName()
			if _, dup := seen[name]; dup {
				res.Stats.Duplicates++
				continue
			}
			seen[name] = struct{}{}
			res.Types = append(res.Types, t)
		}
	}
	span.WithExtra("types", strconv.Itoa(len(res.Types))).End(res.Stats.String())
	return res, nil
}

// resolveSeed runs the chain walk and pool binding for one seed.
// Its output may hold duplicates; Resolve removes them.
func (e *Engine) resolveSeed(call CallReference) ([]*meta.TypeRef, Stats) {
	w := &walker{
		idx:      e.idx,
		maxDepth: e.opts.MaxDepth,
		onStack:  make(map[callKey]struct{}),
		memo:     make(map[callKey][]CallReference),
	}
	w.stats.Seeds = 1
	finals := w.walk(call, 0)
	w.stats.Finals = len(finals)

	var out []*meta.TypeRef
	for _, f := range finals {
		if f.Type.IsConcrete() {
			out = append(out, f.Type)
			continue
		}
		bound := e.bindFromPool(f)
		if len(bound) == 0 {
			w.stats.DroppedGeneric++
			continue
		}
		w.stats.PoolBound += len(bound)
		out = append(out, bound...)
	}
	return out, w.stats
}

// bindFromPool binds the type-level parameters of c.Type with the arguments
// of every pooled instance of c.EntryMethod's declaring type, or of a class
// deriving from it. Only concrete results are returned. Method-level
// parameters never bind here.
func (e *Engine) bindFromPool(c CallReference) []*meta.TypeRef {
	decl := c.EntryMethod.DeclaringType()
	if decl == nil || !decl.HasGenericParameters() {
		return nil
	}
	declName := decl.FullName()
	var out []*meta.TypeRef
	for _, cand := range e.pool.Types() {
		args, ok := e.argsFor(cand, declName)
		if !ok {
			continue
		}
		t, ok := TypeBindings(args).Apply(c.Type)
		if ok && t.IsConcrete() {
			out = append(out, t)
		}
	}
	return out
}

// argsFor follows cand up its base chain to an instance of declName and
// returns that instance's arguments.
func (e *Engine) argsFor(cand *meta.TypeRef, declName string) ([]*meta.TypeRef, bool) {
	cur := cand
	for i := 0; i < maxBaseDepth; i++ {
		if cur.IsInstance() && cur.Name == declName {
			return cur.Args, true
		}
		next, ok := e.reg.BaseType(cur)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// walker carries the per-seed state of the chain walk.
type walker struct {
	idx      *callindex.Index
	maxDepth int
	onStack  map[callKey]struct{}
	memo     map[callKey][]CallReference
	stats    Stats
}

// walk returns the call references c ends on. A concrete type ends the walk
// at once; so does a method without callers, which makes c final. A
// reference already on the walk stack is returned unchanged.
func (w *walker) walk(c CallReference, depth int) []CallReference {
	if c.Type.IsConcrete() {
		return []CallReference{c}
	}
	k := c.key()
	if out, ok := w.memo[k]; ok {
		return out
	}
	if _, cyc := w.onStack[k]; cyc {
		w.stats.CycleCuts++
		return []CallReference{c}
	}
	if depth >= w.maxDepth {
		w.stats.DepthCuts++
		return []CallReference{c}
	}
	sites, ok := w.idx.Callers(c.EntryMethod)
	if !ok || len(sites) == 0 {
		return []CallReference{c}
	}

	w.onStack[k] = struct{}{}
	var out []CallReference
	for _, s := range sites {
		t, ok := SiteBindings(s.Ref).Apply(c.Type)
		if !ok {
			w.stats.UnresolvedBranches++
			continue
		}
		out = append(out, w.walk(CallReference{Type: t, EntryMethod: s.Caller}, depth+1)...)
	}
	delete(w.onStack, k)
	w.memo[k] = out
	return out
}
