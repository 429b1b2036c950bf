// Package harvest collects the concrete generic instantiations a program
// already uses. They serve as substitution candidates for generic
// parameters the call chain alone cannot bind.
package harvest

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"concretize/internal/meta"
	"concretize/internal/trace"
)

// Pool is an ordered set of concrete type references, keyed by full name.
// The first reference seen for a name wins.
type Pool struct {
	types []*meta.TypeRef
	seen  map[string]struct{}
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{seen: make(map[string]struct{})}
}

// Add inserts t unless a type with the same full name is already present.
// Non-concrete references are ignored.
func (p *Pool) Add(t *meta.TypeRef) bool {
	if !t.IsConcrete() {
		return false
	}
	name := t.FullName()
	if _, dup := p.seen[name]; dup {
		return false
	}
	p.seen[name] = struct{}{}
	p.types = append(p.types, t)
	return true
}

// Merge adds every type of o in order.
func (p *Pool) Merge(o *Pool) {
	if o == nil {
		return
	}
	for _, t := range o.types {
		p.Add(t)
	}
}

// Types returns the pooled references in insertion order.
func (p *Pool) Types() []*meta.TypeRef {
	if p == nil {
		return nil
	}
	return p.types
}

// Len returns the number of pooled types.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.types)
}

// Contains reports whether a type with the given full name is pooled.
func (p *Pool) Contains(fullName string) bool {
	if p == nil {
		return false
	}
	_, ok := p.seen[fullName]
	return ok
}

// Module harvests mod. Sources are taken in this order:
//  1. concrete instance type operands of instructions
//  2. concrete instance base types of non-generic classes
//  3. concrete instance declaring types of called methods
func Module(mod *meta.Module) *Pool {
	p := NewPool()
	if mod == nil {
		return p
	}
	defs := mod.Definitions()
	forEachInstruction(defs, func(in meta.Instruction) {
		if t := in.TypeOperand(); t.IsInstance() {
			p.Add(t)
		}
	})
	for _, t := range defs {
		if t.IsClass() && !t.HasGenericParameters() && t.BaseType.IsInstance() {
			p.Add(t.BaseType)
		}
	}
	forEachInstruction(defs, func(in meta.Instruction) {
		if m := in.MethodOperand(); m != nil && m.DeclaringType.IsInstance() {
			p.Add(m.DeclaringType)
		}
	})
	return p
}

func forEachInstruction(defs []*meta.TypeDef, fn func(meta.Instruction)) {
	for _, t := range defs {
		for _, m := range t.Methods {
			if m.Body == nil {
				continue
			}
			for _, in := range m.Body.Instructions {
				fn(in)
			}
		}
	}
}

// Options tunes Modules.
type Options struct {
	// Jobs bounds concurrent module scans; <= 0 means GOMAXPROCS.
	Jobs int
	// Cached, when set, is consulted before scanning a module and fed with
	// every freshly harvested pool.
	Cached Cache
	// OnModule, when set, is called from the scanning goroutine after each
	// module is harvested; cached reports whether the pool came from Cached.
	OnModule func(mod *meta.Module, cached bool)
}

// Cache stores per-module pools across runs.
type Cache interface {
	Load(mod *meta.Module) (*Pool, bool)
	Store(mod *meta.Module, p *Pool)
}

// Modules harvests every module concurrently and merges the pools in input
// order, so the result does not depend on scheduling.
func Modules(ctx context.Context, mods []*meta.Module, opts Options) (*Pool, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "harvest", trace.CurrentSpan(ctx).SpanID)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	pools := make([]*Pool, len(mods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(mods))))
	for i, mod := range mods {
		i, mod := i, mod
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if mod == nil {
				return nil
			}
			modSpan := trace.Begin(tracer, trace.ScopeModule, "harvest:"+mod.Name, span.ID())
			if opts.Cached != nil {
				if p, ok := opts.Cached.Load(mod); ok {
					pools[i] = p
					modSpan.End("cached")
					if opts.OnModule != nil {
						opts.OnModule(mod, true)
					}
					return nil
				}
			}
			pools[i] = Module(mod)
			if opts.Cached != nil {
				opts.Cached.Store(mod, pools[i])
			}
			modSpan.WithExtra("types", strconv.Itoa(pools[i].Len())).End("")
			if opts.OnModule != nil {
				opts.OnModule(mod, false)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return nil, err
	}
	out := NewPool()
	for _, p := range pools {
		out.Merge(p)
	}
	span.WithExtra("types", strconv.Itoa(out.Len())).End("")
	return out, nil
}
