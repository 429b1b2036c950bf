// Package callindex builds the reverse call index: for every method
// definition, the call sites that reach it and the methods containing them.
package callindex

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"concretize/internal/meta"
	"concretize/internal/trace"
)

// Extractor picks the method reference an operand contributes to the index.
// It returns nil when the operand is not indexed.
type Extractor func(meta.Operand) *meta.MethodRef

// Plain indexes every method operand.
func Plain(op meta.Operand) *meta.MethodRef {
	return op.Method
}

// GenericOnly indexes only call sites that carry generic arguments, either
// method type arguments or an instantiated declaring type. Plain references
// to such call sites share the *meta.MethodRef shape, so no wrapper is needed.
func GenericOnly(op meta.Operand) *meta.MethodRef {
	ref := op.Method
	if ref == nil {
		return nil
	}
	if ref.IsGenericInstance() || ref.DeclaringType.IsInstance() {
		return ref
	}
	return nil
}

// Site is one observed call: the reference as written and the calling method.
type Site struct {
	Ref    *meta.MethodRef
	Caller *meta.MethodDef
}

// Index maps a called method definition to its call sites.
// It is immutable once Build returns.
type Index struct {
	sites map[*meta.MethodDef][]Site
	order []*meta.MethodDef
}

// Options tunes index construction.
type Options struct {
	// Jobs bounds the number of modules scanned concurrently; <= 0 means GOMAXPROCS.
	Jobs int
	// OnModule, when set, is called from the scanning goroutine after each
	// module is indexed.
	OnModule func(*meta.Module)
}

// Build scans every method body of mods and indexes the references chosen by
// extract. References that do not resolve through reg are skipped. Sites for
// a key keep the order in which they appear in mods, whatever the
// parallelism.
func Build(ctx context.Context, reg *meta.Registry, mods []*meta.Module, extract Extractor, opts Options) (*Index, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "callindex", trace.CurrentSpan(ctx).SpanID)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	parts := make([]*partition, len(mods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(mods))))
	for i, mod := range mods {
		i, mod := i, mod
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if mod == nil {
				return nil
			}
			modSpan := trace.Begin(tracer, trace.ScopeModule, "callindex:"+mod.Name, span.ID())
			parts[i] = scanModule(reg, mod, extract)
			modSpan.End("")
			if opts.OnModule != nil {
				opts.OnModule(mod)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return nil, err
	}

	idx := &Index{sites: make(map[*meta.MethodDef][]Site)}
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, key := range p.order {
			if _, seen := idx.sites[key]; !seen {
				idx.order = append(idx.order, key)
			}
			idx.sites[key] = append(idx.sites[key], p.sites[key]...)
		}
	}
	span.WithExtra("keys", strconv.Itoa(len(idx.order))).End("")
	return idx, nil
}

type partition struct {
	sites map[*meta.MethodDef][]Site
	order []*meta.MethodDef
}

func scanModule(reg *meta.Registry, mod *meta.Module, extract Extractor) *partition {
	p := &partition{sites: make(map[*meta.MethodDef][]Site)}
	if mod == nil {
		return p
	}
	for _, caller := range mod.Methods() {
		if caller.Body == nil {
			continue
		}
		for _, in := range caller.Body.Instructions {
			ref := extract(in.Operand)
			if ref == nil {
				continue
			}
			key, ok := reg.ResolveMethod(ref)
			if !ok {
				continue
			}
			if _, seen := p.sites[key]; !seen {
				p.order = append(p.order, key)
			}
			p.sites[key] = append(p.sites[key], Site{Ref: ref, Caller: caller})
		}
	}
	return p
}

// Callers returns the call sites of m and whether any exist.
// The returned slice must not be modified.
func (idx *Index) Callers(m *meta.MethodDef) ([]Site, bool) {
	if idx == nil {
		return nil, false
	}
	s, ok := idx.sites[m]
	return s, ok
}

// Len returns the number of indexed method definitions.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}

// Keys returns the indexed definitions in first-seen order.
func (idx *Index) Keys() []*meta.MethodDef {
	if idx == nil {
		return nil
	}
	return append([]*meta.MethodDef(nil), idx.order...)
}
