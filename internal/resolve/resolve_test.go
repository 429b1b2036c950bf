package resolve

import (
	"context"
	"slices"
	"testing"

	"concretize/internal/callindex"
	"concretize/internal/harvest"
	"concretize/internal/meta"
	"concretize/internal/testkit"
)

func names(t *testing.T, res *Result) []string {
	t.Helper()
	out := make([]string, 0, len(res.Types))
	for _, ty := range res.Types {
		if !ty.IsConcrete() {
			t.Fatalf("non-concrete type in output: %s", ty.Key())
		}
		out = append(out, ty.FullName())
	}
	return out
}

func run(t *testing.T, calls []CallReference, opts Options, mods ...*meta.Module) *Result {
	t.Helper()
	res, err := Resolve(context.Background(), calls, mods, opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return res
}

func TestSiteBindingsOffsetsMethodParameters(t *testing.T) {
	foo, bar := meta.Def("Foo"), meta.Def("Bar")
	ref := &meta.MethodRef{
		Name:          "Method",
		DeclaringType: meta.Inst("Container`1", foo),
		GenericArity:  1,
		TypeArgs:      []*meta.TypeRef{bar},
	}
	b := SiteBindings(ref)
	if got, ok := b.Lookup(meta.MethodParam("U", 0, "Container`1::Method")); !ok || got != bar {
		t.Fatalf("method param 0 = %v, want Bar", got)
	}
	if got, ok := b.Lookup(meta.TypeParam("T", 0, "Container`1")); !ok || got != foo {
		t.Fatalf("type param 0 = %v, want Foo", got)
	}
	if _, ok := b.Lookup(meta.TypeParam("T", 1, "Container`1")); ok {
		t.Fatalf("type param 1 must not reach into method arguments")
	}
	if _, ok := b.Lookup(meta.MethodParam("V", 1, "Container`1::Method")); ok {
		t.Fatalf("method param 1 is out of range")
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	b := TypeBindings([]*meta.TypeRef{meta.Def("Foo")})
	in := meta.Inst("Pair`2", meta.TypeParam("A", 0, "X"), meta.MethodParam("B", 0, "X::M"))
	if got, ok := b.Apply(in); ok {
		t.Fatalf("expected failure, got %s", got.Key())
	}
	concrete := meta.Inst("List`1", meta.Def("Foo"))
	if got, ok := b.Apply(concrete); !ok || got != concrete {
		t.Fatalf("concrete input should come back unchanged")
	}
	nested := meta.Inst("List`1", meta.Inst("Box`1", meta.TypeParam("A", 0, "X")))
	got, ok := b.Apply(nested)
	if !ok || got.FullName() != "List`1<Box`1<Foo>>" {
		t.Fatalf("nested = %v, %v", got, ok)
	}
}

func TestResolveRepoEndToEnd(t *testing.T) {
	fx := testkit.Repo()
	calls := CollectCalls(fx.Module.Definitions(), SeedNames(fx.Repo.FullName()))
	if len(calls) != 1 || calls[0].EntryMethod != fx.SomeMethod {
		t.Fatalf("unexpected seeds: %v", calls)
	}
	res := run(t, calls, Options{}, fx.Module)
	if got, want := names(t, res), []string{"App.Repo`1<System.Int32>"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveOffsetCorrectness(t *testing.T) {
	fx := testkit.Offset()
	res := run(t, []CallReference{{Type: fx.Seed, EntryMethod: fx.Method}}, Options{}, fx.Module)
	if got, want := names(t, res), []string{"App.Box`1<App.Bar>"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveBindsEveryPooledInstance(t *testing.T) {
	fx := testkit.Pool()
	res := run(t, []CallReference{{Type: fx.Seed, EntryMethod: fx.Run}}, Options{}, fx.Module)
	got := names(t, res)
	slices.Sort(got)
	if want := []string{"App.Box`1<App.Bar>", "App.Box`1<App.Foo>"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if res.Stats.PoolBound != 2 {
		t.Fatalf("PoolBound = %d, want 2", res.Stats.PoolBound)
	}
}

func TestResolvePoolFollowsBaseChain(t *testing.T) {
	fx := testkit.Pool()
	wrapper, _ := meta.NewRegistry(fx.Module).Type("App.Wrapper`1")
	sub := fx.Module.AddType(meta.NewClass("App", "Sub`1", "T"))
	sub.BaseType = meta.Inst(wrapper.FullName(), meta.Inst("App.Box`1", sub.Param(0)))

	reg := meta.NewRegistry(fx.Module)
	pool := harvest.NewPool()
	pool.Add(meta.Inst(sub.FullName(), fx.Foo))
	pool.Add(meta.Inst("App.Unrelated`1", fx.Bar))
	idx, err := callindex.Build(context.Background(), reg, []*meta.Module{fx.Module}, callindex.GenericOnly, callindex.Options{})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	res, err := New(reg, idx, pool, Options{}).Resolve(context.Background(), []CallReference{{Type: fx.Seed, EntryMethod: fx.Run}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got, want := names(t, res), []string{"App.Box`1<App.Box`1<App.Foo>>"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	fx := testkit.Cycle()
	res := run(t, []CallReference{{Type: fx.Seed, EntryMethod: fx.A}}, Options{}, fx.Module)
	if len(res.Types) != 0 {
		t.Fatalf("expected no types, got %v", names(t, res))
	}
	if res.Stats.CycleCuts != 1 || res.Stats.DroppedGeneric != 1 {
		t.Fatalf("unexpected stats: %s", res.Stats)
	}
}

func TestResolveDepthLimit(t *testing.T) {
	fx := testkit.Cycle()
	res := run(t, []CallReference{{Type: fx.Seed, EntryMethod: fx.A}}, Options{MaxDepth: 1}, fx.Module)
	if res.Stats.DepthCuts != 1 || res.Stats.CycleCuts != 0 {
		t.Fatalf("unexpected stats: %s", res.Stats)
	}
}

func TestResolveMethodParametersNeverBindFromPool(t *testing.T) {
	fx := testkit.Pool()
	wrapper, _ := meta.NewRegistry(fx.Module).Type("App.Wrapper`1")
	gen := wrapper.AddMethod(meta.NewMethod("Gen", 0, "M"))
	seed := meta.Inst("App.Box`1", gen.Param(0))
	gen.Body.EmitType(meta.OpLdtoken, seed)
	gen.Body.Emit(meta.OpPop)
	gen.Body.Emit(meta.OpRet)

	res := run(t, []CallReference{{Type: seed, EntryMethod: gen}}, Options{}, fx.Module)
	if len(res.Types) != 0 || res.Stats.DroppedGeneric != 1 {
		t.Fatalf("got %v (%s), want nothing", names(t, res), res.Stats)
	}
}

func TestResolveDeduplicatesAcrossSeeds(t *testing.T) {
	fx := testkit.Repo()
	seed := CallReference{Type: fx.Seed, EntryMethod: fx.SomeMethod}
	res := run(t, []CallReference{seed, seed}, Options{}, fx.Module)
	if len(res.Types) != 1 || res.Stats.Duplicates != 1 {
		t.Fatalf("got %v (%s)", names(t, res), res.Stats)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	fx := testkit.Pool()
	off := testkit.Offset()
	calls := []CallReference{
		{Type: fx.Seed, EntryMethod: fx.Run},
		{Type: off.Seed, EntryMethod: off.Method},
	}
	mods := []*meta.Module{fx.Module, off.Module}
	first := names(t, run(t, calls, Options{Jobs: 1}, mods...))
	for i := 0; i < 5; i++ {
		again := names(t, run(t, calls, Options{Jobs: 8}, mods...))
		if !slices.Equal(first, again) {
			t.Fatalf("runs differ: %v vs %v", first, again)
		}
	}
}

func TestResolveRejectsIncompleteSeed(t *testing.T) {
	fx := testkit.Repo()
	if _, err := Resolve(context.Background(), []CallReference{{Type: fx.Seed}}, []*meta.Module{fx.Module}, Options{}); err == nil {
		t.Fatalf("expected error for seed without entry method")
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	fx := testkit.Repo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seed := CallReference{Type: fx.Seed, EntryMethod: fx.SomeMethod}
	if _, err := Resolve(ctx, []CallReference{seed}, []*meta.Module{fx.Module}, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
