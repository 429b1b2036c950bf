package harvest

import (
	"context"
	"slices"
	"sync"
	"testing"

	"concretize/internal/meta"
	"concretize/internal/testkit"
)

func fullNames(p *Pool) []string {
	var out []string
	for _, t := range p.Types() {
		out = append(out, t.FullName())
	}
	return out
}

func TestModuleHarvestsSourcesInOrder(t *testing.T) {
	mod := meta.NewModule("App")
	list := mod.AddType(meta.NewClass("App", "List`1", "T"))
	lctor := list.AddMethod(meta.NewConstructor())
	base := mod.AddType(meta.NewClass("App", "Base`1", "T"))
	base.AddMethod(meta.NewConstructor())

	derived := mod.AddType(meta.NewClass("App", "Derived"))
	derived.BaseType = meta.Inst(base.FullName(), meta.Def(meta.SystemString))
	open := mod.AddType(meta.NewClass("App", "Open`1", "T"))
	open.BaseType = meta.Inst(base.FullName(), open.Param(0))

	prog := mod.AddType(meta.NewClass("App", "Program"))
	main := prog.AddMethod(meta.NewMethod("Main", meta.MethodStatic))
	main.Body.EmitMethod(meta.OpNewobj, testkit.Call(lctor, []*meta.TypeRef{testkit.Int32()}))
	main.Body.EmitType(meta.OpLdtoken, meta.Inst(list.FullName(), meta.Def(meta.SystemObject)))
	main.Body.EmitType(meta.OpLdtoken, meta.Inst(list.FullName(), open.Param(0)))
	main.Body.EmitType(meta.OpLdtoken, meta.Inst(list.FullName(), meta.Def(meta.SystemObject)))
	main.Body.Emit(meta.OpRet)

	got := fullNames(Module(mod))
	want := []string{
		"App.List`1<System.Object>",
		"App.Base`1<System.String>",
		"App.List`1<System.Int32>",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPoolKeepsFirstByFullName(t *testing.T) {
	p := NewPool()
	a := meta.Inst("Box`1", meta.Def("Foo"))
	b := meta.Inst("Box`1", meta.Def("Foo"))
	if !p.Add(a) || p.Add(b) {
		t.Fatalf("second add of the same name must be rejected")
	}
	if p.Types()[0] != a {
		t.Fatalf("first reference must win")
	}
	if p.Add(meta.Inst("Box`1", meta.TypeParam("T", 0, "X"))) {
		t.Fatalf("generic reference must not be pooled")
	}
	if !p.Contains("Box`1<Foo>") || p.Len() != 1 {
		t.Fatalf("unexpected pool: %v", fullNames(p))
	}
}

type memCache struct {
	mu     sync.Mutex
	pools  map[*meta.Module]*Pool
	stores int
}

func (c *memCache) Load(mod *meta.Module) (*Pool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[mod]
	return p, ok
}

func (c *memCache) Store(mod *meta.Module, p *Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[mod] = p
	c.stores++
}

func TestModulesMergesInInputOrderAndUsesCache(t *testing.T) {
	pool := testkit.Pool()
	off := testkit.Offset()
	mods := []*meta.Module{off.Module, pool.Module}
	cache := &memCache{pools: make(map[*meta.Module]*Pool)}

	first, err := Modules(context.Background(), mods, Options{Jobs: 2, Cached: cache})
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if got := fullNames(first); len(got) == 0 || got[0] != "App.Container`1<App.Foo>" {
		t.Fatalf("unexpected order: %v", got)
	}
	if cache.stores != 2 {
		t.Fatalf("stores = %d, want 2", cache.stores)
	}
	second, err := Modules(context.Background(), mods, Options{Jobs: 2, Cached: cache})
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if cache.stores != 2 {
		t.Fatalf("cached modules must not be stored again")
	}
	if !slices.Equal(fullNames(first), fullNames(second)) {
		t.Fatalf("cached harvest differs: %v vs %v", fullNames(first), fullNames(second))
	}
}
