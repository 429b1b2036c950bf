// Package testkit holds module fixtures and structural checks shared by the
// package tests.
package testkit

import (
	"concretize/internal/meta"
)

// Call references m on its declaring type instantiated with typeArgs and
// with methodArgs as its own type arguments. It panics on arity mismatch,
// which in a fixture is a bug in the test.
func Call(m *meta.MethodDef, typeArgs []*meta.TypeRef, methodArgs ...*meta.TypeRef) *meta.MethodRef {
	ref, err := meta.MakeGenericMethod(m, typeArgs)
	if err != nil {
		panic(err)
	}
	if len(methodArgs) > 0 {
		ref.TypeArgs = methodArgs
	}
	return ref
}

// Int32 references System.Int32.
func Int32() *meta.TypeRef { return meta.Def(meta.SystemInt32) }

// RepoFixture is a program where Program.Run instantiates Repo<int> and
// calls SomeMethod on it, and SomeMethod constructs Repo<T> in turn.
type RepoFixture struct {
	Module     *meta.Module
	Repo       *meta.TypeDef
	SomeMethod *meta.MethodDef
	Run        *meta.MethodDef
	// Seed is Repo<T> as constructed inside SomeMethod.
	Seed *meta.TypeRef
}

// Repo builds the RepoFixture.
func Repo() *RepoFixture {
	mod := meta.NewModule("App")
	repo := mod.AddType(meta.NewClass("App", "Repo`1", "T"))
	ctor := repo.AddMethod(meta.NewConstructor())
	some := repo.AddMethod(meta.NewMethod("SomeMethod", 0))
	seed := meta.Inst(repo.FullName(), repo.Param(0))
	some.Body.EmitMethod(meta.OpNewobj, &meta.MethodRef{
		Name:          meta.ConstructorName,
		DeclaringType: seed,
		HasThis:       true,
		Return:        meta.Def(meta.SystemVoid),
	})
	some.Body.Emit(meta.OpPop)
	some.Body.Emit(meta.OpRet)

	prog := mod.AddType(meta.NewClass("App", "Program"))
	run := prog.AddMethod(meta.NewMethod("Run", meta.MethodStatic))
	run.Body.EmitMethod(meta.OpNewobj, Call(ctor, []*meta.TypeRef{Int32()}))
	run.Body.EmitMethod(meta.OpCallvirt, Call(some, []*meta.TypeRef{Int32()}))
	run.Body.Emit(meta.OpRet)

	return &RepoFixture{Module: mod, Repo: repo, SomeMethod: some, Run: run, Seed: seed}
}

// Foo and Bar are plain classes used as type arguments.
func addFooBar(mod *meta.Module) (foo, bar *meta.TypeRef) {
	f := mod.AddType(meta.NewClass("App", "Foo"))
	f.AddMethod(meta.NewConstructor())
	b := mod.AddType(meta.NewClass("App", "Bar"))
	b.AddMethod(meta.NewConstructor())
	return meta.Def(f.FullName()), meta.Def(b.FullName())
}

// OffsetFixture is Container<T>.Method<U> constructing Box<U>, called once
// as Container<Foo>.Method<Bar>.
type OffsetFixture struct {
	Module   *meta.Module
	Method   *meta.MethodDef
	Seed     *meta.TypeRef
	Foo, Bar *meta.TypeRef
}

// Offset builds the OffsetFixture.
func Offset() *OffsetFixture {
	mod := meta.NewModule("App")
	foo, bar := addFooBar(mod)
	box := mod.AddType(meta.NewClass("App", "Box`1", "T"))
	box.AddMethod(meta.NewConstructor())

	container := mod.AddType(meta.NewClass("App", "Container`1", "T"))
	method := container.AddMethod(meta.NewMethod("Method", 0, "U"))
	method.Params = []*meta.TypeRef{container.Param(0), method.Param(0)}
	seed := meta.Inst(box.FullName(), method.Param(0))
	method.Body.EmitType(meta.OpLdtoken, seed)
	method.Body.Emit(meta.OpPop)
	method.Body.Emit(meta.OpRet)

	prog := mod.AddType(meta.NewClass("App", "Program"))
	run := prog.AddMethod(meta.NewMethod("Run", meta.MethodStatic))
	run.Body.Emit(meta.OpLdnull)
	run.Body.Emit(meta.OpLdnull)
	run.Body.EmitMethod(meta.OpCall, Call(method, []*meta.TypeRef{foo}, bar))
	run.Body.Emit(meta.OpRet)

	return &OffsetFixture{Module: mod, Method: method, Seed: seed, Foo: foo, Bar: bar}
}

// PoolFixture is Wrapper<T>.Run constructing Box<T>. Run has no callers;
// Program only constructs Wrapper<Foo> and Wrapper<Bar>, and Special
// derives from Wrapper<Bar>.
type PoolFixture struct {
	Module   *meta.Module
	Run      *meta.MethodDef
	Seed     *meta.TypeRef
	Foo, Bar *meta.TypeRef
}

// Pool builds the PoolFixture.
func Pool() *PoolFixture {
	mod := meta.NewModule("App")
	foo, bar := addFooBar(mod)
	box := mod.AddType(meta.NewClass("App", "Box`1", "T"))
	box.AddMethod(meta.NewConstructor())

	wrapper := mod.AddType(meta.NewClass("App", "Wrapper`1", "T"))
	wctor := wrapper.AddMethod(meta.NewConstructor())
	run := wrapper.AddMethod(meta.NewMethod("Run", 0))
	seed := meta.Inst(box.FullName(), wrapper.Param(0))
	run.Body.EmitType(meta.OpLdtoken, seed)
	run.Body.Emit(meta.OpPop)
	run.Body.Emit(meta.OpRet)

	special := mod.AddType(meta.NewClass("App", "Special"))
	special.BaseType = meta.Inst(wrapper.FullName(), bar)
	special.AddMethod(meta.NewConstructor())

	prog := mod.AddType(meta.NewClass("App", "Program"))
	main := prog.AddMethod(meta.NewMethod("Main", meta.MethodStatic))
	main.Body.EmitMethod(meta.OpNewobj, Call(wctor, []*meta.TypeRef{foo}))
	main.Body.Emit(meta.OpPop)
	main.Body.EmitMethod(meta.OpNewobj, Call(wctor, []*meta.TypeRef{bar}))
	main.Body.Emit(meta.OpPop)
	main.Body.Emit(meta.OpRet)

	return &PoolFixture{Module: mod, Run: run, Seed: seed, Foo: foo, Bar: bar}
}

// CycleFixture has generic methods A<T> and B<T> calling each other, with A
// constructing Box<T>, and no caller outside the cycle.
type CycleFixture struct {
	Module *meta.Module
	A, B   *meta.MethodDef
	Seed   *meta.TypeRef
}

// Cycle builds the CycleFixture.
func Cycle() *CycleFixture {
	mod := meta.NewModule("App")
	box := mod.AddType(meta.NewClass("App", "Box`1", "T"))
	box.AddMethod(meta.NewConstructor())

	host := mod.AddType(meta.NewClass("App", "Host"))
	a := host.AddMethod(meta.NewMethod("A", meta.MethodStatic, "T"))
	b := host.AddMethod(meta.NewMethod("B", meta.MethodStatic, "T"))
	seed := meta.Inst(box.FullName(), a.Param(0))
	a.Body.EmitType(meta.OpLdtoken, seed)
	a.Body.Emit(meta.OpPop)
	a.Body.EmitMethod(meta.OpCall, Call(b, nil, a.Param(0)))
	a.Body.Emit(meta.OpRet)
	b.Body.EmitMethod(meta.OpCall, Call(a, nil, b.Param(0)))
	b.Body.Emit(meta.OpRet)

	return &CycleFixture{Module: mod, A: a, B: b, Seed: seed}
}
