package emit

import (
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"concretize/internal/meta"
	"concretize/internal/testkit"
)

func ops(m *meta.MethodDef) []meta.OpCode {
	out := make([]meta.OpCode, 0, len(m.Body.Instructions))
	for _, in := range m.Body.Instructions {
		out = append(out, in.Op)
	}
	return out
}

func entry(t *testing.T, mod *meta.Module, name string) *meta.MethodDef {
	t.Helper()
	reg := meta.NewRegistry(mod)
	cls, ok := reg.Type(name + "." + name)
	if !ok {
		t.Fatalf("class %s.%s missing", name, name)
	}
	for _, m := range cls.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s missing", name)
	return nil
}

func TestBuildUsesConstructorWhenAvailable(t *testing.T) {
	fx := testkit.Repo()
	repoInt := meta.Inst(fx.Repo.FullName(), testkit.Int32())
	mod, err := Build("ConcreteRenderer", []*meta.TypeRef{repoInt}, meta.NewRegistry(fx.Module))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := testkit.CheckModuleInvariants(mod); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	m := entry(t, mod, "ConcreteRenderer")
	if !m.IsStatic() || !m.IsPublic() || !m.HasAttribute(meta.PreserveAttribute) {
		t.Fatalf("entry method flags wrong: %+v", m)
	}
	want := []meta.OpCode{meta.OpNop, meta.OpNewobj, meta.OpPop, meta.OpRet}
	if got := ops(m); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	ctor := m.Body.Instructions[1].MethodOperand()
	if ctor.Name != meta.ConstructorName || ctor.DeclaringType.FullName() != "App.Repo`1<System.Int32>" {
		t.Fatalf("newobj target = %s", ctor.FullName())
	}
}

func TestBuildFallsBackToDefaultInit(t *testing.T) {
	mod := meta.NewModule("Lib")
	vec := mod.AddType(meta.NewStruct("Lib", "Vec`1", "T"))
	noCtor := meta.Inst(vec.FullName(), testkit.Int32())
	unknown := meta.Inst("Other.Thing`1", testkit.Int32())

	out, err := Build("Gen", []*meta.TypeRef{noCtor, unknown}, meta.NewRegistry(mod))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := testkit.CheckModuleInvariants(out); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	m := entry(t, out, "Gen")
	fallback := []meta.OpCode{meta.OpNop, meta.OpLdlocaS, meta.OpDup, meta.OpInitobj, meta.OpConstrained, meta.OpCallvirt, meta.OpPop}
	want := append(append(slices.Clone(fallback), fallback...), meta.OpRet)
	if got := ops(m); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if len(m.Body.Locals) != 2 || m.Body.Instructions[8].Operand.Int != 1 {
		t.Fatalf("second type must use local 1")
	}
	call := m.Body.Instructions[5].MethodOperand()
	if call.FullName() != "System.String System.Object::ToString()" {
		t.Fatalf("callvirt target = %s", call.FullName())
	}
}

func TestBuildFallsBackOnArityMismatch(t *testing.T) {
	mod := meta.NewModule("Lib")
	box := mod.AddType(meta.NewClass("Lib", "Box`1", "T"))
	box.AddMethod(meta.NewConstructor())
	wrong := meta.Inst(box.FullName(), testkit.Int32(), testkit.Int32())

	out, err := Build("Gen", []*meta.TypeRef{wrong}, meta.NewRegistry(mod))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := ops(entry(t, out, "Gen")); got[1] != meta.OpLdlocaS {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestBuildUsesLongFormPastShortRange(t *testing.T) {
	var types []*meta.TypeRef
	for i := 0; i < 300; i++ {
		types = append(types, meta.Inst("Ext.Box`1", meta.Def(fmt.Sprintf("Ext.T%d", i))))
	}
	out, err := Build("Gen", types, meta.NewRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := testkit.CheckModuleInvariants(out); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	code := entry(t, out, "Gen").Body.Instructions
	if code[1+7*255].Op != meta.OpLdlocaS || code[1+7*256].Op != meta.OpLdloca {
		t.Fatalf("local 255 must be short, 256 long: %s / %s", code[1+7*255].Op, code[1+7*256].Op)
	}
}

func TestBuildRejectsGenericInput(t *testing.T) {
	open := meta.Inst("Box`1", meta.TypeParam("T", 0, "Box`1"))
	if _, err := Build("Gen", []*meta.TypeRef{open}, meta.NewRegistry()); err == nil {
		t.Fatalf("expected error for generic type")
	}
}

func TestWriteRoundTrips(t *testing.T) {
	fx := testkit.Repo()
	path := filepath.Join(t.TempDir(), "out", "Gen.bin")
	types := []*meta.TypeRef{meta.Inst(fx.Repo.FullName(), testkit.Int32())}
	if _, err := Write("Gen", types, meta.NewRegistry(fx.Module), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	// second write overwrites
	if _, err := Write("Gen", nil, meta.NewRegistry(fx.Module), path); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	mod, err := meta.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := ops(entry(t, mod, "Gen")); !slices.Equal(got, []meta.OpCode{meta.OpRet}) {
		t.Fatalf("ops = %v, want [ret]", got)
	}
}
