package meta

import "testing"

func TestContainsGenericParameter(t *testing.T) {
	tp := TypeParam("T", 0, "Ns.Box`1")
	cases := []struct {
		name string
		ref  *TypeRef
		want bool
	}{
		{"definition", Def(SystemInt32), false},
		{"parameter", tp, true},
		{"concrete instance", Inst("Ns.Box`1", Def(SystemInt32)), false},
		{"open instance", Inst("Ns.Box`1", tp), true},
		{"nested open", Inst("Ns.Box`1", Inst("Ns.List`1", tp)), true},
		{"nested concrete", Inst("Ns.Box`1", Inst("Ns.List`1", Def(SystemString))), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ref.ContainsGenericParameter(); got != tc.want {
				t.Fatalf("ContainsGenericParameter(%s) = %v, want %v", tc.ref, got, tc.want)
			}
			if got := tc.ref.IsConcrete(); got == tc.want {
				t.Fatalf("IsConcrete(%s) = %v, want %v", tc.ref, got, !tc.want)
			}
		})
	}
}

func TestFullNameAndKey(t *testing.T) {
	ref := Inst("Ns.Pair`2", Def(SystemInt32), MethodParam("U", 0, "Ns.C::M"))
	if got, want := ref.FullName(), "Ns.Pair`2<System.Int32,U>"; got != want {
		t.Fatalf("FullName = %q, want %q", got, want)
	}
	if got, want := ref.Key(), "Ns.Pair`2<System.Int32,!!0@Ns.C::M>"; got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}
}

func TestEqualDistinguishesParameterOwners(t *testing.T) {
	a := Inst("Ns.Box`1", TypeParam("T", 0, "Ns.A`1"))
	b := Inst("Ns.Box`1", TypeParam("T", 0, "Ns.B`1"))
	if a.Equal(b) {
		t.Fatalf("parameters with different owners must differ")
	}
	if !a.Equal(a.Clone()) {
		t.Fatalf("clone must be equal")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Inst("Ns.Box`1", Def(SystemInt32))
	c := orig.Clone()
	c.Args[0] = Def(SystemString)
	if orig.Args[0].Name != SystemInt32 {
		t.Fatalf("clone shares argument storage")
	}
}

func TestDefinitionsSkipModulePlaceholder(t *testing.T) {
	mod := NewModule("Core")
	outer := mod.AddType(NewClass("Ns", "Outer"))
	outer.AddNested(NewClass("", "Inner"))
	defs := mod.Definitions()
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if got, want := defs[1].FullName(), "Ns.Outer/Inner"; got != want {
		t.Fatalf("nested full name = %q, want %q", got, want)
	}
}
