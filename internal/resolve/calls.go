package resolve

import (
	"fmt"

	"concretize/internal/meta"
)

// CallReference says that the generic instance Type appears inside the
// body of EntryMethod, written in terms of EntryMethod's generic context.
type CallReference struct {
	Type        *meta.TypeRef
	EntryMethod *meta.MethodDef
}

type callKey struct {
	typ    string
	method *meta.MethodDef
}

func (c CallReference) key() callKey {
	return callKey{typ: c.Type.Key(), method: c.EntryMethod}
}

// Equal reports structural equality: same type and same entry method.
func (c CallReference) Equal(o CallReference) bool {
	return c.key() == o.key()
}

func (c CallReference) String() string {
	entry := "<nil>"
	if c.EntryMethod != nil {
		entry = c.EntryMethod.OwnerName()
	}
	return fmt.Sprintf("%s with entry %s", c.Type.FullName(), entry)
}

// Predicate selects the generic instances worth resolving.
type Predicate func(*meta.TypeRef) bool

// SeedNames matches instances of the named generic definitions.
func SeedNames(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(t *meta.TypeRef) bool {
		_, ok := set[t.DefinitionName()]
		return ok
	}
}

// CollectCalls finds, in every method with a body whose method or declaring
// type is generic, the generic instances selected by pred: type operands
// and types constructed through newobj. Duplicates are dropped, first
// occurrence first.
func CollectCalls(defs []*meta.TypeDef, pred Predicate) []CallReference {
	var out []CallReference
	seen := make(map[callKey]struct{})
	add := func(t *meta.TypeRef, m *meta.MethodDef) {
		if !t.IsInstance() || !pred(t) {
			return
		}
		c := CallReference{Type: t, EntryMethod: m}
		k := c.key()
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	for _, t := range defs {
		for _, m := range t.Methods {
			if m.Body == nil || !(m.HasGenericParameters() || t.HasGenericParameters()) {
				continue
			}
			for _, in := range m.Body.Instructions {
				if op := in.TypeOperand(); op != nil {
					add(op, m)
				}
				if mr := in.MethodOperand(); mr != nil && in.Op == meta.OpNewobj {
					add(mr.DeclaringType, m)
				}
			}
		}
	}
	return out
}
