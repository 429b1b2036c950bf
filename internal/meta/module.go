package meta

import "strings"

// Module is a compiled unit: a named set of type definitions with their
// methods and bodies. A module owns every definition reachable from Types.
type Module struct {
	Name    string     `msgpack:"name"`
	Version string     `msgpack:"version,omitempty"`
	Types   []*TypeDef `msgpack:"types"`

	path string
}

// NewModule returns an empty module carrying the placeholder module type.
func NewModule(name string) *Module {
	m := &Module{Name: name, Version: "1.0.0.0"}
	m.AddType(&TypeDef{Name: ModuleTypeName})
	return m
}

// Path returns the file the module was loaded from, if any.
func (m *Module) Path() string { return m.path }

// AddType attaches a top-level type definition and links its members.
func (m *Module) AddType(t *TypeDef) *TypeDef {
	m.Types = append(m.Types, t)
	linkType(m, nil, t)
	return t
}

// Definitions returns every type definition, nested ones included, in
// declaration order. The placeholder module type is left out unless it is
// a compiler-generated anonymous type.
func (m *Module) Definitions() []*TypeDef {
	out := make([]*TypeDef, 0, len(m.Types))
	var walk func(t *TypeDef)
	walk = func(t *TypeDef) {
		if t.Name != ModuleTypeName || strings.Contains(t.Name, "AnonymousType") {
			out = append(out, t)
		}
		for _, n := range t.Nested {
			walk(n)
		}
	}
	for _, t := range m.Types {
		walk(t)
	}
	return out
}

// Methods returns the methods of every definition in Definitions order.
func (m *Module) Methods() []*MethodDef {
	var out []*MethodDef
	for _, t := range m.Definitions() {
		out = append(out, t.Methods...)
	}
	return out
}

// link restores the parent pointers that are not part of the wire format.
func (m *Module) link() {
	for _, t := range m.Types {
		linkType(m, nil, t)
	}
}

func linkType(m *Module, declaring, t *TypeDef) {
	t.module = m
	t.declaring = declaring
	for _, meth := range t.Methods {
		meth.declaring = t
	}
	for _, n := range t.Nested {
		linkType(m, t, n)
	}
}
