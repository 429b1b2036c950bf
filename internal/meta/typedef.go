package meta

// TypeAttrs are the declaration flags of a type definition.
type TypeAttrs uint16

const (
	TypePublic TypeAttrs = 1 << iota
	TypeClass
	TypeValueType
	TypeInterface
	TypeAbstract
	TypeSealed
)

// ModuleTypeName is the placeholder type every module carries for
// module-level members.
const ModuleTypeName = "<Module>"

// TypeDef is a declared type. Nested types live inside their declaring type.
type TypeDef struct {
	Namespace     string       `msgpack:"ns,omitempty"`
	Name          string       `msgpack:"name"`
	Attrs         TypeAttrs    `msgpack:"attrs"`
	GenericParams []string     `msgpack:"gp,omitempty"`
	BaseType      *TypeRef     `msgpack:"base,omitempty"`
	Nested        []*TypeDef   `msgpack:"nested,omitempty"`
	Methods       []*MethodDef `msgpack:"methods,omitempty"`

	declaring *TypeDef
	module    *Module
}

// FullName is "Ns.Name" for top-level types and "Outer/Inner" for nested ones.
func (t *TypeDef) FullName() string {
	if t.declaring != nil {
		return t.declaring.FullName() + "/" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// DeclaringType returns the enclosing type of a nested type.
func (t *TypeDef) DeclaringType() *TypeDef { return t.declaring }

// Module returns the module owning t.
func (t *TypeDef) Module() *Module { return t.module }

func (t *TypeDef) HasGenericParameters() bool { return len(t.GenericParams) > 0 }

func (t *TypeDef) IsClass() bool { return t.Attrs&TypeClass != 0 }

func (t *TypeDef) IsValueType() bool { return t.Attrs&TypeValueType != 0 }

// SelfRef is the reference to t as seen from inside its own body: the
// definition applied to its own generic parameters.
func (t *TypeDef) SelfRef() *TypeRef {
	full := t.FullName()
	if !t.HasGenericParameters() {
		return Def(full)
	}
	args := make([]*TypeRef, len(t.GenericParams))
	for i, name := range t.GenericParams {
		args[i] = TypeParam(name, i, full)
	}
	return Inst(full, args...)
}

// Constructors returns the instance constructors of t.
func (t *TypeDef) Constructors() []*MethodDef {
	var out []*MethodDef
	for _, m := range t.Methods {
		if m.IsConstructor() {
			out = append(out, m)
		}
	}
	return out
}

// DefaultConstructor returns the parameterless instance constructor, if any.
func (t *TypeDef) DefaultConstructor() (*MethodDef, bool) {
	for _, m := range t.Constructors() {
		if len(m.Params) == 0 {
			return m, true
		}
	}
	return nil, false
}

// AddNested attaches n as a nested type of t.
func (t *TypeDef) AddNested(n *TypeDef) *TypeDef {
	n.declaring = t
	n.module = t.module
	t.Nested = append(t.Nested, n)
	for _, m := range n.Methods {
		m.declaring = n
	}
	return n
}

// AddMethod attaches m to t.
func (t *TypeDef) AddMethod(m *MethodDef) *MethodDef {
	m.declaring = t
	t.Methods = append(t.Methods, m)
	return m
}
