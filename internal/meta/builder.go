package meta

// NewClass returns a public class definition with the given generic parameters.
func NewClass(ns, name string, generic ...string) *TypeDef {
	return &TypeDef{Namespace: ns, Name: name, Attrs: TypePublic | TypeClass, GenericParams: generic}
}

// NewStruct returns a public value type definition.
func NewStruct(ns, name string, generic ...string) *TypeDef {
	return &TypeDef{Namespace: ns, Name: name, Attrs: TypePublic | TypeValueType | TypeSealed, GenericParams: generic}
}

// NewMethod returns a public method with an empty body.
func NewMethod(name string, attrs MethodAttrs, generic ...string) *MethodDef {
	return &MethodDef{
		Name:          name,
		Attrs:         attrs | MethodPublic,
		GenericParams: generic,
		Return:        Def(SystemVoid),
		Body:          &Body{},
	}
}

// NewConstructor returns a public instance constructor taking params.
func NewConstructor(params ...*TypeRef) *MethodDef {
	m := NewMethod(ConstructorName, MethodSpecialName)
	m.Params = params
	m.Body.Emit(OpRet)
	return m
}

// Param references the type-level generic parameter of t at pos.
func (t *TypeDef) Param(pos int) *TypeRef {
	return TypeParam(t.GenericParams[pos], pos, t.FullName())
}

// Param references the method-level generic parameter of m at pos.
func (m *MethodDef) Param(pos int) *TypeRef {
	return MethodParam(m.GenericParams[pos], pos, m.OwnerName())
}

// Core library names the emitter and tests refer to.
const (
	SystemObject = "System.Object"
	SystemVoid   = "System.Void"
	SystemString = "System.String"
	SystemInt32  = "System.Int32"
)
