package meta

import (
	"slices"
	"strconv"
	"strings"
)

// MethodAttrs are the declaration flags of a method definition.
type MethodAttrs uint16

const (
	MethodPublic MethodAttrs = 1 << iota
	MethodStatic
	MethodVirtual
	MethodAbstract
	MethodSpecialName
)

// ConstructorName is the name every instance constructor carries.
const ConstructorName = ".ctor"

// PreserveAttribute marks a member that stripping tools must keep.
const PreserveAttribute = "UnityEngine.Scripting.PreserveAttribute"

// MethodDef is a declared method with an optional body.
type MethodDef struct {
	Name          string      `msgpack:"name"`
	Attrs         MethodAttrs `msgpack:"attrs"`
	GenericParams []string    `msgpack:"gp,omitempty"`
	Params        []*TypeRef  `msgpack:"params,omitempty"`
	Return        *TypeRef    `msgpack:"ret,omitempty"`
	Attributes    []string    `msgpack:"cattrs,omitempty"`
	Body          *Body       `msgpack:"body,omitempty"`

	declaring *TypeDef
}

// DeclaringType returns the type declaring m.
func (m *MethodDef) DeclaringType() *TypeDef { return m.declaring }

func (m *MethodDef) HasGenericParameters() bool { return len(m.GenericParams) > 0 }

func (m *MethodDef) IsStatic() bool { return m.Attrs&MethodStatic != 0 }

func (m *MethodDef) IsPublic() bool { return m.Attrs&MethodPublic != 0 }

// IsConstructor reports whether m is an instance constructor.
func (m *MethodDef) IsConstructor() bool {
	return m.Name == ConstructorName && !m.IsStatic()
}

// HasAttribute reports whether m carries the named custom attribute.
func (m *MethodDef) HasAttribute(name string) bool {
	return slices.Contains(m.Attributes, name)
}

// OwnerName is the name method-level generic parameters use as their owner.
func (m *MethodDef) OwnerName() string {
	if m.declaring == nil {
		return "::" + m.Name
	}
	return m.declaring.FullName() + "::" + m.Name
}

// FullName renders "Ret Decl::Name<T>(P1,P2)".
func (m *MethodDef) FullName() string {
	var b strings.Builder
	if m.Return != nil {
		b.WriteString(m.Return.FullName())
		b.WriteByte(' ')
	}
	b.WriteString(m.OwnerName())
	if len(m.GenericParams) > 0 {
		b.WriteByte('<')
		b.WriteString(strings.Join(m.GenericParams, ","))
		b.WriteByte('>')
	}
	writeParams(&b, m.Params)
	return b.String()
}

func (m *MethodDef) String() string { return m.FullName() }

// Ref builds the reference a call site inside the declaring type would use.
func (m *MethodDef) Ref() *MethodRef {
	var decl *TypeRef
	if m.declaring != nil {
		decl = m.declaring.SelfRef()
	}
	return &MethodRef{
		Name:          m.Name,
		DeclaringType: decl,
		Params:        m.Params,
		Return:        m.Return,
		HasThis:       !m.IsStatic(),
		GenericArity:  len(m.GenericParams),
	}
}

// MethodRef references a method from a call site.
//
// Params and Return are written in terms of the referenced definition's own
// generic parameters, as in the method signature blob. DeclaringType and
// TypeArgs carry the arguments visible at the call site.
type MethodRef struct {
	Name          string     `msgpack:"name"`
	DeclaringType *TypeRef   `msgpack:"decl"`
	Params        []*TypeRef `msgpack:"params,omitempty"`
	Return        *TypeRef   `msgpack:"ret,omitempty"`
	HasThis       bool       `msgpack:"this,omitempty"`
	GenericArity  int        `msgpack:"arity,omitempty"`
	TypeArgs      []*TypeRef `msgpack:"targs,omitempty"`
}

// IsGenericInstance reports whether the reference supplies method type arguments.
func (r *MethodRef) IsGenericInstance() bool { return r != nil && len(r.TypeArgs) > 0 }

// FullName renders "Ret Decl::Name<Args>(P1,P2)".
func (r *MethodRef) FullName() string {
	if r == nil {
		return "<nil>"
	}
	var b strings.Builder
	if r.Return != nil {
		b.WriteString(r.Return.FullName())
		b.WriteByte(' ')
	}
	if r.DeclaringType != nil {
		b.WriteString(r.DeclaringType.FullName())
	}
	b.WriteString("::")
	b.WriteString(r.Name)
	if len(r.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, a := range r.TypeArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.FullName())
		}
		b.WriteByte('>')
	}
	writeParams(&b, r.Params)
	return b.String()
}

func (r *MethodRef) String() string { return r.FullName() }

func writeParams(b *strings.Builder, params []*TypeRef) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.FullName())
	}
	b.WriteByte(')')
}

// signatureKey identifies a method within its declaring type. Parameters are
// rendered positionally so a reference written against a generic
// definition matches the definition regardless of parameter owners.
func signatureKey(name string, arity int, params []*TypeRef) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('`')
	b.WriteString(strconv.Itoa(arity))
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		writeSigType(&b, p)
	}
	b.WriteByte(')')
	return b.String()
}

func writeSigType(b *strings.Builder, t *TypeRef) {
	if t == nil {
		return
	}
	switch t.Kind {
	case KindParameter:
		if t.Param == ParamMethod {
			b.WriteString("!!")
		} else {
			b.WriteByte('!')
		}
		b.WriteString(strconv.Itoa(t.Position))
	case KindInstance:
		b.WriteString(t.Name)
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeSigType(b, a)
		}
		b.WriteByte('>')
	default:
		b.WriteString(t.Name)
	}
}
