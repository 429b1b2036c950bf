package meta

import (
	"strconv"
	"strings"
)

// TypeKind discriminates the TypeRef variant.
type TypeKind uint8

const (
	// KindDefinition references a declared type by its full name.
	KindDefinition TypeKind = iota + 1
	// KindInstance is a generic definition applied to type arguments.
	KindInstance
	// KindParameter is an unbound generic parameter.
	KindParameter
)

func (k TypeKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindInstance:
		return "instance"
	case KindParameter:
		return "parameter"
	default:
		return "invalid"
	}
}

// ParamKind tells whether a generic parameter belongs to a type or a method.
type ParamKind uint8

const (
	// ParamType is declared by a generic type.
	ParamType ParamKind = iota + 1
	// ParamMethod is declared by a generic method.
	ParamMethod
)

func (k ParamKind) String() string {
	switch k {
	case ParamType:
		return "type"
	case ParamMethod:
		return "method"
	default:
		return "invalid"
	}
}

// TypeRef is a reference to a type as it appears in metadata.
//
// The zero value is invalid; use Def, Inst or Param to build one.
// TypeRefs are treated as immutable once built: substitution always
// produces a fresh tree and shares untouched subtrees.
type TypeRef struct {
	Kind TypeKind `msgpack:"k"`

	// Name is the definition full name for KindDefinition and KindInstance
	// and the declared parameter name for KindParameter.
	Name string `msgpack:"n"`

	Args []*TypeRef `msgpack:"a,omitempty"`

	Position int       `msgpack:"p,omitempty"`
	Param    ParamKind `msgpack:"m,omitempty"`
	// Owner is the full name of the generic type or method declaring the parameter.
	Owner string `msgpack:"o,omitempty"`
}

// Def references a declared type.
func Def(fullName string) *TypeRef {
	return &TypeRef{Kind: KindDefinition, Name: fullName}
}

// Inst applies args to the generic definition named fullName.
func Inst(fullName string, args ...*TypeRef) *TypeRef {
	return &TypeRef{Kind: KindInstance, Name: fullName, Args: args}
}

// TypeParam references the type-level generic parameter at pos declared by owner.
func TypeParam(name string, pos int, owner string) *TypeRef {
	return &TypeRef{Kind: KindParameter, Name: name, Position: pos, Param: ParamType, Owner: owner}
}

// MethodParam references the method-level generic parameter at pos declared by owner.
func MethodParam(name string, pos int, owner string) *TypeRef {
	return &TypeRef{Kind: KindParameter, Name: name, Position: pos, Param: ParamMethod, Owner: owner}
}

// IsInstance reports whether t is a generic instance.
func (t *TypeRef) IsInstance() bool { return t != nil && t.Kind == KindInstance }

// IsParameter reports whether t is a generic parameter.
func (t *TypeRef) IsParameter() bool { return t != nil && t.Kind == KindParameter }

// DefinitionName returns the name of the declared type t refers to, or ""
// for parameters.
func (t *TypeRef) DefinitionName() string {
	if t == nil || t.Kind == KindParameter {
		return ""
	}
	return t.Name
}

// ContainsGenericParameter reports whether t or any argument, transitively,
// is an unbound generic parameter.
func (t *TypeRef) ContainsGenericParameter() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindParameter:
		return true
	case KindInstance:
		for _, a := range t.Args {
			if a.ContainsGenericParameter() {
				return true
			}
		}
	}
	return false
}

// IsConcrete reports whether t is a valid reference with no unbound parameter.
func (t *TypeRef) IsConcrete() bool {
	return t != nil && t.Kind != 0 && !t.ContainsGenericParameter()
}

// FullName renders t the way it is compared and printed:
// "Ns.Box`1<System.Int32>" for instances, the parameter name for parameters.
func (t *TypeRef) FullName() string {
	var b strings.Builder
	t.write(&b, false)
	return b.String()
}

// Key is like FullName but qualifies parameters with their kind, position
// and owner, so two distinct parameters named "T" never collide.
func (t *TypeRef) Key() string {
	var b strings.Builder
	t.write(&b, true)
	return b.String()
}

func (t *TypeRef) write(b *strings.Builder, qualified bool) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case KindParameter:
		if !qualified {
			b.WriteString(t.Name)
			return
		}
		if t.Param == ParamMethod {
			b.WriteString("!!")
		} else {
			b.WriteString("!")
		}
		b.WriteString(strconv.Itoa(t.Position))
		b.WriteByte('@')
		b.WriteString(t.Owner)
	case KindInstance:
		b.WriteString(t.Name)
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			a.write(b, qualified)
		}
		b.WriteByte('>')
	default:
		b.WriteString(t.Name)
	}
}

func (t *TypeRef) String() string { return t.FullName() }

// Equal reports structural equality.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Key() == o.Key()
}

// Clone returns a deep copy of t.
func (t *TypeRef) Clone() *TypeRef {
	if t == nil {
		return nil
	}
	c := *t
	if len(t.Args) > 0 {
		c.Args = make([]*TypeRef, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}
