package meta

import (
	"errors"
	"fmt"
)

// ErrArity reports a generic definition applied to the wrong number of arguments.
var ErrArity = errors.New("generic arity mismatch")

// MakeGenericType applies args to t. A non-generic definition accepts no
// arguments and yields a plain definition reference.
func MakeGenericType(t *TypeDef, args []*TypeRef) (*TypeRef, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrArity)
	}
	if len(t.GenericParams) != len(args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArity, t.FullName(), len(t.GenericParams), len(args))
	}
	if len(args) == 0 {
		return Def(t.FullName()), nil
	}
	return Inst(t.FullName(), args...), nil
}

// MakeGenericMethod references m on its declaring type instantiated with args.
// The signature stays written against the definition, as call sites store it.
func MakeGenericMethod(m *MethodDef, args []*TypeRef) (*MethodRef, error) {
	if m == nil || m.declaring == nil {
		return nil, fmt.Errorf("%w: detached method", ErrArity)
	}
	decl, err := MakeGenericType(m.declaring, args)
	if err != nil {
		return nil, err
	}
	return &MethodRef{
		Name:          m.Name,
		DeclaringType: decl,
		Params:        m.Params,
		Return:        m.Return,
		HasThis:       !m.IsStatic(),
		GenericArity:  len(m.GenericParams),
	}, nil
}
