package resolve

import "concretize/internal/meta"

// Bindings is the argument list visible at a call site, flattened: the
// declaring type's arguments first, then the method's type arguments.
// TypeArity is the number of declaring type arguments, i.e. the offset at
// which method-level parameters start.
type Bindings struct {
	Args      []*meta.TypeRef
	TypeArity int
}

// SiteBindings returns the bindings a call through ref supplies to the
// callee's generic parameters.
func SiteBindings(ref *meta.MethodRef) Bindings {
	if ref == nil {
		return Bindings{}
	}
	var b Bindings
	if ref.DeclaringType.IsInstance() {
		b.Args = append(b.Args, ref.DeclaringType.Args...)
		b.TypeArity = len(ref.DeclaringType.Args)
	}
	b.Args = append(b.Args, ref.TypeArgs...)
	return b
}

// TypeBindings binds only type-level parameters, to args.
func TypeBindings(args []*meta.TypeRef) Bindings {
	return Bindings{Args: args, TypeArity: len(args)}
}

// Lookup returns the argument bound to parameter p. Type parameters index
// the declaring type arguments; method parameters index past them.
func (b Bindings) Lookup(p *meta.TypeRef) (*meta.TypeRef, bool) {
	if !p.IsParameter() || p.Position < 0 {
		return nil, false
	}
	switch p.Param {
	case meta.ParamType:
		if p.Position >= b.TypeArity || p.Position >= len(b.Args) {
			return nil, false
		}
		return b.Args[p.Position], true
	case meta.ParamMethod:
		idx := b.TypeArity + p.Position
		if idx >= len(b.Args) {
			return nil, false
		}
		return b.Args[idx], true
	}
	return nil, false
}

// Apply substitutes every generic parameter of t. It reports false when any
// parameter has no binding; no partially substituted type is returned then.
// Subtrees without parameters are shared with t.
func (b Bindings) Apply(t *meta.TypeRef) (*meta.TypeRef, bool) {
	if t == nil {
		return nil, false
	}
	switch t.Kind {
	case meta.KindParameter:
		return b.Lookup(t)
	case meta.KindInstance:
		var args []*meta.TypeRef
		for i, a := range t.Args {
			r, ok := b.Apply(a)
			if !ok {
				return nil, false
			}
			if r != a && args == nil {
				args = make([]*meta.TypeRef, len(t.Args))
				copy(args, t.Args[:i])
			}
			if args != nil {
				args[i] = r
			}
		}
		if args == nil {
			return t, true
		}
		return &meta.TypeRef{Kind: meta.KindInstance, Name: t.Name, Args: args}, true
	default:
		return t, true
	}
}
