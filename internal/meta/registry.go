package meta

// Registry is a name-based lookup table over a set of loaded modules.
// It is built once and only read afterwards, so concurrent lookups are safe.
type Registry struct {
	modules []*Module
	types   map[string]*TypeDef
	methods map[*TypeDef]map[string]*MethodDef
}

// NewRegistry indexes every definition of mods. When two modules declare the
// same full name, the first one wins.
func NewRegistry(mods ...*Module) *Registry {
	r := &Registry{
		modules: mods,
		types:   make(map[string]*TypeDef, 256),
		methods: make(map[*TypeDef]map[string]*MethodDef, 256),
	}
	for _, m := range mods {
		if m == nil {
			continue
		}
		for _, t := range m.Definitions() {
			name := t.FullName()
			if _, dup := r.types[name]; dup {
				continue
			}
			r.types[name] = t
			sigs := make(map[string]*MethodDef, len(t.Methods))
			for _, meth := range t.Methods {
				key := signatureKey(meth.Name, len(meth.GenericParams), meth.Params)
				if _, dup := sigs[key]; !dup {
					sigs[key] = meth
				}
			}
			r.methods[t] = sigs
		}
	}
	return r
}

// Modules returns the modules the registry was built from.
func (r *Registry) Modules() []*Module { return r.modules }

// Type looks a definition up by full name.
func (r *Registry) Type(fullName string) (*TypeDef, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.types[fullName]
	return t, ok
}

// ResolveType returns the definition behind a definition or instance
// reference. Parameters and names outside the module set do not resolve.
func (r *Registry) ResolveType(ref *TypeRef) (*TypeDef, bool) {
	name := ref.DefinitionName()
	if name == "" {
		return nil, false
	}
	return r.Type(name)
}

// ResolveMethod returns the definition a call site refers to.
func (r *Registry) ResolveMethod(ref *MethodRef) (*MethodDef, bool) {
	if r == nil || ref == nil {
		return nil, false
	}
	t, ok := r.ResolveType(ref.DeclaringType)
	if !ok {
		return nil, false
	}
	m, ok := r.methods[t][signatureKey(ref.Name, ref.GenericArity, ref.Params)]
	return m, ok
}

// BaseType returns the base type of the definition named by ref with the
// arguments of ref substituted in, e.g. Derived<int> : Base<List<T>> gives
// Base<List<int>>. It reports false when ref does not resolve or the
// definition has no base type.
func (r *Registry) BaseType(ref *TypeRef) (*TypeRef, bool) {
	t, ok := r.ResolveType(ref)
	if !ok || t.BaseType == nil {
		return nil, false
	}
	if !ref.IsInstance() {
		return t.BaseType, true
	}
	return bindTypeArgs(t.BaseType, ref.Args), true
}

// bindTypeArgs replaces type-level parameters by position.
func bindTypeArgs(t *TypeRef, args []*TypeRef) *TypeRef {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindParameter:
		if t.Param == ParamType && t.Position < len(args) {
			return args[t.Position]
		}
		return t
	case KindInstance:
		out := &TypeRef{Kind: KindInstance, Name: t.Name, Args: make([]*TypeRef, len(t.Args))}
		for i, a := range t.Args {
			out.Args[i] = bindTypeArgs(a, args)
		}
		return out
	default:
		return t
	}
}
