// Package emit builds the synthetic module that references every resolved
// instantiation, so ahead-of-time compilers see each one used.
package emit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"concretize/internal/meta"
)

// Build returns a module named name holding one public class name.name with
// one public static method name. The method touches every type of types in
// order: through its parameterless constructor when reg knows one, through a
// default-initialized local otherwise.
func Build(name string, types []*meta.TypeRef, reg *meta.Registry) (*meta.Module, error) {
	if name == "" {
		return nil, errors.New("emit: empty module name")
	}
	mod := meta.NewModule(name)
	cls := mod.AddType(meta.NewClass(name, name))
	cls.BaseType = meta.Def(meta.SystemObject)
	cls.AddMethod(meta.NewConstructor())

	m := cls.AddMethod(meta.NewMethod(name, meta.MethodStatic))
	m.Attributes = append(m.Attributes, meta.PreserveAttribute)
	for i, t := range types {
		if !t.IsConcrete() {
			return nil, fmt.Errorf("emit: type %d (%s) is not concrete", i, t.Key())
		}
		touch(m.Body, t, reg)
	}
	m.Body.Emit(meta.OpRet)
	return mod, nil
}

// Write builds the module and saves it to path, replacing any previous file.
func Write(name string, types []*meta.TypeRef, reg *meta.Registry, path string) (*meta.Module, error) {
	mod, err := Build(name, types, reg)
	if err != nil {
		return nil, err
	}
	if err := meta.SaveFile(path, mod); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return mod, nil
}

func touch(body *meta.Body, t *meta.TypeRef, reg *meta.Registry) {
	body.Emit(meta.OpNop)
	if ctor, ok := constructorRef(t, reg); ok {
		body.EmitMethod(meta.OpNewobj, ctor)
	} else {
		defaultInit(body, t)
	}
	body.Emit(meta.OpPop)
}

// constructorRef references the parameterless constructor of t's definition
// instantiated with t's arguments.
func constructorRef(t *meta.TypeRef, reg *meta.Registry) (*meta.MethodRef, bool) {
	def, ok := reg.ResolveType(t)
	if !ok {
		return nil, false
	}
	ctor, ok := def.DefaultConstructor()
	if !ok {
		return nil, false
	}
	ref, err := meta.MakeGenericMethod(ctor, t.Args)
	if err != nil {
		return nil, false
	}
	return ref, true
}

// defaultInit leaves the result of ToString on a default-initialized local
// of type t on the stack.
func defaultInit(body *meta.Body, t *meta.TypeRef) {
	idx := body.AddLocal(t)
	if short, err := safecast.Conv[uint8](idx); err == nil {
		body.EmitInt(meta.OpLdlocaS, int64(short))
	} else {
		body.EmitInt(meta.OpLdloca, int64(idx))
	}
	body.Emit(meta.OpDup)
	body.EmitType(meta.OpInitobj, t)
	body.EmitType(meta.OpConstrained, t)
	body.EmitMethod(meta.OpCallvirt, toString())
}

func toString() *meta.MethodRef {
	return &meta.MethodRef{
		Name:          "ToString",
		DeclaringType: meta.Def(meta.SystemObject),
		Return:        meta.Def(meta.SystemString),
		HasThis:       true,
	}
}
