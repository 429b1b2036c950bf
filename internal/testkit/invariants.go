package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"concretize/internal/meta"
)

// CheckModuleInvariants runs a minimal set of structural checks on a module:
// 1) every definition and method links back to its owner
// 2) every body is non-empty, ends with ret and uses known opcodes
// 3) generic parameter counts and local indices fit the encoded widths
func CheckModuleInvariants(mod *meta.Module) error {
	if mod == nil {
		return fmt.Errorf("nil module")
	}
	for _, t := range mod.Definitions() {
		if t.Module() != mod {
			return fmt.Errorf("%s: module link broken", t.FullName())
		}
		if _, err := safecast.Conv[uint16](len(t.GenericParams)); err != nil {
			return fmt.Errorf("%s: generic parameter count: %w", t.FullName(), err)
		}
		for _, m := range t.Methods {
			if m.DeclaringType() != t {
				return fmt.Errorf("%s: declaring link broken", m.OwnerName())
			}
			if err := checkBody(m); err != nil {
				return fmt.Errorf("%s: %w", m.OwnerName(), err)
			}
		}
	}
	return nil
}

func checkBody(m *meta.MethodDef) error {
	if m.Body == nil {
		return nil
	}
	code := m.Body.Instructions
	if len(code) == 0 {
		return fmt.Errorf("empty body")
	}
	if last := code[len(code)-1].Op; last != meta.OpRet {
		return fmt.Errorf("body ends with %s, want ret", last)
	}
	for i, in := range code {
		if !in.Op.Valid() {
			return fmt.Errorf("instruction %d: unknown opcode %d", i, in.Op)
		}
		switch in.Op {
		case meta.OpLdlocaS:
			if _, err := safecast.Conv[uint8](in.Operand.Int); err != nil {
				return fmt.Errorf("instruction %d: short local index: %w", i, err)
			}
			fallthrough
		case meta.OpLdloca, meta.OpLdloc, meta.OpStloc:
			if in.Operand.Int < 0 || in.Operand.Int >= int64(len(m.Body.Locals)) {
				return fmt.Errorf("instruction %d: local %d out of range", i, in.Operand.Int)
			}
		}
		if in.Op.IsCall() && in.MethodOperand() == nil {
			return fmt.Errorf("instruction %d: %s without method operand", i, in.Op)
		}
	}
	return nil
}
