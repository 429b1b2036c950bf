package meta

import (
	"fmt"
	"io"
	"strings"
)

// DumpOptions configures the module listing.
type DumpOptions struct {
	// Bodies includes instruction listings.
	Bodies bool
}

// Dump writes a text listing of m.
func Dump(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "module %s %s\n", m.Name, m.Version); err != nil {
		return err
	}
	for _, t := range m.Definitions() {
		if err := dumpType(w, t, opts); err != nil {
			return err
		}
	}
	return nil
}

func dumpType(w io.Writer, t *TypeDef, opts DumpOptions) error {
	var b strings.Builder
	b.WriteString(typeKeyword(t))
	b.WriteByte(' ')
	b.WriteString(t.FullName())
	if len(t.GenericParams) > 0 {
		b.WriteByte('<')
		b.WriteString(strings.Join(t.GenericParams, ","))
		b.WriteByte('>')
	}
	if t.BaseType != nil {
		b.WriteString(" : ")
		b.WriteString(t.BaseType.FullName())
	}
	if _, err := fmt.Fprintln(w, b.String()); err != nil {
		return err
	}
	for _, m := range t.Methods {
		prefix := "  "
		if m.IsStatic() {
			prefix += "static "
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, m.FullName()); err != nil {
			return err
		}
		if !opts.Bodies || m.Body == nil {
			continue
		}
		if err := dumpBody(w, m.Body); err != nil {
			return err
		}
	}
	return nil
}

func dumpBody(w io.Writer, body *Body) error {
	for i, l := range body.Locals {
		if _, err := fmt.Fprintf(w, "    .local [%d] %s\n", i, l.FullName()); err != nil {
			return err
		}
	}
	for i, in := range body.Instructions {
		if _, err := fmt.Fprintf(w, "    IL_%04x: %s\n", i, FormatInstruction(in)); err != nil {
			return err
		}
	}
	return nil
}

// FormatInstruction renders an instruction as "opcode operand".
func FormatInstruction(in Instruction) string {
	switch {
	case in.Operand.Method != nil:
		return in.Op.String() + " " + in.Operand.Method.FullName()
	case in.Operand.Type != nil:
		return in.Op.String() + " " + in.Operand.Type.FullName()
	case in.Operand.Str != "":
		return fmt.Sprintf("%s %q", in.Op, in.Operand.Str)
	case in.Op == OpLdcI4 || in.Op == OpLdloc || in.Op == OpStloc || in.Op == OpLdloca ||
		in.Op == OpLdlocaS || in.Op == OpLdarg || in.Op == OpBr:
		return fmt.Sprintf("%s %d", in.Op, in.Operand.Int)
	default:
		return in.Op.String()
	}
}

func typeKeyword(t *TypeDef) string {
	switch {
	case t.Attrs&TypeInterface != 0:
		return "interface"
	case t.IsValueType():
		return "struct"
	default:
		return "class"
	}
}
