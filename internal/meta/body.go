package meta

// Operand is the optional payload of an instruction. At most one field is set.
type Operand struct {
	Type   *TypeRef   `msgpack:"t,omitempty"`
	Method *MethodRef `msgpack:"m,omitempty"`
	Int    int64      `msgpack:"i,omitempty"`
	Str    string     `msgpack:"s,omitempty"`
}

// Instruction is a single opcode with its operand.
type Instruction struct {
	Op      OpCode  `msgpack:"op"`
	Operand Operand `msgpack:"arg"`
}

// TypeOperand returns the type operand, or nil.
func (in Instruction) TypeOperand() *TypeRef { return in.Operand.Type }

// MethodOperand returns the method operand, or nil.
func (in Instruction) MethodOperand() *MethodRef { return in.Operand.Method }

// Body is a method body: declared locals followed by the instruction stream.
type Body struct {
	Locals       []*TypeRef    `msgpack:"locals,omitempty"`
	Instructions []Instruction `msgpack:"code"`
}

// Emit appends an instruction without operand.
func (b *Body) Emit(op OpCode) {
	b.Instructions = append(b.Instructions, Instruction{Op: op})
}

// EmitType appends an instruction with a type operand.
func (b *Body) EmitType(op OpCode, t *TypeRef) {
	b.Instructions = append(b.Instructions, Instruction{Op: op, Operand: Operand{Type: t}})
}

// EmitMethod appends an instruction with a method operand.
func (b *Body) EmitMethod(op OpCode, m *MethodRef) {
	b.Instructions = append(b.Instructions, Instruction{Op: op, Operand: Operand{Method: m}})
}

// EmitInt appends an instruction with an integer operand.
func (b *Body) EmitInt(op OpCode, v int64) {
	b.Instructions = append(b.Instructions, Instruction{Op: op, Operand: Operand{Int: v}})
}

// EmitString appends an instruction with a string operand.
func (b *Body) EmitString(op OpCode, s string) {
	b.Instructions = append(b.Instructions, Instruction{Op: op, Operand: Operand{Str: s}})
}

// AddLocal declares a local of type t and returns its index.
func (b *Body) AddLocal(t *TypeRef) int {
	b.Locals = append(b.Locals, t)
	return len(b.Locals) - 1
}
