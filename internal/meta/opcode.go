package meta

// OpCode identifies an instruction.
type OpCode uint8

const (
	OpNop OpCode = iota
	OpRet
	OpPop
	OpDup
	OpLdarg
	OpLdloc
	OpLdloca
	OpLdlocaS
	OpStloc
	OpLdnull
	OpLdcI4
	OpLdstr
	OpCall
	OpCallvirt
	OpNewobj
	OpInitobj
	OpConstrained
	OpLdtoken
	OpBox
	OpNewarr
	OpCastclass
	OpIsinst
	OpLdfld
	OpStfld
	OpBr

	opCount
)

var opNames = [opCount]string{
	OpNop:         "nop",
	OpRet:         "ret",
	OpPop:         "pop",
	OpDup:         "dup",
	OpLdarg:       "ldarg",
	OpLdloc:       "ldloc",
	OpLdloca:      "ldloca",
	OpLdlocaS:     "ldloca.s",
	OpStloc:       "stloc",
	OpLdnull:      "ldnull",
	OpLdcI4:       "ldc.i4",
	OpLdstr:       "ldstr",
	OpCall:        "call",
	OpCallvirt:    "callvirt",
	OpNewobj:      "newobj",
	OpInitobj:     "initobj",
	OpConstrained: "constrained.",
	OpLdtoken:     "ldtoken",
	OpBox:         "box",
	OpNewarr:      "newarr",
	OpCastclass:   "castclass",
	OpIsinst:      "isinst",
	OpLdfld:       "ldfld",
	OpStfld:       "stfld",
	OpBr:          "br",
}

func (op OpCode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "op?"
}

// Valid reports whether op is a known opcode.
func (op OpCode) Valid() bool { return op < opCount }

// IsCall reports whether op transfers control to a method operand.
func (op OpCode) IsCall() bool {
	switch op {
	case OpCall, OpCallvirt, OpNewobj:
		return true
	}
	return false
}
