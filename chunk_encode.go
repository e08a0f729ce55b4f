package kuroko

// opWidth classifies an opcode's operand encoding (§4.3's three width
// classes). Grounded on the teacher's vm_encoder.go (encodeU16/
// encodeJmp helpers writing fixed-width operands via encoding/binary),
// widened here to the big-endian 3-byte long form the spec requires.
type opWidth int

const (
	widthNone opWidth = iota
	widthByte
	widthByteLong
	widthJump
)

var opNoOperand = map[OpCode]bool{
	OpReturn: true, OpRaise: true, OpNot: true, OpNegate: true, OpInvert: true,
	OpIs: true, OpIsNot: true, OpIn: true, OpNotIn: true, OpPop: true, OpSwap: true,
	OpDup0: true, OpDocstring: true, OpFinalize: true, OpInherit: true,
	OpCloseUpvalue: true, OpCleanupWith: true, OpAdd: true, OpSub: true, OpMul: true,
	OpDiv: true, OpFloorDiv: true, OpMod: true, OpPow: true, OpBitAnd: true, OpBitOr: true,
	OpBitXor: true, OpShl: true, OpShr: true, OpEq: true, OpNe: true, OpLt: true,
	OpLe: true, OpGt: true, OpGe: true, OpNone: true, OpTrue: true, OpFalse: true,
	OpYield: true, OpGetIter: true, OpGetSubscript: true, OpSetSubscript: true,
	OpDelSubscript: true, OpInvokeIter: true, OpDup: true,
}

var opLongForm = map[OpCode]OpCode{
	OpConstant:     OpConstantLong,
	OpGetLocal:     OpGetLocalLong,
	OpSetLocal:     OpSetLocalLong,
	OpGetUpvalue:   OpGetUpvalueLong,
	OpSetUpvalue:   OpSetUpvalueLong,
	OpGetGlobal:    OpGetGlobalLong,
	OpSetGlobal:    OpSetGlobalLong,
	OpDefineGlobal: OpDefineGlobalLong,
	OpDelGlobal:    OpDelGlobalLong,
	OpGetProperty:  OpGetPropertyLong,
	OpSetProperty:  OpSetPropertyLong,
	OpDelProperty:  OpDelPropertyLong,
	OpMethod:       OpMethodLong,
	OpClosure:      OpClosureLong,
	OpClass:        OpClassLong,
	OpImport:       OpImportLong,
	OpImportFrom:   OpImportFromLong,
	OpList:         OpListLong,
}

var opJump = map[OpCode]bool{
	OpJump: true, OpJumpIfFalse: true, OpJumpIfTrue: true, OpJumpIfFalseNoPop: true,
	OpJumpIfTrueNoPop: true, OpLoop: true, OpPushTry: true, OpPushWith: true,
}

func opInfo(op OpCode) (name string, width opWidth) {
	if n, ok := opNames[op]; ok {
		name = n
	} else {
		name = "UNKNOWN"
	}
	switch {
	case opNoOperand[op]:
		return name, widthNone
	case opJump[op]:
		return name, widthJump
	default:
		for short, long := range opLongForm {
			if op == long {
				return name, widthByteLong
			}
			_ = short
		}
		return name, widthByte
	}
}

// emitIndexed appends the operand for a constant/local/upvalue/
// property-name/argcount style opcode, choosing the one-byte short
// form when idx <= 255 and the opcode's _LONG sibling with a 3-byte
// big-endian operand otherwise (§4.3, §8 "Constant index 255 uses
// short form; 256 uses long form").
func (c *Chunk) emitIndexed(shortOp OpCode, idx int, line int) {
	if idx <= constantLongThreshold {
		c.WriteOp(shortOp, line)
		c.WriteByte(byte(idx), line)
		return
	}
	longOp, ok := opLongForm[shortOp]
	if !ok {
		longOp = shortOp
	}
	c.WriteOp(longOp, line)
	c.WriteByte(byte(idx>>16), line)
	c.WriteByte(byte(idx>>8), line)
	c.WriteByte(byte(idx), line)
}

// emitJump appends a two-byte-operand jump opcode with a placeholder
// target, returning the offset of the operand's first byte so the
// caller can patch it later via patchJump.
func (c *Chunk) emitJump(op OpCode, line int) int {
	c.WriteOp(op, line)
	at := c.Len()
	c.WriteByte(0xff, line)
	c.WriteByte(0xff, line)
	return at
}

// patchJump backfills a two-byte jump operand with the distance from
// just after the operand to the chunk's current end (a forward jump).
func (c *Chunk) patchJump(operandOffset int) {
	jump := c.Len() - (operandOffset + 2)
	c.Code[operandOffset] = byte(jump >> 8)
	c.Code[operandOffset+1] = byte(jump)
}

// emitLoop appends OP_LOOP with a backward-jump operand to loopStart.
func (c *Chunk) emitLoop(loopStart int, line int) {
	c.WriteOp(OpLoop, line)
	offset := c.Len() - loopStart + 2
	c.WriteByte(byte(offset>>8), line)
	c.WriteByte(byte(offset), line)
}

var opNames = map[OpCode]string{
	OpReturn: "RETURN", OpRaise: "RAISE", OpNot: "NOT", OpNegate: "NEGATE",
	OpInvert: "INVERT", OpIs: "IS", OpIsNot: "IS_NOT", OpIn: "IN", OpNotIn: "NOT_IN",
	OpPop: "POP", OpSwap: "SWAP", OpDup0: "DUP0", OpDocstring: "DOCSTRING",
	OpFinalize: "FINALIZE", OpInherit: "INHERIT", OpCloseUpvalue: "CLOSE_UPVALUE",
	OpCleanupWith: "CLEANUP_WITH", OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV",
	OpFloorDiv: "FLOORDIV", OpMod: "MOD", OpPow: "POW", OpBitAnd: "BIT_AND",
	OpBitOr: "BIT_OR", OpBitXor: "BIT_XOR", OpShl: "SHL", OpShr: "SHR",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpNone: "NONE", OpTrue: "TRUE", OpFalse: "FALSE", OpYield: "YIELD",
	OpGetIter: "GET_ITER", OpGetSubscript: "GET_SUBSCRIPT", OpSetSubscript: "SET_SUBSCRIPT",
	OpDelSubscript: "DEL_SUBSCRIPT", OpInvokeIter: "INVOKE_ITER",
	OpConstant: "CONSTANT", OpConstantLong: "CONSTANT_LONG",
	OpGetLocal: "GET_LOCAL", OpGetLocalLong: "GET_LOCAL_LONG",
	OpSetLocal: "SET_LOCAL", OpSetLocalLong: "SET_LOCAL_LONG",
	OpGetUpvalue: "GET_UPVALUE", OpGetUpvalueLong: "GET_UPVALUE_LONG",
	OpSetUpvalue: "SET_UPVALUE", OpSetUpvalueLong: "SET_UPVALUE_LONG",
	OpGetGlobal: "GET_GLOBAL", OpGetGlobalLong: "GET_GLOBAL_LONG",
	OpSetGlobal: "SET_GLOBAL", OpSetGlobalLong: "SET_GLOBAL_LONG",
	OpDefineGlobal: "DEFINE_GLOBAL", OpDefineGlobalLong: "DEFINE_GLOBAL_LONG",
	OpDelGlobal: "DEL_GLOBAL", OpDelGlobalLong: "DEL_GLOBAL_LONG",
	OpGetProperty: "GET_PROPERTY", OpGetPropertyLong: "GET_PROPERTY_LONG",
	OpSetProperty: "SET_PROPERTY", OpSetPropertyLong: "SET_PROPERTY_LONG",
	OpDelProperty: "DEL_PROPERTY", OpDelPropertyLong: "DEL_PROPERTY_LONG",
	OpCall: "CALL", OpIncLocal: "INC", OpExpandArgs: "EXPAND_ARGS", OpKwargs: "KWARGS",
	OpTuple: "TUPLE", OpUnpack: "UNPACK", OpList: "LIST", OpListLong: "LIST_LONG",
	OpDup: "DUP", OpMethod: "METHOD", OpMethodLong: "METHOD_LONG",
	OpClosure: "CLOSURE", OpClosureLong: "CLOSURE_LONG",
	OpClass: "CLASS", OpClassLong: "CLASS_LONG",
	OpImport: "IMPORT", OpImportLong: "IMPORT_LONG",
	OpImportFrom: "IMPORT_FROM", OpImportFromLong: "IMPORT_FROM_LONG",
	OpSetProp2: "SET_PROPERTY2", OpCreateProperty: "CREATE_PROPERTY",
	OpStaticMethod: "SET_STATIC",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpJumpIfFalseNoPop: "JUMP_IF_FALSE_NP", OpJumpIfTrueNoPop: "JUMP_IF_TRUE_NP",
	OpLoop: "LOOP", OpPushTry: "PUSH_TRY", OpPushWith: "PUSH_WITH",
}
