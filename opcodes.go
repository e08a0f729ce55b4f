package kuroko

// OpCode is a single bytecode instruction tag (§4.3). The opcode byte
// itself doesn't encode its operand width; each opcode's width class is
// determined by which of the three groups below it belongs to. Naming
// follows the teacher's vm_instructions.go convention (one named
// constant per opcode), generalized from PEG match instructions to a
// general-purpose stack machine's instruction set.
type OpCode byte

const (
	// ---- No-operand opcodes ----
	OpReturn OpCode = iota
	OpRaise
	OpNot
	OpNegate
	OpInvert
	OpIs
	OpIsNot
	OpIn
	OpNotIn
	OpPop
	OpSwap
	OpDup0
	OpDocstring
	OpFinalize
	OpInherit
	OpCloseUpvalue
	OpCleanupWith
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNone
	OpTrue
	OpFalse
	OpYield
	OpGetIter
	OpGetSubscript
	OpSetSubscript
	OpDelSubscript
	OpInvokeIter

	// ---- One-byte-operand opcodes (those listed in opLongForm,
	// chunk_encode.go, have a _LONG sibling with a three-byte big-endian
	// operand, chosen by the compiler's constant emitter when the index
	// exceeds 255, §4.3; OpDup is encoded with no operand) ----
	OpConstant
	OpConstantLong
	OpGetLocal
	OpGetLocalLong
	OpSetLocal
	OpSetLocalLong
	OpGetUpvalue
	OpGetUpvalueLong
	OpSetUpvalue
	OpSetUpvalueLong
	OpGetGlobal
	OpGetGlobalLong
	OpSetGlobal
	OpSetGlobalLong
	OpDefineGlobal
	OpDefineGlobalLong
	OpDelGlobal
	OpDelGlobalLong
	OpGetProperty
	OpGetPropertyLong
	OpSetProperty
	OpSetPropertyLong
	OpDelProperty
	OpDelPropertyLong
	OpCall
	OpIncLocal
	OpExpandArgs
	OpKwargs
	OpTuple
	OpUnpack
	OpListLong
	OpList
	OpDup
	OpMethod
	OpMethodLong
	OpClosure
	OpClosureLong
	OpClass
	OpClassLong
	OpImport
	OpImportLong
	OpImportFrom
	OpImportFromLong
	OpSetProp2 // SET_PROPERTY variant used for @property
	OpCreateProperty
	OpStaticMethod

	// ---- Two-byte-operand jump opcodes ----
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfFalseNoPop
	OpJumpIfTrueNoPop
	OpLoop
	OpPushTry
	OpPushWith
)

// EXPAND_ARGS kinds (§4.4): tells CALL that the argument that follows
// should be splatted rather than passed as-is.
const (
	ExpandNone    = 0
	ExpandList    = 1
	ExpandMapping = 2
)

// constantLongThreshold is the largest constant-pool index (or local/
// upvalue slot, etc.) representable by the one-byte operand form (§4.3,
// §8 boundary behavior: "Constant index 255 uses short form; 256 uses
// long form").
const constantLongThreshold = 255
