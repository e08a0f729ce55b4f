package kuroko

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Chunk holds a compiled function's bytecode, constant pool, and line
// map (§4.3). Grounded on the teacher's vm_program.go Program (code
// array + string/constant pool + pretty-printer) but changed from an
// Instruction-interface-per-opcode design to a packed byte buffer: the
// spec requires raw opcode bytes with explicit short/`_LONG` operand
// forms (§4.3), which the teacher's typed-instruction-object design has
// no equivalent for.
type Chunk struct {
	Name      string
	Code      []byte
	Constants []Value
	lines     lineMap
	constIdx  map[Value]int // allocated but not read; AddConstant de-dups by a linear scan
}

func NewChunk(name string) *Chunk {
	return &Chunk{Name: name, constIdx: make(map[Value]int)}
}

// AddConstant interns v into the constant pool, returning its index.
// Re-adding an identical constant (by Equals) returns the existing
// index so constant pools stay compact — mirrors the teacher's
// Program.strings/stringsMap de-duplication in vm_program.go.
func (c *Chunk) AddConstant(v Value) int {
	for i, existing := range c.Constants {
		if existing.Kind() == v.Kind() && existing.Equals(v) {
			return i
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// WriteByte appends a raw byte at the given source line, recording the
// line-map entry via linemap.go's coalescing append.
func (c *Chunk) WriteByte(b byte, line int) int {
	offset := len(c.Code)
	c.Code = append(c.Code, b)
	c.lines.record(offset, line)
	return offset
}

func (c *Chunk) WriteOp(op OpCode, line int) int { return c.WriteByte(byte(op), line) }

// Len reports the number of emitted bytes so far — used by the
// compiler to compute jump-patch targets.
func (c *Chunk) Len() int { return len(c.Code) }

// PatchByte overwrites a single previously emitted byte (used for
// backpatching jump targets).
func (c *Chunk) PatchByte(offset int, b byte) { c.Code[offset] = b }

// LineAt looks up the source line for a byte offset by binary search
// (§6 "Line map": "lookup by binary-searching the largest offset ≤
// target").
func (c *Chunk) LineAt(offset int) int { return c.lines.lookup(offset) }

// soleConstantPush reports whether Code[start:end] is exactly one
// CONSTANT/CONSTANT_LONG instruction, returning the constant it pushes.
// Used by the compiler's constant-folding pass (compiler.go) to check
// that an already-emitted operand span is a bare literal and nothing
// else — a variable load, a folded sub-expression ending in an
// arithmetic opcode, or any multi-instruction span all correctly report
// false here.
func (c *Chunk) soleConstantPush(start, end int) (Value, bool) {
	n := end - start
	if n < 2 {
		return Value{}, false
	}
	switch OpCode(c.Code[start]) {
	case OpConstant:
		if n != 2 {
			return Value{}, false
		}
		return c.Constants[c.Code[start+1]], true
	case OpConstantLong:
		if n != 4 {
			return Value{}, false
		}
		idx := int(c.Code[start+1])<<16 | int(c.Code[start+2])<<8 | int(c.Code[start+3])
		return c.Constants[idx], true
	default:
		return Value{}, false
	}
}

// Disassemble renders the whole chunk as a column listing, grounded on
// the teacher's vm_program.go prettyString; colorized via
// github.com/fatih/color (see disasm.go for the shared theme), gated by
// whether the caller asked for color.
func (c *Chunk) Disassemble(colorize bool) string {
	var s strings.Builder
	fmt.Fprintf(&s, "== %s ==\n", c.Name)
	offset := 0
	for offset < len(c.Code) {
		offset = c.disassembleInstruction(&s, offset, colorize)
	}
	return s.String()
}

func (c *Chunk) disassembleInstruction(s *strings.Builder, offset int, colorize bool) int {
	label := func(text string) string {
		if !colorize {
			return text
		}
		return color.New(color.FgHiBlack).Sprint(text)
	}
	line := c.LineAt(offset)
	fmt.Fprintf(s, "%s %4d  ", label(fmt.Sprintf("%06d", offset)), line)

	op := OpCode(c.Code[offset])
	name, width := opInfo(op)
	fmt.Fprintf(s, "%-18s", name)

	switch width {
	case widthNone:
		s.WriteString("\n")
		return offset + 1
	case widthByte:
		operand := c.Code[offset+1]
		fmt.Fprintf(s, " %d\n", operand)
		return offset + 2
	case widthByteLong:
		operand := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		fmt.Fprintf(s, " %d\n", operand)
		return offset + 4
	case widthJump:
		jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		fmt.Fprintf(s, " -> %d\n", jump)
		return offset + 3
	default:
		s.WriteString("\n")
		return offset + 1
	}
}
