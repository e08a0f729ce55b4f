package kuroko

import "fmt"

// precedence mirrors §4.2's table, lowest to highest.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precTernary
	precOr
	precAnd
	precComparison
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precExponent
	precCall
	precPrimary
)

type prefixParseFn func(c *Compiler, canAssign bool)
type infixParseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix prefixParseFn
	infix  infixParseFn
	prec   precedence
}

var rules map[TokenKind]parseRule

func init() {
	rules = map[TokenKind]parseRule{
		TokLParen:   {prefix: (*Compiler).grouping, infix: (*Compiler).call, prec: precCall},
		TokLBracket: {prefix: (*Compiler).listLiteral, infix: (*Compiler).subscript, prec: precCall},
		TokLBrace:   {prefix: (*Compiler).mapOrSetLiteral},
		TokDot:      {infix: (*Compiler).dot, prec: precCall},

		TokMinus:      {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: precAdditive},
		TokPlus:       {infix: (*Compiler).binary, prec: precAdditive},
		TokStar:       {infix: (*Compiler).binary, prec: precMultiplicative},
		TokSlash:      {infix: (*Compiler).binary, prec: precMultiplicative},
		TokSlashSlash: {infix: (*Compiler).binary, prec: precMultiplicative},
		TokPercent:    {infix: (*Compiler).binary, prec: precMultiplicative},
		TokStarStar:   {infix: (*Compiler).binaryRightAssoc, prec: precExponent},
		TokAmp:        {infix: (*Compiler).binary, prec: precBitAnd},
		TokPipe:       {infix: (*Compiler).binary, prec: precBitOr},
		TokCaret:      {infix: (*Compiler).binary, prec: precBitXor},
		TokLShift:     {infix: (*Compiler).binary, prec: precShift},
		TokRShift:     {infix: (*Compiler).binary, prec: precShift},
		TokTilde:      {prefix: (*Compiler).unary},
		TokBang:       {prefix: (*Compiler).unary},
		TokNot:        {prefix: (*Compiler).unary, infix: (*Compiler).notIn, prec: precComparison},

		TokEqEq:      {infix: (*Compiler).binary, prec: precComparison},
		TokNotEq:     {infix: (*Compiler).binary, prec: precComparison},
		TokLess:      {infix: (*Compiler).binary, prec: precComparison},
		TokLessEq:    {infix: (*Compiler).binary, prec: precComparison},
		TokGreater:   {infix: (*Compiler).binary, prec: precComparison},
		TokGreaterEq: {infix: (*Compiler).binary, prec: precComparison},
		TokIn:        {infix: (*Compiler).binary, prec: precComparison},
		TokIs:        {infix: (*Compiler).isExpr, prec: precComparison},

		TokAnd: {infix: (*Compiler).and, prec: precAnd},
		TokOr:  {infix: (*Compiler).or, prec: precOr},
		TokIf:  {infix: (*Compiler).ternary, prec: precTernary},

		TokInt:        {prefix: (*Compiler).intLiteral},
		TokFloat:      {prefix: (*Compiler).floatLiteral},
		TokString:     {prefix: (*Compiler).stringLiteral},
		TokByteString: {prefix: (*Compiler).bytesLiteral},
		TokFString:    {prefix: (*Compiler).fstringLiteral},
		TokTrue:       {prefix: (*Compiler).boolLiteral},
		TokFalse:      {prefix: (*Compiler).boolLiteral},
		TokNone:       {prefix: (*Compiler).noneLiteral},
		TokIdentifier: {prefix: (*Compiler).variable},
		TokSelf:       {prefix: (*Compiler).self},
		TokSuper:      {prefix: (*Compiler).super},
		TokLambda:     {prefix: (*Compiler).lambda},
		TokYield:      {prefix: (*Compiler).yieldExpr},
	}
}

// yieldExpr compiles `yield EXPR` to exactly the expression's bytecode
// followed by OP_YIELD (§3, §4.4) and flags the enclosing function as
// a generator so compileFunctionBody wires it up as one instead of an
// ordinary call.
func (c *Compiler) yieldExpr(canAssign bool) {
	if c.check(TokEOL) || c.check(TokEOF) || c.check(TokRParen) {
		c.emitOp(OpNone)
	} else {
		c.expression()
	}
	c.emitOp(OpYield)
	c.sawYield = true
}

// Compiler holds one function's compilation state (§4.2), linked to
// its lexically enclosing compiler. Grounded on the teacher's
// grammar_compiler.go single-pass state machine (token stream ->
// emitted structure directly, no intermediate AST), widened from
// grammar-rule compilation to general statement/expression compilation
// with scopes and upvalues.
type Compiler struct {
	vm        *VM
	scanner   *Scanner
	module    *Module
	fn        *Function
	enclosing *Compiler
	class     *ClassCompiler

	locals     []localVar
	scopeDepth int
	loops      []*loopInfo
	precStack  []int

	currentIndent     int
	sawYield          bool
	paramDefaultSnaps []paramDefaultSnap

	current  Token
	previous Token
	hadError bool
	firstErr error
}

// paramDefaultSnap records where a parameter's default-value expression
// starts in the source, for the second, real compile pass that emits
// it as prologue bytecode once every parameter's slot is known (see
// compileFunctionBody).
type paramDefaultSnap struct {
	slot int
	snap parseSnapshot
}

type localVar struct {
	name     string
	depth    int
	captured bool
}

type ClassCompiler struct {
	enclosing *ClassCompiler
	name      string
}

// loopInfo tracks the bookkeeping a loop's break/continue statements
// need: where continuing jumps back to, and how many locals (by
// c.locals index, not scope depth, so a for-in loop's hidden cursor
// slot can be kept alive across continue but torn down on break) must
// be popped off the runtime stack before jumping out early.
type loopInfo struct {
	start       int
	breaks      []int
	continueLen int
	breakLen    int
}

// Compile lexes and compiles source into a top-level Function whose
// chunk is the module body (§4.2, §6 "compile(source, filename) ->
// Function | error"). The body returns the value of its last statement
// when that statement is a bare expression, and None otherwise.
func Compile(vm *VM, source, moduleName string) (*Function, error) {
	scanner := NewScanner([]byte(source), moduleName)
	fn := newFunctionObj(vm, "<module>")
	mod := newModuleObj(vm, moduleName, moduleName)
	fn.Module = mod
	c := &Compiler{vm: vm, scanner: scanner, fn: fn, module: mod}
	c.advance()
	c.skipNewlines()
	lastWasExpr := false
	for !c.check(TokEOF) {
		switch c.current.Kind {
		case TokLet, TokDef, TokClass, TokIf, TokWhile, TokFor, TokTry, TokWith, TokReturn,
			TokBreak, TokContinue, TokDel, TokPass, TokImport, TokFrom, TokRaise:
			lastWasExpr = false
		default:
			lastWasExpr = true
		}
		c.declaration()
		c.skipNewlines()
	}
	if n := c.chunk().Len(); lastWasExpr && n > 0 && OpCode(c.chunk().Code[n-1]) == OpPop {
		c.chunk().Code = c.chunk().Code[:n-1] // keep the trailing expression's value as the result
	} else {
		c.emitOp(OpNone)
	}
	c.emitOp(OpReturn)
	if c.hadError {
		return nil, c.firstErr
	}
	return fn, nil
}

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Kind != TokError {
			break
		}
		c.errorAt(c.current, c.current.Message)
	}
}

func (c *Compiler) check(k TokenKind) bool { return c.current.Kind == k }

func (c *Compiler) match(k TokenKind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) expect(k TokenKind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAt(c.current, msg)
}

func (c *Compiler) skipNewlines() {
	for c.check(TokEOL) || c.check(TokIndentation) {
		c.advance()
	}
}

func (c *Compiler) errorAt(t Token, msg string) {
	if c.hadError {
		return
	}
	c.hadError = true
	c.firstErr = CompileError{Message: msg, Module: c.scanner.module, Line: t.Line}
}

func (c *Compiler) tokenText() string { return c.previous.Literal }

func (c *Compiler) chunk() *Chunk { return c.fn.Chunk }

func (c *Compiler) emitByte(b byte) int  { return c.chunk().WriteByte(b, c.previous.Line) }
func (c *Compiler) emitOp(op OpCode) int { return c.chunk().WriteOp(op, c.previous.Line) }

func (c *Compiler) emitConstant(v Value) {
	idx := c.chunk().AddConstant(v)
	c.chunk().emitIndexed(OpConstant, idx, c.previous.Line)
}

func (c *Compiler) emitJump(op OpCode) int { return c.chunk().emitJump(op, c.previous.Line) }
func (c *Compiler) patchJump(at int)       { c.chunk().patchJump(at) }
func (c *Compiler) emitLoop(start int)     { c.chunk().emitLoop(start, c.previous.Line) }
func (c *Compiler) emitDup()               { c.emitOp(OpDup) }

// parsePrecedence is the Pratt parser's core loop (§4.2). It tracks
// the chunk offset each call started emitting at on precStack so an
// infix handler invoked from deep inside it (ternary's `if`) can find
// and rewind the left operand's already-emitted bytecode.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.precStack = append(c.precStack, c.chunk().Len())
	defer func() { c.precStack = c.precStack[:len(c.precStack)-1] }()
	c.advance()
	rule, ok := rules[c.previous.Kind]
	if !ok || rule.prefix == nil {
		c.errorAt(c.previous, "expected expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)
	c.runInfixLoop(prec, canAssign)
}

func (c *Compiler) runInfixLoop(prec precedence, canAssign bool) {
	for {
		next, ok := rules[c.current.Kind]
		if !ok || prec > next.prec {
			break
		}
		c.advance()
		infixRule := rules[c.previous.Kind]
		if infixRule.infix == nil {
			break
		}
		infixRule.infix(c, canAssign)
	}
	if canAssign && c.match(TokEq) {
		c.errorAt(c.previous, "invalid assignment target")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) grouping(canAssign bool) {
	c.scanner.BeginEatingWhitespace()
	c.skipNewlines()
	if c.check(TokRParen) {
		c.scanner.EndEatingWhitespace()
		c.advance()
		c.emitOp(OpTuple)
		c.emitByte(0)
		return
	}
	startLen := c.chunk().Len()
	snap := c.snapshotParsePos()
	c.expression()
	if c.check(TokFor) {
		c.compileComprehensionTail(startLen, snap, true)
		c.skipNewlines()
		c.scanner.EndEatingWhitespace()
		c.expect(TokRParen, "expected ')'")
		return
	}
	if c.match(TokComma) {
		count := 1
		for !c.check(TokRParen) {
			c.skipNewlines()
			if c.check(TokRParen) {
				break
			}
			c.expression()
			count++
			c.skipNewlines()
			if !c.match(TokComma) {
				break
			}
		}
		c.skipNewlines()
		c.scanner.EndEatingWhitespace()
		c.expect(TokRParen, "expected ')'")
		c.emitOp(OpTuple)
		c.emitByte(byte(count))
		return
	}
	c.skipNewlines()
	c.scanner.EndEatingWhitespace()
	c.expect(TokRParen, "expected ')'")
}

func (c *Compiler) unary(canAssign bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case TokMinus:
		c.emitOp(OpNegate)
	case TokTilde:
		c.emitOp(OpInvert)
	case TokBang, TokNot:
		c.emitOp(OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	op := c.previous.Kind
	rule := rules[op]
	rhsStart := c.chunk().Len()
	c.parsePrecedence(rule.prec + 1)
	c.emitBinaryOp(op, rhsStart)
}

func (c *Compiler) binaryRightAssoc(canAssign bool) {
	op := c.previous.Kind
	rule := rules[op]
	rhsStart := c.chunk().Len()
	c.parsePrecedence(rule.prec)
	c.emitBinaryOp(op, rhsStart)
}

// tokenToArithOp maps an infix operator token to the opcode
// emitBinaryOp would otherwise emit for it, so tryFoldConstantBinary
// can run the identical runtime arithmetic (vm_arith.go) at compile
// time. TokIn has no entry: membership has no constant-time form here,
// so folding always declines and emitBinaryOp falls through to OpIn.
var tokenToArithOp = map[TokenKind]OpCode{
	TokPlus: OpAdd, TokMinus: OpSub, TokStar: OpMul, TokSlash: OpDiv,
	TokSlashSlash: OpFloorDiv, TokPercent: OpMod, TokStarStar: OpPow,
	TokAmp: OpBitAnd, TokPipe: OpBitOr, TokCaret: OpBitXor,
	TokLShift: OpShl, TokRShift: OpShr,
	TokEqEq: OpEq, TokNotEq: OpNe,
	TokLess: OpLt, TokLessEq: OpLe, TokGreater: OpGt, TokGreaterEq: OpGe,
}

// tryFoldConstantBinary implements compiler.constant_fold/compiler.optimize
// (§10): if the operand spans immediately to either side of rhsStart are
// each exactly one bare numeric constant push (Chunk.soleConstantPush),
// compute the operator's result through the same numericBinaryOp/compareOp/
// valuesEqual runtime arithmetic (vm_arith.go) and splice a single folded
// constant push in place of the two pushes plus the opcode. precStack's top
// is the start of the whole left-hand chain (the same offset ternary's
// rewind uses), which after any earlier fold in the same chain is exactly
// one instruction again, so `1 + 2 + 3` folds in two passes rather than one.
// Declines whenever the operands aren't bare constants, the operator has no
// entry in tokenToArithOp, or evaluating it would raise (division by zero) —
// that raise belongs to the runtime opcode, not compile time.
func (c *Compiler) tryFoldConstantBinary(op TokenKind, rhsStart int) bool {
	if c.vm == nil || c.vm.config == nil || !c.vm.config.ConstantFold() || c.vm.config.Optimize() <= 0 {
		return false
	}
	arithOp, ok := tokenToArithOp[op]
	if !ok {
		return false
	}
	lhsStart := c.precStack[len(c.precStack)-1]
	lhs, ok := c.chunk().soleConstantPush(lhsStart, rhsStart)
	if !ok || !lhs.IsNumber() {
		return false
	}
	rhs, ok := c.chunk().soleConstantPush(rhsStart, c.chunk().Len())
	if !ok || !rhs.IsNumber() {
		return false
	}
	folded, ok := c.foldNumeric(arithOp, lhs, rhs)
	if !ok {
		return false
	}
	c.chunk().Code = c.chunk().Code[:lhsStart]
	c.emitConstant(folded)
	return true
}

func (c *Compiler) foldNumeric(arithOp OpCode, a, b Value) (Value, bool) {
	switch arithOp {
	case OpEq:
		return Bool(c.vm.valuesEqual(a, b)), true
	case OpNe:
		return Bool(!c.vm.valuesEqual(a, b)), true
	case OpLt, OpLe, OpGt, OpGe:
		v, err := c.vm.compareOp(arithOp, a, b)
		if err != nil {
			return Value{}, false
		}
		return v, true
	default:
		v, err := c.vm.numericBinaryOp(arithOp, a, b)
		if err != nil {
			return Value{}, false
		}
		return v, true
	}
}

func (c *Compiler) emitBinaryOp(op TokenKind, rhsStart int) {
	if c.tryFoldConstantBinary(op, rhsStart) {
		return
	}
	switch op {
	case TokPlus:
		c.emitOp(OpAdd)
	case TokMinus:
		c.emitOp(OpSub)
	case TokStar:
		c.emitOp(OpMul)
	case TokSlash:
		c.emitOp(OpDiv)
	case TokSlashSlash:
		c.emitOp(OpFloorDiv)
	case TokPercent:
		c.emitOp(OpMod)
	case TokStarStar:
		c.emitOp(OpPow)
	case TokAmp:
		c.emitOp(OpBitAnd)
	case TokPipe:
		c.emitOp(OpBitOr)
	case TokCaret:
		c.emitOp(OpBitXor)
	case TokLShift:
		c.emitOp(OpShl)
	case TokRShift:
		c.emitOp(OpShr)
	case TokEqEq:
		c.emitOp(OpEq)
	case TokNotEq:
		c.emitOp(OpNe)
	case TokLess:
		c.emitOp(OpLt)
	case TokLessEq:
		c.emitOp(OpLe)
	case TokGreater:
		c.emitOp(OpGt)
	case TokGreaterEq:
		c.emitOp(OpGe)
	case TokIn:
		c.emitOp(OpIn)
	}
}

func (c *Compiler) notIn(canAssign bool) {
	c.expect(TokIn, "expected 'in' after 'not'")
	rule := rules[TokIn]
	c.parsePrecedence(rule.prec + 1)
	c.emitOp(OpNotIn)
}

func (c *Compiler) isExpr(canAssign bool) {
	negate := c.match(TokNot)
	rule := rules[TokIs]
	c.parsePrecedence(rule.prec + 1)
	if negate {
		c.emitOp(OpIsNot)
	} else {
		c.emitOp(OpIs)
	}
}

// and/or short-circuit via JUMP_IF_*_NO_POP (§4.2 precedence table).
func (c *Compiler) and(canAssign bool) {
	end := c.emitJump(OpJumpIfFalseNoPop)
	c.emitOp(OpPop)
	c.parsePrecedence(precAnd + 1)
	c.patchJump(end)
}

func (c *Compiler) or(canAssign bool) {
	end := c.emitJump(OpJumpIfTrueNoPop)
	c.emitOp(OpPop)
	c.parsePrecedence(precOr + 1)
	c.patchJump(end)
}

// ternary implements `x if C else y`. This infix handler fires right
// after `x` has already been unconditionally compiled onto the chunk,
// with `if` just consumed — but x must only execute when C is truthy,
// so its already-emitted bytecode is cached and rewound (the same
// technique compileComprehensionTail uses) and re-spliced into the
// then-branch once C is known, making source order `x if C else y`
// become runtime order "evaluate C, then x or y" (§4.2).
func (c *Compiler) ternary(canAssign bool) {
	start := c.precStack[len(c.precStack)-1]
	thenBytes := append([]byte(nil), c.chunk().Code[start:]...)
	c.chunk().Code = c.chunk().Code[:start]

	c.parsePrecedence(precTernary + 1) // condition C
	elseJump := c.emitJump(OpJumpIfFalseNoPop)
	c.emitOp(OpPop)
	c.chunk().Code = append(c.chunk().Code, thenBytes...) // then-branch: x
	thenJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	c.emitOp(OpPop)
	c.expect(TokElse, "expected 'else' in conditional expression")
	c.parsePrecedence(precTernary) // else-branch: y
	c.patchJump(thenJump)
}

func (c *Compiler) intLiteral(canAssign bool) {
	n := parseIntLiteral(c.previous.Literal)
	c.emitConstant(Int(n))
}

func (c *Compiler) floatLiteral(canAssign bool) {
	f := parseFloatLiteral(c.previous.Literal)
	c.emitConstant(Float(f))
}

func (c *Compiler) boolLiteral(canAssign bool) {
	c.emitOp(boolOpFor(c.previous.Kind))
}

func boolOpFor(k TokenKind) OpCode {
	if k == TokTrue {
		return OpTrue
	}
	return OpFalse
}

func (c *Compiler) noneLiteral(canAssign bool) { c.emitOp(OpNone) }

func (c *Compiler) stringLiteral(canAssign bool) {
	c.emitConstant(c.vm.stringValue(c.previous.Literal))
}

func (c *Compiler) bytesLiteral(canAssign bool) {
	c.emitConstant(ObjectValue(newBytesObj(c.vm, []byte(c.previous.Literal))))
}

// fstringLiteral splits the literal on `{...}` substrings, compiling
// each as a nested expression via its own Scanner sharing this
// compiler's locals, and concatenating the parts with ADD (§4.2
// f-string handling: "desugars to str()-wrapped concatenation").
func (c *Compiler) fstringLiteral(canAssign bool) {
	parts := splitFStringParts(c.previous.Literal)
	count := 0
	for _, p := range parts {
		if p.isExpr {
			sub := NewScanner([]byte(p.text), c.scanner.module)
			subC := &Compiler{vm: c.vm, scanner: sub, fn: c.fn, enclosing: c.enclosing, module: c.module, class: c.class}
			subC.locals = c.locals
			subC.scopeDepth = c.scopeDepth
			subC.advance()
			subC.expression()
			c.locals = subC.locals
			if subC.hadError {
				c.hadError = true
				c.firstErr = subC.firstErr
			}
			c.emitGlobalCall("str", 1)
		} else {
			c.emitConstant(c.vm.stringValue(p.text))
		}
		count++
	}
	if count == 0 {
		c.emitConstant(c.vm.stringValue(""))
		count = 1
	}
	for i := 1; i < count; i++ {
		c.emitOp(OpAdd)
	}
}

type fstringPart struct {
	text   string
	isExpr bool
}

func splitFStringParts(s string) []fstringPart {
	var parts []fstringPart
	var buf []byte
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			if len(buf) > 0 {
				parts = append(parts, fstringPart{text: string(buf)})
				buf = nil
			}
			depth := 1
			j := i + 1
			for j < len(s) && depth > 0 {
				if s[j] == '{' {
					depth++
				} else if s[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			parts = append(parts, fstringPart{text: s[i+1 : j], isExpr: true})
			i = j + 1
			continue
		}
		buf = append(buf, s[i])
		i++
	}
	if len(buf) > 0 {
		parts = append(parts, fstringPart{text: string(buf)})
	}
	return parts
}

func (c *Compiler) listLiteral(canAssign bool) {
	c.scanner.BeginEatingWhitespace()
	c.skipNewlines()
	if c.check(TokRBracket) {
		c.scanner.EndEatingWhitespace()
		c.advance()
		c.chunk().emitIndexed(OpList, 0, c.previous.Line)
		return
	}
	startLen := c.chunk().Len()
	snap := c.snapshotParsePos()
	c.expression()
	if c.check(TokFor) {
		c.compileComprehensionTail(startLen, snap, false)
		c.skipNewlines()
		c.scanner.EndEatingWhitespace()
		c.expect(TokRBracket, "expected ']'")
		return
	}
	count := 1
	for {
		c.skipNewlines()
		if !c.match(TokComma) {
			break
		}
		c.skipNewlines()
		if c.check(TokRBracket) {
			break
		}
		c.expression()
		count++
	}
	c.skipNewlines()
	c.scanner.EndEatingWhitespace()
	c.expect(TokRBracket, "expected ']'")
	c.chunk().emitIndexed(OpList, count, c.previous.Line)
}

// compileComprehensionTail handles the `for VAR in ITER` clause of a
// list/generator comprehension. The head expression was already
// compiled once (starting at chunk offset headStart) so the Pratt
// parser could discover the trailing `for` via ordinary lookahead;
// since the loop variable did not exist as a local at that first
// pass, that speculative bytecode is discarded and the head is
// reparsed from a saved scanner/token snapshot once VAR is a real
// local, so references to it inside the head resolve correctly (§4.2,
// §9 "comprehensions rewind the chunk and recompile the head once the
// loop variable is in scope"). Limited to a single `for` clause with
// no filtering `if`.
func (c *Compiler) compileComprehensionTail(headStart int, headSnap parseSnapshot, isGeneratorExpr bool) {
	c.chunk().Code = c.chunk().Code[:headStart]
	c.advance() // consume 'for'

	c.expect(TokIdentifier, "expected loop variable")
	varName := c.tokenText()
	c.expect(TokIn, "expected 'in'")

	savedLocals := len(c.locals)
	c.chunk().emitIndexed(OpList, 0, c.previous.Line) // [result]
	resultSlot := c.addLocal("")

	c.expression() // iterable -> [result, iterableValue]
	loopStart, exitJump, varSlot := c.emitForInHeader(varName)
	afterIter := c.snapshotParsePos()

	c.emitGlobalCallNoArgs("__list_append")                            // [result, cursor, value, callee]
	c.chunk().emitIndexed(OpGetLocal, resultSlot, c.previous.Line)      // [..., callee, result]

	c.restoreParsePos(headSnap)
	c.expression() // recompiled head, VAR now resolves as a local -> [..., callee, result, headValue]
	c.restoreParsePos(afterIter)

	c.emitOp(OpCall)
	c.emitByte(2)
	c.emitOp(OpPop) // discard __list_append's return value

	c.emitForInFooter(loopStart, exitJump)
	c.locals = c.locals[:savedLocals] // drop the compile-time cursor/value/result bookkeeping; result's runtime value is still on the stack

	_ = varSlot
	if isGeneratorExpr {
		c.emitGlobalCall("iter", 1)
	}
}

// emitForInHeader compiles the DUP/INVOKE_ITER/JUMP_IF_TRUE_NP/SWAP/POP
// sequence that turns a raw iterator cursor (already GET_ITER'd and on
// top of the stack via the just-compiled iterable expression) into a
// loop with the current element bound to a fresh local named name
// (§4.4 for-loop lowering onto GET_ITER/INVOKE_ITER). Returns the
// loop's back-edge target, the not-yet-patched exit jump operand
// offset, and the loop variable's local slot.
func (c *Compiler) emitForInHeader(name string) (loopStart, exitJump, varSlot int) {
	c.emitOp(OpGetIter)
	c.addLocal("") // cursor
	loopStart = c.chunk().Len()
	c.emitDup()
	c.emitOp(OpInvokeIter)
	exitJump = c.emitJump(OpJumpIfTrueNoPop)
	c.emitOp(OpPop)  // discard stop==false
	c.emitOp(OpSwap) // [..., cursor, value, cursorDup] -> dup now on top
	c.emitOp(OpPop)  // discard cursorDup
	varSlot = c.addLocal(name)
	return
}

// emitForInFooter closes out a loop opened by emitForInHeader: pops
// the per-iteration value, loops back, then on exit discards the
// bookkeeping (stop bool, the final INVOKE_ITER's value, cursor dup,
// cursor) that JUMP_IF_TRUE_NO_POP left behind.
func (c *Compiler) emitForInFooter(loopStart, exitJump int) {
	c.emitOp(OpPop) // discard this iteration's value local
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emitOp(OpPop) // stop == true
	c.emitOp(OpPop) // value pushed by the final INVOKE_ITER
	c.emitOp(OpPop) // cursor dup
	c.emitOp(OpPop) // cursor
}

func (c *Compiler) emitGlobalCallNoArgs(name string) {
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line)
}

// parseSnapshot is a full parser-position checkpoint (scanner state
// plus lookahead tokens) used to reparse an already-compiled
// expression once more compile-time information (a newly declared
// local) is available. Scanner and Token are plain value types, so a
// shallow copy is a complete checkpoint.
type parseSnapshot struct {
	scanner  Scanner
	current  Token
	previous Token
}

func (c *Compiler) snapshotParsePos() parseSnapshot {
	return parseSnapshot{scanner: *c.scanner, current: c.current, previous: c.previous}
}

func (c *Compiler) restoreParsePos(snap parseSnapshot) {
	*c.scanner = snap.scanner
	c.current = snap.current
	c.previous = snap.previous
}

func (c *Compiler) mapOrSetLiteral(canAssign bool) {
	c.scanner.BeginEatingWhitespace()
	c.skipNewlines()
	if c.check(TokRBrace) {
		c.scanner.EndEatingWhitespace()
		c.advance()
		c.emitGlobalCall("dict", 0)
		return
	}
	c.expression()
	if c.match(TokColon) {
		c.expression()
		count := 1
		for c.match(TokComma) {
			c.skipNewlines()
			if c.check(TokRBrace) {
				break
			}
			c.expression()
			c.expect(TokColon, "expected ':' in dict literal")
			c.expression()
			count++
		}
		c.skipNewlines()
		c.scanner.EndEatingWhitespace()
		c.expect(TokRBrace, "expected '}'")
		c.chunk().emitIndexed(OpList, count*2, c.previous.Line)
		c.emitGlobalCall("__make_dict_from_pairs", 1)
		return
	}
	count := 1
	for c.match(TokComma) {
		c.skipNewlines()
		if c.check(TokRBrace) {
			break
		}
		c.expression()
		count++
	}
	c.skipNewlines()
	c.scanner.EndEatingWhitespace()
	c.expect(TokRBrace, "expected '}'")
	c.chunk().emitIndexed(OpList, count, c.previous.Line)
	c.emitGlobalCall("set", 1)
}

// emitGlobalCall calls a builtin by name against argc values that are
// already sitting on top of the stack (the constructor-call pattern
// used by comprehensions and {}/[] literal desugaring): since execCall
// expects the callee below its arguments, the freshly fetched global is
// swapped under the single pending argument. Only used with argc 0 or
// 1 today; a future argc>1 caller needs a real rotate, not another swap.
func (c *Compiler) emitGlobalCall(name string, argc int) {
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line)
	if argc == 1 {
		c.emitOp(OpSwap)
	}
	c.emitOp(OpCall)
	c.emitByte(byte(argc))
}

func (c *Compiler) subscript(canAssign bool) {
	c.scanner.BeginEatingWhitespace()
	c.expression()
	c.scanner.EndEatingWhitespace()
	c.expect(TokRBracket, "expected ']'")
	if canAssign && c.match(TokEq) {
		c.expression()
		c.emitOp(OpSetSubscript)
		return
	}
	c.emitOp(OpGetSubscript)
}

func (c *Compiler) dot(canAssign bool) {
	c.expect(TokIdentifier, "expected property name after '.'")
	idx := c.chunk().AddConstant(c.vm.stringValue(c.tokenText()))
	if canAssign && c.match(TokEq) {
		c.expression()
		c.chunk().emitIndexed(OpSetProperty, idx, c.previous.Line)
		return
	}
	if canAssign && c.matchCompoundAssign() {
		op := c.previous.Kind
		c.chunk().emitIndexed(OpGetProperty, idx, c.previous.Line)
		c.expression()
		c.emitCompoundOp(op)
		c.chunk().emitIndexed(OpSetProperty, idx, c.previous.Line)
		return
	}
	c.chunk().emitIndexed(OpGetProperty, idx, c.previous.Line)
}

func (c *Compiler) call(canAssign bool) {
	c.scanner.BeginEatingWhitespace()
	argc := 0
	kwcount := 0
	c.skipNewlines()
	for !c.check(TokRParen) {
		if c.check(TokIdentifier) {
			name := c.current.Literal
			c.advance()
			if c.match(TokEq) {
				idx := c.chunk().AddConstant(c.vm.stringValue(name))
				c.chunk().emitIndexed(OpConstant, idx, c.previous.Line)
				c.expression()
				kwcount++
				c.skipNewlines()
				if !c.match(TokComma) {
					break
				}
				c.skipNewlines()
				continue
			}
			// Not a keyword argument: `previous` already holds the
			// identifier token consumed above; finish parsing it as an
			// ordinary expression from that point.
			c.variable(true)
			c.runInfixLoop(precAssignment, true)
			argc++
			c.skipNewlines()
			if !c.match(TokComma) {
				break
			}
			c.skipNewlines()
			continue
		}
		c.expression()
		argc++
		c.skipNewlines()
		if !c.match(TokComma) {
			break
		}
		c.skipNewlines()
	}
	c.skipNewlines()
	c.scanner.EndEatingWhitespace()
	c.expect(TokRParen, "expected ')'")
	if kwcount > 0 {
		c.emitOp(OpKwargs)
		c.emitByte(byte(kwcount))
		argc += kwcount*2 + 1
	}
	c.emitOp(OpCall)
	c.emitByte(byte(argc))
}

func (c *Compiler) matchCompoundAssign() bool {
	switch c.current.Kind {
	case TokPlusEq, TokMinusEq, TokStarEq, TokSlashEq, TokSlashSlashEq, TokPercentEq,
		TokStarStarEq, TokAmpEq, TokPipeEq, TokCaretEq, TokLShiftEq, TokRShiftEq:
		c.advance()
		return true
	}
	return false
}

func (c *Compiler) emitCompoundOp(op TokenKind) {
	switch op {
	case TokPlusEq:
		c.emitOp(OpAdd)
	case TokMinusEq:
		c.emitOp(OpSub)
	case TokStarEq:
		c.emitOp(OpMul)
	case TokSlashEq:
		c.emitOp(OpDiv)
	case TokSlashSlashEq:
		c.emitOp(OpFloorDiv)
	case TokPercentEq:
		c.emitOp(OpMod)
	case TokStarStarEq:
		c.emitOp(OpPow)
	case TokAmpEq:
		c.emitOp(OpBitAnd)
	case TokPipeEq:
		c.emitOp(OpBitOr)
	case TokCaretEq:
		c.emitOp(OpBitXor)
	case TokLShiftEq:
		c.emitOp(OpShl)
	case TokRShiftEq:
		c.emitOp(OpShr)
	}
}

func (c *Compiler) self(canAssign bool) { c.resolveAndEmitGet("self") }

func (c *Compiler) super(canAssign bool) {
	c.expect(TokDot, "expected '.' after 'super'")
	c.expect(TokIdentifier, "expected method name after 'super.'")
	name := c.tokenText()
	c.resolveAndEmitGet("self")
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpGetProperty, idx, c.previous.Line)
}

func (c *Compiler) lambda(canAssign bool) {
	fn := c.compileFunctionBody("<lambda>", true)
	c.emitClosureFor(fn)
}

func parseIntLiteral(text string) int64 {
	n, _ := parseIntAny(text)
	return n
}

func parseIntAny(text string) (int64, error) {
	var v int64
	base := 10
	rest := text
	if len(text) > 1 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base, rest = 16, text[2:]
		case 'b', 'B':
			base, rest = 2, text[2:]
		case 'o', 'O':
			base, rest = 8, text[2:]
		}
	}
	for _, ch := range rest {
		var d int64
		switch {
		case ch >= '0' && ch <= '9':
			d = int64(ch - '0')
		case ch >= 'a' && ch <= 'f':
			d = int64(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			d = int64(ch-'A') + 10
		default:
			return 0, fmt.Errorf("bad digit")
		}
		v = v*int64(base) + d
	}
	return v, nil
}

func parseFloatLiteral(text string) float64 {
	var intPart, fracPart float64
	var fracDiv float64 = 1
	seenDot := false
	neg := false
	i := 0
	if i < len(text) && text[i] == '-' {
		neg = true
		i++
	}
	for ; i < len(text); i++ {
		ch := text[i]
		if ch == '.' {
			seenDot = true
			continue
		}
		if ch == 'e' || ch == 'E' {
			break
		}
		if !seenDot {
			intPart = intPart*10 + float64(ch-'0')
		} else {
			fracDiv *= 10
			fracPart = fracPart*10 + float64(ch-'0')
		}
	}
	v := intPart + fracPart/fracDiv
	if neg {
		v = -v
	}
	return v
}
