package kuroko

// Scope, local/upvalue resolution, statement dispatch, and the
// off-side-rule block parser. Split out from compiler.go (which holds
// the Pratt expression parser) the way the teacher keeps its
// statement-level grammar rules (grammar_stmt.go) separate from its
// expression rules (grammar_expr.go).

// addLocal declares a new local occupying the next runtime stack slot;
// its index doubles as the slot number GET_LOCAL/SET_LOCAL address,
// which only holds because locals are always popped in the reverse
// order they were pushed (§4.2 scope discipline).
func (c *Compiler) addLocal(name string) int {
	c.locals = append(c.locals, localVar{name: name, depth: c.scopeDepth})
	return len(c.locals) - 1
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope closes the innermost scope, emitting one CLOSE_UPVALUE or
// POP per local going out of scope — CLOSE_UPVALUE for any local a
// nested closure captured, so its value survives on the heap after its
// stack slot is gone (§3 Upvalue.Close).
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].captured {
			c.emitOp(OpCloseUpvalue)
		} else {
			c.emitOp(OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// emitPopsToLen emits the same per-local CLOSE_UPVALUE/POP cleanup as
// endScope but by raw c.locals index rather than scope depth, and
// without truncating c.locals — used by break/continue, which unwind
// the runtime stack early without actually leaving the lexical scope
// (parsing resumes normally afterward at the same scope depth).
func (c *Compiler) emitPopsToLen(targetLen int) {
	for i := len(c.locals) - 1; i >= targetLen; i-- {
		if c.locals[i].captured {
			c.emitOp(OpCloseUpvalue)
		} else {
			c.emitOp(OpPop)
		}
	}
}

func resolveLocal(c *Compiler, name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func addUpvalue(c *Compiler, index int, isLocal bool) int {
	for i, u := range c.fn.Upvalues {
		if u.IsLocal == isLocal && u.Index == index {
			return i
		}
	}
	c.fn.Upvalues = append(c.fn.Upvalues, UpvalueDesc{IsLocal: isLocal, Index: index})
	c.fn.UpvalueCount = len(c.fn.Upvalues)
	return len(c.fn.Upvalues) - 1
}

// resolveUpvalue walks the enclosing-compiler chain looking for name as
// a local (or transitive upvalue) of some ancestor function, marking
// each intermediate local captured and threading an UpvalueDesc chain
// down to this compiler (§4.2, classic single-pass closure resolution).
func resolveUpvalue(c *Compiler, name string) (int, bool) {
	if c.enclosing == nil {
		return -1, false
	}
	if slot, ok := resolveLocal(c.enclosing, name); ok {
		c.enclosing.locals[slot].captured = true
		return addUpvalue(c, slot, true), true
	}
	if idx, ok := resolveUpvalue(c.enclosing, name); ok {
		return addUpvalue(c, idx, false), true
	}
	return -1, false
}

// resolveAndEmitGet emits a read-only reference to name, used where no
// assignment is syntactically possible (self, super.method).
func (c *Compiler) resolveAndEmitGet(name string) {
	if slot, ok := resolveLocal(c, name); ok {
		c.chunk().emitIndexed(OpGetLocal, slot, c.previous.Line)
		return
	}
	if idx, ok := resolveUpvalue(c, name); ok {
		c.chunk().emitIndexed(OpGetUpvalue, idx, c.previous.Line)
		return
	}
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line)
}

// variable is the prefix rule for a bare identifier: local/upvalue/
// global read, or (when canAssign) plain or compound assignment to
// whichever of the three it resolves to. Module-scope targets with no
// local binding become globals via SET_GLOBAL/DEFINE_GLOBAL — `let` is
// what actually introduces a new local; a bare `x = 1` at local scope
// assigns an existing local if one is in scope, else falls through to
// a module-level global the same as top-level code expects.
func (c *Compiler) variable(canAssign bool) {
	name := c.tokenText()
	if slot, ok := resolveLocal(c, name); ok {
		c.assignOrGet(slot, OpGetLocal, OpSetLocal, canAssign)
		return
	}
	if idx, ok := resolveUpvalue(c, name); ok {
		c.assignOrGet(idx, OpGetUpvalue, OpSetUpvalue, canAssign)
		return
	}
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	if canAssign && c.match(TokEq) {
		c.expression()
		c.chunk().emitIndexed(OpSetGlobal, idx, c.previous.Line)
		return
	}
	if canAssign && c.matchCompoundAssign() {
		op := c.previous.Kind
		c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line)
		c.expression()
		c.emitCompoundOp(op)
		c.chunk().emitIndexed(OpSetGlobal, idx, c.previous.Line)
		return
	}
	c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line)
}

func (c *Compiler) assignOrGet(slot int, getOp, setOp OpCode, canAssign bool) {
	if canAssign && c.match(TokEq) {
		c.expression()
		c.chunk().emitIndexed(setOp, slot, c.previous.Line)
		return
	}
	if canAssign && c.matchCompoundAssign() {
		op := c.previous.Kind
		c.chunk().emitIndexed(getOp, slot, c.previous.Line)
		c.expression()
		c.emitCompoundOp(op)
		c.chunk().emitIndexed(setOp, slot, c.previous.Line)
		return
	}
	c.chunk().emitIndexed(getOp, slot, c.previous.Line)
}

// endOfStatement consumes the EOL (or the indentation token that
// precedes the next logical line's content) terminating a simple
// statement, tolerant of running into EOF.
func (c *Compiler) endOfStatement() {
	if c.check(TokEOL) {
		c.advance()
	}
}

// declaration is the module-level and block-level statement entry
// point (§4.2 grammar). No separate "declaration vs statement" split
// exists in Kuroko's grammar the way clox separates var-decl from
// stmt, so this is a thin alias kept for the call sites already
// written against it.
func (c *Compiler) declaration() { c.statement() }

func (c *Compiler) statement() {
	switch {
	case c.check(TokLet):
		c.letStatement()
	case c.check(TokDef):
		c.defStatement()
	case c.check(TokClass):
		c.classStatement()
	case c.check(TokIf):
		c.ifStatement()
	case c.check(TokWhile):
		c.whileStatement()
	case c.check(TokFor):
		c.forStatement()
	case c.check(TokTry):
		c.tryStatement()
	case c.check(TokWith):
		c.withStatement()
	case c.check(TokReturn):
		c.returnStatement()
	case c.check(TokBreak):
		c.breakStatement()
	case c.check(TokContinue):
		c.continueStatement()
	case c.check(TokDel):
		c.delStatement()
	case c.check(TokPass):
		c.advance()
		c.endOfStatement()
	case c.check(TokImport):
		c.importStatement()
	case c.check(TokFrom):
		c.fromImportStatement()
	case c.check(TokRaise):
		c.raiseStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.emitOp(OpPop)
	c.endOfStatement()
}

// letStatement declares a fresh local (or, at module scope, a global)
// initialized from an expression: `let NAME = EXPR` (§4.2). At local
// scope the initializer's value is left sitting in the new local's
// stack slot — clox-style, no separate store needed, since addLocal is
// called AFTER the initializer is compiled so its index lines up with
// the value already on top of the stack.
func (c *Compiler) letStatement() {
	c.advance() // 'let'
	c.expect(TokIdentifier, "expected variable name")
	name := c.tokenText()
	nameIdx := -1
	if c.scopeDepth == 0 {
		nameIdx = c.chunk().AddConstant(c.vm.stringValue(name))
	}
	if c.match(TokEq) {
		c.expression()
	} else {
		c.emitOp(OpNone)
	}
	if c.scopeDepth == 0 {
		c.chunk().emitIndexed(OpDefineGlobal, nameIdx, c.previous.Line)
	} else {
		c.addLocal(name)
	}
	c.endOfStatement()
}

func (c *Compiler) returnStatement() {
	c.advance() // 'return'
	if c.check(TokEOL) || c.check(TokEOF) {
		c.emitOp(OpNone)
	} else {
		c.expression()
	}
	c.emitOp(OpReturn)
	c.endOfStatement()
}

func (c *Compiler) breakStatement() {
	c.advance() // 'break'
	if len(c.loops) == 0 {
		c.errorAt(c.previous, "'break' outside loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	c.emitPopsToLen(loop.breakLen)
	j := c.emitJump(OpJump)
	loop.breaks = append(loop.breaks, j)
	c.endOfStatement()
}

func (c *Compiler) continueStatement() {
	c.advance() // 'continue'
	if len(c.loops) == 0 {
		c.errorAt(c.previous, "'continue' outside loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	c.emitPopsToLen(loop.continueLen)
	c.emitLoop(loop.start)
	c.endOfStatement()
}

// delStatement dispatches on the shape of its target the same way
// assignment targets are distinguished in dot()/subscript(), emitting
// DEL_GLOBAL, DEL_PROPERTY, or DEL_SUBSCRIPT. Deleting a plain name
// that resolves to a closure-captured local is rejected at compile
// time: once a later nested function has captured the slot as an
// upvalue, severing the binding out from under it has no sound runtime
// behavior, so it's a SyntaxError instead (§13 Open Question).
func (c *Compiler) delStatement() {
	c.advance() // 'del'
	c.expect(TokIdentifier, "expected name after 'del'")
	name := c.tokenText()
	if c.check(TokDot) || c.check(TokLBracket) {
		c.variable(false)
		for c.check(TokDot) || c.check(TokLBracket) {
			if c.match(TokDot) {
				c.expect(TokIdentifier, "expected property name after '.'")
				propIdx := c.chunk().AddConstant(c.vm.stringValue(c.tokenText()))
				if c.check(TokDot) || c.check(TokLBracket) {
					c.chunk().emitIndexed(OpGetProperty, propIdx, c.previous.Line)
					continue
				}
				c.chunk().emitIndexed(OpDelProperty, propIdx, c.previous.Line)
				c.endOfStatement()
				return
			}
			c.match(TokLBracket)
			c.expression()
			c.expect(TokRBracket, "expected ']'")
			if c.check(TokDot) || c.check(TokLBracket) {
				c.emitOp(OpGetSubscript)
				continue
			}
			c.emitOp(OpDelSubscript)
			c.endOfStatement()
			return
		}
	}
	if slot, ok := resolveLocal(c, name); ok {
		if c.locals[slot].captured {
			c.errorAt(c.previous, "cannot delete a variable captured by a closure")
		} else {
			c.errorAt(c.previous, "cannot delete a local variable")
		}
		return
	}
	idx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpDelGlobal, idx, c.previous.Line)
	c.endOfStatement()
}

func (c *Compiler) importStatement() {
	c.advance() // 'import'
	dotted := c.parseDottedName()
	idx := c.chunk().AddConstant(c.vm.stringValue(dotted))
	c.chunk().emitIndexed(OpImport, idx, c.previous.Line)
	c.emitOp(OpPop) // OpImport already binds the dotted name as a global itself
	c.endOfStatement()
}

func (c *Compiler) fromImportStatement() {
	c.advance() // 'from'
	dotted := c.parseDottedName()
	c.expect(TokImport, "expected 'import'")
	modIdx := c.chunk().AddConstant(c.vm.stringValue(dotted))
	c.chunk().emitIndexed(OpImport, modIdx, c.previous.Line)
	for {
		c.expect(TokIdentifier, "expected imported name")
		name := c.tokenText()
		nameIdx := c.chunk().AddConstant(c.vm.stringValue(name))
		c.chunk().emitIndexed(OpImportFrom, nameIdx, c.previous.Line)
		c.chunk().emitIndexed(OpDefineGlobal, nameIdx, c.previous.Line)
		if !c.match(TokComma) {
			break
		}
	}
	c.emitOp(OpPop) // discard the module object OpImport left on the stack
	c.endOfStatement()
}

func (c *Compiler) parseDottedName() string {
	c.expect(TokIdentifier, "expected module name")
	name := c.tokenText()
	for c.match(TokDot) {
		c.expect(TokIdentifier, "expected module name")
		name += "." + c.tokenText()
	}
	return name
}

func (c *Compiler) raiseStatement() {
	c.advance() // 'raise'
	c.expression()
	c.emitOp(OpRaise)
	c.endOfStatement()
}

// block parses one suite: either a single simple statement trailing
// the colon on the same line, or an indented multi-line block (§4.1,
// §4.2 off-side rule). The scanner hands the compiler a raw
// indentation length per logical line rather than precomputed INDENT/
// DEDENT tokens, so the compiler itself tracks currentIndent and
// compares each line's TokIndentation.Length against it: greater opens
// the block (remembering the new level), equal continues it, lesser
// (or running out of indentation tokens entirely, e.g. at EOF) closes
// it and leaves that token for the enclosing block/dispatcher to
// reprocess.
func (c *Compiler) block() {
	c.expect(TokColon, "expected ':'")
	if !c.check(TokEOL) {
		c.statement()
		return
	}
	c.advance() // EOL
	if !c.check(TokIndentation) {
		return // empty body, e.g. a line with only a trailing comment
	}
	blockIndent := c.current.Length
	if blockIndent <= c.currentIndent {
		c.errorAt(c.current, "expected an indented block")
		return
	}
	savedIndent := c.currentIndent
	c.currentIndent = blockIndent
	for {
		if !c.check(TokIndentation) || c.current.Length != blockIndent {
			break
		}
		c.advance() // consume this line's indentation token
		if c.check(TokEOF) {
			break
		}
		c.statement()
		if !c.check(TokEOL) && !c.check(TokIndentation) {
			break
		}
		for c.check(TokEOL) {
			c.advance()
		}
	}
	c.currentIndent = savedIndent
}

// peekClauseKeyword looks past the current position for a same-level
// TokIndentation token followed immediately by one of kinds, and always
// restores the parser to its original position; a caller that gets true
// consumes the indentation and the keyword itself — the snapshot/restore
// technique compileComprehensionTail uses, reused here for `elif`/`else`
// and repeated `except` clause chaining.
func (c *Compiler) peekClauseKeyword(kinds ...TokenKind) bool {
	if !c.check(TokIndentation) || c.current.Length != c.currentIndent {
		return false
	}
	snap := c.snapshotParsePos()
	c.advance() // indentation
	for _, k := range kinds {
		if c.check(k) {
			c.restoreParsePos(snap)
			return true
		}
	}
	c.restoreParsePos(snap)
	return false
}

func (c *Compiler) ifStatement() {
	c.advance() // 'if'
	c.expression()
	thenJump := c.emitJump(OpJumpIfFalse)
	c.block()
	endJumps := []int{}
	for {
		if c.peekClauseKeyword(TokElif) {
			endJumps = append(endJumps, c.emitJump(OpJump))
			c.patchJump(thenJump)
			c.advance() // indentation
			c.advance() // 'elif'
			c.expression()
			thenJump = c.emitJump(OpJumpIfFalse)
			c.block()
			continue
		}
		break
	}
	if c.peekClauseKeyword(TokElse) {
		endJumps = append(endJumps, c.emitJump(OpJump))
		c.patchJump(thenJump)
		c.advance() // indentation
		c.advance() // 'else'
		c.block()
	} else {
		c.patchJump(thenJump)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

func (c *Compiler) whileStatement() {
	c.advance() // 'while'
	loopStart := c.chunk().Len()
	c.expression()
	exitJump := c.emitJump(OpJumpIfFalse)
	loop := &loopInfo{start: loopStart, continueLen: len(c.locals), breakLen: len(c.locals)}
	c.loops = append(c.loops, loop)
	c.beginScope()
	c.block()
	c.endScope()
	c.loops = c.loops[:len(c.loops)-1]
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	for _, j := range loop.breaks {
		c.patchJump(j)
	}
}

// forStatement compiles `for NAME in ITER: BODY`, reusing the same
// GET_ITER/INVOKE_ITER lowering compileComprehensionTail uses, but with
// an ordinary nested scope for the body (no bytecode-rewind needed:
// the loop variable never needs to appear inside an already-emitted
// expression here). break tears down the hidden iterator cursor too
// (breakLen one slot below continueLen), since break exits the loop
// for good while continue only needs the next INVOKE_ITER to find the
// cursor where it left it.
func (c *Compiler) forStatement() {
	c.advance() // 'for'
	c.expect(TokIdentifier, "expected loop variable")
	name := c.tokenText()
	c.expect(TokIn, "expected 'in'")
	c.expression()
	cursorSlot := len(c.locals)
	loopStart, exitJump, varSlot := c.emitForInHeader(name)
	loop := &loopInfo{start: loopStart, continueLen: varSlot, breakLen: cursorSlot}
	c.loops = append(c.loops, loop)
	c.beginScope()
	c.block()
	c.endScope()
	c.loops = c.loops[:len(c.loops)-1]
	c.emitForInFooter(loopStart, exitJump)
	c.locals = c.locals[:cursorSlot]
	for _, j := range loop.breaks {
		c.patchJump(j)
	}
}

// tryStatement compiles `try: BODY` followed by one or more `except
// [TYPE [as NAME]]: BODY` clauses (§4.4 PUSH_TRY, §7 exception
// propagation). Type matching reuses the isinstance() builtin rather
// than a dedicated opcode: `except TYPE:` compiles to an ordinary
// GET_GLOBAL+CALL of isinstance against the exception value
// handleException left on the stack. A bare `except:` always matches.
// No `finally`/`else` clause — deliberately out of scope.
func (c *Compiler) tryStatement() {
	c.advance() // 'try'
	handlerJump := c.emitJump(OpPushTry)
	c.block()
	c.emitOp(OpCleanupWith) // reused for normal try-block exit (§3 note on the opcode)
	afterJump := c.emitJump(OpJump)
	c.patchJump(handlerJump)

	excSlot := c.addLocal("")
	var clauseEndJumps []int
	matchedAny := false
	if c.peekClauseKeyword(TokExcept) {
		c.advance() // indentation
	}
	for {
		c.expect(TokExcept, "expected 'except'")
		var nextClauseJump int
		hasNextJump := false
		if !c.check(TokColon) {
			c.expression() // exception type
			c.emitGlobalCallNoArgsThenSwapArgs(excSlot)
			nextClauseJump = c.emitJump(OpJumpIfFalseNoPop)
			hasNextJump = true
			c.emitOp(OpPop)
		} else {
			matchedAny = true
		}
		asSlot := -1
		if c.match(TokAs) {
			c.expect(TokIdentifier, "expected name after 'as'")
			asSlot = c.addLocal(c.tokenText())
			c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
		}
		c.beginScope()
		c.block()
		c.endScope()
		_ = asSlot
		c.emitPopsToLen(excSlot) // drop the `as` binding (if any) and the exception value itself
		c.locals = c.locals[:excSlot]
		clauseEndJumps = append(clauseEndJumps, c.emitJump(OpJump))
		if hasNextJump {
			c.patchJump(nextClauseJump)
			c.emitOp(OpPop)
		}
		if !c.peekClauseKeyword(TokExcept) {
			break
		}
		c.advance() // indentation
	}
	if !matchedAny {
		c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
		c.emitOp(OpRaise)
	}
	for _, j := range clauseEndJumps {
		c.patchJump(j)
	}
	c.locals = c.locals[:excSlot]
	c.patchJump(afterJump)
}

// emitGlobalCallNoArgsThenSwapArgs compiles `isinstance(excLocal,
// <already-compiled type expr>)`: the type expression is already on
// top of the stack when this runs, so isinstance is fetched and swapped
// below it, the exception value pushed as the second argument, and the
// call made with the correct callee-then-args ordering.
func (c *Compiler) emitGlobalCallNoArgsThenSwapArgs(excSlot int) {
	idx := c.chunk().AddConstant(c.vm.stringValue("isinstance"))
	c.chunk().emitIndexed(OpGetGlobal, idx, c.previous.Line) // [typeExpr, isinstanceFn]
	c.emitOp(OpSwap)                                         // [isinstanceFn, typeExpr]
	c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
	c.emitOp(OpSwap) // [isinstanceFn, excValue, typeExpr]
	c.emitOp(OpCall)
	c.emitByte(2)
}

// withStatement compiles `with EXPR [as NAME]: BODY` (§4.4 PUSH_WITH,
// §3 context manager protocol). __enter__'s result is bound (or
// discarded); on normal exit __exit__(None, None, None) runs; on an
// exception escaping the body, handleException hands control to the
// PUSH_WITH target with the exception value on top of stack, and
// __exit__(type(exc), exc, None) decides whether to suppress it (a
// truthy return) or re-raise.
func (c *Compiler) withStatement() {
	c.advance() // 'with'
	c.expression()
	ctxSlot := c.addLocal("")
	enterIdx := c.chunk().AddConstant(c.vm.stringValue("__enter__"))
	exitIdx := c.chunk().AddConstant(c.vm.stringValue("__exit__"))
	c.chunk().emitIndexed(OpGetLocal, ctxSlot, c.previous.Line)
	c.chunk().emitIndexed(OpGetProperty, enterIdx, c.previous.Line)
	c.emitOp(OpCall)
	c.emitByte(0)
	if c.match(TokAs) {
		c.expect(TokIdentifier, "expected name after 'as'")
		c.addLocal(c.tokenText())
	} else {
		c.emitOp(OpPop)
	}

	excJump := c.emitJump(OpPushWith)
	c.beginScope()
	c.block()
	c.endScope()
	c.emitOp(OpCleanupWith)
	c.chunk().emitIndexed(OpGetLocal, ctxSlot, c.previous.Line)
	c.chunk().emitIndexed(OpGetProperty, exitIdx, c.previous.Line)
	c.emitOp(OpNone)
	c.emitOp(OpNone)
	c.emitOp(OpNone)
	c.emitOp(OpCall)
	c.emitByte(3)
	c.emitOp(OpPop)
	afterJump := c.emitJump(OpJump)

	c.patchJump(excJump)
	excSlot := c.addLocal("")
	c.chunk().emitIndexed(OpGetLocal, ctxSlot, c.previous.Line)
	c.chunk().emitIndexed(OpGetProperty, exitIdx, c.previous.Line)
	c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
	c.emitGlobalCall("type", 1)
	c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
	c.emitOp(OpNone)
	c.emitOp(OpCall)
	c.emitByte(3)
	suppressJump := c.emitJump(OpJumpIfTrue)
	c.chunk().emitIndexed(OpGetLocal, excSlot, c.previous.Line)
	c.emitOp(OpRaise)
	c.patchJump(suppressJump)
	c.emitOp(OpPop) // discard the exception, it's being suppressed
	c.locals = c.locals[:excSlot]

	c.patchJump(afterJump)
	c.emitPopsToLen(ctxSlot) // discard ctxVal (and the `as` binding, if any)
	c.locals = c.locals[:ctxSlot]
}

// defStatement compiles `def NAME(...): BODY` as sugar for binding a
// freshly closed-over function value to NAME, local or global
// depending on scope (§4.2).
func (c *Compiler) defStatement() {
	c.advance() // 'def'
	c.expect(TokIdentifier, "expected function name")
	name := c.tokenText()
	nameIdx := -1
	if c.scopeDepth == 0 {
		nameIdx = c.chunk().AddConstant(c.vm.stringValue(name))
	} else {
		c.addLocal(name) // visible to its own body for recursion
	}
	fn := c.compileFunctionBody(name, false)
	c.emitClosureFor(fn)
	if c.scopeDepth == 0 {
		c.chunk().emitIndexed(OpDefineGlobal, nameIdx, c.previous.Line)
	} else {
		c.chunk().emitIndexed(OpSetLocal, len(c.locals)-1, c.previous.Line)
	}
}

// classStatement compiles `class NAME[(BASE)]: BODY` into CLASS/
// INHERIT/per-method CLOSURE+METHOD/FINALIZE (§3, §4.2). Methods are
// just `def` bodies inside the suite; `self` resolves as the method's
// first declared parameter rather than a reserved slot (§4.4 calling
// convention — BoundMethod.Call prepends the receiver itself).
func (c *Compiler) classStatement() {
	c.advance() // 'class'
	c.expect(TokIdentifier, "expected class name")
	name := c.tokenText()
	nameIdx := -1
	if c.scopeDepth == 0 {
		nameIdx = c.chunk().AddConstant(c.vm.stringValue(name))
	} else {
		c.addLocal(name)
	}
	clsIdx := c.chunk().AddConstant(c.vm.stringValue(name))
	c.chunk().emitIndexed(OpClass, clsIdx, c.previous.Line)

	c.class = &ClassCompiler{enclosing: c.class, name: name}
	defer func() { c.class = c.class.enclosing }()

	if c.match(TokLParen) {
		c.expression()
		c.expect(TokRParen, "expected ')'")
		c.emitOp(OpInherit)
	}

	c.expect(TokColon, "expected ':'")
	c.expect(TokEOL, "expected newline")
	if !c.check(TokIndentation) {
		c.errorAt(c.current, "expected an indented class body")
		return
	}
	blockIndent := c.current.Length
	if blockIndent <= c.currentIndent {
		c.errorAt(c.current, "expected an indented class body")
		return
	}
	savedIndent := c.currentIndent
	c.currentIndent = blockIndent
	for c.check(TokIndentation) && c.current.Length == blockIndent {
		c.advance()
		if c.check(TokEOF) {
			break
		}
		if c.check(TokPass) {
			c.advance()
			c.endOfStatement()
			continue
		}
		if c.check(TokString) {
			// bare docstring line
			c.expression()
			c.emitOp(OpPop)
			c.endOfStatement()
			continue
		}
		c.expect(TokDef, "expected method definition in class body")
		c.expect(TokIdentifier, "expected method name")
		methodName := c.tokenText()
		methodIdx := c.chunk().AddConstant(c.vm.stringValue(methodName))
		fn := c.compileFunctionBody(methodName, false)
		fn.IsMethod = true
		fn.IsInitializer = methodName == "__init__"
		c.emitClosureFor(fn)
		c.chunk().emitIndexed(OpMethod, methodIdx, c.previous.Line)
		for c.check(TokEOL) {
			c.advance()
		}
	}
	c.currentIndent = savedIndent
	c.emitOp(OpFinalize)

	if c.scopeDepth == 0 {
		c.chunk().emitIndexed(OpDefineGlobal, nameIdx, c.previous.Line)
	} else {
		c.chunk().emitIndexed(OpSetLocal, len(c.locals)-1, c.previous.Line)
	}
}

// compileFunctionBody parses a parameter list and suite into a fresh
// nested Function (§3, §4.2). Every simple named parameter — defaulted
// or not — is counted into fn.Arity, never fn.KwArgs: pushClosureFrame
// only ever fills KwArgs slots by keyword lookup or None, never by
// position, so a defaulted positional parameter counted as a KwArg
// would silently lose a same-position positional call argument into
// the *args tuple (or drop it entirely without one). fn.KwArgs is
// reserved for keyword-only parameters declared after a bare `*` or a
// `*args` separator. A default value (for either kind of parameter) is
// realized by a prologue emitted into the body: if the slot still
// holds the None pushClosureFrame filled it with, evaluate the default
// expression and overwrite it.
func (c *Compiler) compileFunctionBody(name string, isLambda bool) *Function {
	fn := newFunctionObj(c.vm, name)
	fn.Module = c.module
	sub := &Compiler{vm: c.vm, scanner: c.scanner, module: c.module, fn: fn, enclosing: c, class: c.class}
	sub.current = c.current
	sub.previous = c.previous

	sub.scanner.BeginEatingWhitespace()
	sub.expect(TokLParen, "expected '(' after function name")
	seenStar := false
	for !sub.check(TokRParen) {
		if sub.match(TokStarStar) {
			sub.expect(TokIdentifier, "expected parameter name after '**'")
			fn.HasVarKwargs = true
			sub.addLocal(sub.tokenText())
		} else if sub.match(TokStar) {
			if sub.check(TokIdentifier) {
				sub.expect(TokIdentifier, "expected parameter name after '*'")
				fn.HasVarArgs = true
				sub.addLocal(sub.tokenText())
			}
			seenStar = true
		} else {
			pname := "self"
			if !sub.match(TokSelf) {
				sub.expect(TokIdentifier, "expected parameter name")
				pname = sub.tokenText()
			}
			_ = sub.addLocal(pname)
			hasDefault := false
			if sub.match(TokEq) {
				hasDefault = true
				sub.skipDefaultExprForSignature()
			}
			if seenStar {
				fn.KwArgs = append(fn.KwArgs, KwArg{Name: sub.vm.internString([]byte(pname)), HasDefault: hasDefault})
			} else {
				fn.Arity++
			}
		}
		if !sub.match(TokComma) {
			break
		}
	}
	sub.expect(TokRParen, "expected ')'")
	sub.scanner.EndEatingWhitespace()

	// Defaults are compiled a second time, now as real prologue
	// bytecode: GET_LOCAL slot; NONE; EQ; JUMP_IF_FALSE skip; <expr>;
	// SET_LOCAL slot; POP; skip:. Reusing a snapshot per default avoids
	// re-deriving each default expression's source span by hand.
	for _, d := range sub.paramDefaultSnaps {
		sub.chunk().emitIndexed(OpGetLocal, d.slot, sub.previous.Line)
		sub.emitOp(OpNone)
		sub.emitOp(OpEq)
		skip := sub.emitJump(OpJumpIfFalse)
		restore := sub.snapshotParsePos()
		sub.restoreParsePos(d.snap)
		sub.expression()
		sub.restoreParsePos(restore)
		sub.chunk().emitIndexed(OpSetLocal, d.slot, sub.previous.Line)
		sub.emitOp(OpPop)
		sub.patchJump(skip)
	}

	savedSawYield := sub.sawYield
	sub.sawYield = false
	sub.compileBody()
	fn.IsGenerator = sub.sawYield
	sub.sawYield = savedSawYield

	if !sub.hadError {
		sub.emitOp(OpNone)
		sub.emitOp(OpReturn)
	} else if c.firstErr == nil {
		c.hadError = true
		c.firstErr = sub.firstErr
	}
	c.current = sub.current
	c.previous = sub.previous
	return fn
}

// compileBody parses a function/lambda's suite: either a single
// expression (for lambdas, whose grammar has no block form) or the
// ordinary colon-suite block() handles.
func (c *Compiler) compileBody() {
	if c.fn.Name == "<lambda>" {
		c.expect(TokColon, "expected ':' in lambda")
		c.expression()
		c.emitOp(OpReturn)
		return
	}
	c.block()
}

// skipDefaultExprForSignature snapshots the default-value expression's
// start, parses-and-discards it once (to advance the scanner past it
// for signature parsing), and records the snapshot for the real
// prologue compile pass that happens once the full parameter list (and
// hence every local slot) is known.
func (c *Compiler) skipDefaultExprForSignature() {
	snap := c.snapshotParsePos()
	start := c.chunk().Len()
	c.expression()
	c.chunk().Code = c.chunk().Code[:start]
	c.paramDefaultSnaps = append(c.paramDefaultSnaps, paramDefaultSnap{slot: len(c.locals) - 1, snap: snap})
}

// emitClosureFor adds fn as a constant and emits CLOSURE/CLOSURE_LONG;
// upvalue descriptors travel on the Function object itself (populated
// by resolveUpvalue during the nested compile), so no extra operand
// bytes follow in the bytecode stream (§4.2).
func (c *Compiler) emitClosureFor(fn *Function) {
	idx := c.chunk().AddConstant(ObjectValue(fn))
	c.chunk().emitIndexed(OpClosure, idx, c.previous.Line)
}
