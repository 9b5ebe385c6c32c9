// Package compiler implements a single-pass Pratt parser that emits
// bytecode directly as it parses, with no intermediate AST and no
// separate resolution pass: lexical scope (locals, upvalues, globals) is
// resolved on the fly as each identifier is parsed.
package compiler

import (
	"strconv"

	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
)

// maxLocals is the number of local-variable slots a single function may
// declare; locals are addressed by a single byte slot index.
const maxLocals = 256

// maxUpvalues mirrors maxLocals: upvalues are also addressed by a single
// byte index.
const maxUpvalues = 256

// maxArity is the largest number of parameters a function may declare.
const maxArity = 255

// maxJump is the largest forward/backward distance a JUMP/JUMP_IF_FALSE/LOOP
// can encode in its 16-bit offset.
const maxJump = 1<<16 - 1

// precedence levels, lowest to highest, per spec.md §4.5.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// prefix and infix handlers receive the per-function compiler state they
// are emitting into (f) and whether the parsed expression may legally be
// an assignment target (canAssign), per spec.md §4.5.
type (
	prefixFn func(p *parser, f *fstate, canAssign bool)
	infixFn  func(p *parser, f *fstate, canAssign bool)
)

type parseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:  {(*parser).grouping, (*parser).call, precCall},
		token.MINUS:   {(*parser).unary, (*parser).binary, precTerm},
		token.PLUS:    {nil, (*parser).binary, precTerm},
		token.SLASH:   {nil, (*parser).binary, precFactor},
		token.STAR:    {nil, (*parser).binary, precFactor},
		token.BANG:    {(*parser).unary, nil, precNone},
		token.BANG_EQ: {nil, (*parser).binary, precEquality},
		token.EQ_EQ:   {nil, (*parser).binary, precEquality},
		token.GT:      {nil, (*parser).binary, precComparison},
		token.GT_EQ:   {nil, (*parser).binary, precComparison},
		token.LT:      {nil, (*parser).binary, precComparison},
		token.LT_EQ:   {nil, (*parser).binary, precComparison},
		token.IDENT:   {(*parser).variable, nil, precNone},
		token.STRING:  {(*parser).stringLit, nil, precNone},
		token.NUMBER:  {(*parser).number, nil, precNone},
		token.AND:     {nil, (*parser).and, precAnd},
		token.OR:      {nil, (*parser).or, precOr},
		token.FALSE:   {(*parser).literal, nil, precNone},
		token.TRUE:    {(*parser).literal, nil, precNone},
		token.NIL:     {(*parser).literal, nil, precNone},
	}
}

func (p *parser) getRule(k token.Kind) parseRule { return rules[k] }

type fnKind int

const (
	fnScript fnKind = iota
	fnFunction
)

type local struct {
	name       string
	depth      int // -1: declared but not yet initialized
	isCaptured bool
}

// fstate holds the compiler state for one nested function (the "linked
// stack of Compiler records" from spec.md §9, here a plain pointer chain
// rather than recursion through global state).
type fstate struct {
	enclosing  *fstate
	fn         *FunctionProto
	kind       fnKind
	locals     []local
	upvalues   []UpvalueRef
	scopeDepth int
}

// parser holds everything shared across the whole compilation: the token
// stream and error-reporting state. The per-function state (fstate) is
// threaded through explicitly as a parameter instead of living on parser,
// so every emit helper makes plain which function's chunk it targets.
type parser struct {
	scan *scanner.Scanner
	prev token.Token
	cur  token.Token

	hadError  bool
	panicMode bool
	errs      *CompileError
}

// Compile compiles source into a top-level FunctionProto. On success the
// error is nil; on failure it is always a *CompileError listing every
// diagnostic reported during the attempt (compilation does not stop at the
// first error, see spec.md §7 on panic-mode recovery).
func Compile(source string) (*FunctionProto, error) {
	var sc scanner.Scanner
	sc.Init(source)

	p := &parser{scan: &sc, errs: &CompileError{}}
	f := &fstate{kind: fnScript, fn: &FunctionProto{Chunk: newChunk()}}

	p.advance()
	for !p.check(token.EOF) {
		p.declaration(f)
	}
	fn := p.endFunction(f)

	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

// --- token stream plumbing -------------------------------------------------

func (p *parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.scan.Scan()
		if p.cur.Kind != token.ILLEGAL {
			break
		}
		p.errorAt(p.cur, p.cur.Lexeme)
	}
}

func (p *parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.cur.Kind == k {
		p.advance()
		return
	}
	p.errorAt(p.cur, msg)
}

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs.add(tok.Line, tok, msg)
}

func (p *parser) error(msg string)      { p.errorAt(p.prev, msg) }
func (p *parser) errorAtCur(msg string) { p.errorAt(p.cur, msg) }

// synchronize resynchronizes the parser after an error by discarding
// tokens until a likely statement boundary, per spec.md §4.5.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.cur.Kind != token.EOF {
		if p.prev.Kind == token.SEMICOLON {
			return
		}
		switch p.cur.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- bytecode emission -----------------------------------------------------

func (f *fstate) chunk() *Chunk { return f.fn.Chunk }

func (p *parser) emitByte(f *fstate, b byte) int { return f.chunk().writeByte(b, p.prev.Line) }

func (p *parser) emitOp(f *fstate, op Opcode) int { return p.emitByte(f, byte(op)) }

func (p *parser) emitOpByte(f *fstate, op Opcode, arg byte) {
	p.emitOp(f, op)
	p.emitByte(f, arg)
}

// emitJump emits a jump opcode with a placeholder 2-byte offset and returns
// the offset of the first placeholder byte, to be patched later.
func (p *parser) emitJump(f *fstate, op Opcode) int {
	p.emitOp(f, op)
	p.emitByte(f, 0xff)
	p.emitByte(f, 0xff)
	return len(f.chunk().Code) - 2
}

// patchJump backpatches the 2-byte forward offset at offset so that it
// lands on the current end of the chunk, measured from the byte right
// after the 2-byte operand (spec.md §4.5 "Jump encoding").
func (p *parser) patchJump(f *fstate, offset int) {
	jump := len(f.chunk().Code) - offset - 2
	if jump > maxJump {
		p.error("too much code to jump over")
		return
	}
	f.chunk().Code[offset] = byte(jump >> 8)
	f.chunk().Code[offset+1] = byte(jump)
}

// emitLoop emits a LOOP instruction that jumps back to loopStart.
func (p *parser) emitLoop(f *fstate, loopStart int) {
	p.emitOp(f, LOOP)
	offset := len(f.chunk().Code) - loopStart + 2
	if offset > maxJump {
		p.error("loop body too large")
		return
	}
	p.emitByte(f, byte(offset>>8))
	p.emitByte(f, byte(offset))
}

func (p *parser) makeConstant(f *fstate, v any) uint8 {
	idx, err := f.chunk().addConstant(v)
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return idx
}

func (p *parser) emitConstant(f *fstate, v any) {
	p.emitOpByte(f, CONST, p.makeConstant(f, v))
}

func (p *parser) emitReturn(f *fstate) {
	p.emitOp(f, NIL)
	p.emitOp(f, RETURN)
}

// --- scope & variable resolution -------------------------------------------

func (f *fstate) beginScope() { f.scopeDepth++ }

func (p *parser) endScope(f *fstate) {
	f.scopeDepth--
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scopeDepth {
		last := f.locals[len(f.locals)-1]
		if last.isCaptured {
			p.emitOp(f, CLOSE_UPVALUE)
		} else {
			p.emitOp(f, POP)
		}
		f.locals = f.locals[:len(f.locals)-1]
	}
}

func (p *parser) addLocal(f *fstate, name string) {
	if len(f.locals) >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	f.locals = append(f.locals, local{name: name, depth: -1})
}

func (p *parser) declareVariable(f *fstate, name string) {
	if f.scopeDepth == 0 {
		return
	}
	for i := len(f.locals) - 1; i >= 0; i-- {
		l := f.locals[i]
		if l.depth != -1 && l.depth < f.scopeDepth {
			break
		}
		if l.name == name {
			p.error("already a variable with this name in this scope")
			return
		}
	}
	p.addLocal(f, name)
}

func (p *parser) markInitialized(f *fstate) {
	if f.scopeDepth == 0 {
		return
	}
	f.locals[len(f.locals)-1].depth = f.scopeDepth
}

func (p *parser) defineVariable(f *fstate, global uint8) {
	if f.scopeDepth > 0 {
		p.markInitialized(f)
		return
	}
	p.emitOpByte(f, DEFINE_GLOBAL, global)
}

func resolveLocal(p *parser, f *fstate, name string) (int, bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			if f.locals[i].depth == -1 {
				p.error("can't read local variable in its own initializer")
			}
			return i, true
		}
	}
	return -1, false
}

func addUpvalue(p *parser, f *fstate, index uint8, isLocal bool) int {
	for i, uv := range f.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(f.upvalues) >= maxUpvalues {
		p.error("too many closure variables in function")
		return 0
	}
	f.upvalues = append(f.upvalues, UpvalueRef{IsLocal: isLocal, Index: index})
	return len(f.upvalues) - 1
}

func resolveUpvalue(p *parser, f *fstate, name string) (int, bool) {
	if f.enclosing == nil {
		return -1, false
	}
	if i, ok := resolveLocal(p, f.enclosing, name); ok {
		f.enclosing.locals[i].isCaptured = true
		return addUpvalue(p, f, uint8(i), true), true
	}
	if i, ok := resolveUpvalue(p, f.enclosing, name); ok {
		return addUpvalue(p, f, uint8(i), false), true
	}
	return -1, false
}

func (p *parser) identifierConstant(f *fstate, name string) uint8 {
	return p.makeConstant(f, name)
}

// --- expressions -------------------------------------------------------

func (p *parser) parsePrecedence(f *fstate, prec precedence) {
	p.advance()
	rule := p.getRule(p.prev.Kind)
	if rule.prefix == nil {
		p.error("expected expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, f, canAssign)

	for prec <= p.getRule(p.cur.Kind).precedence {
		p.advance()
		infix := p.getRule(p.prev.Kind).infix
		infix(p, f, canAssign)
	}

	if canAssign && p.check(token.EQ) {
		p.errorAtCur("invalid assignment target")
	}
}

func (p *parser) expression(f *fstate) { p.parsePrecedence(f, precAssignment) }

func (p *parser) number(f *fstate, _ bool) {
	v, err := strconv.ParseFloat(p.prev.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(f, v)
}

func (p *parser) stringLit(f *fstate, _ bool) {
	lit := p.prev.Lexeme
	p.emitConstant(f, lit[1:len(lit)-1]) // strip surrounding quotes
}

func (p *parser) literal(f *fstate, _ bool) {
	switch p.prev.Kind {
	case token.FALSE:
		p.emitOp(f, FALSE)
	case token.TRUE:
		p.emitOp(f, TRUE)
	case token.NIL:
		p.emitOp(f, NIL)
	}
}

func (p *parser) grouping(f *fstate, _ bool) {
	p.expression(f)
	p.consume(token.RPAREN, "expected ')' after expression")
}

func (p *parser) unary(f *fstate, _ bool) {
	opKind := p.prev.Kind
	p.parsePrecedence(f, precUnary)
	switch opKind {
	case token.MINUS:
		p.emitOp(f, NEGATE)
	case token.BANG:
		p.emitOp(f, NOT)
	}
}

func (p *parser) binary(f *fstate, _ bool) {
	opKind := p.prev.Kind
	rule := p.getRule(opKind)
	p.parsePrecedence(f, rule.precedence+1)

	switch opKind {
	case token.BANG_EQ:
		p.emitOp(f, EQUAL)
		p.emitOp(f, NOT)
	case token.EQ_EQ:
		p.emitOp(f, EQUAL)
	case token.GT:
		p.emitOp(f, GREATER)
	case token.GT_EQ:
		p.emitOp(f, LESS)
		p.emitOp(f, NOT)
	case token.LT:
		p.emitOp(f, LESS)
	case token.LT_EQ:
		p.emitOp(f, GREATER)
		p.emitOp(f, NOT)
	case token.PLUS:
		p.emitOp(f, ADD)
	case token.MINUS:
		p.emitOp(f, SUB)
	case token.STAR:
		p.emitOp(f, MUL)
	case token.SLASH:
		p.emitOp(f, DIV)
	}
}

func (p *parser) and(f *fstate, _ bool) {
	endJump := p.emitJump(f, JUMP_IF_FALSE)
	p.emitOp(f, POP)
	p.parsePrecedence(f, precAnd)
	p.patchJump(f, endJump)
}

func (p *parser) or(f *fstate, _ bool) {
	elseJump := p.emitJump(f, JUMP_IF_FALSE)
	endJump := p.emitJump(f, JUMP)
	p.patchJump(f, elseJump)
	p.emitOp(f, POP)
	p.parsePrecedence(f, precOr)
	p.patchJump(f, endJump)
}

func (p *parser) variable(f *fstate, canAssign bool) {
	p.namedVariable(f, p.prev.Lexeme, canAssign)
}

func (p *parser) namedVariable(f *fstate, name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg uint8

	if i, ok := resolveLocal(p, f, name); ok {
		getOp, setOp, arg = GET_LOCAL, SET_LOCAL, uint8(i)
	} else if i, ok := resolveUpvalue(p, f, name); ok {
		getOp, setOp, arg = GET_UPVALUE, SET_UPVALUE, uint8(i)
	} else {
		idx := p.identifierConstant(f, name)
		getOp, setOp, arg = GET_GLOBAL, SET_GLOBAL, idx
	}

	if canAssign && p.match(token.EQ) {
		p.expression(f)
		p.emitOpByte(f, setOp, arg)
		return
	}
	p.emitOpByte(f, getOp, arg)
}

func (p *parser) call(f *fstate, _ bool) {
	argc := p.argumentList(f)
	p.emitOpByte(f, CALL, argc)
}

func (p *parser) argumentList(f *fstate) uint8 {
	var argc int
	if !p.check(token.RPAREN) {
		for {
			p.expression(f)
			if argc == 255 {
				p.error("can't have more than 255 arguments")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')' after arguments")
	return uint8(argc)
}

// --- statements & declarations ---------------------------------------------

func (p *parser) declaration(f *fstate) {
	switch {
	case p.match(token.VAR):
		p.varDeclaration(f)
	case p.match(token.FUN):
		p.funDeclaration(f)
	default:
		p.statement(f)
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) varDeclaration(f *fstate) {
	p.consume(token.IDENT, "expected variable name")
	name := p.prev.Lexeme
	p.declareVariable(f, name)
	var global uint8
	if f.scopeDepth == 0 { // locals are addressed by slot, not by name
		global = p.identifierConstant(f, name)
	}

	if p.match(token.EQ) {
		p.expression(f)
	} else {
		p.emitOp(f, NIL)
	}
	p.consume(token.SEMICOLON, "expected ';' after variable declaration")
	p.defineVariable(f, global)
}

func (p *parser) funDeclaration(f *fstate) {
	p.consume(token.IDENT, "expected function name")
	name := p.prev.Lexeme
	p.declareVariable(f, name)
	if f.scopeDepth > 0 {
		p.markInitialized(f) // allow recursive reference from the body
	}
	var global uint8
	if f.scopeDepth == 0 {
		global = p.identifierConstant(f, name)
	}
	p.function(f, name, fnFunction)
	p.defineVariable(f, global)
}

// function compiles a nested function body into its own FunctionProto and
// emits the enclosing CLOSURE instruction plus its upvalue-capture pairs,
// per spec.md §4.5.1.
func (p *parser) function(enclosing *fstate, name string, kind fnKind) {
	nf := &fstate{
		enclosing: enclosing,
		kind:      kind,
		fn:        &FunctionProto{Name: name, Chunk: newChunk()},
	}
	nf.beginScope()

	p.consume(token.LPAREN, "expected '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			nf.fn.Arity++
			if nf.fn.Arity > maxArity {
				p.errorAtCur("can't have more than 255 parameters")
			}
			p.consume(token.IDENT, "expected parameter name")
			pname := p.prev.Lexeme
			p.declareVariable(nf, pname)
			p.defineVariable(nf, 0)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')' after parameters")
	p.consume(token.LBRACE, "expected '{' before function body")
	p.blockBody(nf)

	fn := p.endFunction(nf)

	idx := p.makeConstant(enclosing, fn)
	p.emitOpByte(enclosing, CLOSURE, idx)
	for _, uv := range fn.Upvalues {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		p.emitByte(enclosing, isLocal)
		p.emitByte(enclosing, uv.Index)
	}
}

// endFunction finalizes f: emits the implicit "return nil" tail and
// returns the completed FunctionProto, wiring in the upvalues computed
// while compiling the body.
func (p *parser) endFunction(f *fstate) *FunctionProto {
	p.emitReturn(f)
	f.fn.UpvalueCount = len(f.upvalues)
	f.fn.Upvalues = f.upvalues
	return f.fn
}

func (p *parser) blockBody(f *fstate) {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration(f)
	}
	p.consume(token.RBRACE, "expected '}' after block")
}

func (p *parser) block(f *fstate) {
	f.beginScope()
	p.blockBody(f)
	p.endScope(f)
}

func (p *parser) statement(f *fstate) {
	switch {
	case p.match(token.PRINT):
		p.printStatement(f)
	case p.match(token.IF):
		p.ifStatement(f)
	case p.match(token.WHILE):
		p.whileStatement(f)
	case p.match(token.FOR):
		p.forStatement(f)
	case p.match(token.RETURN):
		p.returnStatement(f)
	case p.match(token.LBRACE):
		p.block(f)
	default:
		p.expressionStatement(f)
	}
}

func (p *parser) printStatement(f *fstate) {
	p.expression(f)
	p.consume(token.SEMICOLON, "expected ';' after value")
	p.emitOp(f, PRINT)
}

func (p *parser) expressionStatement(f *fstate) {
	p.expression(f)
	p.consume(token.SEMICOLON, "expected ';' after expression")
	p.emitOp(f, POP)
}

func (p *parser) ifStatement(f *fstate) {
	p.consume(token.LPAREN, "expected '(' after 'if'")
	p.expression(f)
	p.consume(token.RPAREN, "expected ')' after condition")

	thenJump := p.emitJump(f, JUMP_IF_FALSE)
	p.emitOp(f, POP)
	p.statement(f)

	elseJump := p.emitJump(f, JUMP)
	p.patchJump(f, thenJump)
	p.emitOp(f, POP)

	if p.match(token.ELSE) {
		p.statement(f)
	}
	p.patchJump(f, elseJump)
}

func (p *parser) whileStatement(f *fstate) {
	loopStart := len(f.chunk().Code)
	p.consume(token.LPAREN, "expected '(' after 'while'")
	p.expression(f)
	p.consume(token.RPAREN, "expected ')' after condition")

	exitJump := p.emitJump(f, JUMP_IF_FALSE)
	p.emitOp(f, POP)
	p.statement(f)
	p.emitLoop(f, loopStart)

	p.patchJump(f, exitJump)
	p.emitOp(f, POP)
}

func (p *parser) forStatement(f *fstate) {
	f.beginScope()
	p.consume(token.LPAREN, "expected '(' after 'for'")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration(f)
	default:
		p.expressionStatement(f)
	}

	loopStart := len(f.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression(f)
		p.consume(token.SEMICOLON, "expected ';' after loop condition")
		exitJump = p.emitJump(f, JUMP_IF_FALSE)
		p.emitOp(f, POP)
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(f, JUMP)
		incrStart := len(f.chunk().Code)
		p.expression(f)
		p.emitOp(f, POP)
		p.consume(token.RPAREN, "expected ')' after for clauses")

		p.emitLoop(f, loopStart)
		loopStart = incrStart
		p.patchJump(f, bodyJump)
	}

	p.statement(f)
	p.emitLoop(f, loopStart)

	if exitJump != -1 {
		p.patchJump(f, exitJump)
		p.emitOp(f, POP)
	}
	p.endScope(f)
}

func (p *parser) returnStatement(f *fstate) {
	if f.kind == fnScript {
		p.error("can't return from top-level code")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn(f)
		return
	}
	p.expression(f)
	p.consume(token.SEMICOLON, "expected ';' after return value")
	p.emitOp(f, RETURN)
}
