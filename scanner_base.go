package kuroko

// Scanner is the indentation-aware lexer (§4.1). It wraps a
// sourceCursor with line/column tracking, a one-token pushback slot,
// and an "eating whitespace" depth the compiler increments around
// expressions that may span physical lines (e.g. inside parens).
//
// Grounded on the teacher's base_parser.go (byte-position bookkeeping,
// line/column tracking) and parser.go (the token-producing methods
// built on top of it); both rewritten here since a PEG grammar source
// has no indentation rule and Kuroko's does.
type Scanner struct {
	src    []byte
	cursor sourceCursor
	module string

	line      int
	col       int
	startLine int
	startCol  int

	pushedBack *Token
	eatingWS   int // >0 while the compiler suppresses INDENTATION/EOL tokens

	atLineStart bool
}

func NewScanner(src []byte, module string) *Scanner {
	return &Scanner{
		src:         src,
		cursor:      newSourceCursor(src),
		module:      module,
		line:        1,
		col:         1,
		atLineStart: true,
	}
}

func (s *Scanner) advance() (byte, bool) {
	b, err := s.cursor.readByte()
	if err != nil {
		return 0, false
	}
	if b == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return b, true
}

func (s *Scanner) peek() (byte, bool) {
	b, err := s.cursor.peekByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

func (s *Scanner) peekAt(offset int) (byte, bool) {
	pos := s.cursor.pos + offset
	if pos < 0 || pos >= len(s.src) {
		return 0, false
	}
	return s.src[pos], true
}

func (s *Scanner) match(c byte) bool {
	b, ok := s.peek()
	if !ok || b != c {
		return false
	}
	s.advance()
	return true
}

// BeginEatingWhitespace/EndEatingWhitespace let the compiler suppress
// INDENTATION/EOL tokens while inside an expression context that spans
// lines (parenthesized expressions, bracketed literals) — §4.1 "inside
// an eating whitespace mode... the compiler increments/decrements this
// count explicitly."
func (s *Scanner) BeginEatingWhitespace() { s.eatingWS++ }
func (s *Scanner) EndEatingWhitespace()   { s.eatingWS-- }

// Unget pushes back a single already-produced token (§4.1 "exactly one
// token of pushback").
func (s *Scanner) Unget(t Token) { s.pushedBack = &t }

func (s *Scanner) errorToken(msg string) Token {
	return Token{Kind: TokError, Line: s.startLine, Column: s.startCol, Message: msg}
}
