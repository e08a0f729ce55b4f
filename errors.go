package kuroko

import "fmt"

// CompileError is the error returned when scanning or compiling source
// text fails before any bytecode runs (§4.1, §4.2 "del on a closure-
// captured local is a compile-time SyntaxError", §7 SyntaxError).
// Grounded on the teacher's errors.go ParsingError (message + span),
// narrowed from a PEG grammar's per-production failure record to a
// single source position since Kuroko's compiler fails fast on the
// first syntax error rather than backtracking.
type CompileError struct {
	Message string
	Module  string
	Line    int
}

func (e CompileError) Error() string {
	return fmt.Sprintf("%s:%d: SyntaxError: %s", e.Module, e.Line, e.Message)
}
