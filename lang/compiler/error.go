package compiler

import (
	"fmt"
	"strings"

	"github.com/mna/wisp/lang/token"
)

// A CompileErr is a single diagnostic produced while compiling, formatted
// per spec.md §7: "[line L] Error at '<lexeme>': <message>".
type CompileErr struct {
	Line    int
	Where   string // "" for a message with no particular token, "end" for EOF
	Message string
}

func (e CompileErr) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Where, e.Message)
}

// A CompileError collects every diagnostic reported during a single
// compilation. Compile returns one of these (never a bare CompileErr) so
// callers can range over every error that was reported, not just the
// first.
type CompileError struct {
	Errs []CompileErr
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Errs))
	for i, er := range e.Errs {
		lines[i] = er.Error()
	}
	return strings.Join(lines, "\n")
}

func (e *CompileError) add(line int, tok token.Token, msg string) {
	where := fmt.Sprintf("'%s'", tok.Lexeme)
	switch tok.Kind {
	case token.EOF:
		where = "end"
	case token.ILLEGAL:
		where = ""
	}
	e.Errs = append(e.Errs, CompileErr{Line: line, Where: where, Message: msg})
}
