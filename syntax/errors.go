package syntax

import "fmt"

// Error is a syntax error with its source position. FileName is empty when
// the parse was given no file name.
type Error struct {
	Message    string
	FileName   string
	LineNumber int
}

func (e *Error) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("SyntaxError: %s in %s:%d", e.Message, e.FileName, e.LineNumber)
	}
	return fmt.Sprintf("SyntaxError: %s", e.Message)
}

func (l *Lexer) syntaxError(format string, args ...any) *Error {
	return &Error{
		Message:    fmt.Sprintf(format, args...),
		FileName:   l.file,
		LineNumber: l.line,
	}
}
