package jack

import "fmt"

// ----------------------------------------------------------------------------
// Errors

// This section defines the error kinds surfaced by the Tokenizer and Compiler.
//
// Every error carries the byte offset the failure was detected at so that a caller
// can translate it to a line/column pair against the original source if it wants to.

// LexError reports a malformed token: an unrecognized character, an unterminated
// string constant, an unterminated block comment or an out-of-range integer constant.
type LexError struct {
	Pos     int    // Byte offset in the source where the error was detected
	Message string // Human readable description of what went wrong
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Pos, e.Message)
}

// ParseError reports a token that doesn't fit the grammar production being parsed.
type ParseError struct {
	Pos     int    // Byte offset of the offending token
	Message string // Human readable description of what was expected
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
}

// UndeclaredSymbolError reports a 'let'/read/call on a name absent from both the
// subroutine and the class symbol table.
type UndeclaredSymbolError struct {
	Pos  int
	Name string
}

func (e *UndeclaredSymbolError) Error() string {
	return fmt.Sprintf("undeclared symbol '%s' at offset %d", e.Name, e.Pos)
}
