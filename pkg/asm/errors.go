package asm

import "fmt"

// ----------------------------------------------------------------------------
// Errors

// SyntaxError reports Asm source that doesn't fit the language: input the
// combinators couldn't parse, a malformed A Instruction (e.g. an address
// literal past the 15 bit range) or a C Instruction missing its mandatory
// sub-instructions. Callers can pick it out of a failed pipeline run with
// 'errors.As' instead of matching on message text.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("asm syntax error: %s", e.Message)
}
