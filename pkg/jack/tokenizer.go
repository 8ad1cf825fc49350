package jack

import (
	"strings"
)

// ----------------------------------------------------------------------------
// Tokenizer

// Tokenizer turns a raw Jack source buffer into a restartable sequence of Token.
// It never retains the input as an AST: the Compiler drives it token by token,
// using Peek for its one-token lookahead and Advance to commit to it.
type Tokenizer struct {
	src string
	pos int // Byte offset of the next un-consumed byte in 'src'
}

// Initializes and returns to the caller a brand new 'Tokenizer' over 'src'.
func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src, pos: 0}
}

// Returns the next Token without consuming it, along with the stream position
// right after it (handed back to 'Advance' to actually commit the move).
func (t *Tokenizer) Peek() (Token, int, error) {
	pos, err := t.skipTrivia(t.pos)
	if err != nil {
		return Token{}, pos, err
	}

	if pos >= len(t.src) {
		return Token{Kind: EndTok, Pos: pos}, pos, nil
	}

	c := t.src[pos]
	switch {
	case c == '"':
		return t.lexString(pos)
	case isDigit(c):
		return t.lexInt(pos)
	case isIdentStart(c):
		return t.lexIdentOrKeyword(pos)
	case Symbols[c]:
		return Token{Kind: SymbolTok, Value: string(c), Pos: pos}, pos + 1, nil
	default:
		return Token{}, pos, &LexError{Pos: pos, Message: "unrecognized character '" + string(c) + "'"}
	}
}

// Commits to the Token most recently returned by 'Peek', moving the stream forward.
func (t *Tokenizer) Advance(newPos int) {
	t.pos = newPos
}

// Consumes and discards whitespace, line comments ('//') and block comments
// ('/*'..'*/', including the javadoc-style '/**' opener). Returns the offset of
// the next meaningful byte, or len(src) if only trivia remains.
func (t *Tokenizer) skipTrivia(pos int) (int, error) {
	for pos < len(t.src) {
		c := t.src[pos]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			pos++
		case strings.HasPrefix(t.src[pos:], "//"):
			for pos < len(t.src) && t.src[pos] != '\n' {
				pos++
			}
		case strings.HasPrefix(t.src[pos:], "/*"):
			end := strings.Index(t.src[pos+2:], "*/")
			if end == -1 {
				return pos, &LexError{Pos: pos, Message: "unterminated block comment"}
			}
			pos = pos + 2 + end + 2
		default:
			return pos, nil
		}
	}
	return pos, nil
}

// Lexes a string constant starting at 'start' (which points at the opening '"').
// Embedded newlines are not permitted, matching the language definition.
func (t *Tokenizer) lexString(start int) (Token, int, error) {
	pos := start + 1
	for pos < len(t.src) && t.src[pos] != '"' {
		if t.src[pos] == '\n' {
			return Token{}, pos, &LexError{Pos: start, Message: "unterminated string constant (embedded newline)"}
		}
		pos++
	}
	if pos >= len(t.src) {
		return Token{}, pos, &LexError{Pos: start, Message: "unterminated string constant"}
	}
	return Token{Kind: StringTok, Value: t.src[start+1 : pos], Pos: start}, pos + 1, nil
}

// Lexes an integer constant, validating it falls within the representable [0, 32767] range.
func (t *Tokenizer) lexInt(start int) (Token, int, error) {
	pos := start
	for pos < len(t.src) && isDigit(t.src[pos]) {
		pos++
	}

	raw := t.src[start:pos]
	value := 0
	for _, d := range raw {
		value = value*10 + int(d-'0')
		if value > 32767 {
			return Token{}, pos, &LexError{Pos: start, Message: "integer constant '" + raw + "' out of range [0, 32767]"}
		}
	}

	return Token{Kind: IntTok, Value: raw, Pos: start}, pos, nil
}

// Lexes an identifier, then reclassifies it as a keyword if it belongs to the closed set.
func (t *Tokenizer) lexIdentOrKeyword(start int) (Token, int, error) {
	pos := start
	for pos < len(t.src) && isIdentPart(t.src[pos]) {
		pos++
	}

	raw := t.src[start:pos]
	if Keywords[raw] {
		return Token{Kind: KeywordTok, Value: raw, Pos: start}, pos, nil
	}
	return Token{Kind: IdentTok, Value: raw, Pos: start}, pos, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
