package jack

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Jack programming language.
//
// A program is a set of classes, each compiled independently to its own VM module (just
// like a Java '.class' file). The Compiler in this package is single-pass and emission
// driven: no AST is retained, each grammar production emits VM operations directly as it
// is recognized, relying on the Tokenizer's one-token lookahead and a pair of scoped
// symbol tables (class-level and subroutine-level) to resolve names as they're seen.

// ----------------------------------------------------------------------------
// Tokens

// TokenKind identifies the lexical category a Token belongs to.
type TokenKind string

const (
	KeywordTok TokenKind = "keyword"
	SymbolTok  TokenKind = "symbol"
	IdentTok   TokenKind = "identifier"
	IntTok     TokenKind = "int_const"
	StringTok  TokenKind = "string_const"
	EndTok     TokenKind = "end"
)

// Token is a single lexical unit produced by the Tokenizer.
type Token struct {
	Kind  TokenKind
	Value string // Raw text for keyword/symbol/identifier/string_const, decimal digits for int_const
	Pos   int    // Byte offset in the source where the token starts, used for error reporting
}

// Keywords is the closed set of reserved words in the Jack language.
var Keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true,
	"int": true, "char": true, "boolean": true, "void": true,
	"true": true, "false": true, "null": true, "this": true,
	"let": true, "do": true, "if": true, "else": true, "while": true, "return": true,
}

// Symbols is the closed set of single-character symbols in the Jack language.
var Symbols = map[byte]bool{
	'{': true, '}': true, '(': true, ')': true, '[': true, ']': true,
	'.': true, ',': true, ';': true,
	'+': true, '-': true, '*': true, '/': true, '&': true, '|': true,
	'<': true, '>': true, '=': true, '~': true,
}

// ----------------------------------------------------------------------------
// Variables

// Variables are containers of value that can be read/written through expressions/statements.
//
// The declared 'Variable' struct accommodates multiple configurations at the same time:
// - Static & instanced fields for classes
// - Local variables and parameters for subroutines
type Variable struct {
	Name     string   // The var name, acts as identifier in the scope it is declared
	Type     VarType  // The variable kind, determines which segment it's backed by
	DataType DataType // The data type, defines how to read or cast the value contained
	Index    uint16   // Dense, zero-based offset inside the segment 'Type' maps to
}

type VarType string // Enum to manage the kind of a Variable

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

// DataType describes the static type of a Variable or expression result. 'Subtype' is only
// meaningful when 'Main' is Object, in which case it names the Jack class of the instance.
type DataType struct {
	Main    DataTypeKind
	Subtype string
}

type DataTypeKind string // Enum to manage the primitive kind of a DataType

const (
	Int    DataTypeKind = "int"
	Bool   DataTypeKind = "boolean"
	Char   DataTypeKind = "char"
	Null   DataTypeKind = "null"
	String DataTypeKind = "string"
	Void   DataTypeKind = "void"
	Object DataTypeKind = "object"
)

// ----------------------------------------------------------------------------
// Subroutines

type SubroutineType string // Enum to manage the different kinds a Subroutine can have

const (
	Method      SubroutineType = "method"
	Function    SubroutineType = "function"
	Constructor SubroutineType = "constructor"
)
