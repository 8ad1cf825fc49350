package jack

import (
	"fmt"

	"hackstack.dev/n2t/pkg/vm"
)

// ----------------------------------------------------------------------------
// Compiler

// maxClassSearch bounds how many tokens the Compiler will skip while looking for the
// opening 'class' keyword before giving up, guarding against spinning forever on input
// that never contains one (e.g. an empty file or a file full of comments/garbage).
const maxClassSearch = 10_000

// Compiler is a single-pass, emission-driven recursive-descent front end for one Jack
// class. No AST is retained: each grammar production is recognized and immediately
// lowered to VM IR operations appended to 'out'. The Tokenizer supplies one token of
// lookahead via Peek/Advance, and 'symbols' resolves names as they're encountered.
type Compiler struct {
	tok     *Tokenizer
	symbols *SymbolTable

	class  string // Name of the class currently being compiled
	labelN int    // Monotonic counter for 'if'/'while' labels, reset per subroutine
	out    vm.Module
}

// Initializes and returns to the caller a brand new 'Compiler' reading from 'src'.
func NewCompiler(src string) *Compiler {
	return &Compiler{
		tok:     NewTokenizer(src),
		symbols: NewSymbolTable(),
	}
}

// Compile drives the whole 'class' production and returns the compiled VM module
// together with the class name it was emitted under (the caller uses it as the
// resulting '.vm' translation unit name).
func (c *Compiler) Compile() (string, vm.Module, error) {
	if err := c.skipToClass(); err != nil {
		return "", nil, err
	}
	if err := c.compileClass(); err != nil {
		return "", nil, err
	}
	return c.class, c.out, nil
}

// Advances past any leading tokens until the 'class' keyword is found, bounded by
// maxClassSearch to avoid an unbounded loop on malformed input with no class at all.
func (c *Compiler) skipToClass() error {
	for i := 0; i < maxClassSearch; i++ {
		tok, next, err := c.tok.Peek()
		if err != nil {
			return err
		}
		if tok.Kind == EndTok {
			return &ParseError{Pos: tok.Pos, Message: "expected 'class' declaration, found end of file"}
		}
		if tok.Kind == KeywordTok && tok.Value == "class" {
			return nil
		}
		c.tok.Advance(next)
	}
	return &ParseError{Pos: c.tok.pos, Message: "exceeded iteration cap while searching for 'class' keyword"}
}

// ----------------------------------------------------------------------------
// Class-level grammar

func (c *Compiler) compileClass() error {
	if err := c.expectKeyword("class"); err != nil {
		return err
	}
	name, err := c.expectIdent()
	if err != nil {
		return err
	}
	c.class = name

	if err := c.expectSymbol("{"); err != nil {
		return err
	}

	for c.atKeyword("static") || c.atKeyword("field") {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}
	for c.atKeyword("constructor") || c.atKeyword("function") || c.atKeyword("method") {
		if err := c.compileSubroutine(); err != nil {
			return err
		}
	}

	return c.expectSymbol("}")
}

func (c *Compiler) compileClassVarDec() error {
	kindTok, err := c.advance()
	if err != nil {
		return err
	}
	kind := VarType(kindTok.Value) // "static" or "field", both map 1:1 onto VarType values

	dtype, err := c.compileType()
	if err != nil {
		return err
	}

	for {
		name, err := c.expectIdent()
		if err != nil {
			return err
		}
		c.symbols.Define(name, dtype, kind)

		if c.atSymbol(",") {
			c.advance()
			continue
		}
		break
	}

	return c.expectSymbol(";")
}

// compileType consumes one of 'int'|'char'|'boolean'|'void' or a class name and returns
// the DataType it denotes. Used both for var declarations and subroutine return types.
func (c *Compiler) compileType() (DataType, error) {
	tok, err := c.advance()
	if err != nil {
		return DataType{}, err
	}

	switch {
	case tok.Kind == KeywordTok && tok.Value == "int":
		return DataType{Main: Int}, nil
	case tok.Kind == KeywordTok && tok.Value == "char":
		return DataType{Main: Char}, nil
	case tok.Kind == KeywordTok && tok.Value == "boolean":
		return DataType{Main: Bool}, nil
	case tok.Kind == KeywordTok && tok.Value == "void":
		return DataType{Main: Void}, nil
	case tok.Kind == IdentTok:
		return DataType{Main: Object, Subtype: tok.Value}, nil
	default:
		return DataType{}, &ParseError{Pos: tok.Pos, Message: "expected a type, found '" + tok.Value + "'"}
	}
}

// ----------------------------------------------------------------------------
// Subroutine-level grammar

func (c *Compiler) compileSubroutine() error {
	kindTok, err := c.advance() // 'constructor' | 'function' | 'method'
	if err != nil {
		return err
	}
	subKind := SubroutineType(kindTok.Value)

	if _, err := c.compileType(); err != nil { // Return type, unused by codegen beyond validation
		return err
	}

	name, err := c.expectIdent()
	if err != nil {
		return err
	}

	c.symbols.StartSubroutine()
	c.labelN = 0

	if subKind == Method {
		c.symbols.Define("this", DataType{Main: Object, Subtype: c.class}, Parameter)
	}

	if err := c.expectSymbol("("); err != nil {
		return err
	}
	if err := c.compileParamList(); err != nil {
		return err
	}
	if err := c.expectSymbol(")"); err != nil {
		return err
	}

	if err := c.expectSymbol("{"); err != nil {
		return err
	}
	for c.atKeyword("var") {
		if err := c.compileVarDec(); err != nil {
			return err
		}
	}

	// The preamble is emitted only now, since 'function' needs the final local count.
	c.out = append(c.out, vm.FuncDecl{
		Name:   fmt.Sprintf("%s.%s", c.class, name),
		NLocal: c.symbols.LocalCount(),
	})

	switch subKind {
	case Method:
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0})
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0})
	case Constructor:
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: c.symbols.FieldCount()})
		c.out = append(c.out, vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1})
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0})
	}

	for !c.atSymbol("}") {
		if err := c.compileStatement(); err != nil {
			return err
		}
	}
	return c.expectSymbol("}")
}

func (c *Compiler) compileParamList() error {
	if c.atSymbol(")") {
		return nil
	}
	for {
		dtype, err := c.compileType()
		if err != nil {
			return err
		}
		name, err := c.expectIdent()
		if err != nil {
			return err
		}
		c.symbols.Define(name, dtype, Parameter)

		if c.atSymbol(",") {
			c.advance()
			continue
		}
		return nil
	}
}

func (c *Compiler) compileVarDec() error {
	if err := c.expectKeyword("var"); err != nil {
		return err
	}
	dtype, err := c.compileType()
	if err != nil {
		return err
	}
	for {
		name, err := c.expectIdent()
		if err != nil {
			return err
		}
		c.symbols.Define(name, dtype, Local)

		if c.atSymbol(",") {
			c.advance()
			continue
		}
		break
	}
	return c.expectSymbol(";")
}

// ----------------------------------------------------------------------------
// Statements

func (c *Compiler) compileStatement() error {
	switch {
	case c.atKeyword("let"):
		return c.compileLet()
	case c.atKeyword("if"):
		return c.compileIf()
	case c.atKeyword("while"):
		return c.compileWhile()
	case c.atKeyword("do"):
		return c.compileDo()
	case c.atKeyword("return"):
		return c.compileReturn()
	default:
		tok, _, _ := c.tok.Peek()
		return &ParseError{Pos: tok.Pos, Message: "expected a statement, found '" + tok.Value + "'"}
	}
}

func (c *Compiler) compileLet() error {
	if err := c.expectKeyword("let"); err != nil {
		return err
	}
	nameTok, _, _ := c.tok.Peek()
	name, err := c.expectIdent()
	if err != nil {
		return err
	}
	v, found := c.symbols.Resolve(name)
	if !found {
		return &UndeclaredSymbolError{Pos: nameTok.Pos, Name: name}
	}
	seg, err := v.Segment()
	if err != nil {
		return err
	}

	if c.atSymbol("[") { // Array write: let x[e1] = e2
		c.advance()
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectSymbol("]"); err != nil {
			return err
		}
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: seg, Offset: v.Index})
		c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Add})

		if err := c.expectSymbol("="); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectSymbol(";"); err != nil {
			return err
		}

		c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0})
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1})
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 0})
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0})
		return nil
	}

	if err := c.expectSymbol("="); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(";"); err != nil {
		return err
	}
	c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: seg, Offset: v.Index})
	return nil
}

func (c *Compiler) compileIf() error {
	if err := c.expectKeyword("if"); err != nil {
		return err
	}
	if err := c.expectSymbol("("); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(")"); err != nil {
		return err
	}

	lElse, lEnd := c.nextLabel(), c.nextLabel()

	c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Not})
	c.out = append(c.out, vm.GotoOp{Jump: vm.Conditional, Label: lElse})

	if err := c.expectSymbol("{"); err != nil {
		return err
	}
	for !c.atSymbol("}") {
		if err := c.compileStatement(); err != nil {
			return err
		}
	}
	if err := c.expectSymbol("}"); err != nil {
		return err
	}

	if c.atKeyword("else") {
		c.advance()
		c.out = append(c.out, vm.GotoOp{Jump: vm.Unconditional, Label: lEnd})
		c.out = append(c.out, vm.LabelDecl{Name: lElse})

		if err := c.expectSymbol("{"); err != nil {
			return err
		}
		for !c.atSymbol("}") {
			if err := c.compileStatement(); err != nil {
				return err
			}
		}
		if err := c.expectSymbol("}"); err != nil {
			return err
		}
		c.out = append(c.out, vm.LabelDecl{Name: lEnd})
		return nil
	}

	c.out = append(c.out, vm.LabelDecl{Name: lElse})
	return nil
}

func (c *Compiler) compileWhile() error {
	if err := c.expectKeyword("while"); err != nil {
		return err
	}

	lTop, lEnd := c.nextLabel(), c.nextLabel()
	c.out = append(c.out, vm.LabelDecl{Name: lTop})

	if err := c.expectSymbol("("); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(")"); err != nil {
		return err
	}

	c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Not})
	c.out = append(c.out, vm.GotoOp{Jump: vm.Conditional, Label: lEnd})

	if err := c.expectSymbol("{"); err != nil {
		return err
	}
	for !c.atSymbol("}") {
		if err := c.compileStatement(); err != nil {
			return err
		}
	}
	if err := c.expectSymbol("}"); err != nil {
		return err
	}

	c.out = append(c.out, vm.GotoOp{Jump: vm.Unconditional, Label: lTop})
	c.out = append(c.out, vm.LabelDecl{Name: lEnd})
	return nil
}

func (c *Compiler) compileDo() error {
	if err := c.expectKeyword("do"); err != nil {
		return err
	}
	if err := c.compileSubroutineCall(); err != nil {
		return err
	}
	if err := c.expectSymbol(";"); err != nil {
		return err
	}
	c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0})
	return nil
}

func (c *Compiler) compileReturn() error {
	if err := c.expectKeyword("return"); err != nil {
		return err
	}
	if !c.atSymbol(";") {
		if err := c.compileExpression(); err != nil {
			return err
		}
	} else {
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0})
	}
	if err := c.expectSymbol(";"); err != nil {
		return err
	}
	c.out = append(c.out, vm.ReturnOp{})
	return nil
}

// ----------------------------------------------------------------------------
// Expressions

var binaryOps = map[string]vm.ArithOpType{
	"+": vm.Add, "-": vm.Sub, "&": vm.And, "|": vm.Or, "<": vm.Lt, ">": vm.Gt, "=": vm.Eq,
}

// Every operand term is emitted as soon as it's parsed, the operators are held back and
// emitted once the whole expression is consumed, last operator first.
func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}

	ops := []vm.Operation{}
	flush := func() {
		for i := len(ops) - 1; i >= 0; i-- {
			c.out = append(c.out, ops[i])
		}
	}

	for {
		tok, _, _ := c.tok.Peek()
		if tok.Kind != SymbolTok {
			flush()
			return nil
		}

		switch tok.Value {
		case "*":
			c.advance()
			if err := c.compileTerm(); err != nil {
				return err
			}
			ops = append(ops, vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})
		case "/":
			c.advance()
			if err := c.compileTerm(); err != nil {
				return err
			}
			ops = append(ops, vm.FuncCallOp{Name: "Math.divide", NArgs: 2})
		default:
			op, isOp := binaryOps[tok.Value]
			if !isOp {
				flush()
				return nil
			}
			c.advance()
			if err := c.compileTerm(); err != nil {
				return err
			}
			ops = append(ops, vm.ArithmeticOp{Operation: op})
		}
	}
}

func (c *Compiler) compileTerm() error {
	tok, next, err := c.tok.Peek()
	if err != nil {
		return err
	}

	switch {
	case tok.Kind == IntTok:
		c.advance()
		n := parseUint16(tok.Value)
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: n})
		return nil

	case tok.Kind == StringTok:
		c.advance()
		return c.compileStringConst(tok.Value)

	case tok.Kind == KeywordTok && (tok.Value == "true" || tok.Value == "false" || tok.Value == "null" || tok.Value == "this"):
		c.advance()
		switch tok.Value {
		case "true":
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0})
			c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Not})
		case "false", "null":
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0})
		case "this":
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0})
		}
		return nil

	case tok.Kind == SymbolTok && tok.Value == "(":
		c.advance()
		if err := c.compileExpression(); err != nil {
			return err
		}
		return c.expectSymbol(")")

	case tok.Kind == SymbolTok && (tok.Value == "-" || tok.Value == "~"):
		c.advance()
		if err := c.compileTerm(); err != nil {
			return err
		}
		if tok.Value == "-" {
			c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Neg})
		} else {
			c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Not})
		}
		return nil

	case tok.Kind == IdentTok:
		// Lookahead beyond the identifier decides between a bare name, an array
		// read, or a subroutine call: Peek only ever gives us one token, so we
		// commit to the identifier first and then re-peek for what follows.
		c.tok.Advance(next)
		following, followNext, err := c.tok.Peek()
		if err != nil {
			return err
		}

		if following.Kind == SymbolTok && following.Value == "[" {
			c.tok.Advance(followNext)
			if err := c.compileExpression(); err != nil {
				return err
			}
			if err := c.expectSymbol("]"); err != nil {
				return err
			}
			v, found := c.symbols.Resolve(tok.Value)
			if !found {
				return &UndeclaredSymbolError{Pos: tok.Pos, Name: tok.Value}
			}
			seg, err := v.Segment()
			if err != nil {
				return err
			}
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: seg, Offset: v.Index})
			c.out = append(c.out, vm.ArithmeticOp{Operation: vm.Add})
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1})
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.That, Offset: 0})
			return nil
		}

		if following.Kind == SymbolTok && (following.Value == "(" || following.Value == ".") {
			return c.compileSubroutineCallNamed(tok)
		}

		v, found := c.symbols.Resolve(tok.Value)
		if !found {
			return &UndeclaredSymbolError{Pos: tok.Pos, Name: tok.Value}
		}
		seg, err := v.Segment()
		if err != nil {
			return err
		}
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: seg, Offset: v.Index})
		return nil

	default:
		return &ParseError{Pos: tok.Pos, Message: "expected a term, found '" + tok.Value + "'"}
	}
}

func (c *Compiler) compileStringConst(s string) error {
	c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(len(s))})
	c.out = append(c.out, vm.FuncCallOp{Name: "String.new", NArgs: 1})
	for i := 0; i < len(s); i++ {
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(s[i])})
		c.out = append(c.out, vm.FuncCallOp{Name: "String.appendChar", NArgs: 2})
	}
	return nil
}

// compileSubroutineCall compiles a 'do'-statement call, where the lookahead identifier
// hasn't been consumed from the Tokenizer yet.
func (c *Compiler) compileSubroutineCall() error {
	name, err := c.expectIdent()
	if err != nil {
		return err
	}
	return c.compileSubroutineCallNamed(Token{Kind: IdentTok, Value: name})
}

// compileSubroutineCallNamed compiles a subroutine call given its already-consumed
// leading identifier token ('nameTok'), handling all three call forms:
// a static call ('ClassName.fn'), an instance call through a known variable
// ('obj.fn'), and a bare same-class method call ('fn').
func (c *Compiler) compileSubroutineCallNamed(nameTok Token) error {
	callee := nameTok.Value
	nArgs := uint16(0)
	implicitThis := false

	if c.atSymbol(".") {
		c.advance()
		member, err := c.expectIdent()
		if err != nil {
			return err
		}

		if v, found := c.symbols.Resolve(callee); found {
			seg, err := v.Segment()
			if err != nil {
				return err
			}
			c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: seg, Offset: v.Index})
			nArgs++
			callee = fmt.Sprintf("%s.%s", v.DataType.Subtype, member)
		} else {
			callee = fmt.Sprintf("%s.%s", callee, member)
		}
	} else {
		implicitThis = true
		callee = fmt.Sprintf("%s.%s", c.class, callee)
	}

	if implicitThis {
		c.out = append(c.out, vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0})
		nArgs++
	}

	if err := c.expectSymbol("("); err != nil {
		return err
	}
	n, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	nArgs += n
	if err := c.expectSymbol(")"); err != nil {
		return err
	}

	c.out = append(c.out, vm.FuncCallOp{Name: callee, NArgs: nArgs})
	return nil
}

func (c *Compiler) compileExpressionList() (uint16, error) {
	if c.atSymbol(")") {
		return 0, nil
	}

	count := uint16(0)
	for {
		if err := c.compileExpression(); err != nil {
			return 0, err
		}
		count++

		if c.atSymbol(",") {
			c.advance()
			continue
		}
		return count, nil
	}
}

// ----------------------------------------------------------------------------
// Token stream helpers

func (c *Compiler) nextLabel() string {
	label := fmt.Sprintf("L%d", c.labelN)
	c.labelN++
	return label
}

func (c *Compiler) advance() (Token, error) {
	tok, next, err := c.tok.Peek()
	if err != nil {
		return Token{}, err
	}
	c.tok.Advance(next)
	return tok, nil
}

func (c *Compiler) atKeyword(kw string) bool {
	tok, _, err := c.tok.Peek()
	return err == nil && tok.Kind == KeywordTok && tok.Value == kw
}

func (c *Compiler) atSymbol(sym string) bool {
	tok, _, err := c.tok.Peek()
	return err == nil && tok.Kind == SymbolTok && tok.Value == sym
}

func (c *Compiler) expectKeyword(kw string) error {
	tok, err := c.advance()
	if err != nil {
		return err
	}
	if tok.Kind != KeywordTok || tok.Value != kw {
		return &ParseError{Pos: tok.Pos, Message: "expected keyword '" + kw + "', found '" + tok.Value + "'"}
	}
	return nil
}

func (c *Compiler) expectSymbol(sym string) error {
	tok, err := c.advance()
	if err != nil {
		return err
	}
	if tok.Kind != SymbolTok || tok.Value != sym {
		return &ParseError{Pos: tok.Pos, Message: "expected '" + sym + "', found '" + tok.Value + "'"}
	}
	return nil
}

func (c *Compiler) expectIdent() (string, error) {
	tok, err := c.advance()
	if err != nil {
		return "", err
	}
	if tok.Kind != IdentTok {
		return "", &ParseError{Pos: tok.Pos, Message: "expected an identifier, found '" + tok.Value + "'"}
	}
	return tok.Value, nil
}

func parseUint16(digits string) uint16 {
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return uint16(n)
}
