package vm

import (
	"fmt"

	"hackstack.dev/n2t/pkg/asm"
)

// ----------------------------------------------------------------------------
// Segment lowering

// Direct segments are backed by a pointer kept in a fixed RAM cell (LCL, ARG, THIS, THAT);
// to address offset N inside of them we load the pointer and add N.
var directSegmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// ----------------------------------------------------------------------------
// Vm Translator

// The Lowerer (a.k.a the VM Translator) takes a 'vm.Program' (one or more translation
// units) and produces a single 'asm.Program' implementing the same behavior on the Hack
// platform.
//
// Every call, comparison or loop needs a name that's unique program-wide: the Lowerer
// keeps a running counter to build labels of the form "<scope>$<tag>_<n>" and guarantees
// every static variable is named "<module>.<index>" so two modules translated together
// never collide on the same RAM cell.
type Lowerer struct {
	program Program
	nLabel  uint
	curFunc string
	curMod  string
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. The bootstrap sequence (set SP to 256, call Sys.init) is
// always emitted exactly once at the very start of the output, regardless of whether the
// Program actually defines a 'Sys.init' function: no error is raised for that omission,
// since cross-module resolution is left entirely to naming, and the assembler allocates
// the undeclared '@Sys.init' as a variable (a RAM address from 16 onwards).
func (l *Lowerer) Lower() (asm.Program, error) {
	if l.program == nil || len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	out := asm.Program{}
	out = append(out, l.bootstrap()...)

	for _, named := range l.program {
		l.curMod = named.Name

		for _, op := range named.Module {
			instrs, err := l.HandleOperation(op)
			if err != nil {
				return nil, fmt.Errorf("module '%s': %w", named.Name, err)
			}
			out = append(out, instrs...)
		}
	}

	return out, nil
}

// Emits "@256; D=A; @SP; M=D" followed by a 'call Sys.init 0', always exactly once: every
// Hack program needs the stack pointer initialized before any VM code executes.
func (l *Lowerer) bootstrap() asm.Program {
	init, _ := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	return append(asm.Program{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}, init...)
}

// Dispatches a single 'vm.Operation' to its specialized Handle* method.
func (l *Lowerer) HandleOperation(op Operation) (asm.Program, error) {
	switch tOp := op.(type) {
	case MemoryOp:
		return l.HandleMemoryOp(tOp)
	case ArithmeticOp:
		return l.HandleArithmeticOp(tOp)
	case LabelDecl:
		return l.HandleLabelDecl(tOp)
	case GotoOp:
		return l.HandleGotoOp(tOp)
	case FuncDecl:
		return l.HandleFuncDecl(tOp)
	case FuncCallOp:
		return l.HandleFuncCallOp(tOp)
	case ReturnOp:
		return l.HandleReturnOp(tOp)
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", op)
	}
}

// Pushes the value currently in 'D' on top of the stack and advances the Stack Pointer.
func pushD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// Pops the top of the stack into 'D', leaving 'A' pointed at the popped slot (the new SP).
func popD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// Specialized function to convert a 'MemoryOp' to its 'asm.Program' counterpart.
//
// Resolves the given Segment/Offset pair to an address computation in 'A', then either
// pushes that address' value or pops the stack top into it, per segment.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) (asm.Program, error) {
	if op.Operation == Push {
		return l.handlePush(op)
	}
	if op.Operation == Pop {
		return l.handlePop(op)
	}
	return nil, fmt.Errorf("unrecognized OperationType '%s'", op.Operation)
}

func (l *Lowerer) handlePush(op MemoryOp) (asm.Program, error) {
	switch op.Segment {
	case Constant:
		return append(asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, pushD()...), nil

	case Local, Argument, This, That:
		base := directSegmentBase[op.Segment]
		return append(asm.Program{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return append(asm.Program{
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		target := "THIS"
		if op.Offset == 1 {
			target = "THAT"
		}
		return append(asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Static:
		return append(asm.Program{
			asm.AInstruction{Location: l.staticName(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

func (l *Lowerer) handlePop(op MemoryOp) (asm.Program, error) {
	switch op.Segment {
	case Constant:
		return nil, fmt.Errorf("cannot pop into the read-only 'constant' segment")

	case Local, Argument, This, That:
		base := directSegmentBase[op.Segment]
		return append(asm.Program{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}, append(popD(), asm.Program{
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}...)...), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return append(popD(), asm.Program{
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}...), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		target := "THIS"
		if op.Offset == 1 {
			target = "THAT"
		}
		return append(popD(), asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}...), nil

	case Static:
		return append(popD(), asm.Program{
			asm.AInstruction{Location: l.staticName(op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}...), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

// Static variables are scoped to the module (translation unit) they were compiled from.
func (l *Lowerer) staticName(offset uint16) string {
	return fmt.Sprintf("%s.%d", l.curMod, offset)
}

// Specialized function to convert an 'ArithmeticOp' to its 'asm.Program' counterpart.
//
// Unary operations (neg, not) only touch the stack's top. Binary operations pop the top
// into 'D', leave the second operand addressed by 'A', compute, and store back through 'A'.
// Comparisons (eq, gt, lt) need a unique pair of labels to turn the ALU's zr/ng flags into
// a boolean (-1/0) result.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	switch op.Operation {
	case Neg:
		return asm.Program{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "-M"},
		}, nil
	case Not:
		return asm.Program{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "!M"},
		}, nil
	case Add:
		return l.binaryOp("D+M")
	case Sub:
		return l.binaryOp("M-D")
	case And:
		return l.binaryOp("D&M")
	case Or:
		return l.binaryOp("D|M")
	case Eq:
		return l.comparisonOp("JEQ")
	case Gt:
		return l.comparisonOp("JGT")
	case Lt:
		return l.comparisonOp("JLT")
	default:
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}
}

func (l *Lowerer) binaryOp(comp string) (asm.Program, error) {
	return append(popD(), asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}...), nil
}

func (l *Lowerer) comparisonOp(jump string) (asm.Program, error) {
	trueLbl, endLbl := l.uniqueLabel(jump+"_TRUE"), l.uniqueLabel(jump+"_END")

	return append(popD(), asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLbl},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLbl},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLbl},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLbl},
	}...), nil
}

// Generates a label unique across the whole Program, prefixed with the current scope
// (function if we're inside one, module otherwise) so two scopes can reuse the same tag.
func (l *Lowerer) uniqueLabel(tag string) string {
	l.nLabel++
	scope := l.curFunc
	if scope == "" {
		scope = l.curMod
	}
	return fmt.Sprintf("%s$%s_%d", scope, tag, l.nLabel)
}

// Specialized function to convert a 'LabelDecl' to its 'asm.Program' counterpart.
//
// Labels declared in the VM IR are scoped to the enclosing function, prefixed with its
// name so two functions can reuse the same label text without colliding.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty label declaration")
	}
	return asm.Program{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

// Specialized function to convert a 'GotoOp' to its 'asm.Program' counterpart.
func (l *Lowerer) HandleGotoOp(op GotoOp) (asm.Program, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to produce empty jump label")
	}

	target := l.scopedLabel(op.Label)
	if op.Jump == Unconditional {
		return asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}
	if op.Jump == Conditional {
		return append(popD(), asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "D", Jump: "JNE"},
		}...), nil
	}
	return nil, fmt.Errorf("unrecognized JumpType '%s'", op.Jump)
}

func (l *Lowerer) scopedLabel(name string) string {
	scope := l.curFunc
	if scope == "" {
		scope = l.curMod
	}
	return fmt.Sprintf("%s$%s", scope, name)
}

// Specialized function to convert a 'FuncDecl' to its 'asm.Program' counterpart.
//
// Emits the function's entry label followed by 'NLocal' pushes of the constant 0, one per
// local variable the callee assumes to be zero-initialized.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty function declaration")
	}
	l.curFunc = op.Name

	out := asm.Program{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		out = append(out, asm.Program{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "0"},
		}...)
	}
	return out, nil
}

// Specialized function to convert a 'FuncCallOp' to its 'asm.Program' counterpart.
//
// Pushes the return address and the caller's LCL/ARG/THIS/THAT, repositions ARG to the
// base of the arguments already on the stack, repositions LCL to the new stack top, and
// jumps to the callee. The callee resumes the caller at the pushed return address label.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty function call")
	}

	retLabel := l.uniqueLabel("RET." + op.Name)

	out := asm.Program{
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	out = append(out, pushD()...)

	for _, seg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out, asm.Program{
			asm.AInstruction{Location: seg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}...)
		out = append(out, pushD()...)
	}

	out = append(out, asm.Program{
		// ARG = SP - 5 - nArgs
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(5 + op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto f
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: retLabel},
	}...)

	return out, nil
}

// Specialized function to convert a 'ReturnOp' to its 'asm.Program' counterpart.
//
// Stashes LCL ('endFrame') in R15 and the return address (read relative to it) in R14
// before the caller's frame gets overwritten, moves the return value to the base of the
// caller's arguments, restores SP just past it, then restores THAT/THIS/ARG/LCL from the
// callee's frame before jumping back through R14.
func (l *Lowerer) HandleReturnOp(op ReturnOp) (asm.Program, error) {
	return asm.Program{
		// R15 (endFrame) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// R14 (retAddr) = *(endFrame - 5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THAT = *(endFrame - 1)
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THIS = *(endFrame - 2)
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "2"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// ARG = *(endFrame - 3)
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "3"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = *(endFrame - 4)
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "4"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto retAddr
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}
