package cpu

import "fmt"

// ----------------------------------------------------------------------------
// Computer

const (
	ramSize    = 32768
	screenBase = 0x4000
	screenEnd  = 0x6000
	keyboard   = 0x6000
)

// Computer is the whole Hack machine state: the two CPU registers, the program
// counter, ROM (the loaded program) and RAM (data memory, memory-mapped screen
// and keyboard included), plus the latched ALU flags the last C-instruction
// produced. 'Cycle' counts completed Step calls, used by RunUntil.
type Computer struct {
	A, D  uint16
	PC    uint16
	Cycle uint64

	ram [ramSize]uint16
	rom []uint16

	zr, ng bool
}

// NewComputer returns a freshly zeroed Computer with no program loaded.
func NewComputer() *Computer {
	return &Computer{}
}

// Load installs 'program' as ROM, replacing whatever was there, and resets PC
// to 0. RAM is left untouched, matching the hardware's separate ROM burn step.
func (c *Computer) Load(program []uint16) {
	c.rom = program
	c.PC = 0
}

// RAM returns a pointer to the full 32K data memory, screen and keyboard cells
// included, so a caller can both inspect and seed it (e.g. for test fixtures).
func (c *Computer) RAM() *[ramSize]uint16 {
	return &c.ram
}

// ROM returns the currently loaded program.
func (c *Computer) ROM() []uint16 {
	return c.rom
}

// Screen returns a view into RAM[0x4000:0x6000), the word-packed 256x512
// monochrome bitmap. Mutating the slice mutates RAM directly.
func (c *Computer) Screen() []uint16 {
	return c.ram[screenBase:screenEnd]
}

// SetKeyboard injects a key scan code (0 for "no key") as the value the next
// 'RAM[0x6000]' read will observe.
func (c *Computer) SetKeyboard(code uint16) {
	c.ram[keyboard] = code
}

// Step fetches, decodes and executes one instruction, in the order the hardware
// wires it: ALU compute, then destination writes M before D before A (writing A
// first would redirect the M write to the wrong address), then the jump test.
//
// 'reset', when true, forces PC back to 0 after the step's normal update,
// matching the external reset line's semantics; RAM is left untouched.
//
// The returned bool is false once PC runs past the end of ROM, a convenience
// for callers driving a bounded loop; it is not a hardware concept.
func (c *Computer) Step(reset bool) (bool, error) {
	if int(c.PC) >= len(c.rom) {
		return false, nil
	}

	instr := c.rom[c.PC]
	decoded, err := Decode(instr)
	if err != nil {
		if fault, ok := err.(*Fault); ok {
			fault.PC, fault.Instruction = c.PC, instr
		}
		return false, err
	}

	switch decoded.Kind {
	case AInstructionKind:
		c.A = decoded.Address
		c.PC++

	case BInstructionKind:
		if err := c.dispatchTrap(decoded.Trap); err != nil {
			if fault, ok := err.(*Fault); ok {
				fault.Instruction = instr
			}
			return false, err
		}
		c.PC++

	case CInstructionKind:
		// Any access through M dereferences A into RAM, so an A value past the
		// 32K data memory has to fault here rather than index out of bounds.
		if (decoded.A || containsDest(decoded.Dest, 'M')) && int(c.A) >= ramSize {
			return false, &Fault{PC: c.PC, Instruction: instr, Message: fmt.Sprintf("memory access through A=%d is out of range", c.A)}
		}

		y := c.A
		if decoded.A {
			y = c.ram[c.A]
		}

		zx, nx, zy, ny, f, no, err := compControlBits(decoded.Comp)
		if err != nil {
			return false, &Fault{PC: c.PC, Instruction: instr, Message: err.Error()}
		}

		out, zr, ng := ALU(c.D, y, zx, nx, zy, ny, f, no)
		c.zr, c.ng = zr, ng

		if containsDest(decoded.Dest, 'M') {
			c.ram[c.A] = out
		}
		if containsDest(decoded.Dest, 'D') {
			c.D = out
		}
		if containsDest(decoded.Dest, 'A') {
			c.A = out
		}

		if shouldJump(decoded.Jump, zr, ng) {
			c.PC = c.A
		} else {
			c.PC++
		}
	}

	c.Cycle++
	if reset {
		c.PC = 0
	}

	return int(c.PC) < len(c.rom), nil
}

// RunExact steps the machine exactly 'n' times, stopping early only on error.
func (c *Computer) RunExact(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.Step(false); err != nil {
			return err
		}
	}
	return nil
}

// RunUntil steps the machine until 'Cycle' reaches 'cycle' or ROM is exhausted.
func (c *Computer) RunUntil(cycle uint64) error {
	for c.Cycle < cycle {
		cont, err := c.Step(false)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func containsDest(dest string, reg byte) bool {
	for i := 0; i < len(dest); i++ {
		if dest[i] == reg {
			return true
		}
	}
	return false
}

// shouldJump implements the jump predicate: (j1&ng) | (j2&zr) | (j3&!ng&!zr).
func shouldJump(jump string, zr, ng bool) bool {
	switch jump {
	case "":
		return false
	case "JGT":
		return !ng && !zr
	case "JEQ":
		return zr
	case "JGE":
		return !ng
	case "JLT":
		return ng
	case "JNE":
		return !zr
	case "JLE":
		return ng || zr
	case "JMP":
		return true
	default:
		return false
	}
}

// compControlBits maps a decoded 'comp' mnemonic back to the six ALU control
// bits that produce it, inverting the C instruction encoding tables.
func compControlBits(comp string) (zx, nx, zy, ny, f, no bool, err error) {
	switch comp {
	case "0":
		return true, false, true, false, true, false, nil
	case "1":
		return true, true, true, true, true, true, nil
	case "-1":
		return true, true, true, false, true, false, nil
	case "D":
		return false, false, true, true, false, false, nil
	case "A", "M":
		return true, true, false, false, false, false, nil
	case "!D":
		return false, false, true, true, false, true, nil
	case "!A", "!M":
		return true, true, false, false, false, true, nil
	case "-D":
		return false, false, true, true, true, true, nil
	case "-A", "-M":
		return true, true, false, false, true, true, nil
	case "D+1":
		return false, true, true, true, true, true, nil
	case "A+1", "M+1":
		return true, true, false, true, true, true, nil
	case "D-1":
		return false, false, true, true, true, false, nil
	case "A-1", "M-1":
		return true, true, false, false, true, false, nil
	case "D+A", "D+M":
		return false, false, false, false, true, false, nil
	case "D-A", "D-M":
		return false, true, false, false, true, true, nil
	case "A-D", "M-D":
		return false, false, false, true, true, true, nil
	case "D&A", "D&M":
		return false, false, false, false, false, false, nil
	case "D|A", "D|M":
		return false, true, false, true, false, true, nil
	default:
		return false, false, false, false, false, false, fmt.Errorf("unrecognized comp mnemonic '%s'", comp)
	}
}
