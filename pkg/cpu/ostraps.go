package cpu

// ----------------------------------------------------------------------------
// B-instruction OS traps

// Trap selectors recognized by dispatchTrap. A B-instruction's low 13 bits
// pick one of these; anything else faults rather than silently no-opping.
const (
	TrapMathMultiply uint16 = iota
	TrapMathDivide
	TrapMathMin
	TrapMathMax
	TrapMathSqrt
	TrapMemoryPeek
	TrapMemoryPoke
)

// dispatchTrap implements the small, fixed subset of OS primitives that are
// pure stack-in/stack-out arithmetic helpers with no heap/string/screen state
// to fake: Math.multiply/divide/min/max/sqrt and Memory.peek/poke. Every other
// OS call (String, Array, Output, Screen, Keyboard, Sys beyond init) has no
// native implementation and is out of scope; reaching one here faults.
//
// Calling convention: the first operand is taken from the 'A' register and the
// second from 'D' at trap time, and the result is written back through 'D' for
// the calling code to store or push, keeping the trap itself free of any
// stack-frame bookkeeping.
func (c *Computer) dispatchTrap(trap uint16) error {
	arg0, arg1 := c.A, c.D

	switch trap {
	case TrapMathMultiply:
		c.D = arg0 * arg1
	case TrapMathDivide:
		if arg1 == 0 {
			return &Fault{PC: c.PC, Message: "Math.divide: division by zero"}
		}
		c.D = uint16(int16(arg0) / int16(arg1))
	case TrapMathMin:
		if int16(arg0) < int16(arg1) {
			c.D = arg0
		} else {
			c.D = arg1
		}
	case TrapMathMax:
		if int16(arg0) > int16(arg1) {
			c.D = arg0
		} else {
			c.D = arg1
		}
	case TrapMathSqrt:
		c.D = isqrt(arg0)
	case TrapMemoryPeek:
		c.D = c.ram[arg0]
	case TrapMemoryPoke:
		c.ram[arg0] = arg1
	default:
		return &Fault{PC: c.PC, Message: "unimplemented OS trap selector"}
	}

	return nil
}

// isqrt computes floor(sqrt(n)) for a non-negative 16-bit n via the standard
// bit-by-bit binary search the Jack OS's own Math.sqrt uses, avoiding any
// floating point (the Hack ALU has none).
func isqrt(n uint16) uint16 {
	var result uint16
	for bit := uint16(1) << 7; bit > 0; bit >>= 1 {
		candidate := result + bit
		if candidate*candidate <= n {
			result = candidate
		}
	}
	return result
}
