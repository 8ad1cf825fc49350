package cpu

// ----------------------------------------------------------------------------
// Arithmetic Logic Unit

// ALU implements the six-control-bit arithmetic/logic unit at the heart of the
// Hack computer. It's a pure function: given the same inputs it always produces
// the same outputs, with no access to or effect on any Computer state.
//
// The control bits are applied in the fixed order the hardware wires them in:
// zero/negate 'x', zero/negate 'y', then either add or and the two, then
// optionally negate the result. 'zr'/'ng' are derived from the final 'out' bit
// pattern, not from any wider intermediate, so 16-bit wraparound on the 'f'
// branch already produces the two's-complement semantics the rest of the
// machine expects.
func ALU(x, y uint16, zx, nx, zy, ny, f, no bool) (out uint16, zr, ng bool) {
	if zx {
		x = 0
	}
	if nx {
		x = ^x
	}
	if zy {
		y = 0
	}
	if ny {
		y = ^y
	}

	if f {
		out = x + y
	} else {
		out = x & y
	}

	if no {
		out = ^out
	}

	zr = out == 0
	ng = out&0x8000 != 0 // Sign bit of the 16-bit two's-complement result
	return out, zr, ng
}
