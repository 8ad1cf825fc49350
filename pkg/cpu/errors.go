package cpu

import "fmt"

// ----------------------------------------------------------------------------
// Errors

// Fault reports a condition the emulator cannot continue past: an invalid
// instruction bit pattern, an out-of-range address, or an unimplemented trap.
// It carries the program counter the fault was raised at so a caller can
// correlate it against a disassembly listing.
type Fault struct {
	PC          uint16
	Instruction uint16
	Message     string
}

func (e *Fault) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cpu fault at PC=%d (instr=%016b): %s", e.PC, e.Instruction, e.Message)
	}
	return fmt.Sprintf("cpu fault at PC=%d (instr=%016b)", e.PC, e.Instruction)
}
