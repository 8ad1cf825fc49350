package hack

import "fmt"

// ----------------------------------------------------------------------------
// Errors

// LabelOverflowError reports a label that resolved to an address an A
// Instruction cannot express: only 15 bits are available, so anything at or
// past 2^15 has no single-instruction encoding.
type LabelOverflowError struct {
	Name    string // The label whose resolution overflowed
	Address uint16 // The address it resolved to
}

func (e *LabelOverflowError) Error() string {
	return fmt.Sprintf("label '%s' resolved to address %d, past the 15 bit range of an A Instruction", e.Name, e.Address)
}

// StaticOverflowError reports that a fresh variable/static allocation ran past
// RAM address 255: the window reserved for variables is 16..255 (240 slots),
// anything above it would collide with the stack region.
type StaticOverflowError struct {
	Name string // The variable that could not be allocated
}

func (e *StaticOverflowError) Error() string {
	return fmt.Sprintf("variable '%s' overflows the 16..255 allocation window", e.Name)
}
