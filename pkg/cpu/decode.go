package cpu

import (
	"fmt"

	"hackstack.dev/n2t/pkg/hack"
)

// ----------------------------------------------------------------------------
// Instruction decoding / disassembly

// InstructionKind identifies which of the three Hack instruction shapes a raw
// 16-bit word decodes to.
type InstructionKind int

const (
	AInstructionKind InstructionKind = iota
	CInstructionKind
	BInstructionKind
)

// Decoded is the result of inverting a raw ROM word back into its mnemonic parts.
// Only the fields relevant to 'Kind' are populated.
type Decoded struct {
	Kind InstructionKind

	Address uint16 // AInstructionKind: the 15-bit literal loaded into A

	A                bool   // CInstructionKind: ALU second operand is RAM[A] rather than A itself
	Comp, Dest, Jump string // CInstructionKind: decoded mnemonics

	Trap uint16 // BInstructionKind: the trap selector, low 13 bits of the word
}

// DecodeComp/DecodeDest/DecodeJump invert hack.CompTable/DestTable/JumpTable,
// built once at init time rather than hand-duplicated, so the two tables can
// never drift out of sync with the encoder they mirror.
var (
	DecodeComp = invert(hack.CompTable)
	DecodeDest = invert(hack.DestTable)
	DecodeJump = invert(hack.JumpTable)
)

func invert(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for mnemonic, bits := range table {
		out[bits] = mnemonic
	}
	return out
}

// Decode classifies a raw ROM word and extracts its fields: the top bits select
// the A, C or (optionally) B instruction shape.
func Decode(word uint16) (Decoded, error) {
	if word&0x8000 == 0 {
		return Decoded{Kind: AInstructionKind, Address: word & 0x7FFF}, nil
	}

	top3 := (word >> 13) & 0b111
	switch top3 {
	case 0b111:
		compBits := (word >> 6) & 0b1111111
		destBits := (word >> 3) & 0b111
		jumpBits := word & 0b111

		comp, found := DecodeComp[compBits]
		if !found {
			return Decoded{}, &Fault{Message: fmt.Sprintf("unrecognized comp field %07b in word %016b", compBits, word)}
		}

		return Decoded{
			Kind: CInstructionKind,
			A:    word&0b0001000000000000 != 0,
			Comp: comp,
			Dest: DecodeDest[destBits],
			Jump: DecodeJump[jumpBits],
		}, nil

	case 0b110:
		return Decoded{Kind: BInstructionKind, Trap: word & 0x1FFF}, nil

	default:
		return Decoded{}, &Fault{Message: fmt.Sprintf("unrecognized instruction top bits %03b in word %016b", top3, word)}
	}
}

// Disassemble renders a Decoded instruction back to Asm mnemonic form, mirroring
// pkg/asm/codegen.go's CInstruction/AInstruction text rendering.
func Disassemble(d Decoded) string {
	switch d.Kind {
	case AInstructionKind:
		return fmt.Sprintf("@%d", d.Address)
	case BInstructionKind:
		return fmt.Sprintf("<trap %d>", d.Trap)
	case CInstructionKind:
		switch {
		case d.Dest != "" && d.Jump != "":
			return fmt.Sprintf("%s=%s;%s", d.Dest, d.Comp, d.Jump)
		case d.Dest != "":
			return fmt.Sprintf("%s=%s", d.Dest, d.Comp)
		case d.Jump != "":
			return fmt.Sprintf("%s;%s", d.Comp, d.Jump)
		default:
			return d.Comp
		}
	default:
		return "<invalid>"
	}
}
