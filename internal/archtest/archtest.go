// Package archtest implements a synthetic one-byte-opcode instruction set,
// used by the internal/analyzer, internal/batch, internal/render and
// internal/signature tests to exercise the core's control-flow algorithms
// without depending on a real decoder.
package archtest

import (
	"fmt"

	"medusa/internal/address"
	"medusa/internal/document"
)

// Opcode values. Every instruction is 1 byte except the three with a
// relative rel8 operand, which are 2 bytes.
const (
	OpNop  = 0x00
	OpRet  = 0x01
	OpJmp  = 0x02 // unconditional jump, rel8
	OpJcc  = 0x03 // conditional jump, rel8
	OpCall = 0x04 // call, rel8
)

// Tag is the fixed string identifying this architecture when registering
// it with an arch.Registry.
const Tag = "test8"

// Arch is the synthetic architecture. The zero value is ready to register.
type Arch struct {
	id uint32
}

func New() *Arch { return &Arch{} }

func (a *Arch) GetTag() string     { return Tag }
func (a *Arch) UpdateId(id uint32) { a.id = id }

func (a *Arch) DisassembleBasicBlockOnly() bool { return false }

// Disassemble decodes a single instruction at addr from area's stream. The
// instructions with a rel8 operand are 2 bytes: opcode then a signed
// displacement relative to the address right after the instruction.
func (a *Arch) Disassemble(area *document.MemoryArea, addr address.Address) (*document.Instruction, bool) {
	off, ok := area.Convert(addr)
	if !ok {
		return nil, false
	}
	opcode, err := area.Stream.ReadByte(off)
	if err != nil {
		return nil, false
	}

	switch opcode {
	case OpNop:
		return &document.Instruction{Tag: a.id, Mnemonic: "nop", Len: 1, Operation: document.OpUnknown}, true
	case OpRet:
		return &document.Instruction{Tag: a.id, Mnemonic: "ret", Len: 1, Operation: document.OpRet}, true
	case OpJmp, OpJcc, OpCall:
		disp, err := area.Stream.ReadByte(off + 1)
		if err != nil {
			return nil, false
		}
		insn := &document.Instruction{Tag: a.id, Len: 2, NumOperands: 1}
		switch opcode {
		case OpJmp:
			insn.Mnemonic = "jmp"
			insn.Operation = document.OpJump
		case OpJcc:
			insn.Mnemonic = "jcc"
			insn.Operation = document.OpCond | document.OpJump
		case OpCall:
			insn.Mnemonic = "call"
			insn.Operation = document.OpCall
		}
		insn.Operands[0] = relOperand{disp: int8(disp), insnLen: 2}
		return insn, true
	default:
		return &document.Instruction{Tag: a.id, Mnemonic: fmt.Sprintf("db 0x%02x", opcode), Len: 1, Operation: document.OpUnknown}, true
	}
}

// relOperand is a signed 8-bit displacement relative to the address
// immediately following the instruction (insnAddr + insnLen).
type relOperand struct {
	disp    int8
	insnLen int
}

func (r relOperand) Type() document.OperandType { return document.OperandImm }

func (r relOperand) GetOperandReference(insnAddr address.Address) (address.Address, bool) {
	base := insnAddr.Add(uint64(r.insnLen))
	if r.disp >= 0 {
		return base.Add(uint64(r.disp)), true
	}
	neg := uint64(-int64(r.disp))
	if neg > base.Offset {
		return address.Address{}, false
	}
	base.Offset -= neg
	return base, true
}

func (r relOperand) GetOperandAddress(insnAddr address.Address) (address.Address, bool) {
	return insnAddr.Add(1), true
}

func (r relOperand) GetOperandReferenceLength() uint16 { return 1 }

// FormatCell renders a minimal textual form: mnemonic plus a synthesized
// " <addr>" suffix for instructions carrying a rel8 operand.
func (a *Arch) FormatCell(addr address.Address, cell document.Cell) (string, []document.Mark) {
	switch c := cell.(type) {
	case *document.Instruction:
		text := c.Mnemonic
		marks := []document.Mark{{Offset: 0, Length: len(c.Mnemonic), Kind: document.MarkMnemonic}}
		if c.NumOperands > 0 {
			if target, ok := c.GetOperandReference(0, addr); ok {
				suffix := " " + target.String()
				marks = append(marks, document.Mark{Offset: len(text) + 1, Length: len(suffix) - 1, Kind: document.MarkOperand})
				text += suffix
			}
		}
		return text, marks
	case *document.Value:
		return fmt.Sprintf("db 0x%02x", 0), nil
	case *document.String:
		return fmt.Sprintf("%q", c.Characters()), []document.Mark{{Offset: 0, Length: len(c.Characters()) + 2, Kind: document.MarkComment}}
	default:
		return "", nil
	}
}

func (a *Arch) FormatMultiCell(addr address.Address, mc document.MultiCell) (string, []document.Mark) {
	if fn, ok := mc.(*document.Function); ok {
		return fmt.Sprintf("function at %s, %d bytes", addr, fn.ByteLength), nil
	}
	return "", nil
}
