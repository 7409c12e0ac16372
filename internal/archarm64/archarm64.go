// Package archarm64 implements the arch.Architecture back-end for AArch64,
// decoding with golang.org/x/arch/arm64/arm64asm and classifying
// control-flow instructions via raw-encoding bitmasks.
package archarm64

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"medusa/internal/address"
	"medusa/internal/document"
)

// Tag identifies this architecture when registering it with an
// arch.Registry.
const Tag = "arm64"

// Arch is the AArch64 back-end. The zero value is ready to register.
type Arch struct {
	id uint32
}

func New() *Arch { return &Arch{} }

func (a *Arch) GetTag() string                  { return Tag }
func (a *Arch) UpdateId(id uint32)              { a.id = id }
func (a *Arch) DisassembleBasicBlockOnly() bool { return false }

// Disassemble decodes one 4-byte AArch64 instruction at addr, classifying
// branches and calls from the raw encoding independently of whether
// arm64asm.Decode understood the instruction — that keeps control-flow
// following working even for encodings x/arch doesn't yet model.
func (a *Arch) Disassemble(area *document.MemoryArea, addr address.Address) (*document.Instruction, bool) {
	off, ok := area.Convert(addr)
	if !ok {
		return nil, false
	}
	raw, err := area.Stream.ReadBytes(off, 4)
	if err != nil || len(raw) < 4 {
		return nil, false
	}
	word := binary.LittleEndian.Uint32(raw)

	mnemonic := fallbackMnemonic(word)
	if decoded, err := arm64asm.Decode(raw); err == nil {
		mnemonic = strings.ToLower(decoded.String())
	}

	insn := &document.Instruction{Tag: a.id, Mnemonic: mnemonic, Len: 4}

	switch {
	case isRet(word):
		insn.Operation = document.OpRet

	case decodeBranchTarget(word, addr.Offset) != nil:
		target, cond := *decodeBranchTarget(word, addr.Offset), isConditionalBranch(word)
		insn.Operation = document.OpJump
		if cond {
			insn.Operation |= document.OpCond
		}
		insn.Operands[0] = absOperand{target: target}
		insn.NumOperands = 1

	case isBL(word):
		insn.Operation = document.OpCall
		target := blTarget(word, addr.Offset)
		insn.Operands[0] = absOperand{target: target}
		insn.NumOperands = 1

	case isBLR(word):
		insn.Operation = document.OpCall
		insn.Operands[0] = unresolvedOperand{}
		insn.NumOperands = 1
	}

	return insn, true
}

func fallbackMnemonic(word uint32) string {
	return fmt.Sprintf(".word 0x%08x", word)
}

// isRet matches RET Xn (0xD65F03C0 with an arbitrary register field).
func isRet(raw uint32) bool {
	return raw&0xFFFFFC1F == 0xD65F0000
}

// isBL matches BL imm26 (unconditional call, static target).
func isBL(raw uint32) bool {
	return raw&0xFC000000 == 0x94000000
}

// isBLR matches BLR Xn (indirect call through a register).
func isBLR(raw uint32) bool {
	return raw&0xFFFFFC1F == 0xD63F0000
}

func blTarget(raw uint32, pc uint64) address.Address {
	imm26 := raw & 0x03FFFFFF
	offset := signExtend(imm26, 26) * 4
	return address.New(uint64(int64(pc) + int64(offset)))
}

// isConditionalBranch reports whether a branch matched by
// decodeBranchTarget has a fallthrough successor.
func isConditionalBranch(raw uint32) bool {
	return raw&0xFC000000 != 0x14000000 // anything but unconditional B
}

// decodeBranchTarget classifies B, B.cond, CBZ, CBNZ, TBZ and TBNZ from
// their raw encodings, returning the absolute branch target. Returns nil
// for anything else (including RET, BL, BLR, which the caller checks
// separately).
func decodeBranchTarget(raw uint32, pc uint64) *address.Address {
	// B (unconditional): 000101 imm26
	if raw&0xFC000000 == 0x14000000 {
		imm26 := raw & 0x03FFFFFF
		offset := signExtend(imm26, 26) * 4
		t := address.New(uint64(int64(pc) + int64(offset)))
		return &t
	}
	// B.cond: 01010100 imm19 0 cond
	if raw&0xFF000010 == 0x54000000 {
		imm19 := (raw >> 5) & 0x7FFFF
		offset := signExtend(imm19, 19) * 4
		t := address.New(uint64(int64(pc) + int64(offset)))
		return &t
	}
	// CBZ/CBNZ: 0 sf 11010(0|1) imm19 Rt
	if raw&0x7E000000 == 0x34000000 {
		imm19 := (raw >> 5) & 0x7FFFF
		offset := signExtend(imm19, 19) * 4
		t := address.New(uint64(int64(pc) + int64(offset)))
		return &t
	}
	// TBZ/TBNZ: 0 b5 1101(10|11) b40 imm14 Rt
	if raw&0x7E000000 == 0x36000000 {
		imm14 := (raw >> 5) & 0x3FFF
		offset := signExtend(imm14, 14) * 4
		t := address.New(uint64(int64(pc) + int64(offset)))
		return &t
	}
	return nil
}

func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask)
	}
	return int32(val & mask)
}

// absOperand is a statically-known absolute branch/call target.
type absOperand struct {
	target address.Address
}

func (absOperand) Type() document.OperandType { return document.OperandImm }
func (o absOperand) GetOperandReference(address.Address) (address.Address, bool) {
	return o.target, true
}
func (o absOperand) GetOperandAddress(insnAddr address.Address) (address.Address, bool) {
	return insnAddr, true
}
func (absOperand) GetOperandReferenceLength() uint16 { return 4 }

// unresolvedOperand stands for an indirect call/branch through a register:
// per the non-goals, resolving it would require value tracking beyond a
// single operand, so it always reports "no reference".
type unresolvedOperand struct{}

func (unresolvedOperand) Type() document.OperandType { return document.OperandMem }
func (unresolvedOperand) GetOperandReference(address.Address) (address.Address, bool) {
	return address.Address{}, false
}
func (unresolvedOperand) GetOperandAddress(insnAddr address.Address) (address.Address, bool) {
	return insnAddr, true
}
func (unresolvedOperand) GetOperandReferenceLength() uint16 { return 0 }

// FormatCell renders an Instruction using its decoded mnemonic text, or a
// Value/String cell using the generic byte/character rendering every
// architecture back-end shares.
func (a *Arch) FormatCell(addr address.Address, cell document.Cell) (string, []document.Mark) {
	switch c := cell.(type) {
	case *document.Instruction:
		text := c.Mnemonic
		return text, []document.Mark{{Offset: 0, Length: len(text), Kind: document.MarkMnemonic}}
	case *document.String:
		text := fmt.Sprintf("%q", c.Characters())
		return text, []document.Mark{{Offset: 0, Length: len(text), Kind: document.MarkComment}}
	case *document.Value:
		return fmt.Sprintf("db %d", c.Width), nil
	default:
		return "", nil
	}
}

func (a *Arch) FormatMultiCell(addr address.Address, mc document.MultiCell) (string, []document.Mark) {
	if fn, ok := mc.(*document.Function); ok {
		return fmt.Sprintf("function at %s, %d bytes, %d instructions", addr, fn.ByteLength, fn.InsnCount), nil
	}
	return "", nil
}
