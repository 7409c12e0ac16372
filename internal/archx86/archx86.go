// Package archx86 implements the arch.Architecture back-end for x86-64,
// decoding with golang.org/x/arch/x86/x86asm.
package archx86

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"medusa/internal/address"
	"medusa/internal/document"
)

// Tag identifies this architecture when registering it with an
// arch.Registry.
const Tag = "x86-64"

// maxInsnLen is the longest possible x86 instruction encoding.
const maxInsnLen = 15

// Arch is the x86-64 back-end. The zero value is ready to register.
type Arch struct {
	id uint32
}

func New() *Arch { return &Arch{} }

func (a *Arch) GetTag() string                  { return Tag }
func (a *Arch) UpdateId(id uint32)              { a.id = id }
func (a *Arch) DisassembleBasicBlockOnly() bool { return false }

// Disassemble decodes one variable-length x86-64 instruction at addr.
func (a *Arch) Disassemble(area *document.MemoryArea, addr address.Address) (*document.Instruction, bool) {
	off, ok := area.Convert(addr)
	if !ok {
		return nil, false
	}
	n := maxInsnLen
	if remaining := area.Length - (addr.Offset - area.VirtualBase.Offset); remaining < uint64(n) {
		n = int(remaining)
	}
	window, err := area.Stream.ReadBytes(off, n)
	if err != nil || len(window) == 0 {
		return nil, false
	}

	inst, err := x86asm.Decode(window, 64)
	if err != nil || inst.Len == 0 {
		return nil, false
	}

	insn := &document.Instruction{Tag: a.id, Mnemonic: strings.ToLower(inst.String()), Len: inst.Len}

	switch {
	case inst.Op == x86asm.RET || inst.Op == x86asm.LRET:
		insn.Operation = document.OpRet

	case inst.Op == x86asm.CALL || inst.Op == x86asm.LCALL:
		insn.Operation = document.OpCall
		insn.Operands[0] = branchOperand(inst, addr)
		insn.NumOperands = 1

	case inst.Op == x86asm.JMP:
		insn.Operation = document.OpJump
		insn.Operands[0] = branchOperand(inst, addr)
		insn.NumOperands = 1

	case isConditionalJump(inst.Op):
		insn.Operation = document.OpJump | document.OpCond
		insn.Operands[0] = branchOperand(inst, addr)
		insn.NumOperands = 1
	}

	return insn, true
}

// branchOperand returns an absOperand when the target is a static rel8/32
// displacement, or unresolvedOperand for indirect forms (call/jmp through a
// register or memory operand) — resolving those would need value tracking
// beyond a single operand, out of scope here same as archarm64's BLR.
func branchOperand(inst x86asm.Inst, addr address.Address) document.Operand {
	for _, arg := range inst.Args {
		if arg == nil {
			continue
		}
		if rel, ok := arg.(x86asm.Rel); ok {
			target := addr.Add(uint64(int64(inst.Len) + int64(rel)))
			return absOperand{target: target}
		}
	}
	return unresolvedOperand{}
}

func isConditionalJump(op x86asm.Op) bool {
	switch op {
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
		x86asm.JE, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO,
		x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JS:
		return true
	}
	return false
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

// unresolvedOperand stands for an indirect call/jump through a register or
// memory operand.
type unresolvedOperand struct{}

func (unresolvedOperand) Type() document.OperandType { return document.OperandMem }
func (unresolvedOperand) GetOperandReference(address.Address) (address.Address, bool) {
	return address.Address{}, false
}
func (unresolvedOperand) GetOperandAddress(insnAddr address.Address) (address.Address, bool) {
	return insnAddr, true
}
func (unresolvedOperand) GetOperandReferenceLength() uint16 { return 0 }

// FormatCell renders a decoded Instruction/String/Value cell as plain text.
func (a *Arch) FormatCell(addr address.Address, cell document.Cell) (string, []document.Mark) {
	switch c := cell.(type) {
	case *document.Instruction:
		text := c.Mnemonic
		return text, []document.Mark{{Offset: 0, Length: len(text), Kind: document.MarkMnemonic}}
	case *document.String:
		text := c.Characters()
		return text, []document.Mark{{Offset: 0, Length: len(text), Kind: document.MarkComment}}
	case *document.Value:
		return "db", nil
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
