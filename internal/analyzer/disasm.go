package analyzer

import (
	"medusa/internal/address"
	"medusa/internal/document"
)

// DisassembleBasicBlock is C3: decode instructions one at a time starting
// at addr, inserting each as an Instruction cell, until a control-transfer
// instruction (call, jump, return) is reached or decoding can no longer
// continue. It returns the addresses of every instruction it decoded, in
// order.
//
// addr must not carry an Imported label (its body belongs to the dynamic
// loader, not this analyzer), must fall inside an executable memory area,
// and must currently hold a raw Value(1) byte — any other cell there means
// the address isn't available for decoding and the call fails outright.
//
// Decoding stops without error as soon as it reaches an address that
// already holds an Instruction cell: that means another basic block has
// already claimed the tail, and the two blocks now share it rather than
// redecoding.
func (a *Analyzer) DisassembleBasicBlock(addr address.Address) ([]address.Address, bool) {
	if a.Doc.GetLabelFromAddress(addr).Kind.Has(document.LabelImported) {
		return nil, false
	}

	area := a.Doc.GetMemoryArea(addr)
	if area == nil || !area.Access.Has(document.AccessExec) {
		return nil, false
	}

	var insns []address.Address
	cur := addr

	for {
		if a.Doc.ContainsCode(cur) {
			break
		}
		if !a.Doc.IsPresent(cur) {
			return insns, len(insns) > 0
		}
		if cell, ok := a.Doc.RetrieveCell(cur); ok {
			v, isValue := cell.(*document.Value)
			if !isValue || v.Width != 1 {
				return insns, len(insns) > 0
			}
		}

		ar, ok := a.resolveArch(area)
		if !ok {
			return insns, len(insns) > 0
		}
		insn, ok := ar.Disassemble(area, cur)
		if !ok {
			return insns, len(insns) > 0
		}
		if !a.Doc.InsertCell(cur, insn, true) {
			return insns, len(insns) > 0
		}
		insns = append(insns, cur)

		if insn.Operation.IsRet() || insn.Operation.IsCall() || insn.Operation.IsJump() {
			break
		}
		cur = cur.Add(uint64(insn.Len))
	}
	return insns, true
}
