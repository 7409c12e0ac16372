package analyzer

import (
	"fmt"

	"medusa/internal/address"
	"medusa/internal/document"
)

// CreateXRefs is C4: record a cross-reference for every operand of the
// instruction at insnAddr whose target is statically known, then — except
// for call operands — synthesize a label at the target if it doesn't
// already have one.
//
// Call targets deliberately get no label here: a call destination is named
// by CreateFunction once the callee is actually delimited (see DESIGN.md
// "Open Question O2"), so a call to an address that never becomes a
// function body is left unlabeled rather than acquiring a stray "loc_"
// name.
func (a *Analyzer) CreateXRefs(insnAddr address.Address, insn *document.Instruction) {
	for i := 0; i < insn.NumOperands; i++ {
		target, ok := insn.GetOperandReference(i, insnAddr)
		if !ok {
			continue
		}

		if length := insn.GetOperandReferenceLength(i); length > 0 {
			a.Doc.ChangeValueSize(target, int(length), false)
		}

		// A target outside every mapped memory area has no cell at all
		// (mapped-but-undecoded bytes are implicitly Value(1), per
		// document.Value's doc comment); only the former is skipped.
		if !a.Doc.IsPresent(target) {
			continue
		}

		src := insnAddr
		if opAddr, ok := insn.GetOperandAddress(i, insnAddr); ok {
			src = opAddr
		}
		a.Doc.GetXRefs().AddXRef(target, src)

		if !a.Doc.GetLabelFromAddress(target).IsZero() {
			continue
		}

		switch {
		case insn.Operation.IsCall():
			// No label yet; CreateFunction names it once delimited.
		case insn.Operation.IsJump():
			a.Doc.AddLabel(target, document.Label{Name: labelName("loc", target), Kind: document.LabelCode | document.LabelLocal}, true)
		default:
			if area := a.Doc.GetMemoryArea(target); area != nil && area.Access.Has(document.AccessExec) {
				a.Doc.AddLabel(target, document.Label{Name: labelName("loc", target), Kind: document.LabelCode | document.LabelLocal}, true)
			} else {
				a.Doc.AddLabel(target, document.Label{Name: labelName("data", target), Kind: document.LabelData | document.LabelGlobal}, true)
			}
		}
	}
}

func labelName(prefix string, addr address.Address) string {
	return fmt.Sprintf("%s_%s", prefix, sanitizeAddr(addr))
}

func sanitizeAddr(addr address.Address) string {
	s := addr.String()
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			out[i] = '_'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
