package analyzer

import (
	"medusa/internal/address"
	"medusa/internal/document"
)

// DisassembleFollowingExecutionPath is C5: the worklist-driven
// recursive-descent entry point. Starting from entry, it decodes basic
// blocks, records cross-references for every decoded instruction, queues
// every address a decoded instruction can transfer control to (branch
// targets and, where control can fall through, the next instruction) until
// the worklist is exhausted, then delimits a function at entry and at
// every call target it discovered along the way.
//
// The whole walk, including the DisassembleBasicBlock, CreateXRefs and
// CreateFunction calls it makes, runs under the single disassembly mutex
// so two goroutines decoding different entry points never race on the
// same Document. The string recognizers (FindStrings, MakeAsciiString,
// MakeWindowsString) also insert cells but do not take this mutex.
func (a *Analyzer) DisassembleFollowingExecutionPath(entry address.Address) []address.Address {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Doc.GetLabelFromAddress(entry).Kind.Has(document.LabelImported) {
		return nil
	}
	if a.Doc.GetMemoryArea(entry) == nil {
		a.log.WithField("entry", entry.String()).Warn("execution path entry has no memory area")
		return nil
	}

	visited := make(map[address.Address]bool)
	worklist := []address.Address{entry}
	var decoded []address.Address

	funcSeen := map[address.Address]bool{entry: true}
	funcs := []address.Address{entry}

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

	block:
		for a.Doc.IsPresent(cur) && !a.Doc.ContainsCode(cur) {
			insns, ok := a.DisassembleBasicBlock(cur)
			if !ok || len(insns) == 0 {
				break
			}

			var term *document.Instruction
			var termAddr address.Address
			for _, ia := range insns {
				cell, ok := a.Doc.RetrieveCell(ia)
				if !ok {
					continue
				}
				insn, ok := cell.(*document.Instruction)
				if !ok {
					continue
				}
				if !visited[ia] {
					visited[ia] = true
					decoded = append(decoded, ia)
				}
				for opIdx := 0; opIdx < insn.NumOperands; opIdx++ {
					if target, ok := insn.GetOperandReference(opIdx, ia); ok {
						worklist = append(worklist, target)
					}
				}
				a.CreateXRefs(ia, insn)
				term, termAddr = insn, ia
			}

			if term == nil {
				break
			}

			switch {
			case term.Operation.IsCall():
				worklist = append(worklist, termAddr.Add(uint64(term.Len)))
				target, ok := term.GetOperandReference(0, termAddr)
				if !ok {
					break block
				}
				if !funcSeen[target] {
					funcSeen[target] = true
					funcs = append(funcs, target)
				}
				cur = target
			case term.Operation.IsRet():
				if term.Operation.IsCond() {
					cur = termAddr.Add(uint64(term.Len))
					continue block
				}
				break block
			case term.Operation.IsJump():
				if term.Operation.IsCond() {
					worklist = append(worklist, termAddr.Add(uint64(term.Len)))
				}
				target, ok := term.GetOperandReference(0, termAddr)
				if !ok {
					break block
				}
				cur = target
			default:
				// the block stopped because it ran into existing code or
				// off the mapped area, not because of a terminator.
				break block
			}
		}
	}

	for _, f := range funcs {
		a.CreateFunction(f)
	}

	a.log.WithField("entry", entry.String()).WithField("instructions", len(decoded)).Debug("execution path disassembled")
	return decoded
}
