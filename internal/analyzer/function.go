package analyzer

import (
	"medusa/internal/address"
	"medusa/internal/document"
)

// reachableInstructions walks the already-decoded instruction cells
// starting at entry, following jump targets and fallthrough edges (but
// never a call's target — a callee is a separate function), until no new
// address is discovered. hasRet reports whether any reachable instruction
// is a return; a function whose body never reaches one isn't well-formed.
func (a *Analyzer) reachableInstructions(entry address.Address) (insns []address.Address, hasRet bool) {
	visited := make(map[address.Address]bool)
	worklist := []address.Address{entry}

	for len(worklist) > 0 {
		addr := worklist[0]
		worklist = worklist[1:]
		if visited[addr] {
			continue
		}
		cell, ok := a.Doc.RetrieveCell(addr)
		if !ok {
			continue
		}
		insn, ok := cell.(*document.Instruction)
		if !ok {
			continue
		}
		visited[addr] = true
		insns = append(insns, addr)

		if insn.Operation.IsRet() {
			hasRet = true
			continue
		}
		if insn.Operation.IsJump() {
			for i := 0; i < insn.NumOperands; i++ {
				if target, ok := insn.GetOperandReference(i, addr); ok {
					worklist = append(worklist, target)
				}
			}
			if !insn.Operation.IsCond() {
				continue // unconditional jump: no fallthrough
			}
		}
		worklist = append(worklist, addr.Add(uint64(insn.Len)))
	}
	return insns, hasRet
}

// isThunk reports whether insns is the single-instruction
// unconditional-jump-to-elsewhere pattern: a function need not reach a
// return itself when its only content hands control straight to another
// (possibly external/imported) address.
func (a *Analyzer) isThunk(insns []address.Address) bool {
	if len(insns) != 1 {
		return false
	}
	cell, ok := a.Doc.RetrieveCell(insns[0])
	if !ok {
		return false
	}
	insn, ok := cell.(*document.Instruction)
	return ok && insn.Operation.IsJump() && !insn.Operation.IsCond()
}

// ComputeFunctionLength is C6's length check: it walks the instructions
// reachable from entry, summing their byte length, and aborts with failure
// if FunctionLengthThreshold is positive and byteLen exceeds it (a runaway
// guard, not a minimum). Otherwise it succeeds iff a return was reached.
func (a *Analyzer) ComputeFunctionLength(entry address.Address) (byteLen, insnCount int, ok bool) {
	insns, hasRet := a.reachableInstructions(entry)
	insnCount = len(insns)
	for _, ia := range insns {
		if cell, ok := a.Doc.RetrieveCell(ia); ok {
			byteLen += cell.Length()
		}
	}
	if threshold := a.Config.FunctionLengthThreshold; threshold > 0 && byteLen > threshold {
		return byteLen, insnCount, false
	}
	return byteLen, insnCount, hasRet
}

// BuildControlFlowGraph is C6: construct the CFG of the function reachable
// from entry. It collects every reachable address into one vertex, then
// for each instruction computes its outgoing edges and, following
// ControlFlowGraph's documented construction order, splits the destination
// vertex for every edge before registering any edge.
func (a *Analyzer) BuildControlFlowGraph(entry address.Address) *document.ControlFlowGraph {
	insns, _ := a.reachableInstructions(entry)
	return a.buildCFGFromReachable(insns)
}

// BuildControlFlowGraphByLabel resolves name to an address via the
// Document's label bijection, then delegates to BuildControlFlowGraph.
func (a *Analyzer) BuildControlFlowGraphByLabel(name string) (*document.ControlFlowGraph, bool) {
	entry, ok := a.Doc.GetAddressFromLabelName(name)
	if !ok {
		return nil, false
	}
	return a.BuildControlFlowGraph(entry), true
}

type pendingEdge struct {
	src, dst address.Address
	typ      document.EdgeType
}

func (a *Analyzer) buildCFGFromReachable(insns []address.Address) *document.ControlFlowGraph {
	set := make(map[address.Address]bool, len(insns))
	for _, a := range insns {
		set[a] = true
	}

	cfg := document.NewControlFlowGraph(address.List(insns))

	var edges []pendingEdge
	for _, ia := range insns {
		cell, ok := a.Doc.RetrieveCell(ia)
		if !ok {
			continue
		}
		insn, ok := cell.(*document.Instruction)
		if !ok {
			continue
		}
		fallthroughAddr := ia.Add(uint64(insn.Len))

		switch {
		case insn.Operation.IsRet():
			// no outgoing edges

		case insn.Operation.IsJump() && insn.Operation.IsCond():
			for i := 0; i < insn.NumOperands; i++ {
				if target, ok := insn.GetOperandReference(i, ia); ok && set[target] {
					edges = append(edges, pendingEdge{ia, target, document.EdgeTrue})
				}
			}
			if set[fallthroughAddr] {
				edges = append(edges, pendingEdge{ia, fallthroughAddr, document.EdgeFalse})
			}

		case insn.Operation.IsJump():
			for i := 0; i < insn.NumOperands; i++ {
				if target, ok := insn.GetOperandReference(i, ia); ok && set[target] {
					edges = append(edges, pendingEdge{ia, target, document.EdgeUnconditional})
				}
			}

		default:
			// plain instructions and calls (which return to the next
			// instruction) both fall through unconditionally.
			if set[fallthroughAddr] {
				edges = append(edges, pendingEdge{ia, fallthroughAddr, document.EdgeUnconditional})
			}
		}
	}

	for _, e := range edges {
		split := cfg.SplitBasicBlock(e.dst, e.src, e.typ)
		a.log.WithField("dst", e.dst.String()).WithField("type", e.typ.String()).WithField("succeeded", split).Debug("basic block split")
	}
	for _, e := range edges {
		cfg.AddEdge(e.src, e.dst, e.typ)
	}
	return cfg
}

// CreateFunction is C6's final step: delimit the function reachable from
// entry, build its CFG, register it as a MultiCell, and name it — unless
// it's a one-instruction unconditional jump to an already-named address,
// in which case it's a thunk and takes that target's name with a "jmp_"
// prefix instead of the default "sub_" naming.
func (a *Analyzer) CreateFunction(entry address.Address) (*document.Function, bool) {
	insns, _ := a.reachableInstructions(entry)
	byteLen, insnCount, ok := a.ComputeFunctionLength(entry)
	if !ok && !a.isThunk(insns) {
		return nil, false
	}

	cfg := a.buildCFGFromReachable(insns)

	var entryTag uint32
	if cell, ok := a.Doc.RetrieveCell(entry); ok {
		entryTag = cell.ArchitectureTag()
	}

	fn := &document.Function{ByteLength: byteLen, InsnCount: insnCount, CFG: cfg, Tag: entryTag}
	a.Doc.InsertMultiCell(entry, fn, true)
	a.nameFunction(entry, insns)
	return fn, true
}

func (a *Analyzer) nameFunction(entry address.Address, insns []address.Address) {
	if len(insns) == 1 {
		cell, ok := a.Doc.RetrieveCell(entry)
		if ok {
			if insn, ok := cell.(*document.Instruction); ok && insn.Operation.IsJump() && !insn.Operation.IsCond() {
				for i := 0; i < insn.NumOperands; i++ {
					target, ok := insn.GetOperandReference(i, entry)
					if !ok {
						continue
					}
					if lbl := a.Doc.GetLabelFromAddress(target); !lbl.IsZero() {
						a.Doc.SetLabelToAddress(entry, document.Label{
							Name: "jmp_" + lbl.Name,
							Kind: document.LabelCode,
						})
						return
					}
				}
			}
		}
	}

	if lbl := a.Doc.GetLabelFromAddress(entry); !lbl.IsZero() && lbl.Kind.Has(document.LabelCode) {
		return
	}
	a.Doc.SetLabelToAddress(entry, document.Label{Name: labelName("sub", entry), Kind: document.LabelCode | document.LabelGlobal})
}
