package analyzer

import (
	"medusa/internal/address"
	"medusa/internal/document"
)

// Visitor is invoked once per address a tracker visits. Returning false
// tells the tracker the caller is done looking further in that direction;
// returning true asks it to keep extending along the CFG (or, outside any
// function, linearly).
type Visitor func(a *Analyzer, doc *document.Document, addr address.Address) bool

// TrackOperand is C8's forward walk: starting at start, follow the CFG of
// every function containing it, invoking visitor at each newly-reached
// address.
func (a *Analyzer) TrackOperand(start address.Address, visitor Visitor) []address.Address {
	return a.track(start, true, visitor)
}

// BacktrackOperand is C8's backward walk, the mirror of TrackOperand.
func (a *Analyzer) BacktrackOperand(start address.Address, visitor Visitor) []address.Address {
	return a.track(start, false, visitor)
}

func (a *Analyzer) track(start address.Address, forward bool, visitor Visitor) []address.Address {
	var path []address.Address

	fns := a.Doc.FindFunctionAddressFromAddress(start)
	if len(fns) > 0 {
		tracked := make(map[address.Address]bool)
		for _, fnAddr := range fns {
			mc, ok := a.Doc.RetrieveMultiCell(fnAddr)
			if !ok {
				continue
			}
			fn, ok := mc.(*document.Function)
			if !ok || fn.CFG == nil {
				continue
			}
			a.trackInFunction(fn.CFG, start, forward, visitor, tracked, &path)
		}
		return path
	}

	// start isn't inside any function: fall back to linear stepping.
	delta := int64(1)
	if !forward {
		delta = -1
	}
	cur := start
	for {
		path = append(path, cur)
		if !visitor(a, a.Doc, cur) {
			return path
		}
		next, ok := a.Doc.MoveAddress(cur, delta)
		if !ok {
			return path
		}
		cur = next
	}
}

// trackInFunction walks cfg starting from start, sharing tracked across
// every function FindFunctionAddressFromAddress returned so overlapping
// functions don't revisit the same address twice.
//
// The stop conditions deliberately differ by direction: forward stops once
// the visitor returns true and the CFG reports no successors; backward
// stops as soon as the visitor returns false, or no predecessors remain.
// This asymmetry is intentional, not a bug to symmetrize away.
func (a *Analyzer) trackInFunction(cfg *document.ControlFlowGraph, start address.Address, forward bool, visitor Visitor, tracked map[address.Address]bool, path *[]address.Address) {
	worklist := []address.Address{start}

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]
		if tracked[cur] {
			continue
		}
		tracked[cur] = true
		*path = append(*path, cur)

		cont := visitor(a, a.Doc, cur)

		var next address.List
		var have bool
		if forward {
			have = cfg.GetNextAddress(cur, &next)
		} else {
			have = cfg.GetPreviousAddress(cur, &next)
		}

		if forward {
			if cont && !have {
				return
			}
			if cont && have {
				worklist = append(worklist, next...)
			}
			continue
		}

		if !cont || !have {
			return
		}
		worklist = append(worklist, next...)
	}
}
