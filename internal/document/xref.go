package document

import "medusa/internal/address"

// XRefTable is the many-to-many relation from a destination address to the
// set of operand addresses that refer to it.
type XRefTable struct {
	toSrcs map[address.Address]map[address.Address]struct{}
}

func newXRefTable() *XRefTable {
	return &XRefTable{toSrcs: make(map[address.Address]map[address.Address]struct{})}
}

// AddXRef records that src refers to dst.
func (t *XRefTable) AddXRef(dst, src address.Address) {
	set, ok := t.toSrcs[dst]
	if !ok {
		set = make(map[address.Address]struct{})
		t.toSrcs[dst] = set
	}
	set[src] = struct{}{}
}

// ReferencesTo returns every operand address known to refer to dst, in no
// particular order.
func (t *XRefTable) ReferencesTo(dst address.Address) []address.Address {
	set, ok := t.toSrcs[dst]
	if !ok {
		return nil
	}
	out := make([]address.Address, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out
}

// Count returns the total number of distinct destinations with at least one
// recorded reference.
func (t *XRefTable) Count() int { return len(t.toSrcs) }
