// Package document implements the in-memory data model the analyzer
// operates on: memory areas, cells, labels, cross-references and the
// control-flow graphs of delimited functions. Persisting a Document to disk
// is an external collaborator's job (spec.md §1); this package only owns
// the in-process arena.
package document

import "medusa/internal/address"

// LabelEntry is one element of the address<->label bijection, returned by
// Labels() for iteration.
type LabelEntry struct {
	Addr  address.Address
	Label Label
}

// Document is the exclusive owner of every Cell and MultiCell in an
// analysis session (spec.md §3 "Ownership").
type Document struct {
	areas []*MemoryArea

	cellStart map[address.Address]Cell
	cellOwner map[address.Address]address.Address // any covered addr -> cell start

	multiCells map[address.Address]MultiCell
	funcAddrs  map[address.Address][]address.Address // any addr in a function's CFG -> owning function starts

	labelByAddr map[address.Address]Label
	addrByLabel map[string]address.Address

	xrefs *XRefTable
}

// New creates an empty Document.
func New() *Document {
	return &Document{
		cellStart:   make(map[address.Address]Cell),
		cellOwner:   make(map[address.Address]address.Address),
		multiCells:  make(map[address.Address]MultiCell),
		funcAddrs:   make(map[address.Address][]address.Address),
		labelByAddr: make(map[address.Address]Label),
		addrByLabel: make(map[string]address.Address),
		xrefs:       newXRefTable(),
	}
}

// AddMemoryArea registers a mapped region. Overlapping areas are rejected.
func (d *Document) AddMemoryArea(a *MemoryArea) bool {
	for _, existing := range d.areas {
		if regionsOverlap(existing, a) {
			return false
		}
	}
	d.areas = append(d.areas, a)
	return true
}

func regionsOverlap(a, b *MemoryArea) bool {
	if a.VirtualBase.Type != b.VirtualBase.Type || a.VirtualBase.Base != b.VirtualBase.Base {
		return false
	}
	aEnd := a.VirtualBase.Offset + a.Length
	bEnd := b.VirtualBase.Offset + b.Length
	return a.VirtualBase.Offset < bEnd && b.VirtualBase.Offset < aEnd
}

// GetMemoryArea returns the area mapping addr, if any.
func (d *Document) GetMemoryArea(addr address.Address) *MemoryArea {
	for _, a := range d.areas {
		if a.IsPresent(addr) {
			return a
		}
	}
	return nil
}

// IsPresent reports whether addr falls within any mapped memory area.
func (d *Document) IsPresent(addr address.Address) bool {
	return d.GetMemoryArea(addr) != nil
}

// ContainsCode reports whether addr is covered by an Instruction cell.
func (d *Document) ContainsCode(addr address.Address) bool {
	start, ok := d.cellOwner[addr]
	if !ok {
		return false
	}
	cell := d.cellStart[start]
	return cell != nil && cell.Kind() == InstructionType
}

// RetrieveCell returns the cell starting exactly at addr.
func (d *Document) RetrieveCell(addr address.Address) (Cell, bool) {
	c, ok := d.cellStart[addr]
	return c, ok
}

// RetrieveMultiCell returns the multi-cell starting exactly at addr.
func (d *Document) RetrieveMultiCell(addr address.Address) (MultiCell, bool) {
	mc, ok := d.multiCells[addr]
	return mc, ok
}

// InsertCell places cell at addr. If a cell already starts at addr,
// overwrite must be true to replace it. If force is false, every other
// address in the cell's span must currently be unclaimed (spec.md §3 "no
// overlap"); force skips that scan, for the rare cases (C7 string
// recognition reclaiming raw Value bytes) where the caller already knows
// the span is safe to reclaim.
func (d *Document) InsertCell(addr address.Address, cell Cell, overwrite bool) bool {
	return d.insertCell(addr, cell, overwrite, false)
}

// InsertCellForced is InsertCell with the overlap scan skipped.
func (d *Document) InsertCellForced(addr address.Address, cell Cell, overwrite bool) bool {
	return d.insertCell(addr, cell, overwrite, true)
}

func (d *Document) insertCell(addr address.Address, cell Cell, overwrite, force bool) bool {
	if _, exists := d.cellStart[addr]; exists && !overwrite {
		return false
	}
	if !force {
		for i := 0; i < cell.Length(); i++ {
			if owner, taken := d.cellOwner[addr.Add(uint64(i))]; taken && owner != addr {
				return false
			}
		}
	}
	d.clearCellSpan(addr)

	d.cellStart[addr] = cell
	for i := 0; i < cell.Length(); i++ {
		d.cellOwner[addr.Add(uint64(i))] = addr
	}
	return true
}

func (d *Document) clearCellSpan(addr address.Address) {
	old, ok := d.cellStart[addr]
	if !ok {
		return
	}
	for i := 0; i < old.Length(); i++ {
		delete(d.cellOwner, addr.Add(uint64(i)))
	}
	delete(d.cellStart, addr)
}

// ChangeValueSize resizes the Value cell at addr to size bytes. Fails
// silently (returns false) if no Value cell starts at addr and force is
// false.
func (d *Document) ChangeValueSize(addr address.Address, size int, force bool) bool {
	cell, ok := d.cellStart[addr]
	if ok {
		v, isValue := cell.(*Value)
		if !isValue {
			return false
		}
		d.clearCellSpan(addr)
		v.Width = size
		return d.insertCell(addr, v, false, true)
	}
	if !force {
		return false
	}
	return d.insertCell(addr, NewValue(size), false, true)
}

// InsertMultiCell places mc at addr, indexing every address in a Function's
// CFG so FindFunctionAddressFromAddress can find it later.
func (d *Document) InsertMultiCell(addr address.Address, mc MultiCell, overwrite bool) bool {
	if _, exists := d.multiCells[addr]; exists && !overwrite {
		return false
	}
	d.multiCells[addr] = mc
	if fn, ok := mc.(*Function); ok && fn.CFG != nil {
		for _, v := range fn.CFG.Vertices() {
			for _, a := range v.Addresses {
				d.funcAddrs[a] = append(d.funcAddrs[a], addr)
			}
		}
	}
	return true
}

// AddLabel registers a new label at addr, failing if the name is already
// taken by a different address (spec.md §8 "label uniqueness"). autogen is
// accepted for interface parity with spec.md §6 but does not change
// behavior in this in-memory Document.
func (d *Document) AddLabel(addr address.Address, lbl Label, autogen ...bool) bool {
	if existingAddr, taken := d.addrByLabel[lbl.Name]; taken && existingAddr != addr {
		return false
	}
	d.labelByAddr[addr] = lbl
	d.addrByLabel[lbl.Name] = addr
	return true
}

// SetLabelToAddress replaces whatever label addr carries (used by C7 to
// turn a Data label into a String label at the same address).
func (d *Document) SetLabelToAddress(addr address.Address, lbl Label) {
	if old, ok := d.labelByAddr[addr]; ok {
		delete(d.addrByLabel, old.Name)
	}
	d.labelByAddr[addr] = lbl
	d.addrByLabel[lbl.Name] = addr
}

// GetLabelFromAddress returns the label at addr, or the zero Label if none.
func (d *Document) GetLabelFromAddress(addr address.Address) Label {
	return d.labelByAddr[addr]
}

// GetAddressFromLabelName resolves a label name back to its address.
func (d *Document) GetAddressFromLabelName(name string) (address.Address, bool) {
	a, ok := d.addrByLabel[name]
	return a, ok
}

// Labels iterates the full address<->label bijection.
func (d *Document) Labels() []LabelEntry {
	out := make([]LabelEntry, 0, len(d.labelByAddr))
	for a, l := range d.labelByAddr {
		out = append(out, LabelEntry{Addr: a, Label: l})
	}
	return out
}

// GetXRefs returns the document's cross-reference table.
func (d *Document) GetXRefs() *XRefTable { return d.xrefs }

// Functions returns the address of every delimited Function multicell, in
// no particular order.
func (d *Document) Functions() []address.Address {
	out := make([]address.Address, 0, len(d.multiCells))
	for a, mc := range d.multiCells {
		if _, ok := mc.(*Function); ok {
			out = append(out, a)
		}
	}
	return out
}

// FindFunctionAddressFromAddress returns every function start address whose
// CFG contains addr.
func (d *Document) FindFunctionAddressFromAddress(addr address.Address) []address.Address {
	return d.funcAddrs[addr]
}

// MoveAddress returns the address delta units away from in, if that
// address is present in some memory area. delta may be negative, used by
// the C8 tracker's linear fallback.
func (d *Document) MoveAddress(in address.Address, delta int64) (out address.Address, ok bool) {
	out = in
	if delta >= 0 {
		out.Offset += uint64(delta)
	} else {
		neg := uint64(-delta)
		if neg > out.Offset {
			return address.Address{}, false
		}
		out.Offset -= neg
	}
	if !d.IsPresent(out) {
		return address.Address{}, false
	}
	return out, true
}
