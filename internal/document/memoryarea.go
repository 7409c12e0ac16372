package document

import "medusa/internal/address"

// Access is a bitmask of permissions a MemoryArea grants.
type Access uint8

const (
	AccessNone Access = 0
	AccessR    Access = 1 << iota
	AccessW
	AccessExec
)

func (a Access) Has(bit Access) bool { return a&bit != 0 }

// MemoryArea is a contiguous virtual range backed by a BinaryStream, mapped
// onto a physical offset range. Address presence implies a unique owning
// memory area (spec.md §3 invariant) — the Document enforces this by
// rejecting overlapping areas at registration time.
type MemoryArea struct {
	Name         string
	VirtualBase  address.Address
	Length       uint64
	Access       Access
	Stream       BinaryStream
	ArchTag      arch2Tag // architecture that decodes this area; 0 means "registry default"
	physicalBase int64
}

// NewMemoryArea describes a mapping of [virtualBase, virtualBase+length)
// onto stream starting at physicalBase.
func NewMemoryArea(name string, virtualBase address.Address, length uint64, access Access, stream BinaryStream, physicalBase int64) *MemoryArea {
	return &MemoryArea{
		Name:         name,
		VirtualBase:  virtualBase,
		Length:       length,
		Access:       access,
		Stream:       stream,
		physicalBase: physicalBase,
	}
}

// IsPresent reports whether addr falls within this area's virtual range.
func (m *MemoryArea) IsPresent(addr address.Address) bool {
	if addr.Type != m.VirtualBase.Type || addr.Base != m.VirtualBase.Base {
		return false
	}
	if addr.Offset < m.VirtualBase.Offset {
		return false
	}
	return addr.Offset-m.VirtualBase.Offset < m.Length
}

// Convert maps a virtual offset to a physical offset within the backing
// stream. Fails with ok=false if addr is not mapped by this area.
func (m *MemoryArea) Convert(addr address.Address) (physOffset int64, ok bool) {
	if !m.IsPresent(addr) {
		return 0, false
	}
	return m.physicalBase + int64(addr.Offset-m.VirtualBase.Offset), true
}
