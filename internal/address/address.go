// Package address implements the virtual-address value type shared by every
// other core package: a totally ordered (type, base, offset, size) tuple,
// never a pointer, so graphs built over addresses (xrefs, CFG edges) stay
// free of reference cycles.
package address

import "fmt"

// Type distinguishes address spaces (flat binary, segmented x86 real mode,
// overlayed banks, ...). Most back-ends use Flat.
type Type int

const (
	UnknownType Type = iota
	Flat
	Segmented
)

// Address is a virtual address within an addressing scheme. Two addresses
// are comparable with ==, making Address usable as a map key.
type Address struct {
	Type   Type
	Base   uint64
	Offset uint64
	Size   uint8 // address width in bits, e.g. 32 or 64; 0 means "unspecified"
}

// New builds a Flat address at the given offset with a default base of 0.
func New(offset uint64) Address {
	return Address{Type: Flat, Offset: offset, Size: 64}
}

// NewSegmented builds an address within a non-zero base.
func NewSegmented(base, offset uint64, size uint8) Address {
	return Address{Type: Segmented, Base: base, Offset: offset, Size: size}
}

// IsUnknown reports whether this is the zero-value / unresolved address.
func (a Address) IsUnknown() bool {
	return a.Type == UnknownType
}

// Add returns the address delta bytes further along, preserving base/type.
func (a Address) Add(delta uint64) Address {
	a.Offset += delta
	return a
}

// Less gives Address a total order within (Type, Base), needed for sorted
// address lists (basic-block contents, label iteration).
func (a Address) Less(b Address) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.Base != b.Base {
		return a.Base < b.Base
	}
	return a.Offset < b.Offset
}

// String renders the address as "base:offset", matching the core's label
// suffix convention (':' is later replaced with '_' when synthesizing names).
func (a Address) String() string {
	return fmt.Sprintf("%x:%x", a.Base, a.Offset)
}

// List is an ordered sequence of addresses, e.g. the contents of a basic
// block vertex.
type List []Address

// Contains reports whether addr appears in the list.
func (l List) Contains(addr Address) bool {
	for _, a := range l {
		if a == addr {
			return true
		}
	}
	return false
}

// IndexOf returns the position of addr in the list, or -1.
func (l List) IndexOf(addr Address) int {
	for i, a := range l {
		if a == addr {
			return i
		}
	}
	return -1
}
