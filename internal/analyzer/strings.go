package analyzer

import (
	"unicode/utf8"

	"medusa/internal/address"
	"medusa/internal/document"
)

// characterStrategy probes a code unit stream for one string encoding,
// letting FindStrings share one scanning loop across encodings.
type characterStrategy interface {
	Kind() document.StringKind
	UnitWidth() int
	Read(area *document.MemoryArea, addr address.Address) (unit uint16, ok bool)
	IsValidCharacter(unit uint16) bool
	IsFinalCharacter(unit uint16) bool
	ConvertToUtf8(unit uint16) rune
}

// asciiString recognizes NUL-terminated runs of printable ASCII bytes.
type asciiString struct{}

func (asciiString) Kind() document.StringKind { return document.AsciiType }
func (asciiString) UnitWidth() int            { return 1 }

func (asciiString) Read(area *document.MemoryArea, addr address.Address) (uint16, bool) {
	off, ok := area.Convert(addr)
	if !ok {
		return 0, false
	}
	b, err := area.Stream.ReadByte(off)
	if err != nil {
		return 0, false
	}
	return uint16(b), true
}

func (asciiString) IsValidCharacter(unit uint16) bool {
	return unit == '\n' || unit == '\t' || (unit >= 0x20 && unit < 0x7f)
}
func (asciiString) IsFinalCharacter(unit uint16) bool { return unit == 0 }
func (asciiString) ConvertToUtf8(unit uint16) rune    { return rune(unit) }

// winString recognizes NUL-terminated runs of UTF-16LE code units that are
// '\n', '\t' or in the range 0x20-0xFF (Basic Latin / Latin-1, including
// the 0x7F-0x9F control codes), mirroring Medusa's
// MakeWindowsString (a Basic-Multilingual-Plane-naive prober sufficient for
// the strings the analyzer actually needs to recognize).
type winString struct{}

func (winString) Kind() document.StringKind { return document.Utf16Type }
func (winString) UnitWidth() int            { return 2 }

func (winString) Read(area *document.MemoryArea, addr address.Address) (uint16, bool) {
	off, ok := area.Convert(addr)
	if !ok {
		return 0, false
	}
	u, err := area.Stream.ReadUint16LE(off)
	if err != nil {
		return 0, false
	}
	return u, true
}

func (winString) IsValidCharacter(unit uint16) bool {
	return unit == '\n' || unit == '\t' || (unit >= 0x20 && unit < 0x100)
}
func (winString) IsFinalCharacter(unit uint16) bool { return unit == 0 }
func (winString) ConvertToUtf8(unit uint16) rune    { return rune(unit) }

// probe reads code units at addr via strat until a final (NUL) unit or an
// invalid one, returning the decoded text and total byte length including
// the terminator. ok is false if any invalid unit is read, if the
// terminator comes before any character, or if the run never terminated
// (ran off the mapped area).
func probe(area *document.MemoryArea, addr address.Address, strat characterStrategy) (text string, byteLen int, ok bool) {
	var buf []rune
	cur := addr
	for {
		unit, readOK := strat.Read(area, cur)
		if !readOK {
			return "", 0, false
		}
		byteLen += strat.UnitWidth()
		if strat.IsFinalCharacter(unit) {
			if len(buf) == 0 {
				return "", 0, false
			}
			return string(buf), byteLen, true
		}
		if !strat.IsValidCharacter(unit) {
			return "", 0, false
		}
		r := strat.ConvertToUtf8(unit)
		if !utf8.ValidRune(r) {
			return "", 0, false
		}
		buf = append(buf, r)
		cur = cur.Add(uint64(strat.UnitWidth()))
	}
}

// MakeAsciiString tries to recognize a NUL-terminated ASCII string starting
// at addr, replacing its raw Value bytes with a String cell on success.
func (a *Analyzer) MakeAsciiString(area *document.MemoryArea, addr address.Address) (*document.String, bool) {
	return a.makeString(area, addr, asciiString{})
}

// MakeWindowsString is MakeAsciiString's UTF-16LE counterpart.
func (a *Analyzer) MakeWindowsString(area *document.MemoryArea, addr address.Address) (*document.String, bool) {
	return a.makeString(area, addr, winString{})
}

func (a *Analyzer) makeString(area *document.MemoryArea, addr address.Address, strat characterStrategy) (*document.String, bool) {
	text, byteLen, ok := probe(area, addr, strat)
	if !ok {
		return nil, false
	}
	str := document.NewString(strat.Kind(), text, byteLen)
	if !a.Doc.InsertCellForced(addr, str, true) {
		return nil, false
	}
	a.Doc.SetLabelToAddress(addr, document.Label{Name: labelName("str", addr), Kind: document.LabelString})
	return str, true
}

// FindStrings is C7: scan every address in area currently labeled as data
// for a recognizable NUL-terminated string, preferring the UTF-16LE
// encoding (Medusa probes wide strings first since a narrow-string probe
// of wide text finds one printable character per two bytes and can produce
// a false-positive short match).
func (a *Analyzer) FindStrings(area *document.MemoryArea) []address.Address {
	var found []address.Address
	for _, entry := range a.Doc.Labels() {
		if !entry.Label.Kind.Has(document.LabelData) {
			continue
		}
		if !area.IsPresent(entry.Addr) {
			continue
		}
		if cell, ok := a.Doc.RetrieveCell(entry.Addr); ok && cell.Kind() != document.ValueType {
			continue
		}
		if _, ok := a.MakeWindowsString(area, entry.Addr); ok {
			found = append(found, entry.Addr)
			continue
		}
		if _, ok := a.MakeAsciiString(area, entry.Addr); ok {
			found = append(found, entry.Addr)
		}
	}
	return found
}
