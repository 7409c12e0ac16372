// Package elfimage loads an ELF binary's PT_LOAD segments and symbol table
// into a document.Document, giving the analyzer a populated address space
// and an initial set of labels to seed recursive descent from.
package elfimage

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"medusa/internal/address"
	"medusa/internal/document"
)

var (
	ErrNotELF   = errors.New("elfimage: not an ELF file")
	ErrNot64Bit = errors.New("elfimage: not a 64-bit ELF")
)

// Load opens path, reads every PT_LOAD segment into the Document as a
// MemoryArea, and registers a label for every named symbol (dynamic and
// static) it finds. archTag is stamped on every created MemoryArea so the
// analyzer knows which Architecture to decode it with.
func Load(path string, doc *document.Document, archTag uint32) (entry address.Address, err error) {
	f, err := os.Open(path)
	if err != nil {
		return address.Address{}, fmt.Errorf("elfimage: open: %w", err)
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	defer ef.Close()

	if ef.Class != elf.ELFCLASS64 {
		return address.Address{}, ErrNot64Bit
	}

	for i, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return address.Address{}, fmt.Errorf("elfimage: read segment %d: %w", i, err)
		}
		// Memsz can exceed Filesz (the tail is zero-initialized, e.g. .bss);
		// pad so every virtual address in the segment is addressable.
		if p.Memsz > p.Filesz {
			data = append(data, make([]byte, p.Memsz-p.Filesz)...)
		}

		access := segmentAccess(p.Flags)
		area := document.NewMemoryArea(
			fmt.Sprintf("PT_LOAD[%d]", i),
			address.New(p.Vaddr),
			p.Memsz,
			access,
			document.NewByteStream(data),
			0,
		)
		area.ArchTag = archTag
		if !doc.AddMemoryArea(area) {
			return address.Address{}, fmt.Errorf("elfimage: segment %d at 0x%x overlaps an existing memory area", i, p.Vaddr)
		}
	}

	loadSymbols(ef, doc)

	return address.New(ef.Entry), nil
}

func segmentAccess(flags elf.ProgFlag) document.Access {
	var a document.Access
	if flags&elf.PF_R != 0 {
		a |= document.AccessR
	}
	if flags&elf.PF_W != 0 {
		a |= document.AccessW
	}
	if flags&elf.PF_X != 0 {
		a |= document.AccessExec
	}
	return a
}

func loadSymbols(ef *elf.File, doc *document.Document) {
	for _, syms := range [][]elf.Symbol{readSymbols(ef.Symbols), readSymbols(ef.DynamicSymbols)} {
		for _, s := range syms {
			if s.Name == "" || s.Value == 0 {
				continue
			}
			kind := document.LabelData
			if elf.ST_TYPE(s.Info) == elf.STT_FUNC {
				kind = document.LabelCode
			}
			if s.Section == elf.SHN_UNDEF {
				kind |= document.LabelImported
			} else {
				kind |= document.LabelGlobal
			}
			doc.AddLabel(address.New(s.Value), document.Label{Name: s.Name, Kind: kind}, true)
		}
	}
}

func readSymbols(fn func() ([]elf.Symbol, error)) []elf.Symbol {
	syms, err := fn()
	if err != nil {
		return nil
	}
	return syms
}
