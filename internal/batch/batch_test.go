package batch

import (
	"testing"

	"medusa/internal/address"
	"medusa/internal/analyzer"
	"medusa/internal/arch"
	"medusa/internal/archtest"
	"medusa/internal/document"
)

func TestDisassembleEntryPointsCoversEveryEntry(t *testing.T) {
	// Two independent one-instruction functions in the same area: 0->ret, 2->ret.
	data := []byte{archtest.OpRet, archtest.OpNop, archtest.OpRet}
	doc := document.New()
	reg := arch.NewRegistry(archtest.Tag)
	if !reg.Register(archtest.New()) {
		t.Fatalf("failed to register test architecture")
	}
	area := document.NewMemoryArea("test", address.New(0), uint64(len(data)),
		document.AccessR|document.AccessExec, document.NewByteStream(data), 0)
	if !doc.AddMemoryArea(area) {
		t.Fatalf("failed to add memory area")
	}
	a := analyzer.New(doc, reg, analyzer.Config{DefaultArchTag: archtest.Tag})

	entries := []address.Address{address.New(0), address.New(2)}
	results := DisassembleEntryPoints(a, entries, 2)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected error for entry %v: %v", r.Entry, r.Err)
		}
		if len(r.Insns) == 0 {
			t.Fatalf("expected at least one decoded instruction for entry %v", r.Entry)
		}
	}
	if !doc.ContainsCode(address.New(0)) || !doc.ContainsCode(address.New(2)) {
		t.Fatalf("expected both entries to be decoded into the document")
	}
}

func TestDisassembleEntryPointsReportsUnmappedEntry(t *testing.T) {
	data := []byte{archtest.OpRet}
	doc := document.New()
	reg := arch.NewRegistry(archtest.Tag)
	if !reg.Register(archtest.New()) {
		t.Fatalf("failed to register test architecture")
	}
	area := document.NewMemoryArea("test", address.New(0), uint64(len(data)),
		document.AccessR|document.AccessExec, document.NewByteStream(data), 0)
	doc.AddMemoryArea(area)
	a := analyzer.New(doc, reg, analyzer.Config{DefaultArchTag: archtest.Tag})

	results := DisassembleEntryPoints(a, []address.Address{address.New(100)}, 1)
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected an error for an entry point outside any memory area")
	}
}
