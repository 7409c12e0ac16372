package analyzer

import (
	"testing"

	"medusa/internal/address"
	"medusa/internal/archtest"
	"medusa/internal/arch"
	"medusa/internal/document"
)

func newFixture(t *testing.T, data []byte) (*Analyzer, *document.MemoryArea) {
	t.Helper()
	doc := document.New()
	reg := arch.NewRegistry(archtest.Tag)
	ar := archtest.New()
	if !reg.Register(ar) {
		t.Fatalf("failed to register test architecture")
	}
	stream := document.NewByteStream(data)
	area := document.NewMemoryArea("test", address.New(0), uint64(len(data)), document.AccessR|document.AccessExec, stream, 0)
	if !doc.AddMemoryArea(area) {
		t.Fatalf("failed to add memory area")
	}
	a := New(doc, reg, Config{DefaultArchTag: archtest.Tag})
	return a, area
}

func TestStraightLineFunctionWithReturn(t *testing.T) {
	data := []byte{archtest.OpNop, archtest.OpNop, archtest.OpRet}
	a, _ := newFixture(t, data)

	insns := a.DisassembleFollowingExecutionPath(address.New(0))
	if len(insns) != 3 {
		t.Fatalf("expected 3 decoded instructions, got %d", len(insns))
	}

	byteLen, count, ok := a.ComputeFunctionLength(address.New(0))
	if !ok || count != 3 || byteLen != 3 {
		t.Fatalf("expected length (3, 3, true), got (%d, %d, %v)", byteLen, count, ok)
	}

	fn, ok := a.CreateFunction(address.New(0))
	if !ok {
		t.Fatalf("CreateFunction failed")
	}
	if fn.InsnCount != 3 || fn.ByteLength != 3 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if got := len(fn.CFG.Vertices()); got != len(insns) {
		t.Fatalf("expected one vertex per instruction (%d), got %d", len(insns), got)
	}

	lbl := a.Doc.GetLabelFromAddress(address.New(0))
	if lbl.IsZero() || !lbl.Kind.Has(document.LabelCode) {
		t.Fatalf("expected a code label at the function entry, got %+v", lbl)
	}
}

func TestConditionalDiamond(t *testing.T) {
	// 0: jcc +3  -> true branch at 5
	// 2: nop                (false branch)
	// 3: jmp +1  -> merge at 6
	// 5: nop                (true branch)
	// 6: ret                (merge)
	data := []byte{
		archtest.OpJcc, 3,
		archtest.OpNop,
		archtest.OpJmp, 1,
		archtest.OpNop,
		archtest.OpRet,
	}
	a, _ := newFixture(t, data)
	a.DisassembleFollowingExecutionPath(address.New(0))

	fn, ok := a.CreateFunction(address.New(0))
	if !ok {
		t.Fatalf("CreateFunction failed")
	}
	if fn.InsnCount != 5 {
		t.Fatalf("expected 5 reachable instructions, got %d", fn.InsnCount)
	}

	entryVert, ok := fn.CFG.VertexContaining(address.New(0))
	if !ok {
		t.Fatalf("expected a vertex containing the entry")
	}
	edges := fn.CFG.OutEdges(entryVert.Addresses[len(entryVert.Addresses)-1])
	if len(edges) != 2 {
		t.Fatalf("expected 2 outgoing edges from the conditional jump, got %d", len(edges))
	}
	var sawTrue, sawFalse bool
	for _, e := range edges {
		switch e.Type {
		case document.EdgeTrue:
			sawTrue = true
			if e.Dst != address.New(5) {
				t.Fatalf("true edge should target addr 5, got %v", e.Dst)
			}
		case document.EdgeFalse:
			sawFalse = true
			if e.Dst != address.New(2) {
				t.Fatalf("false edge should target addr 2, got %v", e.Dst)
			}
		}
	}
	if !sawTrue || !sawFalse {
		t.Fatalf("expected both a True and a False edge out of the conditional jump")
	}
}

func TestCallCreatesTwoFunctionsAndXRef(t *testing.T) {
	data := make([]byte, 11)
	data[0] = archtest.OpCall
	data[1] = 8 // target = 0 + 2 + 8 = 10
	data[2] = archtest.OpRet
	data[10] = archtest.OpRet
	a, _ := newFixture(t, data)

	a.DisassembleFollowingExecutionPath(address.New(0))

	callerFn, ok := a.CreateFunction(address.New(0))
	if !ok {
		t.Fatalf("expected caller function to be created")
	}
	if callerFn.InsnCount != 2 {
		t.Fatalf("expected caller to have 2 instructions (call, ret), got %d", callerFn.InsnCount)
	}

	calleeFn, ok := a.CreateFunction(address.New(10))
	if !ok {
		t.Fatalf("expected callee function to be created")
	}
	if calleeFn.InsnCount != 1 {
		t.Fatalf("expected callee to have 1 instruction, got %d", calleeFn.InsnCount)
	}

	refs := a.Doc.GetXRefs().ReferencesTo(address.New(10))
	if len(refs) != 1 || refs[0] != address.New(1) {
		t.Fatalf("expected one xref to addr 10 from the call's operand at addr 1, got %v", refs)
	}

	calleeLabel := a.Doc.GetLabelFromAddress(address.New(10))
	if calleeLabel.IsZero() {
		t.Fatalf("expected CreateFunction to name the call target, since CreateXRefs defers call labeling")
	}
}

func TestThunkTakesTargetName(t *testing.T) {
	// addr 5 (the jump target) is deliberately outside the mapped data so
	// it can never be decoded — it stands in for an imported symbol whose
	// body lives in another module entirely.
	data := []byte{archtest.OpJmp, 3, 0, 0, 0}
	a, _ := newFixture(t, data)

	// Simulate an imported symbol at addr 5 the loader would have named.
	a.Doc.AddLabel(address.New(5), document.Label{Name: "printf", Kind: document.LabelImported})

	a.DisassembleFollowingExecutionPath(address.New(0))
	fn, ok := a.CreateFunction(address.New(0))
	if !ok {
		t.Fatalf("expected thunk to be accepted as a one-instruction function")
	}
	if fn.InsnCount != 1 {
		t.Fatalf("expected thunk to have exactly 1 instruction, got %d", fn.InsnCount)
	}

	lbl := a.Doc.GetLabelFromAddress(address.New(0))
	if lbl.Name != "jmp_printf" {
		t.Fatalf("expected thunk name jmp_printf, got %q", lbl.Name)
	}
}

func TestFindStringsRecognizesAsciiAndUtf16(t *testing.T) {
	data := make([]byte, 32)
	// "Hi\0" ascii at offset 0
	copy(data[0:], []byte("Hi\x00"))
	// "Hi" utf16le + terminator at offset 16
	utf16Hi := []byte{'H', 0, 'i', 0, 0, 0}
	copy(data[16:], utf16Hi)

	a, area := newFixture(t, data)
	a.Doc.AddLabel(address.New(0), document.Label{Name: "data_0", Kind: document.LabelData})
	a.Doc.AddLabel(address.New(16), document.Label{Name: "data_10", Kind: document.LabelData})
	a.Doc.InsertCell(address.New(0), document.NewValue(1), true)
	a.Doc.InsertCell(address.New(16), document.NewValue(1), true)

	found := a.FindStrings(area)
	if len(found) != 2 {
		t.Fatalf("expected 2 recognized strings, got %d", len(found))
	}

	asciiCell, ok := a.Doc.RetrieveCell(address.New(0))
	if !ok || asciiCell.Kind() != document.StringType {
		t.Fatalf("expected a String cell at addr 0")
	}
	if s := asciiCell.(*document.String); s.Characters() != "Hi" || s.StrKind != document.AsciiType {
		t.Fatalf("unexpected ascii string: %+v", s)
	}

	wideCell, ok := a.Doc.RetrieveCell(address.New(16))
	if !ok || wideCell.Kind() != document.StringType {
		t.Fatalf("expected a String cell at addr 16")
	}
	if s := wideCell.(*document.String); s.Characters() != "Hi" || s.StrKind != document.Utf16Type {
		t.Fatalf("unexpected utf16 string: %+v", s)
	}
}
