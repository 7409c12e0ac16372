package report

import (
	"bytes"
	"strings"
	"testing"

	"medusa/internal/address"
	"medusa/internal/document"
)

func TestFunctionsTableListsFunctions(t *testing.T) {
	doc := document.New()
	cfg := document.NewControlFlowGraph(address.List{address.New(0)})
	fn := &document.Function{ByteLength: 3, InsnCount: 3, CFG: cfg}
	doc.InsertMultiCell(address.New(0), fn, true)
	doc.AddLabel(address.New(0), document.Label{Name: "sub_0", Kind: document.LabelCode})

	var buf bytes.Buffer
	FunctionsTable(&buf, doc)

	out := buf.String()
	if !strings.Contains(out, "sub_0") {
		t.Fatalf("expected function name in output, got %q", out)
	}
}

func TestXRefsTableListsReferences(t *testing.T) {
	doc := document.New()
	doc.AddLabel(address.New(10), document.Label{Name: "target", Kind: document.LabelData})
	doc.GetXRefs().AddXRef(address.New(10), address.New(1))

	var buf bytes.Buffer
	XRefsTable(&buf, doc)

	out := buf.String()
	if !strings.Contains(out, "target") {
		t.Fatalf("expected label name in output, got %q", out)
	}
}

func TestColorizeLinePlainWhenUncolored(t *testing.T) {
	text := "mov rax, rbx"
	marks := []document.Mark{{Offset: 0, Length: 3, Kind: document.MarkMnemonic}}
	if got := ColorizeLine(text, marks, false); got != text {
		t.Fatalf("expected uncolored passthrough, got %q", got)
	}
}

func TestColorizeLineWrapsMarkedSpan(t *testing.T) {
	text := "mov rax, rbx"
	marks := []document.Mark{{Offset: 0, Length: 3, Kind: document.MarkMnemonic}}
	got := ColorizeLine(text, marks, true)
	if got == text {
		t.Fatalf("expected colored output to differ from plain text")
	}
	if !strings.Contains(got, "rax, rbx") {
		t.Fatalf("expected untouched tail to survive, got %q", got)
	}
}
