package render

import (
	"strings"
	"testing"

	"medusa/internal/address"
	"medusa/internal/analyzer"
	"medusa/internal/arch"
	"medusa/internal/archtest"
	"medusa/internal/document"
)

// newDiamond builds a conditional branch with two leaves: entry jcc falls
// through to one ret and branches to another, the same shape the teacher's
// callgraph cfg_test.go built by hand for a CFG-DOT-output test.
func newDiamond(t *testing.T) (*analyzer.Analyzer, *document.Function) {
	t.Helper()
	data := []byte{
		archtest.OpJcc, 1, // 0: jcc -> 3 (true branch)
		archtest.OpRet, // 2: false branch (fallthrough)
		archtest.OpRet, // 3: true branch
	}
	doc := document.New()
	reg := arch.NewRegistry(archtest.Tag)
	if !reg.Register(archtest.New()) {
		t.Fatal("failed to register test architecture")
	}
	area := document.NewMemoryArea("test", address.New(0), uint64(len(data)),
		document.AccessR|document.AccessExec, document.NewByteStream(data), 0)
	if !doc.AddMemoryArea(area) {
		t.Fatal("failed to add memory area")
	}

	a := analyzer.New(doc, reg, analyzer.Config{DefaultArchTag: archtest.Tag})
	a.DisassembleFollowingExecutionPath(address.New(0))
	fn, ok := a.CreateFunction(address.New(0))
	if !ok {
		t.Fatal("expected entry point to delimit into a function")
	}
	return a, fn
}

func TestFuncCFGConvertsEveryVertex(t *testing.T) {
	_, fn := newDiamond(t)
	lcfg := FuncCFG("diamond", fn)
	if lcfg.Name != "diamond" {
		t.Fatalf("expected name %q, got %q", "diamond", lcfg.Name)
	}
	if len(lcfg.Blocks) != len(fn.CFG.Vertices()) {
		t.Fatalf("expected %d blocks, got %d", len(fn.CFG.Vertices()), len(lcfg.Blocks))
	}
}

func TestDOTCFGIncludesEveryBlock(t *testing.T) {
	_, fn := newDiamond(t)
	dot := DOTCFG(FuncCFG("diamond", fn))
	if !strings.HasPrefix(dot, "digraph cfg {") {
		t.Fatalf("expected a digraph header, got %q", dot)
	}
	for i := range fn.CFG.Vertices() {
		want := "bb" + string(rune('0'+i))
		if !strings.Contains(dot, want) {
			t.Errorf("expected dot output to mention %s", want)
		}
	}
}

func TestDumpDotRendersEveryVertexAsABox(t *testing.T) {
	_, fn := newDiamond(t)
	dot := DumpDot(fn.CFG)
	boxes := 0
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, "[label=") && !strings.Contains(line, "->") {
			boxes++
		}
	}
	if boxes != len(fn.CFG.Vertices()) {
		t.Fatalf("expected one label per vertex in %q", dot)
	}
}

func TestAnalyzeCFGReportsNoUnreachableVerticesInAConnectedDiamond(t *testing.T) {
	_, fn := newDiamond(t)
	diag := AnalyzeCFG(fn)
	if len(diag.UnreachableVertices) != 0 {
		t.Fatalf("expected every vertex reachable, got unreachable=%v", diag.UnreachableVertices)
	}
}

func TestCallGraphAndStronglyConnectedFunctionsOnEmptyDocument(t *testing.T) {
	doc := document.New()
	g := CallGraph(doc)
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Fatalf("expected an empty call graph, got %+v", g)
	}
	if groups := StronglyConnectedFunctions(doc); len(groups) != 0 {
		t.Fatalf("expected no strongly connected groups, got %v", groups)
	}
}
