// Package render turns a Document's delimited functions into
// github.com/zboralski/lattice graphs (for CFG/call-graph dot output) and
// gonum graphs (for structural diagnostics: cyclomatic complexity,
// unreachable blocks, strongly connected components).
package render

import (
	"fmt"
	"strings"

	"github.com/zboralski/lattice"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"medusa/internal/address"
	"medusa/internal/document"
)

// FuncCFG converts a Function's ControlFlowGraph into a lattice.FuncCFG,
// one lattice.BasicBlock per CFG vertex, in the order
// ControlFlowGraph.Vertices returns them.
func FuncCFG(name string, fn *document.Function) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: name}
	if fn.CFG == nil {
		return lcfg
	}

	indexOf := make(map[address.Address]int)
	for i, v := range fn.CFG.Vertices() {
		if len(v.Addresses) > 0 {
			indexOf[v.Addresses[0]] = i
		}
	}

	for i, v := range fn.CFG.Vertices() {
		if len(v.Addresses) == 0 {
			continue
		}
		last := v.Addresses[len(v.Addresses)-1]
		out := fn.CFG.OutEdges(last)

		lb := &lattice.BasicBlock{
			ID:    i,
			Start: 0,
			End:   len(v.Addresses),
			Term:  len(out) == 0,
		}
		for _, e := range out {
			dstIdx, ok := indexOf[e.Dst]
			if !ok {
				continue
			}
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: dstIdx,
				Cond:    e.Type.String(),
			})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// DOTCFG renders a lattice.FuncCFG's basic blocks and successor edges as
// DOT, one node per block labelled by its instruction count, with
// conditional true/false edges colored apart from unconditional ones.
func DOTCFG(cfg *lattice.FuncCFG) string {
	if cfg == nil || len(cfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=rect, style=filled, fillcolor=\"#f5f5f5\", fontname=\"Courier,monospace\", fontsize=9];\n")
	fmt.Fprintf(&b, "  label=%q;\n  labelloc=t;\n\n", cfg.Name)

	for _, blk := range cfg.Blocks {
		attrs := ""
		if blk.Term {
			attrs = ", fillcolor=\"#ffe0e0\""
		}
		fmt.Fprintf(&b, "  bb%d [label=\"block %d (%d insns)\"%s];\n", blk.ID, blk.ID, blk.End-blk.Start, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		for _, s := range blk.Succs {
			switch s.Cond {
			case "True":
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=darkgreen, label=\"T\"];\n", blk.ID, s.BlockID)
			case "False":
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=firebrick, label=\"F\"];\n", blk.ID, s.BlockID)
			default:
				fmt.Fprintf(&b, "  bb%d -> bb%d;\n", blk.ID, s.BlockID)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// DOTCallGraph renders a lattice.Graph of function call edges as DOT.
func DOTCallGraph(g *lattice.Graph) string {
	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontname=\"Courier,monospace\", fontsize=9];\n\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", e.Caller, e.Callee)
	}
	b.WriteString("}\n")
	return b.String()
}

// DumpDot renders a ControlFlowGraph directly (bypassing the lattice
// conversion FuncCFG performs): one box per vertex labelled with its
// address list, one edge per recorded CFG edge. Mirrors the original
// analyzer's DumpControlFlowGraph, which handed boost::write_graphviz a
// PropWriter labelling each vertex the same way.
func DumpDot(cfg *document.ControlFlowGraph) string {
	if cfg == nil {
		return ""
	}
	vertices := cfg.Vertices()
	indexOf := make(map[address.Address]int)
	for i, v := range vertices {
		if len(v.Addresses) > 0 {
			indexOf[v.Addresses[0]] = i
		}
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  node [shape=box, fontname=\"Courier,monospace\", fontsize=9];\n\n")
	for i, v := range vertices {
		var addrs []string
		for _, a := range v.Addresses {
			addrs = append(addrs, a.String())
		}
		fmt.Fprintf(&b, "  v%d [label=%q];\n", i, strings.Join(addrs, "\\n"))
	}
	b.WriteByte('\n')
	for i, v := range vertices {
		if len(v.Addresses) == 0 {
			continue
		}
		last := v.Addresses[len(v.Addresses)-1]
		for _, e := range cfg.OutEdges(last) {
			dstIdx, ok := indexOf[e.Dst]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  v%d -> v%d [label=%q];\n", i, dstIdx, e.Type.String())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// CallGraph builds a lattice.Graph over every delimited function in doc:
// one node per function (named by its label, falling back to its address),
// one edge per statically-resolved call operand (a callee with no label is
// named sub_<address>).
func CallGraph(doc *document.Document) *lattice.Graph {
	g := &lattice.Graph{}
	names := make(map[address.Address]string)
	for _, fnAddr := range doc.Functions() {
		names[fnAddr] = functionName(doc, fnAddr)
	}
	for fnAddr, callerName := range names {
		g.Nodes = append(g.Nodes, callerName)
		mc, ok := doc.RetrieveMultiCell(fnAddr)
		if !ok {
			continue
		}
		fn, ok := mc.(*document.Function)
		if !ok || fn.CFG == nil {
			continue
		}
		for _, v := range fn.CFG.Vertices() {
			for _, ia := range v.Addresses {
				cell, ok := doc.RetrieveCell(ia)
				if !ok {
					continue
				}
				insn, ok := cell.(*document.Instruction)
				if !ok || !insn.Operation.IsCall() {
					continue
				}
				for i := 0; i < insn.NumOperands; i++ {
					target, ok := insn.GetOperandReference(i, ia)
					if !ok {
						continue
					}
					calleeName := functionName(doc, target)
					g.Edges = append(g.Edges, lattice.Edge{Caller: callerName, Callee: calleeName})
				}
			}
		}
	}
	g.Dedup()
	return g
}

func functionName(doc *document.Document, addr address.Address) string {
	if lbl := doc.GetLabelFromAddress(addr); !lbl.IsZero() {
		return lbl.Name
	}
	return fmt.Sprintf("sub_%s", addr.String())
}

// Diagnostics reports structural properties of one function's CFG: its
// cyclomatic complexity (E - N + 2, the standard single-connected-component
// formula) and every vertex unreachable from the entry block.
type Diagnostics struct {
	CyclomaticComplexity int
	UnreachableVertices  []int
}

// AnalyzeCFG computes Diagnostics for fn by mapping its CFG onto a gonum
// simple.DirectedGraph and walking it depth-first from the entry vertex
// (vertex 0).
func AnalyzeCFG(fn *document.Function) Diagnostics {
	var diag Diagnostics
	if fn.CFG == nil || len(fn.CFG.Vertices()) == 0 {
		return diag
	}

	vertices := fn.CFG.Vertices()
	g := simple.NewDirectedGraph()
	for i := range vertices {
		g.AddNode(simple.Node(int64(i)))
	}

	indexOf := make(map[address.Address]int)
	for i, v := range vertices {
		if len(v.Addresses) > 0 {
			indexOf[v.Addresses[0]] = i
		}
	}

	edgeCount := 0
	for i, v := range vertices {
		if len(v.Addresses) == 0 {
			continue
		}
		last := v.Addresses[len(v.Addresses)-1]
		for _, e := range fn.CFG.OutEdges(last) {
			dstIdx, ok := indexOf[e.Dst]
			if !ok {
				continue
			}
			if !g.HasEdgeFromTo(int64(i), int64(dstIdx)) {
				g.SetEdge(simple.Edge{F: simple.Node(int64(i)), T: simple.Node(int64(dstIdx))})
			}
			edgeCount++
		}
	}

	diag.CyclomaticComplexity = edgeCount - len(vertices) + 2

	reachable := make(map[int64]bool)
	visitFrom(g, 0, reachable)
	for i := range vertices {
		if !reachable[int64(i)] {
			diag.UnreachableVertices = append(diag.UnreachableVertices, i)
		}
	}
	return diag
}

func visitFrom(g *simple.DirectedGraph, start int64, seen map[int64]bool) {
	if seen[start] {
		return
	}
	seen[start] = true
	it := g.From(start)
	for it.Next() {
		visitFrom(g, it.Node().ID(), seen)
	}
}

// StronglyConnectedFunctions groups the call graph's functions into their
// strongly connected components, surfacing mutual/indirect recursion.
func StronglyConnectedFunctions(doc *document.Document) [][]string {
	g := CallGraph(doc)
	dg := simple.NewDirectedGraph()
	index := make(map[string]int64)
	for i, n := range g.Nodes {
		index[n] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges {
		from, ok1 := index[e.Caller]
		to, ok2 := index[e.Callee]
		if ok1 && ok2 {
			dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	var groups [][]string
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		var names []string
		for _, n := range scc {
			names = append(names, g.Nodes[n.ID()])
		}
		groups = append(groups, names)
	}
	return groups
}
