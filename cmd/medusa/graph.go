package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"medusa/internal/address"
	"medusa/internal/document"
	"medusa/internal/render"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "emit DOT for the entry function's control-flow graph, or the whole binary's call graph",
		Flags: append(commonFlags(),
			&cli.BoolFlag{Name: "calls", Usage: "emit the call graph instead of a single function's CFG"},
			&cli.BoolFlag{Name: "raw", Usage: "dump the control-flow graph directly, one box per vertex, bypassing the lattice rendering"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write DOT to this path instead of stdout"},
		),
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	if err := s.follow(); err != nil {
		return err
	}

	var dot string
	switch {
	case c.Bool("calls"):
		dot = render.DOTCallGraph(render.CallGraph(s.Doc))
	case c.Bool("raw"):
		fn, ok := s.Analyzer.CreateFunction(s.Entry)
		if !ok {
			return fmt.Errorf("entry point %s did not delimit into a function", s.Entry)
		}
		dot = render.DumpDot(fn.CFG)
	default:
		fn, ok := s.Analyzer.CreateFunction(s.Entry)
		if !ok {
			return fmt.Errorf("entry point %s did not delimit into a function", s.Entry)
		}
		diag := render.AnalyzeCFG(fn)
		fmt.Fprintf(os.Stderr, "cyclomatic complexity: %d, unreachable blocks: %d\n",
			diag.CyclomaticComplexity, len(diag.UnreachableVertices))
		dot = render.DOTCFG(render.FuncCFG(entryLabel(s.Doc, s.Entry), fn))
	}

	if out := c.String("out"); out != "" {
		return os.WriteFile(out, []byte(dot), 0o644)
	}
	fmt.Print(dot)
	return nil
}

func entryLabel(doc *document.Document, addr address.Address) string {
	if lbl := doc.GetLabelFromAddress(addr); !lbl.IsZero() {
		return lbl.Name
	}
	return fmt.Sprintf("sub_%s", addr)
}
