package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"medusa/internal/report"
)

func disasmCmd() *cli.Command {
	return &cli.Command{
		Name:  "disasm",
		Usage: "follow the execution path from the entry point and print the decoded instruction stream",
		Flags: append(commonFlags(),
			&cli.BoolFlag{Name: "no-color", Usage: "disable ANSI mnemonic/operand coloring"},
		),
		Action: runDisasmCmd,
	}
}

func runDisasmCmd(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	if s.Doc.GetMemoryArea(s.Entry) == nil {
		return fmt.Errorf("entry point %s is not mapped by any loaded segment", s.Entry)
	}
	insns := s.Analyzer.DisassembleFollowingExecutionPath(s.Entry)
	sort.Slice(insns, func(i, j int) bool { return insns[i].Less(insns[j]) })

	colored := !c.Bool("no-color") && !color.NoColor
	for _, addr := range insns {
		text, marks, ok := s.Analyzer.FormatCell(addr)
		if !ok {
			continue
		}
		fmt.Printf("%s  %s\n", addr, report.ColorizeLine(text, marks, colored))
	}
	return nil
}
