package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"medusa/internal/document"
)

func stringsCmd() *cli.Command {
	return &cli.Command{
		Name:  "strings",
		Usage: "follow the execution path, then scan the entry's memory area for ASCII and UTF-16 string data",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			area := s.Doc.GetMemoryArea(s.Entry)
			if area == nil {
				return fmt.Errorf("entry point %s is not mapped by any loaded segment", s.Entry)
			}
			s.Analyzer.DisassembleFollowingExecutionPath(s.Entry)

			found := s.Analyzer.FindStrings(area)
			sort.Slice(found, func(i, j int) bool { return found[i].Less(found[j]) })
			for _, addr := range found {
				cell, ok := s.Doc.RetrieveCell(addr)
				if !ok {
					continue
				}
				str, ok := cell.(*document.String)
				if !ok {
					continue
				}
				fmt.Printf("%s  %-6s %q\n", addr, stringKindName(str.StrKind), str.Text)
			}
			return nil
		},
	}
}

func stringKindName(k document.StringKind) string {
	if k == document.Utf16Type {
		return "utf16"
	}
	return "ascii"
}
