package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"medusa/internal/report"
)

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "follow the execution path and print function and cross-reference tables",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			if err := s.follow(); err != nil {
				return err
			}
			if _, ok := s.Analyzer.CreateFunction(s.Entry); !ok {
				return nil
			}
			report.FunctionsTable(os.Stdout, s.Doc)
			report.XRefsTable(os.Stdout, s.Doc)
			return nil
		},
	}
}
