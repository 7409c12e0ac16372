// Command medusa is a recursive-descent disassembler core for ELF64
// binaries: it follows execution paths from an entry point, delimits
// functions, recognizes string data, and reports cross-references and
// control-flow structure.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "medusa",
		Usage:   "recursive-descent binary disassembly core",
		Version: "0.1.0",
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			scanCmd(),
			disasmCmd(),
			stringsCmd(),
			graphCmd(),
			reportCmd(),
			verifyCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "medusa:", err)
		os.Exit(1)
	}
}
