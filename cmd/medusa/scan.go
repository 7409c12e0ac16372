package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"medusa/internal/address"
	"medusa/internal/batch"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "follow execution paths from the entry point, or from a file of additional entry points run in parallel",
		Flags: append(commonFlags(),
			&cli.StringFlag{Name: "entries", Usage: "path to a file of additional entry-point addresses in hex, one per line, disassembled in parallel alongside the primary entry"},
			&cli.IntFlag{Name: "workers", Usage: "worker pool size for --entries (0 = runtime.NumCPU()*2)"},
		),
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}

	extra, err := readEntries(c.String("entries"))
	if err != nil {
		return err
	}

	if len(extra) > 0 {
		entries := append([]address.Address{s.Entry}, extra...)
		for _, res := range batch.DisassembleEntryPoints(s.Analyzer, entries, c.Int("workers")) {
			if res.Err != nil {
				logrus.WithField("entry", res.Entry).WithError(res.Err).Warn("batch entry point failed")
				continue
			}
			s.Analyzer.CreateFunction(res.Entry)
		}
	} else {
		if err := s.follow(); err != nil {
			return err
		}
		if fn, ok := s.Analyzer.CreateFunction(s.Entry); ok {
			fmt.Printf("entry function: %d instructions, %d bytes\n", fn.InsnCount, fn.ByteLength)
		} else {
			logrus.WithField("entry", s.Entry).Warn("entry point did not delimit into a function")
		}
	}

	if area := s.Doc.GetMemoryArea(s.Entry); area != nil {
		s.Analyzer.FindStrings(area)
	}

	fmt.Printf("functions delimited: %d\n", len(s.Doc.Functions()))
	fmt.Printf("cross-references recorded: %d\n", s.Doc.GetXRefs().Count())
	return nil
}

func readEntries(path string) ([]address.Address, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scan: open %s: %w", path, err)
	}
	defer f.Close()

	var out []address.Address
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var offset uint64
		if _, err := fmt.Sscanf(line, "%x", &offset); err != nil {
			return nil, fmt.Errorf("scan: invalid entry %q: %w", line, err)
		}
		out = append(out, address.New(offset))
	}
	return out, scanner.Err()
}
