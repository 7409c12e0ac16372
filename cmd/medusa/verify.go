package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"medusa/internal/signature"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "verify-idempotent",
		Usage: "disassemble the entry point twice and confirm the second pass leaves the function's digest unchanged",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			if err := s.follow(); err != nil {
				return err
			}
			fn, ok := s.Analyzer.CreateFunction(s.Entry)
			if !ok {
				return fmt.Errorf("entry point %s did not delimit into a function", s.Entry)
			}
			first := signature.FunctionDigest(s.Doc, fn)

			if err := s.follow(); err != nil {
				return err
			}
			fn2, ok := s.Analyzer.CreateFunction(s.Entry)
			if !ok {
				return fmt.Errorf("entry point %s did not delimit into a function on the second pass", s.Entry)
			}
			second := signature.FunctionDigest(s.Doc, fn2)

			if first != second {
				return fmt.Errorf("digest mismatch after re-running: %x != %x", first, second)
			}
			fmt.Printf("idempotent: digest %x unchanged after a second pass\n", first)
			return nil
		},
	}
}
