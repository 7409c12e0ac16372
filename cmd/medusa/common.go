package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"medusa/internal/address"
	"medusa/internal/analyzer"
	"medusa/internal/arch"
	"medusa/internal/archarm64"
	"medusa/internal/archx86"
	"medusa/internal/config"
	"medusa/internal/document"
	"medusa/internal/loader/elfimage"
)

// session is the state every subcommand builds from the --file/--arch/--config
// flags: a populated Document, the Analyzer driving it, and the binary's
// declared entry point.
type session struct {
	Doc      *document.Document
	Analyzer *analyzer.Analyzer
	Entry    address.Address
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "path to an ELF64 binary"},
		&cli.StringFlag{Name: "arch", Aliases: []string{"a"}, Value: archarm64.Tag, Usage: "architecture tag: arm64 or x86-64"},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a JSON config file"},
		&cli.StringFlag{Name: "entry", Usage: "entry point address in hex, overriding the ELF header's e_entry"},
	}
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	archTag := c.String("arch")
	if archTag != "" {
		cfg.DefaultArchTag = archTag
	}

	reg := arch.NewRegistry(cfg.DefaultArchTag)
	if !reg.Register(archarm64.New()) {
		return nil, fmt.Errorf("failed to register %s", archarm64.Tag)
	}
	if !reg.Register(archx86.New()) {
		return nil, fmt.Errorf("failed to register %s", archx86.Tag)
	}

	doc := document.New()
	entry, err := elfimage.Load(c.String("file"), doc, 0)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", c.String("file"), err)
	}

	if hex := c.String("entry"); hex != "" {
		var offset uint64
		if _, err := fmt.Sscanf(hex, "%x", &offset); err != nil {
			return nil, fmt.Errorf("invalid --entry %q: %w", hex, err)
		}
		entry = address.New(offset)
	}

	a := analyzer.New(doc, reg, cfg)
	return &session{Doc: doc, Analyzer: a, Entry: entry}, nil
}

// follow runs the execution-path walk from the session's entry point over
// whatever memory area maps it.
func (s *session) follow() error {
	if s.Doc.GetMemoryArea(s.Entry) == nil {
		return fmt.Errorf("entry point %s is not mapped by any loaded segment", s.Entry)
	}
	s.Analyzer.DisassembleFollowingExecutionPath(s.Entry)
	return nil
}
