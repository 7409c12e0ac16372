// Package analyzer implements the recursive-descent disassembly core: the
// worklist-driven execution-path walker, cross-reference collection,
// function delimitation and control-flow-graph construction, string
// recognition, and forward/backward operand tracking.
package analyzer

import (
	"sync"

	"github.com/sirupsen/logrus"

	"medusa/internal/address"
	"medusa/internal/arch"
	"medusa/internal/document"
)

// Config tunes the heuristics the analyzer's algorithms apply.
type Config struct {
	// DefaultArchTag is substituted by the registry when a memory area
	// names no architecture (see arch.Registry.Get).
	DefaultArchTag string
	// FunctionLengthThreshold is the maximum byte length C6 tolerates while
	// walking a function body before aborting the walk as a runaway (a
	// value of 0 disables the guard entirely).
	FunctionLengthThreshold int
}

// DefaultFunctionLengthThreshold is the hardcoded runaway guard CreateFunction
// applies: a function body may not exceed this many bytes.
const DefaultFunctionLengthThreshold = 0x1000

// DefaultConfig returns the zero-tuning Config used when callers don't
// need to override anything.
func DefaultConfig() Config {
	return Config{FunctionLengthThreshold: DefaultFunctionLengthThreshold}
}

// Analyzer drives every recursive-descent operation over one Document. All
// writers (DisassembleFollowingExecutionPath and anything it calls) share a
// single coarse mutex; readers (FormatCell, tracking, already-built CFGs)
// are assumed externally serialized by the caller, matching Medusa's
// concurrency model.
type Analyzer struct {
	Doc      *document.Document
	Registry *arch.Registry
	Config   Config

	mu  sync.Mutex
	log *logrus.Entry
}

// New builds an Analyzer over doc, decoding with architectures from
// registry.
func New(doc *document.Document, registry *arch.Registry, cfg Config) *Analyzer {
	return &Analyzer{
		Doc:      doc,
		Registry: registry,
		Config:   cfg,
		log:      logrus.WithField("component", "analyzer"),
	}
}

// resolveArch picks the Architecture that should decode/format addr,
// following area.ArchTag with a fallback to the registry's default tag.
func (a *Analyzer) resolveArch(area *document.MemoryArea) (arch.Architecture, bool) {
	if area.ArchTag != 0 {
		if ar, ok := a.Registry.GetByID(area.ArchTag); ok {
			return ar, true
		}
	}
	return a.Registry.Get(a.Config.DefaultArchTag)
}

// archForCell resolves the Architecture that decoded a given cell, by its
// recorded architecture tag, falling back to the registry default.
func (a *Analyzer) archForCell(tag uint32) (arch.Architecture, bool) {
	if tag != 0 {
		if ar, ok := a.Registry.GetByID(tag); ok {
			return ar, true
		}
	}
	return a.Registry.Get(a.Config.DefaultArchTag)
}

// FormatCell is C2: render the cell at addr via whichever architecture
// decoded it.
func (a *Analyzer) FormatCell(addr address.Address) (string, []document.Mark, bool) {
	cell, ok := a.Doc.RetrieveCell(addr)
	if !ok {
		return "", nil, false
	}
	ar, ok := a.archForCell(cell.ArchitectureTag())
	if !ok {
		return "", nil, false
	}
	text, marks := ar.FormatCell(addr, cell)
	return text, marks, true
}

// FormatMultiCell is C2 for MultiCells: unlike cells, a multi-cell always
// formats via the registry's default tag, never a per-instance tag.
func (a *Analyzer) FormatMultiCell(addr address.Address) (string, []document.Mark, bool) {
	mc, ok := a.Doc.RetrieveMultiCell(addr)
	if !ok {
		return "", nil, false
	}
	ar, ok := a.Registry.Get(a.Config.DefaultArchTag)
	if !ok {
		return "", nil, false
	}
	text, marks := ar.FormatMultiCell(addr, mc)
	return text, marks, true
}
