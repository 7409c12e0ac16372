// Package batch fans a set of entry points out across a bounded goroutine
// pool, driving the analyzer's execution-path walker concurrently. Safety
// comes entirely from Analyzer's own mutex (internal/analyzer); this
// package adds no locking of its own.
package batch

import (
	"fmt"
	"os"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"

	"medusa/internal/address"
	"medusa/internal/analyzer"
)

// DefaultWorkerMultiplier is applied to NumCPU when maxWorkers is <= 0.
const DefaultWorkerMultiplier = 2

// Result is one entry point's outcome.
type Result struct {
	Entry address.Address
	Insns []address.Address
	Err   error
}

// DisassembleEntryPoints runs DisassembleFollowingExecutionPath for every
// entry point concurrently, reporting progress on stderr. If maxWorkers is
// <= 0, it defaults to 2x NumCPU.
func DisassembleEntryPoints(a *analyzer.Analyzer, entries []address.Address, maxWorkers int) []Result {
	if len(entries) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("disassembling"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]Result, len(entries))
	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, entry := range entries {
		i, entry := i, entry
		p.Go(func() {
			defer bar.Add(1)
			if a.Doc.GetMemoryArea(entry) == nil {
				results[i] = Result{Entry: entry, Err: fmt.Errorf("batch: no memory area maps entry %s", entry)}
				return
			}
			results[i] = Result{Entry: entry, Insns: a.DisassembleFollowingExecutionPath(entry)}
		})
	}
	p.Wait()

	return results
}
