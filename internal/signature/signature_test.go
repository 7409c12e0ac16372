package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medusa/internal/address"
	"medusa/internal/analyzer"
	"medusa/internal/arch"
	"medusa/internal/archtest"
	"medusa/internal/document"
)

func newFixture(t *testing.T) (*analyzer.Analyzer, *document.MemoryArea) {
	t.Helper()
	data := []byte{archtest.OpNop, archtest.OpNop, archtest.OpRet}
	doc := document.New()
	reg := arch.NewRegistry(archtest.Tag)
	require.True(t, reg.Register(archtest.New()))
	area := document.NewMemoryArea("test", address.New(0), uint64(len(data)),
		document.AccessR|document.AccessExec, document.NewByteStream(data), 0)
	require.True(t, doc.AddMemoryArea(area))
	a := analyzer.New(doc, reg, analyzer.Config{DefaultArchTag: archtest.Tag})
	return a, area
}

func TestFunctionDigestStableAcrossRepeatedPasses(t *testing.T) {
	a, _ := newFixture(t)
	a.DisassembleFollowingExecutionPath(address.New(0))
	fn, ok := a.CreateFunction(address.New(0))
	require.True(t, ok)

	first := FunctionDigest(a.Doc, fn)

	// Re-running over the same entry point must not change the digest.
	a.DisassembleFollowingExecutionPath(address.New(0))
	fn2, ok := a.CreateFunction(address.New(0))
	require.True(t, ok)
	second := FunctionDigest(a.Doc, fn2)

	assert.Equal(t, first, second)
}

func TestVerifyIdempotentDetectsMismatch(t *testing.T) {
	a, _ := newFixture(t)
	a.DisassembleFollowingExecutionPath(address.New(0))
	fn, ok := a.CreateFunction(address.New(0))
	require.True(t, ok)

	want := FunctionDigest(a.Doc, fn)
	got, ok := VerifyIdempotent(a.Doc, address.New(0), want)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = VerifyIdempotent(a.Doc, address.New(0), want+1)
	assert.False(t, ok)
}

func TestVerifyIdempotentUnknownEntryFails(t *testing.T) {
	a, _ := newFixture(t)
	_, ok := VerifyIdempotent(a.Doc, address.New(99), 0)
	assert.False(t, ok)
}
