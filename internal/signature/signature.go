// Package signature computes xxhash digests over a function's decoded
// instruction stream, letting callers check the no-op-on-second-pass
// property of a recursive-descent run without a byte-for-byte Document
// diff.
package signature

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"medusa/internal/address"
	"medusa/internal/document"
)

// FunctionDigest hashes fn's basic-block vertices in CFG order: each
// cell's address, kind, and content (mnemonic text, string characters, or
// value width).
func FunctionDigest(doc *document.Document, fn *document.Function) uint64 {
	h := xxhash.New()
	if fn.CFG == nil {
		return h.Sum64()
	}
	for _, v := range fn.CFG.Vertices() {
		for _, addr := range v.Addresses {
			cell, ok := doc.RetrieveCell(addr)
			if !ok {
				continue
			}
			writeCell(h, addr, cell)
		}
	}
	return h.Sum64()
}

func writeCell(h *xxhash.Digest, addr address.Address, cell document.Cell) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], addr.Offset)
	h.Write(buf[:])
	h.Write([]byte{byte(cell.Kind())})

	switch c := cell.(type) {
	case *document.Instruction:
		h.Write([]byte(c.Mnemonic))
	case *document.String:
		h.Write([]byte(c.Text))
	case *document.Value:
		binary.LittleEndian.PutUint64(buf[:], uint64(c.Width))
		h.Write(buf[:])
	}
}

// VerifyIdempotent recomputes the digest of the function delimited at entry
// and reports whether it matches want, the digest recorded from an earlier
// pass over the same entry point.
func VerifyIdempotent(doc *document.Document, entry address.Address, want uint64) (got uint64, ok bool) {
	mc, ok := doc.RetrieveMultiCell(entry)
	if !ok {
		return 0, false
	}
	fn, ok := mc.(*document.Function)
	if !ok {
		return 0, false
	}
	got = FunctionDigest(doc, fn)
	return got, got == want
}
