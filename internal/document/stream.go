package document

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfRange is returned by a BinaryStream read past the end of its
// backing data.
var ErrOutOfRange = errors.New("document: physical offset out of range")

// BinaryStream is the narrow read surface the core needs from a loaded
// binary's backing storage. Concrete implementations (a flat byte slice, a
// mapped file, ...) are an external collaborator per spec.md §6; this
// package ships ByteStream, a slice-backed implementation sufficient for an
// in-memory Document.
type BinaryStream interface {
	// ReadByte reads a single byte at the given physical (file/segment)
	// offset.
	ReadByte(off int64) (byte, error)
	// ReadUint16LE reads a little-endian 16-bit code unit, used by the
	// UTF-16 string prober.
	ReadUint16LE(off int64) (uint16, error)
	// ReadBytes reads n raw bytes starting at off, for architecture
	// back-ends that decode from a byte window rather than one unit at a
	// time.
	ReadBytes(off int64, n int) ([]byte, error)
}

// ByteStream is a BinaryStream backed by an in-memory byte slice — the
// typical case once a loader has read a segment off disk.
type ByteStream struct {
	Data []byte
}

func NewByteStream(data []byte) *ByteStream { return &ByteStream{Data: data} }

func (s *ByteStream) ReadByte(off int64) (byte, error) {
	if off < 0 || off >= int64(len(s.Data)) {
		return 0, ErrOutOfRange
	}
	return s.Data[off], nil
}

func (s *ByteStream) ReadUint16LE(off int64) (uint16, error) {
	if off < 0 || off+2 > int64(len(s.Data)) {
		return 0, ErrOutOfRange
	}
	return binary.LittleEndian.Uint16(s.Data[off : off+2]), nil
}

func (s *ByteStream) ReadBytes(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+int64(n) > int64(len(s.Data)) {
		return nil, ErrOutOfRange
	}
	return s.Data[off : off+int64(n)], nil
}
