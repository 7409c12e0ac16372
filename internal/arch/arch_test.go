package arch

import (
	"testing"

	"medusa/internal/address"
	"medusa/internal/document"
)

type stubArch struct {
	tag string
	id  uint32
}

func (s *stubArch) GetTag() string       { return s.tag }
func (s *stubArch) UpdateId(id uint32)   { s.id = id }
func (s *stubArch) Disassemble(*document.MemoryArea, address.Address) (*document.Instruction, bool) {
	return nil, false
}
func (s *stubArch) DisassembleBasicBlockOnly() bool { return false }
func (s *stubArch) FormatCell(address.Address, document.Cell) (string, []document.Mark) {
	return "", nil
}
func (s *stubArch) FormatMultiCell(address.Address, document.MultiCell) (string, []document.Mark) {
	return "", nil
}

func TestRegisterAssignsLowestClearBit(t *testing.T) {
	r := NewRegistry("test")
	a := &stubArch{tag: "test"}
	if !r.Register(a) {
		t.Fatalf("Register failed")
	}
	if a.id != 0 {
		t.Fatalf("expected id 0, got %d", a.id)
	}

	b := &stubArch{tag: "other"}
	if !r.Register(b) {
		t.Fatalf("Register failed")
	}
	if b.id != 1 {
		t.Fatalf("expected id 1, got %d", b.id)
	}
}

func TestRegisterDuplicateTagFails(t *testing.T) {
	r := NewRegistry("test")
	r.Register(&stubArch{tag: "test"})
	if r.Register(&stubArch{tag: "test"}) {
		t.Fatalf("expected duplicate tag registration to fail")
	}
}

func TestUnregisterAlwaysFalse(t *testing.T) {
	r := NewRegistry("test")
	r.Register(&stubArch{tag: "test"})
	if r.Unregister("test") {
		t.Fatalf("Unregister must always report false")
	}
	if _, ok := r.Get("test"); !ok {
		t.Fatalf("Unregister must not actually remove the architecture")
	}
}

func TestResetClearsMapNotBitmap(t *testing.T) {
	r := NewRegistry("test")
	first := &stubArch{tag: "test"}
	r.Register(first)
	r.Reset()

	if _, ok := r.Get("test"); ok {
		t.Fatalf("Reset must clear the tag map")
	}

	second := &stubArch{tag: "test"}
	r.Register(second)
	if second.id == first.id {
		t.Fatalf("Reset must not clear the id bitmap: got reused id %d", second.id)
	}
	if second.id != 1 {
		t.Fatalf("expected next id 1 (id 0 stays retired after Reset), got %d", second.id)
	}
}

func TestGetDefaultTagSubstitution(t *testing.T) {
	r := NewRegistry("fallback")
	r.Register(&stubArch{tag: "fallback"})
	a, ok := r.Get("unknown-tag")
	if !ok {
		t.Fatalf("expected default-tag substitution to succeed")
	}
	if a.GetTag() != "fallback" {
		t.Fatalf("expected fallback architecture, got %q", a.GetTag())
	}
}

func TestGetUnknownWithoutDefaultFails(t *testing.T) {
	r := NewRegistry("fallback")
	if _, ok := r.Get("unknown-tag"); ok {
		t.Fatalf("expected Get to fail when default tag is also unregistered")
	}
}
