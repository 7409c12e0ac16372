package archx86

import (
	"testing"

	"medusa/internal/address"
	"medusa/internal/document"
)

func newArea(t *testing.T, data []byte) *document.MemoryArea {
	t.Helper()
	stream := document.NewByteStream(data)
	return document.NewMemoryArea("test", address.New(0), uint64(len(data)), document.AccessR|document.AccessExec, stream, 0)
}

func TestDecodeRet(t *testing.T) {
	a := New()
	area := newArea(t, []byte{0xC3})
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsRet() {
		t.Fatalf("expected OpRet, got %v", insn.Operation)
	}
}

func TestDecodeCallRel32(t *testing.T) {
	a := New()
	// call rel32: E8 + imm32 (5 bytes); target = pc + 5 + imm32
	data := []byte{0xE8, 0x0A, 0x00, 0x00, 0x00}
	area := newArea(t, data)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsCall() {
		t.Fatalf("expected OpCall, got %v", insn.Operation)
	}
	target, ok := insn.GetOperandReference(0, address.New(0))
	if !ok || target != address.New(15) {
		t.Fatalf("expected call target 15, got (%v, %v)", target, ok)
	}
}

func TestDecodeJmpRel8(t *testing.T) {
	a := New()
	// jmp rel8: EB + imm8 (2 bytes); target = pc + 2 + imm8
	data := []byte{0xEB, 0x05}
	area := newArea(t, data)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsJump() || insn.Operation.IsCond() {
		t.Fatalf("expected unconditional jump, got %v", insn.Operation)
	}
	target, ok := insn.GetOperandReference(0, address.New(0))
	if !ok || target != address.New(7) {
		t.Fatalf("expected jump target 7, got (%v, %v)", target, ok)
	}
}

func TestDecodeJeRel8(t *testing.T) {
	a := New()
	// je rel8: 74 + imm8
	data := []byte{0x74, 0x03}
	area := newArea(t, data)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsJump() || !insn.Operation.IsCond() {
		t.Fatalf("expected conditional jump, got %v", insn.Operation)
	}
}

func TestDecodeIndirectCall(t *testing.T) {
	a := New()
	// call rax: FF D0
	data := []byte{0xFF, 0xD0}
	area := newArea(t, data)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsCall() {
		t.Fatalf("expected OpCall, got %v", insn.Operation)
	}
	if _, ok := insn.GetOperandReference(0, address.New(0)); ok {
		t.Fatalf("expected an indirect call to have no statically resolvable target")
	}
}
