package archarm64

import (
	"encoding/binary"
	"testing"

	"medusa/internal/address"
	"medusa/internal/document"
)

func newArea(t *testing.T, words ...uint32) *document.MemoryArea {
	t.Helper()
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	stream := document.NewByteStream(data)
	return document.NewMemoryArea("test", address.New(0), uint64(len(data)), document.AccessR|document.AccessExec, stream, 0)
}

func TestDecodeRet(t *testing.T) {
	a := New()
	area := newArea(t, 0xD65F03C0) // RET X30
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsRet() {
		t.Fatalf("expected OpRet, got %v", insn.Operation)
	}
}

func TestDecodeUnconditionalBranch(t *testing.T) {
	a := New()
	// B #8: imm26 = 8/4 = 2
	area := newArea(t, 0x14000002)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsJump() || insn.Operation.IsCond() {
		t.Fatalf("expected unconditional jump, got %v", insn.Operation)
	}
	target, ok := insn.GetOperandReference(0, address.New(0))
	if !ok || target != address.New(8) {
		t.Fatalf("expected branch target 8, got (%v, %v)", target, ok)
	}
}

func TestDecodeBL(t *testing.T) {
	a := New()
	// BL #8
	area := newArea(t, 0x94000002)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsCall() {
		t.Fatalf("expected OpCall, got %v", insn.Operation)
	}
	target, ok := insn.GetOperandReference(0, address.New(0))
	if !ok || target != address.New(8) {
		t.Fatalf("expected call target 8, got (%v, %v)", target, ok)
	}
}

func TestDecodeBLR(t *testing.T) {
	a := New()
	// BLR X0
	area := newArea(t, 0xD63F0000)
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

func TestDecodeConditionalBranch(t *testing.T) {
	a := New()
	// B.EQ #8: imm19 = 2, cond = 0000 (EQ)
	area := newArea(t, 0x54000040)
	insn, ok := a.Disassemble(area, address.New(0))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !insn.Operation.IsJump() || !insn.Operation.IsCond() {
		t.Fatalf("expected conditional jump, got %v", insn.Operation)
	}
}
