package arena

import (
	"testing"

	"github.com/pagefault-systems/sixjit/internal/memory"
)

func TestNewLayoutSizesAndOffsets(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if len(a.GuestMemory()) != memory.Size {
		t.Errorf("GuestMemory len = %d, want %d", len(a.GuestMemory()), memory.Size)
	}
	if len(a.Ctrl()) != CtrlSize {
		t.Errorf("Ctrl len = %d, want %d", len(a.Ctrl()), CtrlSize)
	}
	if a.MemBase() == 0 {
		t.Error("MemBase should be a nonzero host address")
	}
}

func TestSlotAddrIsStrideApart(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	a0 := a.SlotAddr(0)
	a1 := a.SlotAddr(1)
	if a1-a0 != Stride {
		t.Errorf("SlotAddr(1)-SlotAddr(0) = %d, want %d", a1-a0, Stride)
	}
}

func TestSlotReturnsStrideByteWindow(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	s := a.Slot(0x1234)
	if len(s) != Stride {
		t.Errorf("Slot len = %d, want %d", len(s), Stride)
	}
}

func TestEverySlotInitializedToTrapStub(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	for _, g := range []uint16{0x0000, 0x1234, 0xFFFF} {
		s := a.Slot(g)
		if s[0] == 0 {
			t.Errorf("slot $%04X looks zeroed, not initialized with a trap stub", g)
		}
	}
}

func TestResetSlotRestoresTrapStub(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	const g = uint16(0x0200)
	if err := a.BeginFill(); err != nil {
		t.Fatalf("BeginFill: %v", err)
	}
	slot := a.Slot(g)
	for i := range slot {
		slot[i] = 0x90 // overwrite with plain NOPs
	}
	if err := a.EndFill(); err != nil {
		t.Fatalf("EndFill: %v", err)
	}

	if err := a.ResetSlot(g); err != nil {
		t.Fatalf("ResetSlot: %v", err)
	}
	if a.Slot(g)[0] == 0x90 {
		t.Error("ResetSlot should have overwritten the NOP sled with a trap stub")
	}
}

func TestBeginFillEndFillIdempotent(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.EndFill(); err != nil {
		t.Fatalf("EndFill on an already-executable arena: %v", err)
	}
	if err := a.BeginFill(); err != nil {
		t.Fatalf("BeginFill: %v", err)
	}
	if err := a.BeginFill(); err != nil {
		t.Fatalf("BeginFill on an already-writable arena: %v", err)
	}
	if err := a.EndFill(); err != nil {
		t.Fatalf("EndFill: %v", err)
	}
}

func TestEnterAtPanicsOutsideJitRegion(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	defer func() {
		if recover() == nil {
			t.Error("EnterAt with a host address outside the jit region should panic")
		}
	}()
	a.EnterAt(a.MemBase())
}
