package translator

import (
	"testing"

	"github.com/pagefault-systems/sixjit/internal/arena"
	"github.com/pagefault-systems/sixjit/internal/memory"
	"github.com/pagefault-systems/sixjit/internal/xlog"
)

func newFixture(t *testing.T) (*Translator, *arena.Arena, *memory.Space) {
	t.Helper()
	a, err := arena.New()
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	mem := memory.NewOver(a.GuestMemory())
	tr := New(a, mem, xlog.Default(false))
	return tr, a, mem
}

func TestTranslateRangeMarksEveryByteLinkable(t *testing.T) {
	tr, _, mem := newFixture(t)
	mem.Write8(0x0200, 0xEA) // NOP
	mem.Write8(0x0201, 0xEA)
	mem.Write8(0x0202, 0xEA)

	if err := tr.TranslateRange(0x0200, 3); err != nil {
		t.Fatalf("TranslateRange: %v", err)
	}
	for g := uint16(0x0200); g < 0x0203; g++ {
		if !tr.Translated(g) {
			t.Errorf("guest $%04X should be translated", g)
		}
		if _, ok := tr.SlotHost(g); !ok {
			t.Errorf("SlotHost($%04X) should resolve after TranslateRange", g)
		}
	}
}

func TestTranslateRangeSameForwardPassResolvesDirectly(t *testing.T) {
	tr, _, mem := newFixture(t)
	// A forward unconditional JMP to an address later in the same range:
	// since the whole range is marked linkable before any byte emits,
	// this must resolve as a direct jump rather than trapping.
	mem.Write8(0x0300, 0x4C) // JMP $0310
	mem.Write8(0x0301, 0x10)
	mem.Write8(0x0302, 0x03)
	mem.Write8(0x0310, 0xEA) // NOP, the jump target

	if err := tr.TranslateRange(0x0300, 0x20); err != nil {
		t.Fatalf("TranslateRange: %v", err)
	}
	if !tr.Translated(0x0310) {
		t.Error("jump target should have been translated as part of the same range")
	}
}

func TestSlotHostUnresolvedBeforeTranslation(t *testing.T) {
	tr, _, _ := newFixture(t)
	if _, ok := tr.SlotHost(0x9999); ok {
		t.Error("SlotHost should not resolve an address that was never translated")
	}
}

func TestInvalidateClearsLinkBit(t *testing.T) {
	tr, _, mem := newFixture(t)
	mem.Write8(0x0400, 0xEA)
	if err := tr.TranslateRange(0x0400, 1); err != nil {
		t.Fatalf("TranslateRange: %v", err)
	}
	if !tr.Translated(0x0400) {
		t.Fatal("expected $0400 to be translated")
	}

	tr.Invalidate(0x0400)
	if tr.Translated(0x0400) {
		t.Error("Invalidate should clear the linkable bit")
	}
	if _, ok := tr.SlotHost(0x0400); ok {
		t.Error("SlotHost should not resolve an invalidated address")
	}
}

func TestSelfModifyingWriteTriggersInvalidation(t *testing.T) {
	tr, _, mem := newFixture(t)
	mem.Write8(0x0500, 0xA9) // LDA #$01
	mem.Write8(0x0501, 0x01)
	if err := tr.TranslateRange(0x0500, 2); err != nil {
		t.Fatalf("TranslateRange: %v", err)
	}
	if !tr.Translated(0x0500) {
		t.Fatal("expected $0500 to be translated")
	}

	// A store into the opcode byte of a just-translated instruction must
	// invalidate that slot via mem's code-write hook.
	mem.Write8(0x0500, 0xA9) // same opcode value, still counts as a write

	if tr.Translated(0x0500) {
		t.Error("a write into a may-contain-code page should invalidate its slot")
	}
}

func TestTranslateRangeClampsToMemorySize(t *testing.T) {
	tr, _, mem := newFixture(t)
	mem.Write8(0x0000, 0xEA)
	if err := tr.TranslateRange(0x0000, memory.Size*2); err != nil {
		t.Fatalf("TranslateRange with an oversized n: %v", err)
	}
}

func TestTranslateRangeNoOpOnNonPositiveN(t *testing.T) {
	tr, _, _ := newFixture(t)
	if err := tr.TranslateRange(0x0000, 0); err != nil {
		t.Errorf("TranslateRange(_, 0) should be a no-op, got %v", err)
	}
	if tr.Translated(0x0000) {
		t.Error("TranslateRange(_, 0) should not mark anything translated")
	}
}
