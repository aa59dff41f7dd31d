// Package translator drives internal/emit over a guest address range and
// owns the bookkeeping that tells the emitter which guest targets are
// currently linkable: the translate_range operation from the arena
// contract, plus the invalidation entry point memory.Space's code-write
// hook calls back into.
package translator

import (
	"fmt"

	"github.com/pagefault-systems/sixjit/internal/arena"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/memory"
	"github.com/pagefault-systems/sixjit/internal/xlog"
)

// Translator fills arena slots from guest bytes and tracks, per guest
// address, whether the slot currently holds real translated code (true)
// or the arena's trap stub (false, the initial and post-invalidation
// state). It implements emit.Resolver directly against that bitmap.
type Translator struct {
	arena *arena.Arena
	mem   *memory.Space
	log   *xlog.Logger

	translated [memory.Size]bool
}

// New returns a Translator over a, reading guest bytes from mem and
// writing slots into a. mem is expected to be backed by a.GuestMemory()
// (via memory.NewOver) so that reads here and reads/writes from
// translated code agree on the same bytes.
func New(a *arena.Arena, mem *memory.Space, log *xlog.Logger) *Translator {
	t := &Translator{arena: a, mem: mem, log: log}
	mem.SetCodeWriteHook(t.Invalidate)
	return t
}

// SlotHost implements emit.Resolver: a guest address links directly only
// once this Translator has actually filled its slot.
func (t *Translator) SlotHost(g uint16) (uintptr, bool) {
	if !t.translated[g] {
		return 0, false
	}
	return t.arena.SlotAddr(g), true
}

// TranslateRange implements the arena contract's translate_range(G0,
// Nbytes): every guest byte in [g0, g0+n) gets its own slot, independent
// of instruction boundaries, since any guest byte may be entered --
// a byte that happens to be the operand of its predecessor still gets a
// real translation, it is simply never entered by correct guest code.
//
// Every address in the range is marked linkable before any byte in it is
// emitted, so a forward branch or fall-through landing later in the same
// pass resolves to a direct jump instead of a trap: translate_range fills
// the whole range before returning control, so by the time translated
// code actually runs, every slot it can reach within the range is valid.
func (t *Translator) TranslateRange(g0 uint16, n int) error {
	if n <= 0 {
		return nil
	}
	if n > memory.Size {
		n = memory.Size
	}
	if err := t.arena.BeginFill(); err != nil {
		return err
	}
	defer t.arena.EndFill()

	for i := 0; i < n; i++ {
		t.translated[g0+uint16(i)] = true
	}
	for i := 0; i < n; i++ {
		g := g0 + uint16(i)
		if err := t.translateOne(g); err != nil {
			t.translated[g] = false
			return fmt.Errorf("translator: guest $%04X: %w", g, err)
		}
	}
	return nil
}

// translateOne emits the slot for a single guest byte, per §4.2: the slot
// for g always decodes whatever opcode currently sits at g, regardless of
// whether g is a real instruction boundary.
func (t *Translator) translateOne(g uint16) error {
	opcode := t.mem.Read8(g)
	op1 := t.mem.Read8(g + 1)
	op2 := t.mem.Read8(g + 2)

	info := emit.Table[opcode]
	length := uint16(info.Len)
	if length == 0 {
		length = 1
	}
	next := g + length

	slot := t.arena.Slot(g)
	cg := emit.NewCodeGen(slot, t.arena.SlotAddr(g), g)
	if err := emit.EmitOpcode(cg, t, g, opcode, op1, op2, next); err != nil {
		return err
	}
	for i := cg.Len(); i < len(slot); i++ {
		slot[i] = 0x90
	}
	return nil
}

// Invalidate resets guest byte g's slot back to the arena's trap stub and
// clears its linkable bit, per §4.6: re-translation is lazy, happening
// only the next time execution reaches g. Installed as mem's code-write
// hook, so every mem.Write8 into a may-contain-code page reaches here;
// stores executed by translated code do not, and only the written byte's
// own slot is reset, not the slot of an instruction whose operand it is.
func (t *Translator) Invalidate(g uint16) {
	t.translated[g] = false
	if err := t.arena.ResetSlot(g); err != nil {
		// Mirrors ResetSlot's own panic for the handful-of-bytes trap stub
		// not fitting in a slot: a build-time misconfiguration, not
		// something a guest write can legitimately trigger.
		panic(fmt.Sprintf("translator: invalidate $%04X: %v", g, err))
	}
	if t.log != nil {
		t.log.Debugf("invalidated slot $%04X", g)
	}
}

// Translated reports whether guest byte g currently has a live
// translation, for tests and the supervisor's re-entry bookkeeping.
func (t *Translator) Translated(g uint16) bool { return t.translated[g] }
