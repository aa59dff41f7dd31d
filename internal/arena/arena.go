// Package arena owns the translation arena: the contiguous, executable
// region holding one fixed-size slot per guest byte, and the mmap'd guest
// memory it sits beside so translated code's memory-base register (RDI)
// and Go-side reads/writes observe the same bytes.
//
// Layout (mirrors the proof-of-concept in the original beebjit core, with
// one addition: a small register-shadow control block wedged between
// guest memory and the mid guard page, used by trap sequences that need
// to spill host registers before handing control back to the supervisor):
//
//	[guard][ 64 KiB guest memory ][ctrl block][guard][ 64 KiB * Stride jit region ][guard]
package arena

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/memory"
)

// Stride is bytes per slot. Must stay a power of two; every emitter in
// internal/emit asserts its output fits within it.
const Stride = 64

// CtrlSize is the width of the register-shadow control block that sits
// immediately past guest memory, addressable from translated code as
// [rdi+CtrlOffset+field]. Guest code can never reach it: the largest
// displacement any emitter computes is a 16-bit guest address (0x0000-
// 0xffff), strictly below CtrlOffset.
const CtrlSize = 32

// CtrlOffset is the RDI-relative offset of the control block.
const CtrlOffset = memSize

const (
	guardSize = 4096
	memSize   = memory.Size
	jitSize   = memory.Size * Stride
)

// Arena is the mmap-backed translation region plus the guest memory it
// sits beside.
type Arena struct {
	region []byte // the whole mmap, guard pages included
	mem    []byte // view over the guest memory sub-region
	ctrl   []byte // view over the register-shadow control block
	jit    []byte // view over the jit sub-region

	memBase uintptr // host address of mem[0]; RDI is pinned to this
	jitBase uintptr // host address of jit[0]

	writable bool // true while filled with PROT_READ|WRITE, false at steady state
}

// New mmaps a fresh arena and initialises every slot to the trap pattern.
func New() (*Arena, error) {
	midSize := CtrlSize + guardSize
	total := guardSize + memSize + midSize + jitSize + guardSize
	region, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap: %w", err)
	}

	if err := unix.Mprotect(region[:guardSize], unix.PROT_NONE); err != nil {
		return nil, fmt.Errorf("arena: mprotect low guard: %w", err)
	}
	midGuardOff := guardSize + memSize + CtrlSize
	if err := unix.Mprotect(region[midGuardOff:midGuardOff+guardSize], unix.PROT_NONE); err != nil {
		return nil, fmt.Errorf("arena: mprotect mid guard: %w", err)
	}
	highGuardOff := guardSize + memSize + midSize + jitSize
	if err := unix.Mprotect(region[highGuardOff:highGuardOff+guardSize], unix.PROT_NONE); err != nil {
		return nil, fmt.Errorf("arena: mprotect high guard: %w", err)
	}

	a := &Arena{
		region:   region,
		mem:      region[guardSize : guardSize+memSize],
		ctrl:     region[guardSize+memSize : guardSize+memSize+CtrlSize],
		jit:      region[guardSize+memSize+midSize : guardSize+memSize+midSize+jitSize],
		writable: true,
	}
	a.memBase = sliceAddr(a.mem)
	a.jitBase = sliceAddr(a.jit)
	if err := a.initAll(); err != nil {
		return nil, err
	}
	return a, nil
}

// Ctrl returns the register-shadow control block, for the supervisor to
// read/write between traps.
func (a *Arena) Ctrl() []byte { return a.ctrl }

// Close unmaps the arena. Not safe to call while translated code may be
// executing.
func (a *Arena) Close() error {
	return unix.Munmap(a.region)
}

// GuestMemory returns the slice of guest RAM the arena's memory-base
// register points at, for wrapping in a memory.Space via NewOver.
func (a *Arena) GuestMemory() []byte { return a.mem }

// MemBase is the host address translated code's RDI is pinned to.
func (a *Arena) MemBase() uintptr { return a.memBase }

// SlotAddr returns the host address of guest byte g's slot.
func (a *Arena) SlotAddr(g uint16) uintptr {
	return a.jitBase + uintptr(g)*Stride
}

// Slot returns the Stride-byte window backing guest byte g's slot, for
// the emitter to write into.
func (a *Arena) Slot(g uint16) []byte {
	off := int(g) * Stride
	return a.jit[off : off+Stride]
}

// initAll writes every slot to the same functional trap stub ResetSlot
// installs on invalidation, so "never translated" and "just invalidated"
// are one state, not two.
func (a *Arena) initAll() error {
	for g := 0; g < memory.Size; g++ {
		if err := a.writeTrap(uint16(g)); err != nil {
			return fmt.Errorf("arena: init slot $%04X: %w", g, err)
		}
	}
	return nil
}

// ResetSlot restores guest byte g's slot to the trap pattern, per the
// invalidation protocol: no recompilation happens here, only a reset to a
// state that will force a re-entry into the supervisor (and hence a
// re-translate) the next time this slot is entered. Flips the jit region
// writable for the duration, since a store reaching here runs with the
// arena in its steady-state read/execute protection.
func (a *Arena) ResetSlot(g uint16) error {
	if err := a.BeginFill(); err != nil {
		return err
	}
	err := a.writeTrap(g)
	if ferr := a.EndFill(); err == nil {
		err = ferr
	}
	return err
}

// writeTrap fills guest byte g's slot with a self-contained trap back to
// the supervisor carrying ExitInvalidation, asking it to re-translate
// before the slot is entered again.
func (a *Arena) writeTrap(g uint16) error {
	return emit.WriteTrapStub(a.Slot(g), a.SlotAddr(g), g, abi.ExitInvalidation, 0)
}

// BeginFill switches the arena to writable so translate_range can emit
// into it. Steady-state execution requires EndFill to have run first.
func (a *Arena) BeginFill() error {
	if a.writable {
		return nil
	}
	if err := unix.Mprotect(a.jit, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("arena: mprotect writable: %w", err)
	}
	a.writable = true
	return nil
}

// EndFill flips the arena back to executable-only before any entry.
func (a *Arena) EndFill() error {
	if !a.writable {
		return nil
	}
	if err := unix.Mprotect(a.jit, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("arena: mprotect executable: %w", err)
	}
	a.writable = false
	return nil
}
