package arena

import (
	"fmt"

	"github.com/pagefault-systems/sixjit/internal/trap"
)

// rawEnter is implemented in enter_amd64.s. It sets up the register ABI
// and calls into the host address of a translation slot, returning once
// translated code traps back via RET.
func rawEnter(entry, memBase uintptr) (packed uint64, aux uint64)

// rawResume is implemented in enter_amd64.s. Unlike rawEnter it reloads
// A/X/Y/S/flags from the control block rather than zeroing them, for
// continuing after a trap that spilled state mid-instruction-stream.
func rawResume(entry, memBase, ctrl uintptr) (packed uint64, aux uint64)

// Resume continues execution at the slot for guest byte g, restoring
// register state from the control block that a prior trap spilled into.
func (a *Arena) Resume(g uint16) trap.Descriptor {
	packed, aux := rawResume(a.SlotAddr(g), a.memBase, sliceAddr(a.ctrl))
	return trap.FromPacked(uint32(packed), uint32(aux))
}

// Enter jumps into the slot for guest byte g and runs until the first
// trap, returning the resulting trap descriptor.
func (a *Arena) Enter(g uint16) trap.Descriptor {
	packed, aux := rawEnter(a.SlotAddr(g), a.memBase)
	return trap.FromPacked(uint32(packed), uint32(aux))
}

// EnterAt is like Enter but takes a raw host slot address, used by the
// supervisor to resume directly at a vector target without a lookup.
func (a *Arena) EnterAt(hostAddr uintptr) trap.Descriptor {
	if hostAddr < a.jitBase || hostAddr >= a.jitBase+uintptr(len(a.jit)) {
		panic(fmt.Sprintf("arena: EnterAt target 0x%x outside jit region", hostAddr))
	}
	packed, aux := rawEnter(hostAddr, a.memBase)
	return trap.FromPacked(uint32(packed), uint32(aux))
}
