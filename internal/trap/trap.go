// Package trap defines the error kinds and trap descriptors that cross the
// boundary between translated code, the translator, and the supervisor.
package trap

import (
	"fmt"

	"github.com/pagefault-systems/sixjit/internal/abi"
)

// Descriptor is what a re-entry into the supervisor carries: the reason,
// the guest PC at the point of the trap, and reason-specific aux data
// (the I/O address, register and load/store direction packed by
// emit.PackIOAux for IoAccess, the opcode byte for UnsupportedOpcode).
type Descriptor struct {
	Reason abi.ExitReason
	PC     uint16
	Aux    uint32
}

// FromPacked reconstructs a Descriptor from the (packed, aux) pair the
// amd64 entry trampoline returns.
func FromPacked(packed, aux uint32) Descriptor {
	reason, pc := abi.UnpackExit(packed)
	return Descriptor{Reason: reason, PC: pc, Aux: aux}
}

// EmitError is returned by the translator, never by translated code
// itself: these are build-time configuration problems, not runtime
// guest behaviour.
type EmitError struct {
	Kind EmitErrorKind
	PC   uint16
	Msg  string
}

type EmitErrorKind int

const (
	StrideOverflow EmitErrorKind = iota
	BadOpcode
)

func (e *EmitError) Error() string {
	switch e.Kind {
	case StrideOverflow:
		return fmt.Sprintf("opcode too large for stride at guest PC $%04X: %s", e.PC, e.Msg)
	default:
		return fmt.Sprintf("emit error at guest PC $%04X: %s", e.PC, e.Msg)
	}
}

// UnsupportedOpcodeError is surfaced when execution lands on a slot that
// was translated to the invalid-instruction sentinel.
type UnsupportedOpcodeError struct {
	Opcode byte
	PC     uint16
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported 6502 opcode $%02X at guest PC $%04X", e.Opcode, e.PC)
}

// GuardPageFaultError indicates a computed jump landed outside the arena.
type GuardPageFaultError struct {
	FaultAddr uintptr
}

func (e *GuardPageFaultError) Error() string {
	return fmt.Sprintf("guard page fault at host address 0x%x: emitter bug or corrupted guest state", e.FaultAddr)
}
