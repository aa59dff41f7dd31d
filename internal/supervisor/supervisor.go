// Package supervisor drives the translate/enter/trap loop that ties the
// rest of the tree together: it asks internal/translator for a slot,
// jumps into the arena, and services whatever trap reason comes back --
// IRQ/NMI, BRK, an I/O-strip access, a self-modification re-translate
// request, cycle-budget exhaustion, or a host-requested stop -- before
// re-entering. See SPEC_FULL.md's Supervisor Loop module.
package supervisor

import (
	"encoding/binary"
	"fmt"

	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/arena"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/interp"
	"github.com/pagefault-systems/sixjit/internal/memory"
	"github.com/pagefault-systems/sixjit/internal/peripheral"
	"github.com/pagefault-systems/sixjit/internal/trap"
	"github.com/pagefault-systems/sixjit/internal/translator"
	"github.com/pagefault-systems/sixjit/internal/xlog"
)

// translatorAPI is the slice of *translator.Translator the supervisor
// actually calls, named so tests can substitute a fake without building a
// real arena.
type translatorAPI interface {
	TranslateRange(g0 uint16, n int) error
	Translated(g uint16) bool
}

// arenaAPI is the slice of *arena.Arena the supervisor drives.
type arenaAPI interface {
	Enter(g uint16) trap.Descriptor
	Resume(g uint16) trap.Descriptor
	Ctrl() []byte
}

// irqSource is implemented by peripherals (peripheral.ViaStub) that can
// assert a level-triggered interrupt line; peripherals that never raise
// one (peripheral.NullPeripheral) simply don't satisfy it.
type irqSource interface {
	IRQAsserted() bool
}

// Supervisor owns one guest machine: its translated-code arena, its
// memory space, and the peripheral collaborator I/O traps dispatch to.
type Supervisor struct {
	mem   *memory.Space
	arena arenaAPI
	tr    translatorAPI
	io    peripheral.Peripheral
	log   *xlog.Logger

	// SliceBudget is the cycle count loaded into the control block before
	// every entry; reaching zero traps with ExitCycleBudget so the
	// supervisor regains control between instructions.
	SliceBudget int32

	TotalCycles uint64

	nmiPending    bool
	stopRequested bool
}

// New returns a Supervisor over mem/a/tr, dispatching I/O traps to io and
// logging through log. sliceBudget is the host-timeslice cycle budget
// (SPEC_FULL.md's cycle contract); a few thousand is typical.
func New(mem *memory.Space, a *arena.Arena, tr *translator.Translator, io peripheral.Peripheral, log *xlog.Logger, sliceBudget int32) *Supervisor {
	s := &Supervisor{
		mem:         mem,
		arena:       a,
		tr:          tr,
		io:          io,
		log:         log,
		SliceBudget: sliceBudget,
	}
	// Translated code's loads/stores reach io only through the
	// ExitIoAccess trap (internal/emit/io.go's compile-time-constant
	// check); every Go-side access -- internal/interp's fallback step,
	// serviceDecimalHelper's operand fetch, a guest indexed/indirect
	// addressing mode the JIT couldn't prove constant at compile time --
	// goes through mem.Read8/Write8 instead, so it must be wired to the
	// same peripheral here to see the same register file.
	mem.SetIOHooks(io.WriteIO, io.ReadIO)
	return s
}

// RequestNMI latches an edge-triggered non-maskable interrupt, serviced
// the next time the supervisor regains control between instructions.
func (s *Supervisor) RequestNMI() { s.nmiPending = true }

// RequestStop asks Run to return after the current slice, the Go-level
// mechanism behind SPEC_FULL.md's "exit requested" cancellation point: no
// 6502 opcode can ask the VM to stop, so this is always a host decision
// (a signal handler, a test harness, a debugger command).
func (s *Supervisor) RequestStop() { s.stopRequested = true }

// Run services the reset vector and loops until RequestStop or a fatal
// error (UnsupportedOpcode/StrideOverflow/GuardPageFault).
func (s *Supervisor) Run() error {
	g := s.serviceReset()
	if err := s.ensureTranslated(g); err != nil {
		return err
	}
	s.loadBudget()
	desc := s.arena.Enter(g)

	for {
		next, err := s.handle(desc)
		if err != nil {
			return err
		}
		if s.stopRequested {
			return nil
		}
		next = s.checkInterrupts(next)
		if err := s.ensureTranslated(next); err != nil {
			return err
		}
		s.loadBudget()
		desc = s.arena.Resume(next)
	}
}

// handle dispatches one trap.Descriptor to its exit-reason handler and
// returns the guest address execution should resume at.
func (s *Supervisor) handle(desc trap.Descriptor) (uint16, error) {
	s.accountCycles()

	switch desc.Reason {
	case abi.ExitBRK:
		return s.serviceBRK(desc), nil

	case abi.ExitRequested:
		// Emitted only by RTI (see internal/emit/opcodes.go); a
		// host-requested stop is s.stopRequested instead, checked in Run
		// independently of any trap reason.
		return s.serviceRTI(), nil

	case abi.ExitIoAccess:
		return s.serviceIO(desc), nil

	case abi.ExitInvalidation:
		return uint16(desc.Aux), nil

	case abi.ExitCycleBudget:
		return desc.PC, nil

	case abi.ExitDecimalHelper:
		return s.serviceDecimalHelper(desc), nil

	case abi.ExitUnsupportedOpcode:
		return s.serviceUnsupported(desc)

	case abi.ExitGuardPageFault:
		// In practice arena.WatchGuardPages intercepts this via SIGSEGV
		// before a RET could ever carry it back here; kept for
		// completeness and for tests that synthesize a descriptor.
		return 0, &trap.GuardPageFaultError{}

	case abi.ExitIRQ, abi.ExitNMI:
		// Never produced by translated code (nothing in internal/emit
		// emits these); checkInterrupts services them directly between
		// slices instead of routing through this switch.
		return 0, fmt.Errorf("supervisor: unexpected %v trap from translated code at $%04X", desc.Reason, desc.PC)

	default:
		return 0, fmt.Errorf("supervisor: unknown exit reason %d at $%04X", desc.Reason, desc.PC)
	}
}

// ensureTranslated makes sure guest byte g has a live translation,
// translating the containing page if not. Translating a whole page
// rather than one byte at a time amortises translate_range's call
// overhead across the common case of sequential execution through fresh
// code.
func (s *Supervisor) ensureTranslated(g uint16) error {
	if s.tr.Translated(g) {
		return nil
	}
	pageStart := g &^ uint16(memory.PageSize-1)
	if err := s.tr.TranslateRange(pageStart, memory.PageSize); err != nil {
		return fmt.Errorf("supervisor: translate page containing $%04X: %w", g, err)
	}
	return nil
}

// loadBudget resets the control block's cycle counter ahead of the next
// Enter/Resume.
func (s *Supervisor) loadBudget() {
	binary.LittleEndian.PutUint32(s.arena.Ctrl()[emit.CtrlCycles:], uint32(s.SliceBudget))
}

// accountCycles folds however many cycles the slice that just trapped
// actually consumed into TotalCycles, reading what's left of the budget
// the control block was loaded with.
func (s *Supervisor) accountCycles() {
	remaining := int32(binary.LittleEndian.Uint32(s.arena.Ctrl()[emit.CtrlCycles:]))
	consumed := s.SliceBudget - remaining
	if consumed > 0 {
		s.TotalCycles += uint64(consumed)
	}
}

// checkInterrupts services a pending NMI (edge-triggered, always taken)
// or a pending level-triggered IRQ (taken only with I clear), called
// between every slice the same way the original interpreter polls
// between instructions.
func (s *Supervisor) checkInterrupts(pc uint16) uint16 {
	if s.nmiPending {
		s.nmiPending = false
		if s.log != nil {
			s.log.Debugf("servicing NMI, return to $%04X", pc)
		}
		return s.serviceVector(abi.ExitNMI, pc)
	}
	if src, ok := s.io.(irqSource); ok && src.IRQAsserted() {
		ctrl := s.arena.Ctrl()
		if ctrl[emit.CtrlFlags]&(1<<abi.FlagBitInterupt) == 0 {
			if s.log != nil {
				s.log.Debugf("servicing IRQ, return to $%04X", pc)
			}
			return s.serviceVector(abi.ExitIRQ, pc)
		}
	}
	return pc
}

// instrLen looks up the documented length of the opcode sitting at pc, the
// shared arithmetic every handler that must skip past an already-serviced
// instruction (I/O, decimal help) uses to find its resume address.
func (s *Supervisor) instrLen(pc uint16) uint16 {
	n := uint16(emit.Table[s.mem.Read8(pc)].Len)
	if n == 0 {
		return 1
	}
	return n
}

// opInterpreter lazily builds an internal/interp.CPU synced from the
// control block, used by both the UnsupportedOpcode fallback and (if
// ever needed) ad hoc single-stepping; kept as a method rather than a
// stored field so each use starts from the control block's current truth
// rather than a copy that could drift.
func (s *Supervisor) opInterpreter(pc uint16) *interp.CPU {
	c := interp.New(s.mem)
	ctrl := s.arena.Ctrl()
	c.PC = pc
	c.A = ctrl[emit.CtrlA]
	c.X = ctrl[emit.CtrlX]
	c.Y = ctrl[emit.CtrlY]
	c.S = ctrl[emit.CtrlS]
	c.P = packP(ctrl)
	return c
}

// writeBackInterpreter spills c's register file into the control block
// after a software single-step, the mirror of opInterpreter.
func (s *Supervisor) writeBackInterpreter(c *interp.CPU) {
	ctrl := s.arena.Ctrl()
	ctrl[emit.CtrlA] = c.A
	ctrl[emit.CtrlX] = c.X
	ctrl[emit.CtrlY] = c.Y
	ctrl[emit.CtrlS] = c.S
	unpackP(ctrl, c.P)
}
