package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// EmitTrap spills the live register ABI into the control block, loads the
// packed exit word and aux word, and returns. Every opcode emitter that
// needs supervisor help (I/O access, decimal-mode arithmetic, a control
// transfer to a not-yet-translated target) ends its slot with this rather
// than a raw RET, so the supervisor can later Resume with the ABI intact.
func (g *CodeGen) EmitTrap(reason abi.ExitReason, pc uint16, aux uint32) error {
	if err := g.emitSpillState(); err != nil {
		return err
	}
	if err := g.movEAXImm32(abi.PackExit(reason, pc)); err != nil {
		return err
	}
	if err := g.movEDXImm32(aux); err != nil {
		return err
	}
	return g.ret()
}

// WriteTrapStub fills slot (hostAddr is its host address, g the guest
// byte it backs) with a self-contained trap stub for reason/aux, used for
// slots that have never been translated and slots a store has just
// invalidated. Both cases look identical at the byte level: a safe,
// valid instruction sequence that unconditionally hands control back to
// the supervisor, which then decides whether to translate fresh code
// (ExitInvalidation) or report an unsupported opcode (ExitUnsupportedOpcode).
//
// A literal illegal-instruction trap (as beebjit's original POC uses, via
// SIGILL) is not a viable substitute here: Go's runtime does not support
// resuming execution after a synchronous fault raised by code it does not
// recognise as Go-compiled, so "entering stale code re-links itself via a
// hardware trap" becomes "entering stale code calls back into the
// supervisor via a clean RET" instead. The guest-visible contract --
// entering a reset slot always reaches the supervisor before guest state
// is corrupted -- is unchanged.
func WriteTrapStub(slot []byte, hostAddr uintptr, g uint16, reason abi.ExitReason, aux uint32) error {
	cg := NewCodeGen(slot, hostAddr, g)
	if err := cg.EmitTrap(reason, g, aux); err != nil {
		return err
	}
	for i := cg.Len(); i < len(slot); i++ {
		slot[i] = 0x90
	}
	return nil
}
