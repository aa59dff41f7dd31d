package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// Resolver lets the translator control which guest targets a control
// transfer may link to directly. A target whose slot is not currently
// translated (cold code the current translate_range pass hasn't reached,
// or code a store just invalidated) must not be jumped to directly --
// the bytes sitting there right now are a trap stub, which is safe to
// fall into but pointless to link straight to when the translator could
// instead resolve the real target once and cache it.
type Resolver interface {
	SlotHost(g uint16) (addr uintptr, ok bool)
}

// jumpToGuest emits a direct jump when target is already linkable,
// otherwise a trap that asks the supervisor to translate and resume
// there -- the same mechanism self-modified code's invalidated slots use,
// so "link to code we haven't gotten to yet" and "link to code that just
// changed" share one code path.
func (g *CodeGen) jumpToGuest(r Resolver, target, pc uint16) error {
	if addr, ok := r.SlotHost(target); ok {
		return g.JmpToHost(addr)
	}
	return g.EmitTrap(abi.ExitInvalidation, pc, uint32(target))
}

// EmitOpcode translates the single instruction at guest pc (opcode plus
// up to two operand bytes) into cg, linking its fall-through and any
// branch/jump targets via r. next is the guest address immediately
// following this instruction.
func EmitOpcode(cg *CodeGen, r Resolver, pc uint16, opcode, op1, op2 byte, next uint16) error {
	info := Table[opcode]

	switch info.Mnemonic {
	case opIllegal:
		return cg.EmitTrap(abi.ExitUnsupportedOpcode, pc, uint32(opcode))

	case opLoadA, opLoadX, opLoadY:
		reg := map[Mnemonic]byte{opLoadA: al, opLoadX: bl, opLoadY: bh}[info.Mnemonic]
		ioReg := map[Mnemonic]byte{opLoadA: IORegA, opLoadX: IORegX, opLoadY: IORegY}[info.Mnemonic]
		if info.Mode == ModeImmediate {
			if err := cg.movRegImm8(reg, op1); err != nil {
				return err
			}
		} else if addr, ok := ioAddr(info.Mode, op1, op2); ok {
			return cg.EmitTrap(abi.ExitIoAccess, pc, PackIOAux(addr, ioReg, false))
		} else {
			o, err := cg.effectiveAddress(info.Mode, op1, op2)
			if err != nil {
				return err
			}
			if err := cg.load(reg, o); err != nil {
				return err
			}
		}
		if err := cg.setZN(reg); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opStoreA, opStoreX, opStoreY:
		reg := map[Mnemonic]byte{opStoreA: al, opStoreX: bl, opStoreY: bh}[info.Mnemonic]
		ioReg := map[Mnemonic]byte{opStoreA: IORegA, opStoreX: IORegX, opStoreY: IORegY}[info.Mnemonic]
		if addr, ok := ioAddr(info.Mode, op1, op2); ok {
			return cg.EmitTrap(abi.ExitIoAccess, pc, PackIOAux(addr, ioReg, true))
		}
		o, err := cg.effectiveAddress(info.Mode, op1, op2)
		if err != nil {
			return err
		}
		if err := cg.store(reg, o); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opALU:
		if err := cg.emitALU(info, op1, op2, pc); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opCPX, opCPY:
		reg := byte(bl)
		if info.Mnemonic == opCPY {
			reg = bh
		}
		if err := cg.emitCompare(reg, info, op1, op2); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opBIT:
		if err := cg.emitBIT(info, op1, op2); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opASL, opLSR, opROL, opROR:
		if err := cg.emitShift(info, op1, op2); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opINC, opDEC:
		if err := cg.emitIncDecMem(info, op1, op2); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opINX, opINY, opDEX, opDEY:
		reg := map[Mnemonic]byte{opINX: bl, opINY: bh, opDEX: bl, opDEY: bh}[info.Mnemonic]
		inc := info.Mnemonic == opINX || info.Mnemonic == opINY
		if err := cg.emitIncDecReg(reg, inc); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opTransfer:
		if err := cg.emitTransfer(info.Transfer); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opBranch:
		target := uint16(int32(pc) + 2 + int32(int8(op1)))
		crosses := (pc+2)&0xFF00 != target&0xFF00
		takenAddr, takenOK := r.SlotHost(target)
		notTakenAddr, notTakenOK := r.SlotHost(next)
		if !takenOK {
			takenAddr = 0
		}
		if !notTakenOK {
			notTakenAddr = 0
		}
		if !takenOK || !notTakenOK {
			// Either side not yet linkable: route the whole branch
			// through the supervisor rather than emitting a jump to a
			// trap-stub address with no cycle/flag follow-up.
			return cg.emitUnresolvedBranch(info.Branch, target, next, pc, takenOK, notTakenOK, takenAddr, notTakenAddr)
		}
		return cg.EmitBranch(info.Branch, takenAddr, notTakenAddr, crosses, pc)

	case opJMP:
		target := uint16(op1) | uint16(op2)<<8
		return cg.jumpToGuest(r, target, pc)

	case opJMPIndirect:
		ptr := uint16(op1) | uint16(op2)<<8
		// The famous page-wrap bug: if the pointer's low byte is 0xFF,
		// the high byte is fetched from the start of the *same* page,
		// not the next one.
		hiAddr := ptr + 1
		if op1 == 0xFF {
			hiAddr = ptr & 0xFF00
		}
		if err := cg.movzxExtFromMem(extR9, int32(ptr)); err != nil {
			return err
		}
		if err := cg.movzxExtFromMem(extR10, int32(hiAddr)); err != nil {
			return err
		}
		if err := cg.combineExtLoHi(extR9, extR10); err != nil {
			return err
		}
		return cg.emitComputedJumpFromExt(pc, extR9)

	case opJSR:
		target := uint16(op1) | uint16(op2)<<8
		ret := pc + 2 // JSR pushes return address - 1, per the 6502
		if err := cg.pushImm8(byte(ret >> 8)); err != nil {
			return err
		}
		if err := cg.pushImm8(byte(ret)); err != nil {
			return err
		}
		return cg.jumpToGuest(r, target, pc)

	case opRTS:
		if err := cg.popExt(extR9); err != nil {
			return err
		}
		if err := cg.movzxExt32FromExt8(extR9); err != nil {
			return err
		}
		if err := cg.popExt(extR10); err != nil {
			return err
		}
		if err := cg.movzxExt32FromExt8(extR10); err != nil {
			return err
		}
		if err := cg.combineExtLoHi(extR9, extR10); err != nil {
			return err
		}
		if err := cg.addExt32Imm8(extR9, 1); err != nil {
			return err
		}
		return cg.emitComputedJumpFromExt(pc, extR9)

	case opPHA:
		if err := cg.push(al); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opPHP:
		if err := cg.emitPHP(); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opPLA:
		if err := cg.pop(al); err != nil {
			return err
		}
		if err := cg.setZN(al); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opPLP:
		if err := cg.emitPLP(); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opSetFlag, opClearFlag:
		if err := cg.emitFlagOp(info, pc); err != nil {
			return err
		}
		return cg.fallThroughFor(r, info, pc, next)

	case opBRK:
		return cg.EmitTrap(abi.ExitBRK, pc, 0)

	case opRTI:
		return cg.EmitTrap(abi.ExitRequested, pc, 0) // supervisor pops frame and resumes

	case opNOP:
		return cg.fallThroughFor(r, info, pc, next)
	}
	return cg.EmitTrap(abi.ExitUnsupportedOpcode, pc, uint32(opcode))
}

func (g *CodeGen) fallThroughFor(r Resolver, info OpInfo, pc, next uint16) error {
	cycles := info.Cycles
	if addr, ok := r.SlotHost(next); ok {
		// The cycle-budget trap FallThrough may emit reports next, not pc:
		// by the time it could fire, this instruction's effects are already
		// committed, so resuming must continue at the following byte, never
		// re-execute this one.
		return g.FallThrough(cycles, addr, next)
	}
	return g.EmitTrap(abi.ExitInvalidation, pc, uint32(next))
}

// emitUnresolvedBranch handles the case where one or both of a branch's
// continuations are not yet linkable: rather than special-casing a mixed
// direct/trap branch body, the whole decision is pushed to the
// supervisor, which re-enters at whichever guest address the flag test
// selects.
func (g *CodeGen) emitUnresolvedBranch(flag branchFlag, taken, notTaken, pc uint16, takenOK, notTakenOK bool, takenAddr, notTakenAddr uintptr) error {
	if takenOK && !notTakenOK {
		c := branchCondition(flag)
		if err := g.testBranchFlag(flag); err != nil {
			return err
		}
		if err := g.emitBytes(0x70|byte(invert(c)), 0x00); err != nil {
			return err
		}
		patchAt := g.n - 1
		if err := g.JmpToHost(takenAddr); err != nil {
			return err
		}
		g.buf[patchAt] = byte(g.n - (patchAt + 1))
		return g.EmitTrap(abi.ExitInvalidation, pc, uint32(notTaken))
	}
	if notTakenOK && !takenOK {
		c := branchCondition(flag)
		if err := g.testBranchFlag(flag); err != nil {
			return err
		}
		if err := g.emitBytes(0x70|byte(c), 0x00); err != nil {
			return err
		}
		patchAt := g.n - 1
		if err := g.JmpToHost(notTakenAddr); err != nil {
			return err
		}
		g.buf[patchAt] = byte(g.n - (patchAt + 1))
		return g.EmitTrap(abi.ExitInvalidation, pc, uint32(taken))
	}
	// Neither side linkable yet: test the flag in-line and trap with
	// whichever guest address it selects baked into aux, via two short
	// trap stubs.
	c := branchCondition(flag)
	if err := g.testBranchFlag(flag); err != nil {
		return err
	}
	if err := g.emitBytes(0x70|byte(invert(c)), 0x00); err != nil {
		return err
	}
	patchAt := g.n - 1
	if err := g.EmitTrap(abi.ExitInvalidation, pc, uint32(taken)); err != nil {
		return err
	}
	g.buf[patchAt] = byte(g.n - (patchAt + 1))
	return g.EmitTrap(abi.ExitInvalidation, pc, uint32(notTaken))
}
