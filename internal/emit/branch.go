package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// branchFlag identifies which host flag materialisation a Bxx opcode
// tests, mirroring the eight 6502 conditional branches.
type branchFlag int

const (
	BranchOnCarrySet branchFlag = iota
	BranchOnCarryClear
	BranchOnZeroSet
	BranchOnZeroClear
	BranchOnNegativeSet
	BranchOnNegativeClear
	BranchOnOverflowSet
	BranchOnOverflowClear
)

// EmitBranch emits a full Bxx instruction. takenTarget and notTakenTarget
// are the host addresses of the branch target's slot and the falling-
// through instruction's slot respectively; takenCrossesPage tells the
// emitter whether to charge the extra page-cross cycle on the taken
// path, a fact fully known at translation time since the target guest
// address is a compile-time constant (PC + 2 + signed displacement).
func (g *CodeGen) EmitBranch(flag branchFlag, takenTarget, notTakenTarget uintptr, takenCrossesPage bool, pc uint16) error {
	// Charge the base 2 cycles before the jump; the taken path adds 1
	// for the branch and 1 more for a page cross, matching the 6502's
	// well known branch timing. The charge is a SUB, which rewrites the
	// host flags, so it goes ahead of the flag test the Jcc reads.
	if err := g.chargeCycles(2); err != nil {
		return err
	}
	if err := g.testBranchFlag(flag); err != nil {
		return err
	}
	c := branchCondition(flag)
	// Jcc straight to the taken target would skip the extra per-taken
	// cycle charge, so branch around a short charge-and-jump sequence
	// instead of jumping to takenTarget directly. The skip target is
	// always within this same slot, so the short (2-byte) Jcc form
	// always fits and does not need JccToHost's distance check.
	if err := g.emitBytes(0x70|byte(invert(c)), 0x00); err != nil {
		return err
	}
	patchAt := g.n - 1
	takenExtra := byte(1)
	if takenCrossesPage {
		takenExtra = 2
	}
	if err := g.chargeCycles(takenExtra); err != nil {
		return err
	}
	if err := g.JmpToHost(takenTarget); err != nil {
		return err
	}
	g.buf[patchAt] = byte(g.n - (patchAt + 1))
	return g.JmpToHost(notTakenTarget)
}

func (g *CodeGen) testBranchFlag(flag branchFlag) error {
	switch flag {
	case BranchOnCarrySet, BranchOnCarryClear:
		return g.testReg8(ah)
	case BranchOnZeroSet, BranchOnZeroClear:
		return g.testReg8(dl)
	case BranchOnNegativeSet, BranchOnNegativeClear:
		return g.testReg8(dh)
	case BranchOnOverflowSet, BranchOnOverflowClear:
		return g.btFlag(abi.FlagBitOverflow)
	}
	return nil
}

func branchCondition(flag branchFlag) cc {
	switch flag {
	case BranchOnCarrySet:
		return ccNE // AH nonzero => carry set (test sets ZF when AH==0)
	case BranchOnCarryClear:
		return ccE
	case BranchOnZeroSet:
		// DL nonzero means the guest Z flag is set (see setZN), so the
		// branch is taken when the host test of DL is *not* zero.
		return ccNE
	case BranchOnZeroClear:
		return ccE
	case BranchOnNegativeSet:
		return ccS
	case BranchOnNegativeClear:
		return ccNS
	case BranchOnOverflowSet:
		return ccB // BT sets CF to the tested bit
	case BranchOnOverflowClear:
		return ccAE
	}
	return ccE
}

func invert(c cc) cc {
	switch c {
	case ccE:
		return ccNE
	case ccNE:
		return ccE
	case ccS:
		return ccNS
	case ccNS:
		return ccS
	case ccB:
		return ccAE
	case ccAE:
		return ccB
	}
	return c
}
