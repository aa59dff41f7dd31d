package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// This file holds encoders for the scratch extended registers (R8-R10,
// named here by a 0/1/2 "ext" index so REX.R/REX.B bits fall out of a
// single formula instead of being hand-picked per call site). R9 and R10
// are not part of the guest register ABI, so nothing placed in them needs
// to survive past the instruction that uses it; R8 is the live
// other-flags ABI register, so code that writes it keeps its flag layout.
//
// Moving a guest high-byte register (AH/CH/DH/BH) into or out of an
// extended register can never use a direct REX-prefixed move -- REX
// repurposes those four encodings as SPL/BPL/SIL/DIL -- so every such
// move round-trips through the control block's CtrlScratch0 byte, which
// has no such restriction because a memory operand carries no register
// encoding to collide with.

func isHighByteReg(reg byte) bool {
	return reg == ah || reg == ch || reg == dh || reg == bh
}

// movExtFromReg copies a live guest register's value into extended
// register ext.
func (g *CodeGen) movExtFromReg(ext, reg byte) error {
	if isHighByteReg(reg) {
		if err := g.storeMem8(reg, CtrlOffset+CtrlScratch0); err != nil {
			return err
		}
		return g.movzxExtFromMem(ext, CtrlOffset+CtrlScratch0)
	}
	// mov extReg8, reg8: opcode 0x88 /r, reg field = src (no extension),
	// rm field = ext (REX.B).
	return g.emitBytes(0x41, 0x88, 0xC0|(reg<<3)|ext)
}

// movRegFromExt copies extended register ext's value into a live guest
// register.
func (g *CodeGen) movRegFromExt(reg, ext byte) error {
	if isHighByteReg(reg) {
		if err := g.storeExtToOperand(ext, operand{disp: CtrlOffset + CtrlScratch0}); err != nil {
			return err
		}
		return g.loadMem8(reg, CtrlOffset+CtrlScratch0)
	}
	// mov reg8, extReg8: opcode 0x88 /r, reg field = ext (REX.R), rm = reg.
	return g.emitBytes(0x44, 0x88, 0xC0|(ext<<3)|reg)
}

// movExtFromExt copies one extended register into another.
func (g *CodeGen) movExtFromExt(dst, src byte) error {
	return g.emitBytes(0x45, 0x88, 0xC0|(src<<3)|dst)
}

// movzxExtFromMem emits `movzx extReg32, byte [rdi+disp32]`.
func (g *CodeGen) movzxExtFromMem(ext byte, disp int32) error {
	if err := g.emitBytes(0x44, 0x0F, 0xB6); err != nil {
		return err
	}
	return g.rdiModRM(ext, disp)
}

// loadExtFromOperand reads an already-computed addressing-mode operand
// into extended register ext.
func (g *CodeGen) loadExtFromOperand(ext byte, o operand) error {
	if o.useSI {
		return g.emitBytes(0x44, 0x8A, 0x04|(ext<<3), 0x37)
	}
	if err := g.emitBytes(0x44, 0x8A); err != nil {
		return err
	}
	return g.rdiModRM(ext, o.disp)
}

// storeExtToOperand writes extended register ext back to an
// addressing-mode operand, the memory-side counterpart of
// loadExtFromOperand used by every read-modify-write opcode.
func (g *CodeGen) storeExtToOperand(ext byte, o operand) error {
	if o.useSI {
		return g.emitBytes(0x44, 0x88, 0x04|(ext<<3), 0x37)
	}
	if err := g.emitBytes(0x44, 0x88); err != nil {
		return err
	}
	return g.rdiModRM(ext, o.disp)
}

// storeExtToReg round-trips ext through the scratch byte into a guest
// register -- the only path available when dst is a high-byte register.
func (g *CodeGen) storeExtToReg(ext, dst byte) error {
	return g.movRegFromExt(dst, ext)
}

func (g *CodeGen) andExtImm8(ext, imm byte) error {
	return g.emitBytes(0x41, 0x80, 0xC0|(4<<3)|ext, imm) // AND r/m8, imm8 (/4)
}

func (g *CodeGen) orExtImm8(ext, imm byte) error {
	return g.emitBytes(0x41, 0x80, 0xC0|(1<<3)|ext, imm) // OR r/m8, imm8 (/1)
}

func (g *CodeGen) orExtExt(dst, src byte) error {
	return g.emitBytes(0x45, 0x08, 0xC0|(src<<3)|dst) // OR r/m8, r8
}

func (g *CodeGen) subExtImm8(ext, imm byte) error {
	return g.emitBytes(0x41, 0x80, 0xC0|(5<<3)|ext, imm) // SUB r/m8, imm8 (/5)
}

func (g *CodeGen) subExtExt(dst, src byte) error {
	return g.emitBytes(0x45, 0x28, 0xC0|(src<<3)|dst) // SUB r/m8, r8
}

func (g *CodeGen) incExt(ext byte) error { return g.emitBytes(0x41, 0xFE, 0xC0|ext) } // INC r/m8 (/0)
func (g *CodeGen) decExt(ext byte) error { return g.emitBytes(0x41, 0xFE, 0xC8|ext) } // DEC r/m8 (/1)

// testRegExt emits `test reg8, extReg8`, comparing a live guest register
// against a scratch register without modifying either.
func (g *CodeGen) testRegExt(reg, ext byte) error {
	return g.emitBytes(0x44, 0x84, 0xC0|(ext<<3)|reg)
}

// testExtSelf emits `test extReg8, extReg8`, materialising ZF/SF from
// ext's own value after a read-modify-write operation.
func (g *CodeGen) testExtSelf(ext byte) error {
	return g.emitBytes(0x45, 0x84, 0xC0|(ext<<3)|ext)
}

// setccExt emits a SETcc into an extended register.
func (g *CodeGen) setccExt(c cc, ext byte) error {
	return g.emitBytes(0x41, 0x0F, 0x90|byte(c), 0xC0|ext)
}

// setccReg emits a SETcc into one of the eight legacy 8-bit registers
// (legal without REX, used when the destination is a guest register such
// as AH that cannot carry a REX prefix).
func (g *CodeGen) setccReg(c cc, reg byte) error {
	return g.emitBytes(0x0F, 0x90|byte(c), 0xC0|reg)
}

// shiftExtImm1 / shiftRegImm1 emit one of the x86 group-2 shift/rotate
// forms (`<op> r/m8, 1`) selected by regField: 2=RCL, 3=RCR, 4=SHL, 5=SHR.
func (g *CodeGen) shiftExtImm1(ext, regField byte) error {
	return g.emitBytes(0x41, 0xC0, 0xC0|(regField<<3)|ext, 0x01)
}

func (g *CodeGen) shiftRegImm1(reg, regField byte) error {
	return g.emitBytes(0xC0, 0xC0|(regField<<3)|reg, 0x01)
}

// shlExt32Imm8 / orExt32Ext32 / movEdxFromExt32 / addExt32Imm8 operate on
// the full 32-bit extended register, used only by the indirect-JMP and
// RTS computed-jump path to assemble a 16-bit guest address that must
// travel to the supervisor in EDX rather than as a compile-time aux
// immediate.
func (g *CodeGen) shlExt32Imm8(ext, imm byte) error {
	return g.emitBytes(0x41, 0xC1, 0xC0|(4<<3)|ext, imm) // SHL r/m32, imm8 (/4)
}

func (g *CodeGen) orExt32Ext32(dst, src byte) error {
	return g.emitBytes(0x45, 0x09, 0xC0|(src<<3)|dst) // OR r/m32, r32
}

func (g *CodeGen) addExt32Imm8(ext, imm byte) error {
	return g.emitBytes(0x41, 0x83, 0xC0|(0<<3)|ext, imm) // ADD r/m32, imm8 (/0)
}

func (g *CodeGen) movEdxFromExt32(ext byte) error {
	return g.emitBytes(0x44, 0x89, 0xC0|(ext<<3)|2) // MOV r/m32, r32 (edx=2)
}

// movzxExt32FromExt8 zero-extends an extended register's low byte across
// its own full width, needed after popExt since a guest stack byte can
// only be popped as 8 bits but the combine step below needs a clean
// 32-bit value (the upper 24 bits otherwise carry whatever an earlier
// slot left in that physical register).
func (g *CodeGen) movzxExt32FromExt8(ext byte) error {
	return g.emitBytes(0x45, 0x0F, 0xB6, 0xC0|(ext<<3)|ext)
}

// combineExtLoHi folds a little-endian (lo, hi) byte pair, both already
// zero-extended to 32 bits, into a 16-bit value left in loExt.
func (g *CodeGen) combineExtLoHi(loExt, hiExt byte) error {
	if err := g.shlExt32Imm8(hiExt, 8); err != nil {
		return err
	}
	return g.orExt32Ext32(loExt, hiExt)
}

// emitComputedJumpFromExt traps to the supervisor with the guest address
// held in targetExt, for the two control transfers (RTS, indirect JMP)
// whose destination is not known until translated code actually runs.
func (g *CodeGen) emitComputedJumpFromExt(pc uint16, targetExt byte) error {
	if err := g.emitSpillState(); err != nil {
		return err
	}
	if err := g.movEAXImm32(abi.PackExit(abi.ExitInvalidation, pc)); err != nil {
		return err
	}
	if err := g.movEdxFromExt32(targetExt); err != nil {
		return err
	}
	return g.ret()
}

// pushImm8 pushes a compile-time-constant byte onto the guest stack,
// the form JSR's return address needs (the pushed value is not sitting
// in any register, unlike PHA/PHP).
func (g *CodeGen) pushImm8(imm byte) error {
	if err := g.decCL(); err != nil {
		return err
	}
	return g.emitBytes(0xC6, 0x04, 0x0F, imm)
}

// pushExt / popExt move an extended register to/from the guest stack,
// the same [RDI+RCX] addressing stack.go's push/pop use, extended to
// carry a REX.R bit for the scratch register.
func (g *CodeGen) pushExt(ext byte) error {
	if err := g.decCL(); err != nil {
		return err
	}
	return g.emitBytes(0x44, 0x88, 0x04|(ext<<3), 0x0F)
}

func (g *CodeGen) popExt(ext byte) error {
	if err := g.emitBytes(0x44, 0x8A, 0x04|(ext<<3), 0x0F); err != nil {
		return err
	}
	return g.incCL()
}
