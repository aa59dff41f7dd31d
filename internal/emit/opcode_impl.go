package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// Extended-register indices used as scratch throughout this file: R8 is
// also the live "other flags" ABI register, so code that borrows it
// (PHP/PLP) always restores its field layout before falling through.
const (
	extR8 = 0
	extR9 = 1
	extR10 = 2
)

// emitDecimalGuard traps to the supervisor when the guest decimal flag is
// set, before an ADC/SBC touches AL: BCD correction is cheaper to do once
// in Go than to encode as a conditional x86 sequence per translated byte,
// and it only matters for two opcodes.
func (g *CodeGen) emitDecimalGuard(pc uint16) error {
	if err := g.btFlag(abi.FlagBitDecimal); err != nil {
		return err
	}
	if err := g.emitBytes(0x73, 0x00); err != nil { // JAE rel8 (CF=0 -> binary mode, skip trap)
		return err
	}
	patch := g.n - 1
	if err := g.EmitTrap(abi.ExitDecimalHelper, pc, 0); err != nil {
		return err
	}
	g.buf[patch] = byte(g.n - (patch + 1))
	return nil
}

// emitALU implements ORA/AND/EOR/ADC/SBC/CMP, the six opcodes that read
// an operand against AL.
func (g *CodeGen) emitALU(info OpInfo, op1, op2 byte, pc uint16) error {
	loadOperand := func() error {
		if info.Mode == ModeImmediate {
			return g.emitALUImmToAL(info.ALU, op1)
		}
		o, err := g.effectiveAddress(info.Mode, op1, op2)
		if err != nil {
			return err
		}
		return g.emitALUMemToAL(info.ALU, o)
	}

	switch info.ALU {
	case aluORA, aluAND, aluEOR:
		if err := loadOperand(); err != nil {
			return err
		}
		return g.setZN(al)
	case aluADC, aluSBC:
		if err := g.emitDecimalGuard(pc); err != nil {
			return err
		}
		if err := g.loadCarryIntoCF(); err != nil {
			return err
		}
		// SBB subtracts CF as a borrow, the complement of the 6502's
		// carry, so SBC inverts CF on the way in and on the way out.
		if info.ALU == aluSBC {
			if err := g.emitByte(0xF5); err != nil { // cmc
				return err
			}
		}
		if err := loadOperand(); err != nil {
			return err
		}
		if info.ALU == aluSBC {
			if err := g.emitByte(0xF5); err != nil { // cmc
				return err
			}
		}
		if err := g.storeCFIntoCarry(); err != nil {
			return err
		}
		if err := g.storeOFIntoOverflow(); err != nil {
			return err
		}
		return g.setZN(al)
	case aluCMP:
		return g.emitCompare(al, info, op1, op2)
	}
	return nil
}

// emitCompare implements CMP/CPX/CPY: reg - operand, flags only, no
// write-back. The subtraction happens in a scratch register (R9) since
// reg must survive unmodified; 6502 carry is the complement of x86's
// borrow flag (CF=0 after SUB means no borrow, i.e. reg >= operand).
func (g *CodeGen) emitCompare(reg byte, info OpInfo, op1, op2 byte) error {
	if err := g.movExtFromReg(extR9, reg); err != nil {
		return err
	}
	if info.Mode == ModeImmediate {
		if err := g.subExtImm8(extR9, op1); err != nil {
			return err
		}
	} else {
		o, err := g.effectiveAddress(info.Mode, op1, op2)
		if err != nil {
			return err
		}
		if err := g.loadExtFromOperand(extR10, o); err != nil {
			return err
		}
		if err := g.subExtExt(extR9, extR10); err != nil {
			return err
		}
	}
	if err := g.setccReg(ccAE, ah); err != nil { // carry = no borrow
		return err
	}
	if err := g.testExtSelf(extR9); err != nil {
		return err
	}
	if err := g.emitBytes(0x0F, 0x94, 0xC2); err != nil { // sete dl
		return err
	}
	return g.storeExtToReg(extR9, dh)
}

// emitBIT implements BIT: Z from AND(A, mem), N and V copied directly
// from the memory operand's bits 7 and 6 rather than from the AND result.
func (g *CodeGen) emitBIT(info OpInfo, op1, op2 byte) error {
	o, err := g.effectiveAddress(info.Mode, op1, op2)
	if err != nil {
		return err
	}
	if err := g.loadExtFromOperand(extR9, o); err != nil {
		return err
	}
	if err := g.testRegExt(al, extR9); err != nil {
		return err
	}
	if err := g.emitBytes(0x0F, 0x94, 0xC2); err != nil { // sete dl
		return err
	}
	if err := g.storeExtToReg(extR9, dh); err != nil {
		return err
	}
	if err := g.movExtFromExt(extR10, extR9); err != nil {
		return err
	}
	if err := g.andExtImm8(extR10, 1<<abi.FlagBitOverflow); err != nil {
		return err
	}
	if err := g.btrFlag(abi.FlagBitOverflow); err != nil {
		return err
	}
	return g.orExtExt(extR8, extR10)
}

// emitShift implements ASL/LSR/ROL/ROR for both the accumulator and
// memory read-modify-write forms. 6502 ROL/ROR rotate through carry, so
// they map to x86's RCL/RCR (group-2 /2 and /3) rather than ROL/ROR
// (/0, /1), which do not involve CF.
func (g *CodeGen) emitShift(info OpInfo, op1, op2 byte) error {
	var regField byte
	rotate := false
	switch info.Mnemonic {
	case opASL:
		regField = 4
	case opLSR:
		regField = 5
	case opROL:
		regField, rotate = 2, true
	case opROR:
		regField, rotate = 3, true
	}

	if info.Mode == ModeAccumulator {
		if rotate {
			if err := g.loadCarryIntoCF(); err != nil {
				return err
			}
		}
		if err := g.shiftRegImm1(al, regField); err != nil {
			return err
		}
		if err := g.storeCFIntoCarry(); err != nil {
			return err
		}
		return g.setZN(al)
	}

	o, err := g.effectiveAddress(info.Mode, op1, op2)
	if err != nil {
		return err
	}
	if err := g.loadExtFromOperand(extR9, o); err != nil {
		return err
	}
	if rotate {
		if err := g.loadCarryIntoCF(); err != nil {
			return err
		}
	}
	if err := g.shiftExtImm1(extR9, regField); err != nil {
		return err
	}
	if err := g.storeCFIntoCarry(); err != nil {
		return err
	}
	if err := g.storeExtToOperand(extR9, o); err != nil {
		return err
	}
	if err := g.testExtSelf(extR9); err != nil {
		return err
	}
	if err := g.emitBytes(0x0F, 0x94, 0xC2); err != nil { // sete dl
		return err
	}
	return g.storeExtToReg(extR9, dh)
}

// emitIncDecMem implements INC/DEC's memory read-modify-write form.
func (g *CodeGen) emitIncDecMem(info OpInfo, op1, op2 byte) error {
	o, err := g.effectiveAddress(info.Mode, op1, op2)
	if err != nil {
		return err
	}
	if err := g.loadExtFromOperand(extR9, o); err != nil {
		return err
	}
	if info.Mnemonic == opINC {
		if err := g.incExt(extR9); err != nil {
			return err
		}
	} else {
		if err := g.decExt(extR9); err != nil {
			return err
		}
	}
	if err := g.storeExtToOperand(extR9, o); err != nil {
		return err
	}
	if err := g.testExtSelf(extR9); err != nil {
		return err
	}
	if err := g.emitBytes(0x0F, 0x94, 0xC2); err != nil { // sete dl
		return err
	}
	return g.storeExtToReg(extR9, dh)
}

// emitIncDecReg implements INX/INY/DEX/DEY.
func (g *CodeGen) emitIncDecReg(reg byte, inc bool) error {
	if inc {
		if err := g.emitBytes(0xFE, 0xC0|reg); err != nil { // INC r/m8 (/0)
			return err
		}
	} else {
		if err := g.emitBytes(0xFE, 0xC8|reg); err != nil { // DEC r/m8 (/1)
			return err
		}
	}
	return g.setZN(reg)
}

// emitTransfer implements TAX/TAY/TXA/TYA/TSX/TXS. TXS alone leaves
// flags untouched, matching the 6502.
func (g *CodeGen) emitTransfer(sel byte) error {
	switch sel {
	case xferTAX:
		if err := g.movRegReg8(bl, al); err != nil {
			return err
		}
		return g.setZN(bl)
	case xferTAY:
		if err := g.movRegReg8(bh, al); err != nil {
			return err
		}
		return g.setZN(bh)
	case xferTXA:
		if err := g.movRegReg8(al, bl); err != nil {
			return err
		}
		return g.setZN(al)
	case xferTYA:
		if err := g.movRegReg8(al, bh); err != nil {
			return err
		}
		return g.setZN(al)
	case xferTSX:
		if err := g.movRegReg8(bl, cl); err != nil {
			return err
		}
		return g.setZN(bl)
	case xferTXS:
		return g.movRegReg8(cl, bl)
	}
	return nil
}

// emitFlagOp implements SEC/CLC/SEI/CLI/SED/CLD/CLV. Carry is shadowed
// in AH rather than R8 (see internal/abi), so SEC/CLC write AH directly
// instead of going through the btsFlag/btrFlag helpers the other five
// flags use.
//
// A nodecimal build has no working DecimalADC/DecimalSBC to hand control to, so
// SED itself traps there instead of silently accepting a mode the core
// can never honour -- see decimalBuildSupported.
func (g *CodeGen) emitFlagOp(info OpInfo, pc uint16) error {
	if info.FlagBit == abi.FlagBitCarry {
		if info.Mnemonic == opSetFlag {
			return g.movRegImm8(ah, 1)
		}
		return g.movRegImm8(ah, 0)
	}
	if info.FlagBit == abi.FlagBitDecimal && info.Mnemonic == opSetFlag && !decimalBuildSupported {
		return g.EmitTrap(abi.ExitUnsupportedOpcode, pc, 0xF8)
	}
	if info.Mnemonic == opSetFlag {
		return g.btsFlag(info.FlagBit)
	}
	return g.btrFlag(info.FlagBit)
}

// emitPHP packs the full P byte from AH/DL/DH/R8 and pushes it, setting
// the Break and Unused bits as the 6502 always does on an explicit push.
// Field positions in R8 (FlagBitInterupt/Decimal/Overflow) already match
// their position in the P byte, so they move across with a single masked
// OR rather than per-bit shifts.
func (g *CodeGen) emitPHP() error {
	if err := g.movExtFromReg(extR9, ah); err != nil { // bit0: carry
		return err
	}
	if err := g.testReg8(dl); err != nil {
		return err
	}
	if err := g.setccExt(ccNE, extR10); err != nil { // bit0 of r10: zero
		return err
	}
	if err := g.shiftExtImm1(extR10, 4 /*SHL*/); err != nil { // -> bit1
		return err
	}
	if err := g.orExtExt(extR9, extR10); err != nil {
		return err
	}
	if err := g.movExtFromExt(extR10, extR8); err != nil { // I/D/V bits from R8
		return err
	}
	if err := g.andExtImm8(extR10, (1<<abi.FlagBitInterupt)|(1<<abi.FlagBitDecimal)|(1<<abi.FlagBitOverflow)); err != nil {
		return err
	}
	if err := g.orExtExt(extR9, extR10); err != nil {
		return err
	}
	if err := g.orExtImm8(extR9, abi.PBreak|abi.PUnused); err != nil {
		return err
	}
	if err := g.movExtFromReg(extR10, dh); err != nil { // bit7: negative
		return err
	}
	if err := g.andExtImm8(extR10, abi.PNegative); err != nil {
		return err
	}
	if err := g.orExtExt(extR9, extR10); err != nil {
		return err
	}
	return g.pushExt(extR9)
}

// emitPLP pops a P byte and unpacks it back into AH/DL/DH/R8, the
// reverse of emitPHP. DL and DH only need the relevant bit isolated
// (zero/nonzero and bit7 respectively), not normalised to exactly 0/1,
// matching the convention setZN already establishes.
func (g *CodeGen) emitPLP() error {
	if err := g.popExt(extR9); err != nil {
		return err
	}
	if err := g.movExtFromExt(extR10, extR9); err != nil {
		return err
	}
	if err := g.andExtImm8(extR10, abi.PCarry); err != nil {
		return err
	}
	if err := g.movRegFromExt(ah, extR10); err != nil {
		return err
	}

	if err := g.movExtFromExt(extR10, extR9); err != nil {
		return err
	}
	if err := g.andExtImm8(extR10, abi.PZero); err != nil {
		return err
	}
	if err := g.movRegFromExt(dl, extR10); err != nil {
		return err
	}

	if err := g.movExtFromExt(extR10, extR9); err != nil {
		return err
	}
	if err := g.andExtImm8(extR10, abi.PNegative); err != nil {
		return err
	}
	if err := g.movRegFromExt(dh, extR10); err != nil {
		return err
	}

	if err := g.movExtFromExt(extR10, extR9); err != nil {
		return err
	}
	if err := g.andExtImm8(extR10, (1<<abi.FlagBitInterupt)|(1<<abi.FlagBitDecimal)|(1<<abi.FlagBitOverflow)); err != nil {
		return err
	}
	if err := g.btrFlag(abi.FlagBitInterupt); err != nil {
		return err
	}
	if err := g.btrFlag(abi.FlagBitDecimal); err != nil {
		return err
	}
	if err := g.btrFlag(abi.FlagBitOverflow); err != nil {
		return err
	}
	return g.orExtExt(extR8, extR10)
}
