package interp

// mode names the 6502 addressing modes this interpreter decodes directly
// from the opcode byte, independent of internal/emit.Mode.
type mode int

const (
	modeImplied mode = iota
	modeAccumulator
	modeImmediate
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeIndirect
	modeIndirectX
	modeIndirectY
	modeRelative
)

// operand resolves mode against the one or two operand bytes following
// the opcode at pc, returning the effective address (meaningless for
// modeImplied/modeAccumulator/modeImmediate, where the caller uses op1
// directly or ignores it) and whether an indexed mode crossed a page
// boundary, which costs an extra cycle on load-type instructions.
func (c *CPU) operand(m mode, pc uint16) (addr uint16, crossed bool) {
	op1 := c.Mem.Read8(pc + 1)
	op2 := c.Mem.Read8(pc + 2)
	abs := uint16(op1) | uint16(op2)<<8
	switch m {
	case modeZeroPage:
		return uint16(op1), false
	case modeZeroPageX:
		return uint16(byte(op1 + c.X)), false
	case modeZeroPageY:
		return uint16(byte(op1 + c.Y)), false
	case modeAbsolute:
		return abs, false
	case modeAbsoluteX:
		a := abs + uint16(c.X)
		return a, (abs & 0xFF00) != (a & 0xFF00)
	case modeAbsoluteY:
		a := abs + uint16(c.Y)
		return a, (abs & 0xFF00) != (a & 0xFF00)
	case modeIndirectX:
		ptr := uint16(byte(op1 + c.X))
		lo := uint16(c.Mem.Read8(ptr))
		hi := uint16(c.Mem.Read8(uint16(byte(ptr + 1))))
		return lo | hi<<8, false
	case modeIndirectY:
		lo := uint16(c.Mem.Read8(uint16(op1)))
		hi := uint16(c.Mem.Read8(uint16(byte(op1 + 1))))
		base := lo | hi<<8
		a := base + uint16(c.Y)
		return a, (base & 0xFF00) != (a & 0xFF00)
	default:
		return 0, false
	}
}

// opLen reports the instruction length in bytes for a mode, independent
// of any opcode-specific table.
func opLen(m mode) uint16 {
	switch m {
	case modeImplied, modeAccumulator:
		return 1
	case modeImmediate, modeZeroPage, modeZeroPageX, modeZeroPageY,
		modeIndirectX, modeIndirectY, modeRelative:
		return 2
	default:
		return 3
	}
}

// Step decodes and executes the single instruction at PC, returning the
// number of cycles it consumed, including the extra cycle of an indexed
// load that crosses a page and the extras of a taken branch (Irq/Nmi
// account for their own cost separately). It panics on an opcode this interpreter does not
// recognise -- every opcode internal/emit.Table assigns real semantics to
// is implemented here, so an unhandled byte is a real gap, not a guest
// programming error.
func (c *CPU) Step() int {
	pc := c.PC
	opcode := c.Mem.Read8(pc)
	cycles := 0

	adv := func(m mode) { c.PC = pc + opLen(m) }
	ld := func(m mode) byte {
		if m == modeImmediate {
			return c.Mem.Read8(pc + 1)
		}
		addr, crossed := c.operand(m, pc)
		if crossed {
			cycles++
		}
		return c.Mem.Read8(addr)
	}
	rmwAddr := func(m mode) uint16 {
		addr, _ := c.operand(m, pc)
		return addr
	}

	branch := func(cond bool) {
		disp := int8(c.Mem.Read8(pc + 1))
		cycles = 2
		next := pc + 2
		if cond {
			cycles = 3
			target := uint16(int32(next) + int32(disp))
			if target&0xFF00 != next&0xFF00 {
				cycles = 4
			}
			c.PC = target
			return
		}
		c.PC = next
	}

	switch opcode {
	// LDA
	case 0xA9:
		c.A = ld(modeImmediate)
		c.setZN(c.A)
		cycles = 2
		adv(modeImmediate)
	case 0xA5:
		c.A = ld(modeZeroPage)
		c.setZN(c.A)
		cycles = 3
		adv(modeZeroPage)
	case 0xB5:
		c.A = ld(modeZeroPageX)
		c.setZN(c.A)
		cycles = 4
		adv(modeZeroPageX)
	case 0xAD:
		c.A = ld(modeAbsolute)
		c.setZN(c.A)
		cycles = 4
		adv(modeAbsolute)
	case 0xBD:
		c.A = ld(modeAbsoluteX)
		c.setZN(c.A)
		cycles += 4
		adv(modeAbsoluteX)
	case 0xB9:
		c.A = ld(modeAbsoluteY)
		c.setZN(c.A)
		cycles += 4
		adv(modeAbsoluteY)
	case 0xA1:
		c.A = ld(modeIndirectX)
		c.setZN(c.A)
		cycles = 6
		adv(modeIndirectX)
	case 0xB1:
		c.A = ld(modeIndirectY)
		c.setZN(c.A)
		cycles += 5
		adv(modeIndirectY)

	// LDX
	case 0xA2:
		c.X = ld(modeImmediate)
		c.setZN(c.X)
		cycles = 2
		adv(modeImmediate)
	case 0xA6:
		c.X = ld(modeZeroPage)
		c.setZN(c.X)
		cycles = 3
		adv(modeZeroPage)
	case 0xB6:
		c.X = ld(modeZeroPageY)
		c.setZN(c.X)
		cycles = 4
		adv(modeZeroPageY)
	case 0xAE:
		c.X = ld(modeAbsolute)
		c.setZN(c.X)
		cycles = 4
		adv(modeAbsolute)
	case 0xBE:
		c.X = ld(modeAbsoluteY)
		c.setZN(c.X)
		cycles += 4
		adv(modeAbsoluteY)

	// LDY
	case 0xA0:
		c.Y = ld(modeImmediate)
		c.setZN(c.Y)
		cycles = 2
		adv(modeImmediate)
	case 0xA4:
		c.Y = ld(modeZeroPage)
		c.setZN(c.Y)
		cycles = 3
		adv(modeZeroPage)
	case 0xB4:
		c.Y = ld(modeZeroPageX)
		c.setZN(c.Y)
		cycles = 4
		adv(modeZeroPageX)
	case 0xAC:
		c.Y = ld(modeAbsolute)
		c.setZN(c.Y)
		cycles = 4
		adv(modeAbsolute)
	case 0xBC:
		c.Y = ld(modeAbsoluteX)
		c.setZN(c.Y)
		cycles += 4
		adv(modeAbsoluteX)

	// STA/STX/STY
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		m, cyc := storeMode(opcode)
		addr, _ := c.operand(m, pc)
		c.Mem.Write8(addr, c.A)
		cycles = cyc
		adv(m)
	case 0x86, 0x96, 0x8E:
		m, cyc := storeXMode(opcode)
		addr, _ := c.operand(m, pc)
		c.Mem.Write8(addr, c.X)
		cycles = cyc
		adv(m)
	case 0x84, 0x94, 0x8C:
		m, cyc := storeYMode(opcode)
		addr, _ := c.operand(m, pc)
		c.Mem.Write8(addr, c.Y)
		cycles = cyc
		adv(m)

	// ALU group: ORA/AND/EOR/ADC/SBC/CMP
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		m, cyc := aluMode(opcode)
		c.A |= ld(m)
		c.setZN(c.A)
		cycles += cyc
		adv(m)
	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		m, cyc := aluMode(opcode)
		c.A &= ld(m)
		c.setZN(c.A)
		cycles += cyc
		adv(m)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		m, cyc := aluMode(opcode)
		c.A ^= ld(m)
		c.setZN(c.A)
		cycles += cyc
		adv(m)
	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		m, cyc := aluMode(opcode)
		v := ld(m)
		c.adc(v)
		cycles += cyc
		adv(m)
	case 0xE9, 0xEB, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1:
		m, cyc := sbcMode(opcode)
		v := ld(m)
		c.sbc(v)
		cycles += cyc
		adv(m)
	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		m, cyc := aluMode(opcode)
		v := ld(m)
		c.compare(c.A, v)
		cycles += cyc
		adv(m)

	// CPX/CPY
	case 0xE0:
		c.compare(c.X, ld(modeImmediate))
		cycles = 2
		adv(modeImmediate)
	case 0xE4:
		c.compare(c.X, ld(modeZeroPage))
		cycles = 3
		adv(modeZeroPage)
	case 0xEC:
		c.compare(c.X, ld(modeAbsolute))
		cycles = 4
		adv(modeAbsolute)
	case 0xC0:
		c.compare(c.Y, ld(modeImmediate))
		cycles = 2
		adv(modeImmediate)
	case 0xC4:
		c.compare(c.Y, ld(modeZeroPage))
		cycles = 3
		adv(modeZeroPage)
	case 0xCC:
		c.compare(c.Y, ld(modeAbsolute))
		cycles = 4
		adv(modeAbsolute)

	// BIT
	case 0x24:
		v := ld(modeZeroPage)
		c.bit(v)
		cycles = 3
		adv(modeZeroPage)
	case 0x2C:
		v := ld(modeAbsolute)
		c.bit(v)
		cycles = 4
		adv(modeAbsolute)

	// Shifts/rotates: accumulator and memory forms.
	case 0x0A:
		c.A = c.asl(c.A)
		cycles = 2
		adv(modeAccumulator)
	case 0x06, 0x16, 0x0E, 0x1E:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		c.Mem.Write8(addr, c.asl(c.Mem.Read8(addr)))
		cycles = cyc
		adv(m)
	case 0x4A:
		c.A = c.lsr(c.A)
		cycles = 2
		adv(modeAccumulator)
	case 0x46, 0x56, 0x4E, 0x5E:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		c.Mem.Write8(addr, c.lsr(c.Mem.Read8(addr)))
		cycles = cyc
		adv(m)
	case 0x2A:
		c.A = c.rol(c.A)
		cycles = 2
		adv(modeAccumulator)
	case 0x26, 0x36, 0x2E, 0x3E:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		c.Mem.Write8(addr, c.rol(c.Mem.Read8(addr)))
		cycles = cyc
		adv(m)
	case 0x6A:
		c.A = c.ror(c.A)
		cycles = 2
		adv(modeAccumulator)
	case 0x66, 0x76, 0x6E, 0x7E:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		c.Mem.Write8(addr, c.ror(c.Mem.Read8(addr)))
		cycles = cyc
		adv(m)

	// INC/DEC memory
	case 0xE6, 0xF6, 0xEE, 0xFE:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		v := c.Mem.Read8(addr) + 1
		c.Mem.Write8(addr, v)
		c.setZN(v)
		cycles = cyc
		adv(m)
	case 0xC6, 0xD6, 0xCE, 0xDE:
		m, cyc := shiftMemMode(opcode)
		addr := rmwAddr(m)
		v := c.Mem.Read8(addr) - 1
		c.Mem.Write8(addr, v)
		c.setZN(v)
		cycles = cyc
		adv(m)

	case 0xE8:
		c.X++
		c.setZN(c.X)
		cycles = 2
		adv(modeImplied)
	case 0xC8:
		c.Y++
		c.setZN(c.Y)
		cycles = 2
		adv(modeImplied)
	case 0xCA:
		c.X--
		c.setZN(c.X)
		cycles = 2
		adv(modeImplied)
	case 0x88:
		c.Y--
		c.setZN(c.Y)
		cycles = 2
		adv(modeImplied)

	// Transfers
	case 0xAA:
		c.X = c.A
		c.setZN(c.X)
		cycles = 2
		adv(modeImplied)
	case 0xA8:
		c.Y = c.A
		c.setZN(c.Y)
		cycles = 2
		adv(modeImplied)
	case 0x8A:
		c.A = c.X
		c.setZN(c.A)
		cycles = 2
		adv(modeImplied)
	case 0x98:
		c.A = c.Y
		c.setZN(c.A)
		cycles = 2
		adv(modeImplied)
	case 0xBA:
		c.X = c.S
		c.setZN(c.X)
		cycles = 2
		adv(modeImplied)
	case 0x9A:
		c.S = c.X
		cycles = 2
		adv(modeImplied)

	// Branches
	case 0x90:
		branch(!c.getFlag(flagCarry))
	case 0xB0:
		branch(c.getFlag(flagCarry))
	case 0xF0:
		branch(c.getFlag(flagZero))
	case 0xD0:
		branch(!c.getFlag(flagZero))
	case 0x30:
		branch(c.getFlag(flagNegative))
	case 0x10:
		branch(!c.getFlag(flagNegative))
	case 0x50:
		branch(!c.getFlag(flagOverflow))
	case 0x70:
		branch(c.getFlag(flagOverflow))

	case 0x4C: // JMP abs
		addr, _ := c.operand(modeAbsolute, pc)
		c.PC = addr
		cycles = 3
	case 0x6C: // JMP (abs), page-wrap bug
		ptr, _ := c.operand(modeAbsolute, pc)
		c.PC = c.read16PageWrap(ptr)
		cycles = 5
	case 0x20: // JSR
		target, _ := c.operand(modeAbsolute, pc)
		ret := pc + 2
		c.push(byte(ret >> 8))
		c.push(byte(ret))
		c.PC = target
		cycles = 6
	case 0x60: // RTS
		lo := uint16(c.pop())
		hi := uint16(c.pop())
		c.PC = (hi<<8 | lo) + 1
		cycles = 6
	case 0x40: // RTI
		c.P = (c.pop() &^ flagBreak) | flagUnused
		lo := uint16(c.pop())
		hi := uint16(c.pop())
		c.PC = hi<<8 | lo
		cycles = 6

	case 0x48: // PHA
		c.push(c.A)
		cycles = 3
		adv(modeImplied)
	case 0x08: // PHP
		c.push(c.P | flagBreak | flagUnused)
		cycles = 3
		adv(modeImplied)
	case 0x68: // PLA
		c.A = c.pop()
		c.setZN(c.A)
		cycles = 4
		adv(modeImplied)
	case 0x28: // PLP
		c.P = (c.pop() &^ flagBreak) | flagUnused
		cycles = 4
		adv(modeImplied)

	case 0x38:
		c.setFlag(flagCarry, true)
		cycles = 2
		adv(modeImplied)
	case 0x18:
		c.setFlag(flagCarry, false)
		cycles = 2
		adv(modeImplied)
	case 0x78:
		c.setFlag(flagInterupt, true)
		cycles = 2
		adv(modeImplied)
	case 0x58:
		c.setFlag(flagInterupt, false)
		cycles = 2
		adv(modeImplied)
	case 0xF8:
		c.setFlag(flagDecimal, true)
		cycles = 2
		adv(modeImplied)
	case 0xD8:
		c.setFlag(flagDecimal, false)
		cycles = 2
		adv(modeImplied)
	case 0xB8:
		c.setFlag(flagOverflow, false)
		cycles = 2
		adv(modeImplied)

	case 0x00: // BRK
		ret := pc + 2
		c.push(byte(ret >> 8))
		c.push(byte(ret))
		c.push(c.P | flagBreak | flagUnused)
		c.setFlag(flagInterupt, true)
		c.PC = c.Mem.IRQVector()
		cycles = 7

	case 0xEA, 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA:
		cycles = 2
		adv(modeImplied)
	case 0x80, 0x82, 0x89, 0xC2, 0xE2:
		cycles = 2
		adv(modeImmediate)
	case 0x04, 0x44, 0x64:
		cycles = 3
		adv(modeZeroPage)
	case 0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4:
		cycles = 4
		adv(modeZeroPageX)
	case 0x0C:
		cycles = 4
		adv(modeAbsolute)
	case 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC:
		_, crossed := c.operand(modeAbsoluteX, pc)
		cycles = 4
		if crossed {
			cycles++
		}
		adv(modeAbsoluteX)

	default:
		panic(unsupportedOpcode{opcode, pc})
	}

	c.Cycles += uint64(cycles)
	return cycles
}

// unsupportedOpcode is panicked for any opcode byte this interpreter has
// no case for, so a caller using it as the UnsupportedOpcode fallback can
// recover() and translate it into a trap.UnsupportedOpcodeError.
type unsupportedOpcode struct {
	Opcode byte
	PC     uint16
}

func (e unsupportedOpcode) Error() string { return "interp: unsupported opcode" }

func storeMode(op byte) (mode, int) {
	switch op {
	case 0x85:
		return modeZeroPage, 3
	case 0x95:
		return modeZeroPageX, 4
	case 0x8D:
		return modeAbsolute, 4
	case 0x9D:
		return modeAbsoluteX, 5
	case 0x99:
		return modeAbsoluteY, 5
	case 0x81:
		return modeIndirectX, 6
	default: // 0x91
		return modeIndirectY, 6
	}
}

func storeXMode(op byte) (mode, int) {
	switch op {
	case 0x86:
		return modeZeroPage, 3
	case 0x96:
		return modeZeroPageY, 4
	default: // 0x8E
		return modeAbsolute, 4
	}
}

func storeYMode(op byte) (mode, int) {
	switch op {
	case 0x84:
		return modeZeroPage, 3
	case 0x94:
		return modeZeroPageX, 4
	default: // 0x8C
		return modeAbsolute, 4
	}
}

// aluMode returns the addressing mode and base cycle count for one of the
// eight ORA/AND/EOR/ADC/CMP opcode-offset slots, shared because all of
// ORA/AND/EOR/ADC/CMP use the identical eight-mode layout at offsets
// 0x09/0x05/0x15/0x0D/0x1D/0x19/0x01/0x11 from their group base.
func aluMode(op byte) (mode, int) {
	switch op & 0x1F {
	case 0x09:
		return modeImmediate, 2
	case 0x05:
		return modeZeroPage, 3
	case 0x15:
		return modeZeroPageX, 4
	case 0x0D:
		return modeAbsolute, 4
	case 0x1D:
		return modeAbsoluteX, 4
	case 0x19:
		return modeAbsoluteY, 4
	case 0x01:
		return modeIndirectX, 6
	default: // 0x11
		return modeIndirectY, 5
	}
}

func sbcMode(op byte) (mode, int) {
	switch op {
	case 0xE9, 0xEB:
		return modeImmediate, 2
	case 0xE5:
		return modeZeroPage, 3
	case 0xF5:
		return modeZeroPageX, 4
	case 0xED:
		return modeAbsolute, 4
	case 0xFD:
		return modeAbsoluteX, 4
	case 0xF9:
		return modeAbsoluteY, 4
	case 0xE1:
		return modeIndirectX, 6
	default: // 0xF1
		return modeIndirectY, 5
	}
}

func shiftMemMode(op byte) (mode, int) {
	switch op {
	case 0x06, 0x26, 0x46, 0x66, 0xE6, 0xC6:
		return modeZeroPage, 5
	case 0x16, 0x36, 0x56, 0x76, 0xF6, 0xD6:
		return modeZeroPageX, 6
	case 0x0E, 0x2E, 0x4E, 0x6E, 0xEE, 0xCE:
		return modeAbsolute, 6
	default: // 0x1E, 0x3E, 0x5E, 0x7E, 0xFE, 0xDE
		return modeAbsoluteX, 7
	}
}

func (c *CPU) bit(v byte) {
	c.setFlag(flagZero, c.A&v == 0)
	c.setFlag(flagNegative, v&0x80 != 0)
	c.setFlag(flagOverflow, v&0x40 != 0)
}

func (c *CPU) compare(reg, v byte) {
	r := reg - v
	c.setFlag(flagCarry, reg >= v)
	c.setZN(r)
}

func (c *CPU) asl(v byte) byte {
	c.setFlag(flagCarry, v&0x80 != 0)
	r := v << 1
	c.setZN(r)
	return r
}

func (c *CPU) lsr(v byte) byte {
	c.setFlag(flagCarry, v&0x01 != 0)
	r := v >> 1
	c.setZN(r)
	return r
}

func (c *CPU) rol(v byte) byte {
	carryIn := byte(0)
	if c.getFlag(flagCarry) {
		carryIn = 1
	}
	c.setFlag(flagCarry, v&0x80 != 0)
	r := (v << 1) | carryIn
	c.setZN(r)
	return r
}

func (c *CPU) ror(v byte) byte {
	carryIn := byte(0)
	if c.getFlag(flagCarry) {
		carryIn = 0x80
	}
	c.setFlag(flagCarry, v&0x01 != 0)
	r := (v >> 1) | carryIn
	c.setZN(r)
	return r
}

// adc implements ADC including the decimal-mode adjustment; the JIT
// traps to its own decimal helper (internal/emit.DecimalADC) for the same
// case, and this path is the oracle that helper is checked against.
func (c *CPU) adc(v byte) {
	carryIn := uint16(0)
	if c.getFlag(flagCarry) {
		carryIn = 1
	}
	a := uint16(c.A)
	sum := a + uint16(v) + carryIn
	c.setFlag(flagOverflow, (^(a^uint16(v)))&(a^sum)&0x80 != 0)

	if c.getFlag(flagDecimal) {
		lo := (c.A & 0x0F) + (v & 0x0F) + byte(carryIn)
		hi := (c.A >> 4) + (v >> 4)
		if lo > 9 {
			lo += 6
			hi++
		}
		if hi > 9 {
			hi += 6
		}
		c.setFlag(flagCarry, hi > 15)
		c.A = (hi << 4) | (lo & 0x0F)
		c.setZN(byte(sum))
		return
	}

	c.setFlag(flagCarry, sum > 0xFF)
	c.A = byte(sum)
	c.setZN(c.A)
}

// sbc implements SBC including the decimal-mode adjustment, the BCD
// mirror of adc above.
func (c *CPU) sbc(v byte) {
	borrowIn := uint16(0)
	if !c.getFlag(flagCarry) {
		borrowIn = 1
	}
	a := uint16(c.A)
	vv := uint16(v)
	diff := a - vv - borrowIn
	c.setFlag(flagOverflow, (a^vv)&(a^diff)&0x80 != 0)
	c.setFlag(flagCarry, diff < 0x100)
	result := byte(diff)

	if c.getFlag(flagDecimal) {
		lo := int16(c.A&0x0F) - int16(v&0x0F) - int16(borrowIn)
		hi := int16(c.A>>4) - int16(v>>4)
		if lo < 0 {
			lo -= 6
			hi--
		}
		if hi < 0 {
			hi -= 6
		}
		c.A = byte(hi<<4) | byte(lo&0x0F)
		c.setZN(result)
		return
	}

	c.A = result
	c.setZN(c.A)
}
