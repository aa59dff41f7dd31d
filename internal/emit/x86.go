package emit

// This file holds the general-purpose amd64 encoders every opcode
// emitter builds on: RDI-relative memory operands, the X/Y index
// computation beebjit's POC uses for indexed addressing modes, ALU and
// shift forms, and the Z/N/C/V flag plumbing into the register ABI.

// movRegImm8 emits `mov reg8, imm8` for one of AL/BL/CL/DL/AH/BH/CH/DH.
func (g *CodeGen) movRegImm8(reg, imm byte) error {
	return g.emitBytes(0xB0|reg, imm)
}

// movRegReg8 emits `mov dst8, src8`.
func (g *CodeGen) movRegReg8(dst, src byte) error {
	return g.emitBytes(0x88, 0xC0|(src<<3)|dst)
}

// rdiMem emits a ModRM byte selecting [RDI+disp32] with the given reg
// field, followed by the displacement, for single-operand forms.
func (g *CodeGen) rdiModRM(reg byte, disp int32) error {
	if err := g.emitByte(0x80 | (reg << 3) | edi); err != nil {
		return err
	}
	return g.emitU32LE(uint32(disp))
}

// loadMem8 emits `mov reg8, [rdi+disp32]`.
func (g *CodeGen) loadMem8(reg byte, disp int32) error {
	if err := g.emitByte(0x8A); err != nil {
		return err
	}
	return g.rdiModRM(reg, disp)
}

// storeMem8 emits `mov [rdi+disp32], reg8`.
func (g *CodeGen) storeMem8(reg byte, disp int32) error {
	if err := g.emitByte(0x88); err != nil {
		return err
	}
	return g.rdiModRM(reg, disp)
}

// loadMemSI8 emits `mov reg8, [rdi+rsi]`, the register-indexed form used
// once an effective 16-bit index has been computed into SI.
func (g *CodeGen) loadMemSI8(reg byte) error {
	return g.emitBytes(0x8A, 0x04|(reg<<3), 0x37)
}

// storeMemSI8 emits `mov [rdi+rsi], reg8`.
func (g *CodeGen) storeMemSI8(reg byte) error {
	return g.emitBytes(0x88, 0x04|(reg<<3), 0x37)
}

// moveBXToSI emits `mov esi, ebx`: EBX only ever receives 8-bit writes to
// BL/BH after being zeroed on entry, so its low 16 bits are exactly
// Y:X and everything above is permanently zero.
func (g *CodeGen) moveBXToSI() error {
	return g.emitBytes(0x89, 0xDE)
}

// shrESI8 emits `shr esi, 8`, moving Y into SI's low byte for
// absolute,Y-style addressing.
func (g *CodeGen) shrESI8() error {
	return g.emitBytes(0xC1, 0xEE, 0x08)
}

// andSIImm8 emits `and si, imm8` (zero-extended to 16 bits), isolating X
// after moveBXToSI for zero-page-wrapping addressing modes.
func (g *CodeGen) andSIImm8(mask byte) error {
	return g.emitBytes(0x66, 0x81, 0xE6, mask, 0x00)
}

// addSIImm16 emits `add si, imm16`.
func (g *CodeGen) addSIImm16(lo, hi byte) error {
	return g.emitBytes(0x66, 0x81, 0xC6, lo, hi)
}

// xorReg8 emits `xor reg8, reg8`, zeroing it (used to clear a scratch
// byte before a conditional OR).
func (g *CodeGen) xorReg8(reg byte) error {
	return g.emitBytes(0x30, 0xC0|(reg<<3)|reg)
}

// testReg8 emits `test reg8, reg8`, setting ZF/SF from reg's value --
// the basis for 6502 Z/N materialisation.
func (g *CodeGen) testReg8(reg byte) error {
	return g.emitBytes(0x84, 0xC0|(reg<<3)|reg)
}

// setZN emits the standard post-ALU flag sequence: DL = ZF via `sete`
// (1 when the result is zero, so nonzero means Z set, matching the guest
// Z-flag convention used throughout this package), and DH = a plain copy
// of the result, whose sign bit is what the N-flag check reads.
func (g *CodeGen) setZN(result byte) error {
	if err := g.testReg8(result); err != nil {
		return err
	}
	if err := g.emitBytes(0x0F, 0x94, 0xC0|dl); err != nil { // sete dl
		return err
	}
	return g.movRegReg8(dh, result) // dh := result (sign bit is what N reads)
}

// btFlag emits `bt r8, imm8`, setting CF to R8's bit position bit.
func (g *CodeGen) btFlag(bit byte) error {
	return g.emitBytes(0x41, 0x0F, 0xBA, 0xE0, bit)
}

// btsFlag emits `bts r8, imm8`.
func (g *CodeGen) btsFlag(bit byte) error {
	return g.emitBytes(0x41, 0x0F, 0xBA, 0xE8, bit)
}

// btrFlag emits `btr r8, imm8`.
func (g *CodeGen) btrFlag(bit byte) error {
	return g.emitBytes(0x41, 0x0F, 0xBA, 0xF0, bit)
}

// ret emits a bare RET, used nowhere in guest control flow (guest RTS is
// implemented with a computed jump, never a host RET -- the host call
// stack belongs entirely to rawEnter/rawResume) but kept for the trap
// stub writer in trapstub.go.
func (g *CodeGen) ret() error {
	return g.emitByte(0xC3)
}

// movEAXImm32 / movEDXImm32 load the packed exit word / aux word a trap
// leaves for the supervisor to read after RET.
func (g *CodeGen) movEAXImm32(v uint32) error {
	if err := g.emitByte(0xB8); err != nil {
		return err
	}
	return g.emitU32LE(v)
}

func (g *CodeGen) movEDXImm32(v uint32) error {
	if err := g.emitByte(0xBA); err != nil {
		return err
	}
	return g.emitU32LE(v)
}
