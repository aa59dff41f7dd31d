package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// loadCarryIntoCF moves the guest carry flag (AH, 0 or 1) into the host
// carry flag, the precondition ADC/SBC/ROL/ROR all share: `shr ah, 1`
// shifts AH's bit 0 into CF and leaves AH's remaining (always-zero) bits
// alone.
func (g *CodeGen) loadCarryIntoCF() error {
	return g.emitBytes(0xC0, 0xEC, 0x01) // shr ah, 1
}

// storeCFIntoCarry moves the host carry flag back into AH (`setb ah`)
// after an arithmetic or shift instruction has updated CF.
func (g *CodeGen) storeCFIntoCarry() error {
	return g.emitBytes(0x0F, 0x92, 0xC4) // setb ah
}

// storeOFIntoOverflow moves the host overflow flag into R8's V bit after
// ADC/SBC, whose x86 OF exactly matches 6502 V for an 8-bit signed add or
// subtract of the same operands.
func (g *CodeGen) storeOFIntoOverflow() error {
	if err := g.emitBytes(0x41, 0x0F, 0x90, 0xC1); err != nil { // seto r9b
		return err
	}
	if err := g.btrFlag(abi.FlagBitOverflow); err != nil {
		return err
	}
	return g.orR8FromR9Shifted(abi.FlagBitOverflow)
}

// orR8FromR9Shifted ORs R9B (0 or 1) shifted into bit position `bit` into
// R8, completing the V-flag materialisation above.
func (g *CodeGen) orR8FromR9Shifted(bit byte) error {
	if bit > 0 {
		if err := g.emitBytes(0x41, 0xC0, 0xE1, bit); err != nil { // shl r9b, bit
			return err
		}
	}
	return g.emitBytes(0x45, 0x08, 0xC8) // or r8b, r9b
}

// emitALUImmToAL emits `<op> al, imm8` for one of the register-AL ALU
// opcode families (ADD/OR/ADC/SBB/AND/SUB/XOR/CMP), selected by the /n
// field baked into the immediate-group opcode byte.
func (g *CodeGen) emitALUImmToAL(aluOp byte, imm byte) error {
	return g.emitBytes(aluOpcodeImmAL(aluOp), imm)
}

// emitALUMemToAL emits `<op> al, [mem]` (r/m8 -> AL forms), used for the
// non-immediate addressing modes once the operand location is known.
func (g *CodeGen) emitALUMemToAL(aluOp byte, o operand) error {
	if err := g.emitByte(aluOpcodeRegFromRM(aluOp)); err != nil {
		return err
	}
	if o.useSI {
		return g.emitBytes(0x04, 0x37) // modrm selecting [rdi+rsi], reg=al
	}
	return g.rdiModRM(al, o.disp)
}

// ALU op selector constants index into the 6502-ALU-to-x86-opcode table.
const (
	aluORA = iota
	aluAND
	aluEOR
	aluADC
	aluSBC
	aluCMP
)

// Exported mirrors of the ALU selectors above, for callers outside this
// package (the supervisor's decimal-mode trap handler) that need to tell
// OpInfo.ALU values apart without reaching into emit's opcode table
// internals.
const (
	ALUAdd = aluADC
	ALUSub = aluSBC
)

func aluOpcodeImmAL(op byte) byte {
	switch op {
	case aluORA:
		return 0x0C
	case aluAND:
		return 0x24
	case aluEOR:
		return 0x34
	case aluADC:
		return 0x14
	case aluSBC:
		return 0x1C
	case aluCMP:
		return 0x3C
	}
	return 0x0C
}

func aluOpcodeRegFromRM(op byte) byte {
	switch op {
	case aluORA:
		return 0x0A
	case aluAND:
		return 0x22
	case aluEOR:
		return 0x32
	case aluADC:
		return 0x12
	case aluSBC:
		return 0x1A
	case aluCMP:
		return 0x3A
	}
	return 0x0A
}
