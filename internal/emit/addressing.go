package emit

// Mode is a 6502 addressing mode.
type Mode int

const (
	ModeImplied Mode = iota
	ModeAccumulator
	ModeImmediate
	ModeZeroPage
	ModeZeroPageX
	ModeZeroPageY
	ModeAbsolute
	ModeAbsoluteX
	ModeAbsoluteY
	ModeIndirect // JMP only
	ModeIndirectX
	ModeIndirectY
	ModeRelative
)

// Operand carries the address of the effective operand once computed:
// either a constant RDI-relative displacement (zero page and absolute
// forms, where the displacement is known at translation time) or "use
// SI", the register-indirect form addressing modes needing a runtime
// index fall back to.
type operand struct {
	useSI bool
	disp  int32
}

// effectiveAddress computes the operand location for every non-immediate,
// non-relative addressing mode, following the exact index-register
// recipe the original interpreter's JIT core uses: EBX packs X (low
// byte) and Y (high byte) since both are only ever written 8 bits at a
// time after being zeroed on entry, so `mov esi, ebx` recovers both in
// one move.
func (g *CodeGen) effectiveAddress(mode Mode, op1, op2 byte) (operand, error) {
	switch mode {
	case ModeZeroPage:
		return operand{disp: int32(op1)}, nil
	case ModeAbsolute:
		return operand{disp: int32(op1) | int32(op2)<<8}, nil
	case ModeZeroPageX:
		if err := g.moveBXToSI(); err != nil {
			return operand{}, err
		}
		if err := g.addSIImm16(op1, 0); err != nil {
			return operand{}, err
		}
		if err := g.andSIImm8(0xFF); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	case ModeZeroPageY:
		if err := g.moveBXToSI(); err != nil {
			return operand{}, err
		}
		if err := g.shrESI8(); err != nil {
			return operand{}, err
		}
		if err := g.addSIImm16(op1, 0); err != nil {
			return operand{}, err
		}
		if err := g.andSIImm8(0xFF); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	case ModeAbsoluteX:
		if err := g.moveBXToSI(); err != nil {
			return operand{}, err
		}
		if err := g.andSIImm8(0xFF); err != nil {
			return operand{}, err
		}
		if err := g.addSIImm16(op1, op2); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	case ModeAbsoluteY:
		if err := g.moveBXToSI(); err != nil {
			return operand{}, err
		}
		if err := g.shrESI8(); err != nil {
			return operand{}, err
		}
		if err := g.addSIImm16(op1, op2); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	case ModeIndirectX:
		if err := g.moveBXToSI(); err != nil {
			return operand{}, err
		}
		if err := g.addSIImm16(op1, 0); err != nil {
			return operand{}, err
		}
		if err := g.andSIImm8(0xFF); err != nil {
			return operand{}, err
		}
		if err := g.fetchPointerFromSI(); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	case ModeIndirectY:
		if err := g.movRegImm16SI(op1); err != nil {
			return operand{}, err
		}
		if err := g.fetchPointerFromSI(); err != nil {
			return operand{}, err
		}
		if err := g.addSIFromBX(true /* Y */); err != nil {
			return operand{}, err
		}
		return operand{useSI: true}, nil
	default:
		return operand{}, nil
	}
}

// load emits the register load for an already-computed operand.
func (g *CodeGen) load(reg byte, o operand) error {
	if o.useSI {
		return g.loadMemSI8(reg)
	}
	return g.loadMem8(reg, o.disp)
}

// store emits the register store for an already-computed operand.
func (g *CodeGen) store(reg byte, o operand) error {
	if o.useSI {
		return g.storeMemSI8(reg)
	}
	return g.storeMem8(reg, o.disp)
}

// movRegImm16SI emits `mov si, imm16`, for indirect,Y's compile-time-known
// zero-page pointer address.
func (g *CodeGen) movRegImm16SI(zp byte) error {
	return g.emitBytes(0x66, 0xBE, zp, 0x00)
}

// addSIFromBX adds Y (BH) into SI with a normal 16-bit carry (no
// zero-page wrap): used only by indirect,Y, where the wrap already
// happened while reading the zero-page pointer and the Y addition is
// allowed to cross a page. BH cannot be named directly in an instruction
// that also carries a REX prefix (REX repurposes register encodings 4-7
// as SPL/BPL/SIL/DIL), so getting it into the scratch register R9 goes
// through the control block's scratch byte instead of a direct move.
func (g *CodeGen) addSIFromBX(useY bool) error {
	if !useY {
		return nil
	}
	if err := g.storeMem8(bh, CtrlOffset+CtrlScratch0); err != nil {
		return err
	}
	// movzx r9d, byte [rdi+disp32] -- a memory source has no register
	// encoding to collide with, so REX is safe here.
	if err := g.emitBytes(0x44, 0x0F, 0xB6); err != nil {
		return err
	}
	if err := g.rdiModRM(1 /*r9 low bits*/, CtrlOffset+CtrlScratch0); err != nil {
		return err
	}
	return g.addSIFromR9W()
}

// fetchPointerFromSI reads the little-endian 16-bit pointer stored at
// guest zero page SI (wrapping within the zero page for the high byte,
// matching 6502 indirect-addressing's well known page-wrap quirk) and
// leaves the pointer value in SI. R9 and R10 are used as scratch; neither
// is part of the guest register ABI.
func (g *CodeGen) fetchPointerFromSI() error {
	// mov r9b, [rdi+rsi]
	if err := g.emitBytes(0x44, 0x8A, 0x0C, 0x37); err != nil {
		return err
	}
	// add si, 1 ; and si, 0xff  (zero-page wrap on the high-byte fetch)
	if err := g.emitBytes(0x66, 0x83, 0xC6, 0x01); err != nil {
		return err
	}
	if err := g.andSIImm8(0xFF); err != nil {
		return err
	}
	// mov r10b, [rdi+rsi]
	if err := g.emitBytes(0x44, 0x8A, 0x14, 0x37); err != nil {
		return err
	}
	// movzx esi, r9b
	if err := g.emitBytes(0x41, 0x0F, 0xB6, 0xF1); err != nil {
		return err
	}
	// movzx r10d, r10b
	if err := g.emitBytes(0x45, 0x0F, 0xB6, 0xD2); err != nil {
		return err
	}
	// shl r10d, 8
	if err := g.emitBytes(0x41, 0xC1, 0xE2, 0x08); err != nil {
		return err
	}
	// or esi, r10d
	return g.emitBytes(0x44, 0x09, 0xD6)
}

// addSIFromR9W emits `add si, r9w`.
func (g *CodeGen) addSIFromR9W() error {
	return g.emitBytes(0x66, 0x44, 0x01, 0xCE)
}
