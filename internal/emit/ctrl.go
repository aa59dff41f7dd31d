package emit

// Control block field offsets, relative to RDI+arena.CtrlOffset. Spilling
// here is how a trap sequence hands the live register ABI to the
// supervisor without losing X/Y/S/flags, which rawEnter's plain packed
// return value has no room for -- only A (low byte of the packed exit
// word's PC field would collide with it) and the aux word survive a bare
// RET otherwise.
const (
	CtrlA     = 0 // accumulator
	CtrlX     = 1
	CtrlY     = 2
	CtrlS     = 3
	CtrlC     = 4 // carry flag, 0 or 1
	CtrlZ     = 5 // zero flag byte (DL), nonzero means Z set (see setZN)
	CtrlN     = 6 // negative flag byte (DH), nonzero means set
	CtrlFlags = 7 // other-flags byte (low byte of R8): V,I,D,B,U bits

	// CtrlCycles is a little-endian int32 cycle budget, decremented by
	// every instruction's fall-through sequence. Reaching zero or below
	// traps with ExitCycleBudget so the supervisor can service timers,
	// poll for interrupts, or simply yield.
	CtrlCycles = 8

	// CtrlScratch0 is a spare byte used as a round-trip staging point when
	// an addressing-mode computation needs AH/BH/CH/DH's value inside an
	// extended scratch register: x86-64 cannot encode AH/BH/CH/DH as an
	// operand in any instruction that also carries a REX prefix, so
	// moving one of them into R9-R15 goes through memory instead of a
	// direct register-to-register move.
	CtrlScratch0 = 16
)

// CtrlOffset must equal arena.CtrlOffset; duplicated as a constant here
// rather than imported to avoid a dependency cycle (arena does not need
// to know about emit's instruction encodings, only the reverse).
const CtrlOffset = 0x10000

// emitSpillState writes A, X, Y, S, the Z/N/C flags, and the other-flags
// byte from their live registers into the control block. Every non-fatal
// trap emits this immediately before loading the exit code and RET'ing,
// so the supervisor can inspect or mutate guest state and the eventual
// Resume can restore it exactly.
func (g *CodeGen) emitSpillState() error {
	for _, m := range []struct {
		reg, off byte
	}{
		{al, CtrlA}, {bl, CtrlX}, {bh, CtrlY}, {cl, CtrlS},
		{ah, CtrlC}, {dl, CtrlZ}, {dh, CtrlN},
	} {
		if err := g.movMemFromReg8(CtrlOffset+int32(m.off), m.reg); err != nil {
			return err
		}
	}
	return g.movMemFromR8Low(CtrlOffset + CtrlFlags)
}

// movMemFromReg8 emits `mov [rdi+disp32], reg8`.
func (g *CodeGen) movMemFromReg8(disp int32, reg byte) error {
	if err := g.emitByte(0x88); err != nil {
		return err
	}
	if err := g.emitByte(0x80 | (reg << 3) | edi); err != nil {
		return err
	}
	return g.emitU32LE(uint32(disp))
}

// movMemFromR8Low stores R8's low byte (`mov [rdi+disp32], r8b`),
// REX.R-prefixed since R8-R15 always need a REX byte regardless of which
// 8 bits are addressed.
func (g *CodeGen) movMemFromR8Low(disp int32) error {
	if err := g.emitBytes(0x44, 0x88); err != nil {
		return err
	}
	if err := g.emitByte(0x80 | (0 /*R8*/ << 3) | edi); err != nil {
		return err
	}
	return g.emitU32LE(uint32(disp))
}
