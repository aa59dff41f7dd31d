package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// Every control transfer within the arena -- fall-through to the next
// guest byte, a taken or not-taken branch, JMP's direct target -- lands
// on another slot's host address, and every one of those addresses is
// known at translation time (the arena never moves once mmap'd). So,
// unlike a whole-program linker, nothing here defers to a fixup pass:
// the short (rel8) vs near (rel32) jump form is chosen immediately by
// computing the displacement against the as-if-emitted instruction
// length, exactly as the original interpreter's JIT core does.

// JmpToHost emits an unconditional jump to target, preferring the
// 2-byte short form when the displacement fits in a signed byte.
func (g *CodeGen) JmpToHost(target uintptr) error {
	shortEnd := int64(g.HostAddr()) + 2
	disp := int64(target) - shortEnd
	if disp >= -128 && disp <= 127 {
		return g.emitBytes(0xEB, byte(int8(disp)))
	}
	nearEnd := int64(g.HostAddr()) + 5
	disp = int64(target) - nearEnd
	if err := g.emitByte(0xE9); err != nil {
		return err
	}
	return g.emitU32LE(uint32(int32(disp)))
}

// cc is an x86 condition code (low nibble of the Jcc opcode).
type cc byte

const (
	ccO  cc = 0x0 // overflow
	ccNO cc = 0x1
	ccB  cc = 0x2 // below / carry
	ccAE cc = 0x3
	ccE  cc = 0x4 // equal / zero
	ccNE cc = 0x5
	ccS  cc = 0x8 // sign / negative
	ccNS cc = 0x9
)

// JccToHost emits a conditional jump on cc to target, choosing the short
// (opcode 0x7x) or near (0x0F 0x8x) encoding by the same displacement
// check JmpToHost uses. This is the operation the fixed-size-per-guest-
// byte stride most directly exists to make cheap: both the taken and
// not-taken continuations are known before a single byte is written.
func (g *CodeGen) JccToHost(c cc, target uintptr) error {
	shortEnd := int64(g.HostAddr()) + 2
	disp := int64(target) - shortEnd
	if disp >= -128 && disp <= 127 {
		return g.emitBytes(0x70|byte(c), byte(int8(disp)))
	}
	nearEnd := int64(g.HostAddr()) + 6
	disp = int64(target) - nearEnd
	if err := g.emitBytes(0x0F, 0x80|byte(c)); err != nil {
		return err
	}
	return g.emitU32LE(uint32(int32(disp)))
}

// FallThrough charges cycles against the budget and jumps to next, the
// slot for the instruction immediately following this one -- the
// steady-state continuation every non-branching emitter ends with.
// Reaching the cycle budget is itself a trap (ExitCycleBudget) rather
// than an unconditional jump, since the supervisor needs a place to
// regain control between instructions to service IRQ/NMI and the host
// timeslice.
func (g *CodeGen) FallThrough(cycles byte, next uintptr, pc uint16) error {
	if err := g.chargeCycles(cycles); err != nil {
		return err
	}
	skipTrapDisp, err := g.reserveShortJG()
	if err != nil {
		return err
	}
	skipTrapFrom := g.n
	if err := g.EmitTrap(abi.ExitCycleBudget, pc, 0); err != nil {
		return err
	}
	g.buf[skipTrapDisp] = byte(g.n - skipTrapFrom)
	return g.JmpToHost(next)
}

// chargeCycles emits `sub dword [rdi+CtrlOffset+CtrlCycles], cycles`.
func (g *CodeGen) chargeCycles(cycles byte) error {
	if err := g.emitByte(0x83); err != nil { // SUB r/m32, imm8
		return err
	}
	if err := g.emitByte(0x80 | (5 /* /5 = SUB */ << 3) | edi); err != nil {
		return err
	}
	if err := g.emitU32LE(uint32(CtrlOffset + CtrlCycles)); err != nil {
		return err
	}
	return g.emitByte(cycles)
}

// reserveShortJG emits a short `jg rel8` with a placeholder displacement,
// taken when the budget has not yet run out, returning the byte offset
// of the displacement to patch once the skipped span's length is known.
func (g *CodeGen) reserveShortJG() (int, error) {
	if err := g.emitByte(0x7F); err != nil { // JG rel8
		return 0, err
	}
	off := g.n
	return off, g.emitByte(0x00)
}
