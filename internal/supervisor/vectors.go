package supervisor

import (
	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// push writes v at guest stack page 1 + the control block's S and
// decrements S, mirroring the 6502's descending stack exactly as
// internal/interp.CPU.push does; the supervisor reimplements it rather
// than sharing code because it operates on control-block bytes, not a
// CPU struct's fields.
func (s *Supervisor) push(ctrl []byte, v byte) {
	sp := ctrl[emit.CtrlS]
	s.mem.Write8(0x0100|uint16(sp), v)
	ctrl[emit.CtrlS] = sp - 1
}

func (s *Supervisor) pop(ctrl []byte) byte {
	sp := ctrl[emit.CtrlS] + 1
	ctrl[emit.CtrlS] = sp
	return s.mem.Read8(0x0100 | uint16(sp))
}

// packP reassembles the full 6502 status byte from the control block's
// split representation (AH/DL/DH shadow C/Z/N; R8's low byte carries
// I/D/V), per internal/abi's documented ABI. U is always reported set;
// B reflects whichever call site (BRK vs IRQ/NMI) ORs it in afterward.
func packP(ctrl []byte) byte {
	p := byte(abi.PUnused)
	if ctrl[emit.CtrlC] != 0 {
		p |= abi.PCarry
	}
	if ctrl[emit.CtrlZ] != 0 {
		p |= abi.PZero
	}
	if ctrl[emit.CtrlN]&0x80 != 0 {
		p |= abi.PNegative
	}
	p |= ctrl[emit.CtrlFlags] & (abi.PInterupt | abi.PDecimal | abi.POverflow)
	return p
}

// unpackP is packP's inverse, used when a popped P byte (RTI, or a
// single-stepped PLP inside the interpreter fallback) must be written
// back into the control block's split representation.
func unpackP(ctrl []byte, p byte) {
	if p&abi.PCarry != 0 {
		ctrl[emit.CtrlC] = 1
	} else {
		ctrl[emit.CtrlC] = 0
	}
	if p&abi.PZero != 0 {
		ctrl[emit.CtrlZ] = 1
	} else {
		ctrl[emit.CtrlZ] = 0
	}
	if p&abi.PNegative != 0 {
		ctrl[emit.CtrlN] = 0x80
	} else {
		ctrl[emit.CtrlN] = 0
	}
	flags := ctrl[emit.CtrlFlags] &^ (abi.PInterupt | abi.PDecimal | abi.POverflow)
	ctrl[emit.CtrlFlags] = flags | (p & (abi.PInterupt | abi.PDecimal | abi.POverflow))
}

// serviceReset performs the 6502 reset sequence: registers to the
// documented power-on convention (U=1, B=1 in P; see DESIGN.md's
// supervisor notes on reset), the same way internal/interp.CPU.Reset
// sets it, so both sides of a cross-check agree,
// PC loaded from the reset vector. Unlike IRQ/NMI/BRK nothing is pushed:
// real hardware decrements S by three without writing through to a
// write-protected ROM stack, which is indistinguishable from "nothing
// pushed" for any guest code that doesn't inspect the stack immediately
// after reset.
func (s *Supervisor) serviceReset() uint16 {
	ctrl := s.arena.Ctrl()
	ctrl[emit.CtrlA] = 0
	ctrl[emit.CtrlX] = 0
	ctrl[emit.CtrlY] = 0
	ctrl[emit.CtrlS] = 0
	ctrl[emit.CtrlC] = 0
	ctrl[emit.CtrlZ] = 0
	ctrl[emit.CtrlN] = 0
	ctrl[emit.CtrlFlags] = abi.PBreak | abi.PUnused
	return s.mem.ResetVector()
}

// serviceVector implements the shared shape of IRQ and NMI service: push
// PCH/PCL/P (with B clear, the documented way RTI tells a hardware
// interrupt apart from a BRK instruction), set I, and load PC from the
// reason's vector.
func (s *Supervisor) serviceVector(reason abi.ExitReason, pc uint16) uint16 {
	ctrl := s.arena.Ctrl()
	s.push(ctrl, byte(pc>>8))
	s.push(ctrl, byte(pc))
	p := (packP(ctrl) &^ abi.PBreak) | abi.PUnused
	s.push(ctrl, p)
	ctrl[emit.CtrlFlags] |= 1 << abi.FlagBitInterupt

	if reason == abi.ExitNMI {
		return s.mem.NMIVector()
	}
	return s.mem.IRQVector()
}

// serviceBRK handles the ExitBRK trap: BRK is a two-byte instruction (the
// byte after the opcode is a padding/signature byte real monitors use to
// tell BRKs apart), so the pushed return address is pc+2, and B is set in
// the pushed P so RTI can distinguish this from a hardware interrupt.
func (s *Supervisor) serviceBRK(desc trap.Descriptor) uint16 {
	ctrl := s.arena.Ctrl()
	ret := desc.PC + 2
	s.push(ctrl, byte(ret>>8))
	s.push(ctrl, byte(ret))
	s.push(ctrl, packP(ctrl)|abi.PBreak|abi.PUnused)
	ctrl[emit.CtrlFlags] |= 1 << abi.FlagBitInterupt
	return s.mem.IRQVector()
}

// serviceRTI pops P/PCL/PCH and restores the control block, the Go-side
// continuation of the ExitRequested trap RTI emits (see
// internal/emit/opcodes.go's opRTI case).
func (s *Supervisor) serviceRTI() uint16 {
	ctrl := s.arena.Ctrl()
	p := s.pop(ctrl)
	lo := uint16(s.pop(ctrl))
	hi := uint16(s.pop(ctrl))
	unpackP(ctrl, p)
	return hi<<8 | lo
}
