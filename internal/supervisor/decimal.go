package supervisor

import (
	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// serviceDecimalHelper handles the ExitDecimalHelper trap emitDecimalGuard
// raises before an ADC/SBC runs with the guest D flag set: the guard
// fires before the binary-mode arithmetic executes, so the whole
// instruction's effect -- operand fetch included -- still has to happen
// here, via emit.DecimalADC/DecimalSBC rather than duplicating BCD
// correction a third time.
func (s *Supervisor) serviceDecimalHelper(desc trap.Descriptor) uint16 {
	ctrl := s.arena.Ctrl()
	opcode := s.mem.Read8(desc.PC)
	info := emit.Table[opcode]

	operand := s.fetchALUOperand(info, desc.PC)
	carryIn := ctrl[emit.CtrlC] != 0

	var result byte
	var carryOut, overflow, zero, negative bool
	if info.ALU == emit.ALUSub {
		result, carryOut, overflow, zero, negative = emit.DecimalSBC(ctrl[emit.CtrlA], operand, carryIn)
	} else {
		result, carryOut, overflow, zero, negative = emit.DecimalADC(ctrl[emit.CtrlA], operand, carryIn)
	}

	ctrl[emit.CtrlA] = result
	ctrl[emit.CtrlC] = boolByte(carryOut)
	ctrl[emit.CtrlZ] = boolByte(zero)
	if negative {
		ctrl[emit.CtrlN] = 0x80
	} else {
		ctrl[emit.CtrlN] = 0
	}
	if overflow {
		ctrl[emit.CtrlFlags] |= 1 << abi.FlagBitOverflow
	} else {
		ctrl[emit.CtrlFlags] &^= 1 << abi.FlagBitOverflow
	}

	return desc.PC + s.instrLen(desc.PC)
}

// fetchALUOperand re-derives the operand an ADC/SBC would have loaded,
// mirroring internal/emit's own addressing-mode arithmetic closely enough
// for the handful of modes decimal arithmetic actually appears in on real
// ROMs (immediate and the zero-page/absolute family); indexed forms read
// through the same guest memory the JIT would have.
func (s *Supervisor) fetchALUOperand(info emit.OpInfo, pc uint16) byte {
	op1 := s.mem.Read8(pc + 1)
	op2 := s.mem.Read8(pc + 2)
	ctrl := s.arena.Ctrl()

	switch info.Mode {
	case emit.ModeImmediate:
		return op1
	case emit.ModeZeroPage:
		return s.mem.Read8(uint16(op1))
	case emit.ModeZeroPageX:
		return s.mem.Read8(uint16(byte(op1 + ctrl[emit.CtrlX])))
	case emit.ModeAbsolute:
		return s.mem.Read8(uint16(op1) | uint16(op2)<<8)
	case emit.ModeAbsoluteX:
		return s.mem.Read8((uint16(op1) | uint16(op2)<<8) + uint16(ctrl[emit.CtrlX]))
	case emit.ModeAbsoluteY:
		return s.mem.Read8((uint16(op1) | uint16(op2)<<8) + uint16(ctrl[emit.CtrlY]))
	case emit.ModeIndirectX:
		ptr := uint16(byte(op1 + ctrl[emit.CtrlX]))
		lo := uint16(s.mem.Read8(ptr))
		hi := uint16(s.mem.Read8(uint16(byte(ptr + 1))))
		return s.mem.Read8(lo | hi<<8)
	case emit.ModeIndirectY:
		lo := uint16(s.mem.Read8(uint16(op1)))
		hi := uint16(s.mem.Read8(uint16(byte(op1 + 1))))
		return s.mem.Read8((lo | hi<<8) + uint16(ctrl[emit.CtrlY]))
	default:
		return 0
	}
}
