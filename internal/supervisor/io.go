package supervisor

import (
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// serviceIO handles the ExitIoAccess trap: the addressed register's
// value for a store (already spilled into the control block by
// emitSpillState) is handed to the peripheral, or for a load the
// peripheral's answer replaces the register and its Z/N flags are
// refreshed, exactly as the equivalent translated instruction would have
// done had the address not been in the I/O strip.
func (s *Supervisor) serviceIO(desc trap.Descriptor) uint16 {
	addr, reg, isStore := emit.UnpackIOAux(desc.Aux)
	ctrl := s.arena.Ctrl()
	off := ctrlRegOffset(reg)

	if isStore {
		s.io.WriteIO(addr, ctrl[off])
	} else {
		v := s.io.ReadIO(addr)
		ctrl[off] = v
		ctrl[emit.CtrlZ] = boolByte(v == 0)
		if v&0x80 != 0 {
			ctrl[emit.CtrlN] = 0x80
		} else {
			ctrl[emit.CtrlN] = 0
		}
	}
	return desc.PC + s.instrLen(desc.PC)
}

func ctrlRegOffset(reg byte) byte {
	switch reg {
	case emit.IORegX:
		return emit.CtrlX
	case emit.IORegY:
		return emit.CtrlY
	default:
		return emit.CtrlA
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
