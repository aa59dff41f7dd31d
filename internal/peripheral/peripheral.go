// Package peripheral defines the interface the supervisor dispatches
// I/O-strip traps to, plus two concrete collaborators: a NullPeripheral
// that always reads open bus, and a ViaStub that models a 6522 VIA's
// register file (without its timers) closely enough to drive IRQ/NMI
// behaviour in tests.
package peripheral

import "github.com/pagefault-systems/sixjit/internal/xlog"

// Peripheral is what the supervisor calls on every IoAccess trap. Video,
// sound, keyboard, and disc are out of scope (see SPEC_FULL.md's
// Non-goals); this interface is the seam a real implementation of any of
// them would plug into.
type Peripheral interface {
	ReadIO(addr uint16) byte
	WriteIO(addr uint16, value byte)
}

// NullPeripheral answers every access with the open-bus value real BBC
// hardware floats to when nothing is mapped at an address, and logs at
// debug level so a trace shows which addresses a ROM actually probes.
type NullPeripheral struct {
	Log *xlog.Logger
}

func (p *NullPeripheral) ReadIO(addr uint16) byte {
	if p.Log != nil {
		p.Log.Debugf("null peripheral read $%04X -> $FF (open bus)", addr)
	}
	return 0xFF
}

func (p *NullPeripheral) WriteIO(addr uint16, value byte) {
	if p.Log != nil {
		p.Log.Debugf("null peripheral write $%04X = $%02X ignored", addr, value)
	}
}
