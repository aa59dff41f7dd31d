package peripheral

import "github.com/pagefault-systems/sixjit/internal/xlog"

// The 16 register offsets of a 6522 VIA, in the standard order the real
// chip (and original_source/via.c's via_read/via_write switch) exposes
// them at Base+0..Base+15.
const (
	regORB = iota
	regORA
	regDDRB
	regDDRA
	regT1CL
	regT1CH
	regT1LL
	regT1LH
	regT2CL
	regT2CH
	regSR
	regACR
	regPCR
	regIFR
	regIER
	regORAnh
)

// ViaStub tracks the register file of a 6522 VIA, named and laid out
// exactly as original_source/via.c's via_struct, without its two
// programmable timers -- timer behaviour is explicitly out of scope
// (SPEC_FULL.md's Non-goals), the register file is not. It exists so
// tests (and a future real timer implementation) can drive IRQ/NMI
// behaviour through IFR/IER without a full VIA.
type ViaStub struct {
	Base uint16 // guest address ViaStub's register 0 (ORB) is mapped at

	ORB, ORA   byte
	DDRB, DDRA byte
	T1CL, T1CH byte
	T1LL, T1LH byte
	T2CL, T2CH byte
	T2LL       byte // T2 has no high-byte latch register on real hardware
	SR         byte
	ACR, PCR   byte
	IFR, IER   byte

	Log *xlog.Logger
}

// NewViaStub returns a ViaStub whose 16 registers are mapped starting at
// base.
func NewViaStub(base uint16, log *xlog.Logger) *ViaStub {
	return &ViaStub{Base: base, Log: log}
}

func (v *ViaStub) reg(addr uint16) int {
	return int((addr - v.Base) & 0x0F)
}

// ReadIO mirrors via_read's register switch (original_source/via.c),
// minus the port-pin and timer-counter side effects original_source
// models with a real bbc_struct: ORB/ORA read back exactly what was
// written, masked by their data-direction registers, and IER's top bit
// always reads as set per the real chip's behaviour.
func (v *ViaStub) ReadIO(addr uint16) byte {
	switch v.reg(addr) {
	case regORB:
		return v.ORB & v.DDRB
	case regORA, regORAnh:
		return v.ORA & v.DDRA
	case regDDRB:
		return v.DDRB
	case regDDRA:
		return v.DDRA
	case regT1CL:
		v.clearInterrupt(flagTimer1)
		return v.T1CL
	case regT1CH:
		return v.T1CH
	case regT1LL:
		return v.T1LL
	case regT1LH:
		return v.T1LH
	case regT2CL:
		v.clearInterrupt(flagTimer2)
		return v.T2CL
	case regT2CH:
		return v.T2CH
	case regSR:
		return v.SR
	case regACR:
		return v.ACR
	case regPCR:
		return v.PCR
	case regIFR:
		return v.IFR
	case regIER:
		return v.IER | 0x80
	default:
		if v.Log != nil {
			v.Log.Warnf("via: unhandled read at $%04X", addr)
		}
		return 0xFF
	}
}

// WriteIO mirrors via_write's register switch. IFR writes clear the bits
// set in val (a 1 bit acknowledges that flag); IER writes set or clear
// bits depending on bit 7 of val, the real chip's convention.
func (v *ViaStub) WriteIO(addr uint16, val byte) {
	switch v.reg(addr) {
	case regORB:
		v.ORB = val
	case regORA, regORAnh:
		v.ORA = val
	case regDDRB:
		v.DDRB = val
	case regDDRA:
		v.DDRA = val
	case regT1CL, regT1LL:
		v.T1LL = val
	case regT1CH:
		v.T1LH = val
		v.T1CH = val
		v.T1CL = v.T1LL
		v.clearInterrupt(flagTimer1)
	case regT1LH:
		v.T1LH = val
	case regT2CL:
		v.T2LL = val
	case regT2CH:
		v.T2CH = val
		v.T2CL = v.T2LL
		v.clearInterrupt(flagTimer2)
	case regSR:
		v.SR = val
	case regACR:
		v.ACR = val
	case regPCR:
		v.PCR = val
	case regIFR:
		v.IFR &^= val & 0x7F
	case regIER:
		if val&0x80 != 0 {
			v.IER |= val & 0x7F
		} else {
			v.IER &^= val & 0x7F
		}
	default:
		if v.Log != nil {
			v.Log.Warnf("via: unhandled write at $%04X = $%02X", addr, val)
		}
	}
	v.updateInterrupt()
}

// Interrupt flag bits within IFR/IER, named as via.c's k_int_* constants.
const (
	flagCA2    = 1 << 0
	flagCA1    = 1 << 1
	flagSR     = 1 << 2
	flagCB2    = 1 << 3
	flagCB1    = 1 << 4
	flagTimer2 = 1 << 5
	flagTimer1 = 1 << 6
)

func (v *ViaStub) clearInterrupt(bit byte) {
	v.IFR &^= bit
	v.updateInterrupt()
}

// SetInterrupt raises an interrupt flag bit directly, the hook tests use
// to manufacture IRQ conditions without a real timer.
func (v *ViaStub) SetInterrupt(bit byte) {
	v.IFR |= bit
	v.updateInterrupt()
}

// updateInterrupt mirrors via_update_interrupt: IFR bit 7 is the logical
// OR of every enabled, pending flag, and is what the supervisor should
// poll to decide whether this VIA is asserting IRQ.
func (v *ViaStub) updateInterrupt() {
	if v.IER&v.IFR&0x7F != 0 {
		v.IFR |= 0x80
	} else {
		v.IFR &^= 0x80
	}
}

// IRQAsserted reports whether this VIA currently wants an interrupt
// serviced, the condition the supervisor checks between instructions.
func (v *ViaStub) IRQAsserted() bool {
	return v.IFR&0x80 != 0
}
