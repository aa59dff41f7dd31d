// Package interp is a minimal tree-walking 6502 interpreter over the same
// memory.Space the JIT reads and writes. It exists for two reasons: the
// UnsupportedOpcode single-step fallback (§7 of the distilled spec) and
// as a cross-check oracle in tests, executing the same opcode/operands a
// translated slot just ran so the two can be compared.
//
// It is deliberately not optimised and decodes every opcode from the raw
// byte independently of internal/emit's table: sharing a decode table
// would let one mistake in that table bias both the JIT and the oracle
// checking it the same way. It also does not share the register ABI --
// guest state lives in ordinary struct fields, not host registers.
package interp

import "github.com/pagefault-systems/sixjit/internal/memory"

// Packed status register bit masks, the same layout as internal/abi's (the
// 6502's actual P byte), duplicated here rather than imported so this
// package has zero dependency on the translator side of the tree.
const (
	flagCarry    = 1 << 0
	flagZero     = 1 << 1
	flagInterupt = 1 << 2
	flagDecimal  = 1 << 3
	flagBreak    = 1 << 4
	flagUnused   = 1 << 5
	flagOverflow = 1 << 6
	flagNegative = 1 << 7
)

// CPU holds the full 6502 architectural state plus a reference to the
// guest address space it steps through.
type CPU struct {
	A, X, Y, S byte
	PC         uint16
	P          byte // packed status register

	Mem *memory.Space

	// Cycles accumulates every Step's cost, for cycle-accuracy checks
	// when this package is used as an oracle.
	Cycles uint64
}

// New returns a CPU over mem, with P initialised to the documented
// power-on convention (U=1, B=1) -- see DESIGN.md's supervisor notes on
// reset; both the JIT supervisor and this interpreter use the same
// initial value so cross-checks starting from reset agree.
func New(mem *memory.Space) *CPU {
	return &CPU{Mem: mem, P: flagUnused | flagBreak}
}

// Reset loads PC from the reset vector and sets the documented power-on
// register state (A=X=Y=0, S=0).
func (c *CPU) Reset() {
	c.A, c.X, c.Y, c.S = 0, 0, 0, 0
	c.P = flagUnused | flagBreak
	c.PC = c.Mem.ResetVector()
}

func (c *CPU) getFlag(bit byte) bool { return c.P&bit != 0 }

func (c *CPU) setFlag(bit byte, v bool) {
	if v {
		c.P |= bit
	} else {
		c.P &^= bit
	}
}

func (c *CPU) setZN(v byte) {
	c.setFlag(flagZero, v == 0)
	c.setFlag(flagNegative, v&0x80 != 0)
}

func (c *CPU) push(v byte) {
	c.Mem.Write8(0x0100|uint16(c.S), v)
	c.S--
}

func (c *CPU) pop() byte {
	c.S++
	return c.Mem.Read8(0x0100 | uint16(c.S))
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.Mem.Read8(addr))
	hi := uint16(c.Mem.Read8(addr + 1))
	return lo | hi<<8
}

// read16PageWrap reproduces the 6502's indirect-JMP page-wrap bug: if the
// low byte of the pointer is 0xFF, the high byte comes from the start of
// the same page, not the next one.
func (c *CPU) read16PageWrap(ptr uint16) uint16 {
	lo := uint16(c.Mem.Read8(ptr))
	hiAddr := ptr + 1
	if ptr&0xFF == 0xFF {
		hiAddr = ptr & 0xFF00
	}
	hi := uint16(c.Mem.Read8(hiAddr))
	return lo | hi<<8
}

// Irq services a maskable interrupt if the I flag is clear, pushing PC
// and P (with B clear, distinguishing it from BRK) and jumping to the IRQ
// vector. Returns whether the interrupt was actually taken.
func (c *CPU) Irq() bool {
	if c.getFlag(flagInterupt) {
		return false
	}
	c.push(byte(c.PC >> 8))
	c.push(byte(c.PC))
	c.push((c.P &^ flagBreak) | flagUnused)
	c.setFlag(flagInterupt, true)
	c.PC = c.Mem.IRQVector()
	c.Cycles += 7
	return true
}

// Nmi services a non-maskable interrupt; unlike Irq it cannot be masked.
func (c *CPU) Nmi() {
	c.push(byte(c.PC >> 8))
	c.push(byte(c.PC))
	c.push((c.P &^ flagBreak) | flagUnused)
	c.setFlag(flagInterupt, true)
	c.PC = c.Mem.NMIVector()
	c.Cycles += 7
}
