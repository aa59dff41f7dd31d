package interp

import (
	"testing"

	"github.com/pagefault-systems/sixjit/internal/memory"
)

func newCPU() (*CPU, *memory.Space) {
	mem := memory.New()
	return New(mem), mem
}

func TestResetLoadsVectorAndPowerOnState(t *testing.T) {
	c, mem := newCPU()
	mem.Write8(memory.ResetVectorLo, 0x00)
	mem.Write8(memory.ResetVectorHi, 0xC0)
	c.A, c.X, c.Y, c.S = 1, 2, 3, 4

	c.Reset()

	if c.A != 0 || c.X != 0 || c.Y != 0 || c.S != 0 {
		t.Errorf("Reset should zero A/X/Y/S, got A=%d X=%d Y=%d S=%d", c.A, c.X, c.Y, c.S)
	}
	if c.PC != 0xC000 {
		t.Errorf("Reset PC = $%04X, want $C000", c.PC)
	}
	if c.P != flagUnused|flagBreak {
		t.Errorf("Reset P = %#x, want unused|break", c.P)
	}
}

func TestStepLDAImmediateSetsFlags(t *testing.T) {
	c, mem := newCPU()
	mem.Write8(0x0200, 0xA9) // LDA #$00
	mem.Write8(0x0201, 0x00)
	c.PC = 0x0200

	cycles := c.Step()

	if c.A != 0 {
		t.Errorf("A = %#x, want 0", c.A)
	}
	if !c.getFlag(flagZero) {
		t.Error("Z should be set after loading 0")
	}
	if c.getFlag(flagNegative) {
		t.Error("N should be clear after loading 0")
	}
	if c.PC != 0x0202 {
		t.Errorf("PC = $%04X, want $0202", c.PC)
	}
	if cycles != 2 {
		t.Errorf("cycles = %d, want 2", cycles)
	}
}

func TestStepLDANegativeFlag(t *testing.T) {
	c, mem := newCPU()
	mem.Write8(0x0200, 0xA9)
	mem.Write8(0x0201, 0x80)
	c.PC = 0x0200
	c.Step()
	if !c.getFlag(flagNegative) {
		t.Error("N should be set for a high-bit operand")
	}
	if c.getFlag(flagZero) {
		t.Error("Z should be clear for a nonzero operand")
	}
}

func TestStepSTAAbsolute(t *testing.T) {
	c, mem := newCPU()
	c.A = 0x42
	mem.Write8(0x0200, 0x8D) // STA $0300
	mem.Write8(0x0201, 0x00)
	mem.Write8(0x0202, 0x03)
	c.PC = 0x0200

	c.Step()

	if got := mem.Read8(0x0300); got != 0x42 {
		t.Errorf("mem[$0300] = %#x, want $42", got)
	}
}

func TestStepJSRRTSStackContents(t *testing.T) {
	c, mem := newCPU()
	c.S = 0xFF
	mem.Write8(0x0200, 0x20) // JSR $C000
	mem.Write8(0x0201, 0x00)
	mem.Write8(0x0202, 0xC0)
	mem.Write8(0xC000, 0x60) // RTS
	c.PC = 0x0200

	c.Step() // JSR
	if c.PC != 0xC000 {
		t.Fatalf("after JSR, PC = $%04X, want $C000", c.PC)
	}
	if c.S != 0xFD {
		t.Errorf("after JSR, S = %#x, want $FD (two bytes pushed)", c.S)
	}
	// JSR pushes (return-1): high byte then low byte, at $01FF and $01FE.
	if got := mem.Read8(0x01FF); got != 0x02 {
		t.Errorf("pushed PCH = %#x, want $02", got)
	}
	if got := mem.Read8(0x01FE); got != 0x02 {
		t.Errorf("pushed PCL = %#x, want $02", got)
	}

	c.Step() // RTS
	if c.PC != 0x0203 {
		t.Errorf("after RTS, PC = $%04X, want $0203", c.PC)
	}
	if c.S != 0xFF {
		t.Errorf("after RTS, S = %#x, want $FF (stack balanced)", c.S)
	}
}

func TestStepBranchDisplacementBoundaries(t *testing.T) {
	c, mem := newCPU()
	// BNE with max forward displacement (+127): lands at pc+2+127.
	mem.Write8(0x0200, 0xD0)
	mem.Write8(0x0201, 0x7F)
	c.PC = 0x0200
	c.setFlag(flagZero, false)
	c.Step()
	if want := uint16(0x0200 + 2 + 127); c.PC != want {
		t.Errorf("max-forward branch PC = $%04X, want $%04X", c.PC, want)
	}

	// BNE with max backward displacement (-128): lands at pc+2-128.
	mem.Write8(0x0300, 0xD0)
	mem.Write8(0x0301, 0x80)
	c.PC = 0x0300
	c.Step()
	if want := uint16(0x0300 + 2 - 128); c.PC != want {
		t.Errorf("max-backward branch PC = $%04X, want $%04X", c.PC, want)
	}
}

func TestStepBranchNotTakenAdvancesByTwo(t *testing.T) {
	c, mem := newCPU()
	mem.Write8(0x0200, 0xF0) // BEQ
	mem.Write8(0x0201, 0x10)
	c.PC = 0x0200
	c.setFlag(flagZero, false)
	cycles := c.Step()
	if c.PC != 0x0202 {
		t.Errorf("not-taken branch PC = $%04X, want $0202", c.PC)
	}
	if cycles != 2 {
		t.Errorf("not-taken branch cycles = %d, want 2", cycles)
	}
}

func TestStepZeroPageXWraparound(t *testing.T) {
	c, mem := newCPU()
	c.X = 0x05
	mem.Write8(0x10, 0xAA) // unrelated zero-page byte; the wrapped address is $04
	mem.Write8(0x0200, 0xB5) // LDA $FF,X -> should wrap to zero page $04 (0xFF+5=0x104 & 0xFF = 0x04)
	mem.Write8(0x0201, 0xFF)
	c.PC = 0x0200
	mem.Write8(0x04, 0x77)
	c.Step()
	if c.A != 0x77 {
		t.Errorf("A = %#x, want $77 (zero-page,X must wrap within page 0)", c.A)
	}
}

func TestStepJMPIndirectPageWrapBug(t *testing.T) {
	c, mem := newCPU()
	// Pointer at $02FF; the bug reads the high byte from $0200, not $0300.
	mem.Write8(0x02FF, 0x00)
	mem.Write8(0x0300, 0xAB) // correct (non-buggy) high byte -- must NOT be used
	mem.Write8(0x0200, 0xCD) // buggy high byte -- must be used instead

	mem.Write8(0x0400, 0x6C) // JMP ($02FF)
	mem.Write8(0x0401, 0xFF)
	mem.Write8(0x0402, 0x02)
	c.PC = 0x0400

	c.Step()
	if c.PC != 0xCD00 {
		t.Errorf("PC = $%04X, want $CD00 (page-wrap bug)", c.PC)
	}
}

func TestStepADCDecimalMode(t *testing.T) {
	c, _ := newCPU()
	c.setFlag(flagDecimal, true)
	c.setFlag(flagCarry, false)
	c.A = 0x58 // BCD 58
	c.adc(0x46) // BCD 46; 58+46 = 104 in BCD
	if c.A != 0x04 {
		t.Errorf("A = $%02X, want $04 (BCD 58+46=104, low byte)", c.A)
	}
	if !c.getFlag(flagCarry) {
		t.Error("carry should be set for a BCD result >= 100")
	}
}

func TestStepSBCDecimalMode(t *testing.T) {
	c, _ := newCPU()
	c.setFlag(flagDecimal, true)
	c.setFlag(flagCarry, true) // no borrow
	c.A = 0x42
	c.sbc(0x15) // BCD 42 - 15 = 27
	if c.A != 0x27 {
		t.Errorf("A = $%02X, want $27 (BCD 42-15=27)", c.A)
	}
}

func TestStepUnsupportedOpcodePanics(t *testing.T) {
	c, mem := newCPU()
	mem.Write8(0x0200, 0xAB) // LAX immediate, an undocumented opcode this core doesn't implement
	c.PC = 0x0200

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Step on an unhandled opcode should panic")
		}
		if _, ok := r.(unsupportedOpcode); !ok {
			t.Errorf("panic value = %T, want unsupportedOpcode", r)
		}
	}()
	c.Step()
}

func TestStepPHPSetsBreakAndUnused(t *testing.T) {
	c, mem := newCPU()
	c.S = 0xFF
	c.P = 0 // no flags set
	mem.Write8(0x0200, 0x08) // PHP
	c.PC = 0x0200
	c.Step()
	pushed := mem.Read8(0x01FF)
	if pushed&flagBreak == 0 || pushed&flagUnused == 0 {
		t.Errorf("pushed P = %#x, want break and unused bits set", pushed)
	}
}
