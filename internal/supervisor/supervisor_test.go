package supervisor

import (
	"testing"

	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/emit"
	"github.com/pagefault-systems/sixjit/internal/memory"
	"github.com/pagefault-systems/sixjit/internal/peripheral"
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// fakeArena implements arenaAPI over a plain byte slice, so supervisor
// logic can be exercised without a real mmap'd arena or amd64 assembly.
type fakeArena struct {
	ctrl []byte
}

func newFakeArena() *fakeArena {
	return &fakeArena{ctrl: make([]byte, 32)}
}

func (f *fakeArena) Enter(g uint16) trap.Descriptor  { return trap.Descriptor{} }
func (f *fakeArena) Resume(g uint16) trap.Descriptor { return trap.Descriptor{} }
func (f *fakeArena) Ctrl() []byte                    { return f.ctrl }

// fakeTranslator implements translatorAPI, always reporting everything
// already translated so ensureTranslated is a no-op in tests that don't
// care about it.
type fakeTranslator struct {
	translated map[uint16]bool
}

func (f *fakeTranslator) TranslateRange(g0 uint16, n int) error {
	if f.translated == nil {
		f.translated = make(map[uint16]bool)
	}
	for i := 0; i < n; i++ {
		f.translated[g0+uint16(i)] = true
	}
	return nil
}

func (f *fakeTranslator) Translated(g uint16) bool { return f.translated[g] }

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeArena, *memory.Space) {
	t.Helper()
	mem := memory.New()
	fa := newFakeArena()
	s := &Supervisor{
		mem:         mem,
		arena:       fa,
		tr:          &fakeTranslator{},
		io:          &peripheral.NullPeripheral{},
		SliceBudget: 4000,
	}
	mem.SetIOHooks(s.io.WriteIO, s.io.ReadIO)
	return s, fa, mem
}

func TestServiceResetMatchesInterpConvention(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	mem.Write8(memory.ResetVectorLo, 0x00)
	mem.Write8(memory.ResetVectorHi, 0xC0)
	fa.ctrl[emit.CtrlA] = 0xFF

	pc := s.serviceReset()

	if pc != 0xC000 {
		t.Errorf("serviceReset PC = $%04X, want $C000", pc)
	}
	if fa.ctrl[emit.CtrlA] != 0 {
		t.Errorf("serviceReset should zero A, got %#x", fa.ctrl[emit.CtrlA])
	}
	if fa.ctrl[emit.CtrlFlags] != abi.PBreak|abi.PUnused {
		t.Errorf("serviceReset CtrlFlags = %#x, want break|unused", fa.ctrl[emit.CtrlFlags])
	}
}

func TestPackUnpackPRoundTrip(t *testing.T) {
	ctrl := make([]byte, 32)
	for _, p := range []byte{0, abi.PCarry, abi.PZero, abi.PNegative, abi.PInterupt | abi.PDecimal | abi.POverflow, 0xFF &^ abi.PBreak} {
		unpackP(ctrl, p|abi.PUnused)
		got := packP(ctrl)
		want := p | abi.PUnused
		if got != want {
			t.Errorf("packP(unpackP(%#x)) = %#x, want %#x", p, got, want)
		}
	}
}

func TestPushPopStackOrder(t *testing.T) {
	s, fa, _ := newTestSupervisor(t)
	fa.ctrl[emit.CtrlS] = 0xFF

	s.push(fa.ctrl, 0x12)
	s.push(fa.ctrl, 0x34)
	if fa.ctrl[emit.CtrlS] != 0xFD {
		t.Errorf("S after two pushes = %#x, want $FD", fa.ctrl[emit.CtrlS])
	}
	if got := s.pop(fa.ctrl); got != 0x34 {
		t.Errorf("first pop = %#x, want $34 (LIFO)", got)
	}
	if got := s.pop(fa.ctrl); got != 0x12 {
		t.Errorf("second pop = %#x, want $12", got)
	}
	if fa.ctrl[emit.CtrlS] != 0xFF {
		t.Errorf("S after balanced push/pop = %#x, want $FF", fa.ctrl[emit.CtrlS])
	}
}

func TestServiceBRKThenRTIRoundTrip(t *testing.T) {
	s, fa, _ := newTestSupervisor(t)
	fa.ctrl[emit.CtrlS] = 0xFF
	fa.ctrl[emit.CtrlC] = 1

	next := s.serviceBRK(trap.Descriptor{PC: 0x0200})
	if next != s.mem.IRQVector() {
		t.Errorf("serviceBRK should resume at the IRQ vector, got $%04X", next)
	}
	if fa.ctrl[emit.CtrlFlags]&(1<<abi.FlagBitInterupt) == 0 {
		t.Error("serviceBRK should set the I flag")
	}

	// RTI should recover the pushed PC exactly as BRK+2 pushed it.
	ret := s.serviceRTI()
	if ret != 0x0202 {
		t.Errorf("serviceRTI return PC = $%04X, want $0202 (BRK+2)", ret)
	}
	if fa.ctrl[emit.CtrlC] == 0 {
		t.Error("serviceRTI should have restored carry from the pushed P")
	}
	if fa.ctrl[emit.CtrlS] != 0xFF {
		t.Errorf("stack should be balanced after BRK+RTI, S = %#x, want $FF", fa.ctrl[emit.CtrlS])
	}
}

func TestServiceIOStoreAndLoad(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	via := &peripheral.ViaStub{Base: 0xFE40}
	s.io = via
	mem.SetIOHooks(s.io.WriteIO, s.io.ReadIO)

	mem.Write8(0x0300, 0xEA) // instruction at the store's PC so instrLen resolves
	fa.ctrl[emit.CtrlA] = 0x55
	aux := emit.PackIOAux(0xFE40+1, emit.IORegA, true) // ORA offset
	next := s.serviceIO(trap.Descriptor{PC: 0x0300, Aux: aux})
	if next != 0x0301 {
		t.Errorf("serviceIO store resume PC = $%04X, want $0301", next)
	}

	loadAux := emit.PackIOAux(0xFE40+13, emit.IORegX, false) // IFR offset, reads back 0
	next = s.serviceIO(trap.Descriptor{PC: 0x0300, Aux: loadAux})
	if fa.ctrl[emit.CtrlZ] == 0 {
		t.Error("loading a zero value should set the Z shadow")
	}
	if next != 0x0301 {
		t.Errorf("serviceIO load resume PC = $%04X, want $0301", next)
	}
}

func TestServiceDecimalHelperADC(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	mem.Write8(0x0400, 0x69) // ADC #$46
	mem.Write8(0x0401, 0x46)
	fa.ctrl[emit.CtrlA] = 0x58
	fa.ctrl[emit.CtrlC] = 0

	next := s.serviceDecimalHelper(trap.Descriptor{PC: 0x0400})
	if next != 0x0402 {
		t.Errorf("resume PC = $%04X, want $0402", next)
	}
	if fa.ctrl[emit.CtrlA] != 0x04 {
		t.Errorf("A = %#x, want $04 (BCD 58+46=104)", fa.ctrl[emit.CtrlA])
	}
	if fa.ctrl[emit.CtrlC] == 0 {
		t.Error("carry should be set for a BCD result >= 100")
	}
}

func TestServiceUnsupportedFallsBackToInterp(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	mem.Write8(0x0500, 0xA9) // LDA #$7F, a perfectly supported opcode
	mem.Write8(0x0501, 0x7F)
	fa.ctrl[emit.CtrlS] = 0xFF

	next, err := s.serviceUnsupported(trap.Descriptor{PC: 0x0500})
	if err != nil {
		t.Fatalf("serviceUnsupported: %v", err)
	}
	if next != 0x0502 {
		t.Errorf("resume PC = $%04X, want $0502", next)
	}
	if fa.ctrl[emit.CtrlA] != 0x7F {
		t.Errorf("A after fallback step = %#x, want $7F", fa.ctrl[emit.CtrlA])
	}
}

func TestServiceUnsupportedGenuinelyIllegalOpcodeErrors(t *testing.T) {
	s, _, mem := newTestSupervisor(t)
	mem.Write8(0x0600, 0xAB) // LAX immediate, unimplemented in both emit and interp

	_, err := s.serviceUnsupported(trap.Descriptor{PC: 0x0600, Aux: 0xAB})
	if err == nil {
		t.Fatal("expected an UnsupportedOpcodeError for a genuinely illegal opcode")
	}
	if _, ok := err.(*trap.UnsupportedOpcodeError); !ok {
		t.Errorf("error type = %T, want *trap.UnsupportedOpcodeError", err)
	}
}

func TestCheckInterruptsNMITakesPriorityAndIsEdgeTriggered(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	mem.Write8(memory.NMIVectorLo, 0x00)
	mem.Write8(memory.NMIVectorHi, 0xD0)
	fa.ctrl[emit.CtrlS] = 0xFF
	s.RequestNMI()

	next := s.checkInterrupts(0x0200)
	if next != 0xD000 {
		t.Errorf("checkInterrupts should jump to NMI vector, got $%04X", next)
	}
	// NMI is edge triggered: a second call with nothing re-requested must
	// not service it again.
	next = s.checkInterrupts(0x0300)
	if next != 0x0300 {
		t.Errorf("NMI should not re-fire without RequestNMI, resume PC = $%04X", next)
	}
}

// fakeIRQPeripheral satisfies both peripheral.Peripheral and irqSource.
type fakeIRQPeripheral struct {
	asserted bool
}

func (f *fakeIRQPeripheral) ReadIO(addr uint16) byte    { return 0xFF }
func (f *fakeIRQPeripheral) WriteIO(addr uint16, v byte) {}
func (f *fakeIRQPeripheral) IRQAsserted() bool          { return f.asserted }

func TestCheckInterruptsIRQRespectsIFlag(t *testing.T) {
	s, fa, mem := newTestSupervisor(t)
	mem.Write8(memory.IRQVectorLo, 0x00)
	mem.Write8(memory.IRQVectorHi, 0xE0)
	fa.ctrl[emit.CtrlS] = 0xFF
	io := &fakeIRQPeripheral{asserted: true}
	s.io = io

	fa.ctrl[emit.CtrlFlags] |= 1 << abi.FlagBitInterupt
	if next := s.checkInterrupts(0x0400); next != 0x0400 {
		t.Errorf("IRQ should not service while I is set, resume PC = $%04X", next)
	}

	fa.ctrl[emit.CtrlFlags] &^= 1 << abi.FlagBitInterupt
	if next := s.checkInterrupts(0x0400); next != 0xE000 {
		t.Errorf("IRQ should service once I is clear, resume PC = $%04X, want $E000", next)
	}
}

func TestHandleDispatchesInvalidationAndCycleBudget(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	next, err := s.handle(trap.Descriptor{Reason: abi.ExitInvalidation, Aux: 0x1234})
	if err != nil || next != 0x1234 {
		t.Errorf("handle(ExitInvalidation) = (%#x, %v), want (0x1234, nil)", next, err)
	}

	next, err = s.handle(trap.Descriptor{Reason: abi.ExitCycleBudget, PC: 0x5678})
	if err != nil || next != 0x5678 {
		t.Errorf("handle(ExitCycleBudget) = (%#x, %v), want (0x5678, nil)", next, err)
	}
}

func TestHandleUnknownReasonErrors(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	if _, err := s.handle(trap.Descriptor{Reason: abi.ExitReason(250)}); err == nil {
		t.Error("handle should error on an unknown exit reason")
	}
}

func TestHandleIRQFromTranslatedCodeIsDefensiveError(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	if _, err := s.handle(trap.Descriptor{Reason: abi.ExitIRQ}); err == nil {
		t.Error("handle should never see ExitIRQ from translated code")
	}
}
