package memory

import "testing"

func romImage(fill byte) []byte {
	img := make([]byte, ROMEnd-ROMStart+1+0x400)
	for i := range img {
		img[i] = fill
	}
	return img
}

func TestNewOverRejectsWrongSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewOver with a short buffer should panic")
		}
	}()
	NewOver(make([]byte, 10))
}

func TestReadWriteRAM(t *testing.T) {
	s := New()
	s.Write8(0x0200, 0x42)
	if got := s.Read8(0x0200); got != 0x42 {
		t.Errorf("Read8($0200) = %#x, want $42", got)
	}
}

func TestRead16LittleEndian(t *testing.T) {
	s := New()
	s.Write8(0x0300, 0x34)
	s.Write8(0x0301, 0x12)
	if got := s.Read16(0x0300); got != 0x1234 {
		t.Errorf("Read16($0300) = $%04X, want $1234", got)
	}
}

func TestVectors(t *testing.T) {
	s := New()
	s.Write8(ResetVectorLo, 0x00)
	s.Write8(ResetVectorHi, 0xC0)
	s.Write8(NMIVectorLo, 0x10)
	s.Write8(NMIVectorHi, 0xC0)
	s.Write8(IRQVectorLo, 0x20)
	s.Write8(IRQVectorHi, 0xC0)

	if got := s.ResetVector(); got != 0xC000 {
		t.Errorf("ResetVector() = $%04X, want $C000", got)
	}
	if got := s.NMIVector(); got != 0xC010 {
		t.Errorf("NMIVector() = $%04X, want $C010", got)
	}
	if got := s.IRQVector(); got != 0xC020 {
		t.Errorf("IRQVector() = $%04X, want $C020", got)
	}
}

func TestIOStripHooks(t *testing.T) {
	s := New()
	var wroteAddr uint16
	var wroteVal byte
	s.SetIOHooks(
		func(addr uint16, v byte) { wroteAddr, wroteVal = addr, v },
		func(addr uint16) byte { return 0x99 },
	)

	s.Write8(0xFE40, 0x55)
	if wroteAddr != 0xFE40 || wroteVal != 0x55 {
		t.Errorf("onIOWrite got (%#x, %#x), want ($FE40, $55)", wroteAddr, wroteVal)
	}
	if got := s.Read8(0xFE40); got != 0x99 {
		t.Errorf("Read8($FE40) = %#x, want $99 (from onIORead)", got)
	}
	// I/O writes must never touch backing RAM.
	s.SetIOHooks(nil, nil)
	if got := s.Read8(0xFE40); got != 0 {
		t.Errorf("I/O strip write leaked into RAM: Read8($FE40) = %#x, want 0", got)
	}
}

func TestIsIO(t *testing.T) {
	s := New()
	if !s.IsIO(IOStart) || !s.IsIO(IOEnd) {
		t.Error("IsIO should be true across the whole IOStart..IOEnd strip")
	}
	if s.IsIO(IOStart - 1) {
		t.Error("IsIO should be false just below IOStart")
	}
}

func TestLoadROMRejectsWrongSize(t *testing.T) {
	s := New()
	if err := s.LoadROM(make([]byte, 10)); err == nil {
		t.Error("LoadROM with a short image should error")
	}
}

func TestLoadROMMarksCodePages(t *testing.T) {
	s := New()
	if err := s.LoadROM(romImage(0xEA)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if got := s.Read8(ROMStart); got != 0xEA {
		t.Errorf("Read8(ROMStart) = %#x, want $EA", got)
	}
	if !s.MayContainCode(ROMStart) {
		t.Error("ROM page should be marked may-contain-code")
	}
}

func TestSidewaysBankSwitchingAndWriteProtection(t *testing.T) {
	s := New()
	romBank := make([]byte, BankSize)
	for i := range romBank {
		romBank[i] = 0x11
	}
	ramBank := make([]byte, BankSize)
	for i := range ramBank {
		ramBank[i] = 0x22
	}

	if err := s.LoadSidewaysBank(0, romBank, false); err != nil {
		t.Fatalf("LoadSidewaysBank(0): %v", err)
	}
	if err := s.LoadSidewaysBank(1, ramBank, true); err != nil {
		t.Fatalf("LoadSidewaysBank(1): %v", err)
	}

	s.SelectBank(0)
	if got := s.Read8(BankStart); got != 0x11 {
		t.Errorf("after SelectBank(0), Read8(BankStart) = %#x, want $11", got)
	}
	s.Write8(BankStart, 0x99)
	if got := s.Read8(BankStart); got != 0x11 {
		t.Errorf("write to ROM sideways bank should be ignored, got %#x", got)
	}

	s.SelectBank(1)
	if got := s.Read8(BankStart); got != 0x22 {
		t.Errorf("after SelectBank(1), Read8(BankStart) = %#x, want $22", got)
	}
	s.Write8(BankStart, 0x77)
	if got := s.Read8(BankStart); got != 0x77 {
		t.Errorf("write to RAM sideways bank should stick, got %#x", got)
	}
	if s.ActiveBank() != 1 {
		t.Errorf("ActiveBank() = %d, want 1", s.ActiveBank())
	}
}

func TestCodeWriteHookFiresOnlyForCodePages(t *testing.T) {
	s := New()
	var invalidated []uint16
	s.SetCodeWriteHook(func(addr uint16) { invalidated = append(invalidated, addr) })

	s.Write8(0x0200, 0x01)
	if len(invalidated) != 1 || invalidated[0] != 0x0200 {
		t.Fatalf("expected one invalidation at $0200, got %v", invalidated)
	}

	s.SetCodeHint(0x0300, false)
	s.Write8(0x0300, 0x01)
	if len(invalidated) != 1 {
		t.Errorf("pure-data page should not invalidate, got %v", invalidated)
	}
}
