// Package memory implements the guest address space: a flat 64 KiB buffer
// with the region layout from the system spec (RAM, sideways banking
// window, MOS ROM, memory-mapped I/O strip) plus the per-page "may
// contain code" bitmap that drives lazy invalidation.
package memory

import "fmt"

const (
	Size = 0x10000

	RAMStart  = 0x0000
	RAMEnd    = 0x7FFF
	BankStart = 0x8000
	BankEnd   = 0xBFFF
	BankSize  = 0x4000
	ROMStart  = 0xC000
	ROMEnd    = 0xFBFF
	IOStart   = 0xFC00
	IOEnd     = 0xFEFF

	ResetVectorLo = 0xFFFC
	ResetVectorHi = 0xFFFD
	NMIVectorLo   = 0xFFFA
	NMIVectorHi   = 0xFFFB
	IRQVectorLo   = 0xFFFE
	IRQVectorHi   = 0xFFFF

	PageSize  = 256
	NumPages  = Size / PageSize
	MaxBanks  = 16
)

// Bank is one sideways ROM/RAM image mapped into the 0x8000-0xBFFF window.
type Bank struct {
	Data     [BankSize]byte
	Writable bool // RAM banks accept writes and participate in invalidation
}

// Space is the guest's 64 KiB linear address space plus the bookkeeping
// the translator needs to decide when a store requires invalidation.
//
// RAM is a slice rather than a fixed array so that the JIT supervisor can
// hand in a view over the mmap'd region the translated code's memory-base
// register (RDI) also points to: Go-side stores and translated-code
// stores then observe the same bytes without a copy. internal/interp and
// tests that don't need that aliasing can use New(), which backs Space
// with an ordinary Go slice.
type Space struct {
	RAM []byte

	// codePage[p] is true when page p "may contain code" (the default)
	// and a store into it must invalidate the corresponding slot(s).
	// Pages hinted "pure data" by the machine skip that cost.
	codePage [NumPages]bool

	ioPage [NumPages]bool

	banks      [MaxBanks]*Bank
	activeBank int

	// onIOWrite/onIORead are installed by the supervisor so that stores and
	// loads within the I/O strip can be observed without the memory
	// package depending on the peripheral package.
	onIOWrite func(addr uint16, value byte)
	onIORead  func(addr uint16) byte

	// onCodeWrite is installed by the translator: called for every byte
	// Write8 stores into a may-contain-code page so that byte's slot can
	// be invalidated. Stores made by translated code write the buffer
	// directly and do not call it.
	onCodeWrite func(addr uint16)
}

// New returns a Space backed by a freshly allocated 64 KiB buffer, with
// every page hinted "may contain code" and the I/O strip flagged.
func New() *Space {
	return NewOver(make([]byte, Size))
}

// NewOver returns a Space backed by the given buffer, which must be
// exactly Size bytes. Used by the JIT supervisor to alias guest RAM onto
// the mmap'd region translated code addresses directly.
func NewOver(ram []byte) *Space {
	if len(ram) != Size {
		panic(fmt.Sprintf("memory: backing buffer must be %d bytes, got %d", Size, len(ram)))
	}
	s := &Space{RAM: ram}
	for p := range s.codePage {
		s.codePage[p] = true
	}
	for addr := IOStart; addr <= IOEnd; addr++ {
		s.ioPage[addr/PageSize] = true
	}
	return s
}

// SetCodeHint marks addr's page as "may contain code" (hint=true, the
// default) or "pure data" (hint=false). Pure-data pages never trigger
// invalidation, trading safety for throughput on guest buffers the
// machine knows are never executed.
func (s *Space) SetCodeHint(addr uint16, mayContainCode bool) {
	s.codePage[addr/PageSize] = mayContainCode
}

// SetIOHooks installs the supervisor's I/O trap callbacks.
func (s *Space) SetIOHooks(onWrite func(addr uint16, value byte), onRead func(addr uint16) byte) {
	s.onIOWrite = onWrite
	s.onIORead = onRead
}

// SetCodeWriteHook installs the translator's invalidation callback.
func (s *Space) SetCodeWriteHook(fn func(addr uint16)) {
	s.onCodeWrite = fn
}

// LoadROM copies an OS ROM image to 0xC000. It accepts a 16 KiB image
// (0xC000-0xFFFF, whose final 0x400 bytes overlap the I/O strip and the
// vector table, which the image is expected to supply) or a 15 KiB image
// (0xC000-0xFBFF only).
func (s *Space) LoadROM(image []byte) error {
	if len(image) != ROMEnd-ROMStart+1+0x400 && len(image) != ROMEnd-ROMStart+1 {
		return fmt.Errorf("memory: OS ROM must be 16 KiB, got %d bytes", len(image))
	}
	copy(s.RAM[ROMStart:], image)
	for addr := ROMStart / PageSize; addr < NumPages; addr++ {
		s.codePage[addr] = true
	}
	return nil
}

// LoadSidewaysBank installs a 16 KiB sideways ROM or RAM image into bank
// slot n (0-15).
func (s *Space) LoadSidewaysBank(n int, image []byte, writable bool) error {
	if n < 0 || n >= MaxBanks {
		return fmt.Errorf("memory: bank index %d out of range", n)
	}
	if len(image) != BankSize {
		return fmt.Errorf("memory: sideways bank must be 16 KiB, got %d bytes", len(image))
	}
	b := &Bank{Writable: writable}
	copy(b.Data[:], image)
	s.banks[n] = b
	return nil
}

// SelectBank switches the active sideways bank into the 0x8000-0xBFFF
// window, mirroring the I/O write a ROMSEL-style register receives.
func (s *Space) SelectBank(n int) {
	if n < 0 || n >= MaxBanks || s.banks[n] == nil {
		return
	}
	s.activeBank = n
	copy(s.RAM[BankStart:BankEnd+1], s.banks[n].Data[:])
	mayCode := true
	if s.banks[n].Writable {
		// RAM sideways banks are still executable; writes to them go
		// through Write8 like any other may-contain-code page.
		mayCode = true
	}
	for p := BankStart / PageSize; p <= BankEnd/PageSize; p++ {
		s.codePage[p] = mayCode
	}
}

// ActiveBank reports the currently windowed-in sideways bank.
func (s *Space) ActiveBank() int { return s.activeBank }

// IsIO reports whether addr lies in the memory-mapped I/O strip.
func (s *Space) IsIO(addr uint16) bool {
	return s.ioPage[addr/PageSize]
}

// MayContainCode reports the code hint for addr's page.
func (s *Space) MayContainCode(addr uint16) bool {
	return s.codePage[addr/PageSize]
}

// Read8 returns the byte at addr, trapping to the installed I/O handler
// when addr falls in the I/O strip.
func (s *Space) Read8(addr uint16) byte {
	if s.IsIO(addr) && s.onIORead != nil {
		return s.onIORead(addr)
	}
	return s.RAM[addr]
}

// Write8 stores value at addr. I/O-strip writes are routed to the
// installed handler instead of touching backing RAM. Writes to
// may-contain-code pages additionally invalidate the corresponding
// translation slot via the installed hook.
func (s *Space) Write8(addr uint16, value byte) {
	if s.IsIO(addr) {
		if s.onIOWrite != nil {
			s.onIOWrite(addr, value)
		}
		return
	}
	if s.banks[s.activeBank] != nil && addr >= BankStart && addr <= BankEnd &&
		!s.banks[s.activeBank].Writable {
		return // writes to a ROM sideways bank are silently ignored
	}
	s.RAM[addr] = value
	if s.onCodeWrite != nil && s.MayContainCode(addr) {
		s.onCodeWrite(addr)
	}
}

// Read16 reads a little-endian word.
func (s *Space) Read16(addr uint16) uint16 {
	lo := uint16(s.Read8(addr))
	hi := uint16(s.Read8(addr + 1))
	return lo | hi<<8
}

// ResetVector, NMIVector and IRQVector read the 6502's three vectors.
func (s *Space) ResetVector() uint16 { return s.Read16(ResetVectorLo) }
func (s *Space) NMIVector() uint16   { return s.Read16(NMIVectorLo) }
func (s *Space) IRQVector() uint16   { return s.Read16(IRQVectorLo) }
