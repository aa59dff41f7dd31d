// Package emit lays down amd64 machine code implementing 6502 semantics,
// one slot at a time, against the register ABI documented in
// internal/abi. Every exported Emit* function writes into a fixed-size
// slot buffer (internal/arena.Stride bytes) and returns trap.EmitError
// if the encoding would not fit -- a build-time configuration bug, never
// a runtime condition.
package emit

import (
	"github.com/pagefault-systems/sixjit/internal/abi"
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// CodeGen accumulates the host bytes for a single guest byte's slot.
// Unlike a whole-module code generator writing to an ELF section, a
// CodeGen's output has a fixed byte budget (Stride) and a known, final
// host address for every byte before a single instruction is emitted:
// the arena is mmap'd once and never moved, so jump targets are plain
// arithmetic on the arena base rather than fixups resolved at link time.
type CodeGen struct {
	buf      []byte  // the slot's backing bytes (len == arena.Stride)
	n        int     // write cursor
	hostBase uintptr // host address of buf[0]
	guest    uint16  // guest byte this slot translates
}

// NewCodeGen begins emission into slot, whose first byte lives at
// hostBase, translating guest byte g.
func NewCodeGen(slot []byte, hostBase uintptr, g uint16) *CodeGen {
	return &CodeGen{buf: slot, hostBase: hostBase, guest: g}
}

// Len returns the number of bytes emitted so far.
func (g *CodeGen) Len() int { return g.n }

// HostAddr returns the host address of the next byte to be written.
func (g *CodeGen) HostAddr() uintptr { return g.hostBase + uintptr(g.n) }

func (g *CodeGen) emitByte(b byte) error {
	if g.n >= len(g.buf) {
		return g.overflow()
	}
	g.buf[g.n] = b
	g.n++
	return nil
}

func (g *CodeGen) emitBytes(bs ...byte) error {
	for _, b := range bs {
		if err := g.emitByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (g *CodeGen) emitU32LE(v uint32) error {
	return g.emitBytes(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (g *CodeGen) emitU64LE(v uint64) error {
	return g.emitBytes(
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func (g *CodeGen) overflow() error {
	return &trap.EmitError{Kind: trap.StrideOverflow, PC: g.guest, Msg: "emission exceeded stride"}
}

// register field encodings for 8-bit legacy operands (no REX prefix --
// using a REX prefix with these encodings would instead select
// SPL/BPL/SIL/DIL, so nothing in this package ever mixes a REX prefix
// with register numbers 4-7).
const (
	al = 0
	cl = 1
	dl = 2
	bl = 3
	ah = 4
	ch = 5
	dh = 6
	bh = 7

	esi = 6 // SIB index field for RSI
	edi = 7 // SIB base field for RDI (also ModRM rm field for [RDI+disp32])
)

var _ = abi.RegA // abi is referenced by doc comments across this package
