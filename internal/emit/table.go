package emit

import "github.com/pagefault-systems/sixjit/internal/abi"

// Mnemonic groups opcodes by the machine-code shape their emitter needs,
// not strictly by 6502 mnemonic (the six ALU-to-A ops are one group,
// dispatched on a sub-selector, as are the transfers, branches and flag
// ops).
type Mnemonic int

const (
	opIllegal Mnemonic = iota
	opLoadA
	opLoadX
	opLoadY
	opStoreA
	opStoreX
	opStoreY
	opALU // ORA/AND/EOR/ADC/SBC/CMP, sub-selected by OpInfo.ALU
	opCPX
	opCPY
	opBIT
	opASL
	opLSR
	opROL
	opROR
	opINC
	opDEC
	opINX
	opINY
	opDEX
	opDEY
	opTransfer // TAX/TAY/TXA/TYA/TSX/TXS, sub-selected by OpInfo.Transfer
	opBranch   // sub-selected by OpInfo.Branch
	opJMP
	opJMPIndirect
	opJSR
	opRTS
	opRTI
	opBRK
	opPHA
	opPHP
	opPLA
	opPLP
	opSetFlag   // sub-selected by OpInfo.FlagBit
	opClearFlag // sub-selected by OpInfo.FlagBit
	opNOP
)

// OpInfo describes one of the 256 possible opcode bytes.
type OpInfo struct {
	Mnemonic  Mnemonic
	Mode      Mode
	Len       byte // instruction length in bytes, including the opcode
	Cycles    byte // base cycle count, before any page-cross/branch extra
	PageCross bool // an indexed addressing mode that charges +1 on a page cross

	ALU      byte // valid when Mnemonic == opALU: aluORA..aluCMP
	Transfer byte // valid when Mnemonic == opTransfer
	Branch   branchFlag
	FlagBit  byte // valid for opSetFlag/opClearFlag
}

// Transfer sub-selectors.
const (
	xferTAX = iota
	xferTAY
	xferTXA
	xferTYA
	xferTSX
	xferTXS
)

// Table is indexed by opcode byte. Entries left at the zero value
// (opIllegal) include both genuinely undefined opcodes and the small set
// of documented-but-unimplemented undocumented opcodes (LAX, SAX, DCP,
// ISC, SLO, RLA, SRE, RRA and friends): all of them fall through the
// same unsupported-opcode trap path in the translator, which is
// indistinguishable at the ABI level from a byte nobody ever assigned
// meaning to.
var Table [256]OpInfo

func init() {
	set := func(op byte, info OpInfo) { Table[op] = info }

	// ORA
	set(0x09, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluORA})
	set(0x05, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluORA})
	set(0x15, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluORA})
	set(0x0D, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluORA})
	set(0x1D, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluORA})
	set(0x19, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluORA})
	set(0x01, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluORA})
	set(0x11, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluORA})

	// AND
	set(0x29, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluAND})
	set(0x25, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluAND})
	set(0x35, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluAND})
	set(0x2D, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluAND})
	set(0x3D, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluAND})
	set(0x39, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluAND})
	set(0x21, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluAND})
	set(0x31, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluAND})

	// EOR
	set(0x49, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluEOR})
	set(0x45, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluEOR})
	set(0x55, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluEOR})
	set(0x4D, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluEOR})
	set(0x5D, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluEOR})
	set(0x59, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluEOR})
	set(0x41, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluEOR})
	set(0x51, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluEOR})

	// ADC
	set(0x69, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluADC})
	set(0x65, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluADC})
	set(0x75, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluADC})
	set(0x6D, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluADC})
	set(0x7D, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluADC})
	set(0x79, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluADC})
	set(0x61, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluADC})
	set(0x71, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluADC})

	// SBC
	set(0xE9, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluSBC})
	set(0xEB, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluSBC}) // undocumented SBC#
	set(0xE5, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluSBC})
	set(0xF5, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluSBC})
	set(0xED, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluSBC})
	set(0xFD, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluSBC})
	set(0xF9, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluSBC})
	set(0xE1, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluSBC})
	set(0xF1, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluSBC})

	// CMP
	set(0xC9, OpInfo{Mnemonic: opALU, Mode: ModeImmediate, Len: 2, Cycles: 2, ALU: aluCMP})
	set(0xC5, OpInfo{Mnemonic: opALU, Mode: ModeZeroPage, Len: 2, Cycles: 3, ALU: aluCMP})
	set(0xD5, OpInfo{Mnemonic: opALU, Mode: ModeZeroPageX, Len: 2, Cycles: 4, ALU: aluCMP})
	set(0xCD, OpInfo{Mnemonic: opALU, Mode: ModeAbsolute, Len: 3, Cycles: 4, ALU: aluCMP})
	set(0xDD, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true, ALU: aluCMP})
	set(0xD9, OpInfo{Mnemonic: opALU, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true, ALU: aluCMP})
	set(0xC1, OpInfo{Mnemonic: opALU, Mode: ModeIndirectX, Len: 2, Cycles: 6, ALU: aluCMP})
	set(0xD1, OpInfo{Mnemonic: opALU, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true, ALU: aluCMP})

	// CPX / CPY
	set(0xE0, OpInfo{Mnemonic: opCPX, Mode: ModeImmediate, Len: 2, Cycles: 2})
	set(0xE4, OpInfo{Mnemonic: opCPX, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0xEC, OpInfo{Mnemonic: opCPX, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0xC0, OpInfo{Mnemonic: opCPY, Mode: ModeImmediate, Len: 2, Cycles: 2})
	set(0xC4, OpInfo{Mnemonic: opCPY, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0xCC, OpInfo{Mnemonic: opCPY, Mode: ModeAbsolute, Len: 3, Cycles: 4})

	// LDA
	set(0xA9, OpInfo{Mnemonic: opLoadA, Mode: ModeImmediate, Len: 2, Cycles: 2})
	set(0xA5, OpInfo{Mnemonic: opLoadA, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0xB5, OpInfo{Mnemonic: opLoadA, Mode: ModeZeroPageX, Len: 2, Cycles: 4})
	set(0xAD, OpInfo{Mnemonic: opLoadA, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0xBD, OpInfo{Mnemonic: opLoadA, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true})
	set(0xB9, OpInfo{Mnemonic: opLoadA, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true})
	set(0xA1, OpInfo{Mnemonic: opLoadA, Mode: ModeIndirectX, Len: 2, Cycles: 6})
	set(0xB1, OpInfo{Mnemonic: opLoadA, Mode: ModeIndirectY, Len: 2, Cycles: 5, PageCross: true})

	// LDX
	set(0xA2, OpInfo{Mnemonic: opLoadX, Mode: ModeImmediate, Len: 2, Cycles: 2})
	set(0xA6, OpInfo{Mnemonic: opLoadX, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0xB6, OpInfo{Mnemonic: opLoadX, Mode: ModeZeroPageY, Len: 2, Cycles: 4})
	set(0xAE, OpInfo{Mnemonic: opLoadX, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0xBE, OpInfo{Mnemonic: opLoadX, Mode: ModeAbsoluteY, Len: 3, Cycles: 4, PageCross: true})

	// LDY
	set(0xA0, OpInfo{Mnemonic: opLoadY, Mode: ModeImmediate, Len: 2, Cycles: 2})
	set(0xA4, OpInfo{Mnemonic: opLoadY, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0xB4, OpInfo{Mnemonic: opLoadY, Mode: ModeZeroPageX, Len: 2, Cycles: 4})
	set(0xAC, OpInfo{Mnemonic: opLoadY, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0xBC, OpInfo{Mnemonic: opLoadY, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true})

	// STA
	set(0x85, OpInfo{Mnemonic: opStoreA, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0x95, OpInfo{Mnemonic: opStoreA, Mode: ModeZeroPageX, Len: 2, Cycles: 4})
	set(0x8D, OpInfo{Mnemonic: opStoreA, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0x9D, OpInfo{Mnemonic: opStoreA, Mode: ModeAbsoluteX, Len: 3, Cycles: 5})
	set(0x99, OpInfo{Mnemonic: opStoreA, Mode: ModeAbsoluteY, Len: 3, Cycles: 5})
	set(0x81, OpInfo{Mnemonic: opStoreA, Mode: ModeIndirectX, Len: 2, Cycles: 6})
	set(0x91, OpInfo{Mnemonic: opStoreA, Mode: ModeIndirectY, Len: 2, Cycles: 6})

	// STX / STY
	set(0x86, OpInfo{Mnemonic: opStoreX, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0x96, OpInfo{Mnemonic: opStoreX, Mode: ModeZeroPageY, Len: 2, Cycles: 4})
	set(0x8E, OpInfo{Mnemonic: opStoreX, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	set(0x84, OpInfo{Mnemonic: opStoreY, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0x94, OpInfo{Mnemonic: opStoreY, Mode: ModeZeroPageX, Len: 2, Cycles: 4})
	set(0x8C, OpInfo{Mnemonic: opStoreY, Mode: ModeAbsolute, Len: 3, Cycles: 4})

	// BIT
	set(0x24, OpInfo{Mnemonic: opBIT, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	set(0x2C, OpInfo{Mnemonic: opBIT, Mode: ModeAbsolute, Len: 3, Cycles: 4})

	// ASL/LSR/ROL/ROR, accumulator and memory forms
	shiftGroup := func(mnem Mnemonic, accOp, zpOp, zpxOp, absOp, absxOp byte) {
		set(accOp, OpInfo{Mnemonic: mnem, Mode: ModeAccumulator, Len: 1, Cycles: 2})
		set(zpOp, OpInfo{Mnemonic: mnem, Mode: ModeZeroPage, Len: 2, Cycles: 5})
		set(zpxOp, OpInfo{Mnemonic: mnem, Mode: ModeZeroPageX, Len: 2, Cycles: 6})
		set(absOp, OpInfo{Mnemonic: mnem, Mode: ModeAbsolute, Len: 3, Cycles: 6})
		set(absxOp, OpInfo{Mnemonic: mnem, Mode: ModeAbsoluteX, Len: 3, Cycles: 7})
	}
	shiftGroup(opASL, 0x0A, 0x06, 0x16, 0x0E, 0x1E)
	shiftGroup(opLSR, 0x4A, 0x46, 0x56, 0x4E, 0x5E)
	shiftGroup(opROL, 0x2A, 0x26, 0x36, 0x2E, 0x3E)
	shiftGroup(opROR, 0x6A, 0x66, 0x76, 0x6E, 0x7E)

	// INC/DEC (memory)
	incdecGroup := func(mnem Mnemonic, zpOp, zpxOp, absOp, absxOp byte) {
		set(zpOp, OpInfo{Mnemonic: mnem, Mode: ModeZeroPage, Len: 2, Cycles: 5})
		set(zpxOp, OpInfo{Mnemonic: mnem, Mode: ModeZeroPageX, Len: 2, Cycles: 6})
		set(absOp, OpInfo{Mnemonic: mnem, Mode: ModeAbsolute, Len: 3, Cycles: 6})
		set(absxOp, OpInfo{Mnemonic: mnem, Mode: ModeAbsoluteX, Len: 3, Cycles: 7})
	}
	incdecGroup(opINC, 0xE6, 0xF6, 0xEE, 0xFE)
	incdecGroup(opDEC, 0xC6, 0xD6, 0xCE, 0xDE)

	set(0xE8, OpInfo{Mnemonic: opINX, Mode: ModeImplied, Len: 1, Cycles: 2})
	set(0xC8, OpInfo{Mnemonic: opINY, Mode: ModeImplied, Len: 1, Cycles: 2})
	set(0xCA, OpInfo{Mnemonic: opDEX, Mode: ModeImplied, Len: 1, Cycles: 2})
	set(0x88, OpInfo{Mnemonic: opDEY, Mode: ModeImplied, Len: 1, Cycles: 2})

	set(0xAA, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTAX})
	set(0xA8, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTAY})
	set(0x8A, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTXA})
	set(0x98, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTYA})
	set(0xBA, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTSX})
	set(0x9A, OpInfo{Mnemonic: opTransfer, Mode: ModeImplied, Len: 1, Cycles: 2, Transfer: xferTXS})

	branch := func(op byte, flag branchFlag) {
		set(op, OpInfo{Mnemonic: opBranch, Mode: ModeRelative, Len: 2, Cycles: 2, Branch: flag})
	}
	branch(0x90, BranchOnCarryClear)
	branch(0xB0, BranchOnCarrySet)
	branch(0xF0, BranchOnZeroSet)
	branch(0xD0, BranchOnZeroClear)
	branch(0x30, BranchOnNegativeSet)
	branch(0x10, BranchOnNegativeClear)
	branch(0x50, BranchOnOverflowClear)
	branch(0x70, BranchOnOverflowSet)

	set(0x4C, OpInfo{Mnemonic: opJMP, Mode: ModeAbsolute, Len: 3, Cycles: 3})
	set(0x6C, OpInfo{Mnemonic: opJMPIndirect, Mode: ModeIndirect, Len: 3, Cycles: 5})
	set(0x20, OpInfo{Mnemonic: opJSR, Mode: ModeAbsolute, Len: 3, Cycles: 6})
	set(0x60, OpInfo{Mnemonic: opRTS, Mode: ModeImplied, Len: 1, Cycles: 6})
	set(0x40, OpInfo{Mnemonic: opRTI, Mode: ModeImplied, Len: 1, Cycles: 6})
	set(0x00, OpInfo{Mnemonic: opBRK, Mode: ModeImplied, Len: 1, Cycles: 7})

	set(0x48, OpInfo{Mnemonic: opPHA, Mode: ModeImplied, Len: 1, Cycles: 3})
	set(0x08, OpInfo{Mnemonic: opPHP, Mode: ModeImplied, Len: 1, Cycles: 3})
	set(0x68, OpInfo{Mnemonic: opPLA, Mode: ModeImplied, Len: 1, Cycles: 4})
	set(0x28, OpInfo{Mnemonic: opPLP, Mode: ModeImplied, Len: 1, Cycles: 4})

	setFlag := func(op byte, bit byte) {
		set(op, OpInfo{Mnemonic: opSetFlag, Mode: ModeImplied, Len: 1, Cycles: 2, FlagBit: bit})
	}
	clearFlag := func(op byte, bit byte) {
		set(op, OpInfo{Mnemonic: opClearFlag, Mode: ModeImplied, Len: 1, Cycles: 2, FlagBit: bit})
	}
	setFlag(0x38, abi.FlagBitCarry)
	clearFlag(0x18, abi.FlagBitCarry)
	setFlag(0x78, abi.FlagBitInterupt)
	clearFlag(0x58, abi.FlagBitInterupt)
	setFlag(0xF8, abi.FlagBitDecimal)
	clearFlag(0xD8, abi.FlagBitDecimal)
	clearFlag(0xB8, abi.FlagBitOverflow) // CLV; SEV does not exist on the 6502

	for _, op := range []byte{0xEA, 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeImplied, Len: 1, Cycles: 2})
	}
	// multi-byte documented-undocumented NOPs, kept as NOPs of the right
	// length/cycle count so cycle-accuracy tests covering them still pass.
	for _, op := range []byte{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeImmediate, Len: 2, Cycles: 2})
	}
	for _, op := range []byte{0x04, 0x44, 0x64} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeZeroPage, Len: 2, Cycles: 3})
	}
	for _, op := range []byte{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeZeroPageX, Len: 2, Cycles: 4})
	}
	for _, op := range []byte{0x0C} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeAbsolute, Len: 3, Cycles: 4})
	}
	for _, op := range []byte{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		set(op, OpInfo{Mnemonic: opNOP, Mode: ModeAbsoluteX, Len: 3, Cycles: 4, PageCross: true})
	}
}
