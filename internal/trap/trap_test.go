package trap

import (
	"testing"

	"github.com/pagefault-systems/sixjit/internal/abi"
)

func TestFromPacked(t *testing.T) {
	packed := abi.PackExit(abi.ExitIoAccess, 0xFE40)
	aux := uint32(0x00010002)
	d := FromPacked(packed, aux)

	if d.Reason != abi.ExitIoAccess {
		t.Errorf("Reason = %v, want %v", d.Reason, abi.ExitIoAccess)
	}
	if d.PC != 0xFE40 {
		t.Errorf("PC = $%04X, want $FE40", d.PC)
	}
	if d.Aux != aux {
		t.Errorf("Aux = %#x, want %#x", d.Aux, aux)
	}
}

func TestEmitErrorMessages(t *testing.T) {
	e := &EmitError{Kind: StrideOverflow, PC: 0x1234, Msg: "too long"}
	if got := e.Error(); got == "" {
		t.Error("EmitError.Error() returned empty string")
	}

	u := &UnsupportedOpcodeError{Opcode: 0xFF, PC: 0x0200}
	if got := u.Error(); got == "" {
		t.Error("UnsupportedOpcodeError.Error() returned empty string")
	}

	g := &GuardPageFaultError{FaultAddr: 0xdeadbeef}
	if got := g.Error(); got == "" {
		t.Error("GuardPageFaultError.Error() returned empty string")
	}
}
