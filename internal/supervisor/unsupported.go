package supervisor

import (
	"github.com/pagefault-systems/sixjit/internal/trap"
)

// serviceUnsupported handles the ExitUnsupportedOpcode trap: a slot that
// was never given real semantics (internal/emit/table.go's opIllegal
// entries, or a nodecimal build's SED) falls back to a single software
// step through internal/interp before resuming translated execution,
// rather than failing the whole run over one opcode a real ROM might
// execute on a code path it never actually reaches.
//
// A genuinely undocumented opcode this tree assigns no semantics to at
// all -- internal/interp.Step has the same opIllegal boundary as
// internal/emit's table, by construction -- panics out of Step, which is
// converted here into a fatal trap.UnsupportedOpcodeError.
func (s *Supervisor) serviceUnsupported(desc trap.Descriptor) (next uint16, err error) {
	c := s.opInterpreter(desc.PC)

	defer func() {
		if recover() != nil {
			err = &trap.UnsupportedOpcodeError{Opcode: byte(desc.Aux), PC: desc.PC}
			next = 0
		}
	}()

	c.Step()
	s.writeBackInterpreter(c)
	return c.PC, nil
}
