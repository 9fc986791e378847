// Package debugregs implements component F of the engine: per-thread
// hardware breakpoint/watchpoint slot allocation on top of the CPU's
// native debug register file, exposed through platform.DebugRegisterProgrammer.
//
// The allocator never talks to the kernel directly; it round-trips the
// raw register buffer a platform.Debuggee already knows how to
// read/write for platform.FlavorDebug, so the same slot-bookkeeping
// logic is shared between architectures and the darwin package stays a
// thin transport.
package debugregs

import (
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// RegisterAccessor is the narrow slice of platform.Debuggee this package
// needs. Any type with this method set (in particular *darwin.Debuggee)
// satisfies it without an explicit declaration.
type RegisterAccessor interface {
	ReadRegisters(thread types.ThreadId, flavor platform.RegisterFlavor) ([]byte, error)
	WriteRegisters(thread types.ThreadId, flavor platform.RegisterFlavor, data []byte) error
}
