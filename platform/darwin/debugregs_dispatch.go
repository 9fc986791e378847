//go:build darwin

package darwin

import (
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/platform/darwin/debugregs"
)

// DebugRegisters returns the architecture-appropriate hardware slot
// programmer. d itself satisfies debugregs.RegisterAccessor via
// ReadRegisters/WriteRegisters.
func (d *Debuggee) DebugRegisters() platform.DebugRegisterProgrammer {
	if d.arch.IsArm64() {
		return debugregs.NewARM64(d)
	}
	return debugregs.NewX86_64(d)
}
