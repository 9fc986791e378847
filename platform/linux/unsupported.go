// Package linux is a placeholder Debuggee so this module builds and
// links on non-Darwin hosts without cgo. A ptrace-based backend belongs
// here but is out of scope for this implementation.
package linux

import (
	"context"

	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// Debuggee is a platform.Debuggee whose every method fails with
// platform.ErrUnsupportedPlatform.
type Debuggee struct{}

// New returns a stub Debuggee.
func New() *Debuggee { return &Debuggee{} }

func (*Debuggee) Launch(context.Context, platform.LaunchOptions) (platform.LaunchResult, error) {
	return platform.LaunchResult{}, platform.ErrUnsupportedPlatform
}
func (*Debuggee) Attach(types.ProcessId) error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) Detach() error { return nil }
func (*Debuggee) Architecture() types.Architecture {
	return types.UnknownArch("linux-unsupported")
}
func (*Debuggee) Threads() ([]types.ThreadId, error) { return nil, platform.ErrUnsupportedPlatform }
func (*Debuggee) ReleaseThread(types.ThreadId) error { return nil }
func (*Debuggee) SuspendTask() error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) ResumeTask() error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) SuspendThread(types.ThreadId) error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) ResumeThread(types.ThreadId) error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) ReadRegisters(types.ThreadId, platform.RegisterFlavor) ([]byte, error) {
	return nil, platform.ErrUnsupportedPlatform
}
func (*Debuggee) WriteRegisters(types.ThreadId, platform.RegisterFlavor, []byte) error {
	return platform.ErrUnsupportedPlatform
}
func (*Debuggee) ReadMemory(types.Address, []byte) (int, error) {
	return 0, platform.ErrUnsupportedPlatform
}
func (*Debuggee) WriteMemory(types.Address, []byte) error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) Regions() ([]platform.RegionInfo, error) { return nil, platform.ErrUnsupportedPlatform }
func (*Debuggee) Protect(types.Address, uint64, types.Permissions) error {
	return platform.ErrUnsupportedPlatform
}
func (*Debuggee) InstallExceptionHandling() error { return platform.ErrUnsupportedPlatform }
func (*Debuggee) ReceiveException(context.Context) (platform.ExceptionMessage, error) {
	return platform.ExceptionMessage{}, platform.ErrUnsupportedPlatform
}
func (*Debuggee) ReplyException(platform.ExceptionMessage, bool) error {
	return platform.ErrUnsupportedPlatform
}
func (*Debuggee) DebugRegisters() platform.DebugRegisterProgrammer { return nil }
