// Package platform defines the OS FFI surface as a Go interface, so the
// rest of the engine (memory, registers, breakpoints, threads, the
// exception loop, the façade) is written once against Debuggee and is
// never aware of Mach ports, ptrace, or any other platform-specific
// handle type.
package platform

import (
	"context"
	"time"

	"github.com/ferros-go/ferros/types"
)

// RegisterFlavor names which OS-native register set a read/write call
// targets: general purpose, vector/floating point, or debug.
type RegisterFlavor int

const (
	FlavorGeneral RegisterFlavor = iota
	FlavorVector
	FlavorDebug
)

// RegionInfo is the OS-native view of one virtual memory region before
// it has been assigned a sequential id and folded into a
// types.MemoryRegion by the memory subsystem.
type RegionInfo struct {
	Start             types.Address
	End               types.Address
	CurrentProtection types.Permissions
	MaxProtection     types.Permissions
	Tag               string // OS region tag, e.g. a Mach VM_MEMORY_* label
	IsSubmap          bool
}

// ExceptionKind classifies a kernel-delivered fault, independent of the
// platform's native exception/signal numbering.
type ExceptionKind int

const (
	ExceptionBreakpoint ExceptionKind = iota
	ExceptionBadAccess
	ExceptionBadInstruction
	ExceptionArithmetic
	ExceptionSoftware
	ExceptionUnknown
)

// ExceptionMessage is one kernel exception delivery, already demuxed to
// the faulting thread and decoded to an ExceptionKind.
type ExceptionMessage struct {
	Thread types.ThreadId
	Kind   ExceptionKind
	Codes  []int64 // raw platform-specific exception codes, for diagnostics
}

// LaunchOptions configures Launch.
type LaunchOptions struct {
	Program       string
	Args          []string
	CaptureOutput bool
}

// LaunchResult is returned by a successful Launch.
type LaunchResult struct {
	Pid    types.ProcessId
	Stdout CapturedStream // non-nil only when CaptureOutput was set
	Stderr CapturedStream
}

// CapturedStream exposes a captured pipe/pty endpoint of a launched
// child to the client, decoupled from *os.File so a test double can
// supply an in-memory implementation.
type CapturedStream interface {
	Read(p []byte) (int, error)
	Close() error
}

// Debuggee is the capability set the rest of the engine requires from
// the OS. One Debuggee instance owns exactly one attached/launched
// target's kernel handles; it is not safe to share a Debuggee between
// two logical debugging sessions.
type Debuggee interface {
	// Launch spawns a process suspended and returns its identity and,
	// when requested, its captured stdout/stderr.
	Launch(ctx context.Context, opts LaunchOptions) (LaunchResult, error)

	// Attach acquires a privileged task handle for an existing process.
	Attach(pid types.ProcessId) error

	// Detach releases the task handle and any thread handles obtained
	// from it. Safe to call more than once.
	Detach() error

	// Architecture reports the debuggee's instruction-set architecture.
	// Valid only after Launch/Attach has succeeded.
	Architecture() types.Architecture

	// Threads enumerates the current kernel thread handles for the
	// task. Callers must release a previous enumeration's handles
	// (ReleaseThread) before calling Threads again.
	Threads() ([]types.ThreadId, error)

	// ReleaseThread returns a thread handle to the OS. Must be called
	// exactly once per handle obtained from Threads before the next
	// enumeration.
	ReleaseThread(types.ThreadId) error

	// SuspendTask / ResumeTask stop and continue every thread in the
	// task as a unit.
	SuspendTask() error
	ResumeTask() error

	// SuspendThread / ResumeThread stop and continue a single thread.
	SuspendThread(types.ThreadId) error
	ResumeThread(types.ThreadId) error

	// ReadRegisters / WriteRegisters access one named flavor of a
	// thread's register state. The byte slices are the OS-native
	// natural_t/register-struct encoding; the registers package packs
	// and unpacks them into types.Registers.
	ReadRegisters(thread types.ThreadId, flavor RegisterFlavor) ([]byte, error)
	WriteRegisters(thread types.ThreadId, flavor RegisterFlavor, data []byte) error

	// ReadMemory reads up to len(buf) bytes at addr into buf, returning
	// the number of bytes actually read (may be short).
	ReadMemory(addr types.Address, buf []byte) (int, error)

	// WriteMemory writes all of data at addr, or fails.
	WriteMemory(addr types.Address, data []byte) error

	// Regions enumerates the debuggee's virtual memory regions,
	// recursing into submaps once.
	Regions() ([]RegionInfo, error)

	// Protect changes the current protection of [addr, addr+length)
	// subject to the region's maximum protection.
	Protect(addr types.Address, length uint64, prot types.Permissions) error

	// InstallExceptionHandling registers a kernel exception port for
	// the task; ReceiveException blocks for the next message, returns
	// ctx.Err() on cancellation, or a platform error once the port has
	// gone away (task exited) — the exception loop treats any such
	// error as a port-died condition and exits cleanly.
	InstallExceptionHandling() error
	ReceiveException(ctx context.Context) (ExceptionMessage, error)
	ReplyException(msg ExceptionMessage, success bool) error

	// DebugRegisters exposes the architecture's hardware breakpoint /
	// watchpoint slot programming, scoped to one thread handle at a
	// time by the breakpoint manager.
	DebugRegisters() DebugRegisterProgrammer
}

// DebugRegisterProgrammer is the per-thread hardware slot allocator.
// Implementations are architecture-specific; the breakpoint manager
// drives this interface without caring which.
type DebugRegisterProgrammer interface {
	// ProgramBreakpoint allocates and programs an execution breakpoint
	// slot on thread for addr, returning the slot index. Returns
	// ferrerr.ResourceExhausted when all slots are in use.
	ProgramBreakpoint(thread types.ThreadId, addr types.Address) (slot int, err error)
	ClearBreakpoint(thread types.ThreadId, slot int) error

	// ProgramWatchpoint allocates and programs a watchpoint slot.
	ProgramWatchpoint(thread types.ThreadId, addr types.Address, length uint64, access types.WatchAccess) (slot int, err error)
	ClearWatchpoint(thread types.ThreadId, slot int) error
}

// defaultReceiveTimeout bounds how long ReceiveException blocks between
// checking ctx.Done(), since the underlying kernel call may not itself
// be cancellable.
const defaultReceiveTimeout = 250 * time.Millisecond

// DefaultReceiveTimeout is exported for implementations that poll the
// kernel call in a loop rather than blocking on it indefinitely.
func DefaultReceiveTimeout() time.Duration { return defaultReceiveTimeout }
