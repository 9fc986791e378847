package debugger

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// ReadRegisters reads the active thread's general-purpose registers.
func (d *Debugger) ReadRegisters() (types.Registers, error) {
	if err := d.requireAttached(); err != nil {
		return types.Registers{}, err
	}
	thread, err := d.threads.ActiveThread()
	if err != nil {
		return types.Registers{}, err
	}
	return d.regs.ReadGeneral(thread)
}

// ReadRegistersFor reads a specific thread's registers.
func (d *Debugger) ReadRegistersFor(thread types.ThreadId) (types.Registers, error) {
	if err := d.requireAttached(); err != nil {
		return types.Registers{}, err
	}
	return d.regs.ReadGeneral(thread)
}

// WriteRegisters writes the active thread's registers. Requires the
// target to be stopped, per component L.
func (d *Debugger) WriteRegisters(r types.Registers) error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	thread, err := d.threads.ActiveThread()
	if err != nil {
		return err
	}
	return d.regs.WriteGeneral(thread, r)
}

// ReadMemory reads length bytes at addr from the debuggee.
func (d *Debugger) ReadMemory(addr types.Address, length int) ([]byte, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := d.mem.ReadMemory(addr, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// WriteMemory writes data at addr in the debuggee.
func (d *Debugger) WriteMemory(addr types.Address, data []byte) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.mem.WriteMemory(addr, data)
}

// MemoryRegions returns a snapshot of the debuggee's virtual memory map.
func (d *Debugger) MemoryRegions() ([]types.MemoryRegion, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	return d.mem.Regions()
}

// Threads returns the currently cached thread list, refreshing it on
// first use.
func (d *Debugger) Threads() ([]types.ThreadId, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	return d.threads.Threads()
}

// RefreshThreads re-enumerates threads, preserving the active thread if
// it is still live.
func (d *Debugger) RefreshThreads() ([]types.ThreadId, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	if err := d.threads.Refresh(); err != nil {
		return nil, err
	}
	return d.threads.Threads()
}

// SetActiveThread validates and selects the active thread.
func (d *Debugger) SetActiveThread(thread types.ThreadId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.threads.SetActiveThread(thread)
}

// Suspend stops every thread in the task, transitioning to Stopped.
func (d *Debugger) Suspend() error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	if err := d.dev.SuspendTask(); err != nil {
		return err
	}
	d.mu.Lock()
	d.stopped = true
	d.stopReason = types.Suspended()
	d.mu.Unlock()
	d.bus.Publish(types.TargetStopped(types.Suspended(), nil))
	return nil
}

// Resume continues every thread in the task. If the target is stopped
// because of a live exception, Resume forwards to ResumeFromBreak, which
// sends the pending exception's Continue command; otherwise it resumes
// the task directly (the plain suspend/resume case).
func (d *Debugger) Resume() error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	d.mu.Lock()
	pending := d.pendingThread
	d.mu.Unlock()
	if pending != nil {
		return d.ResumeFromBreak()
	}
	if err := d.dev.ResumeTask(); err != nil {
		return err
	}
	d.mu.Lock()
	d.stopped = false
	d.stopReason = types.Running()
	d.mu.Unlock()
	d.bus.Publish(types.TargetResumed())
	return nil
}

// ResumeFromBreak enqueues exactly one Continue command for the
// exception loop's current stop, per component J's liveness guarantee.
func (d *Debugger) ResumeFromBreak() error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	d.commands <- cmdContinue
	return nil
}

// SuspendThread / ResumeThread stop and continue a single thread.
func (d *Debugger) SuspendThread(thread types.ThreadId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.threads.SuspendThread(thread)
}

func (d *Debugger) ResumeThread(thread types.ThreadId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.threads.ResumeThread(thread)
}

// AddBreakpoint installs a breakpoint per component H.
func (d *Debugger) AddBreakpoint(req types.BreakpointRequest) (types.BreakpointInfo, error) {
	if err := d.requireAttached(); err != nil {
		return types.BreakpointInfo{}, err
	}
	return d.bp.Install(req)
}

func (d *Debugger) RemoveBreakpoint(id types.BreakpointId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.bp.Remove(id)
}

func (d *Debugger) EnableBreakpoint(id types.BreakpointId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.bp.Enable(id)
}

func (d *Debugger) DisableBreakpoint(id types.BreakpointId) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	return d.bp.Disable(id)
}

func (d *Debugger) ToggleBreakpoint(id types.BreakpointId) (bool, error) {
	if err := d.requireAttached(); err != nil {
		return false, err
	}
	return d.bp.Toggle(id)
}

func (d *Debugger) Breakpoints() ([]types.BreakpointInfo, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	return d.bp.List(), nil
}

func (d *Debugger) BreakpointInfo(id types.BreakpointId) (types.BreakpointInfo, error) {
	if err := d.requireAttached(); err != nil {
		return types.BreakpointInfo{}, err
	}
	info, ok := d.bp.Info(id)
	if !ok {
		return types.BreakpointInfo{}, ferrerr.BreakpointIdNotFound(uint64(id))
	}
	return info, nil
}

// LoadImage loads (or returns a cached) binary image for symbolication
// and type lookups.
func (d *Debugger) LoadImage(desc types.ImageDescriptor) error {
	if err := d.requireAttached(); err != nil {
		return err
	}
	_, err := d.symCache.LoadImage(desc)
	return err
}

// DescribeType resolves a type summary from a previously loaded image.
func (d *Debugger) DescribeType(desc types.ImageDescriptor, name string) (types.TypeSummary, error) {
	if err := d.requireAttached(); err != nil {
		return types.TypeSummary{}, err
	}
	img, err := d.symCache.LoadImage(desc)
	if err != nil {
		return types.TypeSummary{}, err
	}
	return d.symCache.DescribeType(img, name)
}

// StackTrace unwinds the active thread's call stack up to maxFrames
// (the façade's configured default when maxFrames <= 0).
func (d *Debugger) StackTrace(maxFrames int) ([]types.StackFrame, error) {
	if err := d.requireAttached(); err != nil {
		return nil, err
	}
	if maxFrames <= 0 {
		maxFrames = d.cfg.DefaultStackFrameBudget
	}
	thread, err := d.threads.ActiveThread()
	if err != nil {
		return nil, err
	}
	regs, err := d.regs.ReadGeneral(thread)
	if err != nil {
		return nil, err
	}
	return d.unwinder.Unwind(thread, regs, maxFrames), nil
}

// TakeStdout / TakeStderr return the launched child's captured output
// streams, when capture was requested before Launch.
func (d *Debugger) TakeStdout() (platform.CapturedStream, error) {
	if d.stdout == nil {
		return nil, ferrerr.InvalidArgument("stdout was not captured for this session")
	}
	return d.stdout, nil
}

func (d *Debugger) TakeStderr() (platform.CapturedStream, error) {
	if d.stderr == nil {
		return nil, ferrerr.InvalidArgument("stderr was not captured for this session")
	}
	return d.stderr, nil
}
