package debugger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ferros-go/ferros/events"
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

const arm64GPBufferSize = 68 * 4

type fakeDebugRegs struct{}

func (fakeDebugRegs) ProgramBreakpoint(types.ThreadId, types.Address) (int, error)   { return 0, nil }
func (fakeDebugRegs) ClearBreakpoint(types.ThreadId, int) error                      { return nil }
func (fakeDebugRegs) ProgramWatchpoint(types.ThreadId, types.Address, uint64, types.WatchAccess) (int, error) {
	return 0, nil
}
func (fakeDebugRegs) ClearWatchpoint(types.ThreadId, int) error { return nil }

type fakeDebuggee struct {
	mu         sync.Mutex
	threads    []types.ThreadId
	gpBuf      map[types.ThreadId][]byte
	exceptions chan platform.ExceptionMessage
	closed     bool
	replies    int
}

func newFakeDebuggee() *fakeDebuggee {
	return &fakeDebuggee{
		threads:    []types.ThreadId{1, 2},
		gpBuf:      map[types.ThreadId][]byte{1: make([]byte, arm64GPBufferSize), 2: make([]byte, arm64GPBufferSize)},
		exceptions: make(chan platform.ExceptionMessage, 4),
	}
}

func (f *fakeDebuggee) Launch(ctx context.Context, opts platform.LaunchOptions) (platform.LaunchResult, error) {
	return platform.LaunchResult{Pid: 100}, nil
}
func (f *fakeDebuggee) Attach(pid types.ProcessId) error { return nil }
func (f *fakeDebuggee) Detach() error                    { return nil }
func (f *fakeDebuggee) Architecture() types.Architecture { return types.ArchArm64 }

func (f *fakeDebuggee) Threads() ([]types.ThreadId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.ThreadId, len(f.threads))
	copy(out, f.threads)
	return out, nil
}
func (f *fakeDebuggee) ReleaseThread(types.ThreadId) error { return nil }
func (f *fakeDebuggee) SuspendTask() error                 { return nil }
func (f *fakeDebuggee) ResumeTask() error                  { return nil }
func (f *fakeDebuggee) SuspendThread(types.ThreadId) error { return nil }
func (f *fakeDebuggee) ResumeThread(types.ThreadId) error  { return nil }

func (f *fakeDebuggee) ReadRegisters(thread types.ThreadId, flavor platform.RegisterFlavor) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.gpBuf[thread]
	if !ok {
		return nil, ferrerr.InvalidArgument("unknown thread")
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (f *fakeDebuggee) WriteRegisters(thread types.ThreadId, flavor platform.RegisterFlavor, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gpBuf[thread] = append([]byte(nil), data...)
	return nil
}

func (f *fakeDebuggee) ReadMemory(addr types.Address, buf []byte) (int, error) { return len(buf), nil }
func (f *fakeDebuggee) WriteMemory(types.Address, []byte) error                { return nil }
func (f *fakeDebuggee) Regions() ([]platform.RegionInfo, error)                { return nil, nil }
func (f *fakeDebuggee) Protect(types.Address, uint64, types.Permissions) error { return nil }

func (f *fakeDebuggee) InstallExceptionHandling() error { return nil }

func (f *fakeDebuggee) ReceiveException(ctx context.Context) (platform.ExceptionMessage, error) {
	select {
	case msg, ok := <-f.exceptions:
		if !ok {
			return platform.ExceptionMessage{}, errors.New("exception port died")
		}
		return msg, nil
	case <-ctx.Done():
		return platform.ExceptionMessage{}, ctx.Err()
	}
}

func (f *fakeDebuggee) ReplyException(msg platform.ExceptionMessage, success bool) error {
	f.mu.Lock()
	f.replies++
	f.mu.Unlock()
	return nil
}

func (f *fakeDebuggee) DebugRegisters() platform.DebugRegisterProgrammer { return fakeDebugRegs{} }

func newTestDebugger(t *testing.T) (*Debugger, *fakeDebuggee) {
	t.Helper()
	dev := newFakeDebuggee()
	d := New(dev, Config{})
	return d, dev
}

func TestLaunchEntersAttachedStopped(t *testing.T) {
	d, _ := newTestDebugger(t)
	pid, err := d.Launch(context.Background(), platform.LaunchOptions{Program: "/bin/true"})
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	if pid != 100 {
		t.Fatalf("expected pid 100, got %d", pid)
	}
	if !d.IsAttached() || !d.IsStopped() {
		t.Fatalf("expected Attached{Stopped} after launch")
	}
}

func TestAttachEntersAttachedRunning(t *testing.T) {
	d, _ := newTestDebugger(t)
	if err := d.Attach(types.ProcessId(42)); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if !d.IsAttached() || d.IsStopped() {
		t.Fatalf("expected Attached{Running} after attach")
	}
}

func TestOperationsRequireAttached(t *testing.T) {
	d, _ := newTestDebugger(t)
	_, err := d.ReadRegisters()
	var fe *ferrerr.Error
	if !errors.As(err, &fe) || fe.Kind != ferrerr.KindNotAttached {
		t.Fatalf("expected NotAttached, got %v", err)
	}
}

func TestWriteRegistersRequiresStopped(t *testing.T) {
	d, _ := newTestDebugger(t)
	if err := d.Attach(types.ProcessId(42)); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	err := d.WriteRegisters(types.Registers{Arch: types.ArchArm64, General: make([]uint64, 31)})
	var fe *ferrerr.Error
	if !errors.As(err, &fe) || fe.Kind != ferrerr.KindNotStopped {
		t.Fatalf("expected NotStopped while running, got %v", err)
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	d, _ := newTestDebugger(t)
	if err := d.Attach(types.ProcessId(42)); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := d.Detach(); err != nil {
		t.Fatalf("first detach failed: %v", err)
	}
	if err := d.Detach(); err != nil {
		t.Fatalf("second detach failed: %v", err)
	}
	if d.IsAttached() {
		t.Fatalf("expected Detached after Detach")
	}
}

func TestExceptionLoopDeliversStoppedBeforeResumed(t *testing.T) {
	d, dev := newTestDebugger(t)
	if err := d.Attach(types.ProcessId(42)); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer d.Detach()

	sub := d.Events()
	defer sub.Close()

	dev.exceptions <- platform.ExceptionMessage{Thread: 1, Kind: platform.ExceptionBreakpoint}

	first := recv(t, sub)
	if first.Kind != types.EventTargetStopped {
		t.Fatalf("expected TargetStopped first, got %v", first)
	}
	if !d.IsStopped() {
		t.Fatalf("expected façade state Stopped after the event fired")
	}

	if err := d.ResumeFromBreak(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	second := recv(t, sub)
	if second.Kind != types.EventTargetResumed {
		t.Fatalf("expected TargetResumed second, got %v", second)
	}
	if d.IsStopped() {
		t.Fatalf("expected façade state Running after resume")
	}
}

func recv(t *testing.T, sub *events.Subscription) types.DebuggerEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return types.DebuggerEvent{}
	}
}
