package guards

import (
	"testing"

	"github.com/ferros-go/ferros/types"
)

type fakeThreadSuspender struct {
	suspended map[types.ThreadId]bool
}

func newFakeThreadSuspender() *fakeThreadSuspender {
	return &fakeThreadSuspender{suspended: make(map[types.ThreadId]bool)}
}

func (f *fakeThreadSuspender) SuspendThread(t types.ThreadId) error {
	f.suspended[t] = true
	return nil
}

func (f *fakeThreadSuspender) ResumeThread(t types.ThreadId) error {
	f.suspended[t] = false
	return nil
}

func TestThreadSuspendGuardReleaseResumes(t *testing.T) {
	src := newFakeThreadSuspender()
	g, err := NewThreadSuspendGuard(src, 5)
	if err != nil {
		t.Fatalf("NewThreadSuspendGuard: %v", err)
	}
	if !src.suspended[5] {
		t.Fatalf("expected thread suspended on construction")
	}
	g.Release()
	if src.suspended[5] {
		t.Fatalf("expected thread resumed on release")
	}
}

func TestThreadSuspendGuardEarlyResumeMarksInert(t *testing.T) {
	src := newFakeThreadSuspender()
	g, err := NewThreadSuspendGuard(src, 5)
	if err != nil {
		t.Fatalf("NewThreadSuspendGuard: %v", err)
	}
	if err := g.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	src.suspended[5] = true // simulate something else re-suspending it
	g.Release()
	if !src.suspended[5] {
		t.Fatalf("expected Release to be a no-op after explicit Resume")
	}
}

type fakeBreakpointToggler struct {
	infos map[types.BreakpointId]types.BreakpointInfo
}

func newFakeBreakpointToggler() *fakeBreakpointToggler {
	return &fakeBreakpointToggler{infos: make(map[types.BreakpointId]types.BreakpointInfo)}
}

func (f *fakeBreakpointToggler) Info(id types.BreakpointId) (types.BreakpointInfo, bool) {
	info, ok := f.infos[id]
	return info, ok
}

func (f *fakeBreakpointToggler) Enable(id types.BreakpointId) error {
	info := f.infos[id]
	info.Enabled = true
	f.infos[id] = info
	return nil
}

func (f *fakeBreakpointToggler) Disable(id types.BreakpointId) error {
	info := f.infos[id]
	info.Enabled = false
	f.infos[id] = info
	return nil
}

func TestBreakpointRestoreGuardReenablesWhenPreviouslyEnabled(t *testing.T) {
	bp := newFakeBreakpointToggler()
	bp.infos[1] = types.BreakpointInfo{Id: 1, Enabled: true}

	g, err := NewBreakpointRestoreGuard(bp, 1)
	if err != nil {
		t.Fatalf("NewBreakpointRestoreGuard: %v", err)
	}
	if bp.infos[1].Enabled {
		t.Fatalf("expected breakpoint disabled during the guard's scope")
	}
	g.Release()
	if !bp.infos[1].Enabled {
		t.Fatalf("expected breakpoint re-enabled on release")
	}
}

func TestBreakpointRestoreGuardLeavesDisabledBreakpointDisabled(t *testing.T) {
	bp := newFakeBreakpointToggler()
	bp.infos[1] = types.BreakpointInfo{Id: 1, Enabled: false}

	g, err := NewBreakpointRestoreGuard(bp, 1)
	if err != nil {
		t.Fatalf("NewBreakpointRestoreGuard: %v", err)
	}
	g.Release()
	if bp.infos[1].Enabled {
		t.Fatalf("expected a breakpoint that started disabled to remain disabled")
	}
}

func TestBreakpointRestoreGuardUnknownIdFails(t *testing.T) {
	bp := newFakeBreakpointToggler()
	if _, err := NewBreakpointRestoreGuard(bp, 999); err == nil {
		t.Fatalf("expected an unknown breakpoint id to fail")
	}
}
