package threads

import (
	"testing"

	"github.com/ferros-go/ferros/types"
)

type fakeSource struct {
	threads   []types.ThreadId
	released  []types.ThreadId
	suspended map[types.ThreadId]bool
}

func newFakeSource(threads ...types.ThreadId) *fakeSource {
	return &fakeSource{threads: threads, suspended: make(map[types.ThreadId]bool)}
}

func (f *fakeSource) Threads() ([]types.ThreadId, error) {
	out := make([]types.ThreadId, len(f.threads))
	copy(out, f.threads)
	return out, nil
}

func (f *fakeSource) ReleaseThread(t types.ThreadId) error {
	f.released = append(f.released, t)
	return nil
}

func (f *fakeSource) SuspendThread(t types.ThreadId) error {
	f.suspended[t] = true
	return nil
}

func (f *fakeSource) ResumeThread(t types.ThreadId) error {
	f.suspended[t] = false
	return nil
}

func TestRefreshPromotesFirstThreadWhenNoneActive(t *testing.T) {
	src := newFakeSource(10, 11, 12)
	m := NewManager(src)

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	active, err := m.ActiveThread()
	if err != nil {
		t.Fatalf("ActiveThread: %v", err)
	}
	if active != 10 {
		t.Fatalf("expected first thread promoted, got %d", active)
	}
}

func TestRefreshRetainsActiveWhenStillPresent(t *testing.T) {
	src := newFakeSource(10, 11, 12)
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := m.SetActiveThread(11); err != nil {
		t.Fatalf("SetActiveThread: %v", err)
	}

	if err := m.Refresh(); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	active, err := m.ActiveThread()
	if err != nil {
		t.Fatalf("ActiveThread: %v", err)
	}
	if active != 11 {
		t.Fatalf("expected active thread retained across refresh, got %d", active)
	}
}

func TestRefreshPromotesNewThreadWhenActiveGone(t *testing.T) {
	src := newFakeSource(10, 11)
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := m.SetActiveThread(11); err != nil {
		t.Fatalf("SetActiveThread: %v", err)
	}

	src.threads = []types.ThreadId{20, 21}
	if err := m.Refresh(); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	active, err := m.ActiveThread()
	if err != nil {
		t.Fatalf("ActiveThread: %v", err)
	}
	if active != 20 {
		t.Fatalf("expected promotion to first new thread, got %d", active)
	}
}

func TestRefreshReleasesEveryPreviouslyCachedHandle(t *testing.T) {
	src := newFakeSource(10, 11)
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	src.threads = []types.ThreadId{10, 11, 12}
	if err := m.Refresh(); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if len(src.released) != 2 {
		t.Fatalf("expected 2 released handles from the first cached set, got %d", len(src.released))
	}
}

func TestActiveThreadFailsWithNoThreads(t *testing.T) {
	src := newFakeSource()
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := m.ActiveThread(); err == nil {
		t.Fatalf("expected ActiveThread to fail with no threads")
	}
}

func TestSuspendThreadRejectsNonMember(t *testing.T) {
	src := newFakeSource(10, 11)
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := m.SuspendThread(999); err == nil {
		t.Fatalf("expected SuspendThread to reject a non-member thread")
	}
	if err := m.SuspendThread(10); err != nil {
		t.Fatalf("SuspendThread on a member: %v", err)
	}
	if !src.suspended[10] {
		t.Fatalf("expected thread 10 to be suspended at the source")
	}
}
