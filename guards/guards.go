// Package guards implements component P: RAII-style scoped operations.
// Go has no destructors, so each guard is a struct meant to be used with
// defer; best-effort cleanup failures are logged, never propagated,
// matching the engine's local-recovery policy.
package guards

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// ThreadSuspender is the subset of the thread manager a suspend guard
// needs.
type ThreadSuspender interface {
	SuspendThread(types.ThreadId) error
	ResumeThread(types.ThreadId) error
}

// ThreadSuspendGuard suspends a thread on construction and resumes it on
// Release, unless Resume was already called explicitly.
type ThreadSuspendGuard struct {
	mu      sync.Mutex
	threads ThreadSuspender
	thread  types.ThreadId
	inert   bool
	log     *logrus.Entry
}

// NewThreadSuspendGuard suspends thread, returning an error if the
// underlying suspend call fails (no guard is constructed in that case).
func NewThreadSuspendGuard(threads ThreadSuspender, thread types.ThreadId) (*ThreadSuspendGuard, error) {
	if err := threads.SuspendThread(thread); err != nil {
		return nil, err
	}
	return &ThreadSuspendGuard{
		threads: threads,
		thread:  thread,
		log:     logrus.WithField("component", "guards"),
	}, nil
}

// Resume resumes the thread early and marks the guard inert, so a later
// Release is a no-op.
func (g *ThreadSuspendGuard) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inert {
		return nil
	}
	g.inert = true
	return g.threads.ResumeThread(g.thread)
}

// Release resumes the thread if it has not already been resumed via
// Resume. Failures are logged, not returned, matching the engine's
// best-effort-destructor policy.
func (g *ThreadSuspendGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inert {
		return
	}
	g.inert = true
	if err := g.threads.ResumeThread(g.thread); err != nil {
		g.log.WithError(err).WithField("thread", g.thread).Warn("failed to resume thread on guard release")
	}
}

// BreakpointToggler is the subset of the breakpoint manager a restore
// guard needs.
type BreakpointToggler interface {
	Info(id types.BreakpointId) (types.BreakpointInfo, bool)
	Enable(id types.BreakpointId) error
	Disable(id types.BreakpointId) error
}

// BreakpointRestoreGuard disables a breakpoint for the scope of a single
// step-over and re-enables it on Release iff it was enabled beforehand.
type BreakpointRestoreGuard struct {
	mu          sync.Mutex
	breakpoints BreakpointToggler
	id          types.BreakpointId
	wasEnabled  bool
	restored    bool
	log         *logrus.Entry
}

// NewBreakpointRestoreGuard captures the breakpoint's current enabled
// state and disables it.
func NewBreakpointRestoreGuard(breakpoints BreakpointToggler, id types.BreakpointId) (*BreakpointRestoreGuard, error) {
	info, ok := breakpoints.Info(id)
	if !ok {
		return nil, ferrerr.BreakpointIdNotFound(uint64(id))
	}
	wasEnabled := info.Enabled
	if wasEnabled {
		if err := breakpoints.Disable(id); err != nil {
			return nil, err
		}
	}
	return &BreakpointRestoreGuard{
		breakpoints: breakpoints,
		id:          id,
		wasEnabled:  wasEnabled,
		log:         logrus.WithField("component", "guards"),
	}, nil
}

// Restore re-enables the breakpoint now (if it was previously enabled)
// and marks the guard inert, so a later Release is a no-op.
func (g *BreakpointRestoreGuard) Restore() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.restored {
		return nil
	}
	g.restored = true
	if !g.wasEnabled {
		return nil
	}
	return g.breakpoints.Enable(g.id)
}

// Release re-enables the breakpoint if Restore has not already run and
// it was previously enabled. Failures are logged, not returned.
func (g *BreakpointRestoreGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.restored {
		return
	}
	g.restored = true
	if !g.wasEnabled {
		return
	}
	if err := g.breakpoints.Enable(g.id); err != nil {
		g.log.WithError(err).WithField("id", g.id).Warn("failed to re-enable breakpoint on guard release")
	}
}
