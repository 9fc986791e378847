// Package threads implements component I: a cache of thread handles for
// one attached debuggee, with refresh/active-thread tracking.
package threads

import (
	"fmt"
	"sync"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// Source is the subset of platform.Debuggee the thread manager needs.
type Source interface {
	Threads() ([]types.ThreadId, error)
	ReleaseThread(types.ThreadId) error
	SuspendThread(types.ThreadId) error
	ResumeThread(types.ThreadId) error
}

// Manager caches the live thread handle set and tracks which one is
// "active" (the target of register/step operations that default to a
// single thread).
type Manager struct {
	mu        sync.Mutex
	src       Source
	cached    []types.ThreadId
	active    types.ThreadId
	hasActive bool
}

func NewManager(src Source) *Manager {
	return &Manager{src: src}
}

// Threads returns the most recently cached thread handle set. Call
// Refresh first to pick up threads created/destroyed since the last
// refresh.
func (m *Manager) Threads() ([]types.ThreadId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		if err := m.refreshLocked(); err != nil {
			return nil, err
		}
	}
	out := make([]types.ThreadId, len(m.cached))
	copy(out, m.cached)
	return out, nil
}

// Refresh re-queries the OS for the current thread set, per the
// release-then-requery-then-promote algorithm: every previously cached
// handle is released back to the OS, a fresh list is obtained, and if
// the active handle is no longer present the first thread in the new
// list is promoted to active.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked()
}

func (m *Manager) refreshLocked() error {
	for _, t := range m.cached {
		if err := m.src.ReleaseThread(t); err != nil {
			return err
		}
	}

	fresh, err := m.src.Threads()
	if err != nil {
		m.cached = nil
		m.hasActive = false
		return err
	}
	m.cached = fresh

	if m.hasActive {
		stillPresent := false
		for _, t := range fresh {
			if t == m.active {
				stillPresent = true
				break
			}
		}
		if stillPresent {
			return nil
		}
	}

	if len(fresh) == 0 {
		m.hasActive = false
		return nil
	}
	m.active = fresh[0]
	m.hasActive = true
	return nil
}

// ActiveThread returns the handle of the currently active thread, or
// fails with InvalidArgument if there is none (no threads attached).
func (m *Manager) ActiveThread() (types.ThreadId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasActive {
		return 0, ferrerr.InvalidArgument("no active thread")
	}
	return m.active, nil
}

// SetActiveThread validates thread is a member of the cached set before
// making it active.
func (m *Manager) SetActiveThread(thread types.ThreadId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isMemberLocked(thread) {
		return ferrerr.InvalidArgument(fmt.Sprintf("thread %d is not part of this debuggee", thread))
	}
	m.active = thread
	m.hasActive = true
	return nil
}

func (m *Manager) isMemberLocked(thread types.ThreadId) bool {
	for _, t := range m.cached {
		if t == thread {
			return true
		}
	}
	return false
}

// SuspendThread stops a single thread after validating membership.
func (m *Manager) SuspendThread(thread types.ThreadId) error {
	m.mu.Lock()
	member := m.isMemberLocked(thread)
	m.mu.Unlock()
	if !member {
		return ferrerr.InvalidArgument(fmt.Sprintf("thread %d is not part of this debuggee", thread))
	}
	return m.src.SuspendThread(thread)
}

// ResumeThread continues a single thread after validating membership.
func (m *Manager) ResumeThread(thread types.ThreadId) error {
	m.mu.Lock()
	member := m.isMemberLocked(thread)
	m.mu.Unlock()
	if !member {
		return ferrerr.InvalidArgument(fmt.Sprintf("thread %d is not part of this debuggee", thread))
	}
	return m.src.ResumeThread(thread)
}

// Reset drops the cached handle set without releasing it, for use when
// the underlying Debuggee has already been detached/torn down.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	m.hasActive = false
}
