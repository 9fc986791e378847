// Package breakpoints implements the breakpoint store (an in-memory
// dual-indexed table) and the breakpoint manager (install/remove/
// enable/disable against the memory and debug-register subsystems).
package breakpoints

import (
	"sync"

	"github.com/ferros-go/ferros/types"
)

// payloadKind discriminates the store-private data needed to restore a
// breakpoint, which is not part of the client-visible types.BreakpointInfo.
type payloadKind int

const (
	payloadSoftware payloadKind = iota
	payloadHardware
	payloadWatchpoint
)

// payload carries whatever a given breakpoint kind needs to be removed
// or toggled later.
type payload struct {
	kind          payloadKind
	originalBytes []byte                  // software: bytes to restore
	slots         map[types.ThreadId]int  // hardware/watchpoint: per-thread slot index
}

type entry struct {
	info    types.BreakpointInfo
	payload payload
}

type addrKindKey struct {
	addr types.Address
	kind types.BreakpointKind
}

// Store is the dual-indexed breakpoint table. A single mutex protects
// it since it is shared with the exception loop.
type Store struct {
	mu         sync.Mutex
	byId       map[types.BreakpointId]*entry
	byAddrKind map[addrKindKey]types.BreakpointId
	nextId     uint64
}

// NewStore returns an empty store with its id allocator primed to 1
// (id 0 is reserved to mean "unassigned").
func NewStore() *Store {
	return &Store{
		byId:       make(map[types.BreakpointId]*entry),
		byAddrKind: make(map[addrKindKey]types.BreakpointId),
		nextId:     1,
	}
}

// allocateId returns the next id, wrapping past zero back to 1.
func (s *Store) allocateId() types.BreakpointId {
	id := s.nextId
	s.nextId++
	if s.nextId == 0 {
		s.nextId = 1
	}
	return types.BreakpointId(id)
}

// insert assigns an id to e.info if it is zero, then indexes e by id
// and by (address, kind). Must be called with s.mu held.
func (s *Store) insert(e *entry) types.BreakpointId {
	if e.info.Id == 0 {
		e.info.Id = s.allocateId()
	}
	s.byId[e.info.Id] = e
	s.byAddrKind[addrKindKey{e.info.Address, e.info.Kind}] = e.info.Id
	return e.info.Id
}

// idForKind looks up an existing breakpoint at (addr, kind).
func (s *Store) idForKind(addr types.Address, kind types.BreakpointKind) (types.BreakpointId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byAddrKind[addrKindKey{addr, kind}]
	return id, ok
}

// get returns the live entry for id; callers holding the returned
// pointer must still go through the store's exported mutators for
// anything that touches the indices.
func (s *Store) get(id types.BreakpointId) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byId[id]
	return e, ok
}

// remove purges both indices for id, returning the removed entry.
func (s *Store) remove(id types.BreakpointId) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byId[id]
	if !ok {
		return nil, false
	}
	delete(s.byId, id)
	delete(s.byAddrKind, addrKindKey{e.info.Address, e.info.Kind})
	return e, true
}

// List returns a snapshot of every breakpoint's client-visible info.
func (s *Store) List() []types.BreakpointInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.BreakpointInfo, 0, len(s.byId))
	for _, e := range s.byId {
		out = append(out, e.info)
	}
	return out
}

// Info returns one breakpoint's client-visible info.
func (s *Store) Info(id types.BreakpointId) (types.BreakpointInfo, bool) {
	e, ok := s.get(id)
	if !ok {
		return types.BreakpointInfo{}, false
	}
	return e.info, true
}

// Drain returns every entry and empties the store, for use during
// detach's restore-all.
func (s *Store) Drain() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entry, 0, len(s.byId))
	for _, e := range s.byId {
		out = append(out, e)
	}
	s.byId = make(map[types.BreakpointId]*entry)
	s.byAddrKind = make(map[addrKindKey]types.BreakpointId)
	return out
}

// RecordHit finds the breakpoint matching addr, considering Software
// before Hardware (Watchpoint hits are delivered with their own
// address from the debug exception and are matched the same way), and
// bumps its hit count. A disabled match is left alone (no-op): the
// caller resumes without treating it as a real hit.
func (s *Store) RecordHit(addr types.Address) (types.BreakpointInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []types.BreakpointKind{types.KindSoftware, types.KindHardware, types.KindWatchpoint} {
		id, ok := s.byAddrKind[addrKindKey{addr, kind}]
		if !ok {
			continue
		}
		e := s.byId[id]
		if !e.info.Enabled {
			return types.BreakpointInfo{}, false
		}
		e.info.HitCount++
		return e.info, true
	}
	return types.BreakpointInfo{}, false
}
