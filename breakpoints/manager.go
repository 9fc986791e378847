package breakpoints

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/memory"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// ThreadLister is the subset of the thread manager (component I) that
// breakpoint installation needs to fan a hardware slot program out to
// every thread.
type ThreadLister interface {
	Threads() ([]types.ThreadId, error)
}

// Manager implements component H against a Store plus the memory and
// debug-register subsystems.
type Manager struct {
	store     *Store
	mem       *memory.Memory
	debugRegs platform.DebugRegisterProgrammer
	threads   ThreadLister
	arch      types.Architecture
	log       *logrus.Entry
}

func NewManager(mem *memory.Memory, debugRegs platform.DebugRegisterProgrammer, threads ThreadLister, arch types.Architecture) *Manager {
	return &Manager{
		store:     NewStore(),
		mem:       mem,
		debugRegs: debugRegs,
		threads:   threads,
		arch:      arch,
		log:       logrus.WithField("component", "breakpoints"),
	}
}

// Store exposes the underlying store for the exception loop's
// RecordHit call and read-only listing.
func (m *Manager) Store() *Store { return m.store }

// Install dispatches to the kind-specific installer.
func (m *Manager) Install(req types.BreakpointRequest) (types.BreakpointInfo, error) {
	switch req.Kind {
	case types.KindSoftware:
		return m.installSoftware(req)
	case types.KindHardware:
		return m.installHardware(req)
	case types.KindWatchpoint:
		return m.installWatchpoint(req)
	default:
		return types.BreakpointInfo{}, ferrerr.InvalidArgument("unknown breakpoint kind")
	}
}

func (m *Manager) installSoftware(req types.BreakpointRequest) (types.BreakpointInfo, error) {
	trap, err := trapBytes(m.arch)
	if err != nil {
		return types.BreakpointInfo{}, err
	}
	if _, exists := m.store.idForKind(req.Address, types.KindSoftware); exists {
		return types.BreakpointInfo{}, ferrerr.InvalidArgument("a software breakpoint already exists at this address")
	}

	original := make([]byte, len(trap))
	n, err := m.mem.ReadMemory(req.Address, original)
	if err != nil {
		return types.BreakpointInfo{}, err
	}
	if n < len(trap) {
		return types.BreakpointInfo{}, ferrerr.InvalidArgument("short read capturing original bytes")
	}

	if err := m.mem.WriteMemory(req.Address, trap); err != nil {
		return types.BreakpointInfo{}, err
	}

	now := time.Now()
	e := &entry{
		info: types.BreakpointInfo{
			Address:     req.Address,
			Kind:        types.KindSoftware,
			State:       types.StateResolved,
			Enabled:     true,
			RequestedAt: now,
			ResolvedAt:  now,
			Predicate:   req.Predicate,
			Thread:      req.Thread,
		},
		payload: payload{kind: payloadSoftware, originalBytes: original},
	}
	m.storeInsert(e)
	return e.info, nil
}

func (m *Manager) installHardware(req types.BreakpointRequest) (types.BreakpointInfo, error) {
	if _, exists := m.store.idForKind(req.Address, types.KindHardware); exists {
		return types.BreakpointInfo{}, ferrerr.InvalidArgument("a hardware breakpoint already exists at this address")
	}
	threads, err := m.threads.Threads()
	if err != nil {
		return types.BreakpointInfo{}, err
	}

	slots := make(map[types.ThreadId]int)
	firstSlot := -1
	for _, t := range threads {
		slot, err := m.debugRegs.ProgramBreakpoint(t, req.Address)
		if err != nil {
			m.log.WithError(err).WithField("thread", t).Warn("failed to program hardware breakpoint on thread")
			continue
		}
		if firstSlot < 0 {
			firstSlot = slot
		} else if slot != firstSlot {
			m.log.WithFields(logrus.Fields{"thread": t, "slot": slot, "expected": firstSlot}).
				Warn("hardware breakpoint slot diverged between threads")
		}
		slots[t] = slot
	}
	if len(slots) == 0 {
		return types.BreakpointInfo{}, ferrerr.AttachFailed("no thread accepted the hardware breakpoint")
	}

	now := time.Now()
	e := &entry{
		info: types.BreakpointInfo{
			Address:     req.Address,
			Kind:        types.KindHardware,
			State:       types.StateResolved,
			Enabled:     true,
			RequestedAt: now,
			ResolvedAt:  now,
			Predicate:   req.Predicate,
			Thread:      req.Thread,
		},
		payload: payload{kind: payloadHardware, slots: slots},
	}
	m.storeInsert(e)
	return e.info, nil
}

func (m *Manager) installWatchpoint(req types.BreakpointRequest) (types.BreakpointInfo, error) {
	if _, exists := m.store.idForKind(req.Address, types.KindWatchpoint); exists {
		return types.BreakpointInfo{}, ferrerr.InvalidArgument("a watchpoint already exists at this address")
	}
	threads, err := m.threads.Threads()
	if err != nil {
		return types.BreakpointInfo{}, err
	}

	slots := make(map[types.ThreadId]int)
	for _, t := range threads {
		slot, err := m.debugRegs.ProgramWatchpoint(t, req.Address, req.Length, req.Access)
		if err != nil {
			m.log.WithError(err).WithField("thread", t).Warn("failed to program watchpoint on thread")
			continue
		}
		slots[t] = slot
	}
	if len(slots) == 0 {
		return types.BreakpointInfo{}, ferrerr.AttachFailed("no thread accepted the watchpoint")
	}

	now := time.Now()
	e := &entry{
		info: types.BreakpointInfo{
			Address:     req.Address,
			Kind:        types.KindWatchpoint,
			State:       types.StateResolved,
			Enabled:     true,
			RequestedAt: now,
			ResolvedAt:  now,
			WatchAccess: req.Access,
			WatchLength: req.Length,
			Predicate:   req.Predicate,
			Thread:      req.Thread,
		},
		payload: payload{kind: payloadWatchpoint, slots: slots},
	}
	m.storeInsert(e)
	return e.info, nil
}

// storeInsert re-implements Store.insert's locking contract from
// outside the package boundary by going through the exported Drain/Get
// surface would be awkward, so Manager keeps a direct reference and
// calls the unexported inserter; both types live in this package.
func (m *Manager) storeInsert(e *entry) types.BreakpointId {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.insert(e)
}

// Remove deletes a breakpoint and, if it was enabled, restores the
// debuggee to its un-instrumented state.
func (m *Manager) Remove(id types.BreakpointId) error {
	e, ok := m.store.remove(id)
	if !ok {
		return ferrerr.BreakpointIdNotFound(uint64(id))
	}
	if e.info.Enabled {
		m.restoreEntry(e)
	}
	return nil
}

func (m *Manager) restoreEntry(e *entry) {
	switch e.payload.kind {
	case payloadSoftware:
		if err := m.mem.WriteMemory(e.info.Address, e.payload.originalBytes); err != nil {
			m.log.WithError(err).WithField("addr", e.info.Address).Warn("failed to restore original bytes")
		}
	case payloadHardware:
		for t, slot := range e.payload.slots {
			if err := m.debugRegs.ClearBreakpoint(t, slot); err != nil {
				m.log.WithError(err).WithFields(logrus.Fields{"thread": t, "slot": slot}).Warn("failed to clear hardware breakpoint")
			}
		}
	case payloadWatchpoint:
		for t, slot := range e.payload.slots {
			if err := m.debugRegs.ClearWatchpoint(t, slot); err != nil {
				m.log.WithError(err).WithFields(logrus.Fields{"thread": t, "slot": slot}).Warn("failed to clear watchpoint")
			}
		}
	}
}

func (m *Manager) rearmEntry(e *entry) error {
	switch e.payload.kind {
	case payloadSoftware:
		trap, err := trapBytes(m.arch)
		if err != nil {
			return err
		}
		return m.mem.WriteMemory(e.info.Address, trap)
	case payloadHardware:
		threads, err := m.threads.Threads()
		if err != nil {
			return err
		}
		slots := make(map[types.ThreadId]int)
		for _, t := range threads {
			slot, err := m.debugRegs.ProgramBreakpoint(t, e.info.Address)
			if err != nil {
				m.log.WithError(err).WithField("thread", t).Warn("failed to reprogram hardware breakpoint on thread")
				continue
			}
			slots[t] = slot
		}
		if len(slots) == 0 {
			return ferrerr.AttachFailed("no thread accepted the hardware breakpoint")
		}
		e.payload.slots = slots
		return nil
	case payloadWatchpoint:
		threads, err := m.threads.Threads()
		if err != nil {
			return err
		}
		slots := make(map[types.ThreadId]int)
		for _, t := range threads {
			slot, err := m.debugRegs.ProgramWatchpoint(t, e.info.Address, e.info.WatchLength, e.info.WatchAccess)
			if err != nil {
				m.log.WithError(err).WithField("thread", t).Warn("failed to reprogram watchpoint on thread")
				continue
			}
			slots[t] = slot
		}
		if len(slots) == 0 {
			return ferrerr.AttachFailed("no thread accepted the watchpoint")
		}
		e.payload.slots = slots
		return nil
	}
	return nil
}

// Enable re-arms a disabled breakpoint; a no-op if already enabled.
func (m *Manager) Enable(id types.BreakpointId) error {
	e, ok := m.store.get(id)
	if !ok {
		return ferrerr.BreakpointIdNotFound(uint64(id))
	}
	if e.info.Enabled {
		return nil
	}
	if err := m.rearmEntry(e); err != nil {
		return err
	}
	e.info.State = types.StateResolved
	e.info.Enabled = true
	return nil
}

// Disable tears down a breakpoint's active effect without forgetting
// it; a no-op if already disabled.
func (m *Manager) Disable(id types.BreakpointId) error {
	e, ok := m.store.get(id)
	if !ok {
		return ferrerr.BreakpointIdNotFound(uint64(id))
	}
	if !e.info.Enabled {
		return nil
	}
	m.restoreEntry(e)
	e.info.State = types.StateDisabled
	e.info.Enabled = false
	return nil
}

// Toggle flips a breakpoint's enabled state and returns the new value.
func (m *Manager) Toggle(id types.BreakpointId) (bool, error) {
	e, ok := m.store.get(id)
	if !ok {
		return false, ferrerr.BreakpointIdNotFound(uint64(id))
	}
	if e.info.Enabled {
		return false, m.Disable(id)
	}
	return true, m.Enable(id)
}

// RestoreAll drains the store and best-effort restores every entry,
// for use during detach. Per-entry failures are logged, not propagated.
func (m *Manager) RestoreAll() {
	for _, e := range m.store.Drain() {
		if e.info.Enabled {
			m.restoreEntry(e)
		}
	}
}

// List and Info proxy to the store for client-facing queries.
func (m *Manager) List() []types.BreakpointInfo          { return m.store.List() }
func (m *Manager) Info(id types.BreakpointId) (types.BreakpointInfo, bool) { return m.store.Info(id) }
