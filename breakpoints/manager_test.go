package breakpoints

import (
	"errors"
	"testing"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/memory"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

type fakeMemSource struct {
	data map[types.Address]byte
}

func newFakeMemSource() *fakeMemSource { return &fakeMemSource{data: make(map[types.Address]byte)} }

func (f *fakeMemSource) ReadMemory(addr types.Address, buf []byte) (int, error) {
	for i := range buf {
		b, ok := f.data[addr.Add(uint64(i))]
		if !ok {
			return i, nil
		}
		buf[i] = b
	}
	return len(buf), nil
}

func (f *fakeMemSource) WriteMemory(addr types.Address, data []byte) error {
	for i, b := range data {
		f.data[addr.Add(uint64(i))] = b
	}
	return nil
}

func (f *fakeMemSource) Regions() ([]platform.RegionInfo, error) {
	return []platform.RegionInfo{{
		Start:             0,
		End:               0x100000,
		CurrentProtection: types.Permissions{Read: true, Write: true, Execute: true},
		MaxProtection:     types.Permissions{Read: true, Write: true, Execute: true},
	}}, nil
}

func (f *fakeMemSource) Protect(types.Address, uint64, types.Permissions) error { return nil }

type fakeThreadLister struct{ threads []types.ThreadId }

func (f *fakeThreadLister) Threads() ([]types.ThreadId, error) { return f.threads, nil }

type fakeDebugRegs struct {
	bpSlots map[types.ThreadId]map[int]types.Address
	nextBp  int
}

func newFakeDebugRegs() *fakeDebugRegs {
	return &fakeDebugRegs{bpSlots: make(map[types.ThreadId]map[int]types.Address)}
}

func (f *fakeDebugRegs) ProgramBreakpoint(thread types.ThreadId, addr types.Address) (int, error) {
	if f.bpSlots[thread] == nil {
		f.bpSlots[thread] = make(map[int]types.Address)
	}
	slot := len(f.bpSlots[thread])
	f.bpSlots[thread][slot] = addr
	return slot, nil
}

func (f *fakeDebugRegs) ClearBreakpoint(thread types.ThreadId, slot int) error {
	delete(f.bpSlots[thread], slot)
	return nil
}

func (f *fakeDebugRegs) ProgramWatchpoint(thread types.ThreadId, addr types.Address, length uint64, access types.WatchAccess) (int, error) {
	return f.ProgramBreakpoint(thread, addr)
}

func (f *fakeDebugRegs) ClearWatchpoint(thread types.ThreadId, slot int) error {
	return f.ClearBreakpoint(thread, slot)
}

func newTestManager() (*Manager, *fakeMemSource) {
	src := newFakeMemSource()
	mem := memory.New(src, 4)
	threads := &fakeThreadLister{threads: []types.ThreadId{1, 2}}
	mgr := NewManager(mem, newFakeDebugRegs(), threads, types.ArchX86_64)
	return mgr, src
}

func TestInstallSoftwareBreakpointWritesTrap(t *testing.T) {
	mgr, src := newTestManager()
	addr := types.Address(0x2000)
	src.data[addr] = 0x90 // NOP, to be captured as the original byte

	info, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if src.data[addr] != 0xCC {
		t.Fatalf("expected INT3 written at %s, got %#x", addr, src.data[addr])
	}
	if !info.Enabled || info.State != types.StateResolved {
		t.Fatalf("expected enabled/resolved entry, got %+v", info)
	}
}

func TestDuplicateSoftwareBreakpointRejected(t *testing.T) {
	mgr, src := newTestManager()
	addr := types.Address(0x2000)
	src.data[addr] = 0x90

	if _, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware}); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if _, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware}); err == nil {
		t.Fatalf("expected second Install at same address to fail")
	}
}

func TestDisableRestoresOriginalBytes(t *testing.T) {
	mgr, src := newTestManager()
	addr := types.Address(0x2000)
	src.data[addr] = 0x90

	info, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := mgr.Disable(info.Id); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if src.data[addr] != 0x90 {
		t.Fatalf("expected original byte restored, got %#x", src.data[addr])
	}
	got, _ := mgr.Info(info.Id)
	if got.Enabled {
		t.Fatalf("expected disabled entry")
	}
}

func TestRemoveUnknownIdFails(t *testing.T) {
	mgr, _ := newTestManager()
	err := mgr.Remove(types.BreakpointId(999))
	var fe *ferrerr.Error
	if !errors.As(err, &fe) || fe.Kind != ferrerr.KindBreakpointIdNotFound {
		t.Fatalf("expected BreakpointIdNotFound, got %v", err)
	}
}

func TestHardwareBreakpointProgramsAllThreads(t *testing.T) {
	mgr, _ := newTestManager()
	addr := types.Address(0x3000)
	info, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindHardware})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if info.Kind != types.KindHardware {
		t.Fatalf("expected hardware kind, got %v", info.Kind)
	}

	e, ok := mgr.store.get(info.Id)
	if !ok {
		t.Fatalf("entry not found after install")
	}
	if len(e.payload.slots) != 2 {
		t.Fatalf("expected slot programmed on both threads, got %d", len(e.payload.slots))
	}
}

func TestRecordHitSkipsDisabled(t *testing.T) {
	mgr, src := newTestManager()
	addr := types.Address(0x4000)
	src.data[addr] = 0x90
	info, err := mgr.Install(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := mgr.Disable(info.Id); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, hit := mgr.Store().RecordHit(addr); hit {
		t.Fatalf("expected disabled breakpoint not to record a hit")
	}
}
