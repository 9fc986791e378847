package memory

import (
	"testing"

	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// fakeSource is an in-memory Source for tests, backed by a flat byte
// slice mapped starting at base.
type fakeSource struct {
	base    types.Address
	data    []byte
	regions []platform.RegionInfo
	reads   int
}

func (f *fakeSource) ReadMemory(addr types.Address, buf []byte) (int, error) {
	f.reads++
	off := int(addr.Diff(f.base))
	if off < 0 || off >= len(f.data) {
		return 0, nil
	}
	n := copy(buf, f.data[off:])
	return n, nil
}

func (f *fakeSource) WriteMemory(addr types.Address, data []byte) error {
	off := int(addr.Diff(f.base))
	copy(f.data[off:], data)
	return nil
}

func (f *fakeSource) Regions() ([]platform.RegionInfo, error) { return f.regions, nil }

func (f *fakeSource) Protect(addr types.Address, length uint64, prot types.Permissions) error {
	return nil
}

func newFakeSource(size int) *fakeSource {
	base := types.Address(0x1000)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return &fakeSource{
		base: base,
		data: data,
		regions: []platform.RegionInfo{{
			Start:             base,
			End:               base.Add(uint64(size)),
			CurrentProtection: types.Permissions{Read: true, Write: true},
			MaxProtection:     types.Permissions{Read: true, Write: true},
		}},
	}
}

func TestReadMemoryShortRead(t *testing.T) {
	src := newFakeSource(10)
	m := New(src, 4)
	buf := make([]byte, 20)
	n, err := m.ReadMemory(types.Address(0x1000), buf)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if n != 10 {
		t.Fatalf("want short read of 10 bytes, got %d", n)
	}
}

func TestWriteInvalidatesCache(t *testing.T) {
	src := newFakeSource(4096)
	m := New(src, 4)

	addr := types.Address(0x1000)
	if _, err := m.Cache().Read(addr, 16); err != nil {
		t.Fatalf("Read: %v", err)
	}
	readsAfterFirst := src.reads

	if _, err := m.Cache().Read(addr, 16); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if src.reads != readsAfterFirst {
		t.Fatalf("expected cache hit, got another underlying read")
	}

	if err := m.WriteMemory(addr, []byte{0xff, 0xfe}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}

	if _, err := m.Cache().Read(addr, 16); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if src.reads == readsAfterFirst {
		t.Fatalf("expected a fresh underlying read after invalidation, cache still hit")
	}
}

func TestCacheReadU64RoundTrip(t *testing.T) {
	src := newFakeSource(4096)
	m := New(src, 4)
	addr := types.Address(0x1000)
	want := uint64(0x0706050403020100)
	if err := m.WriteMemory(addr, []byte{0, 1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}
	got, err := m.Cache().ReadU64(addr)
	if err != nil {
		t.Fatalf("ReadU64: %v", err)
	}
	if got != want {
		t.Fatalf("ReadU64 = %#x, want %#x", got, want)
	}
}

func TestRegionsNonOverlapping(t *testing.T) {
	src := &fakeSource{
		base: types.Address(0),
		regions: []platform.RegionInfo{
			{Start: 0x1000, End: 0x2000, CurrentProtection: types.Permissions{Read: true}},
			{Start: 0x2000, End: 0x3000, CurrentProtection: types.Permissions{Read: true, Execute: true}},
			{Start: 0x3000, End: 0x3500, IsSubmap: true},
		},
	}
	m := New(src, 0)
	regions, err := m.Regions()
	if err != nil {
		t.Fatalf("Regions: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected submap to be excluded, got %d regions", len(regions))
	}
	for i, r := range regions {
		if r.Id != i {
			t.Fatalf("region ids not sequential: region %d has Id %d", i, r.Id)
		}
	}
	if regions[0].End != regions[1].Start {
		t.Fatalf("expected ascending adjacent regions, got %v then %v", regions[0], regions[1])
	}
}

func TestScanPatternAcrossChunkBoundary(t *testing.T) {
	src := newFakeSource(maxReadChunk + 16)
	pattern := []byte{0xAA, 0xBB, 0xCC}
	at := maxReadChunk - 1 // straddles the chunk boundary
	copy(src.data[at:], pattern)

	m := New(src, 0)
	matches, err := ScanPattern(m, types.Address(0x1000), types.Address(0x1000).Add(uint64(len(src.data))), pattern)
	if err != nil {
		t.Fatalf("ScanPattern: %v", err)
	}
	want := types.Address(0x1000).Add(uint64(at))
	found := false
	for _, a := range matches {
		if a == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected match at %s, got %v", want, matches)
	}
}

func TestScanPatternEmptyMatchesStart(t *testing.T) {
	src := newFakeSource(16)
	m := New(src, 0)
	matches, err := ScanPattern(m, types.Address(0x1000), types.Address(0x1010), nil)
	if err != nil {
		t.Fatalf("ScanPattern: %v", err)
	}
	if len(matches) != 1 || matches[0] != types.Address(0x1000) {
		t.Fatalf("expected single match at start, got %v", matches)
	}
}
