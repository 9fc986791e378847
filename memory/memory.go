// Package memory implements region-validated reads and writes into a
// debuggee's address space, region enumeration, and a read-through page
// cache for clients (the unwinder, the symbolizer) that repeatedly
// touch the same pages.
package memory

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// maxReadChunk bounds a single underlying read.
const maxReadChunk = 4096

// Source is the subset of platform.Debuggee the memory subsystem needs.
// Accepting an interface here (rather than *darwin.Debuggee directly)
// keeps this package platform-agnostic and easy to test with a fake.
type Source interface {
	ReadMemory(addr types.Address, buf []byte) (int, error)
	WriteMemory(addr types.Address, data []byte) error
	Regions() ([]platform.RegionInfo, error)
	Protect(addr types.Address, length uint64, prot types.Permissions) error
}

// Memory is the façade's handle onto one debuggee's address space.
type Memory struct {
	src   Source
	cache *Cache
}

// New builds a Memory backed by src, with a page cache of pageCapacity
// pages (0 selects the default capacity; a negative value keeps a
// single page). Writes invalidate the cached pages they touch.
func New(src Source, pageCapacity int) *Memory {
	return &Memory{src: src, cache: newCache(src, pageCapacity)}
}

// Cache exposes the read-through page cache for clients that want
// repeated-read efficiency (the unwinder walking CFI, the symbolizer
// reading DWARF-referenced memory).
func (m *Memory) Cache() *Cache { return m.cache }

// Regions walks the debuggee's virtual memory, assigns sequential ids,
// and fills in a heuristic Name when the OS reported none.
func (m *Memory) Regions() ([]types.MemoryRegion, error) {
	raw, err := m.src.Regions()
	if err != nil {
		return nil, err
	}
	out := make([]types.MemoryRegion, 0, len(raw))
	id := 0
	for _, r := range raw {
		if r.IsSubmap {
			continue
		}
		name := r.Tag
		if name == "" {
			name = types.GuessName(r.CurrentProtection)
		}
		out = append(out, types.MemoryRegion{
			Id:             id,
			Start:          r.Start,
			End:            r.End,
			Permissions:    r.CurrentProtection,
			MaxPermissions: r.MaxProtection,
			Name:           name,
		})
		id++
	}
	return out, nil
}

// regionContaining finds the single region covering [addr, addr+length).
func (m *Memory) regionContaining(addr types.Address, length uint64) (types.MemoryRegion, error) {
	regions, err := m.Regions()
	if err != nil {
		return types.MemoryRegion{}, err
	}
	for _, r := range regions {
		if r.ContainsRange(addr, length) {
			return r, nil
		}
	}
	return types.MemoryRegion{}, ferrerr.InvalidArgument("address range not resolved to a single mapped region")
}

// ReadMemory validates the range lies within exactly one readable
// region, then reads in maxReadChunk-bounded chunks directly into buf.
// The result may be short if a chunk itself returns fewer bytes than
// requested.
func (m *Memory) ReadMemory(addr types.Address, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	region, err := m.regionContaining(addr, uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	if !region.Permissions.Read {
		return 0, ferrerr.InvalidArgument("region is not readable")
	}

	total := 0
	for total < len(buf) {
		chunkLen := len(buf) - total
		if chunkLen > maxReadChunk {
			chunkLen = maxReadChunk
		}
		n, err := m.src.ReadMemory(addr.Add(uint64(total)), buf[total:total+chunkLen])
		total += n
		if err != nil {
			return total, err
		}
		if n < chunkLen {
			break // short chunk: stop rather than requesting past what the kernel gave us
		}
	}
	return total, nil
}

// WriteMemory performs a single all-or-nothing write, with cache
// invalidation of the written range.
func (m *Memory) WriteMemory(addr types.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := m.src.WriteMemory(addr, data); err != nil {
		return err
	}
	m.cache.InvalidateRange(addr, uint64(len(data)))
	return nil
}

// Protect changes current protection over [addr, addr+length).
func (m *Memory) Protect(addr types.Address, length uint64, prot types.Permissions) error {
	return m.src.Protect(addr, length, prot)
}
