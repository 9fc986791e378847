package memory

import (
	"encoding/binary"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// minPageSize is the floor used when flooring the OS page size to a
// power of two.
const minPageSize = 1024

// defaultPageCapacity bounds how many pages the cache holds at once
// when a caller passes 0 (meaning "pick a sane default" rather than
// "disable caching"); a negative capacity becomes a 1-page cache.
const defaultPageCapacity = 256

// detectPageSize floors os.Getpagesize() to the nearest power of two no
// smaller than minPageSize.
func detectPageSize() uint64 {
	sz := uint64(os.Getpagesize())
	p := uint64(minPageSize)
	for p*2 <= sz {
		p *= 2
	}
	return p
}

// Cache is the read-through paged memory cache, keyed by page-aligned
// base address.
type Cache struct {
	mu       sync.Mutex
	src      Source
	pageSize uint64
	pages    *lru.Cache[types.Address, []byte]
}

func newCache(src Source, capacityPages int) *Cache {
	if capacityPages == 0 {
		capacityPages = defaultPageCapacity
	}
	if capacityPages < 0 {
		capacityPages = 1 // lru.New requires a positive size; a 1-page cache is a close approximation of disabled
	}
	pages, _ := lru.New[types.Address, []byte](capacityPages)
	return &Cache{src: src, pageSize: detectPageSize(), pages: pages}
}

func (c *Cache) pageBase(addr types.Address) types.Address {
	return addr.AlignDown(c.pageSize)
}

// fetchPage returns the cached page at base, reading it through from
// src on a miss. A short read (page at the end of a mapping) is cached
// as-is; callers asking past its end get a short result, matching
// ReadMemory's own short-read semantics.
func (c *Cache) fetchPage(base types.Address) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if page, ok := c.pages.Get(base); ok {
		return page, nil
	}
	buf := make([]byte, c.pageSize)
	n, err := readThrough(c.src, base, buf)
	if err != nil && n == 0 {
		return nil, err
	}
	page := buf[:n]
	c.pages.Add(base, page)
	return page, nil
}

// readThrough performs a maxReadChunk-bounded, best-effort read
// directly against src, independent of Memory.ReadMemory's
// single-region validation (the cache is used by clients, like the
// unwinder, that read raw bytes without a region check).
func readThrough(src Source, addr types.Address, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		chunkLen := len(buf) - total
		if chunkLen > maxReadChunk {
			chunkLen = maxReadChunk
		}
		n, err := src.ReadMemory(addr.Add(uint64(total)), buf[total:total+chunkLen])
		total += n
		if err != nil {
			return total, err
		}
		if n < chunkLen {
			break
		}
	}
	return total, nil
}

// Read copies length bytes starting at addr, fetching one page at a
// time and stopping early if a page comes back short.
func (c *Cache) Read(addr types.Address, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	out := make([]byte, 0, length)
	cur := addr
	remaining := length
	for remaining > 0 {
		base := c.pageBase(cur)
		page, err := c.fetchPage(base)
		if err != nil {
			return out, err
		}
		offset := int(cur.Diff(base))
		if offset < 0 || offset >= len(page) {
			break
		}
		avail := len(page) - offset
		take := remaining
		if take > avail {
			take = avail
		}
		out = append(out, page[offset:offset+take]...)
		remaining -= take
		cur = cur.Add(uint64(take))
		if len(page) < int(c.pageSize) {
			break // the page itself was short: end of readable memory, don't assume the next page is contiguous
		}
	}
	return out, nil
}

// ReadU64 reads a little-endian 8-byte value at addr.
func (c *Cache) ReadU64(addr types.Address) (uint64, error) {
	buf, err := c.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	if len(buf) < 8 {
		return 0, ferrerr.InvalidArgument("short read for read_u64")
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// InvalidateRange removes every cached page intersecting
// [addr, addr+length). This is the cache-coherence invariant required
// after every successful write.
func (c *Cache) InvalidateRange(addr types.Address, length uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := addr.Add(length)
	for _, base := range c.pages.Keys() {
		pageEnd := base.Add(c.pageSize)
		if base < end && addr < pageEnd {
			c.pages.Remove(base)
		}
	}
}

// Clear empties the cache entirely.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages.Purge()
}
