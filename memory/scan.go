package memory

import (
	"bytes"

	"github.com/ferros-go/ferros/types"
)

// ScanPattern reads [start, end) chunk-by-chunk bounded by
// maxReadChunk, carrying the trailing pattern_len-1 bytes of each chunk
// into the next so a match straddling a chunk boundary is not missed.
// An empty pattern matches immediately at start. Scanning reads
// directly through Source, not the cache, since the scanned range
// commonly spans more than one mapped region.
func ScanPattern(mem *Memory, start, end types.Address, pattern []byte) ([]types.Address, error) {
	if len(pattern) == 0 {
		return []types.Address{start}, nil
	}
	if end <= start {
		return nil, nil
	}

	var matches []types.Address
	overlap := len(pattern) - 1
	cur := start
	var carry []byte

	for cur < end {
		want := maxReadChunk
		if remaining := uint64(end) - uint64(cur); uint64(want) > remaining {
			want = int(remaining)
		}
		buf := make([]byte, want)
		n, err := mem.src.ReadMemory(cur, buf)
		if err != nil && n == 0 {
			return matches, err
		}
		buf = buf[:n]

		window := append(append([]byte(nil), carry...), buf...)
		searchBase := cur.Sub(uint64(len(carry)))
		for i := 0; i+len(pattern) <= len(window); i++ {
			if bytes.Equal(window[i:i+len(pattern)], pattern) {
				matches = append(matches, searchBase.Add(uint64(i)))
			}
		}

		cur = cur.Add(uint64(n))
		if n < want {
			break // short read: end of readable memory in this range
		}
		if overlap > 0 && len(window) >= overlap {
			carry = append([]byte(nil), window[len(window)-overlap:]...)
		} else {
			carry = nil
		}
	}
	return matches, nil
}
