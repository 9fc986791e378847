// memory_region.go - virtual memory region description.

package types

import "fmt"

// Permissions packs the read/write/execute bits of one memory region.
type Permissions struct {
	Read    bool
	Write   bool
	Execute bool
}

func (p Permissions) String() string {
	b := [3]byte{'-', '-', '-'}
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	return string(b[:])
}

// MemoryRegion is one non-overlapping extent of the debuggee's address
// space, as reported by get_memory_regions.
type MemoryRegion struct {
	Id             int
	Start          Address
	End            Address // exclusive
	Permissions    Permissions
	MaxPermissions Permissions // upper bound mprotect/vm_protect will allow
	Name           string      // OS-reported tag, or a heuristic guess; may be empty
}

// Size returns End-Start.
func (m MemoryRegion) Size() uint64 {
	if m.End <= m.Start {
		return 0
	}
	return uint64(m.End - m.Start)
}

// Contains reports whether addr lies within [Start, End).
func (m MemoryRegion) Contains(addr Address) bool {
	return addr.InRange(m.Start, m.End)
}

// ContainsRange reports whether [addr, addr+length) lies entirely
// within [Start, End).
func (m MemoryRegion) ContainsRange(addr Address, length uint64) bool {
	if length == 0 {
		return m.Contains(addr) || addr == m.End
	}
	end := addr.Add(length)
	return addr >= m.Start && end <= m.End
}

// GuessName derives a heuristic region label from permissions alone,
// used when the OS did not report one.
func GuessName(p Permissions) string {
	switch {
	case p.Execute:
		return "[code]"
	case p.Write && p.Read:
		return "[data]"
	case p.Read && !p.Write:
		return "[rodata]"
	default:
		return ""
	}
}

func (m MemoryRegion) String() string {
	return fmt.Sprintf("#%d %s-%s %s %q", m.Id, m.Start, m.End, m.Permissions, m.Name)
}
