// address.go - the Address primitive and its checked/saturating arithmetic.

package types

import "fmt"

// Address is an opaque 64-bit value naming a location in a debuggee's
// virtual address space.
type Address uint64

// ZeroAddress is the sentinel naming "no address" / "not yet resolved".
const ZeroAddress Address = 0

// IsZero reports whether a is the zero sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Add returns a+n, saturating at the maximum uint64 value instead of
// wrapping. Breakpoint arithmetic and region-extent math must never wrap
// silently into a small, wrong address.
func (a Address) Add(n uint64) Address {
	if n > ^uint64(0)-uint64(a) {
		return Address(^uint64(0))
	}
	return a + Address(n)
}

// Sub returns a-n, saturating at zero instead of wrapping.
func (a Address) Sub(n uint64) Address {
	if uint64(n) > uint64(a) {
		return ZeroAddress
	}
	return a - Address(n)
}

// Diff returns a-b as a signed offset; both addresses are treated as
// unsigned 64-bit quantities so this never overflows int64 silently for
// the ranges a debugger deals with (it is used only for small offsets
// such as frame deltas).
func (a Address) Diff(b Address) int64 {
	return int64(a) - int64(b)
}

// AlignDown returns a rounded down to the nearest multiple of pow2Align,
// which must be a power of two.
func (a Address) AlignDown(pow2Align uint64) Address {
	return Address(uint64(a) &^ (pow2Align - 1))
}

// InRange reports whether a is in [start, end).
func (a Address) InRange(start, end Address) bool {
	return a >= start && a < end
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}
