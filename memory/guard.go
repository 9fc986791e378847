package memory

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"

	"github.com/sirupsen/logrus"
)

// ProtectionGuard is a scoped acquisition of relaxed page protection
// over an aligned range. Callers use it as `defer guard.Release()`; Go
// has no destructors, so release must be explicit rather than a
// language-level RAII guarantee.
type ProtectionGuard struct {
	mem      *Memory
	addr     types.Address
	length   uint64
	original types.Permissions
}

// NewProtectionGuard reads the covering region's current and maximum
// protection and, if requested is within the maximum, applies it. If
// requested needs write access the maximum forbids, construction fails
// with a descriptive error; software breakpoints on such code must fall
// back to a hardware breakpoint instead.
func NewProtectionGuard(mem *Memory, addr types.Address, length uint64, requested types.Permissions) (*ProtectionGuard, error) {
	region, err := mem.regionContaining(addr, length)
	if err != nil {
		return nil, err
	}
	if requested.Write && !maxAllows(region, requested) {
		return nil, ferrerr.InvalidArgument(
			"region's maximum protection forbids write access; use a hardware breakpoint instead")
	}
	if err := mem.Protect(addr, length, requested); err != nil {
		return nil, err
	}
	return &ProtectionGuard{mem: mem, addr: addr, length: length, original: region.Permissions}, nil
}

// maxAllows reports whether region's maximum protection permits every
// access bit requested.
func maxAllows(region types.MemoryRegion, requested types.Permissions) bool {
	if requested.Read && !region.MaxPermissions.Read {
		return false
	}
	if requested.Write && !region.MaxPermissions.Write {
		return false
	}
	if requested.Execute && !region.MaxPermissions.Execute {
		return false
	}
	return true
}

// Release restores the original protection. Best-effort: a failure is
// logged, not returned, matching the destructor's "can't propagate an
// error from Drop" constraint this guard is standing in for.
func (g *ProtectionGuard) Release() {
	if err := g.mem.Protect(g.addr, g.length, g.original); err != nil {
		logrus.WithError(err).WithField("addr", g.addr).Warn("failed to restore memory protection")
	}
}
