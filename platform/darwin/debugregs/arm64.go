package debugregs

import (
	"encoding/binary"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// arm64SlotCount is the number of BVR/BCR (and separately WVR/WCR) pairs
// arm_debug_state64_t carries on Apple Silicon.
const arm64SlotCount = 16

// arm64BcrEnable is the fixed BCR control value the engine programs for
// every execution breakpoint: enabled, PMC=0b10 (match in EL0, user mode),
// BAS=0b1111 (match all four instruction bytes), no linking.
const arm64BcrEnable = 0x1e5

// ARM64 programs AArch64 hardware breakpoint/watchpoint registers
// (DBGBVR/DBGBCR/DBGWVR/DBGWCR) through arm_debug_state64_t.
type ARM64 struct {
	regs RegisterAccessor
}

func NewARM64(regs RegisterAccessor) *ARM64 { return &ARM64{regs: regs} }

func (a *ARM64) ProgramBreakpoint(thread types.ThreadId, addr types.Address) (int, error) {
	buf, err := a.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return 0, err
	}
	slot := -1
	for i := 0; i < arm64SlotCount; i++ {
		if readU64(buf, bcrOffset(i))&1 == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, ferrerr.ResourceExhausted("no free ARM64 hardware breakpoint slots")
	}
	writeU64(buf, bvrOffset(slot), uint64(addr))
	writeU64(buf, bcrOffset(slot), arm64BcrEnable)
	if err := a.regs.WriteRegisters(thread, platform.FlavorDebug, buf); err != nil {
		return 0, err
	}
	return slot, nil
}

func (a *ARM64) ClearBreakpoint(thread types.ThreadId, slot int) error {
	buf, err := a.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return err
	}
	writeU64(buf, bvrOffset(slot), 0)
	writeU64(buf, bcrOffset(slot), 0)
	return a.regs.WriteRegisters(thread, platform.FlavorDebug, buf)
}

// wcrControl builds a DBGWCR value for length and access, per the
// watchpoint encoding resolved for this engine: BAS derived from length
// (1/2/4/8 bytes aligned within the 8-byte watch granule), LSC (bits
// 3-4) from access, enable bit 0 set.
func wcrControl(addr types.Address, length uint64, access types.WatchAccess) (uint64, error) {
	if length == 0 || length > 8 {
		return 0, ferrerr.InvalidArgument("watchpoint length must be 1-8 bytes")
	}
	offset := uint64(addr) % 8
	if offset+length > 8 {
		return 0, ferrerr.InvalidArgument("watchpoint must not cross an 8-byte granule")
	}
	var bas uint64
	for i := uint64(0); i < length; i++ {
		bas |= 1 << (offset + i)
	}
	var lsc uint64
	switch access {
	case types.WatchRead:
		lsc = 0b01
	case types.WatchWrite:
		lsc = 0b10
	case types.WatchReadWrite:
		lsc = 0b11
	default:
		return 0, ferrerr.InvalidArgument("unknown watchpoint access mode")
	}
	const pac = 0b10 << 1 // match EL0, mirroring arm64BcrEnable's PMC field
	return 1 | pac | (lsc << 3) | (bas << 5), nil
}

func (a *ARM64) ProgramWatchpoint(thread types.ThreadId, addr types.Address, length uint64, access types.WatchAccess) (int, error) {
	ctrl, err := wcrControl(addr, length, access)
	if err != nil {
		return 0, err
	}
	buf, err := a.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return 0, err
	}
	slot := -1
	for i := 0; i < arm64SlotCount; i++ {
		if readU64(buf, wcrOffset(i))&1 == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, ferrerr.ResourceExhausted("no free ARM64 hardware watchpoint slots")
	}
	granuleBase := uint64(addr) - uint64(addr)%8
	writeU64(buf, wvrOffset(slot), granuleBase)
	writeU64(buf, wcrOffset(slot), ctrl)
	if err := a.regs.WriteRegisters(thread, platform.FlavorDebug, buf); err != nil {
		return 0, err
	}
	return slot, nil
}

func (a *ARM64) ClearWatchpoint(thread types.ThreadId, slot int) error {
	buf, err := a.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return err
	}
	writeU64(buf, wvrOffset(slot), 0)
	writeU64(buf, wcrOffset(slot), 0)
	return a.regs.WriteRegisters(thread, platform.FlavorDebug, buf)
}

// arm_debug_state64_t field layout: bvr[16], bcr[16], wvr[16], wcr[16],
// mdscr_el1, each uint64.
func bvrOffset(i int) int { return i * 8 }
func bcrOffset(i int) int { return 16*8 + i*8 }
func wvrOffset(i int) int { return 32*8 + i*8 }
func wcrOffset(i int) int { return 48*8 + i*8 }

func readU64(buf []byte, off int) uint64  { return binary.LittleEndian.Uint64(buf[off:]) }
func writeU64(buf []byte, off int, v uint64) { binary.LittleEndian.PutUint64(buf[off:], v) }
