package debugregs

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// x86_64SlotCount is the number of general-purpose debug address
// registers (DR0-DR3); DR4/DR5 alias DR6/DR7 and carry no slots, DR6 is
// status-only, DR7 is the shared control register.
const x86_64SlotCount = 4

// X86_64 programs the Intel/AMD debug address registers (DR0-DR3) and
// the shared control register DR7 through x86_debug_state64_t.
type X86_64 struct {
	regs RegisterAccessor
}

func NewX86_64(regs RegisterAccessor) *X86_64 { return &X86_64{regs: regs} }

// dr7Local returns the "local enable" bit position for slot i (bit
// 2*i) and the "condition+length" nibble position (bits 16+4*i..19+4*i).
func dr7Local(i int) uint { return uint(2 * i) }
func dr7Rw(i int) uint    { return uint(16 + 4*i) }
func dr7Len(i int) uint   { return uint(18 + 4*i) }

func (x *X86_64) ProgramBreakpoint(thread types.ThreadId, addr types.Address) (int, error) {
	buf, err := x.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return 0, err
	}
	dr7 := readU64(buf, dr7Offset())
	slot := -1
	for i := 0; i < x86_64SlotCount; i++ {
		if dr7&(1<<dr7Local(i)) == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, ferrerr.ResourceExhausted("no free x86-64 hardware breakpoint slots")
	}
	writeU64(buf, drOffset(slot), uint64(addr))
	dr7 |= 1 << dr7Local(slot)
	dr7 &^= 0xf << dr7Rw(slot) // RW=00 (execute), LEN=00 (1 byte), per Intel SDM
	writeU64(buf, dr7Offset(), dr7)
	if err := x.regs.WriteRegisters(thread, platform.FlavorDebug, buf); err != nil {
		return 0, err
	}
	return slot, nil
}

func (x *X86_64) ClearBreakpoint(thread types.ThreadId, slot int) error {
	return x.clearSlot(thread, slot)
}

// watchLenEncoding maps a watch length in bytes to the Intel SDM DR7 LEN
// encoding, per the resolved watchpoint design: 1->00, 2->01, 8->10
// (the "10" encoding means 8 bytes only when the CPU supports 64-bit
// debug extensions, true on every x86-64 target this engine runs on),
// 4->11.
func watchLenEncoding(length uint64) (uint64, error) {
	switch length {
	case 1:
		return 0b00, nil
	case 2:
		return 0b01, nil
	case 8:
		return 0b10, nil
	case 4:
		return 0b11, nil
	default:
		return 0, ferrerr.InvalidArgument("x86-64 watchpoint length must be 1, 2, 4, or 8 bytes")
	}
}

func watchRwEncoding(access types.WatchAccess) (uint64, error) {
	switch access {
	case types.WatchWrite:
		return 0b01, nil
	case types.WatchReadWrite:
		return 0b11, nil
	case types.WatchRead:
		// DR7 has no read-only mode on x86-64; the SDM's "10" encoding is
		// reserved. Read watchpoints are approximated as read/write.
		return 0b11, nil
	default:
		return 0, ferrerr.InvalidArgument("unknown watchpoint access mode")
	}
}

func (x *X86_64) ProgramWatchpoint(thread types.ThreadId, addr types.Address, length uint64, access types.WatchAccess) (int, error) {
	lenBits, err := watchLenEncoding(length)
	if err != nil {
		return 0, err
	}
	rwBits, err := watchRwEncoding(access)
	if err != nil {
		return 0, err
	}
	if uint64(addr)%length != 0 {
		return 0, ferrerr.InvalidArgument("watchpoint address must be aligned to its length")
	}
	buf, err := x.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return 0, err
	}
	dr7 := readU64(buf, dr7Offset())
	slot := -1
	for i := 0; i < x86_64SlotCount; i++ {
		if dr7&(1<<dr7Local(i)) == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, ferrerr.ResourceExhausted("no free x86-64 hardware watchpoint slots")
	}
	writeU64(buf, drOffset(slot), uint64(addr))
	dr7 |= 1 << dr7Local(slot)
	dr7 &^= 0xf << dr7Rw(slot)
	dr7 |= rwBits << dr7Rw(slot)
	dr7 &^= 0x3 << dr7Len(slot)
	dr7 |= lenBits << dr7Len(slot)
	writeU64(buf, dr7Offset(), dr7)
	if err := x.regs.WriteRegisters(thread, platform.FlavorDebug, buf); err != nil {
		return 0, err
	}
	return slot, nil
}

func (x *X86_64) ClearWatchpoint(thread types.ThreadId, slot int) error {
	return x.clearSlot(thread, slot)
}

func (x *X86_64) clearSlot(thread types.ThreadId, slot int) error {
	buf, err := x.regs.ReadRegisters(thread, platform.FlavorDebug)
	if err != nil {
		return err
	}
	dr7 := readU64(buf, dr7Offset())
	dr7 &^= 1 << dr7Local(slot)
	writeU64(buf, drOffset(slot), 0)
	writeU64(buf, dr7Offset(), dr7)
	return x.regs.WriteRegisters(thread, platform.FlavorDebug, buf)
}

// x86_debug_state64_t field layout (dr0-dr7, each uint64); dr4/dr5 are
// reserved aliases and never programmed.
func drOffset(i int) int { return i * 8 }
func dr7Offset() int     { return 7 * 8 }
