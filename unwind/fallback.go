package unwind

import "github.com/ferros-go/ferros/types"

// framePointerFallback implements component O step d: ARM64 reads
// [FP]->saved FP and [FP+8]->saved LR, new SP=FP+16; x86-64 reads
// [FP]->saved RBP and [FP+8]->return address, new SP=FP+16. Both
// architectures use the same layout since both maintain a standard
// push-FP/push-LR-or-return prologue.
func framePointerFallback(mem MemoryAccessor, cursor types.Registers) (types.Registers, bool) {
	if cursor.FP == 0 {
		return types.Registers{}, false
	}
	savedFP, err := mem.ReadU64(cursor.FP)
	if err != nil {
		return types.Registers{}, false
	}
	savedReturn, err := mem.ReadU64(cursor.FP.Add(pointerSize))
	if err != nil {
		return types.Registers{}, false
	}

	next := cursor
	next.FP = types.Address(savedFP)
	next.PC = types.Address(savedReturn)
	next.SP = cursor.FP.Add(2 * pointerSize)
	if cursor.Arch.IsArm64() && len(next.General) > 30 {
		next.General[29] = savedFP
	}
	return next, true
}

// stackScanFallback implements component O step e: read one
// pointer-sized word at SP; accept it as a return address only if it
// is non-zero and different from the current PC, then advance SP by
// one pointer width.
func stackScanFallback(mem MemoryAccessor, cursor types.Registers) (types.Registers, bool) {
	candidate, err := mem.ReadU64(cursor.SP)
	if err != nil {
		return types.Registers{}, false
	}
	if candidate == 0 || types.Address(candidate) == cursor.PC {
		return types.Registers{}, false
	}
	next := cursor
	next.PC = types.Address(candidate)
	next.SP = cursor.SP.Add(pointerSize)
	return next, true
}

// linkRegisterFallback implements component O step f, ARM64 only: use
// the link register (General[30]) if it is non-zero and differs from
// the current PC.
func linkRegisterFallback(cursor types.Registers) (types.Registers, bool) {
	if !cursor.Arch.IsArm64() || len(cursor.General) < 31 {
		return types.Registers{}, false
	}
	lr := cursor.General[30]
	if lr == 0 || types.Address(lr) == cursor.PC {
		return types.Registers{}, false
	}
	next := cursor
	next.PC = types.Address(lr)
	return next, true
}
