// Package registers implements component E: canonical per-architecture
// register name tables and the pack/unpack glue between a
// platform.Debuggee's raw natural_t buffers and types.Registers.
package registers

import "github.com/ferros-go/ferros/types"

// arm64GPNames is the fixed order General holds ARM64 GP registers in:
// X0-X28, then X29 (frame pointer) and X30 (link register) by their
// ordinary names, matching arm_thread_state64_t's field order.
var arm64GPNames = buildArm64Names()

func buildArm64Names() []string {
	names := make([]string, 0, 31)
	for i := 0; i <= 30; i++ {
		names = append(names, registerName("X", i))
	}
	return names
}

func registerName(prefix string, i int) string {
	// avoids fmt.Sprintf in a hot path (table built once at init, but
	// keeps the pattern the rest of the package uses for name lookups).
	digits := "0123456789"
	if i < 10 {
		return prefix + string(digits[i])
	}
	return prefix + string(digits[i/10]) + string(digits[i%10])
}

// x86_64GPNames is the fixed order General holds x86-64 GP registers
// in, matching x86_thread_state64_t's field order; CS/FS/GS ride along
// at the end even though clients rarely need them.
var x86_64GPNames = []string{
	"RAX", "RBX", "RCX", "RDX", "RDI", "RSI", "RBP", "RSP",
	"R8", "R9", "R10", "R11", "R12", "R13", "R14", "R15",
	"CS", "FS", "GS",
}

// NamesFor returns the GP register names, in fixed Registers.General
// order, for arch.
func NamesFor(arch types.Architecture) []string {
	if arch.IsArm64() {
		return arm64GPNames
	}
	return x86_64GPNames
}

// Lookup resolves a register name to a RegisterId tagged to arch. Ok is
// false for an unknown name or for the special fields (PC/SP/FP/STATUS)
// which already have dedicated accessors on Registers.
func Lookup(arch types.Architecture, name string) (types.RegisterId, bool) {
	switch name {
	case "PC", "SP", "FP", "STATUS":
		return types.NewRegisterId(arch, name, -1), true
	}
	for i, n := range NamesFor(arch) {
		if n == name {
			return types.NewRegisterId(arch, name, i), true
		}
	}
	return types.RegisterId{}, false
}
