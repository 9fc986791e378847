//go:build darwin

package darwin

// Mach thread-state flavor numbers, recovered from
// crates/ferros-core/src/platform/macos/constants.rs and the
// registers/{arm64,x86_64}.rs doc comments (they are not exposed as
// named C constants by every SDK revision, so they are hard-coded here
// exactly as the Rust FFI layer hard-codes them).
const (
	flavorArmThreadState64     = 6
	flavorArmThreadState64Count = 68

	flavorArmNeonState64 = 5
	// arm_neon_state64_t: v[32] (128-bit lanes, 4 words each) + fpsr + fpcr.
	flavorArmNeonState64Count = 32*4 + 2

	flavorX86ThreadState64      = 4
	flavorX86ThreadState64Count = 42

	flavorX86FloatState64 = 5
	// x86_float_state64_t: sizeof is 524 bytes on every released SDK.
	flavorX86FloatState64Count = 524 / 4

	flavorArmDebugState64      = 15
	flavorArmDebugState64Count = 130

	flavorX86DebugState64 = 11
	// x86_debug_state64_t: dr0-dr7, each uint64.
	flavorX86DebugState64Count = 8 * 2
)

// maxReadChunk bounds a single mach_vm_read_overwrite call.
const maxReadChunk = 4096

// trap instruction encodings.
var (
	trapARM64  = []byte{0x00, 0x00, 0x20, 0xD4} // BRK #0, little-endian encoding
	trapX86_64 = []byte{0xCC}                   // INT3
)

// trapInstructionSize reports how many bytes the PC must be rewound by
// after a software breakpoint trap fires.
func trapInstructionSize(isArm64 bool) int {
	if isArm64 {
		return 4
	}
	return 1
}
