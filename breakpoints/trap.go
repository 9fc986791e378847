package breakpoints

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// Trap instruction encodings.
var (
	trapARM64  = []byte{0x00, 0x00, 0x20, 0xD4} // BRK #0
	trapX86_64 = []byte{0xCC}                   // INT3
)

func trapBytes(arch types.Architecture) ([]byte, error) {
	switch {
	case arch.IsArm64():
		return trapARM64, nil
	case arch.IsX86_64():
		return trapX86_64, nil
	default:
		return nil, ferrerr.InvalidArgument("software breakpoints are not supported on this architecture")
	}
}

// TrapInstructionSize reports how many bytes the PC must be rewound
// after a software breakpoint fires.
func TrapInstructionSize(arch types.Architecture) int {
	if arch.IsArm64() {
		return 4
	}
	return 1
}
