package registers

import (
	"encoding/binary"

	"github.com/ferros-go/ferros/types"
)

// arm64GPWordCount/x86GPWordCount are the natural_t (32-bit) word
// counts of arm_thread_state64_t / x86_thread_state64_t, matching
// platform/darwin's flavor constants; kept here too so this package's
// pack/unpack logic is self-contained and platform-independent.
const (
	arm64GPWords = 68
	x86GPWords   = 42
)

func readU64(buf []byte, wordOffset int) uint64 {
	byteOff := wordOffset * 4
	lo := uint64(binary.LittleEndian.Uint32(buf[byteOff:]))
	hi := uint64(binary.LittleEndian.Uint32(buf[byteOff+4:]))
	return lo | hi<<32
}

func writeU64(buf []byte, wordOffset int, v uint64) {
	byteOff := wordOffset * 4
	binary.LittleEndian.PutUint32(buf[byteOff:], uint32(v))
	binary.LittleEndian.PutUint32(buf[byteOff+4:], uint32(v>>32))
}

// unpackARM64GP decodes an arm_thread_state64_t buffer: x[0..28], fp,
// lr, sp, pc (each uint64, i.e. 2 words), then cpsr (1 word) and a pad
// word.
func unpackARM64GP(buf []byte) types.Registers {
	r := types.Registers{Arch: types.ArchArm64, General: make([]uint64, 31)}
	for i := 0; i <= 28; i++ {
		r.General[i] = readU64(buf, i*2)
	}
	fp := readU64(buf, 29*2)
	lr := readU64(buf, 30*2)
	r.General[29] = fp
	r.General[30] = lr
	r.FP = types.Address(fp)
	r.SP = types.Address(readU64(buf, 31*2))
	r.PC = types.Address(readU64(buf, 32*2))
	r.Status = uint64(binary.LittleEndian.Uint32(buf[33*2*4:]))
	return r
}

// packARM64GP is the read-modify-write inverse: it starts from the
// previously-read buffer so fields this package doesn't model (the pad
// word) survive untouched.
func packARM64GP(buf []byte, r types.Registers) {
	for i := 0; i <= 28; i++ {
		writeU64(buf, i*2, r.General[i])
	}
	writeU64(buf, 29*2, uint64(r.FP))
	writeU64(buf, 30*2, r.General[30])
	writeU64(buf, 31*2, uint64(r.SP))
	writeU64(buf, 32*2, uint64(r.PC))
	binary.LittleEndian.PutUint32(buf[33*2*4:], uint32(r.Status))
}

// unpackX86_64GP decodes an x86_thread_state64_t buffer: rax, rbx, rcx,
// rdx, rdi, rsi, rbp, rsp, r8-r15, rip, rflags, cs, fs, gs.
func unpackX86_64GP(buf []byte) types.Registers {
	r := types.Registers{Arch: types.ArchX86_64, General: make([]uint64, 19)}
	for i := 0; i < 8; i++ {
		r.General[i] = readU64(buf, i*2)
	}
	for i := 0; i < 8; i++ {
		r.General[8+i] = readU64(buf, (8+i)*2)
	}
	r.PC = types.Address(readU64(buf, 16*2))
	r.Status = readU64(buf, 17*2)
	for i := 0; i < 3; i++ {
		r.General[16+i] = readU64(buf, (18+i)*2)
	}
	r.SP = types.Address(r.General[7]) // RSP
	r.FP = types.Address(r.General[6]) // RBP, by convention
	return r
}

func packX86_64GP(buf []byte, r types.Registers) {
	g := r.General
	g[7] = uint64(r.SP) // RSP
	g[6] = uint64(r.FP) // RBP
	for i := 0; i < 8; i++ {
		writeU64(buf, i*2, g[i])
	}
	for i := 0; i < 8; i++ {
		writeU64(buf, (8+i)*2, g[8+i])
	}
	writeU64(buf, 16*2, uint64(r.PC))
	writeU64(buf, 17*2, r.Status)
	for i := 0; i < 3; i++ {
		writeU64(buf, (18+i)*2, g[16+i])
	}
}
