package registers

import "github.com/ferros-go/ferros/types"

// unpackARM64Vector decodes an arm_neon_state64_t buffer: 32 128-bit V
// registers followed by FPSR and FPCR (each one 32-bit word).
func unpackARM64Vector(buf []byte) ([]types.Vector128, types.FloatingPointState) {
	vecs := make([]types.Vector128, 32)
	for i := range vecs {
		base := i * 4
		vecs[i] = types.Vector128{
			Lo: readU64(buf, base),
			Hi: readU64(buf, base+2),
		}
	}
	fpsr := wordU32(buf, 32*4)
	fpcr := wordU32(buf, 32*4+1)
	return vecs, types.FloatingPointState{FPSR: &fpsr, FPCR: &fpcr}
}

// packARM64Vector writes vecs and the FP control/status words back into
// buf, a read-modify-write over whatever was last read so any fields
// this package doesn't model are preserved.
func packARM64Vector(buf []byte, vecs []types.Vector128, fp types.FloatingPointState) {
	for i, v := range vecs {
		base := i * 4
		writeU64(buf, base, v.Lo)
		writeU64(buf, base+2, v.Hi)
	}
	if fp.FPSR != nil {
		putWordU32(buf, 32*4, *fp.FPSR)
	}
	if fp.FPCR != nil {
		putWordU32(buf, 32*4+1, *fp.FPCR)
	}
}

// x86 float-state field word offsets, from the Apple i386/_structs.h
// layout: fpu_reserved[2], fcw/fsw/ftw/rsrv1/fop (packed into 2 words),
// ip/cs/rsrv2 (2 words), dp/ds/rsrv3 (2 words), mxcsr, mxcsrmask, then
// 8 ST/MM 128-bit slots, then 16 XMM 128-bit slots, then reserved tail.
const (
	x86MxcsrWord     = 8
	x86MxcsrMaskWord = 9
	x86Xmm0Word      = 10 + 8*4 // past fpu_reserved + header fields + mxcsr/mxcsrmask + 8 MM slots
)

func unpackX86_64Vector(buf []byte) ([]types.Vector128, types.FloatingPointState) {
	vecs := make([]types.Vector128, 16)
	for i := range vecs {
		base := x86Xmm0Word + i*4
		if (base+4)*4 > len(buf) {
			break // buffer shorter than the full legacy structure; degrade gracefully
		}
		vecs[i] = types.Vector128{Lo: readU64(buf, base), Hi: readU64(buf, base+2)}
	}
	mxcsr := wordU32(buf, x86MxcsrWord)
	return vecs, types.FloatingPointState{MXCSR: &mxcsr}
}

func packX86_64Vector(buf []byte, vecs []types.Vector128, fp types.FloatingPointState) {
	for i, v := range vecs {
		base := x86Xmm0Word + i*4
		if (base+4)*4 > len(buf) {
			break
		}
		writeU64(buf, base, v.Lo)
		writeU64(buf, base+2, v.Hi)
	}
	if fp.MXCSR != nil {
		putWordU32(buf, x86MxcsrWord, *fp.MXCSR)
	}
}

func wordU32(buf []byte, wordOffset int) uint32 {
	byteOff := wordOffset * 4
	return uint32(buf[byteOff]) | uint32(buf[byteOff+1])<<8 | uint32(buf[byteOff+2])<<16 | uint32(buf[byteOff+3])<<24
}

func putWordU32(buf []byte, wordOffset int, v uint32) {
	byteOff := wordOffset * 4
	buf[byteOff] = byte(v)
	buf[byteOff+1] = byte(v >> 8)
	buf[byteOff+2] = byte(v >> 16)
	buf[byteOff+3] = byte(v >> 24)
}
