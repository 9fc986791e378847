//go:build darwin

package darwin

/*
#include <mach/mach.h>
*/
import "C"

import (
	"encoding/binary"
	"unsafe"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// flavorFor resolves a platform.RegisterFlavor plus the attached
// architecture to the Mach thread-state flavor number and its natural_t
// word count. Vector/Debug flavors differ in meaning between
// architectures (NEON vs XMM, ARM debug-state vs x86 debug-state) but
// share the same RegisterFlavor enum value; the architecture tag
// resolves the ambiguity.
func (d *Debuggee) flavorFor(f platform.RegisterFlavor) (flavor C.thread_state_flavor_t, count C.mach_msg_type_number_t, ok bool) {
	arm := d.arch.IsArm64()
	switch f {
	case platform.FlavorGeneral:
		if arm {
			return flavorArmThreadState64, flavorArmThreadState64Count, true
		}
		return flavorX86ThreadState64, flavorX86ThreadState64Count, true
	case platform.FlavorVector:
		if arm {
			return flavorArmNeonState64, flavorArmNeonState64Count, true
		}
		return flavorX86FloatState64, flavorX86FloatState64Count, true
	case platform.FlavorDebug:
		if arm {
			return flavorArmDebugState64, flavorArmDebugState64Count, true
		}
		return flavorX86DebugState64, flavorX86DebugState64Count, true
	}
	return 0, 0, false
}

// ReadRegisters returns the raw natural_t words of one thread-state
// flavor, little-endian packed (both ARM64 and x86-64 are
// little-endian), for the registers package to interpret.
func (d *Debuggee) ReadRegisters(thread types.ThreadId, flavor platform.RegisterFlavor) ([]byte, error) {
	fl, count, ok := d.flavorFor(flavor)
	if !ok {
		return nil, ferrerr.InvalidArgument("unknown register flavor")
	}
	words := make([]C.natural_t, count)
	outCount := count
	kr := C.ferros_thread_get_state(C.thread_act_t(thread), fl, &words[0], &outCount)
	if kr != kernSuccess {
		t := uint32(thread)
		return nil, ferrerr.ReadRegistersFailed("thread_get_state", &t, machErrorString(kr))
	}
	return packNatural(words[:outCount]), nil
}

// WriteRegisters packs data back into natural_t words and calls
// thread_set_state. len(data) must equal the flavor's natural word
// count in bytes; callers (registers package) are responsible for
// round-tripping a buffer obtained from ReadRegisters.
func (d *Debuggee) WriteRegisters(thread types.ThreadId, flavor platform.RegisterFlavor, data []byte) error {
	fl, count, ok := d.flavorFor(flavor)
	if !ok {
		return ferrerr.InvalidArgument("unknown register flavor")
	}
	words, err := unpackNatural(data, int(count))
	if err != nil {
		return err
	}
	kr := C.ferros_thread_set_state(C.thread_act_t(thread), fl, &words[0], count)
	if kr != kernSuccess {
		t := uint32(thread)
		return ferrerr.WriteRegistersFailed("thread_set_state", &t, machErrorString(kr))
	}
	return nil
}

func packNatural(words []C.natural_t) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(w))
	}
	return out
}

func unpackNatural(data []byte, count int) ([]C.natural_t, error) {
	if len(data) != count*4 {
		return nil, ferrerr.InvalidArgument("register buffer size mismatch")
	}
	out := make([]C.natural_t, count)
	for i := range out {
		out[i] = C.natural_t(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

var _ = unsafe.Sizeof(C.natural_t(0)) // guard against a silent ABI width change
