//go:build darwin

package darwin

/*
#include <mach/mach.h>
#include <mach/mach_vm.h>
*/
import "C"

import (
	"unsafe"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// ReadMemory implements one chunk of read_memory. The memory subsystem
// (ferros/memory) is responsible for splitting a larger request into
// MAX_READ_CHUNK-sized calls and for the read-permission pre-check
// against a region snapshot; this method is a direct, unchecked
// mach_vm_read_overwrite call.
func (d *Debuggee) ReadMemory(addr types.Address, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var outSize C.mach_vm_size_t
	kr := C.ferros_vm_read_overwrite(
		C.vm_map_t(d.task),
		C.mach_vm_address_t(addr),
		C.mach_vm_size_t(len(buf)),
		C.mach_vm_address_t(uintptr(unsafe.Pointer(&buf[0]))),
		&outSize,
	)
	if kr != kernSuccess {
		return 0, ferrerr.Platform(&platformErr{kr: kr, op: "mach_vm_read_overwrite"})
	}
	return int(outSize), nil
}

// WriteMemory implements write_memory: a single call, all-or-nothing.
func (d *Debuggee) WriteMemory(addr types.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	kr := C.ferros_vm_write(
		C.vm_map_t(d.task),
		C.mach_vm_address_t(addr),
		C.vm_offset_t(uintptr(unsafe.Pointer(&data[0]))),
		C.mach_msg_type_number_t(len(data)),
	)
	if kr != kernSuccess {
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_vm_write"})
	}
	return nil
}

// Protect implements the current-protection half of the memory
// protection guard. It never widens maximum protection; if the kernel
// refuses, the caller (memory.ProtectionGuard) surfaces a descriptive
// error rather than retrying with a wider request.
func (d *Debuggee) Protect(addr types.Address, length uint64, prot types.Permissions) error {
	kr := C.ferros_vm_protect(
		C.vm_map_t(d.task),
		C.mach_vm_address_t(addr),
		C.mach_vm_size_t(length),
		machProt(prot),
	)
	if kr != kernSuccess {
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_vm_protect"})
	}
	return nil
}

func machProt(p types.Permissions) C.vm_prot_t {
	var prot C.vm_prot_t
	if p.Read {
		prot |= C.VM_PROT_READ
	}
	if p.Write {
		prot |= C.VM_PROT_WRITE
	}
	if p.Execute {
		prot |= C.VM_PROT_EXECUTE
	}
	return prot
}

func permsFromMach(prot C.vm_prot_t) types.Permissions {
	return types.Permissions{
		Read:    prot&C.VM_PROT_READ != 0,
		Write:   prot&C.VM_PROT_WRITE != 0,
		Execute: prot&C.VM_PROT_EXECUTE != 0,
	}
}

// Regions walks the task's virtual address space via
// mach_vm_region_recurse_64, recursing into submaps once.
func (d *Debuggee) Regions() ([]platform.RegionInfo, error) {
	var out []platform.RegionInfo
	var addr C.mach_vm_address_t
	var recursedOnce bool

	for {
		var size C.mach_vm_size_t
		var depth C.natural_t
		var info C.vm_region_submap_info_64
		infoCnt := C.mach_msg_type_number_t(C.VM_REGION_SUBMAP_INFO_COUNT_64)

		kr := C.ferros_vm_region_recurse(
			C.vm_map_t(d.task), &addr, &size, &depth,
			(*C.uint8_t)(unsafe.Pointer(&info)), &infoCnt,
		)
		if kr == C.KERN_INVALID_ADDRESS {
			break // end of address space
		}
		if kr != kernSuccess {
			return nil, ferrerr.Platform(&platformErr{kr: kr, op: "mach_vm_region_recurse_64"})
		}

		if info.is_submap != 0 && !recursedOnce {
			depth++
			recursedOnce = true
			continue
		}

		out = append(out, platform.RegionInfo{
			Start:             types.Address(addr),
			End:               types.Address(addr) + types.Address(size),
			CurrentProtection: permsFromMach(info.protection),
			MaxProtection:     permsFromMach(info.max_protection),
			IsSubmap:          info.is_submap != 0,
		})
		addr += C.mach_vm_address_t(size)
		recursedOnce = false
	}
	return out, nil
}
