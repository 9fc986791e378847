//go:build darwin

package darwin

/*
#cgo LDFLAGS: -framework CoreFoundation

#include <mach/mach.h>
#include <mach/mach_vm.h>
#include <mach/exception_types.h>
#include <mach/thread_status.h>
#include <mach/mach_error.h>
#include <stdlib.h>
#include <string.h>

// task_for_pid, mach_vm_region_recurse and the exception-port plumbing
// are not exposed by cgo's automatic translation of the Mach headers in
// a form Go can call directly (variadic-looking macros, bitfield
// structs), so thin C wrappers live here, mirroring the FFI boundary
// ferros-core/src/platform/macos/ffi.rs declares by hand for the same
// reason.

static kern_return_t ferros_task_for_pid(mach_port_t target, int pid, mach_port_t *task) {
	return task_for_pid(target, pid, task);
}

static kern_return_t ferros_task_threads(mach_port_t task, thread_act_array_t *threads, mach_msg_type_number_t *count) {
	return task_threads(task, threads, count);
}

static kern_return_t ferros_task_suspend(mach_port_t task) { return task_suspend(task); }
static kern_return_t ferros_task_resume(mach_port_t task) { return task_resume(task); }
static kern_return_t ferros_thread_suspend(thread_act_t t) { return thread_suspend(t); }
static kern_return_t ferros_thread_resume(thread_act_t t) { return thread_resume(t); }

static kern_return_t ferros_thread_get_state(thread_act_t t, thread_state_flavor_t flavor,
	natural_t *state, mach_msg_type_number_t *count) {
	return thread_get_state(t, flavor, (thread_state_t)state, count);
}

static kern_return_t ferros_thread_set_state(thread_act_t t, thread_state_flavor_t flavor,
	natural_t *state, mach_msg_type_number_t count) {
	return thread_set_state(t, flavor, (thread_state_t)state, count);
}

static kern_return_t ferros_vm_read_overwrite(vm_map_t task, mach_vm_address_t addr, mach_vm_size_t size,
	mach_vm_address_t out, mach_vm_size_t *outSize) {
	return mach_vm_read_overwrite(task, addr, size, out, outSize);
}

static kern_return_t ferros_vm_write(vm_map_t task, mach_vm_address_t addr, vm_offset_t data, mach_msg_type_number_t size) {
	return mach_vm_write(task, addr, data, size);
}

static kern_return_t ferros_vm_protect(vm_map_t task, mach_vm_address_t addr, mach_vm_size_t size, vm_prot_t prot) {
	return mach_vm_protect(task, addr, size, 0, prot);
}

static kern_return_t ferros_vm_region_recurse(vm_map_t task, mach_vm_address_t *addr, mach_vm_size_t *size,
	natural_t *depth, vm_region_submap_info_64_t info, mach_msg_type_number_t *infoCnt) {
	return mach_vm_region_recurse_64(task, addr, size, depth, (vm_region_recurse_info_64_t)info, infoCnt);
}

static kern_return_t ferros_port_deallocate(mach_port_t task, mach_port_t name) {
	return mach_port_deallocate(task, name);
}

static kern_return_t ferros_vm_deallocate(mach_port_t task, vm_address_t addr, mach_msg_type_number_t count) {
	return vm_deallocate(task, addr, count * sizeof(thread_act_t));
}

static mach_port_t ferros_mach_task_self(void) { return mach_task_self(); }

static kern_return_t ferros_port_allocate(mach_port_t task, mach_port_right_t right, mach_port_t *name) {
	return mach_port_allocate(task, right, name);
}

static kern_return_t ferros_port_insert_right(mach_port_t task, mach_port_t name, mach_port_t poly, mach_msg_type_name_t type) {
	return mach_port_insert_right(task, name, poly, type);
}

static kern_return_t ferros_task_set_exception_ports(mach_port_t task, exception_mask_t mask, mach_port_t port,
	exception_behavior_t behavior, thread_state_flavor_t flavor) {
	return task_set_exception_ports(task, mask, port, behavior, flavor);
}

static const char *ferros_mach_error_string(kern_return_t kr) {
	return mach_error_string(kr);
}
*/
import "C"

import "unsafe"

type kernReturn = C.kern_return_t

const kernSuccess = C.KERN_SUCCESS

func machErrorString(kr kernReturn) string {
	return C.GoString(C.ferros_mach_error_string(kr))
}

func machTaskSelf() C.mach_port_t {
	return C.ferros_mach_task_self()
}

func taskForPid(target C.mach_port_t, pid int32) (C.mach_port_t, kernReturn) {
	var task C.mach_port_t
	kr := C.ferros_task_for_pid(target, C.int(pid), &task)
	return task, kr
}

func taskThreads(task C.mach_port_t) ([]C.thread_act_t, kernReturn) {
	var arrPtr C.thread_act_array_t
	var count C.mach_msg_type_number_t
	kr := C.ferros_task_threads(task, &arrPtr, &count)
	if kr != kernSuccess {
		return nil, kr
	}
	n := int(count)
	out := make([]C.thread_act_t, n)
	slice := unsafe.Slice(arrPtr, n)
	copy(out, slice)
	C.ferros_vm_deallocate(task, C.vm_address_t(uintptr(unsafe.Pointer(arrPtr))), count)
	return out, kernSuccess
}

func portDeallocate(task, name C.mach_port_t) kernReturn {
	return C.ferros_port_deallocate(task, name)
}
