//go:build darwin

package darwin

/*
#include <mach/mach.h>
#include <mach/mach_error.h>
#include <mach/message.h>
#include <mach/exception_types.h>
#include <mach/ndr.h>
#include <string.h>

// The exception_raise request/reply wire format below mirrors the
// mach_exc MIG subsystem (mach_exc.defs) compiled with
// MACH_EXCEPTION_CODES, the format every Darwin debugger (lldb
// included) receives on its exception port. cgo cannot run the MIG
// compiler, so the struct layout is reproduced by hand, matching
// ferros-core/src/platform/macos/exception.rs's own hand-rolled struct.
typedef struct {
	mach_msg_header_t header;
	mach_msg_body_t body;
	mach_msg_port_descriptor_t thread;
	mach_msg_port_descriptor_t task;
	NDR_record_t ndr;
	exception_type_t exception;
	mach_msg_type_number_t code_count;
	int64_t code[2];
} ferros_exc_request_t;

typedef struct {
	mach_msg_header_t header;
	NDR_record_t ndr;
	kern_return_t ret_code;
} ferros_exc_reply_t;

static kern_return_t ferros_mach_msg_receive(mach_port_t port, void *buf, mach_msg_size_t bufSize, mach_msg_timeout_t timeoutMs) {
	mach_msg_header_t *hdr = (mach_msg_header_t *)buf;
	return mach_msg(hdr, MACH_RCV_MSG | MACH_RCV_TIMEOUT, 0, bufSize, port, timeoutMs, MACH_PORT_NULL);
}

static kern_return_t ferros_exc_reply(mach_port_t replyPort, mach_msg_header_t *requestHeader, kern_return_t retCode) {
	ferros_exc_reply_t reply;
	memset(&reply, 0, sizeof(reply));
	reply.header.msgh_bits = MACH_MSGH_BITS(MACH_MSGH_BITS_REMOTE(requestHeader->msgh_bits), 0);
	reply.header.msgh_size = sizeof(reply);
	reply.header.msgh_remote_port = requestHeader->msgh_remote_port;
	reply.header.msgh_local_port = MACH_PORT_NULL;
	reply.header.msgh_id = requestHeader->msgh_id + 100; // MIG reply id convention
	reply.ndr = NDR_record;
	reply.ret_code = retCode;
	return mach_msg(&reply.header, MACH_SEND_MSG, sizeof(reply), 0, MACH_PORT_NULL, MACH_MSG_TIMEOUT_NONE, MACH_PORT_NULL);
}

static size_t ferros_exc_request_size(void) { return sizeof(ferros_exc_request_t); }
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// excMaskAll covers every exception this engine cares about: bad
// access, bad instruction, arithmetic, software (breakpoint traps), and
// breakpoint itself. EXC_MASK_ALL is deliberately not used so the
// debuggee's own crash reporter can still see exception classes this
// engine does not claim.
const excMaskAll = C.EXC_MASK_BAD_ACCESS | C.EXC_MASK_BAD_INSTRUCTION |
	C.EXC_MASK_ARITHMETIC | C.EXC_MASK_SOFTWARE | C.EXC_MASK_BREAKPOINT

// InstallExceptionHandling allocates a receive right, inserts a send
// right the kernel can use to deliver to it, then registers it as the
// task's exception port for the classes this engine handles, requesting
// EXCEPTION_DEFAULT with MACH_EXCEPTION_CODES behavior (64-bit code
// values).
func (d *Debuggee) InstallExceptionHandling() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	port, kr := C.mach_port_t(0), kernReturn(0)
	kr = C.ferros_port_allocate(machTaskSelf(), C.MACH_PORT_RIGHT_RECEIVE, &port)
	if kr != kernSuccess {
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_port_allocate"})
	}
	if kr = C.ferros_port_insert_right(machTaskSelf(), port, port, C.MACH_MSG_TYPE_MAKE_SEND); kr != kernSuccess {
		portDeallocate(machTaskSelf(), port)
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_port_insert_right"})
	}

	behavior := C.exception_behavior_t(C.EXCEPTION_DEFAULT | C.MACH_EXCEPTION_CODES)
	kr = C.ferros_task_set_exception_ports(d.task, C.exception_mask_t(excMaskAll), port, behavior, 0)
	if kr != kernSuccess {
		portDeallocate(machTaskSelf(), port)
		return ferrerr.Platform(&platformErr{kr: kr, op: "task_set_exception_ports"})
	}

	d.exceptionPort = port
	d.exceptionSet = true
	return nil
}

// classify maps a raw Mach exception_type_t to the platform-neutral
// ExceptionKind.
func classify(exc C.exception_type_t) platform.ExceptionKind {
	switch exc {
	case C.EXC_BREAKPOINT:
		return platform.ExceptionBreakpoint
	case C.EXC_BAD_ACCESS:
		return platform.ExceptionBadAccess
	case C.EXC_BAD_INSTRUCTION:
		return platform.ExceptionBadInstruction
	case C.EXC_ARITHMETIC:
		return platform.ExceptionArithmetic
	case C.EXC_SOFTWARE:
		return platform.ExceptionSoftware
	default:
		return platform.ExceptionUnknown
	}
}

// ReceiveException blocks for the next message on the exception port,
// polling ctx.Done() between bounded mach_msg timeouts since the
// syscall itself isn't cancellable.
func (d *Debuggee) ReceiveException(ctx context.Context) (platform.ExceptionMessage, error) {
	d.mu.Lock()
	port := d.exceptionPort
	set := d.exceptionSet
	d.mu.Unlock()
	if !set {
		return platform.ExceptionMessage{}, ferrerr.NotAttachedErr()
	}

	timeoutMs := C.mach_msg_timeout_t(platform.DefaultReceiveTimeout().Milliseconds())
	var req C.ferros_exc_request_t

	for {
		select {
		case <-ctx.Done():
			return platform.ExceptionMessage{}, ctx.Err()
		default:
		}

		kr := C.ferros_mach_msg_receive(port, unsafe.Pointer(&req), C.mach_msg_size_t(C.ferros_exc_request_size()), timeoutMs)
		if kr == C.MACH_RCV_TIMED_OUT {
			continue
		}
		if kr != kernSuccess {
			return platform.ExceptionMessage{}, ferrerr.Platform(&platformErr{kr: kr, op: "mach_msg(receive exception)"})
		}

		d.mu.Lock()
		d.lastRequestHeader = req.header
		d.mu.Unlock()

		codes := make([]int64, 0, int(req.code_count))
		for i := 0; i < int(req.code_count) && i < 2; i++ {
			codes = append(codes, int64(req.code[i]))
		}
		return platform.ExceptionMessage{
			Thread: types.ThreadId(req.thread.name),
			Kind:   classify(req.exception),
			Codes:  codes,
		}, nil
	}
}

// ReplyException sends a MIG-shaped reply with KERN_SUCCESS (swallow
// the exception, the thread continues or is resumed by a later explicit
// ResumeThread call) or KERN_FAILURE (let the default handler / crash
// reporter take it, meaning the engine declined to claim it).
func (d *Debuggee) ReplyException(msg platform.ExceptionMessage, success bool) error {
	d.mu.Lock()
	hdr := d.lastRequestHeader
	d.mu.Unlock()

	ret := C.kern_return_t(C.KERN_FAILURE)
	if success {
		ret = C.KERN_SUCCESS
	}
	kr := C.ferros_exc_reply(hdr.msgh_remote_port, &hdr, ret)
	if kr != kernSuccess {
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_msg(reply exception)"})
	}
	return nil
}
