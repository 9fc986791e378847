//go:build darwin

package darwin

/*
#include <mach/kern_return.h>
*/
import "C"

import "github.com/ferros-go/ferros/platform"

// platformErr adapts a kern_return_t to the platform.Error taxonomy so
// the façade's ferrerr.Platform wrapper has a stable code to branch on
// instead of a bare integer.
type platformErr struct {
	kr kernReturn
	op string
}

func (e *platformErr) Error() string {
	return (&platform.Error{Code: e.code(), NativeCode: int64(e.kr), Message: e.op + ": " + machErrorString(e.kr)}).Error()
}

func (e *platformErr) code() platform.ErrorCode {
	switch e.kr {
	case C.KERN_PROTECTION_FAILURE:
		return platform.ErrProtectionFailure
	case C.KERN_INVALID_ARGUMENT:
		return platform.ErrInvalidArgument
	case C.KERN_FAILURE:
		return platform.ErrProcessNotFound
	default:
		return platform.ErrUnknown
	}
}
