// Package platform error types: platform-native error codes translated
// to named variants that ferrerr.Platform wraps.

package platform

import "fmt"

// ErrorCode names a platform-native failure in a way the rest of the
// engine can reason about without knowing the originating kernel's
// numbering.
type ErrorCode int

const (
	ErrProtectionFailure ErrorCode = iota
	ErrInvalidArgument
	ErrProcessNotFound
	ErrUnknown
)

// Error wraps a platform-native return code. Darwin and (eventually)
// Linux backends construct these from kern_return_t / errno and the
// façade's error taxonomy wraps them with ferrerr.Platform.
type Error struct {
	Code       ErrorCode
	NativeCode int64
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform error %s (native %d): %s", e.codeName(), e.NativeCode, e.Message)
	}
	return fmt.Sprintf("platform error %s (native %d)", e.codeName(), e.NativeCode)
}

func (e *Error) codeName() string {
	switch e.Code {
	case ErrProtectionFailure:
		return "protection_failure"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrProcessNotFound:
		return "process_not_found"
	default:
		return "unknown"
	}
}

// ErrUnsupportedPlatform is returned by backends (e.g. the Linux stub)
// that do not yet implement Debuggee.
var ErrUnsupportedPlatform = &Error{Code: ErrUnknown, Message: "platform not supported by this build"}
