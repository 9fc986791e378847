// Package ferrerr is the engine's tagged error taxonomy.
//
// A single exported *Error type carries a Kind plus context; callers
// compare kinds with errors.Is against the Kind sentinels below rather
// than type-asserting, so a wrapped *Error (via fmt.Errorf("...: %w", err))
// still matches.

package ferrerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the taxonomy. Kind itself is not an error; the
// exported sentinels (e.g. ferrerr.NotAttached) are the errors.Is
// targets: errors.Is(err, ferrerr.NotAttached).
type Kind int

const (
	KindProcessNotFound Kind = iota
	KindPermissionDenied
	KindInvalidArgument
	KindAttachFailed
	KindNotAttached
	KindNotStopped
	KindNoBreakpoint
	KindBreakpointIdNotFound
	KindResourceExhausted
	KindSuspendFailed
	KindResumeFailed
	KindReadRegistersFailed
	KindWriteRegistersFailed
	KindPlatform
	KindIo
)

var kindNames = map[Kind]string{
	KindProcessNotFound:      "process_not_found",
	KindPermissionDenied:     "permission_denied",
	KindInvalidArgument:      "invalid_argument",
	KindAttachFailed:         "attach_failed",
	KindNotAttached:          "not_attached",
	KindNotStopped:           "not_stopped",
	KindNoBreakpoint:         "no_breakpoint",
	KindBreakpointIdNotFound: "breakpoint_id_not_found",
	KindResourceExhausted:    "resource_exhausted",
	KindSuspendFailed:        "suspend_failed",
	KindResumeFailed:         "resume_failed",
	KindReadRegistersFailed:  "read_registers_failed",
	KindWriteRegistersFailed: "write_registers_failed",
	KindPlatform:             "platform",
	KindIo:                   "io",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Error is the engine's single error type. Every operation that can fail
// returns one (or wraps one), never a bare string.
type Error struct {
	Kind Kind

	// Context fields; only the ones relevant to Kind are populated.
	Message   string
	Pid       int32
	Thread    *uint32
	Address   *uint64
	Id        uint64
	Operation string
	Err       error // wrapped underlying cause, e.g. a PlatformError or os.PathError
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch e.Kind {
	case KindProcessNotFound:
		return fmt.Sprintf("process not found: pid %d", e.Pid)
	case KindNoBreakpoint:
		if e.Address != nil {
			return fmt.Sprintf("no breakpoint at 0x%x", *e.Address)
		}
	case KindBreakpointIdNotFound:
		return fmt.Sprintf("no breakpoint with id %d", e.Id)
	case KindReadRegistersFailed, KindWriteRegistersFailed:
		if e.Thread != nil {
			return fmt.Sprintf("%s failed on thread %d: %s", e.Operation, *e.Thread, msg)
		}
		return fmt.Sprintf("%s failed: %s", e.Operation, msg)
	}
	if msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is implements errors.Is against the bare Kind sentinels so callers can
// write errors.Is(err, ferrerr.NotAttached) without caring about context.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

// kindSentinel lets a bare Kind value act as an errors.Is target.
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

func sentinel(k Kind) error { return &kindSentinel{kind: k} }

// Sentinels for errors.Is comparisons against state errors that carry no
// extra context.
var (
	NotAttached = sentinel(KindNotAttached)
	NotStopped  = sentinel(KindNotStopped)
)

// New builds a plain *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func ProcessNotFound(pid int32) *Error {
	return &Error{Kind: KindProcessNotFound, Pid: pid}
}

func PermissionDenied(msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: msg}
}

func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func AttachFailed(msg string) *Error {
	return &Error{Kind: KindAttachFailed, Message: msg}
}

func NotAttachedErr() *Error { return &Error{Kind: KindNotAttached} }
func NotStoppedErr() *Error  { return &Error{Kind: KindNotStopped} }

func NoBreakpoint(addr uint64) *Error {
	return &Error{Kind: KindNoBreakpoint, Address: &addr}
}

func BreakpointIdNotFound(id uint64) *Error {
	return &Error{Kind: KindBreakpointIdNotFound, Id: id}
}

func ResourceExhausted(msg string) *Error {
	return &Error{Kind: KindResourceExhausted, Message: msg}
}

func SuspendFailed(msg string) *Error {
	return &Error{Kind: KindSuspendFailed, Message: msg}
}

func ResumeFailed(msg string) *Error {
	return &Error{Kind: KindResumeFailed, Message: msg}
}

func ReadRegistersFailed(operation string, thread *uint32, details string) *Error {
	return &Error{Kind: KindReadRegistersFailed, Operation: operation, Thread: thread, Message: details}
}

func WriteRegistersFailed(operation string, thread *uint32, details string) *Error {
	return &Error{Kind: KindWriteRegistersFailed, Operation: operation, Thread: thread, Message: details}
}

func Io(err error) *Error {
	return &Error{Kind: KindIo, Err: err}
}

// Platform wraps a platform-native failure (see platform.Error) without
// this package needing to import the platform package back.
func Platform(err error) *Error {
	return &Error{Kind: KindPlatform, Err: err}
}
