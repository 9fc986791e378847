// breakpoint.go - breakpoint entity types shared by the store and manager.

package types

import "time"

// BreakpointKind discriminates the three trap styles a client can
// request.
type BreakpointKind string

const (
	KindSoftware   BreakpointKind = "software"
	KindHardware   BreakpointKind = "hardware"
	KindWatchpoint BreakpointKind = "watchpoint"
)

// WatchAccess names which accesses a watchpoint should fire on.
type WatchAccess string

const (
	WatchRead      WatchAccess = "read"
	WatchWrite     WatchAccess = "write"
	WatchReadWrite WatchAccess = "read_write"
)

// BreakpointState is the lifecycle of one breakpoint entry:
// Requested -> Resolved -> (Disabled <-> Resolved) -> removed.
type BreakpointState string

const (
	StateRequested BreakpointState = "requested"
	StateResolved  BreakpointState = "resolved"
	StateDisabled  BreakpointState = "disabled"
)

// ConditionSource names what a breakpoint predicate compares.
type ConditionSource int

const (
	ConditionRegister ConditionSource = iota
	ConditionMemory
	ConditionHitCount
)

// ConditionOp is the comparison operator of a breakpoint predicate.
type ConditionOp int

const (
	CondEqual ConditionOp = iota
	CondNotEqual
	CondLess
	CondGreater
	CondLessEqual
	CondGreaterEqual
)

// Predicate is an optional evaluated-on-hit condition attached to a
// breakpoint request. When Source is ConditionRegister, RegisterName
// must match a register the target architecture defines; when
// ConditionMemory, MemoryAddress names the 64-bit word compared; when
// ConditionHitCount, the running hit count is compared directly.
type Predicate struct {
	Source       ConditionSource
	RegisterName string
	MemoryAddress Address
	Op           ConditionOp
	Value        uint64
}

// BreakpointRequest carries the creation parameters for add_breakpoint.
type BreakpointRequest struct {
	Address   Address
	Kind      BreakpointKind
	Length    uint64      // watchpoints only
	Access    WatchAccess // watchpoints only
	Predicate *Predicate  // optional; nil means unconditional
	Thread    *ThreadId   // optional; nil means fires on any thread
}

// BreakpointId is a unique, non-zero, wrapping-allocated identifier.
type BreakpointId uint64

// BreakpointInfo is the client-visible snapshot of one breakpoint.
type BreakpointInfo struct {
	Id           BreakpointId
	Address      Address
	Kind         BreakpointKind
	State        BreakpointState
	Enabled      bool
	HitCount     uint64
	RequestedAt  time.Time
	ResolvedAt   time.Time
	WatchAccess  WatchAccess // zero value when Kind != KindWatchpoint
	WatchLength  uint64      // zero value when Kind != KindWatchpoint
	Predicate    *Predicate
	Thread       *ThreadId
}
