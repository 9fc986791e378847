// stack.go - unwound stack frame description.

package types

import "fmt"

// FrameKind discriminates a physical call frame from a synthesized
// inline frame that shares its physical frame's stack storage.
type FrameKind struct {
	Inlined     bool
	PhysicalId  FrameId // valid when Inlined
	InlineDepth int     // valid when Inlined; 0 is the innermost inline step
}

func Physical() FrameKind { return FrameKind{} }

func Inlined(physical FrameId, depth int) FrameKind {
	return FrameKind{Inlined: true, PhysicalId: physical, InlineDepth: depth}
}

// FrameStatus labels the quality of the step that produced a frame.
type FrameStatus int

const (
	FrameComplete    FrameStatus = iota // CFI resolved the step exactly
	FrameCfiFallback                    // frame-pointer walk used
	FrameHeuristic                      // stack scan or link-register guess used
)

func (s FrameStatus) String() string {
	switch s {
	case FrameComplete:
		return "complete"
	case FrameCfiFallback:
		return "cfi_fallback"
	case FrameHeuristic:
		return "heuristic"
	default:
		return "?"
	}
}

// FrameId deterministically names one emitted frame so repeated unwinds
// of the same stopped state produce identical ids.
type FrameId struct {
	Thread      ThreadId
	Depth       int
	InlineDepth int
	PC          Address
	SP          Address
}

func (f FrameId) String() string {
	return fmt.Sprintf("%s:%d.%d@%s/%s", f.Thread, f.Depth, f.InlineDepth, f.PC, f.SP)
}

// StackFrame is one entry in a stack_trace result.
type StackFrame struct {
	Id            FrameId
	Thread        ThreadId
	Index         int // ordered position, 0 = innermost
	Kind          FrameKind
	PC            Address
	SP            Address
	FP            Address
	ReturnAddress *Address
	Symbol        *SymbolName
	Location      *SourceLocation
	Status        FrameStatus
}
