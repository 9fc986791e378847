// Package unwind implements component O: walking a thread's call stack
// from a register snapshot, preferring CFI-derived steps and falling
// back to a frame-pointer walk, a stack scan, and (ARM64 only) the link
// register when CFI does not resolve a step.
package unwind

import (
	"github.com/ferros-go/ferros/types"
)

const pointerSize = 8

// MemoryAccessor is the subset of the engine's memory façade the
// unwinder needs: a single 64-bit read, used both by the CFI evaluator
// (to dereference CFA-relative rules) and the fallback walkers.
type MemoryAccessor interface {
	ReadU64(addr types.Address) (uint64, error)
}

// ImageSource locates the loaded image (and its CFI/DWARF sections)
// covering a runtime address, and symbolicates it. Satisfied by
// *symbols.Cache; a narrow interface here keeps this package free of an
// import-cycle-prone dependency on the concrete cache type.
type ImageSource interface {
	ImageForAddress(addr types.Address) (CFIImage, bool)
	Symbolicate(addr types.Address) ([]types.SymbolFrame, bool)
}

// CFIImage is the slice of *symbols.BinaryImage the unwinder reads:
// CFI sections plus the runtime<->file address conversions needed to
// interpret them.
type CFIImage interface {
	EhFrame() []byte
	EhFrameHdr() []byte
	DebugFrame() []byte
	RuntimeToFile(addr types.Address) types.Address
	FileToRuntime(addr types.Address) types.Address
}

// Unwinder produces stack_trace results for one thread.
type Unwinder struct {
	mem    MemoryAccessor
	images ImageSource
}

func New(mem MemoryAccessor, images ImageSource) *Unwinder {
	return &Unwinder{mem: mem, images: images}
}

// Unwind walks up to maxFrames physical frames (plus any inline frames
// DWARF synthesizes at each step) starting from regs, for the named
// thread. The frame-id sequence is a deterministic function of
// (thread, regs, maxFrames): repeating this call against an unchanged
// stopped state reproduces the same ids.
func (u *Unwinder) Unwind(thread types.ThreadId, regs types.Registers, maxFrames int) []types.StackFrame {
	if maxFrames <= 0 {
		return nil
	}

	var out []types.StackFrame
	cursor := regs
	// The innermost frame comes straight from the register snapshot, not
	// from any unwind step, so it carries no fallback penalty.
	status := types.FrameComplete
	depth := 0

	for depth < maxFrames {
		physicalId := types.FrameId{Thread: thread, Depth: depth, InlineDepth: 0, PC: cursor.PC, SP: cursor.SP}
		out = append(out, u.emitFrames(thread, depth, cursor, physicalId, status)...)
		depth++
		if depth >= maxFrames {
			break
		}

		next, nextStatus, ok := u.unwindOnce(cursor)
		if !ok {
			break
		}
		cursor = next
		status = nextStatus
	}
	return out
}

// emitFrames synthesizes the inline-then-physical chain for one cursor
// position: one StackFrame per inline depth (outer-to-inner), followed
// by exactly one physical frame, all sharing PC/SP/FP. The physical
// frame reuses the outermost symbolicated frame's symbol/location, per
// component O's "all sharing R.pc/sp/fp" rule. status is the quality of
// the unwind step that produced cursor (or FrameComplete for the
// innermost frame, which came directly from the register snapshot) and
// is stamped on every frame emitted here, inline and physical alike,
// since symbolication success says nothing about how the step itself
// was derived.
func (u *Unwinder) emitFrames(thread types.ThreadId, depth int, cursor types.Registers, physicalId types.FrameId, status types.FrameStatus) []types.StackFrame {
	frames, ok := u.images.Symbolicate(cursor.PC)
	if !ok || len(frames) == 0 {
		return []types.StackFrame{{
			Id:     physicalId,
			Thread: thread,
			Index:  depth,
			Kind:   types.Physical(),
			PC:     cursor.PC,
			SP:     cursor.SP,
			FP:     cursor.FP,
			Status: status,
		}}
	}

	var out []types.StackFrame
	// frames is outer-to-inner: frames[0] is the physical function,
	// frames[1:] are inline steps innermost-last. Inline frames are
	// emitted first here (outer inline call sites before the leaf),
	// matching the component O ordering: inline frames then the
	// physical frame.
	for i := 1; i < len(frames); i++ {
		sym := frames[i].Symbol
		out = append(out, types.StackFrame{
			Id:     types.FrameId{Thread: thread, Depth: depth, InlineDepth: i, PC: cursor.PC, SP: cursor.SP},
			Thread: thread,
			Index:  depth,
			Kind:   types.Inlined(physicalId, len(frames)-1-i),
			PC:     cursor.PC,
			SP:     cursor.SP,
			FP:     cursor.FP,
			Symbol: &sym,

			Location: frames[i].Location,
			Status:   status,
		})
	}

	physicalSym := frames[0].Symbol
	out = append(out, types.StackFrame{
		Id:       physicalId,
		Thread:   thread,
		Index:    depth,
		Kind:     types.Physical(),
		PC:       cursor.PC,
		SP:       cursor.SP,
		FP:       cursor.FP,
		Symbol:   &physicalSym,
		Location: frames[0].Location,
		Status:   status,
	})
	return out
}

// unwindOnce tries the fallback chain in order and returns the next
// cursor registers, tagged with the status of whichever step produced
// them, on the first step that produces one.
func (u *Unwinder) unwindOnce(cursor types.Registers) (types.Registers, types.FrameStatus, bool) {
	if img, ok := u.images.ImageForAddress(cursor.PC); ok {
		if next, ok := u.unwindViaCFI(img, cursor); ok {
			return next, types.FrameComplete, true
		}
	}
	if next, ok := framePointerFallback(u.mem, cursor); ok {
		return next, types.FrameCfiFallback, true
	}
	if next, ok := stackScanFallback(u.mem, cursor); ok {
		return next, types.FrameHeuristic, true
	}
	if next, ok := linkRegisterFallback(cursor); ok {
		return next, types.FrameHeuristic, true
	}
	return types.Registers{}, 0, false
}

// unwindViaCFI tries eh_frame, then debug_frame, matching component O
// steps a-b. Both share one FDE search and row evaluator (cfi.go); only
// the candidate section differs.
//
// TODO: when EhFrameHdr() is present, binary-search its lookup table
// for the FDE instead of falling through to the linear eh_frame scan
// below; the table's own address encoding is not yet parsed.
func (u *Unwinder) unwindViaCFI(img CFIImage, cursor types.Registers) (types.Registers, bool) {
	fileAddr := img.RuntimeToFile(cursor.PC)

	if eh := img.EhFrame(); len(eh) > 0 {
		if next, ok := stepViaSection(u.mem, eh, fileAddr, cursor); ok {
			return next, true
		}
	}
	if df := img.DebugFrame(); len(df) > 0 {
		if next, ok := stepViaSection(u.mem, df, fileAddr, cursor); ok {
			return next, true
		}
	}
	return types.Registers{}, false
}
