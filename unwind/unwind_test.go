package unwind

import (
	"testing"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

type fakeMem struct {
	words map[types.Address]uint64
}

func newFakeMem() *fakeMem { return &fakeMem{words: make(map[types.Address]uint64)} }

func (f *fakeMem) ReadU64(addr types.Address) (uint64, error) {
	v, ok := f.words[addr]
	if !ok {
		return 0, ferrerr.New(ferrerr.KindInvalidArgument, "no fake word at %s", addr)
	}
	return v, nil
}

type fakeImages struct {
	frames map[types.Address][]types.SymbolFrame
}

func (f *fakeImages) ImageForAddress(addr types.Address) (CFIImage, bool) { return nil, false }

func (f *fakeImages) Symbolicate(addr types.Address) ([]types.SymbolFrame, bool) {
	frames, ok := f.frames[addr]
	return frames, ok
}

func arm64Regs(pc, sp, fp types.Address) types.Registers {
	return types.Registers{
		Arch:    types.ArchArm64,
		PC:      pc,
		SP:      sp,
		FP:      fp,
		General: make([]uint64, 31),
	}
}

func TestFramePointerFallbackWalksOneFrame(t *testing.T) {
	mem := newFakeMem()
	fp := types.Address(0x7000)
	mem.words[fp] = 0x6000             // saved FP
	mem.words[fp.Add(8)] = 0xdead0000 // saved return address

	cursor := arm64Regs(0x1000, 0x7100, fp)
	next, ok := framePointerFallback(mem, cursor)
	if !ok {
		t.Fatalf("expected a frame-pointer step to succeed")
	}
	if next.PC != 0xdead0000 {
		t.Fatalf("expected pc 0xdead0000, got %s", next.PC)
	}
	if next.FP != 0x6000 {
		t.Fatalf("expected fp 0x6000, got %s", next.FP)
	}
	if next.SP != fp.Add(16) {
		t.Fatalf("expected sp fp+16, got %s", next.SP)
	}
}

func TestFramePointerFallbackFailsWithZeroFP(t *testing.T) {
	mem := newFakeMem()
	cursor := arm64Regs(0x1000, 0x7100, 0)
	if _, ok := framePointerFallback(mem, cursor); ok {
		t.Fatalf("expected failure with a zero frame pointer")
	}
}

func TestStackScanFallbackRejectsZeroAndSamePC(t *testing.T) {
	mem := newFakeMem()
	sp := types.Address(0x8000)
	mem.words[sp] = 0
	cursor := arm64Regs(0x1000, sp, 0x7000)
	if _, ok := stackScanFallback(mem, cursor); ok {
		t.Fatalf("expected a zero candidate to be rejected")
	}

	mem.words[sp] = uint64(cursor.PC)
	if _, ok := stackScanFallback(mem, cursor); ok {
		t.Fatalf("expected a candidate equal to PC to be rejected")
	}

	mem.words[sp] = 0x9999
	next, ok := stackScanFallback(mem, cursor)
	if !ok {
		t.Fatalf("expected a plausible candidate to be accepted")
	}
	if next.PC != 0x9999 || next.SP != sp.Add(8) {
		t.Fatalf("unexpected step result: %+v", next)
	}
}

func TestLinkRegisterFallbackOnlyAppliesToArm64(t *testing.T) {
	arm := arm64Regs(0x1000, 0x8000, 0x7000)
	arm.General[30] = 0x4242
	next, ok := linkRegisterFallback(arm)
	if !ok || next.PC != 0x4242 {
		t.Fatalf("expected link-register fallback to yield pc 0x4242, got %+v ok=%v", next, ok)
	}

	x86 := arm
	x86.Arch = types.ArchX86_64
	if _, ok := linkRegisterFallback(x86); ok {
		t.Fatalf("expected link-register fallback to refuse x86-64")
	}
}

func TestUnwindProducesDeterministicFrameIds(t *testing.T) {
	mem := newFakeMem()
	fp0 := types.Address(0x7000)
	fp1 := types.Address(0x7100)
	mem.words[fp0] = uint64(fp1)
	mem.words[fp0.Add(8)] = 0x2000
	mem.words[fp1] = 0
	mem.words[fp1.Add(8)] = 0

	images := &fakeImages{frames: map[types.Address][]types.SymbolFrame{}}
	u := New(mem, images)

	thread := types.ThreadId(1)
	regs := arm64Regs(0x1000, 0x7050, fp0)

	first := u.Unwind(thread, regs, 4)
	second := u.Unwind(thread, regs, 4)

	if len(first) != len(second) {
		t.Fatalf("expected identical frame counts across repeated unwinds, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Id != second[i].Id {
			t.Fatalf("frame %d id diverged: %s vs %s", i, first[i].Id, second[i].Id)
		}
	}
}

func TestUnwindRespectsFrameBudget(t *testing.T) {
	mem := newFakeMem()
	// Build a long chain of frame-pointer links so the walk could
	// continue well past any small budget if the budget were ignored.
	base := types.Address(0x10000)
	for i := 0; i < 10; i++ {
		fp := base.Add(uint64(i) * 0x100)
		next := base.Add(uint64(i+1) * 0x100)
		mem.words[fp] = uint64(next)
		mem.words[fp.Add(8)] = uint64(0x1000 + i)
	}

	images := &fakeImages{frames: map[types.Address][]types.SymbolFrame{}}
	u := New(mem, images)
	regs := arm64Regs(0x1000, 0x50, base)

	out := u.Unwind(types.ThreadId(1), regs, 3)
	if len(out) != 3 {
		t.Fatalf("expected exactly 3 frames for a budget of 3, got %d", len(out))
	}
}

func TestUnwindEmitsInlineFramesBeforePhysical(t *testing.T) {
	mem := newFakeMem()
	images := &fakeImages{frames: map[types.Address][]types.SymbolFrame{
		0x1000: {
			{Symbol: types.SymbolName{Raw: "outer"}},
			{Symbol: types.SymbolName{Raw: "inlined_inner"}},
		},
	}}
	u := New(mem, images)
	regs := arm64Regs(0x1000, 0x8000, 0)

	out := u.Unwind(types.ThreadId(1), regs, 1)
	if len(out) != 2 {
		t.Fatalf("expected one inline frame plus one physical frame, got %d", len(out))
	}
	if !out[0].Kind.Inlined {
		t.Fatalf("expected the first emitted frame to be the inline step")
	}
	if out[1].Kind.Inlined {
		t.Fatalf("expected the second emitted frame to be physical")
	}
	if out[0].Symbol.Raw != "inlined_inner" || out[1].Symbol.Raw != "outer" {
		t.Fatalf("unexpected symbol assignment: %+v / %+v", out[0].Symbol, out[1].Symbol)
	}
}

func TestUnwindWithNoSymbolAndNoFallbackStopsImmediately(t *testing.T) {
	mem := newFakeMem()
	images := &fakeImages{frames: map[types.Address][]types.SymbolFrame{}}
	u := New(mem, images)
	regs := arm64Regs(0x1000, 0x8000, 0) // fp=0 disables the frame-pointer fallback

	out := u.Unwind(types.ThreadId(1), regs, 5)
	if len(out) != 1 {
		t.Fatalf("expected exactly one frame when no unwind step is possible, got %d", len(out))
	}
	if out[0].Status != types.FrameComplete {
		t.Fatalf("expected the innermost frame's status to be Complete, got %s", out[0].Status)
	}
}
