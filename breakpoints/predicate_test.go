package breakpoints

import (
	"encoding/binary"
	"testing"

	"github.com/ferros-go/ferros/memory"
	"github.com/ferros-go/ferros/registers"
	"github.com/ferros-go/ferros/types"
)

func TestEvaluatePredicateNilIsUnconditional(t *testing.T) {
	if !EvaluatePredicate(nil, types.Registers{}, nil, 0) {
		t.Fatalf("expected a nil predicate to always be satisfied")
	}
}

func TestEvaluatePredicateRegisterComparison(t *testing.T) {
	regs := types.Registers{Arch: types.ArchX86_64, General: make([]uint64, len(registers.NamesFor(types.ArchX86_64)))}
	id, ok := registers.Lookup(types.ArchX86_64, "RAX")
	if !ok {
		t.Fatalf("expected RAX to resolve on x86-64")
	}
	regs.Set(id, 42)

	pred := &types.Predicate{Source: types.ConditionRegister, RegisterName: "RAX", Op: types.CondEqual, Value: 42}
	if !EvaluatePredicate(pred, regs, nil, 0) {
		t.Fatalf("expected RAX == 42 to hold")
	}

	pred.Value = 7
	if EvaluatePredicate(pred, regs, nil, 0) {
		t.Fatalf("expected RAX == 7 to fail with RAX=42")
	}
}

func TestEvaluatePredicateUnknownRegisterIsFalse(t *testing.T) {
	pred := &types.Predicate{Source: types.ConditionRegister, RegisterName: "NOPE", Op: types.CondEqual, Value: 0}
	if EvaluatePredicate(pred, types.Registers{Arch: types.ArchX86_64}, nil, 0) {
		t.Fatalf("expected an unresolved register name to evaluate false, not error")
	}
}

func TestEvaluatePredicateMemoryComparison(t *testing.T) {
	src := newFakeMemSource()
	addr := types.Address(0x5000)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, 99)
	src.WriteMemory(addr, buf)
	cache := memory.New(src, 4).Cache()

	pred := &types.Predicate{Source: types.ConditionMemory, MemoryAddress: addr, Op: types.CondGreaterEqual, Value: 50}
	if !EvaluatePredicate(pred, types.Registers{}, cache, 0) {
		t.Fatalf("expected *addr (99) >= 50 to hold")
	}

	pred.Value = 1000
	if EvaluatePredicate(pred, types.Registers{}, cache, 0) {
		t.Fatalf("expected *addr (99) >= 1000 to fail")
	}
}

func TestEvaluatePredicateHitCount(t *testing.T) {
	pred := &types.Predicate{Source: types.ConditionHitCount, Op: types.CondEqual, Value: 3}
	if EvaluatePredicate(pred, types.Registers{}, nil, 2) {
		t.Fatalf("expected hit count 2 == 3 to fail")
	}
	if !EvaluatePredicate(pred, types.Registers{}, nil, 3) {
		t.Fatalf("expected hit count 3 == 3 to hold")
	}
}
