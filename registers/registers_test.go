package registers

import (
	"testing"

	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

type fakeAccessor struct {
	general map[types.ThreadId][]byte
	vector  map[types.ThreadId][]byte
}

func newFakeAccessor(generalWords, vectorWords int) *fakeAccessor {
	return &fakeAccessor{
		general: map[types.ThreadId][]byte{1: make([]byte, generalWords*4)},
		vector:  map[types.ThreadId][]byte{1: make([]byte, vectorWords*4)},
	}
}

func (f *fakeAccessor) ReadRegisters(thread types.ThreadId, flavor platform.RegisterFlavor) ([]byte, error) {
	var m map[types.ThreadId][]byte
	if flavor == platform.FlavorGeneral {
		m = f.general
	} else {
		m = f.vector
	}
	buf := make([]byte, len(m[thread]))
	copy(buf, m[thread])
	return buf, nil
}

func (f *fakeAccessor) WriteRegisters(thread types.ThreadId, flavor platform.RegisterFlavor, data []byte) error {
	if flavor == platform.FlavorGeneral {
		f.general[thread] = append([]byte(nil), data...)
	} else {
		f.vector[thread] = append([]byte(nil), data...)
	}
	return nil
}

func TestARM64RoundTrip(t *testing.T) {
	acc := newFakeAccessor(arm64GPWords, flavorArmNeonWordsForTest())
	mgr := NewManager(acc, types.ArchArm64)

	r, err := mgr.ReadGeneral(1)
	if err != nil {
		t.Fatalf("ReadGeneral: %v", err)
	}
	r.PC = 0x100000
	r.SP = 0x7ffee000
	r.General[0] = 0xdeadbeef
	if err := mgr.WriteGeneral(1, r); err != nil {
		t.Fatalf("WriteGeneral: %v", err)
	}

	got, err := mgr.ReadGeneral(1)
	if err != nil {
		t.Fatalf("ReadGeneral after write: %v", err)
	}
	if got.PC != r.PC || got.SP != r.SP || got.General[0] != r.General[0] {
		t.Fatalf("round trip mismatch: got %+v, want PC=%s SP=%s X0=%#x", got, r.PC, r.SP, r.General[0])
	}
}

func TestX86_64RoundTrip(t *testing.T) {
	acc := newFakeAccessor(x86GPWords, 131)
	mgr := NewManager(acc, types.ArchX86_64)

	r, err := mgr.ReadGeneral(1)
	if err != nil {
		t.Fatalf("ReadGeneral: %v", err)
	}
	r.PC = 0x555500000000
	r.SP = 0x7fffffffe000
	r.FP = 0x7fffffffe010
	r.Status = 0x246
	if err := mgr.WriteGeneral(1, r); err != nil {
		t.Fatalf("WriteGeneral: %v", err)
	}

	got, err := mgr.ReadGeneral(1)
	if err != nil {
		t.Fatalf("ReadGeneral after write: %v", err)
	}
	if got.PC != r.PC || got.SP != r.SP || got.FP != r.FP || got.Status != r.Status {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestLookupSpecialFields(t *testing.T) {
	if _, ok := Lookup(types.ArchArm64, "PC"); !ok {
		t.Fatalf("expected PC to resolve")
	}
	if _, ok := Lookup(types.ArchArm64, "NOT_A_REGISTER"); ok {
		t.Fatalf("expected unknown register name to fail lookup")
	}
	id, ok := Lookup(types.ArchX86_64, "RAX")
	if !ok {
		t.Fatalf("expected RAX to resolve")
	}
	if id.Name() != "RAX" {
		t.Fatalf("Name() = %q, want RAX", id.Name())
	}
}

// flavorArmNeonWordsForTest avoids importing the darwin package (which
// carries a darwin build tag) just for its word-count constant.
func flavorArmNeonWordsForTest() int { return 32*4 + 2 }
