package main

import (
	"testing"

	"github.com/ferros-go/ferros/debugger"
)

func TestParseAddressAcceptsHexAndDecimal(t *testing.T) {
	addr, err := parseAddress("0x1000")
	if err != nil {
		t.Fatalf("parseAddress hex: %v", err)
	}
	if uint64(addr) != 0x1000 {
		t.Fatalf("unexpected address value: %v", addr)
	}

	addr2, err := parseAddress("4096")
	if err != nil {
		t.Fatalf("parseAddress decimal: %v", err)
	}
	if uint64(addr2) != 4096 {
		t.Fatalf("expected 4096, got %d", addr2)
	}
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	if _, err := parseAddress("not-an-address"); err == nil {
		t.Fatal("expected an error for garbage input")
	}
}

func TestParseThreadIdRejectsGarbage(t *testing.T) {
	if _, err := parseThreadId("nope"); err == nil {
		t.Fatal("expected an error for garbage input")
	}
}

func TestWithAttachedRequiresOneTarget(t *testing.T) {
	s := &session{}
	err := s.withAttached(attachFlags{}, func(d *debugger.Debugger) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected an error when neither --pid nor --launch is set")
	}
}
