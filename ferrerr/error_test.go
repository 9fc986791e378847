package ferrerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesBareKind(t *testing.T) {
	err := NotAttachedErr()
	if !errors.Is(err, NotAttached) {
		t.Fatalf("expected errors.Is(err, NotAttached) to hold")
	}
	if errors.Is(err, NotStopped) {
		t.Fatalf("did not expect NotAttached to match NotStopped")
	}
}

func TestIsMatchesThroughWrap(t *testing.T) {
	inner := NotAttachedErr()
	wrapped := fmt.Errorf("attach: %w", inner)
	if !errors.Is(wrapped, NotAttached) {
		t.Fatalf("expected wrapped error to still match NotAttached")
	}
}

func TestBreakpointIdNotFoundMessage(t *testing.T) {
	err := BreakpointIdNotFound(42)
	want := "no breakpoint with id 42"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindIo, cause, "reading foo")
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}
