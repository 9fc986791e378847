package symbols

import "testing"

func TestDemangleDetectsRustLegacyMangling(t *testing.T) {
	name := Demangle("_ZN4core3fmt5Write9write_fmt17h1234567890abcdefE")
	if name.Language.String() != "rust" {
		t.Fatalf("expected rust, got %s", name.Language)
	}
	if name.Demangled == nil {
		t.Fatalf("expected a demangled form")
	}
}

func TestDemanglePlainPathIsRust(t *testing.T) {
	name := Demangle("my_crate::module::function")
	if name.Language.String() != "rust" {
		t.Fatalf("expected rust for a plain :: path, got %s", name.Language)
	}
	if name.Display() != "my_crate::module::function" {
		t.Fatalf("expected the plain path retained as-is, got %s", name.Display())
	}
}

func TestDemangleDetectsCpp(t *testing.T) {
	name := Demangle("_Z3fooi")
	if name.Language.String() != "c++" {
		t.Fatalf("expected c++, got %s", name.Language)
	}
}

func TestDemangleUnknownFallsBackToRaw(t *testing.T) {
	name := Demangle("plain_c_symbol")
	if name.Language.String() != "unknown" {
		t.Fatalf("expected unknown, got %s", name.Language)
	}
	if name.Display() != "plain_c_symbol" {
		t.Fatalf("expected raw name retained, got %s", name.Display())
	}
}

func TestDemangleMalformedInputDoesNotPanic(t *testing.T) {
	name := Demangle("_ZN999")
	if name.Demangled != nil {
		t.Fatalf("expected demangling to fail gracefully on truncated input")
	}
	if name.Raw != "_ZN999" {
		t.Fatalf("expected raw name preserved")
	}
}
