// Package symbols implements components M and N: the binary image
// loader, symbol cache, and demangler.
package symbols

import (
	"strings"

	"github.com/ferros-go/ferros/types"
)

// Demangle best-effort-detects the source language from a mangled name's
// prefix/pattern and produces a demangled display form. Failure is
// non-fatal: the raw name is always retained in SymbolName.Raw, and
// Demangled is left nil when no simplification was possible.
func Demangle(raw string) types.SymbolName {
	lang := detectLanguage(raw)
	name := types.SymbolName{Raw: raw, Language: lang}

	var demangled string
	var ok bool
	switch lang {
	case types.LangRust:
		demangled, ok = demangleRust(raw)
	case types.LangCpp:
		demangled, ok = demangleCpp(raw)
	default:
		ok = false
	}
	if ok {
		name.Demangled = &demangled
	}
	return name
}

func detectLanguage(raw string) types.Language {
	switch {
	case strings.HasPrefix(raw, "_R"), strings.HasPrefix(raw, "_ZN"), strings.Contains(raw, "::"):
		return types.LangRust
	case strings.HasPrefix(raw, "_Z"):
		return types.LangCpp
	default:
		return types.LangUnknown
	}
}

// demangleRust handles the legacy `_ZN...E` and v0 `_R...` mangling
// schemes loosely: legacy mangling is a sequence of
// <len><segment> components terminated by E; v0 mangling is left as a
// structural best-effort (strip the _R prefix and hash suffix). Neither
// path implements the full grammar; both degrade to "not demangled"
// rather than panicking on malformed input.
func demangleRust(raw string) (string, bool) {
	if strings.Contains(raw, "::") && !strings.HasPrefix(raw, "_ZN") && !strings.HasPrefix(raw, "_R") {
		// Already a plain path (e.g. a DWARF-native Rust symbol name);
		// nothing to demangle.
		return raw, true
	}
	if strings.HasPrefix(raw, "_ZN") {
		segs, ok := parseLegacySegments(raw[3:])
		if !ok || len(segs) == 0 {
			return "", false
		}
		return strings.Join(segs, "::"), true
	}
	if strings.HasPrefix(raw, "_R") {
		trimmed := strings.TrimPrefix(raw, "_R")
		if idx := strings.LastIndexByte(trimmed, '_'); idx > 0 {
			trimmed = trimmed[:idx]
		}
		return trimmed, true
	}
	return "", false
}

// parseLegacySegments reads <len><name> components up to a terminating
// 'E', per the legacy Itanium-derived scheme Rust's rustc also emits.
func parseLegacySegments(body string) ([]string, bool) {
	var segs []string
	i := 0
	for i < len(body) {
		if body[i] == 'E' {
			return segs, true
		}
		start := i
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
		if i == start {
			return nil, false
		}
		n := 0
		for _, c := range body[start:i] {
			n = n*10 + int(c-'0')
		}
		if i+n > len(body) {
			return nil, false
		}
		segs = append(segs, body[i:i+n])
		i += n
	}
	return segs, len(segs) > 0
}

// demangleCpp handles the Itanium `_Z` scheme to the same depth as the
// Rust legacy path: nested-name segments plus a best-effort skip of
// trailing type-encoding bytes this package does not fully model.
func demangleCpp(raw string) (string, bool) {
	body := strings.TrimPrefix(raw, "_Z")
	if strings.HasPrefix(body, "N") {
		segs, ok := parseLegacySegments(body[1:])
		if !ok || len(segs) == 0 {
			return "", false
		}
		return strings.Join(segs, "::"), true
	}
	// A non-nested function name is <len><name> followed by argument
	// encoding; report just the name.
	i, n := 0, 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		n = n*10 + int(body[i]-'0')
		i++
	}
	if i > 0 && n > 0 && i+n <= len(body) {
		return body[i : i+n], true
	}
	return "", false
}
