package symbols

import (
	"debug/dwarf"

	"github.com/ferros-go/ferros/types"
)

// resolveFrames finds the function (and any inlined calls) containing
// fileAddr and returns the outer-to-inner SymbolFrame chain: the
// physical function first, then any DW_TAG_inlined_subroutine whose
// PC range also contains fileAddr, innermost last.
func resolveFrames(d *dwarf.Data, fileAddr types.Address) []types.SymbolFrame {
	r := d.Reader()

	for {
		entry, err := r.Next()
		if err != nil || entry == nil {
			return nil
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}
		if !containsPC(entry, fileAddr) {
			r.SkipChildren()
			continue
		}
		return walkFunctions(d, r, entry, fileAddr)
	}
}

// walkFunctions descends into one compile unit's children looking for
// DW_TAG_subprogram DIEs whose PC range contains fileAddr, then
// recurses into any DW_TAG_inlined_subroutine children doing the same.
func walkFunctions(d *dwarf.Data, r *dwarf.Reader, cu *dwarf.Entry, fileAddr types.Address) []types.SymbolFrame {
	for {
		entry, err := r.Next()
		if err != nil || entry == nil || entry.Tag == 0 {
			return nil
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}
		if !containsPC(entry, fileAddr) {
			r.SkipChildren()
			continue
		}
		frame := types.SymbolFrame{Symbol: functionName(entry)}
		frame.Location = lineForPC(d, cu, fileAddr)
		inlined := walkInlined(r, fileAddr)
		return append([]types.SymbolFrame{frame}, inlined...)
	}
}

func walkInlined(r *dwarf.Reader, fileAddr types.Address) []types.SymbolFrame {
	var chain []types.SymbolFrame
	for {
		entry, err := r.Next()
		if err != nil || entry == nil || entry.Tag == 0 {
			return chain
		}
		if entry.Tag != dwarf.TagInlinedSubroutine {
			r.SkipChildren()
			continue
		}
		if !containsPC(entry, fileAddr) {
			r.SkipChildren()
			continue
		}
		chain = append(chain, types.SymbolFrame{Symbol: functionName(entry)})
	}
}

func containsPC(entry *dwarf.Entry, fileAddr types.Address) bool {
	low, lowOk := entry.Val(dwarf.AttrLowpc).(uint64)
	if !lowOk {
		// No PC range on this DIE (e.g. an abstract inline instance);
		// treat as not matching rather than guessing.
		return false
	}
	high, highOk := highPC(entry, low)
	if !highOk {
		return uint64(fileAddr) == low
	}
	return uint64(fileAddr) >= low && uint64(fileAddr) < high
}

// highPC resolves DW_AT_high_pc, which per DWARF4+ may be either an
// absolute address (class address) or an offset from low_pc
// (class constant).
func highPC(entry *dwarf.Entry, low uint64) (uint64, bool) {
	switch v := entry.Val(dwarf.AttrHighpc).(type) {
	case uint64:
		if v > low {
			return v, true
		}
		return low + v, true
	case int64:
		return low + uint64(v), true
	default:
		return 0, false
	}
}

func functionName(entry *dwarf.Entry) types.SymbolName {
	name, _ := entry.Val(dwarf.AttrName).(string)
	if name == "" {
		name = "<unknown>"
	}
	return Demangle(name)
}

// lineForPC resolves fileAddr through cu's line table, returning the
// tightest preceding row. A nil result means no line entry matched,
// which is non-fatal: the caller still reports the function-level
// frame without a source location.
func lineForPC(d *dwarf.Data, cu *dwarf.Entry, fileAddr types.Address) *types.SourceLocation {
	if cu == nil {
		return nil
	}
	lr, err := d.LineReader(cu)
	if err != nil || lr == nil {
		return nil
	}
	var entry dwarf.LineEntry
	var best *dwarf.LineEntry
	for {
		if err := lr.Next(&entry); err != nil {
			break
		}
		if entry.Address > uint64(fileAddr) {
			continue
		}
		e := entry
		if best == nil || e.Address > best.Address {
			best = &e
		}
	}
	if best == nil {
		return nil
	}
	line := best.Line
	col := best.Column
	return &types.SourceLocation{File: best.File.Name, Line: &line, Column: &col}
}
