package symbols

import (
	"strings"

	"debug/dwarf"

	"github.com/ferros-go/ferros/types"
)

const maxTypeRefHops = 32

// describeType walks d's compile units and type units looking for a
// struct/class/union/enumeration DIE matching name, including the
// lenient "::name" suffix variant (a qualified name whose last segment
// matches). Matches are reclassified per the heuristics in component M:
// a DW_TAG_variant_part child promotes a struct to Enum; a name
// containing "dyn " promotes it to TraitObject; Go-shaped names
// (map[...]... or a leading "[]") are classified Map/Slice.
func describeType(d *dwarf.Data, name string) (types.TypeSummary, bool) {
	r := d.Reader()
	for {
		entry, err := r.Next()
		if err != nil || entry == nil {
			break
		}
		if !isTypeTag(entry.Tag) {
			continue
		}
		dieName, _ := entry.Val(dwarf.AttrName).(string)
		if !nameMatches(dieName, name) {
			continue
		}
		return buildSummary(d, r, entry, dieName), true
	}
	return types.TypeSummary{}, false
}

func isTypeTag(tag dwarf.Tag) bool {
	switch tag {
	case dwarf.TagStructType, dwarf.TagClassType, dwarf.TagUnionType, dwarf.TagEnumerationType:
		return true
	default:
		return false
	}
}

func nameMatches(dieName, want string) bool {
	if dieName == want {
		return true
	}
	// Lenient "::name" variant: the DIE's name is a qualified path whose
	// final segment equals want.
	if idx := strings.LastIndex(dieName, "::"); idx >= 0 {
		return dieName[idx+2:] == want
	}
	return false
}

func buildSummary(d *dwarf.Data, r *dwarf.Reader, entry *dwarf.Entry, dieName string) types.TypeSummary {
	summary := types.TypeSummary{Name: dieName, Kind: kindFromTag(entry.Tag)}

	if sz, ok := entry.Val(dwarf.AttrByteSize).(int64); ok {
		bits := sz * 8
		summary.SizeBits = &bits
	}

	hasVariantPart := false
	depth := 0
	for {
		child, err := r.Next()
		if err != nil || child == nil || child.Tag == 0 {
			break
		}
		switch child.Tag {
		case dwarf.TagMember:
			summary.Fields = append(summary.Fields, fieldFromMember(d, child))
		case dwarf.TagVariantPart:
			hasVariantPart = true
			summary.Variants = append(summary.Variants, variantNames(r)...)
		case dwarf.TagEnumerator:
			if vname, ok := child.Val(dwarf.AttrName).(string); ok {
				summary.Variants = append(summary.Variants, vname)
			}
		}
		depth++
		if depth > 4096 {
			break // pathological DIE tree; stop rather than loop forever
		}
		r.SkipChildren()
	}

	if hasVariantPart && summary.Kind == types.TypeStruct {
		summary.Kind = types.TypeEnum
	}
	if strings.Contains(dieName, "dyn ") {
		summary.Kind = types.TypeTraitObject
	}
	if goKind, ok := goShapeKind(dieName); ok {
		summary.Kind = goKind
	}
	return summary
}

// IsAsyncStateMachine classifies a TypeSummary as compiler-generated
// coroutine/future state by joint presence of state/await/future-named
// fields or Pending/Ready-like variant names, matching component M's
// heuristic for recognizing `async fn` desugaring.
func IsAsyncStateMachine(summary types.TypeSummary) bool {
	hasStateField := false
	for _, f := range summary.Fields {
		lower := strings.ToLower(f.Name)
		if strings.Contains(lower, "state") || strings.Contains(lower, "await") || strings.Contains(lower, "future") {
			hasStateField = true
			break
		}
	}
	for _, v := range summary.Variants {
		lower := strings.ToLower(v)
		if strings.Contains(lower, "pending") || strings.Contains(lower, "ready") {
			return true
		}
	}
	return hasStateField && summary.Kind == types.TypeEnum
}

func kindFromTag(tag dwarf.Tag) types.TypeKind {
	switch tag {
	case dwarf.TagClassType:
		return types.TypeClass
	case dwarf.TagUnionType:
		return types.TypeUnion
	case dwarf.TagEnumerationType:
		return types.TypeEnum
	default:
		return types.TypeStruct
	}
}

// goShapeKind recognizes the Go-specific DWARF shapes this engine
// additionally classifies: a structure named like a Go map's runtime
// header (map[...]... or runtime.hmap) is a Map; one named "[]T" is a
// Slice.
func goShapeKind(dieName string) (types.TypeKind, bool) {
	switch {
	case strings.HasPrefix(dieName, "map["), dieName == "runtime.hmap":
		return types.TypeMap, true
	case strings.HasPrefix(dieName, "[]"):
		return types.TypeSlice, true
	default:
		return "", false
	}
}

func fieldFromMember(d *dwarf.Data, member *dwarf.Entry) types.TypeField {
	f := types.TypeField{}
	if n, ok := member.Val(dwarf.AttrName).(string); ok {
		f.Name = n
	}
	if off, ok := member.Val(dwarf.AttrDataMemberLoc).(int64); ok {
		f.OffsetBits = off * 8
	}
	if tref, ok := member.Val(dwarf.AttrType).(dwarf.Offset); ok {
		f.TypeName = resolveTypeName(d, tref, 0)
	}
	return f
}

// resolveTypeName follows a DW_AT_type reference to a human-readable
// name, capped at maxTypeRefHops to avoid a cyclic or pathologically
// deep chain of typedefs/pointers/const qualifiers.
func resolveTypeName(d *dwarf.Data, off dwarf.Offset, depth int) string {
	if depth >= maxTypeRefHops {
		return "<type-ref-too-deep>"
	}
	t, err := d.Type(off)
	if err != nil || t == nil {
		return "<unknown>"
	}
	return t.String()
}

// variantNames extracts the discriminant member names directly under a
// DW_TAG_variant_part, one level deep (DW_TAG_variant -> member),
// without descending further; the store-private reader cursor advances
// past these children as a side effect, matching the caller's
// SkipChildren contract for the parent variant part itself.
func variantNames(r *dwarf.Reader) []string {
	var names []string
	depth := 1
	for depth > 0 {
		entry, err := r.Next()
		if err != nil || entry == nil {
			return names
		}
		if entry.Tag == 0 {
			depth--
			continue
		}
		if entry.Tag == dwarf.TagVariant || entry.Tag == dwarf.TagMember {
			if n, ok := entry.Val(dwarf.AttrName).(string); ok && n != "" {
				names = append(names, n)
			}
		}
		if entry.Children {
			depth++
		}
	}
	return names
}
