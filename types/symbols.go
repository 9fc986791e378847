// symbols.go - symbol/image description types shared by the symbol cache
// and the unwinder.

package types

import "fmt"

// ImageDescriptor names an object file a client asked to be loaded, and
// the address it was (or will be) loaded at in the debuggee.
type ImageDescriptor struct {
	Path        string
	LoadAddress Address
}

// ImageId uniquely identifies a loaded image by its canonical path and
// load address, so the same file loaded at two different addresses
// (unusual, but legal for PIEs loaded twice in different processes) is
// not conflated.
type ImageId struct {
	CanonicalPath string
	LoadAddress   Address
}

func (id ImageId) String() string {
	return fmt.Sprintf("%s@%s", id.CanonicalPath, id.LoadAddress)
}

// Language is the best-effort source language a mangled symbol name was
// detected to come from.
type Language int

const (
	LangUnknown Language = iota
	LangRust
	LangCpp
	LangC
)

func (l Language) String() string {
	switch l {
	case LangRust:
		return "rust"
	case LangCpp:
		return "c++"
	case LangC:
		return "c"
	default:
		return "unknown"
	}
}

// SymbolName carries a mangled name alongside its best-effort demangled
// form (nil when demangling failed or was not applicable).
type SymbolName struct {
	Raw        string
	Demangled  *string
	Language   Language
}

// Display returns the demangled name if present, else the raw name.
func (s SymbolName) Display() string {
	if s.Demangled != nil {
		return *s.Demangled
	}
	return s.Raw
}

// SourceLocation is a DWARF line-table resolved source position.
type SourceLocation struct {
	File   string
	Line   *int
	Column *int
}

func (s SourceLocation) String() string {
	if s.Line == nil {
		return s.File
	}
	if s.Column == nil {
		return fmt.Sprintf("%s:%d", s.File, *s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, *s.Line, *s.Column)
}

// SymbolFrame is one frame of a symbolicated address: a function name
// plus, when known, the source location that produced it. Multiple
// SymbolFrames for one address occur when the address falls inside an
// inlined call chain (outer-to-inner order).
type SymbolFrame struct {
	Symbol   SymbolName
	Location *SourceLocation
}

// TypeKind classifies a DWARF-derived TypeSummary.
type TypeKind string

const (
	TypeStruct      TypeKind = "struct"
	TypeClass       TypeKind = "class"
	TypeUnion       TypeKind = "union"
	TypeEnum        TypeKind = "enum"
	TypeTraitObject TypeKind = "trait_object"
	TypeMap         TypeKind = "map"
	TypeSlice       TypeKind = "slice"
)

// TypeField is one member of a TypeSummary.
type TypeField struct {
	Name      string
	TypeName  string
	OffsetBits int64
}

// TypeSummary is the raw DWARF type summary describe_type produces. It
// never attempts value interpretation, only shape.
type TypeSummary struct {
	Name     string
	Kind     TypeKind
	SizeBits *int64
	Fields   []TypeField
	Variants []string
}
