package symbols

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// dwarfSections are the canonical DWARF section names, keyed by the
// name this package uses internally; ELF/Mach-O/PE alias these
// differently (".debug_info" vs "__debug_info" vs ".debug_info$").
type dwarfSections struct {
	info     []byte
	abbrev   []byte
	str      []byte
	line     []byte
	ranges   []byte
	loc      []byte
	types    []byte
	ehFrame  []byte
	ehFrameHdr []byte
	debugFrame []byte
}

// BinaryImage is one loaded object file: its raw mapping, architecture,
// the computed runtime slide, and its DWARF sections. Owned exclusively
// by the SymbolCache; per the no-cycle invariant, nothing else retains
// a BinaryImage across calls.
type BinaryImage struct {
	Id           types.ImageId
	Arch         types.Architecture
	LittleEndian bool
	LoadAddress  types.Address
	LinkTextAddr types.Address
	Size         uint64
	Slide        int64

	mapping mmap.MMap
	dwarf   *dwarf.Data
	sec     dwarfSections
}

// Close releases the underlying mapping. Safe to call once; the
// SymbolCache calls this when an image is evicted.
func (img *BinaryImage) Close() error {
	if img.mapping == nil {
		return nil
	}
	err := img.mapping.Unmap()
	img.mapping = nil
	return err
}

// FileToRuntime converts a file (link-time) address to its runtime
// address given this image's slide.
func (img *BinaryImage) FileToRuntime(fileAddr types.Address) types.Address {
	return types.Address(int64(fileAddr) + img.Slide)
}

// RuntimeToFile converts a runtime address back to its file address.
func (img *BinaryImage) RuntimeToFile(runtimeAddr types.Address) types.Address {
	return types.Address(int64(runtimeAddr) - img.Slide)
}

// Contains reports whether addr falls inside this image's runtime
// load range.
func (img *BinaryImage) Contains(addr types.Address) bool {
	return addr.InRange(img.LoadAddress, img.LoadAddress.Add(img.Size))
}

// EhFrame, EhFrameHdr, and DebugFrame expose the image's raw CFI
// sections. The unwinder scans eh_frame linearly, then debug_frame;
// it does not read EhFrameHdr.
func (img *BinaryImage) EhFrame() []byte    { return img.sec.ehFrame }
func (img *BinaryImage) EhFrameHdr() []byte { return img.sec.ehFrameHdr }
func (img *BinaryImage) DebugFrame() []byte { return img.sec.debugFrame }

// DwarfData exposes the parsed DWARF data for the unwinder's DIE-level
// fallbacks (e.g. a function's frame-base expression).
func (img *BinaryImage) DwarfData() *dwarf.Data { return img.dwarf }

// LoadImage canonicalizes desc.Path, mmaps the file read-only, detects
// its container format (ELF, Mach-O, or PE), and extracts architecture,
// the executable segment's link-time address, DWARF sections, and CFI
// sections. The returned image's Slide is LoadAddress minus the
// link-time text address.
func LoadImage(desc types.ImageDescriptor) (*BinaryImage, error) {
	canonical, err := filepath.Abs(desc.Path)
	if err != nil {
		return nil, ferrerr.Wrap(ferrerr.KindIo, err, "resolving canonical path for %s", desc.Path)
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, ferrerr.Wrap(ferrerr.KindIo, err, "opening %s", canonical)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, ferrerr.Wrap(ferrerr.KindIo, err, "mapping %s", canonical)
	}

	img := &BinaryImage{
		Id:          types.ImageId{CanonicalPath: canonical, LoadAddress: desc.LoadAddress},
		LoadAddress: desc.LoadAddress,
		mapping:     m,
	}

	if err := img.parse(canonical); err != nil {
		_ = m.Unmap()
		return nil, err
	}
	img.Slide = int64(img.LoadAddress) - int64(img.LinkTextAddr)
	return img, nil
}

func (img *BinaryImage) parse(path string) error {
	data := []byte(img.mapping)

	r := bytes.NewReader(data)
	if ef, err := elf.NewFile(r); err == nil {
		return img.parseELF(ef)
	}
	if mf, err := macho.NewFile(r); err == nil {
		return img.parseMachO(mf)
	}
	if pf, err := pe.NewFile(r); err == nil {
		return img.parsePE(pf)
	}
	return ferrerr.New(ferrerr.KindInvalidArgument, "%s is not a recognized ELF/Mach-O/PE object", path)
}

func (img *BinaryImage) parseELF(ef *elf.File) error {
	img.LittleEndian = ef.ByteOrder.String() == "LittleEndian"
	img.Arch = archFromELFMachine(ef.Machine)

	if text := ef.Section(".text"); text != nil {
		img.LinkTextAddr = types.Address(text.Addr)
	}
	img.Size = sectionSpanELF(ef)

	img.sec.info = sectionBytesELF(ef, ".debug_info")
	img.sec.abbrev = sectionBytesELF(ef, ".debug_abbrev")
	img.sec.str = sectionBytesELF(ef, ".debug_str")
	img.sec.line = sectionBytesELF(ef, ".debug_line")
	img.sec.ranges = sectionBytesELF(ef, ".debug_ranges")
	img.sec.loc = sectionBytesELF(ef, ".debug_loc")
	img.sec.types = sectionBytesELF(ef, ".debug_types")
	img.sec.ehFrame = sectionBytesELF(ef, ".eh_frame")
	img.sec.ehFrameHdr = sectionBytesELF(ef, ".eh_frame_hdr")
	img.sec.debugFrame = sectionBytesELF(ef, ".debug_frame")

	if d, err := ef.DWARF(); err == nil {
		img.dwarf = d
	}
	return nil
}

func (img *BinaryImage) parseMachO(mf *macho.File) error {
	img.LittleEndian = mf.ByteOrder.String() == "LittleEndian"
	img.Arch = archFromMachOCPU(mf.Cpu)

	if text := mf.Section("__text"); text != nil {
		img.LinkTextAddr = types.Address(text.Addr)
	}
	img.Size = sectionSpanMachO(mf)

	img.sec.info = sectionBytesMachO(mf, "__debug_info")
	img.sec.abbrev = sectionBytesMachO(mf, "__debug_abbrev")
	img.sec.str = sectionBytesMachO(mf, "__debug_str")
	img.sec.line = sectionBytesMachO(mf, "__debug_line")
	img.sec.ranges = sectionBytesMachO(mf, "__debug_ranges")
	img.sec.loc = sectionBytesMachO(mf, "__debug_loc")
	img.sec.types = sectionBytesMachO(mf, "__debug_types")
	img.sec.ehFrame = sectionBytesMachO(mf, "__eh_frame")
	img.sec.debugFrame = sectionBytesMachO(mf, "__debug_frame")
	// Mach-O has no __eh_frame_hdr convention; Darwin targets fall back
	// to linear .eh_frame / .debug_frame search (see unwind package).

	if d, err := mf.DWARF(); err == nil {
		img.dwarf = d
	}
	return nil
}

func (img *BinaryImage) parsePE(pf *pe.File) error {
	img.LittleEndian = true // PE/COFF is always little-endian on supported machines
	img.Arch = archFromPEMachine(pf.Machine)

	if text := pf.Section(".text"); text != nil {
		img.LinkTextAddr = types.Address(uint64(text.VirtualAddress) + peImageBase(pf))
	}
	img.Size = sectionSpanPE(pf)

	img.sec.info = sectionBytesPE(pf, ".debug_info")
	img.sec.abbrev = sectionBytesPE(pf, ".debug_abbrev")
	img.sec.str = sectionBytesPE(pf, ".debug_str")
	img.sec.line = sectionBytesPE(pf, ".debug_line")
	img.sec.ranges = sectionBytesPE(pf, ".debug_ranges")
	img.sec.loc = sectionBytesPE(pf, ".debug_loc")
	img.sec.types = sectionBytesPE(pf, ".debug_types")
	img.sec.ehFrame = sectionBytesPE(pf, ".eh_frame")
	img.sec.debugFrame = sectionBytesPE(pf, ".debug_frame")

	if d, err := pf.DWARF(); err == nil {
		img.dwarf = d
	}
	return nil
}

func archFromELFMachine(m elf.Machine) types.Architecture {
	switch m {
	case elf.EM_AARCH64:
		return types.ArchArm64
	case elf.EM_X86_64:
		return types.ArchX86_64
	default:
		return types.UnknownArch("unrecognized")
	}
}

func archFromMachOCPU(c macho.Cpu) types.Architecture {
	switch c {
	case macho.CpuArm64:
		return types.ArchArm64
	case macho.CpuAmd64:
		return types.ArchX86_64
	default:
		return types.UnknownArch("unrecognized")
	}
}

func archFromPEMachine(m uint16) types.Architecture {
	switch m {
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return types.ArchArm64
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return types.ArchX86_64
	default:
		return types.UnknownArch("unrecognized")
	}
}

func peImageBase(pf *pe.File) uint64 {
	switch hdr := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		return hdr.ImageBase
	case *pe.OptionalHeader32:
		return uint64(hdr.ImageBase)
	default:
		return 0
	}
}

func sectionBytesELF(ef *elf.File, name string) []byte {
	s := ef.Section(name)
	if s == nil {
		return nil
	}
	b, err := s.Data()
	if err != nil {
		return nil
	}
	return b
}

func sectionBytesMachO(mf *macho.File, name string) []byte {
	s := mf.Section(name)
	if s == nil {
		return nil
	}
	b, err := s.Data()
	if err != nil {
		return nil
	}
	return b
}

func sectionBytesPE(pf *pe.File, name string) []byte {
	s := pf.Section(name)
	if s == nil {
		return nil
	}
	b, err := s.Data()
	if err != nil {
		return nil
	}
	return b
}

func sectionSpanELF(ef *elf.File) uint64 {
	var max uint64
	for _, s := range ef.Sections {
		if end := s.Addr + s.Size; end > max {
			max = end
		}
	}
	return max
}

func sectionSpanMachO(mf *macho.File) uint64 {
	var max uint64
	for _, s := range mf.Sections {
		if end := s.Addr + uint64(s.Size); end > max {
			max = end
		}
	}
	return max
}

// sectionSpanPE returns the image's extent as an RVA-relative byte
// count: the highest VirtualAddress+VirtualSize among sections, both
// already RVA-relative. The caller (Contains) adds this to an absolute
// runtime base, so base must not be folded in here too.
func sectionSpanPE(pf *pe.File) uint64 {
	var max uint64
	for _, s := range pf.Sections {
		end := uint64(s.VirtualAddress) + uint64(s.VirtualSize)
		if end > max {
			max = end
		}
	}
	return max
}

