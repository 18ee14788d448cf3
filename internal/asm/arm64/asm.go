package arm64

import (
	"encoding/binary"
	"fmt"

	"github.com/limonvm/shaderjit/internal/asm"
)

type patchKind uint8

const (
	patchBranch26 patchKind = iota // B, BL
	patchBranch19                  // B.cond
	patchLiteral19                 // LDR (literal)
)

type patch struct {
	pos   int
	label asm.Label
	kind  patchKind
	cond  Cond
}

// Assembler builds an AArch64 program one instruction at a time. Errors are
// sticky: the first failure is kept and every later emit becomes a no-op, so
// call sites can chain freely and check once at Finalize.
type Assembler struct {
	buf     []byte
	labels  map[asm.Label]int
	patches []patch
	anon    int
	err     error
}

func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[asm.Label]int)}
}

// Pos returns the current byte offset from the start of the program.
func (a *Assembler) Pos() int { return len(a.buf) }

func (a *Assembler) fail(format string, args ...any) {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
}

func (a *Assembler) word(w uint32) {
	if a.err != nil {
		return
	}
	a.buf = binary.LittleEndian.AppendUint32(a.buf, w)
}

func (a *Assembler) wordErr(w uint32, err error) {
	if err != nil {
		a.fail("%w", err)
		return
	}
	a.word(w)
}

// Word appends a pre-encoded instruction or literal word.
func (a *Assembler) Word(w uint32) { a.word(w) }

// DWord appends a 64-bit literal, low word first.
func (a *Assembler) DWord(v uint64) {
	a.word(uint32(v))
	a.word(uint32(v >> 32))
}

// L places label at the current position.
func (a *Assembler) L(label asm.Label) {
	if a.err != nil {
		return
	}
	if _, ok := a.labels[label]; ok {
		a.fail("arm64 asm: label %q placed twice", label)
		return
	}
	a.labels[label] = len(a.buf)
}

// LabelOffset returns the byte offset label was placed at.
func (a *Assembler) LabelOffset(label asm.Label) (int, bool) {
	off, ok := a.labels[label]
	return off, ok
}

// NewLabel returns a fresh label that is unique within this assembler.
func (a *Assembler) NewLabel() asm.Label {
	a.anon++
	return asm.Label(fmt.Sprintf(".L%d", a.anon))
}

// Align pads with NOPs until the position is a multiple of n bytes.
func (a *Assembler) Align(n int) {
	for len(a.buf)%n != 0 {
		a.NOP()
	}
}

// Finalize resolves every pending label reference and returns the finished
// program.
func (a *Assembler) Finalize() (asm.Program, error) {
	if a.err != nil {
		return asm.Program{}, a.err
	}
	for _, p := range a.patches {
		target, ok := a.labels[p.label]
		if !ok {
			return asm.Program{}, fmt.Errorf("arm64 asm: undefined label %q", p.label)
		}
		delta := (target - p.pos) / 4
		w := binary.LittleEndian.Uint32(a.buf[p.pos:])
		switch p.kind {
		case patchBranch26:
			if delta < -1<<25 || delta >= 1<<25 {
				return asm.Program{}, fmt.Errorf("arm64 asm: branch to %q out of range", p.label)
			}
			w |= uint32(delta) & 0x03FFFFFF
		case patchBranch19, patchLiteral19:
			if delta < -1<<18 || delta >= 1<<18 {
				return asm.Program{}, fmt.Errorf("arm64 asm: branch to %q out of range", p.label)
			}
			w |= (uint32(delta) & 0x7FFFF) << 5
		}
		binary.LittleEndian.PutUint32(a.buf[p.pos:], w)
	}
	return asm.NewProgram(a.buf), nil
}

func (a *Assembler) ref(label asm.Label, kind patchKind, base uint32) {
	if a.err != nil {
		return
	}
	a.patches = append(a.patches, patch{pos: len(a.buf), label: label, kind: kind})
	a.word(base)
}

// Branches.

func (a *Assembler) B(label asm.Label) { a.ref(label, patchBranch26, 0x14000000) }

func (a *Assembler) BL(label asm.Label) { a.ref(label, patchBranch26, 0x94000000) }

func (a *Assembler) Bcond(c Cond, label asm.Label) {
	a.ref(label, patchBranch19, 0x54000000|uint32(c&0xF))
}

func (a *Assembler) BR(rn Reg)  { a.word(0xD61F0000 | uint32(rn&31)<<5) }
func (a *Assembler) BLR(rn Reg) { a.word(0xD63F0000 | uint32(rn&31)<<5) }
func (a *Assembler) RET()       { a.word(0xD65F03C0) }
func (a *Assembler) NOP()       { a.word(0xD503201F) }

// Immediate moves. MovImm64 materializes an arbitrary 64-bit constant with a
// MOVZ on the first non-zero 16-bit chunk followed by MOVKs for the rest.

func (a *Assembler) MOVZx(rd Reg, imm16 uint32, shift int) {
	a.wordErr(encodeMovWide(0xD2800000, rd, imm16, shift))
}

func (a *Assembler) MOVZw(rd Reg, imm16 uint32, shift int) {
	a.wordErr(encodeMovWide(0x52800000, rd, imm16, shift))
}

func (a *Assembler) MOVKx(rd Reg, imm16 uint32, shift int) {
	a.wordErr(encodeMovWide(0xF2800000, rd, imm16, shift))
}

func (a *Assembler) MOVKw(rd Reg, imm16 uint32, shift int) {
	a.wordErr(encodeMovWide(0x72800000, rd, imm16, shift))
}

func (a *Assembler) MovImm64(rd Reg, v uint64) {
	if v == 0 {
		a.MOVZx(rd, 0, 0)
		return
	}
	first := true
	for shift := 0; shift < 64; shift += 16 {
		chunk := uint32(v>>shift) & 0xFFFF
		if chunk == 0 {
			continue
		}
		if first {
			a.MOVZx(rd, chunk, shift)
			first = false
		} else {
			a.MOVKx(rd, chunk, shift)
		}
	}
}

func (a *Assembler) MovImm32(rd Reg, v uint32) {
	if v == 0 {
		a.MOVZw(rd, 0, 0)
		return
	}
	if v&0xFFFF == 0 {
		a.MOVZw(rd, v>>16, 16)
		return
	}
	a.MOVZw(rd, v&0xFFFF, 0)
	if v>>16 != 0 {
		a.MOVKw(rd, v>>16, 16)
	}
}

// Register moves.

func (a *Assembler) MOVx(rd, rm Reg) { a.word(0xAA0003E0 | uint32(rm&31)<<16 | uint32(rd&31)) }
func (a *Assembler) MOVw(rd, rm Reg) { a.word(0x2A0003E0 | uint32(rm&31)<<16 | uint32(rd&31)) }
func (a *Assembler) MVNx(rd, rm Reg) { a.word(0xAA2003E0 | uint32(rm&31)<<16 | uint32(rd&31)) }

// Arithmetic.

func (a *Assembler) ADDXri(rd, rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0x91000000, rd, rn, imm))
}

func (a *Assembler) ADDWri(rd, rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0x11000000, rd, rn, imm))
}

func (a *Assembler) SUBWri(rd, rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0x51000000, rd, rn, imm))
}

func (a *Assembler) SUBXri(rd, rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0xD1000000, rd, rn, imm))
}

func (a *Assembler) ADDWrr(rd, rn, rm Reg) {
	a.word(0x0B000000 | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) CMPWri(rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0x7100001F, WZR, rn, imm))
}

func (a *Assembler) CMPXri(rn Reg, imm uint32) {
	a.wordErr(encodeAddSubImm(0xF100001F, XZR, rn, imm))
}

func (a *Assembler) CSELw(rd, rn, rm Reg, c Cond) {
	a.word(encodeCondSelect(0x1A800000, rd, rn, rm, c))
}

// CSETx sets rd to 1 when the condition holds, 0 otherwise.
func (a *Assembler) CSETx(rd Reg, c Cond) {
	a.word(0x9A9F07E0 | uint32(c.Invert()&0xF)<<12 | uint32(rd&31))
}

// Logical.

func (a *Assembler) ANDWri(rd, rn Reg, value uint32) {
	a.wordErr(encodeLogicalImm(0x12000000, false, rd, rn, uint64(value)))
}

func (a *Assembler) ANDXri(rd, rn Reg, value uint64) {
	a.wordErr(encodeLogicalImm(0x12000000, true, rd, rn, value))
}

func (a *Assembler) ORRWri(rd, rn Reg, value uint32) {
	a.wordErr(encodeLogicalImm(0x32000000, false, rd, rn, uint64(value)))
}

func (a *Assembler) ANDXrr(rd, rn, rm Reg) {
	a.word(0x8A000000 | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) ORRXrr(rd, rn, rm Reg) {
	a.word(0xAA000000 | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) EORXrr(rd, rn, rm Reg) {
	a.word(0xCA000000 | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

// Shifts and extends.

func (a *Assembler) LSRWri(rd, rn Reg, shift int) {
	if shift < 0 || shift > 31 {
		a.fail("arm64 asm: W shift %d out of range", shift)
		return
	}
	a.word(0x53007C00 | uint32(shift)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) LSRXri(rd, rn Reg, shift int) {
	if shift < 0 || shift > 63 {
		a.fail("arm64 asm: X shift %d out of range", shift)
		return
	}
	a.word(0xD340FC00 | uint32(shift)<<16 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) LSLWri(rd, rn Reg, shift int) {
	if shift < 0 || shift > 31 {
		a.fail("arm64 asm: W shift %d out of range", shift)
		return
	}
	immr := uint32(32-shift) % 32
	imms := uint32(31 - shift)
	a.word(0x53000000 | immr<<16 | imms<<10 | uint32(rn&31)<<5 | uint32(rd&31))
}

func (a *Assembler) UXTBw(rd, rn Reg) { a.word(0x53001C00 | uint32(rn&31)<<5 | uint32(rd&31)) }
func (a *Assembler) SXTWx(rd, rn Reg) { a.word(0x93407C00 | uint32(rn&31)<<5 | uint32(rd&31)) }

// Loads and stores, unsigned scaled offset forms.

func (a *Assembler) LDRXui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0xF9400000, uint8(rt), uint8(rn), off, 8))
}

func (a *Assembler) STRXui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0xF9000000, uint8(rt), uint8(rn), off, 8))
}

func (a *Assembler) LDRWui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0xB9400000, uint8(rt), uint8(rn), off, 4))
}

func (a *Assembler) STRWui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0xB9000000, uint8(rt), uint8(rn), off, 4))
}

func (a *Assembler) LDRBui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0x39400000, uint8(rt), uint8(rn), off, 1))
}

func (a *Assembler) STRBui(rt, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0x39000000, uint8(rt), uint8(rn), off, 1))
}

func (a *Assembler) LDRQui(vt VReg, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0x3DC00000, uint8(vt), uint8(rn), off, 16))
}

func (a *Assembler) STRQui(vt VReg, rn Reg, off int) {
	a.wordErr(encodeLoadStoreUnsigned(0x3D800000, uint8(vt), uint8(rn), off, 16))
}

// LDRQr loads a Q register from rn plus rm scaled by 16.
func (a *Assembler) LDRQr(vt VReg, rn, rm Reg) {
	a.word(0x3CE07800 | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(vt&31))
}

// STRXpost stores rt at [rn] and then adds simm to rn.
func (a *Assembler) STRXpost(rt, rn Reg, simm int) {
	a.wordErr(encodeLoadStorePost(0xF8000400, uint8(rt), uint8(rn), simm))
}

// Register pairs, signed scaled offset forms.

func (a *Assembler) STPXi(rt, rt2, rn Reg, off int) {
	a.wordErr(encodeLoadStorePair(0xA9000000, uint8(rt), uint8(rt2), uint8(rn), off, 8))
}

func (a *Assembler) LDPXi(rt, rt2, rn Reg, off int) {
	a.wordErr(encodeLoadStorePair(0xA9400000, uint8(rt), uint8(rt2), uint8(rn), off, 8))
}

func (a *Assembler) STPQi(vt, vt2 VReg, rn Reg, off int) {
	a.wordErr(encodeLoadStorePair(0xAD000000, uint8(vt), uint8(vt2), uint8(rn), off, 16))
}

func (a *Assembler) LDPQi(vt, vt2 VReg, rn Reg, off int) {
	a.wordErr(encodeLoadStorePair(0xAD400000, uint8(vt), uint8(vt2), uint8(rn), off, 16))
}

// Literal loads. The label must land on a constant placed with Word/DWord.

func (a *Assembler) LDRSlit(vt VReg, label asm.Label) {
	a.ref(label, patchLiteral19, 0x1C000000|uint32(vt&31))
}

func (a *Assembler) LDRQlit(vt VReg, label asm.Label) {
	a.ref(label, patchLiteral19, 0x9C000000|uint32(vt&31))
}
