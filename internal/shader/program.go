package shader

import "fmt"

// Program is a complete shader: the instruction words plus the swizzle
// descriptor table they index.
type Program struct {
	Code     [MaxProgramLen]uint32
	Swizzles [MaxSwizzleLen]uint32
}

// Instruction decodes the word at offset pc.
func (p *Program) Instruction(pc int) Instruction { return Instruction(p.Code[pc]) }

// Swizzle returns descriptor id as a SwizzlePattern.
func (p *Program) Swizzle(id int) SwizzlePattern { return SwizzlePattern(p.Swizzles[id]) }

// Builder assembles Programs instruction by instruction. It interns swizzle
// descriptors so identical patterns share a table slot.
type Builder struct {
	prog    Program
	pc      int
	swizzle int
	interned map[uint32]int
	err     error
}

func NewBuilder() *Builder {
	return &Builder{interned: make(map[uint32]int)}
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int { return b.pc }

// Program returns the assembled program, or the first error encountered.
func (b *Builder) Program() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	prog := b.prog
	return &prog, nil
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("shader: %s", fmt.Sprintf(format, args...))
	}
}

func (b *Builder) word(w uint32) int {
	if b.err != nil {
		return b.pc
	}
	if b.pc >= MaxProgramLen {
		b.fail("program exceeds %d instructions", MaxProgramLen)
		return b.pc
	}
	b.prog.Code[b.pc] = w
	b.pc++
	return b.pc - 1
}

// Raw appends a pre-encoded instruction word.
func (b *Builder) Raw(w uint32) int { return b.word(w) }

func (b *Builder) internSwizzle(p SwizzlePattern) int {
	if id, ok := b.interned[uint32(p)]; ok {
		return id
	}
	if b.swizzle >= MaxSwizzleLen {
		b.fail("swizzle table exceeds %d entries", MaxSwizzleLen)
		return 0
	}
	id := b.swizzle
	b.prog.Swizzles[id] = uint32(p)
	b.interned[uint32(p)] = id
	b.swizzle++
	return id
}

// Operands bundles the swizzle controls of one instruction. The zero value
// means "write all components, identity selectors, no negation".
type Operands struct {
	DestMask         uint8
	Sel1, Sel2, Sel3 uint8
	Neg1, Neg2, Neg3 bool
	// AddrReg selects address-register-relative uniform addressing for the
	// offset-carrying source: 0=off, 1=a0, 2=a1, 3=aL.
	AddrReg int
	// ExplicitSel keeps zero selectors as "xxxx" instead of treating them as
	// unset-and-identity.
	ExplicitSel bool
}

func (o Operands) pattern() SwizzlePattern {
	mask := o.DestMask
	if mask == 0 {
		mask = DestMaskAll
	}
	sel := func(s uint8) uint8 {
		if s == 0 && !o.ExplicitSel {
			return SelectorIdentity
		}
		return s
	}
	return MakeSwizzle(mask, sel(o.Sel1), sel(o.Sel2), sel(o.Sel3), o.Neg1, o.Neg2, o.Neg3)
}

func (b *Builder) common(op Opcode, dest DestRegister, src1, src2 SourceRegister, o Operands) int {
	desc := b.internSwizzle(o.pattern())
	if desc > 0x7F {
		b.fail("%s: operand descriptor %d out of range", op, desc)
	}
	w := uint32(op)<<26 | uint32(dest&0x1F)<<21 | uint32(o.AddrReg&3)<<19 | uint32(desc&0x7F)
	if op.Inverted() {
		if src1 > 0x1F {
			b.fail("%s: src1 must be an input or temporary register", op)
		}
		w |= uint32(src1&0x1F)<<14 | uint32(src2&0x7F)<<7
	} else {
		if src2 > 0x1F {
			b.fail("%s: src2 must be an input or temporary register", op)
		}
		w |= uint32(src1&0x7F)<<12 | uint32(src2&0x1F)<<7
	}
	return b.word(w)
}

func (b *Builder) unary(op Opcode, dest DestRegister, src1 SourceRegister, o Operands) int {
	return b.common(op, dest, src1, 0, o)
}

// Arithmetic instructions.

func (b *Builder) ADD(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpADD, d, s1, s2, o)
}
func (b *Builder) DP3(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpDP3, d, s1, s2, o)
}
func (b *Builder) DP4(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpDP4, d, s1, s2, o)
}
func (b *Builder) DPH(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpDPH, d, s1, s2, o)
}

// DPHI is the inverted-operand DPH: src1 is narrow and relative addressing
// applies to src2.
func (b *Builder) DPHI(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpDPHI, d, s1, s2, o)
}
func (b *Builder) MUL(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpMUL, d, s1, s2, o)
}
func (b *Builder) SGE(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpSGE, d, s1, s2, o)
}
func (b *Builder) SLT(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpSLT, d, s1, s2, o)
}
func (b *Builder) SGEI(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpSGEI, d, s1, s2, o)
}
func (b *Builder) SLTI(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpSLTI, d, s1, s2, o)
}
func (b *Builder) MAX(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpMAX, d, s1, s2, o)
}
func (b *Builder) MIN(d DestRegister, s1, s2 SourceRegister, o Operands) int {
	return b.common(OpMIN, d, s1, s2, o)
}
func (b *Builder) FLR(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpFLR, d, s1, o)
}
func (b *Builder) RCP(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpRCP, d, s1, o)
}
func (b *Builder) RSQ(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpRSQ, d, s1, o)
}
func (b *Builder) EX2(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpEX2, d, s1, o)
}
func (b *Builder) LG2(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpLG2, d, s1, o)
}
func (b *Builder) MOV(d DestRegister, s1 SourceRegister, o Operands) int {
	return b.unary(OpMOV, d, s1, o)
}

// MOVA writes the address registers from src1. The dest mask selects which of
// a0 (x) and a1 (y) are written.
func (b *Builder) MOVA(s1 SourceRegister, o Operands) int {
	if o.DestMask == 0 {
		o.DestMask = 0xC // x and y
	}
	return b.unary(OpMOVA, 0, s1, o)
}

// CMP compares the x and y lanes of src1 and src2 and latches the results
// into the two condition-code bits.
func (b *Builder) CMP(s1, s2 SourceRegister, opX, opY CompareOp, o Operands) int {
	if s2 > 0x1F {
		b.fail("cmp: src2 must be an input or temporary register")
	}
	desc := b.internSwizzle(o.pattern())
	// The compare-x field spans bits 24-26; its top bit is the opcode LSB,
	// which is why CMP occupies two opcode slots.
	w := uint32(OpCMP)<<26 | uint32(opX&0x7)<<24 | uint32(opY&0x7)<<21 |
		uint32(o.AddrReg&3)<<19 | uint32(s1&0x7F)<<12 | uint32(s2&0x1F)<<7 | uint32(desc&0x7F)
	return b.word(w)
}

func (b *Builder) mad(op Opcode, d DestRegister, s1, s2, s3 SourceRegister, o Operands) int {
	desc := b.internSwizzle(o.pattern())
	if desc > 0x1F {
		b.fail("%s: operand descriptor %d out of range", op, desc)
	}
	if s1 > 0x1F {
		b.fail("%s: src1 must be an input or temporary register", op)
	}
	w := uint32(op)<<26 | uint32(d&0x1F)<<24 | uint32(o.AddrReg&3)<<22 |
		uint32(s1&0x1F)<<17 | uint32(desc&0x1F)
	if op.Inverted() {
		if s2 > 0x1F {
			b.fail("%s: src2 must be an input or temporary register", op)
		}
		w |= uint32(s2&0x1F)<<12 | uint32(s3&0x7F)<<5
	} else {
		if s3 > 0x1F {
			b.fail("%s: src3 must be an input or temporary register", op)
		}
		w |= uint32(s2&0x7F)<<10 | uint32(s3&0x1F)<<5
	}
	return b.word(w)
}

func (b *Builder) MAD(d DestRegister, s1, s2, s3 SourceRegister, o Operands) int {
	return b.mad(OpMAD, d, s1, s2, s3, o)
}
func (b *Builder) MADI(d DestRegister, s1, s2, s3 SourceRegister, o Operands) int {
	return b.mad(OpMADI, d, s1, s2, s3, o)
}

// Flow control instructions.

func (b *Builder) flow(op Opcode, destOffset, numInstructions int, hi uint32) int {
	if destOffset < 0 || destOffset >= MaxProgramLen {
		b.fail("%s: destination offset %d out of range", op, destOffset)
	}
	w := uint32(op)<<26 | hi | uint32(destOffset&0xFFF)<<10 | uint32(numInstructions&0xFF)
	return b.word(w)
}

func condBits(op FlowOp, refX, refY bool) uint32 {
	w := uint32(op&3) << 22
	if refY {
		w |= 1 << 24
	}
	if refX {
		w |= 1 << 25
	}
	return w
}

func (b *Builder) NOP() int { return b.word(uint32(OpNOP) << 26) }
func (b *Builder) END() int { return b.word(uint32(OpEND) << 26) }

func (b *Builder) CALL(dest, num int) int { return b.flow(OpCALL, dest, num, 0) }
func (b *Builder) CALLC(dest, num int, op FlowOp, refX, refY bool) int {
	return b.flow(OpCALLC, dest, num, condBits(op, refX, refY))
}
func (b *Builder) CALLU(dest, num, boolID int) int {
	return b.flow(OpCALLU, dest, num, uint32(boolID&0xF)<<22)
}
func (b *Builder) IFC(dest, num int, op FlowOp, refX, refY bool) int {
	return b.flow(OpIFC, dest, num, condBits(op, refX, refY))
}
func (b *Builder) IFU(dest, num, boolID int) int {
	return b.flow(OpIFU, dest, num, uint32(boolID&0xF)<<22)
}
func (b *Builder) LOOP(dest, intID int) int {
	return b.flow(OpLOOP, dest, 0, uint32(intID&0x3)<<22)
}
func (b *Builder) BREAKC(op FlowOp, refX, refY bool) int {
	return b.flow(OpBREAKC, 0, 0, condBits(op, refX, refY))
}
func (b *Builder) JMPC(dest int, op FlowOp, refX, refY bool) int {
	return b.flow(OpJMPC, dest, 0, condBits(op, refX, refY))
}
func (b *Builder) JMPU(dest, boolID int, invert bool) int {
	num := 0
	if invert {
		num = 1
	}
	return b.flow(OpJMPU, dest, num, uint32(boolID&0xF)<<22)
}
func (b *Builder) EMIT() int { return b.word(uint32(OpEMIT) << 26) }
func (b *Builder) SETEMIT(vertexID uint8, primEmit, winding bool) int {
	w := uint32(OpSETE)<<26 | uint32(vertexID&3)<<22
	if primEmit {
		w |= 1 << 24
	}
	if winding {
		w |= 1 << 25
	}
	return b.word(w)
}
