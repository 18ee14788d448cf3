package shader

import "testing"

func build(t *testing.T, b *Builder) *Program {
	t.Helper()
	prog, err := b.Program()
	if err != nil {
		t.Fatalf("Program failed: %v", err)
	}
	return prog
}

func TestCommonEncoding(t *testing.T) {
	b := NewBuilder()
	b.ADD(DestOutput(3), SrcInput(1), SrcTemporary(2), Operands{DestMask: 0xC, Neg2: true})
	prog := build(t, b)

	instr := prog.Instruction(0)
	if instr.Opcode() != OpADD {
		t.Errorf("opcode = %v, want add", instr.Opcode())
	}
	if d := instr.Dest(); d.Type() != RegOutput || d.Index() != 3 {
		t.Errorf("dest = %v", d)
	}
	if s := instr.Src1(); s.Type() != RegInput || s.Index() != 1 {
		t.Errorf("src1 = %v", s)
	}
	if s := instr.Src2(); s.Type() != RegTemporary || s.Index() != 2 {
		t.Errorf("src2 = %v", s)
	}
	swiz := prog.Swizzle(instr.OperandDescID())
	if swiz.DestMask() != 0xC {
		t.Errorf("dest mask = %#x, want 0xC", swiz.DestMask())
	}
	if swiz.NegateSrc(1) || !swiz.NegateSrc(2) {
		t.Errorf("negate flags = %v %v, want false true", swiz.NegateSrc(1), swiz.NegateSrc(2))
	}
	for i := 0; i < 4; i++ {
		if swiz.Selector(1, i) != i {
			t.Errorf("src1 selector %d = %d, want identity", i, swiz.Selector(1, i))
		}
	}
}

func TestInvertedEncoding(t *testing.T) {
	b := NewBuilder()
	b.DPHI(DestTemporary(4), SrcInput(5), SrcUniform(40), Operands{AddrReg: 1})
	prog := build(t, b)

	instr := prog.Instruction(0)
	if instr.Opcode() != OpDPHI || !instr.Opcode().Inverted() {
		t.Fatalf("opcode = %v, want inverted dph", instr.Opcode())
	}
	if s := instr.Src1i(); s.Type() != RegInput || s.Index() != 5 {
		t.Errorf("src1i = %v", s)
	}
	if s := instr.Src2i(); s.Type() != RegFloatUniform || s.Index() != 40 {
		t.Errorf("src2i = %v", s)
	}
	if instr.AddressRegisterIndex() != 1 {
		t.Errorf("address register = %d, want 1", instr.AddressRegisterIndex())
	}
}

func TestInvertedRejectsWideNarrowOperand(t *testing.T) {
	b := NewBuilder()
	b.SGEI(DestTemporary(0), SrcUniform(3), SrcInput(0), Operands{})
	if _, err := b.Program(); err == nil {
		t.Fatal("uniform in the narrow slot of an inverted opcode was accepted")
	}
}

func TestSwizzleInterning(t *testing.T) {
	b := NewBuilder()
	o := Operands{Sel1: MakeSelector(3, 2, 1, 0), ExplicitSel: true}
	b.MOV(DestOutput(0), SrcInput(0), o)
	b.MOV(DestOutput(1), SrcInput(1), o)
	b.MOV(DestOutput(2), SrcInput(2), Operands{})
	prog := build(t, b)

	id0 := prog.Instruction(0).OperandDescID()
	id1 := prog.Instruction(1).OperandDescID()
	id2 := prog.Instruction(2).OperandDescID()
	if id0 != id1 {
		t.Errorf("identical swizzles interned as %d and %d", id0, id1)
	}
	if id2 == id0 {
		t.Errorf("distinct swizzles share descriptor %d", id0)
	}
	if sel := prog.Swizzle(id0).RawSelector(1); sel != MakeSelector(3, 2, 1, 0) {
		t.Errorf("selector = %#x", sel)
	}
}

func TestMadEncoding(t *testing.T) {
	b := NewBuilder()
	b.MAD(DestTemporary(1), SrcInput(2), SrcUniform(30), SrcTemporary(3), Operands{AddrReg: 2})
	prog := build(t, b)

	instr := prog.Instruction(0)
	if op := instr.Opcode().Effective(); op != OpMAD {
		t.Fatalf("effective opcode = %v, want mad", op)
	}
	if d := instr.MadDest(); d.Type() != RegTemporary || d.Index() != 1 {
		t.Errorf("dest = %v", d)
	}
	if s := instr.MadSrc1(); s.Type() != RegInput || s.Index() != 2 {
		t.Errorf("src1 = %v", s)
	}
	if s := instr.MadSrc2(); s.Type() != RegFloatUniform || s.Index() != 30 {
		t.Errorf("src2 = %v", s)
	}
	if s := instr.MadSrc3(); s.Type() != RegTemporary || s.Index() != 3 {
		t.Errorf("src3 = %v", s)
	}
	if instr.MadAddressRegisterIndex() != 2 {
		t.Errorf("address register = %d, want 2", instr.MadAddressRegisterIndex())
	}
}

func TestCmpEncoding(t *testing.T) {
	b := NewBuilder()
	b.CMP(SrcInput(0), SrcTemporary(1), CmpGreaterEqual, CmpLessThan, Operands{})
	prog := build(t, b)

	instr := prog.Instruction(0)
	if op := instr.Opcode().Effective(); op != OpCMP {
		t.Fatalf("effective opcode = %v, want cmp", op)
	}
	if instr.CompareOpX() != CmpGreaterEqual {
		t.Errorf("compare x = %v", instr.CompareOpX())
	}
	if instr.CompareOpY() != CmpLessThan {
		t.Errorf("compare y = %v", instr.CompareOpY())
	}
}

func TestFlowEncoding(t *testing.T) {
	b := NewBuilder()
	b.IFC(100, 5, FlowAnd, true, false) // 0
	b.CALLU(200, 7, 9)                  // 1
	b.LOOP(300, 2)                      // 2
	b.JMPU(400, 3, true)                // 3
	b.SETEMIT(2, true, false)           // 4
	prog := build(t, b)

	ifc := prog.Instruction(0)
	if ifc.DestOffset() != 100 || ifc.NumInstructions() != 5 {
		t.Errorf("ifc dest/num = %d/%d", ifc.DestOffset(), ifc.NumInstructions())
	}
	if ifc.FlowOp() != FlowAnd || !ifc.RefX() || ifc.RefY() {
		t.Errorf("ifc cond = %v %v %v", ifc.FlowOp(), ifc.RefX(), ifc.RefY())
	}

	callu := prog.Instruction(1)
	if callu.DestOffset() != 200 || callu.NumInstructions() != 7 || callu.BoolUniformID() != 9 {
		t.Errorf("callu fields = %d/%d/b%d", callu.DestOffset(), callu.NumInstructions(), callu.BoolUniformID())
	}

	loop := prog.Instruction(2)
	if loop.DestOffset() != 300 || loop.IntUniformID() != 2 {
		t.Errorf("loop fields = %d/i%d", loop.DestOffset(), loop.IntUniformID())
	}

	jmpu := prog.Instruction(3)
	if jmpu.DestOffset() != 400 || jmpu.BoolUniformID() != 3 || jmpu.NumInstructions()&1 != 1 {
		t.Errorf("jmpu fields = %d/b%d/%d", jmpu.DestOffset(), jmpu.BoolUniformID(), jmpu.NumInstructions())
	}

	sete := prog.Instruction(4)
	if sete.VertexID() != 2 || !sete.PrimEmit() || sete.Winding() {
		t.Errorf("setemit fields = %d/%v/%v", sete.VertexID(), sete.PrimEmit(), sete.Winding())
	}
}

func TestProgramLengthLimit(t *testing.T) {
	b := NewBuilder()
	for i := 0; i <= MaxProgramLen; i++ {
		b.NOP()
	}
	if _, err := b.Program(); err == nil {
		t.Fatal("oversized program was accepted")
	}
}
