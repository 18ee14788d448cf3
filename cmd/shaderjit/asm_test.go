package main

import (
	"strings"
	"testing"

	"github.com/limonvm/shaderjit/internal/shader"
)

func mustAssemble(t *testing.T, src string) *shader.Program {
	t.Helper()
	prog, err := assemble(src)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	return prog
}

func TestAssembleCommon(t *testing.T) {
	prog := mustAssemble(t, `
		# negated wwww splat into the upper half of o0
		add o0.xy, -c1.wwww, v3
		end
	`)

	instr := prog.Instruction(0)
	if instr.Opcode() != shader.OpADD {
		t.Fatalf("opcode = %v, want add", instr.Opcode())
	}
	if d := instr.Dest(); d.Type() != shader.RegOutput || d.Index() != 0 {
		t.Errorf("dest = %v", d)
	}
	if s := instr.Src1(); s.Type() != shader.RegFloatUniform || s.Index() != 1 {
		t.Errorf("src1 = %v", s)
	}
	if s := instr.Src2(); s.Type() != shader.RegInput || s.Index() != 3 {
		t.Errorf("src2 = %v", s)
	}
	swiz := prog.Swizzle(instr.OperandDescID())
	if swiz.DestMask() != 0xC {
		t.Errorf("dest mask = %#x, want 0xC", swiz.DestMask())
	}
	if !swiz.NegateSrc(1) || swiz.NegateSrc(2) {
		t.Errorf("negate flags = %v %v", swiz.NegateSrc(1), swiz.NegateSrc(2))
	}
	for i := 0; i < 4; i++ {
		if got := swiz.Selector(1, i); got != 3 {
			t.Errorf("src1 component %d reads %d, want w", i, got)
		}
		if got := swiz.Selector(2, i); got != i {
			t.Errorf("src2 component %d reads %d, want identity", i, got)
		}
	}
}

func TestAssembleShortSelector(t *testing.T) {
	prog := mustAssemble(t, "mov o0, v0.y\nend")
	swiz := prog.Swizzle(prog.Instruction(0).OperandDescID())
	for i := 0; i < 4; i++ {
		if got := swiz.Selector(1, i); got != 1 {
			t.Errorf("component %d reads %d, want y splat", i, got)
		}
	}
}

func TestAssembleRelativeAddressing(t *testing.T) {
	for src, want := range map[string]int{
		"dp4 r2, c0[a0], v0": 1,
		"dp4 r2, c0[a1], v0": 2,
		"dp4 r2, c0[aL], v0": 3,
	} {
		prog := mustAssemble(t, src+"\nend")
		if got := prog.Instruction(0).AddressRegisterIndex(); got != want {
			t.Errorf("%q: address register = %d, want %d", src, got, want)
		}
	}
}

func TestAssembleMova(t *testing.T) {
	for src, mask := range map[string]uint8{
		"mova a0 v0":   0x8,
		"mova a1 v0":   0x4,
		"mova a0a1 v0": 0xC,
	} {
		prog := mustAssemble(t, src+"\nend")
		instr := prog.Instruction(0)
		if instr.Opcode() != shader.OpMOVA {
			t.Fatalf("%q: opcode = %v", src, instr.Opcode())
		}
		if got := prog.Swizzle(instr.OperandDescID()).DestMask(); got != mask {
			t.Errorf("%q: dest mask = %#x, want %#x", src, got, mask)
		}
	}
}

func TestAssembleCmp(t *testing.T) {
	prog := mustAssemble(t, "cmp v0, v1, ge, lt\nend")
	instr := prog.Instruction(0)
	if op := instr.Opcode().Effective(); op != shader.OpCMP {
		t.Fatalf("effective opcode = %v", op)
	}
	if instr.CompareOpX() != shader.CmpGreaterEqual {
		t.Errorf("compare x = %v", instr.CompareOpX())
	}
	if instr.CompareOpY() != shader.CmpLessThan {
		t.Errorf("compare y = %v", instr.CompareOpY())
	}
}

func TestAssembleMad(t *testing.T) {
	prog := mustAssemble(t, "mad r0, v0, c1, -r2.xxxx\nend")
	instr := prog.Instruction(0)
	if op := instr.Opcode().Effective(); op != shader.OpMAD {
		t.Fatalf("effective opcode = %v", op)
	}
	if s := instr.MadSrc3(); s.Type() != shader.RegTemporary || s.Index() != 2 {
		t.Errorf("src3 = %v", s)
	}
	swiz := prog.Swizzle(instr.MadOperandDescID())
	if !swiz.NegateSrc(3) {
		t.Error("src3 negate flag missing")
	}
	if swiz.Selector(3, 3) != 0 {
		t.Errorf("src3 w component reads %d, want x", swiz.Selector(3, 3))
	}
}

func TestAssembleFlow(t *testing.T) {
	prog := mustAssemble(t, `
		ifc !x&y 4 2
		callu b3 8 1
		loop i2 6
		jmpc x|y 9
		jmpu !b5 7
		breakc y
		end
	`)

	ifc := prog.Instruction(0)
	if ifc.Opcode() != shader.OpIFC || ifc.FlowOp() != shader.FlowAnd {
		t.Errorf("ifc = %v %v", ifc.Opcode(), ifc.FlowOp())
	}
	if ifc.RefX() || !ifc.RefY() {
		t.Errorf("ifc refs = %v %v, want false true", ifc.RefX(), ifc.RefY())
	}
	if ifc.DestOffset() != 4 || ifc.NumInstructions() != 2 {
		t.Errorf("ifc dest/num = %d/%d", ifc.DestOffset(), ifc.NumInstructions())
	}

	callu := prog.Instruction(1)
	if callu.Opcode() != shader.OpCALLU || callu.BoolUniformID() != 3 {
		t.Errorf("callu = %v b%d", callu.Opcode(), callu.BoolUniformID())
	}

	loop := prog.Instruction(2)
	if loop.Opcode() != shader.OpLOOP || loop.IntUniformID() != 2 || loop.DestOffset() != 6 {
		t.Errorf("loop = %v i%d dest %d", loop.Opcode(), loop.IntUniformID(), loop.DestOffset())
	}

	jmpc := prog.Instruction(3)
	if jmpc.Opcode() != shader.OpJMPC || jmpc.FlowOp() != shader.FlowOr || !jmpc.RefX() || !jmpc.RefY() {
		t.Errorf("jmpc = %v %v %v %v", jmpc.Opcode(), jmpc.FlowOp(), jmpc.RefX(), jmpc.RefY())
	}

	jmpu := prog.Instruction(4)
	if jmpu.Opcode() != shader.OpJMPU || jmpu.BoolUniformID() != 5 {
		t.Errorf("jmpu = %v b%d", jmpu.Opcode(), jmpu.BoolUniformID())
	}
	if jmpu.NumInstructions()&1 != 1 {
		t.Error("jmpu invert bit not set for !b5")
	}

	breakc := prog.Instruction(5)
	if breakc.Opcode() != shader.OpBREAKC || breakc.FlowOp() != shader.FlowJustY {
		t.Errorf("breakc = %v %v", breakc.Opcode(), breakc.FlowOp())
	}
}

func TestAssembleSetEmit(t *testing.T) {
	prog := mustAssemble(t, "setemit 2 prim winding\nemit\nend")
	instr := prog.Instruction(0)
	if instr.VertexID() != 2 || !instr.PrimEmit() || !instr.Winding() {
		t.Errorf("setemit fields = %d/%v/%v", instr.VertexID(), instr.PrimEmit(), instr.Winding())
	}
	if prog.Instruction(1).Opcode() != shader.OpEMIT {
		t.Errorf("opcode = %v, want emit", prog.Instruction(1).Opcode())
	}
}

func TestAssembleErrors(t *testing.T) {
	cases := map[string]string{
		"frobnicate o0, v0": "unknown mnemonic",
		"add o0, v0":        "want <dest> <src1> <src2>",
		"mov q0, v0":        "bad destination",
		"mov o0, v99":       "bad source",
		"mov o0, v0.q":      "bad selector",
		"mov o0.q, v0":      "bad write mask",
		"mov o0, c0[a2]":    "bad address register",
		"ifc z 4 2":         "bad condition",
		"cmp v0, v1, eq, zz": "bad compare op",
		"loop i9 4":         "bad uniform",
		"sgei r0, c3, v0":   "", // rejected at program build time
		"add o0, v0, c1":    "", // uniform in the narrow slot
	}
	for src, want := range cases {
		_, err := assemble(src + "\nend")
		if err == nil {
			t.Errorf("%q was accepted", src)
			continue
		}
		if want != "" && !strings.Contains(err.Error(), want) {
			t.Errorf("%q: error %q does not mention %q", src, err, want)
		}
	}
}

func TestAssembleSkipsCommentsAndBlanks(t *testing.T) {
	prog := mustAssemble(t, `
		# a comment line

		nop  # trailing comment
		end
	`)
	if prog.Instruction(0).Opcode() != shader.OpNOP {
		t.Errorf("opcode = %v, want nop", prog.Instruction(0).Opcode())
	}
	if prog.Instruction(1).Opcode() != shader.OpEND {
		t.Errorf("opcode = %v, want end", prog.Instruction(1).Opcode())
	}
}
