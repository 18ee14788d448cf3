package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/limonvm/shaderjit/internal/shader"
	"github.com/limonvm/shaderjit/internal/shader/interp"
)

func TestFixturesAgainstInterpreter(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures in testdata")
	}
	for _, path := range paths {
		f, err := loadFixture(path)
		if err != nil {
			t.Errorf("%s: %v", path, err)
			continue
		}
		t.Run(f.Name, func(t *testing.T) {
			prog, err := f.Program()
			if err != nil {
				t.Fatalf("program: %v", err)
			}
			uniforms, err := f.UniformBlock()
			if err != nil {
				t.Fatalf("uniforms: %v", err)
			}
			state, err := f.State()
			if err != nil {
				t.Fatalf("state: %v", err)
			}
			interp.Run(prog, uniforms, state, f.Entry)
			if err := f.Check(state); err != nil {
				t.Error(err)
			}
		})
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFixtureValidation(t *testing.T) {
	if _, err := loadFixture(writeTemp(t, "name: empty\n")); err == nil {
		t.Error("fixture without a program was accepted")
	}
	both := "code: \"end\"\nwords: [\"0x88000000\"]\n"
	if _, err := loadFixture(writeTemp(t, both)); err == nil {
		t.Error("fixture with both code and words was accepted")
	}
}

func TestLoadFixtureDefaultsNameToPath(t *testing.T) {
	path := writeTemp(t, "code: \"end\"\n")
	f, err := loadFixture(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != path {
		t.Errorf("name = %q, want %q", f.Name, path)
	}
}

func TestFixtureRawWords(t *testing.T) {
	f := &Fixture{
		Words:    []string{"0x4C201000", "0x88000000"},
		Swizzles: []string{"0x368"}, // write x only, identity selector
	}
	prog, err := f.Program()
	if err != nil {
		t.Fatal(err)
	}
	instr := prog.Instruction(0)
	if instr.Opcode() != shader.OpMOV {
		t.Errorf("opcode = %v, want mov", instr.Opcode())
	}
	if prog.Instruction(1).Opcode() != shader.OpEND {
		t.Errorf("opcode = %v, want end", prog.Instruction(1).Opcode())
	}
	if swiz := prog.Swizzle(instr.OperandDescID()); swiz.DestMask() != 0x8 {
		t.Errorf("dest mask = %#x, want 0x8", swiz.DestMask())
	}
}

func TestFixtureUniformNames(t *testing.T) {
	f := &Fixture{
		Code: "end",
		Uniforms: FixtureUniforms{
			Float: map[string][]float32{"c95": {1, 2, 3, 4}},
			Int:   map[string][]uint8{"i3": {2, 1, 1}},
			Bool:  map[string]bool{"b15": true},
		},
	}
	u, err := f.UniformBlock()
	if err != nil {
		t.Fatal(err)
	}
	if u.F[95] != (shader.Vec4{1, 2, 3, 4}) {
		t.Errorf("c95 = %v", u.F[95])
	}
	if u.I[3] != [4]uint8{2, 1, 1, 0} {
		t.Errorf("i3 = %v", u.I[3])
	}
	if u.B[15] != 1 {
		t.Errorf("b15 = %d", u.B[15])
	}

	f.Uniforms.Float["c96"] = []float32{0, 0, 0, 0}
	if _, err := f.UniformBlock(); err == nil {
		t.Error("out of range float uniform was accepted")
	}
}

func TestFixtureCheck(t *testing.T) {
	nan := float32(math.NaN())
	f := &Fixture{
		Code: "end",
		Want: map[string][]float32{"o0": {1, 2, nan, 4}},
	}
	var st shader.UnitState
	st.Output[0] = shader.Vec4{1, 2, nan, 4}
	if err := f.Check(&st); err != nil {
		t.Errorf("matching state rejected: %v", err)
	}

	st.Output[0][3] = 4.0001
	if err := f.Check(&st); err == nil {
		t.Error("mismatch accepted with zero tolerance")
	}
	f.Tolerance = 0.001
	if err := f.Check(&st); err != nil {
		t.Errorf("mismatch within tolerance rejected: %v", err)
	}

	st.Output[0][2] = 7
	if err := f.Check(&st); err == nil {
		t.Error("number accepted where NaN was expected")
	}
}
