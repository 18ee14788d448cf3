package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/limonvm/shaderjit/internal/shader"
)

// Fixture is one YAML test case: a program in mnemonic or raw-word form plus
// the uniform and input values to run it with and, optionally, the outputs it
// must produce.
type Fixture struct {
	Name  string `yaml:"name"`
	Entry int    `yaml:"entry"`

	// Code is mnemonic source for the built-in assembler. Words/Swizzles are
	// the raw alternative for programs captured from hardware.
	Code     string   `yaml:"code"`
	Words    []string `yaml:"words"`
	Swizzles []string `yaml:"swizzles"`

	Uniforms FixtureUniforms       `yaml:"uniforms"`
	Inputs   map[string][]float32  `yaml:"inputs"`
	Want     map[string][]float32  `yaml:"want"`
	// Tolerance is the per-lane absolute error allowed by want checks. Zero
	// means exact.
	Tolerance float64 `yaml:"tolerance"`
}

type FixtureUniforms struct {
	Float map[string][]float32 `yaml:"float"`
	Int   map[string][]uint8   `yaml:"int"`
	Bool  map[string]bool      `yaml:"bool"`
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = path
	}
	if f.Code != "" && len(f.Words) > 0 {
		return nil, fmt.Errorf("%s: code and words are mutually exclusive", path)
	}
	if f.Code == "" && len(f.Words) == 0 {
		return nil, fmt.Errorf("%s: no program", path)
	}
	return &f, nil
}

// Program assembles or decodes the fixture's program.
func (f *Fixture) Program() (*shader.Program, error) {
	if f.Code != "" {
		return assemble(f.Code)
	}
	var prog shader.Program
	if len(f.Words) > shader.MaxProgramLen {
		return nil, fmt.Errorf("program exceeds %d words", shader.MaxProgramLen)
	}
	if len(f.Swizzles) > shader.MaxSwizzleLen {
		return nil, fmt.Errorf("swizzle table exceeds %d words", shader.MaxSwizzleLen)
	}
	for i, w := range f.Words {
		v, err := strconv.ParseUint(w, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		prog.Code[i] = uint32(v)
	}
	for i, w := range f.Swizzles {
		v, err := strconv.ParseUint(w, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("swizzle %d: %w", i, err)
		}
		prog.Swizzles[i] = uint32(v)
	}
	return &prog, nil
}

// UniformBlock builds the uniform storage named by the fixture.
func (f *Fixture) UniformBlock() (*shader.UniformBlock, error) {
	u := &shader.UniformBlock{}
	for name, v := range f.Uniforms.Float {
		id, err := parseUniformID(name, 'c', 95)
		if err != nil {
			return nil, err
		}
		vec, err := vec4(name, v)
		if err != nil {
			return nil, err
		}
		u.F[id] = vec
	}
	for name, v := range f.Uniforms.Int {
		id, err := parseUniformID(name, 'i', 3)
		if err != nil {
			return nil, err
		}
		if len(v) != 3 {
			return nil, fmt.Errorf("%s: want [count, start, increment]", name)
		}
		u.SetInt(id, v[0], v[1], v[2])
	}
	for name, v := range f.Uniforms.Bool {
		id, err := parseUniformID(name, 'b', 15)
		if err != nil {
			return nil, err
		}
		u.SetBool(id, v)
	}
	return u, nil
}

// State builds a fresh unit state with the fixture's input registers set.
func (f *Fixture) State() (*shader.UnitState, error) {
	st := &shader.UnitState{}
	for name, v := range f.Inputs {
		if len(name) < 2 || name[0] != 'v' {
			return nil, fmt.Errorf("bad input register %q", name)
		}
		id, err := strconv.Atoi(name[1:])
		if err != nil || id < 0 || id > 15 {
			return nil, fmt.Errorf("bad input register %q", name)
		}
		vec, err := vec4(name, v)
		if err != nil {
			return nil, err
		}
		st.Input[id] = vec
	}
	return st, nil
}

// Check compares the output registers the fixture names against state. NaN
// expectations match any NaN.
func (f *Fixture) Check(st *shader.UnitState) error {
	var bad []string
	for name, v := range f.Want {
		if len(name) < 2 || name[0] != 'o' {
			return fmt.Errorf("bad output register %q", name)
		}
		id, err := strconv.Atoi(name[1:])
		if err != nil || id < 0 || id > 15 {
			return fmt.Errorf("bad output register %q", name)
		}
		want, err := vec4(name, v)
		if err != nil {
			return err
		}
		got := st.Output[id]
		for i := 0; i < 4; i++ {
			if !laneMatches(got[i], want[i], f.Tolerance) {
				bad = append(bad, fmt.Sprintf("%s: got %v, want %v", name, got, want))
				break
			}
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%s", strings.Join(bad, "; "))
	}
	return nil
}

func laneMatches(got, want float32, tol float64) bool {
	if want != want {
		return got != got
	}
	if tol == 0 {
		return got == want
	}
	return math.Abs(float64(got)-float64(want)) <= tol
}

func vec4(name string, v []float32) (shader.Vec4, error) {
	if len(v) != 4 {
		return shader.Vec4{}, fmt.Errorf("%s: want four components, got %d", name, len(v))
	}
	return shader.Vec4{v[0], v[1], v[2], v[3]}, nil
}
