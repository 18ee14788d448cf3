package jit

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/limonvm/shaderjit/internal/asm"
	"github.com/limonvm/shaderjit/internal/asm/arm64"
	"github.com/limonvm/shaderjit/internal/shader"
)

// MaxCodeSize bounds the emitted native code at an average of 64 bytes per
// source instruction, which the densest lowerings stay inside.
const MaxCodeSize = shader.MaxProgramLen * 64

// Hooks are the host entry points compiled code can call out to, plus the
// addresses of the NUL-terminated messages it logs with.
type Hooks struct {
	LogCritical  uintptr
	Emit         uintptr
	MsgEmitVS    uintptr
	MsgSetEmitVS uintptr
}

type compiler struct {
	a    *arm64.Assembler
	prog *shader.Program
	pc   int

	// returnOffsets are the sorted return addresses of every call in the
	// program. Each one gets a check that compares the pushed return slot
	// before its instruction executes.
	returnOffsets []int

	loopDepth   int
	breakLabels []asm.Label

	exp2Label asm.Label
	log2Label asm.Label

	hooks Hooks
	err   error
}

// fail records the first ill-formed-program error. Compilation continues so
// every instruction still gets a label, but the result is discarded.
func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("jit: "+format, args...)
	}
}

func instrLabel(pc int) asm.Label {
	return asm.Label(fmt.Sprintf("i%04d", pc))
}

// findReturnOffsets records where every subroutine returns to, so the main
// compile loop knows where to place return checks.
func (c *compiler) findReturnOffsets() {
	for pc := 0; pc < shader.MaxProgramLen; pc++ {
		instr := c.prog.Instruction(pc)
		switch instr.Opcode().Effective() {
		case shader.OpCALL, shader.OpCALLC, shader.OpCALLU:
			c.returnOffsets = append(c.returnOffsets,
				int(instr.DestOffset())+int(instr.NumInstructions()))
		}
	}
	sort.Ints(c.returnOffsets)
}

func (c *compiler) isReturnOffset(pc int) bool {
	i := sort.SearchInts(c.returnOffsets, pc)
	return i < len(c.returnOffsets) && c.returnOffsets[i] == pc
}

// compileReturn pops back to the caller when the pushed return slot matches
// the current position.
func (c *compiler) compileReturn() {
	a := c.a
	skip := a.NewLabel()
	a.LDRXui(regScratch0, arm64.SP, 16)
	a.CMPWri(regScratch0, uint32(c.pc))
	a.Bcond(arm64.NE, skip)
	a.RET()
	a.L(skip)
}

func (c *compiler) compileBlock(end int) {
	for c.pc < end {
		c.compileNext()
	}
}

func (c *compiler) compileNext() {
	if c.isReturnOffset(c.pc) {
		c.compileReturn()
	}
	c.a.L(instrLabel(c.pc))
	instr := c.prog.Instruction(c.pc)
	c.pc++
	op := instr.Opcode().Effective()
	if handler := dispatch[op&0x3F]; handler != nil {
		handler(c, instr)
	} else {
		slog.Error("jit: unhandled instruction", "opcode", op.String(), "pc", c.pc-1,
			"word", fmt.Sprintf("%08x", uint32(instr)))
	}
}

// compile emits the whole program: the shared subroutines, the entry
// prologue, then every instruction in order. It returns the finished code,
// the prologue offset and the per-instruction offsets.
func (c *compiler) compile() (asm.Program, int, []int, error) {
	a := c.a
	c.findReturnOffsets()
	c.compilePrelude()

	entry := a.Pos()
	c.pushCalleeSaved()
	// Depth marker below the saved registers. Return checks at the top level
	// compare against the first saved slot instead, which never holds a
	// program counter, so top-level code falls through them.
	a.MVNx(regScratch0, arm64.XZR)
	a.STRXui(regScratch0, arm64.SP, 8)

	a.MOVx(regUniforms, arm64.X0)
	a.MOVx(regState, arm64.X1)
	a.LDRWui(regAddr0, regState, shader.AddressRegisterOffset(0))
	a.LDRWui(regAddr1, regState, shader.AddressRegisterOffset(1))
	a.LDRWui(regLoopCount, regState, shader.AddressRegisterOffset(2))
	a.LDRBui(regCond0, regState, shader.ConditionalCodeOffset(0))
	a.LDRBui(regCond1, regState, shader.ConditionalCodeOffset(1))
	a.FMOVi4S(vOne, 0x70) // 1.0 in all lanes
	a.BR(arm64.X2)

	c.compileBlock(shader.MaxProgramLen)
	if c.err != nil {
		return asm.Program{}, 0, nil, c.err
	}

	prog, err := a.Finalize()
	if err != nil {
		return asm.Program{}, 0, nil, err
	}
	if prog.Len() > MaxCodeSize {
		return asm.Program{}, 0, nil, fmt.Errorf("jit: emitted %d bytes, limit %d", prog.Len(), MaxCodeSize)
	}
	offsets := make([]int, shader.MaxProgramLen)
	for pc := range offsets {
		off, ok := a.LabelOffset(instrLabel(pc))
		if !ok {
			return asm.Program{}, 0, nil, fmt.Errorf("jit: no code for instruction %d", pc)
		}
		offsets[pc] = off
	}
	return prog, entry, offsets, nil
}

// Assemble translates prog without mapping it executable, which works on any
// host. The hooks may be zero when the code will only be inspected.
func Assemble(prog *shader.Program, hooks Hooks) (asm.Program, error) {
	c := &compiler{a: arm64.NewAssembler(), prog: prog, hooks: hooks}
	code, _, _, err := c.compile()
	return code, err
}
