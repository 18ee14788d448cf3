package jit

import (
	"github.com/limonvm/shaderjit/internal/asm/arm64"
	"github.com/limonvm/shaderjit/internal/shader"
)

// regNone marks a source with no relative addressing.
const regNone = arm64.Reg(0xFF)

// addrRegister maps an address register index to its pinned register.
func addrRegister(idx int) arm64.Reg {
	switch idx {
	case 1:
		return regAddr0
	case 2:
		return regAddr1
	case 3:
		return regLoopCount
	default:
		return regNone
	}
}

// loadSrc fetches one source operand into dest: the raw register read,
// address-relative indexing for uniforms, then the swizzle and negation the
// descriptor asks for.
func (c *compiler) loadSrc(swiz shader.SwizzlePattern, src shader.SourceRegister, srcNum int, addr arm64.Reg, dest arm64.VReg) {
	a := c.a
	switch src.Type() {
	case shader.RegFloatUniform:
		if addr != regNone {
			// Indexed uniform reads wrap modulo 128 and fall back to the
			// constant 1.0 outside the 96-entry float bank. A negative sum
			// wraps to index+offset+128, which can land back inside the bank.
			a.ADDWri(regScratch1, addr, 128)
			a.CMPWri(regScratch1, 256)
			a.CSELw(regScratch0, addr, arm64.WZR, arm64.LO)
			a.ADDWri(regScratch0, regScratch0, uint32(src.Index()))
			a.ANDWri(regScratch0, regScratch0, 0x7F)
			a.MOV16B(dest, vOne)
			a.CMPWri(regScratch0, 95)
			end := a.NewLabel()
			a.Bcond(arm64.GT, end)
			a.LDRQr(dest, regUniforms, regScratch0)
			a.L(end)
		} else {
			a.LDRQui(dest, regUniforms, shader.FloatUniformOffset(src.Index()))
		}
	case shader.RegInput:
		a.LDRQui(dest, regState, shader.InputOffset(src.Index()))
	case shader.RegTemporary:
		a.LDRQui(dest, regState, shader.TemporaryOffset(src.Index()))
	}

	if raw := swiz.RawSelector(srcNum); raw != shader.SelectorIdentity {
		// Byte shuffle: lane i of the result is lane sel(i) of the input.
		for i := 0; i < 4; i++ {
			comp := uint32(swiz.Selector(srcNum, i))
			entry := 0x03020100 + comp*0x04040404
			a.MovImm32(regScratch0, entry)
			a.INSgen(vScratch0, i, regScratch0)
		}
		a.TBL16B(dest, dest, vScratch0)
	}
	if swiz.NegateSrc(srcNum) {
		a.FNEG4S(dest, dest)
	}
}

// storeDest writes src back to the destination register under the component
// mask. A full mask is a plain store; otherwise the old value is loaded and
// the enabled lanes are blended in.
func (c *compiler) storeDest(swiz shader.SwizzlePattern, dest shader.DestRegister, src arm64.VReg) {
	a := c.a
	var off int
	switch dest.Type() {
	case shader.RegOutput:
		off = shader.OutputOffset(dest.Index())
	case shader.RegTemporary:
		off = shader.TemporaryOffset(dest.Index())
	}
	mask := swiz.DestMask()
	if mask == shader.DestMaskAll {
		a.STRQui(src, regState, off)
		return
	}
	a.LDRQui(vScratch0, regState, off)
	var mask32 uint32
	for i := 0; i < 4; i++ {
		if swiz.DestComponentEnabled(i) {
			mask32 |= 0xFF << (8 * i)
		}
	}
	a.MovImm32(regScratch0, mask32)
	a.INSgen(vScratch2, 0, regScratch0)
	// Widen each mask byte to a full lane.
	a.ZIP1v16B(vScratch2, vScratch2, vScratch2)
	a.ZIP1v8H(vScratch2, vScratch2, vScratch2)
	a.BSL16B(vScratch2, src, vScratch0)
	a.STRQui(vScratch2, regState, off)
}

// sanitizedMul multiplies src1 by src2 into src1 with the 0 * inf = 0 rule:
// lanes where FMULX and FMUL disagree are forced to zero, which only happens
// for the zero-times-infinity case where FMULX yields two and FMUL a NaN.
func (c *compiler) sanitizedMul(src1, src2 arm64.VReg) {
	a := c.a
	a.FMULX4S(vScratch0, src1, src2)
	a.FMUL4S(src1, src1, src2)
	a.CMEQ4S(vScratch0, vScratch0, src1)
	a.AND16B(src1, src1, vScratch0)
}

// evalCondition leaves the flow condition in the flags: NE means taken.
func (c *compiler) evalCondition(instr shader.Instruction) {
	a := c.a
	refX := uint64(0)
	if !instr.RefX() {
		refX = 1
	}
	refY := uint64(0)
	if !instr.RefY() {
		refY = 1
	}
	switch shader.FlowOp(instr.FlowOp()) {
	case shader.FlowOr:
		a.MovImm64(regScratch0, refX)
		a.MovImm64(regScratch1, refY)
		a.EORXrr(regScratch0, regScratch0, regCond0)
		a.EORXrr(regScratch1, regScratch1, regCond1)
		a.ORRXrr(regScratch0, regScratch0, regScratch1)
	case shader.FlowAnd:
		a.MovImm64(regScratch0, refX)
		a.MovImm64(regScratch1, refY)
		a.EORXrr(regScratch0, regScratch0, regCond0)
		a.EORXrr(regScratch1, regScratch1, regCond1)
		a.ANDXrr(regScratch0, regScratch0, regScratch1)
	case shader.FlowJustX:
		a.MovImm64(regScratch0, refX)
		a.EORXrr(regScratch0, regScratch0, regCond0)
	case shader.FlowJustY:
		a.MovImm64(regScratch0, refY)
		a.EORXrr(regScratch0, regScratch0, regCond1)
	}
	a.CMPXri(regScratch0, 0)
}

// uniformCondition tests a boolean uniform: NE means set.
func (c *compiler) uniformCondition(id int) {
	c.a.LDRBui(regScratch0, regUniforms, shader.BoolUniformOffset(id))
	c.a.CMPWri(regScratch0, 0)
}

// commonSrcs loads the one or two sources of a common-format instruction into
// vSrc1 and vSrc2. The wide operand slot is the one relative addressing can
// apply to.
func (c *compiler) commonSrcs(instr shader.Instruction, two bool) shader.SwizzlePattern {
	swiz := c.prog.Swizzle(int(instr.OperandDescID()))
	addr := addrRegister(instr.AddressRegisterIndex())
	if instr.Opcode().Inverted() {
		c.loadSrc(swiz, shader.SourceRegister(instr.Src1i()), 1, regNone, vSrc1)
		if two {
			c.loadSrc(swiz, shader.SourceRegister(instr.Src2i()), 2, addr, vSrc2)
		}
	} else {
		c.loadSrc(swiz, shader.SourceRegister(instr.Src1()), 1, addr, vSrc1)
		if two {
			c.loadSrc(swiz, shader.SourceRegister(instr.Src2()), 2, regNone, vSrc2)
		}
	}
	return swiz
}
