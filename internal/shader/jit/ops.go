package jit

import (
	"github.com/limonvm/shaderjit/internal/asm/arm64"
	"github.com/limonvm/shaderjit/internal/shader"
)

// dispatch maps an effective opcode to its lowering. Nil entries are opcodes
// the hardware defines but no known title exercises; they compile to nothing
// and are logged each time the compiler meets one.
var dispatch [64]func(*compiler, shader.Instruction)

func init() {
	dispatch = [64]func(*compiler, shader.Instruction){
		shader.OpADD:    (*compiler).opADD,
		shader.OpDP3:    (*compiler).opDP3,
		shader.OpDP4:    (*compiler).opDP4,
		shader.OpDPH:    (*compiler).opDPH,
		shader.OpEX2:    (*compiler).opEX2,
		shader.OpLG2:    (*compiler).opLG2,
		shader.OpMUL:    (*compiler).opMUL,
		shader.OpSGE:    (*compiler).opSGE,
		shader.OpSLT:    (*compiler).opSLT,
		shader.OpFLR:    (*compiler).opFLR,
		shader.OpMAX:    (*compiler).opMAX,
		shader.OpMIN:    (*compiler).opMIN,
		shader.OpRCP:    (*compiler).opRCP,
		shader.OpRSQ:    (*compiler).opRSQ,
		shader.OpMOVA:   (*compiler).opMOVA,
		shader.OpMOV:    (*compiler).opMOV,
		shader.OpDPHI:   (*compiler).opDPH,
		shader.OpSGEI:   (*compiler).opSGE,
		shader.OpSLTI:   (*compiler).opSLT,
		shader.OpNOP:    (*compiler).opNOP,
		shader.OpEND:    (*compiler).opEND,
		shader.OpBREAKC: (*compiler).opBREAKC,
		shader.OpCALL:   (*compiler).opCALL,
		shader.OpCALLC:  (*compiler).opCALLC,
		shader.OpCALLU:  (*compiler).opCALLU,
		shader.OpIFU:    (*compiler).opIFU,
		shader.OpIFC:    (*compiler).opIFC,
		shader.OpLOOP:   (*compiler).opLOOP,
		shader.OpEMIT:   (*compiler).opEMIT,
		shader.OpSETE:   (*compiler).opSETEMIT,
		shader.OpJMPC:   (*compiler).opJMPC,
		shader.OpJMPU:   (*compiler).opJMPU,
		shader.OpCMP:    (*compiler).opCMP,
		shader.OpMADI:   (*compiler).opMAD,
		shader.OpMAD:    (*compiler).opMAD,
	}
}

func (c *compiler) opADD(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.a.FADD4S(vSrc1, vSrc1, vSrc2)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

// dotProduct sums the active lanes of the sanitized product and broadcasts
// the result.
func (c *compiler) dotProduct(swiz shader.SwizzlePattern, dest shader.DestRegister, zeroW bool) {
	a := c.a
	c.sanitizedMul(vSrc1, vSrc2)
	if zeroW {
		a.INSgen(vSrc1, 3, arm64.WZR)
	}
	a.FADDP4S(vSrc1, vSrc1, vSrc1)
	a.FADDPs(vSrc1, vSrc1)
	a.DUP4S(vSrc1, vSrc1, 0)
	c.storeDest(swiz, dest, vSrc1)
}

func (c *compiler) opDP3(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.dotProduct(swiz, shader.DestRegister(instr.Dest()), true)
}

func (c *compiler) opDP4(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.dotProduct(swiz, shader.DestRegister(instr.Dest()), false)
}

// opDPH covers DPH and DPHI: the w lane of the first source reads as 1.0.
func (c *compiler) opDPH(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.a.INSelem(vSrc1, 3, vOne, 0)
	c.dotProduct(swiz, shader.DestRegister(instr.Dest()), false)
}

func (c *compiler) opEX2(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.a.BL(c.exp2Label)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opLG2(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.a.BL(c.log2Label)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opMUL(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.sanitizedMul(vSrc1, vSrc2)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opSGE(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.a.FCMGE4S(vSrc2, vSrc1, vSrc2)
	c.a.AND16B(vSrc2, vSrc2, vOne)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc2)
}

func (c *compiler) opSLT(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, true)
	c.a.FCMGT4S(vSrc1, vSrc2, vSrc1)
	c.a.AND16B(vSrc1, vSrc1, vOne)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opFLR(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.a.FRINTM4S(vSrc1, vSrc1)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

// minMax lowers MAX and MIN with the asymmetric NaN rule: a NaN in either
// operand selects the second operand lane.
func (c *compiler) minMax(instr shader.Instruction, max bool) {
	a := c.a
	swiz := c.commonSrcs(instr, true)
	a.FCMEQ4S(vScratch0, vSrc1, vSrc1)
	a.FCMEQ4S(vScratch1, vSrc2, vSrc2)
	a.AND16B(vScratch0, vScratch0, vScratch1)
	if max {
		a.FMAX4S(vSrc1, vSrc1, vSrc2)
	} else {
		a.FMIN4S(vSrc1, vSrc1, vSrc2)
	}
	a.BIF16B(vSrc1, vSrc2, vScratch0)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opMAX(instr shader.Instruction) { c.minMax(instr, true) }
func (c *compiler) opMIN(instr shader.Instruction) { c.minMax(instr, false) }

func (c *compiler) opRCP(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.a.FDIVs(vSrc1, vOne, vSrc1)
	c.a.DUP4S(vSrc1, vSrc1, 0)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opRSQ(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.a.FSQRTs(vSrc1, vSrc1)
	c.a.FDIVs(vSrc1, vOne, vSrc1)
	c.a.DUP4S(vSrc1, vSrc1, 0)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

// opMOVA truncates the x and y lanes of the source into the address
// registers selected by the dest mask.
func (c *compiler) opMOVA(instr shader.Instruction) {
	a := c.a
	swiz := c.prog.Swizzle(int(instr.OperandDescID()))
	writeX := swiz.DestComponentEnabled(0)
	writeY := swiz.DestComponentEnabled(1)
	if !writeX && !writeY {
		return
	}
	c.commonSrcs(instr, false)
	a.FCVTZS4S(vSrc1, vSrc1)
	switch {
	case writeX && writeY:
		a.UMOVx(regScratch0, vSrc1, 0)
		a.SXTWx(regAddr0, regScratch0)
		a.LSRXri(regScratch0, regScratch0, 32)
		a.SXTWx(regAddr1, regScratch0)
	case writeX:
		a.UMOVw(regScratch0, vSrc1, 0)
		a.SXTWx(regAddr0, regScratch0)
	default:
		a.UMOVw(regScratch0, vSrc1, 1)
		a.SXTWx(regAddr1, regScratch0)
	}
}

func (c *compiler) opMOV(instr shader.Instruction) {
	swiz := c.commonSrcs(instr, false)
	c.storeDest(swiz, shader.DestRegister(instr.Dest()), vSrc1)
}

func (c *compiler) opNOP(shader.Instruction) {}

// opEND writes the pinned execution state back to the unit state and returns
// to the host.
func (c *compiler) opEND(shader.Instruction) {
	a := c.a
	a.STRBui(regCond0, regState, shader.ConditionalCodeOffset(0))
	a.STRBui(regCond1, regState, shader.ConditionalCodeOffset(1))
	a.STRWui(regAddr0, regState, shader.AddressRegisterOffset(0))
	a.STRWui(regAddr1, regState, shader.AddressRegisterOffset(1))
	a.STRWui(regLoopCount, regState, shader.AddressRegisterOffset(2))
	c.popCalleeSaved()
	a.RET()
}

func (c *compiler) opBREAKC(instr shader.Instruction) {
	if c.loopDepth == 0 {
		c.fail("BREAKC outside a loop at %d", c.pc-1)
		return
	}
	c.evalCondition(instr)
	c.a.Bcond(arm64.NE, c.breakLabels[len(c.breakLabels)-1])
}

// callTo emits an unconditional subroutine call: the return point is pushed
// so the callee's return checks can match it.
func (c *compiler) callTo(instr shader.Instruction) {
	a := c.a
	dest := int(instr.DestOffset())
	num := int(instr.NumInstructions())
	a.MovImm64(regScratch0, uint64(dest+num))
	a.STRXpost(regScratch0, arm64.SP, -16)
	a.BL(instrLabel(dest))
	a.ADDXri(arm64.SP, arm64.SP, 16)
}

func (c *compiler) opCALL(instr shader.Instruction) { c.callTo(instr) }

func (c *compiler) opCALLC(instr shader.Instruction) {
	c.evalCondition(instr)
	skip := c.a.NewLabel()
	c.a.Bcond(arm64.EQ, skip)
	c.callTo(instr)
	c.a.L(skip)
}

func (c *compiler) opCALLU(instr shader.Instruction) {
	c.uniformCondition(int(instr.BoolUniformID()))
	skip := c.a.NewLabel()
	c.a.Bcond(arm64.NE, skip)
	c.callTo(instr)
	c.a.L(skip)
}

// compareConds maps a compare operation to the condition that selects a true
// result after FCMP. Operations 6 and 7 always compare true.
var compareConds = [6]arm64.Cond{
	shader.CmpEqual:        arm64.EQ,
	shader.CmpNotEqual:     arm64.NE,
	shader.CmpLessThan:     arm64.MI,
	shader.CmpLessEqual:    arm64.LS,
	shader.CmpGreaterThan:  arm64.GT,
	shader.CmpGreaterEqual: arm64.GE,
}

func (c *compiler) opCMP(instr shader.Instruction) {
	a := c.a
	swiz := c.prog.Swizzle(int(instr.OperandDescID()))
	addr := addrRegister(instr.AddressRegisterIndex())
	c.loadSrc(swiz, instr.Src1(), 1, addr, vSrc1)
	c.loadSrc(swiz, instr.Src2(), 2, regNone, vSrc2)

	opX := int(instr.CompareOpX())
	opY := int(instr.CompareOpY())
	if opX < len(compareConds) {
		a.FCMPs(vSrc1, vSrc2)
		a.CSETx(regCond0, compareConds[opX])
	} else {
		a.MovImm64(regCond0, 1)
	}
	if opY < len(compareConds) {
		a.DUPs(vScratch0, vSrc1, 1)
		a.DUPs(vScratch1, vSrc2, 1)
		a.FCMPs(vScratch0, vScratch1)
		a.CSETx(regCond1, compareConds[opY])
	} else {
		a.MovImm64(regCond1, 1)
	}
}

// opMAD covers MAD and MADI.
func (c *compiler) opMAD(instr shader.Instruction) {
	swiz := c.prog.Swizzle(int(instr.MadOperandDescID()))
	addr := addrRegister(instr.MadAddressRegisterIndex())
	c.loadSrc(swiz, shader.SourceRegister(instr.MadSrc1()), 1, regNone, vSrc1)
	if instr.Opcode().Inverted() {
		c.loadSrc(swiz, shader.SourceRegister(instr.MadSrc2i()), 2, regNone, vSrc2)
		c.loadSrc(swiz, shader.SourceRegister(instr.MadSrc3i()), 3, addr, vSrc3)
	} else {
		c.loadSrc(swiz, shader.SourceRegister(instr.MadSrc2()), 2, addr, vSrc2)
		c.loadSrc(swiz, shader.SourceRegister(instr.MadSrc3()), 3, regNone, vSrc3)
	}
	c.sanitizedMul(vSrc1, vSrc2)
	c.a.FADD4S(vSrc1, vSrc1, vSrc3)
	c.storeDest(swiz, shader.DestRegister(instr.MadDest()), vSrc1)
}

// compileIf lowers the two structured conditionals. The body and the else
// block are compiled inline; dest marks the else block, num its length.
// Bodies only run forward.
func (c *compiler) compileIf(instr shader.Instruction, uniform bool) {
	a := c.a
	dest := int(instr.DestOffset())
	num := int(instr.NumInstructions())
	if dest < c.pc-1 {
		c.fail("backward IF block at %d targets %d", c.pc-1, dest)
		return
	}
	if uniform {
		c.uniformCondition(int(instr.BoolUniformID()))
	} else {
		c.evalCondition(instr)
	}
	elseLabel := a.NewLabel()
	a.Bcond(arm64.EQ, elseLabel)
	c.compileBlock(dest)
	if num == 0 {
		a.L(elseLabel)
		return
	}
	endLabel := a.NewLabel()
	a.B(endLabel)
	a.L(elseLabel)
	c.compileBlock(dest + num)
	a.L(endLabel)
}

func (c *compiler) opIFU(instr shader.Instruction) { c.compileIf(instr, true) }
func (c *compiler) opIFC(instr shader.Instruction) { c.compileIf(instr, false) }

// opLOOP materializes the counted loop from an integer uniform: the packed
// (count, start, increment) byte triple drives aL. The loop registers are
// pinned for a single live loop, so nesting and backward bodies are rejected.
func (c *compiler) opLOOP(instr shader.Instruction) {
	a := c.a
	dest := int(instr.DestOffset())
	id := int(instr.IntUniformID())

	if dest < c.pc-1 {
		c.fail("backward LOOP at %d targets %d", c.pc-1, dest)
		return
	}
	if c.loopDepth > 0 {
		c.fail("nested LOOP at %d", c.pc-1)
		return
	}
	c.loopDepth++

	a.LDRWui(regLoopIter, regUniforms, shader.IntUniformOffset(id))
	a.LSRWri(regLoopCount, regLoopIter, 8)
	a.ANDWri(regLoopCount, regLoopCount, 0xFF)
	a.LSRWri(regLoopInc, regLoopIter, 16)
	a.ANDWri(regLoopInc, regLoopInc, 0xFF)
	a.UXTBw(regLoopIter, regLoopIter)
	a.ADDWri(regLoopIter, regLoopIter, 1)

	start := a.NewLabel()
	a.L(start)
	breakLabel := a.NewLabel()
	c.breakLabels = append(c.breakLabels, breakLabel)
	c.compileBlock(dest + 1)
	c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]

	a.ADDWrr(regLoopCount, regLoopCount, regLoopInc)
	a.SUBWri(regLoopIter, regLoopIter, 1)
	a.CMPWri(regLoopIter, 0)
	a.Bcond(arm64.NE, start)
	a.L(breakLabel)

	c.loopDepth--
}

func (c *compiler) opJMPC(instr shader.Instruction) {
	c.evalCondition(instr)
	c.a.Bcond(arm64.NE, instrLabel(int(instr.DestOffset())))
}

func (c *compiler) opJMPU(instr shader.Instruction) {
	c.uniformCondition(int(instr.BoolUniformID()))
	cond := arm64.NE
	if instr.NumInstructions()&1 != 0 {
		cond = arm64.EQ
	}
	c.a.Bcond(cond, instrLabel(int(instr.DestOffset())))
}

func (c *compiler) opEMIT(instr shader.Instruction) {
	a := c.a
	have := a.NewLabel()
	end := a.NewLabel()
	a.LDRXui(regScratch0, regState, shader.EmitterPtrOffset())
	a.CMPXri(regScratch0, 0)
	a.Bcond(arm64.NE, have)
	c.pushPersistent()
	a.MovImm64(arm64.X0, uint64(c.hooks.MsgEmitVS))
	c.farCall(c.hooks.LogCritical)
	c.popPersistent()
	a.B(end)
	a.L(have)
	c.pushPersistent()
	a.MOVx(arm64.X0, regScratch0)
	a.MOVx(arm64.X1, regState)
	a.ADDXri(arm64.X1, arm64.X1, uint32(shader.OutputOffset(0)))
	c.farCall(c.hooks.Emit)
	c.popPersistent()
	a.L(end)
}

func (c *compiler) opSETEMIT(instr shader.Instruction) {
	a := c.a
	have := a.NewLabel()
	end := a.NewLabel()
	a.LDRXui(regScratch0, regState, shader.EmitterPtrOffset())
	a.CMPXri(regScratch0, 0)
	a.Bcond(arm64.NE, have)
	c.pushPersistent()
	a.MovImm64(arm64.X0, uint64(c.hooks.MsgSetEmitVS))
	c.farCall(c.hooks.LogCritical)
	c.popPersistent()
	a.B(end)
	a.L(have)
	a.MovImm32(regScratch1, uint32(instr.VertexID()))
	a.STRBui(regScratch1, regScratch0, shader.EmitterVertexIDOffset)
	a.MovImm32(regScratch1, boolByte(instr.PrimEmit()))
	a.STRBui(regScratch1, regScratch0, shader.EmitterPrimEmitOffset)
	a.MovImm32(regScratch1, boolByte(instr.Winding()))
	a.STRBui(regScratch1, regScratch0, shader.EmitterWindingOffset)
	a.L(end)
}

func boolByte(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
