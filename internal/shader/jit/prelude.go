package jit

import (
	"github.com/limonvm/shaderjit/internal/asm"
	"github.com/limonvm/shaderjit/internal/asm/arm64"
)

// The EX2 and LG2 lowerings call shared polynomial subroutines emitted once
// at the front of the buffer. Both take their argument in the x lane of the
// first source register, broadcast the result to all four lanes and clobber
// only scratch registers; log2 also overwrites the second source register.

// compilePrelude emits the constant pools and both subroutines and records
// their entry labels.
func (c *compiler) compilePrelude() {
	c.compileExp2()
	c.compileLog2()
}

func (c *compiler) compileExp2() {
	a := c.a

	inputMax := a.NewLabel()
	inputMin := a.NewLabel()
	half := a.NewLabel()
	c0 := a.NewLabel()
	c1 := a.NewLabel()
	c2 := a.NewLabel()
	c3 := a.NewLabel()
	c4 := a.NewLabel()
	for _, p := range []struct {
		label asm.Label
		word  uint32
	}{
		{inputMax, 0x43010000},
		{inputMin, 0xC2FDFFFF},
		{half, 0x3F000000},
		{c0, 0x3C5DBE69},
		{c1, 0x3D5509F9},
		{c2, 0x3E773CC5},
		{c3, 0x3F3168B3},
		{c4, 0x3F800016},
	} {
		a.L(p.label)
		a.Word(p.word)
	}

	ret := a.NewLabel()
	c.exp2Label = asm.Label("exp2")
	a.L(c.exp2Label)
	a.FCMPs(vSrc1, vSrc1)
	a.Bcond(arm64.NE, ret)

	// Clamp to the exactly representable range, then split into integer
	// exponent and fractional part.
	a.LDRSlit(vScratch0, inputMax)
	a.FMINs(vSrc1, vSrc1, vScratch0)
	a.LDRSlit(vScratch0, inputMin)
	a.FMAXs(vSrc1, vSrc1, vScratch0)
	a.LDRSlit(vScratch0, half)
	a.FSUBs(vScratch0, vSrc1, vScratch0)
	a.FCVTNSs(vScratch0, vScratch0)
	a.UMOVw(regScratch0, vScratch0, 0)
	a.SCVTFsw(vScratch0, regScratch0)
	a.ADDWri(regScratch0, regScratch0, 0x7F)
	a.FSUBs(vSrc1, vSrc1, vScratch0)
	a.LSLWri(regScratch0, regScratch0, 23)
	a.INSgen(vScratch0, 0, regScratch0)

	// Degree-four polynomial for 2^f on the fractional part, then scale by
	// the reassembled power of two.
	a.LDRSlit(vScratch1, c0)
	a.FMULs(vScratch1, vSrc1, vScratch1)
	a.LDRSlit(vScratch2, c1)
	a.FADDs(vScratch1, vScratch1, vScratch2)
	a.FMULs(vScratch1, vScratch1, vSrc1)
	a.LDRSlit(vScratch2, c2)
	a.FADDs(vScratch1, vScratch1, vScratch2)
	a.FMULs(vScratch1, vScratch1, vSrc1)
	a.LDRSlit(vScratch2, c3)
	a.FADDs(vScratch1, vScratch1, vScratch2)
	a.FMULs(vSrc1, vScratch1, vSrc1)
	a.LDRSlit(vScratch2, c4)
	a.FADDs(vSrc1, vScratch2, vSrc1)
	a.FMULs(vSrc1, vSrc1, vScratch0)

	a.L(ret)
	a.DUP4S(vSrc1, vSrc1, 0)
	a.RET()
}

func (c *compiler) compileLog2() {
	a := c.a

	a.Align(16)
	coeffs := a.NewLabel()
	a.L(coeffs)
	a.Word(0xBEEE7397)
	a.Word(0x3FBD96DD)
	a.Word(0xC02153F6)
	a.Word(0x4038D96C)
	negInf := a.NewLabel()
	a.L(negInf)
	for i := 0; i < 4; i++ {
		a.Word(0xFF800000)
	}
	quietNaN := a.NewLabel()
	a.L(quietNaN)
	for i := 0; i < 4; i++ {
		a.Word(0x7FC00000)
	}
	c0 := a.NewLabel()
	a.L(c0)
	a.Word(0x3D74552F)

	outOfRange := a.NewLabel()
	isZero := a.NewLabel()
	isNaN := a.NewLabel()

	a.L(outOfRange)
	a.Bcond(arm64.EQ, isZero)
	a.LDRQlit(vSrc1, quietNaN)
	a.RET()
	a.L(isZero)
	a.LDRQlit(vSrc1, negInf)
	a.RET()

	c.log2Label = asm.Label("log2")
	a.L(c.log2Label)
	a.FCMEQs(vScratch0, vSrc1, vSrc1)
	a.UMOVw(regScratch0, vScratch0, 0)
	a.CMPWri(regScratch0, 0)
	a.Bcond(arm64.EQ, isNaN)
	a.UMOVw(regScratch0, vSrc1, 0)
	a.CMPWri(regScratch0, 0)
	a.Bcond(arm64.LE, outOfRange)

	// Split into exponent and a mantissa normalized to [1, 2).
	a.UMOVw(regScratch0, vSrc1, 0)
	a.MOVw(regScratch1, regScratch0)
	a.ANDWri(regScratch0, regScratch0, 0x7F800000)
	a.ANDWri(regScratch1, regScratch1, 0x007FFFFF)
	a.ORRWri(regScratch1, regScratch1, 0x3F800000)
	a.INSgen(vSrc1, 0, regScratch1)
	a.LSRWri(regScratch0, regScratch0, 23)
	a.SUBWri(regScratch0, regScratch0, 0x7F)
	a.INSgen(vScratch1, 0, regScratch0)
	a.SCVTFs(vScratch1, vScratch1)

	// Degree-four polynomial in the mantissa, folded with (m - 1), plus the
	// exponent.
	a.LDRSlit(vScratch0, c0)
	a.LDRQlit(vSrc2, coeffs)
	a.FMULs(vScratch0, vScratch0, vSrc1)
	a.FMLAelem(vScratch0, vOne, vSrc2, 0)
	a.FMULs(vScratch0, vScratch0, vSrc1)
	a.FMLAelem(vScratch0, vOne, vSrc2, 1)
	a.FMULs(vScratch0, vScratch0, vSrc1)
	a.FMLAelem(vScratch0, vOne, vSrc2, 2)
	a.FMULs(vScratch0, vScratch0, vSrc1)
	a.FSUBs(vSrc1, vSrc1, vOne)
	a.FMLAelem(vScratch0, vOne, vSrc2, 3)
	a.FMULs(vScratch0, vScratch0, vSrc1)
	a.FADDs(vScratch1, vScratch0, vScratch1)
	a.INSelem(vSrc1, 0, vScratch1, 0)

	a.L(isNaN)
	a.DUP4S(vSrc1, vSrc1, 0)
	a.RET()
}

