// Package jit translates shader programs into native AArch64 code. Registers
// are pinned for the whole run: the uniform block and unit state pointers,
// the address registers, the loop state and the two condition bits all live
// in fixed registers between instructions, so individual lowerings never
// spill them.
package jit

import "github.com/limonvm/shaderjit/internal/asm/arm64"

const (
	// regUniforms points at the UniformBlock for the whole run.
	regUniforms = arm64.X9
	// regAddr0 and regAddr1 hold the a0.x and a0.y address registers.
	regAddr0 = arm64.X10
	regAddr1 = arm64.X11
	// regLoopCount holds aL, the loop-visible counter.
	regLoopCount = arm64.X12
	// regLoopIter counts remaining iterations, regLoopInc is the step added
	// to aL each pass. Both are live only inside a loop body.
	regLoopIter = arm64.X6
	regLoopInc  = arm64.X7
	// regCond0 and regCond1 hold the x and y comparison bits.
	regCond0 = arm64.X13
	regCond1 = arm64.X14
	// regState points at the UnitState for the whole run.
	regState = arm64.X15
	// Integer scratch, free between lowerings.
	regScratch0 = arm64.X4
	regScratch1 = arm64.X5
	// regTarget carries far-call addresses.
	regTarget = arm64.X16
)

const (
	vScratch0 = arm64.V0
	vSrc1     = arm64.V1
	vSrc2     = arm64.V2
	vSrc3     = arm64.V3
	vScratch1 = arm64.V4
	// vOne holds the splatted constant 1.0 for the whole run.
	vOne      = arm64.V14
	vScratch2 = arm64.V15
)

// calleeSavedPairs is every callee-saved general purpose register, saved and
// restored around the whole shader invocation.
var calleeSavedPairs = [6][2]arm64.Reg{
	{arm64.X19, arm64.X20},
	{arm64.X21, arm64.X22},
	{arm64.X23, arm64.X24},
	{arm64.X25, arm64.X26},
	{arm64.X27, arm64.X28},
	{arm64.X29, arm64.X30},
}

// calleeSavedVecPairs is the callee-saved half of the vector file.
var calleeSavedVecPairs = [4][2]arm64.VReg{
	{arm64.V8, arm64.V9},
	{arm64.V10, arm64.V11},
	{arm64.V12, arm64.V13},
	{arm64.V14, arm64.V15},
}

// persistentCallerSavedPairs is the pinned state that lives in caller-saved
// registers, spilled around far calls into the host. The odd slot pairs with
// the zero register.
var persistentCallerSavedPairs = [5][2]arm64.Reg{
	{arm64.X6, arm64.X7},
	{arm64.X9, arm64.X10},
	{arm64.X11, arm64.X12},
	{arm64.X13, arm64.X14},
	{arm64.X15, arm64.XZR},
}
