package jit

import "github.com/limonvm/shaderjit/internal/asm/arm64"

// calleeSavedFrame is 16 bytes of shadow space followed by the saved general
// purpose pairs and then the saved vector pairs.
const (
	calleeSavedFrame   = 16 + 6*16 + 4*32
	calleeSavedGPBase  = 16
	calleeSavedVecBase = calleeSavedGPBase + 6*16
	callerSavedFrame   = 5 * 16
)

func (c *compiler) pushCalleeSaved() {
	a := c.a
	a.SUBXri(arm64.SP, arm64.SP, calleeSavedFrame)
	for i, p := range calleeSavedPairs {
		a.STPXi(p[0], p[1], arm64.SP, calleeSavedGPBase+16*i)
	}
	for i, p := range calleeSavedVecPairs {
		a.STPQi(p[0], p[1], arm64.SP, calleeSavedVecBase+32*i)
	}
}

func (c *compiler) popCalleeSaved() {
	a := c.a
	for i, p := range calleeSavedPairs {
		a.LDPXi(p[0], p[1], arm64.SP, calleeSavedGPBase+16*i)
	}
	for i, p := range calleeSavedVecPairs {
		a.LDPQi(p[0], p[1], arm64.SP, calleeSavedVecBase+32*i)
	}
	a.ADDXri(arm64.SP, arm64.SP, calleeSavedFrame)
}

// pushPersistent spills the pinned caller-saved registers around a call into
// the host. The vector side needs no spill: the host preserves only the low
// 64 bits of V8-V15, so popPersistent rebuilds the vOne splat instead.
func (c *compiler) pushPersistent() {
	a := c.a
	a.SUBXri(arm64.SP, arm64.SP, callerSavedFrame)
	for i, p := range persistentCallerSavedPairs {
		a.STPXi(p[0], p[1], arm64.SP, 16*i)
	}
}

func (c *compiler) popPersistent() {
	a := c.a
	for i, p := range persistentCallerSavedPairs {
		a.LDPXi(p[0], p[1], arm64.SP, 16*i)
	}
	a.ADDXri(arm64.SP, arm64.SP, callerSavedFrame)
	a.FMOVi4S(vOne, 0x70) // 1.0 in all lanes
}

// farCall branches to a host function at a fixed address. Arguments must
// already sit in the ABI argument registers and the persistent registers must
// already be spilled.
func (c *compiler) farCall(target uintptr) {
	c.a.MovImm64(regTarget, uint64(target))
	c.a.BLR(regTarget)
}
