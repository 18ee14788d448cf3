package arm64

// SIMD and floating point mnemonics. Vector forms use the full 128-bit
// register with the 4S (or 16B) arrangement, except ZIP1v8H (8H) and the
// FADDPs pairwise reduction (2S source).

func (a *Assembler) FMUL4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFMUL4S, rd, rn, rm)) }
func (a *Assembler) FMULX4S(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseFMULX4S, rd, rn, rm)) }
func (a *Assembler) FADD4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFADD4S, rd, rn, rm)) }
func (a *Assembler) FSUB4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFSUB4S, rd, rn, rm)) }
func (a *Assembler) FDIV4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFDIV4S, rd, rn, rm)) }
func (a *Assembler) FMIN4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFMIN4S, rd, rn, rm)) }
func (a *Assembler) FMAX4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseFMAX4S, rd, rn, rm)) }
func (a *Assembler) FCMEQ4S(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseFCMEQ4S, rd, rn, rm)) }
func (a *Assembler) FCMGE4S(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseFCMGE4S, rd, rn, rm)) }
func (a *Assembler) FCMGT4S(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseFCMGT4S, rd, rn, rm)) }
func (a *Assembler) CMEQ4S(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseCMEQ4S, rd, rn, rm)) }
func (a *Assembler) AND16B(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseAND16B, rd, rn, rm)) }
func (a *Assembler) ORR16B(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseORR16B, rd, rn, rm)) }
func (a *Assembler) BSL16B(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseBSL16B, rd, rn, rm)) }
func (a *Assembler) BIF16B(rd, rn, rm VReg)  { a.word(encodeVecThreeSame(baseBIF16B, rd, rn, rm)) }
func (a *Assembler) ZIP1v16B(rd, rn, rm VReg) {
	a.word(encodeVecThreeSame(baseZIP116B, rd, rn, rm))
}
func (a *Assembler) ZIP1v8H(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseZIP18H, rd, rn, rm)) }
func (a *Assembler) FADDP4S(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseFADDP4S, rd, rn, rm)) }

// MOV16B copies a whole vector register.
func (a *Assembler) MOV16B(rd, rn VReg) { a.ORR16B(rd, rn, rn) }

// TBL16B performs a single-table byte lookup.
func (a *Assembler) TBL16B(rd, rn, rm VReg) { a.word(encodeVecThreeSame(baseTBL16B, rd, rn, rm)) }

func (a *Assembler) FNEG4S(rd, rn VReg)   { a.word(encodeVecTwoReg(baseFNEG4S, rd, rn)) }
func (a *Assembler) FRINTM4S(rd, rn VReg) { a.word(encodeVecTwoReg(baseFRINTM4S, rd, rn)) }
func (a *Assembler) FCVTZS4S(rd, rn VReg) { a.word(encodeVecTwoReg(baseFCVTZS4S, rd, rn)) }

// FADDPs sums the two S lanes of Vn.2S into Sd.
func (a *Assembler) FADDPs(rd, rn VReg) { a.word(encodeVecTwoReg(0x7E30D800, rd, rn)) }

// Element moves.

func (a *Assembler) DUP4S(rd, rn VReg, lane int)  { a.wordErr(encodeDupElemVec(rd, rn, lane)) }
func (a *Assembler) DUPs(rd, rn VReg, lane int)   { a.wordErr(encodeDupElemScalar(rd, rn, lane)) }
func (a *Assembler) INSgen(rd VReg, lane int, rn Reg) {
	a.wordErr(encodeInsGen(rd, lane, rn))
}
func (a *Assembler) INSelem(rd VReg, dstLane int, rn VReg, srcLane int) {
	a.wordErr(encodeInsElem(rd, dstLane, rn, srcLane))
}
func (a *Assembler) UMOVw(rd Reg, rn VReg, lane int) { a.wordErr(encodeUmovW(rd, rn, lane)) }
func (a *Assembler) UMOVx(rd Reg, rn VReg, lane int) { a.wordErr(encodeUmovX(rd, rn, lane)) }

// Scalar floating point.

func (a *Assembler) FMULs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFMULs, rd, rn, rm)) }
func (a *Assembler) FDIVs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFDIVs, rd, rn, rm)) }
func (a *Assembler) FADDs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFADDs, rd, rn, rm)) }
func (a *Assembler) FSUBs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFSUBs, rd, rn, rm)) }
func (a *Assembler) FMAXs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFMAXs, rd, rn, rm)) }
func (a *Assembler) FMINs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(baseFMINs, rd, rn, rm)) }

func (a *Assembler) FSQRTs(rd, rn VReg) { a.word(0x1E21C000 | uint32(rn&31)<<5 | uint32(rd&31)) }

func (a *Assembler) FCMPs(rn, rm VReg) {
	a.word(0x1E202000 | uint32(rm&31)<<16 | uint32(rn&31)<<5)
}

// FCMEQs compares scalar lanes for equality, producing an all-ones or
// all-zeros S lane.
func (a *Assembler) FCMEQs(rd, rn, rm VReg) { a.word(encodeScalarTwoSrc(0x5E20E400, rd, rn, rm)) }

// FCVTNSs rounds Sn to the nearest integer, ties to even, into Sd.
func (a *Assembler) FCVTNSs(rd, rn VReg) { a.word(0x5E21A800 | uint32(rn&31)<<5 | uint32(rd&31)) }

// UCVTFs converts the unsigned integer in Sn to floating point.
func (a *Assembler) UCVTFs(rd, rn VReg) { a.word(0x7E21D800 | uint32(rn&31)<<5 | uint32(rd&31)) }

// SCVTFsw converts the signed integer in Wn to floating point in Sd.
func (a *Assembler) SCVTFsw(rd VReg, rn Reg) {
	a.word(0x1E220000 | uint32(rn&31)<<5 | uint32(rd&31))
}

// SCVTFs converts the signed integer in the low lane of Vn to floating point.
func (a *Assembler) SCVTFs(rd, rn VReg) { a.word(0x5E21D800 | uint32(rn&31)<<5 | uint32(rd&31)) }

// FMOVi4S broadcasts the expanded 8-bit float immediate to all four lanes.
func (a *Assembler) FMOVi4S(rd VReg, imm8 uint8) {
	abc := uint32(imm8>>5) & 7
	defgh := uint32(imm8) & 0x1F
	a.word(0x4F00F400 | abc<<16 | defgh<<5 | uint32(rd&31))
}

// FMLAelem accumulates Sn times Vm.S[lane] into Sd.
func (a *Assembler) FMLAelem(rd, rn, rm VReg, lane int) {
	a.wordErr(encodeFmlaElem(rd, rn, rm, lane))
}
