package arm64

import "fmt"

// Encoders for the SIMD and floating point instruction classes. Base words
// carry the opcode, size and Q bits; the helpers pack register numbers and
// element indexes.

// Vector three-same base words, all arranged for the 4S (or 16B where noted)
// arrangement.
const (
	baseFMUL4S  = 0x6E20DC00
	baseFMULX4S = 0x4E20DC00
	baseFADD4S  = 0x4E20D400
	baseFSUB4S  = 0x4EA0D400
	baseFDIV4S  = 0x6E20FC00
	baseFMIN4S  = 0x4EA0F400
	baseFMAX4S  = 0x4E20F400
	baseFCMEQ4S = 0x4E20E400
	baseFCMGE4S = 0x6E20E400
	baseFCMGT4S = 0x6EA0E400
	baseCMEQ4S  = 0x6EA08C00
	baseAND16B  = 0x4E201C00
	baseORR16B  = 0x4EA01C00
	baseBSL16B  = 0x6E601C00
	baseBIF16B  = 0x6EE01C00
	baseTBL16B  = 0x4E000000
	baseZIP116B = 0x4E003800
	baseZIP18H  = 0x4E403800
	baseFADDP4S = 0x6E20D400
)

// Vector two-register base words.
const (
	baseFNEG4S   = 0x6EA0F800
	baseFRINTM4S = 0x4E219800
	baseFCVTZS4S = 0x4EA1B800
)

// Scalar floating point two-source base words.
const (
	baseFMULs = 0x1E200800
	baseFDIVs = 0x1E201800
	baseFADDs = 0x1E202800
	baseFSUBs = 0x1E203800
	baseFMAXs = 0x1E204800
	baseFMINs = 0x1E205800
)

func encodeVecThreeSame(base uint32, rd, rn, rm VReg) uint32 {
	return base | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31)
}

func encodeVecTwoReg(base uint32, rd, rn VReg) uint32 {
	return base | uint32(rn&31)<<5 | uint32(rd&31)
}

func encodeScalarTwoSrc(base uint32, rd, rn, rm VReg) uint32 {
	return base | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31)
}

// imm5S builds the imm5 field selecting S element lane.
func imm5S(lane int) (uint32, error) {
	if lane < 0 || lane > 3 {
		return 0, fmt.Errorf("arm64 asm: S lane %d out of range", lane)
	}
	return uint32(lane)<<3 | 4, nil
}

// encodeDupElemVec encodes DUP Vd.4S, Vn.S[lane].
func encodeDupElemVec(rd, rn VReg, lane int) (uint32, error) {
	imm5, err := imm5S(lane)
	if err != nil {
		return 0, err
	}
	return 0x4E000400 | imm5<<16 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeDupElemScalar encodes DUP Sd, Vn.S[lane] (also printed as MOV).
func encodeDupElemScalar(rd, rn VReg, lane int) (uint32, error) {
	imm5, err := imm5S(lane)
	if err != nil {
		return 0, err
	}
	return 0x5E000400 | imm5<<16 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeInsGen encodes INS Vd.S[lane], Wn.
func encodeInsGen(rd VReg, lane int, rn Reg) (uint32, error) {
	imm5, err := imm5S(lane)
	if err != nil {
		return 0, err
	}
	return 0x4E001C00 | imm5<<16 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeInsElem encodes INS Vd.S[dstLane], Vn.S[srcLane].
func encodeInsElem(rd VReg, dstLane int, rn VReg, srcLane int) (uint32, error) {
	imm5, err := imm5S(dstLane)
	if err != nil {
		return 0, err
	}
	if srcLane < 0 || srcLane > 3 {
		return 0, fmt.Errorf("arm64 asm: S lane %d out of range", srcLane)
	}
	imm4 := uint32(srcLane) << 2
	return 0x6E000400 | imm5<<16 | imm4<<11 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeUmovW encodes UMOV Wd, Vn.S[lane].
func encodeUmovW(rd Reg, rn VReg, lane int) (uint32, error) {
	imm5, err := imm5S(lane)
	if err != nil {
		return 0, err
	}
	return 0x0E003C00 | imm5<<16 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeUmovX encodes UMOV Xd, Vn.D[lane].
func encodeUmovX(rd Reg, rn VReg, lane int) (uint32, error) {
	if lane < 0 || lane > 1 {
		return 0, fmt.Errorf("arm64 asm: D lane %d out of range", lane)
	}
	imm5 := uint32(lane)<<4 | 8
	return 0x4E003C00 | imm5<<16 | uint32(rn&31)<<5 | uint32(rd&31), nil
}

// encodeFmlaElem encodes FMLA Sd, Sn, Vm.S[lane] (scalar by element).
func encodeFmlaElem(rd, rn, rm VReg, lane int) (uint32, error) {
	if lane < 0 || lane > 3 {
		return 0, fmt.Errorf("arm64 asm: S lane %d out of range", lane)
	}
	w := uint32(0x5F801000) | uint32(rm&31)<<16 | uint32(rn&31)<<5 | uint32(rd&31)
	if lane&1 != 0 {
		w |= 1 << 21 // L
	}
	if lane&2 != 0 {
		w |= 1 << 11 // H
	}
	return w, nil
}
