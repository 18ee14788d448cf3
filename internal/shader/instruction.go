// Package shader defines the PICA200 vertex/geometry shader instruction set:
// the 32-bit instruction word views, swizzle patterns, register files, and the
// uniform/unit state shared between the JIT and the interpreter.
package shader

import "fmt"

// Limits of a shader program as stored by the hardware.
const (
	MaxProgramLen = 4096
	MaxSwizzleLen = 4096
)

// Opcode identifies one of the 64 primary opcode slots (bits 26-31 of an
// instruction word). MAD and MADI each occupy eight slots; CMP occupies two.
type Opcode uint8

const (
	OpADD Opcode = 0x00
	OpDP3 Opcode = 0x01
	OpDP4 Opcode = 0x02
	OpDPH Opcode = 0x03
	OpDST Opcode = 0x04
	OpEX2 Opcode = 0x05
	OpLG2 Opcode = 0x06
	OpLIT Opcode = 0x07
	OpMUL Opcode = 0x08
	OpSGE Opcode = 0x09
	OpSLT Opcode = 0x0A
	OpFLR Opcode = 0x0B
	OpMAX Opcode = 0x0C
	OpMIN Opcode = 0x0D
	OpRCP Opcode = 0x0E
	OpRSQ Opcode = 0x0F

	OpMOVA Opcode = 0x12
	OpMOV  Opcode = 0x13

	OpDPHI Opcode = 0x18
	OpDSTI Opcode = 0x19
	OpSGEI Opcode = 0x1A
	OpSLTI Opcode = 0x1B

	OpBREAK  Opcode = 0x20
	OpNOP    Opcode = 0x21
	OpEND    Opcode = 0x22
	OpBREAKC Opcode = 0x23
	OpCALL   Opcode = 0x24
	OpCALLC  Opcode = 0x25
	OpCALLU  Opcode = 0x26
	OpIFU    Opcode = 0x27
	OpIFC    Opcode = 0x28
	OpLOOP   Opcode = 0x29
	OpEMIT   Opcode = 0x2A
	OpSETE   Opcode = 0x2B
	OpJMPC   Opcode = 0x2C
	OpJMPU   Opcode = 0x2D
	OpCMP    Opcode = 0x2E // 0x2E and 0x2F

	OpMADI Opcode = 0x30 // 0x30-0x37
	OpMAD  Opcode = 0x38 // 0x38-0x3F
)

// Effective folds the multi-slot opcodes (MAD, MADI, CMP) onto their
// canonical value.
func (op Opcode) Effective() Opcode {
	switch {
	case op >= OpMAD:
		return OpMAD
	case op >= OpMADI:
		return OpMADI
	case op == 0x2F:
		return OpCMP
	default:
		return op
	}
}

// Inverted reports whether the opcode uses the swapped operand encoding
// (the "i" opcode variants), in which the narrow and wide source slots trade
// places.
func (op Opcode) Inverted() bool {
	switch op.Effective() {
	case OpDPHI, OpDSTI, OpSGEI, OpSLTI, OpMADI:
		return true
	}
	return false
}

func (op Opcode) String() string {
	if name := opcodeNames[op.Effective()]; name != "" {
		return name
	}
	return fmt.Sprintf("op(%#02x)", uint8(op))
}

var opcodeNames = map[Opcode]string{
	OpADD: "add", OpDP3: "dp3", OpDP4: "dp4", OpDPH: "dph", OpDST: "dst",
	OpEX2: "ex2", OpLG2: "lg2", OpLIT: "lit", OpMUL: "mul", OpSGE: "sge",
	OpSLT: "slt", OpFLR: "flr", OpMAX: "max", OpMIN: "min", OpRCP: "rcp",
	OpRSQ: "rsq", OpMOVA: "mova", OpMOV: "mov", OpDPHI: "dphi", OpDSTI: "dsti",
	OpSGEI: "sgei", OpSLTI: "slti", OpBREAK: "break", OpNOP: "nop",
	OpEND: "end", OpBREAKC: "breakc", OpCALL: "call", OpCALLC: "callc",
	OpCALLU: "callu", OpIFU: "ifu", OpIFC: "ifc", OpLOOP: "loop",
	OpEMIT: "emit", OpSETE: "setemit", OpJMPC: "jmpc", OpJMPU: "jmpu",
	OpCMP: "cmp", OpMADI: "madi", OpMAD: "mad",
}

// RegisterType classifies a register file.
type RegisterType uint8

const (
	RegInput RegisterType = iota
	RegTemporary
	RegFloatUniform
	RegOutput
)

func (t RegisterType) String() string {
	switch t {
	case RegInput:
		return "v"
	case RegTemporary:
		return "r"
	case RegFloatUniform:
		return "c"
	case RegOutput:
		return "o"
	}
	return "?"
}

// SourceRegister is the raw 7-bit source operand encoding. Values below 0x10
// address the input file, below 0x20 the temporaries, and the rest the float
// uniform bank.
type SourceRegister uint8

func (r SourceRegister) Type() RegisterType {
	switch {
	case r < 0x10:
		return RegInput
	case r < 0x20:
		return RegTemporary
	default:
		return RegFloatUniform
	}
}

func (r SourceRegister) Index() int {
	switch r.Type() {
	case RegInput:
		return int(r)
	case RegTemporary:
		return int(r) - 0x10
	default:
		return int(r) - 0x20
	}
}

// SrcInput, SrcTemporary and SrcUniform build source operand encodings.
func SrcInput(i int) SourceRegister     { return SourceRegister(i) }
func SrcTemporary(i int) SourceRegister { return SourceRegister(0x10 + i) }
func SrcUniform(i int) SourceRegister   { return SourceRegister(0x20 + i) }

func (r SourceRegister) String() string {
	return fmt.Sprintf("%s%d", r.Type(), r.Index())
}

// DestRegister is the raw 5-bit destination operand encoding. Values below
// 0x10 address the output file, the rest the temporaries.
type DestRegister uint8

func (r DestRegister) Type() RegisterType {
	if r < 0x10 {
		return RegOutput
	}
	return RegTemporary
}

func (r DestRegister) Index() int {
	if r < 0x10 {
		return int(r)
	}
	return int(r) - 0x10
}

func DestOutput(i int) DestRegister    { return DestRegister(i) }
func DestTemporary(i int) DestRegister { return DestRegister(0x10 + i) }

func (r DestRegister) String() string {
	return fmt.Sprintf("%s%d", r.Type(), r.Index())
}

// CompareOp is the per-axis comparison selector of the CMP instruction.
type CompareOp uint8

const (
	CmpEqual CompareOp = iota
	CmpNotEqual
	CmpLessThan
	CmpLessEqual
	CmpGreaterThan
	CmpGreaterEqual
)

// FlowOp combines the two condition-code axes for conditional flow control.
type FlowOp uint8

const (
	FlowOr FlowOp = iota
	FlowAnd
	FlowJustX
	FlowJustY
)

// Instruction is one 32-bit shader instruction word. Field accessors expose
// the view selected by the opcode; reading a view that does not apply to the
// opcode yields garbage, exactly as on hardware.
type Instruction uint32

func (i Instruction) Opcode() Opcode { return Opcode(i >> 26) }

// Common-format fields (arithmetic opcodes).

func (i Instruction) OperandDescID() int                { return int(i & 0x7F) }
func (i Instruction) Src2() SourceRegister              { return SourceRegister((i >> 7) & 0x1F) }
func (i Instruction) Src1() SourceRegister              { return SourceRegister((i >> 12) & 0x7F) }
func (i Instruction) Src2i() SourceRegister             { return SourceRegister((i >> 7) & 0x7F) }
func (i Instruction) Src1i() SourceRegister             { return SourceRegister((i >> 14) & 0x1F) }
func (i Instruction) AddressRegisterIndex() int         { return int((i >> 19) & 0x3) }
func (i Instruction) Dest() DestRegister                { return DestRegister((i >> 21) & 0x1F) }
func (i Instruction) CompareOpX() CompareOp             { return CompareOp((i >> 24) & 0x7) }
func (i Instruction) CompareOpY() CompareOp             { return CompareOp((i >> 21) & 0x7) }

// MAD-format fields.

func (i Instruction) MadOperandDescID() int        { return int(i & 0x1F) }
func (i Instruction) MadSrc3() SourceRegister      { return SourceRegister((i >> 5) & 0x1F) }
func (i Instruction) MadSrc2() SourceRegister      { return SourceRegister((i >> 10) & 0x7F) }
func (i Instruction) MadSrc1() SourceRegister      { return SourceRegister((i >> 17) & 0x1F) }
func (i Instruction) MadSrc3i() SourceRegister     { return SourceRegister((i >> 5) & 0x7F) }
func (i Instruction) MadSrc2i() SourceRegister     { return SourceRegister((i >> 12) & 0x1F) }
func (i Instruction) MadAddressRegisterIndex() int { return int((i >> 22) & 0x3) }
func (i Instruction) MadDest() DestRegister        { return DestRegister((i >> 24) & 0x1F) }

// Flow-control-format fields.

func (i Instruction) NumInstructions() int { return int(i & 0xFF) }
func (i Instruction) DestOffset() int      { return int((i >> 10) & 0xFFF) }
func (i Instruction) FlowOp() FlowOp       { return FlowOp((i >> 22) & 0x3) }
func (i Instruction) BoolUniformID() int   { return int((i >> 22) & 0xF) }
func (i Instruction) IntUniformID() int    { return int((i >> 22) & 0x3) }
func (i Instruction) RefY() bool           { return (i>>24)&1 != 0 }
func (i Instruction) RefX() bool           { return (i>>25)&1 != 0 }

// SETEMIT-format fields.

func (i Instruction) VertexID() uint8 { return uint8((i >> 22) & 0x3) }
func (i Instruction) PrimEmit() bool  { return (i>>24)&1 != 0 }
func (i Instruction) Winding() bool   { return (i>>25)&1 != 0 }
