// Package interp executes shader programs one instruction at a time. It is
// the portable reference the compiled path is checked against and the
// fallback on hosts without native execution.
package interp

import (
	"log/slog"
	"math"
	"unsafe"

	"github.com/limonvm/shaderjit/internal/shader"
)

type frameKind uint8

const (
	frameCall frameKind = iota
	frameIf
	frameLoop
)

// frame is one entry of the control stack: where the structured block ends
// and where execution continues afterwards. Loop frames carry the remaining
// repeat count and the aL increment.
type frame struct {
	kind    frameKind
	end     int
	ret     int
	repeats int
	begin   int
	inc     int32
}

type machine struct {
	prog     *shader.Program
	uniforms *shader.UniformBlock
	state    *shader.UnitState
	stack    []frame
}

// Run executes prog from entry until END.
func Run(prog *shader.Program, uniforms *shader.UniformBlock, state *shader.UnitState, entry int) {
	m := &machine{prog: prog, uniforms: uniforms, state: state}
	m.run(entry)
}

func (m *machine) run(pc int) {
	for pc < shader.MaxProgramLen {
		for len(m.stack) > 0 && pc == m.stack[len(m.stack)-1].end {
			top := &m.stack[len(m.stack)-1]
			if top.kind == frameLoop {
				// aL advances after every pass, the final one included, to
				// match what the compiled loop leaves behind.
				m.state.AddressRegisters[2] += top.inc
				if top.repeats > 0 {
					top.repeats--
					pc = top.begin
					continue
				}
			}
			ret := top.ret
			m.stack = m.stack[:len(m.stack)-1]
			pc = ret
		}
		next, done := m.step(pc)
		if done {
			return
		}
		pc = next
	}
}

// step executes the instruction at pc and returns the next program counter.
func (m *machine) step(pc int) (int, bool) {
	instr := m.prog.Instruction(pc)
	st := m.state
	switch op := instr.Opcode().Effective(); op {
	case shader.OpADD:
		s1, s2, swiz := m.commonSrcs(instr)
		m.storeDest(swiz, instr.Dest(), shader.Vec4{
			s1[0] + s2[0], s1[1] + s2[1], s1[2] + s2[2], s1[3] + s2[3]})

	case shader.OpDP3:
		s1, s2, swiz := m.commonSrcs(instr)
		s1[3] = 0
		m.storeDest(swiz, instr.Dest(), splat(dot4(s1, s2)))

	case shader.OpDP4:
		s1, s2, swiz := m.commonSrcs(instr)
		m.storeDest(swiz, instr.Dest(), splat(dot4(s1, s2)))

	case shader.OpDPH, shader.OpDPHI:
		s1, s2, swiz := m.commonSrcs(instr)
		s1[3] = 1
		m.storeDest(swiz, instr.Dest(), splat(dot4(s1, s2)))

	case shader.OpEX2:
		s1, swiz := m.unarySrc(instr)
		m.storeDest(swiz, instr.Dest(), splat(exp2f(s1[0])))

	case shader.OpLG2:
		s1, swiz := m.unarySrc(instr)
		m.storeDest(swiz, instr.Dest(), splat(log2f(s1[0])))

	case shader.OpMUL:
		s1, s2, swiz := m.commonSrcs(instr)
		var out shader.Vec4
		for i := range out {
			out[i] = sanitizedMul(s1[i], s2[i])
		}
		m.storeDest(swiz, instr.Dest(), out)

	case shader.OpSGE, shader.OpSGEI:
		s1, s2, swiz := m.commonSrcs(instr)
		var out shader.Vec4
		for i := range out {
			if s1[i] >= s2[i] {
				out[i] = 1
			}
		}
		m.storeDest(swiz, instr.Dest(), out)

	case shader.OpSLT, shader.OpSLTI:
		s1, s2, swiz := m.commonSrcs(instr)
		var out shader.Vec4
		for i := range out {
			if s1[i] < s2[i] {
				out[i] = 1
			}
		}
		m.storeDest(swiz, instr.Dest(), out)

	case shader.OpFLR:
		s1, swiz := m.unarySrc(instr)
		var out shader.Vec4
		for i := range out {
			out[i] = float32(math.Floor(float64(s1[i])))
		}
		m.storeDest(swiz, instr.Dest(), out)

	case shader.OpMAX:
		s1, s2, swiz := m.commonSrcs(instr)
		m.storeDest(swiz, instr.Dest(), minMax(s1, s2, true))

	case shader.OpMIN:
		s1, s2, swiz := m.commonSrcs(instr)
		m.storeDest(swiz, instr.Dest(), minMax(s1, s2, false))

	case shader.OpRCP:
		s1, swiz := m.unarySrc(instr)
		m.storeDest(swiz, instr.Dest(), splat(1/s1[0]))

	case shader.OpRSQ:
		s1, swiz := m.unarySrc(instr)
		m.storeDest(swiz, instr.Dest(), splat(1/float32(math.Sqrt(float64(s1[0])))))

	case shader.OpMOVA:
		s1, swiz := m.unarySrc(instr)
		if swiz.DestComponentEnabled(0) {
			st.AddressRegisters[0] = truncToInt32(s1[0])
		}
		if swiz.DestComponentEnabled(1) {
			st.AddressRegisters[1] = truncToInt32(s1[1])
		}

	case shader.OpMOV:
		s1, swiz := m.unarySrc(instr)
		m.storeDest(swiz, instr.Dest(), s1)

	case shader.OpNOP:

	case shader.OpEND:
		return 0, true

	case shader.OpBREAKC:
		if m.flowCondition(instr) {
			for i := len(m.stack) - 1; i >= 0; i-- {
				if m.stack[i].kind == frameLoop {
					end := m.stack[i].end
					m.stack = m.stack[:i]
					return end, false
				}
			}
		}

	case shader.OpCALL:
		return m.call(instr, pc), false

	case shader.OpCALLC:
		if m.flowCondition(instr) {
			return m.call(instr, pc), false
		}

	case shader.OpCALLU:
		// The compiled path skips the call when the uniform is set; matched
		// here.
		if m.uniforms.B[instr.BoolUniformID()] == 0 {
			return m.call(instr, pc), false
		}

	case shader.OpIFU:
		return m.branchIf(instr, pc, m.uniforms.B[instr.BoolUniformID()] != 0), false

	case shader.OpIFC:
		return m.branchIf(instr, pc, m.flowCondition(instr)), false

	case shader.OpLOOP:
		ints := m.uniforms.I[instr.IntUniformID()]
		st.AddressRegisters[2] = int32(ints[1])
		m.stack = append(m.stack, frame{
			kind:    frameLoop,
			end:     instr.DestOffset() + 1,
			ret:     instr.DestOffset() + 1,
			repeats: int(ints[0]),
			begin:   pc + 1,
			inc:     int32(ints[2]),
		})

	case shader.OpEMIT:
		if st.EmitterPtr == 0 {
			slog.Error("shader: EMIT executed on a vertex shader unit")
			break
		}
		e := (*shader.GSEmitter)(unsafe.Pointer(st.EmitterPtr))
		e.Emit(st.Output)

	case shader.OpSETE:
		if st.EmitterPtr == 0 {
			slog.Error("shader: SETEMIT executed on a vertex shader unit")
			break
		}
		e := (*shader.GSEmitter)(unsafe.Pointer(st.EmitterPtr))
		e.VertexID = instr.VertexID()
		e.PrimEmit = boolByte(instr.PrimEmit())
		e.Winding = boolByte(instr.Winding())

	case shader.OpJMPC:
		if m.flowCondition(instr) {
			return instr.DestOffset(), false
		}

	case shader.OpJMPU:
		set := m.uniforms.B[instr.BoolUniformID()] != 0
		if instr.NumInstructions()&1 != 0 {
			set = !set
		}
		if set {
			return instr.DestOffset(), false
		}

	case shader.OpCMP:
		swiz := m.prog.Swizzle(instr.OperandDescID())
		s1 := m.loadSrc(swiz, instr.Src1(), 1, instr.AddressRegisterIndex())
		s2 := m.loadSrc(swiz, instr.Src2(), 2, 0)
		st.ConditionalCode[0] = compare(instr.CompareOpX(), s1[0], s2[0])
		st.ConditionalCode[1] = compare(instr.CompareOpY(), s1[1], s2[1])

	case shader.OpMAD, shader.OpMADI:
		swiz := m.prog.Swizzle(instr.MadOperandDescID())
		addr := instr.MadAddressRegisterIndex()
		var s1, s2, s3 shader.Vec4
		s1 = m.loadSrc(swiz, instr.MadSrc1(), 1, 0)
		if op == shader.OpMADI {
			s2 = m.loadSrc(swiz, instr.MadSrc2i(), 2, 0)
			s3 = m.loadSrc(swiz, instr.MadSrc3i(), 3, addr)
		} else {
			s2 = m.loadSrc(swiz, instr.MadSrc2(), 2, addr)
			s3 = m.loadSrc(swiz, instr.MadSrc3(), 3, 0)
		}
		var out shader.Vec4
		for i := range out {
			out[i] = sanitizedMul(s1[i], s2[i]) + s3[i]
		}
		m.storeDest(swiz, instr.MadDest(), out)

	default:
		slog.Error("interp: unhandled instruction", "opcode", op.String(), "pc", pc)
	}
	return pc + 1, false
}

func (m *machine) call(instr shader.Instruction, pc int) int {
	m.stack = append(m.stack, frame{
		kind: frameCall,
		end:  instr.DestOffset() + instr.NumInstructions(),
		ret:  pc + 1,
	})
	return instr.DestOffset()
}

func (m *machine) branchIf(instr shader.Instruction, pc int, taken bool) int {
	dest := instr.DestOffset()
	num := instr.NumInstructions()
	if taken {
		m.stack = append(m.stack, frame{kind: frameIf, end: dest, ret: dest + num})
		return pc + 1
	}
	return dest
}

// flowCondition evaluates the condition-code test of a flow instruction.
func (m *machine) flowCondition(instr shader.Instruction) bool {
	x := m.state.ConditionalCode[0] == instr.RefX()
	y := m.state.ConditionalCode[1] == instr.RefY()
	switch instr.FlowOp() {
	case shader.FlowOr:
		return x || y
	case shader.FlowAnd:
		return x && y
	case shader.FlowJustX:
		return x
	default:
		return y
	}
}

func compare(op shader.CompareOp, a, b float32) bool {
	switch op {
	case shader.CmpEqual:
		return a == b
	case shader.CmpNotEqual:
		return a != b
	case shader.CmpLessThan:
		return a < b
	case shader.CmpLessEqual:
		return a <= b
	case shader.CmpGreaterThan:
		return a > b
	case shader.CmpGreaterEqual:
		return a >= b
	default:
		return true
	}
}

// loadSrc reads one source operand with relative addressing, swizzle and
// negation applied.
func (m *machine) loadSrc(swiz shader.SwizzlePattern, src shader.SourceRegister, srcNum, addrIdx int) shader.Vec4 {
	var value shader.Vec4
	switch src.Type() {
	case shader.RegInput:
		value = m.state.Input[src.Index()]
	case shader.RegTemporary:
		value = m.state.Temporary[src.Index()]
	case shader.RegFloatUniform:
		offset := int32(0)
		if addrIdx != 0 {
			offset = m.state.AddressRegisters[addrIdx-1]
			// Offsets outside [-128, 127] read as zero; the biased sum wraps
			// modulo 128.
			if uint32(offset+128) >= 256 {
				offset = 0
			}
		}
		idx := (int(offset) + src.Index()) & 0x7F
		if idx > 95 {
			value = shader.Vec4One
		} else {
			value = m.uniforms.F[idx]
		}
	}
	var out shader.Vec4
	for i := range out {
		out[i] = value[swiz.Selector(srcNum, i)]
	}
	if swiz.NegateSrc(srcNum) {
		for i := range out {
			out[i] = -out[i]
		}
	}
	return out
}

func (m *machine) storeDest(swiz shader.SwizzlePattern, dest shader.DestRegister, value shader.Vec4) {
	var reg *shader.Vec4
	switch dest.Type() {
	case shader.RegOutput:
		reg = &m.state.Output[dest.Index()]
	case shader.RegTemporary:
		reg = &m.state.Temporary[dest.Index()]
	}
	for i := range value {
		if swiz.DestComponentEnabled(i) {
			reg[i] = value[i]
		}
	}
}

func (m *machine) commonSrcs(instr shader.Instruction) (s1, s2 shader.Vec4, swiz shader.SwizzlePattern) {
	swiz = m.prog.Swizzle(instr.OperandDescID())
	addr := instr.AddressRegisterIndex()
	if instr.Opcode().Inverted() {
		s1 = m.loadSrc(swiz, instr.Src1i(), 1, 0)
		s2 = m.loadSrc(swiz, instr.Src2i(), 2, addr)
	} else {
		s1 = m.loadSrc(swiz, instr.Src1(), 1, addr)
		s2 = m.loadSrc(swiz, instr.Src2(), 2, 0)
	}
	return s1, s2, swiz
}

func (m *machine) unarySrc(instr shader.Instruction) (shader.Vec4, shader.SwizzlePattern) {
	swiz := m.prog.Swizzle(instr.OperandDescID())
	return m.loadSrc(swiz, instr.Src1(), 1, instr.AddressRegisterIndex()), swiz
}

// dot4 sums pairwise like the vector unit: (xy) + (zw).
func dot4(a, b shader.Vec4) float32 {
	p0 := sanitizedMul(a[0], b[0])
	p1 := sanitizedMul(a[1], b[1])
	p2 := sanitizedMul(a[2], b[2])
	p3 := sanitizedMul(a[3], b[3])
	return (p0 + p1) + (p2 + p3)
}

func splat(v float32) shader.Vec4 { return shader.Vec4{v, v, v, v} }

// minMax selects the second operand on any NaN lane.
func minMax(a, b shader.Vec4, max bool) shader.Vec4 {
	var out shader.Vec4
	for i := range out {
		switch {
		case a[i] != a[i] || b[i] != b[i]:
			out[i] = b[i]
		case max:
			out[i] = float32(math.Max(float64(a[i]), float64(b[i])))
		default:
			out[i] = float32(math.Min(float64(a[i]), float64(b[i])))
		}
	}
	return out
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
