package shader

// Vec4 is one four-lane single-precision register. The hardware stores 24-bit
// floats externally; both the JIT and the interpreter operate on full 32-bit
// lanes and leave the f24 transcoding to the host boundary.
type Vec4 [4]float32

// Vec4One is the constant the uniform bank substitutes for out-of-range
// indexed reads.
var Vec4One = Vec4{1, 1, 1, 1}

// UniformBlock is the read-only uniform storage handed to compiled code.
// Compiled code addresses it by byte offset, so the field order and padding
// here are load-bearing.
type UniformBlock struct {
	// F is the float uniform bank, c0-c95.
	F [96]Vec4
	// I holds the four integer uniforms as packed (count, start, increment,
	// pad) byte tuples.
	I [4][4]uint8
	// B holds the sixteen boolean uniforms, one byte each.
	B [16]uint8
}

// Byte offsets into UniformBlock used by generated code.
const (
	uniformFloatBase = 0
	uniformIntBase   = 96 * 16
	uniformBoolBase  = uniformIntBase + 4*4
)

// FloatUniformOffset returns the byte offset of float uniform i.
func FloatUniformOffset(i int) int { return uniformFloatBase + 16*i }

// IntUniformOffset returns the byte offset of integer uniform i.
func IntUniformOffset(i int) int { return uniformIntBase + 4*i }

// BoolUniformOffset returns the byte offset of boolean uniform i.
func BoolUniformOffset(i int) int { return uniformBoolBase + i }

// SetBool sets boolean uniform i.
func (u *UniformBlock) SetBool(i int, v bool) {
	if v {
		u.B[i] = 1
	} else {
		u.B[i] = 0
	}
}

// SetInt sets integer uniform i from a (count, start, increment) triple.
func (u *UniformBlock) SetInt(i int, count, start, inc uint8) {
	u.I[i] = [4]uint8{count, start, inc, 0}
}

// UnitState is the mutable per-invocation execution state shared with
// compiled code. As with UniformBlock the layout is addressed by byte offset
// from generated code.
type UnitState struct {
	Input     [16]Vec4
	Temporary [16]Vec4
	Output    [16]Vec4
	// ConditionalCode holds the x and y comparison results of the last CMP.
	ConditionalCode [2]bool
	// AddressRegisters holds a0, a1 and the loop counter aL.
	AddressRegisters [3]int32
	// EmitterPtr points at a GSEmitter during geometry shader execution and
	// is zero otherwise.
	EmitterPtr uintptr
}

// Byte offsets into UnitState used by generated code.
const (
	unitInputBase     = 0
	unitTemporaryBase = 16 * 16
	unitOutputBase    = 2 * 16 * 16
	unitCondBase      = 3 * 16 * 16
	unitAddrBase      = unitCondBase + 4
	unitEmitterBase   = unitAddrBase + 12
)

// InputOffset returns the byte offset of input register i.
func InputOffset(i int) int { return unitInputBase + 16*i }

// TemporaryOffset returns the byte offset of temporary register i.
func TemporaryOffset(i int) int { return unitTemporaryBase + 16*i }

// OutputOffset returns the byte offset of output register i.
func OutputOffset(i int) int { return unitOutputBase + 16*i }

// ConditionalCodeOffset returns the byte offset of condition byte i.
func ConditionalCodeOffset(i int) int { return unitCondBase + i }

// AddressRegisterOffset returns the byte offset of address register i
// (0=a0, 1=a1, 2=aL).
func AddressRegisterOffset(i int) int { return unitAddrBase + 4*i }

// EmitterPtrOffset returns the byte offset of the emitter pointer.
func EmitterPtrOffset() int { return unitEmitterBase }

// GSEmitter buffers geometry shader vertices and assembles primitives. The
// leading fields are addressed by byte offset from compiled SETEMIT code.
type GSEmitter struct {
	Buffer   [3][16]Vec4
	VertexID uint8
	PrimEmit uint8
	Winding  uint8

	// Handler receives a finished primitive. The winding flag asks the
	// consumer to flip the facing of this triangle.
	Handler func(prim [3][16]Vec4, winding bool)
}

// Byte offsets into GSEmitter used by generated code.
const (
	EmitterVertexIDOffset = 3 * 16 * 16
	EmitterPrimEmitOffset = EmitterVertexIDOffset + 1
	EmitterWindingOffset  = EmitterVertexIDOffset + 2
)

// Emit stores one vertex worth of outputs and, when the primitive flag is
// set, hands the buffered triangle to the handler.
func (e *GSEmitter) Emit(output [16]Vec4) {
	if e.VertexID < 3 {
		e.Buffer[e.VertexID] = output
	}
	if e.PrimEmit != 0 && e.Handler != nil {
		e.Handler(e.Buffer, e.Winding != 0)
	}
}
