//go:build arm64

package arm64

// Invoke jumps into compiled shader code at fn. The generated prologue
// expects the uniform block pointer in the first argument register, the unit
// state pointer in the second, and the address of the first instruction to
// execute in the third.
//
//go:noescape
func Invoke(fn, uniforms, state, entry uintptr)

// clearInstructionCache makes the instruction stream in [begin, end) visible
// to the fetch unit after the data side wrote it.
//
//go:noescape
func clearInstructionCache(begin, end uintptr)
