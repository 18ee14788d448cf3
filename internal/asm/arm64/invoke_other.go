//go:build !arm64

package arm64

// Invoke is only runnable on an AArch64 host. Programs can still be
// assembled and inspected everywhere else.
func Invoke(fn, uniforms, state, entry uintptr) {
	panic("arm64 asm: cannot execute AArch64 code on this host")
}

func clearInstructionCache(begin, end uintptr) {}
