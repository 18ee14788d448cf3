package jit

import (
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/limonvm/shaderjit/internal/asm/arm64"
	"github.com/limonvm/shaderjit/internal/shader"
)

// Messages compiled code logs through the host. The trailing NUL terminates
// the string on the native side; the package-level references keep the bytes
// reachable for as long as any compiled shader might use them.
var (
	msgEmitVS    = []byte("EMIT executed on a vertex shader unit\x00")
	msgSetEmitVS = []byte("SETEMIT executed on a vertex shader unit\x00")
)

var (
	hostHooksOnce sync.Once
	hostHooks     Hooks
)

// goString reads a NUL-terminated native string.
func goString(p uintptr) string {
	var buf []byte
	for {
		b := *(*byte)(unsafe.Pointer(p + uintptr(len(buf))))
		if b == 0 {
			return string(buf)
		}
		buf = append(buf, b)
	}
}

func initHostHooks() Hooks {
	hostHooksOnce.Do(func() {
		hostHooks = Hooks{
			LogCritical: purego.NewCallback(func(msg uintptr) uintptr {
				slog.Error("shader: " + goString(msg))
				return 0
			}),
			Emit: purego.NewCallback(func(emitter, output uintptr) uintptr {
				e := (*shader.GSEmitter)(unsafe.Pointer(emitter))
				e.Emit(*(*[16]shader.Vec4)(unsafe.Pointer(output)))
				return 0
			}),
			MsgEmitVS:    uintptr(unsafe.Pointer(&msgEmitVS[0])),
			MsgSetEmitVS: uintptr(unsafe.Pointer(&msgSetEmitVS[0])),
		}
	})
	return hostHooks
}

// Shader is a compiled program mapped into executable memory, runnable from
// any instruction offset.
type Shader struct {
	buf     *arm64.ExecBuffer
	entry   int
	offsets []int
}

// Compile translates prog to native code and maps it executable.
func Compile(prog *shader.Program) (*Shader, error) {
	c := &compiler{a: arm64.NewAssembler(), prog: prog, hooks: initHostHooks()}
	code, entry, offsets, err := c.compile()
	if err != nil {
		return nil, err
	}
	buf, err := arm64.NewExecBuffer(code)
	if err != nil {
		return nil, err
	}
	return &Shader{buf: buf, entry: entry, offsets: offsets}, nil
}

// Run executes the program from entryPC. Address registers, loop counter and
// condition bits are loaded from state on entry and stored back when the
// program ends.
func (s *Shader) Run(uniforms *shader.UniformBlock, state *shader.UnitState, entryPC int) {
	arm64.Invoke(s.buf.Addr(s.entry),
		uintptr(unsafe.Pointer(uniforms)),
		uintptr(unsafe.Pointer(state)),
		s.buf.Addr(s.offsets[entryPC]))
	runtime.KeepAlive(uniforms)
	runtime.KeepAlive(state)
}

// Close releases the executable mapping.
func (s *Shader) Close() error { return s.buf.Close() }
