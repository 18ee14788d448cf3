//go:build (darwin || linux) && arm64

package arm64

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/limonvm/shaderjit/internal/asm"
)

// ErrUnsupported reports that this host cannot map executable AArch64 code.
// It is never returned on hosts where this file builds.
var ErrUnsupported = errors.New("arm64 asm: executable mappings unsupported on this host")

// ExecBuffer owns a page-aligned executable mapping holding one finished
// program. The mapping is filled while writable and then flipped to
// read-execute, so the code is never writable and executable at once.
type ExecBuffer struct {
	mem []byte
}

// NewExecBuffer maps prog into executable memory.
func NewExecBuffer(prog asm.Program) (*ExecBuffer, error) {
	code := prog.Bytes()
	if len(code) == 0 {
		return nil, fmt.Errorf("arm64 asm: empty program")
	}
	pageSize := unix.Getpagesize()
	size := (len(code) + pageSize - 1) &^ (pageSize - 1)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("arm64 asm: mmap: %w", err)
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("arm64 asm: mprotect: %w", err)
	}
	b := &ExecBuffer{mem: mem}
	clearInstructionCache(b.Addr(0), b.Addr(0)+uintptr(len(code)))
	return b, nil
}

// Addr returns the address of byte offset off within the mapping.
func (b *ExecBuffer) Addr(off int) uintptr {
	return uintptr(unsafe.Pointer(&b.mem[0])) + uintptr(off)
}

// Len returns the mapped size in bytes.
func (b *ExecBuffer) Len() int { return len(b.mem) }

// Close unmaps the buffer. The code must not be executing.
func (b *ExecBuffer) Close() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}
