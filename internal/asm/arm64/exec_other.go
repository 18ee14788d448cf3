//go:build !((darwin || linux) && arm64)

package arm64

import (
	"errors"

	"github.com/limonvm/shaderjit/internal/asm"
)

// ErrUnsupported reports that this host cannot map executable AArch64 code.
var ErrUnsupported = errors.New("arm64 asm: executable mappings unsupported on this host")

type ExecBuffer struct{}

func NewExecBuffer(prog asm.Program) (*ExecBuffer, error) { return nil, ErrUnsupported }

func (b *ExecBuffer) Addr(off int) uintptr { return 0 }
func (b *ExecBuffer) Len() int             { return 0 }
func (b *ExecBuffer) Close() error         { return nil }
