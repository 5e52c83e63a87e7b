package pipeline

import (
	"runtime"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
)

// Guard sheds load before any transformation work begins. The signal is a
// single point-in-time memory sample against a fixed ceiling; there is no
// smoothing or hysteresis, so flapping under bursty load is possible. That
// tradeoff keeps rejected requests from ever consuming a limiter slot or
// reaching the renderer.
type Guard struct {
	ceilingBytes uint64
	sample       func() uint64
}

// NewGuard creates a guard with the given ceiling in MB. A ceiling of zero
// or less disables the guard. sample may be nil, in which case process
// memory obtained from the runtime is used.
func NewGuard(ceilingMB int, sample func() uint64) *Guard {
	if sample == nil {
		sample = processMemory
	}
	var ceiling uint64
	if ceilingMB > 0 {
		ceiling = uint64(ceilingMB) * 1024 * 1024
	}
	return &Guard{ceilingBytes: ceiling, sample: sample}
}

// Admit returns nil when the request may proceed, or ErrOverloaded when the
// current memory sample is at or over the ceiling.
func (g *Guard) Admit() error {
	if g.ceilingBytes == 0 {
		return nil
	}
	if g.sample() >= g.ceilingBytes {
		return domain.ErrOverloaded
	}
	return nil
}

// UsageMB reports the current sample in MB, for the health endpoint.
func (g *Guard) UsageMB() uint64 {
	return g.sample() / (1024 * 1024)
}

func processMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys
}
