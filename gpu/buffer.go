// Package gpu provides the buffer and kernel primitives the particle engine
// runs on: a host (CPU memory) backend and an OpenGL backend through rlgl.
package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is wrapped by every buffer creation failure.
	ErrAllocation = errors.New("gpu: buffer allocation failed")

	// ErrReleased is returned when a released buffer is used.
	ErrReleased = errors.New("gpu: buffer released")

	// ErrBackendUnavailable is returned for unknown or unsupported backends.
	ErrBackendUnavailable = errors.New("gpu: backend unavailable")
)

// Entry widths in float32 components.
const (
	PositionStride = 3 // x, y, z
	ColorStride    = 4 // r, g, b, a
)

// Buffer is a flat float32 buffer owned by a Device.
// Offsets and counts are in float32 elements, not bytes.
type Buffer interface {
	Label() string
	Len() int
	Write(offset int, data []float32) error
	Read(offset int, dst []float32) error
	// CopyFrom copies count elements of src starting at srcOffset into this
	// buffer starting at dstOffset.
	CopyFrom(src Buffer, srcOffset, dstOffset, count int) error
	Zero() error
	Release()
}

// Device creates buffers.
type Device interface {
	Name() string
	NewBuffer(label string, n int) (Buffer, error)
	// AllocatedBytes is the size of all live buffers.
	AllocatedBytes() int
}

// IsSentinel reports whether a position is the (0,0,0) "no particle" marker.
func IsSentinel(x, y, z float32) bool {
	return x == 0 && y == 0 && z == 0
}

func checkRange(b Buffer, offset, count int) error {
	if offset < 0 || count < 0 || offset+count > b.Len() {
		return fmt.Errorf("gpu: range [%d, %d) outside buffer %q of length %d", offset, offset+count, b.Label(), b.Len())
	}
	return nil
}
