package gpu

import (
	"fmt"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// GL enums not exported by raylib-go.
const (
	glDynamicCopy   = 0x88EA
	glComputeShader = 0x91B9
)

// GLDevice allocates shader storage buffers through rlgl. It needs an open
// window and raylib built against OpenGL 4.3 (the opengl43 build tag).
// Every call must come from the goroutine that owns the window.
type GLDevice struct {
	allocated int
}

// NewGLDevice creates a GL device. rl.InitWindow must have been called.
func NewGLDevice() (*GLDevice, error) {
	if !rl.IsWindowReady() {
		return nil, fmt.Errorf("%w: gl device needs an open window", ErrBackendUnavailable)
	}
	return &GLDevice{}, nil
}

// Name implements Device.
func (d *GLDevice) Name() string { return "gl" }

// AllocatedBytes implements Device.
func (d *GLDevice) AllocatedBytes() int { return d.allocated }

// NewBuffer creates a zero-filled SSBO of n float32 elements.
func (d *GLDevice) NewBuffer(label string, n int) (Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %q has non-positive length %d", ErrAllocation, label, n)
	}
	size := n * 4
	id := rl.LoadShaderBuffer(uint32(size), nil, glDynamicCopy)
	if id == 0 {
		return nil, fmt.Errorf("%w: ssbo %q (%d bytes)", ErrAllocation, label, size)
	}
	d.allocated += size
	return &GLBuffer{device: d, label: label, id: id, n: n}, nil
}

// GLBuffer is a Buffer stored in a shader storage buffer object.
type GLBuffer struct {
	device *GLDevice
	label  string
	id     uint32
	n      int
}

// ID returns the SSBO name, 0 after Release.
func (b *GLBuffer) ID() uint32 { return b.id }

// Label implements Buffer.
func (b *GLBuffer) Label() string { return b.label }

// Len implements Buffer.
func (b *GLBuffer) Len() int { return b.n }

// Write implements Buffer.
func (b *GLBuffer) Write(offset int, data []float32) error {
	if b.id == 0 {
		return ErrReleased
	}
	if err := checkRange(b, offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	rl.UpdateShaderBuffer(b.id, unsafe.Pointer(&data[0]), uint32(len(data)*4), uint32(offset*4))
	return nil
}

// Read implements Buffer. This stalls until pending GPU work on the buffer
// has finished.
func (b *GLBuffer) Read(offset int, dst []float32) error {
	if b.id == 0 {
		return ErrReleased
	}
	if err := checkRange(b, offset, len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	rl.ReadShaderBuffer(b.id, unsafe.Pointer(&dst[0]), uint32(len(dst)*4), uint32(offset*4))
	return nil
}

// CopyFrom implements Buffer with glCopyBufferSubData. The copy is queued
// on the same command stream as kernel dispatches, after them.
func (b *GLBuffer) CopyFrom(src Buffer, srcOffset, dstOffset, count int) error {
	s, ok := src.(*GLBuffer)
	if !ok {
		return fmt.Errorf("gpu: cannot copy %T into gl buffer", src)
	}
	if b.id == 0 || s.id == 0 {
		return ErrReleased
	}
	if err := checkRange(s, srcOffset, count); err != nil {
		return err
	}
	if err := checkRange(b, dstOffset, count); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if s == b {
		// Overlapping copies within one buffer are undefined in GL
		tmp := make([]float32, count)
		if err := s.Read(srcOffset, tmp); err != nil {
			return err
		}
		return b.Write(dstOffset, tmp)
	}
	rl.CopyShaderBuffer(b.id, s.id, uint32(dstOffset*4), uint32(srcOffset*4), uint32(count*4))
	return nil
}

// Zero implements Buffer.
func (b *GLBuffer) Zero() error {
	if b.id == 0 {
		return ErrReleased
	}
	const chunk = 1 << 16
	zeros := make([]float32, min(chunk, b.n))
	for off := 0; off < b.n; off += chunk {
		n := min(chunk, b.n-off)
		if err := b.Write(off, zeros[:n]); err != nil {
			return err
		}
	}
	return nil
}

// Release implements Buffer. Safe to call more than once.
func (b *GLBuffer) Release() {
	if b.id == 0 {
		return
	}
	rl.UnloadShaderBuffer(b.id)
	b.device.allocated -= b.n * 4
	b.id = 0
}
