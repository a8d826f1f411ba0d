package gpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// HostDevice keeps buffers in CPU memory. It is the default backend and the
// one tests run against.
type HostDevice struct {
	// MaxBytes caps total live allocation (0 = unlimited).
	MaxBytes int

	allocated int
}

// NewHostDevice creates a host device with an optional byte budget.
func NewHostDevice(maxBytes int) *HostDevice {
	return &HostDevice{MaxBytes: maxBytes}
}

// Name implements Device.
func (d *HostDevice) Name() string { return "host" }

// AllocatedBytes implements Device.
func (d *HostDevice) AllocatedBytes() int { return d.allocated }

// NewBuffer allocates a zero-filled buffer of n float32 elements.
func (d *HostDevice) NewBuffer(label string, n int) (Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %q has non-positive length %d", ErrAllocation, label, n)
	}
	size := n * 4
	if d.MaxBytes > 0 && d.allocated+size > d.MaxBytes {
		return nil, fmt.Errorf("%w: %q needs %d bytes, %d of %d in use", ErrAllocation, label, size, d.allocated, d.MaxBytes)
	}
	d.allocated += size
	return &HostBuffer{device: d, label: label, data: make([]float32, n)}, nil
}

// HostBuffer is a Buffer backed by a float32 slice.
type HostBuffer struct {
	device *HostDevice
	label  string
	data   []float32
}

// Label implements Buffer.
func (b *HostBuffer) Label() string { return b.label }

// Len implements Buffer.
func (b *HostBuffer) Len() int { return len(b.data) }

// Data exposes the backing slice for host kernels and renderers.
// Nil after Release.
func (b *HostBuffer) Data() []float32 { return b.data }

// Write implements Buffer.
func (b *HostBuffer) Write(offset int, data []float32) error {
	if b.data == nil {
		return ErrReleased
	}
	if err := checkRange(b, offset, len(data)); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

// Read implements Buffer.
func (b *HostBuffer) Read(offset int, dst []float32) error {
	if b.data == nil {
		return ErrReleased
	}
	if err := checkRange(b, offset, len(dst)); err != nil {
		return err
	}
	copy(dst, b.data[offset:offset+len(dst)])
	return nil
}

// CopyFrom implements Buffer. Both buffers must be host buffers.
func (b *HostBuffer) CopyFrom(src Buffer, srcOffset, dstOffset, count int) error {
	s, ok := src.(*HostBuffer)
	if !ok {
		return fmt.Errorf("gpu: cannot copy %T into host buffer", src)
	}
	if b.data == nil || s.data == nil {
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
		// Overlapping ranges need memmove semantics
		copy(b.data[dstOffset:dstOffset+count], s.data[srcOffset:srcOffset+count])
		return nil
	}

	blas32.Copy(
		blas32.Vector{N: count, Inc: 1, Data: s.data[srcOffset : srcOffset+count]},
		blas32.Vector{N: count, Inc: 1, Data: b.data[dstOffset : dstOffset+count]},
	)
	return nil
}

// Zero implements Buffer.
func (b *HostBuffer) Zero() error {
	if b.data == nil {
		return ErrReleased
	}
	blas32.Scal(0, blas32.Vector{N: len(b.data), Inc: 1, Data: b.data})
	return nil
}

// Release implements Buffer. Safe to call more than once.
func (b *HostBuffer) Release() {
	if b.data == nil {
		return
	}
	b.device.allocated -= len(b.data) * 4
	b.data = nil
}
