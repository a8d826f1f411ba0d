package gpu

import (
	"errors"
	"testing"
)

func TestHostDevice_NewBufferZeroed(t *testing.T) {
	dev := NewHostDevice(0)
	buf, err := dev.NewBuffer("positions", 12)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if buf.Len() != 12 {
		t.Errorf("Len = %d, want 12", buf.Len())
	}
	if dev.AllocatedBytes() != 48 {
		t.Errorf("AllocatedBytes = %d, want 48", dev.AllocatedBytes())
	}
	for i, v := range buf.(*HostBuffer).Data() {
		if v != 0 {
			t.Fatalf("element %d = %v, want 0", i, v)
		}
	}
}

func TestHostDevice_Budget(t *testing.T) {
	dev := NewHostDevice(64)
	a, err := dev.NewBuffer("a", 10)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if _, err := dev.NewBuffer("b", 10); !errors.Is(err, ErrAllocation) {
		t.Fatalf("over-budget allocation: got %v, want ErrAllocation", err)
	}

	a.Release()
	if dev.AllocatedBytes() != 0 {
		t.Errorf("AllocatedBytes after release = %d, want 0", dev.AllocatedBytes())
	}
	if _, err := dev.NewBuffer("b", 10); err != nil {
		t.Errorf("allocation after release: %v", err)
	}
}

func TestHostDevice_RejectsEmpty(t *testing.T) {
	dev := NewHostDevice(0)
	for _, n := range []int{0, -3} {
		if _, err := dev.NewBuffer("empty", n); !errors.Is(err, ErrAllocation) {
			t.Errorf("NewBuffer(%d): got %v, want ErrAllocation", n, err)
		}
	}
}

func TestHostBuffer_WriteRead(t *testing.T) {
	dev := NewHostDevice(0)
	buf, _ := dev.NewBuffer("buf", 6)

	if err := buf.Write(2, []float32{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]float32, 4)
	if err := buf.Read(1, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float32{0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if err := buf.Write(5, []float32{1, 2}); err == nil {
		t.Error("expected out of range write to fail")
	}
	if err := buf.Read(-1, got); err == nil {
		t.Error("expected negative offset read to fail")
	}
}

func TestHostBuffer_CopyFrom(t *testing.T) {
	dev := NewHostDevice(0)
	src, _ := dev.NewBuffer("src", 6)
	dst, _ := dev.NewBuffer("dst", 9)
	src.Write(0, []float32{1, 2, 3, 4, 5, 6})

	if err := dst.CopyFrom(src, 0, 3, 6); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	want := []float32{0, 0, 0, 1, 2, 3, 4, 5, 6}
	data := dst.(*HostBuffer).Data()
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, data[i], want[i])
		}
	}

	if err := dst.CopyFrom(src, 0, 4, 6); err == nil {
		t.Error("expected overflowing copy to fail")
	}
}

func TestHostBuffer_CopyWithinBuffer(t *testing.T) {
	dev := NewHostDevice(0)
	buf, _ := dev.NewBuffer("buf", 5)
	buf.Write(0, []float32{1, 2, 3, 4, 5})

	// Overlapping shift right by one
	if err := buf.CopyFrom(buf, 0, 1, 4); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	want := []float32{1, 1, 2, 3, 4}
	data := buf.(*HostBuffer).Data()
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("buf[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

func TestHostBuffer_ZeroAndRelease(t *testing.T) {
	dev := NewHostDevice(0)
	buf, _ := dev.NewBuffer("buf", 4)
	buf.Write(0, []float32{1, 2, 3, 4})

	if err := buf.Zero(); err != nil {
		t.Fatalf("Zero: %v", err)
	}
	for i, v := range buf.(*HostBuffer).Data() {
		if v != 0 {
			t.Errorf("element %d = %v after Zero", i, v)
		}
	}

	buf.Release()
	buf.Release()
	if dev.AllocatedBytes() != 0 {
		t.Errorf("AllocatedBytes = %d after double release", dev.AllocatedBytes())
	}
	if err := buf.Write(0, []float32{1}); !errors.Is(err, ErrReleased) {
		t.Errorf("Write after release: got %v, want ErrReleased", err)
	}
	if err := buf.Zero(); !errors.Is(err, ErrReleased) {
		t.Errorf("Zero after release: got %v, want ErrReleased", err)
	}
}

func TestNewBackend(t *testing.T) {
	dev, k, err := NewBackend("", 1024)
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if dev.Name() != BackendHost || k.Name() != BackendHost {
		t.Errorf("default backend = %s/%s, want host", dev.Name(), k.Name())
	}

	if _, _, err := NewBackend("vulkan", 0); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("unknown backend: got %v, want ErrBackendUnavailable", err)
	}
}
