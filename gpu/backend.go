package gpu

import "fmt"

// Backend names accepted by NewBackend.
const (
	BackendHost = "host"
	BackendGL   = "gl"
)

// NewBackend returns the device and kernel for a backend name. An empty name
// selects the host backend. maxBytes caps host allocations (0 = unlimited);
// the GL backend is limited by the driver instead.
func NewBackend(name string, maxBytes int) (Device, Kernel, error) {
	switch name {
	case "", BackendHost:
		return NewHostDevice(maxBytes), NewHostKernel(), nil
	case BackendGL:
		dev, err := NewGLDevice()
		if err != nil {
			return nil, nil, err
		}
		k, err := NewGLKernel(dev)
		if err != nil {
			return nil, nil, err
		}
		return dev, k, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, name)
	}
}
