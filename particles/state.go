package particles

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/windtrails/gpu"
)

// State owns the particle buffers.
//
// Each position buffer holds MaxAge cohorts of NumParticles slots, youngest
// first. The two position buffers alternate between the source role (the
// current generation) and the target role (the one being written).
type State struct {
	initialized  bool
	numParticles int
	maxAge       int

	positions [2]gpu.Buffer
	source    int // index into positions of the source role
	colors    gpu.Buffer
	width     float32

	previousTime float64
	previousZoom float64
}

// Allocate creates the buffers for p. Invalid params yield an uninitialized
// state and no error. On allocation failure everything created so far is
// released and the returned state is uninitialized.
func Allocate(dev gpu.Device, p Params) (*State, error) {
	s := &State{}
	if !p.Valid() {
		return s, nil
	}

	n := p.NumInstances()
	var err error
	for i := range s.positions {
		s.positions[i], err = dev.NewBuffer(fmt.Sprintf("positions %d", i), n*gpu.PositionStride)
		if err != nil {
			s.release()
			return s, fmt.Errorf("allocating positions: %w", err)
		}
	}

	s.colors, err = dev.NewBuffer("colors", n*gpu.ColorStride)
	if err != nil {
		s.release()
		return s, fmt.Errorf("allocating colors: %w", err)
	}
	if err := s.colors.Write(0, colorRamp(p.Color, p.NumParticles, p.MaxAge)); err != nil {
		s.release()
		return s, fmt.Errorf("uploading colors: %w", err)
	}

	s.numParticles = p.NumParticles
	s.maxAge = p.MaxAge
	s.width = float32(p.LineWidth)
	s.initialized = true
	return s, nil
}

// colorRamp builds the per-slot colors: every slot of cohort k gets c with
// alpha scaled by 1-k/maxAge.
func colorRamp(c color.RGBA, numParticles, maxAge int) []float32 {
	out := make([]float32, numParticles*maxAge*gpu.ColorStride)
	r := float32(c.R) / 255
	g := float32(c.G) / 255
	b := float32(c.B) / 255
	a := float32(c.A) / 255
	for i := 0; i < len(out); i += gpu.ColorStride {
		out[i], out[i+1], out[i+2], out[i+3] = r, g, b, a
	}

	cohort := numParticles * gpu.ColorStride
	for k := 1; k < maxAge; k++ {
		alpha := blas32.Vector{N: numParticles, Inc: gpu.ColorStride, Data: out[k*cohort+3:]}
		blas32.Scal(1-float32(k)/float32(maxAge), alpha)
	}
	return out
}

// Recolor rewrites the color buffer without touching positions.
func (s *State) Recolor(c color.RGBA) error {
	if !s.Initialized() {
		return nil
	}
	return s.colors.Write(0, colorRamp(c, s.numParticles, s.maxAge))
}

// Deallocate releases all buffers. Safe to call repeatedly and on nil.
func (s *State) Deallocate() {
	if s == nil {
		return
	}
	s.release()
	s.initialized = false
}

func (s *State) release() {
	for i, b := range s.positions {
		if b != nil {
			b.Release()
			s.positions[i] = nil
		}
	}
	if s.colors != nil {
		s.colors.Release()
		s.colors = nil
	}
}

// Clear resets both position buffers to the sentinel, dropping all trail
// history. The state stays initialized.
func (s *State) Clear() error {
	if !s.Initialized() {
		return nil
	}
	for _, b := range s.positions {
		if err := b.Zero(); err != nil {
			return fmt.Errorf("clearing %s: %w", b.Label(), err)
		}
	}
	return nil
}

// swap exchanges the source and target roles.
func (s *State) swap() {
	s.source = 1 - s.source
}

// Initialized reports whether buffers exist.
func (s *State) Initialized() bool { return s != nil && s.initialized }

// NumParticles is the slot count of one cohort.
func (s *State) NumParticles() int { return s.numParticles }

// MaxAge is the cohort count.
func (s *State) MaxAge() int { return s.maxAge }

// NumInstances is the total slot count.
func (s *State) NumInstances() int { return s.numParticles * s.maxAge }

// NumAgedInstances is the slot count of all cohorts but the youngest.
func (s *State) NumAgedInstances() int { return s.numParticles * (s.maxAge - 1) }

// Source is the buffer holding the current generation.
func (s *State) Source() gpu.Buffer { return s.positions[s.source] }

// Target is the buffer the next tick writes; between ticks it holds the
// previous generation.
func (s *State) Target() gpu.Buffer { return s.positions[1-s.source] }

// Colors is the per-slot RGBA buffer.
func (s *State) Colors() gpu.Buffer { return s.colors }

// Width is the trail line width.
func (s *State) Width() float32 { return s.width }

// PreviousTime is the time of the last completed tick.
func (s *State) PreviousTime() float64 { return s.previousTime }

// PreviousZoom is the camera zoom of the last completed tick.
func (s *State) PreviousZoom() float64 { return s.previousZoom }

// AllocatedBytes is the size of the buffers this state owns.
func (s *State) AllocatedBytes() int {
	if !s.Initialized() {
		return 0
	}
	return (2*gpu.PositionStride + gpu.ColorStride) * s.NumInstances() * 4
}
