package particles

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/viewport"
)

// scriptKernel is a Kernel whose output is chosen by the test.
type scriptKernel struct {
	calls    []gpu.KernelParams
	released int
	err      error
	// write fills cohort 0 of dst; nil writes the sentinel.
	write func(call int, dst []float32)
}

func (k *scriptKernel) Name() string { return "script" }

func (k *scriptKernel) Release() { k.released++ }

func (k *scriptKernel) Advect(src, dst gpu.Buffer, p gpu.KernelParams) error {
	if k.err != nil {
		return k.err
	}
	k.calls = append(k.calls, p)
	out := dst.(*gpu.HostBuffer).Data()[:p.NumParticles*gpu.PositionStride]
	for i := range out {
		out[i] = 0
	}
	if k.write != nil {
		k.write(len(k.calls), out)
	}
	return nil
}

var testCamera = viewport.Camera{Zoom: 2, Bounds: viewport.Bounds{-30, -20, 30, 20}}

// markerOnce places (7, 8) in slot 0 on the first call only.
func markerOnce(call int, dst []float32) {
	if call == 1 {
		dst[0], dst[1] = 7, 8
	}
}

// cohortOf returns the cohort holding (7, 8) in buf, or -1.
func cohortOf(s *State, buf []float32) int {
	for slot := 0; slot < s.NumInstances(); slot++ {
		if buf[slot*3] == 7 && buf[slot*3+1] == 8 {
			return slot / s.NumParticles()
		}
	}
	return -1
}

func TestStep_Uninitialized(t *testing.T) {
	k := &scriptKernel{}
	ran, err := Step(&State{}, k, Params{}, testCamera, 1, 0.5)
	if ran || err != nil {
		t.Errorf("Step on empty state = (%v, %v), want (false, nil)", ran, err)
	}
	if len(k.calls) != 0 {
		t.Error("kernel ran on uninitialized state")
	}
}

func TestStep_Idempotent(t *testing.T) {
	p := testParams(t, 4, 3)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	k := &scriptKernel{write: markerOnce}

	ran, err := Step(s, k, p, testCamera, 1, 0.5)
	if !ran || err != nil {
		t.Fatalf("first Step = (%v, %v)", ran, err)
	}
	src, dst := s.Source(), s.Target()
	before := append([]float32(nil), hostData(src)...)

	ran, err = Step(s, k, p, testCamera, 1, 0.5)
	if ran || err != nil {
		t.Errorf("repeated Step = (%v, %v), want (false, nil)", ran, err)
	}
	if len(k.calls) != 1 {
		t.Errorf("kernel ran %d times, want 1", len(k.calls))
	}
	if s.Source() != src || s.Target() != dst {
		t.Error("repeated Step swapped buffers")
	}
	for i, v := range hostData(s.Source()) {
		if v != before[i] {
			t.Fatalf("repeated Step changed element %d", i)
		}
	}
}

func TestStep_MarkerAges(t *testing.T) {
	const maxAge = 4
	p := testParams(t, 3, maxAge)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	k := &scriptKernel{write: markerOnce}

	for tick := 1; tick <= maxAge+1; tick++ {
		if _, err := Step(s, k, p, testCamera, float64(tick), 0); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		want := tick - 1
		if tick > maxAge {
			want = -1
		}
		if got := cohortOf(s, hostData(s.Source())); got != want {
			t.Errorf("after tick %d marker in cohort %d, want %d", tick, got, want)
		}
	}
}

func TestStep_RenderPairing(t *testing.T) {
	p := testParams(t, 2, 3)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	k := &scriptKernel{write: markerOnce}

	Step(s, k, p, testCamera, 1, 0)
	Step(s, k, p, testCamera, 2, 0)

	// Target holds the generation before the last tick
	if got := cohortOf(s, hostData(s.Target())); got != 0 {
		t.Errorf("previous generation marker in cohort %d, want 0", got)
	}
	if got := cohortOf(s, hostData(s.Source())); got != 1 {
		t.Errorf("current generation marker in cohort %d, want 1", got)
	}
}

func TestStep_KernelParams(t *testing.T) {
	p := testParams(t, 5, 3)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	k := &scriptKernel{}

	Step(s, k, p, testCamera, 1, 0.25)
	zoomedIn := viewport.Camera{Zoom: 3, Bounds: viewport.Bounds{170, -10, -170, 10}}
	Step(s, k, p, zoomedIn, 2, 0.75)

	if len(k.calls) != 2 {
		t.Fatalf("kernel ran %d times, want 2", len(k.calls))
	}
	first, second := k.calls[0], k.calls[1]

	if first.NumParticles != 5 || first.MaxAge != 3 {
		t.Errorf("counts = %d/%d, want 5/3", first.NumParticles, first.MaxAge)
	}
	if first.Time != 1 || first.Seed != 0.25 || second.Seed != 0.75 {
		t.Errorf("time/seed = %v/%v/%v", first.Time, first.Seed, second.Seed)
	}
	// previousZoom starts at 0, so the first tick sees a large zoom-in
	if want := math.Exp2(-8); first.ZoomChangeFactor != want {
		t.Errorf("first ZoomChangeFactor = %v, want %v", first.ZoomChangeFactor, want)
	}
	if want := math.Exp2(-4); second.ZoomChangeFactor != want {
		t.Errorf("second ZoomChangeFactor = %v, want %v", second.ZoomChangeFactor, want)
	}
	if want := 20 / math.Exp2(9); first.EffectiveSpeed != want {
		t.Errorf("EffectiveSpeed = %v, want %v", first.EffectiveSpeed, want)
	}
	if want := (viewport.Bounds{170, -10, 190, 10}); second.ViewportBounds != want {
		t.Errorf("ViewportBounds = %v, want %v", second.ViewportBounds, want)
	}
	if second.Field != p.Field || second.Bounds != p.Bounds || second.FieldUnscale != p.FieldUnscale {
		t.Error("field, bounds and unscale must pass through")
	}
	if s.PreviousZoom() != 3 || s.PreviousTime() != 2 {
		t.Errorf("previous zoom/time = %v/%v, want 3/2", s.PreviousZoom(), s.PreviousTime())
	}
}

func TestStep_KernelErrorDoesNotAdvance(t *testing.T) {
	p := testParams(t, 2, 2)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	boom := errors.New("boom")
	k := &scriptKernel{err: boom}
	src := s.Source()

	ran, err := Step(s, k, p, testCamera, 1, 0)
	if ran || !errors.Is(err, boom) {
		t.Errorf("Step = (%v, %v), want (false, boom)", ran, err)
	}
	if s.Source() != src || s.PreviousTime() != 0 {
		t.Error("failed Step advanced the state")
	}
}

func TestStep_SingleCohort(t *testing.T) {
	p := testParams(t, 3, 1)
	s, _ := Allocate(gpu.NewHostDevice(0), p)
	k := &scriptKernel{write: markerOnce}

	Step(s, k, p, testCamera, 1, 0)
	if got := cohortOf(s, hostData(s.Source())); got != 0 {
		t.Errorf("marker in cohort %d, want 0", got)
	}
	Step(s, k, p, testCamera, 2, 0)
	if got := cohortOf(s, hostData(s.Source())); got != -1 {
		t.Errorf("marker survived in cohort %d with a single cohort", got)
	}
}

func TestStep_HostKernelEndToEnd(t *testing.T) {
	p := testParams(t, 4, 3)
	dev := gpu.NewHostDevice(0)
	s, err := Allocate(dev, p)
	if err != nil {
		t.Fatal(err)
	}
	bytes := dev.AllocatedBytes()
	cam := viewport.Camera{Zoom: 0, Bounds: viewport.Bounds{-10, -10, 10, 10}}

	ran, err := Step(s, gpu.NewHostKernel(), p, cam, 1, 0.5)
	if !ran || err != nil {
		t.Fatalf("Step = (%v, %v)", ran, err)
	}

	src := hostData(s.Source())
	for i := 0; i < 4; i++ {
		x, y, z := src[i*3], src[i*3+1], src[i*3+2]
		if gpu.IsSentinel(x, y, z) {
			t.Errorf("slot %d not spawned", i)
		}
		if x < -10 || x > 10 || y < -10 || y > 10 {
			t.Errorf("slot %d spawned outside viewport at (%v, %v)", i, x, y)
		}
	}
	if !allZero(src[4*3:]) {
		t.Error("aged cohorts should still be sentinel after one tick")
	}
	if !allZero(hostData(s.Target())) {
		t.Error("previous generation should be all sentinel after one tick")
	}

	for tick := 2; tick <= 10; tick++ {
		if _, err := Step(s, gpu.NewHostKernel(), p, cam, float64(tick), float64(tick)/10); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if s.Source().Len() != 36 || s.Target().Len() != 36 || s.Colors().Len() != 48 {
			t.Fatalf("buffer sizes changed at tick %d", tick)
		}
	}
	if dev.AllocatedBytes() != bytes {
		t.Errorf("allocation changed from %d to %d bytes while stepping", bytes, dev.AllocatedBytes())
	}
}

func BenchmarkStep_Host(b *testing.B) {
	p := testParams(b, 10000, 20)
	s, err := Allocate(gpu.NewHostDevice(0), p)
	if err != nil {
		b.Fatal(err)
	}
	k := gpu.NewHostKernel()
	cam := viewport.Camera{Zoom: 1, Bounds: viewport.Bounds{-60, -40, 60, 40}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Step(s, k, p, cam, float64(i+1), float64(i)*0.001)
	}
}
