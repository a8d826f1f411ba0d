package gpu

import (
	_ "embed"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

//go:embed shaders/advect.comp
var advectShaderSource string

// Must match local_size_x in advect.comp.
const glWorkgroupSize = 64

// Parameter block layout (std430, all float):
//
//	0 numParticles  1 maxAge  2 effectiveSpeed  3 time
//	4 seed  5 zoomChangeFactor  6 fieldWidth  7 fieldHeight
//	8..11 viewportBounds  12..15 bounds  16..17 unscale  18..19 padding
const glParamsLen = 20

// GLKernel runs the advection kernel as an OpenGL compute shader.
type GLKernel struct {
	device  *GLDevice
	program uint32
	params  *GLBuffer
	block   [glParamsLen]float32

	field   *GLBuffer
	fieldID uint64
}

// NewGLKernel compiles the compute shader.
func NewGLKernel(dev *GLDevice) (*GLKernel, error) {
	shader := rl.CompileShader(advectShaderSource, glComputeShader)
	if shader == 0 {
		return nil, fmt.Errorf("%w: compiling advect.comp", ErrBackendUnavailable)
	}
	program := rl.LoadComputeShaderProgram(shader)
	if program == 0 {
		return nil, fmt.Errorf("%w: linking advect.comp", ErrBackendUnavailable)
	}

	params, err := dev.NewBuffer("advect params", glParamsLen)
	if err != nil {
		rl.UnloadShaderProgram(program)
		return nil, err
	}

	return &GLKernel{
		device:  dev,
		program: program,
		params:  params.(*GLBuffer),
	}, nil
}

// Name implements Kernel.
func (k *GLKernel) Name() string { return "gl" }

// Advect implements Kernel.
func (k *GLKernel) Advect(src, dst Buffer, p KernelParams) error {
	in, ok := src.(*GLBuffer)
	if !ok {
		return fmt.Errorf("gpu: gl kernel cannot read %T", src)
	}
	out, ok := dst.(*GLBuffer)
	if !ok {
		return fmt.Errorf("gpu: gl kernel cannot write %T", dst)
	}
	if in.id == 0 || out.id == 0 {
		return ErrReleased
	}
	if p.Field == nil {
		return fmt.Errorf("gpu: gl kernel needs a field")
	}
	if err := k.uploadField(p); err != nil {
		return err
	}

	width, height := p.Field.Size()
	b := &k.block
	b[0] = float32(p.NumParticles)
	b[1] = float32(p.MaxAge)
	b[2] = float32(p.EffectiveSpeed)
	b[3] = float32(p.Time)
	b[4] = float32(p.Seed)
	b[5] = float32(p.ZoomChangeFactor)
	b[6] = float32(width)
	b[7] = float32(height)
	for i := 0; i < 4; i++ {
		b[8+i] = float32(p.ViewportBounds[i])
		b[12+i] = float32(p.Bounds[i])
	}
	b[16] = float32(p.FieldUnscale[0])
	b[17] = float32(p.FieldUnscale[1])
	if err := k.params.Write(0, b[:]); err != nil {
		return err
	}

	groups := (p.NumParticles + glWorkgroupSize - 1) / glWorkgroupSize

	rl.EnableShader(k.program)
	rl.BindShaderBuffer(in.id, 0)
	rl.BindShaderBuffer(out.id, 1)
	rl.BindShaderBuffer(k.params.id, 2)
	rl.BindShaderBuffer(k.field.id, 3)
	rl.ComputeShaderDispatch(uint32(groups), 1, 1)
	rl.DisableShader()

	return nil
}

// uploadField copies the field texels into an SSBO when the field changes.
func (k *GLKernel) uploadField(p KernelParams) error {
	if k.field != nil && k.fieldID == p.Field.ID() {
		return nil
	}
	if k.field != nil {
		k.field.Release()
		k.field = nil
	}

	texels := p.Field.Texels()
	buf, err := k.device.NewBuffer("field texels", len(texels))
	if err != nil {
		return err
	}
	if err := buf.Write(0, texels); err != nil {
		buf.Release()
		return err
	}
	k.field = buf.(*GLBuffer)
	k.fieldID = p.Field.ID()
	return nil
}

// Release implements Kernel.
func (k *GLKernel) Release() {
	if k.field != nil {
		k.field.Release()
		k.field = nil
	}
	if k.params != nil {
		k.params.Release()
		k.params = nil
	}
	if k.program != 0 {
		rl.UnloadShaderProgram(k.program)
		k.program = 0
	}
}

var (
	_ Kernel = (*GLKernel)(nil)
	_ Device = (*GLDevice)(nil)
	_ Buffer = (*GLBuffer)(nil)
)
