package sim

import (
	"fmt"

	"github.com/gekko3d/makibishi/batch"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/params"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	KernelInitialize = "Initialize"
	KernelIterate    = "Iterate"
)

// ComputeBackend keeps every particle in one structured buffer. Kernels read
// and write it in place; dispatch completion is ordered before the draw.
type ComputeBackend struct {
	device gpu.Device
	shader string

	state  State
	buffer gpu.BufferHandle
	amount int
	groups int
}

func NewComputeBackend(device gpu.Device, shader string) *ComputeBackend {
	return &ComputeBackend{device: device, shader: shader}
}

func (b *ComputeBackend) Kind() gpu.Kind { return gpu.KindCompute }
func (b *ComputeBackend) State() State   { return b.state }

func (b *ComputeBackend) Buffer() gpu.BufferHandle { return b.buffer }
func (b *ComputeBackend) Groups() int              { return b.groups }

func (b *ComputeBackend) Initialize(layout batch.Layout, next ParamsFunc) error {
	mustBeLive("compute", b.state)
	if layout.EmitAmount <= 0 {
		return fmt.Errorf("compute backend: emit amount %d", layout.EmitAmount)
	}

	if b.buffer.Valid() && b.amount != layout.EmitAmount {
		b.device.ReleaseBuffer(b.buffer)
		b.buffer = gpu.BufferHandle{}
	}
	if !b.buffer.Valid() {
		buf, err := b.device.CreateStructuredBuffer("makibishi_particles", layout.EmitAmount, ParticleStride)
		if err != nil {
			return fmt.Errorf("compute backend: allocate %d particles: %w", layout.EmitAmount, err)
		}
		b.buffer = buf
	}
	b.amount = layout.EmitAmount
	b.groups = b.device.Limits().Groups(b.amount)

	if err := b.dispatch(KernelInitialize, next()); err != nil {
		return err
	}
	b.state = StateInitialized
	return nil
}

func (b *ComputeBackend) Step(p params.FrameParams) error {
	mustBeLive("compute", b.state)
	if !b.buffer.Valid() {
		return fmt.Errorf("compute backend: step before initialize")
	}
	if err := b.dispatch(KernelIterate, p); err != nil {
		return err
	}
	b.state = StateRunning
	return nil
}

func (b *ComputeBackend) dispatch(kernel string, p params.FrameParams) error {
	uniforms := append(p.Pack(), mgl32.Vec4{float32(b.amount), 0, 0, 0})
	err := b.device.Dispatch(gpu.Dispatch{
		Kernel: b.shader + "/" + kernel,
		Params: uniforms,
		Buffer: b.buffer,
		Groups: b.groups,
	})
	if err != nil {
		return fmt.Errorf("compute backend: dispatch %s: %w", kernel, err)
	}
	return nil
}

func (b *ComputeBackend) BindForDraw() DrawBinding {
	return DrawBinding{Kind: gpu.KindCompute, Buffer: b.buffer}
}

func (b *ComputeBackend) Release() {
	mustBeLive("compute", b.state)
	if b.buffer.Valid() {
		b.device.ReleaseBuffer(b.buffer)
	}
	b.buffer = gpu.BufferHandle{}
	b.state = StateStopped
}
