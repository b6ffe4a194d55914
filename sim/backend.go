package sim

import (
	"fmt"

	"github.com/gekko3d/makibishi/batch"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/params"
	"github.com/go-gl/mathgl/mgl32"
)

// ParticleState mirrors the per-particle GPU record.
type ParticleState struct {
	Position mgl32.Vec4
	Velocity mgl32.Vec4
	Rotation mgl32.Vec4
}

// ParticleStride is the byte size of one ParticleState on the GPU.
const ParticleStride = 3 * 4 * 4

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StatePrimed
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePrimed:
		return "primed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// ParamsFunc builds the parameters of the next simulation tick. Each call
// advances the noise drift by one tick.
type ParamsFunc func() params.FrameParams

// Backend owns the particle state of one emitter and advances it on the GPU.
// Release must be called exactly once; any call after it panics.
type Backend interface {
	Kind() gpu.Kind
	State() State

	// Initialize allocates state for the layout if needed and seeds it for a
	// new emission cycle. next supplies the parameters of every pass it runs.
	Initialize(layout batch.Layout, next ParamsFunc) error
	// Step advances every particle by one tick.
	Step(p params.FrameParams) error
	// BindForDraw returns the handles a draw call must bind to read current state.
	BindForDraw() DrawBinding
	Release()
}

// New builds the backend for kind. shader names the compute kernel set or
// the pass shader, depending on kind.
func New(kind gpu.Kind, device gpu.Device, shader string, debug bool) (Backend, error) {
	switch kind {
	case gpu.KindCompute:
		return NewComputeBackend(device, shader), nil
	case gpu.KindTexture:
		return NewTextureBackend(device, shader, debug), nil
	}
	return nil, fmt.Errorf("unknown backend kind %d", kind)
}

// DrawBinding is the role-resolved view of a backend's state for drawing.
type DrawBinding struct {
	Kind     gpu.Kind
	Buffer   gpu.BufferHandle
	Position gpu.TextureHandle
	Rotation gpu.TextureHandle
	Width    int
	Height   int
}

// Apply fills the addressing properties for batch index batchIndex.
func (b DrawBinding) Apply(props *gpu.DrawProperties, batchIndex, maxPerBatch int) {
	props.EmitIDOffset = EmitIDOffset(batchIndex, maxPerBatch)
	switch b.Kind {
	case gpu.KindCompute:
		props.Buffer = b.Buffer
	case gpu.KindTexture:
		props.Position = b.Position
		props.Rotation = b.Rotation
		props.BufferOffset = BufferOffset(batchIndex, b.Width, b.Height)
	}
}

// EmitIDOffset is the first particle index drawn by a compute batch.
func EmitIDOffset(batchIndex, maxPerBatch int) float32 {
	return float32(batchIndex * maxPerBatch)
}

// BufferOffset is the texel-centred lookup offset for a texture batch:
// half a column horizontally and the centre of row batchIndex vertically.
func BufferOffset(batchIndex, width, height int) mgl32.Vec2 {
	if width <= 0 || height <= 0 {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{0.5 / float32(width), (0.5 + float32(batchIndex)) / float32(height)}
}

func mustBeLive(kind string, s State) {
	if s == StateStopped {
		panic(fmt.Sprintf("%s backend used after release", kind))
	}
}
