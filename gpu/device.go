package gpu

import (
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Kind selects how particle state lives on the GPU.
type Kind int

const (
	// KindCompute keeps particles in one structured buffer updated by compute kernels.
	KindCompute Kind = iota
	// KindTexture keeps particles in ping-ponged float textures updated by full-screen passes.
	KindTexture
)

func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindTexture:
		return "texture"
	}
	return "unknown"
}

type ShadowMode int

const (
	ShadowsOff ShadowMode = iota
	ShadowsOn
	ShadowsTwoSided
	ShadowsOnly
)

func (m ShadowMode) String() string {
	switch m {
	case ShadowsOff:
		return "off"
	case ShadowsOn:
		return "on"
	case ShadowsTwoSided:
		return "two_sided"
	case ShadowsOnly:
		return "shadows_only"
	}
	return "unknown"
}

// ResourceID identifies a GPU resource owned by a Device.
type ResourceID string

func NewResourceID() ResourceID {
	return ResourceID(uuid.NewString())
}

type BufferHandle struct {
	ID     ResourceID
	Count  int
	Stride int
}

func (h BufferHandle) Valid() bool { return h.ID != "" }

type TextureHandle struct {
	ID     ResourceID
	Width  int
	Height int
}

func (h TextureHandle) Valid() bool { return h.ID != "" }

// MaterialHandle is an instantiated shader plus its private state.
type MaterialHandle struct {
	ID     ResourceID
	Shader string
}

func (h MaterialHandle) Valid() bool { return h.ID != "" }

type MeshHandle struct {
	ID          ResourceID
	VertexCount int
	IndexCount  int
}

func (h MeshHandle) Valid() bool { return h.ID != "" }

// Dispatch describes one compute kernel launch over a structured buffer.
type Dispatch struct {
	Kernel string
	Params []mgl32.Vec4
	Buffer BufferHandle
	Groups int
}

// Pass describes one full-screen shader pass writing a single float target.
// Inputs are bound in order: position, velocity, rotation.
type Pass struct {
	Material MaterialHandle
	Index    int
	Params   []mgl32.Vec4
	Inputs   []TextureHandle
	Target   TextureHandle
}

// DrawProperties are the per-draw overrides applied on top of the instanced material.
type DrawProperties struct {
	ScaleMin   float32
	ScaleMax   float32
	RandomSeed float32

	// Compute addressing: the first particle index drawn by this batch.
	EmitIDOffset float32
	Buffer       BufferHandle

	// Texture addressing: half-texel column bias and the batch row.
	BufferOffset mgl32.Vec2
	Position     TextureHandle
	Rotation     TextureHandle

	WorldSpace bool
}

type DrawCall struct {
	Mesh           MeshHandle
	Transform      mgl32.Mat4
	Material       MaterialHandle
	Properties     DrawProperties
	Shadows        ShadowMode
	ReceiveShadows bool
}

// Device is the boundary between the particle core and a graphics API.
// The core never touches buffer or texture contents directly.
type Device interface {
	Limits() Limits

	CreateStructuredBuffer(label string, count, stride int) (BufferHandle, error)
	ReleaseBuffer(h BufferHandle)

	CreateFloatTexture(label string, width, height int) (TextureHandle, error)
	ReleaseTexture(h TextureHandle)

	CreateMaterial(shader string) (MaterialHandle, error)
	ReleaseMaterial(h MaterialHandle)

	UploadMesh(label string, m *mesh.Mesh) (MeshHandle, error)
	ReleaseMesh(h MeshHandle)

	Dispatch(d Dispatch) error
	FullScreenPass(p Pass) error
	DrawMesh(c DrawCall) error
}
