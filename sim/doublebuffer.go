package sim

import "github.com/gekko3d/makibishi/gpu"

// DoubleBuffer pairs two textures that trade the current and next roles.
type DoubleBuffer struct {
	textures [2]gpu.TextureHandle
	current  int
}

func NewDoubleBuffer(a, b gpu.TextureHandle) *DoubleBuffer {
	return &DoubleBuffer{textures: [2]gpu.TextureHandle{a, b}}
}

func (d *DoubleBuffer) Current() gpu.TextureHandle { return d.textures[d.current] }
func (d *DoubleBuffer) Next() gpu.TextureHandle    { return d.textures[1-d.current] }

// Swap makes the last written texture current.
func (d *DoubleBuffer) Swap() { d.current = 1 - d.current }

// both is for release only; callers draw and step through Current and Next.
func (d *DoubleBuffer) both() [2]gpu.TextureHandle { return d.textures }
