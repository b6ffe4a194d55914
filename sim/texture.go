package sim

import (
	"fmt"

	"github.com/gekko3d/makibishi/batch"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/params"
)

// Pass indices of the texture simulation shader.
const (
	PassInitPosition = iota
	PassInitVelocity
	PassInitRotation
	PassUpdatePosition
	PassUpdateVelocity
	PassUpdateRotation
)

// WarmupSteps are run right after seeding so the first drawn frame is not
// the raw initial state. Each warm-up step consumes two ticks of noise drift.
const WarmupSteps = 8

// TextureBackend stores particles as texels: one column per particle in a
// batch, one row per batch. Each quantity is double buffered and a step
// writes every next texture before swapping all three pairs.
type TextureBackend struct {
	device gpu.Device
	shader string
	debug  bool

	state    State
	material gpu.MaterialHandle
	width    int
	height   int

	position *DoubleBuffer
	velocity *DoubleBuffer
	rotation *DoubleBuffer
}

func NewTextureBackend(device gpu.Device, shader string, debug bool) *TextureBackend {
	return &TextureBackend{device: device, shader: shader, debug: debug}
}

func (b *TextureBackend) Kind() gpu.Kind { return gpu.KindTexture }
func (b *TextureBackend) State() State   { return b.state }

// Size returns the texture dimensions, columns by rows.
func (b *TextureBackend) Size() (int, int) { return b.width, b.height }

func (b *TextureBackend) Initialize(layout batch.Layout, next ParamsFunc) error {
	mustBeLive("texture", b.state)
	w, h := layout.MaxPerBatch, layout.TotalBatches()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("texture backend: invalid size %dx%d", w, h)
	}

	if !b.material.Valid() {
		m, err := b.device.CreateMaterial(b.shader)
		if err != nil {
			return fmt.Errorf("texture backend: material %q: %w", b.shader, err)
		}
		b.material = m
	}
	if b.position != nil && (b.width != w || b.height != h) {
		b.releaseTextures()
	}
	if b.position == nil {
		if err := b.allocate(w, h); err != nil {
			return err
		}
	}

	seeds := []struct {
		pass   int
		target *DoubleBuffer
	}{
		{PassInitPosition, b.position},
		{PassInitVelocity, b.velocity},
		{PassInitRotation, b.rotation},
	}
	p := next()
	for _, s := range seeds {
		if err := b.pass(s.pass, p, s.target.Current()); err != nil {
			return err
		}
	}
	for i := 0; i < WarmupSteps; i++ {
		if err := b.step(next()); err != nil {
			return err
		}
		next()
	}
	b.state = StatePrimed
	return nil
}

func (b *TextureBackend) allocate(w, h int) error {
	var made []gpu.TextureHandle
	for _, name := range []string{"position", "velocity", "rotation"} {
		for i := 0; i < 2; i++ {
			t, err := b.device.CreateFloatTexture(fmt.Sprintf("makibishi_%s_%d", name, i), w, h)
			if err != nil {
				for _, m := range made {
					b.device.ReleaseTexture(m)
				}
				return fmt.Errorf("texture backend: allocate %s %dx%d: %w", name, w, h, err)
			}
			made = append(made, t)
		}
	}
	b.position = NewDoubleBuffer(made[0], made[1])
	b.velocity = NewDoubleBuffer(made[2], made[3])
	b.rotation = NewDoubleBuffer(made[4], made[5])
	b.width, b.height = w, h
	return nil
}

func (b *TextureBackend) Step(p params.FrameParams) error {
	mustBeLive("texture", b.state)
	if b.position == nil {
		return fmt.Errorf("texture backend: step before initialize")
	}
	if err := b.step(p); err != nil {
		return err
	}
	b.state = StateRunning
	return nil
}

// step writes the next position from current state first, then velocity and
// rotation from the fresh position, then swaps every pair.
func (b *TextureBackend) step(p params.FrameParams) error {
	nextPos := b.position.Next()
	if err := b.pass(PassUpdatePosition, p, nextPos,
		b.position.Current(), b.velocity.Current(), b.rotation.Current()); err != nil {
		return err
	}
	if err := b.pass(PassUpdateVelocity, p, b.velocity.Next(),
		nextPos, b.velocity.Current(), b.rotation.Current()); err != nil {
		return err
	}
	if err := b.pass(PassUpdateRotation, p, b.rotation.Next(),
		nextPos, b.velocity.Current(), b.rotation.Current()); err != nil {
		return err
	}
	b.position.Swap()
	b.velocity.Swap()
	b.rotation.Swap()
	return nil
}

func (b *TextureBackend) pass(index int, p params.FrameParams, target gpu.TextureHandle, inputs ...gpu.TextureHandle) error {
	err := b.device.FullScreenPass(gpu.Pass{
		Material: b.material,
		Index:    index,
		Params:   p.Pack(),
		Inputs:   inputs,
		Target:   target,
	})
	if err != nil {
		return fmt.Errorf("texture backend: pass %d: %w", index, err)
	}
	return nil
}

func (b *TextureBackend) BindForDraw() DrawBinding {
	d := DrawBinding{Kind: gpu.KindTexture, Width: b.width, Height: b.height}
	if b.position != nil {
		d.Position = b.position.Current()
		d.Rotation = b.rotation.Current()
	}
	return d
}

// DebugTextures returns the non-current position, velocity and rotation
// textures for inspection, or nil when debug is off or nothing is allocated.
func (b *TextureBackend) DebugTextures() []gpu.TextureHandle {
	if !b.debug || b.position == nil {
		return nil
	}
	return []gpu.TextureHandle{b.position.Next(), b.velocity.Next(), b.rotation.Next()}
}

func (b *TextureBackend) releaseTextures() {
	for _, d := range []*DoubleBuffer{b.position, b.velocity, b.rotation} {
		for _, t := range d.both() {
			b.device.ReleaseTexture(t)
		}
	}
	b.position, b.velocity, b.rotation = nil, nil, nil
	b.width, b.height = 0, 0
}

func (b *TextureBackend) Release() {
	mustBeLive("texture", b.state)
	if b.position != nil {
		b.releaseTextures()
	}
	if b.material.Valid() {
		b.device.ReleaseMaterial(b.material)
		b.material = gpu.MaterialHandle{}
	}
	b.state = StateStopped
}
