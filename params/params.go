package params

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 0.01

var (
	defaultDirection = mgl32.Vec4{0, 0, 1, 0}
	defaultNoiseAxis = mgl32.Vec3{0, 1, 0}
)

// Input is the emission state the builder reads each tick. EmitterPosition is
// already resolved: callers substitute the host transform position for
// world-space emitters.
type Input struct {
	EmitterPosition mgl32.Vec3
	EmitterSize     mgl32.Vec3

	LifeTime          float32
	LifeTimeRandomize float32
	Loop              bool

	InitialVelocity mgl32.Vec3
	DirectionSpread float32
	SpeedRandomness float32

	Acceleration mgl32.Vec3
	Drag         float32

	Spin           float32
	SpeedToSpin    float32
	SpinRandomness float32

	NoiseAmplitude float32
	NoiseFrequency float32
	NoiseMotion    float32

	Scale           float32
	ScaleRandomness float32

	RandomSeed int
}

// FrameParams is the compact per-tick vector set sent to the simulation.
type FrameParams struct {
	EmitterPosition mgl32.Vec3
	EmitterSize     mgl32.Vec3
	LifeParams      mgl32.Vec2 // (invLifeMin, invLifeMax)
	Direction       mgl32.Vec4 // (dir.xyz, spread)
	SpeedParams     mgl32.Vec4 // (speed, randomness, 0, 0)
	Acceleration    mgl32.Vec4 // (accel.xyz, drag factor)
	SpinParams      mgl32.Vec3
	NoiseParams     mgl32.Vec2 // (frequency, amplitude)
	NoiseOffset     mgl32.Vec3
	Config          mgl32.Vec4 // (loop ? 0 : 1, seed, dt, time)
}

// PackedLen is the number of vec4 slots Pack produces.
const PackedLen = 10

// Pack lays the parameters out as consecutive vec4 uniform slots.
func (p FrameParams) Pack() []mgl32.Vec4 {
	return []mgl32.Vec4{
		p.EmitterPosition.Vec4(0),
		p.EmitterSize.Vec4(0),
		{p.LifeParams[0], p.LifeParams[1], 0, 0},
		p.Direction,
		p.SpeedParams,
		p.Acceleration,
		p.SpinParams.Vec4(0),
		{p.NoiseParams[0], p.NoiseParams[1], 0, 0},
		p.NoiseOffset.Vec4(0),
		p.Config,
	}
}

func (p FrameParams) DragFactor() float32 { return p.Acceleration[3] }
func (p FrameParams) DeltaTime() float32  { return p.Config[2] }

// DrawParams are the per-draw scale and seed values.
type DrawParams struct {
	ScaleMin   float32
	ScaleMax   float32
	RandomSeed float32
}

func Draw(in Input) DrawParams {
	return DrawParams{
		ScaleMin:   in.Scale * (1 - in.ScaleRandomness),
		ScaleMax:   in.Scale,
		RandomSeed: float32(in.RandomSeed),
	}
}

// Builder turns Input into FrameParams. It carries the turbulence offset,
// which drifts continuously across ticks until Reset.
type Builder struct {
	noiseOffset mgl32.Vec3
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Reset clears the noise offset at the start of an emission cycle.
func (b *Builder) Reset() {
	b.noiseOffset = mgl32.Vec3{}
}

func (b *Builder) NoiseOffset() mgl32.Vec3 { return b.noiseOffset }

// Build computes this tick's parameters and advances the noise offset by dt.
func (b *Builder) Build(in Input, dt, now float32) FrameParams {
	p := FrameParams{
		EmitterPosition: in.EmitterPosition,
		EmitterSize:     in.EmitterSize,
		LifeParams:      LifeParams(in.LifeTime, in.LifeTimeRandomize),
		NoiseParams:     mgl32.Vec2{in.NoiseFrequency, in.NoiseAmplitude},
	}

	if in.InitialVelocity == (mgl32.Vec3{}) {
		p.Direction = defaultDirection
	} else {
		speed := in.InitialVelocity.Len()
		dir := in.InitialVelocity.Mul(1 / speed)
		p.Direction = dir.Vec4(in.DirectionSpread)
		p.SpeedParams = mgl32.Vec4{speed, in.SpeedRandomness, 0, 0}
	}

	p.Acceleration = in.Acceleration.Vec4(DragFactor(in.Drag, dt))

	pi360 := float32(math.Pi / 360)
	p.SpinParams = mgl32.Vec3{in.Spin * pi360, in.SpeedToSpin * pi360, in.SpinRandomness}

	axis := defaultNoiseAxis
	if in.Acceleration != (mgl32.Vec3{}) {
		axis = in.Acceleration.Normalize()
	}
	b.noiseOffset = b.noiseOffset.Add(axis.Mul(in.NoiseMotion * dt))
	p.NoiseOffset = b.noiseOffset

	loop := float32(1)
	if in.Loop {
		loop = 0
	}
	p.Config = mgl32.Vec4{loop, float32(in.RandomSeed), dt, now}
	return p
}

// LifeParams returns (invLifeMin, invLifeMax) so the simulation can pick a
// lifetime between min and max without dividing per particle.
func LifeParams(lifeTime, randomize float32) mgl32.Vec2 {
	invLifeMax := 1 / max(lifeTime, epsilon)
	invLifeMin := invLifeMax / max(1-randomize, epsilon)
	return mgl32.Vec2{invLifeMin, invLifeMax}
}

// DragFactor is the per-tick multiplicative velocity decay exp(-drag*dt).
func DragFactor(drag, dt float32) float32 {
	return float32(math.Exp(float64(-drag * dt)))
}
