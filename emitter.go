package makibishi

import (
	"errors"
	"fmt"

	"github.com/gekko3d/makibishi/batch"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/gekko3d/makibishi/params"
	"github.com/gekko3d/makibishi/sim"
	"github.com/go-gl/mathgl/mgl32"
)

type EmitterState int

const (
	StateIdle EmitterState = iota
	// StateDelaying waits out the start delay.
	StateDelaying
	// StateEmitting initializes the backend on the next tick.
	StateEmitting
	// StateRunning steps and draws once per tick until the cycle ends.
	StateRunning
	// StateCycleEnd is the one-tick gap between looping cycles.
	StateCycleEnd
	StateDestroyed
)

func (s EmitterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDelaying:
		return "delaying"
	case StateEmitting:
		return "emitting"
	case StateRunning:
		return "running"
	case StateCycleEnd:
		return "cycle_end"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// TickStats describes what the last Tick did.
type TickStats struct {
	Emitter    string
	Tick       int
	Time       float32
	Delta      float32
	State      EmitterState
	Backend    gpu.Kind
	Particles  int
	Batches    int
	Draws      int
	Emitted    bool
	Stepped    bool
	CycleTimer float32
	Cycles     int
}

// Emitter drives one particle system: it batches the source meshes, owns a
// simulation backend for the length of a cycle and draws every batch each
// tick. It is not safe for concurrent use; call it from the frame loop.
type Emitter struct {
	name    string
	cfg     Config
	device  gpu.Device
	log     Logger
	sources []*mesh.Mesh

	state     EmitterState
	transform mgl32.Mat4
	material  gpu.MaterialHandle
	backend   sim.Backend
	builder   *params.Builder

	layout   batch.Layout
	main     gpu.MeshHandle
	fraction gpu.MeshHandle

	delay         float32
	timer         float32
	stopRequested bool

	ticks  int
	cycles int
	stats  TickStats
}

// NewEmitter checks the configuration and creates the instanced draw
// material. A ConfigurationError means the emitter must not be used.
func NewEmitter(name string, device gpu.Device, cfg Config, sources []*mesh.Mesh, logger Logger) (*Emitter, error) {
	if logger == nil {
		logger = NewNopLogger()
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if cfg.Emission.ClampAmount(device.Limits()) {
		logger.Debugf("%s: emit amount clamped to %d", name, cfg.Emission.Amount)
	}
	mat, err := device.CreateMaterial(cfg.Material)
	if err != nil {
		return nil, fmt.Errorf("%s: instanced material: %w", name, err)
	}
	return &Emitter{
		name:      name,
		cfg:       cfg,
		device:    device,
		log:       logger,
		sources:   sources,
		transform: mgl32.Ident4(),
		material:  mat,
		builder:   params.NewBuilder(),
	}, nil
}

func (e *Emitter) Name() string          { return e.name }
func (e *Emitter) State() EmitterState   { return e.state }
func (e *Emitter) Config() Config        { return e.cfg }
func (e *Emitter) Layout() batch.Layout  { return e.layout }
func (e *Emitter) Stats() TickStats      { return e.stats }
func (e *Emitter) Transform() mgl32.Mat4 { return e.transform }

func (e *Emitter) SetTransform(m mgl32.Mat4) { e.transform = m }

// SetConfig replaces the configuration. Simulation parameters take effect on
// the next tick. A change to the emit amount, backend, simulation shader or
// topology cancels the cycle in flight and drops the batches, so the next
// Play rebuilds them. An invalid cfg is returned and the old one kept.
func (e *Emitter) SetConfig(cfg Config) error {
	if e.state == StateDestroyed {
		return ErrDestroyed
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	if cfg.Emission.ClampAmount(e.device.Limits()) {
		e.log.Debugf("%s: emit amount clamped to %d", e.name, cfg.Emission.Amount)
	}
	if cfg.Material != e.cfg.Material {
		mat, err := e.device.CreateMaterial(cfg.Material)
		if err != nil {
			return fmt.Errorf("%s: instanced material: %w", e.name, err)
		}
		e.device.ReleaseMaterial(e.material)
		e.material = mat
	}

	old := e.cfg
	e.cfg = cfg
	if cfg.Emission.Amount != old.Emission.Amount || cfg.Backend != old.Backend ||
		cfg.BackendShader() != old.BackendShader() || cfg.Topology != old.Topology {
		e.invalidate()
	}
	return nil
}

// SetSources replaces the source meshes. The cycle in flight is cancelled
// and the next Play batches the new meshes.
func (e *Emitter) SetSources(sources []*mesh.Mesh) {
	if e.state == StateDestroyed {
		return
	}
	e.sources = sources
	e.invalidate()
}

func (e *Emitter) invalidate() {
	e.releaseCycle()
	if e.state != StateIdle {
		e.log.Debugf("%s: cycle cancelled by reconfiguration", e.name)
	}
	e.stopRequested = false
	e.state = StateIdle
}

// Play cancels any cycle in flight and starts a new one after the start
// delay. Batches are built only when none exist; a batching failure is
// logged and leaves the emitter idle.
func (e *Emitter) Play() error {
	if e.state == StateDestroyed {
		e.log.Warnf("%s: play after destroy", e.name)
		return ErrDestroyed
	}
	e.stopRequested = false
	e.delay, e.timer = 0, 0
	if !e.main.Valid() {
		if err := e.buildBatches(); err != nil {
			if !errors.Is(err, batch.ErrNothingToBatch) {
				e.log.Errorf("%s: %v", e.name, err)
			}
			e.state = StateIdle
			return nil
		}
	}
	e.state = StateDelaying
	return nil
}

// Stop asks the running cycle to end. It takes effect at the end of the
// current running tick, never in the middle of one.
func (e *Emitter) Stop() {
	if e.state == StateDestroyed {
		return
	}
	e.stopRequested = true
}

// StopRequested reports a stop that has not been consumed yet.
func (e *Emitter) StopRequested() bool { return e.stopRequested }

// Tick advances the emitter by one frame of dt seconds. now is the host time
// passed through to the simulation.
func (e *Emitter) Tick(dt, now float32) {
	e.ticks++
	e.stats = TickStats{Emitter: e.name, Tick: e.ticks, Time: now, Delta: dt, Backend: e.cfg.Backend}

	switch e.state {
	case StateDelaying:
		e.delay += dt
		if e.delay >= e.cfg.StartDelay {
			e.emit(dt, now)
		}
	case StateEmitting, StateCycleEnd:
		e.emit(dt, now)
	case StateRunning:
		e.run(dt, now)
	}

	e.stats.State = e.state
	e.stats.CycleTimer = e.timer
	e.stats.Cycles = e.cycles
	if e.state == StateRunning {
		e.stats.Particles = e.layout.EmitAmount
		e.stats.Batches = e.layout.TotalBatches()
	}
}

func (e *Emitter) emit(dt, now float32) {
	e.state = StateEmitting
	if e.backend == nil {
		b, err := sim.New(e.cfg.Backend, e.device, e.cfg.BackendShader(), e.cfg.Debug)
		if err != nil {
			e.fail(err)
			return
		}
		e.backend = b
	}

	e.builder.Reset()
	next := func() params.FrameParams { return e.builder.Build(e.input(), dt, now) }
	if err := e.backend.Initialize(e.layout, next); err != nil {
		e.fail(err)
		return
	}
	if err := e.draw(); err != nil {
		e.fail(err)
		return
	}
	e.stats.Emitted = true
	e.timer = 0
	e.cycles++
	e.state = StateRunning
	if e.cfg.Emission.Duration <= 0 {
		e.endCycle()
	}
}

func (e *Emitter) run(dt, now float32) {
	p := e.builder.Build(e.input(), dt, now)
	if err := e.backend.Step(p); err != nil {
		e.fail(err)
		return
	}
	e.stats.Stepped = true
	if err := e.draw(); err != nil {
		e.fail(err)
		return
	}

	e.timer += dt
	em := e.cfg.Emission
	if e.stopRequested || (!em.Loop && e.timer > em.LifeTime) || e.timer >= em.Duration {
		e.endCycle()
	}
}

// endCycle releases the cycle's resources when stopping or not looping;
// a looping cycle emits again on the next tick.
func (e *Emitter) endCycle() {
	if e.stopRequested || !e.cfg.Emission.Loop {
		e.stopRequested = false
		e.releaseCycle()
		e.state = StateIdle
		return
	}
	e.state = StateCycleEnd
}

func (e *Emitter) fail(err error) {
	e.log.Errorf("%s: %v", e.name, err)
	e.releaseCycle()
	e.state = StateIdle
}

func (e *Emitter) input() params.Input {
	pos := e.cfg.Emission.EmitterPosition
	if e.cfg.Emission.WorldSpace {
		pos = e.transform.Col(3).Vec3()
	}
	return e.cfg.Emission.Input(pos)
}

func (e *Emitter) buildBatches() error {
	layout, err := batch.ComputeLayout(e.sources, e.cfg.Emission.Amount, e.cfg.Backend, e.device.Limits())
	if err != nil {
		return err
	}
	if e.log.DebugEnabled() {
		layout.Describe(e.sources, e.log.Debugf)
	}
	batches, err := batch.Build(e.sources, layout, e.cfg.Topology)
	if err != nil {
		return err
	}

	main, err := e.device.UploadMesh(e.name+"_main", batches.Main)
	if err != nil {
		return fmt.Errorf("upload main batch: %w", err)
	}
	var fraction gpu.MeshHandle
	if batches.Fraction != nil {
		fraction, err = e.device.UploadMesh(e.name+"_fraction", batches.Fraction)
		if err != nil {
			e.device.ReleaseMesh(main)
			return fmt.Errorf("upload fraction batch: %w", err)
		}
	}
	e.layout, e.main, e.fraction = layout, main, fraction
	return nil
}

func (e *Emitter) draw() error {
	bind := e.backend.BindForDraw()
	dp := params.Draw(e.input())
	base := gpu.DrawProperties{
		ScaleMin:   dp.ScaleMin,
		ScaleMax:   dp.ScaleMax,
		RandomSeed: dp.RandomSeed,
		WorldSpace: e.cfg.Emission.WorldSpace,
	}

	for i := 0; i < e.layout.MainBatches; i++ {
		if err := e.drawBatch(e.main, bind, base, i); err != nil {
			return err
		}
	}
	if e.fraction.Valid() {
		return e.drawBatch(e.fraction, bind, base, e.layout.MainBatches)
	}
	return nil
}

func (e *Emitter) drawBatch(m gpu.MeshHandle, bind sim.DrawBinding, props gpu.DrawProperties, index int) error {
	bind.Apply(&props, index, e.layout.MaxPerBatch)
	err := e.device.DrawMesh(gpu.DrawCall{
		Mesh:           m,
		Transform:      e.transform,
		Material:       e.material,
		Properties:     props,
		Shadows:        e.cfg.Shadows,
		ReceiveShadows: e.cfg.ReceiveShadows,
	})
	if err != nil {
		return fmt.Errorf("draw batch %d: %w", index, err)
	}
	e.stats.Draws++
	return nil
}

// DebugTextures exposes the texture backend's previous-state textures when
// debug is on.
func (e *Emitter) DebugTextures() []gpu.TextureHandle {
	if tb, ok := e.backend.(*sim.TextureBackend); ok {
		return tb.DebugTextures()
	}
	return nil
}

func (e *Emitter) releaseCycle() {
	if e.backend != nil {
		e.backend.Release()
		e.backend = nil
	}
	e.releaseMeshes()
}

func (e *Emitter) releaseMeshes() {
	if e.main.Valid() {
		e.device.ReleaseMesh(e.main)
	}
	if e.fraction.Valid() {
		e.device.ReleaseMesh(e.fraction)
	}
	e.main, e.fraction = gpu.MeshHandle{}, gpu.MeshHandle{}
	e.layout = batch.Layout{}
}

// Destroy releases the backend, the batched meshes and the instanced
// material, in that order, and cancels any cycle. Calling it again is a no-op.
func (e *Emitter) Destroy() {
	if e.state == StateDestroyed {
		return
	}
	e.releaseCycle()
	if e.material.Valid() {
		e.device.ReleaseMaterial(e.material)
		e.material = gpu.MaterialHandle{}
	}
	e.stopRequested = false
	e.state = StateDestroyed
	e.log.Debugf("%s: buffers released", e.name)
}
