package makibishi

import (
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Emitters is the resource listing every live emitter in install order.
type Emitters struct {
	items []*Emitter
}

func (es *Emitters) All() []*Emitter { return es.items }

func (es *Emitters) Get(name string) *Emitter {
	for _, e := range es.items {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

func (es *Emitters) add(e *Emitter) { es.items = append(es.items, e) }

// DestroyAll tears every emitter down.
func (es *Emitters) DestroyAll() {
	for _, e := range es.items {
		e.Destroy()
	}
}

// EmitterModule installs one emitter. It requires a DeviceModule and a
// ClockModule installed before it. A configuration error is logged once and
// the emitter is left out; the app keeps running.
type EmitterModule struct {
	Name      string
	Config    Config
	Meshes    []*mesh.Mesh
	Transform mgl32.Mat4
}

func (m EmitterModule) Install(app *App, cmd *Commands) {
	g, ok := Resource[GPU](app)
	if !ok {
		panic("EmitterModule: no device installed")
	}
	logger := app.Logger()

	es, ok := Resource[Emitters](app)
	if !ok {
		es = &Emitters{}
		cmd.AddResources(es)
		cmd.UseSystem(System(emitterSystem).InStage(Update))
		cmd.OnShutdown(es.DestroyAll)
	}

	e, err := NewEmitter(m.Name, g.Device, m.Config, m.Meshes, logger)
	if err != nil {
		logger.Errorf("%s: %v", m.Name, err)
		return
	}
	if m.Transform != (mgl32.Mat4{}) {
		e.SetTransform(m.Transform)
	}
	es.add(e)
	if m.Config.PlayOnAwake {
		_ = e.Play()
	}
}

func emitterSystem(clock *Clock, emitters *Emitters) {
	dt := clock.Delta()
	for _, e := range emitters.items {
		e.Tick(dt, clock.Time)
	}
}
