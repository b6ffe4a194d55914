package makibishi

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/gpu/gputest"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}

type counter struct {
	calls []string
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := &MockResource1{name: "Resource1"}
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem())

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	got, ok := Resource[MockResource1](app)
	require.True(t, ok)
	assert.Equal(t, "Resource1", got.name)

	_, ok = Resource[counter](app)
	assert.False(t, ok)
}

func TestApp_StepRunsStagesInOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	c := &counter{}
	app.addResources(c)
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "render") }).InStage(Render))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "prelude") }).InStage(Prelude))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "update") }))

	app.Step()
	assert.Equal(t, []string{"prelude", "update", "render"}, c.calls)
	assert.Equal(t, 1, app.Frames())
}

func TestApp_UnknownStagePanics(t *testing.T) {
	app := NewAppBuilder().Build()
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InStage(Stage{Name: "Nope"}))
	})
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(c *counter) {}))
	assert.Panics(t, app.Step)
}

func TestApp_RunAndShutdown(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []int
	cmd := app.Commands()
	cmd.OnShutdown(func() { order = append(order, 1) })
	cmd.OnShutdown(func() { order = append(order, 2) })

	app.Run(func() bool { return app.Frames() == 3 })
	assert.Equal(t, 3, app.Frames())
	assert.Equal(t, []int{2, 1}, order)

	app.Shutdown()
	assert.Equal(t, []int{2, 1}, order, "hooks run once")
}

func TestApp_EmitterModules(t *testing.T) {
	dev := gputest.NewRecorder()
	cfg := testConfig()
	bad := testConfig()
	bad.Material = "Standard"

	app := NewAppBuilder().
		UseModule(
			LoggingModule{Prefix: "test"},
			ClockModule{Playing: true, Fixed: 0.25},
			DeviceModule{Name: "recorder", Device: dev},
			EmitterModule{Name: "a", Config: cfg, Meshes: []*mesh.Mesh{mesh.Caltrop(1)}},
			EmitterModule{Name: "bad", Config: bad, Meshes: []*mesh.Mesh{mesh.Caltrop(1)}},
			EmitterModule{Name: "b", Config: cfg, Meshes: []*mesh.Mesh{mesh.Cube(1, 1, 1)}},
		).
		Build()

	es, ok := Resource[Emitters](app)
	require.True(t, ok)
	require.Len(t, es.All(), 2)
	assert.Nil(t, es.Get("bad"))

	app.Step()
	assert.Equal(t, StateRunning, es.Get("a").State())
	assert.Equal(t, StateRunning, es.Get("b").State())
	assert.Equal(t, 2, dev.Count("DrawMesh"))

	app.Shutdown()
	assert.Equal(t, StateDestroyed, es.Get("a").State())
	assert.Equal(t, 0, dev.Live())
}

func TestDeviceModule_Single(t *testing.T) {
	b := NewAppBuilder().UseModule(
		DeviceModule{Name: "one", Device: gputest.NewRecorder()},
		DeviceModule{Name: "two", Device: gputest.NewRecorder()},
	)
	assert.PanicsWithValue(t, "Multiple devices installed: one and two", func() { b.Build() })

	var _ gpu.Device = gputest.NewRecorder()
}
