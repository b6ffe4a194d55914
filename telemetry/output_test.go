package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gekko3d/makibishi"
	"github.com/gekko3d/makibishi/gpu/gputest"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)
	assert.NoError(t, om.WriteTicks([]TickRecord{{Emitter: "x"}}))
	assert.NoError(t, om.Close())
	assert.Equal(t, "", om.Dir())
}

func TestOutputManager_HeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteTicks([]TickRecord{{Emitter: "a", Tick: 1}}))
	require.NoError(t, om.WriteTicks([]TickRecord{{Emitter: "a", Tick: 2}}))
	require.NoError(t, om.WriteConfig(makibishi.DefaultConfig()))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "emitter,tick"))

	var rows []TickRecord
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].Tick)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestModule_RecordsEmitterTicks(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	cfg := *makibishi.DefaultConfig()
	cfg.Emission.Amount = 50

	app := makibishi.NewAppBuilder().UseModule(
		makibishi.ClockModule{Playing: true, Fixed: 0.25},
		makibishi.DeviceModule{Name: "rec", Device: gputest.NewRecorder()},
		makibishi.EmitterModule{Name: "fx", Config: cfg, Meshes: []*mesh.Mesh{mesh.Caltrop(1)}},
		Module{Output: om, Every: 2},
	).Build()

	app.Run(func() bool { return app.Frames() == 4 })

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	require.NoError(t, err)
	var rows []TickRecord
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "fx", rows[0].Emitter)
	assert.Equal(t, 2, rows[0].Tick)
	assert.Equal(t, "running", rows[0].State)
	assert.Equal(t, "compute", rows[0].Backend)
	assert.Equal(t, 50, rows[0].Particles)
	assert.True(t, rows[0].Stepped)

	data, err = os.ReadFile(filepath.Join(dir, "summary.csv"))
	require.NoError(t, err)
	var sum []SummaryRecord
	require.NoError(t, gocsv.UnmarshalBytes(data, &sum))
	require.Len(t, sum, 1)
	assert.Equal(t, "fx", sum[0].Emitter)
	assert.Equal(t, 4, sum[0].Ticks)
	assert.Equal(t, 1, sum[0].MaxDraws)
}

func TestAccumulator_Summarize(t *testing.T) {
	acc := NewAccumulator()
	for i, dt := range []float32{0.1, 0.2, 0.3, 0.4} {
		acc.Add(TickRecord{Emitter: "a", Delta: dt, Draws: i, Cycles: 1})
	}
	acc.Add(TickRecord{Emitter: "b", Delta: 0.5, Draws: 3, Cycles: 2})

	out := acc.Summarize()
	require.Len(t, out, 2)
	a := out[0]
	assert.Equal(t, "a", a.Emitter)
	assert.Equal(t, 4, a.Ticks)
	assert.InDelta(t, 0.25, a.MeanDelta, 1e-6)
	assert.InDelta(t, 0.1291, a.StdDelta, 1e-3)
	assert.InDelta(t, 0.4, a.P95Delta, 1e-6)
	assert.Equal(t, 3, a.MaxDraws)
	assert.InDelta(t, 1.5, a.MeanDraws, 1e-9)

	b := out[1]
	assert.Equal(t, 1, b.Ticks)
	assert.Equal(t, 2, b.Cycles)
	assert.Zero(t, b.StdDelta)
}

func TestOutputManager_SummaryDisabled(t *testing.T) {
	var om *OutputManager
	assert.NoError(t, om.WriteSummary([]SummaryRecord{{Emitter: "a"}}))
}
