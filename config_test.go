package makibishi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, gpu.KindCompute, cfg.Backend)
	assert.Equal(t, gpu.ShadowsOff, cfg.Shadows)
	assert.Equal(t, mesh.Triangles, cfg.Topology)
	assert.True(t, cfg.PlayOnAwake)

	em := cfg.Emission
	assert.Equal(t, 0, em.Amount)
	assert.Equal(t, float32(5), em.Duration)
	assert.Equal(t, float32(4), em.LifeTime)
	assert.Equal(t, mgl32.Vec3{0, 0, 4}, em.InitialVelocity)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, em.EmitterSize)
	assert.Equal(t, float32(0.2), em.DirectionSpread)
	assert.Equal(t, float32(60), em.SpeedToSpin)
	assert.NoError(t, cfg.Check())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.yaml")
	data := []byte(`
backend: texture
shadows: two_sided
topology: points
emission:
  amount: 5000
  loop: true
  acceleration: [0, -9.8, 0]
meshes:
  - shape: cube
    box: [1, 2, 3]
  - shape: quad
    size: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, gpu.KindTexture, cfg.Backend)
	assert.Equal(t, gpu.ShadowsTwoSided, cfg.Shadows)
	assert.Equal(t, mesh.Points, cfg.Topology)
	assert.Equal(t, 5000, cfg.Emission.Amount)
	assert.True(t, cfg.Emission.Loop)
	assert.Equal(t, mgl32.Vec3{0, -9.8, 0}, cfg.Emission.Acceleration)
	assert.Equal(t, float32(4), cfg.Emission.LifeTime, "untouched fields keep defaults")
	assert.Equal(t, "MakibishiTexture", cfg.BackendShader())

	meshes, err := cfg.SourceMeshes()
	require.NoError(t, err)
	require.Len(t, meshes, 2)
	assert.Equal(t, 24, meshes[0].VertexCount())
	assert.Equal(t, 4, meshes[1].VertexCount())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg := DefaultConfig()
	assert.Error(t, Parse([]byte("backend: opencl"), cfg))
	assert.Error(t, Parse([]byte("emission: [1, 2]"), cfg))
}

func TestConfig_WriteYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = gpu.KindTexture
	cfg.Emission.Amount = 42
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestConfig_Check(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Material = "Unlit"
	var cerr *ConfigurationError
	require.True(t, errors.As(cfg.Check(), &cerr))
	assert.Contains(t, cerr.Error(), RequiredShaderPrefix)

	cfg = DefaultConfig()
	cfg.ComputeShader = ""
	assert.Error(t, cfg.Check())

	cfg = DefaultConfig()
	cfg.Emission.LifeTimeRandomize = 1
	assert.Error(t, cfg.Check())
}

func TestEmissionConfig_ClampAmount(t *testing.T) {
	em := DefaultConfig().Emission
	em.Amount = gpu.MaxEmit + 1
	assert.True(t, em.ClampAmount(gpu.DefaultLimits()))
	assert.Equal(t, gpu.MaxEmit, em.Amount)
	assert.False(t, em.ClampAmount(gpu.DefaultLimits()))
}

func TestConfig_UnknownShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Meshes = []MeshConfig{{Shape: "torus"}}
	_, err := cfg.SourceMeshes()
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
