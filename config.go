package makibishi

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/gekko3d/makibishi/params"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// RequiredShaderPrefix is the name prefix every instanced draw material must carry.
const RequiredShaderPrefix = "Makibishi"

// Config holds one emitter's settings plus the runner's window and telemetry.
type Config struct {
	Backend        gpu.Kind       `yaml:"backend"`
	Debug          bool           `yaml:"debug"`
	PlayOnAwake    bool           `yaml:"play_on_awake"`
	StartDelay     float32        `yaml:"start_delay"`
	Shadows        gpu.ShadowMode `yaml:"shadows"`
	ReceiveShadows bool           `yaml:"receive_shadows"`
	Topology       mesh.Topology  `yaml:"topology"`

	Material      string `yaml:"material"`
	ComputeShader string `yaml:"compute_shader"`
	TextureShader string `yaml:"texture_shader"`

	Emission  EmissionConfig  `yaml:"emission"`
	Meshes    []MeshConfig    `yaml:"meshes"`
	Window    WindowConfig    `yaml:"window"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EmissionConfig is everything the parameter builder and batcher read.
type EmissionConfig struct {
	Amount            int        `yaml:"amount"`
	Duration          float32    `yaml:"duration"`
	LifeTime          float32    `yaml:"life_time"`
	LifeTimeRandomize float32    `yaml:"life_time_randomize"` // [0,1)
	Loop              bool       `yaml:"loop"`
	WorldSpace        bool       `yaml:"world_space"`
	EmitterPosition   mgl32.Vec3 `yaml:"emitter_position"`
	EmitterSize       mgl32.Vec3 `yaml:"emitter_size"`

	InitialVelocity mgl32.Vec3 `yaml:"initial_velocity"`
	DirectionSpread float32    `yaml:"direction_spread"`
	SpeedRandomness float32    `yaml:"speed_randomness"`

	Acceleration mgl32.Vec3 `yaml:"acceleration"`
	Drag         float32    `yaml:"drag"`

	Spin           float32 `yaml:"spin"`
	SpeedToSpin    float32 `yaml:"speed_to_spin"`
	SpinRandomness float32 `yaml:"spin_randomness"`

	NoiseAmplitude float32 `yaml:"noise_amplitude"`
	NoiseFrequency float32 `yaml:"noise_frequency"`
	NoiseMotion    float32 `yaml:"noise_motion"`

	Scale           float32 `yaml:"scale"`
	ScaleRandomness float32 `yaml:"scale_randomness"`

	RandomSeed int `yaml:"random_seed"`
}

// MeshConfig names a procedural source mesh.
type MeshConfig struct {
	Shape string     `yaml:"shape"` // caltrop, cube, quad
	Size  float32    `yaml:"size"`
	Box   mgl32.Vec3 `yaml:"box,omitempty"` // cube extents; Size is used when zero
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type TelemetryConfig struct {
	Dir   string `yaml:"dir"`   // empty disables CSV output
	Every int    `yaml:"every"` // write one row per N ticks
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a YAML file over the embedded defaults. Fields missing from the
// file keep their default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML data onto cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// WriteYAML saves the config, e.g. next to telemetry output.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Check verifies the shader and material bindings.
func (c *Config) Check() error {
	if !strings.HasPrefix(c.Material, RequiredShaderPrefix) {
		return &ConfigurationError{
			Field:  "material",
			Value:  c.Material,
			Reason: fmt.Sprintf("set a material using a %s shader", RequiredShaderPrefix),
		}
	}
	if c.BackendShader() == "" {
		return &ConfigurationError{Field: c.Backend.String() + "_shader", Reason: "no simulation shader set"}
	}
	if c.Emission.LifeTimeRandomize < 0 || c.Emission.LifeTimeRandomize >= 1 {
		return &ConfigurationError{
			Field:  "emission.life_time_randomize",
			Value:  fmt.Sprint(c.Emission.LifeTimeRandomize),
			Reason: "must be in [0,1)",
		}
	}
	return nil
}

// BackendShader is the simulation shader for the selected backend.
func (c *Config) BackendShader() string {
	if c.Backend == gpu.KindTexture {
		return c.TextureShader
	}
	return c.ComputeShader
}

// ClampAmount bounds the emit amount by the dispatch limit. It reports
// whether the amount was lowered.
func (c *EmissionConfig) ClampAmount(limits gpu.Limits) bool {
	if m := limits.MaxEmit(); c.Amount > m {
		c.Amount = m
		return true
	}
	return false
}

// Input converts the emission settings for the parameter builder.
// position is the resolved emitter position.
func (c EmissionConfig) Input(position mgl32.Vec3) params.Input {
	return params.Input{
		EmitterPosition:   position,
		EmitterSize:       c.EmitterSize,
		LifeTime:          c.LifeTime,
		LifeTimeRandomize: c.LifeTimeRandomize,
		Loop:              c.Loop,
		InitialVelocity:   c.InitialVelocity,
		DirectionSpread:   c.DirectionSpread,
		SpeedRandomness:   c.SpeedRandomness,
		Acceleration:      c.Acceleration,
		Drag:              c.Drag,
		Spin:              c.Spin,
		SpeedToSpin:       c.SpeedToSpin,
		SpinRandomness:    c.SpinRandomness,
		NoiseAmplitude:    c.NoiseAmplitude,
		NoiseFrequency:    c.NoiseFrequency,
		NoiseMotion:       c.NoiseMotion,
		Scale:             c.Scale,
		ScaleRandomness:   c.ScaleRandomness,
		RandomSeed:        c.RandomSeed,
	}
}

// SourceMeshes builds the procedural meshes listed under meshes.
func (c *Config) SourceMeshes() ([]*mesh.Mesh, error) {
	out := make([]*mesh.Mesh, 0, len(c.Meshes))
	for i, mc := range c.Meshes {
		size := mc.Size
		if size <= 0 {
			size = 1
		}
		switch mc.Shape {
		case "caltrop":
			out = append(out, mesh.Caltrop(size))
		case "cube":
			box := mc.Box
			if box == (mgl32.Vec3{}) {
				box = mgl32.Vec3{size, size, size}
			}
			out = append(out, mesh.Cube(box[0], box[1], box[2]))
		case "quad":
			out = append(out, mesh.Quad(size))
		default:
			return nil, &ConfigurationError{Field: fmt.Sprintf("meshes[%d].shape", i), Value: mc.Shape, Reason: "unknown shape"}
		}
	}
	return out, nil
}
