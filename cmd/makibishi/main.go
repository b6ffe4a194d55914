// Command makibishi opens a window and plays one configured particle emitter.
package main

import (
	"embed"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/makibishi"
	"github.com/gekko3d/makibishi/gpu/webgpu"
	"github.com/gekko3d/makibishi/telemetry"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/*.wgsl
var builtinShaders embed.FS

func init() {
	// GLFW must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to an emitter YAML file (empty = built-in defaults)")
	shaderDir := flag.String("shaders", "", "Directory of .wgsl files overriding the built-in shaders")
	telemetryDir := flag.String("telemetry", "", "Directory for tick CSV output (overrides config)")
	maxFrames := flag.Int("frames", 0, "Stop after N frames (0 = until the window closes)")
	amount := flag.Int("amount", 0, "Particle count (0 = use config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := makibishi.NewDefaultLogger("makibishi", *debug)
	if err := run(logger, *configPath, *shaderDir, *telemetryDir, *amount, *maxFrames); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(logger *makibishi.DefaultLogger, configPath, shaderDir, telemetryDir string, amount, maxFrames int) error {
	cfg := makibishi.DefaultConfig()
	if configPath != "" {
		loaded, err := makibishi.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if telemetryDir != "" {
		cfg.Telemetry.Dir = telemetryDir
	}
	if amount > 0 {
		cfg.Emission.Amount = amount
	}
	if logger.DebugEnabled() {
		cfg.Debug = true
	}
	if cfg.Emission.Amount == 0 {
		logger.Warnf("emit amount is 0, nothing will be drawn; pass -amount or set emission.amount")
	}
	sources, err := cfg.SourceMeshes()
	if err != nil {
		return err
	}

	shaders, err := webgpu.LoadShaderFS(builtinShaders, "shaders")
	if err != nil {
		return err
	}
	if shaderDir != "" {
		extra, err := webgpu.LoadShaderDir(shaderDir)
		if err != nil {
			return err
		}
		shaders.Merge(extra)
	}

	window, err := createWindowState(cfg.Window)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	defer glfw.Terminate()
	defer window.win.Destroy()

	gs, err := createGpuState(window)
	if err != nil {
		return err
	}
	defer gs.release()

	device := webgpu.New(gs.device, gs.surfaceConfig.Format, shaders)
	defer device.Release()

	out, err := telemetry.NewOutputManager(cfg.Telemetry.Dir)
	if err != nil {
		return err
	}
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	app := makibishi.NewAppBuilder().
		UseModule(
			makibishi.LoggingModule{Logger: logger},
			makibishi.ClockModule{Playing: true},
			makibishi.DeviceModule{Name: "webgpu", Device: device},
			makibishi.EmitterModule{Name: "makibishi", Config: *cfg, Meshes: sources},
			telemetry.Module{Output: out, Every: cfg.Telemetry.Every},
			windowModule{
				window: window,
				gpu:    gs,
				device: device,
				camera: camera{eye: mgl32.Vec3{0, 3, -8}, target: mgl32.Vec3{0, 0, 4}, fovY: 60},
			},
		).
		Build()

	logger.Infof("playing %d particles on the %s backend", cfg.Emission.Amount, cfg.Backend)
	app.Run(func() bool {
		return maxFrames > 0 && app.Frames() >= maxFrames
	})
	return nil
}
