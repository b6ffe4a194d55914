package main

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/makibishi"
	"github.com/gekko3d/makibishi/gpu/webgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type windowState struct {
	win    *glfw.Window
	width  int
	height int
}

type gpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createWindowState(cfg makibishi.WindowConfig) (*windowState, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	return &windowState{win: win, width: cfg.Width, height: cfg.Height}, nil
}

func createGpuState(s *windowState) (*gpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.win))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "makibishi"})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(s.width),
		Height:      uint32(s.height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &gpuState{surface: surface, adapter: adapter, device: device, surfaceConfig: &surfaceConfig}, nil
}

func (g *gpuState) release() {
	g.device.Release()
	g.adapter.Release()
	g.surface.Release()
}

// resize reconfigures the surface when the framebuffer changed size. A
// minimized window reports zero and is skipped.
func (g *gpuState) resize(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	if uint32(w) != g.surfaceConfig.Width || uint32(h) != g.surfaceConfig.Height {
		g.surfaceConfig.Width, g.surfaceConfig.Height = uint32(w), uint32(h)
		g.surface.Configure(g.adapter, g.device, g.surfaceConfig)
	}
	return true
}

// windowModule polls window events before the update and presents the
// queued emitter draws in the render stage. Closing the window stops the app.
type windowModule struct {
	window *windowState
	gpu    *gpuState
	device *webgpu.Device
	camera camera
}

func (mod windowModule) Install(app *makibishi.App, cmd *makibishi.Commands) {
	logger := app.Logger()
	cmd.AddResources(mod.window)
	cmd.UseSystem(makibishi.System(func(s *windowState) {
		glfw.PollEvents()
		if s.win.ShouldClose() {
			app.Stop()
		}
		s.width, s.height = s.win.GetFramebufferSize()
	}).InStage(makibishi.PreUpdate))

	cmd.UseSystem(makibishi.System(func(s *windowState) {
		if err := mod.present(s); err != nil {
			logger.Errorf("present: %v", err)
		}
	}).InStage(makibishi.Render))
}

func (mod windowModule) present(s *windowState) error {
	if !mod.gpu.resize(s.width, s.height) {
		return nil
	}
	mod.device.SetCamera(mod.camera.viewProj(float32(s.width) / float32(s.height)))

	frame, err := mod.gpu.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := frame.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()
	if err := mod.device.Render(view, uint32(s.width), uint32(s.height)); err != nil {
		return err
	}
	mod.gpu.surface.Present()
	return nil
}

type camera struct {
	eye, target mgl32.Vec3
	fovY        float32
}

func (c camera) viewProj(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.fovY), aspect, 0.05, 200)
	view := mgl32.LookAtV(c.eye, c.target, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}
