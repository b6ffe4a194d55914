// Package webgpu implements gpu.Device on WebGPU.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

const floatTextureFormat = wgpu.TextureFormatRGBA32Float

var _ gpu.Device = (*Device)(nil)

type bufferRes struct {
	buf    *wgpu.Buffer
	params *wgpu.Buffer
}

type textureRes struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

type materialRes struct {
	shader string
	params *wgpu.Buffer
}

type meshRes struct {
	vertices *wgpu.Buffer
	indices  *wgpu.Buffer
	count    uint32
	topology mesh.Topology
}

type queuedDraw struct {
	call     gpu.DrawCall
	topology mesh.Topology
}

// Device is a gpu.Device over a WebGPU device and queue. Compute dispatches
// and full-screen passes are submitted immediately; mesh draws are queued
// and encoded into one render pass by Render.
type Device struct {
	mu sync.Mutex

	device      *wgpu.Device
	queue       *wgpu.Queue
	colorFormat wgpu.TextureFormat
	shaders     Shaders
	limits      gpu.Limits

	modules      map[string]*wgpu.ShaderModule
	computePipes map[string]*wgpu.ComputePipeline
	passPipes    map[string]*wgpu.RenderPipeline
	drawPipes    map[string]*wgpu.RenderPipeline
	buffers      map[gpu.ResourceID]*bufferRes
	textures     map[gpu.ResourceID]*textureRes
	materials    map[gpu.ResourceID]*materialRes
	meshes       map[gpu.ResourceID]*meshRes

	draws          []queuedDraw
	viewProj       mgl32.Mat4
	depth          *textureRes
	depthW, depthH uint32
}

// New wraps device. colorFormat is the format of the views passed to Render.
func New(device *wgpu.Device, colorFormat wgpu.TextureFormat, shaders Shaders) *Device {
	return &Device{
		device:       device,
		queue:        device.GetQueue(),
		colorFormat:  colorFormat,
		shaders:      shaders,
		limits:       gpu.DefaultLimits(),
		modules:      make(map[string]*wgpu.ShaderModule),
		computePipes: make(map[string]*wgpu.ComputePipeline),
		passPipes:    make(map[string]*wgpu.RenderPipeline),
		drawPipes:    make(map[string]*wgpu.RenderPipeline),
		buffers:      make(map[gpu.ResourceID]*bufferRes),
		textures:     make(map[gpu.ResourceID]*textureRes),
		materials:    make(map[gpu.ResourceID]*materialRes),
		meshes:       make(map[gpu.ResourceID]*meshRes),
		viewProj:     mgl32.Ident4(),
	}
}

func (d *Device) Limits() gpu.Limits { return d.limits }

// SetCamera sets the view-projection used by queued draws.
func (d *Device) SetCamera(viewProj mgl32.Mat4) {
	d.mu.Lock()
	d.viewProj = viewProj
	d.mu.Unlock()
}

func (d *Device) module(name string) (*wgpu.ShaderModule, error) {
	if m, ok := d.modules[name]; ok {
		return m, nil
	}
	code, err := d.shaders.source(name)
	if err != nil {
		return nil, err
	}
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	d.modules[name] = m
	return m, nil
}

func (d *Device) uniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (d *Device) CreateStructuredBuffer(label string, count, stride int) (gpu.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(count * stride),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return gpu.BufferHandle{}, fmt.Errorf("creating %s: %w", label, err)
	}
	params, err := d.uniformBuffer(label+"_params", 16*16)
	if err != nil {
		buf.Release()
		return gpu.BufferHandle{}, fmt.Errorf("creating %s params: %w", label, err)
	}
	id := gpu.NewResourceID()
	d.buffers[id] = &bufferRes{buf: buf, params: params}
	return gpu.BufferHandle{ID: id, Count: count, Stride: stride}, nil
}

func (d *Device) ReleaseBuffer(h gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.buffers[h.ID]; ok {
		r.buf.Release()
		r.params.Release()
		delete(d.buffers, h.ID)
	}
}

func (d *Device) CreateFloatTexture(label string, width, height int) (gpu.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.createTexture(label, uint32(width), uint32(height), floatTextureFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
	if err != nil {
		return gpu.TextureHandle{}, err
	}
	id := gpu.NewResourceID()
	d.textures[id] = r
	return gpu.TextureHandle{ID: id, Width: width, Height: height}, nil
}

func (d *Device) createTexture(label string, w, h uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*textureRes, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating texture %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("creating view %s: %w", label, err)
	}
	return &textureRes{tex: tex, view: view}, nil
}

func (r *textureRes) release() {
	r.view.Release()
	r.tex.Release()
}

func (d *Device) ReleaseTexture(h gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.textures[h.ID]; ok {
		r.release()
		delete(d.textures, h.ID)
	}
}

func (d *Device) CreateMaterial(shader string) (gpu.MaterialHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.module(shader); err != nil {
		return gpu.MaterialHandle{}, err
	}
	params, err := d.uniformBuffer(shader+"_params", 16*16)
	if err != nil {
		return gpu.MaterialHandle{}, fmt.Errorf("creating %s params: %w", shader, err)
	}
	id := gpu.NewResourceID()
	d.materials[id] = &materialRes{shader: shader, params: params}
	return gpu.MaterialHandle{ID: id, Shader: shader}, nil
}

func (d *Device) ReleaseMaterial(h gpu.MaterialHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.materials[h.ID]; ok {
		r.params.Release()
		delete(d.materials, h.ID)
	}
}

func (d *Device) UploadMesh(label string, m *mesh.Mesh) (gpu.MeshHandle, error) {
	if err := m.Validate(); err != nil {
		return gpu.MeshHandle{}, err
	}
	if _, err := primitiveTopology(m.Topology); err != nil {
		return gpu.MeshHandle{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	vb, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + "_vertices",
		Contents: wgpu.ToBytes(interleave(m)),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return gpu.MeshHandle{}, fmt.Errorf("uploading %s vertices: %w", label, err)
	}
	ib, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + "_indices",
		Contents: wgpu.ToBytes(m.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vb.Release()
		return gpu.MeshHandle{}, fmt.Errorf("uploading %s indices: %w", label, err)
	}
	id := gpu.NewResourceID()
	d.meshes[id] = &meshRes{vertices: vb, indices: ib, count: uint32(m.IndexCount()), topology: m.Topology}
	return gpu.MeshHandle{ID: id, VertexCount: m.VertexCount(), IndexCount: m.IndexCount()}, nil
}

func (d *Device) ReleaseMesh(h gpu.MeshHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.meshes[h.ID]; ok {
		r.vertices.Release()
		r.indices.Release()
		delete(d.meshes, h.ID)
	}
}

// Release frees cached pipelines, shader modules and any resource still live.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.buffers {
		r.buf.Release()
		r.params.Release()
	}
	for _, r := range d.textures {
		r.release()
	}
	for _, r := range d.materials {
		r.params.Release()
	}
	for _, r := range d.meshes {
		r.vertices.Release()
		r.indices.Release()
	}
	if d.depth != nil {
		d.depth.release()
	}
	for _, p := range d.computePipes {
		p.Release()
	}
	for _, p := range d.passPipes {
		p.Release()
	}
	for _, p := range d.drawPipes {
		p.Release()
	}
	for _, m := range d.modules {
		m.Release()
	}
	clear(d.buffers)
	clear(d.textures)
	clear(d.materials)
	clear(d.meshes)
	clear(d.computePipes)
	clear(d.passPipes)
	clear(d.drawPipes)
	clear(d.modules)
	d.depth = nil
	d.draws = nil
}
