package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/makibishi/gpu"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// DrawMesh queues an instanced draw for the next Render. Shadow-only draws
// have no color contribution and are dropped.
func (d *Device) DrawMesh(c gpu.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.meshes[c.Mesh.ID]
	if !ok {
		return fmt.Errorf("draw: unknown mesh %s", c.Mesh.ID)
	}
	if _, ok := d.materials[c.Material.ID]; !ok {
		return fmt.Errorf("draw: unknown material %s", c.Material.ID)
	}
	if c.Shadows == gpu.ShadowsOnly {
		return nil
	}
	d.draws = append(d.draws, queuedDraw{call: c, topology: m.topology})
	return nil
}

// Pending reports how many draws wait for Render.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.draws)
}

func cullMode(s gpu.ShadowMode) wgpu.CullMode {
	if s == gpu.ShadowsTwoSided {
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

func (d *Device) drawPipeline(shader string, q queuedDraw) (*wgpu.RenderPipeline, error) {
	variant := drawVariant(q.call.Properties)
	cull := cullMode(q.call.Shadows)
	key := fmt.Sprintf("%s/%s/%s/%d", shader, variant, q.topology, cull)
	if p, ok := d.drawPipes[key]; ok {
		return p, nil
	}
	topology, err := primitiveTopology(q.topology)
	if err != nil {
		return nil, err
	}
	module, err := d.module(shader)
	if err != nil {
		return nil, err
	}
	strip := wgpu.IndexFormatUndefined
	if topology == wgpu.PrimitiveTopologyLineStrip {
		strip = wgpu.IndexFormatUint32
	}
	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: key,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: variant,
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    d.colorFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:         topology,
			StripIndexFormat: strip,
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         cull,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("draw pipeline %s: %w", key, err)
	}
	d.drawPipes[key] = p
	return p, nil
}

func (d *Device) ensureDepth(width, height uint32) error {
	if d.depth != nil && d.depthW == width && d.depthH == height {
		return nil
	}
	if d.depth != nil {
		d.depth.release()
		d.depth = nil
	}
	r, err := d.createTexture("makibishi_depth", width, height, depthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	d.depth, d.depthW, d.depthH = r, width, height
	return nil
}

// frameObjects collects what a frame allocates so it can be freed after submit.
type frameObjects struct {
	buffers []*wgpu.Buffer
	groups  []*wgpu.BindGroup
	layouts []*wgpu.BindGroupLayout
}

func (f *frameObjects) release() {
	for _, g := range f.groups {
		g.Release()
	}
	for _, l := range f.layouts {
		l.Release()
	}
	for _, b := range f.buffers {
		b.Release()
	}
}

func (d *Device) bindDraw(pipeline *wgpu.RenderPipeline, c gpu.DrawCall, frame *frameObjects) (*wgpu.BindGroup, error) {
	u := packDraw(c, d.viewProj)
	ub, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "makibishi_draw",
		Contents: wgpu.ToBytes([]drawUniforms{u}),
		Usage:    wgpu.BufferUsageUniform,
	})
	if err != nil {
		return nil, err
	}
	frame.buffers = append(frame.buffers, ub)

	entries := []wgpu.BindGroupEntry{{Binding: 0, Buffer: ub, Size: drawUniformsSize}}
	p := c.Properties
	if p.Buffer.Valid() {
		r, ok := d.buffers[p.Buffer.ID]
		if !ok {
			return nil, fmt.Errorf("unknown particle buffer %s", p.Buffer.ID)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: 1, Buffer: r.buf, Size: wgpu.WholeSize})
	} else {
		pos, ok := d.textures[p.Position.ID]
		if !ok {
			return nil, fmt.Errorf("unknown position texture %s", p.Position.ID)
		}
		rot, ok := d.textures[p.Rotation.ID]
		if !ok {
			return nil, fmt.Errorf("unknown rotation texture %s", p.Rotation.ID)
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 2, TextureView: pos.view},
			wgpu.BindGroupEntry{Binding: 3, TextureView: rot.view},
		)
	}

	layout := pipeline.GetBindGroupLayout(0)
	frame.layouts = append(frame.layouts, layout)
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Layout: layout, Entries: entries})
	if err != nil {
		return nil, err
	}
	frame.groups = append(frame.groups, bg)
	return bg, nil
}

// Render encodes every queued draw into one pass over view and clears the
// queue. Draws whose resources were released since DrawMesh are skipped.
func (d *Device) Render(view *wgpu.TextureView, width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draws := d.draws
	d.draws = d.draws[:0]

	if err := d.ensureDepth(width, height); err != nil {
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	var frame frameObjects
	defer frame.release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	var drawErr error
	for _, q := range draws {
		m, ok := d.meshes[q.call.Mesh.ID]
		if !ok {
			continue
		}
		mat, ok := d.materials[q.call.Material.ID]
		if !ok {
			continue
		}
		pipeline, err := d.drawPipeline(mat.shader, q)
		if err != nil {
			drawErr = err
			break
		}
		bg, err := d.bindDraw(pipeline, q.call, &frame)
		if err != nil {
			drawErr = err
			break
		}
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.SetVertexBuffer(0, m.vertices, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(m.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(m.count, 1, 0, 0, 0)
	}
	if err := pass.End(); err != nil {
		return err
	}
	if drawErr != nil {
		return drawErr
	}
	return d.submit(encoder)
}
