package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/makibishi/gpu"
)

func (d *Device) computePipeline(kernel string) (*wgpu.ComputePipeline, error) {
	if p, ok := d.computePipes[kernel]; ok {
		return p, nil
	}
	shader, entry, err := splitKernel(kernel)
	if err != nil {
		return nil, err
	}
	module, err := d.module(shader)
	if err != nil {
		return nil, err
	}
	p, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: kernel,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline %s: %w", kernel, err)
	}
	d.computePipes[kernel] = p
	return p, nil
}

// Dispatch binds the params block at 0 and the particle buffer at 1 of group 0.
func (d *Device) Dispatch(job gpu.Dispatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.buffers[job.Buffer.ID]
	if !ok {
		return fmt.Errorf("dispatch %s: unknown buffer %s", job.Kernel, job.Buffer.ID)
	}
	pipeline, err := d.computePipeline(job.Kernel)
	if err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(r.params, 0, uniformBytes(job.Params)); err != nil {
		return fmt.Errorf("dispatch %s: params: %w", job.Kernel, err)
	}

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.params, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.buf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("dispatch %s: bind group: %w", job.Kernel, err)
	}
	defer bg.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(job.Groups), 1, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("dispatch %s: %w", job.Kernel, err)
	}
	return d.submit(encoder)
}

func (d *Device) submit(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
	return nil
}

func (d *Device) passPipeline(shader string, index int) (*wgpu.RenderPipeline, error) {
	key := fmt.Sprintf("%s#%d", shader, index)
	if p, ok := d.passPipes[key]; ok {
		return p, nil
	}
	module, err := d.module(shader)
	if err != nil {
		return nil, err
	}
	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: key,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_fullscreen",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: passEntry(index),
			Targets: []wgpu.ColorTargetState{{
				Format:    floatTextureFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pass pipeline %s: %w", key, err)
	}
	d.passPipes[key] = p
	return p, nil
}

// FullScreenPass draws one triangle covering the target. The params block is
// bound at 0 and the input textures at 1.. in order.
func (d *Device) FullScreenPass(job gpu.Pass) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mat, ok := d.materials[job.Material.ID]
	if !ok {
		return fmt.Errorf("pass %d: unknown material %s", job.Index, job.Material.ID)
	}
	target, ok := d.textures[job.Target.ID]
	if !ok {
		return fmt.Errorf("pass %d: unknown target %s", job.Index, job.Target.ID)
	}
	entries := []wgpu.BindGroupEntry{{Binding: 0, Buffer: mat.params, Size: wgpu.WholeSize}}
	for i, in := range job.Inputs {
		r, ok := d.textures[in.ID]
		if !ok {
			return fmt.Errorf("pass %d: unknown input %s", job.Index, in.ID)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(i + 1), TextureView: r.view})
	}

	pipeline, err := d.passPipeline(mat.shader, job.Index)
	if err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(mat.params, 0, uniformBytes(job.Params)); err != nil {
		return fmt.Errorf("pass %d: params: %w", job.Index, err)
	}
	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Layout: layout, Entries: entries})
	if err != nil {
		return fmt.Errorf("pass %d: bind group: %w", job.Index, err)
	}
	defer bg.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("pass %d: %w", job.Index, err)
	}
	return d.submit(encoder)
}
