package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// vertexFloats is the interleaved layout: position, normal, uv, uv2, tangent.
const vertexFloats = 3 + 3 + 2 + 2 + 4

const vertexStride = vertexFloats * 4

var vertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: vertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 32, ShaderLocation: 3},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 40, ShaderLocation: 4},
	},
}

// interleave packs a mesh into the vertex layout. Missing tangents and
// second UVs are written as zeros.
func interleave(m *mesh.Mesh) []float32 {
	out := make([]float32, 0, m.VertexCount()*vertexFloats)
	tangents := m.HasTangents()
	uv2 := len(m.UV2) == m.VertexCount()
	for i, p := range m.Positions {
		n := m.Normals[i]
		uv := m.UV[i]
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
		if uv2 {
			out = append(out, m.UV2[i][0], m.UV2[i][1])
		} else {
			out = append(out, 0, 0)
		}
		if tangents {
			t := m.Tangents[i]
			out = append(out, t[0], t[1], t[2], t[3])
		} else {
			out = append(out, 0, 0, 0, 0)
		}
	}
	return out
}

func primitiveTopology(t mesh.Topology) (wgpu.PrimitiveTopology, error) {
	switch t {
	case mesh.Triangles:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case mesh.Lines:
		return wgpu.PrimitiveTopologyLineList, nil
	case mesh.LineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case mesh.Points:
		return wgpu.PrimitiveTopologyPointList, nil
	}
	return 0, fmt.Errorf("topology %s has no WebGPU primitive", t)
}

// drawUniforms is the per-draw uniform block of the instanced material.
type drawUniforms struct {
	Model    mgl32.Mat4
	ViewProj mgl32.Mat4
	// (scaleMin, scaleMax, randomSeed, emitIdOffset)
	Scale mgl32.Vec4
	// (bufferOffset.xy, worldSpace, receiveShadows)
	Offset mgl32.Vec4
}

const drawUniformsSize = 2*64 + 2*16

func packDraw(c gpu.DrawCall, viewProj mgl32.Mat4) drawUniforms {
	p := c.Properties
	return drawUniforms{
		Model:    c.Transform,
		ViewProj: viewProj,
		Scale:    mgl32.Vec4{p.ScaleMin, p.ScaleMax, p.RandomSeed, p.EmitIDOffset},
		Offset:   mgl32.Vec4{p.BufferOffset[0], p.BufferOffset[1], boolf(p.WorldSpace), boolf(c.ReceiveShadows)},
	}
}

func boolf(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// drawVariant picks the vertex entry point reading particle state.
func drawVariant(p gpu.DrawProperties) string {
	if p.Buffer.Valid() {
		return "vs_buffer"
	}
	return "vs_texture"
}

// passEntry is the fragment entry point of a full-screen pass.
func passEntry(index int) string {
	return fmt.Sprintf("fs_pass%d", index)
}

// uniformBytes sizes a params block, padding to at least one vec4.
func uniformBytes(params []mgl32.Vec4) []byte {
	if len(params) == 0 {
		params = []mgl32.Vec4{{}}
	}
	return wgpu.ToBytes(params)
}
