package batch

import (
	"fmt"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundsSize is the edge length of the fixed box given to every batched mesh.
// Particles travel far from the source mesh bounds, so hosts must not cull
// against computed ones.
const BoundsSize = 1000

// Batches holds the combined meshes for one layout. Fraction is nil when the
// emit amount splits evenly.
type Batches struct {
	Main     *mesh.Mesh
	Fraction *mesh.Mesh
}

// Build concatenates the source meshes into the main and fraction batches
// described by layout. Source meshes are not modified.
func Build(meshes []*mesh.Mesh, layout Layout, topology mesh.Topology) (Batches, error) {
	if layout.Empty() || len(meshes) == 0 {
		return Batches{}, ErrNothingToBatch
	}
	if len(meshes) != layout.MeshCount {
		return Batches{}, fmt.Errorf("%w: layout computed for %d meshes, got %d", mesh.ErrInvalidMesh, layout.MeshCount, len(meshes))
	}
	for _, m := range meshes {
		if err := m.Validate(); err != nil {
			return Batches{}, err
		}
	}

	var b Batches
	b.Main = combine("batched_main", meshes, layout, layout.MainUnits, topology)
	if layout.HasFraction() {
		b.Fraction = combine("batched_fraction", meshes, layout, layout.FractionAmount, topology)
	}
	return b, nil
}

func combine(name string, meshes []*mesh.Mesh, layout Layout, units int, topology mesh.Topology) *mesh.Mesh {
	vertexCount, indexCount := unitTotals(meshes, units)

	out := &mesh.Mesh{
		Name:      name,
		Positions: make([]mgl32.Vec3, 0, vertexCount),
		Normals:   make([]mgl32.Vec3, 0, vertexCount),
		UV:        make([]mgl32.Vec2, 0, vertexCount),
		UV2:       make([]mgl32.Vec2, 0, vertexCount),
		Indices:   make([]uint32, 0, indexCount),
		Topology:  topology,
		Bounds: mesh.Bounds{
			Size: mgl32.Vec3{BoundsSize, BoundsSize, BoundsSize},
		},
	}
	if layout.HasTangents {
		out.Tangents = make([]mgl32.Vec4, 0, vertexCount)
	}

	for i := 0; i < units; i++ {
		src := meshes[i%len(meshes)]
		offset := uint32(len(out.Positions))

		out.Positions = append(out.Positions, src.Positions...)
		out.Normals = append(out.Normals, src.Normals...)
		out.UV = append(out.UV, src.UV...)
		if layout.HasTangents {
			out.Tangents = append(out.Tangents, src.Tangents...)
		}
		for _, idx := range src.Indices {
			out.Indices = append(out.Indices, offset+idx)
		}

		tag := UnitTag(layout, i)
		for k := 0; k < src.VertexCount(); k++ {
			out.UV2 = append(out.UV2, tag)
		}
	}
	return out
}

// UnitTag is the second-UV value given to every vertex of unit i within a batch.
// Compute batches carry the integer unit index, offset per batch at draw time;
// texture batches carry the normalized column coordinate.
func UnitTag(layout Layout, i int) mgl32.Vec2 {
	if layout.Kind == gpu.KindTexture {
		return mgl32.Vec2{float32(i) / float32(layout.MaxPerBatch), 0}
	}
	return mgl32.Vec2{float32(i), 0}
}
