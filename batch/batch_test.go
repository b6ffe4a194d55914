package batch

import (
	"errors"
	"testing"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointMesh builds a mesh with n vertices and a single index per vertex.
func pointMesh(n int) *mesh.Mesh {
	m := &mesh.Mesh{Name: "points", Topology: mesh.Points}
	for i := 0; i < n; i++ {
		m.Positions = append(m.Positions, mgl32.Vec3{float32(i), 0, 0})
		m.Normals = append(m.Normals, mgl32.Vec3{0, 1, 0})
		m.UV = append(m.UV, mgl32.Vec2{0, 0})
		m.Indices = append(m.Indices, uint32(i))
	}
	return m
}

func TestComputeLayout_SplitsOverflowIntoFraction(t *testing.T) {
	l, err := ComputeLayout([]*mesh.Mesh{pointMesh(1000)}, 100, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 65, l.MaxPerBatch)
	assert.Equal(t, 1, l.MainBatches)
	assert.Equal(t, 35, l.FractionAmount)
	assert.Equal(t, 2, l.TotalBatches())
	assert.True(t, l.HasFraction())
}

func TestComputeLayout_SplitInvariant(t *testing.T) {
	limits := gpu.DefaultLimits()
	for _, v := range []int{1, 3, 24, 1000, 4097, 65535} {
		for _, a := range []int{1, 7, 64, 65, 100, 1000, 4096, 65536, 100000, 1 << 20} {
			l, err := ComputeLayout([]*mesh.Mesh{pointMesh(v)}, a, gpu.KindCompute, limits)
			require.NoError(t, err)

			if a*v > limits.MaxVertices && l.HasFraction() {
				assert.Equal(t, a, l.MainBatches*l.MaxPerBatch+l.FractionAmount, "A=%d V=%d", a, v)
			}
			assert.GreaterOrEqual(t, l.FractionAmount, 0)
			assert.Less(t, l.FractionAmount, l.MaxPerBatch)

			// every unit is drawn exactly once
			drawn := (l.MainBatches-1)*l.MaxPerBatch + l.MainUnits + l.FractionAmount
			if l.HasFraction() {
				drawn = l.MainBatches*l.MainUnits + l.FractionAmount
			}
			assert.Equal(t, a, drawn, "A=%d V=%d", a, v)
		}
	}
}

func TestComputeLayout_EvenSplitHasNoFraction(t *testing.T) {
	l, err := ComputeLayout([]*mesh.Mesh{pointMesh(1000)}, 130, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 2, l.MainBatches)
	assert.False(t, l.HasFraction())
	assert.Equal(t, 65, l.MainUnits)
}

func TestComputeLayout_NothingToBatch(t *testing.T) {
	_, err := ComputeLayout(nil, 10, gpu.KindCompute, gpu.DefaultLimits())
	assert.ErrorIs(t, err, ErrNothingToBatch)

	_, err = ComputeLayout([]*mesh.Mesh{mesh.Cube(1, 1, 1)}, 0, gpu.KindCompute, gpu.DefaultLimits())
	assert.ErrorIs(t, err, ErrNothingToBatch)

	b, err := Build(nil, Layout{}, mesh.Triangles)
	assert.ErrorIs(t, err, ErrNothingToBatch)
	assert.Nil(t, b.Main)
	assert.Nil(t, b.Fraction)
}

func TestComputeLayout_EmptyMesh(t *testing.T) {
	_, err := ComputeLayout([]*mesh.Mesh{{Name: "empty"}}, 10, gpu.KindCompute, gpu.DefaultLimits())
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestComputeLayout_TooManyVertices(t *testing.T) {
	_, err := ComputeLayout([]*mesh.Mesh{pointMesh(40000), pointMesh(30000)}, 10, gpu.KindCompute, gpu.DefaultLimits())
	var limitErr *ResourceLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 70000, limitErr.Value)
	assert.Equal(t, gpu.MaxVertices, limitErr.Limit)
}

func TestComputeLayout_TextureClamp(t *testing.T) {
	meshes := []*mesh.Mesh{pointMesh(1), pointMesh(1), pointMesh(1)}

	l, err := ComputeLayout(meshes, 10000, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 65535, l.MaxPerBatch)

	l, err = ComputeLayout(meshes, 10000, gpu.KindTexture, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 4095, l.MaxPerBatch)
	assert.Zero(t, l.MaxPerBatch%len(meshes))
}

func TestComputeLayout_TextureRowLimit(t *testing.T) {
	limits := gpu.DefaultLimits()
	limits.MaxTextureSize = 16

	_, err := ComputeLayout([]*mesh.Mesh{pointMesh(4)}, 16*17, gpu.KindTexture, limits)
	var limitErr *ResourceLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 17, limitErr.Value)

	l, err := ComputeLayout([]*mesh.Mesh{pointMesh(4)}, 16*16, gpu.KindTexture, limits)
	require.NoError(t, err)
	assert.Equal(t, 16, l.TotalBatches())
}

func TestBuild_MainAndFraction(t *testing.T) {
	src := pointMesh(1000)
	l, err := ComputeLayout([]*mesh.Mesh{src}, 100, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)

	b, err := Build([]*mesh.Mesh{src}, l, mesh.Points)
	require.NoError(t, err)
	require.NotNil(t, b.Fraction)

	assert.Equal(t, 65*1000, b.Main.VertexCount())
	assert.Equal(t, 35*1000, b.Fraction.VertexCount())
	assert.Equal(t, mesh.Points, b.Main.Topology)
	require.NoError(t, b.Main.Validate())
	require.NoError(t, b.Fraction.Validate())

	// compute tags carry the integer unit index, restarting per batch
	assert.Equal(t, mgl32.Vec2{0, 0}, b.Main.UV2[0])
	assert.Equal(t, mgl32.Vec2{64, 0}, b.Main.UV2[64*1000])
	assert.Equal(t, mgl32.Vec2{34, 0}, b.Fraction.UV2[34*1000+999])

	// indices are offset by the running vertex count
	assert.Equal(t, uint32(1000), b.Main.Indices[1000])
	assert.Equal(t, mgl32.Vec3{BoundsSize, BoundsSize, BoundsSize}, b.Main.Bounds.Size)
}

func TestBuild_TextureTags(t *testing.T) {
	src := mesh.Cube(1, 1, 1)
	l, err := ComputeLayout([]*mesh.Mesh{src}, 3000, gpu.KindTexture, gpu.DefaultLimits())
	require.NoError(t, err)

	b, err := Build([]*mesh.Mesh{src}, l, mesh.Triangles)
	require.NoError(t, err)

	for i := 0; i < l.MainUnits; i += 100 {
		want := float32(i) / float32(l.MaxPerBatch)
		assert.InDelta(t, want, b.Main.UV2[i*24][0], 1e-6)
		assert.Less(t, b.Main.UV2[i*24][0], float32(1))
	}
}

func TestBuild_RoundRobinAndTangents(t *testing.T) {
	cube, quad := mesh.Cube(1, 1, 1), mesh.Quad(1)

	l, err := ComputeLayout([]*mesh.Mesh{cube, quad}, 5, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.False(t, l.HasTangents)

	b, err := Build([]*mesh.Mesh{cube, quad}, l, mesh.Triangles)
	require.NoError(t, err)
	assert.Nil(t, b.Fraction)
	assert.Empty(t, b.Main.Tangents)
	// cube, quad, cube, quad, cube
	assert.Equal(t, 3*24+2*4, b.Main.VertexCount())
	assert.Equal(t, 3*36+2*6, b.Main.IndexCount())
	assert.Equal(t, mgl32.Vec2{1, 0}, b.Main.UV2[24])

	l, err = ComputeLayout([]*mesh.Mesh{cube, mesh.Caltrop(1)}, 4, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.True(t, l.HasTangents)
	b, err = Build([]*mesh.Mesh{cube, mesh.Caltrop(1)}, l, mesh.Triangles)
	require.NoError(t, err)
	assert.Len(t, b.Main.Tangents, b.Main.VertexCount())
}

func TestBuild_EmptySourceKeepsTangents(t *testing.T) {
	srcs := []*mesh.Mesh{mesh.Caltrop(1), {Name: "empty"}}
	l, err := ComputeLayout(srcs, 4, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)
	assert.True(t, l.HasTangents)
	assert.Equal(t, l.UnitVertices, l.UnitTangents)

	b, err := Build(srcs, l, mesh.Triangles)
	require.NoError(t, err)
	assert.Equal(t, 2*12, b.Main.VertexCount())
	assert.Len(t, b.Main.Tangents, b.Main.VertexCount())
}

func TestBuild_Idempotent(t *testing.T) {
	meshes := []*mesh.Mesh{mesh.Caltrop(1), mesh.Cube(1, 1, 1)}
	before := meshes[0].VertexCount()

	l, err := ComputeLayout(meshes, 5000, gpu.KindTexture, gpu.DefaultLimits())
	require.NoError(t, err)

	first, err := Build(meshes, l, mesh.Triangles)
	require.NoError(t, err)
	second, err := Build(meshes, l, mesh.Triangles)
	require.NoError(t, err)

	assert.Equal(t, first.Main.VertexCount(), second.Main.VertexCount())
	assert.Equal(t, first.Main.IndexCount(), second.Main.IndexCount())
	assert.Equal(t, first.Main.UV2, second.Main.UV2)
	assert.Equal(t, first.Fraction == nil, second.Fraction == nil)
	assert.Equal(t, before, meshes[0].VertexCount())
	assert.Empty(t, meshes[0].UV2)
}

func TestBuild_RejectsInvalidSource(t *testing.T) {
	bad := mesh.Quad(1)
	bad.Indices = append(bad.Indices, 99)

	l, err := ComputeLayout([]*mesh.Mesh{bad}, 10, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)

	_, err = Build([]*mesh.Mesh{bad}, l, mesh.Triangles)
	assert.ErrorIs(t, err, mesh.ErrInvalidMesh)

	_, err = Build([]*mesh.Mesh{mesh.Quad(1), mesh.Quad(1)}, l, mesh.Triangles)
	assert.ErrorIs(t, err, mesh.ErrInvalidMesh)
}

func TestLayout_Describe(t *testing.T) {
	l, err := ComputeLayout([]*mesh.Mesh{pointMesh(1000)}, 100, gpu.KindCompute, gpu.DefaultLimits())
	require.NoError(t, err)

	var lines []string
	l.Describe([]*mesh.Mesh{pointMesh(1000)}, func(format string, args ...any) {
		lines = append(lines, format)
	})
	assert.Len(t, lines, 3)
	assert.Contains(t, l.String(), "65 per batch")
}
