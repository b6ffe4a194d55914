package mesh

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitives_Valid(t *testing.T) {
	for _, m := range []*Mesh{Caltrop(1), Cube(1, 2, 3), Quad(1)} {
		require.NoError(t, m.Validate(), m.Name)
		assert.Equal(t, Triangles, m.Topology)
		assert.Zero(t, m.IndexCount()%3, "%s index count must be a triangle list", m.Name)
	}
}

func TestCaltrop_Counts(t *testing.T) {
	m := Caltrop(1)
	assert.Equal(t, 12, m.VertexCount())
	assert.Equal(t, 12, m.IndexCount())
	assert.True(t, m.HasTangents())

	// normals point away from the center
	for i := 0; i < m.VertexCount(); i++ {
		assert.Greater(t, m.Normals[i].Dot(m.Positions[i]), float32(0))
	}
}

func TestCube_Bounds(t *testing.T) {
	m := Cube(2, 4, 6)
	assert.Equal(t, 24, m.VertexCount())
	assert.Equal(t, 36, m.IndexCount())
	assert.True(t, m.Bounds.Size.ApproxEqual(mgl32.Vec3{2, 4, 6}))
	assert.True(t, m.Bounds.Center.ApproxEqual(mgl32.Vec3{}))
	assert.True(t, m.Bounds.Min().ApproxEqual(mgl32.Vec3{-1, -2, -3}))
}

func TestQuad_NoTangents(t *testing.T) {
	assert.False(t, Quad(1).HasTangents())
}

func TestHasTangents_EmptyMesh(t *testing.T) {
	assert.True(t, (&Mesh{Name: "empty"}).HasTangents())
}

func TestValidate_Errors(t *testing.T) {
	m := Quad(1)
	m.Indices = append(m.Indices, 4)
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMesh))

	m = Quad(1)
	m.Normals = m.Normals[:2]
	assert.ErrorIs(t, m.Validate(), ErrInvalidMesh)

	var nilMesh *Mesh
	assert.ErrorIs(t, nilMesh.Validate(), ErrInvalidMesh)
}
