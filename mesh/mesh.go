package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Topology int

const (
	Triangles Topology = iota
	Quads
	Lines
	LineStrip
	Points
)

func (t Topology) String() string {
	switch t {
	case Triangles:
		return "triangles"
	case Quads:
		return "quads"
	case Lines:
		return "lines"
	case LineStrip:
		return "line_strip"
	case Points:
		return "points"
	}
	return "unknown"
}

var ErrInvalidMesh = errors.New("invalid mesh")

// Bounds is an axis-aligned box given by its center and full size.
type Bounds struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

func (b Bounds) Min() mgl32.Vec3 { return b.Center.Sub(b.Size.Mul(0.5)) }
func (b Bounds) Max() mgl32.Vec3 { return b.Center.Add(b.Size.Mul(0.5)) }

// Mesh is a renderable vertex/index set. Tangents and UV2 are optional and
// are either empty or one per vertex.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4
	UV        []mgl32.Vec2
	UV2       []mgl32.Vec2
	Indices   []uint32
	Topology  Topology
	Bounds    Bounds
}

func (m *Mesh) VertexCount() int { return len(m.Positions) }
func (m *Mesh) IndexCount() int  { return len(m.Indices) }

// HasTangents reports whether every vertex carries a tangent. A mesh with
// no vertices has them vacuously.
func (m *Mesh) HasTangents() bool {
	return len(m.Tangents) == len(m.Positions)
}

// Validate checks the per-vertex channels line up and every index is in range.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mesh", ErrInvalidMesh)
	}
	n := len(m.Positions)
	if len(m.Normals) != n {
		return fmt.Errorf("%w: %q has %d normals for %d vertices", ErrInvalidMesh, m.Name, len(m.Normals), n)
	}
	if len(m.UV) != n {
		return fmt.Errorf("%w: %q has %d uvs for %d vertices", ErrInvalidMesh, m.Name, len(m.UV), n)
	}
	if len(m.UV2) != 0 && len(m.UV2) != n {
		return fmt.Errorf("%w: %q has %d uv2s for %d vertices", ErrInvalidMesh, m.Name, len(m.UV2), n)
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: %q index %d references vertex %d of %d", ErrInvalidMesh, m.Name, i, idx, n)
		}
	}
	return nil
}

// ComputeBounds returns the tight box around the mesh positions.
func (m *Mesh) ComputeBounds() Bounds {
	if len(m.Positions) == 0 {
		return Bounds{}
	}
	lo, hi := m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}
	return Bounds{Center: lo.Add(hi).Mul(0.5), Size: hi.Sub(lo)}
}

func (t Topology) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Topology) UnmarshalText(b []byte) error {
	for _, c := range []Topology{Triangles, Quads, Lines, LineStrip, Points} {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown topology %q", b)
}
