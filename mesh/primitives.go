package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Caltrop builds a flat-shaded tetrahedron with the given edge-to-center radius.
func Caltrop(radius float32) *Mesh {
	s := radius / float32(math.Sqrt(3))
	corners := [4]mgl32.Vec3{
		{s, s, s},
		{-s, -s, s},
		{-s, s, -s},
		{s, -s, -s},
	}
	faces := [4][3]int{
		{0, 1, 3},
		{0, 2, 1},
		{0, 3, 2},
		{1, 2, 3},
	}

	m := &Mesh{Name: "caltrop", Topology: Triangles}
	for _, f := range faces {
		a, b, c := corners[f[0]], corners[f[1]], corners[f[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		// keep winding outward
		if n.Dot(a.Add(b).Add(c)) < 0 {
			b, c = c, b
			n = n.Mul(-1)
		}
		t := b.Sub(a).Normalize()
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions, a, b, c)
		m.Normals = append(m.Normals, n, n, n)
		m.Tangents = append(m.Tangents, t.Vec4(1), t.Vec4(1), t.Vec4(1))
		m.UV = append(m.UV, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0.5, 1})
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	m.Bounds = m.ComputeBounds()
	return m
}

// Cube builds an axis-aligned box with 4 vertices per face.
func Cube(sizeX, sizeY, sizeZ float32) *Mesh {
	h := mgl32.Vec3{sizeX / 2, sizeY / 2, sizeZ / 2}
	type face struct {
		n, u, v mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	m := &Mesh{Name: "cube", Topology: Triangles}
	scale := func(v mgl32.Vec3) mgl32.Vec3 {
		return mgl32.Vec3{v[0] * h[0], v[1] * h[1], v[2] * h[2]}
	}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
			m.Positions = append(m.Positions, scale(p))
			m.Normals = append(m.Normals, f.n)
			m.Tangents = append(m.Tangents, f.u.Vec4(1))
			m.UV = append(m.UV, mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	m.Bounds = m.ComputeBounds()
	return m
}

// Quad builds a camera-facing unit quad in the XY plane without tangents.
func Quad(size float32) *Mesh {
	h := size / 2
	m := &Mesh{
		Name: "quad",
		Positions: []mgl32.Vec3{
			{-h, -h, 0}, {h, -h, 0}, {h, h, 0}, {-h, h, 0},
		},
		Normals: []mgl32.Vec3{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		UV: []mgl32.Vec2{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Topology: Triangles,
	}
	m.Bounds = m.ComputeBounds()
	return m
}
