package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is an indexed triangle mesh. Triangles wind counter-clockwise when
// seen from outside, so cross(B-A, C-A) points outward.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) }
func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

// Validate reports the first triangle that references a vertex out of range.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("mesh: triangle %d references vertex %d, have %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices:  make([]mgl64.Vec3, len(m.Vertices)),
		Triangles: make([][3]int, len(m.Triangles)),
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Triangles, m.Triangles)
	return c
}

// Translate shifts every vertex by offset and returns m for chaining.
func (m *Mesh) Translate(offset mgl64.Vec3) *Mesh {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(offset)
	}
	return m
}

// SignedVolume sums the signed volumes of the tetrahedra formed by each
// triangle and the origin. pos(i) supplies the position of vertex i.
func SignedVolume(tris [][3]int, pos func(i int) mgl64.Vec3) float64 {
	vol := 0.0
	for _, t := range tris {
		a, b, c := pos(t[0]), pos(t[1]), pos(t[2])
		vol += a.Dot(b.Cross(c)) / 6
	}
	return vol
}

// Volume is the absolute enclosed volume of the mesh at its own vertex positions.
func (m *Mesh) Volume() float64 {
	v := SignedVolume(m.Triangles, func(i int) mgl64.Vec3 { return m.Vertices[i] })
	if v < 0 {
		return -v
	}
	return v
}

// EdgeKey packs an undirected vertex pair into one map key, smaller index high.
func EdgeKey(a, b int) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}
