package collision

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Triangle caches the outward unit normal and area of a mesh face.
type Triangle struct {
	A, B, C mgl64.Vec3
	Normal  mgl64.Vec3
	Area    float64
}

// NewTriangle returns false for degenerate faces, which can never be hit.
func NewTriangle(a, b, c mgl64.Vec3) (Triangle, bool) {
	cross := b.Sub(a).Cross(c.Sub(a))
	l := cross.Len()
	if l == 0 {
		return Triangle{}, false
	}
	return Triangle{
		A:      a,
		B:      b,
		C:      c,
		Normal: cross.Mul(1 / l),
		Area:   l / 2,
	}, true
}

// Triangles builds the face cache for a set of index triples.
func Triangles(tris [][3]int, pos func(i int) mgl64.Vec3) []Triangle {
	out := make([]Triangle, 0, len(tris))
	for _, t := range tris {
		if tri, ok := NewTriangle(pos(t[0]), pos(t[1]), pos(t[2])); ok {
			out = append(out, tri)
		}
	}
	return out
}

func triArea(a, b, c mgl64.Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Len() / 2
}
