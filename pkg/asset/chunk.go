package asset

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/math"
)

// Triangle is one face of a chunk's triangle soup, in chunk-local space.
// Neighbor tags what lies on the other side of the face: nothing (free
// surface), the world (fixed face) or another chunk (interior face).
type Triangle struct {
	V        [3]math.Vec3
	Neighbor ChunkRef
}

// R3 widens the triangle to float64.
func (t Triangle) R3() r3.Triangle {
	return r3.Triangle{t.V[0].R3(), t.V[1].R3(), t.V[2].R3()}
}

// Area returns the triangle area.
func (t Triangle) Area() float32 {
	return float32(t.R3().Area())
}

// Chunk is one fragment of the fractured object.
type Chunk struct {
	Index    uint32   // position in the chunk array
	SourceID uint32   // id assigned by the fracture step
	Parent   ChunkRef // NoChunk for the root
	Depth    uint32

	// Children occupy [FirstChild, FirstChild+ChildCount) once reordered.
	FirstChild uint32
	ChildCount uint32

	Triangles []Triangle
	Support   bool
	Static    bool

	Volume   float32
	Centroid math.Vec3
}

// IsRoot reports whether the chunk has no parent.
func (c *Chunk) IsRoot() bool {
	return c.Parent.IsNone()
}

// IsLeaf reports whether the chunk has no children.
func (c *Chunk) IsLeaf() bool {
	return c.ChildCount == 0
}

// Points returns every triangle vertex in order.
func (c *Chunk) Points() []math.Vec3 {
	pts := make([]math.Vec3, 0, len(c.Triangles)*3)
	for _, t := range c.Triangles {
		pts = append(pts, t.V[:]...)
	}
	return pts
}

// Bounds returns the bounding box of the chunk geometry.
func (c *Chunk) Bounds() math.Bounds {
	b := math.EmptyBounds()
	for _, t := range c.Triangles {
		for _, v := range t.V {
			b = b.Extend(v)
		}
	}
	return b
}

// Clone returns a deep copy.
func (c *Chunk) Clone() Chunk {
	out := *c
	out.Triangles = slices.Clone(c.Triangles)
	return out
}

// MassProperties returns the enclosed volume and its centroid, treating the
// triangle soup as a closed surface with outward winding. Open or degenerate
// soups fall back to the area-weighted surface centroid and zero volume.
func MassProperties(tris []Triangle) (float32, math.Vec3) {
	var vol float64
	var moment r3.Vec
	var area float64
	var surface r3.Vec
	for _, t := range tris {
		rt := t.R3()
		// Signed volume of the tetrahedron (origin, a, b, c).
		v := r3.Dot(rt[0], r3.Cross(rt[1], rt[2])) / 6
		vol += v
		moment = r3.Add(moment, r3.Scale(v/4, r3.Add(r3.Add(rt[0], rt[1]), rt[2])))

		a := rt.Area()
		area += a
		surface = r3.Add(surface, r3.Scale(a, rt.Centroid()))
	}
	if vol > 1e-12 {
		return float32(vol), math.FromR3(r3.Scale(1/vol, moment))
	}
	if area > 0 {
		return 0, math.FromR3(r3.Scale(1/area, surface))
	}
	return 0, math.Vec3{}
}
