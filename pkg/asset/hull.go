package asset

import (
	"fmt"
	stdmath "math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/math"
)

// HullPolygon is one face of a collision hull. Its vertices are
// Indices[IndexBase : IndexBase+VertexCount], wound counter-clockwise when
// seen from outside, and Plane holds [a, b, c, d] with |(a,b,c)| = 1.
type HullPolygon struct {
	IndexBase   uint32
	VertexCount uint32
	Plane       [4]float32
}

// Normal returns the polygon's outward unit normal.
func (p HullPolygon) Normal() math.Vec3 {
	return math.Vec3{X: p.Plane[0], Y: p.Plane[1], Z: p.Plane[2]}
}

// CollisionHull is the convex collision proxy of one chunk, in chunk-local
// space. An empty hull marks a chunk whose hull could not be built.
type CollisionHull struct {
	Points   []math.Vec3
	Indices  []uint32
	Polygons []HullPolygon
}

// IsEmpty reports whether the hull has no geometry.
func (h *CollisionHull) IsEmpty() bool {
	return len(h.Points) == 0
}

// Bounds returns the bounding box of the hull points.
func (h *CollisionHull) Bounds() math.Bounds {
	return math.BoundsOf(h.Points)
}

// Clone returns a deep copy.
func (h *CollisionHull) Clone() CollisionHull {
	return CollisionHull{
		Points:   slices.Clone(h.Points),
		Indices:  slices.Clone(h.Indices),
		Polygons: slices.Clone(h.Polygons),
	}
}

// Validate checks that a non-empty hull has at least 4 points, in-range
// indices, unit plane normals, vertices lying on their polygon's plane and
// a winding that agrees with the plane normal. tol is relative to the hull
// size.
//
// The checks run in float64 on vertices taken relative to each polygon's
// first vertex, so hulls far from the origin validate like hulls at it.
func (h *CollisionHull) Validate(tol float32) error {
	if h.IsEmpty() {
		if len(h.Indices) != 0 || len(h.Polygons) != 0 {
			return fmt.Errorf("hull without points has %d indices and %d polygons", len(h.Indices), len(h.Polygons))
		}
		return nil
	}
	if len(h.Points) < 4 {
		return fmt.Errorf("hull has %d points, want at least 4", len(h.Points))
	}

	size := float64(h.Bounds().Extent().MaxComponent())
	if size == 0 {
		size = 1
	}
	limit := float64(tol) * size

	for pi, p := range h.Polygons {
		end := uint64(p.IndexBase) + uint64(p.VertexCount)
		if p.VertexCount < 3 || end > uint64(len(h.Indices)) {
			return fmt.Errorf("polygon %d: index range [%d,%d) invalid", pi, p.IndexBase, end)
		}
		n := p.Normal().R3()
		if l := r3.Norm(n); stdmath.Abs(l-1) > 1e-4 {
			return fmt.Errorf("polygon %d: plane normal length %v", pi, l)
		}

		idx := h.Indices[p.IndexBase:end]
		for _, i := range idx {
			if int(i) >= len(h.Points) {
				return fmt.Errorf("polygon %d: index %d out of range", pi, i)
			}
		}

		// The stored plane offset carries float32 rounding of its own
		// magnitude.
		origin := h.Points[idx[0]].R3()
		d := float64(p.Plane[3])
		along := r3.Dot(n, origin)
		if off := along + d; stdmath.Abs(off) > limit+4*float32Eps*(stdmath.Abs(along)+stdmath.Abs(d)) {
			return fmt.Errorf("polygon %d: vertex %d is %v off its plane", pi, idx[0], off)
		}

		var newell r3.Vec
		for k, i := range idx {
			v := r3.Sub(h.Points[i].R3(), origin)
			if off := r3.Dot(n, v); stdmath.Abs(off) > limit {
				return fmt.Errorf("polygon %d: vertex %d is %v off its plane", pi, i, off)
			}
			w := r3.Sub(h.Points[idx[(k+1)%len(idx)]].R3(), origin)
			newell = r3.Add(newell, r3.Cross(v, w))
		}
		if r3.Dot(newell, n) <= 0 {
			return fmt.Errorf("polygon %d: winding disagrees with plane normal", pi)
		}
	}
	return nil
}

// float32Eps is the float32 machine epsilon.
const float32Eps = 1.0 / (1 << 23)
