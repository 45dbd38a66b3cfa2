package asset

import "github.com/Faultbox/shatter/pkg/math"

// Bond connects a support chunk to another support chunk or to the world.
// Normal points from From towards To (outward for world bonds).
type Bond struct {
	From uint32
	To   ChunkRef

	Area     float32
	Centroid math.Vec3
	Normal   math.Vec3
	Plane    [4]float32 // [n.x, n.y, n.z, -n·centroid]
}

// IsWorld reports whether the bond anchors From to the world.
func (b Bond) IsWorld() bool {
	return b.To.IsWorld()
}

// Key returns the unordered endpoint pair, smaller chunk first, used to
// detect duplicate bonds.
func (b Bond) Key() [2]ChunkRef {
	from := ChunkAt(b.From)
	if b.To.Less(from) {
		return [2]ChunkRef{b.To, from}
	}
	return [2]ChunkRef{from, b.To}
}

// PlaneFrom builds plane coefficients through centroid with the given unit normal.
func PlaneFrom(normal, centroid math.Vec3) [4]float32 {
	return [4]float32{normal.X, normal.Y, normal.Z, -normal.Dot(centroid)}
}
