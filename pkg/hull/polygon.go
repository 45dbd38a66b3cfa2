package hull

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// coplanarCos is the normal agreement above which two hull triangles are
// treated as one face.
const coplanarCos = 1 - 1e-9

// mergeFaces groups the hull triangles by plane and turns each group into a
// single convex polygon. Vertices no polygon uses (points in the middle of
// an edge or a face) are dropped and indices are compacted.
func mergeFaces(pts []r3.Vec, faces []*face, eps float64) *Hull {
	type group struct {
		n     r3.Vec
		d     float64
		verts []int
	}
	var groups []*group

	for _, f := range faces {
		if f.dead || r3.Norm2(f.n) == 0 {
			continue
		}
		var g *group
		for _, cand := range groups {
			if r3.Dot(cand.n, f.n) > coplanarCos && abs(cand.d-f.d) <= eps {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{n: f.n, d: f.d}
			groups = append(groups, g)
		}
		for _, v := range f.v {
			if !slices.Contains(g.verts, v) {
				g.verts = append(g.verts, v)
			}
		}
	}

	remap := make(map[int]int)
	h := &Hull{}
	for _, g := range groups {
		ring := convexRing(pts, g.verts, g.n, eps)
		if len(ring) < 3 {
			continue
		}
		poly := Polygon{Indices: make([]int, len(ring))}
		var centroid r3.Vec
		for k, v := range ring {
			idx, ok := remap[v]
			if !ok {
				idx = len(h.Vertices)
				remap[v] = idx
				h.Vertices = append(h.Vertices, pts[v])
			}
			poly.Indices[k] = idx
			centroid = r3.Add(centroid, pts[v])
		}
		centroid = r3.Scale(1/float64(len(ring)), centroid)
		poly.Plane = [4]float64{g.n.X, g.n.Y, g.n.Z, -r3.Dot(g.n, centroid)}
		h.Polygons = append(h.Polygons, poly)
	}
	return h
}

// convexRing returns the vertices of a planar point set's convex outline,
// counter-clockwise around normal n, without collinear points.
func convexRing(pts []r3.Vec, verts []int, n r3.Vec, eps float64) []int {
	// In-plane basis with u × w = n.
	ref := r3.Vec{X: 1}
	if abs(n.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	u := r3.Unit(r3.Cross(ref, n))
	w := r3.Cross(n, u)

	type pt2 struct {
		x, y float64
		id   int
	}
	ps := make([]pt2, len(verts))
	for i, v := range verts {
		ps[i] = pt2{x: r3.Dot(pts[v], u), y: r3.Dot(pts[v], w), id: v}
	}
	slices.SortFunc(ps, func(a, b pt2) int {
		switch {
		case a.x < b.x:
			return -1
		case a.x > b.x:
			return 1
		case a.y < b.y:
			return -1
		case a.y > b.y:
			return 1
		}
		return 0
	})

	cross := func(o, a, b pt2) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	tol := eps * eps

	// Andrew's monotone chain.
	ring := make([]pt2, 0, 2*len(ps))
	for _, p := range ps {
		for len(ring) >= 2 && cross(ring[len(ring)-2], ring[len(ring)-1], p) <= tol {
			ring = ring[:len(ring)-1]
		}
		ring = append(ring, p)
	}
	lower := len(ring) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(ring) >= lower && cross(ring[len(ring)-2], ring[len(ring)-1], p) <= tol {
			ring = ring[:len(ring)-1]
		}
		ring = append(ring, p)
	}
	ring = ring[:len(ring)-1]

	out := make([]int, len(ring))
	for i, p := range ring {
		out[i] = p.id
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
