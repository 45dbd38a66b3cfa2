package hull

import (
	stdmath "math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEpsilon is the distance below which points count as lying on a
// plane. Callers normalize their input to about a unit cube first.
const DefaultEpsilon = 1e-6

// Incremental is a quickhull solver: it grows an initial tetrahedron by
// repeatedly adding the farthest outside point of some face and replacing the
// faces that point can see.
type Incremental struct {
	Epsilon float64
}

// NewIncremental returns a solver using DefaultEpsilon.
func NewIncremental() *Incremental {
	return &Incremental{Epsilon: DefaultEpsilon}
}

// Reentrant reports that the solver keeps no state between calls.
func (b *Incremental) Reentrant() bool { return true }

type face struct {
	v       [3]int
	n       r3.Vec
	d       float64
	outside []int
	dead    bool
}

func (f *face) dist(p r3.Vec) float64 {
	return r3.Dot(f.n, p) + f.d
}

func makeFace(pts []r3.Vec, a, b, c int) *face {
	n := r3.Cross(r3.Sub(pts[b], pts[a]), r3.Sub(pts[c], pts[a]))
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	return &face{v: [3]int{a, b, c}, n: n, d: -r3.Dot(n, pts[a])}
}

// BuildConvexHull returns the hull of points with coplanar triangles merged
// into convex polygons. It fails with ErrDegenerate when the points are
// coincident, collinear or coplanar within Epsilon.
func (b *Incremental) BuildConvexHull(points []r3.Vec) (*Hull, error) {
	eps := b.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	pts := weld(points, eps)
	if len(pts) < 4 {
		return nil, ErrDegenerate
	}

	simplex, ok := initialSimplex(pts, eps)
	if !ok {
		return nil, ErrDegenerate
	}

	faces := make([]*face, 0, 16)
	for _, tri := range [4][4]int{{0, 1, 2, 3}, {0, 3, 1, 2}, {0, 2, 3, 1}, {1, 3, 2, 0}} {
		a, bb, c, opp := simplex[tri[0]], simplex[tri[1]], simplex[tri[2]], simplex[tri[3]]
		f := makeFace(pts, a, bb, c)
		if f.dist(pts[opp]) > 0 {
			f = makeFace(pts, a, c, bb)
		}
		faces = append(faces, f)
	}

	inSimplex := map[int]bool{simplex[0]: true, simplex[1]: true, simplex[2]: true, simplex[3]: true}
	var rest []int
	for i := range pts {
		if !inSimplex[i] {
			rest = append(rest, i)
		}
	}
	assign(pts, faces, rest, eps)

	for {
		var current *face
		for _, f := range faces {
			if !f.dead && len(f.outside) > 0 {
				current = f
				break
			}
		}
		if current == nil {
			break
		}

		eye := current.outside[0]
		best := current.dist(pts[eye])
		for _, i := range current.outside[1:] {
			if d := current.dist(pts[i]); d > best {
				eye, best = i, d
			}
		}

		// Every face the eye point sees is replaced by a fan from the
		// horizon to the eye.
		edges := make(map[[2]int]bool)
		var orphans []int
		for _, f := range faces {
			if f.dead || f.dist(pts[eye]) <= eps {
				continue
			}
			f.dead = true
			for k := 0; k < 3; k++ {
				edges[[2]int{f.v[k], f.v[(k+1)%3]}] = true
			}
			for _, i := range f.outside {
				if i != eye {
					orphans = append(orphans, i)
				}
			}
			f.outside = nil
		}

		var created []*face
		for e := range edges {
			if edges[[2]int{e[1], e[0]}] {
				continue
			}
			created = append(created, makeFace(pts, e[0], e[1], eye))
		}
		assign(pts, created, orphans, eps)

		alive := faces[:0]
		for _, f := range faces {
			if !f.dead {
				alive = append(alive, f)
			}
		}
		faces = append(alive, created...)
	}

	return mergeFaces(pts, faces, eps), nil
}

// assign moves each point to the outside set of the face it lies farthest
// above; points above no face are inside and dropped.
func assign(pts []r3.Vec, faces []*face, points []int, eps float64) {
	for _, i := range points {
		var best *face
		bestDist := eps
		for _, f := range faces {
			if f.dead {
				continue
			}
			if d := f.dist(pts[i]); d > bestDist {
				best, bestDist = f, d
			}
		}
		if best != nil {
			best.outside = append(best.outside, i)
		}
	}
}

// initialSimplex picks four points spanning a tetrahedron of non-trivial
// volume.
func initialSimplex(pts []r3.Vec, eps float64) ([4]int, bool) {
	var extremes [6]int
	for i, p := range pts {
		q := pts[extremes[0]]
		if p.X < q.X {
			extremes[0] = i
		}
		if p.X > pts[extremes[1]].X {
			extremes[1] = i
		}
		if p.Y < pts[extremes[2]].Y {
			extremes[2] = i
		}
		if p.Y > pts[extremes[3]].Y {
			extremes[3] = i
		}
		if p.Z < pts[extremes[4]].Z {
			extremes[4] = i
		}
		if p.Z > pts[extremes[5]].Z {
			extremes[5] = i
		}
	}

	a, b := 0, 0
	var far float64
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			if d := r3.Norm2(r3.Sub(pts[extremes[i]], pts[extremes[j]])); d > far {
				a, b, far = extremes[i], extremes[j], d
			}
		}
	}
	if stdmath.Sqrt(far) <= eps {
		return [4]int{}, false
	}

	dir := r3.Unit(r3.Sub(pts[b], pts[a]))
	c := -1
	far = eps
	for i, p := range pts {
		if d := r3.Norm(r3.Cross(r3.Sub(p, pts[a]), dir)); d > far {
			c, far = i, d
		}
	}
	if c < 0 {
		return [4]int{}, false
	}

	plane := makeFace(pts, a, b, c)
	d := -1
	far = eps
	for i, p := range pts {
		if dist := stdmath.Abs(plane.dist(p)); dist > far {
			d, far = i, dist
		}
	}
	if d < 0 {
		return [4]int{}, false
	}
	return [4]int{a, b, c, d}, true
}

// weld drops points closer than eps to an already kept point in the same
// grid cell.
func weld(points []r3.Vec, eps float64) []r3.Vec {
	cell := eps * 4
	seen := make(map[[3]int64]bool, len(points))
	out := make([]r3.Vec, 0, len(points))
	for _, p := range points {
		if stdmath.IsNaN(p.X) || stdmath.IsNaN(p.Y) || stdmath.IsNaN(p.Z) {
			continue
		}
		key := [3]int64{
			int64(stdmath.Round(p.X / cell)),
			int64(stdmath.Round(p.Y / cell)),
			int64(stdmath.Round(p.Z / cell)),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
