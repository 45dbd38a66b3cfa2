package authoring

import (
	"errors"
	"fmt"
	stdmath "math"
	"runtime"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/hull"
	"github.com/Faultbox/shatter/pkg/math"
)

// errNoExtent is returned for soups whose bounding box is a single point.
var errNoExtent = errors.New("geometry has no extent")

// HullBuilder builds chunk collision hulls through a shared Cooker.
type HullBuilder struct {
	cooker   *hull.Cooker
	workers  int
	fallback bool
	log      *zap.Logger

	fallbacks atomic.Int64
}

// NewHullBuilder returns a builder cooking with c on up to workers
// goroutines (GOMAXPROCS when workers <= 0). With fallback set, soups the
// backend rejects get the hull of their bounding box instead.
func NewHullBuilder(c *hull.Cooker, workers int, fallback bool, log *zap.Logger) *HullBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &HullBuilder{cooker: c, workers: workers, fallback: fallback, log: log}
}

// Fallbacks returns how many hulls were built from the bounding box so far.
func (b *HullBuilder) Fallbacks() int {
	return int(b.fallbacks.Load())
}

// Build returns the convex hull of a triangle soup in the soup's own space.
//
// The points are centered on their bounding box and scaled by its largest
// half-size before cooking, and the result is mapped back. When the backend
// fails and the soup spans at least a plane, the 8 bounding box corners are
// cooked instead, with flat axes padded by fallbackPad. The result must pass
// CollisionHull.Validate. Every failure wraps asset.ErrHullConstructionFailed.
func (b *HullBuilder) Build(tris []asset.Triangle) (asset.CollisionHull, error) {
	pts := make([]math.Vec3, 0, len(tris)*3)
	for _, t := range tris {
		pts = append(pts, t.V[:]...)
	}
	bounds := math.BoundsOf(pts)
	if len(pts) == 0 {
		return asset.CollisionHull{}, fmt.Errorf("%w: %w", asset.ErrHullConstructionFailed, hull.ErrDegenerate)
	}

	center := bounds.Center().R3()
	scale := float64(bounds.Extent().Abs().MaxComponent())
	if scale == 0 || stdmath.IsNaN(scale) || stdmath.IsInf(scale, 0) {
		return asset.CollisionHull{}, fmt.Errorf("%w: %w", asset.ErrHullConstructionFailed, errNoExtent)
	}

	normalized := make([]r3.Vec, len(pts))
	for i, p := range pts {
		normalized[i] = r3.Scale(1/scale, r3.Sub(p.R3(), center))
	}

	h, err := b.cooker.Cook(normalized)
	if err != nil && b.fallback && !errors.Is(err, hull.ErrCookerClosed) && !collinear(normalized) {
		box := r3.Box{
			Min: r3.Scale(1/scale, r3.Sub(bounds.Min.R3(), center)),
			Max: r3.Scale(1/scale, r3.Sub(bounds.Max.R3(), center)),
		}
		var ferr error
		h, ferr = b.cooker.Cook(padFlat(box).Vertices())
		if ferr != nil {
			return asset.CollisionHull{}, fmt.Errorf("%w: %w (bounding box fallback: %w)", asset.ErrHullConstructionFailed, err, ferr)
		}
		b.fallbacks.Add(1)
		b.log.Debug("hull built from bounding box", zap.Error(err))
		err = nil
	}
	if err != nil {
		return asset.CollisionHull{}, fmt.Errorf("%w: %w", asset.ErrHullConstructionFailed, err)
	}

	out := denormalize(h, center, scale)
	if err := out.Validate(asset.HullTolerance); err != nil {
		return asset.CollisionHull{}, fmt.Errorf("%w: %w", asset.ErrHullConstructionFailed, err)
	}
	return out, nil
}

// fallbackPad is the half-thickness, in normalized space, given to flat
// bounding box axes before the corners are cooked.
const fallbackPad = 1e-3

// collinearEps is the normalized distance below which points count as lying
// on one line.
const collinearEps = 1e-6

// padFlat widens every axis of b thinner than 2*fallbackPad.
func padFlat(b r3.Box) r3.Box {
	pad := func(lo, hi *float64) {
		if *hi-*lo < 2*fallbackPad {
			mid := (*lo + *hi) / 2
			*lo, *hi = mid-fallbackPad, mid+fallbackPad
		}
	}
	pad(&b.Min.X, &b.Max.X)
	pad(&b.Min.Y, &b.Max.Y)
	pad(&b.Min.Z, &b.Max.Z)
	return b
}

// collinear reports whether pts lie on one line (or one point). Such soups
// get no bounding box fallback.
func collinear(pts []r3.Vec) bool {
	if len(pts) == 0 {
		return true
	}
	origin := pts[0]
	var far r3.Vec
	var best float64
	for _, p := range pts[1:] {
		if d := r3.Norm2(r3.Sub(p, origin)); d > best {
			far, best = r3.Sub(p, origin), d
		}
	}
	if best <= collinearEps*collinearEps {
		return true
	}
	dir := r3.Unit(far)
	for _, p := range pts[1:] {
		if r3.Norm(r3.Cross(dir, r3.Sub(p, origin))) > collinearEps {
			return false
		}
	}
	return true
}

// denormalize maps a hull cooked in normalized space back to x = x'*scale +
// center, with unit plane normals.
func denormalize(h *hull.Hull, center r3.Vec, scale float64) asset.CollisionHull {
	out := asset.CollisionHull{Points: make([]math.Vec3, len(h.Vertices))}
	for i, v := range h.Vertices {
		out.Points[i] = math.FromR3(r3.Add(r3.Scale(scale, v), center))
	}
	for _, p := range h.Polygons {
		n := r3.Vec{X: p.Plane[0], Y: p.Plane[1], Z: p.Plane[2]}
		l := r3.Norm(n)
		if l == 0 {
			continue
		}
		n = r3.Scale(1/l, n)
		d := scale*(p.Plane[3]/l) - r3.Dot(n, center)

		out.Polygons = append(out.Polygons, asset.HullPolygon{
			IndexBase:   uint32(len(out.Indices)),
			VertexCount: uint32(len(p.Indices)),
			Plane:       [4]float32{float32(n.X), float32(n.Y), float32(n.Z), float32(d)},
		})
		for _, i := range p.Indices {
			out.Indices = append(out.Indices, uint32(i))
		}
	}
	return out
}

// BuildAll builds one hull per chunk on the worker pool. A chunk whose hull
// cannot be built gets an empty hull; the failures are returned combined
// and never stop the other chunks.
func (b *HullBuilder) BuildAll(chunks []asset.Chunk) ([]asset.CollisionHull, error) {
	hulls := make([]asset.CollisionHull, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range chunks {
		g.Go(func() error {
			h, err := b.Build(chunks[i].Triangles)
			if err != nil {
				errs[i] = fmt.Errorf("chunk %d: %w", i, err)
				b.log.Warn("collision hull construction failed, using an empty hull",
					zap.Int("chunk", i),
					zap.Uint32("source_id", chunks[i].SourceID),
					zap.Error(err))
				return nil
			}
			hulls[i] = h
			return nil
		})
	}
	// Workers record failures in errs and always return nil.
	g.Wait()

	return hulls, multierr.Combine(errs...)
}
