package hull

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func cubeCorners(size float64) []r3.Vec {
	return r3.Box{Min: r3.Vec{}, Max: r3.Vec{X: size, Y: size, Z: size}}.Vertices()
}

// checkConvex asserts every vertex lies on or behind every polygon plane and
// that each polygon's vertices lie on its own plane.
func checkConvex(t *testing.T, h *Hull) {
	t.Helper()
	for pi, p := range h.Polygons {
		n := r3.Vec{X: p.Plane[0], Y: p.Plane[1], Z: p.Plane[2]}
		for vi, v := range h.Vertices {
			assert.LessOrEqualf(t, r3.Dot(n, v)+p.Plane[3], 1e-6, "vertex %d in front of polygon %d", vi, pi)
		}
		for _, i := range p.Indices {
			assert.InDeltaf(t, 0, r3.Dot(n, h.Vertices[i])+p.Plane[3], 1e-6, "polygon %d vertex %d off plane", pi, i)
		}
	}
}

func TestIncrementalCube(t *testing.T) {
	h, err := NewIncremental().BuildConvexHull(cubeCorners(1))
	require.NoError(t, err)

	assert.Len(t, h.Vertices, 8)
	require.Len(t, h.Polygons, 6)
	for _, p := range h.Polygons {
		assert.Len(t, p.Indices, 4)
		n := r3.Vec{X: p.Plane[0], Y: p.Plane[1], Z: p.Plane[2]}
		assert.InDelta(t, 1, r3.Norm(n), 1e-12)
	}
	checkConvex(t, h)
}

func TestIncrementalTetrahedron(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	h, err := NewIncremental().BuildConvexHull(pts)
	require.NoError(t, err)

	assert.Len(t, h.Vertices, 4)
	assert.Len(t, h.Polygons, 4)
	checkConvex(t, h)
}

func TestIncrementalDropsInteriorPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts := cubeCorners(2)
	for i := 0; i < 500; i++ {
		pts = append(pts, r3.Vec{X: rng.Float64() * 2, Y: rng.Float64() * 2, Z: rng.Float64() * 2})
	}
	// Points on faces and edges must not survive as polygon vertices.
	pts = append(pts, r3.Vec{X: 1, Y: 1, Z: 0}, r3.Vec{X: 1, Y: 0, Z: 0}, r3.Vec{X: 2, Y: 1, Z: 1})

	h, err := NewIncremental().BuildConvexHull(pts)
	require.NoError(t, err)
	assert.Len(t, h.Vertices, 8)
	assert.Len(t, h.Polygons, 6)
	checkConvex(t, h)
}

func TestIncrementalRandomCloud(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var pts []r3.Vec
	for i := 0; i < 300; i++ {
		p := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		pts = append(pts, r3.Unit(p))
	}

	h, err := NewIncremental().BuildConvexHull(pts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(h.Vertices), 4)
	checkConvex(t, h)

	// Every input point is inside the hull.
	for _, p := range pts {
		for _, poly := range h.Polygons {
			n := r3.Vec{X: poly.Plane[0], Y: poly.Plane[1], Z: poly.Plane[2]}
			require.LessOrEqual(t, r3.Dot(n, p)+poly.Plane[3], 1e-5)
		}
	}
}

func TestIncrementalDegenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []r3.Vec
	}{
		{"empty", nil},
		{"too few", []r3.Vec{{}, {X: 1}, {Y: 1}}},
		{"coincident", []r3.Vec{{X: 1}, {X: 1}, {X: 1}, {X: 1}, {X: 1}}},
		{"collinear", []r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}, {X: 0.5}}},
		{"coplanar", []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 0.5, Y: 0.2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIncremental().BuildConvexHull(tt.pts)
			assert.ErrorIs(t, err, ErrDegenerate)
		})
	}
}

func TestConvexRingOrder(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 0.5}}
	ring := convexRing(pts, []int{2, 0, 4, 3, 1}, r3.Vec{Z: 1}, 1e-9)

	require.Len(t, ring, 4)
	assert.NotContains(t, ring, 4, "collinear midpoint must be dropped")

	// Counter-clockwise seen from +Z means a positive signed area.
	var area float64
	for i := range ring {
		a, b := pts[ring[i]], pts[ring[(i+1)%len(ring)]]
		area += a.X*b.Y - b.X*a.Y
	}
	assert.Greater(t, area, 0.0)
}

// lockedBackend records the peak number of concurrent calls.
type lockedBackend struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (b *lockedBackend) BuildConvexHull(points []r3.Vec) (*Hull, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return NewIncremental().BuildConvexHull(points)
}

func TestCookerSerializesNonReentrantBackend(t *testing.T) {
	backend := &lockedBackend{}
	c := NewCooker(backend)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Cook(cubeCorners(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.peak.Load())
	assert.Equal(t, 16, c.Cooked())
}

func TestCookerClose(t *testing.T) {
	c := NewCooker(nil)
	_, err := c.Cook(cubeCorners(1))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	_, err = c.Cook(cubeCorners(1))
	assert.True(t, errors.Is(err, ErrCookerClosed))
	assert.ErrorIs(t, c.Close(), ErrCookerClosed)
}
