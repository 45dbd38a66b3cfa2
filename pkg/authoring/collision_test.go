package authoring

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/fracture"
	"github.com/Faultbox/shatter/pkg/hull"
	"github.com/Faultbox/shatter/pkg/math"
)

func boxSoup(b math.Bounds) []asset.Triangle {
	return fracture.BoxTriangles(b, func(fracture.Face) asset.ChunkRef { return asset.NoChunk() })
}

func newTestBuilder(t *testing.T, fallback bool, log *zap.Logger) *HullBuilder {
	t.Helper()
	c := hull.NewCooker(nil)
	t.Cleanup(func() { _ = c.Close() })
	return NewHullBuilder(c, 4, fallback, log)
}

func TestHullBuilderRoundTripsBounds(t *testing.T) {
	tests := []struct {
		name string
		b    math.Bounds
	}{
		{"unit", math.Bounds{Max: math.Vec3{X: 1, Y: 1, Z: 1}}},
		{"offset slab", math.Bounds{Min: math.Vec3{X: 10, Y: 20, Z: 30}, Max: math.Vec3{X: 14, Y: 22, Z: 30.5}}},
		{"tiny", math.Bounds{Min: math.Vec3{X: -1e-3, Y: -1e-3, Z: -1e-3}, Max: math.Vec3{X: 1e-3, Y: 2e-3, Z: 1e-3}}},
		{"large", math.Bounds{Min: math.Vec3{X: -500, Y: -500, Z: 0}, Max: math.Vec3{X: 500, Y: 500, Z: 250}}},
		{"far from origin", math.Bounds{Min: math.Vec3{X: 5000, Y: 5000, Z: 5000}, Max: math.Vec3{X: 5002, Y: 5002, Z: 5002}}},
		{"very far slab", math.Bounds{Min: math.Vec3{X: 20000, Y: -20000, Z: 20000}, Max: math.Vec3{X: 20001, Y: -19999, Z: 20000.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := newTestBuilder(t, true, nil).Build(boxSoup(tt.b))
			require.NoError(t, err)
			require.NoError(t, h.Validate(1e-3))

			got := h.Bounds()
			far := float64(tt.b.Min.Abs().Max(tt.b.Max.Abs()).MaxComponent())
			tol := float64(tt.b.Extent().MaxComponent())*1e-5 + far*1e-6
			for _, pair := range [][2]float32{
				{tt.b.Min.X, got.Min.X}, {tt.b.Min.Y, got.Min.Y}, {tt.b.Min.Z, got.Min.Z},
				{tt.b.Max.X, got.Max.X}, {tt.b.Max.Y, got.Max.Y}, {tt.b.Max.Z, got.Max.Z},
			} {
				assert.InDelta(t, pair[0], pair[1], tol)
			}

			// Planes hold the hull points in original space.
			for _, p := range h.Polygons {
				n := p.Normal()
				for _, v := range h.Points {
					assert.LessOrEqual(t, r3.Dot(n.R3(), v.R3())+float64(p.Plane[3]), tol)
				}
			}
		})
	}
}

func TestHullBuilderFallsBackToBounds(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := newTestBuilder(t, true, zap.New(core))

	// A single triangle never spans a volume, but this one's bounding box
	// does.
	tilted := []asset.Triangle{{V: [3]math.Vec3{{}, {X: 1, Y: 1}, {Y: 1, Z: 1}}}}
	h, err := b.Build(tilted)
	require.NoError(t, err)
	assert.Len(t, h.Points, 8)
	assert.Len(t, h.Polygons, 6)
	assert.Equal(t, 1, b.Fallbacks())
	assert.Equal(t, 1, logs.FilterMessage("hull built from bounding box").Len())

	// A flat soup gets a thin box around its plane.
	flat := boxSoup(math.Bounds{Max: math.Vec3{X: 1, Y: 1}})
	h, err = b.Build(flat)
	require.NoError(t, err)
	require.NoError(t, h.Validate(asset.HullTolerance))
	assert.Len(t, h.Points, 8)
	assert.Equal(t, 2, b.Fallbacks())
	got := h.Bounds()
	assert.InDelta(t, 1, got.Max.X, 1e-6)
	assert.InDelta(t, 1, got.Max.Y, 1e-6)
	assert.Greater(t, got.Max.Z, float32(0))
	assert.Less(t, got.Max.Z, float32(1e-2))
	assert.InDelta(t, -got.Max.Z, got.Min.Z, 1e-6)

	// Points on one diagonal have a full bounding box but no fallback.
	diagonal := []asset.Triangle{{V: [3]math.Vec3{{}, {X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}}}}
	_, err = b.Build(diagonal)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)
	assert.ErrorIs(t, err, hull.ErrDegenerate)
	assert.Equal(t, 2, b.Fallbacks())
}

func TestHullBuilderWithoutFallback(t *testing.T) {
	tilted := []asset.Triangle{{V: [3]math.Vec3{{}, {X: 1, Y: 1}, {Y: 1, Z: 1}}}}
	_, err := newTestBuilder(t, false, nil).Build(tilted)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)
}

func TestHullBuilderEmptyAndPoint(t *testing.T) {
	b := newTestBuilder(t, true, nil)
	_, err := b.Build(nil)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)

	point := []asset.Triangle{{V: [3]math.Vec3{{X: 1}, {X: 1}, {X: 1}}}}
	_, err = b.Build(point)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)
}

func TestHullBuilderBuildAll(t *testing.T) {
	chunks := []asset.Chunk{
		{Triangles: boxSoup(math.Bounds{Max: math.Vec3{X: 1, Y: 1, Z: 1}})},
		{Triangles: []asset.Triangle{{V: [3]math.Vec3{{}, {Z: 1}, {Z: 2}}}}},
		{Triangles: boxSoup(math.Bounds{Min: math.Vec3{X: 3}, Max: math.Vec3{X: 4, Y: 2, Z: 1}})},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	hulls, err := newTestBuilder(t, true, zap.New(core)).BuildAll(chunks)

	require.Len(t, hulls, 3)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)
	assert.ErrorContains(t, err, "chunk 1")
	assert.False(t, hulls[0].IsEmpty())
	assert.True(t, hulls[1].IsEmpty())
	assert.False(t, hulls[2].IsEmpty())
	assert.Equal(t, 1, logs.Len())
}

// countingBackend cooks with the built-in solver and reports itself as not
// reentrant, so the cooker serializes calls.
type countingBackend struct {
	calls int
}

func (b *countingBackend) BuildConvexHull(points []r3.Vec) (*hull.Hull, error) {
	b.calls++
	return hull.NewIncremental().BuildConvexHull(points)
}

func TestHullBuilderSharedNonReentrantBackend(t *testing.T) {
	backend := &countingBackend{}
	c := hull.NewCooker(backend)
	defer c.Close()

	chunks := make([]asset.Chunk, 32)
	for i := range chunks {
		off := float32(i)
		chunks[i].Triangles = boxSoup(math.Bounds{Min: math.Vec3{X: off}, Max: math.Vec3{X: off + 1, Y: 1, Z: 1}})
	}
	hulls, err := NewHullBuilder(c, 8, true, nil).BuildAll(chunks)
	require.NoError(t, err)
	assert.Len(t, hulls, 32)
	assert.Equal(t, 32, backend.calls)
}

// reversedBackend cooks with the built-in solver and then reverses every
// polygon's winding, producing hulls that fail validation.
type reversedBackend struct{}

func (reversedBackend) BuildConvexHull(points []r3.Vec) (*hull.Hull, error) {
	h, err := hull.NewIncremental().BuildConvexHull(points)
	if err != nil {
		return nil, err
	}
	for _, p := range h.Polygons {
		slices.Reverse(p.Indices)
	}
	return h, nil
}

func TestHullBuilderRejectsInvalidHull(t *testing.T) {
	c := hull.NewCooker(reversedBackend{})
	defer c.Close()

	chunks := []asset.Chunk{{Triangles: boxSoup(unitBox(1))}}
	hulls, err := NewHullBuilder(c, 1, true, nil).BuildAll(chunks)
	assert.ErrorIs(t, err, asset.ErrHullConstructionFailed)
	assert.ErrorContains(t, err, "winding")
	require.Len(t, hulls, 1)
	assert.True(t, hulls[0].IsEmpty())
}

func TestCollinear(t *testing.T) {
	tests := []struct {
		name string
		pts  []r3.Vec
		want bool
	}{
		{"empty", nil, true},
		{"point", []r3.Vec{{X: 1}, {X: 1}}, true},
		{"axis", []r3.Vec{{}, {X: 1}, {X: -1}}, true},
		{"diagonal", []r3.Vec{{}, {X: 1, Y: 1, Z: 1}, {X: -0.5, Y: -0.5, Z: -0.5}}, true},
		{"plane", []r3.Vec{{}, {X: 1}, {Y: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collinear(tt.pts))
		})
	}
}
