package fracture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/math"
)

func cube(size float32) math.Bounds {
	return math.Bounds{Max: math.Vec3{X: size, Y: size, Z: size}}
}

func TestSliceBoxLayout(t *testing.T) {
	chunks, err := SliceBox(SliceOptions{
		Bounds: cube(2),
		Cuts:   [3]int{1, 1, 1},
		Fixed:  []Face{FaceNegZ},
		RootID: 10,
	})
	require.NoError(t, err)
	require.Len(t, chunks, 9)

	root := chunks[0]
	assert.Equal(t, uint32(10), root.ID)
	assert.True(t, root.Parent.IsNone())
	assert.Len(t, root.Triangles, 12)

	for i, c := range chunks[1:] {
		assert.Equal(t, uint32(11+i), c.ID)
		assert.Equal(t, asset.ChunkAt(10), c.Parent)
		assert.Len(t, c.Triangles, 12)

		vol, _ := asset.MassProperties(c.Triangles)
		assert.InDelta(t, 1, vol, 1e-5, "leaf %d volume", c.ID)
	}

	// Leaf 11 sits in the min corner: -X, -Y free, -Z fixed, and its three
	// positive faces touch leaves 12, 13 and 15.
	want := map[asset.ChunkRef]int{
		asset.NoChunk():   4,
		asset.World():     2,
		asset.ChunkAt(12): 2,
		asset.ChunkAt(13): 2,
		asset.ChunkAt(15): 2,
	}
	got := make(map[asset.ChunkRef]int)
	for _, tri := range chunks[1].Triangles {
		got[tri.Neighbor]++
	}
	assert.Equal(t, want, got)
}

func TestBoxTrianglesWindOutward(t *testing.T) {
	b := math.Bounds{Min: math.Vec3{X: -1, Y: 2, Z: 0}, Max: math.Vec3{X: 3, Y: 3, Z: 0.5}}
	center := b.Center().R3()
	tris := BoxTriangles(b, func(Face) asset.ChunkRef { return asset.NoChunk() })
	require.Len(t, tris, 12)
	for i, tri := range tris {
		rt := tri.R3()
		out := r3.Sub(rt.Centroid(), center)
		assert.Greater(t, r3.Dot(rt.Normal(), out), 0.0, "triangle %d faces inward", i)
	}
}

// Two boxes sharing a face must triangulate it the same way, wound in
// opposite directions.
func TestBoxTrianglesSharedFaceMatches(t *testing.T) {
	left := math.Bounds{Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	right := math.Bounds{Min: math.Vec3{X: 1}, Max: math.Vec3{X: 2, Y: 1, Z: 1}}
	none := func(Face) asset.ChunkRef { return asset.NoChunk() }

	a := BoxTriangles(left, none)[2*FacePosX : 2*FacePosX+2]
	b := BoxTriangles(right, none)[2*FaceNegX : 2*FaceNegX+2]

	for i := range a {
		found := false
		for j := range b {
			if sameVertices(a[i].V, b[j].V) {
				found = true
				assert.Less(t, r3.Dot(a[i].R3().Normal(), b[j].R3().Normal()), 0.0)
			}
		}
		assert.True(t, found, "triangle %d of the shared face has no partner", i)
	}
}

func sameVertices(a, b [3]math.Vec3) bool {
	for _, v := range a {
		if v != b[0] && v != b[1] && v != b[2] {
			return false
		}
	}
	return true
}

func TestSliceBoxErrors(t *testing.T) {
	tests := []struct {
		name string
		opts SliceOptions
		want error
	}{
		{"empty bounds", SliceOptions{Bounds: math.EmptyBounds()}, ErrEmptyBounds},
		{"flat bounds", SliceOptions{Bounds: math.Bounds{Max: math.Vec3{X: 1, Y: 1}}}, ErrEmptyBounds},
		{"negative cuts", SliceOptions{Bounds: cube(1), Cuts: [3]int{1, -1, 0}}, ErrInvalidCuts},
		{"too many cells", SliceOptions{Bounds: cube(1), Cuts: [3]int{100, 100, 100}}, ErrTooManyCells},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SliceBox(tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFace(t *testing.T) {
	for f := FaceNegX; f <= FacePosZ; f++ {
		got, err := ParseFace(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFace(" -Z ")
	require.NoError(t, err)
	assert.Equal(t, FaceNegZ, got)

	_, err = ParseFace("up")
	assert.Error(t, err)
}
