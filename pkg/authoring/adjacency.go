package authoring

import (
	stdmath "math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/asset"
)

// Contact is one triangle of chunk From lying against To, which is another
// chunk or the world.
type Contact struct {
	From     uint32
	To       asset.ChunkRef
	Triangle asset.Triangle
}

// AdjacencySource reports which chunk faces touch which neighbors.
type AdjacencySource interface {
	Contacts(chunks []asset.Chunk) ([]Contact, error)
}

// Compile-time interface checks.
var (
	_ AdjacencySource = TagAdjacency{}
	_ AdjacencySource = GeometricAdjacency{}
)

// TagAdjacency reads contacts from the triangle Neighbor tags written by the
// fracture step.
type TagAdjacency struct{}

// Contacts returns one contact per tagged triangle.
func (TagAdjacency) Contacts(chunks []asset.Chunk) ([]Contact, error) {
	var out []Contact
	for i := range chunks {
		for _, t := range chunks[i].Triangles {
			if t.Neighbor.IsNone() {
				continue
			}
			out = append(out, Contact{From: uint32(i), To: t.Neighbor, Triangle: t})
		}
	}
	return out, nil
}

// DefaultWeldTolerance is the vertex snapping distance used by
// GeometricAdjacency when Weld is zero.
const DefaultWeldTolerance = 1e-5

// GeometricAdjacency finds chunk-to-chunk contacts from geometry alone: two
// triangles of different chunks are in contact when their vertices coincide
// after snapping to a Weld grid and they face opposite ways. World contacts
// still come from the Neighbor tags.
type GeometricAdjacency struct {
	Weld float32
}

type triKey [3][3]int64

type triRef struct {
	chunk uint32
	tri   int
	n     r3.Vec
}

// Contacts matches coincident opposite triangles across chunks.
func (g GeometricAdjacency) Contacts(chunks []asset.Chunk) ([]Contact, error) {
	weld := float64(g.Weld)
	if weld <= 0 {
		weld = DefaultWeldTolerance
	}
	snap := func(v float32) int64 {
		return int64(stdmath.Round(float64(v) / weld))
	}

	faces := make(map[triKey][]triRef)
	var keys []triKey
	var out []Contact
	for i := range chunks {
		for k, t := range chunks[i].Triangles {
			if t.Neighbor.IsWorld() {
				out = append(out, Contact{From: uint32(i), To: t.Neighbor, Triangle: t})
				continue
			}
			var key triKey
			for j, v := range t.V {
				key[j] = [3]int64{snap(v.X), snap(v.Y), snap(v.Z)}
			}
			slices.SortFunc(key[:], func(a, b [3]int64) int {
				for d := 0; d < 3; d++ {
					if a[d] != b[d] {
						if a[d] < b[d] {
							return -1
						}
						return 1
					}
				}
				return 0
			})
			if _, ok := faces[key]; !ok {
				keys = append(keys, key)
			}
			faces[key] = append(faces[key], triRef{chunk: uint32(i), tri: k, n: t.R3().Normal()})
		}
	}

	// keys keeps first-seen order so the output is deterministic.
	for _, key := range keys {
		refs := faces[key]
		for a := 0; a < len(refs); a++ {
			for b := a + 1; b < len(refs); b++ {
				ra, rb := refs[a], refs[b]
				if ra.chunk == rb.chunk || r3.Dot(ra.n, rb.n) >= 0 {
					continue
				}
				ta := chunks[ra.chunk].Triangles[ra.tri]
				tb := chunks[rb.chunk].Triangles[rb.tri]
				out = append(out,
					Contact{From: ra.chunk, To: asset.ChunkAt(rb.chunk), Triangle: ta},
					Contact{From: rb.chunk, To: asset.ChunkAt(ra.chunk), Triangle: tb},
				)
			}
		}
	}
	return out, nil
}
