// Package authoring turns the raw output of the fracture step into an
// assembled asset: it validates support coverage, generates bonds, reorders
// chunks, builds collision hulls and assembles the result.
package authoring

import (
	"fmt"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/fracture"
)

// Normalize converts upstream chunks to asset chunks in input order. Parent
// and neighbor references are rewritten from upstream ids to input
// positions; the upstream id is kept in SourceID. Volume and centroid are
// computed from each chunk's triangles.
//
// Duplicate ids and references to ids that are not in raw fail with
// asset.ErrMalformedHierarchy. Cycles and root count are checked later by
// EnsureExactCoverage.
func Normalize(raw []fracture.Chunk) ([]asset.Chunk, error) {
	pos := make(map[uint32]uint32, len(raw))
	for i, c := range raw {
		if prev, dup := pos[c.ID]; dup {
			return nil, fmt.Errorf("%w: chunk id %d used by inputs %d and %d", asset.ErrMalformedHierarchy, c.ID, prev, i)
		}
		pos[c.ID] = uint32(i)
	}

	resolve := func(ref asset.ChunkRef) (asset.ChunkRef, error) {
		id, ok := ref.Index()
		if !ok {
			return ref, nil
		}
		p, ok := pos[id]
		if !ok {
			return ref, fmt.Errorf("unknown chunk id %d", id)
		}
		return asset.ChunkAt(p), nil
	}

	chunks := make([]asset.Chunk, len(raw))
	for i := range raw {
		rc := &raw[i]
		if rc.Parent.IsWorld() {
			return nil, fmt.Errorf("%w: chunk id %d has the world as parent", asset.ErrMalformedHierarchy, rc.ID)
		}
		parent, err := resolve(rc.Parent)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk id %d: parent: %v", asset.ErrMalformedHierarchy, rc.ID, err)
		}

		tris := make([]asset.Triangle, len(rc.Triangles))
		for k, t := range rc.Triangles {
			n, err := resolve(t.Neighbor)
			if err != nil {
				return nil, fmt.Errorf("%w: chunk id %d: triangle %d neighbor: %v", asset.ErrMalformedHierarchy, rc.ID, k, err)
			}
			t.Neighbor = n
			tris[k] = t
		}

		vol, centroid := asset.MassProperties(tris)
		chunks[i] = asset.Chunk{
			Index:     uint32(i),
			SourceID:  rc.ID,
			Parent:    parent,
			Triangles: tris,
			Support:   rc.Support,
			Volume:    vol,
			Centroid:  centroid,
		}
	}
	return chunks, nil
}
