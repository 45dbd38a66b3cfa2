package authoring

import (
	"fmt"
	"slices"

	"github.com/Faultbox/shatter/pkg/asset"
)

// ComputeReorderMap returns the permutation that puts chunks in
// breadth-first order from the root: the root maps to 0, every parent
// precedes its children, siblings are contiguous and ordered by upstream id.
func ComputeReorderMap(chunks []asset.Chunk) (asset.ReorderMap, error) {
	children, root, err := hierarchy(chunks)
	if err != nil {
		return asset.ReorderMap{}, fmt.Errorf("%w: %w", asset.ErrReorderInconsistency, err)
	}

	forward := make([]uint32, len(chunks))
	placed := make([]bool, len(chunks))
	queue := []uint32{root}
	next := uint32(0)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if placed[c] {
			return asset.ReorderMap{}, fmt.Errorf("%w: chunk %d reached twice", asset.ErrReorderInconsistency, c)
		}
		placed[c] = true
		forward[c] = next
		next++
		queue = append(queue, children[c]...)
	}
	if int(next) != len(chunks) {
		return asset.ReorderMap{}, fmt.Errorf("%w: tree reaches %d of %d chunks", asset.ErrReorderInconsistency, next, len(chunks))
	}
	return asset.NewReorderMap(forward)
}

// ApplyToChunks moves every chunk to its new index and rewrites Index,
// Parent and triangle Neighbor references. Other fields are untouched.
func ApplyToChunks(m asset.ReorderMap, chunks []asset.Chunk) error {
	if m.Len() != len(chunks) {
		return fmt.Errorf("%w: map covers %d chunks, got %d", asset.ErrReorderInconsistency, m.Len(), len(chunks))
	}
	if err := m.Verify(); err != nil {
		return err
	}
	n := uint32(len(chunks))
	var bad error
	remap := func(i uint32) uint32 {
		if i >= n {
			bad = fmt.Errorf("%w: reference to chunk %d, out of range", asset.ErrReorderInconsistency, i)
			return i
		}
		return m.New(i)
	}

	old := slices.Clone(chunks)
	for i := range old {
		c := old[i]
		c.Index = m.New(uint32(i))
		c.Parent = c.Parent.Remap(remap)
		tris := make([]asset.Triangle, len(c.Triangles))
		for k, t := range c.Triangles {
			t.Neighbor = t.Neighbor.Remap(remap)
			tris[k] = t
		}
		c.Triangles = tris
		chunks[c.Index] = c
	}
	return bad
}

// ApplyToBonds rewrites bond endpoints in place. Order and orientation are
// kept.
func ApplyToBonds(m asset.ReorderMap, bonds []asset.Bond) error {
	n := uint32(m.Len())
	for i := range bonds {
		b := &bonds[i]
		if b.From >= n {
			return fmt.Errorf("%w: bond %d from chunk %d, out of range", asset.ErrReorderInconsistency, i, b.From)
		}
		if to, ok := b.To.Index(); ok && to >= n {
			return fmt.Errorf("%w: bond %d to chunk %d, out of range", asset.ErrReorderInconsistency, i, to)
		}
		b.From = m.New(b.From)
		b.To = b.To.Remap(m.New)
	}
	return nil
}

// ApplyToGraph returns the support graph over the remapped chunk indices,
// nodes sorted by chunk, with the adjacency rebuilt from the already
// remapped bonds.
func ApplyToGraph(m asset.ReorderMap, g *asset.SupportGraph, bonds []asset.Bond) (*asset.SupportGraph, error) {
	n := uint32(m.Len())
	nodes := make([]uint32, len(g.ChunkIndices))
	for k, c := range g.ChunkIndices {
		if c >= n {
			return nil, fmt.Errorf("%w: support node %d holds chunk %d, out of range", asset.ErrReorderInconsistency, k, c)
		}
		nodes[k] = m.New(c)
	}
	slices.Sort(nodes)
	out, err := asset.BuildSupportGraph(nodes, bonds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", asset.ErrReorderInconsistency, err)
	}
	return out, nil
}

// LinkChildren sets FirstChild and ChildCount on reordered chunks. Children
// of a chunk must be contiguous and follow it.
func LinkChildren(chunks []asset.Chunk) error {
	for i := range chunks {
		chunks[i].FirstChild, chunks[i].ChildCount = 0, 0
	}
	for i := range chunks {
		p, ok := chunks[i].Parent.Index()
		if !ok {
			continue
		}
		if int(p) >= i {
			return fmt.Errorf("%w: chunk %d precedes its parent %d", asset.ErrReorderInconsistency, i, p)
		}
		pc := &chunks[p]
		switch {
		case pc.ChildCount == 0:
			pc.FirstChild = uint32(i)
		case pc.FirstChild+pc.ChildCount != uint32(i):
			return fmt.Errorf("%w: children of chunk %d are not contiguous", asset.ErrReorderInconsistency, p)
		}
		pc.ChildCount++
	}
	return nil
}
