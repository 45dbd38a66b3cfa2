package asset

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/shatter/pkg/math"
)

// HullTolerance is the off-plane distance allowed for hull vertices,
// relative to the hull's half-size.
const HullTolerance = 1e-3

// Asset is the assembled, read-only destructible asset. Accessors return
// copies; nothing reachable from an Asset can be modified.
type Asset struct {
	chunks  []Chunk
	bonds   []Bond
	graph   SupportGraph
	hulls   []CollisionHull
	reorder ReorderMap
}

// Assemble validates the cross references between the pipeline products and
// packages them into an Asset. hulls[i] belongs to chunks[i]. Any violated
// precondition yields an *AssemblyError listing every problem found and no
// Asset.
func Assemble(chunks []Chunk, bonds []Bond, graph *SupportGraph, hulls []CollisionHull, reorder ReorderMap) (*Asset, error) {
	if err := checkParts(chunks, bonds, graph, hulls, reorder); err != nil {
		return nil, &AssemblyError{Reason: err.Error()}
	}

	a := &Asset{
		chunks:  make([]Chunk, len(chunks)),
		bonds:   make([]Bond, len(bonds)),
		graph:   graph.Clone(),
		hulls:   make([]CollisionHull, len(hulls)),
		reorder: reorder.Clone(),
	}
	for i := range chunks {
		a.chunks[i] = chunks[i].Clone()
	}
	copy(a.bonds, bonds)
	for i := range hulls {
		a.hulls[i] = hulls[i].Clone()
	}
	return a, nil
}

func checkParts(chunks []Chunk, bonds []Bond, graph *SupportGraph, hulls []CollisionHull, reorder ReorderMap) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks")
	}
	if graph == nil {
		return fmt.Errorf("no support graph")
	}

	var errs error
	if reorder.Len() != len(chunks) {
		errs = multierr.Append(errs, fmt.Errorf("reorder map covers %d chunks, asset has %d", reorder.Len(), len(chunks)))
	} else if err := reorder.Verify(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if len(hulls) != len(chunks) {
		errs = multierr.Append(errs, fmt.Errorf("%d hulls for %d chunks", len(hulls), len(chunks)))
	}

	errs = multierr.Append(errs, checkChunks(chunks))
	errs = multierr.Append(errs, checkBonds(chunks, bonds, graph))
	if err := graph.Validate(chunks, bonds); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("support graph: %w", err))
	}

	for i := range hulls {
		if err := hulls[i].Validate(HullTolerance); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("hull %d: %w", i, err))
		}
	}
	return errs
}

// checkChunks verifies indices, the single root at 0, and ancestors-first order.
func checkChunks(chunks []Chunk) error {
	var errs error
	for i := range chunks {
		c := &chunks[i]
		if c.Index != uint32(i) {
			errs = multierr.Append(errs, fmt.Errorf("chunk %d carries index %d", i, c.Index))
		}
		if i == 0 {
			if !c.IsRoot() {
				errs = multierr.Append(errs, fmt.Errorf("chunk 0 is not the root"))
			}
			continue
		}
		p, ok := c.Parent.Index()
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("chunk %d has parent %s, only chunk 0 may be a root", i, c.Parent))
		case p >= uint32(i):
			errs = multierr.Append(errs, fmt.Errorf("chunk %d has parent %d, parents must precede children", i, p))
		case c.Depth != chunks[p].Depth+1:
			errs = multierr.Append(errs, fmt.Errorf("chunk %d has depth %d, parent depth is %d", i, c.Depth, chunks[p].Depth))
		}
	}
	return errs
}

// checkBonds verifies endpoints resolve, are distinct, are support nodes and
// that no pair is bonded twice.
func checkBonds(chunks []Chunk, bonds []Bond, graph *SupportGraph) error {
	inGraph := make(map[uint32]bool, graph.NodeCount())
	for _, c := range graph.ChunkIndices {
		inGraph[c] = true
	}

	var errs error
	seen := make(map[[2]ChunkRef]int, len(bonds))
	for i := range bonds {
		b := &bonds[i]
		if int(b.From) >= len(chunks) {
			errs = multierr.Append(errs, fmt.Errorf("bond %d: from chunk %d out of range", i, b.From))
			continue
		}
		if !inGraph[b.From] {
			errs = multierr.Append(errs, fmt.Errorf("bond %d: chunk %d is not in the support graph", i, b.From))
		}
		switch b.To.Kind() {
		case RefWorld:
		case RefChunk:
			to, _ := b.To.Index()
			if int(to) >= len(chunks) {
				errs = multierr.Append(errs, fmt.Errorf("bond %d: to chunk %d out of range", i, to))
				continue
			}
			if to == b.From {
				errs = multierr.Append(errs, fmt.Errorf("bond %d: chunk %d bonded to itself", i, to))
			}
			if !inGraph[to] {
				errs = multierr.Append(errs, fmt.Errorf("bond %d: chunk %d is not in the support graph", i, to))
			}
		default:
			errs = multierr.Append(errs, fmt.Errorf("bond %d: to endpoint is %s", i, b.To))
			continue
		}
		if first, dup := seen[b.Key()]; dup {
			errs = multierr.Append(errs, fmt.Errorf("bond %d duplicates bond %d", i, first))
		} else {
			seen[b.Key()] = i
		}
	}
	return errs
}

// ChunkCount returns the number of chunks.
func (a *Asset) ChunkCount() int { return len(a.chunks) }

// Chunk returns a copy of chunk i.
func (a *Asset) Chunk(i int) Chunk { return a.chunks[i].Clone() }

// Chunks returns a copy of every chunk.
func (a *Asset) Chunks() []Chunk {
	out := make([]Chunk, len(a.chunks))
	for i := range a.chunks {
		out[i] = a.chunks[i].Clone()
	}
	return out
}

// BondCount returns the number of bonds.
func (a *Asset) BondCount() int { return len(a.bonds) }

// Bond returns bond i.
func (a *Asset) Bond(i int) Bond { return a.bonds[i] }

// Bonds returns a copy of the bond array.
func (a *Asset) Bonds() []Bond {
	out := make([]Bond, len(a.bonds))
	copy(out, a.bonds)
	return out
}

// WorldBondCount returns the number of bonds anchored to the world.
func (a *Asset) WorldBondCount() int {
	n := 0
	for i := range a.bonds {
		if a.bonds[i].IsWorld() {
			n++
		}
	}
	return n
}

// SupportGraph returns a copy of the support graph.
func (a *Asset) SupportGraph() SupportGraph { return a.graph.Clone() }

// Hull returns a copy of chunk i's collision hull.
func (a *Asset) Hull(i int) CollisionHull { return a.hulls[i].Clone() }

// Hulls returns a copy of every collision hull, indexed by chunk.
func (a *Asset) Hulls() []CollisionHull {
	out := make([]CollisionHull, len(a.hulls))
	for i := range a.hulls {
		out[i] = a.hulls[i].Clone()
	}
	return out
}

// ReorderMap returns a copy of the permutation applied to the upstream chunks.
func (a *Asset) ReorderMap() ReorderMap { return a.reorder.Clone() }

// LeafCount returns the number of chunks without children.
func (a *Asset) LeafCount() int {
	n := 0
	for i := range a.chunks {
		if a.chunks[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Bounds returns the bounding box of the root chunk geometry.
func (a *Asset) Bounds() math.Bounds {
	return a.chunks[0].Bounds()
}
