package asset

import (
	"fmt"
	"slices"
)

// SupportGraph is the adjacency structure over support chunks, stored in
// CSR form: the neighbors of node n are
// AdjacentNodeIndices[AdjacencyPartition[n]:AdjacencyPartition[n+1]], and
// AdjacentBondIndices holds the bond linking each pair at the same position.
// World bonds are not part of the adjacency; they live in the bond array only.
type SupportGraph struct {
	ChunkIndices        []uint32
	AdjacencyPartition  []uint32
	AdjacentNodeIndices []uint32
	AdjacentBondIndices []uint32
}

// NodeCount returns the number of support nodes.
func (g *SupportGraph) NodeCount() int {
	return len(g.ChunkIndices)
}

// Neighbors returns the adjacent nodes of node n and the bonds linking them.
func (g *SupportGraph) Neighbors(n uint32) (nodes, bonds []uint32) {
	lo, hi := g.AdjacencyPartition[n], g.AdjacencyPartition[n+1]
	return g.AdjacentNodeIndices[lo:hi], g.AdjacentBondIndices[lo:hi]
}

// NodeOf returns the node holding the given chunk.
func (g *SupportGraph) NodeOf(chunk uint32) (uint32, bool) {
	for n, c := range g.ChunkIndices {
		if c == chunk {
			return uint32(n), true
		}
	}
	return 0, false
}

// Clone returns a deep copy.
func (g *SupportGraph) Clone() SupportGraph {
	return SupportGraph{
		ChunkIndices:        slices.Clone(g.ChunkIndices),
		AdjacencyPartition:  slices.Clone(g.AdjacencyPartition),
		AdjacentNodeIndices: slices.Clone(g.AdjacentNodeIndices),
		AdjacentBondIndices: slices.Clone(g.AdjacentBondIndices),
	}
}

// BuildSupportGraph lays out the CSR adjacency for the given support chunks
// from the chunk-to-chunk bonds. Every bond endpoint must be one of
// chunkIndices or the world.
func BuildSupportGraph(chunkIndices []uint32, bonds []Bond) (*SupportGraph, error) {
	nodeOf := make(map[uint32]uint32, len(chunkIndices))
	for n, c := range chunkIndices {
		if _, dup := nodeOf[c]; dup {
			return nil, fmt.Errorf("chunk %d appears twice in the support graph", c)
		}
		nodeOf[c] = uint32(n)
	}

	degree := make([]uint32, len(chunkIndices)+1)
	for i := range bonds {
		b := &bonds[i]
		a, ok := nodeOf[b.From]
		if !ok {
			return nil, fmt.Errorf("bond %d: chunk %d is not a support node", i, b.From)
		}
		if b.IsWorld() {
			continue
		}
		to, _ := b.To.Index()
		c, ok := nodeOf[to]
		if !ok {
			return nil, fmt.Errorf("bond %d: %s is not a support node", i, b.To)
		}
		degree[a+1]++
		degree[c+1]++
	}

	partition := make([]uint32, len(chunkIndices)+1)
	for n := 1; n < len(partition); n++ {
		partition[n] = partition[n-1] + degree[n]
	}

	total := partition[len(partition)-1]
	g := &SupportGraph{
		ChunkIndices:        slices.Clone(chunkIndices),
		AdjacencyPartition:  partition,
		AdjacentNodeIndices: make([]uint32, total),
		AdjacentBondIndices: make([]uint32, total),
	}

	fill := slices.Clone(partition[:len(chunkIndices)])
	for i := range bonds {
		b := &bonds[i]
		if b.IsWorld() {
			continue
		}
		to, _ := b.To.Index()
		a, c := nodeOf[b.From], nodeOf[to]

		g.AdjacentNodeIndices[fill[a]] = c
		g.AdjacentBondIndices[fill[a]] = uint32(i)
		fill[a]++

		g.AdjacentNodeIndices[fill[c]] = a
		g.AdjacentBondIndices[fill[c]] = uint32(i)
		fill[c]++
	}
	return g, nil
}

// Validate checks the graph against its chunks and bonds: every node is a
// support chunk, the partition is well formed, and each adjacency entry is
// mirrored by the other endpoint through the same bond.
func (g *SupportGraph) Validate(chunks []Chunk, bonds []Bond) error {
	n := g.NodeCount()
	if len(g.AdjacencyPartition) != n+1 {
		return fmt.Errorf("adjacency partition has %d entries, want %d", len(g.AdjacencyPartition), n+1)
	}
	if len(g.AdjacentNodeIndices) != len(g.AdjacentBondIndices) {
		return fmt.Errorf("adjacent node and bond arrays differ in length")
	}
	if g.AdjacencyPartition[0] != 0 || int(g.AdjacencyPartition[n]) != len(g.AdjacentNodeIndices) {
		return fmt.Errorf("adjacency partition does not span the adjacency arrays")
	}

	seen := make(map[uint32]bool, n)
	for node, c := range g.ChunkIndices {
		if int(c) >= len(chunks) {
			return fmt.Errorf("node %d: chunk %d out of range", node, c)
		}
		if !chunks[c].Support {
			return fmt.Errorf("node %d: chunk %d is not marked support", node, c)
		}
		if seen[c] {
			return fmt.Errorf("node %d: chunk %d listed twice", node, c)
		}
		seen[c] = true
		if g.AdjacencyPartition[node] > g.AdjacencyPartition[node+1] {
			return fmt.Errorf("node %d: adjacency partition decreases", node)
		}
	}

	for node := 0; node < n; node++ {
		nodes, bondIdx := g.Neighbors(uint32(node))
		for k, other := range nodes {
			bi := bondIdx[k]
			if int(other) >= n {
				return fmt.Errorf("node %d: neighbor %d out of range", node, other)
			}
			if int(bi) >= len(bonds) {
				return fmt.Errorf("node %d: bond %d out of range", node, bi)
			}
			b := &bonds[bi]
			to, ok := b.To.Index()
			self, peer := g.ChunkIndices[node], g.ChunkIndices[other]
			if !ok || !(b.From == self && to == peer || b.From == peer && to == self) {
				return fmt.Errorf("node %d: bond %d does not link chunks %d and %d", node, bi, self, peer)
			}
			if !g.links(other, uint32(node), bi) {
				return fmt.Errorf("node %d: adjacency to node %d via bond %d is not mirrored", node, other, bi)
			}
		}
	}
	return nil
}

func (g *SupportGraph) links(from, to, bond uint32) bool {
	nodes, bonds := g.Neighbors(from)
	for k := range nodes {
		if nodes[k] == to && bonds[k] == bond {
			return true
		}
	}
	return false
}
