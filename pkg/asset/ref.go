// Package asset defines the descriptors of a destructible asset (chunks,
// bonds, support graph, collision hulls, reorder map) and assembles them into
// an immutable Asset.
package asset

import "fmt"

// RefKind tells which of the three meanings a ChunkRef carries.
type RefKind uint8

const (
	RefNone  RefKind = iota // no chunk (root parent, free surface)
	RefChunk                // a real chunk index
	RefWorld                // the static environment
)

// String returns a human-readable kind name.
func (k RefKind) String() string {
	switch k {
	case RefNone:
		return "none"
	case RefChunk:
		return "chunk"
	case RefWorld:
		return "world"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// ChunkRef refers to a chunk, to the world, or to nothing. The zero value is
// NoChunk.
type ChunkRef struct {
	kind  RefKind
	index uint32
}

// NoChunk returns the empty reference.
func NoChunk() ChunkRef {
	return ChunkRef{}
}

// ChunkAt returns a reference to chunk i.
func ChunkAt(i uint32) ChunkRef {
	return ChunkRef{kind: RefChunk, index: i}
}

// World returns the reference to the static environment.
func World() ChunkRef {
	return ChunkRef{kind: RefWorld}
}

// Kind returns the reference kind.
func (r ChunkRef) Kind() RefKind { return r.kind }

// IsNone reports whether r refers to nothing.
func (r ChunkRef) IsNone() bool { return r.kind == RefNone }

// IsChunk reports whether r refers to a chunk.
func (r ChunkRef) IsChunk() bool { return r.kind == RefChunk }

// IsWorld reports whether r refers to the world.
func (r ChunkRef) IsWorld() bool { return r.kind == RefWorld }

// Index returns the chunk index and true if r refers to a chunk.
func (r ChunkRef) Index() (uint32, bool) {
	if r.kind != RefChunk {
		return 0, false
	}
	return r.index, true
}

// Remap applies f to the chunk index. World and none pass through unchanged.
func (r ChunkRef) Remap(f func(uint32) uint32) ChunkRef {
	if r.kind != RefChunk {
		return r
	}
	return ChunkAt(f(r.index))
}

// Less orders chunk references by index, with world after every chunk and
// none after world.
func (r ChunkRef) Less(other ChunkRef) bool {
	if r.kind != other.kind {
		return r.rank() < other.rank()
	}
	return r.kind == RefChunk && r.index < other.index
}

func (r ChunkRef) rank() int {
	switch r.kind {
	case RefChunk:
		return 0
	case RefWorld:
		return 1
	default:
		return 2
	}
}

// String returns "chunk#N", "world" or "none".
func (r ChunkRef) String() string {
	if r.kind == RefChunk {
		return fmt.Sprintf("chunk#%d", r.index)
	}
	return r.kind.String()
}
