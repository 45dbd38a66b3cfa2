// Package fracture holds the records produced by the fracture step (chunk
// triangle soups plus the parent tree) and a box slicer that produces them
// for axis-aligned cuts.
package fracture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/math"
)

// Chunk is one fragment as delivered by the fracture step. Parent and the
// triangle Neighbor tags name chunks by ID, not by position; IDs need not be
// contiguous.
type Chunk struct {
	ID        uint32
	Parent    asset.ChunkRef
	Triangles []asset.Triangle
	Support   bool
}

// Face names one side of an axis-aligned box.
type Face int

const (
	FaceNegX Face = iota
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ
)

var faceNames = [...]string{"-x", "+x", "-y", "+y", "-z", "+z"}

// String returns "-x", "+x", ... "+z".
func (f Face) String() string {
	if f < 0 || int(f) >= len(faceNames) {
		return fmt.Sprintf("Face(%d)", int(f))
	}
	return faceNames[f]
}

// ParseFace parses the String form of a face.
func ParseFace(s string) (Face, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range faceNames {
		if n == s {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("unknown box face %q", s)
}

// Slicer errors.
var (
	ErrEmptyBounds  = errors.New("fracture: slice bounds are empty")
	ErrInvalidCuts  = errors.New("fracture: cut counts must be non-negative")
	ErrTooManyCells = errors.New("fracture: too many cells")
)

// maxCells bounds SliceBox output.
const maxCells = 1 << 16

// SliceOptions configures SliceBox.
type SliceOptions struct {
	Bounds  math.Bounds
	Cuts    [3]int // evenly spaced cuts per axis
	Fixed   []Face // box faces anchored to the world
	RootID  uint32 // leaves get RootID+1, RootID+2, ...
	Support bool   // provisional support flag for the leaves
}

// SliceBox cuts a box into a grid of (Cuts[0]+1)*(Cuts[1]+1)*(Cuts[2]+1)
// leaf cells under a single root holding the whole box. Leaves are numbered
// X fastest, then Y, then Z. Interior faces are tagged with the neighboring
// leaf, outer faces with the world when listed in Fixed.
func SliceBox(opts SliceOptions) ([]Chunk, error) {
	b := opts.Bounds
	if b.IsEmpty() || b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y || b.Min.Z >= b.Max.Z {
		return nil, ErrEmptyBounds
	}
	var dims [3]int
	for i, c := range opts.Cuts {
		if c < 0 {
			return nil, ErrInvalidCuts
		}
		dims[i] = c + 1
	}
	if dims[0]*dims[1]*dims[2] > maxCells {
		return nil, ErrTooManyCells
	}

	fixed := make(map[Face]bool, len(opts.Fixed))
	for _, f := range opts.Fixed {
		fixed[f] = true
	}
	outer := func(f Face) asset.ChunkRef {
		if fixed[f] {
			return asset.World()
		}
		return asset.NoChunk()
	}

	chunks := []Chunk{{
		ID:        opts.RootID,
		Parent:    asset.NoChunk(),
		Triangles: BoxTriangles(b, outer),
	}}

	size := b.Max.Sub(b.Min)
	step := math.Vec3{X: size.X / float32(dims[0]), Y: size.Y / float32(dims[1]), Z: size.Z / float32(dims[2])}
	leafID := func(x, y, z int) uint32 {
		return opts.RootID + 1 + uint32(x+dims[0]*(y+dims[1]*z))
	}
	// coord picks the exact outer bound on the last cell to avoid drift.
	coord := func(axis, i int, lo, hi, st float32) float32 {
		if i == dims[axis] {
			return hi
		}
		return lo + st*float32(i)
	}

	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				cell := math.Bounds{
					Min: math.Vec3{
						X: coord(0, x, b.Min.X, b.Max.X, step.X),
						Y: coord(1, y, b.Min.Y, b.Max.Y, step.Y),
						Z: coord(2, z, b.Min.Z, b.Max.Z, step.Z),
					},
					Max: math.Vec3{
						X: coord(0, x+1, b.Min.X, b.Max.X, step.X),
						Y: coord(1, y+1, b.Min.Y, b.Max.Y, step.Y),
						Z: coord(2, z+1, b.Min.Z, b.Max.Z, step.Z),
					},
				}
				x, y, z := x, y, z
				tag := func(f Face) asset.ChunkRef {
					nx, ny, nz := x, y, z
					switch f {
					case FaceNegX:
						nx--
					case FacePosX:
						nx++
					case FaceNegY:
						ny--
					case FacePosY:
						ny++
					case FaceNegZ:
						nz--
					case FacePosZ:
						nz++
					}
					if nx < 0 || ny < 0 || nz < 0 || nx >= dims[0] || ny >= dims[1] || nz >= dims[2] {
						return outer(f)
					}
					return asset.ChunkAt(leafID(nx, ny, nz))
				}
				chunks = append(chunks, Chunk{
					ID:        leafID(x, y, z),
					Parent:    asset.ChunkAt(opts.RootID),
					Triangles: BoxTriangles(cell, tag),
					Support:   opts.Support,
				})
			}
		}
	}
	return chunks, nil
}

// boxFaces lists each face's corners (Bounds.Corners indices) wound
// counter-clockwise seen from outside.
var boxFaces = [6][4]int{
	FaceNegX: {0, 4, 6, 2},
	FacePosX: {1, 3, 7, 5},
	FaceNegY: {0, 1, 5, 4},
	FacePosY: {2, 6, 7, 3},
	FaceNegZ: {0, 2, 3, 1},
	FacePosZ: {4, 5, 7, 6},
}

// BoxTriangles returns the 12 outward-wound triangles of a box, each tagged
// with tag(face). Every quad is split along the diagonal through its
// lexicographically smallest corner, so two boxes sharing a face produce the
// same two triangles with opposite winding.
func BoxTriangles(b math.Bounds, tag func(Face) asset.ChunkRef) []asset.Triangle {
	corners := b.Corners()
	tris := make([]asset.Triangle, 0, 12)
	for f, quad := range boxFaces {
		k := 0
		for i := 1; i < 4; i++ {
			if lexLess(corners[quad[i]], corners[quad[k]]) {
				k = i
			}
		}
		c := func(i int) math.Vec3 { return corners[quad[(k+i)%4]] }
		n := tag(Face(f))
		tris = append(tris,
			asset.Triangle{V: [3]math.Vec3{c(0), c(1), c(2)}, Neighbor: n},
			asset.Triangle{V: [3]math.Vec3{c(0), c(2), c(3)}, Neighbor: n},
		)
	}
	return tris
}

func lexLess(a, b math.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
