// Package project reads and writes the YAML fracture projects blasttool
// builds assets from.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/fracture"
	"github.com/Faultbox/shatter/pkg/math"
)

// Project is a fracture project: either a box to slice or explicit chunks.
type Project struct {
	Name   string      `yaml:"name"`
	Slice  *SliceSpec  `yaml:"slice,omitempty"`
	Chunks []ChunkSpec `yaml:"chunks,omitempty"`
}

// SliceSpec describes a box cut into a grid by fracture.SliceBox.
type SliceSpec struct {
	Min     Vec3     `yaml:"min"`
	Max     Vec3     `yaml:"max"`
	Cuts    [3]int   `yaml:"cuts,flow"`
	Fixed   []string `yaml:"fixed,flow,omitempty"` // box faces: -x, +x, -y, +y, -z, +z
	RootID  uint32   `yaml:"root_id"`
	Support bool     `yaml:"support"`
}

// ChunkSpec is one explicit chunk.
type ChunkSpec struct {
	ID        uint32         `yaml:"id"`
	Parent    Ref            `yaml:"parent"`
	Support   bool           `yaml:"support"`
	Triangles []TriangleSpec `yaml:"triangles"`
}

// TriangleSpec is one chunk triangle and what lies behind it.
type TriangleSpec struct {
	V        [3]Vec3 `yaml:"v,flow"`
	Neighbor Ref     `yaml:"neighbor,omitempty"`
}

// Vec3 is written as a [x, y, z] sequence.
type Vec3 [3]float32

func (v Vec3) vec() math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func fromVec(v math.Vec3) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Ref is a chunk reference written as a chunk id, "world" or "none".
type Ref struct {
	asset.ChunkRef
}

// UnmarshalYAML accepts an unsigned integer id, "world" or "none". An empty
// node means none.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: chunk reference must be a scalar", node.Line)
	}
	switch node.Value {
	case "", "none", "~", "null":
		r.ChunkRef = asset.NoChunk()
		return nil
	case "world":
		r.ChunkRef = asset.World()
		return nil
	}
	id, err := strconv.ParseUint(node.Value, 10, 32)
	if err != nil {
		return fmt.Errorf("line %d: chunk reference %q is not an id, \"world\" or \"none\"", node.Line, node.Value)
	}
	r.ChunkRef = asset.ChunkAt(uint32(id))
	return nil
}

// MarshalYAML writes the id, "world" or "none".
func (r Ref) MarshalYAML() (interface{}, error) {
	if id, ok := r.Index(); ok {
		return id, nil
	}
	return r.Kind().String(), nil
}

// IsZero lets omitempty drop none references.
func (r Ref) IsZero() bool {
	return r.IsNone()
}

// Project errors.
var (
	ErrNoGeometry   = errors.New("project has neither a slice block nor chunks")
	ErrBothGeometry = errors.New("project has both a slice block and chunks")
)

// Load reads a project file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a project document. Unknown keys are rejected.
func Parse(data []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Project
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoGeometry
		}
		return nil, err
	}
	switch {
	case p.Slice == nil && len(p.Chunks) == 0:
		return nil, ErrNoGeometry
	case p.Slice != nil && len(p.Chunks) > 0:
		return nil, ErrBothGeometry
	}
	return &p, nil
}

// Fracture returns the chunks the project describes, slicing the box when
// the project has a slice block.
func (p *Project) Fracture() ([]fracture.Chunk, error) {
	if s := p.Slice; s != nil {
		fixed := make([]fracture.Face, 0, len(s.Fixed))
		for _, name := range s.Fixed {
			f, err := fracture.ParseFace(name)
			if err != nil {
				return nil, err
			}
			fixed = append(fixed, f)
		}
		return fracture.SliceBox(fracture.SliceOptions{
			Bounds:  math.Bounds{Min: s.Min.vec(), Max: s.Max.vec()},
			Cuts:    s.Cuts,
			Fixed:   fixed,
			RootID:  s.RootID,
			Support: s.Support,
		})
	}

	chunks := make([]fracture.Chunk, len(p.Chunks))
	for i, cs := range p.Chunks {
		c := fracture.Chunk{
			ID:        cs.ID,
			Parent:    cs.Parent.ChunkRef,
			Support:   cs.Support,
			Triangles: make([]asset.Triangle, len(cs.Triangles)),
		}
		for k, ts := range cs.Triangles {
			c.Triangles[k] = asset.Triangle{
				V:        [3]math.Vec3{ts.V[0].vec(), ts.V[1].vec(), ts.V[2].vec()},
				Neighbor: ts.Neighbor.ChunkRef,
			}
		}
		chunks[i] = c
	}
	return chunks, nil
}

// FromChunks returns a project listing chunks explicitly.
func FromChunks(name string, chunks []fracture.Chunk) *Project {
	p := &Project{Name: name, Chunks: make([]ChunkSpec, len(chunks))}
	for i, c := range chunks {
		cs := ChunkSpec{
			ID:        c.ID,
			Parent:    Ref{c.Parent},
			Support:   c.Support,
			Triangles: make([]TriangleSpec, len(c.Triangles)),
		}
		for k, t := range c.Triangles {
			cs.Triangles[k] = TriangleSpec{
				V:        [3]Vec3{fromVec(t.V[0]), fromVec(t.V[1]), fromVec(t.V[2])},
				Neighbor: Ref{t.Neighbor},
			}
		}
		p.Chunks[i] = cs
	}
	return p
}

// Write encodes the project as YAML.
func (p *Project) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
