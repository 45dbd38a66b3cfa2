package project

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/authoring"
	"github.com/Faultbox/shatter/pkg/fracture"
	"github.com/Faultbox/shatter/pkg/math"
)

const sliceProject = `
name: wall
slice:
  min: [0, 0, 0]
  max: [2, 2, 2]
  cuts: [1, 1, 1]
  fixed: [-z, -x]
`

const chunkProject = `
name: pair
chunks:
  - id: 7
    parent: none
    triangles:
      - v: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
        neighbor: world
  - id: 9
    parent: 7
    support: true
    triangles:
      - v: [[0, 0, 0], [0, 1, 0], [1, 0, 0]]
        neighbor: 7
      - v: [[0, 0, 1], [1, 0, 1], [0, 1, 1]]
`

func TestParseSlice(t *testing.T) {
	p, err := Parse([]byte(sliceProject))
	require.NoError(t, err)
	assert.Equal(t, "wall", p.Name)
	require.NotNil(t, p.Slice)

	chunks, err := p.Fracture()
	require.NoError(t, err)
	assert.Len(t, chunks, 9)
}

func TestParseChunks(t *testing.T) {
	p, err := Parse([]byte(chunkProject))
	require.NoError(t, err)

	chunks, err := p.Fracture()
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.True(t, chunks[0].Parent.IsNone())
	assert.True(t, chunks[0].Triangles[0].Neighbor.IsWorld())
	assert.Equal(t, asset.ChunkAt(7), chunks[1].Parent)
	assert.True(t, chunks[1].Support)
	assert.Equal(t, asset.ChunkAt(7), chunks[1].Triangles[0].Neighbor)
	assert.True(t, chunks[1].Triangles[1].Neighbor.IsNone())
	assert.Equal(t, float32(1), chunks[1].Triangles[1].V[0].Z)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrNoGeometry},
		{"name only", "name: x\n", ErrNoGeometry},
		{"both", sliceProject + "chunks:\n  - id: 1\n", ErrBothGeometry},
		{"bad ref", "chunks:\n  - id: 1\n    parent: ground\n", nil},
		{"unknown key", "name: x\ncolour: red\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestFractureRejectsUnknownFace(t *testing.T) {
	p, err := Parse([]byte("slice:\n  min: [0, 0, 0]\n  max: [1, 1, 1]\n  cuts: [0, 0, 0]\n  fixed: [down]\n"))
	require.NoError(t, err)
	_, err = p.Fracture()
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	sliced, err := fracture.SliceBox(fracture.SliceOptions{
		Bounds: math.Bounds{Max: math.Vec3{X: 2, Y: 1, Z: 1}},
		Cuts:   [3]int{1, 0, 0},
		Fixed:  []fracture.Face{fracture.FaceNegZ},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FromChunks("halves", sliced).Write(&buf))
	assert.Contains(t, buf.String(), "neighbor: world")

	path := filepath.Join(t.TempDir(), "halves.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	p, err := Load(path)
	require.NoError(t, err)

	back, err := p.Fracture()
	require.NoError(t, err)
	assert.Equal(t, sliced, back)
}

func TestReport(t *testing.T) {
	p, err := Parse([]byte(sliceProject))
	require.NoError(t, err)
	chunks, err := p.Fracture()
	require.NoError(t, err)

	s := authoring.NewSession(authoring.DefaultOptions(), nil)
	defer s.Close()
	a, rep, err := s.Build(chunks)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewReport(p.Name, a, rep, nil, true).Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "project: wall")
	assert.Contains(t, out, "stage: assembled")
	assert.Contains(t, out, "world_bonds: 6")
	assert.Contains(t, out, "to: world")
	assert.Equal(t, 9, strings.Count(out, "source_id:"))
}

func TestReportFailure(t *testing.T) {
	s := authoring.NewSession(authoring.DefaultOptions(), nil)
	defer s.Close()
	a, rep, err := s.Build([]fracture.Chunk{{ID: 1}, {ID: 2}})
	require.Error(t, err)
	require.True(t, errors.Is(err, asset.ErrMalformedHierarchy))

	var buf bytes.Buffer
	require.NoError(t, NewReport("broken", a, rep, err, true).Write(&buf))
	assert.Contains(t, buf.String(), "stage: raw")
	assert.Contains(t, buf.String(), "malformed chunk hierarchy")
	assert.NotContains(t, buf.String(), "chunk_table")
}
