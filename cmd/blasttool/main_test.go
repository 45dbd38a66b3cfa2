package main

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/shatter/internal/project"
	"github.com/Faultbox/shatter/pkg/authoring"
	"github.com/Faultbox/shatter/pkg/fracture"
)

func TestParseSlice(t *testing.T) {
	spec, err := parseSlice("0,0,0", "4, 1, 2", "3,0,1", "-z, +x")
	if err != nil {
		t.Fatalf("parseSlice() error = %v", err)
	}
	if spec.Max != (project.Vec3{4, 1, 2}) {
		t.Errorf("Max = %v, want [4 1 2]", spec.Max)
	}
	if spec.Cuts != [3]int{3, 0, 1} {
		t.Errorf("Cuts = %v, want [3 0 1]", spec.Cuts)
	}
	if len(spec.Fixed) != 2 || spec.Fixed[0] != "-z" || spec.Fixed[1] != "+x" {
		t.Errorf("Fixed = %v, want [-z +x]", spec.Fixed)
	}
}

func TestParseSliceErrors(t *testing.T) {
	tests := []struct {
		name                  string
		min, max, cuts, fixed string
	}{
		{"short min", "0,0", "1,1,1", "0,0,0", ""},
		{"bad max", "0,0,0", "1,x,1", "0,0,0", ""},
		{"short cuts", "0,0,0", "1,1,1", "1,1", ""},
		{"bad cut", "0,0,0", "1,1,1", "1,one,1", ""},
		{"bad face", "0,0,0", "1,1,1", "0,0,0", "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSlice(tt.min, tt.max, tt.cuts, tt.fixed); err == nil {
				t.Error("parseSlice() error = nil, want error")
			}
		})
	}
}

func TestBuild(t *testing.T) {
	spec, err := parseSlice("0,0,0", "2,2,2", "1,1,1", "-z")
	if err != nil {
		t.Fatalf("parseSlice() error = %v", err)
	}
	chunks, err := (&project.Project{Slice: spec}).Fracture()
	if err != nil {
		t.Fatalf("Fracture() error = %v", err)
	}

	var buf bytes.Buffer
	if code := build(&buf, zap.NewNop(), authoring.DefaultOptions(), "cube", chunks, false); code != 0 {
		t.Fatalf("build() = %d, want 0\n%s", code, buf.String())
	}
	out := buf.String()
	for _, want := range []string{"project: cube", "stage: assembled", "chunks: 9", "world_bonds: 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildFailure(t *testing.T) {
	var buf bytes.Buffer
	chunks := []fracture.Chunk{{ID: 1}, {ID: 2}}
	if code := build(&buf, zap.NewNop(), authoring.DefaultOptions(), "broken", chunks, true); code == 0 {
		t.Fatal("build() = 0, want non-zero for two roots")
	}
	if !strings.Contains(buf.String(), "error:") {
		t.Errorf("report missing error:\n%s", buf.String())
	}
}
