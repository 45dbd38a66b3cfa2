package project

import (
	"io"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/authoring"
)

// Report is the YAML summary blasttool prints after a build.
type Report struct {
	Project       string        `yaml:"project"`
	Stage         string        `yaml:"stage"`
	Error         string        `yaml:"error,omitempty"`
	Chunks        int           `yaml:"chunks"`
	SupportChunks int           `yaml:"support_chunks"`
	StaticChunks  int           `yaml:"static_chunks"`
	Bonds         int           `yaml:"bonds"`
	WorldBonds    int           `yaml:"world_bonds"`
	ZeroBonds     bool          `yaml:"zero_bonds,omitempty"`
	Coverage      CoverageEntry `yaml:"coverage"`
	HullFallbacks int           `yaml:"hull_fallbacks"`
	HullFailures  []string      `yaml:"hull_failures,omitempty"`
	Took          string        `yaml:"took"`

	ChunkTable []ChunkEntry `yaml:"chunk_table,omitempty"`
	BondTable  []BondEntry  `yaml:"bond_table,omitempty"`
}

// CoverageEntry lists the support flags coverage validation changed.
type CoverageEntry struct {
	Unflagged []uint32 `yaml:"unflagged,flow,omitempty"`
	Flagged   []uint32 `yaml:"flagged,flow,omitempty"`
}

// ChunkEntry summarizes one assembled chunk.
type ChunkEntry struct {
	Index      uint32  `yaml:"index"`
	SourceID   uint32  `yaml:"source_id"`
	Parent     Ref     `yaml:"parent"`
	Depth      uint32  `yaml:"depth"`
	Support    bool    `yaml:"support,omitempty"`
	Static     bool    `yaml:"static,omitempty"`
	Volume     float32 `yaml:"volume"`
	HullPoints int     `yaml:"hull_points"`
	HullFaces  int     `yaml:"hull_faces"`
}

// BondEntry summarizes one bond.
type BondEntry struct {
	From     uint32  `yaml:"from"`
	To       Ref     `yaml:"to"`
	Area     float32 `yaml:"area"`
	Normal   Vec3    `yaml:"normal,flow"`
	Centroid Vec3    `yaml:"centroid,flow"`
}

// NewReport summarizes a build. a is nil when the build failed, in which
// case err is recorded. With detail set the chunk and bond tables are
// included.
func NewReport(name string, a *asset.Asset, r *authoring.Report, err error, detail bool) *Report {
	out := &Report{Project: name}
	if err != nil {
		out.Error = err.Error()
	}
	if r == nil {
		return out
	}

	out.Stage = r.Stage.String()
	out.Chunks = r.Chunks
	out.SupportChunks = r.SupportChunks
	out.StaticChunks = r.StaticChunks
	out.Bonds = r.Bonds
	out.WorldBonds = r.WorldBonds
	out.ZeroBonds = r.ZeroBonds
	out.Coverage = CoverageEntry{Unflagged: r.Coverage.Unflagged, Flagged: r.Coverage.Flagged}
	out.HullFallbacks = r.HullFallbacks
	for _, e := range multierr.Errors(r.HullFailures) {
		out.HullFailures = append(out.HullFailures, e.Error())
	}
	out.Took = r.Duration.String()

	if a == nil || !detail {
		return out
	}
	for i, c := range a.Chunks() {
		h := a.Hull(i)
		out.ChunkTable = append(out.ChunkTable, ChunkEntry{
			Index:      c.Index,
			SourceID:   c.SourceID,
			Parent:     Ref{c.Parent},
			Depth:      c.Depth,
			Support:    c.Support,
			Static:     c.Static,
			Volume:     c.Volume,
			HullPoints: len(h.Points),
			HullFaces:  len(h.Polygons),
		})
	}
	for _, b := range a.Bonds() {
		out.BondTable = append(out.BondTable, BondEntry{
			From:     b.From,
			To:       Ref{b.To},
			Area:     b.Area,
			Normal:   fromVec(b.Normal),
			Centroid: fromVec(b.Centroid),
		})
	}
	return out
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
