package authoring

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/fracture"
	"github.com/Faultbox/shatter/pkg/hull"
)

// Stage is a step of the authoring pipeline. Stages only move forward; a
// failed build stops in the stage that failed and must restart from raw
// chunks.
type Stage int

const (
	StageRaw Stage = iota
	StageCoverageValidated
	StageBondsGenerated
	StageReordered
	StageHullsBuilt
	StageAssembled
)

var stageNames = [...]string{
	StageRaw:               "raw",
	StageCoverageValidated: "coverage-validated",
	StageBondsGenerated:    "bonds-generated",
	StageReordered:         "reordered",
	StageHullsBuilt:        "hulls-built",
	StageAssembled:         "assembled",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError is a fatal pipeline error together with the stage the build
// stopped in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("authoring stopped at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrSessionClosed is returned by Build after Close.
var ErrSessionClosed = errors.New("authoring session is closed")

// Options configures a Session.
type Options struct {
	Workers      int             // hull workers, GOMAXPROCS when <= 0
	HullEpsilon  float64         // coplanarity tolerance of the built-in backend
	Adjacency    AdjacencySource // TagAdjacency when nil
	BBoxFallback bool            // cook the bounding box when a soup is rejected
	Backend      hull.Backend    // built-in incremental solver when nil
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		HullEpsilon:  hull.DefaultEpsilon,
		Adjacency:    TagAdjacency{},
		BBoxFallback: true,
	}
}

// Report describes one Build run.
type Report struct {
	Stage         Stage
	Chunks        int
	SupportChunks int
	Bonds         int
	WorldBonds    int
	StaticChunks  int

	Coverage  CoverageCorrections
	ZeroBonds bool

	HullFallbacks int
	HullFailures  error // per-chunk failures, combined with multierr
	Duration      time.Duration
}

// HullFailureCount returns the number of chunks left with an empty hull.
func (r *Report) HullFailureCount() int {
	return len(multierr.Errors(r.HullFailures))
}

// Session owns the hull cooker for one authoring session and runs builds
// against it. Builds may run concurrently.
type Session struct {
	opts   Options
	log    *zap.Logger
	cooker *hull.Cooker
}

// NewSession starts a session. Close it to release the hull backend.
func NewSession(opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Adjacency == nil {
		opts.Adjacency = TagAdjacency{}
	}
	backend := opts.Backend
	if backend == nil {
		inc := hull.NewIncremental()
		if opts.HullEpsilon > 0 {
			inc.Epsilon = opts.HullEpsilon
		}
		backend = inc
	}
	return &Session{opts: opts, log: log, cooker: hull.NewCooker(backend)}
}

// Close ends the session.
func (s *Session) Close() error {
	if err := s.cooker.Close(); err != nil {
		return ErrSessionClosed
	}
	return nil
}

// Build runs the whole pipeline over raw fracture output. On a fatal error
// it returns a *StageError and no asset; the report still tells how far the
// build got. Per-chunk hull failures are not fatal: they are listed in the
// report and the chunk keeps an empty hull.
func (s *Session) Build(raw []fracture.Chunk) (*asset.Asset, *Report, error) {
	start := time.Now()
	rep := &Report{Stage: StageRaw, Chunks: len(raw)}
	fail := func(err error) (*asset.Asset, *Report, error) {
		rep.Duration = time.Since(start)
		s.log.Error("asset build failed", zap.Stringer("stage", rep.Stage), zap.Error(err))
		return nil, rep, &StageError{Stage: rep.Stage, Err: err}
	}

	chunks, err := Normalize(raw)
	if err != nil {
		return fail(err)
	}

	rep.Coverage, err = EnsureExactCoverage(chunks, s.log.Named("coverage"))
	if err != nil {
		return fail(err)
	}
	rep.Stage = StageCoverageValidated

	bonds, err := GenerateBonds(chunks, s.opts.Adjacency, s.log.Named("bonds"))
	if err != nil {
		return fail(err)
	}
	rep.ZeroBonds = bonds.ZeroBonds
	rep.Stage = StageBondsGenerated

	reorderLog := s.log.Named("reorder")
	reorder, err := ComputeReorderMap(chunks)
	if err != nil {
		return fail(err)
	}
	if err := ApplyToChunks(reorder, chunks); err != nil {
		return fail(err)
	}
	if err := ApplyToBonds(reorder, bonds.Bonds); err != nil {
		return fail(err)
	}
	graph, err := ApplyToGraph(reorder, bonds.Graph, bonds.Bonds)
	if err != nil {
		return fail(err)
	}
	if err := LinkChildren(chunks); err != nil {
		return fail(err)
	}
	MarkStatic(chunks, bonds.Bonds)
	reorderLog.Debug("chunks reordered", zap.Bool("identity", reorder.IsIdentity()))
	rep.Stage = StageReordered

	hb := NewHullBuilder(s.cooker, s.opts.Workers, s.opts.BBoxFallback, s.log.Named("hulls"))
	hulls, hullErrs := hb.BuildAll(chunks)
	for _, e := range multierr.Errors(hullErrs) {
		if errors.Is(e, hull.ErrCookerClosed) {
			return fail(ErrSessionClosed)
		}
	}
	rep.HullFailures = hullErrs
	rep.HullFallbacks = hb.Fallbacks()
	rep.Stage = StageHullsBuilt

	a, err := asset.Assemble(chunks, bonds.Bonds, graph, hulls, reorder)
	if err != nil {
		return fail(err)
	}
	rep.Stage = StageAssembled

	rep.SupportChunks = graph.NodeCount()
	rep.Bonds = a.BondCount()
	rep.WorldBonds = a.WorldBondCount()
	for i := range chunks {
		if chunks[i].Static {
			rep.StaticChunks++
		}
	}
	rep.Duration = time.Since(start)

	s.log.Named("assemble").Info("asset assembled",
		zap.Int("chunks", rep.Chunks),
		zap.Int("support", rep.SupportChunks),
		zap.Int("bonds", rep.Bonds),
		zap.Int("world_bonds", rep.WorldBonds),
		zap.Int("hull_failures", rep.HullFailureCount()),
		zap.Duration("took", rep.Duration))
	return a, rep, nil
}
