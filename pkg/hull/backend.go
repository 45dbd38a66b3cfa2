// Package hull is the convex-hull cooking backend used to build chunk
// collision proxies. Backends sit behind the Backend interface so another
// geometry library can replace the built-in solver without touching callers.
package hull

import (
	"errors"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Backend errors.
var (
	ErrDegenerate   = errors.New("hull: points do not span three dimensions")
	ErrCookerClosed = errors.New("hull: cooker is closed")
)

// Polygon is one hull face. Indices refer to Hull.Vertices and wind
// counter-clockwise seen from outside. Plane is [a, b, c, d] with the normal
// (a, b, c) pointing outward; backends are not required to normalize it.
type Polygon struct {
	Indices []int
	Plane   [4]float64
}

// Hull is a backend's convex hull result.
type Hull struct {
	Vertices []r3.Vec
	Polygons []Polygon
}

// Backend builds convex hulls.
type Backend interface {
	BuildConvexHull(points []r3.Vec) (*Hull, error)
}

// Compile-time interface check.
var _ Backend = (*Incremental)(nil)

// Cooker owns a backend for the length of an authoring session. Backends
// that are not reentrant are serialized behind a lock; Close ends the
// session and waits for in-flight calls.
type Cooker struct {
	backend   Backend
	reentrant bool

	state  sync.RWMutex
	closed bool
	mu     sync.Mutex
	cooked atomic.Int64
}

// NewCooker wraps backend, or the built-in incremental solver when nil.
func NewCooker(backend Backend) *Cooker {
	if backend == nil {
		backend = NewIncremental()
	}
	c := &Cooker{backend: backend}
	if r, ok := backend.(interface{ Reentrant() bool }); ok {
		c.reentrant = r.Reentrant()
	}
	return c
}

// Cook builds the convex hull of points.
func (c *Cooker) Cook(points []r3.Vec) (*Hull, error) {
	c.state.RLock()
	defer c.state.RUnlock()
	if c.closed {
		return nil, ErrCookerClosed
	}
	c.cooked.Add(1)

	if c.reentrant {
		return c.backend.BuildConvexHull(points)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.BuildConvexHull(points)
}

// Cooked returns how many hulls were requested so far.
func (c *Cooker) Cooked() int {
	return int(c.cooked.Load())
}

// Close releases the backend. Later Cook calls fail with ErrCookerClosed.
func (c *Cooker) Close() error {
	c.state.Lock()
	defer c.state.Unlock()
	if c.closed {
		return ErrCookerClosed
	}
	c.closed = true
	return nil
}
