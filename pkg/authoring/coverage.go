package authoring

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/shatter/pkg/asset"
)

// CoverageCorrections lists the support flags EnsureExactCoverage changed,
// by chunk index.
type CoverageCorrections struct {
	Unflagged []uint32 // support chunks under another support chunk
	Flagged   []uint32 // leaves no support chunk covered
}

// Count returns the number of flags changed.
func (c CoverageCorrections) Count() int {
	return len(c.Unflagged) + len(c.Flagged)
}

// EnsureExactCoverage fixes the support flags so that every leaf is covered
// by exactly one support chunk: itself or one ancestor. A support chunk
// clears the flag of all its descendants; leaves left uncovered are flagged.
// Depth is set on every chunk along the way.
//
// The hierarchy must have exactly one root and no cycles, otherwise the call
// fails with asset.ErrMalformedHierarchy and chunks are left untouched.
// Running it again on its own output changes nothing.
func EnsureExactCoverage(chunks []asset.Chunk, log *zap.Logger) (CoverageCorrections, error) {
	if log == nil {
		log = zap.NewNop()
	}

	children, root, err := hierarchy(chunks)
	if err != nil {
		return CoverageCorrections{}, err
	}

	// Parent links are single-valued, so any chunk the walk from the root
	// does not reach sits on or below a cycle.
	type item struct {
		node    uint32
		depth   uint32
		covered bool
	}
	visited := make([]bool, len(chunks))
	depth := make([]uint32, len(chunks))
	support := make([]bool, len(chunks))
	var fix CoverageCorrections

	stack := []item{{node: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[it.node] {
			return CoverageCorrections{}, fmt.Errorf("%w: chunk %d reached twice", asset.ErrMalformedHierarchy, it.node)
		}
		visited[it.node] = true
		depth[it.node] = it.depth

		flagged := chunks[it.node].Support
		switch {
		case it.covered && flagged:
			fix.Unflagged = append(fix.Unflagged, it.node)
			flagged = false
		case !it.covered && !flagged && len(children[it.node]) == 0:
			fix.Flagged = append(fix.Flagged, it.node)
			flagged = true
		}
		support[it.node] = flagged

		kids := children[it.node]
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, item{node: kids[k], depth: it.depth + 1, covered: it.covered || flagged})
		}
	}

	var cyclic []uint32
	for i, ok := range visited {
		if !ok {
			cyclic = append(cyclic, uint32(i))
		}
	}
	if len(cyclic) > 0 {
		return CoverageCorrections{}, fmt.Errorf("%w: chunks %v are not reachable from the root (parent cycle)", asset.ErrMalformedHierarchy, cyclic)
	}

	for i := range chunks {
		chunks[i].Depth = depth[i]
		chunks[i].Support = support[i]
	}
	slices.Sort(fix.Unflagged)
	slices.Sort(fix.Flagged)

	if fix.Count() > 0 {
		log.Debug("support coverage corrected",
			zap.Uint32s("unflagged", fix.Unflagged),
			zap.Uint32s("flagged", fix.Flagged))
	}
	return fix, nil
}

// hierarchy returns the child lists, sorted by upstream id, and the single
// root.
func hierarchy(chunks []asset.Chunk) ([][]uint32, uint32, error) {
	if len(chunks) == 0 {
		return nil, 0, fmt.Errorf("%w: no chunks", asset.ErrMalformedHierarchy)
	}

	children := make([][]uint32, len(chunks))
	var roots []uint32
	for i := range chunks {
		c := &chunks[i]
		if c.Parent.IsWorld() {
			return nil, 0, fmt.Errorf("%w: chunk %d has the world as parent", asset.ErrMalformedHierarchy, i)
		}
		p, ok := c.Parent.Index()
		if !ok {
			roots = append(roots, uint32(i))
			continue
		}
		if int(p) >= len(chunks) {
			return nil, 0, fmt.Errorf("%w: chunk %d has parent %d, out of range", asset.ErrMalformedHierarchy, i, p)
		}
		if p == uint32(i) {
			return nil, 0, fmt.Errorf("%w: chunk %d is its own parent", asset.ErrMalformedHierarchy, i)
		}
		children[p] = append(children[p], uint32(i))
	}

	switch len(roots) {
	case 0:
		return nil, 0, fmt.Errorf("%w: no root chunk (parent cycle)", asset.ErrMalformedHierarchy)
	case 1:
	default:
		return nil, 0, fmt.Errorf("%w: %d root chunks %v, want one", asset.ErrMalformedHierarchy, len(roots), roots)
	}

	for _, kids := range children {
		slices.SortFunc(kids, func(a, b uint32) int {
			sa, sb := chunks[a].SourceID, chunks[b].SourceID
			switch {
			case sa < sb:
				return -1
			case sa > sb:
				return 1
			}
			return int(a) - int(b)
		})
	}
	return children, roots[0], nil
}
