package authoring

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/shatter/pkg/asset"
	"github.com/Faultbox/shatter/pkg/math"
)

// BondResult is the output of GenerateBonds.
type BondResult struct {
	Bonds []asset.Bond
	Graph *asset.SupportGraph

	// ZeroBonds is set when no bond was produced. The asset is still valid
	// but nothing in it can break.
	ZeroBonds bool
}

// boundary accumulates the contact faces of one chunk against one neighbor.
type boundary struct {
	area     float64
	centroid r3.Vec // area-weighted sum
	normal   r3.Vec // area-weighted sum, outward from the owning chunk
}

func (b *boundary) add(t asset.Triangle) {
	rt := t.R3()
	a := rt.Area()
	if a == 0 {
		return
	}
	b.area += a
	b.centroid = r3.Add(b.centroid, r3.Scale(a, rt.Centroid()))
	// Normal has length twice the area.
	b.normal = r3.Add(b.normal, r3.Scale(0.5, rt.Normal()))
}

// bond turns the accumulated boundary into a bond; flip reverses the normal
// when the boundary was collected on the To side.
func (b *boundary) bond(from uint32, to asset.ChunkRef, flip bool) asset.Bond {
	centroid := r3.Scale(1/b.area, b.centroid)
	n := b.normal
	if flip {
		n = r3.Scale(-1, n)
	}
	if r3.Norm(n) > 0 {
		n = r3.Unit(n)
	}
	bd := asset.Bond{
		From:     from,
		To:       to,
		Area:     float32(b.area),
		Centroid: math.FromR3(centroid),
		Normal:   math.FromR3(n),
	}
	bd.Plane = asset.PlaneFrom(bd.Normal, bd.Centroid)
	return bd
}

// GenerateBonds builds the bonds between support chunks from the contacts
// reported by src, and lays out the support graph over them. chunks must
// already have exact coverage.
//
// Each unordered pair of touching support chunks gets one bond from the
// lower index to the higher; each support chunk with world contact gets one
// world bond. A contact on a chunk below a support chunk counts for that
// support chunk; contacts on chunks above the support level are ignored.
// Bonds are ordered by (From, To) with world bonds last for each From.
func GenerateBonds(chunks []asset.Chunk, src AdjacencySource, log *zap.Logger) (*BondResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if src == nil {
		src = TagAdjacency{}
	}

	owner, err := supportOwners(chunks)
	if err != nil {
		return nil, err
	}

	contacts, err := src.Contacts(chunks)
	if err != nil {
		return nil, fmt.Errorf("adjacency: %w", err)
	}

	type side struct{ a, b boundary }
	pairs := make(map[[2]uint32]*side)
	world := make(map[uint32]*boundary)
	var ignored int
	for _, c := range contacts {
		if int(c.From) >= len(chunks) {
			return nil, fmt.Errorf("adjacency: contact on chunk %d, out of range", c.From)
		}
		s := owner[c.From]
		if s < 0 {
			ignored++
			continue
		}
		from := uint32(s)

		if c.To.IsWorld() {
			w := world[from]
			if w == nil {
				w = &boundary{}
				world[from] = w
			}
			w.add(c.Triangle)
			continue
		}
		to, ok := c.To.Index()
		if !ok {
			continue
		}
		if int(to) >= len(chunks) {
			return nil, fmt.Errorf("adjacency: contact of chunk %d names chunk %d, out of range", c.From, to)
		}
		o := owner[to]
		if o < 0 {
			ignored++
			continue
		}
		peer := uint32(o)
		if peer == from {
			continue
		}

		key := [2]uint32{min(from, peer), max(from, peer)}
		p := pairs[key]
		if p == nil {
			p = &side{}
			pairs[key] = p
		}
		if from == key[0] {
			p.a.add(c.Triangle)
		} else {
			p.b.add(c.Triangle)
		}
	}
	if ignored > 0 {
		log.Debug("contacts above the support level ignored", zap.Int("count", ignored))
	}

	var bonds []asset.Bond
	for key, p := range pairs {
		switch {
		case p.a.area > 0:
			bonds = append(bonds, p.a.bond(key[0], asset.ChunkAt(key[1]), false))
		case p.b.area > 0:
			bonds = append(bonds, p.b.bond(key[0], asset.ChunkAt(key[1]), true))
		}
	}
	for from, w := range world {
		if w.area > 0 {
			bonds = append(bonds, w.bond(from, asset.World(), false))
		}
	}
	slices.SortFunc(bonds, func(x, y asset.Bond) int {
		switch {
		case x.From < y.From:
			return -1
		case x.From > y.From:
			return 1
		case x.To.Less(y.To):
			return -1
		case y.To.Less(x.To):
			return 1
		}
		return 0
	})

	var nodes []uint32
	for i := range chunks {
		if chunks[i].Support {
			nodes = append(nodes, uint32(i))
		}
	}
	graph, err := asset.BuildSupportGraph(nodes, bonds)
	if err != nil {
		return nil, fmt.Errorf("support graph: %w", err)
	}

	res := &BondResult{Bonds: bonds, Graph: graph, ZeroBonds: len(bonds) == 0}
	if res.ZeroBonds {
		log.Info("no bonds generated, asset will not break", zap.Int("support_chunks", len(nodes)))
	} else {
		log.Debug("bonds generated", zap.Int("bonds", len(bonds)), zap.Int("support_chunks", len(nodes)))
	}
	return res, nil
}

// supportOwners maps each chunk to its support ancestor-or-self, or -1 when
// the chunk lies above the support level.
func supportOwners(chunks []asset.Chunk) ([]int, error) {
	owner := make([]int, len(chunks))
	for i := range chunks {
		owner[i] = -1
		// Depth bounds the walk; a longer one means the links changed
		// since coverage ran.
		c := uint32(i)
		for steps := uint32(0); ; steps++ {
			if steps > chunks[i].Depth {
				return nil, fmt.Errorf("%w: chunk %d: parent chain longer than its depth", asset.ErrMalformedHierarchy, i)
			}
			if chunks[c].Support {
				owner[i] = int(c)
				break
			}
			p, ok := chunks[c].Parent.Index()
			if !ok || int(p) >= len(chunks) {
				break
			}
			c = p
		}
	}
	return owner, nil
}

// MarkStatic flags every support chunk with a world bond as static, and
// every ancestor of a static chunk as well.
func MarkStatic(chunks []asset.Chunk, bonds []asset.Bond) {
	for i := range bonds {
		if !bonds[i].IsWorld() || int(bonds[i].From) >= len(chunks) {
			continue
		}
		c := bonds[i].From
		for steps := 0; steps <= len(chunks) && !chunks[c].Static; steps++ {
			chunks[c].Static = true
			p, ok := chunks[c].Parent.Index()
			if !ok || int(p) >= len(chunks) {
				break
			}
			c = p
		}
	}
}
