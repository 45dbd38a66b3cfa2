package asset

import (
	"fmt"
	"slices"
)

// ReorderMap is a chunk index permutation: Forward[old] = new and
// Inverse[new] = old.
type ReorderMap struct {
	Forward []uint32
	Inverse []uint32
}

// NewReorderMap checks that forward is a bijection over [0, len(forward))
// and returns it with its inverse.
func NewReorderMap(forward []uint32) (ReorderMap, error) {
	inverse, err := Invert(forward)
	if err != nil {
		return ReorderMap{}, err
	}
	m := ReorderMap{Forward: slices.Clone(forward), Inverse: inverse}
	if err := m.Verify(); err != nil {
		return ReorderMap{}, err
	}
	return m, nil
}

// Invert returns inverse[new] = old for a permutation old -> new.
func Invert(forward []uint32) ([]uint32, error) {
	n := len(forward)
	inverse := make([]uint32, n)
	filled := make([]bool, n)
	for old, nw := range forward {
		if int(nw) >= n {
			return nil, fmt.Errorf("%w: index %d maps to %d, outside [0,%d)", ErrReorderInconsistency, old, nw, n)
		}
		if filled[nw] {
			return nil, fmt.Errorf("%w: index %d is the target of two chunks", ErrReorderInconsistency, nw)
		}
		filled[nw] = true
		inverse[nw] = uint32(old)
	}
	return inverse, nil
}

// Len returns the number of chunks covered by the map.
func (m ReorderMap) Len() int {
	return len(m.Forward)
}

// New returns the new index of old chunk index i.
func (m ReorderMap) New(i uint32) uint32 {
	return m.Forward[i]
}

// Old returns the old index of new chunk index i.
func (m ReorderMap) Old(i uint32) uint32 {
	return m.Inverse[i]
}

// IsIdentity reports whether no chunk moves.
func (m ReorderMap) IsIdentity() bool {
	for i, v := range m.Forward {
		if uint32(i) != v {
			return false
		}
	}
	return true
}

// Verify checks that Forward and Inverse compose to the identity both ways.
func (m ReorderMap) Verify() error {
	if len(m.Forward) != len(m.Inverse) {
		return fmt.Errorf("%w: map covers %d chunks but inverse covers %d",
			ErrReorderInconsistency, len(m.Forward), len(m.Inverse))
	}
	n := uint32(len(m.Forward))
	for i := uint32(0); i < n; i++ {
		f := m.Forward[i]
		if f >= n || m.Inverse[f] != i {
			return fmt.Errorf("%w: inverse(map(%d)) != %d", ErrReorderInconsistency, i, i)
		}
		b := m.Inverse[i]
		if b >= n || m.Forward[b] != i {
			return fmt.Errorf("%w: map(inverse(%d)) != %d", ErrReorderInconsistency, i, i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m ReorderMap) Clone() ReorderMap {
	return ReorderMap{Forward: slices.Clone(m.Forward), Inverse: slices.Clone(m.Inverse)}
}
