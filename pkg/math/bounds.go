package math

// Bounds is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBounds as the starting point for accumulation.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// EmptyBounds returns an inverted box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Vec3{1e30, 1e30, 1e30},
		Max: Vec3{-1e30, -1e30, -1e30},
	}
}

// BoundsOf returns the bounds of the given points.
func BoundsOf(points []Vec3) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Extend grows the box to include p.
func (b Bounds) Extend(p Vec3) Bounds {
	return Bounds{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// IsEmpty reports whether no point has been added.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns the half-size of the box along each axis.
func (b Bounds) Extent() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Corners returns the 8 box corners, min corner first, X varying fastest.
func (b Bounds) Corners() [8]Vec3 {
	var c [8]Vec3
	for i := range c {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		c[i] = p
	}
	return c
}
