package spatial

import (
	"sort"

	"iron-and-ash/sim/internal/fixed"
)

// Contact describes an exact overlap between two shapes. Normal points
// from the first shape toward the second; Depth is the penetration along
// it. Both are fixed-point so identical inputs resolve identically on
// every machine.
type Contact struct {
	Normal fixed.Vec2
	Depth  fixed.Scalar
}

// Overlap runs the exact narrow-phase test for two shapes. Touching
// boundaries count as overlap.
func Overlap(a, b Shape) (Contact, bool) {
	switch {
	case a.Kind == ShapeCircle && b.Kind == ShapeCircle:
		return circleVsCircle(a, b)
	case a.Kind == ShapeCircle && b.Kind == ShapeBox:
		return circleVsBox(a, b)
	case a.Kind == ShapeBox && b.Kind == ShapeCircle:
		contact, hit := circleVsBox(b, a)
		if hit {
			contact.Normal = fixed.V2(contact.Normal.X.Neg(), contact.Normal.Z.Neg())
		}
		return contact, hit
	default:
		return boxVsBox(a, b)
	}
}

// circleVsCircle compares squared center distance against the squared
// radius sum, avoiding a square root unless the pair actually overlaps.
func circleVsCircle(a, b Shape) (Contact, bool) {
	delta := b.Center.Sub(a.Center)
	distSq := delta.LengthSq()
	radii := a.Radius.Add(b.Radius)
	if distSq > radii.Mul(radii) {
		return Contact{}, false
	}
	dist := delta.Length()
	normal, ok := delta.Normalized()
	if !ok {
		// Concentric circles; push along +X so resolution stays
		// deterministic.
		normal = fixed.V2(fixed.One, fixed.Zero)
	}
	return Contact{Normal: normal, Depth: radii.Sub(dist)}, true
}

// circleVsBox clamps the circle center onto the box to find the closest
// point. A center strictly inside the box resolves against the closest
// edge; exact ties pick edges in a fixed order: min X, max X, min Z,
// max Z.
func circleVsBox(circle, box Shape) (Contact, bool) {
	bounds := box.Bounds()
	closest := fixed.V2(
		circle.Center.X.Clamp(bounds.MinX, bounds.MaxX),
		circle.Center.Z.Clamp(bounds.MinZ, bounds.MaxZ),
	)
	delta := closest.Sub(circle.Center)
	if !delta.IsZero() {
		distSq := delta.LengthSq()
		if distSq > circle.Radius.Mul(circle.Radius) {
			return Contact{}, false
		}
		dist := delta.Length()
		normal, _ := delta.Normalized()
		return Contact{Normal: normal, Depth: circle.Radius.Sub(dist)}, true
	}

	// Center inside the box: distance to each edge, tested in the fixed
	// tie-break order.
	type edge struct {
		dist   fixed.Scalar
		normal fixed.Vec2
	}
	edges := [4]edge{
		{circle.Center.X.Sub(bounds.MinX), fixed.V2(fixed.One.Neg(), fixed.Zero)},
		{bounds.MaxX.Sub(circle.Center.X), fixed.V2(fixed.One, fixed.Zero)},
		{circle.Center.Z.Sub(bounds.MinZ), fixed.V2(fixed.Zero, fixed.One.Neg())},
		{bounds.MaxZ.Sub(circle.Center.Z), fixed.V2(fixed.Zero, fixed.One)},
	}
	best := edges[0]
	for _, e := range edges[1:] {
		if e.dist < best.dist {
			best = e
		}
	}
	return Contact{Normal: best.normal, Depth: best.dist.Add(circle.Radius)}, true
}

// boxVsBox tests interval overlap per axis and resolves along the axis of
// least penetration, X winning exact ties.
func boxVsBox(a, b Shape) (Contact, bool) {
	ab, bb := a.Bounds(), b.Bounds()
	if !ab.Overlaps(bb) {
		return Contact{}, false
	}
	overlapX := minScalar(ab.MaxX, bb.MaxX).Sub(maxScalar(ab.MinX, bb.MinX))
	overlapZ := minScalar(ab.MaxZ, bb.MaxZ).Sub(maxScalar(ab.MinZ, bb.MinZ))

	if overlapX <= overlapZ {
		normal := fixed.V2(fixed.One, fixed.Zero)
		if b.Center.X < a.Center.X {
			normal.X = normal.X.Neg()
		}
		return Contact{Normal: normal, Depth: overlapX}, true
	}
	normal := fixed.V2(fixed.Zero, fixed.One)
	if b.Center.Z < a.Center.Z {
		normal.Z = normal.Z.Neg()
	}
	return Contact{Normal: normal, Depth: overlapZ}, true
}

func minScalar(a, b fixed.Scalar) fixed.Scalar {
	if a < b {
		return a
	}
	return b
}

func maxScalar(a, b fixed.Scalar) fixed.Scalar {
	if a > b {
		return a
	}
	return b
}

// Pair is one confirmed collision between two entities, ordered so the
// smaller id comes first.
type Pair struct {
	A       int64
	B       int64
	Contact Contact
}

// CollidePairs runs broad phase over the grid followed by exact narrow
// phase, returning each overlapping pair exactly once in ascending
// (A, B) order.
func CollidePairs(grid *Grid) []Pair {
	ids := make([]int64, 0, grid.Len())
	for id := range grid.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var pairs []Pair
	for _, id := range ids {
		entry := grid.entries[id]
		if !entry.shape.Enabled {
			continue
		}
		for _, other := range grid.QueryShape(entry.shape) {
			if other <= id {
				continue
			}
			otherEntry := grid.entries[other]
			if otherEntry == nil {
				continue
			}
			if contact, hit := Overlap(entry.shape, otherEntry.shape); hit {
				pairs = append(pairs, Pair{A: id, B: other, Contact: contact})
			}
		}
	}
	return pairs
}
