package spatial

import (
	"testing"

	"iron-and-ash/sim/internal/fixed"
)

func testGrid(t *testing.T) *Grid {
	t.Helper()
	bounds := NewRect(fixed.FromInt(-50), fixed.FromInt(-50), fixed.FromInt(50), fixed.FromInt(50))
	grid, err := NewGrid(bounds, fixed.FromInt(5))
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return grid
}

func idsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGridInsertQueryRemove(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 0, 0, 2))
	grid.Insert(circleAt(2, 10, 10, 2))
	grid.Insert(boxAt(3, -10, 0, 3, 3))

	region := NewRect(fixed.FromInt(-15), fixed.FromInt(-5), fixed.FromInt(5), fixed.FromInt(5))
	got := grid.QueryRegion(region)
	if !idsEqual(got, []int64{1, 3}) {
		t.Fatalf("QueryRegion = %v, want [1 3]", got)
	}

	grid.Remove(3)
	got = grid.QueryRegion(region)
	if !idsEqual(got, []int64{1}) {
		t.Fatalf("QueryRegion after Remove = %v, want [1]", got)
	}
	if grid.Len() != 2 {
		t.Fatalf("Len = %d, want 2", grid.Len())
	}
}

func TestGridReinsertMovesShape(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 0, 0, 1))
	grid.Insert(circleAt(1, 30, 30, 1))

	near := grid.QueryRegion(NewRect(fixed.FromInt(-2), fixed.FromInt(-2), fixed.FromInt(2), fixed.FromInt(2)))
	if len(near) != 0 {
		t.Fatalf("stale cells still answer queries: %v", near)
	}
	far := grid.QueryRegion(NewRect(fixed.FromInt(28), fixed.FromInt(28), fixed.FromInt(32), fixed.FromInt(32)))
	if !idsEqual(far, []int64{1}) {
		t.Fatalf("moved shape missing: %v", far)
	}
}

func TestGridDegenerateShapeOccupiesCenterCell(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 7, 7, 0))

	entry := grid.entries[1]
	if len(entry.cells) != 1 {
		t.Fatalf("zero-radius shape covers %d cells, want exactly 1", len(entry.cells))
	}
	got := grid.QueryRegion(NewRect(fixed.FromInt(6), fixed.FromInt(6), fixed.FromInt(8), fixed.FromInt(8)))
	if !idsEqual(got, []int64{1}) {
		t.Fatalf("degenerate shape not found at its center cell: %v", got)
	}
}

func TestGridOutOfBoundsClampsToBorderCells(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 500, 500, 1))

	if grid.Len() != 1 {
		t.Fatalf("out-of-bounds shape dropped from the index")
	}
	grid.Remove(1)
	if grid.Len() != 0 {
		t.Fatalf("clamped shape left residue after Remove")
	}
}

func TestGridLayerMask(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 0, 0, 2).WithLayer(0b01))
	grid.Insert(circleAt(2, 1, 0, 2).WithLayer(0b10))

	region := NewRect(fixed.FromInt(-5), fixed.FromInt(-5), fixed.FromInt(5), fixed.FromInt(5))
	if got := grid.QueryRegionMask(region, 0b01); !idsEqual(got, []int64{1}) {
		t.Fatalf("mask 01 = %v, want [1]", got)
	}
	if got := grid.QueryRegionMask(region, 0b10); !idsEqual(got, []int64{2}) {
		t.Fatalf("mask 10 = %v, want [2]", got)
	}
	if got := grid.QueryRegionMask(region, 0b11); !idsEqual(got, []int64{1, 2}) {
		t.Fatalf("mask 11 = %v, want [1 2]", got)
	}
}

func TestGridQueryShapeExcludesSelf(t *testing.T) {
	grid := testGrid(t)
	a := circleAt(1, 0, 0, 2)
	grid.Insert(a)
	grid.Insert(circleAt(2, 1, 1, 2))

	got := grid.QueryShape(a)
	if !idsEqual(got, []int64{2}) {
		t.Fatalf("QueryShape = %v, want [2]", got)
	}
}

// TestGridMatchesBruteForce drives a seeded set of shapes and checks that
// grid queries return exactly the ids a direct bounding-box scan finds.
func TestGridMatchesBruteForce(t *testing.T) {
	grid := testGrid(t)
	rng := fixed.NewRand(2026)

	shapes := make([]Shape, 0, 64)
	coord := func() fixed.Scalar {
		return rng.ScalarRange(fixed.FromInt(-45), fixed.FromInt(45))
	}
	size := func() fixed.Scalar {
		return rng.ScalarRange(fixed.FromRaw(1), fixed.FromInt(6))
	}
	for i := int64(0); i < 64; i++ {
		var shape Shape
		if i%2 == 0 {
			shape = NewCircle(i, fixed.V2(coord(), coord()), size())
		} else {
			shape = NewBox(i, fixed.V2(coord(), coord()), size(), size())
		}
		shapes = append(shapes, shape)
		grid.Insert(shape)
	}

	for q := 0; q < 50; q++ {
		region := NewRect(coord(), coord(), coord(), coord())
		got := grid.QueryRegion(region)

		var want []int64
		for _, shape := range shapes {
			if shape.Bounds().Overlaps(region) {
				want = append(want, shape.EntityID)
			}
		}
		if !idsEqual(got, want) {
			t.Fatalf("query %d region %+v: grid %v, brute force %v", q, region, got, want)
		}
	}
}

func TestCollidePairsMatchesBruteForce(t *testing.T) {
	grid := testGrid(t)
	rng := fixed.NewRand(777)
	coord := func() fixed.Scalar {
		return rng.ScalarRange(fixed.FromInt(-40), fixed.FromInt(40))
	}

	shapes := make([]Shape, 0, 40)
	for i := int64(0); i < 40; i++ {
		shape := NewCircle(i, fixed.V2(coord(), coord()), rng.ScalarRange(fixed.One, fixed.FromInt(4)))
		shapes = append(shapes, shape)
		grid.Insert(shape)
	}

	pairs := CollidePairs(grid)
	seen := make(map[[2]int64]bool, len(pairs))
	for _, pair := range pairs {
		if pair.A >= pair.B {
			t.Fatalf("pair %v not ordered", pair)
		}
		key := [2]int64{pair.A, pair.B}
		if seen[key] {
			t.Fatalf("pair %v reported twice", pair)
		}
		seen[key] = true
	}

	for i := range shapes {
		for j := i + 1; j < len(shapes); j++ {
			_, hit := Overlap(shapes[i], shapes[j])
			key := [2]int64{shapes[i].EntityID, shapes[j].EntityID}
			if hit != seen[key] {
				t.Fatalf("pair %v: brute force %v, grid %v", key, hit, seen[key])
			}
		}
	}
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	bounds := NewRect(fixed.Zero, fixed.Zero, fixed.FromInt(10), fixed.FromInt(10))
	if _, err := NewGrid(bounds, fixed.Zero); err == nil {
		t.Fatalf("zero cell size accepted")
	}
	if _, err := NewGrid(Rect{}, fixed.One); err == nil {
		t.Fatalf("degenerate bounds accepted")
	}
}

func TestGridQueryIncludesEntityZero(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(0, 0, 0, 2))
	grid.Insert(circleAt(1, 3, 0, 2))

	region := NewRect(fixed.FromInt(-5), fixed.FromInt(-5), fixed.FromInt(5), fixed.FromInt(5))
	got := grid.QueryRegion(region)
	if !idsEqual(got, []int64{0, 1}) {
		t.Fatalf("QueryRegion = %v, want [0 1]", got)
	}
	if got := grid.QueryRegionMask(region, 1); !idsEqual(got, []int64{0, 1}) {
		t.Fatalf("QueryRegionMask = %v, want [0 1]", got)
	}

	// Self-exclusion still works for the zero id.
	shape, ok := grid.Shape(0)
	if !ok {
		t.Fatal("Shape(0) missing")
	}
	if got := grid.QueryShape(shape); !idsEqual(got, []int64{1}) {
		t.Fatalf("QueryShape(0) = %v, want [1]", got)
	}

	pairs := CollidePairs(grid)
	if len(pairs) != 1 || pairs[0].A != 0 || pairs[0].B != 1 {
		t.Fatalf("CollidePairs = %+v, want the (0, 1) pair", pairs)
	}
}

func TestGridDisabledShapeHiddenFromQueries(t *testing.T) {
	grid := testGrid(t)
	grid.Insert(circleAt(1, 0, 0, 2))
	grid.Insert(circleAt(2, 3, 0, 2).WithEnabled(false))

	region := NewRect(fixed.FromInt(-5), fixed.FromInt(-5), fixed.FromInt(5), fixed.FromInt(5))
	if got := grid.QueryRegion(region); !idsEqual(got, []int64{1}) {
		t.Fatalf("QueryRegion = %v, want [1]", got)
	}
	if pairs := CollidePairs(grid); len(pairs) != 0 {
		t.Fatalf("CollidePairs = %+v, want none with one side disabled", pairs)
	}

	// Re-enabling restores participation.
	grid.Insert(circleAt(2, 3, 0, 2))
	if got := grid.QueryRegion(region); !idsEqual(got, []int64{1, 2}) {
		t.Fatalf("QueryRegion after re-enable = %v, want [1 2]", got)
	}
	if pairs := CollidePairs(grid); len(pairs) != 1 {
		t.Fatalf("CollidePairs after re-enable = %+v, want one pair", pairs)
	}
}
