package spatial

import (
	"fmt"
	"sort"

	"iron-and-ash/sim/internal/fixed"
)

type cellKey struct {
	X int32
	Z int32
}

type gridEntry struct {
	shape Shape
	cells []cellKey
}

// Grid is a uniform spatial hash over a fixed world rectangle. Insert
// records the covered cell list per entity so Remove undoes exactly that
// set; queries union cell buckets and return ids in ascending order so the
// result is a pure function of the grid's contents.
//
// The grid is not synchronized; the simulation tick owns it.
type Grid struct {
	bounds   Rect
	cellSize fixed.Scalar
	cols     int32
	rows     int32
	cells    map[cellKey][]int64
	entries  map[int64]*gridEntry
	scratch  map[int64]struct{}
}

// NewGrid partitions the world rect into cellSize-sized cells.
func NewGrid(bounds Rect, cellSize fixed.Scalar) (*Grid, error) {
	if cellSize <= fixed.Zero {
		return nil, fmt.Errorf("spatial: cell size must be positive, got %s", cellSize)
	}
	if bounds.MaxX <= bounds.MinX || bounds.MaxZ <= bounds.MinZ {
		return nil, fmt.Errorf("spatial: degenerate world bounds")
	}
	cols := int32(bounds.Width().Raw()/cellSize.Raw()) + 1
	rows := int32(bounds.Depth().Raw()/cellSize.Raw()) + 1
	return &Grid{
		bounds:   bounds,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make(map[cellKey][]int64),
		entries:  make(map[int64]*gridEntry),
		scratch:  make(map[int64]struct{}),
	}, nil
}

// Bounds returns the world rect the grid covers.
func (g *Grid) Bounds() Rect {
	return g.bounds
}

// Len is the number of indexed entities.
func (g *Grid) Len() int {
	return len(g.entries)
}

// Insert indexes the shape under its entity id, replacing any previous
// shape for the same id.
func (g *Grid) Insert(shape Shape) {
	if entry, ok := g.entries[shape.EntityID]; ok {
		g.removeFromCells(shape.EntityID, entry.cells)
	}
	covered := g.cellsForRect(shape.Bounds())
	g.entries[shape.EntityID] = &gridEntry{shape: shape, cells: covered}
	for _, cell := range covered {
		g.cells[cell] = append(g.cells[cell], shape.EntityID)
	}
}

// Remove drops the entity from every cell its insert recorded.
func (g *Grid) Remove(entityID int64) {
	entry, ok := g.entries[entityID]
	if !ok {
		return
	}
	g.removeFromCells(entityID, entry.cells)
	delete(g.entries, entityID)
}

// Shape returns the indexed shape for the entity, if present.
func (g *Grid) Shape(entityID int64) (Shape, bool) {
	entry, ok := g.entries[entityID]
	if !ok {
		return Shape{}, false
	}
	return entry.shape, true
}

// Clear drops every indexed entity, keeping allocated capacity.
func (g *Grid) Clear() {
	for key := range g.cells {
		delete(g.cells, key)
	}
	for id := range g.entries {
		delete(g.entries, id)
	}
}

// QueryRegion returns every entity id whose shape occupies a cell
// overlapping the region, bounding-box filtered, in ascending id order.
func (g *Grid) QueryRegion(region Rect) []int64 {
	return g.query(region, 0, false, ^uint32(0))
}

// QueryRegionMask is QueryRegion restricted to shapes matching the layer
// mask.
func (g *Grid) QueryRegionMask(region Rect, mask uint32) []int64 {
	return g.query(region, 0, false, mask)
}

// QueryShape returns candidate ids whose bounds overlap the shape's
// bounds, excluding the shape's own entity. The caller narrows the
// candidates with the exact tests in this package.
func (g *Grid) QueryShape(shape Shape) []int64 {
	return g.query(shape.Bounds(), shape.EntityID, true, ^uint32(0))
}

// query unions the cell buckets the region covers. Any entity id is valid,
// zero included, so exclusion is an explicit flag rather than a sentinel.
func (g *Grid) query(region Rect, exclude int64, hasExclude bool, mask uint32) []int64 {
	for id := range g.scratch {
		delete(g.scratch, id)
	}
	var out []int64
	for _, cell := range g.cellsForRect(region) {
		for _, id := range g.cells[cell] {
			if hasExclude && id == exclude {
				continue
			}
			if _, seen := g.scratch[id]; seen {
				continue
			}
			g.scratch[id] = struct{}{}
			entry := g.entries[id]
			if entry == nil || !entry.shape.Enabled || entry.shape.Layer&mask == 0 {
				continue
			}
			if !entry.shape.Bounds().Overlaps(region) {
				continue
			}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// cellsForRect lists the cells the rect's clamped bounds cover, row-major.
// A degenerate rect still covers the single cell containing its center.
func (g *Grid) cellsForRect(r Rect) []cellKey {
	minCX, minCZ := g.cellAt(r.MinX, r.MinZ)
	maxCX, maxCZ := g.cellAt(r.MaxX, r.MaxZ)
	cells := make([]cellKey, 0, int(maxCX-minCX+1)*int(maxCZ-minCZ+1))
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			cells = append(cells, cellKey{X: cx, Z: cz})
		}
	}
	return cells
}

// cellAt maps a world point to its cell, clamping to the world rect so
// out-of-bounds shapes land in the border cells.
func (g *Grid) cellAt(x, z fixed.Scalar) (int32, int32) {
	x = x.Clamp(g.bounds.MinX, g.bounds.MaxX)
	z = z.Clamp(g.bounds.MinZ, g.bounds.MaxZ)
	cx := int32((x.Raw() - g.bounds.MinX.Raw()) / g.cellSize.Raw())
	cz := int32((z.Raw() - g.bounds.MinZ.Raw()) / g.cellSize.Raw())
	if cx >= g.cols {
		cx = g.cols - 1
	}
	if cz >= g.rows {
		cz = g.rows - 1
	}
	return cx, cz
}

func (g *Grid) removeFromCells(entityID int64, cells []cellKey) {
	for _, cell := range cells {
		bucket := g.cells[cell]
		if len(bucket) == 0 {
			continue
		}
		for i := range bucket {
			if bucket[i] != entityID {
				continue
			}
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
		if len(bucket) == 0 {
			delete(g.cells, cell)
		} else {
			g.cells[cell] = bucket
		}
	}
}
