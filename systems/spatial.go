// Package systems provides the per-tick systems of the simulation.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

// CellIndex addresses one grid cell by column and row.
type CellIndex struct {
	Col, Row int
}

// SpatialGrid is a sparse bucket map from row to column to the entities in that cell.
// It is a snapshot: entities that move after Insert stay in their old bucket
// until the grid is rebuilt.
type SpatialGrid struct {
	cellW float32
	cellH float32
	rows  map[int]map[int][]ecs.Entity
	count int
}

// NewSpatialGrid creates an empty grid with the given cell dimensions.
func NewSpatialGrid(cellW, cellH float32) *SpatialGrid {
	return &SpatialGrid{
		cellW: cellW,
		cellH: cellH,
		rows:  make(map[int]map[int][]ecs.Entity),
	}
}

// CellSize returns the cell width and height.
func (g *SpatialGrid) CellSize() (w, h float32) {
	return g.cellW, g.cellH
}

// CellIndex returns the cell containing (x, y).
// Floor division keeps negative coordinates in their own cells instead of folding them onto zero.
func (g *SpatialGrid) CellIndex(x, y float32) CellIndex {
	return CellIndex{
		Col: int(math.Floor(float64(x) / float64(g.cellW))),
		Row: int(math.Floor(float64(y) / float64(g.cellH))),
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	clear(g.rows)
	g.count = 0
}

// Insert appends an entity to the bucket of the cell containing (x, y),
// creating the row and column on demand.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) CellIndex {
	idx := g.CellIndex(x, y)
	row, ok := g.rows[idx.Row]
	if !ok {
		row = make(map[int][]ecs.Entity)
		g.rows[idx.Row] = row
	}
	row[idx.Col] = append(row[idx.Col], e)
	g.count++
	return idx
}

// Cell returns the bucket at idx. Cells that were never populated yield an empty bucket.
func (g *SpatialGrid) Cell(idx CellIndex) []ecs.Entity {
	row, ok := g.rows[idx.Row]
	if !ok {
		return nil
	}
	return row[idx.Col]
}

// NeighborhoodInto appends the contents of the 3x3 block of cells centred on
// center to dst, leaving out entities for which skip returns true.
// Returns the updated slice. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) NeighborhoodInto(dst []ecs.Entity, center CellIndex, skip func(ecs.Entity) bool) []ecs.Entity {
	for row := center.Row - 1; row <= center.Row+1; row++ {
		for col := center.Col - 1; col <= center.Col+1; col++ {
			for _, e := range g.Cell(CellIndex{Col: col, Row: row}) {
				if skip != nil && skip(e) {
					continue
				}
				dst = append(dst, e)
			}
		}
	}
	return dst
}

// Len returns the number of entities indexed since the last Clear.
func (g *SpatialGrid) Len() int {
	return g.count
}

// Each calls fn for every populated cell.
func (g *SpatialGrid) Each(fn func(idx CellIndex, bucket []ecs.Entity)) {
	for r, row := range g.rows {
		for c, bucket := range row {
			if len(bucket) == 0 {
				continue
			}
			fn(CellIndex{Col: c, Row: r}, bucket)
		}
	}
}

// BucketSizes returns the occupancy of every populated cell.
func (g *SpatialGrid) BucketSizes() []float64 {
	sizes := make([]float64, 0, len(g.rows))
	g.Each(func(_ CellIndex, bucket []ecs.Entity) {
		sizes = append(sizes, float64(len(bucket)))
	})
	return sizes
}
