package main

const (
	GridCellSize = 80.0 // twice the large asteroid radius
	GridCols     = int(WorldWidth/GridCellSize) + 1
	GridRows     = int(WorldHeight/GridCellSize) + 1
)

// SpatialGrid is a fixed-size grid for broad-phase collision queries.
// Cells hold indexes into the slice that was inserted.
type SpatialGrid struct {
	cells [GridCols * GridRows][]int
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// cellRange returns the clamped cell bounds of the box around a circle
func cellRange(p Vec2, radius float64) (minCX, maxCX, minCY, maxCY int) {
	clampCell := func(c, n int) int {
		if c < 0 {
			return 0
		}
		if c >= n {
			return n - 1
		}
		return c
	}
	minCX = clampCell(int((p.X-radius)/GridCellSize), GridCols)
	maxCX = clampCell(int((p.X+radius)/GridCellSize), GridCols)
	minCY = clampCell(int((p.Y-radius)/GridCellSize), GridRows)
	maxCY = clampCell(int((p.Y+radius)/GridCellSize), GridRows)
	return
}

// InsertCircle adds idx to all cells overlapping the circle's bounding box
func (g *SpatialGrid) InsertCircle(p Vec2, radius float64, idx int) {
	minCX, maxCX, minCY, maxCY := cellRange(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			c := cy*GridCols + cx
			g.cells[c] = append(g.cells[c], idx)
		}
	}
}

// QueryBuf appends the indexes in cells overlapping the bounding box to buf.
// An index can appear more than once.
func (g *SpatialGrid) QueryBuf(p Vec2, radius float64, buf []int) []int {
	minCX, maxCX, minCY, maxCY := cellRange(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*GridCols+cx]...)
		}
	}
	return buf
}
