package engine

import "math"

// GridMap owns the occupancy grid and the grid/world transform.
// Entrance and exit cells are reserved and never occupiable.
type GridMap struct {
	width    int
	height   int
	cellSize float64
	cells    []Cell
	entrance GridPos
	exit     GridPos
}

// NewGridMap creates an empty grid with reserved entrance and exit cells
func NewGridMap(width, height int, cellSize float64, entrance, exit GridPos) *GridMap {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &GridMap{
		width:    width,
		height:   height,
		cellSize: cellSize,
		cells:    make([]Cell, width*height),
		entrance: entrance,
		exit:     exit,
	}
}

func (g *GridMap) Width() int { return g.width }
func (g *GridMap) Height() int { return g.height }
func (g *GridMap) CellSize() float64 { return g.cellSize }
func (g *GridMap) Entrance() GridPos { return g.entrance }
func (g *GridMap) Exit() GridPos { return g.exit }

// InBounds reports whether (x,y) lies on the grid
func (g *GridMap) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// IsReserved reports whether the cell is the entrance or the exit
func (g *GridMap) IsReserved(x, y int) bool {
	return (x == g.entrance.X && y == g.entrance.Y) || (x == g.exit.X && y == g.exit.Y)
}

// CellAt returns the cell content; out-of-bounds reads as empty
func (g *GridMap) CellAt(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Cell{Kind: CellEmpty, Facility: NoFacility}
	}
	return g.cells[y*g.width+x]
}

// FacilityAt returns the facility occupying the cell, if any
func (g *GridMap) FacilityAt(x, y int) (FacilityID, bool) {
	c := g.CellAt(x, y)
	if c.Kind == CellEmpty {
		return NoFacility, false
	}
	return c.Facility, true
}

// IsWalkable checks if a visitor may pass through the cell
func (g *GridMap) IsWalkable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	if g.IsReserved(x, y) {
		return false
	}
	return g.cells[y*g.width+x].Kind == CellEmpty
}

// CanPlace validates a w×h footprint with its origin at (x,y)
func (g *GridMap) CanPlace(x, y, w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			cx, cy := x+dx, y+dy
			if !g.InBounds(cx, cy) || g.IsReserved(cx, cy) {
				return false
			}
			if g.cells[cy*g.width+cx].Kind != CellEmpty {
				return false
			}
		}
	}
	return true
}

// TouchesFacility calls match for every distinct facility found in the
// Chebyshev ring around the footprint and reports whether any call returned true.
func (g *GridMap) TouchesFacility(x, y, w, h int, match func(FacilityID) bool) bool {
	seen := make(map[FacilityID]bool)
	for cy := y - 1; cy <= y+h; cy++ {
		for cx := x - 1; cx <= x+w; cx++ {
			if !g.InBounds(cx, cy) {
				continue
			}
			id, ok := g.FacilityAt(cx, cy)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			if match(id) {
				return true
			}
		}
	}
	return false
}

// Occupy marks the footprint as belonging to the facility: Root at the origin, Part elsewhere
func (g *GridMap) Occupy(id FacilityID, x, y, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			kind := CellPart
			if dx == 0 && dy == 0 {
				kind = CellRoot
			}
			g.cells[(y+dy)*g.width+x+dx] = Cell{Kind: kind, Facility: id}
		}
	}
}

// GridToWorld maps a grid cell to its world-space center
func (g *GridMap) GridToWorld(gx, gy int) WorldPos {
	return WorldPos{
		X: float64(gx)*g.cellSize - float64(g.width)*g.cellSize/2,
		Z: float64(gy)*g.cellSize - float64(g.height)*g.cellSize/2,
	}
}

// WorldToGrid is the inverse of GridToWorld, rounding to the nearest cell
func (g *GridMap) WorldToGrid(x, z float64) GridPos {
	return GridPos{
		X: int(math.Round((x + float64(g.width)*g.cellSize/2) / g.cellSize)),
		Y: int(math.Round((z + float64(g.height)*g.cellSize/2) / g.cellSize)),
	}
}
