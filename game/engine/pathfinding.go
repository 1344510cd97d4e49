package engine

import "container/heap"

// Route is a planned sequence of grid cells. Stops maps a path index to the
// facility the visitor intends to use when it enters that cell.
type Route struct {
	Cells []GridPos
	Stops map[int]FacilityID
}

// Len returns the number of cells in the route
func (r Route) Len() int { return len(r.Cells) }

// StopAt returns the facility stop recorded at index i, if any
func (r Route) StopAt(i int) (FacilityID, bool) {
	if r.Stops == nil {
		return NoFacility, false
	}
	id, ok := r.Stops[i]
	return id, ok
}

// Waypoint is a route target; Facility is NoFacility for plain cells such as the exit
type Waypoint struct {
	Pos      GridPos
	Facility FacilityID
}

// PathFinder runs A* over a GridMap's walkability
type PathFinder struct {
	grid *GridMap
}

// NewPathFinder creates a path finder bound to the grid
func NewPathFinder(grid *GridMap) *PathFinder {
	return &PathFinder{grid: grid}
}

type pathNode struct {
	idx   int
	g     int
	h     int
	seq   int
	index int
}

type openSet []*pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	fi, fj := o[i].g+o[i].h, o[j].g+o[j].h
	if fi != fj {
		return fi < fj
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	n.index = -1
	return n
}

var neighborOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// FindPath returns the shortest 4-connected path from start to end, inclusive
// of both endpoints. The endpoints themselves are exempt from the walkability
// check so visitors can start or stop on a facility tile.
// Among equal-cost paths the one returned is unspecified.
func (pf *PathFinder) FindPath(sx, sy, ex, ey int) ([]GridPos, bool) {
	g := pf.grid
	if !g.InBounds(sx, sy) || !g.InBounds(ex, ey) {
		return nil, false
	}
	if sx == ex && sy == ey {
		return []GridPos{{X: sx, Y: sy}}, true
	}

	w := g.Width()
	size := w * g.Height()
	startIdx := sy*w + sx
	endIdx := ey*w + ex

	closed := make([]bool, size)
	parent := make([]int, size)
	best := make([]int, size)
	nodes := make([]*pathNode, size)
	for i := range parent {
		parent[i] = -1
		best[i] = -1
	}

	open := &openSet{}
	seq := 0
	start := &pathNode{idx: startIdx, g: 0, h: ManhattanDistance(GridPos{sx, sy}, GridPos{ex, ey}), seq: seq}
	best[startIdx] = 0
	nodes[startIdx] = start
	heap.Push(open, start)

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed[current.idx] {
			continue
		}
		closed[current.idx] = true

		if current.idx == endIdx {
			return reconstructPath(parent, endIdx, w), true
		}

		cx, cy := current.idx%w, current.idx/w
		for _, off := range neighborOffsets {
			nx, ny := cx+off[0], cy+off[1]
			if !g.InBounds(nx, ny) {
				continue
			}
			nIdx := ny*w + nx
			if closed[nIdx] {
				continue
			}
			if nIdx != endIdx && nIdx != startIdx && !g.IsWalkable(nx, ny) {
				continue
			}

			cost := current.g + 1
			if best[nIdx] >= 0 && best[nIdx] <= cost {
				continue
			}
			best[nIdx] = cost
			parent[nIdx] = current.idx

			if n := nodes[nIdx]; n != nil && n.index >= 0 {
				n.g = cost
				heap.Fix(open, n.index)
				continue
			}
			seq++
			n := &pathNode{idx: nIdx, g: cost, h: ManhattanDistance(GridPos{nx, ny}, GridPos{ex, ey}), seq: seq}
			nodes[nIdx] = n
			heap.Push(open, n)
		}
	}

	return nil, false
}

func reconstructPath(parent []int, endIdx, width int) []GridPos {
	var rev []GridPos
	for idx := endIdx; idx >= 0; idx = parent[idx] {
		rev = append(rev, GridPos{X: idx % width, Y: idx / width})
	}
	path := make([]GridPos, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// PlanRoute chains FindPath over consecutive waypoints, dropping the duplicate
// joint cell between legs. It fails if any leg has no path.
func (pf *PathFinder) PlanRoute(start GridPos, waypoints ...Waypoint) (Route, bool) {
	route := Route{Cells: []GridPos{start}}
	current := start
	for _, wp := range waypoints {
		seg, ok := pf.FindPath(current.X, current.Y, wp.Pos.X, wp.Pos.Y)
		if !ok {
			return Route{}, false
		}
		route.Cells = append(route.Cells, seg[1:]...)
		if wp.Facility != NoFacility {
			if route.Stops == nil {
				route.Stops = make(map[int]FacilityID)
			}
			route.Stops[len(route.Cells)-1] = wp.Facility
		}
		current = wp.Pos
	}
	return route, true
}

// PlanVisit builds start → target → exit, falling back to a direct start → exit
// route. The boolean is false when even the direct route does not exist.
func (pf *PathFinder) PlanVisit(start GridPos, target *Target) (Route, bool) {
	exit := Waypoint{Pos: pf.grid.Exit(), Facility: NoFacility}
	if target != nil {
		if route, ok := pf.PlanRoute(start, Waypoint{Pos: target.Tile, Facility: target.Facility}, exit); ok {
			return route, true
		}
	}
	return pf.PlanRoute(start, exit)
}
