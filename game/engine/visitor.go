package engine

import (
	"math"

	"github.com/charmbracelet/log"
)

// World bundles the shared state a visitor reads and mutates during an update
type World struct {
	Grid     *GridMap
	Finder   *PathFinder
	Registry *FacilityRegistry
	Selector *TargetSelector
	Config   VisitorConfig
	Logger   *log.Logger
}

// Visitor is a simulated park guest
type Visitor struct {
	ID           int
	State        VisitorState
	Position     WorldPos
	Cell         GridPos
	Route        Route
	Cursor       int
	Preferences  map[FacilityType]float64
	Satisfaction float64
	LastFacility FacilityID
	LastType     FacilityType
	Facility     FacilityID
	Remaining    float64
	Visual       Visual
}

// NewVisitor creates a walking visitor standing on start with random preferences.
// Preferences are drawn in the order of types so a seeded source stays reproducible.
func NewVisitor(id int, start GridPos, grid *GridMap, cfg VisitorConfig, types []FacilityType, rnd RandomSource) *Visitor {
	prefs := make(map[FacilityType]float64, len(types))
	span := cfg.PreferenceMax - cfg.PreferenceMin
	for _, t := range types {
		prefs[t] = cfg.PreferenceMin + rnd.Float64()*span
	}
	return &Visitor{
		ID:           id,
		State:        Walking,
		Position:     grid.GridToWorld(start.X, start.Y),
		Cell:         start,
		Preferences:  prefs,
		Satisfaction: Clamp(cfg.InitialSatisfaction, 0, 100),
		LastFacility: NoFacility,
		Facility:     NoFacility,
	}
}

// Preference returns the visitor's multiplier for t, defaulting to 1
func (v *Visitor) Preference(t FacilityType) float64 {
	if p, ok := v.Preferences[t]; ok {
		return p
	}
	return 1
}

// SetRoute replaces the route. The first cell is where the visitor already
// stands, so the cursor skips it unless it is itself a facility stop.
// Routes leaving the grid are dropped, which finishes the visitor.
func (v *Visitor) SetRoute(route Route, grid *GridMap) {
	for _, c := range route.Cells {
		if !grid.InBounds(c.X, c.Y) {
			route = Route{}
			break
		}
	}
	v.Route = route
	v.Cursor = 1
	if _, ok := route.StopAt(0); ok {
		v.Cursor = 0
	}
}

// Update advances the visitor by dt seconds. dt must already be sanitized.
func (v *Visitor) Update(dt float64, w *World) TransitionResult {
	switch v.State {
	case Playing:
		v.Remaining -= dt
		if v.Remaining > 0 {
			return Continue
		}
		v.completePlay(w)
		return CompletedPlay
	case Walking:
		return v.walk(dt, w)
	}
	return VisitorFinished
}

func (v *Visitor) walk(dt float64, w *World) TransitionResult {
	if v.Cursor >= v.Route.Len() {
		v.State = Finished
		return VisitorFinished
	}

	next := v.Route.Cells[v.Cursor]
	target := w.Grid.GridToWorld(next.X, next.Y)
	dx, dz := target.X-v.Position.X, target.Z-v.Position.Z
	dist := math.Hypot(dx, dz)

	step := w.Config.Speed * dt
	if dist > w.Config.ArriveEpsilon && step > 0 {
		if step >= dist {
			v.Position = target
		} else {
			v.Position.X += dx / dist * step
			v.Position.Z += dz / dist * step
		}
		dist = math.Hypot(target.X-v.Position.X, target.Z-v.Position.Z)
	}
	if v.Visual != nil {
		v.Visual.MoveTo(v.Position)
	}
	if dist > w.Config.ArriveEpsilon {
		return Continue
	}

	v.Position = target
	return v.enter(w)
}

// enter handles arrival at the waypoint under the cursor
func (v *Visitor) enter(w *World) TransitionResult {
	idx := v.Cursor
	v.Cell = v.Route.Cells[idx]
	v.Cursor++

	if id, ok := v.Route.StopAt(idx); ok {
		if w.Registry.Enter(id) {
			f, _ := w.Registry.Get(id)
			v.State = Playing
			v.Facility = id
			v.Remaining = f.Spec.PlayDuration
			v.LastFacility = id
			v.LastType = f.Spec.Type
			v.Position = f.Center
			if v.Visual != nil {
				v.Visual.MoveTo(v.Position)
			}
			return StartedPlaying
		}
		return v.reroute(id, w)
	}

	if v.Cursor >= v.Route.Len() {
		v.State = Finished
		return VisitorFinished
	}
	return Continue
}

// reroute picks another facility after finding full one at the current cell.
// With no alternative the visitor keeps walking its existing route.
func (v *Visitor) reroute(full FacilityID, w *World) TransitionResult {
	target, ok := w.Selector.ChooseTarget(v, v.Cell.X, v.Cell.Y, RerouteOptions(full))
	if ok {
		exit := Waypoint{Pos: w.Grid.Exit(), Facility: NoFacility}
		route, found := w.Finder.PlanRoute(v.Cell, Waypoint{Pos: target.Tile, Facility: target.Facility}, exit)
		if found {
			v.SetRoute(route, w.Grid)
			w.logger().Debug("visitor rerouted", "visitor", v.ID, "full", full, "target", target.Facility)
			return Rerouted
		}
	}
	if v.Cursor >= v.Route.Len() {
		v.State = Finished
		return VisitorFinished
	}
	return Continue
}

func (v *Visitor) completePlay(w *World) {
	id := v.Facility
	w.Registry.Leave(id)
	if f, ok := w.Registry.Get(id); ok {
		gain := f.Spec.HappinessGain * v.Preference(f.Spec.Type)
		v.Satisfaction = Clamp(v.Satisfaction+gain, 0, 100)
	}

	start, ok := w.Registry.WalkableNeighbor(id)
	if !ok {
		start = v.Cell
	}
	v.Cell = start
	v.Position = w.Grid.GridToWorld(start.X, start.Y)
	if v.Visual != nil {
		v.Visual.MoveTo(v.Position)
	}
	v.State = Walking
	v.Facility = NoFacility
	v.Remaining = 0

	var route Route
	if v.Satisfaction > w.Config.LeaveAbove || v.Satisfaction < w.Config.LeaveBelow {
		route, ok = w.Finder.PlanRoute(start, Waypoint{Pos: w.Grid.Exit(), Facility: NoFacility})
	} else {
		var target *Target
		if t, found := w.Selector.ChooseTarget(v, start.X, start.Y, DefaultTargetOptions()); found {
			target = &t
		}
		route, ok = w.Finder.PlanVisit(start, target)
	}
	if !ok {
		route = Route{}
	}
	v.SetRoute(route, w.Grid)
}

// View returns a read-only copy for display
func (v *Visitor) View() VisitorView {
	return VisitorView{
		ID:           v.ID,
		State:        v.State,
		Position:     v.Position,
		Cell:         v.Cell,
		Satisfaction: v.Satisfaction,
		Facility:     v.Facility,
		Remaining:    math.Max(v.Remaining, 0),
		RouteLength:  v.Route.Len(),
		RouteCursor:  v.Cursor,
	}
}

func (w *World) logger() *log.Logger {
	if w.Logger == nil {
		return discardLogger
	}
	return w.Logger
}
