package engine

// FacilitySpec describes an attraction type: footprint and economics
type FacilitySpec struct {
	Type          FacilityType `json:"type" yaml:"type"`
	Cost          float64      `json:"cost" yaml:"cost"`
	Income        float64      `json:"income" yaml:"income"`
	HappinessGain float64      `json:"happiness_gain" yaml:"happiness_gain"`
	PlayDuration  float64      `json:"play_duration" yaml:"play_duration"`
	Capacity      int          `json:"capacity" yaml:"capacity"`
	Width         int          `json:"width" yaml:"width"`
	Height        int          `json:"height" yaml:"height"`
	VisualSize    float64      `json:"visual_size" yaml:"visual_size"`
}

// Large reports whether the facility is subject to the no-touching buffer rule
func (s FacilitySpec) Large() bool {
	return s.VisualSize > LargeSizeThreshold
}

// DefaultCatalog returns the built-in facility specs
func DefaultCatalog() map[FacilityType]FacilitySpec {
	return map[FacilityType]FacilitySpec{
		Food: {
			Type: Food, Cost: 500, Income: 20, HappinessGain: 3,
			PlayDuration: 10, Capacity: 1, Width: 1, Height: 1, VisualSize: 1.2,
		},
		Carousel: {
			Type: Carousel, Cost: 1500, Income: 40, HappinessGain: 5,
			PlayDuration: 10, Capacity: 2, Width: 1, Height: 1, VisualSize: 1.5,
		},
		FerrisWheel: {
			Type: FerrisWheel, Cost: 3000, Income: 60, HappinessGain: 7,
			PlayDuration: 10, Capacity: 3, Width: 2, Height: 2, VisualSize: 3.5,
		},
	}
}

// Facility is a placed attraction instance
type Facility struct {
	ID             FacilityID
	Spec           FacilitySpec
	Origin         GridPos
	CurrentPlayers int
	PlayableTiles  []GridPos
	Center         WorldPos
	Visual         Visual
}

// Type returns the facility's attraction type
func (f *Facility) Type() FacilityType { return f.Spec.Type }

// HasCapacity reports whether another visitor can enter
func (f *Facility) HasCapacity() bool {
	return f.Spec.Capacity > 0 && f.CurrentPlayers < f.Spec.Capacity
}

// NearestPlayableTile returns the playable tile closest to from by Manhattan distance
func (f *Facility) NearestPlayableTile(from GridPos) (GridPos, int) {
	best := f.Origin
	bestDist := -1
	for _, t := range f.PlayableTiles {
		d := ManhattanDistance(from, t)
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist
}

// FacilityRegistry owns placed facilities, indexed by FacilityID
type FacilityRegistry struct {
	grid       *GridMap
	facilities []*Facility
	byTile     map[GridPos]FacilityID
}

// NewFacilityRegistry creates an empty registry over the grid
func NewFacilityRegistry(grid *GridMap) *FacilityRegistry {
	return &FacilityRegistry{
		grid:   grid,
		byTile: make(map[GridPos]FacilityID),
	}
}

// CanPlace validates footprint and buffer rule for spec at (x,y).
// A large facility may not touch any facility, and nothing may touch a large one.
func (r *FacilityRegistry) CanPlace(spec FacilitySpec, x, y int) bool {
	if !r.grid.CanPlace(x, y, spec.Width, spec.Height) {
		return false
	}
	large := spec.Large()
	return !r.grid.TouchesFacility(x, y, spec.Width, spec.Height, func(id FacilityID) bool {
		return large || r.facilities[id].Spec.Large()
	})
}

// Place validates and commits a facility. Nothing is mutated when validation fails.
func (r *FacilityRegistry) Place(spec FacilitySpec, x, y int, visuals VisualFactory) (*Facility, bool) {
	if !r.CanPlace(spec, x, y) {
		return nil, false
	}

	id := FacilityID(len(r.facilities))
	f := &Facility{
		ID:     id,
		Spec:   spec,
		Origin: GridPos{X: x, Y: y},
	}
	for dy := 0; dy < spec.Height; dy++ {
		for dx := 0; dx < spec.Width; dx++ {
			tile := GridPos{X: x + dx, Y: y + dy}
			f.PlayableTiles = append(f.PlayableTiles, tile)
			r.byTile[tile] = id
		}
	}
	origin := r.grid.GridToWorld(x, y)
	half := r.grid.CellSize() / 2
	f.Center = WorldPos{
		X: origin.X + float64(spec.Width-1)*half,
		Z: origin.Z + float64(spec.Height-1)*half,
	}
	if visuals != nil {
		f.Visual = visuals.FacilityVisual(spec.Type, id, f.Center)
	}

	r.grid.Occupy(id, x, y, spec.Width, spec.Height)
	r.facilities = append(r.facilities, f)
	return f, true
}

// Get returns the facility by id
func (r *FacilityRegistry) Get(id FacilityID) (*Facility, bool) {
	if id < 0 || int(id) >= len(r.facilities) {
		return nil, false
	}
	return r.facilities[id], true
}

// All returns facilities in placement order
func (r *FacilityRegistry) All() []*Facility {
	return r.facilities
}

// Count returns the number of placed facilities
func (r *FacilityRegistry) Count() int {
	return len(r.facilities)
}

// AtPlayableTile returns the facility that owns the playable tile (x,y)
func (r *FacilityRegistry) AtPlayableTile(x, y int) (*Facility, bool) {
	id, ok := r.byTile[GridPos{X: x, Y: y}]
	if !ok {
		return nil, false
	}
	return r.facilities[id], true
}

// Enter admits one visitor. It fails when the facility is full.
func (r *FacilityRegistry) Enter(id FacilityID) bool {
	f, ok := r.Get(id)
	if !ok || !f.HasCapacity() {
		return false
	}
	f.CurrentPlayers++
	return true
}

// Leave releases one slot; occupancy never drops below zero
func (r *FacilityRegistry) Leave(id FacilityID) {
	f, ok := r.Get(id)
	if !ok {
		return
	}
	if f.CurrentPlayers > 0 {
		f.CurrentPlayers--
	}
}

// WalkableNeighbor finds a walkable cell 4-adjacent to the facility footprint
func (r *FacilityRegistry) WalkableNeighbor(id FacilityID) (GridPos, bool) {
	f, ok := r.Get(id)
	if !ok {
		return GridPos{}, false
	}
	for _, t := range f.PlayableTiles {
		for _, off := range neighborOffsets {
			nx, ny := t.X+off[0], t.Y+off[1]
			if r.grid.IsWalkable(nx, ny) {
				return GridPos{X: nx, Y: ny}, true
			}
		}
	}
	return GridPos{}, false
}

// States returns a read-only snapshot of every facility
func (r *FacilityRegistry) States() []FacilityState {
	out := make([]FacilityState, 0, len(r.facilities))
	for _, f := range r.facilities {
		out = append(out, FacilityState{
			ID:             f.ID,
			Type:           f.Spec.Type,
			X:              f.Origin.X,
			Y:              f.Origin.Y,
			Width:          f.Spec.Width,
			Height:         f.Spec.Height,
			Capacity:       f.Spec.Capacity,
			CurrentPlayers: f.CurrentPlayers,
		})
	}
	return out
}
