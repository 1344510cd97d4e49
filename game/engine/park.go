package engine

import (
	"io"
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

var discardLogger = log.New(io.Discard)

// Simulation is the contract the host drives: one Update per frame plus
// placement and read-only accessors.
type Simulation interface {
	// Tick
	Update(dt float64)

	// Placement
	SelectAttraction(t FacilityType) bool
	SelectedAttraction() FacilityType
	CanPlace(x, y int) bool
	PlaceAttraction(x, y int) bool
	PlaceFacility(t FacilityType, x, y int) bool
	CheckPlacement(t FacilityType, x, y int) PlacementCheck

	// Metrics
	Funds() float64
	Reputation() float64
	Satisfaction() float64
	VisitorCount() int
	ActiveVisitors() int
	SpawnInterval() float64
	Elapsed() float64

	// Views
	FacilityStates() []FacilityState
	Visitors() []VisitorView
	Snapshot() *ParkSnapshot
}

var _ Simulation = (*Park)(nil)

// PlacementCheck explains the outcome of a placement precondition check
type PlacementCheck int

const (
	PlacementOK PlacementCheck = iota
	PlacementNoSelection
	PlacementUnknownType
	PlacementInsufficientFunds
	PlacementInvalidCell
	PlacementBufferViolation
)

func (c PlacementCheck) String() string {
	switch c {
	case PlacementOK:
		return "ok"
	case PlacementNoSelection:
		return "no attraction selected"
	case PlacementUnknownType:
		return "unknown attraction type"
	case PlacementInsufficientFunds:
		return "insufficient funds"
	case PlacementInvalidCell:
		return "cell is out of bounds, occupied or reserved"
	case PlacementBufferViolation:
		return "too close to a large attraction"
	}
	return "unknown"
}

// Option configures a Park
type Option func(*Park)

// WithRandom injects the random source used for preferences, jitter and draws
func WithRandom(r RandomSource) Option {
	return func(p *Park) { p.rnd = r }
}

// WithVisuals attaches a render-side visual factory
func WithVisuals(f VisualFactory) Option {
	return func(p *Park) { p.visuals = f }
}

// WithLogger sets the logger for debug events. The default discards.
func WithLogger(l *log.Logger) Option {
	return func(p *Park) { p.logger = l }
}

// Park is the simulation context: it owns the grid, the facility table,
// the active visitors and the park-wide metrics.
// It is single-threaded; callers serialise access.
type Park struct {
	config  *ParkConfig
	catalog map[FacilityType]FacilitySpec
	types   []FacilityType

	grid     *GridMap
	finder   *PathFinder
	registry *FacilityRegistry
	selector *TargetSelector
	world    *World

	rnd     RandomSource
	visuals VisualFactory
	logger  *log.Logger

	funds        float64
	reputation   float64
	satisfaction float64
	spawnTimer   float64
	elapsed      float64
	nextID       int
	selected     FacilityType
	visitors     []*Visitor
	stats        Stats
}

// NewPark validates cfg and builds a park with its layout pre-placed.
// A nil cfg uses DefaultParkConfig.
func NewPark(cfg *ParkConfig, opts ...Option) (*Park, error) {
	if cfg == nil {
		cfg = DefaultParkConfig()
	}
	cfg.ApplyDefaults()
	if err := ValidateParkConfig(cfg); err != nil {
		return nil, err
	}

	p := &Park{
		config:       cfg,
		catalog:      cfg.Catalog(),
		visuals:      NopVisuals{},
		logger:       discardLogger,
		funds:        cfg.StartingFunds,
		reputation:   cfg.StartingReputation,
		satisfaction: Clamp(cfg.StartingSatisfaction, 0, 100),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = discardLogger
	}
	if p.visuals == nil {
		p.visuals = NopVisuals{}
	}
	if p.rnd == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		p.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	p.types = CatalogTypes(p.catalog)

	p.grid = NewGridMap(cfg.GridWidth, cfg.GridHeight, cfg.CellSize, *cfg.Entrance, *cfg.Exit)
	p.finder = NewPathFinder(p.grid)
	p.registry = NewFacilityRegistry(p.grid)
	p.selector = NewTargetSelector(p.registry, p.rnd)
	p.world = &World{
		Grid:     p.grid,
		Finder:   p.finder,
		Registry: p.registry,
		Selector: p.selector,
		Config:   cfg.Visitor,
		Logger:   p.logger,
	}

	// Layout was checked by ValidateParkConfig; placements are free
	for _, entry := range cfg.Layout {
		p.registry.Place(p.catalog[entry.Type], entry.X, entry.Y, p.visuals)
	}

	return p, nil
}

// Update advances the simulation by dt seconds.
// dt must be sanitized by the host: non-negative and bounded.
func (p *Park) Update(dt float64) {
	p.elapsed += dt
	p.decayReputation(dt)

	p.spawnTimer += dt
	for interval := p.SpawnInterval(); p.spawnTimer >= interval; interval = p.SpawnInterval() {
		p.spawnTimer -= interval
		p.spawn()
	}

	// Iterate from the end so removal never skips a visitor
	for i := len(p.visitors) - 1; i >= 0; i-- {
		v := p.visitors[i]
		switch v.Update(dt, p.world) {
		case StartedPlaying:
			p.logger.Debug("visitor playing", "visitor", v.ID, "facility", v.Facility)
		case Rerouted:
			p.stats.Reroutes++
		case CompletedPlay:
			p.completePlay(v.LastFacility)
		case VisitorFinished:
			p.finish(v)
			p.visitors = append(p.visitors[:i], p.visitors[i+1:]...)
		}
	}
}

func (p *Park) decayReputation(dt float64) {
	step := p.config.ReputationDecay * dt
	switch {
	case p.reputation > 0:
		p.reputation = math.Max(0, p.reputation-step)
	case p.reputation < 0:
		p.reputation = math.Min(0, p.reputation+step)
	}
}

func (p *Park) adjustReputation(delta float64) {
	p.reputation = math.Max(p.config.Spawn.ReputationFloor, p.reputation+delta)
}

func (p *Park) spawn() {
	entrance := p.grid.Entrance()
	v := NewVisitor(p.nextID, entrance, p.grid, p.config.Visitor, p.types, p.rnd)

	var target *Target
	if t, ok := p.selector.ChooseTarget(v, entrance.X, entrance.Y, DefaultTargetOptions()); ok {
		target = &t
	}
	route, ok := p.finder.PlanVisit(entrance, target)
	if !ok {
		p.stats.FailedSpawns++
		p.logger.Debug("spawn aborted, no route to exit")
		return
	}

	v.SetRoute(route, p.grid)
	v.Visual = p.visuals.VisitorVisual(v.ID, v.Position)
	p.visitors = append(p.visitors, v)
	p.nextID++
	p.stats.Spawned++
	p.logger.Debug("visitor spawned", "visitor", v.ID, "route", route.Len(), "targeted", target != nil)
}

func (p *Park) completePlay(id FacilityID) {
	f, ok := p.registry.Get(id)
	if !ok {
		return
	}
	p.funds += f.Spec.Income
	p.satisfaction = Clamp(p.satisfaction+f.Spec.HappinessGain, 0, 100)
	p.adjustReputation(0.5)
	p.stats.Plays++
}

func (p *Park) finish(v *Visitor) {
	switch {
	case v.Satisfaction < p.config.Visitor.LeaveBelow:
		p.adjustReputation(-1)
		p.stats.Unhappy++
	case v.Satisfaction > p.config.Visitor.LeaveAbove:
		p.adjustReputation(1)
		p.stats.Delighted++
	}
	p.stats.Departed++
	if v.Visual != nil {
		v.Visual.Remove()
	}
	p.logger.Debug("visitor left", "visitor", v.ID, "satisfaction", v.Satisfaction)
}

// SpawnInterval maps current reputation onto seconds between spawns
func (p *Park) SpawnInterval() float64 {
	return p.config.Spawn.Interval(p.reputation)
}

// Interval is piecewise linear: BaseInterval at 0, MinInterval at or above
// ReputationCap, MaxInterval at or below ReputationFloor.
func (s SpawnConfig) Interval(reputation float64) float64 {
	if reputation >= 0 {
		t := math.Min(reputation/s.ReputationCap, 1)
		return s.BaseInterval - (s.BaseInterval-s.MinInterval)*t
	}
	t := math.Min(reputation/s.ReputationFloor, 1)
	return s.BaseInterval + (s.MaxInterval-s.BaseInterval)*t
}

// SelectAttraction sets the type used by PlaceAttraction. Unknown types are rejected.
func (p *Park) SelectAttraction(t FacilityType) bool {
	if _, ok := p.catalog[t]; !ok {
		return false
	}
	p.selected = t
	return true
}

// SelectedAttraction returns the current selection, empty when none
func (p *Park) SelectedAttraction() FacilityType {
	return p.selected
}

// CheckPlacement evaluates every precondition without mutating anything
func (p *Park) CheckPlacement(t FacilityType, x, y int) PlacementCheck {
	if t == "" {
		return PlacementNoSelection
	}
	spec, ok := p.catalog[t]
	if !ok {
		return PlacementUnknownType
	}
	if p.funds < spec.Cost {
		return PlacementInsufficientFunds
	}
	if !p.grid.CanPlace(x, y, spec.Width, spec.Height) {
		return PlacementInvalidCell
	}
	if !p.registry.CanPlace(spec, x, y) {
		return PlacementBufferViolation
	}
	return PlacementOK
}

// CanPlace validates the selected attraction at (x,y)
func (p *Park) CanPlace(x, y int) bool {
	return p.CheckPlacement(p.selected, x, y) == PlacementOK
}

// PlaceAttraction places the selected attraction; a failed precondition is a silent no-op
func (p *Park) PlaceAttraction(x, y int) bool {
	return p.PlaceFacility(p.selected, x, y)
}

// PlaceFacility places an attraction of type t, deducting its cost
func (p *Park) PlaceFacility(t FacilityType, x, y int) bool {
	if p.CheckPlacement(t, x, y) != PlacementOK {
		return false
	}
	spec := p.catalog[t]
	f, ok := p.registry.Place(spec, x, y, p.visuals)
	if !ok {
		return false
	}
	p.funds -= spec.Cost
	p.satisfaction = Clamp(p.satisfaction+1, 0, 100)
	p.logger.Debug("attraction placed", "type", t, "id", f.ID, "x", x, "y", y, "funds", p.funds)
	return true
}

func (p *Park) Funds() float64        { return p.funds }
func (p *Park) Reputation() float64   { return p.reputation }
func (p *Park) Satisfaction() float64 { return p.satisfaction }
func (p *Park) Elapsed() float64      { return p.elapsed }
func (p *Park) Stats() Stats          { return p.stats }

// VisitorCount is the cumulative number of visitors spawned
func (p *Park) VisitorCount() int { return p.stats.Spawned }

// ActiveVisitors is the number of visitors currently in the park
func (p *Park) ActiveVisitors() int { return len(p.visitors) }

// Config returns the configuration the park was built from
func (p *Park) Config() *ParkConfig { return p.config }

// Grid exposes the occupancy grid for read-only queries
func (p *Park) Grid() *GridMap { return p.grid }

// Catalog returns the facility specs available in this park
func (p *Park) Catalog() map[FacilityType]FacilitySpec { return p.catalog }

// FacilityTypes returns the catalog types in display order
func (p *Park) FacilityTypes() []FacilityType { return p.types }

// FacilityStates returns a read-only snapshot of every facility
func (p *Park) FacilityStates() []FacilityState {
	return p.registry.States()
}

// Visitors returns read-only views in spawn order
func (p *Park) Visitors() []VisitorView {
	out := make([]VisitorView, 0, len(p.visitors))
	for _, v := range p.visitors {
		out = append(out, v.View())
	}
	return out
}

// Snapshot captures the complete observable state
func (p *Park) Snapshot() *ParkSnapshot {
	s := &ParkSnapshot{
		Name:           p.config.Name,
		Width:          p.grid.Width(),
		Height:         p.grid.Height(),
		Entrance:       p.grid.Entrance(),
		Exit:           p.grid.Exit(),
		Funds:          p.funds,
		Reputation:     p.reputation,
		Satisfaction:   p.satisfaction,
		VisitorCount:   p.VisitorCount(),
		ActiveVisitors: p.ActiveVisitors(),
		SpawnInterval:  p.SpawnInterval(),
		Elapsed:        p.elapsed,
		Selected:       p.selected,
		Stats:          p.stats,
		Facilities:     p.FacilityStates(),
		Visitors:       p.Visitors(),
	}
	s.Grid = RenderGrid(s)
	return s
}
