package engine

import (
	"strings"
	"testing"
)

func createTestParkConfig() *ParkConfig {
	cfg := DefaultParkConfig()
	cfg.Name = "test"
	cfg.Seed = 42
	return cfg
}

func newTestPark(t *testing.T, cfg *ParkConfig) *Park {
	t.Helper()
	if cfg == nil {
		cfg = createTestParkConfig()
	}
	p, err := NewPark(cfg)
	if err != nil {
		t.Fatalf("Failed to create park: %v", err)
	}
	return p
}

func TestNewParkDefaults(t *testing.T) {
	p := newTestPark(t, nil)

	if p.Funds() != 10000 {
		t.Errorf("Expected funds 10000, got %g", p.Funds())
	}
	if p.Satisfaction() != 50 {
		t.Errorf("Expected satisfaction 50, got %g", p.Satisfaction())
	}
	if p.Reputation() != 0 {
		t.Errorf("Expected reputation 0, got %g", p.Reputation())
	}
	if p.SpawnInterval() != 4 {
		t.Errorf("Expected spawn interval 4, got %g", p.SpawnInterval())
	}
	if p.Grid().Entrance() != (GridPos{10, 19}) || p.Grid().Exit() != (GridPos{10, 0}) {
		t.Errorf("Unexpected entrance/exit %+v %+v", p.Grid().Entrance(), p.Grid().Exit())
	}
	if p.VisitorCount() != 0 || p.ActiveVisitors() != 0 {
		t.Error("Expected no visitors")
	}
}

func TestNewParkNilConfig(t *testing.T) {
	p, err := NewPark(nil)
	if err != nil {
		t.Fatalf("Expected default config to be valid: %v", err)
	}
	if p.Config().Name != "default" {
		t.Errorf("Expected default config, got %q", p.Config().Name)
	}
}

func TestNewParkRejectsInvalidConfig(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.GridWidth = 2
	if _, err := NewPark(cfg); err == nil {
		t.Error("Expected error for tiny grid")
	}
}

func TestNewParkPlacesLayout(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Layout = []LayoutEntry{{Type: Food, X: 3, Y: 3}, {Type: FerrisWheel, X: 12, Y: 12}}
	p := newTestPark(t, cfg)

	states := p.FacilityStates()
	if len(states) != 2 {
		t.Fatalf("Expected 2 facilities, got %d", len(states))
	}
	if p.Funds() != 10000 {
		t.Errorf("Layout should be free, funds %g", p.Funds())
	}
}

func TestSpawnIntervalMonotonic(t *testing.T) {
	s := DefaultSpawnConfig()

	prev := s.Interval(0)
	for rep := 1.0; rep <= 120; rep++ {
		cur := s.Interval(rep)
		if cur > prev {
			t.Fatalf("Interval grew from %g to %g at reputation %g", prev, cur, rep)
		}
		if cur == prev && cur != s.MinInterval {
			t.Fatalf("Interval stalled at %g above the minimum", cur)
		}
		prev = cur
	}
	if s.Interval(100) != 2 || s.Interval(500) != 2 {
		t.Errorf("Expected minimum 2 at and above the cap, got %g", s.Interval(100))
	}

	prev = s.Interval(0)
	for rep := -1.0; rep >= -60; rep-- {
		cur := s.Interval(rep)
		if cur < prev {
			t.Fatalf("Interval shrank from %g to %g at reputation %g", prev, cur, rep)
		}
		if cur == prev && cur != s.MaxInterval {
			t.Fatalf("Interval stalled at %g below the maximum", cur)
		}
		prev = cur
	}
	if s.Interval(-50) != 6 {
		t.Errorf("Expected maximum 6 at the floor, got %g", s.Interval(-50))
	}
	if got := s.Interval(50); got != 3 {
		t.Errorf("Expected 3 at reputation 50, got %g", got)
	}
}

func TestParkSpawnTimer(t *testing.T) {
	p := newTestPark(t, nil)

	p.Update(3.9)
	if p.VisitorCount() != 0 {
		t.Fatalf("Expected no spawn before the interval, got %d", p.VisitorCount())
	}
	p.Update(0.2)
	if p.VisitorCount() != 1 || p.ActiveVisitors() != 1 {
		t.Fatalf("Expected one visitor, got %d", p.VisitorCount())
	}
	// Overshoot is carried: 0.1 + 3.95 reaches the next interval
	p.Update(3.95)
	if p.VisitorCount() != 2 {
		t.Errorf("Expected carried overshoot to spawn a second visitor, got %d", p.VisitorCount())
	}
}

func TestParkSpawnAbortsWithoutRoute(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Seed = 1
	p := newTestPark(t, cfg)
	// Seal the exit: (9,0) (11,0) and (10,1)
	p.grid.Occupy(90, 9, 0, 1, 1)
	p.grid.Occupy(91, 11, 0, 1, 1)
	p.grid.Occupy(92, 10, 1, 1, 1)

	p.Update(4)
	if p.VisitorCount() != 0 || p.ActiveVisitors() != 0 {
		t.Errorf("Expected spawn to be abandoned, got %d visitors", p.VisitorCount())
	}
	if p.Stats().FailedSpawns != 1 {
		t.Errorf("Expected one failed spawn, got %d", p.Stats().FailedSpawns)
	}
}

func TestParkPlacement(t *testing.T) {
	p := newTestPark(t, nil)

	t.Run("no selection is a no-op", func(t *testing.T) {
		if p.CanPlace(5, 5) || p.PlaceAttraction(5, 5) {
			t.Error("Expected placement without a selection to fail")
		}
		if p.Funds() != 10000 {
			t.Errorf("Funds changed to %g", p.Funds())
		}
	})

	t.Run("unknown type cannot be selected", func(t *testing.T) {
		if p.SelectAttraction("rollercoaster") {
			t.Error("Expected unknown type to be rejected")
		}
	})

	t.Run("selected attraction is placed", func(t *testing.T) {
		if !p.SelectAttraction(Food) {
			t.Fatal("Expected food to be selectable")
		}
		if !p.CanPlace(5, 5) {
			t.Fatal("Expected (5,5) to be placeable")
		}
		if !p.PlaceAttraction(5, 5) {
			t.Fatal("Expected placement to succeed")
		}
		if p.Funds() != 9500 {
			t.Errorf("Expected funds 9500, got %g", p.Funds())
		}
		if p.Satisfaction() != 51 {
			t.Errorf("Expected satisfaction 51, got %g", p.Satisfaction())
		}
	})

	t.Run("occupied cell is a no-op", func(t *testing.T) {
		if p.PlaceAttraction(5, 5) {
			t.Error("Expected occupied cell to be rejected")
		}
		if got := p.CheckPlacement(Food, 5, 5); got != PlacementInvalidCell {
			t.Errorf("Expected invalid cell, got %s", got)
		}
		if p.Funds() != 9500 {
			t.Errorf("Funds changed to %g", p.Funds())
		}
	})

	t.Run("diagonal from large is rejected", func(t *testing.T) {
		if !p.PlaceFacility(FerrisWheel, 12, 12) {
			t.Fatal("Expected ferris wheel placement")
		}
		if got := p.CheckPlacement(Food, 14, 14); got != PlacementBufferViolation {
			t.Errorf("Expected buffer violation, got %s", got)
		}
		if p.PlaceFacility(Food, 11, 11) {
			t.Error("Expected diagonal placement to be rejected")
		}
	})
}

func TestParkPlacementInsufficientFunds(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.StartingFunds = 400
	p := newTestPark(t, cfg)

	if got := p.CheckPlacement(Food, 5, 5); got != PlacementInsufficientFunds {
		t.Errorf("Expected insufficient funds, got %s", got)
	}
	if p.PlaceFacility(Food, 5, 5) {
		t.Error("Expected placement to fail")
	}
	if len(p.FacilityStates()) != 0 || p.Funds() != 400 {
		t.Error("Expected no mutation on failed placement")
	}
}

func TestParkMetricsOnEvents(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Layout = []LayoutEntry{{Type: FerrisWheel, X: 4, Y: 4}}
	p := newTestPark(t, cfg)

	p.satisfaction = 98
	p.completePlay(0)
	if p.Funds() != 10060 {
		t.Errorf("Expected income credited, funds %g", p.Funds())
	}
	if p.Satisfaction() != 100 {
		t.Errorf("Expected global satisfaction clamped to 100, got %g", p.Satisfaction())
	}
	if p.Reputation() != 0.5 {
		t.Errorf("Expected reputation 0.5, got %g", p.Reputation())
	}

	p.finish(&Visitor{Satisfaction: 90})
	if p.Reputation() != 1.5 {
		t.Errorf("Expected delighted visitor to add 1, got %g", p.Reputation())
	}
	p.finish(&Visitor{Satisfaction: 10})
	p.finish(&Visitor{Satisfaction: 50})
	if p.Reputation() != 0.5 {
		t.Errorf("Expected unhappy visitor to subtract 1, got %g", p.Reputation())
	}

	p.adjustReputation(-1000)
	if p.Reputation() != -50 {
		t.Errorf("Expected reputation floored at -50, got %g", p.Reputation())
	}

	stats := p.Stats()
	if stats.Plays != 1 || stats.Departed != 3 || stats.Delighted != 1 || stats.Unhappy != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestParkReputationDecay(t *testing.T) {
	p := newTestPark(t, nil)

	p.reputation = 10
	p.Update(1)
	if diff := p.Reputation() - 9.9; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected 9.9, got %g", p.Reputation())
	}

	p.reputation = -0.05
	p.Update(1)
	if p.Reputation() != 0 {
		t.Errorf("Expected decay to stop at zero, got %g", p.Reputation())
	}
}

func TestParkRemovesFinishedVisitors(t *testing.T) {
	p := newTestPark(t, nil)
	for i := 0; i < 5; i++ {
		v := NewVisitor(i, p.grid.Entrance(), p.grid, p.config.Visitor, p.types, p.rnd)
		if i%2 == 0 {
			route, _ := p.finder.PlanVisit(p.grid.Entrance(), nil)
			v.SetRoute(route, p.grid)
		}
		p.visitors = append(p.visitors, v)
	}

	p.Update(0.01)
	if p.ActiveVisitors() != 3 {
		t.Fatalf("Expected the 2 route-less visitors removed, got %d active", p.ActiveVisitors())
	}
	for _, v := range p.Visitors() {
		if v.ID%2 != 0 {
			t.Errorf("Visitor %d should have been removed", v.ID)
		}
	}
	if p.Stats().Departed != 2 {
		t.Errorf("Expected 2 departures, got %d", p.Stats().Departed)
	}
}

func TestParkCapacityScenario(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Layout = []LayoutEntry{{Type: Food, X: 10, Y: 10}}
	p := newTestPark(t, cfg)

	// Two spawns in the same tick window, both targeting the only facility
	p.Update(8)
	if p.ActiveVisitors() != 2 {
		t.Fatalf("Expected 2 visitors, got %d", p.ActiveVisitors())
	}

	// An alternative appears after both routes were planned
	if !p.PlaceFacility(Carousel, 4, 4) {
		t.Fatal("Expected carousel placement")
	}

	for p.Elapsed() < 15 {
		p.Update(0.05)
		for _, f := range p.FacilityStates() {
			if f.CurrentPlayers < 0 || f.CurrentPlayers > f.Capacity {
				t.Fatalf("Capacity invariant broken at t=%.2f: %+v", p.Elapsed(), f)
			}
		}
	}

	food := p.FacilityStates()[0]
	if food.CurrentPlayers != 1 {
		t.Errorf("Expected food occupied by one visitor, got %d", food.CurrentPlayers)
	}
	if p.Stats().Reroutes != 1 {
		t.Errorf("Expected the second visitor to be rerouted, got %d reroutes", p.Stats().Reroutes)
	}
}

func TestParkLongRunInvariants(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Layout = []LayoutEntry{
		{Type: Food, X: 6, Y: 14},
		{Type: Carousel, X: 14, Y: 14},
		{Type: FerrisWheel, X: 9, Y: 7},
		{Type: Food, X: 3, Y: 4},
	}
	p := newTestPark(t, cfg)

	for i := 0; i < 4000; i++ {
		p.Update(0.05)
		if p.Satisfaction() < 0 || p.Satisfaction() > 100 {
			t.Fatalf("Global satisfaction %g out of range", p.Satisfaction())
		}
		if p.Reputation() < -50 {
			t.Fatalf("Reputation %g below floor", p.Reputation())
		}
		for _, f := range p.FacilityStates() {
			if f.CurrentPlayers < 0 || f.CurrentPlayers > f.Capacity {
				t.Fatalf("Capacity invariant broken: %+v", f)
			}
		}
		for _, v := range p.Visitors() {
			if v.Satisfaction < 0 || v.Satisfaction > 100 {
				t.Fatalf("Visitor satisfaction %g out of range", v.Satisfaction)
			}
		}
	}

	// Grid exclusivity: every occupied cell maps back to one facility footprint
	owners := make(map[GridPos]FacilityID)
	for _, f := range p.FacilityStates() {
		for dy := 0; dy < f.Height; dy++ {
			for dx := 0; dx < f.Width; dx++ {
				pos := GridPos{f.X + dx, f.Y + dy}
				if prev, ok := owners[pos]; ok {
					t.Fatalf("Cell %+v claimed by %d and %d", pos, prev, f.ID)
				}
				owners[pos] = f.ID
			}
		}
	}
	for _, reserved := range []GridPos{p.grid.Entrance(), p.grid.Exit()} {
		if _, ok := p.grid.FacilityAt(reserved.X, reserved.Y); ok {
			t.Errorf("Reserved cell %+v is occupied", reserved)
		}
	}

	if p.Stats().Plays == 0 {
		t.Error("Expected some completed plays over 200 simulated seconds")
	}
}

func TestParkSnapshot(t *testing.T) {
	cfg := createTestParkConfig()
	cfg.Layout = []LayoutEntry{{Type: Carousel, X: 3, Y: 3}}
	p := newTestPark(t, cfg)
	p.SelectAttraction(Food)
	p.Update(4)

	s := p.Snapshot()
	if s.Name != "test" || s.Width != 20 || s.Height != 20 {
		t.Errorf("Unexpected header %+v", s)
	}
	if s.Selected != Food {
		t.Errorf("Expected selection in snapshot, got %q", s.Selected)
	}
	if len(s.Grid) != 20 || len(s.Grid[0]) != 20 {
		t.Fatalf("Expected 20x20 grid rows, got %d", len(s.Grid))
	}
	if s.Grid[19][10] != 'E' || s.Grid[0][10] != 'X' {
		t.Errorf("Expected entrance and exit glyphs, got %q / %q", s.Grid[19], s.Grid[0])
	}
	if s.Grid[3][3] != 'C' {
		t.Errorf("Expected carousel glyph, got %q", s.Grid[3])
	}
	if !strings.Contains(strings.Join(s.Grid, ""), "o") {
		t.Error("Expected the walking visitor to be drawn")
	}
}

type recordingVisual struct {
	factory *recordingVisuals
}

func (v recordingVisual) MoveTo(WorldPos) { v.factory.moves++ }
func (v recordingVisual) Remove()         { v.factory.removes++ }

type recordingVisuals struct {
	facilities, visitors, moves, removes int
}

func (r *recordingVisuals) FacilityVisual(FacilityType, FacilityID, WorldPos) Visual {
	r.facilities++
	return recordingVisual{r}
}

func (r *recordingVisuals) VisitorVisual(int, WorldPos) Visual {
	r.visitors++
	return recordingVisual{r}
}

func TestParkVisualsFollowLifecycle(t *testing.T) {
	visuals := &recordingVisuals{}
	p, err := NewPark(createTestParkConfig(), WithVisuals(visuals))
	if err != nil {
		t.Fatalf("Failed to create park: %v", err)
	}
	if !p.PlaceFacility(Food, 10, 10) {
		t.Fatal("Expected food placement to succeed")
	}
	for i := 0; i < 600; i++ {
		p.Update(0.1)
	}

	if visuals.facilities != 1 {
		t.Errorf("Expected 1 facility visual, got %d", visuals.facilities)
	}
	if visuals.visitors != p.VisitorCount() || visuals.visitors == 0 {
		t.Errorf("Expected one visual per spawned visitor, got %d for %d", visuals.visitors, p.VisitorCount())
	}
	if visuals.moves == 0 {
		t.Error("Expected visitor visuals to be moved")
	}
	if visuals.removes != p.Stats().Departed {
		t.Errorf("Expected one removal per departure, got %d for %d", visuals.removes, p.Stats().Departed)
	}
}
