package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/parksim/game/engine"
)

var errMockNotFound = errors.New("session not found")

type mockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	next     int
}

func newMockSessionManager() *mockSessionManager {
	return &mockSessionManager{sessions: make(map[string]*Session)}
}

func (m *mockSessionManager) Create(id string, config *engine.ParkConfig, seed uint64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		m.next++
		id = fmt.Sprintf("s%d", m.next)
	}
	cfg := *config
	if seed != 0 {
		cfg.Seed = seed
	}
	park, err := engine.NewPark(&cfg)
	if err != nil {
		return nil, err
	}
	now := time.Now().Add(time.Duration(m.next) * time.Millisecond)
	sess := &Session{ID: id, Park: park, Config: &cfg, CreatedAt: now}
	sess.Touch(now)
	m.sessions[id] = sess
	return sess, nil
}

func (m *mockSessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return nil, errMockNotFound
}

func (m *mockSessionManager) GetOrCreate(id string, config *engine.ParkConfig, seed uint64) (*Session, error) {
	if sess, err := m.Get(id); err == nil {
		return sess, nil
	}
	return m.Create(id, config, seed)
}

func (m *mockSessionManager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *mockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return errMockNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionManager) UpdateLastAccessed(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	sess.Touch(time.Now())
	return nil
}

type mockConfigManager struct {
	configs map[string]*engine.ParkConfig
	saved   map[string]*engine.ParkConfig
}

func newMockConfigManager() *mockConfigManager {
	small := engine.DefaultParkConfig()
	small.Name = "Small Park"
	small.GridWidth, small.GridHeight = 10, 10
	small.Entrance, small.Exit = nil, nil
	small.ApplyDefaults()
	return &mockConfigManager{
		configs: map[string]*engine.ParkConfig{
			"classic": engine.DefaultParkConfig(),
			"small":   small,
		},
		saved: make(map[string]*engine.ParkConfig),
	}
}

func (m *mockConfigManager) LoadConfig(name string) (*engine.ParkConfig, error) {
	if cfg, ok := m.configs[name]; ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
}

func (m *mockConfigManager) ListConfigs() ([]*ConfigInfo, error) {
	return []*ConfigInfo{
		{Filename: "classic.json", ConfigID: "classic", Name: "default"},
		{Filename: "small.json", ConfigID: "small", Name: "Small Park"},
	}, nil
}

func (m *mockConfigManager) GetDefault() *engine.ParkConfig { return m.configs["classic"] }

func (m *mockConfigManager) SaveConfig(name string, config *engine.ParkConfig) error {
	if err := engine.ValidateParkConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	return nil
}

func newTestService() ParkService {
	return NewParkService(newMockSessionManager(), newMockConfigManager())
}

func TestCreateSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t.Run("default config", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "", 42)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if info.ConfigName != "classic" {
			t.Errorf("Expected config ID resolved from name, got %q", info.ConfigName)
		}
		if info.State == nil || info.State.Funds != 10000 || info.State.Width != 20 {
			t.Errorf("Unexpected initial state %+v", info.State)
		}
		if info.Config == nil || info.Config.Seed != 42 {
			t.Error("Expected config with seed in session info")
		}
	})

	t.Run("named config", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "small", 0)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if info.ConfigName != "small" || info.State.Width != 10 {
			t.Errorf("Expected small park, got %q width %d", info.ConfigName, info.State.Width)
		}
	})

	t.Run("missing config lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "nope", 0)
		if err == nil {
			t.Fatal("Expected error")
		}
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected wrapped ErrConfigNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), "Available configs") || !strings.Contains(err.Error(), "small") {
			t.Errorf("Expected available configs in error, got %v", err)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, _ := svc.CreateSession(ctx, "", 1)
	b, _ := svc.CreateSession(ctx, "", 2)

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("Expected sessions in creation order")
	}
	if list[0].Config != nil {
		t.Error("Expected list entries without config")
	}

	if _, err := svc.GetSession(ctx, a.ID); err != nil {
		t.Errorf("Failed to get session: %v", err)
	}
	if err := svc.DeleteSession(ctx, a.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := svc.GetSession(ctx, a.ID); !errors.Is(err, errMockNotFound) {
		t.Errorf("Expected wrapped not-found error, got %v", err)
	}
	if err := svc.DeleteSession(ctx, a.ID); err == nil {
		t.Error("Expected error deleting twice")
	}
}

func TestGetSessionConcurrent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	created, err := svc.CreateSession(ctx, "", 3)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				info, err := svc.GetSession(ctx, created.ID)
				if err != nil {
					t.Errorf("GetSession failed: %v", err)
					return
				}
				if info.LastAccessedAt.IsZero() {
					t.Error("Expected a last accessed time")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPlaceAttraction(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "", 5)

	tests := []struct {
		name        string
		facility    string
		x, y        int
		wantSuccess bool
		wantReason  string
		wantFunds   float64
	}{
		{"food", "food", 3, 3, true, "ok", 9500},
		{"alias", "ferris_wheel", 14, 10, true, "ok", 6500},
		{"occupied", "carousel", 3, 3, false, "cell is out of bounds, occupied or reserved", 6500},
		{"buffer", "food", 16, 10, false, "too close to a large attraction", 6500},
		{"entrance", "food", 10, 19, false, "cell is out of bounds, occupied or reserved", 6500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.PlaceAttraction(ctx, info.ID, tt.facility, tt.x, tt.y)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.Success != tt.wantSuccess || res.Reason != tt.wantReason {
				t.Errorf("Expected success=%v reason=%s, got %v %s", tt.wantSuccess, tt.wantReason, res.Success, res.Reason)
			}
			if res.Funds != tt.wantFunds {
				t.Errorf("Expected funds %g, got %g", tt.wantFunds, res.Funds)
			}
			if tt.wantSuccess && res.Facility == nil {
				t.Error("Expected placed facility in result")
			}
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		if _, err := svc.PlaceAttraction(ctx, info.ID, "coaster", 1, 1); !errors.Is(err, engine.ErrUnknownFacilityType) {
			t.Errorf("Expected ErrUnknownFacilityType, got %v", err)
		}
	})

	t.Run("can place does not commit", func(t *testing.T) {
		res, err := svc.CanPlace(ctx, info.ID, "carousel", 6, 6)
		if err != nil || !res.Success {
			t.Fatalf("Expected placeable, got %+v %v", res, err)
		}
		states, _ := svc.GetFacilityStates(ctx, info.ID)
		if len(states) != 2 {
			t.Errorf("Expected 2 facilities after dry run, got %d", len(states))
		}
	})
}

func TestAdvance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "", 9)

	tests := []struct {
		name  string
		dt    float64
		steps int
	}{
		{"zero steps", 0.1, 0},
		{"too many steps", 0.1, MaxAdvanceSteps + 1},
		{"zero dt", 0, 10},
		{"negative dt", -1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Advance(ctx, info.ID, tt.dt, tt.steps); !errors.Is(err, ErrInvalidStep) {
				t.Errorf("Expected ErrInvalidStep, got %v", err)
			}
		})
	}

	t.Run("advances time", func(t *testing.T) {
		snap, err := svc.Advance(ctx, info.ID, 0.1, 50)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(snap.Elapsed-5) > 1e-9 {
			t.Errorf("Expected 5s elapsed, got %g", snap.Elapsed)
		}
		if snap.VisitorCount != 1 {
			t.Errorf("Expected one spawn after 5s, got %d", snap.VisitorCount)
		}
	})

	t.Run("dt is clamped", func(t *testing.T) {
		before, _ := svc.GetParkState(ctx, info.ID)
		snap, err := svc.Advance(ctx, info.ID, 10, 2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := snap.Elapsed - before.Elapsed; math.Abs(got-2*MaxFrameDelta) > 1e-9 {
			t.Errorf("Expected clamped advance of %g, got %g", 2*MaxFrameDelta, got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := svc.Advance(cctx, info.ID, 0.1, 10); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.Advance(ctx, "missing", 0.1, 1); err == nil {
			t.Error("Expected error")
		}
	})
}

func TestTickAllSkipsPaused(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	running, _ := svc.CreateSession(ctx, "", 1)
	paused, _ := svc.CreateSession(ctx, "", 2)

	if err := svc.SetPaused(ctx, paused.ID, true); err != nil {
		t.Fatalf("Failed to pause: %v", err)
	}

	snaps := svc.TickAll(0.2)
	if len(snaps) != 1 || snaps[running.ID] == nil {
		t.Fatalf("Expected only the running session, got %d snapshots", len(snaps))
	}
	if snaps[running.ID].Elapsed != 0.2 {
		t.Errorf("Expected 0.2s elapsed, got %g", snaps[running.ID].Elapsed)
	}

	state, _ := svc.GetSession(ctx, paused.ID)
	if !state.Paused || state.State.Elapsed != 0 {
		t.Error("Expected paused session untouched")
	}
}

func TestDescribeCell(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "", 3)
	svc.PlaceAttraction(ctx, info.ID, "ferris", 4, 4)

	tests := []struct {
		name     string
		x, y     int
		kind     string
		walkable bool
	}{
		{"entrance", 10, 19, "entrance", true},
		{"exit", 10, 0, "exit", true},
		{"empty", 1, 1, "empty", true},
		{"facility footprint", 5, 5, "facility", false},
		{"outside", -1, 3, "out_of_bounds", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := svc.DescribeCell(ctx, info.ID, tt.x, tt.y)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cell.Kind != tt.kind || cell.Walkable != tt.walkable {
				t.Errorf("Expected %s walkable=%v, got %s %v", tt.kind, tt.walkable, cell.Kind, cell.Walkable)
			}
			if tt.kind == "facility" && (cell.Facility == nil || cell.Facility.Type != engine.FerrisWheel) {
				t.Errorf("Expected ferris wheel details, got %+v", cell.Facility)
			}
		})
	}
}

func TestFacilityCatalog(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	specs, err := svc.FacilityCatalog(ctx, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(specs) != 3 || specs[0].Type != engine.Food || specs[2].Type != engine.FerrisWheel {
		t.Errorf("Expected food, carousel, ferris; got %+v", specs)
	}
	if _, err := svc.FacilityCatalog(ctx, "missing"); err == nil {
		t.Error("Expected error for missing config")
	}
}

func TestSaveConfigValidates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	bad := engine.DefaultParkConfig()
	bad.Name = ""
	if err := svc.SaveConfig(ctx, "bad", bad); err == nil {
		t.Error("Expected validation error")
	}
	if err := svc.SaveConfig(ctx, "good", engine.DefaultParkConfig()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
