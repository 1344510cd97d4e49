package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/wricardo/parksim/game/engine"
)

// MaxAdvanceSteps bounds a single Advance call
const MaxAdvanceSteps = 4800

var (
	// ErrInvalidStep is returned for out-of-range Advance arguments
	ErrInvalidStep = errors.New("invalid advance request")

	// ErrConfigNotFound and ErrInvalidConfig are returned by ConfigManager implementations
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// parkServiceImpl implements the ParkService interface
type parkServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewParkService creates a new park service instance
func NewParkService(sessions SessionManager, configs ConfigManager) ParkService {
	return &parkServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *parkServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *parkServiceImpl) info(sess *Session, withConfig bool) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Paused:         sess.Paused(),
	}
	if withConfig {
		info.Config = sess.Config
	}
	sess.Do(func(p *engine.Park) { info.State = p.Snapshot() })
	return info
}

// CreateSession creates a new park session
func (s *parkServiceImpl) CreateSession(ctx context.Context, configName string, seed uint64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.ParkConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ConfigID = configName
	if sess.ConfigID == "" {
		sess.ConfigID = s.getConfigID(config.Name)
	}

	log.Info("park session created", "session", sess.ID, "config", sess.ConfigID, "seed", seed)
	return s.info(sess, true), nil
}

// GetSession retrieves session information
func (s *parkServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return s.info(sess, true), nil
}

// ListSessions returns all active sessions ordered by creation time
func (s *parkServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, false))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *parkServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	log.Info("park session deleted", "session", sessionID)
	return nil
}

func (s *parkServiceImpl) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// PlaceAttraction validates and commits a placement
func (s *parkServiceImpl) PlaceAttraction(ctx context.Context, sessionID, facilityType string, x, y int) (*PlacementResult, error) {
	return s.placement(sessionID, facilityType, x, y, true)
}

// CanPlace reports whether a placement would succeed without committing it
func (s *parkServiceImpl) CanPlace(ctx context.Context, sessionID, facilityType string, x, y int) (*PlacementResult, error) {
	return s.placement(sessionID, facilityType, x, y, false)
}

func (s *parkServiceImpl) placement(sessionID, facilityType string, x, y int, commit bool) (*PlacementResult, error) {
	ft, err := engine.ParseFacilityType(facilityType)
	if err != nil {
		ft = engine.FacilityType(strings.ToLower(strings.TrimSpace(facilityType)))
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var result *PlacementResult
	sess.Do(func(p *engine.Park) {
		spec, known := p.Catalog()[ft]
		if !known {
			return
		}
		check := p.CheckPlacement(ft, x, y)
		result = &PlacementResult{
			Success: check == engine.PlacementOK,
			Reason:  check.String(),
			Type:    ft,
			X:       x,
			Y:       y,
			Cost:    spec.Cost,
		}
		if commit && result.Success {
			result.Success = p.PlaceFacility(ft, x, y)
			if result.Success {
				states := p.FacilityStates()
				last := states[len(states)-1]
				result.Facility = &last
			}
		}
		result.Funds = p.Funds()
	})
	if result == nil {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownFacilityType, facilityType)
	}

	if commit {
		log.Info("placement", "session", sess.ID, "type", ft, "x", x, "y", y, "success", result.Success, "reason", result.Reason)
	}
	return result, nil
}

// Advance steps a park forward by steps ticks of dt seconds each
func (s *parkServiceImpl) Advance(ctx context.Context, sessionID string, dt float64, steps int) (*engine.ParkSnapshot, error) {
	if steps < 1 || steps > MaxAdvanceSteps {
		return nil, fmt.Errorf("%w: steps must be between 1 and %d, got %d", ErrInvalidStep, MaxAdvanceSteps, steps)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidStep, dt)
	}
	dt = ClampDelta(dt)

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var snapshot *engine.ParkSnapshot
	sess.Do(func(p *engine.Park) {
		for i := 0; i < steps; i++ {
			if ctx.Err() != nil {
				break
			}
			p.Update(dt)
		}
		snapshot = p.Snapshot()
	})
	if err := ctx.Err(); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// SetPaused stops or resumes automatic ticking for a session
func (s *parkServiceImpl) SetPaused(ctx context.Context, sessionID string, paused bool) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.SetPaused(paused)
	return nil
}

// TickAll advances every unpaused session by dt and returns their snapshots
func (s *parkServiceImpl) TickAll(dt float64) map[string]*engine.ParkSnapshot {
	dt = ClampDelta(dt)

	s.mu.RLock()
	sessions := s.sessions.List()
	s.mu.RUnlock()

	out := make(map[string]*engine.ParkSnapshot, len(sessions))
	for _, sess := range sessions {
		if sess.Paused() {
			continue
		}
		sess.Do(func(p *engine.Park) {
			p.Update(dt)
			out[sess.ID] = p.Snapshot()
		})
	}
	return out
}

// GetParkState returns the current snapshot
func (s *parkServiceImpl) GetParkState(ctx context.Context, sessionID string) (*engine.ParkSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	var snapshot *engine.ParkSnapshot
	sess.Do(func(p *engine.Park) { snapshot = p.Snapshot() })
	return snapshot, nil
}

// GetFacilityStates returns the read-only facility list
func (s *parkServiceImpl) GetFacilityStates(ctx context.Context, sessionID string) ([]engine.FacilityState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	var states []engine.FacilityState
	sess.Do(func(p *engine.Park) { states = p.FacilityStates() })
	return states, nil
}

// DescribeCell reports what occupies a grid cell
func (s *parkServiceImpl) DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	info := &CellInfo{X: x, Y: y}
	sess.Do(func(p *engine.Park) {
		g := p.Grid()
		if !g.InBounds(x, y) {
			info.Kind = "out_of_bounds"
			return
		}
		info.World = g.GridToWorld(x, y)
		info.Walkable = g.IsWalkable(x, y)
		switch pos := (engine.GridPos{X: x, Y: y}); {
		case pos == g.Entrance():
			info.Kind = "entrance"
			info.Walkable = true
		case pos == g.Exit():
			info.Kind = "exit"
			info.Walkable = true
		default:
			info.Kind = "empty"
		}
		if id, ok := g.FacilityAt(x, y); ok {
			info.Kind = "facility"
			for _, f := range p.FacilityStates() {
				if f.ID == id {
					info.Facility = &f
				}
			}
		}
		for _, v := range p.Visitors() {
			if v.Cell.X == x && v.Cell.Y == y {
				info.Visitors++
			}
		}
	})
	return info, nil
}

// ListConfigs returns all available configurations
func (s *parkServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *parkServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.ParkConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and stores a configuration
func (s *parkServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.ParkConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// FacilityCatalog returns the attraction specs for a config, or the default config when empty
func (s *parkServiceImpl) FacilityCatalog(ctx context.Context, configName string) ([]engine.FacilitySpec, error) {
	config := s.configs.GetDefault()
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	}
	if config == nil {
		config = engine.DefaultParkConfig()
	}

	catalog := config.Catalog()
	specs := make([]engine.FacilitySpec, 0, len(catalog))
	for _, t := range engine.CatalogTypes(catalog) {
		specs = append(specs, catalog[t])
	}
	return specs, nil
}
