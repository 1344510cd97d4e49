package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFacilityType is returned when a name does not match any catalog entry
var ErrUnknownFacilityType = errors.New("unknown facility type")

// SpawnConfig maps reputation onto the visitor spawn interval
type SpawnConfig struct {
	BaseInterval    float64 `json:"base_interval" yaml:"base_interval"`
	MinInterval     float64 `json:"min_interval" yaml:"min_interval"`
	MaxInterval     float64 `json:"max_interval" yaml:"max_interval"`
	ReputationCap   float64 `json:"reputation_cap" yaml:"reputation_cap"`
	ReputationFloor float64 `json:"reputation_floor" yaml:"reputation_floor"`
}

// VisitorConfig holds per-visitor movement and mood parameters
type VisitorConfig struct {
	Speed               float64 `json:"speed" yaml:"speed"`
	ArriveEpsilon       float64 `json:"arrive_epsilon" yaml:"arrive_epsilon"`
	InitialSatisfaction float64 `json:"initial_satisfaction" yaml:"initial_satisfaction"`
	PreferenceMin       float64 `json:"preference_min" yaml:"preference_min"`
	PreferenceMax       float64 `json:"preference_max" yaml:"preference_max"`
	LeaveAbove          float64 `json:"leave_above" yaml:"leave_above"`
	LeaveBelow          float64 `json:"leave_below" yaml:"leave_below"`
}

// LayoutEntry is a facility placed for free when the park is created
type LayoutEntry struct {
	Type FacilityType `json:"type" yaml:"type"`
	X    int          `json:"x" yaml:"x"`
	Y    int          `json:"y" yaml:"y"`
}

// ParkConfig represents a park scenario loaded from JSON or YAML
type ParkConfig struct {
	Name                 string                        `json:"name" yaml:"name"`
	Description          string                        `json:"description" yaml:"description"`
	GridWidth            int                           `json:"grid_width" yaml:"grid_width"`
	GridHeight           int                           `json:"grid_height" yaml:"grid_height"`
	CellSize             float64                       `json:"cell_size,omitempty" yaml:"cell_size,omitempty"`
	Entrance             *GridPos                      `json:"entrance,omitempty" yaml:"entrance,omitempty"`
	Exit                 *GridPos                      `json:"exit,omitempty" yaml:"exit,omitempty"`
	StartingFunds        float64                       `json:"starting_funds" yaml:"starting_funds"`
	StartingReputation   float64                       `json:"starting_reputation" yaml:"starting_reputation"`
	StartingSatisfaction float64                       `json:"starting_satisfaction" yaml:"starting_satisfaction"`
	Seed                 uint64                        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Spawn                SpawnConfig                   `json:"spawn" yaml:"spawn"`
	ReputationDecay      float64                       `json:"reputation_decay" yaml:"reputation_decay"`
	Visitor              VisitorConfig                 `json:"visitor" yaml:"visitor"`
	Facilities           map[FacilityType]FacilitySpec `json:"facilities,omitempty" yaml:"facilities,omitempty"`
	Layout               []LayoutEntry                 `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// DefaultSpawnConfig returns the stock reputation→interval mapping
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		BaseInterval:    4,
		MinInterval:     2,
		MaxInterval:     6,
		ReputationCap:   100,
		ReputationFloor: -50,
	}
}

// DefaultVisitorConfig returns the stock visitor parameters
func DefaultVisitorConfig() VisitorConfig {
	return VisitorConfig{
		Speed:               3,
		ArriveEpsilon:       0.05,
		InitialSatisfaction: 50,
		PreferenceMin:       0.5,
		PreferenceMax:       1.1,
		LeaveAbove:          80,
		LeaveBelow:          20,
	}
}

// DefaultParkConfig returns the built-in 20x20 park
func DefaultParkConfig() *ParkConfig {
	cfg := &ParkConfig{
		Name:                 "default",
		Description:          "Empty 20x20 park with the stock catalog",
		GridWidth:            20,
		GridHeight:           20,
		CellSize:             DefaultCellSize,
		StartingFunds:        10000,
		StartingSatisfaction: 50,
		Spawn:                DefaultSpawnConfig(),
		ReputationDecay:      0.1,
		Visitor:              DefaultVisitorConfig(),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills fields whose zero value is never meaningful
func (c *ParkConfig) ApplyDefaults() {
	if c.CellSize <= 0 {
		c.CellSize = DefaultCellSize
	}
	if c.Entrance == nil {
		c.Entrance = &GridPos{X: c.GridWidth / 2, Y: c.GridHeight - 1}
	}
	if c.Exit == nil {
		c.Exit = &GridPos{X: c.GridWidth / 2, Y: 0}
	}
	if c.Spawn == (SpawnConfig{}) {
		c.Spawn = DefaultSpawnConfig()
	}
	if c.Visitor == (VisitorConfig{}) {
		c.Visitor = DefaultVisitorConfig()
	}
}

// Catalog merges the config's facility overrides onto the default catalog
func (c *ParkConfig) Catalog() map[FacilityType]FacilitySpec {
	catalog := DefaultCatalog()
	for t, spec := range c.Facilities {
		spec.Type = t
		catalog[t] = spec
	}
	return catalog
}

// CatalogTypes returns catalog keys: built-in types first, then extras sorted by name
func CatalogTypes(catalog map[FacilityType]FacilitySpec) []FacilityType {
	types := make([]FacilityType, 0, len(catalog))
	for _, t := range FacilityTypes {
		if _, ok := catalog[t]; ok {
			types = append(types, t)
		}
	}
	var extra []FacilityType
	for t := range catalog {
		if !isBuiltin(t) {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(types, extra...)
}

func isBuiltin(t FacilityType) bool {
	for _, b := range FacilityTypes {
		if b == t {
			return true
		}
	}
	return false
}

// ValidateParkConfig validates a park configuration for correctness and playability
func ValidateParkConfig(config *ParkConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.GridWidth < MinGridSize || config.GridWidth > MaxGridSize {
		return fmt.Errorf("config validation: grid_width must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridWidth)
	}
	if config.GridHeight < MinGridSize || config.GridHeight > MaxGridSize {
		return fmt.Errorf("config validation: grid_height must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridHeight)
	}
	if config.CellSize <= 0 {
		return fmt.Errorf("config validation: cell_size must be positive, got %g", config.CellSize)
	}

	if config.Entrance == nil || config.Exit == nil {
		return fmt.Errorf("config validation: entrance and exit are required")
	}
	inGrid := func(p GridPos) bool {
		return p.X >= 0 && p.X < config.GridWidth && p.Y >= 0 && p.Y < config.GridHeight
	}
	if !inGrid(*config.Entrance) {
		return fmt.Errorf("config validation: entrance (%d, %d) is outside the grid", config.Entrance.X, config.Entrance.Y)
	}
	if !inGrid(*config.Exit) {
		return fmt.Errorf("config validation: exit (%d, %d) is outside the grid", config.Exit.X, config.Exit.Y)
	}
	if *config.Entrance == *config.Exit {
		return fmt.Errorf("config validation: entrance and exit must differ")
	}

	if config.StartingSatisfaction < 0 || config.StartingSatisfaction > 100 {
		return fmt.Errorf("config validation: starting_satisfaction must be between 0 and 100, got %g", config.StartingSatisfaction)
	}
	if config.ReputationDecay < 0 {
		return fmt.Errorf("config validation: reputation_decay must not be negative")
	}

	s := config.Spawn
	if s.MinInterval <= 0 || s.MinInterval > s.BaseInterval || s.BaseInterval > s.MaxInterval {
		return fmt.Errorf("config validation: spawn intervals must satisfy 0 < min (%g) <= base (%g) <= max (%g)",
			s.MinInterval, s.BaseInterval, s.MaxInterval)
	}
	if s.ReputationCap <= 0 {
		return fmt.Errorf("config validation: spawn.reputation_cap must be positive")
	}
	if s.ReputationFloor >= 0 {
		return fmt.Errorf("config validation: spawn.reputation_floor must be negative")
	}
	if config.StartingReputation < s.ReputationFloor {
		return fmt.Errorf("config validation: starting_reputation %g is below the floor %g", config.StartingReputation, s.ReputationFloor)
	}

	v := config.Visitor
	if v.Speed <= 0 {
		return fmt.Errorf("config validation: visitor.speed must be positive")
	}
	if v.ArriveEpsilon <= 0 {
		return fmt.Errorf("config validation: visitor.arrive_epsilon must be positive")
	}
	if v.PreferenceMin <= 0 || v.PreferenceMax < v.PreferenceMin {
		return fmt.Errorf("config validation: visitor preferences must satisfy 0 < min <= max")
	}
	if v.LeaveBelow > v.LeaveAbove {
		return fmt.Errorf("config validation: visitor.leave_below must not exceed leave_above")
	}

	catalog := config.Catalog()
	for t, spec := range catalog {
		if spec.Capacity < 1 {
			return fmt.Errorf("config validation: facility %q capacity must be at least 1", t)
		}
		if spec.Width < 1 || spec.Height < 1 {
			return fmt.Errorf("config validation: facility %q footprint must be at least 1x1", t)
		}
		if spec.PlayDuration <= 0 {
			return fmt.Errorf("config validation: facility %q play_duration must be positive", t)
		}
		if spec.Cost < 0 || spec.HappinessGain < 0 {
			return fmt.Errorf("config validation: facility %q cost and happiness_gain must not be negative", t)
		}
	}

	// Layout must place cleanly and leave the exit reachable from the entrance
	grid := NewGridMap(config.GridWidth, config.GridHeight, config.CellSize, *config.Entrance, *config.Exit)
	registry := NewFacilityRegistry(grid)
	for i, entry := range config.Layout {
		spec, ok := catalog[entry.Type]
		if !ok {
			return fmt.Errorf("config validation: layout[%d]: %w: %q", i, ErrUnknownFacilityType, entry.Type)
		}
		if _, ok := registry.Place(spec, entry.X, entry.Y, nil); !ok {
			return fmt.Errorf("config validation: layout[%d]: %s cannot be placed at (%d, %d)", i, entry.Type, entry.X, entry.Y)
		}
	}
	if _, ok := NewPathFinder(grid).FindPath(config.Entrance.X, config.Entrance.Y, config.Exit.X, config.Exit.Y); !ok {
		return fmt.Errorf("config validation: exit is unreachable from the entrance")
	}

	return nil
}

// DecodeParkConfig parses data as YAML for .yaml/.yml names and JSON otherwise
func DecodeParkConfig(name string, data []byte) (*ParkConfig, error) {
	var config ParkConfig
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse yaml %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse json %s: %w", name, err)
		}
	}
	config.ApplyDefaults()
	return &config, nil
}

// EncodeParkConfig is the inverse of DecodeParkConfig
func EncodeParkConfig(name string, config *ParkConfig) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return yaml.Marshal(config)
	default:
		return json.MarshalIndent(config, "", "  ")
	}
}

// LoadParkConfig loads and validates a park configuration file
func LoadParkConfig(filename string) (*ParkConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := DecodeParkConfig(configPath, data)
	if err != nil {
		return nil, err
	}
	if err := ValidateParkConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}
