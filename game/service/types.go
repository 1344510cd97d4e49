package service

import (
	"time"

	"github.com/wricardo/parksim/game/engine"
)

// SessionInfo provides information about a park session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Paused         bool                 `json:"paused"`
	State          *engine.ParkSnapshot `json:"state"`
	Config         *engine.ParkConfig   `json:"config,omitempty"`
}

// PlacementResult contains the outcome of a placement request or check
type PlacementResult struct {
	Success  bool                  `json:"success"`
	Reason   string                `json:"reason"`
	Type     engine.FacilityType   `json:"type"`
	X        int                   `json:"x"`
	Y        int                   `json:"y"`
	Cost     float64               `json:"cost"`
	Funds    float64               `json:"funds"`
	Facility *engine.FacilityState `json:"facility,omitempty"`
}

// CellInfo describes one grid cell for agents and tools
type CellInfo struct {
	X        int                   `json:"x"`
	Y        int                   `json:"y"`
	Kind     string                `json:"kind"` // "empty", "entrance", "exit", "facility", "out_of_bounds"
	Walkable bool                  `json:"walkable"`
	World    engine.WorldPos       `json:"world"`
	Facility *engine.FacilityState `json:"facility,omitempty"`
	Visitors int                   `json:"visitors"`
}

// ConfigInfo provides information about a park configuration
type ConfigInfo struct {
	Filename      string  `json:"filename"`
	ConfigID      string  `json:"config_id"` // The identifier to use for session creation
	Name          string  `json:"name"`      // Display name
	Description   string  `json:"description"`
	GridWidth     int     `json:"grid_width"`
	GridHeight    int     `json:"grid_height"`
	StartingFunds float64 `json:"starting_funds"`
	Attractions   int     `json:"attractions"`
}
