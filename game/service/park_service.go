package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/parksim/game/engine"
)

// ParkService defines all park-related operations
type ParkService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed uint64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Park Operations
	PlaceAttraction(ctx context.Context, sessionID, facilityType string, x, y int) (*PlacementResult, error)
	CanPlace(ctx context.Context, sessionID, facilityType string, x, y int) (*PlacementResult, error)
	Advance(ctx context.Context, sessionID string, dt float64, steps int) (*engine.ParkSnapshot, error)
	SetPaused(ctx context.Context, sessionID string, paused bool) error
	TickAll(dt float64) map[string]*engine.ParkSnapshot

	// Park State
	GetParkState(ctx context.Context, sessionID string) (*engine.ParkSnapshot, error)
	GetFacilityStates(ctx context.Context, sessionID string) ([]engine.FacilityState, error)
	DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.ParkConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.ParkConfig) error
	FacilityCatalog(ctx context.Context, configName string) ([]engine.FacilitySpec, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.ParkConfig, seed uint64) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.ParkConfig, seed uint64) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles park configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ParkConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.ParkConfig
	SaveConfig(name string, config *engine.ParkConfig) error
}

// Session represents one running park. The park is single-threaded;
// Do serialises every access to it.
type Session struct {
	ID        string
	Park      *engine.Park
	Config    *engine.ParkConfig
	ConfigID  string
	CreatedAt time.Time

	mu           sync.Mutex
	paused       bool
	lastAccessed time.Time
}

// Do runs fn with exclusive access to the park
func (s *Session) Do(fn func(p *engine.Park)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Park)
}

// Paused reports whether the ticker skips this session
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetPaused stops or resumes ticking for the session
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Touch records an access at the given time
func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = at
}

// LastAccessed returns the time of the most recent access
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}
