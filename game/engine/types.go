package engine

// FacilityType identifies a kind of attraction
type FacilityType string

const (
	Food        FacilityType = "food"
	Carousel    FacilityType = "carousel"
	FerrisWheel FacilityType = "ferris"

	// Validation constants
	MinGridSize        = 5
	MaxGridSize        = 100
	LargeSizeThreshold = 1.8
	DefaultCellSize    = 2.0
)

// FacilityTypes lists the built-in attraction types in display order
var FacilityTypes = []FacilityType{Food, Carousel, FerrisWheel}

// FacilityID indexes the facility table
type FacilityID int

// NoFacility is the zero reference used when a visitor is not tied to a facility
const NoFacility FacilityID = -1

// CellKind tags the content of a grid cell
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellRoot
	CellPart
)

// Cell is one grid cell. Facility is meaningful only when Kind != CellEmpty.
type Cell struct {
	Kind     CellKind
	Facility FacilityID
}

// GridPos represents x,y grid coordinates
type GridPos struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// WorldPos is a position on the ground plane in world units
type WorldPos struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// VisitorState is the agent lifecycle tag
type VisitorState string

const (
	Walking  VisitorState = "walking"
	Playing  VisitorState = "playing"
	Finished VisitorState = "finished"
)

// TransitionResult reports what happened to a visitor during one update
type TransitionResult int

const (
	Continue TransitionResult = iota
	StartedPlaying
	Rerouted
	CompletedPlay
	VisitorFinished
)

func (r TransitionResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case StartedPlaying:
		return "started_playing"
	case Rerouted:
		return "rerouted"
	case CompletedPlay:
		return "completed_play"
	case VisitorFinished:
		return "finished"
	}
	return "unknown"
}

// FacilityState is the read-only view of a placed facility
type FacilityState struct {
	ID             FacilityID   `json:"id"`
	Type           FacilityType `json:"type"`
	X              int          `json:"x"`
	Y              int          `json:"y"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Capacity       int          `json:"capacity"`
	CurrentPlayers int          `json:"current_players"`
}

// VisitorView is the read-only view of an active visitor
type VisitorView struct {
	ID           int          `json:"id"`
	State        VisitorState `json:"state"`
	Position     WorldPos     `json:"position"`
	Cell         GridPos      `json:"cell"`
	Satisfaction float64      `json:"satisfaction"`
	Facility     FacilityID   `json:"facility"`
	Remaining    float64      `json:"remaining,omitempty"`
	RouteLength  int          `json:"route_length"`
	RouteCursor  int          `json:"route_cursor"`
}

// Stats are cumulative event counters since the park was created
type Stats struct {
	Spawned      int `json:"spawned"`
	FailedSpawns int `json:"failed_spawns"`
	Plays        int `json:"plays"`
	Reroutes     int `json:"reroutes"`
	Departed     int `json:"departed"`
	Delighted    int `json:"delighted"`
	Unhappy      int `json:"unhappy"`
}

// ParkSnapshot represents the complete observable park state
type ParkSnapshot struct {
	Name           string          `json:"name"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Entrance       GridPos         `json:"entrance"`
	Exit           GridPos         `json:"exit"`
	Funds          float64         `json:"funds"`
	Reputation     float64         `json:"reputation"`
	Satisfaction   float64         `json:"satisfaction"`
	VisitorCount   int             `json:"visitor_count"`
	ActiveVisitors int             `json:"active_visitors"`
	SpawnInterval  float64         `json:"spawn_interval"`
	Elapsed        float64         `json:"elapsed"`
	Selected       FacilityType    `json:"selected,omitempty"`
	Stats          Stats           `json:"stats"`
	Facilities     []FacilityState `json:"facilities"`
	Visitors       []VisitorView   `json:"visitors"`
	Grid           []string        `json:"grid"`
}
