package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/wricardo/parksim/game/config"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
	"github.com/wricardo/parksim/game/session"
	"github.com/wricardo/parksim/transport/websocket"
)

// Advance defaults when the request omits them
const (
	defaultAdvanceDT    = 0.1
	defaultAdvanceSteps = 1
)

// Server represents the REST API server
type Server struct {
	service service.ParkService
	hub     *websocket.Hub
	router  *mux.Router

	observer service.ParkObserver
}

// NewServer creates a new API server. hub may be nil when live viewing is disabled.
func NewServer(parkService service.ParkService, hub *websocket.Hub) *Server {
	s := &Server{
		service: parkService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Park sessions
	api.HandleFunc("/parks", s.handleCreatePark).Methods("POST")
	api.HandleFunc("/parks", s.handleListParks).Methods("GET")
	api.HandleFunc("/parks/{id}", s.handleGetPark).Methods("GET")
	api.HandleFunc("/parks/{id}", s.handleDeletePark).Methods("DELETE")

	// Park operations
	api.HandleFunc("/parks/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/parks/{id}/map", s.handleGetMap).Methods("GET")
	api.HandleFunc("/parks/{id}/facilities", s.handleGetFacilities).Methods("GET")
	api.HandleFunc("/parks/{id}/cells/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleDescribeCell).Methods("GET")
	api.HandleFunc("/parks/{id}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/parks/{id}/can-place", s.handleCanPlace).Methods("GET")
	api.HandleFunc("/parks/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/parks/{id}/pause", s.handlePause).Methods("POST")

	// Catalog and configuration
	api.HandleFunc("/catalog", s.handleCatalog).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handle mounts an extra handler, such as /metrics, on the server's router
func (s *Server) Handle(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// SetObserver reports placements and deletions to o
func (s *Server) SetObserver(o service.ParkObserver) {
	s.observer = o
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownFacilityType),
		errors.Is(err, service.ErrInvalidStep),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	respondError(w, status, err.Error())
}

func parseCoord(raw, name string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s coordinate %q", name, raw)
	}
	return v, nil
}

// Session Handlers

func (s *Server) handleCreatePark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		Seed     uint64 `json:"seed,omitempty"`
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	info, err := s.service.CreateSession(r.Context(), req.ConfigID, req.Seed)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListParks(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetPark(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeletePark(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventDeleted, nil)
	}
	if s.observer != nil {
		s.observer.ForgetSession(sessionID)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Park %s deleted", sessionID),
	})
}

// Park Operation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetParkState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetParkState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, strings.Join(state.Grid, "\n"))
}

func (s *Server) handleGetFacilities(w http.ResponseWriter, r *http.Request) {
	facilities, err := s.service.GetFacilityStates(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(facilities),
		"facilities": facilities,
	})
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	x, err := parseCoord(vars["x"], "x")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseCoord(vars["y"], "y")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), vars["id"], x, y)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Type string `json:"type"`
		X    *int   `json:"x"`
		Y    *int   `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" || req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, "type, x and y are required")
		return
	}

	result, err := s.service.PlaceAttraction(r.Context(), sessionID, req.Type, *req.X, *req.Y)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.observer != nil {
		s.observer.RecordPlacement(sessionID, result)
	}
	if result.Success && s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventPlacement, result)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCanPlace(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	x, err := parseCoord(query.Get("x"), "x")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseCoord(query.Get("y"), "y")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.CanPlace(r.Context(), mux.Vars(r)["id"], query.Get("type"), x, y)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req := struct {
		DT    float64 `json:"dt"`
		Steps int     `json:"steps"`
	}{DT: defaultAdvanceDT, Steps: defaultAdvanceSteps}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	state, err := s.service.Advance(r.Context(), sessionID, req.DT, req.Steps)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.PublishSnapshot(sessionID, state)
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SetPaused(r.Context(), sessionID, req.Paused); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     sessionID,
		"paused": req.Paused,
	})
}

// Configuration Handlers

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	specs, err := s.service.FacilityCatalog(r.Context(), r.URL.Query().Get("config"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, specs)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id"`
		engine.ParkConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	configID := req.ConfigID
	if configID == "" {
		configID = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", "_"))
	}

	cfg := req.ParkConfig
	cfg.ApplyDefaults()
	if err := s.service.SaveConfig(r.Context(), configID, &cfg); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live view disabled", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
