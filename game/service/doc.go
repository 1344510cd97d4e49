// Package service provides the business logic layer for the park simulator.
//
// The service package implements:
//   - Multi-session park management
//   - Placement and time advancement on behalf of transports
//   - Configuration listing, loading and saving
//   - The fixed-rate Ticker that drives every unpaused park
//
// Core Interfaces:
//
// ParkService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages park configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP/terminal)
// and the engine. Each session owns one engine.Park; the engine is
// single-threaded, so every access goes through the session's lock.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	parkService := service.NewParkService(sessionMgr, configMgr)
//
//	info, err := parkService.CreateSession(ctx, "classic", 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := parkService.PlaceAttraction(ctx, info.ID, "carousel", 10, 10)
//
//	ticker := service.NewTicker(parkService, 100*time.Millisecond, hub, collector)
//	go ticker.Run(ctx)
//
// Time:
//
// Delta time is always passed through ClampDelta before it reaches a park,
// so a stalled host never feeds a negative or huge step into the simulation.
package service
