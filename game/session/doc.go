// Package session provides session management for the park simulator.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine.Park built from a ParkConfig,
// plus creation and last-access times.
//
// Session Identifiers:
//
// Generated IDs are the first 8 hex characters of a random UUID. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config, 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
// Sessions live in memory only; they are dropped on Delete, on expiry via
// CleanupExpiredSessions, or when the process exits.
package session
