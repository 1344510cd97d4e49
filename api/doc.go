// Package api provides the HTTP REST API for the park simulator.
//
// Endpoints:
//
// Parks:
//   - POST   /api/parks                      - Create a park ({"config_id": "...", "seed": 42})
//   - GET    /api/parks                      - List parks (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/parks/{id}                 - Park session with config and snapshot
//   - DELETE /api/parks/{id}                 - Delete a park
//
// Park operations:
//   - GET  /api/parks/{id}/state             - Current ParkSnapshot
//   - GET  /api/parks/{id}/map               - ASCII map as text/plain
//   - GET  /api/parks/{id}/facilities        - Facility states
//   - GET  /api/parks/{id}/cells/{x}/{y}     - What occupies a cell
//   - POST /api/parks/{id}/place             - Place an attraction ({"type": "food", "x": 3, "y": 4})
//   - GET  /api/parks/{id}/can-place         - Dry-run placement (?type=&x=&y=)
//   - POST /api/parks/{id}/advance           - Step the simulation ({"dt": 0.1, "steps": 100})
//   - POST /api/parks/{id}/pause             - Pause or resume wall-clock ticking ({"paused": true})
//
// Catalog and configuration:
//   - GET  /api/catalog                      - Attraction specs (?config=)
//   - GET  /api/configs                      - Available park configurations
//   - POST /api/configs                      - Save a configuration
//   - GET  /api/configs/{name}               - One configuration
//
// Live view and health:
//   - GET /ws?session={id}                   - WebSocket stream of snapshots
//   - GET /health
//
// A failed placement precondition is not an HTTP error: /place answers 200
// with success=false and the reason. Errors are JSON with a status code:
//
//	{"error": "session not found: ...", "code": 404}
//
// Usage:
//
//	server := api.NewServer(parkService, hub)
//	server.Handle("/metrics", promhttp.Handler())
//	http.ListenAndServe(":8080", server)
package api
