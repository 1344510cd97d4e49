// Package websocket streams live park state to browser viewers.
//
// A central Hub owns every connection. Clients join a single session via
// the ?session= query parameter and receive one JSON Message per update:
//
//	{"session_id": "a1b2c3d4", "event": "state_update", "state": {...}}
//
// The Hub implements service.SnapshotSubscriber, so the simulation ticker
// pushes a ParkSnapshot after every tick. Snapshots for sessions nobody is
// watching are discarded before serialisation. Clients are read-only; their
// inbound frames only keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	ticker := service.NewTicker(parkService, 100*time.Millisecond, hub)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Slow clients whose send buffer fills up are disconnected rather than
// allowed to stall the broadcast loop.
package websocket
