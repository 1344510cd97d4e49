// Package engine provides the core simulation for the park.
//
// The engine package implements:
//   - An occupancy grid with reserved entrance/exit cells and a buffer rule for large attractions
//   - A* pathfinding over the grid, chained into multi-waypoint routes
//   - A facility table tracking capacity and occupancy
//   - Weighted random target selection for visitors
//   - The visitor state machine (walking, playing, finished)
//   - Park-wide funds, reputation and satisfaction dynamics
//
// Core Types:
//
// Park is the simulation context and implements Simulation. It composes
// GridMap, PathFinder, FacilityRegistry and TargetSelector and owns every
// active Visitor. ParkConfig describes a scenario loaded from JSON or YAML.
//
// Usage:
//
//	config, err := engine.LoadParkConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	park, err := engine.NewPark(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	park.PlaceFacility(engine.Carousel, 10, 10)
//	park.Update(0.016)
//	snapshot := park.Snapshot()
//
// Update is single-threaded and expects a sanitized delta time; the host
// clamps it (see service.ClampDelta).
package engine
