// Package mcp exposes the park simulator to AI agents over the Model Context Protocol.
//
// Client is a thin MCP server whose tools proxy to the REST API, so agents
// and browsers always see the same parks:
//   - create_park, list_parks, get_park: session management
//   - park_state: funds, reputation, visitors and the ASCII map
//   - place_attraction, can_place: buying attractions
//   - advance, pause_park: stepping time
//   - describe_cell, facility_catalog, list_configs, park_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//   - HTTP: the main server forwards POST /mcp bodies to HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
//
// Tool failures, including API errors, are returned as tool results with
// IsError set rather than as protocol errors.
package mcp
