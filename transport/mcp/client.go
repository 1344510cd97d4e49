package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Park Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Park Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Build an amusement park on a grid. Visitors arrive at the entrance (E), walk to
attractions, pay to play and leave through the exit (X). Grow funds and
reputation by placing attractions where visitors want them.

AVAILABLE TOOLS:
- create_park: Create a new park session
- list_parks / get_park: Inspect sessions
- park_state: Funds, reputation, visitors and the ASCII map
- facility_catalog: Attraction costs, income, capacity and footprint
- can_place: Dry-run a placement
- place_attraction: Buy and place an attraction - requires intent explanation
- advance: Step the simulation forward
- pause_park: Stop or resume real-time ticking
- describe_cell: Inspect one grid cell
- list_configs: List park configurations
- park_instructions: Full rules

NOTE: The 'intent' parameter on place_attraction serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Park session ID",
	}
}

func coordProperty(axis string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": fmt.Sprintf("Grid %s coordinate (0-based)", axis),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_park",
		Description: "Create a new park session with optional config selection and seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config ID to use (optional, see list_configs)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Random seed for a reproducible park (optional)",
				},
			},
		},
	}, c.handleCreatePark)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_parks",
		Description: "List all active park sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListParks)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_park",
		Description: "Get details of a specific park session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetPark)

	// Park operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "park_state",
		Description: "Get the current park state with map",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleParkState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_attraction",
		Description: "Buy an attraction and place its top-left corner at (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(engine.Food), string(engine.Carousel), string(engine.FerrisWheel)},
					"description": "Attraction type",
				},
				"x": coordProperty("x"),
				"y": coordProperty("y"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this attraction goes here (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "type", "x", "y"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "can_place",
		Description: "Check whether an attraction could be placed at (x, y) without buying it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Attraction type",
				},
				"x": coordProperty("x"),
				"y": coordProperty("y"),
			},
			Required: []string{"session_id", "type", "x", "y"},
		},
	}, c.handleCanPlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: "Advance the simulation by steps ticks of dt seconds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"seconds": map[string]interface{}{
					"type":        "number",
					"description": "Simulated seconds to advance (split into 0.1s ticks); overrides steps",
				},
				"dt": map[string]interface{}{
					"type":        "number",
					"description": "Seconds per tick (default 0.1, max 0.25)",
				},
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ticks (default 1)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pause_park",
		Description: "Pause or resume real-time ticking of a park",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"paused": map[string]interface{}{
					"type":        "boolean",
					"description": "true to pause, false to resume",
				},
			},
			Required: []string{"session_id", "paused"},
		},
	}, c.handlePause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what occupies a grid cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          coordProperty("x"),
				"y":          coordProperty("y"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available park configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "facility_catalog",
		Description: "List attraction types with cost, income, capacity and footprint",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config whose catalog to show (optional)",
				},
			},
		},
	}, c.handleCatalog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "park_instructions",
		Description: "Get the complete rules of the park simulation",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/parks/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreatePark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if seed, ok := intArg(args, "seed"); ok && seed > 0 {
		body["seed"] = seed
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/parks", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created park: %s\nConfig: %s\n\n%s",
		info.ID, info.ConfigName, formatParkState(info.State))), nil
}

func (c *Client) handleListParks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/parks", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Parks (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		line := fmt.Sprintf("- %s (Config: %s, Created: %s", s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
		if s.State != nil {
			line += fmt.Sprintf(", Funds: %.0f, Visitors: %d", s.State.Funds, s.State.ActiveVisitors)
		}
		if s.Paused {
			line += ", paused"
		}
		result.WriteString(line + ")\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetPark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleParkState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.ParkSnapshot
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatParkState(&state)), nil
}

func placementBody(args map[string]interface{}) (map[string]interface{}, error) {
	facilityType, _ := args["type"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if facilityType == "" || !okX || !okY {
		return nil, fmt.Errorf("type, x and y are required")
	}
	return map[string]interface{}{"type": facilityType, "x": x, "y": y}, nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := placementBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.PlacementResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlacement(&result, true)), nil
}

func (c *Client) handleCanPlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/can-place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := placementBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	query.Set("type", body["type"].(string))
	query.Set("x", fmt.Sprint(body["x"]))
	query.Set("y", fmt.Sprint(body["y"]))

	var result service.PlacementResult
	if err := c.apiCall(ctx, "GET", path+"?"+query.Encode(), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlacement(&result, false)), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/advance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dt := 0.1
	if v, ok := args["dt"].(float64); ok && v > 0 {
		dt = v
	}
	steps := 1
	if v, ok := intArg(args, "steps"); ok {
		steps = v
	}
	if seconds, ok := args["seconds"].(float64); ok && seconds > 0 {
		steps = int(seconds/dt + 0.5)
		if steps < 1 {
			steps = 1
		}
	}

	var state engine.ParkSnapshot
	if err := c.apiCall(ctx, "POST", path, map[string]interface{}{"dt": dt, "steps": steps}, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Advanced %d ticks of %.2fs\n\n%s", steps, dt, formatParkState(&state))), nil
}

func (c *Client) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/pause")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paused, _ := args["paused"].(bool)

	if err := c.apiCall(ctx, "POST", path, map[string]bool{"paused": paused}, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if paused {
		return mcp.NewToolResultText("Park paused. Use advance to step it manually."), nil
	}
	return mcp.NewToolResultText("Park resumed."), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	path, err := sessionPath(args, fmt.Sprintf("/cells/%d/%d", x, y))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&result, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Funds: %.0f, Attractions: %d\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.GridWidth, cfg.GridHeight, cfg.StartingFunds, cfg.Attractions)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/catalog"
	if configID, _ := arguments(request)["config_id"].(string); configID != "" {
		path += "?config=" + url.QueryEscape(configID)
	}

	var specs []engine.FacilitySpec
	if err := c.apiCall(ctx, "GET", path, nil, &specs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCatalog(specs)), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Park Simulator - Complete Instructions

OBJECTIVE:
Run a profitable, reputable amusement park. There is no win condition; watch
funds, reputation and average satisfaction grow.

MAP LEGEND:
• E = entrance (visitors spawn here)   • X = exit
• F = food stall   • C = carousel   • W = ferris wheel (2x2)
• o = visitor on foot   • . = empty walkable ground
Coordinates are (x, y) with (0, 0) at the top-left.

PLACEMENT:
• Each attraction costs money up front; placement needs enough funds
• The whole footprint must be inside the grid, empty and not the entrance or exit
• Large attractions (ferris wheel) need a one-cell gap from every other
  attraction, and nothing may be placed directly next to a large one
• Use can_place to dry-run before place_attraction

VISITORS:
• Spawn at the entrance; faster when reputation is high (every 2-6s)
• Each has a preference per attraction type and picks targets by
  preference x happiness / distance / crowding, with some randomness
• Walk the shortest path around attractions, enter when there is room,
  otherwise reroute to another attraction
• Playing takes the attraction's duration; completion pays its income,
  adds its happiness and +0.5 reputation
• Very happy visitors leave early (+1 reputation), unhappy ones too (-1)

REPUTATION decays toward zero over time.

TIME:
The server ticks every park in real time unless paused. Use advance to step
a paused park deterministically.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	status := "running"
	if info.Paused {
		status = "paused"
	}
	return fmt.Sprintf("Park: %s\nConfig: %s\nStatus: %s\nCreated: %s\n\n%s",
		info.ID, info.ConfigName, status,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		formatParkState(info.State))
}

func formatParkState(state *engine.ParkSnapshot) string {
	if state == nil {
		return "No park state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "%s | t=%.1fs | Funds: %.0f | Reputation: %.1f | Satisfaction: %.1f\n",
		state.Name, state.Elapsed, state.Funds, state.Reputation, state.Satisfaction)
	fmt.Fprintf(&result, "Visitors: %d active, %d total | Next spawn every %.1fs\n",
		state.ActiveVisitors, state.VisitorCount, state.SpawnInterval)
	fmt.Fprintf(&result, "Plays: %d | Reroutes: %d | Departed: %d (delighted %d, unhappy %d)\n\n",
		state.Stats.Plays, state.Stats.Reroutes, state.Stats.Departed, state.Stats.Delighted, state.Stats.Unhappy)

	for _, row := range state.Grid {
		result.WriteString(row)
		result.WriteString("\n")
	}

	if len(state.Facilities) > 0 {
		result.WriteString("\nAttractions:\n")
		for _, f := range state.Facilities {
			fmt.Fprintf(&result, "  #%d %s at (%d,%d) %dx%d players %d/%d\n",
				f.ID, f.Type, f.X, f.Y, f.Width, f.Height, f.CurrentPlayers, f.Capacity)
		}
	}

	return result.String()
}

func formatPlacement(result *service.PlacementResult, committed bool) string {
	switch {
	case result.Success && committed:
		return fmt.Sprintf("Placed %s at (%d,%d) for %.0f. Funds now %.0f.", result.Type, result.X, result.Y, result.Cost, result.Funds)
	case result.Success:
		return fmt.Sprintf("%s can be placed at (%d,%d) for %.0f (funds %.0f).", result.Type, result.X, result.Y, result.Cost, result.Funds)
	}
	return fmt.Sprintf("Cannot place %s at (%d,%d): %s.", result.Type, result.X, result.Y, result.Reason)
}

func formatCell(cell *service.CellInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Cell (%d,%d): %s\n", cell.X, cell.Y, cell.Kind)
	if cell.Kind == "out_of_bounds" {
		return result.String()
	}
	fmt.Fprintf(&result, "Walkable: %v\nWorld position: (%.1f, %.1f)\nVisitors here: %d\n",
		cell.Walkable, cell.World.X, cell.World.Z, cell.Visitors)
	if f := cell.Facility; f != nil {
		fmt.Fprintf(&result, "Attraction: #%d %s at (%d,%d), players %d/%d\n",
			f.ID, f.Type, f.X, f.Y, f.CurrentPlayers, f.Capacity)
	}
	return result.String()
}

func formatCatalog(specs []engine.FacilitySpec) string {
	var result strings.Builder
	result.WriteString("Attraction Catalog:\n\n")
	for _, s := range specs {
		size := "normal"
		if s.Large() {
			size = "large (needs a 1-cell gap)"
		}
		fmt.Fprintf(&result, "• %s: cost %.0f, income %.0f, happiness +%.0f, %gs, capacity %d, footprint %dx%d, %s\n",
			s.Type, s.Cost, s.Income, s.HappinessGain, s.PlayDuration, s.Capacity, s.Width, s.Height, size)
	}
	return result.String()
}
