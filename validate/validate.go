// Command validate checks every park configuration (.json, .yaml, .yml) in a
// directory, "configs" by default. It checks:
//   - JSON/YAML structure and the field rules enforced by the engine
//   - Catalog overrides (capacity, footprint, play duration)
//   - That the pre-placed layout fits on the grid without overlaps or buffer violations
//   - Connectivity: the exit is reachable from the entrance with the layout applied
//
// It also reports empty cells that the layout walls off from the entrance.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/wricardo/parksim/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	config, err := engine.DecodeParkConfig(filePath, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid config: %v", err))
		return result
	}

	if err := engine.ValidateParkConfig(config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	connectivity := validateConnectivity(config)
	if !connectivity.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, connectivity.Errors...)

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", config.GridWidth, config.GridHeight))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Entrance (%d,%d), exit (%d,%d)",
			config.Entrance.X, config.Entrance.Y, config.Exit.X, config.Exit.Y))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Starting funds: %.0f", config.StartingFunds))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Attraction types: %d", len(config.Catalog())))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Pre-placed attractions: %d", len(config.Layout)))
	}

	return result
}

// validateConnectivity applies the layout and flood-fills from the entrance.
// The exit must be reached; walled-off empty cells are reported but allowed.
func validateConnectivity(config *engine.ParkConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	grid := engine.NewGridMap(config.GridWidth, config.GridHeight, config.CellSize, *config.Entrance, *config.Exit)
	registry := engine.NewFacilityRegistry(grid)
	catalog := config.Catalog()
	for i, entry := range config.Layout {
		spec, ok := catalog[entry.Type]
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Layout entry %d: unknown attraction type %q", i, entry.Type))
			return result
		}
		if _, ok := registry.Place(spec, entry.X, entry.Y, nil); !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Layout entry %d: %s cannot be placed at (%d,%d)", i, entry.Type, entry.X, entry.Y))
			return result
		}
	}

	start := grid.Entrance()
	visited := map[engine.GridPos]bool{start: true}
	queue := []engine.GridPos{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range []engine.GridPos{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}} {
			next := engine.GridPos{X: current.X + dir.X, Y: current.Y + dir.Y}
			if visited[next] {
				continue
			}
			// the exit ends a walk, it is never walked through
			if next == grid.Exit() {
				visited[next] = true
				continue
			}
			if grid.IsWalkable(next.X, next.Y) {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	if !visited[grid.Exit()] {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Connectivity failure: exit (%d,%d) unreachable from entrance (%d,%d)",
			grid.Exit().X, grid.Exit().Y, start.X, start.Y))
		return result
	}

	walledOff := 0
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			if grid.IsWalkable(x, y) && !visited[engine.GridPos{X: x, Y: y}] {
				walledOff++
			}
		}
	}

	path, _ := engine.NewPathFinder(grid).FindPath(start.X, start.Y, grid.Exit().X, grid.Exit().Y)
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: exit reachable in %d steps, %d cells reachable", len(path)-1, len(visited)))
	if walledOff > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Note: %d empty cells are walled off from the entrance", walledOff))
	}
	return result
}

// collectConfigFiles lists the park configs in dir in name order
func collectConfigFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// run validates every config in dir, writes a report, and returns whether all were valid
func run(dir string, out io.Writer) (bool, error) {
	files, err := collectConfigFiles(dir)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no park configs found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(out, "  "+info)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(out, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(out, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(out, "❌ Some configurations have errors")
	}
	return allValid, nil
}

// main validates the directory given as the first argument, or ./configs,
// exiting with non-zero status if any file is invalid.
func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	allValid, err := run(configDir, os.Stdout)
	if err != nil {
		log.Fatal("validation failed", "dir", configDir, "err", err)
	}
	if !allValid {
		os.Exit(1)
	}
}
