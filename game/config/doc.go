// Package config provides configuration management for the park simulator.
//
// The config package handles:
//   - Loading park configurations from JSON or YAML files
//   - Configuration validation before anything is cached
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Park configurations live in the configs directory as .json, .yaml or .yml
// files. The file name without extension is the config ID used for session
// creation. Each configuration defines:
//   - Grid dimensions, cell size, entrance and exit
//   - Starting funds, reputation and satisfaction
//   - Spawn pacing and visitor behaviour tuning
//   - Optional attraction catalog overrides and a pre-built layout
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//
//	// Load specific configuration
//	parkConfig, err := manager.LoadConfig("compact")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Get default configuration
//	defaultConfig := manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
//
// The default is "classic" when present, else the first valid config in the
// directory, else engine.DefaultParkConfig.
package config
