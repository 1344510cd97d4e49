package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// DefaultConfigID is tried first when picking the default park
const DefaultConfigID = "classic"

// supportedExtensions lists config file formats in lookup order
var supportedExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles park configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.ParkConfig
	configs       map[string]*engine.ParkConfig
	mu            sync.RWMutex
}

var _ service.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.ParkConfig),
	}
	m.loadDefaultConfig()

	return m, nil
}

// configID strips a known extension from a config name
func configID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}

// resolve finds the file backing a config ID
func (m *Manager) resolve(name string) (string, error) {
	if filepath.Base(name) != name || name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}
	if configID(name) != name {
		path := filepath.Join(m.configDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", ErrConfigNotFound
		}
		return path, nil
	}
	for _, ext := range supportedExtensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig loads a configuration by ID, with or without its extension
func (m *Manager) LoadConfig(name string) (*engine.ParkConfig, error) {
	id := configID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.DecodeParkConfig(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := engine.ValidateParkConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another loader may have won the race
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := configID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			log.Warn("skipping invalid park config", "file", entry.Name(), "error", err)
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:      entry.Name(),
			ConfigID:      id, // This is the identifier to use for session creation
			Name:          config.Name,
			Description:   config.Description,
			GridWidth:     config.GridWidth,
			GridHeight:    config.GridHeight,
			StartingFunds: config.StartingFunds,
			Attractions:   len(config.Catalog()),
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.ParkConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached configurations and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.ParkConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// ReloadConfig re-reads a single configuration from disk
func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, configID(name))
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

// Count returns the number of cached configurations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// loadDefaultConfig picks classic, then the first valid config, then built-in defaults
func (m *Manager) loadDefaultConfig() {
	config, err := m.LoadConfig(DefaultConfigID)
	if err != nil {
		config = nil
		if configs, listErr := m.ListConfigs(); listErr == nil && len(configs) > 0 {
			config, _ = m.LoadConfig(configs[0].ConfigID)
		}
	}
	if config == nil {
		log.Warn("no usable park config found, using built-in defaults", "dir", m.configDir)
		config = engine.DefaultParkConfig()
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig validates a configuration and writes it to disk.
// The extension picks the format; names without one are saved as JSON.
func (m *Manager) SaveConfig(name string, config *engine.ParkConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	config.ApplyDefaults()
	if err := engine.ValidateParkConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	filename := name
	if configID(name) == name {
		filename = name + ".json"
	}
	if filepath.Base(filename) != filename {
		return fmt.Errorf("%w: config name %q must not contain a path", ErrInvalidConfig, name)
	}

	data, err := engine.EncodeParkConfig(filename, config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[configID(name)] = config
	m.mu.Unlock()

	log.Info("park config saved", "file", filename, "name", config.Name)
	return nil
}
