package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
	"github.com/wricardo/parksim/game/session"
)

func createValidConfig(name string) *engine.ParkConfig {
	cfg := engine.DefaultParkConfig()
	cfg.Name = name
	cfg.Description = "Test configuration"
	cfg.GridWidth = 10
	cfg.GridHeight = 10
	cfg.Entrance = nil
	cfg.Exit = nil
	cfg.ApplyDefaults()
	return cfg
}

func writeConfigFile(t *testing.T, dir, filename string, config *engine.ParkConfig) {
	t.Helper()
	data, err := engine.EncodeParkConfig(filename, config)
	if err != nil {
		t.Fatalf("Failed to encode config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic becomes default", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "alpha.json", createValidConfig("Alpha"))
		writeConfigFile(t, dir, "classic.json", createValidConfig("Classic"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("first config when classic is missing", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "zeta.yaml", createValidConfig("Zeta"))
		writeConfigFile(t, dir, "beta.json", createValidConfig("Beta"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Beta" {
			t.Errorf("Expected first config by ID, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("built-in default for empty directory", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != engine.DefaultParkConfig().Name {
			t.Errorf("Expected built-in default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("Expected error for missing directory")
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "park.json", createValidConfig("JSON Park"))
	writeConfigFile(t, dir, "hills.yml", createValidConfig("Hills"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		wantName string
	}{
		{"json by id", "park", "JSON Park"},
		{"json with extension", "park.json", "JSON Park"},
		{"yml by id", "hills", "Hills"},
		{"yml with extension", "hills.yml", "Hills"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := manager.LoadConfig(tt.input)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if cfg.Name != tt.wantName {
				t.Errorf("Expected %q, got %q", tt.wantName, cfg.Name)
			}
		})
	}

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("park")
		second, _ := manager.LoadConfig("park.json")
		if first != second {
			t.Error("Expected cached config to be returned")
		}
	})

	t.Run("missing config", func(t *testing.T) {
		if _, err := manager.LoadConfig("nope"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		if _, err := manager.LoadConfig("../park"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createValidConfig("Bad")
		bad.GridWidth = 500
		writeConfigFile(t, dir, "bad.json", bad)
		if _, err := manager.LoadConfig("bad"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unterminated"), 0644)
		if _, err := manager.LoadConfig("broken"); err == nil {
			t.Error("Expected parse error")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "b.json", createValidConfig("B"))
	writeConfigFile(t, dir, "a.yaml", createValidConfig("A"))
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)
	os.Mkdir(filepath.Join(dir, "nested"), 0755)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}
	if configs[0].ConfigID != "a" || configs[1].ConfigID != "b" {
		t.Errorf("Expected configs sorted by ID, got %s, %s", configs[0].ConfigID, configs[1].ConfigID)
	}
	if configs[0].Filename != "a.yaml" || configs[0].GridWidth != 10 || configs[0].Attractions != 3 {
		t.Errorf("Unexpected config info %+v", configs[0])
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("json by default", func(t *testing.T) {
		if err := manager.SaveConfig("saved", createValidConfig("Saved")); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected saved.json on disk: %v", err)
		}
	})

	t.Run("yaml by extension", func(t *testing.T) {
		if err := manager.SaveConfig("other.yaml", createValidConfig("Other")); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if err := manager.ReloadConfig("other"); err != nil {
			t.Fatalf("Failed to reload saved yaml: %v", err)
		}
		cfg, _ := manager.LoadConfig("other")
		if cfg.Name != "Other" {
			t.Errorf("Expected reloaded name Other, got %q", cfg.Name)
		}
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		bad := createValidConfig("")
		if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("path rejected", func(t *testing.T) {
		if err := manager.SaveConfig("../escape", createValidConfig("Escape")); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic.json", createValidConfig("Classic"))
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	writeConfigFile(t, dir, "classic.json", createValidConfig("Classic v2"))
	manager.RefreshCache()

	if manager.GetDefault().Name != "Classic v2" {
		t.Errorf("Expected refreshed default, got %q", manager.GetDefault().Name)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 cached config, got %d", manager.Count())
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic.json", createValidConfig("Classic"))
	writeConfigFile(t, dir, "small.json", createValidConfig("Small"))
	manager, _ := NewManager(dir)

	if err := manager.SetDefault("small"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "Small" {
		t.Errorf("Expected Small default, got %q", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic.json", createValidConfig("Classic"))
	writeConfigFile(t, dir, "shared.json", createValidConfig("Shared"))
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	results := make([]*engine.ParkConfig, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := manager.LoadConfig("shared")
			if err != nil {
				t.Errorf("Failed to load config: %v", err)
				return
			}
			results[i] = cfg
			manager.ListConfigs()
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("Expected every loader to see the same cached config")
		}
	}
}

func TestManager_MissingConfigThroughService(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic.json", createValidConfig("Classic"))
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	svc := service.NewParkService(session.NewManager(), manager)
	_, err = svc.CreateSession(context.Background(), "nope", 0)
	if !errors.Is(err, service.ErrConfigNotFound) {
		t.Fatalf("Expected service.ErrConfigNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available configs") || !strings.Contains(err.Error(), "classic") {
		t.Errorf("Expected the available configs to be listed, got %v", err)
	}

	writeConfigFile(t, dir, "broken.json", createValidConfig(""))
	if _, err := svc.CreateSession(context.Background(), "broken", 0); !errors.Is(err, service.ErrInvalidConfig) {
		t.Errorf("Expected service.ErrInvalidConfig, got %v", err)
	}
}
