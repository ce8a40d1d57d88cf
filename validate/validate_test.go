package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, name string, config *engine.GameConfig) string {
	t.Helper()

	var data []byte
	var err error
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		t.Fatalf("Failed to encode config: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "classic.json", engine.DefaultConfig())

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file name classic.json, got %s", result.File)
	}

	for _, want := range []string{"Structure: Classic", "Road band", "Reaction", "Dry run"} {
		found := false
		for _, msg := range result.Errors {
			if strings.HasPrefix(msg, "✓") && contains(msg, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected informational message containing %q, got %v", want, result.Errors)
		}
	}
}

func TestValidateConfig_YAML(t *testing.T) {
	config := engine.DefaultConfig()
	config.Name = "Easy"
	path := writeConfig(t, t.TempDir(), "easy.yaml", config)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid yaml config, got errors: %v", result.Errors)
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"name": "Broken",`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	result := validateConfig(path)
	if result.Valid {
		t.Fatal("Expected invalid config for malformed JSON")
	}
	if len(result.Errors) == 0 || !contains(result.Errors[0], "Invalid syntax") {
		t.Errorf("Expected syntax error, got %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Fatal("Expected invalid result for missing file")
	}
	if len(result.Errors) == 0 || !contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateConfig_StructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.GameConfig)
		want   string
	}{
		{"no description", func(c *engine.GameConfig) { c.Description = "" }, "description is required"},
		{"zero health", func(c *engine.GameConfig) { c.StartingHealth = 0 }, "starting_health"},
		{"no obstacles", func(c *engine.GameConfig) { c.Obstacles = nil }, "obstacles must have"},
		{"bad health text", func(c *engine.GameConfig) { c.Messages.Health = "Health" }, "messages.health"},
		{"inverted bounds", func(c *engine.GameConfig) { c.Bounds.MinY, c.Bounds.MaxY = 250, -350 }, "bounds.min_y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := engine.DefaultConfig()
			tt.mutate(config)
			path := writeConfig(t, t.TempDir(), "config.json", config)

			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if len(result.Errors) != 1 || !contains(result.Errors[0], tt.want) {
				t.Errorf("Expected one error containing %q, got %v", tt.want, result.Errors)
			}
			if strings.HasPrefix(result.Errors[0], "config validation:") {
				t.Errorf("Expected prefix to be trimmed, got %q", result.Errors[0])
			}
		})
	}
}

func TestCheckPlayability(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.GameConfig)
		valid  bool
		want   string
	}{
		{"classic", func(c *engine.GameConfig) {}, true, "Road band: 600 units"},
		{"band narrower than car", func(c *engine.GameConfig) {
			c.Bounds.MinY, c.Bounds.MaxY, c.Player.StartY = -20, 20, 0
		}, false, "not taller than the car"},
		{"spawn above road", func(c *engine.GameConfig) {
			c.Spawn.MinY, c.Spawn.MaxY = 500, 700
		}, false, "never reach the road"},
		{"spawn behind car", func(c *engine.GameConfig) {
			c.Spawn.MinX, c.Spawn.MaxX, c.Spawn.DespawnX = -600, 100, -900
		}, false, "behind the car"},
		{"no time to dodge", func(c *engine.GameConfig) {
			c.Player.Speed = 10
			c.Road.Speed = 5000
		}, false, "Dodging takes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := engine.DefaultConfig()
			tt.mutate(config)

			result := ValidationResult{Valid: true}
			checkPlayability(config, &result)

			if result.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v (%v)", tt.valid, result.Valid, result.Errors)
			}
			found := false
			for _, msg := range result.Errors {
				if contains(msg, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected a message containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestCheckDryRun(t *testing.T) {
	result := ValidationResult{Valid: true}
	checkDryRun(engine.DefaultConfig(), &result)

	if !result.Valid {
		t.Fatalf("Expected dry run to pass, got %v", result.Errors)
	}
	if len(result.Errors) != 1 || !contains(result.Errors[0], "Dry run:") {
		t.Errorf("Expected a dry run summary, got %v", result.Errors)
	}
}

func TestFindConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b.json", engine.DefaultConfig())
	writeConfig(t, dir, "a.yaml", engine.DefaultConfig())
	writeConfig(t, dir, "c.yml", engine.DefaultConfig())
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := findConfigs(dir)
	if err != nil {
		t.Fatalf("findConfigs failed: %v", err)
	}

	var names []string
	for _, file := range files {
		names = append(names, filepath.Base(file))
	}
	want := []string{"a.yaml", "b.json", "c.yml"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestReport(t *testing.T) {
	valid := []ValidationResult{{File: "a.json", Valid: true, Errors: []string{"✓ ok"}}}
	if !report(valid) {
		t.Error("Expected report to succeed for valid results")
	}

	mixed := append(valid, ValidationResult{File: "b.json", Valid: false, Errors: []string{"boom"}})
	if report(mixed) {
		t.Error("Expected report to fail when any result is invalid")
	}
}

func TestShippedConfigs(t *testing.T) {
	files, err := findConfigs("../configs")
	if err != nil {
		t.Fatalf("findConfigs failed: %v", err)
	}
	if len(files) == 0 {
		t.Skip("no shipped configurations")
	}

	for _, file := range files {
		result := validateConfig(file)
		if !result.Valid {
			t.Errorf("%s: %v", result.File, result.Errors)
		}
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
