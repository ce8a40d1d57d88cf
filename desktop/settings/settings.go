// Package settings stores the desktop client's preferences and best
// distances with gdata, encoded as YAML.
package settings

import (
	"fmt"
	"log"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

const (
	settingsObject   = "settings"
	settingsProperty = "desktop"
)

// Settings are the persisted desktop preferences
type Settings struct {
	MusicEnabled bool               `yaml:"music_enabled"`
	MusicVolume  float64            `yaml:"music_volume"`
	SfxVolume    float64            `yaml:"sfx_volume"`
	LastConfig   string             `yaml:"last_config,omitempty"`
	BestDistance map[string]float64 `yaml:"best_distance,omitempty"`
}

// Defaults returns the settings used before anything is saved
func Defaults() *Settings {
	return &Settings{
		MusicEnabled: true,
		MusicVolume:  1,
		SfxVolume:    1,
		BestDistance: map[string]float64{},
	}
}

// Manager loads and saves Settings. A nil gdata manager keeps settings in
// memory only.
type Manager struct {
	store    *gdata.Manager
	settings *Settings
}

// Open creates a gdata store for appName and loads its settings. If the
// store cannot be opened the manager falls back to memory only.
func Open(appName string) *Manager {
	store, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		log.Printf("[Settings] Warning: storage unavailable: %v (settings will not persist)", err)
		store = nil
	}
	return NewManager(store)
}

// NewManager wraps store and loads any saved settings
func NewManager(store *gdata.Manager) *Manager {
	m := &Manager{store: store, settings: Defaults()}
	if err := m.Load(); err != nil {
		log.Printf("[Settings] Warning: %v (using defaults)", err)
	}
	return m
}

// Load reads saved settings, keeping defaults when none exist
func (m *Manager) Load() error {
	m.settings = Defaults()
	if m.store == nil || !m.store.ObjectPropExists(settingsObject, settingsProperty) {
		return nil
	}

	data, err := m.store.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := Defaults()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if loaded.BestDistance == nil {
		loaded.BestDistance = map[string]float64{}
	}
	loaded.MusicVolume = clampVolume(loaded.MusicVolume)
	loaded.SfxVolume = clampVolume(loaded.SfxVolume)

	m.settings = loaded
	return nil
}

// Save writes the settings; without a store it does nothing
func (m *Manager) Save() error {
	if m.store == nil {
		return nil
	}

	data, err := yaml.Marshal(m.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := m.store.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Get returns the current settings
func (m *Manager) Get() *Settings {
	return m.settings
}

// ToggleMusic flips music on or off and returns the new value
func (m *Manager) ToggleMusic() bool {
	m.settings.MusicEnabled = !m.settings.MusicEnabled
	return m.settings.MusicEnabled
}

// SetVolumes sets the music and effect volumes, clamped to [0, 1]
func (m *Manager) SetVolumes(music, sfx float64) {
	m.settings.MusicVolume = clampVolume(music)
	m.settings.SfxVolume = clampVolume(sfx)
}

// Best returns the best distance recorded for a config
func (m *Manager) Best(configName string) float64 {
	return m.settings.BestDistance[configName]
}

// RecordDistance keeps distance if it beats the best for configName and
// reports whether it did
func (m *Manager) RecordDistance(configName string, distance float64) bool {
	if distance <= m.settings.BestDistance[configName] {
		return false
	}
	m.settings.BestDistance[configName] = distance
	return true
}

func clampVolume(volume float64) float64 {
	if volume < 0 {
		return 0
	}
	if volume > 1 {
		return 1
	}
	return volume
}
