package settings

import (
	"testing"

	"github.com/quasilyte/gdata/v2"
)

func openStore(t *testing.T) *gdata.Manager {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)

	store, err := gdata.Open(gdata.Config{AppName: "roaddodge_settings_test"})
	if err != nil {
		t.Fatalf("Failed to open gdata store: %v", err)
	}
	return store
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	if !s.MusicEnabled {
		t.Error("MusicEnabled: got false, want true")
	}
	if s.MusicVolume != 1 || s.SfxVolume != 1 {
		t.Errorf("Volumes: got %v/%v, want 1/1", s.MusicVolume, s.SfxVolume)
	}
	if s.BestDistance == nil {
		t.Error("BestDistance should be initialized")
	}
}

func TestNewManagerWithoutStore(t *testing.T) {
	m := NewManager(nil)
	if m.Get() == nil {
		t.Fatal("Get() returned nil")
	}
	if err := m.Save(); err != nil {
		t.Errorf("Save without store should be a no-op, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := openStore(t)

	m := NewManager(store)
	m.ToggleMusic()
	m.SetVolumes(0.4, 0.6)
	m.Get().LastConfig = "rush"
	m.RecordDistance("Classic", 1234)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewManager(store)
	s := reloaded.Get()
	if s.MusicEnabled {
		t.Error("MusicEnabled should have persisted as false")
	}
	if s.MusicVolume != 0.4 || s.SfxVolume != 0.6 {
		t.Errorf("Volumes: got %v/%v, want 0.4/0.6", s.MusicVolume, s.SfxVolume)
	}
	if s.LastConfig != "rush" {
		t.Errorf("LastConfig: got %q, want rush", s.LastConfig)
	}
	if reloaded.Best("Classic") != 1234 {
		t.Errorf("Best: got %v, want 1234", reloaded.Best("Classic"))
	}
}

func TestLoadCorruptData(t *testing.T) {
	store := openStore(t)
	if err := store.SaveObjectProp(settingsObject, settingsProperty, []byte("music_volume: [")); err != nil {
		t.Fatalf("Failed to write corrupt data: %v", err)
	}

	m := &Manager{store: store}
	if err := m.Load(); err == nil {
		t.Error("Expected error for corrupt settings")
	}
	if !m.Get().MusicEnabled {
		t.Error("Expected defaults after a failed load")
	}
}

func TestRecordDistance(t *testing.T) {
	m := NewManager(nil)

	if !m.RecordDistance("Classic", 500) {
		t.Error("First distance should be a new best")
	}
	if m.RecordDistance("Classic", 400) {
		t.Error("Shorter distance should not replace the best")
	}
	if m.RecordDistance("Classic", 500) {
		t.Error("Equal distance should not replace the best")
	}
	if !m.RecordDistance("Classic", 900) {
		t.Error("Longer distance should be a new best")
	}
	if m.Best("Classic") != 900 {
		t.Errorf("Best: got %v, want 900", m.Best("Classic"))
	}
	if m.Best("Rush Hour") != 0 {
		t.Errorf("Unplayed config should have no best, got %v", m.Best("Rush Hour"))
	}
}

func TestSetVolumesClamps(t *testing.T) {
	m := NewManager(nil)
	m.SetVolumes(-1, 3)
	if m.Get().MusicVolume != 0 || m.Get().SfxVolume != 1 {
		t.Errorf("Volumes: got %v/%v, want 0/1", m.Get().MusicVolume, m.Get().SfxVolume)
	}
}

func TestToggleMusic(t *testing.T) {
	m := NewManager(nil)
	if m.ToggleMusic() {
		t.Error("First toggle should turn music off")
	}
	if !m.ToggleMusic() {
		t.Error("Second toggle should turn music on")
	}
}
