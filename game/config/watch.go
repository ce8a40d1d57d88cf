package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// A changed file is reloaded once the directory has been quiet this long
const watchDebounce = 100 * time.Millisecond

// Watch follows the config directory and reloads config files once they stop
// changing, then calls onChange with the config ID. A file that fails to load
// keeps its last good version as the default and onChange is not called.
// Removed files trigger a full cache refresh. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(id string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	quiet := time.NewTimer(watchDebounce)
	quiet.Stop()
	defer quiet.Stop()

	// File names changed since the last flush
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if configID(name) == name {
				continue
			}
			pending[name] = true
			quiet.Reset(watchDebounce)

		case <-quiet.C:
			if err := m.flush(pending, onChange); err != nil {
				return err
			}
			pending = make(map[string]bool)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Config] watcher error: %v", err)
		}
	}
}

// flush reloads every pending file in name order
func (m *Manager) flush(pending map[string]bool, onChange func(id string)) error {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		id := configID(name)
		if _, err := os.Stat(filepath.Join(m.configDir, name)); err != nil {
			// Gone: forget it and let pickDefault choose again
			if err := m.RefreshCache(); err != nil {
				return err
			}
		} else if err := m.ReloadConfig(name); err != nil {
			log.Printf("[Config] %s not reloaded: %v", name, err)
			continue
		}
		if onChange != nil {
			onChange(id)
		}
	}
	return nil
}
