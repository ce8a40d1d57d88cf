// Package config provides configuration management for Road Dodge.
//
// The config package handles:
//   - Loading game configurations from JSON and YAML files
//   - Configuration validation through the engine rules
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations live in the configs directory as name.json,
// name.yaml or name.yml. The file name without extension is the config
// ID used when creating sessions. Each configuration defines:
//   - Starting health and the player car (speed, tilt, collider)
//   - Road speed and the road line layout
//   - The obstacle roster and the window they respawn in
//   - The vertical bounds that end the run
//   - Music, sound effects and on-screen messages
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific configuration
//	gameConfig, err := manager.LoadConfig("rush")
//
//	// Get default configuration
//	defaultConfig := manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
package config
